package base

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// WriteData marshals data into mapped device memory at offset. The memory
// must be host-visible.
func WriteData(driver core1_0.DeviceDriver, memory core1_0.DeviceMemory, offset int, data any) error {
	bufferSize := binary.Size(data)

	memoryPtr, _, err := driver.MapMemory(memory, offset, bufferSize, 0)
	if err != nil {
		return err
	}
	defer driver.UnmapMemory(memory)

	dataBuffer := unsafe.Slice((*byte)(memoryPtr), bufferSize)

	buf := &bytes.Buffer{}
	err = binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return err
	}

	copy(dataBuffer, buf.Bytes())
	return nil
}

// MarshalData converts a fixed-size value to the byte layout the device
// expects, for push constants and similar small payloads.
func MarshalData(data any) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (app *App) FindMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := app.InstanceDriver.GetPhysicalDeviceMemoryProperties(app.PhysicalDevice)
	for i, memoryType := range memProperties.MemoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Newf("no memory type matches filter 0x%x with properties %s", typeFilter, properties)
}

func (app *App) CreateBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buffer, _, err := app.Device.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	memRequirements := app.Device.GetBufferMemoryRequirements(buffer)
	memoryTypeIndex, err := app.FindMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		return buffer, core1_0.DeviceMemory{}, err
	}

	memory, _, err := app.Device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return buffer, core1_0.DeviceMemory{}, err
	}

	_, err = app.Device.BindBufferMemory(buffer, memory, 0)
	return buffer, memory, err
}

// CreateDeviceLocalBuffer uploads data into a fresh device-local buffer
// through a staging buffer.
func (app *App) CreateDeviceLocalBuffer(usage core1_0.BufferUsageFlags, data any) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	bufferSize := binary.Size(data)

	stagingBuffer, stagingMemory, err := app.CreateBuffer(bufferSize, core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if stagingBuffer.Initialized() {
		defer app.Device.DestroyBuffer(stagingBuffer, nil)
	}
	if stagingMemory.Initialized() {
		defer app.Device.FreeMemory(stagingMemory, nil)
	}
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	err = WriteData(app.Device, stagingMemory, 0, data)
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	buffer, memory, err := app.CreateBuffer(bufferSize, core1_0.BufferUsageTransferDst|usage, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return buffer, memory, err
	}

	err = app.CopyBuffer(stagingBuffer, buffer, bufferSize)
	return buffer, memory, err
}

func (app *App) CopyBuffer(srcBuffer core1_0.Buffer, dstBuffer core1_0.Buffer, size int) error {
	buffer, err := app.BeginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = app.Device.CmdCopyBuffer(buffer, srcBuffer, dstBuffer,
		core1_0.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	)
	if err != nil {
		return err
	}

	return app.EndSingleTimeCommands(buffer)
}

// UniformBuffer is a persistently host-visible buffer refreshed every frame.
type UniformBuffer struct {
	Buffer core1_0.Buffer
	Memory core1_0.DeviceMemory
	Size   int
}

func (app *App) CreateUniformBuffer(prototype any) (*UniformBuffer, error) {
	size := binary.Size(prototype)
	buffer, memory, err := app.CreateBuffer(size, core1_0.BufferUsageUniformBuffer, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}

	return &UniformBuffer{Buffer: buffer, Memory: memory, Size: size}, nil
}

func (u *UniformBuffer) Write(app *App, data any) error {
	return WriteData(app.Device, u.Memory, 0, data)
}

func (u *UniformBuffer) DescriptorInfo() core1_0.DescriptorBufferInfo {
	return core1_0.DescriptorBufferInfo{
		Buffer: u.Buffer,
		Offset: 0,
		Range:  u.Size,
	}
}

func (u *UniformBuffer) Destroy(app *App) {
	if u == nil {
		return
	}
	if u.Buffer.Initialized() {
		app.Device.DestroyBuffer(u.Buffer, nil)
		u.Buffer = core1_0.Buffer{}
	}
	if u.Memory.Initialized() {
		app.Device.FreeMemory(u.Memory, nil)
		u.Memory = core1_0.DeviceMemory{}
	}
}
