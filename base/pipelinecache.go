package base

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// CacheHeader is the device-written prefix of a pipeline cache blob.
type CacheHeader struct {
	Length  uint32
	Version core1_0.PipelineCacheHeaderVersion
	Vendor  uint32
	Device  uint32
	UUID    uuid.UUID
}

// ValidateCacheBlob checks a pipeline cache blob's header against the
// device it is about to be fed to. A mismatch means the blob came from a
// different device or driver and must not be trusted.
func ValidateCacheBlob(data []byte, vendorID, deviceID uint32, cacheUUID uuid.UUID) error {
	var header CacheHeader
	reader := bytes.NewReader(data)

	err := binary.Read(reader, common.ByteOrder, &header.Length)
	if err != nil {
		return errors.Wrap(err, "read cache header length")
	}
	err = binary.Read(reader, common.ByteOrder, &header.Version)
	if err != nil {
		return errors.Wrap(err, "read cache header version")
	}
	err = binary.Read(reader, common.ByteOrder, &header.Vendor)
	if err != nil {
		return errors.Wrap(err, "read cache vendor id")
	}
	err = binary.Read(reader, common.ByteOrder, &header.Device)
	if err != nil {
		return errors.Wrap(err, "read cache device id")
	}
	err = binary.Read(reader, common.ByteOrder, &header.UUID)
	if err != nil {
		return errors.Wrap(err, "read cache uuid")
	}

	if header.Length == 0 {
		return errors.Newf("bad cache header length 0x%x", header.Length)
	}
	if header.Version != core1_0.PipelineCacheHeaderVersionOne {
		return errors.Newf("unsupported cache header version 0x%x", header.Version)
	}
	if header.Vendor != vendorID {
		return errors.Newf("cache vendor id 0x%x does not match device 0x%x", header.Vendor, vendorID)
	}
	if header.Device != deviceID {
		return errors.Newf("cache device id 0x%x does not match device 0x%x", header.Device, deviceID)
	}
	if header.UUID != cacheUUID {
		return errors.Newf("cache uuid %s does not match device %s", header.UUID, cacheUUID)
	}

	return nil
}

// createPipelineCache builds the device pipeline cache, primed with the
// blob at path when one exists and still matches this device.
func (app *App) createPipelineCache(path string) error {
	var initialData []byte

	blob, err := os.ReadFile(path)
	if err == nil {
		properties, err := app.InstanceDriver.GetPhysicalDeviceProperties(app.PhysicalDevice)
		if err != nil {
			return err
		}

		err = ValidateCacheBlob(blob, properties.VendorID, properties.DeviceID, properties.PipelineCacheUUID)
		if err != nil {
			LogWarn("discarding stale pipeline cache", "path", path, "reason", err)
			_ = os.Remove(path)
		} else {
			initialData = blob
		}
	}

	app.PipelineCache, _, err = app.Device.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: initialData,
	})
	return err
}

// SavePipelineCache writes the populated cache back to disk for the next
// run.
func (app *App) SavePipelineCache(path string) error {
	if !app.PipelineCache.Initialized() {
		return nil
	}

	data, _, err := app.Device.GetPipelineCacheData(app.PipelineCache)
	if err != nil {
		return err
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return errors.Wrapf(err, "write pipeline cache %s", path)
	}
	return nil
}
