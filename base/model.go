package base

import (
	"os"
	"path/filepath"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type VertexComponent int

const (
	VertexComponentPosition VertexComponent = iota
	VertexComponentNormal
	VertexComponentUV
	VertexComponentColor
)

func (c VertexComponent) floatCount() int {
	if c == VertexComponentUV {
		return 2
	}
	return 3
}

func (c VertexComponent) format() core1_0.Format {
	if c == VertexComponentUV {
		return core1_0.FormatR32G32SignedFloat
	}
	return core1_0.FormatR32G32B32SignedFloat
}

// VertexLayout declares which per-vertex components a pipeline consumes, in
// shader location order, packed into one interleaved binding.
type VertexLayout struct {
	Components []VertexComponent
}

func (l VertexLayout) Stride() int {
	stride := 0
	for _, component := range l.Components {
		stride += component.floatCount() * int(unsafe.Sizeof(float32(0)))
	}
	return stride
}

func (l VertexLayout) BindingDescriptions() []core1_0.VertexInputBindingDescription {
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    l.Stride(),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func (l VertexLayout) AttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	var attributes []core1_0.VertexInputAttributeDescription
	offset := 0
	for location, component := range l.Components {
		attributes = append(attributes, core1_0.VertexInputAttributeDescription{
			Binding:  0,
			Location: uint32(location),
			Format:   component.format(),
			Offset:   offset,
		})
		offset += component.floatCount() * int(unsafe.Sizeof(float32(0)))
	}
	return attributes
}

func (l VertexLayout) InputState() *core1_0.PipelineVertexInputStateCreateInfo {
	return &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions:   l.BindingDescriptions(),
		VertexAttributeDescriptions: l.AttributeDescriptions(),
	}
}

// Model is an indexed mesh resident in device-local memory.
type Model struct {
	VertexBuffer core1_0.Buffer
	VertexMemory core1_0.DeviceMemory
	IndexBuffer  core1_0.Buffer
	IndexMemory  core1_0.DeviceMemory
	IndexCount   int
}

type meshKey struct {
	position int
	normal   int
	uv       int
}

// interleaveMesh flattens a decoded OBJ scene into one interleaved vertex
// stream plus indices, per the requested layout. Faces are triangularized
// as a fan and shared vertices deduplicated.
func interleaveMesh(decoder *obj.Decoder, layout VertexLayout, scale float32) ([]float32, []uint32) {
	var vertices []float32
	var indices []uint32
	unique := make(map[meshKey]uint32)

	appendVertex := func(face obj.Face, corner int) {
		key := meshKey{position: face.Vertices[corner], normal: -1, uv: -1}
		if len(face.Normals) > corner {
			key.normal = face.Normals[corner]
		}
		if len(face.Uvs) > corner {
			key.uv = face.Uvs[corner]
		}

		index, seen := unique[key]
		if !seen {
			index = uint32(len(vertices) / (layout.Stride() / 4))
			for _, component := range layout.Components {
				switch component {
				case VertexComponentPosition:
					vertices = append(vertices,
						decoder.Vertices[key.position*3]*scale,
						decoder.Vertices[key.position*3+1]*scale,
						decoder.Vertices[key.position*3+2]*scale)
				case VertexComponentNormal:
					if key.normal >= 0 {
						vertices = append(vertices,
							decoder.Normals[key.normal*3],
							decoder.Normals[key.normal*3+1],
							decoder.Normals[key.normal*3+2])
					} else {
						vertices = append(vertices, 0, 0, 1)
					}
				case VertexComponentUV:
					if key.uv >= 0 {
						vertices = append(vertices,
							decoder.Uvs[key.uv*2],
							1.0-decoder.Uvs[key.uv*2+1])
					} else {
						vertices = append(vertices, 0, 0)
					}
				case VertexComponentColor:
					colored := false
					if material, found := decoder.Materials[face.Material]; found && material != nil {
						vertices = append(vertices, material.Diffuse.R, material.Diffuse.G, material.Diffuse.B)
						colored = true
					}
					if !colored {
						vertices = append(vertices, 1, 1, 1)
					}
				}
			}
			unique[key] = index
		}

		indices = append(indices, index)
	}

	for _, decodedObject := range decoder.Objects {
		for _, face := range decodedObject.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				appendVertex(face, 0)
				appendVertex(face, i-1)
				appendVertex(face, i)
			}
		}
	}

	return vertices, indices
}

// LoadModel reads an OBJ mesh (and its material file when one exists next
// to it) from the asset directory into device-local buffers.
func (app *App) LoadModel(name string, layout VertexLayout, scale float32) (*Model, error) {
	meshPath := filepath.Join(app.Settings.AssetPath, "meshes", name)
	meshFile, err := os.Open(meshPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open mesh %s", meshPath)
	}
	defer meshFile.Close()

	var matReader *os.File
	matPath := meshPath[:len(meshPath)-len(filepath.Ext(meshPath))] + ".mtl"
	matReader, err = os.Open(matPath)
	if err == nil {
		defer matReader.Close()
	}

	var decoder *obj.Decoder
	if matReader != nil {
		decoder, err = obj.DecodeReader(meshFile, matReader)
	} else {
		decoder, err = obj.DecodeReader(meshFile, nil)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode mesh %s", meshPath)
	}

	vertices, indices := interleaveMesh(decoder, layout, scale)
	if len(indices) == 0 {
		return nil, errors.Newf("mesh %s contains no faces", meshPath)
	}

	model := &Model{IndexCount: len(indices)}

	model.VertexBuffer, model.VertexMemory, err = app.CreateDeviceLocalBuffer(core1_0.BufferUsageVertexBuffer, vertices)
	if err != nil {
		return nil, err
	}

	model.IndexBuffer, model.IndexMemory, err = app.CreateDeviceLocalBuffer(core1_0.BufferUsageIndexBuffer, indices)
	if err != nil {
		model.Destroy(app)
		return nil, err
	}

	return model, nil
}

// Draw binds the model's buffers and issues one indexed draw.
func (m *Model) Draw(app *App, cmd core1_0.CommandBuffer) {
	app.Device.CmdBindVertexBuffers(cmd, 0, []core1_0.Buffer{m.VertexBuffer}, []int{0})
	app.Device.CmdBindIndexBuffer(cmd, m.IndexBuffer, 0, core1_0.IndexTypeUInt32)
	app.Device.CmdDrawIndexed(cmd, m.IndexCount, 1, 0, 0, 0)
}

func (m *Model) Destroy(app *App) {
	if m == nil {
		return
	}
	if m.IndexBuffer.Initialized() {
		app.Device.DestroyBuffer(m.IndexBuffer, nil)
		m.IndexBuffer = core1_0.Buffer{}
	}
	if m.IndexMemory.Initialized() {
		app.Device.FreeMemory(m.IndexMemory, nil)
		m.IndexMemory = core1_0.DeviceMemory{}
	}
	if m.VertexBuffer.Initialized() {
		app.Device.DestroyBuffer(m.VertexBuffer, nil)
		m.VertexBuffer = core1_0.Buffer{}
	}
	if m.VertexMemory.Initialized() {
		app.Device.FreeMemory(m.VertexMemory, nil)
		m.VertexMemory = core1_0.DeviceMemory{}
	}
}
