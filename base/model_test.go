package base

import (
	"strings"
	"testing"

	"github.com/g3n/engine/loader/obj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestVertexLayoutStride(t *testing.T) {
	layout := VertexLayout{Components: []VertexComponent{
		VertexComponentPosition,
		VertexComponentUV,
		VertexComponentColor,
		VertexComponentNormal,
	}}

	// 3 + 2 + 3 + 3 floats
	assert.Equal(t, 44, layout.Stride())

	bindings := layout.BindingDescriptions()
	require.Len(t, bindings, 1)
	assert.Equal(t, 0, bindings[0].Binding)
	assert.Equal(t, 44, bindings[0].Stride)
	assert.Equal(t, core1_0.VertexInputRateVertex, bindings[0].InputRate)
}

func TestVertexLayoutAttributes(t *testing.T) {
	layout := VertexLayout{Components: []VertexComponent{
		VertexComponentPosition,
		VertexComponentUV,
		VertexComponentNormal,
	}}

	attributes := layout.AttributeDescriptions()
	require.Len(t, attributes, 3)

	assert.Equal(t, 0, attributes[0].Location)
	assert.Equal(t, 0, attributes[0].Offset)
	assert.Equal(t, core1_0.FormatR32G32B32SignedFloat, attributes[0].Format)

	assert.Equal(t, 1, attributes[1].Location)
	assert.Equal(t, 12, attributes[1].Offset)
	assert.Equal(t, core1_0.FormatR32G32SignedFloat, attributes[1].Format)

	assert.Equal(t, 2, attributes[2].Location)
	assert.Equal(t, 20, attributes[2].Offset)
	assert.Equal(t, core1_0.FormatR32G32B32SignedFloat, attributes[2].Format)
}

const quadOBJ = `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestInterleaveMeshTriangulatesQuad(t *testing.T) {
	decoder, err := obj.DecodeReader(strings.NewReader(quadOBJ), nil)
	require.NoError(t, err)

	layout := VertexLayout{Components: []VertexComponent{VertexComponentPosition}}
	vertices, indices := interleaveMesh(decoder, layout, 1.0)

	// Four corners shared between two fan triangles.
	assert.Len(t, vertices, 4*3)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, indices)
}

func TestInterleaveMeshScalesPositions(t *testing.T) {
	decoder, err := obj.DecodeReader(strings.NewReader(quadOBJ), nil)
	require.NoError(t, err)

	layout := VertexLayout{Components: []VertexComponent{VertexComponentPosition}}
	vertices, _ := interleaveMesh(decoder, layout, 2.0)

	// Second corner is (1, 0, 0) in the file.
	assert.Equal(t, float32(2), vertices[3])
	assert.Equal(t, float32(0), vertices[4])
}

func TestInterleaveMeshFlipsV(t *testing.T) {
	decoder, err := obj.DecodeReader(strings.NewReader(quadOBJ), nil)
	require.NoError(t, err)

	layout := VertexLayout{Components: []VertexComponent{VertexComponentUV}}
	vertices, _ := interleaveMesh(decoder, layout, 1.0)

	// Corner three has uv (1, 1) in the file; v is flipped for Vulkan.
	assert.Equal(t, float32(1), vertices[4])
	assert.Equal(t, float32(0), vertices[5])
}

func TestInterleaveMeshInterleavesComponents(t *testing.T) {
	decoder, err := obj.DecodeReader(strings.NewReader(quadOBJ), nil)
	require.NoError(t, err)

	layout := VertexLayout{Components: []VertexComponent{
		VertexComponentPosition,
		VertexComponentUV,
		VertexComponentNormal,
	}}
	vertices, indices := interleaveMesh(decoder, layout, 1.0)

	floatsPerVertex := layout.Stride() / 4
	assert.Len(t, vertices, 4*floatsPerVertex)
	assert.Len(t, indices, 6)

	// First vertex: position (0,0,0), uv (0,1) after flip, normal (0,0,1).
	first := vertices[:floatsPerVertex]
	assert.Equal(t, []float32{0, 0, 0, 0, 1, 0, 0, 1}, first)
}

const coloredOBJ = `
mtllib quad.mtl
usemtl shiny
v 0 0 0
v 1 0 0
v 1 1 0
f 1 2 3
`

const coloredMTL = `
newmtl shiny
Kd 0.5 0.25 1.0
`

func TestInterleaveMeshMaterialColor(t *testing.T) {
	decoder, err := obj.DecodeReader(strings.NewReader(coloredOBJ), strings.NewReader(coloredMTL))
	require.NoError(t, err)

	layout := VertexLayout{Components: []VertexComponent{VertexComponentColor}}
	vertices, _ := interleaveMesh(decoder, layout, 1.0)

	require.Len(t, vertices, 3*3)
	assert.InDelta(t, 0.5, vertices[0], 1e-6)
	assert.InDelta(t, 0.25, vertices[1], 1e-6)
	assert.InDelta(t, 1.0, vertices[2], 1e-6)
}
