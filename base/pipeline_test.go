package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestPipelineConfigDefaults(t *testing.T) {
	config := NewPipelineConfig(core1_0.PipelineLayout{}, core1_0.RenderPass{})
	info := config.CreateInfo()

	assert.Equal(t, core1_0.PrimitiveTopologyTriangleList, info.InputAssemblyState.Topology)
	assert.Equal(t, core1_0.CullModeBack, info.RasterizationState.CullMode)
	assert.Equal(t, core1_0.FrontFaceClockwise, info.RasterizationState.FrontFace)
	assert.False(t, info.RasterizationState.DepthBiasEnable)

	assert.True(t, info.DepthStencilState.DepthTestEnable)
	assert.True(t, info.DepthStencilState.DepthWriteEnable)
	assert.Equal(t, core1_0.CompareOpLessOrEqual, info.DepthStencilState.DepthCompareOp)

	require.Len(t, info.ColorBlendState.Attachments, 1)
	assert.False(t, info.ColorBlendState.Attachments[0].BlendEnabled)

	assert.Equal(t, []core1_0.DynamicState{
		core1_0.DynamicStateViewport,
		core1_0.DynamicStateScissor,
	}, info.DynamicState.DynamicStates)

	// No vertex input declared means an empty input state, not a nil one.
	require.NotNil(t, info.VertexInputState)
	assert.Empty(t, info.VertexInputState.VertexBindingDescriptions)
}

func TestPipelineConfigVariants(t *testing.T) {
	config := NewPipelineConfig(core1_0.PipelineLayout{}, core1_0.RenderPass{})
	config.CullMode = core1_0.CullModeFront
	config.DepthWrite = false
	config.BlendAttachment = AdditiveBlendAttachment()
	info := config.CreateInfo()

	assert.Equal(t, core1_0.CullModeFront, info.RasterizationState.CullMode)
	assert.True(t, info.DepthStencilState.DepthTestEnable)
	assert.False(t, info.DepthStencilState.DepthWriteEnable)

	require.Len(t, info.ColorBlendState.Attachments, 1)
	blend := info.ColorBlendState.Attachments[0]
	assert.True(t, blend.BlendEnabled)
	assert.Equal(t, core1_0.BlendFactorOne, blend.SrcColorBlendFactor)
	assert.Equal(t, core1_0.BlendFactorOne, blend.DstColorBlendFactor)
	assert.Equal(t, core1_0.BlendOpAdd, blend.ColorBlendOp)
}

func TestPipelineConfigDepthOnly(t *testing.T) {
	config := NewPipelineConfig(core1_0.PipelineLayout{}, core1_0.RenderPass{})
	config.DepthOnly = true
	config.DepthBiasEnable = true
	config.DynamicStates = append(config.DynamicStates, core1_0.DynamicStateDepthBias)
	info := config.CreateInfo()

	assert.Empty(t, info.ColorBlendState.Attachments)
	assert.True(t, info.RasterizationState.DepthBiasEnable)
	assert.Contains(t, info.DynamicState.DynamicStates, core1_0.DynamicStateDepthBias)
}

func TestBytesToBytecode(t *testing.T) {
	code := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00})
	require.Len(t, code, 2)
	assert.Equal(t, uint32(0x07230203), code[0])
	assert.Equal(t, uint32(0x00010000), code[1])
}
