package base

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// PipelineConfig is the shared fixed-function state every technique
// pipeline starts from, with the handful of fields that actually vary
// between them. The zero value plus SetDefaults yields an opaque
// triangle-list pipeline with back-face culling, depth test and write on,
// and dynamic viewport and scissor.
type PipelineConfig struct {
	Layout     core1_0.PipelineLayout
	RenderPass core1_0.RenderPass
	Stages     []core1_0.PipelineShaderStageCreateInfo

	VertexInput *core1_0.PipelineVertexInputStateCreateInfo

	Topology  core1_0.PrimitiveTopology
	CullMode  core1_0.CullModeFlags
	FrontFace core1_0.FrontFace

	DepthTest       bool
	DepthWrite      bool
	DepthCompareOp  core1_0.CompareOp
	DepthBiasEnable bool

	// DepthOnly drops every color blend attachment, for passes with no
	// color output.
	DepthOnly bool

	BlendAttachment core1_0.PipelineColorBlendAttachmentState

	DynamicStates []core1_0.DynamicState
}

func NewPipelineConfig(layout core1_0.PipelineLayout, renderPass core1_0.RenderPass) PipelineConfig {
	return PipelineConfig{
		Layout:          layout,
		RenderPass:      renderPass,
		Topology:        core1_0.PrimitiveTopologyTriangleList,
		CullMode:        core1_0.CullModeBack,
		FrontFace:       core1_0.FrontFaceClockwise,
		DepthTest:       true,
		DepthWrite:      true,
		DepthCompareOp:  core1_0.CompareOpLessOrEqual,
		BlendAttachment: DisabledBlendAttachment(),
		DynamicStates: []core1_0.DynamicState{
			core1_0.DynamicStateViewport,
			core1_0.DynamicStateScissor,
		},
	}
}

func DisabledBlendAttachment() core1_0.PipelineColorBlendAttachmentState {
	return core1_0.PipelineColorBlendAttachmentState{
		BlendEnabled:   false,
		ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
	}
}

// AdditiveBlendAttachment is the blend state the blur composite passes use
// to add their result onto what is already in the framebuffer.
func AdditiveBlendAttachment() core1_0.PipelineColorBlendAttachmentState {
	return core1_0.PipelineColorBlendAttachmentState{
		BlendEnabled:        true,
		ColorBlendOp:        core1_0.BlendOpAdd,
		SrcColorBlendFactor: core1_0.BlendFactorOne,
		DstColorBlendFactor: core1_0.BlendFactorOne,
		AlphaBlendOp:        core1_0.BlendOpAdd,
		SrcAlphaBlendFactor: core1_0.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: core1_0.BlendFactorDstAlpha,
		ColorWriteMask:      core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
	}
}

// CreateInfo expands the config into the full pipeline description. Pure
// data, no device interaction.
func (c PipelineConfig) CreateInfo() core1_0.GraphicsPipelineCreateInfo {
	vertexInput := c.VertexInput
	if vertexInput == nil {
		vertexInput = &core1_0.PipelineVertexInputStateCreateInfo{}
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,
	}
	if !c.DepthOnly {
		colorBlend.Attachments = []core1_0.PipelineColorBlendAttachmentState{c.BlendAttachment}
	}

	return core1_0.GraphicsPipelineCreateInfo{
		Stages:           c.Stages,
		VertexInputState: vertexInput,
		InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
			Topology:               c.Topology,
			PrimitiveRestartEnable: false,
		},
		ViewportState: &core1_0.PipelineViewportStateCreateInfo{
			Viewports: []core1_0.Viewport{{}},
			Scissors:  []core1_0.Rect2D{{}},
		},
		RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
			DepthClampEnable:        false,
			RasterizerDiscardEnable: false,

			PolygonMode: core1_0.PolygonModeFill,
			CullMode:    c.CullMode,
			FrontFace:   c.FrontFace,

			DepthBiasEnable: c.DepthBiasEnable,

			LineWidth: 1.0,
		},
		MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
			SampleShadingEnable:  false,
			RasterizationSamples: core1_0.Samples1,
			MinSampleShading:     1.0,
		},
		DepthStencilState: &core1_0.PipelineDepthStencilStateCreateInfo{
			DepthTestEnable:  c.DepthTest,
			DepthWriteEnable: c.DepthWrite,
			DepthCompareOp:   c.DepthCompareOp,
		},
		ColorBlendState: colorBlend,
		DynamicState: &core1_0.PipelineDynamicStateCreateInfo{
			DynamicStates: c.DynamicStates,
		},
		Layout:            c.Layout,
		RenderPass:        c.RenderPass,
		Subpass:           0,
		BasePipelineIndex: -1,
	}
}

// Build creates the pipeline through the app's pipeline cache.
func (app *App) BuildPipeline(config PipelineConfig) (core1_0.Pipeline, error) {
	pipelines, _, err := app.Device.CreateGraphicsPipelines(app.PipelineCache, nil, config.CreateInfo())
	if err != nil {
		return core1_0.Pipeline{}, err
	}
	return pipelines[0], nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}

// LoadShader reads a compiled SPIR-V module from the asset directory and
// wraps it as a pipeline stage. Specialization maps constant IDs to values
// and may be nil.
func (app *App) LoadShader(name string, stage core1_0.ShaderStageFlags, specialization map[int]any) (core1_0.PipelineShaderStageCreateInfo, error) {
	path := filepath.Join(app.Settings.AssetPath, "shaders", name)
	shaderBytes, err := os.ReadFile(path)
	if err != nil {
		return core1_0.PipelineShaderStageCreateInfo{}, errors.Wrapf(err, "load shader %s", path)
	}
	if len(shaderBytes)%4 != 0 {
		return core1_0.PipelineShaderStageCreateInfo{}, errors.Newf("shader %s is not valid SPIR-V: %d bytes", path, len(shaderBytes))
	}

	module, _, err := app.Device.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: bytesToBytecode(shaderBytes),
	})
	if err != nil {
		return core1_0.PipelineShaderStageCreateInfo{}, err
	}

	app.shaderModules = append(app.shaderModules, module)

	return core1_0.PipelineShaderStageCreateInfo{
		Stage:              stage,
		Module:             module,
		Name:               "main",
		SpecializationInfo: specialization,
	}, nil
}

// DestroyShaderModules releases every module loaded through LoadShader.
// Safe to call once all pipelines are built.
func (app *App) DestroyShaderModules() {
	for _, module := range app.shaderModules {
		app.Device.DestroyShaderModule(module, nil)
	}
	app.shaderModules = nil
}
