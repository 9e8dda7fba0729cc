package main

import (
	"math"
	"os"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/jherico/vkexamples/base"
)

// Offscreen rendering split across two command buffers on one queue: the
// shadow map depth pass lives in its own buffer, recorded once with
// simultaneous use and resubmitted ahead of the scene buffer every frame.
// Submission order plus the depth pass's external subpass dependencies
// make the shadow map visible to the scene pass without host-side
// synchronization.

const shadowMapDim = 2048

const shadowMapFormat = core1_0.FormatD16UnsignedNormalized

const (
	depthBiasConstant = 1.25
	depthBiasSlope    = 1.75
)

const (
	lightFOV = 45.0
	zNear    = 1.0
	zFar     = 96.0
)

type offscreenUBO struct {
	DepthMVP mgl32.Mat4
}

type sceneUBO struct {
	Projection   mgl32.Mat4
	View         mgl32.Mat4
	Model        mgl32.Mat4
	DepthBiasMVP mgl32.Mat4
	LightPos     mgl32.Vec4
}

type OffscreenExample struct {
	*base.App

	vertexLayout base.VertexLayout
	scene        *base.Model

	shadowPass   *base.OffscreenPass
	offscreenCmd core1_0.CommandBuffer

	offscreenUniform *base.UniformBuffer
	sceneUniform     *base.UniformBuffer

	descriptorLayout core1_0.DescriptorSetLayout
	pipelineLayout   core1_0.PipelineLayout
	descriptorPool   core1_0.DescriptorPool
	offscreenSet     core1_0.DescriptorSet
	sceneSet         core1_0.DescriptorSet
	debugSet         core1_0.DescriptorSet

	debugPipeline     core1_0.Pipeline
	offscreenPipeline core1_0.Pipeline
	scenePipeline     core1_0.Pipeline

	lightPos         mgl32.Vec4
	animateLight     bool
	lightPOV         bool
	displayShadowMap bool
}

func (e *OffscreenExample) prepare() error {
	e.vertexLayout = base.VertexLayout{Components: []base.VertexComponent{
		base.VertexComponentPosition,
		base.VertexComponentUV,
		base.VertexComponentColor,
		base.VertexComponentNormal,
	}}

	e.Camera.Type = base.CameraLookAt
	e.Camera.SetPosition(mgl32.Vec3{0, 0, -20})
	e.Camera.SetRotation(mgl32.Vec3{-15, -390, 0})
	e.Camera.SetPerspective(45, float32(e.SwapchainExtent.Width)/float32(e.SwapchainExtent.Height), zNear, zFar)

	e.updateLight()

	steps := []func() error{
		e.loadAssets,
		e.prepareShadowPass,
		e.prepareUniformBuffers,
		e.setupDescriptors,
		e.preparePipelines,
		e.buildOffscreenCommandBuffer,
	}
	for _, step := range steps {
		err := step()
		if err != nil {
			return err
		}
	}

	e.setupOverlay()
	e.SetBuildFunc(e.buildCommandBuffer)
	e.OnUpdate = e.updateUniformBuffers

	return nil
}

func (e *OffscreenExample) loadAssets() error {
	var err error
	e.scene, err = e.LoadModel("vulkanscene_shadow.obj", e.vertexLayout, 1.0)
	return err
}

func (e *OffscreenExample) prepareShadowPass() error {
	var err error
	e.shadowPass, err = e.NewDepthPass(shadowMapDim, shadowMapDim, shadowMapFormat)
	return err
}

func (e *OffscreenExample) prepareUniformBuffers() error {
	var err error
	e.offscreenUniform, err = e.CreateUniformBuffer(offscreenUBO{})
	if err != nil {
		return err
	}
	e.sceneUniform, err = e.CreateUniformBuffer(sceneUBO{})
	return err
}

func (e *OffscreenExample) setupDescriptors() error {
	var err error

	e.descriptorLayout, _, err = e.Device.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageVertex,
			},
			{
				Binding:         1,
				DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageFragment,
			},
		},
	})
	if err != nil {
		return err
	}

	e.pipelineLayout, _, err = e.Device.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{e.descriptorLayout},
	})
	if err != nil {
		return err
	}

	e.descriptorPool, _, err = e.Device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: 3,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{Type: core1_0.DescriptorTypeUniformBuffer, DescriptorCount: 3},
			{Type: core1_0.DescriptorTypeCombinedImageSampler, DescriptorCount: 3},
		},
	})
	if err != nil {
		return err
	}

	sets, _, err := e.Device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: e.descriptorPool,
		SetLayouts: []core1_0.DescriptorSetLayout{
			e.descriptorLayout, e.descriptorLayout, e.descriptorLayout,
		},
	})
	if err != nil {
		return err
	}
	e.offscreenSet, e.sceneSet, e.debugSet = sets[0], sets[1], sets[2]

	shadowMap := e.shadowPass.DepthDescriptor(0)

	return e.Device.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:         e.offscreenSet,
			DstBinding:     0,
			DescriptorType: core1_0.DescriptorTypeUniformBuffer,
			BufferInfo:     []core1_0.DescriptorBufferInfo{e.offscreenUniform.DescriptorInfo()},
		},
		{
			DstSet:         e.sceneSet,
			DstBinding:     0,
			DescriptorType: core1_0.DescriptorTypeUniformBuffer,
			BufferInfo:     []core1_0.DescriptorBufferInfo{e.sceneUniform.DescriptorInfo()},
		},
		{
			DstSet:         e.sceneSet,
			DstBinding:     1,
			DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,
			ImageInfo:      []core1_0.DescriptorImageInfo{shadowMap},
		},
		{
			DstSet:         e.debugSet,
			DstBinding:     0,
			DescriptorType: core1_0.DescriptorTypeUniformBuffer,
			BufferInfo:     []core1_0.DescriptorBufferInfo{e.sceneUniform.DescriptorInfo()},
		},
		{
			DstSet:         e.debugSet,
			DstBinding:     1,
			DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,
			ImageInfo:      []core1_0.DescriptorImageInfo{shadowMap},
		},
	}, nil)
}

func (e *OffscreenExample) preparePipelines() error {
	debugVert, err := e.LoadShader("offscreen/quad.vert.spv", core1_0.StageVertex, nil)
	if err != nil {
		return err
	}
	debugFrag, err := e.LoadShader("offscreen/quad.frag.spv", core1_0.StageFragment, nil)
	if err != nil {
		return err
	}
	offscreenVert, err := e.LoadShader("offscreen/offscreen.vert.spv", core1_0.StageVertex, nil)
	if err != nil {
		return err
	}
	sceneVert, err := e.LoadShader("offscreen/scene.vert.spv", core1_0.StageVertex, nil)
	if err != nil {
		return err
	}
	sceneFrag, err := e.LoadShader("offscreen/scene.frag.spv", core1_0.StageFragment, nil)
	if err != nil {
		return err
	}
	defer e.DestroyShaderModules()

	debugConfig := base.NewPipelineConfig(e.pipelineLayout, e.RenderPass)
	debugConfig.Stages = []core1_0.PipelineShaderStageCreateInfo{debugVert, debugFrag}
	debugConfig.CullMode = core1_0.CullModeNone
	e.debugPipeline, err = e.BuildPipeline(debugConfig)
	if err != nil {
		return err
	}

	offscreenConfig := base.NewPipelineConfig(e.pipelineLayout, e.shadowPass.RenderPass)
	offscreenConfig.Stages = []core1_0.PipelineShaderStageCreateInfo{offscreenVert}
	offscreenConfig.VertexInput = e.vertexLayout.InputState()
	offscreenConfig.CullMode = core1_0.CullModeNone
	offscreenConfig.DepthOnly = true
	offscreenConfig.DepthBiasEnable = true
	offscreenConfig.DynamicStates = append(offscreenConfig.DynamicStates, core1_0.DynamicStateDepthBias)
	e.offscreenPipeline, err = e.BuildPipeline(offscreenConfig)
	if err != nil {
		return err
	}

	sceneConfig := base.NewPipelineConfig(e.pipelineLayout, e.RenderPass)
	sceneConfig.Stages = []core1_0.PipelineShaderStageCreateInfo{sceneVert, sceneFrag}
	sceneConfig.VertexInput = e.vertexLayout.InputState()
	e.scenePipeline, err = e.BuildPipeline(sceneConfig)
	return err
}

// The depth pass never changes, so it is recorded once into its own
// buffer and resubmitted every frame ahead of the scene buffer.
func (e *OffscreenExample) buildOffscreenCommandBuffer() error {
	buffers, _, err := e.Device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        e.CommandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return err
	}
	e.offscreenCmd = buffers[0]

	_, err = e.Device.BeginCommandBuffer(e.offscreenCmd, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageSimultaneousUse,
	})
	if err != nil {
		return err
	}

	err = e.Device.CmdBeginRenderPass(e.offscreenCmd, core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
		RenderPass:  e.shadowPass.RenderPass,
		Framebuffer: e.shadowPass.Framebuffers[0].Framebuffer,
		RenderArea: core1_0.Rect2D{
			Extent: core1_0.Extent2D{Width: e.shadowPass.Width, Height: e.shadowPass.Height},
		},
		ClearValues: []core1_0.ClearValue{
			core1_0.ClearValueDepthStencil{Depth: 1.0},
		},
	})
	if err != nil {
		return err
	}

	e.SetViewportScissor(e.offscreenCmd, e.shadowPass.Width, e.shadowPass.Height)
	e.Device.CmdSetDepthBias(e.offscreenCmd, depthBiasConstant, 0, depthBiasSlope)

	e.Device.CmdBindPipeline(e.offscreenCmd, core1_0.PipelineBindPointGraphics, e.offscreenPipeline)
	e.Device.CmdBindDescriptorSets(e.offscreenCmd, core1_0.PipelineBindPointGraphics, e.pipelineLayout, 0, []core1_0.DescriptorSet{e.offscreenSet}, nil)
	e.scene.Draw(e.App, e.offscreenCmd)
	e.Device.CmdEndRenderPass(e.offscreenCmd)

	_, err = e.Device.EndCommandBuffer(e.offscreenCmd)
	if err != nil {
		return err
	}

	e.PreSubmit = []core1_0.CommandBuffer{e.offscreenCmd}
	return nil
}

func (e *OffscreenExample) setupOverlay() {
	e.Overlay.Header("Settings")
	e.Overlay.Checkbox("Animate light", &e.animateLight)
	e.Overlay.Checkbox("Light point of view", &e.lightPOV)
	e.Overlay.Checkbox("Display shadow render target", &e.displayShadowMap)
}

// buildCommandBuffer records only the scene pass. The shadow map is
// produced by the dedicated offscreen buffer submitted before this one.
func (e *OffscreenExample) buildCommandBuffer(cmd core1_0.CommandBuffer, imageIndex int) error {
	err := e.Device.CmdBeginRenderPass(cmd, core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
		RenderPass:  e.RenderPass,
		Framebuffer: e.Framebuffers[imageIndex],
		RenderArea: core1_0.Rect2D{
			Extent: e.SwapchainExtent,
		},
		ClearValues: []core1_0.ClearValue{
			core1_0.ClearValueFloat{0, 0, 0.2, 1},
			core1_0.ClearValueDepthStencil{Depth: 1.0},
		},
	})
	if err != nil {
		return err
	}

	e.SetViewportScissor(cmd, e.SwapchainExtent.Width, e.SwapchainExtent.Height)

	if e.displayShadowMap {
		e.Device.CmdBindPipeline(cmd, core1_0.PipelineBindPointGraphics, e.debugPipeline)
		e.Device.CmdBindDescriptorSets(cmd, core1_0.PipelineBindPointGraphics, e.pipelineLayout, 0, []core1_0.DescriptorSet{e.debugSet}, nil)
		e.Device.CmdDraw(cmd, 3, 1, 0, 0)
	}

	e.Device.CmdBindPipeline(cmd, core1_0.PipelineBindPointGraphics, e.scenePipeline)
	e.Device.CmdBindDescriptorSets(cmd, core1_0.PipelineBindPointGraphics, e.pipelineLayout, 0, []core1_0.DescriptorSet{e.sceneSet}, nil)
	e.scene.Draw(e.App, cmd)

	if e.Overlay.Draw != nil {
		e.Overlay.Draw(cmd)
	}

	e.Device.CmdEndRenderPass(cmd)
	return nil
}

func (e *OffscreenExample) updateLight() {
	angle := mgl32.DegToRad(float32(e.Timer * 360))
	e.lightPos = mgl32.Vec4{
		cos32(angle) * 40,
		-50 + sin32(angle)*20,
		25 + sin32(angle)*5,
		1,
	}
}

func (e *OffscreenExample) updateUniformBuffers() error {
	if e.Overlay.Changed() {
		e.Recorder.Invalidate()
	}

	if e.animateLight {
		e.updateLight()
	}

	lightProjection := base.VulkanPerspective(mgl32.DegToRad(lightFOV), 1, zNear, zFar)
	lightView := mgl32.LookAtV(e.lightPos.Vec3(), mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	depthMVP := lightProjection.Mul4(lightView)

	err := e.offscreenUniform.Write(e.App, &offscreenUBO{DepthMVP: depthMVP})
	if err != nil {
		return err
	}

	scene := sceneUBO{
		Projection:   e.Camera.Perspective,
		View:         e.Camera.View,
		Model:        mgl32.Ident4(),
		DepthBiasMVP: depthMVP,
		LightPos:     e.lightPos,
	}
	if e.lightPOV {
		scene.Projection = lightProjection
		scene.View = lightView
	}
	return e.sceneUniform.Write(e.App, &scene)
}

func (e *OffscreenExample) destroy() {
	e.Device.DestroyPipeline(e.scenePipeline, nil)
	e.Device.DestroyPipeline(e.offscreenPipeline, nil)
	e.Device.DestroyPipeline(e.debugPipeline, nil)

	e.Device.DestroyDescriptorPool(e.descriptorPool, nil)
	e.Device.DestroyPipelineLayout(e.pipelineLayout, nil)
	e.Device.DestroyDescriptorSetLayout(e.descriptorLayout, nil)

	e.sceneUniform.Destroy(e.App)
	e.offscreenUniform.Destroy(e.App)

	e.Device.FreeCommandBuffers(e.offscreenCmd)
	e.shadowPass.Destroy(e.App)
	e.scene.Destroy(e.App)

	e.App.Destroy()
}

func sin32(v float32) float32 { return float32(math.Sin(float64(v))) }
func cos32(v float32) float32 { return float32(math.Cos(float64(v))) }

func main() {
	runtime.LockOSThread()

	settings, err := base.ParseCommandLine(os.Args[1:])
	if err != nil {
		base.LogFatal("invalid command line", "error", err)
	}

	example := &OffscreenExample{
		App:          base.NewApp("offscreen", settings),
		animateLight: true,
	}

	err = example.App.Prepare()
	if err != nil {
		base.LogFatal("setup failed", "error", err)
	}

	err = example.prepare()
	if err != nil {
		base.LogFatal("setup failed", "error", err)
	}
	defer example.destroy()

	err = example.RenderLoop()
	if err != nil {
		base.LogFatal("render loop failed", "error", err)
	}
}
