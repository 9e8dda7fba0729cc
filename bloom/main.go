package main

import (
	"math"
	"os"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
	"golang.org/x/sync/errgroup"

	"github.com/jherico/vkexamples/base"
)

// Bloom: the emissive parts of the scene are rendered into a low
// resolution offscreen framebuffer, blurred in two separable passes
// (vertical into a second offscreen framebuffer, horizontal while
// compositing additively into the scene), and added on top of the normally
// rendered scene.

const offscreenDim = 256

const offscreenColorFormat = core1_0.FormatR8G8B8A8UnsignedNormalized

type sceneUBO struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
	Model      mgl32.Mat4
}

type blurParamsUBO struct {
	BlurScale    float32
	BlurStrength float32
}

type BloomExample struct {
	*base.App

	vertexLayout base.VertexLayout

	ufoModel     *base.Model
	ufoGlowModel *base.Model
	skyBoxModel  *base.Model
	cubeMap      *base.Texture

	offscreenPass *base.OffscreenPass

	sceneUniform  *base.UniformBuffer
	skyBoxUniform *base.UniformBuffer
	blurUniform   *base.UniformBuffer

	sceneLayout      core1_0.DescriptorSetLayout
	blurLayout       core1_0.DescriptorSetLayout
	scenePipeLayout  core1_0.PipelineLayout
	blurPipeLayout   core1_0.PipelineLayout
	descriptorPool   core1_0.DescriptorPool
	sceneSet         core1_0.DescriptorSet
	skyBoxSet        core1_0.DescriptorSet
	blurVerticalSet  core1_0.DescriptorSet
	blurCompositeSet core1_0.DescriptorSet

	glowPipeline     core1_0.Pipeline
	blurVertPipeline core1_0.Pipeline
	blurHorzPipeline core1_0.Pipeline
	phongPipeline    core1_0.Pipeline
	skyBoxPipeline   core1_0.Pipeline

	bloomEnabled bool
	blurScale    float32
}

func (e *BloomExample) prepare() error {
	e.vertexLayout = base.VertexLayout{Components: []base.VertexComponent{
		base.VertexComponentPosition,
		base.VertexComponentUV,
		base.VertexComponentColor,
		base.VertexComponentNormal,
	}}

	e.Camera.Type = base.CameraLookAt
	e.Camera.SetPosition(mgl32.Vec3{0, 0, -10.25})
	e.Camera.SetRotation(mgl32.Vec3{7.5, -343, 0})
	e.Camera.SetPerspective(45, float32(e.SwapchainExtent.Width)/float32(e.SwapchainExtent.Height), 0.1, 256)

	steps := []func() error{
		e.loadAssets,
		e.prepareOffscreen,
		e.prepareUniformBuffers,
		e.setupDescriptors,
		e.preparePipelines,
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

func (e *BloomExample) loadAssets() error {
	var group errgroup.Group
	group.Go(func() error {
		var err error
		e.ufoModel, err = e.LoadModel("retroufo.obj", e.vertexLayout, 0.05)
		return err
	})
	group.Go(func() error {
		var err error
		e.ufoGlowModel, err = e.LoadModel("retroufo_glow.obj", e.vertexLayout, 0.05)
		return err
	})
	group.Go(func() error {
		var err error
		e.skyBoxModel, err = e.LoadModel("cube.obj", e.vertexLayout, 1.0)
		return err
	})
	err := group.Wait()
	if err != nil {
		return err
	}

	e.cubeMap, err = e.LoadCubeMap("cubemap_space")
	return err
}

func (e *BloomExample) prepareOffscreen() error {
	var err error
	e.offscreenPass, err = e.NewColorPass(offscreenDim, offscreenDim, offscreenColorFormat, 2)
	return err
}

func (e *BloomExample) prepareUniformBuffers() error {
	var err error
	e.sceneUniform, err = e.CreateUniformBuffer(sceneUBO{})
	if err != nil {
		return err
	}
	e.skyBoxUniform, err = e.CreateUniformBuffer(sceneUBO{})
	if err != nil {
		return err
	}
	e.blurUniform, err = e.CreateUniformBuffer(blurParamsUBO{})
	if err != nil {
		return err
	}

	return e.updateBlurParams()
}

func (e *BloomExample) setupDescriptors() error {
	var err error

	// Scene rendering: matrices in the vertex stage, the environment cube
	// map in the fragment stage.
	e.sceneLayout, _, err = e.Device.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
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

	// Blur: parameters and the previous pass's color attachment, both in
	// the fragment stage.
	e.blurLayout, _, err = e.Device.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageFragment,
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

	e.scenePipeLayout, _, err = e.Device.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{e.sceneLayout},
	})
	if err != nil {
		return err
	}

	e.blurPipeLayout, _, err = e.Device.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{e.blurLayout},
	})
	if err != nil {
		return err
	}

	e.descriptorPool, _, err = e.Device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: 4,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{Type: core1_0.DescriptorTypeUniformBuffer, DescriptorCount: 4},
			{Type: core1_0.DescriptorTypeCombinedImageSampler, DescriptorCount: 4},
		},
	})
	if err != nil {
		return err
	}

	sets, _, err := e.Device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: e.descriptorPool,
		SetLayouts: []core1_0.DescriptorSetLayout{
			e.sceneLayout, e.sceneLayout, e.blurLayout, e.blurLayout,
		},
	})
	if err != nil {
		return err
	}
	e.sceneSet, e.skyBoxSet, e.blurVerticalSet, e.blurCompositeSet = sets[0], sets[1], sets[2], sets[3]

	return e.Device.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
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
			ImageInfo:      []core1_0.DescriptorImageInfo{e.cubeMap.DescriptorInfo()},
		},
		{
			DstSet:         e.skyBoxSet,
			DstBinding:     0,
			DescriptorType: core1_0.DescriptorTypeUniformBuffer,
			BufferInfo:     []core1_0.DescriptorBufferInfo{e.skyBoxUniform.DescriptorInfo()},
		},
		{
			DstSet:         e.skyBoxSet,
			DstBinding:     1,
			DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,
			ImageInfo:      []core1_0.DescriptorImageInfo{e.cubeMap.DescriptorInfo()},
		},
		{
			DstSet:         e.blurVerticalSet,
			DstBinding:     0,
			DescriptorType: core1_0.DescriptorTypeUniformBuffer,
			BufferInfo:     []core1_0.DescriptorBufferInfo{e.blurUniform.DescriptorInfo()},
		},
		{
			DstSet:         e.blurVerticalSet,
			DstBinding:     1,
			DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,
			ImageInfo:      []core1_0.DescriptorImageInfo{e.offscreenPass.ColorDescriptor(0)},
		},
		{
			DstSet:         e.blurCompositeSet,
			DstBinding:     0,
			DescriptorType: core1_0.DescriptorTypeUniformBuffer,
			BufferInfo:     []core1_0.DescriptorBufferInfo{e.blurUniform.DescriptorInfo()},
		},
		{
			DstSet:         e.blurCompositeSet,
			DstBinding:     1,
			DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,
			ImageInfo:      []core1_0.DescriptorImageInfo{e.offscreenPass.ColorDescriptor(1)},
		},
	}, nil)
}

func (e *BloomExample) preparePipelines() error {
	blurVert, err := e.LoadShader("bloom/gaussblur.vert.spv", core1_0.StageVertex, nil)
	if err != nil {
		return err
	}
	// Constant 0 selects the blur direction: 0 vertical, 1 horizontal.
	blurFragVertical, err := e.LoadShader("bloom/gaussblur.frag.spv", core1_0.StageFragment, map[int]any{0: uint32(0)})
	if err != nil {
		return err
	}
	blurFragHorizontal, err := e.LoadShader("bloom/gaussblur.frag.spv", core1_0.StageFragment, map[int]any{0: uint32(1)})
	if err != nil {
		return err
	}
	glowVert, err := e.LoadShader("bloom/colorpass.vert.spv", core1_0.StageVertex, nil)
	if err != nil {
		return err
	}
	glowFrag, err := e.LoadShader("bloom/colorpass.frag.spv", core1_0.StageFragment, nil)
	if err != nil {
		return err
	}
	phongVert, err := e.LoadShader("bloom/phongpass.vert.spv", core1_0.StageVertex, nil)
	if err != nil {
		return err
	}
	phongFrag, err := e.LoadShader("bloom/phongpass.frag.spv", core1_0.StageFragment, nil)
	if err != nil {
		return err
	}
	skyBoxVert, err := e.LoadShader("bloom/skybox.vert.spv", core1_0.StageVertex, nil)
	if err != nil {
		return err
	}
	skyBoxFrag, err := e.LoadShader("bloom/skybox.frag.spv", core1_0.StageFragment, nil)
	if err != nil {
		return err
	}
	defer e.DestroyShaderModules()

	// Vertical blur: fullscreen triangle into the second offscreen
	// framebuffer, blending the glow additively over the cleared target.
	blurVertConfig := base.NewPipelineConfig(e.blurPipeLayout, e.offscreenPass.RenderPass)
	blurVertConfig.Stages = []core1_0.PipelineShaderStageCreateInfo{blurVert, blurFragVertical}
	blurVertConfig.CullMode = core1_0.CullModeFront
	blurVertConfig.BlendAttachment = base.AdditiveBlendAttachment()
	e.blurVertPipeline, err = e.BuildPipeline(blurVertConfig)
	if err != nil {
		return err
	}

	// Horizontal blur: same shader, opposite direction, composites into
	// the main pass.
	blurHorzConfig := blurVertConfig
	blurHorzConfig.RenderPass = e.RenderPass
	blurHorzConfig.Stages = []core1_0.PipelineShaderStageCreateInfo{blurVert, blurFragHorizontal}
	e.blurHorzPipeline, err = e.BuildPipeline(blurHorzConfig)
	if err != nil {
		return err
	}

	glowConfig := base.NewPipelineConfig(e.scenePipeLayout, e.offscreenPass.RenderPass)
	glowConfig.Stages = []core1_0.PipelineShaderStageCreateInfo{glowVert, glowFrag}
	glowConfig.VertexInput = e.vertexLayout.InputState()
	e.glowPipeline, err = e.BuildPipeline(glowConfig)
	if err != nil {
		return err
	}

	phongConfig := base.NewPipelineConfig(e.scenePipeLayout, e.RenderPass)
	phongConfig.Stages = []core1_0.PipelineShaderStageCreateInfo{phongVert, phongFrag}
	phongConfig.VertexInput = e.vertexLayout.InputState()
	e.phongPipeline, err = e.BuildPipeline(phongConfig)
	if err != nil {
		return err
	}

	// The skybox is watertight geometry seen from inside, so front faces
	// are culled and it never writes depth.
	skyBoxConfig := base.NewPipelineConfig(e.scenePipeLayout, e.RenderPass)
	skyBoxConfig.Stages = []core1_0.PipelineShaderStageCreateInfo{skyBoxVert, skyBoxFrag}
	skyBoxConfig.VertexInput = e.vertexLayout.InputState()
	skyBoxConfig.CullMode = core1_0.CullModeFront
	skyBoxConfig.DepthWrite = false
	e.skyBoxPipeline, err = e.BuildPipeline(skyBoxConfig)
	return err
}

func (e *BloomExample) setupOverlay() {
	e.Overlay.Header("Settings")
	e.Overlay.Checkbox("Bloom", &e.bloomEnabled)
	e.Overlay.SliderFloat("Scale", &e.blurScale, 0.1, 2.0)
}

func (e *BloomExample) buildCommandBuffer(cmd core1_0.CommandBuffer, imageIndex int) error {
	if e.bloomEnabled {
		// First pass: render the glowing parts of the scene into
		// offscreen framebuffer 0.
		err := e.Device.CmdBeginRenderPass(cmd, core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
			RenderPass:  e.offscreenPass.RenderPass,
			Framebuffer: e.offscreenPass.Framebuffers[0].Framebuffer,
			RenderArea: core1_0.Rect2D{
				Extent: core1_0.Extent2D{Width: e.offscreenPass.Width, Height: e.offscreenPass.Height},
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{0, 0, 0, 1},
				core1_0.ClearValueDepthStencil{Depth: 1.0},
			},
		})
		if err != nil {
			return err
		}

		e.SetViewportScissor(cmd, e.offscreenPass.Width, e.offscreenPass.Height)
		e.Device.CmdBindPipeline(cmd, core1_0.PipelineBindPointGraphics, e.glowPipeline)
		e.Device.CmdBindDescriptorSets(cmd, core1_0.PipelineBindPointGraphics, e.scenePipeLayout, 0, []core1_0.DescriptorSet{e.sceneSet}, nil)
		e.ufoGlowModel.Draw(e.App, cmd)
		e.Device.CmdEndRenderPass(cmd)

		// Second pass: vertical blur of framebuffer 0 into framebuffer 1.
		// The subpass dependencies of the shared render pass order the
		// attachment write against this sampling read.
		err = e.Device.CmdBeginRenderPass(cmd, core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
			RenderPass:  e.offscreenPass.RenderPass,
			Framebuffer: e.offscreenPass.Framebuffers[1].Framebuffer,
			RenderArea: core1_0.Rect2D{
				Extent: core1_0.Extent2D{Width: e.offscreenPass.Width, Height: e.offscreenPass.Height},
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{0, 0, 0, 1},
				core1_0.ClearValueDepthStencil{Depth: 1.0},
			},
		})
		if err != nil {
			return err
		}

		e.SetViewportScissor(cmd, e.offscreenPass.Width, e.offscreenPass.Height)
		e.Device.CmdBindPipeline(cmd, core1_0.PipelineBindPointGraphics, e.blurVertPipeline)
		e.Device.CmdBindDescriptorSets(cmd, core1_0.PipelineBindPointGraphics, e.blurPipeLayout, 0, []core1_0.DescriptorSet{e.blurVerticalSet}, nil)
		e.Device.CmdDraw(cmd, 3, 1, 0, 0)
		e.Device.CmdEndRenderPass(cmd)
	}

	// Final pass: scene plus, when enabled, the horizontally blurred glow
	// composited additively.
	err := e.Device.CmdBeginRenderPass(cmd, core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
		RenderPass:  e.RenderPass,
		Framebuffer: e.Framebuffers[imageIndex],
		RenderArea: core1_0.Rect2D{
			Extent: e.SwapchainExtent,
		},
		ClearValues: []core1_0.ClearValue{
			core1_0.ClearValueFloat{0, 0, 0, 1},
			core1_0.ClearValueDepthStencil{Depth: 1.0},
		},
	})
	if err != nil {
		return err
	}

	e.SetViewportScissor(cmd, e.SwapchainExtent.Width, e.SwapchainExtent.Height)

	e.Device.CmdBindPipeline(cmd, core1_0.PipelineBindPointGraphics, e.skyBoxPipeline)
	e.Device.CmdBindDescriptorSets(cmd, core1_0.PipelineBindPointGraphics, e.scenePipeLayout, 0, []core1_0.DescriptorSet{e.skyBoxSet}, nil)
	e.skyBoxModel.Draw(e.App, cmd)

	e.Device.CmdBindPipeline(cmd, core1_0.PipelineBindPointGraphics, e.phongPipeline)
	e.Device.CmdBindDescriptorSets(cmd, core1_0.PipelineBindPointGraphics, e.scenePipeLayout, 0, []core1_0.DescriptorSet{e.sceneSet}, nil)
	e.ufoModel.Draw(e.App, cmd)

	if e.bloomEnabled {
		e.Device.CmdBindPipeline(cmd, core1_0.PipelineBindPointGraphics, e.blurHorzPipeline)
		e.Device.CmdBindDescriptorSets(cmd, core1_0.PipelineBindPointGraphics, e.blurPipeLayout, 0, []core1_0.DescriptorSet{e.blurCompositeSet}, nil)
		e.Device.CmdDraw(cmd, 3, 1, 0, 0)
	}

	if e.Overlay.Draw != nil {
		e.Overlay.Draw(cmd)
	}

	e.Device.CmdEndRenderPass(cmd)
	return nil
}

func (e *BloomExample) updateUniformBuffers() error {
	if e.Overlay.Changed() {
		e.Recorder.Invalidate()
		err := e.updateBlurParams()
		if err != nil {
			return err
		}
	}

	// The UFO bobs along a circular path while the camera orbits it.
	angle := e.Timer * 2 * math.Pi
	model := mgl32.Translate3D(
		float32(math.Sin(angle)*0.25)-1,
		float32(math.Sin(angle))*0.25-2,
		float32(math.Cos(angle)*0.25),
	).Mul4(mgl32.HomogRotate3DY(-float32(angle)))

	scene := sceneUBO{
		Projection: e.Camera.Perspective,
		View:       e.Camera.View,
		Model:      model,
	}
	err := e.sceneUniform.Write(e.App, &scene)
	if err != nil {
		return err
	}

	// The skybox follows the camera's rotation but not its position.
	view := e.Camera.View
	view.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	skyBox := sceneUBO{
		Projection: e.Camera.Perspective,
		View:       view,
		Model:      mgl32.Ident4(),
	}
	return e.skyBoxUniform.Write(e.App, &skyBox)
}

func (e *BloomExample) updateBlurParams() error {
	params := blurParamsUBO{
		BlurScale:    e.blurScale,
		BlurStrength: 1.5,
	}
	return e.blurUniform.Write(e.App, &params)
}

func (e *BloomExample) destroy() {
	e.Device.DestroyPipeline(e.skyBoxPipeline, nil)
	e.Device.DestroyPipeline(e.phongPipeline, nil)
	e.Device.DestroyPipeline(e.glowPipeline, nil)
	e.Device.DestroyPipeline(e.blurHorzPipeline, nil)
	e.Device.DestroyPipeline(e.blurVertPipeline, nil)

	e.Device.DestroyDescriptorPool(e.descriptorPool, nil)
	e.Device.DestroyPipelineLayout(e.blurPipeLayout, nil)
	e.Device.DestroyPipelineLayout(e.scenePipeLayout, nil)
	e.Device.DestroyDescriptorSetLayout(e.blurLayout, nil)
	e.Device.DestroyDescriptorSetLayout(e.sceneLayout, nil)

	e.blurUniform.Destroy(e.App)
	e.skyBoxUniform.Destroy(e.App)
	e.sceneUniform.Destroy(e.App)

	e.offscreenPass.Destroy(e.App)

	e.cubeMap.Destroy(e.App)
	e.skyBoxModel.Destroy(e.App)
	e.ufoGlowModel.Destroy(e.App)
	e.ufoModel.Destroy(e.App)

	e.App.Destroy()
}

func main() {
	runtime.LockOSThread()

	settings, err := base.ParseCommandLine(os.Args[1:])
	if err != nil {
		base.LogFatal("invalid command line", "error", err)
	}

	example := &BloomExample{
		App:          base.NewApp("bloom", settings),
		bloomEnabled: true,
		blurScale:    1.0,
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
