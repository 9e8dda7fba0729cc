package main

import (
	"os"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/jherico/vkexamples/base"
)

// Renders a single model and saves the last presented swapchain image to
// a PPM file on demand.

const screenshotPath = "screenshot.ppm"

type sceneUBO struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
	Model      mgl32.Mat4
}

type ScreenshotExample struct {
	*base.App

	vertexLayout base.VertexLayout
	model        *base.Model

	sceneUniform *base.UniformBuffer

	descriptorLayout core1_0.DescriptorSetLayout
	pipelineLayout   core1_0.PipelineLayout
	descriptorPool   core1_0.DescriptorPool
	descriptorSet    core1_0.DescriptorSet

	pipeline core1_0.Pipeline

	screenshotRequested bool
	screenshotSaved     bool
}

func (e *ScreenshotExample) prepare() error {
	e.vertexLayout = base.VertexLayout{Components: []base.VertexComponent{
		base.VertexComponentPosition,
		base.VertexComponentNormal,
		base.VertexComponentColor,
	}}

	e.Camera.Type = base.CameraLookAt
	e.Camera.SetPosition(mgl32.Vec3{0, 0, -5.5})
	e.Camera.SetRotation(mgl32.Vec3{-25, 23.75, 0})
	e.Camera.RotationSpeed = 0.5
	e.Camera.SetPerspective(60, float32(e.SwapchainExtent.Width)/float32(e.SwapchainExtent.Height), 0.1, 512)

	steps := []func() error{
		e.loadAssets,
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
	e.OnUpdate = e.update
	e.OnKey = func(sym sdl.Keycode) {
		if sym == sdl.K_F2 || sym == sdl.K_s {
			e.screenshotRequested = true
		}
	}

	return nil
}

func (e *ScreenshotExample) loadAssets() error {
	var err error
	e.model, err = e.LoadModel("chinesedragon.obj", e.vertexLayout, 1.0)
	return err
}

func (e *ScreenshotExample) prepareUniformBuffers() error {
	var err error
	e.sceneUniform, err = e.CreateUniformBuffer(sceneUBO{})
	return err
}

func (e *ScreenshotExample) setupDescriptors() error {
	var err error

	e.descriptorLayout, _, err = e.Device.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageVertex,
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
		MaxSets: 1,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{Type: core1_0.DescriptorTypeUniformBuffer, DescriptorCount: 1},
		},
	})
	if err != nil {
		return err
	}

	sets, _, err := e.Device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: e.descriptorPool,
		SetLayouts:     []core1_0.DescriptorSetLayout{e.descriptorLayout},
	})
	if err != nil {
		return err
	}
	e.descriptorSet = sets[0]

	return e.Device.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:         e.descriptorSet,
			DstBinding:     0,
			DescriptorType: core1_0.DescriptorTypeUniformBuffer,
			BufferInfo:     []core1_0.DescriptorBufferInfo{e.sceneUniform.DescriptorInfo()},
		},
	}, nil)
}

func (e *ScreenshotExample) preparePipelines() error {
	vert, err := e.LoadShader("screenshot/mesh.vert.spv", core1_0.StageVertex, nil)
	if err != nil {
		return err
	}
	frag, err := e.LoadShader("screenshot/mesh.frag.spv", core1_0.StageFragment, nil)
	if err != nil {
		return err
	}
	defer e.DestroyShaderModules()

	config := base.NewPipelineConfig(e.pipelineLayout, e.RenderPass)
	config.Stages = []core1_0.PipelineShaderStageCreateInfo{vert, frag}
	config.VertexInput = e.vertexLayout.InputState()
	e.pipeline, err = e.BuildPipeline(config)
	return err
}

func (e *ScreenshotExample) setupOverlay() {
	e.Overlay.Header("Settings")
	e.Overlay.Button("Take screenshot", func() {
		e.screenshotRequested = true
	})
}

func (e *ScreenshotExample) buildCommandBuffer(cmd core1_0.CommandBuffer, imageIndex int) error {
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

	e.Device.CmdBindPipeline(cmd, core1_0.PipelineBindPointGraphics, e.pipeline)
	e.Device.CmdBindDescriptorSets(cmd, core1_0.PipelineBindPointGraphics, e.pipelineLayout, 0, []core1_0.DescriptorSet{e.descriptorSet}, nil)
	e.model.Draw(e.App, cmd)

	if e.Overlay.Draw != nil {
		e.Overlay.Draw(cmd)
	}

	e.Device.CmdEndRenderPass(cmd)
	return nil
}

func (e *ScreenshotExample) update() error {
	if e.Overlay.Changed() {
		e.Recorder.Invalidate()
	}

	// Requests are deferred to this point, after the frame fence wait, so
	// the capture reads a fully presented image.
	if e.screenshotRequested {
		e.screenshotRequested = false
		err := e.SaveScreenshot(screenshotPath)
		if err != nil {
			return err
		}
		if !e.screenshotSaved {
			e.screenshotSaved = true
			e.Overlay.Text("Screenshot saved as %s", screenshotPath)
			e.Recorder.Invalidate()
		}
	}

	scene := sceneUBO{
		Projection: e.Camera.Perspective,
		View:       e.Camera.View,
		Model:      mgl32.Ident4(),
	}
	return e.sceneUniform.Write(e.App, &scene)
}

func (e *ScreenshotExample) destroy() {
	e.Device.DestroyPipeline(e.pipeline, nil)

	e.Device.DestroyDescriptorPool(e.descriptorPool, nil)
	e.Device.DestroyPipelineLayout(e.pipelineLayout, nil)
	e.Device.DestroyDescriptorSetLayout(e.descriptorLayout, nil)

	e.sceneUniform.Destroy(e.App)
	e.model.Destroy(e.App)

	e.App.Destroy()
}

func main() {
	runtime.LockOSThread()

	settings, err := base.ParseCommandLine(os.Args[1:])
	if err != nil {
		base.LogFatal("invalid command line", "error", err)
	}

	example := &ScreenshotExample{
		App: base.NewApp("screenshot", settings),
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
