package main

import (
	"encoding/binary"
	"math"
	"os"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
	"golang.org/x/sync/errgroup"

	"github.com/jherico/vkexamples/base"
)

// Physically based shading with a metallic/roughness parameterization.
// A grid of objects is drawn with a single pipeline; per-object position
// and material parameters are pushed as constants, with roughness and
// metallic swept across the grid around the selected material.

const gridDim = 7

type materialParams struct {
	Roughness float32
	Metallic  float32
	R, G, B   float32
}

type material struct {
	Name   string
	Params materialParams
}

func metal(name string, r, g, b float32) material {
	return material{Name: name, Params: materialParams{Roughness: 0.1, Metallic: 1.0, R: r, G: g, B: b}}
}

func dielectric(name string, r, g, b float32) material {
	return material{Name: name, Params: materialParams{Roughness: 0.5, Metallic: 0.1, R: r, G: g, B: b}}
}

type uboMatrices struct {
	Projection mgl32.Mat4
	Model      mgl32.Mat4
	View       mgl32.Mat4
	CamPos     mgl32.Vec3
}

type uboParams struct {
	Lights [4]mgl32.Vec4
}

type PBRBasicExample struct {
	*base.App

	vertexLayout base.VertexLayout

	models     []*base.Model
	modelNames []string
	modelIndex int32

	materials     []material
	materialNames []string
	materialIndex int32

	matricesUniform *base.UniformBuffer
	paramsUniform   *base.UniformBuffer

	descriptorLayout core1_0.DescriptorSetLayout
	pipelineLayout   core1_0.PipelineLayout
	descriptorPool   core1_0.DescriptorPool
	descriptorSet    core1_0.DescriptorSet

	pipeline core1_0.Pipeline
}

func (e *PBRBasicExample) prepare() error {
	e.vertexLayout = base.VertexLayout{Components: []base.VertexComponent{
		base.VertexComponentPosition,
		base.VertexComponentNormal,
	}}

	e.Camera.Type = base.CameraFirstPerson
	e.Camera.SetPosition(mgl32.Vec3{10, 13, 1.8})
	e.Camera.SetRotation(mgl32.Vec3{-62.5, 90, 0})
	e.Camera.MovementSpeed = 4.0
	e.Camera.RotationSpeed = 0.25
	e.Camera.SetPerspective(60, float32(e.SwapchainExtent.Width)/float32(e.SwapchainExtent.Height), 0.1, 256)

	e.setupMaterials()

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
	e.OnUpdate = e.updateUniformBuffers

	return nil
}

// Metallic F0 values from physical measurement, dielectrics as plain
// albedo colors.
func (e *PBRBasicExample) setupMaterials() {
	e.materials = []material{
		metal("Gold", 1.0, 0.765557, 0.336057),
		metal("Copper", 0.955008, 0.637427, 0.538163),
		metal("Chromium", 0.549585, 0.556114, 0.554256),
		metal("Nickel", 0.659777, 0.608679, 0.525649),
		metal("Titanium", 0.541931, 0.496791, 0.449419),
		metal("Cobalt", 0.662124, 0.654864, 0.633732),
		metal("Platinum", 0.672411, 0.637331, 0.585456),
		dielectric("White", 1.0, 1.0, 1.0),
		dielectric("Red", 1.0, 0.0, 0.0),
		dielectric("Blue", 0.0, 0.0, 1.0),
		dielectric("Black", 0.0, 0.0, 0.0),
	}
	e.materialNames = make([]string, len(e.materials))
	for i, mat := range e.materials {
		e.materialNames[i] = mat.Name
	}
	e.materialIndex = int32(len(e.materials) - 2)
}

func (e *PBRBasicExample) loadAssets() error {
	e.modelNames = []string{"Sphere", "Teapot", "Torusknot", "Venus"}
	files := []string{"sphere.obj", "teapot.obj", "torusknot.obj", "venus.obj"}
	e.models = make([]*base.Model, len(files))

	var group errgroup.Group
	for i, file := range files {
		i, file := i, file
		group.Go(func() error {
			var err error
			e.models[i], err = e.LoadModel(file, e.vertexLayout, 0.35)
			return err
		})
	}
	return group.Wait()
}

func (e *PBRBasicExample) prepareUniformBuffers() error {
	var err error
	e.matricesUniform, err = e.CreateUniformBuffer(uboMatrices{})
	if err != nil {
		return err
	}
	e.paramsUniform, err = e.CreateUniformBuffer(uboParams{})
	return err
}

func (e *PBRBasicExample) setupDescriptors() error {
	var err error

	e.descriptorLayout, _, err = e.Device.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageVertex | core1_0.StageFragment,
			},
			{
				Binding:         1,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageFragment,
			},
		},
	})
	if err != nil {
		return err
	}

	// Object position goes to the vertex stage, the material block to the
	// fragment stage right behind it.
	e.pipelineLayout, _, err = e.Device.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{e.descriptorLayout},
		PushConstantRanges: []core1_0.PushConstantRange{
			{
				Stages: core1_0.StageVertex,
				Offset: 0,
				Size:   binary.Size(mgl32.Vec3{}),
			},
			{
				Stages: core1_0.StageFragment,
				Offset: binary.Size(mgl32.Vec3{}),
				Size:   binary.Size(materialParams{}),
			},
		},
	})
	if err != nil {
		return err
	}

	e.descriptorPool, _, err = e.Device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: 1,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{Type: core1_0.DescriptorTypeUniformBuffer, DescriptorCount: 2},
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
			BufferInfo:     []core1_0.DescriptorBufferInfo{e.matricesUniform.DescriptorInfo()},
		},
		{
			DstSet:         e.descriptorSet,
			DstBinding:     1,
			DescriptorType: core1_0.DescriptorTypeUniformBuffer,
			BufferInfo:     []core1_0.DescriptorBufferInfo{e.paramsUniform.DescriptorInfo()},
		},
	}, nil)
}

func (e *PBRBasicExample) preparePipelines() error {
	vert, err := e.LoadShader("pbrbasic/pbr.vert.spv", core1_0.StageVertex, nil)
	if err != nil {
		return err
	}
	frag, err := e.LoadShader("pbrbasic/pbr.frag.spv", core1_0.StageFragment, nil)
	if err != nil {
		return err
	}
	defer e.DestroyShaderModules()

	config := base.NewPipelineConfig(e.pipelineLayout, e.RenderPass)
	config.Stages = []core1_0.PipelineShaderStageCreateInfo{vert, frag}
	config.VertexInput = e.vertexLayout.InputState()
	config.CullMode = core1_0.CullModeFront
	e.pipeline, err = e.BuildPipeline(config)
	return err
}

func (e *PBRBasicExample) setupOverlay() {
	e.Overlay.Header("Settings")
	e.Overlay.ComboBox("Material", &e.materialIndex, e.materialNames)
	e.Overlay.ComboBox("Object type", &e.modelIndex, e.modelNames)
}

func (e *PBRBasicExample) buildCommandBuffer(cmd core1_0.CommandBuffer, imageIndex int) error {
	err := e.Device.CmdBeginRenderPass(cmd, core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
		RenderPass:  e.RenderPass,
		Framebuffer: e.Framebuffers[imageIndex],
		RenderArea: core1_0.Rect2D{
			Extent: e.SwapchainExtent,
		},
		ClearValues: []core1_0.ClearValue{
			core1_0.ClearValueFloat{0.1, 0.1, 0.1, 1},
			core1_0.ClearValueDepthStencil{Depth: 1.0},
		},
	})
	if err != nil {
		return err
	}

	e.SetViewportScissor(cmd, e.SwapchainExtent.Width, e.SwapchainExtent.Height)

	e.Device.CmdBindPipeline(cmd, core1_0.PipelineBindPointGraphics, e.pipeline)
	e.Device.CmdBindDescriptorSets(cmd, core1_0.PipelineBindPointGraphics, e.pipelineLayout, 0, []core1_0.DescriptorSet{e.descriptorSet}, nil)

	model := e.models[e.modelIndex]
	selected := e.materials[e.materialIndex]

	// One draw per grid cell: the selected material's base color with
	// metallic swept along x and roughness along y.
	for y := 0; y < gridDim; y++ {
		for x := 0; x < gridDim; x++ {
			pos := mgl32.Vec3{
				(float32(x) - float32(gridDim)/2.0) * 2.5,
				0,
				(float32(y) - float32(gridDim)/2.0) * 2.5,
			}
			posBytes, err := base.MarshalData(pos)
			if err != nil {
				return err
			}
			e.Device.CmdPushConstants(cmd, e.pipelineLayout, core1_0.StageVertex, 0, posBytes)

			params := selected.Params
			params.Metallic = clamp32(float32(x)/float32(gridDim-1), 0.1, 1.0)
			params.Roughness = clamp32(float32(y)/float32(gridDim-1), 0.05, 1.0)
			paramBytes, err := base.MarshalData(params)
			if err != nil {
				return err
			}
			e.Device.CmdPushConstants(cmd, e.pipelineLayout, core1_0.StageFragment, len(posBytes), paramBytes)

			model.Draw(e.App, cmd)
		}
	}

	if e.Overlay.Draw != nil {
		e.Overlay.Draw(cmd)
	}

	e.Device.CmdEndRenderPass(cmd)
	return nil
}

func (e *PBRBasicExample) updateUniformBuffers() error {
	if e.Overlay.Changed() {
		e.Recorder.Invalidate()
	}

	matrices := uboMatrices{
		Projection: e.Camera.Perspective,
		Model:      mgl32.Ident4(),
		View:       e.Camera.View,
		CamPos:     e.Camera.Position.Mul(-1),
	}
	err := e.matricesUniform.Write(e.App, &matrices)
	if err != nil {
		return err
	}

	return e.updateLights()
}

// Two of the four lights circle the grid while the timer runs.
func (e *PBRBasicExample) updateLights() error {
	const p = 15.0
	params := uboParams{
		Lights: [4]mgl32.Vec4{
			{-p, -p * 0.5, -p, 1},
			{-p, -p * 0.5, p, 1},
			{p, -p * 0.5, p, 1},
			{p, -p * 0.5, -p, 1},
		},
	}

	angle := mgl32.DegToRad(float32(e.Timer * 360))
	params.Lights[0][0] = sin32(angle) * 20
	params.Lights[0][2] = cos32(angle) * 20
	params.Lights[1][0] = cos32(angle) * 20
	params.Lights[1][1] = sin32(angle) * 20

	return e.paramsUniform.Write(e.App, &params)
}

func (e *PBRBasicExample) destroy() {
	e.Device.DestroyPipeline(e.pipeline, nil)

	e.Device.DestroyDescriptorPool(e.descriptorPool, nil)
	e.Device.DestroyPipelineLayout(e.pipelineLayout, nil)
	e.Device.DestroyDescriptorSetLayout(e.descriptorLayout, nil)

	e.paramsUniform.Destroy(e.App)
	e.matricesUniform.Destroy(e.App)

	for _, model := range e.models {
		model.Destroy(e.App)
	}

	e.App.Destroy()
}

func sin32(v float32) float32 { return float32(math.Sin(float64(v))) }
func cos32(v float32) float32 { return float32(math.Cos(float64(v))) }

func clamp32(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func main() {
	runtime.LockOSThread()

	settings, err := base.ParseCommandLine(os.Args[1:])
	if err != nil {
		base.LogFatal("invalid command line", "error", err)
	}

	example := &PBRBasicExample{
		App: base.NewApp("pbrbasic", settings),
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
