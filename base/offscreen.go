package base

import (
	"github.com/vkngwrapper/core/v3/core1_0"
)

// OffscreenTarget is a single attachment image rendered into by one pass
// and sampled by a later one.
type OffscreenTarget struct {
	Image  core1_0.Image
	Memory core1_0.DeviceMemory
	View   core1_0.ImageView
	Format core1_0.Format
}

type OffscreenTargetInfo struct {
	Width  int
	Height int
	Format core1_0.Format
	Usage  core1_0.ImageUsageFlags
	Aspect core1_0.ImageAspectFlags
}

func (app *App) NewOffscreenTarget(info OffscreenTargetInfo) (*OffscreenTarget, error) {
	target := &OffscreenTarget{Format: info.Format}

	var err error
	target.Image, target.Memory, err = app.CreateImage(
		info.Width,
		info.Height,
		1, 1,
		info.Format,
		core1_0.ImageTilingOptimal,
		info.Usage,
		core1_0.MemoryPropertyDeviceLocal,
		0)
	if err != nil {
		return nil, err
	}

	// Sampling only ever reads the depth aspect of a combined attachment.
	viewAspect := info.Aspect
	if viewAspect&core1_0.ImageAspectDepth != 0 {
		viewAspect = core1_0.ImageAspectDepth
	}

	target.View, err = app.CreateImageView(target.Image, core1_0.ImageViewType2D, info.Format, viewAspect, 1, 1)
	if err != nil {
		target.Destroy(app)
		return nil, err
	}

	return target, nil
}

func (t *OffscreenTarget) Destroy(app *App) {
	if t == nil {
		return
	}
	if t.View.Initialized() {
		app.Device.DestroyImageView(t.View, nil)
		t.View = core1_0.ImageView{}
	}
	if t.Image.Initialized() {
		app.Device.DestroyImage(t.Image, nil)
		t.Image = core1_0.Image{}
	}
	if t.Memory.Initialized() {
		app.Device.FreeMemory(t.Memory, nil)
		t.Memory = core1_0.DeviceMemory{}
	}
}

// OffscreenFramebuffer groups the attachments of a single offscreen
// framebuffer. Color or Depth may be nil depending on the pass.
type OffscreenFramebuffer struct {
	Framebuffer core1_0.Framebuffer
	Color       *OffscreenTarget
	Depth       *OffscreenTarget
}

func (f *OffscreenFramebuffer) Destroy(app *App) {
	if f == nil {
		return
	}
	if f.Framebuffer.Initialized() {
		app.Device.DestroyFramebuffer(f.Framebuffer, nil)
		f.Framebuffer = core1_0.Framebuffer{}
	}
	f.Color.Destroy(app)
	f.Depth.Destroy(app)
}

// OffscreenPass owns a render pass rendering away from the swapchain, its
// framebuffers, and the sampler later passes read the result through.
type OffscreenPass struct {
	Width, Height int
	RenderPass    core1_0.RenderPass
	Sampler       core1_0.Sampler
	Framebuffers  []*OffscreenFramebuffer
}

// NewColorPass builds an offscreen pass with framebufferCount color+depth
// framebuffers sharing one render pass. The color attachments finish each
// pass ready to be sampled.
func (app *App) NewColorPass(width, height int, colorFormat core1_0.Format, framebufferCount int) (*OffscreenPass, error) {
	depthFormat, err := app.SupportedDepthFormat()
	if err != nil {
		return nil, err
	}

	pass := &OffscreenPass{Width: width, Height: height}

	pass.RenderPass, _, err = app.Device.CreateRenderPass(nil, ColorDepthPassDescription(colorFormat, depthFormat))
	if err != nil {
		return nil, err
	}

	for i := 0; i < framebufferCount; i++ {
		framebuffer := &OffscreenFramebuffer{}

		framebuffer.Color, err = app.NewOffscreenTarget(OffscreenTargetInfo{
			Width:  width,
			Height: height,
			Format: colorFormat,
			Usage:  core1_0.ImageUsageColorAttachment | core1_0.ImageUsageSampled,
			Aspect: core1_0.ImageAspectColor,
		})
		if err != nil {
			pass.Destroy(app)
			return nil, err
		}

		depthAspect := core1_0.ImageAspectFlags(core1_0.ImageAspectDepth)
		if HasStencilComponent(depthFormat) {
			depthAspect |= core1_0.ImageAspectStencil
		}

		framebuffer.Depth, err = app.NewOffscreenTarget(OffscreenTargetInfo{
			Width:  width,
			Height: height,
			Format: depthFormat,
			Usage:  core1_0.ImageUsageDepthStencilAttachment,
			Aspect: depthAspect,
		})
		if err != nil {
			framebuffer.Destroy(app)
			pass.Destroy(app)
			return nil, err
		}

		framebuffer.Framebuffer, _, err = app.Device.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: pass.RenderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				framebuffer.Color.View,
				framebuffer.Depth.View,
			},
			Width:  width,
			Height: height,
		})
		if err != nil {
			framebuffer.Destroy(app)
			pass.Destroy(app)
			return nil, err
		}

		pass.Framebuffers = append(pass.Framebuffers, framebuffer)
	}

	pass.Sampler, err = app.createAttachmentSampler()
	if err != nil {
		pass.Destroy(app)
		return nil, err
	}

	return pass, nil
}

// NewDepthPass builds a depth-only offscreen pass (shadow map). The depth
// attachment is stored and finishes ready to be sampled.
func (app *App) NewDepthPass(width, height int, depthFormat core1_0.Format) (*OffscreenPass, error) {
	pass := &OffscreenPass{Width: width, Height: height}

	var err error
	pass.RenderPass, _, err = app.Device.CreateRenderPass(nil, DepthOnlyPassDescription(depthFormat))
	if err != nil {
		return nil, err
	}

	framebuffer := &OffscreenFramebuffer{}
	framebuffer.Depth, err = app.NewOffscreenTarget(OffscreenTargetInfo{
		Width:  width,
		Height: height,
		Format: depthFormat,
		Usage:  core1_0.ImageUsageDepthStencilAttachment | core1_0.ImageUsageSampled,
		Aspect: core1_0.ImageAspectDepth,
	})
	if err != nil {
		pass.Destroy(app)
		return nil, err
	}

	framebuffer.Framebuffer, _, err = app.Device.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass:  pass.RenderPass,
		Layers:      1,
		Attachments: []core1_0.ImageView{framebuffer.Depth.View},
		Width:       width,
		Height:      height,
	})
	if err != nil {
		framebuffer.Destroy(app)
		pass.Destroy(app)
		return nil, err
	}
	pass.Framebuffers = append(pass.Framebuffers, framebuffer)

	pass.Sampler, err = app.createAttachmentSampler()
	if err != nil {
		pass.Destroy(app)
		return nil, err
	}

	return pass, nil
}

func (app *App) createAttachmentSampler() (core1_0.Sampler, error) {
	sampler, _, err := app.Device.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:     core1_0.FilterLinear,
		MinFilter:     core1_0.FilterLinear,
		MipmapMode:    core1_0.SamplerMipmapModeLinear,
		AddressModeU:  core1_0.SamplerAddressModeClampToEdge,
		AddressModeV:  core1_0.SamplerAddressModeClampToEdge,
		AddressModeW:  core1_0.SamplerAddressModeClampToEdge,
		MipLodBias:    0,
		MaxAnisotropy: 1,
		MinLod:        0,
		MaxLod:        1,
		BorderColor:   core1_0.BorderColorFloatOpaqueWhite,
	})
	return sampler, err
}

// ColorDescriptor returns the image binding for sampling framebuffer i's
// color attachment in a later pass.
func (p *OffscreenPass) ColorDescriptor(i int) core1_0.DescriptorImageInfo {
	return core1_0.DescriptorImageInfo{
		Sampler:     p.Sampler,
		ImageView:   p.Framebuffers[i].Color.View,
		ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
	}
}

// DepthDescriptor returns the image binding for sampling framebuffer i's
// depth attachment in a later pass.
func (p *OffscreenPass) DepthDescriptor(i int) core1_0.DescriptorImageInfo {
	return core1_0.DescriptorImageInfo{
		Sampler:     p.Sampler,
		ImageView:   p.Framebuffers[i].Depth.View,
		ImageLayout: core1_0.ImageLayoutDepthStencilReadOnlyOptimal,
	}
}

func (p *OffscreenPass) Destroy(app *App) {
	if p == nil {
		return
	}
	if p.Sampler.Initialized() {
		app.Device.DestroySampler(p.Sampler, nil)
		p.Sampler = core1_0.Sampler{}
	}
	for _, framebuffer := range p.Framebuffers {
		framebuffer.Destroy(app)
	}
	p.Framebuffers = nil
	if p.RenderPass.Initialized() {
		app.Device.DestroyRenderPass(p.RenderPass, nil)
		p.RenderPass = core1_0.RenderPass{}
	}
}
