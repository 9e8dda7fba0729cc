package base

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func (app *App) CreateImage(width, height int, mipLevels, arrayLayers int, format core1_0.Format, tiling core1_0.ImageTiling, usage core1_0.ImageUsageFlags, memoryProperties core1_0.MemoryPropertyFlags, flags core1_0.ImageCreateFlags) (core1_0.Image, core1_0.DeviceMemory, error) {
	image, _, err := app.Device.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     mipLevels,
		ArrayLayers:   arrayLayers,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
		Flags:         flags,
	})
	if err != nil {
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	memReqs := app.Device.GetImageMemoryRequirements(image)
	memoryIndex, err := app.FindMemoryType(memReqs.MemoryTypeBits, memoryProperties)
	if err != nil {
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	imageMemory, _, err := app.Device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	_, err = app.Device.BindImageMemory(image, imageMemory, 0)
	if err != nil {
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	return image, imageMemory, nil
}

func (app *App) CreateImageView(image core1_0.Image, viewType core1_0.ImageViewType, format core1_0.Format, aspect core1_0.ImageAspectFlags, mipLevels, layerCount int) (core1_0.ImageView, error) {
	imageView, _, err := app.Device.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     layerCount,
		},
	})
	return imageView, err
}

func (app *App) BeginSingleTimeCommands() (core1_0.CommandBuffer, error) {
	buffers, _, err := app.Device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        app.CommandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, err
	}

	buffer := buffers[0]
	_, err = app.Device.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return buffer, err
}

func (app *App) EndSingleTimeCommands(buffer core1_0.CommandBuffer) error {
	_, err := app.Device.EndCommandBuffer(buffer)
	if err != nil {
		return err
	}

	_, err = app.Device.QueueSubmit(app.GraphicsQueue, nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	)
	if err != nil {
		return err
	}

	_, err = app.Device.QueueWaitIdle(app.GraphicsQueue)
	if err != nil {
		return err
	}

	app.Device.FreeCommandBuffers(buffer)
	return nil
}

// TransitionImageLayout records a pipeline barrier moving image between
// layouts inside cmd, covering layerCount array layers of mip 0..mipLevels.
func (app *App) TransitionImageLayout(cmd core1_0.CommandBuffer, image core1_0.Image, aspect core1_0.ImageAspectFlags, oldLayout, newLayout core1_0.ImageLayout, mipLevels, layerCount int) error {
	var sourceStage, destStage core1_0.PipelineStageFlags
	var sourceAccess, destAccess core1_0.AccessFlags

	switch {
	case oldLayout == core1_0.ImageLayoutUndefined && newLayout == core1_0.ImageLayoutTransferDstOptimal:
		sourceAccess = 0
		destAccess = core1_0.AccessTransferWrite
		sourceStage = core1_0.PipelineStageTopOfPipe
		destStage = core1_0.PipelineStageTransfer
	case oldLayout == core1_0.ImageLayoutTransferDstOptimal && newLayout == core1_0.ImageLayoutShaderReadOnlyOptimal:
		sourceAccess = core1_0.AccessTransferWrite
		destAccess = core1_0.AccessShaderRead
		sourceStage = core1_0.PipelineStageTransfer
		destStage = core1_0.PipelineStageFragmentShader
	default:
		return errors.Newf("unexpected layout transition: %s -> %s", oldLayout, newLayout)
	}

	return app.Device.CmdPipelineBarrier(cmd, sourceStage, destStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               image,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     aspect,
				BaseMipLevel:   0,
				LevelCount:     mipLevels,
				BaseArrayLayer: 0,
				LayerCount:     layerCount,
			},
			SrcAccessMask: sourceAccess,
			DstAccessMask: destAccess,
		},
	})
}

// FindSupportedFormat returns the first format in the candidate list whose
// tiling supports the requested features on this device.
func (app *App) FindSupportedFormat(formats []core1_0.Format, tiling core1_0.ImageTiling, features core1_0.FormatFeatureFlags) (core1_0.Format, error) {
	for _, format := range formats {
		props := app.InstanceDriver.GetPhysicalDeviceFormatProperties(app.PhysicalDevice, format)

		if tiling == core1_0.ImageTilingLinear && (props.LinearTilingFeatures&features) == features {
			return format, nil
		} else if tiling == core1_0.ImageTilingOptimal && (props.OptimalTilingFeatures&features) == features {
			return format, nil
		}
	}

	return 0, errors.Newf("no supported format for tiling %s, featureset %s", tiling, features)
}

// SupportedDepthFormat picks the best depth attachment format the device
// offers, highest precision first.
func (app *App) SupportedDepthFormat() (core1_0.Format, error) {
	return app.FindSupportedFormat(
		[]core1_0.Format{
			core1_0.FormatD32SignedFloatS8UnsignedInt,
			core1_0.FormatD32SignedFloat,
			core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
			core1_0.FormatD16UnsignedNormalizedS8UnsignedInt,
			core1_0.FormatD16UnsignedNormalized,
		},
		core1_0.ImageTilingOptimal,
		core1_0.FormatFeatureDepthStencilAttachment)
}

func HasStencilComponent(format core1_0.Format) bool {
	switch format {
	case core1_0.FormatD32SignedFloatS8UnsignedInt,
		core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
		core1_0.FormatD16UnsignedNormalizedS8UnsignedInt:
		return true
	}
	return false
}
