package base

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// NeedsSwizzle reports whether pixel bytes must be reordered BGR->RGB when
// writing the capture to disk. A blit converts formats on the device, so
// the swizzle is only needed when the copy fallback was taken and the
// swapchain hands out a BGR-ordered format.
func NeedsSwizzle(format core1_0.Format, supportsBlit bool) bool {
	if supportsBlit {
		return false
	}
	switch format {
	case core1_0.FormatB8G8R8A8SRGB,
		core1_0.FormatB8G8R8A8UnsignedNormalized,
		core1_0.FormatB8G8R8A8SignedNormalized:
		return true
	}
	return false
}

// WritePPM writes a binary PPM image: the exact header
// "P6\n<width>\n<height>\n255\n" followed by width*height RGB triplets,
// row-major with no padding. pixels holds 4-byte RGBA (or BGRA, with
// swizzle) rows spaced rowPitch bytes apart, as mapped from a linear-tiled
// image.
func WritePPM(w io.Writer, width, height, rowPitch int, pixels []byte, swizzle bool) error {
	if rowPitch < width*4 {
		return errors.Newf("row pitch %d too small for width %d", rowPitch, width)
	}
	if len(pixels) < height*rowPitch {
		return errors.Newf("pixel data holds %d bytes, need %d", len(pixels), height*rowPitch)
	}

	buffered := bufio.NewWriter(w)
	_, err := fmt.Fprintf(buffered, "P6\n%d\n%d\n255\n", width, height)
	if err != nil {
		return err
	}

	for y := 0; y < height; y++ {
		row := pixels[y*rowPitch:]
		for x := 0; x < width; x++ {
			pixel := row[x*4 : x*4+4]
			if swizzle {
				_, err = buffered.Write([]byte{pixel[2], pixel[1], pixel[0]})
			} else {
				_, err = buffered.Write(pixel[:3])
			}
			if err != nil {
				return err
			}
		}
	}

	return buffered.Flush()
}

// SaveScreenshot captures the swapchain image most recently presented and
// writes it to path as a PPM file. The image is blitted (with format
// conversion) into a linear-tiled host-visible image when the device
// supports it, and copied raw otherwise.
func (app *App) SaveScreenshot(path string) error {
	// Blit needs optimal-tiling blit source support on the swapchain format
	// and linear-tiling blit destination support on the capture format.
	formatProps := app.InstanceDriver.GetPhysicalDeviceFormatProperties(app.PhysicalDevice, app.SwapchainFormat)
	supportsBlit := formatProps.OptimalTilingFeatures&core1_0.FormatFeatureBlitSource != 0

	formatProps = app.InstanceDriver.GetPhysicalDeviceFormatProperties(app.PhysicalDevice, core1_0.FormatR8G8B8A8UnsignedNormalized)
	if formatProps.LinearTilingFeatures&core1_0.FormatFeatureBlitDestination == 0 {
		supportsBlit = false
	}

	width := app.SwapchainExtent.Width
	height := app.SwapchainExtent.Height
	srcImage := app.SwapchainImages[app.lastPresented]

	dstImage, dstMemory, err := app.CreateImage(
		width, height, 1, 1,
		core1_0.FormatR8G8B8A8UnsignedNormalized,
		core1_0.ImageTilingLinear,
		core1_0.ImageUsageTransferDst,
		core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent,
		0)
	if err != nil {
		return err
	}
	defer func() {
		app.Device.DestroyImage(dstImage, nil)
		app.Device.FreeMemory(dstMemory, nil)
	}()

	cmd, err := app.BeginSingleTimeCommands()
	if err != nil {
		return err
	}

	colorRange := core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}

	err = app.Device.CmdPipelineBarrier(cmd, core1_0.PipelineStageTransfer, core1_0.PipelineStageTransfer, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			Image:               dstImage,
			OldLayout:           core1_0.ImageLayoutUndefined,
			NewLayout:           core1_0.ImageLayoutTransferDstOptimal,
			SrcAccessMask:       0,
			DstAccessMask:       core1_0.AccessTransferWrite,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			SubresourceRange:    colorRange,
		},
		{
			Image:               srcImage,
			OldLayout:           khr_swapchain.ImageLayoutPresentSrc,
			NewLayout:           core1_0.ImageLayoutTransferSrcOptimal,
			SrcAccessMask:       core1_0.AccessMemoryRead,
			DstAccessMask:       core1_0.AccessTransferRead,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			SubresourceRange:    colorRange,
		},
	})
	if err != nil {
		return err
	}

	colorLayers := core1_0.ImageSubresourceLayers{
		AspectMask: core1_0.ImageAspectColor,
		LayerCount: 1,
	}

	if supportsBlit {
		err = app.Device.CmdBlitImage(cmd,
			srcImage, core1_0.ImageLayoutTransferSrcOptimal,
			dstImage, core1_0.ImageLayoutTransferDstOptimal,
			[]core1_0.ImageBlit{
				{
					SrcSubresource: colorLayers,
					SrcOffsets: [2]core1_0.Offset3D{
						{},
						{X: width, Y: height, Z: 1},
					},
					DstSubresource: colorLayers,
					DstOffsets: [2]core1_0.Offset3D{
						{},
						{X: width, Y: height, Z: 1},
					},
				},
			}, core1_0.FilterNearest)
	} else {
		err = app.Device.CmdCopyImage(cmd,
			srcImage, core1_0.ImageLayoutTransferSrcOptimal,
			dstImage, core1_0.ImageLayoutTransferDstOptimal,
			[]core1_0.ImageCopy{
				{
					SrcSubresource: colorLayers,
					DstSubresource: colorLayers,
					Extent:         core1_0.Extent3D{Width: width, Height: height, Depth: 1},
				},
			})
	}
	if err != nil {
		return err
	}

	err = app.Device.CmdPipelineBarrier(cmd, core1_0.PipelineStageTransfer, core1_0.PipelineStageTransfer, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			Image:               dstImage,
			OldLayout:           core1_0.ImageLayoutTransferDstOptimal,
			NewLayout:           core1_0.ImageLayoutGeneral,
			SrcAccessMask:       core1_0.AccessTransferWrite,
			DstAccessMask:       core1_0.AccessMemoryRead,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			SubresourceRange:    colorRange,
		},
		{
			Image:               srcImage,
			OldLayout:           core1_0.ImageLayoutTransferSrcOptimal,
			NewLayout:           khr_swapchain.ImageLayoutPresentSrc,
			SrcAccessMask:       core1_0.AccessTransferRead,
			DstAccessMask:       core1_0.AccessMemoryRead,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			SubresourceRange:    colorRange,
		},
	})
	if err != nil {
		return err
	}

	err = app.EndSingleTimeCommands(cmd)
	if err != nil {
		return err
	}

	layout := app.Device.GetImageSubresourceLayout(dstImage, &core1_0.ImageSubresource{
		AspectMask: core1_0.ImageAspectColor,
	})

	memReqs := app.Device.GetImageMemoryRequirements(dstImage)
	memoryPtr, _, err := app.Device.MapMemory(dstMemory, 0, memReqs.Size, 0)
	if err != nil {
		return err
	}
	defer app.Device.UnmapMemory(dstMemory)

	pixels := unsafe.Slice((*byte)(memoryPtr), memReqs.Size)
	pixels = pixels[layout.Offset:]

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create screenshot file %s", path)
	}
	defer file.Close()

	swizzle := NeedsSwizzle(app.SwapchainFormat, supportsBlit)
	err = WritePPM(file, width, height, layout.RowPitch, pixels, swizzle)
	if err != nil {
		return err
	}

	LogInfo("screenshot saved", "path", path, "blit", supportsBlit, "swizzle", swizzle)
	return nil
}
