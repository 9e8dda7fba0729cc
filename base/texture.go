package base

import (
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"golang.org/x/sync/errgroup"
)

// Texture is a sampled image in device-local memory, together with its
// view and sampler.
type Texture struct {
	Image   core1_0.Image
	Memory  core1_0.DeviceMemory
	View    core1_0.ImageView
	Sampler core1_0.Sampler
	Width   int
	Height  int
}

func decodePNGRGBA(path string) ([]byte, int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, errors.Wrapf(err, "open texture %s", path)
	}
	defer file.Close()

	decoded, err := png.Decode(file)
	if err != nil {
		return nil, 0, 0, errors.Wrapf(err, "decode texture %s", path)
	}

	bounds := decoded.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			rgba.Set(x, y, decoded.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}

	return rgba.Pix, width, height, nil
}

// LoadTexture reads a PNG from the asset directory into a sampled
// device-local image.
func (app *App) LoadTexture(name string) (*Texture, error) {
	path := filepath.Join(app.Settings.AssetPath, "textures", name)
	pixels, width, height, err := decodePNGRGBA(path)
	if err != nil {
		return nil, err
	}

	texture := &Texture{Width: width, Height: height}

	stagingBuffer, stagingMemory, err := app.CreateBuffer(len(pixels), core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if stagingBuffer.Initialized() {
		defer app.Device.DestroyBuffer(stagingBuffer, nil)
	}
	if stagingMemory.Initialized() {
		defer app.Device.FreeMemory(stagingMemory, nil)
	}
	if err != nil {
		return nil, err
	}

	err = WriteData(app.Device, stagingMemory, 0, pixels)
	if err != nil {
		return nil, err
	}

	texture.Image, texture.Memory, err = app.CreateImage(
		width, height, 1, 1,
		core1_0.FormatR8G8B8A8UnsignedNormalized,
		core1_0.ImageTilingOptimal,
		core1_0.ImageUsageTransferDst|core1_0.ImageUsageSampled,
		core1_0.MemoryPropertyDeviceLocal,
		0)
	if err != nil {
		return nil, err
	}

	err = app.uploadTextureLayers(stagingBuffer, texture.Image, width, height, []int{0})
	if err != nil {
		texture.Destroy(app)
		return nil, err
	}

	texture.View, err = app.CreateImageView(texture.Image, core1_0.ImageViewType2D, core1_0.FormatR8G8B8A8UnsignedNormalized, core1_0.ImageAspectColor, 1, 1)
	if err != nil {
		texture.Destroy(app)
		return nil, err
	}

	texture.Sampler, err = app.createTextureSampler()
	if err != nil {
		texture.Destroy(app)
		return nil, err
	}

	return texture, nil
}

// LoadCubeMap builds a cube map from six face images named
// <name>_{px,nx,py,ny,pz,nz}.png in the asset directory. Faces are decoded
// concurrently; all must share one size.
func (app *App) LoadCubeMap(name string) (*Texture, error) {
	suffixes := []string{"px", "nx", "py", "ny", "pz", "nz"}
	faces := make([][]byte, len(suffixes))
	widths := make([]int, len(suffixes))
	heights := make([]int, len(suffixes))

	var group errgroup.Group
	for i, suffix := range suffixes {
		i, suffix := i, suffix
		group.Go(func() error {
			path := filepath.Join(app.Settings.AssetPath, "textures", name+"_"+suffix+".png")
			var err error
			faces[i], widths[i], heights[i], err = decodePNGRGBA(path)
			return err
		})
	}
	err := group.Wait()
	if err != nil {
		return nil, err
	}

	width, height := widths[0], heights[0]
	for i := range faces {
		if widths[i] != width || heights[i] != height {
			return nil, errors.Newf("cube map %s: face %s is %dx%d, expected %dx%d", name, suffixes[i], widths[i], heights[i], width, height)
		}
	}

	faceSize := width * height * 4
	pixels := make([]byte, 0, faceSize*6)
	for _, face := range faces {
		pixels = append(pixels, face...)
	}

	texture := &Texture{Width: width, Height: height}

	stagingBuffer, stagingMemory, err := app.CreateBuffer(len(pixels), core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if stagingBuffer.Initialized() {
		defer app.Device.DestroyBuffer(stagingBuffer, nil)
	}
	if stagingMemory.Initialized() {
		defer app.Device.FreeMemory(stagingMemory, nil)
	}
	if err != nil {
		return nil, err
	}

	err = WriteData(app.Device, stagingMemory, 0, pixels)
	if err != nil {
		return nil, err
	}

	texture.Image, texture.Memory, err = app.CreateImage(
		width, height, 1, 6,
		core1_0.FormatR8G8B8A8UnsignedNormalized,
		core1_0.ImageTilingOptimal,
		core1_0.ImageUsageTransferDst|core1_0.ImageUsageSampled,
		core1_0.MemoryPropertyDeviceLocal,
		core1_0.ImageCreateCubeCompatible)
	if err != nil {
		return nil, err
	}

	err = app.uploadTextureLayers(stagingBuffer, texture.Image, width, height, []int{0, 1, 2, 3, 4, 5})
	if err != nil {
		texture.Destroy(app)
		return nil, err
	}

	texture.View, err = app.CreateImageView(texture.Image, core1_0.ImageViewTypeCube, core1_0.FormatR8G8B8A8UnsignedNormalized, core1_0.ImageAspectColor, 1, 6)
	if err != nil {
		texture.Destroy(app)
		return nil, err
	}

	texture.Sampler, err = app.createTextureSampler()
	if err != nil {
		texture.Destroy(app)
		return nil, err
	}

	return texture, nil
}

// uploadTextureLayers copies tightly packed staging data into the listed
// array layers and transitions the whole image for sampling.
func (app *App) uploadTextureLayers(staging core1_0.Buffer, image core1_0.Image, width, height int, layers []int) error {
	cmd, err := app.BeginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = app.TransitionImageLayout(cmd, image, core1_0.ImageAspectColor, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal, 1, len(layers))
	if err != nil {
		return err
	}

	faceSize := width * height * 4
	var regions []core1_0.BufferImageCopy
	for i, layer := range layers {
		regions = append(regions, core1_0.BufferImageCopy{
			BufferOffset: i * faceSize,
			ImageSubresource: core1_0.ImageSubresourceLayers{
				AspectMask:     core1_0.ImageAspectColor,
				MipLevel:       0,
				BaseArrayLayer: layer,
				LayerCount:     1,
			},
			ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
		})
	}

	err = app.Device.CmdCopyBufferToImage(cmd, staging, image, core1_0.ImageLayoutTransferDstOptimal, regions...)
	if err != nil {
		return err
	}

	err = app.TransitionImageLayout(cmd, image, core1_0.ImageAspectColor, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal, 1, len(layers))
	if err != nil {
		return err
	}

	return app.EndSingleTimeCommands(cmd)
}

func (app *App) createTextureSampler() (core1_0.Sampler, error) {
	sampler, _, err := app.Device.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		MipmapMode:   core1_0.SamplerMipmapModeLinear,
		AddressModeU: core1_0.SamplerAddressModeRepeat,
		AddressModeV: core1_0.SamplerAddressModeRepeat,
		AddressModeW: core1_0.SamplerAddressModeRepeat,
		BorderColor:  core1_0.BorderColorIntOpaqueBlack,
		MaxLod:       1,
	})
	return sampler, err
}

func (t *Texture) DescriptorInfo() core1_0.DescriptorImageInfo {
	return core1_0.DescriptorImageInfo{
		Sampler:     t.Sampler,
		ImageView:   t.View,
		ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
	}
}

func (t *Texture) Destroy(app *App) {
	if t == nil {
		return
	}
	if t.Sampler.Initialized() {
		app.Device.DestroySampler(t.Sampler, nil)
		t.Sampler = core1_0.Sampler{}
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
