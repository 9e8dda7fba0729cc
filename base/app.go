package base

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
)

const MaxFramesInFlight = 2

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
var deviceExtensions = []string{khr_swapchain.ExtensionName}

type QueueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i *QueueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

type SwapChainSupportDetails struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// App owns the window, device, swapchain and frame loop every example
// shares. An example embeds it, prepares its own resources after
// Prepare(), registers a command-buffer build function, and hands control
// to RenderLoop.
type App struct {
	Title    string
	Settings Settings

	Window *sdl.Window

	GlobalDriver   core1_0.GlobalDriver
	InstanceDriver core1_0.CoreInstanceDriver
	Device         core1_0.CoreDeviceDriver

	debugDriver      ext_debug_utils.ExtensionDriver
	debugMessenger   ext_debug_utils.DebugUtilsMessenger
	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface

	PhysicalDevice core1_0.PhysicalDevice
	GraphicsQueue  core1_0.Queue
	PresentQueue   core1_0.Queue

	SwapchainExtension  khr_swapchain.ExtensionDriver
	Swapchain           khr_swapchain.Swapchain
	SwapchainImages     []core1_0.Image
	SwapchainFormat     core1_0.Format
	SwapchainExtent     core1_0.Extent2D
	swapchainImageViews []core1_0.ImageView

	DepthFormat core1_0.Format
	depthImage  core1_0.Image
	depthMemory core1_0.DeviceMemory
	depthView   core1_0.ImageView

	// RenderPass and Framebuffers are the main pass presenting to the
	// swapchain. Offscreen passes are owned by OffscreenPass values.
	RenderPass   core1_0.RenderPass
	Framebuffers []core1_0.Framebuffer

	CommandPool   core1_0.CommandPool
	PipelineCache core1_0.PipelineCache

	Recorder       *Recorder
	commandBuffers []core1_0.CommandBuffer
	buildFunc      func(cmd core1_0.CommandBuffer, imageIndex int) error

	// PreSubmit buffers are submitted each frame ahead of the scene
	// buffer, chained to it with a semaphore. They must be recorded with
	// simultaneous use since they are resubmitted without re-recording.
	PreSubmit     []core1_0.CommandBuffer
	preSubmitDone core1_0.Semaphore

	Camera  *Camera
	Overlay *Overlay

	imageAvailable []core1_0.Semaphore
	renderFinished []core1_0.Semaphore
	inFlightFence  []core1_0.Fence
	imagesInFlight []core1_0.Fence
	currentFrame   int
	lastPresented  int

	shaderModules []core1_0.ShaderModule

	// Timer runs 0..1 and wraps, advanced by TimerSpeed per second while
	// not paused. FrameTime is the last frame's duration in seconds.
	Timer      float64
	TimerSpeed float64
	Paused     bool
	FrameTime  float64

	frameStart   float64
	frameCounter int
	fpsTimer     float64

	// OnKey receives key presses not consumed by the overlay or camera.
	OnKey func(sym sdl.Keycode)

	// OnUpdate runs once per frame before submission, for uniform refresh.
	OnUpdate func() error

	cachePath string
}

func NewApp(title string, settings Settings) *App {
	SetLogLevel(settings.LogLevel)
	return &App{
		Title:      title,
		Settings:   settings,
		Camera:     NewCamera(CameraLookAt),
		Overlay:    NewOverlay(settings.Overlay),
		TimerSpeed: 0.25,
		cachePath:  title + "_pipeline_cache.bin",
	}
}

// Prepare brings up the window, instance, device, swapchain and everything
// else shared between examples. Each step's failure aborts the program at
// main.
func (app *App) Prepare() error {
	steps := []func() error{
		app.initWindow,
		app.createInstance,
		app.setupDebugMessenger,
		app.createSurface,
		app.pickPhysicalDevice,
		app.createLogicalDevice,
		app.createSwapchain,
		app.createImageViews,
		app.createCommandPool,
		app.createDepthResources,
		app.createRenderPass,
		app.createFramebuffers,
		app.createSyncObjects,
		app.createCommandBuffers,
	}
	for _, step := range steps {
		err := step()
		if err != nil {
			return err
		}
	}

	err := app.createPipelineCache(app.cachePath)
	if err != nil {
		return err
	}

	LogInfo("prepared", "title", app.Title, "extent", fmt.Sprintf("%dx%d", app.SwapchainExtent.Width, app.SwapchainExtent.Height), "format", app.SwapchainFormat)
	return nil
}

func (app *App) initWindow() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return err
	}

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_VULKAN)
	if app.Settings.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN
	}

	window, err := sdl.CreateWindow(app.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(app.Settings.Width), int32(app.Settings.Height), flags)
	if err != nil {
		return err
	}
	app.Window = window

	app.GlobalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return err
	}

	return nil
}

func (app *App) createInstance() error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    app.Title,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "vkexamples",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	sdlExtensions := app.Window.VulkanGetInstanceExtensions()
	extensions, _, err := app.GlobalDriver.AvailableExtensions()
	if err != nil {
		return err
	}

	for _, ext := range sdlExtensions {
		_, hasExt := extensions[ext]
		if !hasExt {
			return errors.Newf("createInstance: missing required surface extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if app.Settings.Validation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	layers, _, err := app.GlobalDriver.AvailableLayers()
	if err != nil {
		return err
	}

	if app.Settings.Validation {
		for _, layer := range validationLayers {
			_, hasValidation := layers[layer]
			if !hasValidation {
				return errors.Newf("createInstance: validation layer %s not available, install the LunarG Vulkan SDK", layer)
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		instanceOptions.Next = app.debugMessengerOptions()
	}

	app.InstanceDriver, _, err = app.GlobalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return err
	}

	return nil
}

func (app *App) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    app.logValidation,
	}
}

func (app *App) logValidation(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	if severity&ext_debug_utils.SeverityError != 0 {
		LogError(data.Message, "source", msgType)
	} else {
		LogWarn(data.Message, "source", msgType)
	}
	return false
}

func (app *App) setupDebugMessenger() error {
	if !app.Settings.Validation {
		return nil
	}

	var err error
	app.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(app.InstanceDriver)
	app.debugMessenger, _, err = app.debugDriver.CreateDebugUtilsMessenger(nil, app.debugMessengerOptions())
	if err != nil {
		return err
	}

	return nil
}

func (app *App) createSurface() error {
	app.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(app.InstanceDriver)
	surface, err := vkng_sdl2.CreateSurface(app.InstanceDriver.Instance(), app.surfaceExtension, app.Window)
	if err != nil {
		return err
	}

	app.surface = surface
	return nil
}

func (app *App) pickPhysicalDevice() error {
	physicalDevices, _, err := app.InstanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return err
	}

	for _, device := range physicalDevices {
		if app.isDeviceSuitable(device) {
			app.PhysicalDevice = device
			break
		}
	}

	if !app.PhysicalDevice.Initialized() {
		return errors.Newf("failed to find a suitable GPU")
	}

	properties, err := app.InstanceDriver.GetPhysicalDeviceProperties(app.PhysicalDevice)
	if err != nil {
		return err
	}
	LogInfo("selected device", "name", properties.DriverName)

	return nil
}

func (app *App) isDeviceSuitable(device core1_0.PhysicalDevice) bool {
	indices, err := app.findQueueFamilies(device)
	if err != nil {
		return false
	}

	extensionsSupported := app.checkDeviceExtensionSupport(device)

	var swapChainAdequate bool
	if extensionsSupported {
		swapChainSupport, err := app.querySwapChainSupport(device)
		if err != nil {
			return false
		}

		swapChainAdequate = len(swapChainSupport.Formats) > 0 && len(swapChainSupport.PresentModes) > 0
	}

	return indices.IsComplete() && extensionsSupported && swapChainAdequate
}

func (app *App) checkDeviceExtensionSupport(device core1_0.PhysicalDevice) bool {
	extensions, _, err := app.InstanceDriver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return false
	}

	for _, extension := range deviceExtensions {
		_, hasExtension := extensions[extension]
		if !hasExtension {
			return false
		}
	}

	return true
}

func (app *App) findQueueFamilies(device core1_0.PhysicalDevice) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{}
	queueFamilies := app.InstanceDriver.GetPhysicalDeviceQueueFamilyProperties(device)

	for queueFamilyIdx, queueFamily := range queueFamilies {
		if (queueFamily.QueueFlags & core1_0.QueueGraphics) != 0 {
			indices.GraphicsFamily = new(int)
			*indices.GraphicsFamily = queueFamilyIdx
		}

		supported, _, err := app.surfaceExtension.GetPhysicalDeviceSurfaceSupport(app.surface, device, queueFamilyIdx)
		if err != nil {
			return indices, err
		}

		if supported {
			indices.PresentFamily = new(int)
			*indices.PresentFamily = queueFamilyIdx
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices, nil
}

func (app *App) createLogicalDevice() error {
	indices, err := app.findQueueFamilies(app.PhysicalDevice)
	if err != nil {
		return err
	}

	uniqueQueueFamilies := []int{*indices.GraphicsFamily}
	if uniqueQueueFamilies[0] != *indices.PresentFamily {
		uniqueQueueFamilies = append(uniqueQueueFamilies, *indices.PresentFamily)
	}

	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range uniqueQueueFamilies {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, deviceExtensions...)

	extensions, _, err := app.InstanceDriver.EnumerateDeviceExtensionProperties(app.PhysicalDevice)
	if err != nil {
		return err
	}

	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	app.Device, _, err = app.InstanceDriver.CreateDevice(app.PhysicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queueFamilyOptions,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: true,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return err
	}

	app.GraphicsQueue = app.Device.GetQueue(*indices.GraphicsFamily, 0)
	app.PresentQueue = app.Device.GetQueue(*indices.PresentFamily, 0)
	return nil
}

func (app *App) querySwapChainSupport(device core1_0.PhysicalDevice) (SwapChainSupportDetails, error) {
	var details SwapChainSupportDetails
	var err error

	details.Capabilities, _, err = app.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(app.surface, device)
	if err != nil {
		return details, err
	}

	details.Formats, _, err = app.surfaceExtension.GetPhysicalDeviceSurfaceFormats(app.surface, device)
	if err != nil {
		return details, err
	}

	details.PresentModes, _, err = app.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(app.surface, device)
	return details, err
}

func (app *App) chooseSwapSurfaceFormat(availableFormats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == core1_0.FormatB8G8R8A8UnsignedNormalized && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

func (app *App) chooseSwapPresentMode(availablePresentModes []khr_surface.PresentMode) khr_surface.PresentMode {
	if app.Settings.VSync {
		return khr_surface.PresentModeFIFO
	}

	for _, presentMode := range availablePresentModes {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

func (app *App) chooseSwapExtent(capabilities *khr_surface.SurfaceCapabilities) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	widthInt, heightInt := app.Window.VulkanGetDrawableSize()
	width := int(widthInt)
	height := int(heightInt)

	if width < capabilities.MinImageExtent.Width {
		width = capabilities.MinImageExtent.Width
	}
	if width > capabilities.MaxImageExtent.Width {
		width = capabilities.MaxImageExtent.Width
	}
	if height < capabilities.MinImageExtent.Height {
		height = capabilities.MinImageExtent.Height
	}
	if height > capabilities.MaxImageExtent.Height {
		height = capabilities.MaxImageExtent.Height
	}

	return core1_0.Extent2D{Width: width, Height: height}
}

func (app *App) createSwapchain() error {
	app.SwapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(app.Device)

	swapchainSupport, err := app.querySwapChainSupport(app.PhysicalDevice)
	if err != nil {
		return err
	}

	surfaceFormat := app.chooseSwapSurfaceFormat(swapchainSupport.Formats)
	presentMode := app.chooseSwapPresentMode(swapchainSupport.PresentModes)
	extent := app.chooseSwapExtent(swapchainSupport.Capabilities)

	imageCount := swapchainSupport.Capabilities.MinImageCount + 1
	if swapchainSupport.Capabilities.MaxImageCount > 0 && swapchainSupport.Capabilities.MaxImageCount < imageCount {
		imageCount = swapchainSupport.Capabilities.MaxImageCount
	}

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int

	indices, err := app.findQueueFamilies(app.PhysicalDevice)
	if err != nil {
		return err
	}

	if *indices.GraphicsFamily != *indices.PresentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, *indices.GraphicsFamily, *indices.PresentFamily)
	}

	// TransferSrc lets the screenshot path read presented images back.
	imageUsage := core1_0.ImageUsageFlags(core1_0.ImageUsageColorAttachment)
	if swapchainSupport.Capabilities.SupportedUsageFlags&core1_0.ImageUsageTransferSrc != 0 {
		imageUsage |= core1_0.ImageUsageTransferSrc
	}

	swapchain, _, err := app.SwapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: app.surface,

		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       imageUsage,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   swapchainSupport.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return err
	}
	app.SwapchainExtent = extent
	app.Swapchain = swapchain
	app.SwapchainFormat = surfaceFormat.Format

	return nil
}

func (app *App) createImageViews() error {
	images, _, err := app.SwapchainExtension.GetSwapchainImages(app.Swapchain)
	if err != nil {
		return err
	}
	app.SwapchainImages = images

	var imageViews []core1_0.ImageView
	for _, image := range images {
		view, err := app.CreateImageView(image, core1_0.ImageViewType2D, app.SwapchainFormat, core1_0.ImageAspectColor, 1, 1)
		if err != nil {
			return err
		}

		imageViews = append(imageViews, view)
	}
	app.swapchainImageViews = imageViews

	return nil
}

func (app *App) createCommandPool() error {
	indices, err := app.findQueueFamilies(app.PhysicalDevice)
	if err != nil {
		return err
	}

	pool, _, err := app.Device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: *indices.GraphicsFamily,
		Flags:            core1_0.CommandPoolCreateResetBuffer,
	})
	if err != nil {
		return err
	}
	app.CommandPool = pool

	return nil
}

func (app *App) createDepthResources() error {
	depthFormat, err := app.SupportedDepthFormat()
	if err != nil {
		return err
	}
	app.DepthFormat = depthFormat

	app.depthImage, app.depthMemory, err = app.CreateImage(
		app.SwapchainExtent.Width,
		app.SwapchainExtent.Height,
		1, 1,
		depthFormat,
		core1_0.ImageTilingOptimal,
		core1_0.ImageUsageDepthStencilAttachment,
		core1_0.MemoryPropertyDeviceLocal,
		0)
	if err != nil {
		return err
	}

	aspect := core1_0.ImageAspectFlags(core1_0.ImageAspectDepth)
	if HasStencilComponent(depthFormat) {
		aspect |= core1_0.ImageAspectStencil
	}

	app.depthView, err = app.CreateImageView(app.depthImage, core1_0.ImageViewType2D, depthFormat, aspect, 1, 1)
	return err
}

func (app *App) createRenderPass() error {
	renderPass, _, err := app.Device.CreateRenderPass(nil, PresentPassDescription(app.SwapchainFormat, app.DepthFormat))
	if err != nil {
		return err
	}

	app.RenderPass = renderPass
	return nil
}

func (app *App) createFramebuffers() error {
	for _, imageView := range app.swapchainImageViews {
		framebuffer, _, err := app.Device.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: app.RenderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				imageView,
				app.depthView,
			},
			Width:  app.SwapchainExtent.Width,
			Height: app.SwapchainExtent.Height,
		})
		if err != nil {
			return err
		}

		app.Framebuffers = append(app.Framebuffers, framebuffer)
	}

	return nil
}

func (app *App) createSyncObjects() error {
	for i := 0; i < MaxFramesInFlight; i++ {
		semaphore, _, err := app.Device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return err
		}
		app.imageAvailable = append(app.imageAvailable, semaphore)

		fence, _, err := app.Device.CreateFence(nil, core1_0.FenceCreateInfo{
			Flags: core1_0.FenceCreateSignaled,
		})
		if err != nil {
			return err
		}
		app.inFlightFence = append(app.inFlightFence, fence)
	}

	for i := 0; i < len(app.SwapchainImages); i++ {
		semaphore, _, err := app.Device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return err
		}
		app.renderFinished = append(app.renderFinished, semaphore)
		app.imagesInFlight = append(app.imagesInFlight, core1_0.Fence{})
	}

	var err error
	app.preSubmitDone, _, err = app.Device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	return err
}

func (app *App) createCommandBuffers() error {
	buffers, _, err := app.Device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        app.CommandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: len(app.SwapchainImages),
	})
	if err != nil {
		return err
	}
	app.commandBuffers = buffers
	app.Recorder = NewRecorder(len(buffers))

	return nil
}

// SetBuildFunc registers the function that records one frame's commands
// into a command buffer. Called lazily whenever the recorder holds empty
// buffers.
func (app *App) SetBuildFunc(build func(cmd core1_0.CommandBuffer, imageIndex int) error) {
	app.buildFunc = build
	app.Recorder.Invalidate()
}

func (app *App) recordCommandBuffers() error {
	if app.buildFunc == nil {
		return errors.Newf("no command buffer build function registered")
	}

	// Buffers from other in-flight frames may still be executing; wait out
	// the device before resetting any of them.
	_, err := app.Device.DeviceWaitIdle()
	if err != nil {
		return err
	}

	return app.Recorder.Record(func(imageIndex int) error {
		buffer := app.commandBuffers[imageIndex]
		_, err := app.Device.ResetCommandBuffer(buffer, 0)
		if err != nil {
			return err
		}

		_, err = app.Device.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{})
		if err != nil {
			return err
		}

		err = app.buildFunc(buffer, imageIndex)
		if err != nil {
			return err
		}

		_, err = app.Device.EndCommandBuffer(buffer)
		return err
	})
}

// SetViewportScissor records a full-extent dynamic viewport and scissor.
func (app *App) SetViewportScissor(cmd core1_0.CommandBuffer, width, height int) {
	app.Device.CmdSetViewport(cmd, []core1_0.Viewport{
		{
			X:        0,
			Y:        0,
			Width:    float32(width),
			Height:   float32(height),
			MinDepth: 0,
			MaxDepth: 1,
		},
	}...)
	app.Device.CmdSetScissor(cmd, []core1_0.Rect2D{
		{
			Offset: core1_0.Offset2D{X: 0, Y: 0},
			Extent: core1_0.Extent2D{Width: width, Height: height},
		},
	}...)
}

// RenderLoop pumps window events and draws frames until the window closes.
// The swapchain is fixed for the window's lifetime; losing it is fatal.
func (app *App) RenderLoop() error {
	app.frameStart = hrtime.Now().Seconds()
	rendering := true

appLoop:
	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				break appLoop
			case *sdl.WindowEvent:
				switch e.Event {
				case sdl.WINDOWEVENT_MINIMIZED:
					rendering = false
				case sdl.WINDOWEVENT_RESTORED:
					rendering = true
				}
			case *sdl.KeyboardEvent:
				if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
					break appLoop
				}
				app.handleKeyboard(e)
			case *sdl.MouseMotionEvent:
				app.handleMouseMotion(e)
			case *sdl.MouseWheelEvent:
				app.Camera.Translate(mgl32.Vec3{0, 0, float32(e.Y) * 0.25})
			}
		}

		if !rendering {
			continue
		}

		if app.Recorder.NeedsRecord() {
			err := app.recordCommandBuffers()
			if err != nil {
				return err
			}
		}

		err := app.drawFrame()
		if err != nil {
			return err
		}

		app.tick()
	}

	_, err := app.Device.DeviceWaitIdle()
	return err
}

func (app *App) handleKeyboard(e *sdl.KeyboardEvent) {
	pressed := e.Type == sdl.KEYDOWN

	switch e.Keysym.Sym {
	case sdl.K_w, sdl.K_UP:
		app.Camera.Keys.Up = pressed
	case sdl.K_s, sdl.K_DOWN:
		app.Camera.Keys.Down = pressed
	case sdl.K_a:
		app.Camera.Keys.Left = pressed
	case sdl.K_d:
		app.Camera.Keys.Right = pressed
	}

	if !pressed {
		return
	}

	if app.Overlay.HandleKey(e.Keysym.Sym, uint16(e.Keysym.Mod)) {
		return
	}

	switch e.Keysym.Sym {
	case sdl.K_p:
		app.Paused = !app.Paused
	default:
		if app.OnKey != nil {
			app.OnKey(e.Keysym.Sym)
		}
	}
}

func (app *App) handleMouseMotion(e *sdl.MouseMotionEvent) {
	if e.State&sdl.ButtonLMask() == 0 {
		return
	}

	dx := float32(e.XRel) * app.Camera.RotationSpeed
	dy := float32(e.YRel) * app.Camera.RotationSpeed
	app.Camera.Rotate(mgl32.Vec3{dy, dx, 0})
}

// tick advances the animation timer and the window-title frame counter.
func (app *App) tick() {
	now := hrtime.Now().Seconds()
	app.FrameTime = now - app.frameStart
	app.frameStart = now

	if !app.Paused {
		app.Timer += app.TimerSpeed * app.FrameTime
		if app.Timer > 1.0 {
			app.Timer -= 1.0
		}
	}

	app.Camera.Update(float32(app.FrameTime))

	app.frameCounter++
	app.fpsTimer += app.FrameTime
	if app.fpsTimer >= 1.0 {
		fps := float64(app.frameCounter) / app.fpsTimer
		app.Window.SetTitle(fmt.Sprintf("%s - %.0f fps", app.Title, fps))
		app.frameCounter = 0
		app.fpsTimer = 0
	}
}

func (app *App) drawFrame() error {
	fences := []core1_0.Fence{app.inFlightFence[app.currentFrame]}

	_, err := app.Device.WaitForFences(true, common.NoTimeout, fences...)
	if err != nil {
		return err
	}

	imageIndex, res, err := app.SwapchainExtension.AcquireNextImage(app.Swapchain, common.NoTimeout, &app.imageAvailable[app.currentFrame], nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		return errors.Newf("swapchain lost (out of date) while acquiring an image")
	} else if err != nil {
		return err
	}

	if app.imagesInFlight[imageIndex].Initialized() {
		_, err = app.Device.WaitForFences(true, common.NoTimeout, app.imagesInFlight[imageIndex])
		if err != nil {
			return err
		}
	}
	app.imagesInFlight[imageIndex] = app.inFlightFence[app.currentFrame]

	_, err = app.Device.ResetFences(fences...)
	if err != nil {
		return err
	}

	if app.OnUpdate != nil {
		err = app.OnUpdate()
		if err != nil {
			return err
		}
	}

	err = app.Recorder.PrepareSubmit(imageIndex, app.recordCommandBuffers)
	if err != nil {
		return err
	}

	waitSemaphores := []core1_0.Semaphore{app.imageAvailable[app.currentFrame]}

	if len(app.PreSubmit) > 0 {
		_, err = app.Device.QueueSubmit(app.GraphicsQueue, nil,
			core1_0.SubmitInfo{
				WaitSemaphores:   waitSemaphores,
				WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
				CommandBuffers:   app.PreSubmit,
				SignalSemaphores: []core1_0.Semaphore{app.preSubmitDone},
			},
		)
		if err != nil {
			return err
		}
		waitSemaphores = []core1_0.Semaphore{app.preSubmitDone}
	}

	_, err = app.Device.QueueSubmit(app.GraphicsQueue, &app.inFlightFence[app.currentFrame],
		core1_0.SubmitInfo{
			WaitSemaphores:   waitSemaphores,
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{app.commandBuffers[imageIndex]},
			SignalSemaphores: []core1_0.Semaphore{app.renderFinished[imageIndex]},
		},
	)
	if err != nil {
		return err
	}

	res, err = app.SwapchainExtension.QueuePresent(app.PresentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{app.renderFinished[imageIndex]},
		Swapchains:     []khr_swapchain.Swapchain{app.Swapchain},
		ImageIndices:   []int{imageIndex},
	})
	if res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal {
		return errors.Newf("swapchain lost (out of date) while presenting")
	} else if err != nil {
		return err
	}

	app.lastPresented = imageIndex
	app.currentFrame = (app.currentFrame + 1) % MaxFramesInFlight

	return nil
}

// Destroy tears everything down in reverse creation order. Examples call
// it after destroying their own resources.
func (app *App) Destroy() {
	if app.Device != nil {
		_, _ = app.Device.DeviceWaitIdle()
	}

	err := app.SavePipelineCache(app.cachePath)
	if err != nil {
		LogWarn("could not save pipeline cache", "error", err)
	}

	app.DestroyShaderModules()

	if app.PipelineCache.Initialized() {
		app.Device.DestroyPipelineCache(app.PipelineCache, nil)
		app.PipelineCache = core1_0.PipelineCache{}
	}

	for _, fence := range app.inFlightFence {
		app.Device.DestroyFence(fence, nil)
	}
	app.inFlightFence = nil

	for _, semaphore := range app.renderFinished {
		app.Device.DestroySemaphore(semaphore, nil)
	}
	app.renderFinished = nil

	for _, semaphore := range app.imageAvailable {
		app.Device.DestroySemaphore(semaphore, nil)
	}
	app.imageAvailable = nil

	if app.preSubmitDone.Initialized() {
		app.Device.DestroySemaphore(app.preSubmitDone, nil)
		app.preSubmitDone = core1_0.Semaphore{}
	}

	if len(app.commandBuffers) > 0 {
		app.Device.FreeCommandBuffers(app.commandBuffers...)
		app.commandBuffers = nil
	}

	for _, framebuffer := range app.Framebuffers {
		app.Device.DestroyFramebuffer(framebuffer, nil)
	}
	app.Framebuffers = nil

	if app.RenderPass.Initialized() {
		app.Device.DestroyRenderPass(app.RenderPass, nil)
		app.RenderPass = core1_0.RenderPass{}
	}

	if app.depthView.Initialized() {
		app.Device.DestroyImageView(app.depthView, nil)
		app.depthView = core1_0.ImageView{}
	}

	if app.depthImage.Initialized() {
		app.Device.DestroyImage(app.depthImage, nil)
		app.depthImage = core1_0.Image{}
	}

	if app.depthMemory.Initialized() {
		app.Device.FreeMemory(app.depthMemory, nil)
		app.depthMemory = core1_0.DeviceMemory{}
	}

	for _, imageView := range app.swapchainImageViews {
		app.Device.DestroyImageView(imageView, nil)
	}
	app.swapchainImageViews = nil

	if app.Swapchain.Initialized() {
		app.SwapchainExtension.DestroySwapchain(app.Swapchain, nil)
		app.Swapchain = khr_swapchain.Swapchain{}
	}

	if app.CommandPool.Initialized() {
		app.Device.DestroyCommandPool(app.CommandPool, nil)
		app.CommandPool = core1_0.CommandPool{}
	}

	if app.Device != nil {
		app.Device.DestroyDevice(nil)
		app.Device = nil
	}

	if app.debugMessenger.Initialized() {
		app.debugDriver.DestroyDebugUtilsMessenger(app.debugMessenger, nil)
		app.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if app.surface.Initialized() {
		app.surfaceExtension.DestroySurface(app.surface, nil)
		app.surface = khr_surface.Surface{}
	}

	if app.InstanceDriver != nil {
		app.InstanceDriver.DestroyInstance(nil)
		app.InstanceDriver = nil
	}

	if app.Window != nil {
		app.Window.Destroy()
		app.Window = nil
	}
	sdl.Quit()
}
