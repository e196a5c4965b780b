// Package examplebase is the shell every example is built on: it opens the
// window, brings up the Vulkan device, swapchain, depth buffer, render pass
// and framebuffers, and runs the render loop. Examples embed *Base and
// implement Example.
package examplebase

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/vulkanexamples/examplebase/camera"
	"github.com/vkngwrapper/vulkanexamples/examplebase/config"
	"github.com/vkngwrapper/vulkanexamples/examplebase/frame"
	"github.com/vkngwrapper/vulkanexamples/examplebase/pipelinecache"
	"github.com/vkngwrapper/vulkanexamples/examplebase/timer"
)

// Example is implemented by each sample on top of Base.
type Example interface {
	// Render draws one frame.
	Render() error
	// ViewChanged is called after the camera moved, typically to refresh
	// view dependent uniform buffers.
	ViewChanged() error
}

// KeyHandler can optionally be implemented by an Example to react to key
// presses the base does not consume.
type KeyHandler interface {
	KeyPressed(key sdl.Keycode) error
}

type DepthStencil struct {
	Image core1_0.Image
	Mem   core1_0.DeviceMemory
	View  core1_0.ImageView
}

type Base struct {
	Settings config.Settings
	Logger   *log.Logger

	Window *sdl.Window

	GlobalDriver   core1_0.GlobalDriver
	InstanceDriver core1_0.CoreInstanceDriver
	DeviceDriver   core1_0.CoreDeviceDriver

	debugDriver      ext_debug_utils.ExtensionDriver
	debugMessenger   ext_debug_utils.DebugUtilsMessenger
	SurfaceExtension khr_surface.ExtensionDriver
	Surface          khr_surface.Surface

	PhysicalDevice       core1_0.PhysicalDevice
	DeviceName           string
	MaxPushConstantsSize int
	DeviceIdentity       pipelinecache.Identity

	// Queue is the graphics queue command buffers are submitted to
	Queue            core1_0.Queue
	QueueFamilyIndex int

	DepthFormat core1_0.Format

	CmdPool              core1_0.CommandPool
	setupCmdBuffer       core1_0.CommandBuffer
	postPresentCmdBuffer core1_0.CommandBuffer
	// DrawCmdBuffers holds one command buffer per swapchain image
	DrawCmdBuffers []core1_0.CommandBuffer

	RenderPass     core1_0.RenderPass
	FrameBuffers   []core1_0.Framebuffer
	DescriptorPool core1_0.DescriptorPool
	PipelineCache  core1_0.PipelineCache
	shaderModules  []core1_0.ShaderModule

	SwapChain    *SwapChain
	DepthStencil DepthStencil

	cycle           frame.Cycle
	presentComplete core1_0.Semaphore

	Prepared          bool
	Width, Height     int
	DefaultClearColor core1_0.ClearValueFloat

	Timer  *timer.Timer
	Camera *camera.View

	quit bool
}

func New(settings config.Settings, logger *log.Logger) *Base {
	return &Base{
		Settings:          settings,
		Logger:            logger,
		Width:             settings.Width,
		Height:            settings.Height,
		DefaultClearColor: core1_0.ClearValueFloat{0.025, 0.025, 0.025, 1.0},
		Timer:             timer.New(),
		Camera:            camera.NewView(),
	}
}

// Draw runs one acquire/submit/present cycle.
func (b *Base) Draw() error {
	return b.cycle.Run(b)
}

// Quit asks the render loop to stop after the current frame.
func (b *Base) Quit() {
	b.quit = true
}

// Destroy releases everything owned by the base in reverse creation order.
// Resources that were never created are skipped, so it is safe after a
// partial initialization.
func (b *Base) Destroy() {
	if b.DeviceDriver != nil {
		if _, err := b.DeviceDriver.DeviceWaitIdle(); err != nil {
			b.Logger.Error("wait for device idle", "err", err)
		}

		if b.presentComplete.Initialized() {
			b.DeviceDriver.DestroySemaphore(b.presentComplete, nil)
		}

		if b.SwapChain != nil {
			b.SwapChain.Cleanup()
		}

		if b.DescriptorPool.Initialized() {
			b.DeviceDriver.DestroyDescriptorPool(b.DescriptorPool, nil)
		}

		b.DestroyCommandBuffers()
		if b.setupCmdBuffer.Initialized() {
			b.DeviceDriver.FreeCommandBuffers(b.setupCmdBuffer)
		}
		if b.postPresentCmdBuffer.Initialized() {
			b.DeviceDriver.FreeCommandBuffers(b.postPresentCmdBuffer)
		}

		if b.RenderPass.Initialized() {
			b.DeviceDriver.DestroyRenderPass(b.RenderPass, nil)
		}

		for _, framebuffer := range b.FrameBuffers {
			b.DeviceDriver.DestroyFramebuffer(framebuffer, nil)
		}
		b.FrameBuffers = nil

		for _, module := range b.shaderModules {
			b.DeviceDriver.DestroyShaderModule(module, nil)
		}
		b.shaderModules = nil

		if b.DepthStencil.View.Initialized() {
			b.DeviceDriver.DestroyImageView(b.DepthStencil.View, nil)
		}
		if b.DepthStencil.Image.Initialized() {
			b.DeviceDriver.DestroyImage(b.DepthStencil.Image, nil)
		}
		if b.DepthStencil.Mem.Initialized() {
			b.DeviceDriver.FreeMemory(b.DepthStencil.Mem, nil)
		}

		if b.PipelineCache.Initialized() {
			b.savePipelineCache()
			b.DeviceDriver.DestroyPipelineCache(b.PipelineCache, nil)
		}

		if b.CmdPool.Initialized() {
			b.DeviceDriver.DestroyCommandPool(b.CmdPool, nil)
		}

		b.DeviceDriver.DestroyDevice(nil)
	}

	if b.debugMessenger.Initialized() {
		b.debugDriver.DestroyDebugUtilsMessenger(b.debugMessenger, nil)
	}

	if b.Surface.Initialized() {
		b.SurfaceExtension.DestroySurface(b.Surface, nil)
	}

	if b.InstanceDriver != nil {
		b.InstanceDriver.DestroyInstance(nil)
	}

	if b.Window != nil {
		if err := b.Window.Destroy(); err != nil {
			b.Logger.Error("destroy window", "err", errors.WithStack(err))
		}
	}
	sdl.Quit()
}
