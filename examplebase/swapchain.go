package examplebase

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// PreferredColorFormat is picked when the surface has no preference or
// lists it among its formats.
const PreferredColorFormat = core1_0.FormatB8G8R8A8UnsignedNormalized

type SwapChainBuffer struct {
	Image core1_0.Image
	View  core1_0.ImageView
}

// SwapChain wraps the surface swapchain and its per image views.
type SwapChain struct {
	instanceDriver   core1_0.CoreInstanceDriver
	deviceDriver     core1_0.CoreDeviceDriver
	surfaceExtension khr_surface.ExtensionDriver
	extension        khr_swapchain.ExtensionDriver
	physicalDevice   core1_0.PhysicalDevice
	surface          khr_surface.Surface

	Swapchain   khr_swapchain.Swapchain
	Buffers     []SwapChainBuffer
	Extent      core1_0.Extent2D
	ColorFormat core1_0.Format
	ColorSpace  khr_surface.ColorSpace

	// QueueNodeIndex is a queue family supporting both graphics and present
	QueueNodeIndex int
}

func (s *SwapChain) Connect(instanceDriver core1_0.CoreInstanceDriver, surfaceExtension khr_surface.ExtensionDriver, physicalDevice core1_0.PhysicalDevice, surface khr_surface.Surface) {
	s.instanceDriver = instanceDriver
	s.surfaceExtension = surfaceExtension
	s.physicalDevice = physicalDevice
	s.surface = surface
}

// InitSurface picks the queue family and the color format. Separate
// graphics and present queues are not supported.
func (s *SwapChain) InitSurface() error {
	queueFamilies := s.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(s.physicalDevice)

	graphicsIndex, presentIndex := -1, -1
	for i, queueFamily := range queueFamilies {
		supportsPresent, _, err := s.surfaceExtension.GetPhysicalDeviceSurfaceSupport(s.surface, s.physicalDevice, i)
		if err != nil {
			return errors.Wrapf(err, "query present support of queue family %d", i)
		}

		if queueFamily.QueueFlags&core1_0.QueueGraphics != 0 {
			if graphicsIndex < 0 {
				graphicsIndex = i
			}
			if supportsPresent {
				graphicsIndex = i
				presentIndex = i
				break
			}
		}
	}

	if graphicsIndex < 0 {
		return errors.New("no graphics queue family")
	}
	if presentIndex < 0 {
		return errors.New("no queue family supports both graphics and present")
	}
	s.QueueNodeIndex = graphicsIndex

	formats, _, err := s.surfaceExtension.GetPhysicalDeviceSurfaceFormats(s.surface, s.physicalDevice)
	if err != nil {
		return errors.Wrap(err, "query surface formats")
	}
	if len(formats) == 0 {
		return errors.New("surface reports no formats")
	}

	s.ColorFormat = formats[0].Format
	s.ColorSpace = formats[0].ColorSpace
	if len(formats) == 1 && formats[0].Format == core1_0.FormatUndefined {
		s.ColorFormat = PreferredColorFormat
		return nil
	}
	for _, format := range formats {
		if format.Format == PreferredColorFormat {
			s.ColorFormat = format.Format
			s.ColorSpace = format.ColorSpace
			break
		}
	}

	return nil
}

// Create builds the swapchain and an image view per image. width and height
// are used only when the surface leaves the extent to the application.
func (s *SwapChain) Create(deviceDriver core1_0.CoreDeviceDriver, width, height int) error {
	s.deviceDriver = deviceDriver
	s.extension = khr_swapchain.CreateExtensionDriverFromCoreDriver(deviceDriver)

	caps, _, err := s.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(s.surface, s.physicalDevice)
	if err != nil {
		return errors.Wrap(err, "query surface capabilities")
	}

	s.Extent = caps.CurrentExtent
	if s.Extent.Width == -1 {
		s.Extent = core1_0.Extent2D{Width: width, Height: height}
	}

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	preTransform := caps.CurrentTransform
	if caps.SupportedTransforms&khr_surface.TransformIdentity != 0 {
		preTransform = khr_surface.TransformIdentity
	}

	s.Swapchain, _, err = s.extension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface:          s.surface,
		MinImageCount:    imageCount,
		ImageFormat:      s.ColorFormat,
		ImageColorSpace:  s.ColorSpace,
		ImageExtent:      s.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,
		ImageSharingMode: core1_0.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   khr_surface.CompositeAlphaOpaque,
		PresentMode:      khr_surface.PresentModeFIFO,
		Clipped:          true,
	})
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}

	images, _, err := s.extension.GetSwapchainImages(s.Swapchain)
	if err != nil {
		return errors.Wrap(err, "get swapchain images")
	}

	s.Buffers = make([]SwapChainBuffer, 0, len(images))
	for i, image := range images {
		view, _, err := deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   s.ColorFormat,
			Components: core1_0.ComponentMapping{
				R: core1_0.ComponentSwizzleRed,
				G: core1_0.ComponentSwizzleGreen,
				B: core1_0.ComponentSwizzleBlue,
				A: core1_0.ComponentSwizzleAlpha,
			},
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			return errors.Wrapf(err, "create view for swapchain image %d", i)
		}

		s.Buffers = append(s.Buffers, SwapChainBuffer{Image: image, View: view})
	}

	return nil
}

func (s *SwapChain) ImageCount() int {
	return len(s.Buffers)
}

// AcquireNextImage blocks until an image is available. presentComplete is
// signaled when the image can be rendered to.
func (s *SwapChain) AcquireNextImage(presentComplete core1_0.Semaphore) (int, error) {
	imageIndex, _, err := s.extension.AcquireNextImage(s.Swapchain, common.NoTimeout, &presentComplete, nil)
	if err != nil {
		return 0, errors.Wrap(err, "acquire next swapchain image")
	}
	return imageIndex, nil
}

func (s *SwapChain) QueuePresent(queue core1_0.Queue, imageIndex int) error {
	_, err := s.extension.QueuePresent(queue, khr_swapchain.PresentInfo{
		Swapchains:   []khr_swapchain.Swapchain{s.Swapchain},
		ImageIndices: []int{imageIndex},
	})
	return errors.Wrapf(err, "present swapchain image %d", imageIndex)
}

func (s *SwapChain) Cleanup() {
	for _, buffer := range s.Buffers {
		s.deviceDriver.DestroyImageView(buffer.View, nil)
	}
	s.Buffers = nil

	if s.Swapchain.Initialized() {
		s.extension.DestroySwapchain(s.Swapchain, nil)
		s.Swapchain = khr_swapchain.Swapchain{}
	}
}
