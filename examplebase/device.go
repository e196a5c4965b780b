package examplebase

import (
	"github.com/cockroachdb/errors"
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
	"github.com/vkngwrapper/vulkanexamples/examplebase/pipelinecache"
)

const engineName = "vulkanexamples"

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// depthFormats is walked in order until one supports optimal tiling depth
// stencil attachments.
var depthFormats = []core1_0.Format{
	core1_0.FormatD32SignedFloatS8UnsignedInt,
	core1_0.FormatD32SignedFloat,
	core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
	core1_0.FormatD16UnsignedNormalizedS8UnsignedInt,
	core1_0.FormatD16UnsignedNormalized,
}

// SetupWindow creates the SDL window and loads the Vulkan loader through it.
func (b *Base) SetupWindow() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return errors.Wrap(err, "initialize sdl")
	}

	window, err := sdl.CreateWindow(b.Settings.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(b.Width), int32(b.Height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN)
	if err != nil {
		return errors.Wrap(err, "create window")
	}
	b.Window = window

	b.GlobalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	return errors.Wrap(err, "load vulkan driver")
}

// InitVulkan creates the instance, the validation messenger, the window
// surface, the logical device and its graphics queue.
func (b *Base) InitVulkan() error {
	if err := b.createInstance(); err != nil {
		return err
	}

	if b.Settings.Validation {
		var err error
		b.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(b.InstanceDriver)
		b.debugMessenger, _, err = b.debugDriver.CreateDebugUtilsMessenger(nil, b.debugMessengerOptions())
		if err != nil {
			return errors.Wrap(err, "create debug messenger")
		}
	}

	b.SurfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(b.InstanceDriver)
	surface, err := vkng_sdl2.CreateSurface(b.InstanceDriver.Instance(), b.SurfaceExtension, b.Window)
	if err != nil {
		return errors.Wrap(err, "create surface")
	}
	b.Surface = surface

	if err := b.pickPhysicalDevice(); err != nil {
		return err
	}

	b.SwapChain = &SwapChain{}
	b.SwapChain.Connect(b.InstanceDriver, b.SurfaceExtension, b.PhysicalDevice, b.Surface)
	if err := b.SwapChain.InitSurface(); err != nil {
		return err
	}
	b.QueueFamilyIndex = b.SwapChain.QueueNodeIndex

	if err := b.createLogicalDevice(); err != nil {
		return err
	}

	b.DepthFormat, err = b.supportedDepthFormat()
	return err
}

func (b *Base) createInstance() error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    b.Settings.Title,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         engineName,
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_0,
	}

	extensions, _, err := b.GlobalDriver.AvailableExtensions()
	if err != nil {
		return errors.Wrap(err, "enumerate instance extensions")
	}

	for _, ext := range b.Window.VulkanGetInstanceExtensions() {
		if _, hasExt := extensions[ext]; !hasExt {
			return errors.Newf("missing instance extension %s required by sdl", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if _, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]; enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if b.Settings.Validation {
		layers, _, err := b.GlobalDriver.AvailableLayers()
		if err != nil {
			return errors.Wrap(err, "enumerate instance layers")
		}

		for _, layer := range validationLayers {
			if _, hasLayer := layers[layer]; !hasLayer {
				return errors.Newf("validation layer %s not available, install the Vulkan SDK", layer)
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
		// Catches messages emitted during instance creation itself
		instanceOptions.Next = b.debugMessengerOptions()
	}

	instance, _, err := b.GlobalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return errors.Wrap(err, "create instance")
	}

	b.InstanceDriver, err = b.GlobalDriver.BuildInstanceDriver(instance)
	return errors.Wrap(err, "build instance driver")
}

func (b *Base) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    b.logValidation,
	}
}

func (b *Base) logValidation(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	if severity&ext_debug_utils.SeverityError != 0 {
		b.Logger.Error(data.Message, "type", msgType)
	} else {
		b.Logger.Warn(data.Message, "type", msgType)
	}
	return false
}

func (b *Base) pickPhysicalDevice() error {
	physicalDevices, _, err := b.InstanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "enumerate physical devices")
	}
	if len(physicalDevices) == 0 {
		return errors.New("no vulkan capable gpu found")
	}

	// Always the first GPU, there is no device selection
	b.PhysicalDevice = physicalDevices[0]

	properties, err := b.InstanceDriver.GetPhysicalDeviceProperties(b.PhysicalDevice)
	if err != nil {
		return errors.Wrap(err, "query physical device properties")
	}

	b.DeviceName = properties.DriverName
	b.MaxPushConstantsSize = properties.Limits.MaxPushConstantsSize
	b.DeviceIdentity = pipelinecache.Identity{
		VendorID:  properties.VendorID,
		DeviceID:  properties.DeviceID,
		CacheUUID: properties.PipelineCacheUUID,
	}

	b.Logger.Info("selected gpu", "name", b.DeviceName, "maxPushConstantsSize", b.MaxPushConstantsSize)
	return nil
}

func (b *Base) createLogicalDevice() error {
	extensionNames := []string{khr_swapchain.ExtensionName}

	extensions, _, err := b.InstanceDriver.EnumerateDeviceExtensionProperties(b.PhysicalDevice)
	if err != nil {
		return errors.Wrap(err, "enumerate device extensions")
	}

	if _, hasSwapchain := extensions[khr_swapchain.ExtensionName]; !hasSwapchain {
		return errors.Newf("device does not support %s", khr_swapchain.ExtensionName)
	}

	if _, supported := extensions[khr_portability_subset.ExtensionName]; supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	device, _, err := b.InstanceDriver.CreateDevice(b.PhysicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{
			{
				QueueFamilyIndex: b.QueueFamilyIndex,
				QueuePriorities:  []float32{0.0},
			},
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return errors.Wrap(err, "create device")
	}

	b.DeviceDriver, err = b.InstanceDriver.BuildDeviceDriver(device)
	if err != nil {
		return errors.Wrap(err, "build device driver")
	}

	b.Queue = b.DeviceDriver.GetQueue(b.QueueFamilyIndex, 0)
	return nil
}

func (b *Base) supportedDepthFormat() (core1_0.Format, error) {
	for _, format := range depthFormats {
		props := b.InstanceDriver.GetPhysicalDeviceFormatProperties(b.PhysicalDevice, format)
		if props.OptimalTilingFeatures&core1_0.FormatFeatureDepthStencilAttachment != 0 {
			return format, nil
		}
	}

	return 0, errors.New("no depth stencil format with optimal tiling support")
}

// MemoryType returns the index of the first memory type allowed by typeBits
// that has every flag in properties.
func (b *Base) MemoryType(typeBits uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := b.InstanceDriver.GetPhysicalDeviceMemoryProperties(b.PhysicalDevice)
	for i, memoryType := range memProperties.MemoryTypes {
		typeBit := uint32(1 << i)

		if (typeBits&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Newf("no memory type for bits %b with properties %s", typeBits, properties)
}
