package device

import vk "github.com/vulkan-go/vulkan"

// PhysicalDeviceInfo describes the properties of one enumerated physical
// device, gathered for device-selection and diagnostics purposes.
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        vk.DeviceSize
	Features      vk.PhysicalDeviceFeatures
}

// Device describes a selected, initialised rendering device: an instance,
// a chosen physical device and the logical device and queues opened
// against it. It satisfies rdg.Device directly so a *Vulkan can be handed
// straight to rdg.NewGraph.
type Device interface {
	// PhysicalDevices reports every physical device the instance saw,
	// whether or not it was the one selected.
	PhysicalDevices() []PhysicalDeviceInfo

	// Instance returns the underlying vk.Instance.
	Instance() vk.Instance

	// Handle returns the opened logical device.
	Handle() vk.Device

	// PhysicalDevice returns the physical device that was selected.
	PhysicalDevice() vk.PhysicalDevice

	// Surface returns the presentation surface, or vk.NullSurface if
	// none was set.
	Surface() vk.Surface

	// GraphicsQueue returns the queue used for graphics and compute
	// submissions along with its queue family index.
	GraphicsQueue() (vk.Queue, uint32)

	// PresentQueue returns the queue used to present swapchain images
	// along with its queue family index. It may be the same queue and
	// family as GraphicsQueue.
	PresentQueue() (vk.Queue, uint32)

	// SupportsDynamicRendering reports whether VK_KHR_dynamic_rendering
	// was available and enabled on this device.
	SupportsDynamicRendering() bool

	// SupportsSynchronization2 reports whether VK_KHR_synchronization2
	// was available and enabled on this device.
	SupportsSynchronization2() bool

	// SupportsBufferDeviceAddress reports whether
	// VK_KHR_buffer_device_address was available and enabled.
	SupportsBufferDeviceAddress() bool

	// Destroy destroys the logical device and instance. The surface, if
	// any, is the caller's responsibility since it was created outside
	// this package (typically from an SDL window).
	Destroy()
}
