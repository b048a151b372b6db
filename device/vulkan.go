package device

import (
	"fmt"
	"unsafe"

	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// DefaultVulkanApplicationInfo is the application info used when the
// caller has no reason to supply its own.
var DefaultVulkanApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 3, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   "qtrender\x00",
	PEngineName:        "qtrender\x00",
}

// requiredDeviceExtensions are always requested on top of whatever the
// caller passes to NewVulkanDevice; a swapchain is not optional for this
// engine's intended use.
var requiredDeviceExtensions = []string{
	vk.KhrSwapchainExtensionName + "\x00",
}

// optionalDeviceExtensions are enabled when present but the device is
// still usable without them; SupportsDynamicRendering and
// SupportsSynchronization2 report which ones actually made it in.
var optionalDeviceExtensions = []string{
	"VK_KHR_dynamic_rendering\x00",
	"VK_KHR_synchronization2\x00",
	"VK_KHR_buffer_device_address\x00",
}

// NewVulkanDevice creates a Vulkan instance and enumerates its physical
// devices. The returned *Vulkan has no surface, logical device or queues
// yet: call SetSurface (if presenting) and then Open to finish selecting
// a physical device and bringing up the logical device.
//
// getInstanceProcAddr is the platform loader function pointer, typically
// obtained from sdl.VulkanGetVkGetInstanceProcAddr(); pass 0 to use the
// statically linked loader.
func NewVulkanDevice(appInfo *vk.ApplicationInfo, getInstanceProcAddr uintptr) (*Vulkan, error) {
	if getInstanceProcAddr == 0 {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, fmt.Errorf("vk.SetDefaultGetInstanceProcAddr(): %w", err)
		}
	} else {
		vk.SetGetInstanceProcAddr(unsafe.Pointer(getInstanceProcAddr))
	}

	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vk.Init(): %w", err)
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	v := &Vulkan{}
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &v.instance)); err != nil {
		return nil, fmt.Errorf("vk.CreateInstance(): %w", err)
	}
	vk.InitInstance(v.instance)

	if err := v.enumerateDevices(); err != nil {
		v.Destroy()
		return nil, err
	}

	return v, nil
}

// Vulkan is the Vulkan implementation of Device.
type Vulkan struct {
	instance       vk.Instance
	surface        vk.Surface
	physicalDevice vk.PhysicalDevice
	device         vk.Device

	availableDevices []vk.PhysicalDevice

	graphicsQueue       vk.Queue
	graphicsQueueFamily uint32
	presentQueue        vk.Queue
	presentQueueFamily  uint32

	dynamicRendering    bool
	synchronization2    bool
	bufferDeviceAddress bool
}

func (v *Vulkan) enumerateDevices() error {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(v.instance, &deviceCount, nil)); err != nil {
		return fmt.Errorf("vk.EnumeratePhysicalDevices(count): %w", err)
	}
	if deviceCount == 0 {
		return fmt.Errorf("vulkan: no physical devices found")
	}
	v.availableDevices = make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(v.instance, &deviceCount, v.availableDevices)); err != nil {
		return fmt.Errorf("vk.EnumeratePhysicalDevices(devices): %w", err)
	}
	return nil
}

// SetSurface attaches a presentation surface created by the window
// toolkit (e.g. sdl.Window.VulkanCreateSurface) to this device. Call it
// before Open if the device needs to present.
func (v *Vulkan) SetSurface(pSurface unsafe.Pointer) {
	v.surface = vk.SurfaceFromPointer(uintptr(pSurface))
}

// Open selects a physical device (the first one DeviceIsSuitable accepts),
// opens a logical device against it, negotiates the dynamic-rendering,
// synchronization2 and buffer-device-address extensions, and acquires the
// graphics and present queues. It must be called once, after SetSurface
// if presentation is required.
func (v *Vulkan) Open(deviceIsSuitable func(PhysicalDeviceInfo) (bool, string)) error {
	infos := v.PhysicalDevices()

	chosen := -1
	for i, info := range infos {
		if info.Invalid {
			continue
		}
		if deviceIsSuitable == nil {
			chosen = i
			break
		}
		if ok, reason := deviceIsSuitable(info); ok {
			chosen = i
			break
		} else {
			log.WithFields(log.Fields{"device": info.Name}).Debugf("vulkan: device rejected: %s", reason)
		}
	}
	if chosen < 0 {
		return fmt.Errorf("vulkan: no suitable physical device found among %d candidates", len(infos))
	}
	v.physicalDevice = v.availableDevices[chosen]

	if err := v.findQueueFamilies(); err != nil {
		return err
	}

	supportedExt := v.supportedExtensionSet(v.physicalDevice)
	enabledExt := append([]string{}, requiredDeviceExtensions...)
	for _, ext := range optionalDeviceExtensions {
		if _, ok := supportedExt[ext]; ok {
			enabledExt = append(enabledExt, ext)
		}
	}

	if err := v.createLogicalDevice(enabledExt); err != nil {
		return err
	}

	vk.GetDeviceQueue(v.device, v.graphicsQueueFamily, 0, &v.graphicsQueue)
	if v.presentQueueFamily == v.graphicsQueueFamily {
		v.presentQueue = v.graphicsQueue
	} else {
		vk.GetDeviceQueue(v.device, v.presentQueueFamily, 0, &v.presentQueue)
	}

	return nil
}

// findQueueFamilies locates a graphics-capable queue family and, when a
// surface is set, a present-capable one. It prefers a single family that
// can do both and only falls back to a second, dedicated present queue
// when no combined family exists.
func (v *Vulkan) findQueueFamilies() error {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(v.physicalDevice, &count, nil)
	if count == 0 {
		return fmt.Errorf("vulkan: physical device exposes no queue families")
	}
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(v.physicalDevice, &count, families)

	graphicsFound := false
	presentFound := v.surface == nil
	for i := uint32(0); i < count; i++ {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}

		supportsPresent := v.surface == nil
		if v.surface != nil {
			var supported vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(v.physicalDevice, i, v.surface, &supported)
			supportsPresent = supported.B()
		}

		v.graphicsQueueFamily = i
		graphicsFound = true
		if supportsPresent {
			v.presentQueueFamily = i
			presentFound = true
			break
		}
	}
	if !graphicsFound {
		return fmt.Errorf("vulkan: no graphics-capable queue family found")
	}

	if !presentFound {
		for i := uint32(0); i < count; i++ {
			var supported vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(v.physicalDevice, i, v.surface, &supported)
			if supported.B() {
				v.presentQueueFamily = i
				presentFound = true
				break
			}
		}
	}
	if !presentFound {
		return fmt.Errorf("vulkan: surface set but no present-capable queue family found")
	}
	return nil
}

func (v *Vulkan) supportedExtensionSet(pd vk.PhysicalDevice) map[string]struct{} {
	var count uint32
	vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil)
	props := make([]vk.ExtensionProperties, count)
	vk.EnumerateDeviceExtensionProperties(pd, "", &count, props)

	set := make(map[string]struct{}, count)
	for _, p := range props {
		p.Deref()
		set[vk.ToString(p.ExtensionName[:])+"\x00"] = struct{}{}
	}
	return set
}

func (v *Vulkan) createLogicalDevice(enabledExtensions []string) error {
	families := uniqueUint32(v.graphicsQueueFamily, v.presentQueueFamily)
	queueInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, f := range families {
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: f,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		}
	}

	dynamicRenderingFeature := vk.PhysicalDeviceDynamicRenderingFeaturesKHR{
		SType:            vk.StructureTypePhysicalDeviceDynamicRenderingFeaturesKhr,
		DynamicRendering: vk.True,
	}
	sync2Feature := vk.PhysicalDeviceSynchronization2FeaturesKHR{
		SType:            vk.StructureTypePhysicalDeviceSynchronization2FeaturesKhr,
		Synchronization2: vk.True,
		PNext:            unsafe.Pointer(&dynamicRenderingFeature),
	}
	bdaFeature := vk.PhysicalDeviceBufferDeviceAddressFeatures{
		SType:               vk.StructureTypePhysicalDeviceBufferDeviceAddressFeatures,
		BufferDeviceAddress: vk.True,
		PNext:               unsafe.Pointer(&sync2Feature),
	}

	v.dynamicRendering = extensionEnabled(enabledExtensions, "VK_KHR_dynamic_rendering\x00")
	v.synchronization2 = extensionEnabled(enabledExtensions, "VK_KHR_synchronization2\x00")
	v.bufferDeviceAddress = extensionEnabled(enabledExtensions, "VK_KHR_buffer_device_address\x00")

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(enabledExtensions)),
		PpEnabledExtensionNames: enabledExtensions,
		PNext:                   unsafe.Pointer(&bdaFeature),
	}

	var logicalDevice vk.Device
	if err := vk.Error(vk.CreateDevice(v.physicalDevice, &dci, nil, &logicalDevice)); err != nil {
		return fmt.Errorf("vk.CreateDevice(): %w", err)
	}
	v.device = logicalDevice
	return nil
}

func extensionEnabled(enabled []string, name string) bool {
	for _, e := range enabled {
		if e == name {
			return true
		}
	}
	return false
}

func uniqueUint32(values ...uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(values))
	out := make([]uint32, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// PhysicalDevices implements Device.
func (v *Vulkan) PhysicalDevices() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(v.availableDevices))
	for i := 0; i < len(v.availableDevices); i++ {
		var numExt uint32
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(v.availableDevices[i], "", &numExt, nil)); err != nil {
			pdi[i].Invalid = true
		}
		ext := make([]vk.ExtensionProperties, numExt)
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(v.availableDevices[i], "", &numExt, ext)); err != nil {
			pdi[i].Invalid = true
		}
		for _, e := range ext {
			e.Deref()
			pdi[i].Extensions = append(pdi[i].Extensions, vk.ToString(e.ExtensionName[:]))
		}

		var numLayers uint32
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(v.availableDevices[i], &numLayers, nil)); err != nil {
			pdi[i].Invalid = true
		}
		layers := make([]vk.LayerProperties, numLayers)
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(v.availableDevices[i], &numLayers, layers)); err != nil {
			pdi[i].Invalid = true
		}
		for _, l := range layers {
			l.Deref()
			pdi[i].Layers = append(pdi[i].Layers, vk.ToString(l.LayerName[:]))
		}

		var memProps vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(v.availableDevices[i], &memProps)
		memProps.Deref()
		for m := uint32(0); m < memProps.MemoryHeapCount; m++ {
			memProps.MemoryHeaps[m].Deref()
			pdi[i].Memory += memProps.MemoryHeaps[m].Size
		}

		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(v.availableDevices[i], &props)
		props.Deref()
		pdi[i].ID = int(props.DeviceID)
		pdi[i].VendorID = int(props.VendorID)
		pdi[i].Name = vk.ToString(props.DeviceName[:])
		pdi[i].DriverVersion = int(props.DriverVersion)

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(v.availableDevices[i], &features)
		features.Deref()
		pdi[i].Features = features
	}
	return pdi
}

// Instance implements Device.
func (v *Vulkan) Instance() vk.Instance { return v.instance }

// Handle implements Device.
func (v *Vulkan) Handle() vk.Device { return v.device }

// PhysicalDevice implements Device.
func (v *Vulkan) PhysicalDevice() vk.PhysicalDevice { return v.physicalDevice }

// Surface implements Device.
func (v *Vulkan) Surface() vk.Surface {
	if v.surface == nil {
		return vk.NullSurface
	}
	return v.surface
}

// GraphicsQueue implements Device.
func (v *Vulkan) GraphicsQueue() (vk.Queue, uint32) { return v.graphicsQueue, v.graphicsQueueFamily }

// PresentQueue implements Device.
func (v *Vulkan) PresentQueue() (vk.Queue, uint32) { return v.presentQueue, v.presentQueueFamily }

// SupportsDynamicRendering implements Device.
func (v *Vulkan) SupportsDynamicRendering() bool { return v.dynamicRendering }

// SupportsSynchronization2 implements Device.
func (v *Vulkan) SupportsSynchronization2() bool { return v.synchronization2 }

// SupportsBufferDeviceAddress implements Device.
func (v *Vulkan) SupportsBufferDeviceAddress() bool { return v.bufferDeviceAddress }

// Destroy implements Device.
func (v *Vulkan) Destroy() {
	if v == nil {
		return
	}
	if v.device != nil {
		vk.DestroyDevice(v.device, nil)
	}
	v.availableDevices = nil
	if v.instance != nil {
		vk.DestroyInstance(v.instance, nil)
	}
}
