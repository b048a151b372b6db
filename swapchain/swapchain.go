// Package swapchain owns the presentable images a device renders into.
// It holds no semaphores: AcquireNext and Present take the ones owned by
// rdg.FrameSyncManager. It satisfies rdg.SwapchainImageProvider
// directly, so a *Swapchain can be handed straight to
// Graph.GetSwapchainAttachment.
package swapchain

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/shanyu-yun/qtrender/device"
	"github.com/shanyu-yun/qtrender/rdg"
)

// Swapchain wraps a vk.Swapchain and its images and views.
type Swapchain struct {
	device device.Device

	handle vk.Swapchain
	format vk.Format
	extent rdg.Extent3D

	images []vk.Image
	views  []vk.ImageView
}

// Config controls how the swapchain is created.
type Config struct {
	// MinImageCount is the number of images requested; the driver may
	// return more. 3 gives triple buffering headroom without the caller
	// needing to reason about present-mode latency.
	MinImageCount uint32
	Width         uint32
	Height        uint32
}

// New creates a swapchain on dev's surface, picking B8G8R8A8_UNORM with
// the sRGB-nonlinear color space when supported (else the first supported
// surface format) and falling back from Mailbox to Fifo (which every
// conformant implementation must support) for the present mode.
func New(dev device.Device, cfg Config, old vk.Swapchain) (*Swapchain, error) {
	physicalDevice := dev.PhysicalDevice()
	surface := dev.Surface()

	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &caps)); err != nil {
		return nil, fmt.Errorf("vk.GetPhysicalDeviceSurfaceCapabilities(): %w", err)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	width, height := cfg.Width, cfg.Height
	if caps.CurrentExtent.Width != 0xFFFFFFFF {
		width = caps.CurrentExtent.Width
		height = caps.CurrentExtent.Height
	}

	format, colorSpace, err := chooseSurfaceFormat(physicalDevice, surface)
	if err != nil {
		return nil, err
	}
	presentMode := choosePresentMode(physicalDevice, surface)
	compositeAlpha := chooseCompositeAlpha(caps)

	minImages := cfg.MinImageCount
	if minImages < caps.MinImageCount {
		minImages = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && minImages > caps.MaxImageCount {
		minImages = caps.MaxImageCount
	}

	sharingMode := vk.SharingModeExclusive
	var queueFamilies []uint32
	_, graphicsFamily := dev.GraphicsQueue()
	_, presentFamily := dev.PresentQueue()
	if graphicsFamily != presentFamily {
		sharingMode = vk.SharingModeConcurrent
		queueFamilies = []uint32{graphicsFamily, presentFamily}
	}

	sci := vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               surface,
		MinImageCount:         minImages,
		ImageFormat:           format,
		ImageColorSpace:       colorSpace,
		ImageExtent:           vk.Extent2D{Width: width, Height: height},
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharingMode,
		QueueFamilyIndexCount: uint32(len(queueFamilies)),
		PQueueFamilyIndices:   queueFamilies,
		PreTransform:          caps.CurrentTransform,
		CompositeAlpha:        compositeAlpha,
		PresentMode:           presentMode,
		Clipped:               vk.True,
		OldSwapchain:          old,
	}

	var handle vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(dev.Handle(), &sci, nil, &handle)); err != nil {
		return nil, fmt.Errorf("vk.CreateSwapchain(): %w", err)
	}

	sc := &Swapchain{
		device: dev,
		handle: handle,
		format: format,
		extent: rdg.Extent3D{Width: width, Height: height, Depth: 1},
	}
	if err := sc.fetchImages(); err != nil {
		sc.Destroy()
		return nil, err
	}
	if err := sc.createImageViews(); err != nil {
		sc.Destroy()
		return nil, err
	}
	return sc, nil
}

func chooseSurfaceFormat(pd vk.PhysicalDevice, surface vk.Surface) (vk.Format, vk.ColorSpace, error) {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &count, nil)); err != nil {
		return 0, 0, fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(count): %w", err)
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &count, formats)); err != nil {
		return 0, 0, fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(formats): %w", err)
	}
	for _, f := range formats {
		f.Deref()
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f.Format, f.ColorSpace, nil
		}
	}
	formats[0].Deref()
	return formats[0].Format, formats[0].ColorSpace, nil
}

func choosePresentMode(pd vk.PhysicalDevice, surface vk.Surface) vk.PresentMode {
	var count uint32
	vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &count, nil)
	modes := make([]vk.PresentMode, count)
	vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &count, modes)
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

func chooseCompositeAlpha(caps vk.SurfaceCapabilities) vk.CompositeAlphaFlagBits {
	candidates := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}
	for _, c := range candidates {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(c) != 0 {
			return c
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func (sc *Swapchain) fetchImages() error {
	var count uint32
	if err := vk.Error(vk.GetSwapchainImages(sc.device.Handle(), sc.handle, &count, nil)); err != nil {
		return fmt.Errorf("vk.GetSwapchainImages(count): %w", err)
	}
	sc.images = make([]vk.Image, count)
	if err := vk.Error(vk.GetSwapchainImages(sc.device.Handle(), sc.handle, &count, sc.images)); err != nil {
		return fmt.Errorf("vk.GetSwapchainImages(images): %w", err)
	}
	return nil
}

func (sc *Swapchain) createImageViews() error {
	sc.views = make([]vk.ImageView, len(sc.images))
	for i, img := range sc.images {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   sc.format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		var view vk.ImageView
		if err := vk.Error(vk.CreateImageView(sc.device.Handle(), &ivci, nil, &view)); err != nil {
			return fmt.Errorf("vk.CreateImageView(%d): %w", i, err)
		}
		sc.views[i] = view
	}
	return nil
}

// AcquireNext waits (up to timeout, vk.MaxUint64 to block indefinitely)
// for the next presentable image and returns its index. signal is the
// semaphore the presentation engine signals once the image is actually
// available for rendering — pass the current frame slot's
// rdg.SyncBundle.ImageAvailable so the graph's first pass can wait on it.
func (sc *Swapchain) AcquireNext(timeout uint64, signal vk.Semaphore) (uint32, error) {
	var index uint32
	if err := vk.Error(vk.AcquireNextImage(sc.device.Handle(), sc.handle, timeout, signal, vk.NullFence, &index)); err != nil {
		return 0, fmt.Errorf("vk.AcquireNextImage(): %w", err)
	}
	return index, nil
}

// Present queues imageIndex for presentation on queue, waiting on wait
// (typically the render-finished semaphore the graph signaled).
func (sc *Swapchain) Present(queue vk.Queue, imageIndex uint32, wait vk.Semaphore) error {
	pi := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.handle},
		PImageIndices:      []uint32{imageIndex},
	}
	return vk.Error(vk.QueuePresent(queue, &pi))
}

// Image implements rdg.SwapchainImageProvider.
func (sc *Swapchain) Image(index uint32) vk.Image { return sc.images[index] }

// ImageView implements rdg.SwapchainImageProvider.
func (sc *Swapchain) ImageView(index uint32) vk.ImageView { return sc.views[index] }

// Format implements rdg.SwapchainImageProvider.
func (sc *Swapchain) Format() vk.Format { return sc.format }

// Extent implements rdg.SwapchainImageProvider.
func (sc *Swapchain) Extent() rdg.Extent3D { return sc.extent }

// ImageCount reports how many presentable images this swapchain holds.
func (sc *Swapchain) ImageCount() int { return len(sc.images) }

// Handle returns the underlying vk.Swapchain, needed when recreating the
// swapchain on resize (passed as OldSwapchain) or destroying it.
func (sc *Swapchain) Handle() vk.Swapchain { return sc.handle }

// Destroy releases every view and the swapchain itself.
func (sc *Swapchain) Destroy() {
	if sc == nil {
		return
	}
	for _, v := range sc.views {
		vk.DestroyImageView(sc.device.Handle(), v, nil)
	}
	if sc.handle != nil {
		vk.DestroySwapchain(sc.device.Handle(), sc.handle, nil)
	}
}
