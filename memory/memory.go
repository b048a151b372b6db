// Package memory allocates the physical images and buffers a render
// dependency graph binds to its transient resource handles. It wraps
// raw vk.AllocateMemory/vk.BindImageMemory calls rather than a
// dedicated allocator library: no Vulkan memory allocator binding is
// available to this module, so allocation is done the way the rest of
// this codebase talks to the device directly.
package memory

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/shanyu-yun/qtrender/rdg"
)

// Allocator implements rdg.Allocator against a single logical device,
// one vk.AllocateMemory call per image/buffer. It does no sub-allocation
// or pooling of device memory itself — the graph's own aliasing pool
// (rdg.Pool) is what avoids most allocation traffic across frames; this
// type only has to be correct, not fast.
type Allocator struct {
	device         vk.Device
	physicalDevice vk.PhysicalDevice
}

// New creates an Allocator against dev.
func New(device vk.Device, physicalDevice vk.PhysicalDevice) *Allocator {
	return &Allocator{device: device, physicalDevice: physicalDevice}
}

// CreateImage implements rdg.Allocator.
func (a *Allocator) CreateImage(desc rdg.TextureDesc) (*rdg.BackingImage, error) {
	mipLevels := desc.MipLevels
	if mipLevels == 0 {
		mipLevels = 1
	}
	arrayLayers := desc.ArrayLayers
	if arrayLayers == 0 {
		arrayLayers = 1
	}
	samples := desc.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}
	tiling := desc.Tiling
	if tiling == 0 {
		tiling = vk.ImageTilingOptimal
	}

	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    desc.Format,
		Extent: vk.Extent3D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
			Depth:  maxUint32(desc.Extent.Depth, 1),
		},
		MipLevels:   mipLevels,
		ArrayLayers: arrayLayers,
		Samples:     samples,
		Tiling:      tiling,
		Usage:       desc.Usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var image vk.Image
	if err := vk.Error(vk.CreateImage(a.device, &ici, nil, &image)); err != nil {
		return nil, fmt.Errorf("memory: vk.CreateImage(%q): %w", desc.Name, err)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(a.device, image, &req)
	req.Deref()

	memory, err := a.allocate(req, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(a.device, image, nil)
		return nil, fmt.Errorf("memory: %q: %w", desc.Name, err)
	}
	if err := vk.Error(vk.BindImageMemory(a.device, image, memory, 0)); err != nil {
		vk.FreeMemory(a.device, memory, nil)
		vk.DestroyImage(a.device, image, nil)
		return nil, fmt.Errorf("memory: vk.BindImageMemory(%q): %w", desc.Name, err)
	}

	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   desc.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspectMaskForFormat(desc.Format),
			LevelCount: mipLevels,
			LayerCount: arrayLayers,
		},
	}
	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(a.device, &ivci, nil, &view)); err != nil {
		vk.FreeMemory(a.device, memory, nil)
		vk.DestroyImage(a.device, image, nil)
		return nil, fmt.Errorf("memory: vk.CreateImageView(%q): %w", desc.Name, err)
	}

	return &rdg.BackingImage{Image: image, View: view, Desc: desc, Memory: memory}, nil
}

// DestroyImage implements rdg.Allocator.
func (a *Allocator) DestroyImage(b *rdg.BackingImage) {
	if b == nil {
		return
	}
	vk.DestroyImageView(a.device, b.View, nil)
	vk.DestroyImage(a.device, b.Image, nil)
	vk.FreeMemory(a.device, b.Memory, nil)
}

// CreateBuffer implements rdg.Allocator.
func (a *Allocator) CreateBuffer(desc rdg.BufferDesc) (*rdg.BackingBuffer, error) {
	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       desc.Usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(a.device, &bci, nil, &buffer)); err != nil {
		return nil, fmt.Errorf("memory: vk.CreateBuffer(%q): %w", desc.Name, err)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(a.device, buffer, &req)
	req.Deref()

	memory, err := a.allocate(req, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyBuffer(a.device, buffer, nil)
		return nil, fmt.Errorf("memory: %q: %w", desc.Name, err)
	}
	if err := vk.Error(vk.BindBufferMemory(a.device, buffer, memory, 0)); err != nil {
		vk.FreeMemory(a.device, memory, nil)
		vk.DestroyBuffer(a.device, buffer, nil)
		return nil, fmt.Errorf("memory: vk.BindBufferMemory(%q): %w", desc.Name, err)
	}

	var address vk.DeviceAddress
	if desc.Usage&vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit) != 0 {
		address = vk.GetBufferDeviceAddress(a.device, &vk.BufferDeviceAddressInfo{
			SType:  vk.StructureTypeBufferDeviceAddressInfo,
			Buffer: buffer,
		})
	}

	return &rdg.BackingBuffer{Buffer: buffer, Address: address, Desc: desc, Memory: memory}, nil
}

// DestroyBuffer implements rdg.Allocator.
func (a *Allocator) DestroyBuffer(b *rdg.BackingBuffer) {
	if b == nil {
		return
	}
	vk.DestroyBuffer(a.device, b.Buffer, nil)
	vk.FreeMemory(a.device, b.Memory, nil)
}

func (a *Allocator) allocate(req vk.MemoryRequirements, properties vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	typeIndex, err := a.findMemoryType(req.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}
	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(a.device, &mai, nil, &memory)); err != nil {
		return nil, fmt.Errorf("vk.AllocateMemory(): %w", err)
	}
	return memory, nil
}

func (a *Allocator) findMemoryType(typeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(a.physicalDevice, &memProps)
	memProps.Deref()

	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		memProps.MemoryTypes[i].Deref()
		if memProps.MemoryTypes[i].PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no memory type satisfies bits %#x properties %v", typeBits, properties)
}

func aspectMaskForFormat(format vk.Format) vk.ImageAspectFlags {
	switch format {
	case vk.FormatD32Sfloat, vk.FormatD16Unorm, vk.FormatX8D24UnormPack32:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	case vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD16UnormS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit) | vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	default:
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
