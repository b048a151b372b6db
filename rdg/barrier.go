package rdg

import vk "github.com/vulkan-go/vulkan"

// Barrier is one synchronization point the executor must emit before a
// pass runs. Texture barriers always carry a layout transition (possibly
// a no-op one, Undefined handling aside); buffer barriers never do.
type Barrier struct {
	IsTexture bool

	TextureHandle TextureHandle
	OldLayout     vk.ImageLayout
	NewLayout     vk.ImageLayout
	Range         vk.ImageSubresourceRange
	Image         vk.Image

	BufferHandle BufferHandle
	Buffer       vk.Buffer
	Offset       vk.DeviceSize
	Size         vk.DeviceSize

	SrcStages vk.PipelineStageFlags
	DstStages vk.PipelineStageFlags
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags

	// SrcWasWrite records whether the resource's prior access (before
	// this barrier) was a write. Only consulted for same-layout texture
	// barriers, where it distinguishes a real RAW/WAW hazard from a
	// harmless read-after-read.
	SrcWasWrite bool
}

// needed reports whether this barrier actually changes anything the GPU
// must wait on. A texture barrier is always needed if the layout
// changes; if the layout is unchanged, it's needed only if the prior
// access was a write — consecutive reads with no intervening writer
// need nothing. A buffer barrier is needed if either side carries any
// access flags; bufferTransition drops read-after-read pairs before
// asking, so the buffer barriers that reach here involve a write.
func (b Barrier) needed() bool {
	if b.IsTexture {
		if b.OldLayout != b.NewLayout {
			return true
		}
		return b.SrcWasWrite
	}
	return b.SrcAccess != 0 || b.DstAccess != 0
}

// toImageBarrier builds the synchronization2-style image memory barrier
// vkCmdPipelineBarrier2 (or its KHR variant) expects.
func (b Barrier) toImageBarrier() vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       b.SrcAccess,
		DstAccessMask:       b.DstAccess,
		OldLayout:           b.OldLayout,
		NewLayout:           b.NewLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               b.Image,
		SubresourceRange:    b.Range,
	}
}

func (b Barrier) toBufferBarrier() vk.BufferMemoryBarrier {
	size := b.Size
	if size == 0 {
		size = vk.DeviceSize(vk.WholeSize)
	}
	return vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       b.SrcAccess,
		DstAccessMask:       b.DstAccess,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              b.Buffer,
		Offset:              b.Offset,
		Size:                size,
	}
}
