package rdg

import (
	vk "github.com/vulkan-go/vulkan"
)

// resourceOrigin distinguishes graph-owned transients from caller-owned
// external resources.
type resourceOrigin uint8

const (
	originTransient resourceOrigin = iota
	originExternal
)

// lifetime is the inclusive pass-index interval [First, Last] over which a
// resource is read or written. A resource that is never touched stays
// !Used, and the compiler never allocates it.
type lifetime struct {
	First uint32
	Last  uint32
	Used  bool
}

func (l *lifetime) touch(passIndex int) {
	idx := uint32(passIndex)
	if !l.Used {
		l.First = idx
		l.Last = idx
		l.Used = true
		return
	}
	if idx < l.First {
		l.First = idx
	}
	if idx > l.Last {
		l.Last = idx
	}
}

// overlaps reports whether two lifetimes share any pass index. Two unused
// lifetimes never overlap.
func (l lifetime) overlaps(o lifetime) bool {
	if !l.Used || !o.Used {
		return false
	}
	return l.First <= o.Last && o.First <= l.Last
}

// BackingImage is the physical image bound to a texture handle once the
// compiler allocates or recycles it. Transient backings are created and
// destroyed by the Allocator; imported backings are supplied by the caller
// and outlive the frame.
type BackingImage struct {
	Image  vk.Image
	View   vk.ImageView
	Desc   TextureDesc
	Memory vk.DeviceMemory
}

// BackingBuffer is the physical buffer bound to a buffer handle.
type BackingBuffer struct {
	Buffer  vk.Buffer
	Address vk.DeviceAddress
	Desc    BufferDesc
	Memory  vk.DeviceMemory
}

// Allocator creates and destroys the physical GPU resources backing
// transient textures and buffers. Implementations typically wrap a memory
// allocator that services GPU-local allocations for render targets and
// storage resources; the graph never allocates host-visible memory.
type Allocator interface {
	CreateImage(desc TextureDesc) (*BackingImage, error)
	DestroyImage(*BackingImage)
	CreateBuffer(desc BufferDesc) (*BackingBuffer, error)
	DestroyBuffer(*BackingBuffer)
}

// accessRecord is the per-resource bookkeeping the barrier synthesis phase
// carries forward from one touching pass to the next.
type accessRecord struct {
	stages   vk.PipelineStageFlags
	access   vk.AccessFlags
	wasWrite bool
}

// swapchainSlot back-references the swapchain image a texture resource
// was imported from; the compiler uses its presence to append the
// trailing present transition.
type swapchainSlot struct {
	imageIndex uint32
	provider   SwapchainImageProvider
}

// textureResource is the registry's internal record for one texture
// handle, whether transient or imported.
type textureResource struct {
	handle  TextureHandle
	name    string
	desc    TextureDesc
	origin  resourceOrigin
	life    lifetime
	access  accessRecord
	backing *BackingImage
	layout  vk.ImageLayout
	swap    *swapchainSlot
}

func (r *textureResource) isUsed() bool      { return r.life.Used }
func (r *textureResource) isTransient() bool { return r.origin == originTransient }

// canAliasWith reports whether r and o could legally share one backing:
// same descriptor, and their lifetimes must not overlap. Only transients
// are ever aliasing candidates.
func (r *textureResource) canAliasWith(o *textureResource) bool {
	if !r.isTransient() || !o.isTransient() {
		return false
	}
	if !r.desc.equalForAliasing(o.desc) {
		return false
	}
	return !r.life.overlaps(o.life)
}

// bufferResource is the registry's internal record for one buffer handle.
type bufferResource struct {
	handle  BufferHandle
	name    string
	desc    BufferDesc
	origin  resourceOrigin
	life    lifetime
	access  accessRecord
	backing *BackingBuffer
}

func (r *bufferResource) isUsed() bool      { return r.life.Used }
func (r *bufferResource) isTransient() bool { return r.origin == originTransient }

func (r *bufferResource) canAliasWith(o *bufferResource) bool {
	if !r.isTransient() || !o.isTransient() {
		return false
	}
	if !r.desc.compatibleForAliasing(o.desc) {
		return false
	}
	return !r.life.overlaps(o.life)
}

// registry is the authoritative per-frame table mapping handles to
// resource records. It is single-producer/single-consumer within a frame
// and requires no locking.
type registry struct {
	textures map[uint32]*textureResource
	buffers  map[uint32]*bufferResource
}

func newRegistry() *registry {
	return &registry{
		textures: make(map[uint32]*textureResource),
		buffers:  make(map[uint32]*bufferResource),
	}
}

func (r *registry) texture(h TextureHandle) (*textureResource, bool) {
	if !h.IsValid() {
		return nil, false
	}
	res, ok := r.textures[h.id]
	return res, ok
}

func (r *registry) buffer(h BufferHandle) (*bufferResource, bool) {
	if !h.IsValid() {
		return nil, false
	}
	res, ok := r.buffers[h.id]
	return res, ok
}

func (r *registry) allTextures() []*textureResource {
	out := make([]*textureResource, 0, len(r.textures))
	for _, t := range r.textures {
		out = append(out, t)
	}
	return out
}

func (r *registry) allBuffers() []*bufferResource {
	out := make([]*bufferResource, 0, len(r.buffers))
	for _, b := range r.buffers {
		out = append(out, b)
	}
	return out
}
