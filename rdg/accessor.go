package rdg

import vk "github.com/vulkan-go/vulkan"

// ResourceAccessor is handed to ExecuteCallbackEx callbacks, scoped to
// the one pass currently executing. It resolves the handles that pass
// declared into the physical objects the compiler bound them to; asking
// for a handle the pass never declared is a programming error.
type ResourceAccessor struct {
	graph   *Graph
	samplers *SamplerCache
}

func newResourceAccessor(g *Graph, samplers *SamplerCache) *ResourceAccessor {
	return &ResourceAccessor{graph: g, samplers: samplers}
}

// TextureView resolves h to the image view the compiler bound it to.
func (r *ResourceAccessor) TextureView(h TextureHandle) vk.ImageView {
	t, ok := r.graph.reg.texture(h)
	if !ok || t.backing == nil {
		return vk.NullImageView
	}
	return t.backing.View
}

// Texture resolves h to its underlying image.
func (r *ResourceAccessor) Texture(h TextureHandle) vk.Image {
	t, ok := r.graph.reg.texture(h)
	if !ok || t.backing == nil {
		return vk.NullImage
	}
	return t.backing.Image
}

// TextureLayout reports the layout h is in as of the currently executing
// pass, after the barrier synthesized for this pass (if any) is applied.
func (r *ResourceAccessor) TextureLayout(h TextureHandle) vk.ImageLayout {
	t, ok := r.graph.reg.texture(h)
	if !ok {
		return vk.ImageLayoutUndefined
	}
	return t.layout
}

// Buffer resolves h to its underlying buffer object.
func (r *ResourceAccessor) Buffer(h BufferHandle) vk.Buffer {
	b, ok := r.graph.reg.buffer(h)
	if !ok || b.backing == nil {
		return vk.NullBuffer
	}
	return b.backing.Buffer
}

// BufferObject is an alias of Buffer kept for symmetry with the external
// interface's buffer_object naming.
func (r *ResourceAccessor) BufferObject(h BufferHandle) vk.Buffer { return r.Buffer(h) }

// BufferDeviceAddress resolves h to its device address, valid only if
// the buffer was created (or imported) with the device-address usage
// flag set.
func (r *ResourceAccessor) BufferDeviceAddress(h BufferHandle) vk.DeviceAddress {
	b, ok := r.graph.reg.buffer(h)
	if !ok || b.backing == nil {
		return 0
	}
	return b.backing.Address
}

// Sampler resolves one of the graph's fixed sampler kinds to its shared
// vk.Sampler object.
func (r *ResourceAccessor) Sampler(kind SamplerKind) vk.Sampler {
	if r.samplers == nil {
		return vk.NullSampler
	}
	return r.samplers.Get(kind)
}
