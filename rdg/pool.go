package rdg

// Pool retains retired transient backings across frames so the compiler can
// satisfy a new frame's allocation requests without touching the GPU
// allocator. It outlives any single Graph: callers construct one Pool
// alongside their FrameSyncManager and pass it to every frame's Graph.
//
// Matching is bit-exact: a texture request must match format, extent,
// usage, mip count, array layer count and sample count; a buffer request must match
// usage and fit within the pooled buffer's size. This sidesteps the
// complexity of cross-format aliasing at the cost of some wasted memory
// when descriptors differ only cosmetically; see DESIGN.md.
type Pool struct {
	textures []*BackingImage
	buffers  []*BackingBuffer
}

// NewPool creates an empty transient resource pool.
func NewPool() *Pool {
	return &Pool{}
}

// acquireTexture pops a pooled backing matching desc, or returns nil on a
// miss. The caller is responsible for lifetime-overlap bookkeeping; the
// pool itself only matches on descriptor.
func (p *Pool) acquireTexture(desc TextureDesc) *BackingImage {
	for i, b := range p.textures {
		if b.Desc.equalForAliasing(desc) {
			p.textures = append(p.textures[:i], p.textures[i+1:]...)
			return b
		}
	}
	return nil
}

func (p *Pool) acquireBuffer(desc BufferDesc) *BackingBuffer {
	for i, b := range p.buffers {
		if desc.compatibleForAliasing(b.Desc) {
			p.buffers = append(p.buffers[:i], p.buffers[i+1:]...)
			return b
		}
	}
	return nil
}

// releaseTexture returns a backing to the pool for reuse by a later
// resource in this frame, or by a future frame.
func (p *Pool) releaseTexture(b *BackingImage) {
	if b != nil {
		p.textures = append(p.textures, b)
	}
}

func (p *Pool) releaseBuffer(b *BackingBuffer) {
	if b != nil {
		p.buffers = append(p.buffers, b)
	}
}

// TextureCount reports the number of retired texture backings currently
// held by the pool, for diagnostics.
func (p *Pool) TextureCount() int { return len(p.textures) }

// BufferCount reports the number of retired buffer backings currently
// held by the pool, for diagnostics.
func (p *Pool) BufferCount() int { return len(p.buffers) }

// Destroy frees every backing still held by the pool. Call it once, at
// shutdown, after the last frame has executed.
func (p *Pool) Destroy(alloc Allocator) {
	for _, b := range p.textures {
		alloc.DestroyImage(b)
	}
	for _, b := range p.buffers {
		alloc.DestroyBuffer(b)
	}
	p.textures = nil
	p.buffers = nil
}
