package rdg

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Device is the subset of a logical device the graph is handed: its raw
// handle and its optional-extension support. The compiler and executor
// do not consult the extension queries: they always open dynamic
// rendering scopes and always emit vk.CmdPipelineBarrier barriers.
type Device interface {
	Handle() vk.Device
	SupportsDynamicRendering() bool
	SupportsSynchronization2() bool
}

// CommandSource supplies the graph with a command buffer to record into
// and submits it once the frame is fully recorded. Implementations
// typically wrap a per-frame command pool.
type CommandSource interface {
	Acquire() (vk.CommandBuffer, error)
	Submit(cmd vk.CommandBuffer, wait []vk.Semaphore, waitStages []vk.PipelineStageFlags,
		signal []vk.Semaphore, fence vk.Fence) error
}

// SwapchainImageProvider resolves a swapchain image index to the physical
// image, view and format the graph needs to treat it as a texture
// resource. A swapchain implementation satisfies this directly.
type SwapchainImageProvider interface {
	Image(index uint32) vk.Image
	ImageView(index uint32) vk.ImageView
	Format() vk.Format
	Extent() Extent3D
}

// Graph is the single owning type for one frame's render dependency
// graph: callers declare resources and passes against it, then Compile
// and Execute it once. A Graph is single-use; build a new one every
// frame from a long-lived Pool and FrameSyncManager.
type Graph struct {
	name string

	device   Device
	cmds     CommandSource
	alloc    Allocator
	pool     *Pool
	samplers *SamplerCache

	handles handleAllocator
	reg     *registry
	passes  []*Pass

	err error

	compiled     bool
	executed     bool
	livePasses   []int
	compiledDeps    []compiledPass
	barrierPlan     map[int][]Barrier
	postBarrierPlan map[int][]Barrier
}

// NewGraph creates an empty graph bound to device, cmds and alloc. pool
// is the long-lived transient resource pool; pass the same *Pool to
// every frame's graph so retired backings can be reused across frames.
// samplers is the device's shared sampler cache; nil is fine for graphs
// that never call ResourceAccessor.Sampler.
func NewGraph(name string, device Device, cmds CommandSource, alloc Allocator, pool *Pool, samplers *SamplerCache) *Graph {
	return &Graph{
		name:     name,
		device:   device,
		cmds:     cmds,
		alloc:    alloc,
		pool:     pool,
		samplers: samplers,
		reg:      newRegistry(),
	}
}

// fail records the first programming error encountered while declaring
// or compiling the graph. Fail-fast: once set, Compile and Execute
// return it immediately without touching the device.
func (g *Graph) fail(format string, args ...interface{}) {
	if g.err == nil {
		g.err = fmt.Errorf(format, args...)
	}
}

// Err reports the first programming error recorded against the graph,
// if any.
func (g *Graph) Err() error { return g.err }

func (g *Graph) requireTexture(h TextureHandle, passName string) {
	if _, ok := g.reg.texture(h); !ok {
		g.fail("pass %q: unknown texture handle %s", passName, h)
	}
}

func (g *Graph) requireBuffer(h BufferHandle, passName string) {
	if _, ok := g.reg.buffer(h); !ok {
		g.fail("pass %q: unknown buffer handle %s", passName, h)
	}
}

// CreateTexture declares a transient texture resource: one the graph
// allocates (or recycles from the pool) for the lifetime of this frame
// and returns to the pool once its last reading or writing pass retires.
func (g *Graph) CreateTexture(desc TextureDesc) TextureHandle {
	desc = desc.normalized()
	if !desc.IsValid() {
		g.fail("CreateTexture %q: invalid descriptor", desc.Name)
		return TextureHandle{}
	}
	h := g.handles.nextTexture()
	g.reg.textures[h.id] = &textureResource{
		handle: h,
		name:   desc.Name,
		desc:   desc,
		origin: originTransient,
		layout: vk.ImageLayoutUndefined,
	}
	return h
}

// CreateBuffer declares a transient buffer resource.
func (g *Graph) CreateBuffer(desc BufferDesc) BufferHandle {
	if !desc.IsValid() {
		g.fail("CreateBuffer %q: invalid descriptor", desc.Name)
		return BufferHandle{}
	}
	h := g.handles.nextBuffer()
	g.reg.buffers[h.id] = &bufferResource{
		handle: h,
		name:   desc.Name,
		desc:   desc,
		origin: originTransient,
	}
	return h
}

// RegisterExternalTexture imports a caller-owned image into the graph.
// The graph never creates or destroys it; currentLayout seeds the
// compiler's layout-tracking so the first pass to touch it only pays for
// the transition it actually needs.
func (g *Graph) RegisterExternalTexture(image vk.Image, view vk.ImageView, desc TextureDesc, currentLayout vk.ImageLayout) TextureHandle {
	desc = desc.normalized()
	h := g.handles.nextTexture()
	g.reg.textures[h.id] = &textureResource{
		handle:  h,
		name:    desc.Name,
		desc:    desc,
		origin:  originExternal,
		layout:  currentLayout,
		backing: &BackingImage{Image: image, View: view, Desc: desc},
	}
	return h
}

// RegisterExternalBuffer imports a caller-owned buffer into the graph.
func (g *Graph) RegisterExternalBuffer(buffer vk.Buffer, address vk.DeviceAddress, desc BufferDesc) BufferHandle {
	h := g.handles.nextBuffer()
	g.reg.buffers[h.id] = &bufferResource{
		handle:  h,
		name:    desc.Name,
		desc:    desc,
		origin:  originExternal,
		backing: &BackingBuffer{Buffer: buffer, Address: address, Desc: desc},
	}
	return h
}

// GetSwapchainAttachment imports the swapchain image at imageIndex as an
// external texture resource in the Undefined layout, so the first pass
// that writes it pays for the Undefined -> ColorAttachmentOptimal (or
// whichever) transition explicitly rather than assuming it.
func (g *Graph) GetSwapchainAttachment(provider SwapchainImageProvider, imageIndex uint32) TextureHandle {
	extent := provider.Extent()
	desc := TextureDesc{
		Name:   "swapchain",
		Format: provider.Format(),
		Extent: extent,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
	}.normalized()
	h := g.handles.nextTexture()
	g.reg.textures[h.id] = &textureResource{
		handle: h,
		name:   desc.Name,
		desc:   desc,
		origin: originExternal,
		layout: vk.ImageLayoutUndefined,
		backing: &BackingImage{
			Image: provider.Image(imageIndex),
			View:  provider.ImageView(imageIndex),
			Desc:  desc,
		},
		swap: &swapchainSlot{imageIndex: imageIndex, provider: provider},
	}
	return h
}

// AddPass declares a pass with a plain callback and returns a PassRef for
// declaring its reads and writes.
func (g *Graph) AddPass(name string, cb ExecuteCallback) PassRef {
	p := &Pass{name: name, callback: cb}
	g.passes = append(g.passes, p)
	return PassRef{pass: p, graph: g}
}

// AddPassEx declares a pass whose callback receives a ResourceAccessor
// scoped to this pass's execution.
func (g *Graph) AddPassEx(name string, cb ExecuteCallbackEx) PassRef {
	p := &Pass{name: name, callbackEx: cb}
	g.passes = append(g.passes, p)
	return PassRef{pass: p, graph: g}
}

// PassCount reports the number of passes declared so far, compiled or
// not.
func (g *Graph) PassCount() int { return len(g.passes) }

// TransientResourceCount reports the number of transient texture and
// buffer resources declared so far.
func (g *Graph) TransientResourceCount() int {
	n := 0
	for _, t := range g.reg.textures {
		if t.isTransient() {
			n++
		}
	}
	for _, b := range g.reg.buffers {
		if b.isTransient() {
			n++
		}
	}
	return n
}

// IsCompiled reports whether Compile has already run successfully.
func (g *Graph) IsCompiled() bool { return g.compiled }

// IsExecuted reports whether Execute has already run.
func (g *Graph) IsExecuted() bool { return g.executed }

// SetDebugName overrides the name used in logging for this graph.
func (g *Graph) SetDebugName(name string) { g.name = name }
