package rdg

import (
	"sort"

	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// compiledPass wraps one declared Pass with the bookkeeping the compiler
// accumulates about it: whether it survived culling, and its index in
// declaration order (which doubles as execution order on the single
// queue the graph submits to).
type compiledPass struct {
	index int
	pass  *Pass
	live  bool
}

func (p *Pass) writtenTextures() []TextureHandle {
	out := make([]TextureHandle, 0, len(p.colorAttachments)+len(p.textureWrites)+1)
	for _, a := range p.colorAttachments {
		out = append(out, a.Handle)
	}
	if p.depthStencil != nil {
		out = append(out, p.depthStencil.Handle)
	}
	for _, a := range p.textureWrites {
		out = append(out, a.Handle)
	}
	return out
}

func (p *Pass) writtenBuffers() []BufferHandle {
	out := make([]BufferHandle, 0, len(p.bufferWrites))
	for _, a := range p.bufferWrites {
		out = append(out, a.Handle)
	}
	return out
}

func (p *Pass) readTexturesList() []TextureHandle {
	out := make([]TextureHandle, 0, len(p.textureReads)+len(p.colorAttachments)+1)
	for _, a := range p.textureReads {
		out = append(out, a.Handle)
	}
	for _, a := range p.colorAttachments {
		if a.LoadOp == LoadOpLoad {
			out = append(out, a.Handle)
		}
	}
	if p.depthStencil != nil && (p.depthStencil.DepthLoadOp == LoadOpLoad || p.depthStencil.StencilLoad == LoadOpLoad) {
		out = append(out, p.depthStencil.Handle)
	}
	return out
}

func (p *Pass) readBuffersList() []BufferHandle {
	out := make([]BufferHandle, 0, len(p.bufferReads))
	for _, a := range p.bufferReads {
		out = append(out, a.Handle)
	}
	return out
}

// buildDependencyView wraps every declared pass in declaration order.
// This is phase 1: no decisions are made here, only the view the later
// phases walk.
func (g *Graph) buildDependencyView() {
	g.compiledDeps = make([]compiledPass, len(g.passes))
	for i, p := range g.passes {
		g.compiledDeps[i] = compiledPass{index: i, pass: p}
	}
}

// cullUnusedPasses is phase 2. The root set is every pass that writes an
// external resource (its effect is observable outside the graph); a pass
// not in the root set survives only if some live pass consumes something
// it writes. This is a backward-reachability fixed point, run until no
// pass changes state in a full sweep.
func (g *Graph) cullUnusedPasses() {
	n := len(g.compiledDeps)
	for i := range g.compiledDeps {
		cp := &g.compiledDeps[i]
		if g.writesExternal(cp.pass) {
			cp.live = true
		}
	}
	for changed := true; changed; {
		changed = false
		for i := range g.compiledDeps {
			cp := &g.compiledDeps[i]
			if cp.live {
				continue
			}
			if g.feedsLivePass(cp.pass, i+1, n) {
				cp.live = true
				changed = true
			}
		}
	}

	g.livePasses = g.livePasses[:0]
	for i, cp := range g.compiledDeps {
		if cp.live {
			g.livePasses = append(g.livePasses, i)
		} else {
			log.WithField("pass", cp.pass.name).Debug("rdg: pass culled, no consumer and no external effect")
		}
	}
}

func (g *Graph) writesExternal(p *Pass) bool {
	for _, h := range p.writtenTextures() {
		if t, ok := g.reg.texture(h); ok && t.origin == originExternal {
			return true
		}
	}
	for _, h := range p.writtenBuffers() {
		if b, ok := g.reg.buffer(h); ok && b.origin == originExternal {
			return true
		}
	}
	return false
}

// feedsLivePass reports whether p writes a resource read by any pass
// currently marked live, searched across the whole pass list since a
// later write by p can feed an earlier-but-not-yet-marked pass once that
// pass itself turns live.
func (g *Graph) feedsLivePass(p *Pass, _, _ int) bool {
	writtenT := p.writtenTextures()
	writtenB := p.writtenBuffers()
	if len(writtenT) == 0 && len(writtenB) == 0 {
		return false
	}
	for i := range g.compiledDeps {
		other := &g.compiledDeps[i]
		if !other.live || other.pass == p {
			continue
		}
		for _, h := range writtenT {
			for _, rh := range other.pass.readTexturesList() {
				if rh == h {
					return true
				}
			}
		}
		for _, h := range writtenB {
			for _, rh := range other.pass.readBuffersList() {
				if rh == h {
					return true
				}
			}
		}
	}
	return false
}

// analyzeResourceLifetimeAndAllocate is phase 3. It walks live passes in
// execution order to compute each resource's [first, last] touch
// interval, then allocates a physical backing for every used transient:
// resources are processed in ascending life.First order, retiring (and
// returning to the pool) any in-flight transient whose life.Last has
// already passed before acquiring the next one. This respects the
// lifetime-non-overlap invariant without needing a general bin packer.
func (g *Graph) analyzeResourceLifetimeAndAllocate() {
	for _, idx := range g.livePasses {
		p := g.compiledDeps[idx].pass
		for _, h := range p.readTexturesList() {
			if t, ok := g.reg.texture(h); ok {
				t.life.touch(idx)
			}
		}
		for _, h := range p.writtenTextures() {
			if t, ok := g.reg.texture(h); ok {
				t.life.touch(idx)
			}
		}
		for _, h := range p.readBuffersList() {
			if b, ok := g.reg.buffer(h); ok {
				b.life.touch(idx)
			}
		}
		for _, h := range p.writtenBuffers() {
			if b, ok := g.reg.buffer(h); ok {
				b.life.touch(idx)
			}
		}
	}

	var textures []*textureResource
	for _, t := range g.reg.allTextures() {
		if t.isTransient() && t.isUsed() {
			textures = append(textures, t)
		}
	}
	sort.Slice(textures, func(i, j int) bool { return textures[i].life.First < textures[j].life.First })

	var liveTex []*textureResource
	for _, t := range textures {
		retained := liveTex[:0]
		for _, in := range liveTex {
			if in.life.Last < t.life.First {
				g.pool.releaseTexture(in.backing)
				in.backing = nil
			} else {
				retained = append(retained, in)
			}
		}
		liveTex = retained

		backing := g.pool.acquireTexture(t.desc)
		if backing == nil {
			b, err := g.alloc.CreateImage(t.desc)
			if err != nil {
				g.fail("allocate texture %q: %v", t.name, err)
				return
			}
			backing = b
		}
		t.backing = backing
		t.layout = vk.ImageLayoutUndefined
		liveTex = append(liveTex, t)
	}
	for _, in := range liveTex {
		g.pool.releaseTexture(in.backing)
	}

	var buffers []*bufferResource
	for _, b := range g.reg.allBuffers() {
		if b.isTransient() && b.isUsed() {
			buffers = append(buffers, b)
		}
	}
	sort.Slice(buffers, func(i, j int) bool { return buffers[i].life.First < buffers[j].life.First })

	var liveBuf []*bufferResource
	for _, b := range buffers {
		retained := liveBuf[:0]
		for _, in := range liveBuf {
			if in.life.Last < b.life.First {
				g.pool.releaseBuffer(in.backing)
				in.backing = nil
			} else {
				retained = append(retained, in)
			}
		}
		liveBuf = retained

		backing := g.pool.acquireBuffer(b.desc)
		if backing == nil {
			bb, err := g.alloc.CreateBuffer(b.desc)
			if err != nil {
				g.fail("allocate buffer %q: %v", b.name, err)
				return
			}
			backing = bb
		}
		b.backing = backing
		liveBuf = append(liveBuf, b)
	}
	for _, in := range liveBuf {
		g.pool.releaseBuffer(in.backing)
	}
}

// validateResourceStates is phase 4. Violations here are warnings, not
// compile failures: reading a texture that was never written leaves it
// in an Undefined layout, which is legal (e.g. a debug overlay sampling
// a target nobody cleared yet) but usually a mistake worth logging.
func (g *Graph) validateResourceStates() {
	written := make(map[TextureHandle]bool)
	for _, idx := range g.livePasses {
		p := g.compiledDeps[idx].pass
		for _, h := range p.readTexturesList() {
			t, ok := g.reg.texture(h)
			if !ok {
				continue
			}
			if !written[h] && t.origin == originTransient {
				log.WithFields(log.Fields{"pass": p.name, "resource": t.name}).
					Warn("rdg: reading transient texture before it is ever written")
			}
		}
		for _, h := range p.writtenTextures() {
			written[h] = true
		}
	}
}

// synthesizeBarriers is phase 5: for every live pass in order, diff each
// touched resource's required stage/access/layout against the last
// recorded access and emit a barrier when a hazard or layout change
// exists. Per-pass barrier lists are coalesced into a single
// pipelineBarrier call each by the executor, not here.
func (g *Graph) synthesizeBarriers() {
	g.barrierPlan = make(map[int][]Barrier)
	g.postBarrierPlan = make(map[int][]Barrier)

	for _, idx := range g.livePasses {
		p := g.compiledDeps[idx].pass
		var barriers []Barrier

		for _, a := range p.textureReads {
			barriers = append(barriers, g.textureTransition(a.Handle, a.Stages, a.Access, requiredReadLayout(a.Access))...)
		}
		for _, a := range p.colorAttachments {
			access := vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
			if a.LoadOp == LoadOpLoad {
				access |= vk.AccessFlags(vk.AccessColorAttachmentReadBit)
			}
			barriers = append(barriers, g.textureTransition(a.Handle,
				vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), access,
				vk.ImageLayoutColorAttachmentOptimal)...)
		}
		if p.depthStencil != nil {
			ds := p.depthStencil
			access := vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
			if ds.DepthLoadOp == LoadOpLoad || ds.StencilLoad == LoadOpLoad {
				access |= vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit)
			}
			stages := vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) | vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit)
			barriers = append(barriers, g.textureTransition(ds.Handle, stages, access, vk.ImageLayoutDepthStencilAttachmentOptimal)...)
		}
		for _, a := range p.textureWrites {
			barriers = append(barriers, g.textureTransition(a.Handle, a.Stages, a.Access, vk.ImageLayoutGeneral)...)
		}

		for _, a := range p.bufferReads {
			barriers = append(barriers, g.bufferTransition(a.Handle, a.Stages, a.Access)...)
		}
		for _, a := range p.bufferWrites {
			barriers = append(barriers, g.bufferTransition(a.Handle, a.Stages, a.Access)...)
		}

		if len(barriers) > 0 {
			g.barrierPlan[idx] = barriers
		}
	}

	g.synthesizePresentTransitions()
}

// synthesizePresentTransitions appends, to the last live pass that
// touches each swapchain-backed texture, a trailing ColorAttachmentOptimal
// -> PresentSrcKHR barrier. The graph always performs this transition
// itself rather than leaving it to the caller, so a swapchain image is
// guaranteed presentable the instant execute's submission signals.
func (g *Graph) synthesizePresentTransitions() {
	for _, t := range g.reg.allTextures() {
		if t.swap == nil || !t.isUsed() {
			continue
		}
		lastIdx := -1
		for _, idx := range g.livePasses {
			p := g.compiledDeps[idx].pass
			touches := false
			for _, h := range p.writtenTextures() {
				if h == t.handle {
					touches = true
				}
			}
			for _, h := range p.readTexturesList() {
				if h == t.handle {
					touches = true
				}
			}
			if touches {
				lastIdx = idx
			}
		}
		if lastIdx < 0 || t.layout == vk.ImageLayoutPresentSrc {
			continue
		}
		b := Barrier{
			IsTexture:     true,
			TextureHandle: t.handle,
			OldLayout:     t.layout,
			NewLayout:     vk.ImageLayoutPresentSrc,
			Image:         t.backing.Image,
			Range:         t.desc.fullSubresourceRange(),
			SrcStages:     t.access.stages,
			DstStages:     vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			SrcAccess:     t.access.access,
			DstAccess:     0,
		}
		t.layout = vk.ImageLayoutPresentSrc
		g.postBarrierPlan[lastIdx] = append(g.postBarrierPlan[lastIdx], b)
	}
}

func (g *Graph) textureTransition(h TextureHandle, stages vk.PipelineStageFlags, access vk.AccessFlags, newLayout vk.ImageLayout) []Barrier {
	t, ok := g.reg.texture(h)
	if !ok || t.backing == nil {
		return nil
	}
	b := Barrier{
		IsTexture:     true,
		TextureHandle: h,
		OldLayout:     t.layout,
		NewLayout:     newLayout,
		Image:         t.backing.Image,
		Range:         t.desc.fullSubresourceRange(),
		SrcStages:     t.access.stages,
		DstStages:     stages,
		SrcAccess:     t.access.access,
		DstAccess:     access,
		SrcWasWrite:   t.access.wasWrite,
	}
	t.layout = newLayout
	t.access = accessRecord{stages: stages, access: access, wasWrite: hasWriteAccess(access)}
	if !b.needed() {
		return nil
	}
	return []Barrier{b}
}

func (g *Graph) bufferTransition(h BufferHandle, stages vk.PipelineStageFlags, access vk.AccessFlags) []Barrier {
	buf, ok := g.reg.buffer(h)
	if !ok || buf.backing == nil {
		return nil
	}
	b := Barrier{
		IsTexture:    false,
		BufferHandle: h,
		Buffer:       buf.backing.Buffer,
		Size:         vk.DeviceSize(buf.desc.Size),
		SrcStages:    buf.access.stages,
		DstStages:    stages,
		SrcAccess:    buf.access.access,
		DstAccess:    access,
	}
	wasWrite := buf.access.wasWrite
	buf.access = accessRecord{stages: stages, access: access, wasWrite: hasWriteAccess(access)}
	if buf.access.stages == 0 && buf.access.access == 0 {
		return nil
	}
	if !wasWrite && !hasWriteAccess(access) {
		return nil
	}
	if !b.needed() {
		return nil
	}
	return []Barrier{b}
}

func hasWriteAccess(a vk.AccessFlags) bool {
	const writeMask = vk.AccessFlags(vk.AccessShaderWriteBit) |
		vk.AccessFlags(vk.AccessColorAttachmentWriteBit) |
		vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit) |
		vk.AccessFlags(vk.AccessTransferWriteBit) |
		vk.AccessFlags(vk.AccessHostWriteBit) |
		vk.AccessFlags(vk.AccessMemoryWriteBit)
	return a&writeMask != 0
}

// Compile runs the five compile phases in order and is idempotent only
// in the sense that calling it twice on the same graph is itself a
// programming error, caught and reported like any other.
func (g *Graph) Compile() error {
	if g.err != nil {
		return g.err
	}
	if g.compiled {
		g.fail("graph %q: Compile called twice", g.name)
		return g.err
	}

	g.buildDependencyView()
	g.cullUnusedPasses()
	g.analyzeResourceLifetimeAndAllocate()
	if g.err != nil {
		return g.err
	}
	g.validateResourceStates()
	g.synthesizeBarriers()

	g.compiled = true
	return nil
}
