package rdg

import (
	glm "github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
)

// LoadOp controls how an attachment's previous contents are treated when a
// pass begins.
type LoadOp uint8

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

// StoreOp controls whether an attachment's contents are kept after a pass
// ends.
type StoreOp uint8

const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

// ColorAttachment is one color output of a graphics pass.
type ColorAttachment struct {
	Handle  TextureHandle
	LoadOp  LoadOp
	StoreOp StoreOp
	Clear   glm.Vec4
}

// DepthStencilAttachment is the (at most one) depth-stencil output of a
// graphics pass.
type DepthStencilAttachment struct {
	Handle       TextureHandle
	DepthLoadOp  LoadOp
	DepthStoreOp StoreOp
	StencilLoad  LoadOp
	StencilStore StoreOp
	ClearDepth   float32
	ClearStencil uint32
}

// textureAccess is a declared read or storage write of a texture: the
// pipeline stages that touch it and the access flags used.
type textureAccess struct {
	Handle TextureHandle
	Stages vk.PipelineStageFlags
	Access vk.AccessFlags
}

type bufferAccess struct {
	Handle BufferHandle
	Stages vk.PipelineStageFlags
	Access vk.AccessFlags
}

// PassKind classifies a pass by the work it declares. The executor uses it
// to decide whether to open a dynamic-rendering scope.
type PassKind uint8

const (
	// PassKindTransfer covers passes with no attachments and no storage
	// writes: copies, clears issued directly against resources, etc.
	PassKindTransfer PassKind = iota
	PassKindGraphics
	PassKindCompute
)

func (k PassKind) String() string {
	switch k {
	case PassKindGraphics:
		return "Graphics"
	case PassKindCompute:
		return "Compute"
	default:
		return "Transfer"
	}
}

// ExecuteCallback is the plain pass callback shape: it records commands
// with no access to the graph's resources beyond what the caller closed
// over when declaring the pass. A returned error fails only this pass;
// the executor logs it and moves on to the next one.
type ExecuteCallback func(cmd vk.CommandBuffer) error

// ExecuteCallbackEx is the accessor pass callback shape: it additionally
// receives a ResourceAccessor scoped to this pass's execution, letting it
// resolve declared handles to physical bindings.
type ExecuteCallbackEx func(cmd vk.CommandBuffer, res *ResourceAccessor) error

// Pass is the recorded, read-only-after-declaration description of one
// unit of GPU work: its attachments, reads, writes, and its callback.
type Pass struct {
	name string

	callback   ExecuteCallback
	callbackEx ExecuteCallbackEx

	colorAttachments []ColorAttachment
	depthStencil     *DepthStencilAttachment

	textureReads []textureAccess
	bufferReads  []bufferAccess

	textureWrites []textureAccess
	bufferWrites  []bufferAccess
}

// Kind classifies the pass per §3 of the render graph model: graphics if
// it has any attachment, else compute if it declares a storage write,
// else transfer.
func (p *Pass) Kind() PassKind {
	if len(p.colorAttachments) > 0 || p.depthStencil != nil {
		return PassKindGraphics
	}
	if len(p.textureWrites) > 0 || len(p.bufferWrites) > 0 {
		return PassKindCompute
	}
	return PassKindTransfer
}

// PassRef is the fluent handle returned by Graph.AddPass, used to declare
// the pass's reads and writes. Declaration order among reads/writes on one
// pass carries no semantic weight; only the order passes were added to
// the graph does.
type PassRef struct {
	pass  *Pass
	graph *Graph
}

// ReadTexture declares a sampled or input-attachment read of h. Access
// flags decide the layout the compiler transitions h into before this
// pass runs: ShaderRead and InputAttachmentRead map to
// ShaderReadOnlyOptimal, anything else maps to General.
func (p PassRef) ReadTexture(h TextureHandle, stages vk.PipelineStageFlags, access vk.AccessFlags) PassRef {
	p.graph.requireTexture(h, p.pass.name)
	p.pass.textureReads = append(p.pass.textureReads, textureAccess{Handle: h, Stages: stages, Access: access})
	return p
}

// ReadBuffer declares a read of h.
func (p PassRef) ReadBuffer(h BufferHandle, stages vk.PipelineStageFlags, access vk.AccessFlags) PassRef {
	p.graph.requireBuffer(h, p.pass.name)
	p.pass.bufferReads = append(p.pass.bufferReads, bufferAccess{Handle: h, Stages: stages, Access: access})
	return p
}

// WriteColorAttachment appends a color attachment to the pass.
func (p PassRef) WriteColorAttachment(h TextureHandle, load LoadOp, store StoreOp, clear glm.Vec4) PassRef {
	p.graph.requireTexture(h, p.pass.name)
	p.pass.colorAttachments = append(p.pass.colorAttachments, ColorAttachment{
		Handle: h, LoadOp: load, StoreOp: store, Clear: clear,
	})
	return p
}

// WriteDepthStencilAttachment sets the pass's depth-stencil attachment.
// Calling it twice on the same pass is a programming error.
func (p PassRef) WriteDepthStencilAttachment(h TextureHandle, depthLoad LoadOp, depthStore StoreOp,
	stencilLoad LoadOp, stencilStore StoreOp, clearDepth float32, clearStencil uint32) PassRef {
	p.graph.requireTexture(h, p.pass.name)
	if p.pass.depthStencil != nil {
		p.graph.fail("pass %q: WriteDepthStencilAttachment called twice", p.pass.name)
	}
	p.pass.depthStencil = &DepthStencilAttachment{
		Handle: h, DepthLoadOp: depthLoad, DepthStoreOp: depthStore,
		StencilLoad: stencilLoad, StencilStore: stencilStore,
		ClearDepth: clearDepth, ClearStencil: clearStencil,
	}
	return p
}

// WriteStorageTexture declares a storage-image write of h.
func (p PassRef) WriteStorageTexture(h TextureHandle, stages vk.PipelineStageFlags, access vk.AccessFlags) PassRef {
	p.graph.requireTexture(h, p.pass.name)
	p.pass.textureWrites = append(p.pass.textureWrites, textureAccess{Handle: h, Stages: stages, Access: access})
	return p
}

// WriteStorageBuffer declares a storage-buffer write of h.
func (p PassRef) WriteStorageBuffer(h BufferHandle, stages vk.PipelineStageFlags, access vk.AccessFlags) PassRef {
	p.graph.requireBuffer(h, p.pass.name)
	p.pass.bufferWrites = append(p.pass.bufferWrites, bufferAccess{Handle: h, Stages: stages, Access: access})
	return p
}

// requiredReadLayout derives the layout a texture read needs from its access
// flags: shader and input-attachment reads want the read-only-optimal
// layout, anything else (e.g. a general storage read) wants General.
func requiredReadLayout(access vk.AccessFlags) vk.ImageLayout {
	const shaderOrInputRead = vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessInputAttachmentReadBit)
	if access&shaderOrInputRead != 0 {
		return vk.ImageLayoutShaderReadOnlyOptimal
	}
	return vk.ImageLayoutGeneral
}
