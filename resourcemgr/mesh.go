package resourcemgr

import (
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
)

// Vertex is the engine's single supported vertex layout: position, color
// and enough to sample a texture once materials need one.
type Vertex struct {
	Pos   glm.Vec3
	Color glm.Vec4
	UV    glm.Vec2
}

// VertexBindingDescriptions returns the Vulkan vertex-binding descriptor
// for Vertex, for use in a pipeline's vertex input state.
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions returns the Vulkan attribute descriptors for
// Vertex's three fields.
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Binding: 0, Location: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.Pos))},
		{Binding: 0, Location: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.Color))},
		{Binding: 0, Location: 2, Format: vk.FormatR32g32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.UV))},
	}
}

// Mesh is a loaded, CPU-resident mesh: vertex and index data ready to be
// uploaded to a vertex/index buffer. Uploading and GPU-handle ownership
// are the caller's responsibility — this package only loads and caches
// the CPU-side data, per the resource manager's disk-to-cache half of
// the disk-to-GPU pipeline.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

// ByteSize reports the combined size in bytes of the vertex and index
// data, useful for sizing a staging buffer before upload.
func (m *Mesh) ByteSize() int {
	return len(m.Vertices)*int(unsafe.Sizeof(Vertex{})) + len(m.Indices)*4
}
