package resourcemgr

import (
	"testing"
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
)

func TestMeshByteSize(t *testing.T) {
	m := &Mesh{
		Vertices: []Vertex{
			{Pos: glm.Vec3{0, 0, 0}, Color: glm.Vec4{1, 1, 1, 1}},
			{Pos: glm.Vec3{1, 0, 0}, Color: glm.Vec4{1, 1, 1, 1}},
		},
		Indices: []uint32{0, 1, 0},
	}
	want := 2*int(unsafe.Sizeof(Vertex{})) + 3*4
	if got := m.ByteSize(); got != want {
		t.Errorf("ByteSize() = %d, want %d", got, want)
	}
}

func TestVertexDescriptionsCoverAllFields(t *testing.T) {
	bindings := VertexBindingDescriptions()
	if len(bindings) != 1 {
		t.Fatalf("got %d bindings, want 1", len(bindings))
	}
	attrs := VertexAttributeDescriptions()
	if len(attrs) != 3 {
		t.Fatalf("got %d attributes, want 3 (Pos, Color, UV)", len(attrs))
	}
	for i, a := range attrs {
		if a.Binding != 0 {
			t.Errorf("attribute %d: Binding = %d, want 0", i, a.Binding)
		}
		if a.Location != uint32(i) {
			t.Errorf("attribute %d: Location = %d, want %d", i, a.Location, i)
		}
	}
}
