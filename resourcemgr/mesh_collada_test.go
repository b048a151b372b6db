package resourcemgr

import (
	"testing"

	glm "github.com/go-gl/mathgl/mgl32"
)

const sampleQuadDae = `<?xml version="1.0"?>
<COLLADA>
  <library_geometries>
    <geometry id="quad-lib" name="quad">
      <mesh>
        <source id="quad-positions">
          <float_array id="quad-positions-array" count="12">0 0 0 1 0 0 1 1 0 0 1 0</float_array>
        </source>
        <source id="quad-uv">
          <float_array id="quad-uv-array" count="8">0 0 1 0 1 1 0 1</float_array>
        </source>
        <vertices id="quad-vertices">
          <input semantic="POSITION" source="#quad-positions"/>
        </vertices>
        <triangles count="2" material="mat0">
          <input semantic="VERTEX" source="#quad-vertices" offset="0"/>
          <input semantic="TEXCOORD" source="#quad-uv" offset="1"/>
          <p>0 0 1 1 2 2 0 0 2 2 3 3</p>
        </triangles>
      </mesh>
    </geometry>
  </library_geometries>
</COLLADA>`

func TestLoadColladaMesh(t *testing.T) {
	mesh, err := LoadColladaMesh("quad", []byte(sampleQuadDae))
	if err != nil {
		t.Fatalf("LoadColladaMesh: %v", err)
	}
	if mesh.Name != "quad" {
		t.Errorf("Name = %q", mesh.Name)
	}
	if len(mesh.Vertices) != 6 {
		t.Fatalf("got %d vertices, want 6 (2 triangles * 3)", len(mesh.Vertices))
	}
	if len(mesh.Indices) != len(mesh.Vertices) {
		t.Errorf("got %d indices, want %d", len(mesh.Indices), len(mesh.Vertices))
	}

	first := mesh.Vertices[0]
	if first.Pos != (glm.Vec3{0, 0, 0}) {
		t.Errorf("first vertex Pos = %v, want origin", first.Pos)
	}
	if first.UV != (glm.Vec2{0, 0}) {
		t.Errorf("first vertex UV = %v, want origin", first.UV)
	}

	second := mesh.Vertices[1]
	if second.Pos != (glm.Vec3{1, 0, 0}) {
		t.Errorf("second vertex Pos = %v", second.Pos)
	}
}

func TestLoadColladaMeshRejectsEmptyDocument(t *testing.T) {
	if _, err := LoadColladaMesh("empty", []byte(`<COLLADA/>`)); err == nil {
		t.Error("expected error for a document with no geometries")
	}
}

func TestLoadColladaMeshRejectsMalformedXML(t *testing.T) {
	if _, err := LoadColladaMesh("bad", []byte(`not xml at all`)); err == nil {
		t.Error("expected error for malformed xml")
	}
}
