package collada

import (
	"encoding/xml"
	"testing"
)

const sampleDae = `<?xml version="1.0"?>
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

func TestUnmarshalCollada(t *testing.T) {
	var doc Collada
	if err := xml.Unmarshal([]byte(sampleDae), &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(doc.Geometries) != 1 {
		t.Fatalf("got %d geometries, want 1", len(doc.Geometries))
	}

	geom := doc.Geometries[0]
	if geom.ID != "quad-lib" {
		t.Errorf("geometry id = %q", geom.ID)
	}
	if len(geom.Mesh.Source) != 2 {
		t.Fatalf("got %d sources, want 2", len(geom.Mesh.Source))
	}

	positions := geom.Mesh.Source[0]
	if len(positions.Floats.Data) != 12 {
		t.Errorf("positions has %d floats, want 12", len(positions.Floats.Data))
	}
	if positions.Floats.Data[3] != 1 {
		t.Errorf("positions[3] = %v, want 1", positions.Floats.Data[3])
	}

	tri := geom.Mesh.Triangles
	if tri.Count != 2 {
		t.Errorf("triangles count = %d, want 2", tri.Count)
	}
	if len(tri.Inputs) != 2 {
		t.Fatalf("got %d triangle inputs, want 2", len(tri.Inputs))
	}
	if tri.Inputs[1].Semantic != "TEXCOORD" || tri.Inputs[1].Offset != 1 {
		t.Errorf("unexpected second input: %+v", tri.Inputs[1])
	}
	if len(tri.Index) != 12 {
		t.Fatalf("got %d index values, want 12", len(tri.Index))
	}
}

func TestFloatsUnmarshalRejectsNonNumeric(t *testing.T) {
	doc := `<source id="s"><float_array>0 1 not-a-number</float_array></source>`
	var s Source
	if err := xml.Unmarshal([]byte(doc), &s); err == nil {
		t.Error("expected error decoding non-numeric float_array")
	}
}
