package resourcemgr

import (
	"encoding/xml"
	"fmt"
	"strings"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/shanyu-yun/qtrender/resourcemgr/collada"
)

// LoadColladaMesh parses a .dae document's first geometry into a Mesh.
// Only the POSITION (directly or through VERTEX) and TEXCOORD semantics
// are consumed; any other input, NORMAL included, is ignored rather
// than rejected, since extra sources (tangents, per-vertex color, ...)
// are common in authoring tools and shouldn't block loading.
func LoadColladaMesh(name string, fileContents []byte) (*Mesh, error) {
	var doc collada.Collada
	if err := xml.Unmarshal(fileContents, &doc); err != nil {
		return nil, fmt.Errorf("resourcemgr: decode collada: %w", err)
	}
	if len(doc.Geometries) == 0 {
		return nil, fmt.Errorf("resourcemgr: %q has no geometries", name)
	}

	mesh := doc.Geometries[0].Mesh
	positions, err := findSource(mesh.Source, mesh.Vertices, "POSITION", mesh.Triangles.Inputs)
	if err != nil {
		return nil, fmt.Errorf("resourcemgr: %q: %w", name, err)
	}
	texcoords, _ := findSource(mesh.Source, mesh.Vertices, "TEXCOORD", mesh.Triangles.Inputs)

	stride := len(mesh.Triangles.Inputs)
	if stride == 0 {
		return nil, fmt.Errorf("resourcemgr: %q: triangle list has no inputs", name)
	}

	var posOffset, uvOffset uint
	var hasUV bool
	for _, in := range mesh.Triangles.Inputs {
		switch in.Semantic {
		case "VERTEX", "POSITION":
			posOffset = in.Offset
		case "TEXCOORD":
			uvOffset = in.Offset
			hasUV = texcoords.ID != ""
		}
	}

	count := len(mesh.Triangles.Index) / stride
	vertices := make([]Vertex, 0, count)
	indices := make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		group := mesh.Triangles.Index[stride*i : stride*i+stride]

		posIdx := group[posOffset]
		v := Vertex{
			Pos: glm.Vec3{
				positions.Floats.Data[posIdx*3],
				positions.Floats.Data[posIdx*3+1],
				positions.Floats.Data[posIdx*3+2],
			},
			Color: glm.Vec4{1, 1, 1, 1},
		}
		if hasUV {
			uvIdx := group[uvOffset]
			v.UV = glm.Vec2{texcoords.Floats.Data[uvIdx*2], texcoords.Floats.Data[uvIdx*2+1]}
		}

		vertices = append(vertices, v)
		indices = append(indices, uint32(i))
	}

	return &Mesh{Name: name, Vertices: vertices, Indices: indices}, nil
}

// findSource resolves a triangle list's semantic to the <source> it
// ultimately reads from, following the vertices indirection when the
// semantic is VERTEX rather than a direct source reference.
func findSource(sources []collada.Source, vertices collada.Vertices, semantic string, inputs []collada.Input) (collada.Source, error) {
	var sourceID string
	for _, in := range inputs {
		if in.Semantic == semantic || (semantic == "POSITION" && in.Semantic == "VERTEX") {
			sourceID = in.Source
			break
		}
	}
	if sourceID == "" {
		return collada.Source{}, fmt.Errorf("no %s input in triangle list", semantic)
	}
	id := strings.TrimPrefix(sourceID, "#")
	if id == vertices.ID {
		for _, in := range vertices.Inputs {
			if in.Semantic == semantic {
				id = strings.TrimPrefix(in.Source, "#")
				break
			}
		}
	}
	for _, s := range sources {
		if s.ID == id || strings.HasSuffix(s.ID, "-"+strings.ToLower(semantic)) {
			return s, nil
		}
	}
	return collada.Source{}, fmt.Errorf("source %q not found", sourceID)
}
