package resourcemgr

import (
	"bytes"
	"io/ioutil"
	"os"
	"testing"

	"github.com/shanyu-yun/qtrender/resourcemgr/kar"
)

func buildTestArchive(t *testing.T, files map[string][]byte) string {
	t.Helper()
	b, err := kar.NewBuilder(kar.Header{Author: "test"})
	if err != nil {
		t.Fatal(err)
	}
	for name, data := range files {
		if err := b.Add(name, data); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if _, err := b.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	f, err := ioutil.TempFile("", "cachetest*.kar")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestCacheLoadMeshFromArchiveCachesResult(t *testing.T) {
	path := buildTestArchive(t, map[string][]byte{
		"quad.dae": []byte(sampleQuadDae),
	})

	c := New()
	defer c.Close()
	if err := c.MountArchive("props", path); err != nil {
		t.Fatalf("MountArchive: %v", err)
	}

	m1, err := c.LoadMeshFromArchive("props", "quad.dae", "quad")
	if err != nil {
		t.Fatalf("LoadMeshFromArchive: %v", err)
	}
	if len(m1.Vertices) == 0 {
		t.Fatal("loaded mesh has no vertices")
	}

	if got := c.Mesh("quad"); got != m1 {
		t.Error("Mesh() did not return the cached pointer")
	}

	m2, err := c.LoadMeshFromArchive("props", "quad.dae", "quad")
	if err != nil {
		t.Fatal(err)
	}
	if m2 != m1 {
		t.Error("second LoadMeshFromArchive call re-decoded instead of returning the cached mesh")
	}
}

func TestCacheLoadFromUnmountedArchiveFails(t *testing.T) {
	c := New()
	defer c.Close()
	if _, err := c.LoadMeshFromArchive("missing-alias", "anything.dae", "x"); err == nil {
		t.Error("expected an error loading from an unmounted archive")
	}
}

func TestCacheMaterialsAndTextures(t *testing.T) {
	c := New()
	defer c.Close()

	if c.Material("hero") != nil {
		t.Error("expected no material before PutMaterial")
	}
	mat := &Material{Name: "hero", Textures: map[string]*Texture{}}
	c.PutMaterial(mat)
	if got := c.Material("hero"); got != mat {
		t.Error("Material() did not return the stored material")
	}
}
