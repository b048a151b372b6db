// Package resourcemgr is the persistent mesh/texture/material loading
// and caching layer the render dependency graph reads from: it owns the
// disk-to-CPU half of the disk-to-GPU pipeline, leaving the CPU-to-GPU
// upload and the resulting rdg handles to the caller.
package resourcemgr

import (
	"fmt"
	"sync"

	"golang.org/x/exp/mmap"

	"github.com/shanyu-yun/qtrender/resourcemgr/kar"
)

// Material is a resource-level material: the set of named textures a
// shader reads, keyed by the same binding names its shaders use. It
// carries no shading model of its own — whether a binding means
// "albedo" or "normal map" is a decision for whatever reads the cache,
// not for the cache.
type Material struct {
	Name     string
	Textures map[string]*Texture
}

// Cache is the resource manager's in-memory store of everything loaded
// so far, keyed by name. One mutex guards all four maps: lookups and
// insertions are expected to be fast and are never held across file I/O
// or GPU upload, so a single lock is simpler than one per map without
// costing real contention.
type Cache struct {
	mutex     sync.Mutex
	meshes    map[string]*Mesh
	textures  map[string]*Texture
	materials map[string]*Material

	archives map[string]*kar.Archive
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		meshes:    make(map[string]*Mesh),
		textures:  make(map[string]*Texture),
		materials: make(map[string]*Material),
		archives:  make(map[string]*kar.Archive),
	}
}

// MountArchive memory-maps the kar archive at path and makes its files
// available to LoadMeshFromArchive/LoadTextureFromArchive under alias.
// The mapping is kept open for the Cache's lifetime; call Close to
// release it.
func (c *Cache) MountArchive(alias, path string) error {
	reader, err := mmap.Open(path)
	if err != nil {
		return fmt.Errorf("resourcemgr: mount %q: %w", path, err)
	}
	archive, err := kar.Open(reader)
	if err != nil {
		reader.Close()
		return fmt.Errorf("resourcemgr: mount %q: %w", path, err)
	}

	c.mutex.Lock()
	c.archives[alias] = archive
	c.mutex.Unlock()
	return nil
}

// Mesh returns the cached mesh called name, or nil if it hasn't been
// loaded.
func (c *Cache) Mesh(name string) *Mesh {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.meshes[name]
}

// Texture returns the cached texture called name, or nil if it hasn't
// been loaded.
func (c *Cache) Texture(name string) *Texture {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.textures[name]
}

// Material returns the cached material called name, or nil if it hasn't
// been defined.
func (c *Cache) Material(name string) *Material {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.materials[name]
}

// PutMaterial defines or replaces a material. Materials are composed
// from already-loaded textures rather than loaded from disk themselves.
func (c *Cache) PutMaterial(m *Material) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.materials[m.Name] = m
}

// LoadMeshFromArchive loads and caches the collada mesh called file out
// of the archive mounted under alias, returning the cached copy if name
// is already loaded. Decoding the archive entry happens outside the
// lock; only the map insertion is guarded.
func (c *Cache) LoadMeshFromArchive(alias, file, name string) (*Mesh, error) {
	if m := c.Mesh(name); m != nil {
		return m, nil
	}

	c.mutex.Lock()
	archive, ok := c.archives[alias]
	c.mutex.Unlock()
	if !ok {
		return nil, fmt.Errorf("resourcemgr: archive %q not mounted", alias)
	}

	raw, err := archive.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("resourcemgr: read %q from %q: %w", file, alias, err)
	}
	mesh, err := LoadColladaMesh(name, raw)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	c.meshes[name] = mesh
	c.mutex.Unlock()
	return mesh, nil
}

// LoadTextureFromArchive loads and caches the image called file out of
// the archive mounted under alias, returning the cached copy if name is
// already loaded.
func (c *Cache) LoadTextureFromArchive(alias, file, name string) (*Texture, error) {
	if t := c.Texture(name); t != nil {
		return t, nil
	}

	c.mutex.Lock()
	archive, ok := c.archives[alias]
	c.mutex.Unlock()
	if !ok {
		return nil, fmt.Errorf("resourcemgr: archive %q not mounted", alias)
	}

	raw, err := archive.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("resourcemgr: read %q from %q: %w", file, alias, err)
	}
	texture, err := LoadTexture(name, raw)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	c.textures[name] = texture
	c.mutex.Unlock()
	return texture, nil
}

// Close releases every mounted archive's memory mapping.
func (c *Cache) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var firstErr error
	for alias, a := range c.archives {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.archives, alias)
	}
	return firstErr
}
