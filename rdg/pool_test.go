package rdg

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestPoolAcquireReleaseRoundTrip(t *testing.T) {
	p := NewPool()
	desc := TextureDesc{Format: vk.FormatR8g8b8a8Unorm, Extent: Extent3D{Width: 64, Height: 64, Depth: 1},
		MipLevels: 1, ArrayLayers: 1, Samples: vk.SampleCount1Bit}

	if b := p.acquireTexture(desc); b != nil {
		t.Fatal("acquire on an empty pool should miss")
	}

	backing := &BackingImage{Desc: desc}
	p.releaseTexture(backing)
	if p.TextureCount() != 1 {
		t.Fatalf("expected 1 pooled texture, got %d", p.TextureCount())
	}

	got := p.acquireTexture(desc)
	if got != backing {
		t.Fatal("acquire should return the exact backing that was released")
	}
	if p.TextureCount() != 0 {
		t.Fatalf("expected pool to be empty after acquiring its only backing, got %d", p.TextureCount())
	}
}

func TestPoolAcquireTextureRequiresExactMatch(t *testing.T) {
	p := NewPool()
	pooled := TextureDesc{Format: vk.FormatR8g8b8a8Unorm, Extent: Extent3D{Width: 64, Height: 64, Depth: 1},
		MipLevels: 1, ArrayLayers: 1, Samples: vk.SampleCount1Bit}
	p.releaseTexture(&BackingImage{Desc: pooled})

	wanted := pooled
	wanted.Extent.Width = 128
	if b := p.acquireTexture(wanted); b != nil {
		t.Error("a differently-sized request should not match a pooled backing")
	}
	if p.TextureCount() != 1 {
		t.Error("a failed acquire must not remove the pooled backing")
	}
}

func TestPoolAcquireBufferAllowsLargerPooledBuffer(t *testing.T) {
	p := NewPool()
	usage := vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	p.releaseBuffer(&BackingBuffer{Desc: BufferDesc{Size: 4096, Usage: usage}})

	got := p.acquireBuffer(BufferDesc{Size: 1024, Usage: usage})
	if got == nil {
		t.Fatal("a large-enough pooled buffer should satisfy a smaller request")
	}
}

type fakeAllocator struct {
	destroyedImages  int
	destroyedBuffers int
}

func (f *fakeAllocator) CreateImage(desc TextureDesc) (*BackingImage, error) {
	return &BackingImage{Desc: desc}, nil
}
func (f *fakeAllocator) DestroyImage(*BackingImage)   { f.destroyedImages++ }
func (f *fakeAllocator) CreateBuffer(desc BufferDesc) (*BackingBuffer, error) {
	return &BackingBuffer{Desc: desc}, nil
}
func (f *fakeAllocator) DestroyBuffer(*BackingBuffer) { f.destroyedBuffers++ }

func TestPoolDestroyFreesEveryRetiredBacking(t *testing.T) {
	p := NewPool()
	p.releaseTexture(&BackingImage{})
	p.releaseTexture(&BackingImage{})
	p.releaseBuffer(&BackingBuffer{})

	alloc := &fakeAllocator{}
	p.Destroy(alloc)

	if alloc.destroyedImages != 2 {
		t.Errorf("expected 2 destroyed images, got %d", alloc.destroyedImages)
	}
	if alloc.destroyedBuffers != 1 {
		t.Errorf("expected 1 destroyed buffer, got %d", alloc.destroyedBuffers)
	}
	if p.TextureCount() != 0 || p.BufferCount() != 0 {
		t.Error("pool should be empty after Destroy")
	}
}
