package rdg

import "testing"

func TestLifetimeTouchExpandsInterval(t *testing.T) {
	var l lifetime
	l.touch(3)
	if !l.Used || l.First != 3 || l.Last != 3 {
		t.Fatalf("expected [3,3], got %+v", l)
	}
	l.touch(1)
	l.touch(5)
	if l.First != 1 || l.Last != 5 {
		t.Fatalf("expected [1,5] after touching 1 and 5, got %+v", l)
	}
}

func TestLifetimeOverlap(t *testing.T) {
	cases := []struct {
		a, b lifetime
		want bool
	}{
		{lifetime{First: 0, Last: 2, Used: true}, lifetime{First: 3, Last: 5, Used: true}, false},
		{lifetime{First: 0, Last: 3, Used: true}, lifetime{First: 3, Last: 5, Used: true}, true},
		{lifetime{First: 1, Last: 4, Used: true}, lifetime{First: 2, Last: 3, Used: true}, true},
		{lifetime{First: 0, Last: 2, Used: false}, lifetime{First: 0, Last: 2, Used: true}, false},
	}
	for i, c := range cases {
		if got := c.a.overlaps(c.b); got != c.want {
			t.Errorf("case %d: overlaps(%+v, %+v) = %v, want %v", i, c.a, c.b, got, c.want)
		}
		if got := c.b.overlaps(c.a); got != c.want {
			t.Errorf("case %d: overlaps is not symmetric for %+v, %+v", i, c.a, c.b)
		}
	}
}

func TestTextureResourceCanAliasWith(t *testing.T) {
	descA := TextureDesc{Format: 37, Extent: Extent3D{Width: 256, Height: 256, Depth: 1}, MipLevels: 1, ArrayLayers: 1, Samples: 1}

	nonOverlapping := &textureResource{origin: originTransient, desc: descA, life: lifetime{First: 0, Last: 2, Used: true}}
	laterUse := &textureResource{origin: originTransient, desc: descA, life: lifetime{First: 3, Last: 5, Used: true}}
	overlapping := &textureResource{origin: originTransient, desc: descA, life: lifetime{First: 2, Last: 4, Used: true}}
	external := &textureResource{origin: originExternal, desc: descA, life: lifetime{First: 3, Last: 5, Used: true}}

	if !nonOverlapping.canAliasWith(laterUse) {
		t.Error("non-overlapping transients with matching descriptors should be able to alias")
	}
	if nonOverlapping.canAliasWith(overlapping) {
		t.Error("overlapping lifetimes must never be allowed to alias")
	}
	if nonOverlapping.canAliasWith(external) {
		t.Error("an external resource must never be an aliasing candidate")
	}
}

func TestRegistryLookupRejectsUnknownHandle(t *testing.T) {
	reg := newRegistry()
	var stray TextureHandle
	if _, ok := reg.texture(stray); ok {
		t.Error("zero-value handle should never resolve")
	}

	var alloc handleAllocator
	h := alloc.nextTexture()
	reg.textures[h.id] = &textureResource{handle: h}
	if _, ok := reg.texture(h); !ok {
		t.Error("expected registered handle to resolve")
	}
}
