package rdg

import (
	"testing"

	glm "github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
)

func colorDesc(name string) TextureDesc {
	return TextureDesc{
		Name: name, Format: vk.FormatR8g8b8a8Unorm, Extent: Extent3D{Width: 256, Height: 256, Depth: 1},
		Usage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit),
	}
}

func newTestGraph() *Graph {
	return NewGraph("test", nil, nil, &fakeAllocator{}, NewPool(), nil)
}

func TestCompileCullsDeadPasses(t *testing.T) {
	g := newTestGraph()

	dead := g.CreateTexture(colorDesc("dead"))
	g.AddPass("writes-nothing-consumed", func(cmd vk.CommandBuffer) error { return nil }).
		WriteColorAttachment(dead, LoadOpClear, StoreOpStore, glm.Vec4{})

	intermediate := g.CreateTexture(colorDesc("intermediate"))
	g.AddPass("produce", func(cmd vk.CommandBuffer) error { return nil }).
		WriteColorAttachment(intermediate, LoadOpClear, StoreOpStore, glm.Vec4{})

	swap := g.RegisterExternalTexture(vk.NullImage, vk.NullImageView, colorDesc("swapchain"), vk.ImageLayoutUndefined)
	g.AddPass("present", func(cmd vk.CommandBuffer) error { return nil }).
		ReadTexture(intermediate, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), vk.AccessFlags(vk.AccessShaderReadBit)).
		WriteColorAttachment(swap, LoadOpClear, StoreOpStore, glm.Vec4{})

	if err := g.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(g.livePasses) != 2 {
		t.Fatalf("expected 2 live passes (produce, present), got %d: %v", len(g.livePasses), g.livePasses)
	}
	if g.compiledDeps[0].live {
		t.Error("the pass writing an unconsumed transient should have been culled")
	}
	if !g.compiledDeps[1].live || !g.compiledDeps[2].live {
		t.Error("produce and present should both survive culling")
	}
}

func TestCompileFailsFastOnUnknownHandle(t *testing.T) {
	g := newTestGraph()
	var bogus TextureHandle
	g.AddPass("broken", func(cmd vk.CommandBuffer) error { return nil }).
		WriteColorAttachment(bogus, LoadOpClear, StoreOpStore, glm.Vec4{})

	if err := g.Compile(); err == nil {
		t.Fatal("expected Compile to fail for an unknown texture handle")
	}
}

func TestCompileRejectsDuplicateDepthAttachment(t *testing.T) {
	g := newTestGraph()
	depth := g.CreateTexture(TextureDesc{
		Name: "depth", Format: vk.FormatD32Sfloat, Extent: Extent3D{Width: 256, Height: 256, Depth: 1},
		Usage: vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
	})
	g.AddPass("double-depth", func(cmd vk.CommandBuffer) error { return nil }).
		WriteDepthStencilAttachment(depth, LoadOpClear, StoreOpStore, LoadOpDontCare, StoreOpDontCare, 1, 0).
		WriteDepthStencilAttachment(depth, LoadOpClear, StoreOpStore, LoadOpDontCare, StoreOpDontCare, 1, 0)

	if g.Err() == nil {
		t.Fatal("expected setting a second depth-stencil attachment on one pass to fail fast")
	}
}

func TestAllocateResourcesRespectsLifetimeNonOverlap(t *testing.T) {
	g := newTestGraph()
	desc := colorDesc("ping-pong")

	a := g.CreateTexture(desc)
	swap := g.RegisterExternalTexture(vk.NullImage, vk.NullImageView, desc, vk.ImageLayoutUndefined)
	g.AddPass("a", func(cmd vk.CommandBuffer) error { return nil }).
		WriteColorAttachment(a, LoadOpClear, StoreOpStore, glm.Vec4{})

	b := g.CreateTexture(desc)
	g.AddPass("b", func(cmd vk.CommandBuffer) error { return nil }).
		ReadTexture(a, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), vk.AccessFlags(vk.AccessShaderReadBit)).
		WriteColorAttachment(b, LoadOpClear, StoreOpStore, glm.Vec4{})

	g.AddPass("present", func(cmd vk.CommandBuffer) error { return nil }).
		ReadTexture(b, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), vk.AccessFlags(vk.AccessShaderReadBit)).
		WriteColorAttachment(swap, LoadOpClear, StoreOpStore, glm.Vec4{})

	if err := g.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	ta, _ := g.reg.texture(a)
	tb, _ := g.reg.texture(b)
	if ta.backing == nil || tb.backing == nil {
		t.Fatal("both transients should have been allocated a backing")
	}
	if ta.life.overlaps(tb.life) && ta.backing == tb.backing {
		t.Error("overlapping-lifetime resources must never share a backing")
	}
}

func TestSynthesizeBarriersTransitionsLayoutOnFirstWrite(t *testing.T) {
	g := newTestGraph()
	desc := colorDesc("target")
	h := g.CreateTexture(desc)
	g.AddPass("clear", func(cmd vk.CommandBuffer) error { return nil }).
		WriteColorAttachment(h, LoadOpClear, StoreOpStore, glm.Vec4{})

	swap := g.RegisterExternalTexture(vk.NullImage, vk.NullImageView, desc, vk.ImageLayoutUndefined)
	g.AddPass("present", func(cmd vk.CommandBuffer) error { return nil }).
		ReadTexture(h, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), vk.AccessFlags(vk.AccessShaderReadBit)).
		WriteColorAttachment(swap, LoadOpClear, StoreOpStore, glm.Vec4{})

	if err := g.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	barriers, ok := g.barrierPlan[0]
	if !ok || len(barriers) == 0 {
		t.Fatal("expected at least one barrier synthesized for the clear pass's Undefined -> ColorAttachmentOptimal transition")
	}
	found := false
	for _, b := range barriers {
		if b.IsTexture && b.OldLayout == vk.ImageLayoutUndefined && b.NewLayout == vk.ImageLayoutColorAttachmentOptimal {
			found = true
		}
	}
	if !found {
		t.Error("expected an Undefined -> ColorAttachmentOptimal barrier on first write")
	}
}

func TestSynthesizeBarriersElidesConsecutiveSameLayoutReads(t *testing.T) {
	g := newTestGraph()
	desc := colorDesc("sampled")
	tex := g.CreateTexture(desc)
	g.AddPass("produce", func(cmd vk.CommandBuffer) error { return nil }).
		WriteColorAttachment(tex, LoadOpClear, StoreOpStore, glm.Vec4{})

	swap := g.RegisterExternalTexture(vk.NullImage, vk.NullImageView, desc, vk.ImageLayoutUndefined)
	g.AddPass("read-a", func(cmd vk.CommandBuffer) error { return nil }).
		ReadTexture(tex, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), vk.AccessFlags(vk.AccessShaderReadBit)).
		WriteColorAttachment(swap, LoadOpLoad, StoreOpDontCare, glm.Vec4{})
	g.AddPass("read-b", func(cmd vk.CommandBuffer) error { return nil }).
		ReadTexture(tex, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), vk.AccessFlags(vk.AccessShaderReadBit)).
		WriteColorAttachment(swap, LoadOpLoad, StoreOpStore, glm.Vec4{})

	if err := g.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	for _, b := range g.barrierPlan[2] {
		if b.IsTexture && b.TextureHandle == tex {
			t.Error("a second consecutive same-layout read of tex should not synthesize a barrier")
		}
	}
}

