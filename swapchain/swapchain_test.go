package swapchain

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestChooseCompositeAlphaPrefersOpaque(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit) | vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit),
	}
	if got := chooseCompositeAlpha(caps); got != vk.CompositeAlphaOpaqueBit {
		t.Errorf("got %v, want CompositeAlphaOpaqueBit", got)
	}
}

func TestChooseCompositeAlphaFallsBackWhenOpaqueUnsupported(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaPreMultipliedBit),
	}
	if got := chooseCompositeAlpha(caps); got != vk.CompositeAlphaPreMultipliedBit {
		t.Errorf("got %v, want CompositeAlphaPreMultipliedBit", got)
	}
}

func TestChooseCompositeAlphaDefaultsToOpaqueWhenNothingMatches(t *testing.T) {
	caps := vk.SurfaceCapabilities{SupportedCompositeAlpha: 0}
	if got := chooseCompositeAlpha(caps); got != vk.CompositeAlphaOpaqueBit {
		t.Errorf("got %v, want default CompositeAlphaOpaqueBit", got)
	}
}
