package memory

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestAspectMaskForFormat(t *testing.T) {
	cases := []struct {
		format vk.Format
		want   vk.ImageAspectFlags
	}{
		{vk.FormatR8g8b8a8Unorm, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
		{vk.FormatD32Sfloat, vk.ImageAspectFlags(vk.ImageAspectDepthBit)},
		{vk.FormatD24UnormS8Uint, vk.ImageAspectFlags(vk.ImageAspectDepthBit) | vk.ImageAspectFlags(vk.ImageAspectStencilBit)},
	}
	for _, c := range cases {
		if got := aspectMaskForFormat(c.format); got != c.want {
			t.Errorf("aspectMaskForFormat(%v) = %v, want %v", c.format, got, c.want)
		}
	}
}

func TestMaxUint32(t *testing.T) {
	if maxUint32(1, 5) != 5 {
		t.Error("maxUint32(1, 5) != 5")
	}
	if maxUint32(5, 1) != 5 {
		t.Error("maxUint32(5, 1) != 5")
	}
	if maxUint32(0, 0) != 0 {
		t.Error("maxUint32(0, 0) != 0")
	}
}
