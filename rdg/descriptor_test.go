package rdg

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestTextureDescNormalizedFillsDefaults(t *testing.T) {
	d := TextureDesc{
		Name:   "color",
		Format: vk.FormatR8g8b8a8Unorm,
		Extent: Extent3D{Width: 1920, Height: 1080},
	}.normalized()

	if d.MipLevels != 1 || d.ArrayLayers != 1 || d.Samples != vk.SampleCount1Bit {
		t.Errorf("unexpected defaults: %+v", d)
	}
	if d.Extent.Depth != 1 {
		t.Errorf("expected depth to default to 1, got %d", d.Extent.Depth)
	}
	if d.Tiling != vk.ImageTilingOptimal {
		t.Errorf("expected optimal tiling default, got %v", d.Tiling)
	}
}

func TestTextureDescIsValidRejectsDegenerateExtent(t *testing.T) {
	d := TextureDesc{Format: vk.FormatR8g8b8a8Unorm, Extent: Extent3D{Width: 0, Height: 1080, Depth: 1}}
	if d.IsValid() {
		t.Error("zero-width descriptor reported valid")
	}
	d2 := TextureDesc{Extent: Extent3D{Width: 1, Height: 1, Depth: 1}}
	if d2.IsValid() {
		t.Error("undefined-format descriptor reported valid")
	}
}

func TestTextureDescEqualForAliasingIgnoresName(t *testing.T) {
	base := TextureDesc{
		Format: vk.FormatR8g8b8a8Unorm, Extent: Extent3D{Width: 256, Height: 256, Depth: 1},
		Usage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit), MipLevels: 1, ArrayLayers: 1, Samples: vk.SampleCount1Bit,
	}
	renamed := base
	renamed.Name = "a completely different name"
	if !base.equalForAliasing(renamed) {
		t.Error("descriptors differing only in Name should be aliasing-equal")
	}

	resized := base
	resized.Extent.Width = 512
	if base.equalForAliasing(resized) {
		t.Error("descriptors with different extents should not be aliasing-equal")
	}
}

func TestTextureDescAspectMaskForDepthStencilFormat(t *testing.T) {
	d := TextureDesc{Format: vk.FormatD24UnormS8Uint}
	mask := d.aspectMask()
	if mask&vk.ImageAspectFlags(vk.ImageAspectDepthBit) == 0 {
		t.Error("expected depth aspect bit for D24S8 format")
	}
	if mask&vk.ImageAspectFlags(vk.ImageAspectStencilBit) == 0 {
		t.Error("expected stencil aspect bit for D24S8 format")
	}
	if mask&vk.ImageAspectFlags(vk.ImageAspectColorBit) != 0 {
		t.Error("did not expect color aspect bit for a depth-stencil format")
	}
}

func TestTextureDescAspectMaskForColorFormat(t *testing.T) {
	d := TextureDesc{Format: vk.FormatR8g8b8a8Unorm}
	if d.aspectMask() != vk.ImageAspectFlags(vk.ImageAspectColorBit) {
		t.Error("expected plain color aspect mask for a color format")
	}
}

func TestBufferDescCompatibleForAliasing(t *testing.T) {
	want := BufferDesc{Usage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), Size: 1024}
	smallerPooled := BufferDesc{Usage: want.Usage, Size: 512}
	largerPooled := BufferDesc{Usage: want.Usage, Size: 4096}
	wrongUsage := BufferDesc{Usage: vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), Size: 4096}

	if want.compatibleForAliasing(smallerPooled) {
		t.Error("a too-small pooled buffer should not satisfy a larger request")
	}
	if !want.compatibleForAliasing(largerPooled) {
		t.Error("a large-enough, same-usage pooled buffer should satisfy the request")
	}
	if want.compatibleForAliasing(wrongUsage) {
		t.Error("a buffer with different usage flags should never be aliasing-compatible")
	}
}
