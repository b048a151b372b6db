package rdg

import vk "github.com/vulkan-go/vulkan"

// Extent3D describes the dimensions of a texture resource.
type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

// TextureDesc describes a texture resource, transient or imported.
type TextureDesc struct {
	Name        string
	Format      vk.Format
	Extent      Extent3D
	Usage       vk.ImageUsageFlags
	MipLevels   uint32
	ArrayLayers uint32
	Samples     vk.SampleCountFlagBits
	Tiling      vk.ImageTiling
}

// IsValid reports whether the descriptor could back a real image: the
// format must be set and the extent must be non-degenerate.
func (d TextureDesc) IsValid() bool {
	return d.Format != vk.FormatUndefined && d.Extent.Width > 0 && d.Extent.Height > 0 && d.Extent.Depth > 0
}

// normalized fills in the defaults a caller is allowed to omit: one mip
// level, one array layer, single-sampled, optimal tiling.
func (d TextureDesc) normalized() TextureDesc {
	if d.MipLevels == 0 {
		d.MipLevels = 1
	}
	if d.ArrayLayers == 0 {
		d.ArrayLayers = 1
	}
	if d.Samples == 0 {
		d.Samples = vk.SampleCount1Bit
	}
	if d.Extent.Depth == 0 {
		d.Extent.Depth = 1
	}
	if d.Tiling == 0 {
		d.Tiling = vk.ImageTilingOptimal
	}
	return d
}

// equalForAliasing reports whether two descriptors are an exact enough
// match for the transient pool to alias one backing between them.
func (d TextureDesc) equalForAliasing(o TextureDesc) bool {
	return d.Format == o.Format &&
		d.Extent == o.Extent &&
		d.Usage == o.Usage &&
		d.MipLevels == o.MipLevels &&
		d.ArrayLayers == o.ArrayLayers &&
		d.Samples == o.Samples
}

// hasStencil reports whether the format carries a stencil component, which
// widens the subresource aspect mask used by synthesized barriers.
func (d TextureDesc) hasStencil() bool {
	switch d.Format {
	case vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint, vk.FormatS8Uint:
		return true
	default:
		return false
	}
}

// hasDepth reports whether the format carries a depth component.
func (d TextureDesc) hasDepth() bool {
	switch d.Format {
	case vk.FormatD16Unorm, vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint,
		vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatX8D24UnormPack32:
		return true
	default:
		return false
	}
}

// aspectMask derives the image aspect flags implied by the descriptor's
// format, covering the "all mips, all layers" default subresource range.
func (d TextureDesc) aspectMask() vk.ImageAspectFlags {
	if d.hasDepth() || d.hasStencil() {
		var mask vk.ImageAspectFlagBits
		if d.hasDepth() {
			mask |= vk.ImageAspectDepthBit
		}
		if d.hasStencil() {
			mask |= vk.ImageAspectStencilBit
		}
		return vk.ImageAspectFlags(mask)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func (d TextureDesc) fullSubresourceRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     d.aspectMask(),
		BaseMipLevel:   0,
		LevelCount:     d.MipLevels,
		BaseArrayLayer: 0,
		LayerCount:     d.ArrayLayers,
	}
}

// BufferDesc describes a buffer resource, transient or imported.
type BufferDesc struct {
	Name  string
	Size  uint64
	Usage vk.BufferUsageFlags
}

// IsValid reports whether the descriptor could back a real buffer.
func (d BufferDesc) IsValid() bool {
	return d.Size > 0
}

// compatibleForAliasing reports whether a pooled buffer of descriptor o can
// satisfy a new request with descriptor d: same usage, large enough.
func (d BufferDesc) compatibleForAliasing(o BufferDesc) bool {
	return d.Usage == o.Usage && o.Size >= d.Size
}
