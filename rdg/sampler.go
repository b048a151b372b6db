package rdg

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// SamplerKind names one of the graph's fixed set of owned samplers. The
// set is closed: passes pick from it instead of building ad hoc sampler
// objects, so the graph can create them once per device and cache them
// for the life of the process.
type SamplerKind uint8

const (
	SamplerNearestClamp SamplerKind = iota
	SamplerNearestRepeat
	SamplerLinearClamp
	SamplerLinearRepeat
	SamplerAnisotropicClamp
	SamplerAnisotropicRepeat
	SamplerShadowPCF

	samplerKindCount
)

func (k SamplerKind) String() string {
	switch k {
	case SamplerNearestClamp:
		return "NearestClamp"
	case SamplerNearestRepeat:
		return "NearestRepeat"
	case SamplerLinearClamp:
		return "LinearClamp"
	case SamplerLinearRepeat:
		return "LinearRepeat"
	case SamplerAnisotropicClamp:
		return "AnisotropicClamp"
	case SamplerAnisotropicRepeat:
		return "AnisotropicRepeat"
	case SamplerShadowPCF:
		return "ShadowPCF"
	default:
		return "Invalid"
	}
}

// SamplerCache owns the one vk.Sampler per SamplerKind for a device. It
// is created once alongside the Allocator and shared by every Graph and
// ResourceAccessor for that device's lifetime.
type SamplerCache struct {
	samplers [samplerKindCount]vk.Sampler
}

func NewSamplerCache(device vk.Device, maxAnisotropy float32) (*SamplerCache, error) {
	cache := &SamplerCache{}
	for k := SamplerKind(0); k < samplerKindCount; k++ {
		info := samplerCreateInfo(k, maxAnisotropy)
		var s vk.Sampler
		if res := vk.CreateSampler(device, &info, nil, &s); res != vk.Success {
			for _, existing := range cache.samplers {
				if existing != vk.NullSampler {
					vk.DestroySampler(device, existing, nil)
				}
			}
			return nil, fmt.Errorf("rdg: create sampler %s: %d", k, res)
		}
		cache.samplers[k] = s
	}
	return cache, nil
}

func (c *SamplerCache) Get(k SamplerKind) vk.Sampler {
	if k >= samplerKindCount {
		return vk.NullSampler
	}
	return c.samplers[k]
}

func (c *SamplerCache) Destroy(device vk.Device) {
	for _, s := range c.samplers {
		if s != vk.NullSampler {
			vk.DestroySampler(device, s, nil)
		}
	}
}

func samplerCreateInfo(k SamplerKind, maxAnisotropy float32) vk.SamplerCreateInfo {
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MinLod:                  0,
		MaxLod:                  vk.LodClampNone,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}

	switch k {
	case SamplerNearestClamp:
		info.MinFilter, info.MagFilter = vk.FilterNearest, vk.FilterNearest
		info.AddressModeU, info.AddressModeV, info.AddressModeW = clampMode(), clampMode(), clampMode()
	case SamplerNearestRepeat:
		info.MinFilter, info.MagFilter = vk.FilterNearest, vk.FilterNearest
		info.AddressModeU, info.AddressModeV, info.AddressModeW = repeatMode(), repeatMode(), repeatMode()
	case SamplerLinearClamp:
		info.MinFilter, info.MagFilter = vk.FilterLinear, vk.FilterLinear
		info.AddressModeU, info.AddressModeV, info.AddressModeW = clampMode(), clampMode(), clampMode()
	case SamplerLinearRepeat:
		info.MinFilter, info.MagFilter = vk.FilterLinear, vk.FilterLinear
		info.AddressModeU, info.AddressModeV, info.AddressModeW = repeatMode(), repeatMode(), repeatMode()
	case SamplerAnisotropicClamp:
		info.MinFilter, info.MagFilter = vk.FilterLinear, vk.FilterLinear
		info.AddressModeU, info.AddressModeV, info.AddressModeW = clampMode(), clampMode(), clampMode()
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = maxAnisotropy
	case SamplerAnisotropicRepeat:
		info.MinFilter, info.MagFilter = vk.FilterLinear, vk.FilterLinear
		info.AddressModeU, info.AddressModeV, info.AddressModeW = repeatMode(), repeatMode(), repeatMode()
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = maxAnisotropy
	case SamplerShadowPCF:
		info.MinFilter, info.MagFilter = vk.FilterLinear, vk.FilterLinear
		info.AddressModeU, info.AddressModeV, info.AddressModeW = clampMode(), clampMode(), clampMode()
		info.CompareEnable = vk.True
		info.CompareOp = vk.CompareOpLessOrEqual
	}
	return info
}

func clampMode() vk.SamplerAddressMode  { return vk.SamplerAddressModeClampToEdge }
func repeatMode() vk.SamplerAddressMode { return vk.SamplerAddressModeRepeat }
