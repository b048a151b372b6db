package resourcemgr

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	vk "github.com/vulkan-go/vulkan"
)

// Texture is a loaded, CPU-resident texture: tightly packed RGBA8 pixels
// ready to be copied into a staging buffer and uploaded. As with Mesh,
// this package stops at the CPU-resident cache; GPU upload and the
// resulting rdg.TextureHandle belong to the caller.
type Texture struct {
	Name   string
	Width  uint32
	Height uint32
	Format vk.Format
	Pixels []uint8
}

// LoadTexture decodes an image file (png, jpeg, bmp or tiff, selected by
// content, not extension) into a tightly packed RGBA8 Texture.
func LoadTexture(name string, fileContents []byte) (*Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(fileContents))
	if err != nil {
		return nil, fmt.Errorf("resourcemgr: decode texture %q: %w", name, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return &Texture{
		Name:   name,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Format: vk.FormatR8g8b8a8Unorm,
		Pixels: rgba.Pix,
	}, nil
}

// ByteSize reports the pixel buffer's size in bytes.
func (t *Texture) ByteSize() int { return len(t.Pixels) }
