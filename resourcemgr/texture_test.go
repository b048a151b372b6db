package resourcemgr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestLoadTextureDecodesPNG(t *testing.T) {
	data := encodeTestPNG(t, 4, 3)
	tex, err := LoadTexture("swatch", data)
	if err != nil {
		t.Fatalf("LoadTexture: %v", err)
	}
	if tex.Width != 4 || tex.Height != 3 {
		t.Errorf("got %dx%d, want 4x3", tex.Width, tex.Height)
	}
	if got, want := len(tex.Pixels), 4*3*4; got != want {
		t.Errorf("got %d pixel bytes, want %d", got, want)
	}
	if tex.ByteSize() != len(tex.Pixels) {
		t.Errorf("ByteSize() = %d, want %d", tex.ByteSize(), len(tex.Pixels))
	}
}

func TestLoadTextureRejectsGarbage(t *testing.T) {
	if _, err := LoadTexture("junk", []byte("not an image")); err == nil {
		t.Error("expected an error decoding non-image data")
	}
}
