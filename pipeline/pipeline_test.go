package pipeline

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestBoolToUint32(t *testing.T) {
	if boolToUint32(true) != 1 {
		t.Error("boolToUint32(true) != 1")
	}
	if boolToUint32(false) != 0 {
		t.Error("boolToUint32(false) != 0")
	}
}

func TestNewRejectsMissingShaders(t *testing.T) {
	if _, err := New(nil, nil, Config{ColorFormats: []vk.Format{vk.FormatR8g8b8a8Unorm}}); err == nil {
		t.Error("expected an error when Vertex/Fragment shaders are nil")
	}
}
