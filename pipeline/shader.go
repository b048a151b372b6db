// Package pipeline builds graphics pipelines and descriptor set layouts
// for use inside render dependency graph passes. Pipelines here are
// built against dynamic rendering (vk.PipelineRenderingCreateInfo),
// never a vk.RenderPass, so a pass callback can bind one without the
// graph having to own a render pass object at all.
package pipeline

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Stage identifies which shader stage a module was compiled for.
type Stage int

const (
	Vertex Stage = iota
	Fragment
)

func (s Stage) vkBit() vk.ShaderStageFlagBits {
	switch s {
	case Vertex:
		return vk.ShaderStageVertexBit
	case Fragment:
		return vk.ShaderStageFragmentBit
	default:
		return 0
	}
}

// Shader is a loaded SPIR-V module bound to the stage it was compiled
// for.
type Shader struct {
	device vk.Device
	module vk.ShaderModule
	stage  Stage
}

// LoadShader reads a SPIR-V binary from path and creates a shader
// module from it. SPIR-V words are 4-byte aligned; path's contents must
// already be compiled (e.g. by glslangValidator), not GLSL source.
func LoadShader(device vk.Device, path string, stage Stage) (*Shader, error) {
	code, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read %q: %w", path, err)
	}
	return NewShaderFromBytes(device, code, stage)
}

// NewShaderFromBytes creates a shader module from an in-memory SPIR-V
// binary, for callers that bundle shaders into a kar archive rather
// than reading them from the filesystem.
func NewShaderFromBytes(device vk.Device, code []byte, stage Stage) (*Shader, error) {
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("pipeline: SPIR-V binary length %d is not a multiple of 4", len(code))
	}
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}
	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(device, &smci, nil, &module)); err != nil {
		return nil, fmt.Errorf("vk.CreateShaderModule(): %w", err)
	}
	return &Shader{device: device, module: module, stage: stage}, nil
}

// Destroy releases the shader module. Safe to call once the pipeline(s)
// built from it exist, since Vulkan pipelines do not retain a reference
// to the module that created their stages.
func (s *Shader) Destroy() {
	if s == nil {
		return
	}
	vk.DestroyShaderModule(s.device, s.module, nil)
}

// LoadShaderDirectory loads every compiled SPIR-V module in dir, keyed
// by "<name>.<stage>" (e.g. "mesh.vert"). Files are expected to be named "<name>.vert.spv" or
// "<name>.frag.spv" — any other suffix is ignored, so a directory that
// also holds GLSL sources or an editor's swap files can be loaded as-is.
func LoadShaderDirectory(device vk.Device, dir string) (map[string]*Shader, error) {
	shaders := make(map[string]*Shader)
	err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".spv") {
			return nil
		}
		nodes := strings.Split(strings.TrimSuffix(f.Name(), ".spv"), ".")
		if len(nodes) != 2 {
			return nil
		}

		var stage Stage
		switch nodes[1] {
		case "vert":
			stage = Vertex
		case "frag":
			stage = Fragment
		default:
			return nil
		}

		shader, err := LoadShader(device, path, stage)
		if err != nil {
			return fmt.Errorf("pipeline: %s: %w", path, err)
		}
		shaders[nodes[0]+"."+nodes[1]] = shader
		return nil
	})
	if err != nil {
		for _, s := range shaders {
			s.Destroy()
		}
		return nil, err
	}
	return shaders, nil
}

func sliceUint32(data []byte) []uint32 {
	const wordSize = 4
	out := make([]uint32, len(data)/wordSize)
	for i := range out {
		out[i] = *(*uint32)(unsafe.Pointer(&data[i*wordSize]))
	}
	return out
}
