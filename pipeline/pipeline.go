package pipeline

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Config describes one graphics pipeline. Vertex/Fragment are required;
// when left zero, CullMode, FrontFace and Topology default to back-face
// culling, counter-clockwise front faces and a triangle list. DepthTest,
// DepthWrite and BlendEnable default to false (disabled).
type Config struct {
	Vertex   *Shader
	Fragment *Shader

	VertexBindings   []vk.VertexInputBindingDescription
	VertexAttributes []vk.VertexInputAttributeDescription

	// DescriptorBindings describes set 0's layout. Most passes need at
	// most a uniform buffer and a handful of sampled textures; a second
	// descriptor set is not supported since nothing in this engine's
	// scope needs more than one.
	DescriptorBindings []vk.DescriptorSetLayoutBinding
	PushConstantRanges []vk.PushConstantRange

	// ColorFormats and DepthFormat feed vk.PipelineRenderingCreateInfo
	// instead of a render pass, since every pipeline here is built for
	// dynamic rendering.
	ColorFormats []vk.Format
	DepthFormat  vk.Format

	CullMode    vk.CullModeFlagBits
	FrontFace   vk.FrontFace
	Topology    vk.PrimitiveTopology
	DepthTest   bool
	DepthWrite  bool
	BlendEnable bool
}

// Pipeline is a graphics pipeline built against dynamic rendering, plus
// the descriptor set and pipeline layout it was built with.
type Pipeline struct {
	device vk.Device

	descriptorSetLayout vk.DescriptorSetLayout
	layout              vk.PipelineLayout
	handle              vk.Pipeline
}

// New builds a descriptor set layout, pipeline layout and graphics
// pipeline from cfg. The returned Pipeline owns all three and releases
// them together on Destroy.
func New(device vk.Device, cache vk.PipelineCache, cfg Config) (*Pipeline, error) {
	if cfg.Vertex == nil || cfg.Fragment == nil {
		return nil, fmt.Errorf("pipeline: both a vertex and a fragment shader are required")
	}
	if len(cfg.ColorFormats) == 0 && cfg.DepthFormat == vk.FormatUndefined {
		return nil, fmt.Errorf("pipeline: at least one color or depth attachment format is required")
	}

	cullMode := cfg.CullMode
	if cullMode == 0 {
		cullMode = vk.CullModeBackBit
	}
	frontFace := cfg.FrontFace
	if frontFace == 0 {
		frontFace = vk.FrontFaceCounterClockwise
	}
	topology := cfg.Topology
	if topology == 0 {
		topology = vk.PrimitiveTopologyTriangleList
	}

	var descriptorSetLayout vk.DescriptorSetLayout
	dslci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(cfg.DescriptorBindings)),
		PBindings:    cfg.DescriptorBindings,
	}
	if err := vk.Error(vk.CreateDescriptorSetLayout(device, &dslci, nil, &descriptorSetLayout)); err != nil {
		return nil, fmt.Errorf("vk.CreateDescriptorSetLayout(): %w", err)
	}

	var layout vk.PipelineLayout
	plci := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{descriptorSetLayout},
		PushConstantRangeCount: uint32(len(cfg.PushConstantRanges)),
		PPushConstantRanges:    cfg.PushConstantRanges,
	}
	if err := vk.Error(vk.CreatePipelineLayout(device, &plci, nil, &layout)); err != nil {
		vk.DestroyDescriptorSetLayout(device, descriptorSetLayout, nil)
		return nil, fmt.Errorf("vk.CreatePipelineLayout(): %w", err)
	}

	renderingInfo := vk.PipelineRenderingCreateInfoKHR{
		SType:                   vk.StructureTypePipelineRenderingCreateInfoKhr,
		ColorAttachmentCount:    uint32(len(cfg.ColorFormats)),
		PColorAttachmentFormats: cfg.ColorFormats,
		DepthAttachmentFormat:   cfg.DepthFormat,
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  Vertex.vkBit(),
			Module: cfg.Vertex.module,
			PName:  "main\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  Fragment.vkBit(),
			Module: cfg.Fragment.module,
			PName:  "main\x00",
		},
	}

	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(cfg.ColorFormats))
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: 0xF,
			BlendEnable:    vk.Bool32(boolToUint32(cfg.BlendEnable)),
		}
	}

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:      unsafe.Pointer(&renderingInfo),
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(cfg.VertexBindings)),
			PVertexBindingDescriptions:      cfg.VertexBindings,
			VertexAttributeDescriptionCount: uint32(len(cfg.VertexAttributes)),
			PVertexAttributeDescriptions:    cfg.VertexAttributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: topology,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(cullMode),
			FrontFace:   frontFace,
			LineWidth:   1.0,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:  vk.Bool32(boolToUint32(cfg.DepthTest)),
			DepthWriteEnable: vk.Bool32(boolToUint32(cfg.DepthWrite)),
			DepthCompareOp:   vk.CompareOpLessOrEqual,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: uint32(len(blendAttachments)),
			PAttachments:    blendAttachments,
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates:    []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
		},
		Layout:     layout,
		RenderPass: nil,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := vk.Error(vk.CreateGraphicsPipelines(device, cache, uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		vk.DestroyPipelineLayout(device, layout, nil)
		vk.DestroyDescriptorSetLayout(device, descriptorSetLayout, nil)
		return nil, fmt.Errorf("vk.CreateGraphicsPipelines(): %w", err)
	}

	return &Pipeline{
		device:              device,
		descriptorSetLayout: descriptorSetLayout,
		layout:              layout,
		handle:              pipelines[0],
	}, nil
}

// Handle returns the underlying vk.Pipeline, for vk.CmdBindPipeline.
func (p *Pipeline) Handle() vk.Pipeline { return p.handle }

// Layout returns the pipeline layout, needed to push constants or bind
// descriptor sets.
func (p *Pipeline) Layout() vk.PipelineLayout { return p.layout }

// DescriptorSetLayout returns set 0's layout, needed to allocate
// matching descriptor sets from a vk.DescriptorPool.
func (p *Pipeline) DescriptorSetLayout() vk.DescriptorSetLayout { return p.descriptorSetLayout }

// Destroy releases the pipeline, its layout and its descriptor set
// layout.
func (p *Pipeline) Destroy() {
	if p == nil {
		return
	}
	vk.DestroyPipeline(p.device, p.handle, nil)
	vk.DestroyPipelineLayout(p.device, p.layout, nil)
	vk.DestroyDescriptorSetLayout(p.device, p.descriptorSetLayout, nil)
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// NewPipelineCache creates a vk.PipelineCache with no initial data,
// letting the driver accumulate compiled pipeline state across the
// Pipelines built against it within one device's lifetime.
func NewPipelineCache(device vk.Device) (vk.PipelineCache, error) {
	pcci := vk.PipelineCacheCreateInfo{SType: vk.StructureTypePipelineCacheCreateInfo}
	var cache vk.PipelineCache
	if err := vk.Error(vk.CreatePipelineCache(device, &pcci, nil, &cache)); err != nil {
		return nil, fmt.Errorf("vk.CreatePipelineCache(): %w", err)
	}
	return cache, nil
}
