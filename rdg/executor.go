package rdg

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// Execute runs every live pass in declaration order against a freshly
// acquired command buffer, then submits once. It never blocks on the
// GPU: callers own frame pacing through FrameSyncManager.
//
// A failing or panicking pass callback is isolated: it's recorded in the
// returned report and execution continues with the next pass. Execute
// only returns a non-nil error for a programming mistake (calling it
// before Compile, or twice) or for a failure to acquire/submit the
// command buffer itself.
func (g *Graph) Execute(sync SyncBundle, waitStage vk.PipelineStageFlags) (ExecutionReport, error) {
	var report ExecutionReport

	if g.err != nil {
		return report, g.err
	}
	if !g.compiled {
		return report, errProgramming("graph %q: Execute called before Compile", g.name)
	}
	if g.executed {
		return report, errProgramming("graph %q: Execute called twice", g.name)
	}

	cmd, err := g.cmds.Acquire()
	if err != nil {
		return report, fmt.Errorf("rdg: acquire command buffer: %w", err)
	}

	accessor := newResourceAccessor(g, g.samplers)

	for _, idx := range g.livePasses {
		cp := g.compiledDeps[idx]
		p := cp.pass

		if barriers, ok := g.barrierPlan[idx]; ok && len(barriers) > 0 {
			emitBarriers(cmd, barriers)
		}

		graphics := p.Kind() == PassKindGraphics
		if graphics {
			beginRendering(cmd, g, p)
		}

		if perr := runPassCallback(p, cmd, accessor); perr != nil {
			log.WithFields(log.Fields{"pass": p.name}).WithError(perr).Error("rdg: pass callback failed")
			report.PassErrors = append(report.PassErrors, &PassError{PassName: p.name, Err: perr})
		}

		if graphics {
			vk.CmdEndRenderingKHR(cmd)
		}

		if post, ok := g.postBarrierPlan[idx]; ok && len(post) > 0 {
			emitBarriers(cmd, post)
		}
	}

	if err := g.cmds.Submit(cmd, []vk.Semaphore{sync.ImageAvailable}, []vk.PipelineStageFlags{waitStage},
		[]vk.Semaphore{sync.RenderFinished}, sync.Fence); err != nil {
		return report, fmt.Errorf("rdg: submit: %w", err)
	}

	report.Submitted = true
	g.executed = true
	return report, nil
}

// runPassCallback invokes whichever callback shape the pass was declared
// with, converting a panic into a PassError instead of crashing the rest
// of the frame.
func runPassCallback(p *Pass, cmd vk.CommandBuffer, accessor *ResourceAccessor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if p.callbackEx != nil {
		return p.callbackEx(cmd, accessor)
	}
	if p.callback != nil {
		return p.callback(cmd)
	}
	return nil
}

// emitBarriers coalesces a pass's barrier list into a single
// pipelineBarrier call, the way a pass's synchronization should look
// regardless of how many resources triggered it.
func emitBarriers(cmd vk.CommandBuffer, barriers []Barrier) {
	var srcStages, dstStages vk.PipelineStageFlags
	var imageBarriers []vk.ImageMemoryBarrier
	var bufferBarriers []vk.BufferMemoryBarrier

	for _, b := range barriers {
		srcStages |= b.SrcStages
		dstStages |= b.DstStages
		if b.IsTexture {
			imageBarriers = append(imageBarriers, b.toImageBarrier())
		} else {
			bufferBarriers = append(bufferBarriers, b.toBufferBarrier())
		}
	}
	if srcStages == 0 {
		srcStages = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}
	if dstStages == 0 {
		dstStages = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}

	vk.CmdPipelineBarrier(cmd, srcStages, dstStages, 0,
		0, nil,
		uint32(len(bufferBarriers)), bufferBarriers,
		uint32(len(imageBarriers)), imageBarriers,
	)
}

// beginRendering opens a dynamic-rendering scope over a graphics pass's
// declared attachments.
func beginRendering(cmd vk.CommandBuffer, g *Graph, p *Pass) {
	var extent Extent3D
	colorInfos := make([]vk.RenderingAttachmentInfoKHR, 0, len(p.colorAttachments))
	for _, a := range p.colorAttachments {
		t, ok := g.reg.texture(a.Handle)
		if !ok || t.backing == nil {
			continue
		}
		extent = t.desc.Extent
		info := vk.RenderingAttachmentInfoKHR{
			SType:       vk.StructureTypeRenderingAttachmentInfoKhr,
			ImageView:   t.backing.View,
			ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
			LoadOp:      toVkLoadOp(a.LoadOp),
			StoreOp:     toVkStoreOp(a.StoreOp),
		}
		info.ClearValue.SetColor([]float32{a.Clear.X(), a.Clear.Y(), a.Clear.Z(), a.Clear.W()})
		colorInfos = append(colorInfos, info)
	}

	var depthInfo *vk.RenderingAttachmentInfoKHR
	if ds := p.depthStencil; ds != nil {
		if t, ok := g.reg.texture(ds.Handle); ok && t.backing != nil {
			extent = t.desc.Extent
			info := vk.RenderingAttachmentInfoKHR{
				SType:       vk.StructureTypeRenderingAttachmentInfoKhr,
				ImageView:   t.backing.View,
				ImageLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
				LoadOp:      toVkLoadOp(ds.DepthLoadOp),
				StoreOp:     toVkStoreOp(ds.DepthStoreOp),
			}
			info.ClearValue.SetDepthStencil(ds.ClearDepth, ds.ClearStencil)
			depthInfo = &info
		}
	}

	renderInfo := vk.RenderingInfoKHR{
		SType:      vk.StructureTypeRenderingInfoKhr,
		RenderArea: vk.Rect2D{Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height}},
		LayerCount: 1,
		ColorAttachmentCount: uint32(len(colorInfos)),
		PColorAttachments:    colorInfos,
	}
	if depthInfo != nil {
		renderInfo.PDepthAttachment = depthInfo
	}

	vk.CmdBeginRenderingKHR(cmd, &renderInfo)
}

func toVkLoadOp(op LoadOp) vk.AttachmentLoadOp {
	switch op {
	case LoadOpLoad:
		return vk.AttachmentLoadOpLoad
	case LoadOpClear:
		return vk.AttachmentLoadOpClear
	default:
		return vk.AttachmentLoadOpDontCare
	}
}

func toVkStoreOp(op StoreOp) vk.AttachmentStoreOp {
	if op == StoreOpStore {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}
