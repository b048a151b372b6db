// Package cmdpool manages a per-thread Vulkan command pool and the
// primary command buffers allocated from it. It satisfies
// rdg.CommandSource, so a *Pool can be handed directly to rdg.NewGraph.
package cmdpool

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/shanyu-yun/qtrender/device"
)

// Pool owns one vk.CommandPool and a ring of primary command buffers
// allocated from it, one per frame-in-flight slot. It is not safe for
// concurrent use: create one Pool per thread that records commands, per
// the single-threaded-per-pool rule every Vulkan implementation assumes.
type Pool struct {
	device device.Device
	queue  vk.Queue

	handle  vk.CommandPool
	buffers []vk.CommandBuffer
	cursor  int
}

// New creates a command pool against the graphics queue family and
// allocates framesInFlight primary command buffers from it up front, so
// Acquire never allocates once steady-state rendering begins.
func New(dev device.Device, framesInFlight int) (*Pool, error) {
	if framesInFlight < 1 {
		return nil, fmt.Errorf("cmdpool: framesInFlight must be >= 1, got %d", framesInFlight)
	}

	queue, family := dev.GraphicsQueue()

	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var handle vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(dev.Handle(), &cpci, nil, &handle)); err != nil {
		return nil, fmt.Errorf("vk.CreateCommandPool(): %w", err)
	}

	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(framesInFlight),
	}
	buffers := make([]vk.CommandBuffer, framesInFlight)
	if err := vk.Error(vk.AllocateCommandBuffers(dev.Handle(), &cbai, buffers)); err != nil {
		vk.DestroyCommandPool(dev.Handle(), handle, nil)
		return nil, fmt.Errorf("vk.AllocateCommandBuffers(): %w", err)
	}

	return &Pool{device: dev, queue: queue, handle: handle, buffers: buffers}, nil
}

// Acquire implements rdg.CommandSource: it resets and begins the next
// buffer in the ring. Pair one Pool slot per FrameSyncManager slot so a
// buffer is never reset while the GPU may still be reading it.
func (p *Pool) Acquire() (vk.CommandBuffer, error) {
	cmd := p.buffers[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.buffers)

	if err := vk.Error(vk.ResetCommandBuffer(cmd, 0)); err != nil {
		return nil, fmt.Errorf("vk.ResetCommandBuffer(): %w", err)
	}
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(cmd, &cbbi)); err != nil {
		return nil, fmt.Errorf("vk.BeginCommandBuffer(): %w", err)
	}
	return cmd, nil
}

// Submit implements rdg.CommandSource: it ends the command buffer and
// submits it to the graphics queue with the given wait/signal semaphores
// and fence.
func (p *Pool) Submit(cmd vk.CommandBuffer, wait []vk.Semaphore, waitStages []vk.PipelineStageFlags,
	signal []vk.Semaphore, fence vk.Fence) error {
	if err := vk.Error(vk.EndCommandBuffer(cmd)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %w", err)
	}

	si := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(wait)),
		PWaitSemaphores:      wait,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: uint32(len(signal)),
		PSignalSemaphores:    signal,
	}
	if err := vk.Error(vk.QueueSubmit(p.queue, 1, []vk.SubmitInfo{si}, fence)); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %w", err)
	}
	return nil
}

// ExecuteOnetime runs fn against a freshly allocated, freestanding
// command buffer and blocks until the graphics queue has finished it. For
// upload and other setup work that doesn't belong in a per-frame graph.
func (p *Pool) ExecuteOnetime(fn func(vk.CommandBuffer) error) error {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buf := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(p.device.Handle(), &cbai, buf)); err != nil {
		return fmt.Errorf("vk.AllocateCommandBuffers(): %w", err)
	}
	cmd := buf[0]
	defer vk.FreeCommandBuffers(p.device.Handle(), p.handle, 1, buf)

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(cmd, &cbbi)); err != nil {
		return fmt.Errorf("vk.BeginCommandBuffer(): %w", err)
	}
	if err := fn(cmd); err != nil {
		return err
	}
	if err := vk.Error(vk.EndCommandBuffer(cmd)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %w", err)
	}

	si := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}
	if err := vk.Error(vk.QueueSubmit(p.queue, 1, []vk.SubmitInfo{si}, vk.NullFence)); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %w", err)
	}
	return vk.Error(vk.QueueWaitIdle(p.queue))
}

// Destroy frees every allocated command buffer and the pool itself.
func (p *Pool) Destroy() {
	if p == nil {
		return
	}
	if len(p.buffers) > 0 {
		vk.FreeCommandBuffers(p.device.Handle(), p.handle, uint32(len(p.buffers)), p.buffers)
	}
	vk.DestroyCommandPool(p.device.Handle(), p.handle, nil)
}
