package rdg

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// SyncBundle is the fence/semaphore set for one frame-in-flight slot:
// the fence the CPU waits on before reusing the slot's command buffer,
// and the semaphore pair the GPU waits on and signals around
// presentation.
type SyncBundle struct {
	Fence            vk.Fence
	ImageAvailable   vk.Semaphore
	RenderFinished   vk.Semaphore
}

// FrameSyncManager rotates through N frame-in-flight slots, each with its
// own fence and semaphore pair, so the CPU can record frame N+1 while the
// GPU still drains frame N.
type FrameSyncManager struct {
	device vk.Device
	slots  []SyncBundle
	cursor int
}

// NewFrameSyncManager creates framesInFlight slots, each with its fence
// initially signaled so the first wait on it returns immediately.
func NewFrameSyncManager(device vk.Device, framesInFlight int) (*FrameSyncManager, error) {
	if framesInFlight < 1 {
		return nil, fmt.Errorf("rdg: framesInFlight must be >= 1, got %d", framesInFlight)
	}
	m := &FrameSyncManager{device: device, slots: make([]SyncBundle, framesInFlight)}
	fenceInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo, Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit)}
	semInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}

	for i := range m.slots {
		var fence vk.Fence
		if res := vk.CreateFence(device, &fenceInfo, nil, &fence); res != vk.Success {
			m.destroyUpTo(i)
			return nil, fmt.Errorf("rdg: create fence %d: %d", i, res)
		}
		var avail, finished vk.Semaphore
		if res := vk.CreateSemaphore(device, &semInfo, nil, &avail); res != vk.Success {
			vk.DestroyFence(device, fence, nil)
			m.destroyUpTo(i)
			return nil, fmt.Errorf("rdg: create image-available semaphore %d: %d", i, res)
		}
		if res := vk.CreateSemaphore(device, &semInfo, nil, &finished); res != vk.Success {
			vk.DestroyFence(device, fence, nil)
			vk.DestroySemaphore(device, avail, nil)
			m.destroyUpTo(i)
			return nil, fmt.Errorf("rdg: create render-finished semaphore %d: %d", i, res)
		}
		m.slots[i] = SyncBundle{Fence: fence, ImageAvailable: avail, RenderFinished: finished}
	}
	return m, nil
}

func (m *FrameSyncManager) destroyUpTo(n int) {
	for i := 0; i < n; i++ {
		s := m.slots[i]
		vk.DestroyFence(m.device, s.Fence, nil)
		vk.DestroySemaphore(m.device, s.ImageAvailable, nil)
		vk.DestroySemaphore(m.device, s.RenderFinished, nil)
	}
}

// Current returns the slot the caller is currently recording into.
func (m *FrameSyncManager) Current() SyncBundle {
	return m.slots[m.cursor]
}

// Advance moves the cursor to the next slot and waits on its fence,
// blocking until the GPU has finished the frame that last used that
// slot (returning at once if that frame has already finished), then
// resets it. Call it once per frame, after submitting.
func (m *FrameSyncManager) Advance() error {
	m.cursor = (m.cursor + 1) % len(m.slots)
	slot := m.slots[m.cursor]
	fences := []vk.Fence{slot.Fence}
	if res := vk.WaitForFences(m.device, 1, fences, vk.True, ^uint64(0)); res != vk.Success {
		return fmt.Errorf("rdg: wait for fence: %d", res)
	}
	if res := vk.ResetFences(m.device, 1, fences); res != vk.Success {
		return fmt.Errorf("rdg: reset fence: %d", res)
	}
	return nil
}

// WaitAll blocks until every slot's fence is signaled, for clean
// shutdown: call it once, after the last frame has been submitted and
// before destroying any resource a pending frame might still reference.
func (m *FrameSyncManager) WaitAll() error {
	fences := make([]vk.Fence, len(m.slots))
	for i, s := range m.slots {
		fences[i] = s.Fence
	}
	if res := vk.WaitForFences(m.device, uint32(len(fences)), fences, vk.True, ^uint64(0)); res != vk.Success {
		return fmt.Errorf("rdg: wait for all fences: %d", res)
	}
	return nil
}

// Destroy releases every slot's fence and semaphores. Call WaitAll first.
func (m *FrameSyncManager) Destroy() {
	m.destroyUpTo(len(m.slots))
	m.slots = nil
}
