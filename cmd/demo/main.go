// Command demo drives a minimal SDL2 window through a single render
// dependency graph pass per frame: clear the swapchain image and present
// it. It exercises the whole stack end to end — device, swapchain,
// command pool, memory allocator, asset cache, and the graph itself.
package main

import (
	"flag"
	"runtime"

	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	vk "github.com/vulkan-go/vulkan"

	"github.com/shanyu-yun/qtrender/cmdpool"
	"github.com/shanyu-yun/qtrender/device"
	"github.com/shanyu-yun/qtrender/frametime"
	"github.com/shanyu-yun/qtrender/memory"
	"github.com/shanyu-yun/qtrender/rdg"
	"github.com/shanyu-yun/qtrender/resourcemgr"
	"github.com/shanyu-yun/qtrender/swapchain"
)

func init() {
	runtime.LockOSThread()
}

// Configuration mirrors the engine-level knobs a launcher needs to pick
// before any Vulkan object exists.
type Configuration struct {
	ScreenWidth     int32
	ScreenHeight    int32
	FramesPerSecond int
	FramesInFlight  int
	ArchivePath     string
}

var configuration = Configuration{
	ScreenWidth:     1280,
	ScreenHeight:    720,
	FramesPerSecond: 60,
	FramesInFlight:  2,
	ArchivePath:     "",
}

func main() {
	archivePath := flag.String("archive", configuration.ArchivePath, "path to a .kar asset archive to mount (optional)")
	debug := flag.Bool("debug", false, "enable verbose logging")
	flag.Parse()
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		log.WithError(err).Fatal("sdl.Init")
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		log.WithError(err).Fatal("sdl.VulkanLoadLibrary")
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := sdl.CreateWindow("qtrender demo",
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		configuration.ScreenWidth, configuration.ScreenHeight,
		sdl.WINDOW_VULKAN)
	if err != nil {
		log.WithError(err).Fatal("sdl.CreateWindow")
	}
	defer window.Destroy()

	dev, err := device.NewVulkanDevice(device.DefaultVulkanApplicationInfo, sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		log.WithError(err).Fatal("device.NewVulkanDevice")
	}
	defer dev.Destroy()

	surface, err := window.VulkanCreateSurface(dev.Instance())
	if err != nil {
		log.WithError(err).Fatal("window.VulkanCreateSurface")
	}
	dev.SetSurface(surface)

	if err := dev.Open(func(info device.PhysicalDeviceInfo) (bool, string) {
		return true, ""
	}); err != nil {
		log.WithError(err).Fatal("device.Open")
	}

	sc, err := swapchain.New(dev, swapchain.Config{
		MinImageCount: uint32(configuration.FramesInFlight) + 1,
		Width:         uint32(configuration.ScreenWidth),
		Height:        uint32(configuration.ScreenHeight),
	}, nil)
	if err != nil {
		log.WithError(err).Fatal("swapchain.New")
	}
	defer sc.Destroy()

	pool, err := cmdpool.New(dev, configuration.FramesInFlight)
	if err != nil {
		log.WithError(err).Fatal("cmdpool.New")
	}
	defer pool.Destroy()

	alloc := memory.New(dev.Handle(), dev.PhysicalDevice())

	samplers, err := rdg.NewSamplerCache(dev.Handle(), 16)
	if err != nil {
		log.WithError(err).Fatal("rdg.NewSamplerCache")
	}

	sync, err := rdg.NewFrameSyncManager(dev.Handle(), configuration.FramesInFlight)
	if err != nil {
		log.WithError(err).Fatal("rdg.NewFrameSyncManager")
	}
	defer sync.Destroy()

	transientPool := rdg.NewPool()
	defer transientPool.Destroy(alloc)

	assets := resourcemgr.New()
	defer assets.Close()
	if *archivePath != "" {
		if err := assets.MountArchive("main", *archivePath); err != nil {
			log.WithError(err).Fatal("assets.MountArchive")
		}
	}

	pacer := frametime.NewPacer(frametime.Config{
		FramesPerSecond:     configuration.FramesPerSecond,
		EventPollIntervalMS: 4,
	})
	defer pacer.Stop()

	clearColor := glm.Vec4{0.02, 0.02, 0.05, 1.0}
	exit := false

EventLoop:
	for !exit {
		select {
		case <-pacer.EventTick():
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch e := event.(type) {
				case *sdl.KeyboardEvent:
					if e.Keysym.Sym == sdl.K_ESCAPE {
						exit = true
						continue EventLoop
					}
				case *sdl.QuitEvent:
					exit = true
					continue EventLoop
				}
			}
		case <-pacer.FrameTick():
			if err := renderFrame(dev, sc, pool, alloc, samplers, transientPool, sync, clearColor); err != nil {
				log.WithError(err).Error("renderFrame")
			}
		}
	}

	if err := sync.WaitAll(); err != nil {
		log.WithError(err).Error("sync.WaitAll")
	}
}

// renderFrame builds and executes a fresh graph for one swapchain image:
// a single pass that clears the image to clearColor and leaves it ready
// to present. Graphs are single-use by design, so one is built per frame
// rather than reused.
func renderFrame(dev device.Device, sc *swapchain.Swapchain, pool *cmdpool.Pool, alloc rdg.Allocator,
	samplers *rdg.SamplerCache, transientPool *rdg.Pool, sync *rdg.FrameSyncManager, clearColor glm.Vec4) error {

	bundle := sync.Current()

	imageIndex, err := sc.AcquireNext(^uint64(0), bundle.ImageAvailable)
	if err != nil {
		return err
	}

	graph := rdg.NewGraph("frame", dev, pool, alloc, transientPool, samplers)
	target := graph.GetSwapchainAttachment(sc, imageIndex)

	graph.AddPassEx("clear", func(cmd vk.CommandBuffer, res *rdg.ResourceAccessor) error {
		return nil
	}).WriteColorAttachment(target, rdg.LoadOpClear, rdg.StoreOpStore, clearColor)

	if err := graph.Compile(); err != nil {
		return err
	}
	report, err := graph.Execute(bundle, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit))
	if err != nil {
		return err
	}
	if report.HasFailures() {
		for _, perr := range report.PassErrors {
			log.WithError(perr).Warn("pass failed")
		}
	}

	presentQueue, _ := dev.PresentQueue()
	if err := sc.Present(presentQueue, imageIndex, bundle.RenderFinished); err != nil {
		return err
	}

	return sync.Advance()
}
