// Command devicelist prints the physical devices a Vulkan instance can
// see, along with their extensions, layers and memory, as JSON. It opens
// no surface and no logical device: it only needs instance-level
// enumeration.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shanyu-yun/qtrender/device"
)

func main() {
	appDevice, err := device.NewVulkanDevice(device.DefaultVulkanApplicationInfo, 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer appDevice.Destroy()

	bytes, err := json.MarshalIndent(appDevice.PhysicalDevices(), "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(bytes))
}
