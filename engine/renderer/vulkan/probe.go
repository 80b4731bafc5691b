// Package vulkan inspects the Vulkan devices of the machine before the
// renderer picks its adapter. Rendering itself goes through wgpu.
package vulkan

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
)

const gib = 1024 * 1024 * 1024

/** @brief What the driver reports about one physical device. */
type AdapterInfo struct {
	Name          string
	Type          string
	DriverVersion string
	APIVersion    string
	// Device local heaps, in GiB.
	LocalMemory uint64
	// Host visible heaps, in GiB.
	SharedMemory uint64
}

func (a AdapterInfo) String() string {
	return fmt.Sprintf("%s (%s, Vulkan %s, driver %s, %d GiB local, %d GiB shared)",
		a.Name, a.Type, a.APIVersion, a.DriverVersion, a.LocalMemory, a.SharedMemory)
}

/**
 * @brief Lists the Vulkan physical devices. GLFW must be initialized; the
 * instance is created without surface extensions and destroyed on return.
 * @param appName The application name reported to the driver.
 */
func ListAdapters(appName string) ([]AdapterInfo, error) {
	if !glfw.VulkanSupported() {
		return nil, fmt.Errorf("%w: vulkan loader not found", core.ErrRender)
	}
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, fmt.Errorf("%w: GetInstanceProcAddress is nil", core.ErrRender)
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("%w: vulkan init: %w", core.ErrRender, err)
	}

	createInfo := vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   safeString(appName),
			PEngineName:        safeString("Prism"),
		},
	}
	if runtime.GOOS == "darwin" {
		extensions := []string{safeString("VK_KHR_portability_enumeration")}
		createInfo.Flags |= 1
		createInfo.EnabledExtensionCount = uint32(len(extensions))
		createInfo.PpEnabledExtensionNames = extensions
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		return nil, ResultError(res)
	}
	defer vk.DestroyInstance(instance, nil)
	if err := vk.InitInstance(instance); err != nil {
		return nil, fmt.Errorf("%w: vulkan instance: %w", core.ErrRender, err)
	}

	var count uint32
	if res := vk.EnumeratePhysicalDevices(instance, &count, nil); res != vk.Success {
		return nil, ResultError(res)
	}
	devices := make([]vk.PhysicalDevice, count)
	if count > 0 {
		if res := vk.EnumeratePhysicalDevices(instance, &count, devices); res != vk.Success {
			return nil, ResultError(res)
		}
	}

	out := make([]AdapterInfo, 0, count)
	for _, d := range devices[:count] {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(d, &properties)
		properties.Deref()

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(d, &memory)
		memory.Deref()

		info := AdapterInfo{
			Name:          cString(properties.DeviceName[:]),
			Type:          deviceTypeName(properties.DeviceType),
			DriverVersion: versionString(properties.DriverVersion),
			APIVersion:    versionString(properties.ApiVersion),
		}
		for j := 0; j < int(memory.MemoryHeapCount); j++ {
			heap := memory.MemoryHeaps[j]
			heap.Deref()
			if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
				info.LocalMemory += uint64(heap.Size) / gib
			} else {
				info.SharedMemory += uint64(heap.Size) / gib
			}
		}
		core.LogDebug("vulkan adapter: %s", info)
		out = append(out, info)
	}
	return out, nil
}
