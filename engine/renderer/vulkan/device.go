package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-resources/engine/core"
)

// VulkanDevice is the device pair the allocator works against. Selecting
// and creating the device is left to the caller.
type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	// Queue families used for concurrent sharing. Fewer than two means every
	// buffer is created exclusive.
	QueueFamilies []uint32

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties
}

func NewVulkanDevice(physical vk.PhysicalDevice, logical vk.Device, queueFamilies ...uint32) *VulkanDevice {
	device := &VulkanDevice{
		PhysicalDevice: physical,
		LogicalDevice:  logical,
		QueueFamilies:  queueFamilies,
	}
	DeviceQuery(device)
	return device
}

// DeviceQuery keeps a copy of properties, features and memory info for later use.
func DeviceQuery(device *VulkanDevice) {
	vk.GetPhysicalDeviceProperties(device.PhysicalDevice, &device.Properties)
	device.Properties.Deref()
	device.Properties.Limits.Deref()

	vk.GetPhysicalDeviceFeatures(device.PhysicalDevice, &device.Features)
	device.Features.Deref()

	vk.GetPhysicalDeviceMemoryProperties(device.PhysicalDevice, &device.Memory)
	device.Memory.Deref()
	for i := uint32(0); i < device.Memory.MemoryTypeCount; i++ {
		device.Memory.MemoryTypes[i].Deref()
	}
	for i := uint32(0); i < device.Memory.MemoryHeapCount; i++ {
		device.Memory.MemoryHeaps[i].Deref()
	}

	DeviceLogInfo(device)
}

func DeviceLogInfo(device *VulkanDevice) {
	properties := device.Properties
	name := string(properties.DeviceName[:FindFirstZeroInByteArray(properties.DeviceName[:])])
	core.LogInfo("Device: '%s'.", name)

	switch properties.DeviceType {
	default:
		fallthrough
	case vk.PhysicalDeviceTypeOther:
		core.LogInfo("GPU type is Unknown.")
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	}

	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version.Major(vk.Version(properties.ApiVersion)),
		vk.Version.Minor(vk.Version(properties.ApiVersion)),
		vk.Version.Patch(vk.Version(properties.ApiVersion)),
	)

	// Memory information
	memory := device.Memory
	for j := 0; j < int(memory.MemoryHeapCount); j++ {
		memorySizeMib := uint64(memory.MemoryHeaps[j].Size) / 1024 / 1024
		if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %d MiB", memorySizeMib)
		} else {
			core.LogInfo("Shared System memory: %d MiB", memorySizeMib)
		}
	}

	limits := properties.Limits
	core.LogDebug("Offset alignment: uniform=%d storage=%d texel=%d atom=%d copy=%d",
		limits.MinUniformBufferOffsetAlignment,
		limits.MinStorageBufferOffsetAlignment,
		limits.MinTexelBufferOffsetAlignment,
		limits.NonCoherentAtomSize,
		limits.OptimalBufferCopyOffsetAlignment)
}
