package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-resources/engine/core"
	"github.com/spaghettifunk/anima-resources/engine/resources"
)

type VulkanContext struct {
	Allocator *vk.AllocationCallbacks

	Device *VulkanDevice

	Locks *VulkanLockPool
}

func NewVulkanContext(device *VulkanDevice) *VulkanContext {
	return &VulkanContext{
		Device: device,
		Locks:  NewVulkanLockPool(),
	}
}

// Capabilities reports the device limits that drive grouped buffer layout.
func (vc *VulkanContext) Capabilities() resources.DeviceCapabilities {
	return CapabilitiesFromLimits(vc.Device.Properties.Limits)
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has every bit of propertyFlags, or -1.
func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	index := findMemoryIndex(vc.Device.Memory, typeFilter, propertyFlags)
	if index < 0 {
		core.LogWarn("Unable to find suitable memory type!")
	}
	return index
}

func findMemoryIndex(memoryProperties vk.PhysicalDeviceMemoryProperties, typeFilter, propertyFlags uint32) int32 {
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	return -1
}

// Check if a memory type has the given property
func (vc *VulkanContext) memoryTypeHas(index uint32, flag vk.MemoryPropertyFlagBits) bool {
	return vk.MemoryPropertyFlagBits(vc.Device.Memory.MemoryTypes[index].PropertyFlags)&flag == flag
}
