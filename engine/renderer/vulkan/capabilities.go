package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-resources/engine/resources"
)

// CapabilitiesFromLimits extracts the alignment limits used by the grouping pass.
func CapabilitiesFromLimits(limits vk.PhysicalDeviceLimits) resources.DeviceCapabilities {
	return resources.DeviceCapabilities{
		MinUniformBufferOffsetAlignment:  uint64(limits.MinUniformBufferOffsetAlignment),
		MinStorageBufferOffsetAlignment:  uint64(limits.MinStorageBufferOffsetAlignment),
		MinTexelBufferOffsetAlignment:    uint64(limits.MinTexelBufferOffsetAlignment),
		NonCoherentAtomSize:              uint64(limits.NonCoherentAtomSize),
		OptimalBufferCopyOffsetAlignment: uint64(limits.OptimalBufferCopyOffsetAlignment),
	}
}
