package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-resources/engine/resources"
)

// memoryPlacement is the memory type request derived from a memory pattern.
type memoryPlacement struct {
	required  vk.MemoryPropertyFlagBits
	preferred vk.MemoryPropertyFlagBits
	// fallback is tried when neither of the above is available.
	fallback vk.MemoryPropertyFlagBits
}

func placementFor(pattern resources.MemoryPattern) memoryPlacement {
	switch pattern {
	case resources.StaticLocal:
		return memoryPlacement{required: vk.MemoryPropertyDeviceLocalBit}
	case resources.StaticUpload:
		return memoryPlacement{
			required: vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit,
			fallback: vk.MemoryPropertyHostVisibleBit,
		}
	case resources.DynamicSequential, resources.StreamRing:
		// device local + host visible when the driver exposes it
		return memoryPlacement{
			required:  vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit,
			preferred: vk.MemoryPropertyDeviceLocalBit,
			fallback:  vk.MemoryPropertyHostVisibleBit,
		}
	case resources.DynamicRandom, resources.Readback:
		return memoryPlacement{
			required: vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCachedBit,
			fallback: vk.MemoryPropertyHostVisibleBit,
		}
	}
	return memoryPlacement{required: vk.MemoryPropertyHostVisibleBit}
}

// selectMemoryType picks the memory type for typeBits, trying the preferred
// flags first, then the required ones, then the fallback.
func selectMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, placement memoryPlacement) (uint32, bool) {
	candidates := []vk.MemoryPropertyFlagBits{placement.required}
	if placement.preferred != 0 {
		candidates = append([]vk.MemoryPropertyFlagBits{placement.required | placement.preferred}, candidates...)
	}
	if placement.fallback != 0 {
		candidates = append(candidates, placement.fallback)
	}
	for _, flags := range candidates {
		if index := findMemoryIndex(props, typeBits, uint32(flags)); index >= 0 {
			return uint32(index), true
		}
	}
	return 0, false
}

// bufferUsageFor adds the transfer bits a placement needs to the requested usage.
func bufferUsageFor(req resources.BufferRequest) vk.BufferUsageFlags {
	usage := req.Usage
	switch req.Pattern {
	case resources.StaticLocal, resources.Readback:
		usage |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
	return usage
}
