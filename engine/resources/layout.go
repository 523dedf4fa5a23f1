package resources

import (
	"math"

	vk "github.com/goki/vulkan"

	emath "github.com/spaghettifunk/anima-resources/engine/math"
)

// NaturalAlignment is the offset alignment used for buffers with no stricter device requirement.
const NaturalAlignment uint64 = 4

// InvalidOffset is returned by offset lookups for unknown or ungrouped resources.
const InvalidOffset uint64 = math.MaxUint64

// DeviceCapabilities carries the device limits that drive placement inside a grouped buffer.
// A zero limit means the device imposes nothing beyond NaturalAlignment.
type DeviceCapabilities struct {
	MinUniformBufferOffsetAlignment  uint64
	MinStorageBufferOffsetAlignment  uint64
	MinTexelBufferOffsetAlignment    uint64
	NonCoherentAtomSize              uint64
	OptimalBufferCopyOffsetAlignment uint64
}

// DefaultCapabilities are conservative limits that satisfy every desktop Vulkan driver.
func DefaultCapabilities() DeviceCapabilities {
	return DeviceCapabilities{
		MinUniformBufferOffsetAlignment:  256,
		MinStorageBufferOffsetAlignment:  256,
		MinTexelBufferOffsetAlignment:    256,
		NonCoherentAtomSize:              64,
		OptimalBufferCopyOffsetAlignment: 4,
	}
}

// RequiredAlignment returns the byte boundary a buffer resource's offset must satisfy
// inside a grouped buffer. The strictest applicable limit wins.
func RequiredAlignment(desc DataDescriptor, caps DeviceCapabilities) uint64 {
	alignments := []uint64{NaturalAlignment}

	if desc.Pattern() == DynamicSequential || desc.HasBufferUsage(vk.BufferUsageUniformBufferBit) {
		alignments = append(alignments, caps.MinUniformBufferOffsetAlignment)
	}
	if desc.HasBufferUsage(vk.BufferUsageStorageBufferBit) {
		alignments = append(alignments, caps.MinStorageBufferOffsetAlignment)
	}
	if desc.HasBufferUsage(vk.BufferUsageUniformTexelBufferBit) || desc.HasBufferUsage(vk.BufferUsageStorageTexelBufferBit) {
		alignments = append(alignments, caps.MinTexelBufferOffsetAlignment)
	}
	// host cached memory may be non-coherent, flushes work on whole atoms
	if desc.Pattern() == DynamicRandom || desc.Pattern() == Readback {
		alignments = append(alignments, caps.NonCoherentAtomSize)
	}
	return emath.MaxOf(alignments...)
}

// RequiredImageAlignment is the alignment of an image's texels inside a shared staging buffer.
func RequiredImageAlignment(caps DeviceCapabilities) uint64 {
	return emath.MaxOf(NaturalAlignment, caps.OptimalBufferCopyOffsetAlignment)
}
