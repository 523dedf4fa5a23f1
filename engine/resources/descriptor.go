package resources

import (
	"strings"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-resources/engine/core"
)

// MemoryPattern describes how host and device access a resource's memory.
type MemoryPattern uint8

const (
	// StaticLocal is device-only memory with no host access. Needs staging.
	StaticLocal MemoryPattern = iota
	// StaticUpload is written once by the host and read many times by the device.
	StaticUpload
	// DynamicSequential is rewritten every frame with sequential writes, e.g. a uniform buffer.
	DynamicSequential
	// DynamicRandom is written randomly by the host and implies host-cached memory.
	DynamicRandom
	// StreamRing is a ring-buffer upload pattern, e.g. indirect draw commands.
	StreamRing
	// Readback is written by the device and read by the host.
	Readback
)

var memoryPatternNames = [...]string{
	StaticLocal:       "static_local",
	StaticUpload:      "static_upload",
	DynamicSequential: "dynamic_sequential",
	DynamicRandom:     "dynamic_random",
	StreamRing:        "stream_ring",
	Readback:          "readback",
}

func (p MemoryPattern) String() string {
	if int(p) < len(memoryPatternNames) {
		return memoryPatternNames[p]
	}
	return "unknown"
}

// ParseMemoryPattern is the inverse of MemoryPattern.String.
func ParseMemoryPattern(s string) (MemoryPattern, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range memoryPatternNames {
		if name == s {
			return MemoryPattern(i), nil
		}
	}
	return StaticLocal, errors.Wrapf(core.ErrInvalidConfig, "unknown memory pattern %q", s)
}

// HostVisible reports whether the host maps memory of this pattern.
func (p MemoryPattern) HostVisible() bool {
	return p != StaticLocal
}

// RequiresStaging reports whether data must go through a staging copy to reach the device.
func (p MemoryPattern) RequiresStaging() bool {
	return p == StaticLocal
}

// UpdateRate is how often a resource's contents change.
type UpdateRate uint8

const (
	PerFrame UpdateRate = iota
	Occasional
	RarelyOrNever
)

func (r UpdateRate) String() string {
	switch r {
	case PerFrame:
		return "per_frame"
	case Occasional:
		return "occasional"
	case RarelyOrNever:
		return "rarely_or_never"
	}
	return "unknown"
}

// BufferIntent is the native usage a buffer resource is destined for.
type BufferIntent struct {
	Usage   vk.BufferUsageFlags
	Sharing vk.SharingMode
}

// ImageIntent is the native usage and shape of an image resource.
type ImageIntent struct {
	Usage  vk.ImageUsageFlags
	Format vk.Format
	Width  uint32
	Height uint32
}

// DataDescriptor is the immutable metadata attached to a collected resource.
// Build one with NewBufferDescriptor, NewImageDescriptor or a preset.
type DataDescriptor struct {
	pattern MemoryPattern
	rate    UpdateRate
	buffer  BufferIntent
	image   ImageIntent
}

func NewBufferDescriptor(pattern MemoryPattern, rate UpdateRate, intent BufferIntent) DataDescriptor {
	return DataDescriptor{
		pattern: pattern,
		rate:    rate,
		buffer:  intent,
	}
}

func NewImageDescriptor(pattern MemoryPattern, rate UpdateRate, intent ImageIntent) DataDescriptor {
	return DataDescriptor{
		pattern: pattern,
		rate:    rate,
		image:   intent,
	}
}

func (d DataDescriptor) Pattern() MemoryPattern           { return d.pattern }
func (d DataDescriptor) Rate() UpdateRate                 { return d.rate }
func (d DataDescriptor) BufferIntent() BufferIntent       { return d.buffer }
func (d DataDescriptor) ImageIntent() ImageIntent         { return d.image }
func (d DataDescriptor) BufferUsage() vk.BufferUsageFlags { return d.buffer.Usage }
func (d DataDescriptor) ImageUsage() vk.ImageUsageFlags   { return d.image.Usage }
func (d DataDescriptor) Sharing() vk.SharingMode          { return d.buffer.Sharing }

// HasBufferUsage reports whether every bit of flag is part of the buffer intent.
func (d DataDescriptor) HasBufferUsage(flag vk.BufferUsageFlagBits) bool {
	return d.buffer.Usage&vk.BufferUsageFlags(flag) == vk.BufferUsageFlags(flag)
}

// HasImageUsage reports whether every bit of flag is part of the image intent.
func (d DataDescriptor) HasImageUsage(flag vk.ImageUsageFlagBits) bool {
	return d.image.Usage&vk.ImageUsageFlags(flag) == vk.ImageUsageFlags(flag)
}

func StaticVertexDescriptor() DataDescriptor {
	return NewBufferDescriptor(StaticUpload, RarelyOrNever, BufferIntent{
		Usage:   vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		Sharing: vk.SharingModeExclusive,
	})
}

func StaticIndexDescriptor() DataDescriptor {
	return NewBufferDescriptor(StaticUpload, RarelyOrNever, BufferIntent{
		Usage:   vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit),
		Sharing: vk.SharingModeExclusive,
	})
}

func DynamicUniformDescriptor() DataDescriptor {
	return NewBufferDescriptor(DynamicSequential, PerFrame, BufferIntent{
		Usage:   vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		Sharing: vk.SharingModeExclusive,
	})
}

func IndirectDrawDescriptor() DataDescriptor {
	return NewBufferDescriptor(StreamRing, PerFrame, BufferIntent{
		Usage:   vk.BufferUsageFlags(vk.BufferUsageIndirectBufferBit),
		Sharing: vk.SharingModeExclusive,
	})
}

// StorageDescriptor is a device-local storage buffer, typically for compute.
func StorageDescriptor() DataDescriptor {
	return NewBufferDescriptor(StaticLocal, Occasional, BufferIntent{
		Usage:   vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit | vk.BufferUsageTransferDstBit),
		Sharing: vk.SharingModeExclusive,
	})
}

func ReadbackDescriptor() DataDescriptor {
	return NewBufferDescriptor(Readback, PerFrame, BufferIntent{
		Usage:   vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		Sharing: vk.SharingModeExclusive,
	})
}

// SampledImageDescriptor is an RGBA8 texture uploaded once and sampled in shaders.
func SampledImageDescriptor(width, height uint32) DataDescriptor {
	return NewImageDescriptor(StaticLocal, RarelyOrNever, ImageIntent{
		Usage:  vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit),
		Format: vk.FormatR8g8b8a8Unorm,
		Width:  width,
		Height: height,
	})
}
