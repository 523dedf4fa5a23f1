package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-resources/engine/resources"
)

// A typical discrete GPU: device local, host visible coherent, host cached.
func discreteMemory() vk.PhysicalDeviceMemoryProperties {
	props := vk.PhysicalDeviceMemoryProperties{MemoryTypeCount: 3}
	props.MemoryTypes[0] = vk.MemoryType{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)}
	props.MemoryTypes[1] = vk.MemoryType{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)}
	props.MemoryTypes[2] = vk.MemoryType{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCachedBit)}
	return props
}

func TestFindMemoryIndex(t *testing.T) {
	props := discreteMemory()
	assert.Equal(t, int32(0), findMemoryIndex(props, 0b111, uint32(vk.MemoryPropertyDeviceLocalBit)))
	assert.Equal(t, int32(1), findMemoryIndex(props, 0b111, uint32(vk.MemoryPropertyHostVisibleBit)))
	assert.Equal(t, int32(2), findMemoryIndex(props, 0b100, uint32(vk.MemoryPropertyHostVisibleBit)))
	assert.Equal(t, int32(-1), findMemoryIndex(props, 0b001, uint32(vk.MemoryPropertyHostVisibleBit)))
}

func TestSelectMemoryTypePerPattern(t *testing.T) {
	props := discreteMemory()
	cases := map[resources.MemoryPattern]uint32{
		resources.StaticLocal:       0,
		resources.StaticUpload:      1,
		resources.DynamicSequential: 1,
		resources.StreamRing:        1,
		resources.DynamicRandom:     2,
		resources.Readback:          2,
	}
	for pattern, want := range cases {
		got, ok := selectMemoryType(props, 0b111, placementFor(pattern))
		require.True(t, ok, pattern.String())
		assert.Equal(t, want, got, pattern.String())
	}
}

func TestSelectMemoryTypePrefersDeviceLocalHostVisible(t *testing.T) {
	props := discreteMemory()
	props.MemoryTypeCount = 4
	props.MemoryTypes[3] = vk.MemoryType{PropertyFlags: vk.MemoryPropertyFlags(
		vk.MemoryPropertyDeviceLocalBit | vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)}

	got, ok := selectMemoryType(props, 0b1111, placementFor(resources.DynamicSequential))
	require.True(t, ok)
	assert.Equal(t, uint32(3), got)

	got, ok = selectMemoryType(props, 0b1111, placementFor(resources.StaticUpload))
	require.True(t, ok)
	assert.Equal(t, uint32(1), got)
}

func TestSelectMemoryTypeFallback(t *testing.T) {
	props := discreteMemory()
	// without the cached type random access falls back to any host visible memory
	got, ok := selectMemoryType(props, 0b011, placementFor(resources.Readback))
	require.True(t, ok)
	assert.Equal(t, uint32(1), got)

	_, ok = selectMemoryType(props, 0b001, placementFor(resources.Readback))
	assert.False(t, ok)
}

func TestBufferUsageFor(t *testing.T) {
	vertex := vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	assert.Equal(t, vertex|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		bufferUsageFor(resources.BufferRequest{Usage: vertex, Pattern: resources.StaticLocal}))
	assert.Equal(t, vertex,
		bufferUsageFor(resources.BufferRequest{Usage: vertex, Pattern: resources.StaticUpload}))
}

func TestCapabilitiesFromLimits(t *testing.T) {
	limits := vk.PhysicalDeviceLimits{
		MinUniformBufferOffsetAlignment:  64,
		MinStorageBufferOffsetAlignment:  32,
		MinTexelBufferOffsetAlignment:    16,
		NonCoherentAtomSize:              128,
		OptimalBufferCopyOffsetAlignment: 1,
	}
	assert.Equal(t, resources.DeviceCapabilities{
		MinUniformBufferOffsetAlignment:  64,
		MinStorageBufferOffsetAlignment:  32,
		MinTexelBufferOffsetAlignment:    16,
		NonCoherentAtomSize:              128,
		OptimalBufferCopyOffsetAlignment: 1,
	}, CapabilitiesFromLimits(limits))
}

func TestResultError(t *testing.T) {
	assert.NoError(t, resultError(vk.Success, "vkCreateBuffer"))
	assert.NoError(t, resultError(vk.Incomplete, "vkCreateBuffer"))

	err := resultError(vk.ErrorOutOfDeviceMemory, "vkAllocateMemory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VK_ERROR_OUT_OF_DEVICE_MEMORY")
	assert.Equal(t, "VK_ERROR_OUT_OF_DEVICE_MEMORY", VulkanResultString(vk.ErrorOutOfDeviceMemory, false))
}

func TestFindFirstZeroInByteArray(t *testing.T) {
	assert.Equal(t, 3, FindFirstZeroInByteArray([]byte{'g', 'p', 'u', 0, 0}))
	assert.Equal(t, 2, FindFirstZeroInByteArray([]byte{'o', 'k'}))
}
