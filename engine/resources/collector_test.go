package resources

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-resources/engine/core"
)

func TestNewCollectorRejectsZeroCapacity(t *testing.T) {
	_, err := NewCollector(CollectorConfig{MaxBufferCount: 0, MaxImageCount: 1})
	require.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestNewCollectorRegistersDefaultGroups(t *testing.T) {
	c := newTestCollector(t)
	assert.Equal(t, []string{GroupStaticLocal, GroupStaticUpload, GroupDynamicSequential}, c.StrategyNames())

	bare, err := NewCollector(CollectorConfig{MaxBufferCount: 1, MaxImageCount: 1, DisableDefaultGroups: true})
	require.NoError(t, err)
	assert.Empty(t, bare.StrategyNames())
}

func TestCollectIdentityRoundTrip(t *testing.T) {
	c := newTestCollector(t)
	descs := []DataDescriptor{StaticVertexDescriptor(), StaticIndexDescriptor(), DynamicUniformDescriptor(), IndirectDrawDescriptor()}
	datas := [][]byte{filled(12, 1), filled(6, 2), filled(64, 3), filled(20, 4)}

	for i := range descs {
		id := collectBuffer(t, c, descs[i], datas[i])
		assert.Equal(t, ResourceID(i), id)
	}
	for i := range descs {
		desc, ok := c.GetBufferDesc(ResourceID(i))
		require.True(t, ok)
		assert.Equal(t, descs[i], desc)

		data, ok := c.GetBufferData(ResourceID(i))
		require.True(t, ok)
		assert.True(t, data.Same(RawDataFromBytes(datas[i])), "collector must keep the caller's memory")
	}
}

func TestCollectDoesNotCopy(t *testing.T) {
	c := newTestCollector(t)
	value := [4]uint32{1, 2, 3, 4}
	raw := RawDataFromPointer(unsafe.Pointer(&value[0]), int(unsafe.Sizeof(value)))
	id, err := c.CollectBufferData(StaticVertexDescriptor(), raw)
	require.NoError(t, err)

	value[0] = 42
	data, ok := c.GetBufferData(id)
	require.True(t, ok)
	assert.Equal(t, uint64(16), data.Len())
	assert.Equal(t, byte(42), data.Bytes()[0])
}

func TestCollectUnknownIDs(t *testing.T) {
	c := newTestCollector(t)
	collectBuffer(t, c, StaticVertexDescriptor(), filled(4, 0))

	_, ok := c.GetBufferDesc(1)
	assert.False(t, ok)
	_, ok = c.GetBufferData(InvalidResourceID)
	assert.False(t, ok)
	_, ok = c.GetImageDesc(0)
	assert.False(t, ok)
	_, ok = c.GetImageData(0)
	assert.False(t, ok)
}

func TestCollectBufferCapacityBoundary(t *testing.T) {
	c := newTestCollector(t)
	for i := uint64(0); i < DefaultMaxBufferCount; i++ {
		collectBuffer(t, c, StaticVertexDescriptor(), filled(4, byte(i)))
	}
	require.Equal(t, int(DefaultMaxBufferCount), c.BufferCount())

	id, err := c.CollectBufferData(StaticIndexDescriptor(), RawDataFromBytes(filled(8, 9)))
	require.ErrorIs(t, err, core.ErrCapacityExceeded)
	assert.Equal(t, InvalidResourceID, id)
	assert.Equal(t, int(DefaultMaxBufferCount), c.BufferCount())

	last, ok := c.GetBufferDesc(ResourceID(DefaultMaxBufferCount - 1))
	require.True(t, ok)
	assert.Equal(t, StaticVertexDescriptor(), last)
	_, ok = c.GetBufferDesc(ResourceID(DefaultMaxBufferCount))
	assert.False(t, ok)
}

func TestCollectImageIDsAreIndependent(t *testing.T) {
	c, err := NewCollector(CollectorConfig{MaxBufferCount: 4, MaxImageCount: 2})
	require.NoError(t, err)

	collectBuffer(t, c, StaticVertexDescriptor(), filled(4, 0))
	collectBuffer(t, c, StaticVertexDescriptor(), filled(4, 0))

	img, err := c.CollectImageData(SampledImageDescriptor(2, 2), RawDataFromBytes(filled(16, 0)))
	require.NoError(t, err)
	assert.Equal(t, ResourceID(0), img)

	_, err = c.CollectImageData(SampledImageDescriptor(1, 1), RawData{})
	require.NoError(t, err)
	_, err = c.CollectImageData(SampledImageDescriptor(1, 1), RawData{})
	require.ErrorIs(t, err, core.ErrCapacityExceeded)
	assert.Equal(t, 2, c.ImageCount())
	assert.Equal(t, 2, c.BufferCount())
}

func TestClearAllCollectedData(t *testing.T) {
	c := newTestCollector(t)
	collectBuffer(t, c, StaticVertexDescriptor(), filled(12, 0))
	_, err := c.CollectImageData(SampledImageDescriptor(1, 1), RawDataFromBytes(filled(4, 0)))
	require.NoError(t, err)
	require.NoError(t, c.GroupAllBufferData(DefaultCapabilities()))

	c.ClearAllCollectedData()
	c.ClearAllCollectedData()

	assert.Zero(t, c.BufferCount())
	assert.Zero(t, c.ImageCount())
	assert.False(t, c.IsGrouped())
	assert.Empty(t, c.GetAllGroupNames())
	_, ok := c.GetBufferDesc(0)
	assert.False(t, ok)

	// counters restart and strategies survive
	assert.Equal(t, ResourceID(0), collectBuffer(t, c, StaticIndexDescriptor(), filled(6, 0)))
	assert.Len(t, c.StrategyNames(), 3)
}
