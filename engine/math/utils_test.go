package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(12), AlignUp(uint64(12), 3))
	assert.Equal(t, uint64(12), AlignUp(uint64(10), 3))
	assert.Equal(t, uint64(16), AlignUp(uint64(12), 16))
	assert.Equal(t, uint64(256), AlignUp(uint64(1), 256))
	assert.Equal(t, uint64(0), AlignUp(uint64(0), 256))
	assert.Equal(t, uint32(7), AlignUp(uint32(7), 0))
	assert.Equal(t, uint32(7), AlignUp(uint32(7), 1))
}

func TestIsAligned(t *testing.T) {
	assert.True(t, IsAligned(uint64(28), 4))
	assert.False(t, IsAligned(uint64(30), 4))
	assert.True(t, IsAligned(uint64(30), 0))
}

func TestIsPowerOfTwo(t *testing.T) {
	assert.True(t, IsPowerOfTwo(uint64(1)))
	assert.True(t, IsPowerOfTwo(uint64(256)))
	assert.False(t, IsPowerOfTwo(uint64(0)))
	assert.False(t, IsPowerOfTwo(uint64(12)))
}

func TestMaxOfAndClamp(t *testing.T) {
	assert.Equal(t, uint64(64), MaxOf[uint64](4, 64, 16))
	assert.Equal(t, uint64(0), MaxOf[uint64]())
	assert.Equal(t, 5, Clamp(9, 0, 5))
	assert.Equal(t, 0, Clamp(-3, 0, 5))
}
