package math

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexLayout(t *testing.T) {
	assert.Equal(t, uintptr(Vertex3DSize), unsafe.Sizeof(Vertex3D{}))
}

func TestGenerateCube(t *testing.T) {
	vertices, indices := GenerateCube(2, 4, 6, 1, 1)
	require.Len(t, vertices, 24)
	require.Len(t, indices, 36)

	for _, v := range vertices {
		assert.Contains(t, []float32{-1, 1}, v.Position.X)
		assert.Contains(t, []float32{-2, 2}, v.Position.Y)
		assert.Contains(t, []float32{-3, 3}, v.Position.Z)
	}
	for _, i := range indices {
		assert.Less(t, i, uint32(24))
	}
	// the right face points along +X
	assert.Equal(t, NewVec3(1, 0, 0), vertices[12].Normal)
	assert.Equal(t, []uint32{12, 13, 14, 12, 15, 13}, indices[18:24])
}

func TestGeneratePlane(t *testing.T) {
	vertices, indices := GeneratePlane(4, 2, 2, 1, 1, 1)
	require.Len(t, vertices, 8)
	require.Len(t, indices, 12)

	assert.Equal(t, NewVec3(-2, -1, 0), vertices[0].Position)
	assert.Equal(t, NewVec3(2, 1, 0), vertices[5].Position)
	assert.Equal(t, NewVec2(1, 1), vertices[5].Texcoord)

	// degenerate input falls back to a unit plane
	vertices, _ = GeneratePlane(0, -1, 0, 0, 0, 0)
	require.Len(t, vertices, 4)
	assert.Equal(t, NewVec3(0.5, 0.5, 0), vertices[1].Position)
}

func TestMat4(t *testing.T) {
	id := NewMat4Identity()
	tr := NewMat4Translation(NewVec3(1, 2, 3))
	assert.Equal(t, tr, id.Mul(tr))
	assert.Equal(t, tr, tr.Mul(id))

	p := NewMat4Perspective(DegToRad(90), 1, 0.1, 100)
	assert.InDelta(t, 1.0, p.Data[0], 1e-5)
	assert.InDelta(t, 1.0, p.Data[5], 1e-5)
	assert.Equal(t, float32(-1), p.Data[11])
}
