package math

/**
 * @brief Generates a flat plane on the XY axis, centered on the origin.
 * Every segment gets its own 4 vertices and 6 indices. Zero or negative
 * dimensions default to one.
 */
func GeneratePlane(width, height float32, xSegmentCount, ySegmentCount uint32, tileX, tileY float32) ([]Vertex3D, []uint32) {
	width = orOne(width)
	height = orOne(height)
	tileX = orOne(tileX)
	tileY = orOne(tileY)
	xSegmentCount = max(xSegmentCount, 1)
	ySegmentCount = max(ySegmentCount, 1)

	vertices := make([]Vertex3D, xSegmentCount*ySegmentCount*4)
	indices := make([]uint32, xSegmentCount*ySegmentCount*6)

	seg_width := width / float32(xSegmentCount)
	seg_height := height / float32(ySegmentCount)
	half_width := width * 0.5
	half_height := height * 0.5
	normal := NewVec3(0, 0, 1)

	for y := uint32(0); y < ySegmentCount; y++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			min_x := (float32(x) * seg_width) - half_width
			min_y := (float32(y) * seg_height) - half_height
			max_x := min_x + seg_width
			max_y := min_y + seg_height
			min_uvx := (float32(x) / float32(xSegmentCount)) * tileX
			min_uvy := (float32(y) / float32(ySegmentCount)) * tileY
			max_uvx := (float32(x+1) / float32(xSegmentCount)) * tileX
			max_uvy := (float32(y+1) / float32(ySegmentCount)) * tileY

			v_offset := ((y * xSegmentCount) + x) * 4
			vertices[v_offset+0] = Vertex3D{Position: NewVec3(min_x, min_y, 0), Normal: normal, Texcoord: NewVec2(min_uvx, min_uvy)}
			vertices[v_offset+1] = Vertex3D{Position: NewVec3(max_x, max_y, 0), Normal: normal, Texcoord: NewVec2(max_uvx, max_uvy)}
			vertices[v_offset+2] = Vertex3D{Position: NewVec3(min_x, max_y, 0), Normal: normal, Texcoord: NewVec2(min_uvx, max_uvy)}
			vertices[v_offset+3] = Vertex3D{Position: NewVec3(max_x, min_y, 0), Normal: normal, Texcoord: NewVec2(max_uvx, min_uvy)}

			writeQuadIndices(indices[((y*xSegmentCount)+x)*6:], v_offset)
		}
	}
	return vertices, indices
}

// cube faces: normal, then the four corners as signs of the half extents
var cubeFaces = [6]struct {
	normal  Vec3
	corners [4]Vec3
}{
	// front
	{NewVec3(0, 0, 1), [4]Vec3{{-1, -1, 1}, {1, 1, 1}, {-1, 1, 1}, {1, -1, 1}}},
	// back
	{NewVec3(0, 0, -1), [4]Vec3{{1, -1, -1}, {-1, 1, -1}, {1, 1, -1}, {-1, -1, -1}}},
	// left
	{NewVec3(-1, 0, 0), [4]Vec3{{-1, -1, -1}, {-1, 1, 1}, {-1, 1, -1}, {-1, -1, 1}}},
	// right
	{NewVec3(1, 0, 0), [4]Vec3{{1, -1, 1}, {1, 1, -1}, {1, 1, 1}, {1, -1, -1}}},
	// bottom
	{NewVec3(0, -1, 0), [4]Vec3{{1, -1, 1}, {-1, -1, -1}, {1, -1, -1}, {-1, -1, 1}}},
	// top
	{NewVec3(0, 1, 0), [4]Vec3{{-1, 1, 1}, {1, 1, -1}, {-1, 1, -1}, {1, 1, 1}}},
}

/**
 * @brief Generates a cube centered on the origin: 4 vertices and 6 indices
 * per face, 24 and 36 in total.
 */
func GenerateCube(width, height, depth, tileX, tileY float32) ([]Vertex3D, []uint32) {
	half := NewVec3(orOne(width)*0.5, orOne(height)*0.5, orOne(depth)*0.5)
	tileX = orOne(tileX)
	tileY = orOne(tileY)
	uvs := [4]Vec2{{0, 0}, {tileX, tileY}, {0, tileY}, {tileX, 0}}

	vertices := make([]Vertex3D, 0, 24)
	indices := make([]uint32, 36)
	for f, face := range cubeFaces {
		for c, corner := range face.corners {
			vertices = append(vertices, Vertex3D{
				Position: NewVec3(corner.X*half.X, corner.Y*half.Y, corner.Z*half.Z),
				Normal:   face.normal,
				Texcoord: uvs[c],
			})
		}
		writeQuadIndices(indices[f*6:], uint32(f*4))
	}
	return vertices, indices
}

func writeQuadIndices(dst []uint32, base uint32) {
	dst[0] = base + 0
	dst[1] = base + 1
	dst[2] = base + 2
	dst[3] = base + 0
	dst[4] = base + 3
	dst[5] = base + 1
}

func orOne(v float32) float32 {
	if v <= 0 {
		return 1
	}
	return v
}
