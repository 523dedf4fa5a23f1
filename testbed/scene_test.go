package testbed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-resources/engine"
	"github.com/spaghettifunk/anima-resources/engine/config"
	"github.com/spaghettifunk/anima-resources/engine/math"
	"github.com/spaghettifunk/anima-resources/engine/resources"
)

func TestRunReleasesEverything(t *testing.T) {
	e, err := engine.New(engine.Options{})
	require.NoError(t, err)
	defer e.Shutdown()

	require.NoError(t, Run(e))
	assert.Zero(t, e.HostAllocator().Live())
	assert.Zero(t, e.Metrics().AllocationFailures)
}

func TestSceneLayout(t *testing.T) {
	cfg, err := config.Load("resources.toml")
	require.NoError(t, err)
	e, err := engine.New(engine.Options{Config: cfg})
	require.NoError(t, err)
	defer e.Shutdown()

	scene := NewScene()
	require.NoError(t, scene.Collect(e))
	_, err = e.Group()
	require.NoError(t, err)

	c := e.Collector()
	uploads, ok := c.GetGroupData(resources.GroupStaticUpload)
	require.True(t, ok)
	// vertices and indices of both meshes share one buffer
	assert.Equal(t, 4, uploads.Len())

	cube := scene.VertexIDs["test_cube"]
	assert.Equal(t, uint64(0), c.GetBufferOffset(cube))
	data, ok := uploads.Bytes(cube)
	require.True(t, ok)
	assert.Len(t, data, 24*math.Vertex3DSize)

	group, ok := c.GetBufferGroup(4)
	require.True(t, ok)
	assert.Equal(t, resources.GroupDynamicSequential, group)
	group, ok = c.GetBufferGroup(5)
	require.True(t, ok)
	assert.Equal(t, "indirect", group)
	assert.Equal(t, []resources.ResourceID{6}, c.UngroupedBufferIDs())

	images, err := e.GenerateAllImages()
	require.NoError(t, err)
	defer images.Release()
	require.NoError(t, images.Err())
	require.Contains(t, images.Staging, "textures")
	assert.Equal(t, uint64(8*8*4), images.Staging["textures"].Size())
}
