// Package testbed exercises the resource engine headlessly with a small scene.
package testbed

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-resources/engine"
	"github.com/spaghettifunk/anima-resources/engine/core"
	"github.com/spaghettifunk/anima-resources/engine/math"
	"github.com/spaghettifunk/anima-resources/engine/resources"
)

type mesh struct {
	name     string
	vertices []math.Vertex3D
	indices  []uint32
}

// drawIndexedIndirectCommand mirrors VkDrawIndexedIndirectCommand.
type drawIndexedIndirectCommand struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	VertexOffset  int32
	FirstInstance uint32
}

type Scene struct {
	meshes   []mesh
	camera   math.Mat4
	commands []drawIndexedIndirectCommand
	texture  []byte
	width    uint32
	height   uint32

	// ids of what was collected, by mesh
	VertexIDs map[string]resources.ResourceID
	IndexIDs  map[string]resources.ResourceID
}

func NewScene() *Scene {
	s := &Scene{
		width:     1280,
		height:    720,
		VertexIDs: make(map[string]resources.ResourceID),
		IndexIDs:  make(map[string]resources.ResourceID),
	}
	cubeVerts, cubeIdx := math.GenerateCube(10, 10, 10, 1, 1)
	planeVerts, planeIdx := math.GeneratePlane(50, 50, 4, 4, 2, 2)
	s.meshes = []mesh{
		{name: "test_cube", vertices: cubeVerts, indices: cubeIdx},
		{name: "ground", vertices: planeVerts, indices: planeIdx},
	}

	projection := math.NewMat4Perspective(math.DegToRad(45), float32(s.width)/float32(s.height), 0.1, 1000)
	view := math.NewMat4Translation(math.NewVec3(0, 0, -30))
	s.camera = view.Mul(projection)

	for _, m := range s.meshes {
		s.commands = append(s.commands, drawIndexedIndirectCommand{IndexCount: uint32(len(m.indices)), InstanceCount: 1})
	}

	// 8x8 checkerboard
	s.texture = make([]byte, 8*8*4)
	for i := 0; i < 64; i++ {
		c := byte(0x20)
		if (i/8+i%8)%2 == 0 {
			c = 0xe0
		}
		copy(s.texture[i*4:], []byte{c, c, c, 0xff})
	}
	return s
}

// Collect hands every resource of the scene to the engine.
func (s *Scene) Collect(e *engine.Engine) error {
	for _, m := range s.meshes {
		vid, err := e.CollectBufferData(resources.StaticVertexDescriptor(), sliceData(m.vertices))
		if err != nil {
			return errors.Wrapf(err, "collecting vertices of %s", m.name)
		}
		iid, err := e.CollectBufferData(resources.StaticIndexDescriptor(), sliceData(m.indices))
		if err != nil {
			return errors.Wrapf(err, "collecting indices of %s", m.name)
		}
		s.VertexIDs[m.name] = vid
		s.IndexIDs[m.name] = iid
	}

	if _, err := e.CollectBufferData(resources.DynamicUniformDescriptor(), resources.RawDataFromPointer(unsafe.Pointer(&s.camera), int(unsafe.Sizeof(s.camera)))); err != nil {
		return errors.Wrap(err, "collecting camera uniforms")
	}
	if _, err := e.CollectBufferData(resources.IndirectDrawDescriptor(), sliceData(s.commands)); err != nil {
		return errors.Wrap(err, "collecting draw commands")
	}
	// picking results, written by the device
	picking := make([]byte, 64)
	if _, err := e.CollectBufferData(resources.ReadbackDescriptor(), resources.RawDataFromBytes(picking)); err != nil {
		return errors.Wrap(err, "collecting picking buffer")
	}

	if _, err := e.CollectImageData(resources.SampledImageDescriptor(8, 8), resources.RawDataFromBytes(s.texture)); err != nil {
		return errors.Wrap(err, "collecting checkerboard")
	}
	depth := resources.NewImageDescriptor(resources.StaticLocal, resources.RarelyOrNever, resources.ImageIntent{
		Usage:  vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Format: vk.FormatD32Sfloat,
		Width:  s.width,
		Height: s.height,
	})
	if _, err := e.CollectImageData(depth, resources.RawData{}); err != nil {
		return errors.Wrap(err, "collecting depth target")
	}
	return nil
}

// Run collects the scene, groups and dispatches it, logs the resulting
// layout and releases everything.
func Run(e *engine.Engine) error {
	scene := NewScene()
	if err := scene.Collect(e); err != nil {
		return err
	}
	pass, err := e.Group()
	if err != nil {
		return err
	}
	core.LogInfo("Grouping pass %s done in %s.", pass.ID, pass.Elapsed)

	buffers, err := e.GenerateAllBuffers()
	if err != nil {
		return err
	}
	defer buffers.Release()
	images, err := e.GenerateAllImages()
	if err != nil {
		return err
	}
	defer images.Release()

	logLayout(e.Collector(), buffers, images)
	if err := buffers.Err(); err != nil {
		return err
	}
	return images.Err()
}

func logLayout(c *resources.Collector, buffers *resources.BufferSet, images *resources.ImageSet) {
	for _, name := range c.GetAllGroupNames() {
		group, _ := c.GetGroupData(name)
		buffer, ok := buffers.Groups[name]
		if !ok {
			core.LogInfo("Group '%s': empty.", name)
			continue
		}
		core.LogInfo("Group '%s': %d resources, %d bytes, staging=%t.", name, group.Len(), buffer.Size(), buffer.RequiresStaging())
		for _, id := range group.Members() {
			offset, _ := group.Offset(id)
			size, _ := group.Size(id)
			core.LogDebug("  resource %d at offset %d (%d bytes)", id, offset, size)
		}
	}
	for _, id := range c.UngroupedBufferIDs() {
		if b, ok := buffers.Individual[id]; ok {
			core.LogInfo("Buffer %d: individual '%s', %d bytes.", id, b.Name(), b.Size())
		}
	}
	for id, img := range images.Individual {
		w, h := img.Extent()
		if group, offset, ok := img.Staging(); ok {
			core.LogInfo("Image %d: %dx%d, staged in '%s' at %d.", id, w, h, group, offset)
			continue
		}
		core.LogInfo("Image %d: %dx%d, no staging.", id, w, h)
	}
}

func sliceData[T any](s []T) resources.RawData {
	if len(s) == 0 {
		return resources.RawData{}
	}
	var zero T
	return resources.RawDataFromPointer(unsafe.Pointer(&s[0]), len(s)*int(unsafe.Sizeof(zero)))
}
