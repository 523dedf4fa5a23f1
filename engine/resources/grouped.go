package resources

import (
	"fmt"

	vk "github.com/goki/vulkan"

	emath "github.com/spaghettifunk/anima-resources/engine/math"
)

// GroupedBuffer is a consolidated byte buffer backing several resources,
// together with each member's offset, the combined usage flags and the total size.
type GroupedBuffer struct {
	name    string
	data    []byte
	offsets map[ResourceID]uint64
	sizes   map[ResourceID]uint64
	order   []ResourceID
	usage   vk.BufferUsageFlags
	sharing vk.SharingMode
	pattern MemoryPattern
	// set once the pass that built the group is done
	sealed bool
}

func newGroupedBuffer(name string) *GroupedBuffer {
	return &GroupedBuffer{
		name:    name,
		offsets: make(map[ResourceID]uint64),
		sizes:   make(map[ResourceID]uint64),
		sharing: vk.SharingModeExclusive,
	}
}

// Append places bytes at the first offset past the current end that is a
// multiple of alignment, records the offset for id and merges usage and
// sharing. The padding between members is zero-filled.
//
// Members must be non-empty and appended in ascending id order, at most once,
// while the grouping pass runs. Anything else breaks the layout contract and
// panics.
func (g *GroupedBuffer) Append(id ResourceID, desc DataDescriptor, bytes []byte, alignment uint64) uint64 {
	if g.sealed {
		panic(fmt.Sprintf("resources: group %q is read-only once its pass has finished", g.name))
	}
	if len(bytes) == 0 {
		panic(fmt.Sprintf("resources: resource %d has no bytes to append to group %q", id, g.name))
	}
	if _, ok := g.offsets[id]; ok {
		panic(fmt.Sprintf("resources: resource %d appended twice to group %q", id, g.name))
	}
	if n := len(g.order); n > 0 && g.order[n-1] > id {
		panic(fmt.Sprintf("resources: resource %d appended after %d in group %q", id, g.order[n-1], g.name))
	}

	offset := emath.AlignUp(g.TotalSize(), alignment)
	if pad := offset - g.TotalSize(); pad > 0 {
		g.data = append(g.data, make([]byte, pad)...)
	}
	g.data = append(g.data, bytes...)

	if len(g.order) == 0 {
		g.pattern = desc.Pattern()
	}
	g.offsets[id] = offset
	g.sizes[id] = uint64(len(bytes))
	g.order = append(g.order, id)
	g.usage |= desc.BufferUsage()
	if desc.Sharing() == vk.SharingModeConcurrent {
		g.sharing = vk.SharingModeConcurrent
	}
	return offset
}

func (g *GroupedBuffer) Name() string {
	return g.name
}

// Data is the consolidated byte buffer. It must not be modified.
func (g *GroupedBuffer) Data() []byte {
	return g.data
}

func (g *GroupedBuffer) TotalSize() uint64 {
	return uint64(len(g.data))
}

// Usage is the bitwise OR of every member's buffer usage.
func (g *GroupedBuffer) Usage() vk.BufferUsageFlags {
	return g.usage
}

// Sharing is concurrent as soon as one member asked for concurrent sharing.
func (g *GroupedBuffer) Sharing() vk.SharingMode {
	return g.sharing
}

// Pattern is the memory pattern of the first member and drives native placement.
func (g *GroupedBuffer) Pattern() MemoryPattern {
	return g.pattern
}

func (g *GroupedBuffer) Len() int {
	return len(g.order)
}

func (g *GroupedBuffer) IsEmpty() bool {
	return len(g.order) == 0
}

// Offset returns the byte offset of id within this group.
func (g *GroupedBuffer) Offset(id ResourceID) (uint64, bool) {
	o, ok := g.offsets[id]
	return o, ok
}

// Size returns the byte length id occupies within this group.
func (g *GroupedBuffer) Size(id ResourceID) (uint64, bool) {
	s, ok := g.sizes[id]
	return s, ok
}

// Bytes returns the slice [offset, offset+size) of id.
func (g *GroupedBuffer) Bytes(id ResourceID) ([]byte, bool) {
	o, ok := g.offsets[id]
	if !ok {
		return nil, false
	}
	return g.data[o : o+g.sizes[id]], true
}

// Offsets returns a copy of the offset table.
func (g *GroupedBuffer) Offsets() map[ResourceID]uint64 {
	out := make(map[ResourceID]uint64, len(g.offsets))
	for id, o := range g.offsets {
		out[id] = o
	}
	return out
}

// Members returns the member ids in layout order.
func (g *GroupedBuffer) Members() []ResourceID {
	return append([]ResourceID(nil), g.order...)
}

// IsSealed reports whether the group can no longer be appended to.
func (g *GroupedBuffer) IsSealed() bool {
	return g.sealed
}

// seal checks the layout law and freezes the group. A failure is a
// programming error.
func (g *GroupedBuffer) seal() {
	var start, end uint64
	for i, id := range g.order {
		o := g.offsets[id]
		if i > 0 && o <= start {
			panic(fmt.Sprintf("resources: group %q member %d at %d does not follow offset %d", g.name, id, o, start))
		}
		if i > 0 && o < end {
			panic(fmt.Sprintf("resources: group %q member %d at %d overlaps previous end %d", g.name, id, o, end))
		}
		start, end = o, o+g.sizes[id]
	}
	if end != g.TotalSize() {
		panic(fmt.Sprintf("resources: group %q total size %d does not match last member end %d", g.name, g.TotalSize(), end))
	}
	g.sealed = true
}
