package resources

import (
	vk "github.com/goki/vulkan"
)

// noCopy lets `go vet` flag accidental copies of managed resources.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// ManagedBuffer owns one native buffer handle and its allocation. It must be
// passed by pointer; Move transfers ownership and Release frees both the
// handle and the allocation exactly once.
type ManagedBuffer struct {
	noCopy noCopy

	allocator NativeAllocator
	alloc     BufferAllocation
	live      bool

	name    string
	size    uint64
	usage   vk.BufferUsageFlags
	pattern MemoryPattern
	offsets map[ResourceID]uint64
	data    []byte
}

func newManagedBuffer(a NativeAllocator, alloc BufferAllocation, req BufferRequest, offsets map[ResourceID]uint64) *ManagedBuffer {
	return &ManagedBuffer{
		allocator: a,
		alloc:     alloc,
		live:      true,
		name:      req.Name,
		size:      req.Size,
		usage:     req.Usage,
		pattern:   req.Pattern,
		offsets:   offsets,
		data:      req.Data,
	}
}

func (b *ManagedBuffer) Handle() vk.Buffer {
	return b.alloc.Handle
}

// Allocation is the allocator record backing this buffer.
func (b *ManagedBuffer) Allocation() BufferAllocation {
	return b.alloc
}

func (b *ManagedBuffer) Name() string               { return b.name }
func (b *ManagedBuffer) Size() uint64               { return b.size }
func (b *ManagedBuffer) Usage() vk.BufferUsageFlags { return b.usage }
func (b *ManagedBuffer) Pattern() MemoryPattern     { return b.pattern }

// Offset returns where member id starts inside this buffer.
func (b *ManagedBuffer) Offset(id ResourceID) (uint64, bool) {
	o, ok := b.offsets[id]
	return o, ok
}

// Data is the host copy of the buffer contents as laid out at dispatch time.
// Device-local buffers are filled from it through a staging transfer.
func (b *ManagedBuffer) Data() []byte {
	return b.data
}

// Mapped returns the host mapping of the allocation, or nil when the memory
// is not host visible.
func (b *ManagedBuffer) Mapped() []byte {
	if !b.live || b.alloc.Token == nil {
		return nil
	}
	return b.alloc.Token.Mapped()
}

// RequiresStaging reports whether the contents still have to be copied to
// the device through a staging buffer.
func (b *ManagedBuffer) RequiresStaging() bool {
	return b.live && b.pattern.RequiresStaging()
}

// IsEmpty reports whether this value owns nothing, after a Move or Release.
func (b *ManagedBuffer) IsEmpty() bool {
	return b == nil || !b.live
}

// Move transfers ownership into a new ManagedBuffer. The receiver becomes
// empty and its Release is a no-op.
func (b *ManagedBuffer) Move() *ManagedBuffer {
	if b.IsEmpty() {
		return &ManagedBuffer{}
	}
	moved := &ManagedBuffer{
		allocator: b.allocator,
		alloc:     b.alloc,
		live:      true,
		name:      b.name,
		size:      b.size,
		usage:     b.usage,
		pattern:   b.pattern,
		offsets:   b.offsets,
		data:      b.data,
	}
	b.reset()
	return moved
}

// Release frees the native handle and its allocation. Calling it again, or on
// a moved-from value, does nothing.
func (b *ManagedBuffer) Release() {
	if b.IsEmpty() {
		return
	}
	b.allocator.ReleaseBuffer(b.alloc)
	b.reset()
}

func (b *ManagedBuffer) reset() {
	b.allocator = nil
	b.alloc = BufferAllocation{Handle: vk.NullBuffer}
	b.live = false
	b.offsets = nil
	b.data = nil
}

// ManagedImage owns one native image handle and its allocation, with the
// same ownership rules as ManagedBuffer.
type ManagedImage struct {
	noCopy noCopy

	allocator NativeAllocator
	alloc     ImageAllocation
	live      bool

	name    string
	size    uint64
	usage   vk.ImageUsageFlags
	format  vk.Format
	width   uint32
	height  uint32
	staging string
	offset  uint64
}

func newManagedImage(a NativeAllocator, alloc ImageAllocation, req ImageRequest) *ManagedImage {
	return &ManagedImage{
		allocator: a,
		alloc:     alloc,
		live:      true,
		name:      req.Name,
		size:      req.Size,
		usage:     req.Usage,
		format:    req.Format,
		width:     req.Width,
		height:    req.Height,
		offset:    InvalidOffset,
	}
}

func (i *ManagedImage) Handle() vk.Image {
	return i.alloc.Handle
}

func (i *ManagedImage) Allocation() ImageAllocation {
	return i.alloc
}

func (i *ManagedImage) Name() string              { return i.name }
func (i *ManagedImage) Size() uint64              { return i.size }
func (i *ManagedImage) Usage() vk.ImageUsageFlags { return i.usage }
func (i *ManagedImage) Format() vk.Format         { return i.format }

func (i *ManagedImage) Extent() (width, height uint32) {
	return i.width, i.height
}

// Staging returns the image group whose staging buffer holds this image's
// texels and the offset of those texels inside it.
func (i *ManagedImage) Staging() (group string, offset uint64, ok bool) {
	if i.staging == "" {
		return "", InvalidOffset, false
	}
	return i.staging, i.offset, true
}

func (i *ManagedImage) IsEmpty() bool {
	return i == nil || !i.live
}

func (i *ManagedImage) Move() *ManagedImage {
	if i.IsEmpty() {
		return &ManagedImage{}
	}
	moved := &ManagedImage{
		allocator: i.allocator,
		alloc:     i.alloc,
		live:      true,
		name:      i.name,
		size:      i.size,
		usage:     i.usage,
		format:    i.format,
		width:     i.width,
		height:    i.height,
		staging:   i.staging,
		offset:    i.offset,
	}
	i.reset()
	return moved
}

func (i *ManagedImage) Release() {
	if i.IsEmpty() {
		return
	}
	i.allocator.ReleaseImage(i.alloc)
	i.reset()
}

func (i *ManagedImage) reset() {
	i.allocator = nil
	i.alloc = ImageAllocation{Handle: vk.NullImage}
	i.live = false
	i.staging = ""
	i.offset = InvalidOffset
}
