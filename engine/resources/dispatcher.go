package resources

import (
	"bytes"
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-resources/engine/core"
)

// BufferRequest is what the dispatcher asks a native allocator for.
type BufferRequest struct {
	Name    string
	Size    uint64
	Usage   vk.BufferUsageFlags
	Sharing vk.SharingMode
	// Pattern is the placement hint: it selects the memory type.
	Pattern MemoryPattern
	// Data is copied into host visible allocations. Device-local allocations
	// leave it to the caller's staging transfer.
	Data []byte
}

type ImageRequest struct {
	Name    string
	Size    uint64
	Usage   vk.ImageUsageFlags
	Format  vk.Format
	Width   uint32
	Height  uint32
	Pattern MemoryPattern
	Data    []byte
}

// AllocationToken is the allocator side record of one allocation.
type AllocationToken interface {
	// Size is the number of bytes actually reserved, alignment included.
	Size() uint64
	// Mapped is the host mapping, nil for memory the host cannot see.
	Mapped() []byte
}

type BufferAllocation struct {
	Handle vk.Buffer
	Token  AllocationToken
}

type ImageAllocation struct {
	Handle vk.Image
	Token  AllocationToken
}

// NativeAllocator creates and destroys native handles with their backing memory.
type NativeAllocator interface {
	AllocateBuffer(req BufferRequest) (BufferAllocation, error)
	ReleaseBuffer(alloc BufferAllocation)
	AllocateImage(req ImageRequest) (ImageAllocation, error)
	ReleaseImage(alloc ImageAllocation)
}

// AllocationFailure records one refused request. Err matches core.ErrAllocationFailure.
type AllocationFailure struct {
	// Group is empty for individually dispatched resources.
	Group string
	ID    ResourceID
	Size  uint64
	Err   error
}

// BufferSet holds the outcome of GenerateAllBuffers.
type BufferSet struct {
	Groups     map[string]*ManagedBuffer
	Individual map[ResourceID]*ManagedBuffer
	Failures   []AllocationFailure
}

func newBufferSet() *BufferSet {
	return &BufferSet{
		Groups:     make(map[string]*ManagedBuffer),
		Individual: make(map[ResourceID]*ManagedBuffer),
	}
}

// Failed reports whether the allocation of the named group failed.
func (s *BufferSet) Failed(group string) bool {
	for _, f := range s.Failures {
		if f.Group == group && group != "" {
			return true
		}
	}
	return false
}

// Err summarises the failures, nil when every allocation succeeded.
func (s *BufferSet) Err() error {
	return failuresErr(s.Failures)
}

// Lookup finds the buffer backing id and the offset of id within it.
func (s *BufferSet) Lookup(id ResourceID) (*ManagedBuffer, uint64, bool) {
	if b, ok := s.Individual[id]; ok && !b.IsEmpty() {
		return b, 0, true
	}
	for _, b := range s.Groups {
		if o, ok := b.Offset(id); ok && !b.IsEmpty() {
			return b, o, true
		}
	}
	return nil, InvalidOffset, false
}

// Release frees every buffer in the set.
func (s *BufferSet) Release() {
	for _, name := range sortedKeys(s.Groups) {
		s.Groups[name].Release()
	}
	for _, id := range sortedKeys(s.Individual) {
		s.Individual[id].Release()
	}
}

// ImageSet holds the outcome of GenerateAllImages.
type ImageSet struct {
	Individual map[ResourceID]*ManagedImage
	// Staging holds one consolidated upload buffer per image group.
	Staging  map[string]*ManagedBuffer
	Failures []AllocationFailure
}

func newImageSet() *ImageSet {
	return &ImageSet{
		Individual: make(map[ResourceID]*ManagedImage),
		Staging:    make(map[string]*ManagedBuffer),
	}
}

func (s *ImageSet) Err() error {
	return failuresErr(s.Failures)
}

func (s *ImageSet) Release() {
	for _, id := range sortedKeys(s.Individual) {
		s.Individual[id].Release()
	}
	for _, name := range sortedKeys(s.Staging) {
		s.Staging[name].Release()
	}
}

// Dispatcher turns the collector's grouping result into managed resources.
// Metrics and events are optional.
type Dispatcher struct {
	allocator NativeAllocator
	metrics   *core.Metrics
	events    *core.EventBus
}

func NewDispatcher(allocator NativeAllocator, metrics *core.Metrics, events *core.EventBus) *Dispatcher {
	return &Dispatcher{
		allocator: allocator,
		metrics:   metrics,
		events:    events,
	}
}

// GenerateAllBuffers dispatches with a bare dispatcher.
func GenerateAllBuffers(c *Collector, a NativeAllocator) *BufferSet {
	return NewDispatcher(a, nil, nil).GenerateAllBuffers(c)
}

// GenerateAllImages dispatches with a bare dispatcher.
func GenerateAllImages(c *Collector, a NativeAllocator) *ImageSet {
	return NewDispatcher(a, nil, nil).GenerateAllImages(c)
}

// GenerateAllBuffers issues one request per non-empty group of the current
// grouping result and one per ungrouped resource. A refused request is
// recorded in Failures and the pass goes on. Buffers collected after the
// grouping pass are not dispatched.
func (d *Dispatcher) GenerateAllBuffers(c *Collector) *BufferSet {
	set := newBufferSet()
	if !c.IsGrouped() {
		core.LogWarn("GenerateAllBuffers called before GroupAllBufferData, nothing to dispatch.")
		return set
	}
	if pending := c.PendingBufferIDs(); len(pending) > 0 {
		core.LogWarn("%d buffers collected after the grouping pass are not dispatched: %v", len(pending), pending)
	}

	for _, name := range c.GetAllGroupNames() {
		g, _ := c.GetGroupData(name)
		if g.IsEmpty() {
			continue
		}
		req := BufferRequest{
			Name:    name,
			Size:    g.TotalSize(),
			Usage:   g.Usage(),
			Sharing: g.Sharing(),
			Pattern: g.Pattern(),
			Data:    g.Data(),
		}
		alloc, err := d.allocateBuffer(req)
		if err != nil {
			set.Failures = append(set.Failures, AllocationFailure{Group: name, ID: InvalidResourceID, Size: req.Size, Err: err})
			continue
		}
		set.Groups[name] = newManagedBuffer(d.allocator, alloc, req, g.Offsets())
	}

	for _, id := range c.UngroupedBufferIDs() {
		res := c.resource(id)
		if res.Data.IsEmpty() {
			core.LogWarn("Ungrouped buffer %d has no data, skipping.", id)
			continue
		}
		// the borrow ends with this pass
		data := bytes.Clone(res.Data.Bytes())
		req := BufferRequest{
			Name:    fmt.Sprintf("buffer/%d", id),
			Size:    res.Data.Len(),
			Usage:   res.Descriptor.BufferUsage(),
			Sharing: res.Descriptor.Sharing(),
			Pattern: res.Descriptor.Pattern(),
			Data:    data,
		}
		alloc, err := d.allocateBuffer(req)
		if err != nil {
			set.Failures = append(set.Failures, AllocationFailure{ID: id, Size: req.Size, Err: err})
			continue
		}
		set.Individual[id] = newManagedBuffer(d.allocator, alloc, req, map[ResourceID]uint64{id: 0})
	}

	core.LogDebug("Dispatched %d grouped and %d individual buffers, %d failures.", len(set.Groups), len(set.Individual), len(set.Failures))
	return set
}

// GenerateAllImages issues one request per collected image. Images matched
// by an image group additionally get their texels placed in that group's
// staging buffer, when GroupAllImageData has run.
func (d *Dispatcher) GenerateAllImages(c *Collector) *ImageSet {
	set := newImageSet()

	for _, name := range c.GetAllImageGroupNames() {
		g, _ := c.GetImageGroupData(name)
		if g.IsEmpty() {
			continue
		}
		req := BufferRequest{
			Name:    "staging/" + name,
			Size:    g.TotalSize(),
			Usage:   g.Usage(),
			Sharing: g.Sharing(),
			Pattern: g.Pattern(),
			Data:    g.Data(),
		}
		alloc, err := d.allocateBuffer(req)
		if err != nil {
			set.Failures = append(set.Failures, AllocationFailure{Group: name, ID: InvalidResourceID, Size: req.Size, Err: err})
			continue
		}
		set.Staging[name] = newManagedBuffer(d.allocator, alloc, req, g.Offsets())
	}

	for _, id := range c.ImageIDs() {
		res := c.imageResource(id)
		req := imageRequest(id, res)
		alloc, err := d.allocateImage(req)
		if err != nil {
			set.Failures = append(set.Failures, AllocationFailure{ID: id, Size: req.Size, Err: err})
			continue
		}
		img := newManagedImage(d.allocator, alloc, req)
		if group, ok := c.GetImageGroup(id); ok {
			if staging, ok := set.Staging[group]; ok {
				img.staging = group
				img.offset, _ = staging.Offset(id)
			}
		}
		set.Individual[id] = img
	}

	core.LogDebug("Dispatched %d images and %d staging buffers, %d failures.", len(set.Individual), len(set.Staging), len(set.Failures))
	return set
}

func imageRequest(id ResourceID, res Resource) ImageRequest {
	intent := res.Descriptor.ImageIntent()
	format := intent.Format
	if format == vk.FormatUndefined {
		format = vk.FormatR8g8b8a8Unorm
	}
	size := res.Data.Len()
	if size == 0 {
		// 4 bytes per texel for the default format
		size = uint64(intent.Width) * uint64(intent.Height) * 4
	}
	usage := intent.Usage
	if !res.Data.IsEmpty() {
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	}
	return ImageRequest{
		Name:    fmt.Sprintf("image/%d", id),
		Size:    size,
		Usage:   usage,
		Format:  format,
		Width:   intent.Width,
		Height:  intent.Height,
		Pattern: res.Descriptor.Pattern(),
		Data:    res.Data.Bytes(),
	}
}

func (d *Dispatcher) allocateBuffer(req BufferRequest) (BufferAllocation, error) {
	alloc, err := d.allocator.AllocateBuffer(req)
	if err != nil {
		err = d.fail(req.Name, req.Size, err)
	}
	d.record(req.Size, err)
	return alloc, err
}

func (d *Dispatcher) allocateImage(req ImageRequest) (ImageAllocation, error) {
	alloc, err := d.allocator.AllocateImage(req)
	if err != nil {
		err = d.fail(req.Name, req.Size, err)
	}
	d.record(req.Size, err)
	return alloc, err
}

func (d *Dispatcher) record(size uint64, err error) {
	if d.metrics != nil {
		d.metrics.RecordAllocation(size, err != nil)
	}
}

func (d *Dispatcher) fail(name string, size uint64, cause error) error {
	err := errors.Mark(errors.Wrapf(cause, "allocating %q (%d bytes)", name, size), core.ErrAllocationFailure)
	core.LogError(err.Error())
	if d.events != nil {
		ctx := core.EventContext{Err: err}
		ctx.Data.U64[0] = size
		ctx.Data.C[0] = name
		d.events.Fire(core.EVENT_CODE_ALLOCATION_FAILED, d, ctx)
	}
	return err
}

func failuresErr(failures []AllocationFailure) error {
	if len(failures) == 0 {
		return nil
	}
	if len(failures) == 1 {
		return failures[0].Err
	}
	return errors.Wrapf(failures[0].Err, "%d allocations failed, first", len(failures))
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
