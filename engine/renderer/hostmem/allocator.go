// Package hostmem is a resources.NativeAllocator backed by a single block of
// host memory. It stands in for a GPU when running headless and in tests.
package hostmem

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-resources/engine/core"
	"github.com/spaghettifunk/anima-resources/engine/resources"
)

const (
	DefaultArenaSize uint64 = 64 * 1024 * 1024
	DefaultAlignment uint64 = 256
)

type AllocatorConfig struct {
	// Total bytes shared by every buffer and image.
	ArenaSize uint64
	// Base alignment of every allocation.
	Alignment uint64
}

func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{
		ArenaSize: DefaultArenaSize,
		Alignment: DefaultAlignment,
	}
}

// Block is the allocation token handed back to the dispatcher.
type Block struct {
	alloc       *Allocation
	memory      []byte
	hostVisible bool
}

func (b *Block) Size() uint64 {
	return b.alloc.Size
}

func (b *Block) Offset() uint64 {
	return b.alloc.Offset
}

// Mapped is nil for device-local patterns, mirroring what a GPU would allow.
func (b *Block) Mapped() []byte {
	if !b.hostVisible {
		return nil
	}
	return b.memory
}

// Contents is the block's bytes regardless of host visibility.
func (b *Block) Contents() []byte {
	return b.memory
}

type Allocator struct {
	config AllocatorConfig
	arena  *Arena
	memory []byte
	live   map[*Block]struct{}
}

func NewAllocator(config AllocatorConfig) (*Allocator, error) {
	if config.ArenaSize == 0 {
		return nil, errors.Wrap(core.ErrInvalidConfig, "hostmem arena size must be > 0")
	}
	if config.Alignment == 0 {
		config.Alignment = 1
	}
	core.LogDebug("Host memory allocator created (%d bytes).", config.ArenaSize)
	return &Allocator{
		config: config,
		arena:  NewArena(config.ArenaSize),
		memory: make([]byte, config.ArenaSize),
		live:   make(map[*Block]struct{}),
	}, nil
}

func (a *Allocator) reserve(name string, size uint64, data []byte, hostVisible bool) (*Block, error) {
	alloc, ok := a.arena.Allocate(size, a.config.Alignment)
	if !ok {
		return nil, errors.Wrapf(core.ErrAllocationFailure, "hostmem: no room for %q (%d bytes, %d of %d used)", name, size, a.arena.Used(), a.arena.Size())
	}
	block := &Block{
		alloc:       alloc,
		memory:      a.memory[alloc.Offset:alloc.end():alloc.end()],
		hostVisible: hostVisible,
	}
	clear(block.memory)
	copy(block.memory, data)
	a.live[block] = struct{}{}
	return block, nil
}

func (a *Allocator) free(tok resources.AllocationToken) {
	block, ok := tok.(*Block)
	if !ok {
		core.LogWarn("hostmem: releasing a token it did not create.")
		return
	}
	if _, ok := a.live[block]; !ok {
		core.LogWarn("hostmem: block %s released twice.", block.alloc)
		return
	}
	delete(a.live, block)
	a.arena.Free(block.alloc)
}

func (a *Allocator) AllocateBuffer(req resources.BufferRequest) (resources.BufferAllocation, error) {
	block, err := a.reserve(req.Name, req.Size, req.Data, req.Pattern.HostVisible())
	if err != nil {
		return resources.BufferAllocation{}, err
	}
	return resources.BufferAllocation{Handle: vk.NullBuffer, Token: block}, nil
}

func (a *Allocator) ReleaseBuffer(alloc resources.BufferAllocation) {
	a.free(alloc.Token)
}

func (a *Allocator) AllocateImage(req resources.ImageRequest) (resources.ImageAllocation, error) {
	block, err := a.reserve(req.Name, req.Size, req.Data, false)
	if err != nil {
		return resources.ImageAllocation{}, err
	}
	return resources.ImageAllocation{Handle: vk.NullImage, Token: block}, nil
}

func (a *Allocator) ReleaseImage(alloc resources.ImageAllocation) {
	a.free(alloc.Token)
}

// Live is the number of outstanding allocations.
func (a *Allocator) Live() int {
	return len(a.live)
}

func (a *Allocator) Used() uint64 {
	return a.arena.Used()
}

func (a *Allocator) Capacity() uint64 {
	return a.arena.Size()
}
