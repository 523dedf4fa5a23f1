package hostmem

import (
	"fmt"

	emath "github.com/spaghettifunk/anima-resources/engine/math"
)

// Allocation is a range reserved inside an Arena.
type Allocation struct {
	Offset uint64
	Size   uint64
}

func (a *Allocation) String() string {
	return fmt.Sprintf("[%d %d]", a.Offset, a.Size)
}

func (a *Allocation) end() uint64 {
	return a.Offset + a.Size
}

// Arena hands out aligned ranges of a fixed size space, first fit.
// Allocations are kept sorted by offset.
type Arena struct {
	size   uint64
	allocs []*Allocation
}

func NewArena(size uint64) *Arena {
	return &Arena{size: size}
}

// Allocate reserves size bytes at an offset that is a multiple of align.
// It returns false when no gap is large enough.
func (p *Arena) Allocate(size, align uint64) (*Allocation, bool) {
	if size == 0 || size > p.size {
		return nil, false
	}

	var prevEnd uint64
	for i, cur := range p.allocs {
		start := emath.AlignUp(prevEnd, align)
		if start+size <= cur.Offset {
			na := &Allocation{Offset: start, Size: size}
			p.allocs = append(p.allocs[:i], append([]*Allocation{na}, p.allocs[i:]...)...)
			return na, true
		}
		prevEnd = cur.end()
	}

	start := emath.AlignUp(prevEnd, align)
	if start > p.size || p.size-start < size {
		return nil, false
	}
	na := &Allocation{Offset: start, Size: size}
	p.allocs = append(p.allocs, na)
	return na, true
}

// Free returns the range to the arena. Unknown allocations are ignored.
func (p *Arena) Free(fa *Allocation) bool {
	for i, a := range p.allocs {
		if a == fa {
			p.allocs = append(p.allocs[:i], p.allocs[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Arena) Size() uint64 {
	return p.size
}

// Used is the number of bytes held by live allocations, padding excluded.
func (p *Arena) Used() uint64 {
	var used uint64
	for _, a := range p.allocs {
		used += a.Size
	}
	return used
}

func (p *Arena) Len() int {
	return len(p.allocs)
}

func (p *Arena) String() string {
	return fmt.Sprintf("%v", p.allocs)
}
