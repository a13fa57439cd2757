// Package arena plans byte offsets for tensor buffers inside a single
// simulated address space, then commits one real allocation sized to cover
// everything that was handed out.
//
// The arena has two phases. While planning, Alloc and Free move logical
// offsets around a free-region table; no real memory is involved. The first
// call to Buffer commits exactly one allocation from the backend and freezes
// the arena: any Alloc or Free after that point is a programming error and
// panics.
package arena

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"k8s.io/klog/v2"
)

// Alignment is the allocation granularity in bytes, the widest scalar
// element width supported.
const Alignment = 8

// Region is a currently-unused span of the simulated address space.
type Region struct {
	Offset int64
	Length int64
}

type Arena struct {
	backend Backend

	used int64 // live bytes
	peak int64 // historical maximum of used
	mark int64 // end of the address space handed out so far

	// free regions, ascending by offset, never overlapping or adjacent
	free []Region

	buf       []byte
	committed bool
}

func New(backend Backend) *Arena {
	return &Arena{backend: backend}
}

// AlignUp rounds size up to the next multiple of Alignment.
func AlignUp(size int64) int64 {
	if size <= 0 {
		return 0
	}
	return ((size-1)/Alignment + 1) * Alignment
}

// Alloc reserves size bytes (rounded up to the alignment) and returns the
// chosen logical offset. The free-region table is scanned in ascending offset
// order and the first region large enough is taken, shrinking it in place if
// it is larger than needed. When no region fits, the address space grows at
// the end mark.
func (a *Arena) Alloc(size int64) int64 {
	if a.committed {
		panic("arena: Alloc after commit")
	}
	size = AlignUp(size)
	if size == 0 {
		return a.mark
	}

	for i := range a.free {
		r := a.free[i]
		if r.Length < size {
			continue
		}
		a.used += size
		a.peak = max(a.peak, a.used)
		if r.Length == size {
			a.free = slices.Delete(a.free, i, i+1)
		} else {
			a.free[i].Offset += size
			a.free[i].Length -= size
		}
		return r.Offset
	}

	offset := a.mark
	a.mark += size
	a.used += size
	a.peak = max(a.peak, a.used)
	return offset
}

// Free returns the span [offset, offset+size) to the free-region table and
// coalesces it with an adjacent region on either side. Because the table is
// fully coalesced before every call, at most one neighbor can exist in each
// direction.
func (a *Arena) Free(offset, size int64) {
	if a.committed {
		panic("arena: Free after commit")
	}
	size = AlignUp(size)
	if size == 0 {
		return
	}
	a.used -= size

	r := Region{Offset: offset, Length: size}
	i := sort.Search(len(a.free), func(i int) bool {
		return a.free[i].Offset >= offset
	})

	// merge the region that begins exactly where this one ends
	if i < len(a.free) && a.free[i].Offset == offset+size {
		r.Length += a.free[i].Length
		a.free = slices.Delete(a.free, i, i+1)
	}

	// merge the region that ends exactly where this one begins
	for j := range a.free {
		if a.free[j].Offset+a.free[j].Length == offset {
			a.free[j].Length += r.Length
			return
		}
	}

	a.free = slices.Insert(a.free, i, r)
}

// Buffer commits the single real allocation on first call, sized to the end
// mark of the planned address space, and returns it. Later calls return the
// cached buffer. After Buffer returns, the arena is frozen.
func (a *Arena) Buffer(ctx context.Context) ([]byte, error) {
	if a.committed {
		return a.buf, nil
	}
	log := klog.FromContext(ctx)

	buf, err := a.backend.Allocate(ctx, a.mark)
	if err != nil {
		return nil, fmt.Errorf("allocating arena buffer of %d bytes: %w", a.mark, err)
	}
	a.buf = buf
	a.committed = true
	log.Info("arena committed", "bytes", a.mark, "used", a.used, "peak", a.peak)
	return a.buf, nil
}

// Release returns the committed buffer, if any, to the backend.
func (a *Arena) Release(ctx context.Context) error {
	if !a.committed {
		return nil
	}
	if err := a.backend.Release(ctx, a.buf); err != nil {
		return fmt.Errorf("releasing arena buffer: %w", err)
	}
	a.buf = nil
	return nil
}

// Used returns the number of live bytes.
func (a *Arena) Used() int64 { return a.used }

// Peak returns the historical maximum of Used.
func (a *Arena) Peak() int64 { return a.peak }

// Committed reports whether the real buffer has been allocated.
func (a *Arena) Committed() bool { return a.committed }

// FreeRegions returns a copy of the free-region table.
func (a *Arena) FreeRegions() []Region {
	return slices.Clone(a.free)
}
