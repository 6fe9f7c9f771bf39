// Package staging implements a fixed-capacity, insertion-ordered log of
// pending writes for a shadow register table's transactional overlay.
package staging

import (
	"fmt"

	"github.com/aq1018/shadowreg/regslice"
)

// ErrStageFull is returned when appending an entry would exceed the
// buffer's data or entry capacity.
var ErrStageFull = fmt.Errorf("staging: capacity exhausted")

type entry struct {
	addr       uint16
	length     uint16
	dataOffset uint32
}

// Buffer is a fixed-capacity arena plus a fixed-capacity entry table. Once
// constructed, neither grows: all capacity is allocated up front.
type Buffer struct {
	arena    []byte
	used     int
	entries  []entry
	entryCap int
}

// New allocates a staging buffer with room for dataCapacity bytes across at
// most entryCapacity entries.
func New(dataCapacity, entryCapacity int) *Buffer {
	return &Buffer{
		arena:    make([]byte, dataCapacity),
		entries:  make([]entry, 0, entryCapacity),
		entryCap: entryCapacity,
	}
}

// Len returns the number of bytes currently reserved in the arena.
func (b *Buffer) Len() int { return b.used }

// Cap returns the arena's total byte capacity.
func (b *Buffer) Cap() int { return len(b.arena) }

// EntryCount returns the number of pending entries.
func (b *Buffer) EntryCount() int { return len(b.entries) }

// AllocStaged reserves length bytes at the arena tail for (addr, length),
// invokes f with a write-only window over the reservation, and then either
// keeps the entry (f returned Dirty) or rolls the reservation back entirely
// (f returned Clean), leaving used-byte and entry counts exactly as they
// were before the call.
//
// AllocStaged is a free function, not a method, because each call may carry
// a different result type R and Go methods cannot introduce new type
// parameters beyond their receiver's.
func AllocStaged[R any](b *Buffer, addr, length uint16, f func(w regslice.WO) regslice.WriteResult[R]) (regslice.WriteResult[R], error) {
	var zero regslice.WriteResult[R]

	if b.used+int(length) > len(b.arena) || len(b.entries) == b.entryCap {
		return zero, ErrStageFull
	}

	start := b.used
	window := b.arena[start : start+int(length)]

	result := f(regslice.NewWO(window))

	if !result.IsDirty() {
		return result, nil
	}

	b.used += int(length)
	b.entries = append(b.entries, entry{addr: addr, length: length, dataOffset: uint32(start)})

	return result, nil
}

// IterStaged invokes f once per entry, in insertion order, with a read-only
// window over that entry's staged bytes. The first error returned by f
// short-circuits iteration.
func (b *Buffer) IterStaged(f func(addr, length uint16, data regslice.RO) error) error {
	for _, e := range b.entries {
		window := b.arena[e.dataOffset : e.dataOffset+uint32(e.length)]
		if err := f(e.addr, e.length, regslice.NewRO(window)); err != nil {
			return err
		}
	}
	return nil
}

// OverlayByte resolves the value of byte a through the overlay: the most
// recently inserted entry covering a wins; if no entry covers a, base is
// returned unchanged.
func (b *Buffer) OverlayByte(a uint16, base byte) byte {
	for i := len(b.entries) - 1; i >= 0; i-- {
		e := b.entries[i]
		if a >= e.addr && int(a) < int(e.addr)+int(e.length) {
			return b.arena[int(e.dataOffset)+int(a-e.addr)]
		}
	}
	return base
}

// Intersects reports whether any staged entry overlaps [addr, addr+length).
func (b *Buffer) Intersects(addr, length uint16) bool {
	start, end := int(addr), int(addr)+int(length)
	for _, e := range b.entries {
		es, ee := int(e.addr), int(e.addr)+int(e.length)
		if start < ee && es < end {
			return true
		}
	}
	return false
}

// Clear resets the buffer to empty; the underlying arena and entry slice
// capacity are retained for reuse.
func (b *Buffer) Clear() {
	b.used = 0
	b.entries = b.entries[:0]
}
