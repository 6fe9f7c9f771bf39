// Package dirtybits tracks which fixed-size blocks of a shadow register
// table have been modified since the last clear, one bit per block.
package dirtybits

import "github.com/bits-and-blooms/bitset"

// Set is a fixed-size bit array over block indices in [0, blockCount).
type Set struct {
	bits       *bitset.BitSet
	blockCount int
}

// New allocates a dirty-bit set for blockCount blocks, all initially clear.
func New(blockCount int) *Set {
	return &Set{
		bits:       bitset.New(uint(blockCount)),
		blockCount: blockCount,
	}
}

// BlockCount returns the number of blocks this set tracks.
func (s *Set) BlockCount() int {
	return s.blockCount
}

// Set marks block i dirty.
func (s *Set) Set(i int) {
	s.bits.Set(uint(i))
}

// Clear marks block i clean.
func (s *Set) Clear(i int) {
	s.bits.Clear(uint(i))
}

// Test reports whether block i is dirty.
func (s *Set) Test(i int) bool {
	return s.bits.Test(uint(i))
}

// SetRange marks every block in [first, last] dirty.
func (s *Set) SetRange(first, last int) {
	for i := first; i <= last; i++ {
		s.bits.Set(uint(i))
	}
}

// ClearRange marks every block in [first, last] clean.
func (s *Set) ClearRange(first, last int) {
	for i := first; i <= last; i++ {
		s.bits.Clear(uint(i))
	}
}

// ClearAll clears every bit.
func (s *Set) ClearAll() {
	s.bits.ClearAll()
}

// EachSet invokes f with the index of every set bit, in ascending order,
// stopping early if f returns false. Relies on the underlying bitset's
// word-at-a-time NextSet so all-zero words are skipped without testing each
// bit individually.
func (s *Set) EachSet(f func(i int) bool) {
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		if int(i) >= s.blockCount {
			return
		}
		if !f(int(i)) {
			return
		}
	}
}
