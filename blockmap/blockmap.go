// Package blockmap converts byte address ranges into block-index ranges and
// validates that a range falls within a fixed total size.
package blockmap

import "fmt"

// Range is an inclusive block-index range [First, Last].
type Range struct {
	First int
	Last  int
}

// Count returns the number of blocks spanned by the range.
func (r Range) Count() int {
	return r.Last - r.First + 1
}

// ErrOutOfBounds is returned when an address range is empty, overflows, or
// exceeds the total size it's being validated against.
var ErrOutOfBounds = fmt.Errorf("blockmap: address range out of bounds")

// Validate reports whether (addr, length) is a valid, non-empty range within
// [0, totalSize). Arithmetic is carried out in int to avoid uint16 wraparound
// when addr+length would exceed 65535.
func Validate(addr, length uint16, totalSize int) error {
	if length == 0 {
		return ErrOutOfBounds
	}

	end := int(addr) + int(length)
	if end > totalSize {
		return ErrOutOfBounds
	}

	return nil
}

// Blocks computes the inclusive block-index range covered by (addr, length)
// given a block size. It validates the range against totalSize first.
func Blocks(addr, length uint16, blockSize, totalSize int) (Range, error) {
	if err := Validate(addr, length, totalSize); err != nil {
		return Range{}, err
	}

	first := int(addr) / blockSize
	last := (int(addr) + int(length) - 1) / blockSize

	return Range{First: first, Last: last}, nil
}
