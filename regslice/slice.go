// Package regslice provides zero-copy, bounds-checked byte windows over
// shadow register storage, with typed little/big-endian accessors split
// into read-only, write-only, and read-write capabilities.
package regslice

import (
	"encoding/binary"
	"fmt"
)

// ErrOutOfRange names the case of an offset or length falling outside the
// slice's own bounds. No accessor in this package returns it: the fallible
// Try* accessors report that case with a false result instead.
var ErrOutOfRange = fmt.Errorf("regslice: offset out of range")

func checkRange(sliceLen, offset, size int) bool {
	if offset < 0 || size < 0 {
		return false
	}
	return offset+size <= sliceLen
}

func mustInRange(sliceLen, offset, size int) {
	if !checkRange(sliceLen, offset, size) {
		panic(fmt.Sprintf("regslice: offset %d size %d out of range for slice of length %d", offset, size, sliceLen))
	}
}

// RO is a read-only window over a byte slice. Its base and length are fixed
// for its lifetime; offsets are checked against its own length, never the
// window's source.
type RO struct {
	b []byte
}

// NewRO wraps b as a read-only window. b is not copied.
func NewRO(b []byte) RO { return RO{b: b} }

// Len returns the window's length in bytes.
func (s RO) Len() int { return len(s.b) }

// ReadU8At returns the byte at offset, panicking if offset is out of range.
func (s RO) ReadU8At(offset int) byte {
	mustInRange(len(s.b), offset, 1)
	return s.b[offset]
}

// TryReadU8At returns the byte at offset, or (0, false) if out of range.
func (s RO) TryReadU8At(offset int) (byte, bool) {
	if !checkRange(len(s.b), offset, 1) {
		return 0, false
	}
	return s.b[offset], true
}

// ReadI8At returns the signed byte at offset, panicking if out of range.
func (s RO) ReadI8At(offset int) int8 {
	return int8(s.ReadU8At(offset))
}

// TryReadI8At returns the signed byte at offset, or (0, false) if out of range.
func (s RO) TryReadI8At(offset int) (int8, bool) {
	v, ok := s.TryReadU8At(offset)
	return int8(v), ok
}

// ReadU16LEAt reads a little-endian uint16 at offset, panicking if out of range.
func (s RO) ReadU16LEAt(offset int) uint16 {
	mustInRange(len(s.b), offset, 2)
	return binary.LittleEndian.Uint16(s.b[offset:])
}

// TryReadU16LEAt reads a little-endian uint16 at offset, or (0, false) if out of range.
func (s RO) TryReadU16LEAt(offset int) (uint16, bool) {
	if !checkRange(len(s.b), offset, 2) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(s.b[offset:]), true
}

// ReadU16BEAt reads a big-endian uint16 at offset, panicking if out of range.
func (s RO) ReadU16BEAt(offset int) uint16 {
	mustInRange(len(s.b), offset, 2)
	return binary.BigEndian.Uint16(s.b[offset:])
}

// TryReadU16BEAt reads a big-endian uint16 at offset, or (0, false) if out of range.
func (s RO) TryReadU16BEAt(offset int) (uint16, bool) {
	if !checkRange(len(s.b), offset, 2) {
		return 0, false
	}
	return binary.BigEndian.Uint16(s.b[offset:]), true
}

// ReadI16LEAt reads a little-endian int16 at offset, panicking if out of range.
func (s RO) ReadI16LEAt(offset int) int16 {
	return int16(s.ReadU16LEAt(offset))
}

// TryReadI16LEAt reads a little-endian int16 at offset, or (0, false) if out of range.
func (s RO) TryReadI16LEAt(offset int) (int16, bool) {
	v, ok := s.TryReadU16LEAt(offset)
	return int16(v), ok
}

// ReadI16BEAt reads a big-endian int16 at offset, panicking if out of range.
func (s RO) ReadI16BEAt(offset int) int16 {
	return int16(s.ReadU16BEAt(offset))
}

// TryReadI16BEAt reads a big-endian int16 at offset, or (0, false) if out of range.
func (s RO) TryReadI16BEAt(offset int) (int16, bool) {
	v, ok := s.TryReadU16BEAt(offset)
	return int16(v), ok
}

// ReadU32LEAt reads a little-endian uint32 at offset, panicking if out of range.
func (s RO) ReadU32LEAt(offset int) uint32 {
	mustInRange(len(s.b), offset, 4)
	return binary.LittleEndian.Uint32(s.b[offset:])
}

// TryReadU32LEAt reads a little-endian uint32 at offset, or (0, false) if out of range.
func (s RO) TryReadU32LEAt(offset int) (uint32, bool) {
	if !checkRange(len(s.b), offset, 4) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(s.b[offset:]), true
}

// ReadU32BEAt reads a big-endian uint32 at offset, panicking if out of range.
func (s RO) ReadU32BEAt(offset int) uint32 {
	mustInRange(len(s.b), offset, 4)
	return binary.BigEndian.Uint32(s.b[offset:])
}

// TryReadU32BEAt reads a big-endian uint32 at offset, or (0, false) if out of range.
func (s RO) TryReadU32BEAt(offset int) (uint32, bool) {
	if !checkRange(len(s.b), offset, 4) {
		return 0, false
	}
	return binary.BigEndian.Uint32(s.b[offset:]), true
}

// ReadI32LEAt reads a little-endian int32 at offset, panicking if out of range.
func (s RO) ReadI32LEAt(offset int) int32 {
	return int32(s.ReadU32LEAt(offset))
}

// TryReadI32LEAt reads a little-endian int32 at offset, or (0, false) if out of range.
func (s RO) TryReadI32LEAt(offset int) (int32, bool) {
	v, ok := s.TryReadU32LEAt(offset)
	return int32(v), ok
}

// ReadI32BEAt reads a big-endian int32 at offset, panicking if out of range.
func (s RO) ReadI32BEAt(offset int) int32 {
	return int32(s.ReadU32BEAt(offset))
}

// TryReadI32BEAt reads a big-endian int32 at offset, or (0, false) if out of range.
func (s RO) TryReadI32BEAt(offset int) (int32, bool) {
	v, ok := s.TryReadU32BEAt(offset)
	return int32(v), ok
}

// CopyTo copies the whole window into dst, panicking if dst is too small.
// It returns the number of bytes copied.
func (s RO) CopyTo(dst []byte) int {
	return s.CopyToAt(0, dst)
}

// CopyToAt copies len(dst) bytes starting at offset into dst, panicking if
// out of range. It returns the number of bytes copied.
func (s RO) CopyToAt(offset int, dst []byte) int {
	mustInRange(len(s.b), offset, len(dst))
	return copy(dst, s.b[offset:offset+len(dst)])
}

// WO is a write-only window over a byte slice. Reading from a WO slice is
// not exposed, per the write-only discipline.
type WO struct {
	b []byte
}

// NewWO wraps b as a write-only window. b is not copied.
func NewWO(b []byte) WO { return WO{b: b} }

// Len returns the window's length in bytes.
func (s WO) Len() int { return len(s.b) }

// WriteU8At writes v at offset, panicking if out of range.
func (s WO) WriteU8At(offset int, v byte) {
	mustInRange(len(s.b), offset, 1)
	s.b[offset] = v
}

// TryWriteU8At writes v at offset, returning false if out of range.
func (s WO) TryWriteU8At(offset int, v byte) bool {
	if !checkRange(len(s.b), offset, 1) {
		return false
	}
	s.b[offset] = v
	return true
}

// WriteI8At writes the signed byte v at offset, panicking if out of range.
func (s WO) WriteI8At(offset int, v int8) {
	s.WriteU8At(offset, byte(v))
}

// TryWriteI8At writes the signed byte v at offset, returning false if out of range.
func (s WO) TryWriteI8At(offset int, v int8) bool {
	return s.TryWriteU8At(offset, byte(v))
}

// WriteU16LEAt writes a little-endian uint16 at offset, panicking if out of range.
func (s WO) WriteU16LEAt(offset int, v uint16) {
	mustInRange(len(s.b), offset, 2)
	binary.LittleEndian.PutUint16(s.b[offset:], v)
}

// TryWriteU16LEAt writes a little-endian uint16 at offset, returning false if out of range.
func (s WO) TryWriteU16LEAt(offset int, v uint16) bool {
	if !checkRange(len(s.b), offset, 2) {
		return false
	}
	binary.LittleEndian.PutUint16(s.b[offset:], v)
	return true
}

// WriteU16BEAt writes a big-endian uint16 at offset, panicking if out of range.
func (s WO) WriteU16BEAt(offset int, v uint16) {
	mustInRange(len(s.b), offset, 2)
	binary.BigEndian.PutUint16(s.b[offset:], v)
}

// TryWriteU16BEAt writes a big-endian uint16 at offset, returning false if out of range.
func (s WO) TryWriteU16BEAt(offset int, v uint16) bool {
	if !checkRange(len(s.b), offset, 2) {
		return false
	}
	binary.BigEndian.PutUint16(s.b[offset:], v)
	return true
}

// WriteI16LEAt writes a little-endian int16 at offset, panicking if out of range.
func (s WO) WriteI16LEAt(offset int, v int16) {
	s.WriteU16LEAt(offset, uint16(v))
}

// TryWriteI16LEAt writes a little-endian int16 at offset, returning false if out of range.
func (s WO) TryWriteI16LEAt(offset int, v int16) bool {
	return s.TryWriteU16LEAt(offset, uint16(v))
}

// WriteI16BEAt writes a big-endian int16 at offset, panicking if out of range.
func (s WO) WriteI16BEAt(offset int, v int16) {
	s.WriteU16BEAt(offset, uint16(v))
}

// TryWriteI16BEAt writes a big-endian int16 at offset, returning false if out of range.
func (s WO) TryWriteI16BEAt(offset int, v int16) bool {
	return s.TryWriteU16BEAt(offset, uint16(v))
}

// WriteU32LEAt writes a little-endian uint32 at offset, panicking if out of range.
func (s WO) WriteU32LEAt(offset int, v uint32) {
	mustInRange(len(s.b), offset, 4)
	binary.LittleEndian.PutUint32(s.b[offset:], v)
}

// TryWriteU32LEAt writes a little-endian uint32 at offset, returning false if out of range.
func (s WO) TryWriteU32LEAt(offset int, v uint32) bool {
	if !checkRange(len(s.b), offset, 4) {
		return false
	}
	binary.LittleEndian.PutUint32(s.b[offset:], v)
	return true
}

// WriteU32BEAt writes a big-endian uint32 at offset, panicking if out of range.
func (s WO) WriteU32BEAt(offset int, v uint32) {
	mustInRange(len(s.b), offset, 4)
	binary.BigEndian.PutUint32(s.b[offset:], v)
}

// TryWriteU32BEAt writes a big-endian uint32 at offset, returning false if out of range.
func (s WO) TryWriteU32BEAt(offset int, v uint32) bool {
	if !checkRange(len(s.b), offset, 4) {
		return false
	}
	binary.BigEndian.PutUint32(s.b[offset:], v)
	return true
}

// WriteI32LEAt writes a little-endian int32 at offset, panicking if out of range.
func (s WO) WriteI32LEAt(offset int, v int32) {
	s.WriteU32LEAt(offset, uint32(v))
}

// TryWriteI32LEAt writes a little-endian int32 at offset, returning false if out of range.
func (s WO) TryWriteI32LEAt(offset int, v int32) bool {
	return s.TryWriteU32LEAt(offset, uint32(v))
}

// WriteI32BEAt writes a big-endian int32 at offset, panicking if out of range.
func (s WO) WriteI32BEAt(offset int, v int32) {
	s.WriteU32BEAt(offset, uint32(v))
}

// TryWriteI32BEAt writes a big-endian int32 at offset, returning false if out of range.
func (s WO) TryWriteI32BEAt(offset int, v int32) bool {
	return s.TryWriteU32BEAt(offset, uint32(v))
}

// CopyFrom copies all of src into the window starting at offset 0,
// panicking if src doesn't fit.
func (s WO) CopyFrom(src []byte) int {
	return s.CopyFromAt(0, src)
}

// CopyFromAt copies src into the window starting at offset, panicking if
// out of range. It returns the number of bytes copied.
func (s WO) CopyFromAt(offset int, src []byte) int {
	mustInRange(len(s.b), offset, len(src))
	return copy(s.b[offset:offset+len(src)], src)
}

// Fill sets every byte in the window to value.
func (s WO) Fill(value byte) {
	s.FillAt(0, len(s.b), value)
}

// FillAt sets n bytes starting at offset to value, panicking if out of range.
func (s WO) FillAt(offset, n int, value byte) {
	mustInRange(len(s.b), offset, n)
	window := s.b[offset : offset+n]
	for i := range window {
		window[i] = value
	}
}

// RW is a read-write window combining RO and WO capability over the same
// underlying bytes, plus ModifyAt for in-place transforms.
type RW struct {
	RO
	WO
}

// NewRW wraps b as a read-write window. b is not copied.
func NewRW(b []byte) RW {
	return RW{RO: NewRO(b), WO: NewWO(b)}
}

// Len returns the window's length in bytes.
func (s RW) Len() int { return s.RO.Len() }

// ModifyAt invokes f with the length-long sub-window starting at offset,
// letting f mutate it in place. Panics if out of range.
func (s RW) ModifyAt(offset, length int, f func(window []byte)) {
	mustInRange(len(s.RO.b), offset, length)
	f(s.RO.b[offset : offset+length])
}
