package shadowreg

import "github.com/aq1018/shadowreg/regslice"

// HostView is the application-side capability over a Table: reads and
// writes go straight to the backing bytes, writes mark dirty bits, and
// dirty writes notify the persist policy. A HostView's lifetime is bounded
// to the callback it was handed to.
type HostView struct {
	t *Table
}

// WithROSlice validates (addr, length), consults the access policy for
// read, and — if both pass — invokes f with a read-only window over those
// bytes, returning its result.
//
// This is a free function rather than a HostView method because each call
// may carry its own result type R, and Go methods cannot introduce type
// parameters beyond their receiver's.
func WithROSlice[R any](h *HostView, addr, length uint16, f func(s regslice.RO) (R, error)) (R, error) {
	var zero R

	if err := h.t.validateRange(addr, length); err != nil {
		return zero, err
	}
	if !h.t.access.MayRead(addr, length) {
		return zero, ErrDenied
	}

	v, err := f(regslice.NewRO(h.t.bytes[addr : int(addr)+int(length)]))
	if err != nil {
		return zero, &UserError{Err: err}
	}
	return v, nil
}

// WithWOSlice validates (addr, length), consults the access policy for
// write, and — if both pass — invokes f with a write-only window. On a
// Dirty result, every block covering (addr, length) is marked dirty and the
// persist policy is notified; on Clean, neither happens.
func WithWOSlice[R any](h *HostView, addr, length uint16, f func(s regslice.WO) regslice.WriteResult[R]) (R, error) {
	var zero R

	if err := h.t.validateRange(addr, length); err != nil {
		return zero, err
	}
	if !h.t.access.MayWrite(addr, length) {
		return zero, ErrDenied
	}

	result := f(regslice.NewWO(h.t.bytes[addr : int(addr)+int(length)]))

	if result.IsDirty() {
		h.markDirtyAndNotify(addr, length)
	}

	return result.Value(), nil
}

// WithRWSlice validates (addr, length), consults the access policy for both
// read and write, and — if all pass — invokes f with a read-write window.
// Dirty/Clean handling matches WithWOSlice.
func WithRWSlice[R any](h *HostView, addr, length uint16, f func(s regslice.RW) regslice.WriteResult[R]) (R, error) {
	var zero R

	if err := h.t.validateRange(addr, length); err != nil {
		return zero, err
	}
	if !h.t.access.MayRead(addr, length) || !h.t.access.MayWrite(addr, length) {
		return zero, ErrDenied
	}

	result := f(regslice.NewRW(h.t.bytes[addr : int(addr)+int(length)]))

	if result.IsDirty() {
		h.markDirtyAndNotify(addr, length)
	}

	return result.Value(), nil
}

func (h *HostView) markDirtyAndNotify(addr, length uint16) {
	first, last := h.t.blockRange(addr, length)
	h.t.dirty.SetRange(first, last)
	h.t.persist.OnHostWrite(addr, length)
}
