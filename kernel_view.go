package shadowreg

import "github.com/aq1018/shadowreg/regslice"

// KernelView is the hardware-driver-side capability over a Table: it
// bypasses the access policy entirely (the kernel side represents the
// trusted hardware driver) and never marks dirty bits on its own writes,
// since those writes are reflecting hardware state back into the shadow
// rather than producing new pending work.
type KernelView struct {
	t *Table
}

// KernelWithROSlice validates (addr, length) and invokes f with a read-only
// window, bypassing the access policy.
func KernelWithROSlice[R any](k *KernelView, addr, length uint16, f func(s regslice.RO) (R, error)) (R, error) {
	var zero R

	if err := k.t.validateRange(addr, length); err != nil {
		return zero, err
	}

	v, err := f(regslice.NewRO(k.t.bytes[addr : int(addr)+int(length)]))
	if err != nil {
		return zero, &UserError{Err: err}
	}
	return v, nil
}

// KernelWithRWSlice validates (addr, length) and invokes f with a read-write
// window, bypassing the access policy. Writes through this window never
// mark dirty bits and never notify the persist policy — it's how a kernel
// reflects hardware state it just read back into the shadow.
func KernelWithRWSlice[R any](k *KernelView, addr, length uint16, f func(s regslice.RW) (R, error)) (R, error) {
	var zero R

	if err := k.t.validateRange(addr, length); err != nil {
		return zero, err
	}

	v, err := f(regslice.NewRW(k.t.bytes[addr : int(addr)+int(length)]))
	if err != nil {
		return zero, &UserError{Err: err}
	}
	return v, nil
}

// IterDirty invokes visit once per dirty block, in ascending block-index
// order, with that block's address and a read-only window over its bytes.
// The first error visit returns short-circuits iteration and is returned
// wrapped in a *UserError.
// Dirty bits are not cleared by iteration — that's ClearAllDirty/ClearDirty's
// job, deliberately kept separate so a kernel can retry a failed sync
// without losing track of what's still pending.
func (k *KernelView) IterDirty(visit func(blockAddr uint16, block regslice.RO) error) error {
	bs := k.t.params.BlockSize

	var outerErr error
	k.t.dirty.EachSet(func(i int) bool {
		blockAddr := i * bs
		window := k.t.bytes[blockAddr : blockAddr+bs]
		if err := visit(uint16(blockAddr), regslice.NewRO(window)); err != nil {
			outerErr = &UserError{Err: err}
			return false
		}
		return true
	})

	return outerErr
}

// ClearAllDirty clears every dirty bit.
func (k *KernelView) ClearAllDirty() {
	k.t.dirty.ClearAll()
}

// ClearDirty clears the dirty bit of every block whose range intersects
// [addr, addr+length).
func (k *KernelView) ClearDirty(addr, length uint16) error {
	if err := k.t.validateRange(addr, length); err != nil {
		return err
	}

	first, last := k.t.blockRange(addr, length)
	k.t.dirty.ClearRange(first, last)
	return nil
}
