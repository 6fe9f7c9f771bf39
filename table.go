// Package shadowreg implements a statically-sized, RAM-resident mirror of a
// peripheral's register map: application code ("Host") writes freely while
// a hardware-side consumer ("Kernel") syncs modified regions to the device
// at convenient times. See SPEC_FULL.md for the full design.
package shadowreg

import (
	"fmt"

	"github.com/aq1018/shadowreg/blockmap"
	"github.com/aq1018/shadowreg/dirtybits"
	"github.com/aq1018/shadowreg/policy"
	"github.com/aq1018/shadowreg/regslice"
	"github.com/aq1018/shadowreg/staging"
)

// MaxTotalSize is the largest total size the table supports — the address
// space is 16 bits wide.
const MaxTotalSize = 65536

// Params fixes a Table's shape: TotalSize must equal BlockSize * block
// count, and TotalSize must not exceed MaxTotalSize.
type Params struct {
	TotalSize int
	BlockSize int
}

func (p Params) blockCount() int {
	return p.TotalSize / p.BlockSize
}

func (p Params) validate() error {
	if p.BlockSize < 1 {
		return fmt.Errorf("shadowreg: block size must be >= 1, got %d", p.BlockSize)
	}
	if p.TotalSize < 1 {
		return fmt.Errorf("shadowreg: total size must be >= 1, got %d", p.TotalSize)
	}
	if p.TotalSize > MaxTotalSize {
		return fmt.Errorf("shadowreg: total size %d exceeds max %d", p.TotalSize, MaxTotalSize)
	}
	if p.TotalSize%p.BlockSize != 0 {
		return fmt.Errorf("shadowreg: total size %d is not a multiple of block size %d", p.TotalSize, p.BlockSize)
	}
	return nil
}

// Table is the root shadow register storage: a byte array, a dirty bitmap,
// and the user-supplied access and persist policies. It is safe to share a
// single *Table between a Host call site and a Kernel call site; exclusion
// between them is provided by the injected CriticalSection.
type Table struct {
	bytes   []byte
	dirty   *dirtybits.Set
	access  policy.AccessPolicy
	persist policy.PersistPolicy
	params  Params
	cs      CriticalSection

	// scratch is a reusable materialization window for staged overlay reads.
	// It's sized once at construction (TotalSize bytes, bounded by
	// MaxTotalSize) so a staged read never allocates; reuse is safe because
	// the table's single-writer invariant means only one view is ever
	// active at a time.
	scratch []byte
}

// New constructs a Table. It fails eagerly if params don't satisfy
// TotalSize == BlockSize * block count or TotalSize > MaxTotalSize — the
// constructor-time check the spec allows in languages without compile-time
// arithmetic constraints.
func New(params Params, access policy.AccessPolicy, persist policy.PersistPolicy, cs CriticalSection) (*Table, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	if access == nil {
		access = policy.AllowAll()
	}
	if persist == nil {
		persist = policy.NoPersist()
	}
	if cs == nil {
		cs = NoopCriticalSection()
	}

	return &Table{
		bytes:   make([]byte, params.TotalSize),
		dirty:   dirtybits.New(params.blockCount()),
		access:  access,
		persist: persist,
		params:  params,
		cs:      cs,
		scratch: make([]byte, params.TotalSize),
	}, nil
}

// Params returns the table's fixed shape.
func (t *Table) Params() Params { return t.params }

// BlockCount returns the number of dirty-tracked blocks.
func (t *Table) BlockCount() int { return t.params.blockCount() }

// WithHostView runs f with a Host view over the table, inside the injected
// critical section.
func (t *Table) WithHostView(f func(h *HostView) error) error {
	var err error
	t.cs.Run(func() {
		err = f(&HostView{t: t})
	})
	return err
}

// WithHostViewUnchecked runs f with a Host view, skipping the critical
// section. Sound only if the caller already guarantees exclusive access.
func (t *Table) WithHostViewUnchecked(f func(h *HostView) error) error {
	return f(&HostView{t: t})
}

// WithKernelView runs f with a Kernel view over the table, inside the
// injected critical section.
func (t *Table) WithKernelView(f func(k *KernelView) error) error {
	var err error
	t.cs.Run(func() {
		err = f(&KernelView{t: t})
	})
	return err
}

// WithKernelViewUnchecked runs f with a Kernel view, skipping the critical
// section. Sound only in a non-preemptible context (an ISR, or pre-interrupt
// init).
func (t *Table) WithKernelViewUnchecked(f func(k *KernelView) error) error {
	return f(&KernelView{t: t})
}

// WithStagedHostView runs f with a Host view whose writes route through buf
// instead of directly into the table, inside the injected critical section.
func (t *Table) WithStagedHostView(buf *staging.Buffer, f func(s *StagedHostView) error) error {
	var err error
	t.cs.Run(func() {
		err = f(&StagedHostView{t: t, buf: buf})
	})
	return err
}

// WithStagedHostViewUnchecked is WithStagedHostView without the critical
// section.
func (t *Table) WithStagedHostViewUnchecked(buf *staging.Buffer, f func(s *StagedHostView) error) error {
	return f(&StagedHostView{t: t, buf: buf})
}

// WithDefaults invokes f with a write-only window over (addr, length),
// bypassing the access policy and touching neither dirty bits nor the
// persist policy. Intended for a one-time factory/EEPROM load before the
// Host side is activated. Runs inside the injected critical section.
func (t *Table) WithDefaults(addr, length uint16, f func(w regslice.WO)) error {
	var err error
	t.cs.Run(func() {
		err = t.withDefaultsLocked(addr, length, f)
	})
	return err
}

// WithDefaultsUnchecked is WithDefaults without the critical section, for
// pre-interrupt init.
func (t *Table) WithDefaultsUnchecked(addr, length uint16, f func(w regslice.WO)) error {
	return t.withDefaultsLocked(addr, length, f)
}

func (t *Table) withDefaultsLocked(addr, length uint16, f func(w regslice.WO)) error {
	if err := t.validateRange(addr, length); err != nil {
		return err
	}
	f(regslice.NewWO(t.bytes[addr : int(addr)+int(length)]))
	return nil
}

func (t *Table) validateRange(addr, length uint16) error {
	if err := blockmap.Validate(addr, length, t.params.TotalSize); err != nil {
		return ErrOutOfBounds
	}
	return nil
}

func (t *Table) blockRange(addr, length uint16) (first, last int) {
	r, err := blockmap.Blocks(addr, length, t.params.BlockSize, t.params.TotalSize)
	if err != nil {
		// validateRange is always called first by every caller of
		// blockRange; reaching this would mean a range that previously
		// validated no longer does, which can't happen without the table
		// itself changing size.
		panic(err)
	}
	return r.First, r.Last
}
