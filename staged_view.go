package shadowreg

import (
	"github.com/aq1018/shadowreg/regslice"
	"github.com/aq1018/shadowreg/staging"
)

// StagedHostView is a Host view whose writes route through an attached
// staging.Buffer instead of directly into the table. Reads observe the
// overlay: pending staged bytes superimposed on the base.
type StagedHostView struct {
	t   *Table
	buf *staging.Buffer
}

// StagedWithROSlice validates (addr, length) and consults the read access
// policy exactly as HostView's WithROSlice does. If no staged entry
// intersects the range, f observes a direct window over the table's own
// bytes (zero-copy). Otherwise the overlay bytes are materialized byte-wise
// into the table's reusable scratch window before f runs.
func StagedWithROSlice[R any](s *StagedHostView, addr, length uint16, f func(window regslice.RO) (R, error)) (R, error) {
	var zero R

	if err := s.t.validateRange(addr, length); err != nil {
		return zero, err
	}
	if !s.t.access.MayRead(addr, length) {
		return zero, ErrDenied
	}

	var window regslice.RO
	if !s.buf.Intersects(addr, length) {
		window = regslice.NewRO(s.t.bytes[addr : int(addr)+int(length)])
	} else {
		scratch := s.t.scratch[:length]
		for i := range scratch {
			a := addr + uint16(i)
			scratch[i] = s.buf.OverlayByte(a, s.t.bytes[a])
		}
		window = regslice.NewRO(scratch)
	}

	v, err := f(window)
	if err != nil {
		return zero, &UserError{Err: err}
	}
	return v, nil
}

// StagedAllocStaged validates (addr, length) against the table, consults
// the write access policy (advisory — CommitStaged re-checks
// authoritatively), and delegates to the staging buffer.
func StagedAllocStaged[R any](s *StagedHostView, addr, length uint16, f func(w regslice.WO) regslice.WriteResult[R]) (regslice.WriteResult[R], error) {
	var zero regslice.WriteResult[R]

	if err := s.t.validateRange(addr, length); err != nil {
		return zero, err
	}
	if !s.t.access.MayWrite(addr, length) {
		return zero, ErrDenied
	}

	result, err := staging.AllocStaged(s.buf, addr, length, f)
	if err != nil {
		if err == staging.ErrStageFull {
			return zero, ErrStageFull
		}
		return zero, err
	}

	return result, nil
}

// CommitStaged applies every staged entry to the table, in insertion order,
// marking dirty every block each entry covers and notifying the persist
// policy once per entry. Before applying anything it re-checks the write
// access policy for every entry — the authoritative gate, since policies
// may be dynamic and the alloc-time check was only advisory. If any entry
// fails, nothing is applied and the buffer is left intact so the caller can
// inspect or roll back.
func (s *StagedHostView) CommitStaged() error {
	var denials []deniedEntry

	if err := s.buf.IterStaged(func(addr, length uint16, _ regslice.RO) error {
		if !s.t.access.MayWrite(addr, length) {
			denials = append(denials, deniedEntry{addr: addr, length: length})
		}
		return nil
	}); err != nil {
		return err
	}

	if err := aggregateDenials(denials); err != nil {
		return err
	}

	return s.buf.IterStaged(func(addr, length uint16, data regslice.RO) error {
		dst := s.t.bytes[addr : int(addr)+int(length)]
		data.CopyTo(dst)

		first, last := s.t.blockRange(addr, length)
		s.t.dirty.SetRange(first, last)
		s.t.persist.OnHostWrite(addr, length)

		return nil
	})
}

// RollbackStaged discards every staged entry without touching the table.
func (s *StagedHostView) RollbackStaged() {
	s.buf.Clear()
}
