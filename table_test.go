package shadowreg

import (
	"errors"
	"testing"

	"github.com/aq1018/shadowreg/policy"
	"github.com/aq1018/shadowreg/regslice"
	"github.com/aq1018/shadowreg/staging"
)

func newTestTable(t *testing.T, totalSize, blockSize int) *Table {
	t.Helper()
	tbl, err := New(Params{TotalSize: totalSize, BlockSize: blockSize}, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tbl
}

func TestNewRejectsMismatchedShape(t *testing.T) {
	if _, err := New(Params{TotalSize: 65, BlockSize: 16}, nil, nil, nil); err == nil {
		t.Fatal("expected error for TotalSize not a multiple of BlockSize")
	}
}

func TestNewRejectsOversizedTable(t *testing.T) {
	if _, err := New(Params{TotalSize: MaxTotalSize + 16, BlockSize: 16}, nil, nil, nil); err == nil {
		t.Fatal("expected error for TotalSize exceeding MaxTotalSize")
	}
}

// Scenario 1: dirty tracking at block granularity.
func TestScenarioSingleByteDirtiesOneBlock(t *testing.T) {
	tbl := newTestTable(t, 64, 16)

	err := tbl.WithHostView(func(h *HostView) error {
		_, err := WithWOSlice(h, 17, 1, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.WriteU8At(0, 0x42)
			return regslice.Dirty(struct{}{})
		})
		return err
	})
	if err != nil {
		t.Fatalf("WithHostView: %v", err)
	}

	want := map[int]bool{0: false, 1: true, 2: false, 3: false}
	checkDirty(t, tbl, want)
}

// Scenario 2: partial-block spanning write.
func TestScenarioSpanningWriteDirtiesBothBlocks(t *testing.T) {
	tbl := newTestTable(t, 64, 16)

	err := tbl.WithHostView(func(h *HostView) error {
		_, err := WithWOSlice(h, 14, 4, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.CopyFrom([]byte{1, 2, 3, 4})
			return regslice.Dirty(struct{}{})
		})
		return err
	})
	if err != nil {
		t.Fatalf("WithHostView: %v", err)
	}

	checkDirty(t, tbl, map[int]bool{0: true, 1: true, 2: false, 3: false})
}

// Scenario 3: a Clean write updates bytes without setting any dirty bit.
func TestScenarioCleanWriteDoesNotDirty(t *testing.T) {
	tbl := newTestTable(t, 64, 16)

	err := tbl.WithHostView(func(h *HostView) error {
		_, err := WithWOSlice(h, 0, 8, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.CopyFrom([]byte{1, 2, 3, 4, 5, 6, 7, 8})
			return regslice.Clean(struct{}{})
		})
		return err
	})
	if err != nil {
		t.Fatalf("WithHostView: %v", err)
	}

	checkDirty(t, tbl, map[int]bool{0: false, 1: false, 2: false, 3: false})

	err = tbl.WithHostView(func(h *HostView) error {
		got, err := WithROSlice(h, 0, 8, func(r regslice.RO) ([]byte, error) {
			dst := make([]byte, 8)
			r.CopyTo(dst)
			return dst, nil
		})
		if err != nil {
			return err
		}
		want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("byte %d = %x, want %x", i, got[i], want[i])
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithHostView: %v", err)
	}
}

// Scenario 4: after Host writes dirty blocks 0 and 1, IterDirty visits them
// in ascending order, Kernel writeback via KernelWithRWSlice neither sets
// nor clears dirty bits (testable property 2), and ClearAllDirty clears them.
func TestScenarioKernelWritebackIsSilent(t *testing.T) {
	tbl := newTestTable(t, 64, 16)

	err := tbl.WithHostView(func(h *HostView) error {
		_, err := WithWOSlice(h, 0, 1, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.WriteU8At(0, 0xFF)
			return regslice.Dirty(struct{}{})
		})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = tbl.WithHostView(func(h *HostView) error {
		_, err := WithWOSlice(h, 16, 1, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.WriteU8At(0, 0xFF)
			return regslice.Dirty(struct{}{})
		})
		return err
	})

	checkDirty(t, tbl, map[int]bool{0: true, 1: true, 2: false, 3: false})

	var visited []uint16
	err = tbl.WithKernelView(func(k *KernelView) error {
		return k.IterDirty(func(blockAddr uint16, block regslice.RO) error {
			visited = append(visited, blockAddr)
			return nil
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(visited) != 2 || visited[0] != 0 || visited[1] != 16 {
		t.Fatalf("IterDirty visited = %v, want [0 16]", visited)
	}

	err = tbl.WithKernelView(func(k *KernelView) error {
		_, err := KernelWithRWSlice(k, 0, 64, func(rw regslice.RW) (struct{}, error) {
			rw.Fill(0)
			return struct{}{}, nil
		})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	checkDirty(t, tbl, map[int]bool{0: true, 1: true, 2: false, 3: false})

	err = tbl.WithKernelView(func(k *KernelView) error {
		k.ClearAllDirty()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	checkDirty(t, tbl, map[int]bool{0: false, 1: false, 2: false, 3: false})
}

func TestHostReadImmediatelyReflectsHostWrite(t *testing.T) {
	tbl := newTestTable(t, 64, 16)

	err := tbl.WithHostView(func(h *HostView) error {
		_, err := WithWOSlice(h, 5, 1, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.WriteU8At(0, 0x7A)
			return regslice.Dirty(struct{}{})
		})
		if err != nil {
			return err
		}

		got, err := WithROSlice(h, 5, 1, func(r regslice.RO) (byte, error) {
			return r.ReadU8At(0), nil
		})
		if err != nil {
			return err
		}
		if got != 0x7A {
			t.Fatalf("read back %x, want 0x7A", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestClearDirtyPartialRange(t *testing.T) {
	tbl := newTestTable(t, 64, 16)

	_ = tbl.WithHostView(func(h *HostView) error {
		_, err := WithWOSlice(h, 0, 64, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.Fill(1)
			return regslice.Dirty(struct{}{})
		})
		return err
	})

	checkDirty(t, tbl, map[int]bool{0: true, 1: true, 2: true, 3: true})

	err := tbl.WithKernelView(func(k *KernelView) error {
		return k.ClearDirty(16, 16)
	})
	if err != nil {
		t.Fatal(err)
	}

	checkDirty(t, tbl, map[int]bool{0: true, 1: false, 2: true, 3: true})
}

// Scenario 5: staged overlay read and commit order.
func TestScenarioStagedCommitOrderAndOverlay(t *testing.T) {
	tbl := newTestTable(t, 64, 16)
	buf := staging.New(16, 4)

	err := tbl.WithStagedHostView(buf, func(s *StagedHostView) error {
		if _, err := StagedAllocStaged(s, 0x10, 2, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.CopyFrom([]byte{0xAA, 0xAA})
			return regslice.Dirty(struct{}{})
		}); err != nil {
			return err
		}
		if _, err := StagedAllocStaged(s, 0x11, 2, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.CopyFrom([]byte{0xBB, 0xBB})
			return regslice.Dirty(struct{}{})
		}); err != nil {
			return err
		}

		got, err := StagedWithROSlice(s, 0x10, 3, func(r regslice.RO) ([]byte, error) {
			dst := make([]byte, 3)
			r.CopyTo(dst)
			return dst, nil
		})
		if err != nil {
			return err
		}
		want := []byte{0xAA, 0xBB, 0xBB}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("overlay read byte %d = %x, want %x", i, got[i], want[i])
			}
		}

		return s.CommitStaged()
	})
	if err != nil {
		t.Fatalf("WithStagedHostView: %v", err)
	}

	err = tbl.WithHostView(func(h *HostView) error {
		got, err := WithROSlice(h, 0x10, 3, func(r regslice.RO) ([]byte, error) {
			dst := make([]byte, 3)
			r.CopyTo(dst)
			return dst, nil
		})
		if err != nil {
			return err
		}
		want := []byte{0xAA, 0xBB, 0xBB}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("committed byte %d = %x, want %x", i, got[i], want[i])
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// blocks covering 0x10..0x13 (block size 16): block 1 only.
	checkDirty(t, tbl, map[int]bool{0: false, 1: true, 2: false, 3: false})
}

func TestScenarioRollbackPreservesBase(t *testing.T) {
	tbl := newTestTable(t, 64, 16)
	buf := staging.New(16, 4)

	_ = tbl.WithHostView(func(h *HostView) error {
		_, err := WithWOSlice(h, 0x10, 2, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.CopyFrom([]byte{0x11, 0x22})
			return regslice.Clean(struct{}{})
		})
		return err
	})

	err := tbl.WithStagedHostView(buf, func(s *StagedHostView) error {
		_, err := StagedAllocStaged(s, 0x10, 2, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.CopyFrom([]byte{0xAA, 0xAA})
			return regslice.Dirty(struct{}{})
		})
		if err != nil {
			return err
		}
		s.RollbackStaged()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if buf.EntryCount() != 0 {
		t.Fatalf("expected empty buffer after rollback, got %d entries", buf.EntryCount())
	}

	err = tbl.WithHostView(func(h *HostView) error {
		got, err := WithROSlice(h, 0x10, 2, func(r regslice.RO) ([]byte, error) {
			dst := make([]byte, 2)
			r.CopyTo(dst)
			return dst, nil
		})
		if err != nil {
			return err
		}
		if got[0] != 0x11 || got[1] != 0x22 {
			t.Fatalf("base bytes changed after rollback: %x", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	checkDirty(t, tbl, map[int]bool{0: false, 1: false, 2: false, 3: false})
}

func TestCommitStagedAllOrNothingOnDenial(t *testing.T) {
	access := &toggleAccessPolicy{allow: true}
	tbl, err := New(Params{TotalSize: 64, BlockSize: 16}, access, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	buf := staging.New(16, 4)

	err = tbl.WithStagedHostView(buf, func(s *StagedHostView) error {
		_, err := StagedAllocStaged(s, 0, 2, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.CopyFrom([]byte{1, 2})
			return regslice.Dirty(struct{}{})
		})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	access.allow = false

	err = tbl.WithStagedHostView(buf, func(s *StagedHostView) error {
		return s.CommitStaged()
	})
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}

	if buf.EntryCount() != 1 {
		t.Fatal("denied commit must leave the staging buffer intact")
	}

	checkDirty(t, tbl, map[int]bool{0: false, 1: false, 2: false, 3: false})
}

func TestOutOfBoundsBeforeAccessCheck(t *testing.T) {
	tbl, err := New(Params{TotalSize: 64, BlockSize: 16}, &toggleAccessPolicy{allow: false}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	err = tbl.WithHostView(func(h *HostView) error {
		_, err := WithROSlice(h, 60, 8, func(r regslice.RO) (struct{}, error) {
			t.Fatal("closure must not run for an out-of-bounds range")
			return struct{}{}, nil
		})
		return err
	})
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestAccessPolicyDeniesWrite(t *testing.T) {
	tbl, err := New(Params{TotalSize: 64, BlockSize: 16}, &toggleAccessPolicy{allow: false}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	err = tbl.WithHostView(func(h *HostView) error {
		_, err := WithWOSlice(h, 0, 1, func(w regslice.WO) regslice.WriteResult[struct{}] {
			t.Fatal("closure must not run when access is denied")
			return regslice.Clean(struct{}{})
		})
		return err
	})
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
}

func TestWithDefaultsBypassesPolicyAndDirty(t *testing.T) {
	tbl, err := New(Params{TotalSize: 64, BlockSize: 16}, &toggleAccessPolicy{allow: false}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	err = tbl.WithDefaults(0, 4, func(w regslice.WO) {
		w.CopyFrom([]byte{9, 9, 9, 9})
	})
	if err != nil {
		t.Fatalf("WithDefaults: %v", err)
	}

	checkDirty(t, tbl, map[int]bool{0: false, 1: false, 2: false, 3: false})
}

func TestWithHostViewUnchecked(t *testing.T) {
	tbl := newTestTable(t, 32, 16)

	err := tbl.WithHostViewUnchecked(func(h *HostView) error {
		_, err := WithWOSlice(h, 0, 1, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.WriteU8At(0, 1)
			return regslice.Dirty(struct{}{})
		})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	checkDirty(t, tbl, map[int]bool{0: true, 1: false})
}

type toggleAccessPolicy struct{ allow bool }

func (p *toggleAccessPolicy) MayRead(addr, length uint16) bool  { return p.allow }
func (p *toggleAccessPolicy) MayWrite(addr, length uint16) bool { return p.allow }

var _ policy.AccessPolicy = (*toggleAccessPolicy)(nil)

func checkDirty(t *testing.T, tbl *Table, want map[int]bool) {
	t.Helper()
	err := tbl.WithKernelView(func(k *KernelView) error {
		for i, w := range want {
			got := tbl.dirty.Test(i)
			if got != w {
				t.Fatalf("block %d dirty=%v, want %v", i, got, w)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
