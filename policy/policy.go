// Package policy defines the access-policy and persist-policy hooks a
// shadow register table consults on every read, write, and region
// mutation, plus a permissive default and a concrete region-based example.
package policy

import "github.com/aq1018/shadowreg/regslice"

// AccessPolicy authorizes reads and writes by address range. It is consulted
// before a view realizes a slice, never after.
type AccessPolicy interface {
	MayRead(addr, length uint16) bool
	MayWrite(addr, length uint16) bool
}

// PersistPolicy is notified of dirty-producing Host writes and, separately,
// is asked whether now is a good time to flush dirty blocks to non-volatile
// storage. The core never drives persistence timing itself.
type PersistPolicy interface {
	// OnHostWrite is invoked once per dirty Host write with the exact
	// mutated range.
	OnHostWrite(addr, length uint16)

	// ShouldPersistNow reports whether a persist trigger should run.
	ShouldPersistNow() bool

	// Persist is handed a visitor-driving function — typically a kernel
	// view's IterDirty — and is responsible for actually flushing blocks it
	// chooses to visit.
	Persist(iterDirty func(visit func(blockAddr uint16, block regslice.RO) error) error) error
}

type allowAll struct{}

func (allowAll) MayRead(addr, length uint16) bool  { return true }
func (allowAll) MayWrite(addr, length uint16) bool { return true }

// AllowAll returns an AccessPolicy that permits every read and write.
func AllowAll() AccessPolicy { return allowAll{} }

type noPersist struct{}

func (noPersist) OnHostWrite(addr, length uint16) {}
func (noPersist) ShouldPersistNow() bool           { return false }
func (noPersist) Persist(iterDirty func(visit func(blockAddr uint16, block regslice.RO) error) error) error {
	return nil
}

// NoPersist returns a PersistPolicy that never triggers and ignores every
// notification.
func NoPersist() PersistPolicy { return noPersist{} }
