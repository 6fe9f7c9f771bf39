package shadowreg

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ErrOutOfBounds is returned when an address range is empty, overflows, or
// exceeds the table's total size.
var ErrOutOfBounds = errors.New("shadowreg: address range out of bounds")

// ErrDenied is returned when the access policy refuses a read or write.
var ErrDenied = errors.New("shadowreg: access policy denied operation")

// ErrStageFull is returned when a staging buffer's data or entry capacity
// is exhausted.
var ErrStageFull = errors.New("shadowreg: staging buffer capacity exhausted")

// UserError wraps an error returned from a caller-supplied view callback,
// propagating it verbatim while still letting errors.Is/As see through it.
type UserError struct {
	Err error
}

func (e *UserError) Error() string {
	return fmt.Sprintf("shadowreg: user callback error: %v", e.Err)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// deniedEntry names one staged entry that failed its commit-time access
// check, for multi-entry denial reporting out of CommitStaged.
type deniedEntry struct {
	addr   uint16
	length uint16
}

func (d deniedEntry) Error() string {
	return fmt.Sprintf("%v: addr=0x%04x length=%d", ErrDenied, d.addr, d.length)
}

func (d deniedEntry) Unwrap() error {
	return ErrDenied
}

// aggregateDenials collects one deniedEntry per failing (addr, length) and
// returns nil if none failed, a bare error if exactly one failed (so
// errors.Is(err, ErrDenied) holds without multierror indirection), or a
// *multierror.Error wrapping all of them otherwise.
func aggregateDenials(denials []deniedEntry) error {
	if len(denials) == 0 {
		return nil
	}

	if len(denials) == 1 {
		return denials[0]
	}

	var result *multierror.Error
	for _, d := range denials {
		result = multierror.Append(result, d)
	}
	return result
}
