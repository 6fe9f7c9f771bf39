// Package filepersist is a concrete persist-policy implementation that
// flushes dirty shadow register blocks to a rotating sequence of on-disk
// segment files, standing in for a real flash/EEPROM backend in tests and
// desktop simulation. It's an example collaborator plugged in through
// policy.PersistPolicy, the same way policy.RegionPolicy is an example
// AccessPolicy — the core shadow register table never imports this package.
package filepersist

import (
	"os"
	"sync/atomic"

	"github.com/aq1018/shadowreg/regslice"
)

const defaultPersistThreshold = 16

// Policy implements policy.PersistPolicy by appending a CRC-framed record
// per dirty block to a rotating segment file on each Persist call.
type Policy struct {
	sw        *segmentWriter
	threshold int32
	pending   atomic.Int32
}

// Option configures a Policy at construction time.
type Option func(*Policy)

// WithMaxSegmentSize overrides the default 16MiB-per-file rotation size.
func WithMaxSegmentSize(n int64) Option {
	return func(p *Policy) {
		p.sw.maxSegmentSize = n
	}
}

// WithPersistThreshold sets how many dirty Host writes accumulate before
// ShouldPersistNow starts returning true. Default is 16.
func WithPersistThreshold(n int) Option {
	return func(p *Policy) {
		p.threshold = int32(n)
	}
}

// New opens (or creates) a segment directory at dir and returns a Policy
// ready to be passed as a table's persist policy.
func New(dir string, opts ...Option) (*Policy, error) {
	sw, err := newSegmentWriter(dir, 0)
	if err != nil {
		return nil, err
	}

	p := &Policy{sw: sw, threshold: defaultPersistThreshold}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// OnHostWrite counts one more pending dirty write toward the persist
// threshold.
func (p *Policy) OnHostWrite(addr, length uint16) {
	p.pending.Add(1)
}

// ShouldPersistNow reports whether enough dirty writes have accumulated
// since the last Persist call to warrant flushing now.
func (p *Policy) ShouldPersistNow() bool {
	return p.pending.Load() >= p.threshold
}

// Persist drives iterDirty (typically a KernelView's IterDirty) and appends
// one CRC-framed record per visited block to the active segment file.
func (p *Policy) Persist(iterDirty func(visit func(blockAddr uint16, block regslice.RO) error) error) error {
	err := iterDirty(func(blockAddr uint16, block regslice.RO) error {
		data := make([]byte, block.Len())
		block.CopyTo(data)

		rec := record{addr: blockAddr, data: data}

		return p.sw.append(4+4+len(data), func(f *os.File) error {
			return rec.encode(f)
		})
	})
	if err != nil {
		return err
	}

	p.pending.Store(0)
	return nil
}

// Close closes the active segment file.
func (p *Policy) Close() error {
	return p.sw.close()
}
