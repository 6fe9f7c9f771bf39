package policy

import (
	"encoding/binary"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
)

// bucketSize is the granularity RegionPolicy's bloom pre-check buckets
// addresses at. It is independent of any table's own block size — purely an
// internal tuning knob for the fast-reject cache.
const bucketSize = 16

// maxAddrSpace is the full uint16 address range a Region can describe.
const maxAddrSpace = 1 << 16

// Region describes one partition of the address space and what it permits.
type Region struct {
	Addr   uint16
	Length uint16
	Read   bool
	Write  bool
}

func (r Region) contains(start, end int) bool {
	rs := int(r.Addr)
	re := int(r.Addr) + int(r.Length)
	return start >= rs && end <= re
}

// RegionPolicy is a concrete partition/allow-list AccessPolicy: the address
// space is carved into Regions, each permitting read and/or write. A request
// must lie wholly inside a single region to be authorized; a request that
// isn't fully covered by any region, or that straddles a boundary between
// regions, is denied.
//
// Because access checks run on the hot path of every register access,
// RegionPolicy keeps a pair of bloom filters seeded with the address buckets
// covered by read-denying and write-denying regions. A request whose bucket
// range misses both filters is provably clear of any denying region and is
// authorized without walking the region list; a hit falls through to the
// exact scan, so the filters can never turn a real denial into a false
// allow.
type RegionPolicy struct {
	regions     []Region
	deniedRead  *bloom.BloomFilter
	deniedWrite *bloom.BloomFilter
}

// NewRegionPolicy builds a RegionPolicy over the given regions. Any address
// not claimed by a region at all is, per MayRead/MayWrite's contract, denied
// — so gaps between (and before/after) the given regions are seeded into
// both bloom filters exactly like a denying region would be. Without this,
// the bloom pre-check would answer "not denied" for a bucket it never saw at
// all, letting an uncovered address slip past the exact scan as a false
// allow.
func NewRegionPolicy(regions []Region) *RegionPolicy {
	p := &RegionPolicy{
		regions:     regions,
		deniedRead:  bloom.NewWithEstimates(256, 0.01),
		deniedWrite: bloom.NewWithEstimates(256, 0.01),
	}

	sorted := make([]Region, len(regions))
	copy(sorted, regions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Addr < sorted[j].Addr })

	cursor := 0
	for _, r := range sorted {
		start := int(r.Addr)
		end := start + int(r.Length)

		if start > cursor {
			p.markDenied(cursor, start, true, true)
		}

		p.markDenied(start, end, !r.Read, !r.Write)

		// A request that runs past this region's last byte isn't wholly
		// inside it, so that byte's bucket always takes the exact scan.
		if end > start {
			p.markDenied(end-1, end, true, true)
		}

		if end > cursor {
			cursor = end
		}
	}

	if cursor < maxAddrSpace {
		p.markDenied(cursor, maxAddrSpace, true, true)
	}

	return p
}

func (p *RegionPolicy) markDenied(start, end int, denyRead, denyWrite bool) {
	if start >= end || (!denyRead && !denyWrite) {
		return
	}

	first := start / bucketSize
	last := (end - 1) / bucketSize

	for bucket := first; bucket <= last; bucket++ {
		key := bucketKey(bucket)
		if denyRead {
			p.deniedRead.Add(key)
		}
		if denyWrite {
			p.deniedWrite.Add(key)
		}
	}
}

func bucketKey(bucket int) []byte {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], uint32(bucket))
	return key[:]
}

func (p *RegionPolicy) maybeDenied(filter *bloom.BloomFilter, start, end int) bool {
	first := start / bucketSize
	last := (end - 1) / bucketSize

	for bucket := first; bucket <= last; bucket++ {
		if filter.Test(bucketKey(bucket)) {
			return true
		}
	}

	return false
}

// MayRead reports whether (addr, length) may be read.
func (p *RegionPolicy) MayRead(addr, length uint16) bool {
	return p.may(addr, length, p.deniedRead, false)
}

// MayWrite reports whether (addr, length) may be written.
func (p *RegionPolicy) MayWrite(addr, length uint16) bool {
	return p.may(addr, length, p.deniedWrite, true)
}

func (p *RegionPolicy) may(addr, length uint16, deniedFilter *bloom.BloomFilter, write bool) bool {
	start := int(addr)
	end := start + int(length)

	if !p.maybeDenied(deniedFilter, start, end) {
		return true
	}

	for _, r := range p.regions {
		if !r.contains(start, end) {
			continue
		}
		if write {
			return r.Write
		}
		return r.Read
	}

	return false
}
