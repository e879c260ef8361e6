// ════════════════════════════════════════════════════════════════════════════════════════════════
// ⚙️ MARKING STRATEGY CONTRACT
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Composite Marking Kernels
//
// Description:
//   A Strategy marks the composites contributed by one magnitude sub-range of sieving primes
//   into a Block. Each worker owns a private instance; continuation state is never shared.
//
// Contract:
//   - AddSievingPrime: exactly once per prime, strictly increasing, inside the declared range
//   - SkipTo:          drops incrementally tracked offsets; the next CalcPrimes recomputes
//   - CalcPrimes:      marks every multiple p·m ≥ p² inside the block for each owned p ≤ √end
//   - Free:            releases storage
//
// Kernels:
//   - Simple:  stateless per-residue strided marking (reference)
//   - Slow:    cursor walk over wheel multiplicands
//   - Pattern: repeating byte patterns OR-ed a word at a time (p < 96)
//   - Offsets: eight persisted per-residue offsets per prime
//   - Bucket:  one absolute next-hit cursor per prime for large p
//
// All kernels produce bit-identical blocks once the zero-block fix is applied.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package strategy

import (
	"math"
	"sort"

	"wheelsieve/block"
	"wheelsieve/utils"
	"wheelsieve/wheel"
)

// Params carries the run-wide values every kernel is initialized with.
type Params struct {
	MaxSievePrime uint32 // ⌈√end⌉ of the run
	BlockSize     int    // logical block bytes
}

// Strategy is one marking kernel bound to a magnitude range.
type Strategy interface {
	AddSievingPrime(p uint32)
	SkipTo(index uint64)
	CalcPrimes(b *block.Block)
	Free()
}

// Factory creates a kernel owning primes in [start, end).
type Factory func(params Params, start, end uint64) Strategy

// Unbounded is the open upper end of the last plan entry.
const Unbounded = math.MaxUint64

// Kernel kinds accepted by Lookup.
const (
	KindSimple  = "simple"
	KindSlow    = "slow"
	KindPattern = "pattern"
	KindOffsets = "offsets"
	KindBucket  = "bucket"
)

var factories = map[string]Factory{
	KindSimple:  NewSimple,
	KindSlow:    NewSlow,
	KindPattern: NewPattern,
	KindOffsets: NewOffsets,
	KindBucket:  NewBucket,
}

// Lookup resolves a kernel kind to its factory.
func Lookup(kind string) (Factory, bool) {
	f, ok := factories[kind]
	return f, ok
}

// Kinds lists the registered kernel kinds in sorted order.
func Kinds() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SHARED PRIME RANGE BOOKKEEPING
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// span is the accepted magnitude window [lo, hi) plus the owned primes.
type span struct {
	name   string
	lo, hi uint64
	primes []uint32
}

// newSpan clamps [start, end) to the run's largest sieving prime and sizes
// storage from the expected prime count.
func newSpan(name string, params Params, start, end uint64) span {
	hi := end
	if limit := uint64(params.MaxSievePrime) + 1; limit < hi {
		hi = limit
	}
	if hi < start {
		hi = start
	}
	return span{
		name:   name,
		lo:     start,
		hi:     hi,
		primes: make([]uint32, 0, utils.EstimatePrimes(start, hi)),
	}
}

// add appends p after enforcing range and ordering.
//
//go:nosplit
//go:inline
func (s *span) add(p uint32) {
	v := uint64(p)
	if v < s.lo || v >= s.hi {
		panic("strategy: " + s.name + ": sieving prime outside assigned range")
	}
	if n := len(s.primes); n > 0 && s.primes[n-1] >= p {
		panic("strategy: " + s.name + ": sieving primes must be strictly increasing")
	}
	if !wheel.IsWheelEligible(v) {
		panic("strategy: " + s.name + ": sieving prime not coprime to 30")
	}
	s.primes = append(s.primes, p)
}

func (s *span) free() {
	s.primes = nil
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// FIRST-HIT ARITHMETIC
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// firstHits returns, for each residue index i, the absolute bitmap byte of the
// smallest multiple p·m ≥ from whose multiplicand m has residue Residues[i].
// The bit hit is wheel.ProductBit(p, i); successive hits of a residue are p bytes apart.
func firstHits(p, from uint64) (hits [8]uint64) {
	m := utils.CeilDiv(from, p)
	q, r := m/30, m%30
	for i := uint(0); i < 8; i++ {
		qi := q
		if wheel.Residues[i] < r {
			qi++
		}
		hits[i] = p*qi + wheel.ProductByteOffset(p, i)
	}
	return
}

// markStrided marks residue hits starting at local offsets off, p bytes apart,
// and returns each residue's offset into the following block.
//
//go:nosplit
//go:inline
func markStrided(buf []byte, p uint64, off *[8]uint64, masks *[8]byte) {
	size := uint64(len(buf))
	for i := range off {
		o, m := off[i], masks[i]
		for ; o < size; o += p {
			buf[o] |= m
		}
		off[i] = o - size
	}
}

// productMasks precomputes the eight residue masks of p.
func productMasks(p uint64) (m [8]byte) {
	for i := uint(0); i < 8; i++ {
		m[i] = wheel.ProductMask(p, i)
	}
	return
}

// startFor is the first number a prime marks in block b.
//
//go:nosplit
//go:inline
func startFor(p uint64, b *block.Block) uint64 {
	return max(b.Start, p*p)
}

// noIndex marks "no block computed yet" in stateful kernels.
const noIndex = math.MaxUint64
