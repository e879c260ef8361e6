package strategy

import (
	"wheelsieve/block"
	"wheelsieve/constants"
)

// offsetState is the continuation of one active prime: for every residue, the
// local byte of its next hit in the block that follows the last one marked.
type offsetState struct {
	off   [8]uint64
	masks [8]byte
}

// Offsets persists eight per-residue offsets per prime across blocks.
//
// State per prime: PENDING until p ≤ √end of the block being marked, then
// ACTIVE with offsets carried from the previous block. A forward skip of up to
// constants.MaxSkipAdvance blocks advances the offsets in place; a longer,
// backward or SkipTo-announced jump marks all primes STALE and the next block
// recomputes them from scratch.
type Offsets struct {
	span
	state  []offsetState
	active int    // primes [0, active) carry valid offsets
	last   uint64 // index of the last marked block
}

// NewOffsets builds the offset-cache kernel.
func NewOffsets(params Params, start, end uint64) Strategy {
	s := &Offsets{span: newSpan(KindOffsets, params, start, end), last: noIndex}
	s.state = make([]offsetState, 0, cap(s.primes))
	return s
}

func (s *Offsets) AddSievingPrime(p uint32) {
	s.add(p)
	s.state = append(s.state, offsetState{masks: productMasks(uint64(p))})
}

// SkipTo drops every tracked offset.
func (s *Offsets) SkipTo(uint64) {
	s.active = 0
	s.last = noIndex
}

func (s *Offsets) CalcPrimes(b *block.Block) {
	buf := b.Bytes()
	size := uint64(b.Size)

	switch {
	case s.last == noIndex || b.Index <= s.last || b.Index-s.last > constants.MaxSkipAdvance:
		s.active = 0
	case b.Index-s.last > 1:
		for k := 0; k < s.active; k++ {
			p, st := uint64(s.primes[k]), &s.state[k]
			for i := range st.off {
				for n := b.Index - s.last - 1; n > 0; n-- {
					st.off[i] = advance(st.off[i], size, p)
				}
			}
		}
	}
	s.last = b.Index

	// steady state
	for k := 0; k < s.active; k++ {
		markStrided(buf, uint64(s.primes[k]), &s.state[k].off, &s.state[k].masks)
	}

	// first time: direct division for primes whose square is now in reach
	for ; s.active < len(s.primes); s.active++ {
		p := uint64(s.primes[s.active])
		if p > b.SqrtEnd {
			break
		}
		st := &s.state[s.active]
		hits := firstHits(p, startFor(p, b))
		for i := range hits {
			st.off[i] = hits[i] - b.StartByte
		}
		markStrided(buf, p, &st.off, &st.masks)
	}
}

// advance moves a residue offset across one block without marking it.
//
//go:nosplit
//go:inline
func advance(off, size, p uint64) uint64 {
	if off >= size {
		return off - size
	}
	if r := (size - off) % p; r != 0 {
		return p - r
	}
	return 0
}

func (s *Offsets) Free() {
	s.free()
	s.state = nil
	s.active = 0
}
