package strategy

import (
	"wheelsieve/block"
	"wheelsieve/wheel"
)

// Simple is the reference kernel. It keeps no continuation state: every block
// recomputes each residue's first hit by direct division, then strides by p
// bytes. Costs O(size/p) bit-sets per prime per block.
type Simple struct {
	span
}

// NewSimple builds the reference kernel.
func NewSimple(params Params, start, end uint64) Strategy {
	return &Simple{span: newSpan(KindSimple, params, start, end)}
}

func (s *Simple) AddSievingPrime(p uint32) { s.add(p) }

// SkipTo is a no-op: nothing is carried between blocks.
func (s *Simple) SkipTo(uint64) {}

func (s *Simple) CalcPrimes(b *block.Block) {
	buf := b.Bytes()
	for _, p32 := range s.primes {
		p := uint64(p32)
		if p > b.SqrtEnd {
			return
		}
		hits := firstHits(p, startFor(p, b))
		for i := uint(0); i < 8; i++ {
			off := hits[i] - b.StartByte
			mask := wheel.ProductMask(p, i)
			for ; off < uint64(len(buf)); off += p {
				buf[off] |= mask
			}
		}
	}
}

func (s *Simple) Free() { s.free() }
