package strategy

import (
	"wheelsieve/block"
	"wheelsieve/utils"
	"wheelsieve/wheel"
)

// residueGap[i] is the multiplicand distance from residue i to the next one.
var residueGap = [8]uint64{6, 4, 2, 4, 2, 4, 6, 2}

// carry[c][i] is the byte carry contributed by p mod 30 (bit class c) when
// the multiplicand moves from residue i to the next one.
var carry [8][8]uint64

func init() {
	for c, pr := range wheel.Residues {
		for i := range wheel.Residues {
			from := pr * wheel.Residues[i]
			to := pr * (wheel.Residues[i] + residueGap[i])
			carry[c][i] = to/30 - from/30
		}
	}
}

// bucketCursor is the next hit of one active prime.
type bucketCursor struct {
	next uint64 // absolute bitmap byte
	wi   uint8  // residue index of the multiplicand at next
	pc   uint8  // bit class of p mod 30
}

// Bucket suits primes much larger than the block: each prime hits a block a
// handful of times at most, so only one absolute cursor is kept per prime and
// stepped multiplicand by multiplicand with precomputed byte deltas.
//
// A backward jump or SkipTo resets every cursor. A forward gap recomputes only
// the cursors that fell behind the new block.
type Bucket struct {
	span
	cursors []bucketCursor
	active  int
	last    uint64
}

// NewBucket builds the large-prime kernel.
func NewBucket(params Params, start, end uint64) Strategy {
	s := &Bucket{span: newSpan(KindBucket, params, start, end), last: noIndex}
	s.cursors = make([]bucketCursor, 0, cap(s.primes))
	return s
}

func (s *Bucket) AddSievingPrime(p uint32) {
	s.add(p)
	s.cursors = append(s.cursors, bucketCursor{pc: uint8(wheel.PossiblePrimeBit(uint64(p)))})
}

func (s *Bucket) SkipTo(uint64) {
	s.active = 0
	s.last = noIndex
}

// seek positions c at the first hit of p at or past from.
//
//go:nosplit
//go:inline
func (c *bucketCursor) seek(p, from uint64) {
	m := utils.CeilDiv(from, p)
	wb, wbit := wheel.NumToByteBit(m)
	c.next = wheel.NumToByte(p * wheel.PossiblePrime(wb, wbit))
	c.wi = uint8(wbit)
}

// mark sets every hit below endByte and leaves c at the first hit past it.
//
//go:nosplit
//go:inline
func (c *bucketCursor) mark(buf []byte, p, startByte, endByte uint64) {
	q := p / 30
	for c.next < endByte {
		buf[c.next-startByte] |= 1 << productBit(c.pc, c.wi)
		c.next += q*residueGap[c.wi] + carry[c.pc][c.wi]
		c.wi = (c.wi + 1) & 7
	}
}

func productBit(pc, wi uint8) uint {
	return wheel.ProductBit(wheel.Residues[pc], uint(wi))
}

func (s *Bucket) CalcPrimes(b *block.Block) {
	buf := b.Bytes()
	endByte := b.StartByte + uint64(b.Size)

	if s.last == noIndex || b.Index <= s.last {
		s.active = 0
	} else if b.Index-s.last > 1 {
		for k := 0; k < s.active; k++ {
			if c := &s.cursors[k]; c.next < b.StartByte {
				c.seek(uint64(s.primes[k]), b.Start)
			}
		}
	}
	s.last = b.Index

	for k := 0; k < s.active; k++ {
		s.cursors[k].mark(buf, uint64(s.primes[k]), b.StartByte, endByte)
	}

	for ; s.active < len(s.primes); s.active++ {
		p := uint64(s.primes[s.active])
		if p > b.SqrtEnd {
			break
		}
		c := &s.cursors[s.active]
		c.seek(p, startFor(p, b))
		c.mark(buf, p, b.StartByte, endByte)
	}
}

func (s *Bucket) Free() {
	s.free()
	s.cursors = nil
	s.active = 0
}
