package strategy

import (
	"wheelsieve/block"
	"wheelsieve/utils"
	"wheelsieve/wheel"
)

// Slow walks the wheel multiplicands of each prime one slot at a time and
// marks every product inside the block. Used as an independent cross-check.
type Slow struct {
	span
}

// NewSlow builds the multiplicand-walking kernel.
func NewSlow(params Params, start, end uint64) Strategy {
	return &Slow{span: newSpan(KindSlow, params, start, end)}
}

func (s *Slow) AddSievingPrime(p uint32) { s.add(p) }

func (s *Slow) SkipTo(uint64) {}

func (s *Slow) CalcPrimes(b *block.Block) {
	buf := b.Bytes()
	for _, p32 := range s.primes {
		p := uint64(p32)
		if p > b.SqrtEnd {
			return
		}
		m := max(utils.CeilDiv(b.Start, p), p)
		mb, mbit := wheel.NumToByteBit(m)
		for {
			n := p * wheel.PossiblePrime(mb, mbit)
			if n >= b.End {
				break
			}
			buf[wheel.NumToByte(n)-b.StartByte] |= 1 << wheel.PossiblePrimeBit(n)
			mb, mbit = wheel.NextPossiblePrime(mb, mbit)
		}
	}
}

func (s *Slow) Free() { s.free() }
