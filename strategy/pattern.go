package strategy

import (
	"wheelsieve/block"
	"wheelsieve/constants"
	"wheelsieve/utils"
	"wheelsieve/wheel"
)

// Pattern handles primes below 96. A prime p divides 30·j+r with the same
// residue layout every p bytes, so each prime gets a precomputed pattern of
// p bytes (plus one word of wraparound) that is OR-ed into the block eight
// bytes at a time. The last word overruns the logical end into the tail
// padding by at most seven bytes.
//
// The pattern also marks p itself; the zero-block fix clears it.
type Pattern struct {
	span
	patterns [][]byte
	step8    []uint64 // 8 mod p
}

// NewPattern builds the repeating-pattern kernel.
// Panics when asked to own magnitudes at or above constants.PatternLimit.
func NewPattern(params Params, start, end uint64) Strategy {
	s := &Pattern{span: newSpan(KindPattern, params, start, end)}
	if s.hi > constants.PatternLimit {
		panic("strategy: pattern: range must end at or below 96")
	}
	return s
}

func (s *Pattern) AddSievingPrime(p uint32) {
	s.add(p)
	s.patterns = append(s.patterns, buildPattern(uint64(p)))
	s.step8 = append(s.step8, 8%uint64(p))
}

// buildPattern sets bit i of byte j when p divides 30·j + Residues[i].
func buildPattern(p uint64) []byte {
	pat := make([]byte, p+8)
	for j := range pat {
		base := wheel.ByteToNum(uint64(j) % p)
		var v byte
		for i, r := range wheel.Residues {
			if (base+r)%p == 0 {
				v |= 1 << i
			}
		}
		pat[j] = v
	}
	return pat
}

func (s *Pattern) SkipTo(uint64) {}

func (s *Pattern) CalcPrimes(b *block.Block) {
	buf := b.Padded()
	size := b.Size
	for k, p32 := range s.primes {
		p := uint64(p32)
		if p > b.SqrtEnd {
			return
		}
		pat, step := s.patterns[k], s.step8[k]
		o := b.StartByte % p
		for w := 0; w < size; w += 8 {
			utils.Or64(buf[w:], utils.Load64(pat[o:]))
			if o += step; o >= p {
				o -= p
			}
		}
	}
}

func (s *Pattern) Free() {
	s.free()
	s.patterns = nil
	s.step8 = nil
}
