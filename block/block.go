// ════════════════════════════════════════════════════════════════════════════════════════════════
// 🧱 SIEVE BLOCK BUFFER
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Segment Window & Bitmap Storage
//
// Description:
//   A Block is one fixed-size window of the number line stored as a wheel-compressed bitmap.
//   Byte j of block k covers the integers [30·(k·size+j), 30·(k·size+j+1)); bit i of a byte is
//   the integer with residue wheel.Residues[i]. A set bit means "composite".
//
// Buffer Layout:
//   [ head padding ≥ size ][ logical size bytes ][ tail padding ]
//   - The logical start is 64-byte aligned.
//   - Kernels that write whole words may overrun into the tail by < MaxOverrun bytes.
//   - One buffer is allocated per worker and reused for the whole run.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package block

import (
	"iter"
	"math/bits"
	"unsafe"

	"wheelsieve/constants"
	"wheelsieve/utils"
	"wheelsieve/wheel"
)

// The tail must absorb the widest kernel overrun.
var _ [constants.TailPadding - constants.MaxOverrun]byte

// Block is a reusable sieve window. Its metadata is rewritten by SetIndex and
// Advance; its bitmap is mutated in place by the marking kernels.
type Block struct {
	Index     uint64 // block sequence number
	StartByte uint64 // absolute bitmap byte of the first logical byte
	Start     uint64 // first represented integer
	End       uint64 // one past the last represented integer
	SqrtEnd   uint64 // ⌊√(End-1)⌋: primes up to here may hit this block
	Size      int    // logical bytes

	buf  []byte
	head int
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONSTRUCTION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// New allocates a zeroed block positioned at index 0.
// Panics when size is outside [MinBlockSize, MaxBlockSize].
func New(size int) *Block {
	if size < constants.MinBlockSize || size > constants.MaxBlockSize {
		panic("block: size out of range")
	}
	head := int(utils.CeilTo(uint64(size), constants.BufferAlign))
	buf := make([]byte, head+size+constants.TailPadding+constants.BufferAlign)

	// shift the logical start onto a 64-byte boundary
	addr := uintptr(unsafe.Pointer(&buf[head]))
	head += int((constants.BufferAlign - addr%constants.BufferAlign) % constants.BufferAlign)

	b := &Block{Size: size, buf: buf, head: head}
	b.SetIndex(0)
	return b
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// VIEWS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Bytes returns the logical bitmap.
//
//go:nosplit
//go:inline
func (b *Block) Bytes() []byte {
	return b.buf[b.head : b.head+b.Size : b.head+b.Size]
}

// Padded returns the logical bitmap followed by the writable tail padding.
//
//go:nosplit
//go:inline
func (b *Block) Padded() []byte {
	return b.buf[b.head : b.head+b.Size+constants.TailPadding]
}

// HeadPadding reports the writable slack before the logical start.
func (b *Block) HeadPadding() int { return b.head }

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// POSITIONING
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// SetIndex repositions the block at index i. The bitmap is left untouched.
func (b *Block) SetIndex(i uint64) {
	b.Index = i
	b.StartByte = i * uint64(b.Size)
	b.Start = wheel.ByteToNum(b.StartByte)
	b.End = b.Start + wheel.ByteToNum(uint64(b.Size))
	b.SqrtEnd = utils.Isqrt(b.End - 1)
}

// Advance moves to the next index. The caller re-zeroes with Reset before marking.
func (b *Block) Advance() {
	b.SetIndex(b.Index + 1)
}

// Reset zeroes the logical bitmap and the tail padding.
func (b *Block) Reset() {
	clear(b.Padded())
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// BOUNDARY CORRECTIONS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// ApplyZeroBlockFix marks 1 as composite and clears every prime below 90.
// Kernels may mark a small prime p when they start at p·1; 49 and 77 stay set.
// No-op for any block other than index 0.
func (b *Block) ApplyZeroBlockFix() {
	if b.Index != 0 {
		return
	}
	buf := b.Bytes()
	buf[0] &^= 0xFE // 7 11 13 17 19 23 29
	buf[0] |= 0x01  // 1
	buf[1] &^= 0xDF // 31 37 41 43 47 53 59, keep 49
	buf[2] &^= 0xEF // 61 67 71 73 79 83 89, keep 77
}

// ApplyRangeMask marks every bit outside [start, end) as composite.
func (b *Block) ApplyRangeMask(start, end uint64) {
	buf := b.Bytes()
	size := uint64(b.Size)

	if end <= b.Start || start >= b.End || start >= end {
		fill(buf, 0xFF)
		return
	}

	if start > b.Start {
		sb := wheel.NumToByte(start) - b.StartByte
		fill(buf[:sb], 0xFF)
		buf[sb] |= byte(1)<<wheel.NumToBit(start) - 1
	}

	if end < b.End {
		eb := wheel.NumToByte(end) - b.StartByte
		buf[eb] |= ^(byte(1)<<wheel.NumToBit(end) - 1)
		if eb+1 < size {
			fill(buf[eb+1:], 0xFF)
		}
	}
}

func fill(p []byte, v byte) {
	for i := range p {
		p[i] = v
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// READOUT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// CountZeroBits returns the number of unmarked positions in the logical bitmap.
//
//go:nosplit
//go:inline
func (b *Block) CountZeroBits() uint64 {
	return uint64(b.Size)*8 - utils.OnesInBytes(b.Bytes())
}

// IsComposite reports whether n is marked. n must lie in [Start, End) and be
// wheel-eligible.
func (b *Block) IsComposite(n uint64) bool {
	i := wheel.NumToByte(n) - b.StartByte
	return b.Bytes()[i]&(1<<wheel.PossiblePrimeBit(n)) != 0
}

// Primes yields every unmarked integer in ascending order.
func (b *Block) Primes() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for i, v := range b.Bytes() {
			free := ^v
			for free != 0 {
				bit := uint(bits.TrailingZeros8(free))
				if !yield(wheel.PossiblePrime(b.StartByte+uint64(i), bit)) {
					return
				}
				free &= free - 1
			}
		}
	}
}
