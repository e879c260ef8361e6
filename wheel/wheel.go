// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: wheel.go - 8/30 wheel position arithmetic
//
// Purpose:
//   - Maps integers coprime to 30 onto (byte, bit) positions of a block bitmap.
//   - Provides cursor stepping over wheel-eligible integers.
//   - Provides product-residue tables used by every marking kernel.
//
// Notes:
//   - One byte covers 30 integers; its 8 bits are the residues 1,7,…,29.
//   - All functions are pure and allocation-free.
//
// ⚠️ PossiblePrimeBit and ProductBit assume a wheel-eligible argument
// ─────────────────────────────────────────────────────────────────────────────

package wheel

import "wheelsieve/constants"

// Residues lists the wheel-eligible residues mod 30 in bit order.
var Residues = [8]uint64{1, 7, 11, 13, 17, 19, 23, 29}

// modToBit maps n%30 to the bit of the smallest eligible residue >= n%30.
// Residues past 29 have no successor in the same byte; none exist in 0..29.
var modToBit = [30]uint8{
	0, 0, 1, 1, 1, 1, 1, 1, 2, 2,
	2, 2, 3, 3, 4, 4, 4, 4, 5, 5,
	6, 6, 6, 6, 7, 7, 7, 7, 7, 7,
}

// eligible[m] is true when m is coprime to 30.
var eligible = [30]bool{
	1: true, 7: true, 11: true, 13: true,
	17: true, 19: true, 23: true, 29: true,
}

// productBit[a][b] is the bit of (Residues[a]·Residues[b]) mod 30.
// Products of eligible residues are eligible, so the lookup is exact.
var productBit [8][8]uint8

func init() {
	for a := range Residues {
		for b := range Residues {
			productBit[a][b] = modToBit[Residues[a]*Residues[b]%constants.NumsPerByte]
		}
	}
}

// ───────────────────────────── Conversions ─────────────────────────────────

// NumToByte returns the bitmap byte holding n.
//
//go:nosplit
//go:inline
func NumToByte(n uint64) uint64 {
	return n / constants.NumsPerByte
}

// ByteToNum returns the first integer covered by byte b.
//
//go:nosplit
//go:inline
func ByteToNum(b uint64) uint64 {
	return b * constants.NumsPerByte
}

// NumToBit returns the bit of n within its byte, rounding a non-eligible n
// up to the next eligible residue of the same byte. Used for range masks.
//
//go:nosplit
//go:inline
func NumToBit(n uint64) uint {
	return uint(modToBit[n%constants.NumsPerByte])
}

// PossiblePrimeBit returns the bit of a wheel-eligible n.
//
//go:nosplit
//go:inline
func PossiblePrimeBit(n uint64) uint {
	return uint(modToBit[n%constants.NumsPerByte])
}

// PossiblePrime returns the integer at (byte, bit).
//
//go:nosplit
//go:inline
func PossiblePrime(b uint64, bit uint) uint64 {
	return b*constants.NumsPerByte + Residues[bit&7]
}

// NumToByteBit splits n into its (byte, bit) position.
//
//go:nosplit
//go:inline
func NumToByteBit(n uint64) (uint64, uint) {
	return NumToByte(n), NumToBit(n)
}

// IsWheelEligible reports whether n is coprime to 30.
//
//go:nosplit
//go:inline
func IsWheelEligible(n uint64) bool {
	return eligible[n%constants.NumsPerByte]
}

// ────────────────────────────── Cursors ────────────────────────────────────

// NextPossiblePrime steps (b, bit) to the next wheel slot, carrying into the
// next byte after bit 7.
//
//go:nosplit
//go:inline
func NextPossiblePrime(b uint64, bit uint) (uint64, uint) {
	if bit == 7 {
		return b + 1, 0
	}
	return b, bit + 1
}

// PreviousPossiblePrime steps (b, bit) to the previous wheel slot.
// The caller must not step back from (0, 0).
//
//go:nosplit
//go:inline
func PreviousPossiblePrime(b uint64, bit uint) (uint64, uint) {
	if bit == 0 {
		return b - 1, 7
	}
	return b, bit - 1
}

// ──────────────────────────── Product Tables ───────────────────────────────

// ProductBit returns the bit hit by p·m where m has residue index i.
// Depends only on p mod 30; p must be wheel-eligible.
//
//go:nosplit
//go:inline
func ProductBit(p uint64, i uint) uint {
	return uint(productBit[modToBit[p%constants.NumsPerByte]][i&7])
}

// ProductMask is 1 << ProductBit(p, i).
//
//go:nosplit
//go:inline
func ProductMask(p uint64, i uint) byte {
	return 1 << ProductBit(p, i)
}

// ProductByteOffset returns ⌊p·Residues[i]/30⌋, the byte offset inside one
// wheel turn of p at which the product with residue index i lands.
//
//go:nosplit
//go:inline
func ProductByteOffset(p uint64, i uint) uint64 {
	return p * Residues[i&7] / constants.NumsPerByte
}
