package utils

import (
	"math"
	"math/bits"
	"unsafe"
)

///////////////////////////////////////////////////////////////////////////////
// Integer Roots - Exact, No Float Rounding Surprises
///////////////////////////////////////////////////////////////////////////////

// Isqrt returns ⌊√n⌋ for any uint64.
// Seeds from the float root and corrects by at most a couple of steps.
//
//go:nosplit
//go:inline
func Isqrt(n uint64) uint64 {
	if n < 2 {
		return n
	}
	r := uint64(math.Sqrt(float64(n)))
	// float64 has 53 bits of mantissa; fix both directions
	for r > 0 && (r > math.MaxUint32 || r*r > n) {
		r--
	}
	for r+1 <= math.MaxUint32 && (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// CeilSqrt returns ⌈√n⌉.
//
//go:nosplit
//go:inline
func CeilSqrt(n uint64) uint64 {
	r := Isqrt(n)
	if r*r < n {
		r++
	}
	return r
}

///////////////////////////////////////////////////////////////////////////////
// Rounding Helpers
///////////////////////////////////////////////////////////////////////////////

// CeilDiv returns ⌈a/d⌉. d must be non-zero.
//
//go:nosplit
//go:inline
func CeilDiv(a, d uint64) uint64 {
	return (a + d - 1) / d
}

// CeilTo rounds a up to the next multiple of d.
//
//go:nosplit
//go:inline
func CeilTo(a, d uint64) uint64 {
	return CeilDiv(a, d) * d
}

// FloorTo rounds a down to a multiple of d.
//
//go:nosplit
//go:inline
func FloorTo(a, d uint64) uint64 {
	return a / d * d
}

// EstimatePrimes approximates π(hi) - π(lo) with x/ln(x), padded for
// small ranges. Used only to size prime lists up front.
func EstimatePrimes(lo, hi uint64) int {
	if hi <= lo {
		return 0
	}
	est := func(x uint64) float64 {
		if x < 3 {
			return 0
		}
		f := float64(x)
		return f / math.Log(f)
	}
	n := est(hi) - est(lo)
	if n < 0 {
		n = 0
	}
	// x/ln(x) undercounts by ~10% in the ranges sieving primes live in
	return int(n*1.15) + 16
}

///////////////////////////////////////////////////////////////////////////////
// Fast Loaders - Unaligned 64-Bit Reads/Writes
///////////////////////////////////////////////////////////////////////////////

// Load64 reads an unaligned 64-bit word from a byte slice.
// Native byte order: callers only move whole words between byte buffers.
//
//go:nosplit
//go:inline
func Load64(b []byte) uint64 {
	_ = b[7] // bounds check hint
	return *(*uint64)(unsafe.Pointer(&b[0]))
}

// Or64 ORs v into the unaligned 64-bit word at the start of b.
//
//go:nosplit
//go:inline
func Or64(b []byte, v uint64) {
	_ = b[7] // bounds check hint
	*(*uint64)(unsafe.Pointer(&b[0])) |= v
}

// OnesInBytes counts set bits in b, a word at a time with a byte tail.
//
//go:nosplit
//go:inline
func OnesInBytes(b []byte) uint64 {
	var n int
	i := 0
	for ; i+8 <= len(b); i += 8 {
		n += bits.OnesCount64(Load64(b[i:]))
	}
	for ; i < len(b); i++ {
		n += bits.OnesCount8(b[i])
	}
	return uint64(n)
}
