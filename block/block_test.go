// ============================================================================
// SIEVE BLOCK VALIDATION SUITE
// ============================================================================
//
// Test categories:
//   - Construction: alignment, padding and size validation
//   - Positioning: index arithmetic and √end cutoffs
//   - Corrections: zero-block fix and range masks at partial bytes
//   - Readout: zero-bit counts and prime iteration

package block

import (
	"slices"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"wheelsieve/constants"
	"wheelsieve/wheel"
)

// ============================================================================
// CONSTRUCTION
// ============================================================================

func TestNewLayout(t *testing.T) {
	for _, size := range []int{64, 100, 256, 4096, 32768} {
		b := New(size)
		require.Equal(t, size, len(b.Bytes()))
		require.Equal(t, size+constants.TailPadding, len(b.Padded()))
		require.GreaterOrEqual(t, b.HeadPadding(), size)
		require.Zero(t, uintptr(unsafe.Pointer(&b.Bytes()[0]))%constants.BufferAlign)
		require.Zero(t, b.Index)
		require.Zero(t, b.Start)
		require.Equal(t, uint64(size*30), b.End)
	}
}

func TestNewRejectsBadSize(t *testing.T) {
	require.Panics(t, func() { New(constants.MinBlockSize - 1) })
	require.Panics(t, func() { New(constants.MaxBlockSize + 1) })
}

// ============================================================================
// POSITIONING
// ============================================================================

func TestAdvance(t *testing.T) {
	b := New(256)
	b.Advance()
	b.Advance()
	require.Equal(t, uint64(2), b.Index)
	require.Equal(t, uint64(512), b.StartByte)
	require.Equal(t, uint64(512*30), b.Start)
	require.Equal(t, uint64(768*30), b.End)
	require.Equal(t, uint64(151), b.SqrtEnd) // ⌊√23039⌋

	b.SetIndex(0)
	require.Equal(t, uint64(87), b.SqrtEnd) // ⌊√7679⌋
}

func TestResetClearsTail(t *testing.T) {
	b := New(64)
	p := b.Padded()
	for i := range p {
		p[i] = 0xAA
	}
	b.Reset()
	require.Equal(t, make([]byte, len(p)), b.Padded())
}

// ============================================================================
// CORRECTIONS
// ============================================================================

func TestZeroBlockFix(t *testing.T) {
	b := New(64)
	// mark everything, then let the fix restore the small primes
	fill(b.Bytes(), 0xFF)
	b.ApplyZeroBlockFix()

	var got []uint64
	for n := range b.Primes() {
		if n >= 90 {
			break
		}
		got = append(got, n)
	}
	want := []uint64{7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71, 73, 79, 83, 89}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("primes below 90 (-want +got):\n%s", diff)
	}
	require.True(t, b.IsComposite(1))
	require.True(t, b.IsComposite(49))
	require.True(t, b.IsComposite(77))
}

func TestZeroBlockFixIgnoresOtherBlocks(t *testing.T) {
	b := New(64)
	b.Advance()
	b.ApplyZeroBlockFix()
	require.Zero(t, b.Bytes()[0])
}

func TestRangeMask(t *testing.T) {
	cases := []struct {
		name       string
		index      uint64
		start, end uint64
	}{
		{"inside", 0, 100, 1000},
		{"partial bytes", 0, 32, 1889},
		{"byte aligned", 0, 60, 120},
		{"whole block", 0, 0, 1 << 40},
		{"second block", 1, 2000, 3500},
		{"end on eligible", 0, 7, 29},
		{"empty", 0, 500, 500},
		{"disjoint", 1, 0, 100},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := New(64)
			b.SetIndex(c.index)
			b.ApplyRangeMask(c.start, c.end)
			for n := b.Start; n < b.End; n++ {
				if !wheel.IsWheelEligible(n) {
					continue
				}
				inside := n >= c.start && n < c.end
				require.Equal(t, !inside, b.IsComposite(n), "n=%d", n)
			}
		})
	}
}

// ============================================================================
// READOUT
// ============================================================================

func TestCountZeroBits(t *testing.T) {
	for _, size := range []int{64, 67, 130} {
		b := New(size)
		require.Equal(t, uint64(size*8), b.CountZeroBits())
		b.Bytes()[0] = 0x0F
		b.Bytes()[size-1] = 0x80
		// tail padding never counts
		b.Padded()[size] = 0xFF
		require.Equal(t, uint64(size*8-5), b.CountZeroBits())
	}
}

func TestPrimesOrder(t *testing.T) {
	b := New(64)
	b.SetIndex(3)
	fill(b.Bytes(), 0xFF)
	b.Bytes()[5] = 0b1111_1010
	b.Bytes()[63] = 0b0111_1111

	got := slices.Collect(b.Primes())
	base := b.Start
	want := []uint64{base + 150 + 1, base + 150 + 11, base + 63*30 + 29}
	require.Equal(t, want, got)
	require.Equal(t, uint64(len(want)), b.CountZeroBits())
}
