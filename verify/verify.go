// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: verify.go - Cross-plan comparison & block audits
//
// Purpose:
//   - Runs two plans in lockstep and reports the first differing bit.
//   - Digests a run's block stream so independent runs can be compared cheaply.
//   - Audits a block against trial division.
//
// Notes:
//   - Two runs live side by side here; each owns its own workers and kernels.
//   - Audits are O(n·√n); use them on small windows only.
// ─────────────────────────────────────────────────────────────────────────────

package verify

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/bits"

	"golang.org/x/crypto/sha3"

	"wheelsieve/block"
	"wheelsieve/debug"
	"wheelsieve/plan"
	"wheelsieve/sieve"
	"wheelsieve/wheel"
)

var (
	ErrBlocksDiffer      = errors.New("blocks differ")
	ErrBlockSizeMismatch = errors.New("plans use different block sizes")
	ErrBadBlock          = errors.New("block disagrees with trial division")
)

// DiffError pinpoints the first disagreement between two plans.
type DiffError struct {
	Index  uint64 // block index
	Byte   int    // byte within the block
	Number uint64 // first integer whose bit differs
	A, B   byte   // the two byte values
}

func (e *DiffError) Error() string {
	return fmt.Sprintf("%v: block %d byte %d (number %d): %08b vs %08b",
		ErrBlocksDiffer, e.Index, e.Byte, e.Number, e.A, e.B)
}

func (e *DiffError) Unwrap() error { return ErrBlocksDiffer }

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PLAN COMPARISON
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// ComparePlans sieves [start, end) with both plans and returns a *DiffError
// for the first differing byte, or nil when every block matches.
func ComparePlans(start, end uint64, a, b *plan.Plan, opts sieve.Options) error {
	if a.BlockSize != b.BlockSize {
		return fmt.Errorf("%w: %s vs %s", ErrBlockSizeMismatch, a, b)
	}
	ra, err := sieve.New(start, end, a, opts)
	if err != nil {
		return err
	}
	defer ra.Close()
	rb, err := sieve.New(start, end, b, opts)
	if err != nil {
		return err
	}
	defer rb.Close()

	log := debug.Logger()
	for ra.Advance() {
		if !rb.Advance() {
			return fmt.Errorf("%w: %s ended early", ErrBlocksDiffer, b)
		}
		ba, bb := ra.Block(), rb.Block()
		log.Debug().Uint64("block", ba.Index).Str("a", a.String()).Str("b", b.String()).Msg("compare")
		if d := firstDiff(ba, bb); d != nil {
			return d
		}
	}
	if rb.Advance() {
		return fmt.Errorf("%w: %s ended early", ErrBlocksDiffer, a)
	}
	return nil
}

func firstDiff(a, b *block.Block) *DiffError {
	xa, xb := a.Bytes(), b.Bytes()
	for i := range xa {
		if xa[i] == xb[i] {
			continue
		}
		bit := uint(bits.TrailingZeros8(xa[i] ^ xb[i]))
		return &DiffError{
			Index:  a.Index,
			Byte:   i,
			Number: wheel.PossiblePrime(a.StartByte+uint64(i), bit),
			A:      xa[i],
			B:      xb[i],
		}
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// FINGERPRINTS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Digest summarizes one consumed run.
type Digest struct {
	Sum    [32]byte // SHA3-256 over (index, bitmap) of every block in order
	Blocks uint64
	Count  uint64 // primes in [start, end)
}

// Hex renders the checksum.
func (d Digest) Hex() string { return hex.EncodeToString(d.Sum[:]) }

// Fingerprint consumes a fresh run and digests its block stream. The digest
// depends only on the range and block size, never on plan or thread count.
func Fingerprint(start, end uint64, p *plan.Plan, opts sieve.Options) (Digest, error) {
	r, err := sieve.New(start, end, p, opts)
	if err != nil {
		return Digest{}, err
	}
	d := Consume(r)
	return d, r.Close()
}

// Consume drains r, digesting and counting every block.
func Consume(r *sieve.Run) Digest {
	h := sha3.New256()
	info := r.Info()
	d := Digest{Count: sieve.SmallPrimeAdjust(info.Start, info.End)}

	var idx [8]byte
	for r.Advance() {
		b := r.Block()
		binary.LittleEndian.PutUint64(idx[:], b.Index)
		h.Write(idx[:])
		h.Write(b.Bytes())
		d.Blocks++
		d.Count += b.CountZeroBits()
	}
	copy(d.Sum[:], h.Sum(nil))
	return d
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// TRIAL-DIVISION AUDIT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// CheckBlock verifies every wheel position of b inside [start, end) by trial
// division, and that every position outside it is marked.
func CheckBlock(b *block.Block, start, end uint64) error {
	for i, v := range b.Bytes() {
		for bit := uint(0); bit < 8; bit++ {
			n := wheel.PossiblePrime(b.StartByte+uint64(i), bit)
			marked := v&(1<<bit) != 0
			want := n < start || n >= end || !isPrime(n)
			if marked != want {
				state := "unmarked"
				if marked {
					state = "marked"
				}
				return fmt.Errorf("%w: block %d: %d %s", ErrBadBlock, b.Index, n, state)
			}
		}
	}
	return nil
}

func isPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 || n%3 == 0 {
		return n < 4
	}
	for d := uint64(5); d*d <= n; d += 6 {
		if n%d == 0 || n%(d+2) == 0 {
			return false
		}
	}
	return true
}
