// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go - Global sieve tunables & buffer guardrails
//
// Purpose:
//   - Defines block sizing, buffer padding and kernel magnitude limits.
//   - Shared by the block layout, the marking kernels and the run controller.
//
// Notes:
//   - Block sizes are in bytes; one byte covers 30 integers on the 8/30 wheel.
//   - Kernel limits describe the magnitude ranges the stock plans assign.
//
// ⚠️ No runtime logic here - all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

// ───────────────────────────── Block Geometry ──────────────────────────────

const (
	// NumsPerByte is the wheel circumference: one byte of bitmap covers 30 integers.
	NumsPerByte = 30

	// DefaultBlockSize is the block size used by every stock plan: 32 KiB ≈ L1d.
	// One block covers 983,040 integers.
	DefaultBlockSize = 32 << 10

	// MinBlockSize is the smallest accepted block size. The zero-block fix
	// touches the first three bytes and the pattern kernel works in 8-byte words.
	MinBlockSize = 64

	// MaxBlockSize bounds a single block allocation (64 MiB of bitmap).
	MaxBlockSize = 64 << 20
)

// ──────────────────────────── Buffer Guardrails ────────────────────────────

const (
	// BufferAlign is the alignment of the logical block start inside its allocation.
	BufferAlign = 64

	// TailPadding is the writable slack past the logical block end.
	// Must cover MaxOverrun of every overrunning kernel.
	TailPadding = 128

	// MaxOverrun is the furthest any kernel writes past the logical end.
	// The pattern kernel ORs whole 8-byte words, so it overruns by at most 7.
	MaxOverrun = 8
)

// ───────────────────────────── Kernel Limits ───────────────────────────────

const (
	// PatternLimit is the exclusive magnitude bound of the repeating-pattern kernel.
	// The zero-block fix restores every prime below 90, the largest being 89.
	PatternLimit = 96

	// OffsetsLimit is where the stock plans hand over from the offset-cache
	// kernel to the large-prime kernel.
	OffsetsLimit = 1 << 15

	// BucketLimit is where the stock plans hand over from the large-prime
	// kernel to the reference kernel.
	BucketLimit = 400000

	// MaxSkipAdvance is the largest forward block skip the offset-cache kernel
	// advances incrementally. Larger or backward skips recompute from scratch.
	MaxSkipAdvance = 8
)

// ─────────────────────────── Run Parameters ────────────────────────────────

const (
	// MaxEnd is the largest accepted exclusive range end.
	// Keeps p² and the block-aligned end inside uint64.
	MaxEnd = 1 << 62

	// LargeRunThreshold switches automatic batching on: ranges ending above
	// 2^30 claim BatchedBlocksPerRun blocks per counter fetch.
	LargeRunThreshold = 1 << 30

	// BatchedBlocksPerRun is the automatic claim size for large ranges.
	BatchedBlocksPerRun = 64

	// MaxThreads bounds the worker count of the threaded pipeline.
	MaxThreads = 256
)
