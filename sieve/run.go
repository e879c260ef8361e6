// ════════════════════════════════════════════════════════════════════════════════════════════════
// 🔁 SIEVE RUN CONTROLLER
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Two-Phase Run Orchestration
//
// Description:
//   A Run owns everything one sieve pass needs: run geometry, one block and one plan instance
//   per worker, and the optional worker pipeline. It is an explicit object with a New/Close
//   lifecycle so several runs (for example two plans under comparison) can coexist.
//
// Phases:
//   - BOOTSTRAP (in New, single-threaded): seed the smallest sieving primes, then sieve blocks
//     0, 1, … on worker 0 and feed every newly found prime to all worker instances until the
//     high-water mark reaches ⌈√end⌉.
//   - MAIN (Advance): compute blocks FirstBlock … EndBlock-1, inline or through the pipeline,
//     handing them out strictly in index order.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package sieve

import (
	"errors"
	"fmt"
	"math"

	"wheelsieve/block"
	"wheelsieve/constants"
	"wheelsieve/debug"
	"wheelsieve/pipeline"
	"wheelsieve/plan"
	"wheelsieve/strategy"
	"wheelsieve/utils"
)

var (
	ErrInvalidRange   = errors.New("invalid range")
	ErrRangeTooLarge  = errors.New("range end too large")
	ErrInvalidThreads = errors.New("invalid thread count")
)

// noIndex marks "no block computed yet".
const noIndex = math.MaxUint64

// Options tunes how a run computes its blocks.
type Options struct {
	// Threads is the worker count. 0 computes inline on the caller's goroutine.
	Threads int

	// BlocksPerRun is how many indices a worker claims at once.
	// 0 picks constants.BatchedBlocksPerRun above constants.LargeRunThreshold, else 1.
	BlocksPerRun uint64

	// Pin binds worker i to logical CPU i.
	Pin bool
}

// RunInfo is the fixed geometry of a run plus the bootstrap high-water mark.
type RunInfo struct {
	Start, End                 uint64 // requested half-open range
	AdjustedStart, AdjustedEnd uint64 // block-aligned cover of [Start, End)
	FirstBlock, EndBlock       uint64 // block indices [FirstBlock, EndBlock)
	Blocks                     uint64
	BlockSize                  int
	MaxSievePrime              uint32 // ⌈√End⌉
	AddedSievePrimes           uint64 // every prime ≤ this has been registered
	BlocksPerRun               uint64
}

// unit is one worker's private state.
type unit struct {
	run  *Run
	blk  *block.Block
	inst *plan.Instance
	last uint64
}

// Compute fills the unit's block with index i.
func (u *unit) Compute(i uint64) {
	if u.last != noIndex && i <= u.last {
		u.inst.SkipTo(i)
	}
	u.last = i
	u.run.calc(u.blk, u.inst, i)
}

// Run is one sieve pass over [Start, End).
type Run struct {
	info  RunInfo
	plan  *plan.Plan
	opts  Options
	units []*unit

	pipe   *pipeline.Pipeline
	next   uint64 // inline mode cursor
	cur    *block.Block
	closed bool
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONSTRUCTION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// New validates the request, allocates per-worker state and completes the
// bootstrap phase. A nil plan selects the default plan.
func New(start, end uint64, p *plan.Plan, opts Options) (*Run, error) {
	if start > end {
		return nil, fmt.Errorf("%w: start %d after end %d", ErrInvalidRange, start, end)
	}
	if end > constants.MaxEnd {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrRangeTooLarge, end, uint64(constants.MaxEnd))
	}
	if opts.Threads < 0 || opts.Threads > constants.MaxThreads {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidThreads, opts.Threads, constants.MaxThreads)
	}
	if p == nil {
		var err error
		if p, err = plan.Lookup(plan.DefaultName); err != nil {
			return nil, err
		}
	}

	r := &Run{plan: p, opts: opts, info: geometry(start, end, p.BlockSize, opts.BlocksPerRun)}

	params := strategy.Params{MaxSievePrime: r.info.MaxSievePrime, BlockSize: p.BlockSize}
	for i := 0; i < max(opts.Threads, 1); i++ {
		r.units = append(r.units, &unit{
			run:  r,
			blk:  block.New(p.BlockSize),
			inst: p.NewInstance(params),
			last: noIndex,
		})
	}

	debug.Logger().Debug().
		Uint64("start", start).
		Uint64("end", end).
		Str("plan", p.String()).
		Int("threads", opts.Threads).
		Uint64("blocks", r.info.Blocks).
		Uint32("max_sieve_prime", r.info.MaxSievePrime).
		Msg("run init")

	r.bootstrap()
	r.next = r.info.FirstBlock
	return r, nil
}

// geometry derives the block-aligned layout of [start, end).
func geometry(start, end uint64, blockSize int, perRun uint64) RunInfo {
	span := uint64(blockSize) * constants.NumsPerByte
	info := RunInfo{
		Start:         start,
		End:           end,
		AdjustedStart: utils.FloorTo(start, span),
		AdjustedEnd:   utils.CeilTo(end, span),
		BlockSize:     blockSize,
		MaxSievePrime: uint32(utils.CeilSqrt(end)),
		BlocksPerRun:  perRun,
	}
	info.FirstBlock = info.AdjustedStart / span
	info.EndBlock = info.AdjustedEnd / span
	if start == end {
		info.EndBlock = info.FirstBlock
	}
	info.Blocks = info.EndBlock - info.FirstBlock
	if info.BlocksPerRun == 0 {
		info.BlocksPerRun = 1
		if end > constants.LargeRunThreshold {
			info.BlocksPerRun = constants.BatchedBlocksPerRun
		}
	}
	return info
}

// Info returns the run geometry.
func (r *Run) Info() RunInfo { return r.info }

// Plan returns the plan this run marks with.
func (r *Run) Plan() *plan.Plan { return r.plan }

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// BLOCK COMPUTATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// calc computes main-phase block i into blk.
func (r *Run) calc(blk *block.Block, inst *plan.Instance, i uint64) {
	blk.Reset()
	blk.SetIndex(i)
	inst.CalcBlock(blk)
	if i == 0 {
		blk.ApplyZeroBlockFix()
	}
	if i == r.info.FirstBlock || i+1 == r.info.EndBlock {
		blk.ApplyRangeMask(r.info.Start, r.info.End)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// ITERATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Advance moves to the next block in index order. It returns false once the
// range is exhausted or the run is closed.
func (r *Run) Advance() bool {
	if r.closed {
		return false
	}
	if r.opts.Threads == 0 {
		if r.next >= r.info.EndBlock {
			r.cur = nil
			return false
		}
		u := r.units[0]
		u.Compute(r.next)
		r.next++
		r.cur = u.blk
		return true
	}

	if r.pipe == nil {
		r.pipe = pipeline.New(r.pipelineConfig(), r.computers())
		r.pipe.Start()
	}
	slot, _, ok := r.pipe.Next()
	if !ok {
		r.cur = nil
		return false
	}
	r.cur = r.units[slot].blk
	return true
}

// Block returns the block produced by the last successful Advance. It stays
// valid until the next Advance or Close.
func (r *Run) Block() *block.Block { return r.cur }

// Close stops any workers and releases kernel state. Safe to call twice.
func (r *Run) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var err error
	if r.pipe != nil {
		err = r.pipe.Close()
	}
	for _, u := range r.units {
		u.inst.Free()
	}
	r.cur = nil
	debug.Logger().Debug().Str("plan", r.plan.String()).Msg("run teardown")
	return err
}

func (r *Run) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		First:        r.next,
		End:          r.info.EndBlock,
		BlocksPerRun: r.info.BlocksPerRun,
		Pin:          r.opts.Pin,
	}
}

func (r *Run) computers() []pipeline.Computer {
	out := make([]pipeline.Computer, len(r.units))
	for i, u := range r.units {
		out[i] = u
	}
	return out
}
