// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: plan.go - Ordered kernel tables over sieving-prime magnitudes
//
// Purpose:
//   - A Plan tiles the magnitude axis with disjoint, ascending entries,
//     each bound to one marking kernel kind.
//   - An Instance is one worker's private set of live kernels for a plan.
//
// Notes:
//   - Plans are immutable after validation and safe to share across runs.
//   - Instances are never shared: kernel continuation state is per worker.
//
// ⚠️ Instances panic on contract violations; plan validation returns errors
// ─────────────────────────────────────────────────────────────────────────────

package plan

import (
	"errors"
	"fmt"

	"wheelsieve/block"
	"wheelsieve/constants"
	"wheelsieve/strategy"
)

var (
	ErrEmptyPlan   = errors.New("plan has no entries")
	ErrRangeGap    = errors.New("plan entries leave a magnitude gap")
	ErrRangeOrder  = errors.New("plan entry range is empty or descending")
	ErrUnknownPlan = errors.New("unknown plan")
	ErrUnknownKind = errors.New("unknown kernel kind")
	ErrKindRange   = errors.New("kernel kind cannot serve entry range")
	ErrBlockSize   = errors.New("block size out of range")
)

// Unbounded is the open upper end of a plan's last entry.
const Unbounded = strategy.Unbounded

// smallestSievingPrime is the first prime the wheel does not already skip.
const smallestSievingPrime = 7

// Entry assigns the magnitudes [Start, End) to one kernel kind.
type Entry struct {
	Name  string
	Kind  string
	Start uint64
	End   uint64
}

// Plan is a validated, gap-free kernel table plus its block size.
type Plan struct {
	Name      string
	BlockSize int
	Entries   []Entry

	factories []strategy.Factory
}

// New validates entries and resolves their kernels.
func New(name string, blockSize int, entries []Entry) (*Plan, error) {
	if blockSize < constants.MinBlockSize || blockSize > constants.MaxBlockSize {
		return nil, fmt.Errorf("%w: plan %q: %d not in [%d, %d]",
			ErrBlockSize, name, blockSize, constants.MinBlockSize, constants.MaxBlockSize)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyPlan, name)
	}
	if entries[0].Start > smallestSievingPrime {
		return nil, fmt.Errorf("%w: plan %q starts at %d, above %d",
			ErrRangeGap, name, entries[0].Start, smallestSievingPrime)
	}

	p := &Plan{
		Name:      name,
		BlockSize: blockSize,
		Entries:   append([]Entry(nil), entries...),
		factories: make([]strategy.Factory, len(entries)),
	}
	for i, e := range entries {
		if e.Start >= e.End {
			return nil, fmt.Errorf("%w: plan %q entry %q [%d, %d)", ErrRangeOrder, name, e.Name, e.Start, e.End)
		}
		if i > 0 && e.Start != entries[i-1].End {
			return nil, fmt.Errorf("%w: plan %q entry %q starts at %d, previous ends at %d",
				ErrRangeGap, name, e.Name, e.Start, entries[i-1].End)
		}
		f, ok := strategy.Lookup(e.Kind)
		if !ok {
			return nil, fmt.Errorf("%w: plan %q entry %q kind %q", ErrUnknownKind, name, e.Name, e.Kind)
		}
		if e.Kind == strategy.KindPattern && e.End > constants.PatternLimit {
			return nil, fmt.Errorf("%w: plan %q entry %q: %s needs end <= %d",
				ErrKindRange, name, e.Name, e.Kind, constants.PatternLimit)
		}
		p.factories[i] = f
	}
	if last := entries[len(entries)-1]; last.End != Unbounded {
		return nil, fmt.Errorf("%w: plan %q ends at %d, must be unbounded", ErrRangeGap, name, last.End)
	}
	return p, nil
}

// MustNew is New for static tables; it panics on invalid input.
func MustNew(name string, blockSize int, entries []Entry) *Plan {
	p, err := New(name, blockSize, entries)
	if err != nil {
		panic("plan: " + err.Error())
	}
	return p
}

// WithBlockSize returns a copy of the plan using another block size.
func (p *Plan) WithBlockSize(size int) (*Plan, error) {
	if size == p.BlockSize {
		return p, nil
	}
	return New(p.Name, size, p.Entries)
}

func (p *Plan) String() string {
	return fmt.Sprintf("%s/%d", p.Name, p.BlockSize)
}

// ─────────────────────────────── Instances ─────────────────────────────────

// Instance holds one live kernel per plan entry for a single worker.
type Instance struct {
	plan    *Plan
	kernels []strategy.Strategy
	route   int // entry receiving the next sieving prime
}

// NewInstance creates fresh kernels for every entry.
func (p *Plan) NewInstance(params strategy.Params) *Instance {
	if p == nil || len(p.factories) != len(p.Entries) {
		panic("plan: instance from unvalidated plan")
	}
	if params.BlockSize != p.BlockSize {
		panic("plan: instance block size differs from plan")
	}
	in := &Instance{plan: p, kernels: make([]strategy.Strategy, len(p.Entries))}
	for i, e := range p.Entries {
		in.kernels[i] = p.factories[i](params, e.Start, e.End)
	}
	return in
}

// Plan returns the table this instance was built from.
func (in *Instance) Plan() *Plan { return in.plan }

// AddSievingPrime routes p to the entry whose range holds it.
// Primes must arrive in strictly increasing order.
//
//go:nosplit
//go:inline
func (in *Instance) AddSievingPrime(p uint32) {
	v := uint64(p)
	for v >= in.plan.Entries[in.route].End {
		in.route++
	}
	in.kernels[in.route].AddSievingPrime(p)
}

// SkipTo announces a non-contiguous jump to every kernel.
func (in *Instance) SkipTo(index uint64) {
	for _, k := range in.kernels {
		k.SkipTo(index)
	}
}

// CalcBlock runs every entry whose range starts at or below the block's √end,
// in ascending magnitude order.
func (in *Instance) CalcBlock(b *block.Block) {
	for i, e := range in.plan.Entries {
		if e.Start > b.SqrtEnd {
			return
		}
		in.kernels[i].CalcPrimes(b)
	}
}

// Free releases every kernel.
func (in *Instance) Free() {
	for _, k := range in.kernels {
		k.Free()
	}
	in.kernels = nil
}
