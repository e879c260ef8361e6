package sieve

import (
	"wheelsieve/pipeline"
	"wheelsieve/plan"
)

// wheelPrimes are the primes the 8/30 wheel cannot represent.
var wheelPrimes = [...]uint64{2, 3, 5}

// SmallPrimeAdjust counts the primes 2, 3 and 5 lying in [start, end).
func SmallPrimeAdjust(start, end uint64) uint64 {
	var n uint64
	for _, p := range wheelPrimes {
		if p >= start && p < end {
			n++
		}
	}
	return n
}

// Count returns π(end-1) - π(start-1): the number of primes in [start, end),
// consuming blocks in index order.
func Count(start, end uint64, p *plan.Plan, opts Options) (uint64, error) {
	r, err := New(start, end, p, opts)
	if err != nil {
		return 0, err
	}
	total := SmallPrimeAdjust(start, end)
	for r.Advance() {
		total += r.Block().CountZeroBits()
	}
	return total, r.Close()
}

// paddedCount keeps each worker's tally on its own cache line.
type paddedCount struct {
	n uint64
	_ [56]byte
}

// CountParallel counts like Count but lets every worker tally its own blocks
// as soon as they are computed, with no ordering gate. Threads of 0 uses one
// worker.
func CountParallel(start, end uint64, p *plan.Plan, opts Options) (uint64, error) {
	if opts.Threads == 0 {
		opts.Threads = 1
	}
	r, err := New(start, end, p, opts)
	if err != nil {
		return 0, err
	}

	counts := make([]paddedCount, len(r.units))
	r.pipe = pipeline.New(r.pipelineConfig(), r.computers())
	runErr := r.pipe.Run(func(slot int, _ uint64) {
		counts[slot].n += r.units[slot].blk.CountZeroBits()
	})

	total := SmallPrimeAdjust(start, end)
	for i := range counts {
		total += counts[i].n
	}
	if err := r.Close(); runErr == nil {
		runErr = err
	}
	return total, runErr
}
