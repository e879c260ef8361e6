package sieve

import "wheelsieve/debug"

// smallPrimes seeds the bootstrap. Any further seed needed for a large block 0
// is found by trial division.
var smallPrimes = []uint32{
	7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47,
	53, 59, 61, 67, 71, 73, 79, 83, 89, 97,
}

// seedPrimes returns every prime in [7, limit].
func seedPrimes(limit uint64) []uint32 {
	var out []uint32
	for _, p := range smallPrimes {
		if uint64(p) > limit {
			return out
		}
		out = append(out, p)
	}
	for n := uint64(smallPrimes[len(smallPrimes)-1]) + 2; n <= limit; n += 2 {
		if isPrime(n) {
			out = append(out, uint32(n))
		}
	}
	return out
}

// isPrime is plain trial division; only used for small seeds.
func isPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	for _, d := range []uint64{2, 3, 5} {
		if n%d == 0 {
			return n == d
		}
	}
	for d := uint64(7); d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// addSievingPrime hands p to every worker's instance.
func (r *Run) addSievingPrime(p uint32) {
	for _, u := range r.units {
		u.inst.AddSievingPrime(p)
	}
}

// bootstrap registers every sieving prime up to MaxSievePrime.
//
// Block 0 is computed with seeds covering its own √end; each finished block
// yields the primes of the next stretch, which are registered before the
// following block is sieved. Runs strictly on worker 0, in index order.
func (r *Run) bootstrap() {
	limit := uint64(r.info.MaxSievePrime)
	u := r.units[0]

	seedLimit := min(limit, u.blk.SqrtEnd)
	for _, p := range seedPrimes(seedLimit) {
		r.addSievingPrime(p)
	}
	r.info.AddedSievePrimes = seedLimit

	blocks := uint64(0)
	for i := uint64(0); r.info.AddedSievePrimes < limit; i++ {
		u.blk.Reset()
		u.blk.SetIndex(i)
		u.inst.CalcBlock(u.blk)
		u.blk.ApplyZeroBlockFix()
		u.last = i
		blocks++

		hw := r.info.AddedSievePrimes
		for n := range u.blk.Primes() {
			if n > limit {
				break
			}
			if n > hw {
				r.addSievingPrime(uint32(n))
			}
		}
		r.info.AddedSievePrimes = min(u.blk.End-1, limit)
	}

	// blocks 0..last were consumed by discovery; reposition for the main phase
	if u.last != noIndex && r.info.FirstBlock != u.last+1 {
		for _, w := range r.units {
			w.inst.SkipTo(r.info.FirstBlock)
		}
	}

	debug.Logger().Debug().
		Uint64("sieving_prime_limit", r.info.AddedSievePrimes).
		Uint64("bootstrap_blocks", blocks).
		Str("plan", r.plan.String()).
		Msg("bootstrap complete")
}
