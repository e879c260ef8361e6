package plan

import (
	"fmt"
	"sort"
	"sync"

	"wheelsieve/constants"
	"wheelsieve/strategy"
)

// DefaultName is the plan used when none is configured.
const DefaultName = "default"

var (
	stockOnce sync.Once
	stock     map[string]*Plan
)

func stockPlans() map[string]*Plan {
	stockOnce.Do(func() {
		size := constants.DefaultBlockSize
		stock = make(map[string]*Plan)
		for _, p := range []*Plan{
			MustNew(DefaultName, size, []Entry{
				{"unaligned", strategy.KindPattern, 0, constants.PatternLimit},
				{"calc_offs", strategy.KindOffsets, constants.PatternLimit, constants.OffsetsLimit},
				{"large_offs", strategy.KindBucket, constants.OffsetsLimit, constants.BucketLimit},
				{"simple_sieve", strategy.KindSimple, constants.BucketLimit, Unbounded},
			}),
			MustNew("offsets", size, []Entry{
				{"unaligned", strategy.KindPattern, 0, constants.PatternLimit},
				{"calc_offs", strategy.KindOffsets, constants.PatternLimit, Unbounded},
			}),
			MustNew("bucket", size, []Entry{
				{"unaligned", strategy.KindPattern, 0, constants.PatternLimit},
				{"calc_offs", strategy.KindOffsets, constants.PatternLimit, constants.OffsetsLimit},
				{"large_offs", strategy.KindBucket, constants.OffsetsLimit, Unbounded},
			}),
			MustNew("breakdown", size, breakdown(func(end uint64) string {
				switch {
				case end <= 64:
					return strategy.KindPattern
				case end <= constants.OffsetsLimit:
					return strategy.KindOffsets
				case end <= 1<<16:
					return strategy.KindBucket
				}
				return strategy.KindSimple
			})),
			MustNew("breakdown-simple", size, breakdown(func(uint64) string { return strategy.KindSimple })),
			MustNew("simple", size, []Entry{{"simple_sieve", strategy.KindSimple, 0, Unbounded}}),
			MustNew("slow", size, []Entry{{"slow_sieve", strategy.KindSlow, 0, Unbounded}}),
		} {
			stock[p.Name] = p
		}
	})
	return stock
}

// breakdown splits the magnitudes at every power of two from 16 to 64k.
func breakdown(kind func(end uint64) string) []Entry {
	var out []Entry
	start := uint64(0)
	for end := uint64(16); end <= 1<<16; end <<= 1 {
		out = append(out, Entry{fmt.Sprintf("to %d", end), kind(end), start, end})
		start = end
	}
	return append(out, Entry{"rest", kind(Unbounded), start, Unbounded})
}

// Lookup returns a stock plan by name.
func Lookup(name string) (*Plan, error) {
	if p, ok := stockPlans()[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, name)
}

// Names lists the stock plans in sorted order.
func Names() []string {
	return sortedKeys(stockPlans())
}

func sortedKeys(m map[string]*Plan) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ─────────────────────────────── Plan sets ─────────────────────────────────

// Set resolves plan names against custom plans first, then the stock table.
type Set struct {
	custom map[string]*Plan
}

// NewSet returns a set holding only the stock plans.
func NewSet() *Set {
	return &Set{custom: make(map[string]*Plan)}
}

// Add registers a custom plan. Names must be unique within the set.
func (s *Set) Add(p *Plan) error {
	if _, dup := s.custom[p.Name]; dup {
		return fmt.Errorf("plan %q registered twice", p.Name)
	}
	s.custom[p.Name] = p
	return nil
}

// Lookup resolves name, preferring custom plans over stock ones.
func (s *Set) Lookup(name string) (*Plan, error) {
	if p, ok := s.custom[name]; ok {
		return p, nil
	}
	return Lookup(name)
}

// Names lists every resolvable plan name.
func (s *Set) Names() []string {
	all := make(map[string]*Plan, len(s.custom))
	for k, v := range stockPlans() {
		all[k] = v
	}
	for k, v := range s.custom {
		all[k] = v
	}
	return sortedKeys(all)
}
