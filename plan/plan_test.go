// ============================================================================
// PLAN TABLE VALIDATION SUITE
// ============================================================================
//
// Test categories:
//   - Validation: gaps, ordering, kinds and block sizes
//   - Stock table: every stock plan is valid and tiles to Unbounded
//   - Instances: prime routing and √end entry selection
//   - Sets: custom plans shadow stock plans

package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wheelsieve/block"
	"wheelsieve/constants"
	"wheelsieve/strategy"
)

// ============================================================================
// VALIDATION
// ============================================================================

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		entries []Entry
		want    error
	}{
		{"empty", 1024, nil, ErrEmptyPlan},
		{"small block", 32, []Entry{{"a", "simple", 0, Unbounded}}, ErrBlockSize},
		{"huge block", constants.MaxBlockSize + 1, []Entry{{"a", "simple", 0, Unbounded}}, ErrBlockSize},
		{"late start", 1024, []Entry{{"a", "simple", 11, Unbounded}}, ErrRangeGap},
		{"gap", 1024, []Entry{{"a", "simple", 0, 100}, {"b", "simple", 101, Unbounded}}, ErrRangeGap},
		{"overlap", 1024, []Entry{{"a", "simple", 0, 100}, {"b", "simple", 99, Unbounded}}, ErrRangeGap},
		{"bounded", 1024, []Entry{{"a", "simple", 0, 1 << 20}}, ErrRangeGap},
		{"descending", 1024, []Entry{{"a", "simple", 0, 0}, {"b", "simple", 0, Unbounded}}, ErrRangeOrder},
		{"unknown kind", 1024, []Entry{{"a", "shuffle", 0, Unbounded}}, ErrUnknownKind},
		{"pattern too wide", 1024, []Entry{{"a", "pattern", 0, 128}, {"b", "simple", 128, Unbounded}}, ErrKindRange},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New(c.name, c.size, c.entries)
			require.ErrorIs(t, err, c.want)
		})
	}
}

func TestNewAcceptsStartAtSeven(t *testing.T) {
	p, err := New("seven", 64, []Entry{{"a", "simple", 7, Unbounded}})
	require.NoError(t, err)
	require.Equal(t, "seven/64", p.String())
}

func TestMustNewPanics(t *testing.T) {
	require.Panics(t, func() { MustNew("bad", 64, nil) })
}

// ============================================================================
// STOCK TABLE
// ============================================================================

func TestStockPlans(t *testing.T) {
	require.Equal(t,
		[]string{"breakdown", "breakdown-simple", "bucket", "default", "offsets", "simple", "slow"},
		Names())
	for _, name := range Names() {
		p, err := Lookup(name)
		require.NoError(t, err)
		require.Equal(t, constants.DefaultBlockSize, p.BlockSize)
		require.Equal(t, uint64(Unbounded), p.Entries[len(p.Entries)-1].End)
	}
	_, err := Lookup("shuffle")
	require.ErrorIs(t, err, ErrUnknownPlan)
}

func TestDefaultPlanLayout(t *testing.T) {
	p, err := Lookup(DefaultName)
	require.NoError(t, err)
	kinds := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		kinds[i] = e.Kind
	}
	require.Equal(t, []string{strategy.KindPattern, strategy.KindOffsets, strategy.KindBucket, strategy.KindSimple}, kinds)
	require.Equal(t, uint64(96), p.Entries[1].Start)
	require.Equal(t, uint64(1<<15), p.Entries[2].Start)
	require.Equal(t, uint64(400000), p.Entries[3].Start)
}

func TestWithBlockSize(t *testing.T) {
	p, _ := Lookup(DefaultName)
	q, err := p.WithBlockSize(256)
	require.NoError(t, err)
	require.Equal(t, 256, q.BlockSize)
	require.Equal(t, p.Entries, q.Entries)
	require.Equal(t, constants.DefaultBlockSize, p.BlockSize)

	same, err := p.WithBlockSize(p.BlockSize)
	require.NoError(t, err)
	require.Same(t, p, same)

	_, err = p.WithBlockSize(8)
	require.ErrorIs(t, err, ErrBlockSize)
}

// ============================================================================
// INSTANCES
// ============================================================================

// recorder is a kernel that logs what it is asked to do.
type recorder struct {
	primes []uint32
	calls  []uint64
	skips  int
}

func (r *recorder) AddSievingPrime(p uint32)  { r.primes = append(r.primes, p) }
func (r *recorder) SkipTo(uint64)             { r.skips++ }
func (r *recorder) CalcPrimes(b *block.Block) { r.calls = append(r.calls, b.Index) }
func (r *recorder) Free()                     {}

func recordingPlan(t *testing.T) (*Plan, []*recorder) {
	t.Helper()
	p, err := New("rec", 64, []Entry{
		{"low", "simple", 0, 20},
		{"mid", "simple", 20, 100},
		{"high", "simple", 100, Unbounded},
	})
	require.NoError(t, err)
	recs := make([]*recorder, 3)
	for i := range p.factories {
		i := i
		p.factories[i] = func(strategy.Params, uint64, uint64) strategy.Strategy {
			recs[i] = &recorder{}
			return recs[i]
		}
	}
	return p, recs
}

func TestInstanceRouting(t *testing.T) {
	p, recs := recordingPlan(t)
	in := p.NewInstance(strategy.Params{MaxSievePrime: 1000, BlockSize: 64})
	for _, q := range []uint32{7, 11, 13, 17, 19, 23, 97, 101, 997} {
		in.AddSievingPrime(q)
	}
	require.Equal(t, []uint32{7, 11, 13, 17, 19}, recs[0].primes)
	require.Equal(t, []uint32{23, 97}, recs[1].primes)
	require.Equal(t, []uint32{101, 997}, recs[2].primes)

	in.SkipTo(5)
	for _, r := range recs {
		require.Equal(t, 1, r.skips)
	}
	require.Same(t, p, in.Plan())
}

func TestInstanceSelectsBySqrtEnd(t *testing.T) {
	p, recs := recordingPlan(t)
	in := p.NewInstance(strategy.Params{MaxSievePrime: 1000, BlockSize: 64})

	b := block.New(64) // index 0: √end = 43
	in.CalcBlock(b)
	b.SetIndex(5) // √end = 107
	in.CalcBlock(b)

	require.Equal(t, []uint64{0, 5}, recs[0].calls)
	require.Equal(t, []uint64{0, 5}, recs[1].calls)
	require.Equal(t, []uint64{5}, recs[2].calls)
}

func TestNewInstanceBlockSizeMismatch(t *testing.T) {
	p, _ := Lookup("simple")
	require.Panics(t, func() { p.NewInstance(strategy.Params{MaxSievePrime: 100, BlockSize: 64}) })
}

// ============================================================================
// SETS
// ============================================================================

func TestSet(t *testing.T) {
	s := NewSet()
	custom := MustNew("default", 128, []Entry{{"all", "slow", 0, Unbounded}})
	extra := MustNew("mine", 128, []Entry{{"all", "bucket", 0, Unbounded}})
	require.NoError(t, s.Add(custom))
	require.NoError(t, s.Add(extra))
	require.Error(t, s.Add(extra))

	got, err := s.Lookup("default")
	require.NoError(t, err)
	require.Same(t, custom, got)

	got, err = s.Lookup("slow")
	require.NoError(t, err)
	require.Equal(t, "slow", got.Name)

	require.Contains(t, s.Names(), "mine")
	require.Len(t, s.Names(), len(Names())+1)

	_, err = s.Lookup("nope")
	require.ErrorIs(t, err, ErrUnknownPlan)
}
