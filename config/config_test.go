package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wheelsieve/constants"
	"wheelsieve/plan"
	"wheelsieve/sieve"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, plan.DefaultName, cfg.Plan)
	assert.GreaterOrEqual(t, cfg.Threads, 1)
	assert.Equal(t, "info", cfg.LogLevel)

	p, err := cfg.ResolvePlan()
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultBlockSize, p.BlockSize)
}

func TestParseJWCC(t *testing.T) {
	data := []byte(`{
		// comments and trailing commas are accepted
		"plan": "bucket",
		"block_size": 4096,
		"threads": 3,
		"blocks_per_run": 16,
		"pin_threads": true,
		"log_level": "debug",
		"report_json": "out/summary.json",
	}`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "bucket", cfg.Plan)
	assert.Equal(t, 4096, cfg.BlockSize)
	assert.Equal(t, "out/summary.json", cfg.ReportJSON)
	assert.Equal(t, sieve.Options{Threads: 3, BlocksPerRun: 16, Pin: true}, cfg.RunOptions())

	p, err := cfg.ResolvePlan()
	require.NoError(t, err)
	assert.Equal(t, "bucket", p.Name)
	assert.Equal(t, 4096, p.BlockSize)
}

func TestParseKeepsDefaultsForMissingFields(t *testing.T) {
	cfg, err := Parse([]byte(`{"threads": 0}`))
	require.NoError(t, err)
	assert.Equal(t, plan.DefaultName, cfg.Plan)
	assert.Zero(t, cfg.Threads)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestCustomPlan(t *testing.T) {
	data := []byte(`{
		"plan": "two-stage",
		"plans": [
			{
				"name": "two-stage",
				"block_size": 1024,
				"entries": [
					{"name": "small", "kind": "pattern", "start": 7, "end": 64},
					{"name": "rest", "kind": "simple", "start": 64}, // open-ended
				],
			},
		],
	}`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	p, err := cfg.ResolvePlan()
	require.NoError(t, err)
	assert.Equal(t, "two-stage", p.Name)
	assert.Equal(t, 1024, p.BlockSize)
	require.Len(t, p.Entries, 2)
	assert.Equal(t, uint64(plan.Unbounded), p.Entries[1].End)

	set, err := cfg.PlanSet()
	require.NoError(t, err)
	assert.Contains(t, set.Names(), "two-stage")
	assert.Contains(t, set.Names(), plan.DefaultName)

	n, err := sieve.Count(0, 1_000_001, p, cfg.RunOptions())
	require.NoError(t, err)
	assert.Equal(t, uint64(78_498), n)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"syntax":         `{"plan": `,
		"type":           `{"threads": "four"}`,
		"unknown plan":   `{"plan": "nope"}`,
		"block size":     `{"block_size": 32}`,
		"huge block":     `{"block_size": 1073741824}`,
		"threads":        `{"threads": -1}`,
		"too many":       `{"threads": 100000}`,
		"log level":      `{"log_level": "loud"}`,
		"bad kind":       `{"plans": [{"name": "x", "entries": [{"kind": "magic", "start": 7}]}]}`,
		"gap":            `{"plans": [{"name": "x", "entries": [{"kind": "simple", "start": 7, "end": 50}, {"kind": "simple", "start": 60}]}]}`,
		"pattern limit":  `{"plans": [{"name": "x", "entries": [{"kind": "pattern", "start": 7}]}]}`,
		"duplicate plan": `{"plans": [{"name": "x", "entries": [{"kind": "simple", "start": 7}]}, {"name": "x", "entries": [{"kind": "simple", "start": 7}]}]}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			require.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}

func TestParsePlanErrorsUnwrap(t *testing.T) {
	_, err := Parse([]byte(`{"plan": "nope"}`))
	require.ErrorIs(t, err, plan.ErrUnknownPlan)

	_, err = Parse([]byte(`{"block_size": 32, "plan": "simple"}`))
	require.ErrorIs(t, err, ErrConfigInvalid)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sieve.jwcc")
	require.NoError(t, os.WriteFile(path, []byte(`{"plan": "offsets", /* inline */ "threads": 2}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "offsets", cfg.Plan)
	assert.Equal(t, path, cfg.Source)

	_, err = Load(filepath.Join(dir, "missing.jwcc"))
	require.ErrorIs(t, err, ErrConfigInvalid)

	bad := filepath.Join(dir, "bad.jwcc")
	require.NoError(t, os.WriteFile(bad, []byte(`{"plan": "nope"}`), 0o644))
	_, err = Load(bad)
	require.ErrorIs(t, err, ErrConfigInvalid)
	assert.Contains(t, err.Error(), bad)
}

func TestApplyLogging(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	require.NoError(t, cfg.ApplyLogging())
	t.Cleanup(func() { _ = Default().ApplyLogging() })
}

func TestPinningIsOptIn(t *testing.T) {
	assert.False(t, Default().PinThreads)
	assert.False(t, Default().RunOptions().Pin)

	cfg, err := Parse([]byte(`{"pin_threads": true}`))
	require.NoError(t, err)
	assert.True(t, cfg.RunOptions().Pin)
}
