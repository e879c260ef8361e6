// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: config.go - Run configuration loading & validation
//
// Purpose:
//   - Reads JWCC (JSON with comments and trailing commas) run settings.
//   - Resolves plan names against custom and stock plans.
//   - Converts settings into sieve options.
//
// Notes:
//   - Precedence: Default(), then every field present in the file.
//   - Every validation failure wraps ErrConfigInvalid.
// ─────────────────────────────────────────────────────────────────────────────

package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/sugawarayuuta/sonnet"
	"github.com/tailscale/hujson"

	"wheelsieve/constants"
	"wheelsieve/debug"
	"wheelsieve/plan"
	"wheelsieve/sieve"
)

var ErrConfigInvalid = errors.New("invalid config")

// Config holds all run settings.
type Config struct {
	Plan         string       `json:"plan"`
	BlockSize    int          `json:"block_size,omitempty"` // 0 keeps the plan's own
	Threads      int          `json:"threads"`              // 0 computes inline
	BlocksPerRun uint64       `json:"blocks_per_run,omitempty"`
	PinThreads   bool         `json:"pin_threads"`
	LogLevel     string       `json:"log_level"`
	ReportJSON   string       `json:"report_json,omitempty"`
	ReportDB     string       `json:"report_db,omitempty"`
	Plans        []PlanConfig `json:"plans,omitempty"`

	// Source is the file this config was read from, empty for defaults.
	Source string `json:"-"`
}

// PlanConfig defines a custom plan.
type PlanConfig struct {
	Name      string        `json:"name"`
	BlockSize int           `json:"block_size,omitempty"`
	Entries   []EntryConfig `json:"entries"`
}

// EntryConfig is one kernel range of a custom plan.
// An End of 0 on the last entry means unbounded.
type EntryConfig struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Start uint64 `json:"start"`
	End   uint64 `json:"end,omitempty"`
}

// Default returns the built-in settings: default plan, one worker per CPU.
// Pinning stays off unless pin_threads or --pin asks for it.
func Default() Config {
	return Config{
		Plan:     plan.DefaultName,
		Threads:  min(runtime.NumCPU(), constants.MaxThreads),
		LogLevel: zerolog.InfoLevel.String(),
	}
}

// Load reads and validates a config file layered over Default().
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes JWCC bytes layered over Default() and validates the result.
func Parse(data []byte) (Config, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w: invalid JWCC: %w", ErrConfigInvalid, err)
	}
	cfg := Default()
	if err := sonnet.Unmarshal(std, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: invalid JSON: %w", ErrConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field and that the selected plan resolves.
func (c Config) Validate() error {
	if c.Threads < 0 || c.Threads > constants.MaxThreads {
		return fmt.Errorf("%w: threads %d not in [0, %d]", ErrConfigInvalid, c.Threads, constants.MaxThreads)
	}
	if c.BlockSize != 0 && (c.BlockSize < constants.MinBlockSize || c.BlockSize > constants.MaxBlockSize) {
		return fmt.Errorf("%w: block_size %d not in [%d, %d]",
			ErrConfigInvalid, c.BlockSize, constants.MinBlockSize, constants.MaxBlockSize)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrConfigInvalid, err)
	}
	if _, err := c.ResolvePlan(); err != nil {
		return err
	}
	return nil
}

// PlanSet builds every custom plan into a set layered over the stock plans.
func (c Config) PlanSet() (*plan.Set, error) {
	set := plan.NewSet()
	for _, pc := range c.Plans {
		size := pc.BlockSize
		if size == 0 {
			size = constants.DefaultBlockSize
		}
		entries := make([]plan.Entry, len(pc.Entries))
		for i, e := range pc.Entries {
			end := e.End
			if end == 0 && i == len(pc.Entries)-1 {
				end = plan.Unbounded
			}
			entries[i] = plan.Entry{Name: e.Name, Kind: e.Kind, Start: e.Start, End: end}
		}
		p, err := plan.New(pc.Name, size, entries)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
		}
		if err := set.Add(p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
		}
	}
	return set, nil
}

// ResolvePlan returns the selected plan with BlockSize applied.
func (c Config) ResolvePlan() (*plan.Plan, error) {
	set, err := c.PlanSet()
	if err != nil {
		return nil, err
	}
	p, err := set.Lookup(c.Plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	if c.BlockSize != 0 {
		if p, err = p.WithBlockSize(c.BlockSize); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
		}
	}
	return p, nil
}

// RunOptions converts the settings into sieve options.
func (c Config) RunOptions() sieve.Options {
	return sieve.Options{
		Threads:      c.Threads,
		BlocksPerRun: c.BlocksPerRun,
		Pin:          c.PinThreads,
	}
}

// ApplyLogging sets the process log level.
func (c Config) ApplyLogging() error {
	return debug.SetLevel(c.LogLevel)
}
