// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go - Cold-path structured logging helper
//
// Purpose:
//   - Logs run phase transitions and failures through one zerolog logger.
//   - Used only in cold paths: run init, bootstrap done, pipeline start/stop.
//
// Notes:
//   - Output is JSON lines on stderr by default; SetOutput redirects it.
//   - The logger is swapped atomically, so reconfiguring never races callers.
//
// ⚠️ Never invoke in per-block loops - use only at phase boundaries.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	current atomic.Pointer[zerolog.Logger]
	level   atomic.Int32
)

func init() {
	level.Store(int32(zerolog.InfoLevel))
	SetOutput(os.Stderr)
}

// SetOutput sends all further log lines to w.
func SetOutput(w io.Writer) {
	l := zerolog.New(w).With().Timestamp().Logger().Level(zerolog.Level(level.Load()))
	current.Store(&l)
}

// SetLevel parses a zerolog level name ("debug", "info", "warn", …).
// An empty name keeps the current level.
func SetLevel(name string) error {
	if name == "" {
		return nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return err
	}
	level.Store(int32(lvl))
	l := current.Load().Level(lvl)
	current.Store(&l)
	return nil
}

// Logger returns the active logger for structured fields.
//
//go:nosplit
//go:inline
func Logger() *zerolog.Logger {
	return current.Load()
}

// DropError logs err under prefix. A nil err logs the prefix as a warning.
//
//go:inline
func DropError(prefix string, err error) {
	if err != nil {
		Logger().Error().Str("component", prefix).Err(err).Send()
		return
	}
	Logger().Warn().Str("component", prefix).Send()
}

// DropMessage logs an informational message under prefix.
//
//go:inline
func DropMessage(prefix, message string) {
	Logger().Info().Str("component", prefix).Msg(message)
}
