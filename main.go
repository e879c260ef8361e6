// ════════════════════════════════════════════════════════════════════════════════════════════════
// Wheel Sieve - Main Entry Point
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Command-line driver
//
// Description:
//   Counts the primes in [start, end) with a configured plan, or compares two plans.
//   Config file → flag overrides → run → report
//
// Architecture:
//   - Phase 1: settings from config.Default, an optional JWCC file, then flags
//   - Phase 2: bootstrap and main phase inside sieve.New / Advance
//   - Phase 3: summary to stdout, optional JSON file and SQLite run log
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"wheelsieve/config"
	"wheelsieve/debug"
	"wheelsieve/plan"
	"wheelsieve/report"
	"wheelsieve/sieve"
	"wheelsieve/verify"
)

var errUsage = errors.New("usage")

// clock and auditBlocks are replaced in tests.
var (
	clock       = time.Now
	auditBlocks = auditRange
)

// flags holds the parsed command line. Only flags the user set override the config.
type flags struct {
	set *flag.FlagSet

	configPath string
	start, end uint64
	planName   string
	compare    string
	blockSize  int
	threads    int
	perRun     uint64
	pin        bool
	logLevel   string
	reportJSON string
	reportDB   string
	audit      bool
	listPlans  bool
}

func parseFlags(args []string, errOut io.Writer) (*flags, error) {
	f := &flags{set: flag.NewFlagSet("wheelsieve", flag.ContinueOnError)}
	fs := f.set
	fs.SetOutput(errOut)

	fs.StringVarP(&f.configPath, "config", "c", "", "JWCC config file")
	fs.Uint64Var(&f.start, "start", 0, "first number of the range (inclusive)")
	fs.Uint64Var(&f.end, "end", 0, "end of the range (exclusive)")
	fs.StringVarP(&f.planName, "plan", "p", "", "plan name")
	fs.StringVar(&f.compare, "compare", "", "compare against this plan instead of reporting")
	fs.IntVar(&f.blockSize, "block-size", 0, "block size in bytes (0 keeps the plan's)")
	fs.IntVarP(&f.threads, "threads", "t", 0, "worker threads (0 computes inline)")
	fs.Uint64Var(&f.perRun, "blocks-per-run", 0, "block indices claimed per fetch (0 = auto)")
	fs.BoolVar(&f.pin, "pin", false, "pin workers to cores")
	fs.StringVar(&f.logLevel, "log-level", "", "zerolog level")
	fs.StringVar(&f.reportJSON, "json", "", "write the run summary to this JSON file")
	fs.StringVar(&f.reportDB, "db", "", "append the run summary to this SQLite log")
	fs.BoolVar(&f.audit, "audit", false, "check every block by trial division (small ranges only)")
	fs.BoolVar(&f.listPlans, "list-plans", false, "print the known plan names")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// settings layers the set flags over the config file.
func (f *flags) settings() (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}
	fs := f.set
	if fs.Changed("plan") {
		cfg.Plan = f.planName
	}
	if fs.Changed("block-size") {
		cfg.BlockSize = f.blockSize
	}
	if fs.Changed("threads") {
		cfg.Threads = f.threads
	}
	if fs.Changed("blocks-per-run") {
		cfg.BlocksPerRun = f.perRun
	}
	if fs.Changed("pin") {
		cfg.PinThreads = f.pin
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("json") {
		cfg.ReportJSON = f.reportJSON
	}
	if fs.Changed("db") {
		cfg.ReportDB = f.reportDB
	}
	return cfg, cfg.Validate()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// MAIN ORCHESTRATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func main() {
	setupSignalHandling()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one invocation and returns the exit code.
func run(args []string, out, errOut io.Writer) int {
	f, err := parseFlags(args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	debug.SetOutput(errOut)

	cfg, err := f.settings()
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	if err := cfg.ApplyLogging(); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	if f.listPlans {
		set, err := cfg.PlanSet()
		if err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}
		for _, name := range set.Names() {
			fmt.Fprintln(out, name)
		}
		return 0
	}

	if !f.set.Changed("end") {
		fmt.Fprintln(errOut, "error:", fmt.Errorf("%w: --end is required", errUsage))
		return 2
	}

	p, err := cfg.ResolvePlan()
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	if f.compare != "" {
		err = comparePlans(cfg, p, f.start, f.end, f.compare)
	} else {
		err = countRange(cfg, p, f.start, f.end, f.audit, out)
	}
	if err != nil {
		debug.DropError("RUN", err)
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	if f.compare != "" {
		fmt.Fprintf(out, "%s and %s agree on [%d, %d)\n", p.Name, f.compare, f.start, f.end)
	}
	return 0
}

func comparePlans(cfg config.Config, p *plan.Plan, start, end uint64, other string) error {
	alt := cfg
	alt.Plan = other
	q, err := alt.ResolvePlan()
	if err != nil {
		return err
	}
	if q, err = q.WithBlockSize(p.BlockSize); err != nil {
		return err
	}
	return verify.ComparePlans(start, end, p, q, cfg.RunOptions())
}

// countRange counts [start, end), prints the summary and files it where configured.
// Elapsed covers the counting run only, never the audit pass.
func countRange(cfg config.Config, p *plan.Plan, start, end uint64, audit bool, out io.Writer) error {
	if audit {
		if err := auditBlocks(cfg, p, start, end); err != nil {
			return err
		}
	}

	began := clock()

	r, err := sieve.New(start, end, p, cfg.RunOptions())
	if err != nil {
		return err
	}
	debug.DropMessage("MAIN", "counting "+p.String())
	d := verify.Consume(r)
	if err := r.Close(); err != nil {
		return err
	}

	s := report.Summary{
		Start:      start,
		End:        end,
		Plan:       p.String(),
		Threads:    cfg.Threads,
		BlockSize:  p.BlockSize,
		Elapsed:    clock().Sub(began).Seconds(),
		FinishedAt: clock().UTC(),
	}.FromDigest(d)

	fmt.Fprintf(out, "primes in [%d, %d): %d\n", start, end, s.Count)
	fmt.Fprintf(out, "plan %s, %d blocks, %.3fs, sha3 %s\n", s.Plan, s.Blocks, s.Elapsed, s.Fingerprint)

	if cfg.ReportJSON != "" {
		if err := report.WriteJSON(cfg.ReportJSON, s); err != nil {
			return err
		}
	}
	if cfg.ReportDB != "" {
		st, err := report.OpenStore(cfg.ReportDB)
		if err != nil {
			return err
		}
		if err := st.Record(s); err != nil {
			st.Close()
			return err
		}
		return st.Close()
	}
	return nil
}

func auditRange(cfg config.Config, p *plan.Plan, start, end uint64) error {
	r, err := sieve.New(start, end, p, cfg.RunOptions())
	if err != nil {
		return err
	}
	defer r.Close()
	for r.Advance() {
		if err := verify.CheckBlock(r.Block(), start, end); err != nil {
			return err
		}
	}
	debug.DropMessage("AUDIT", "every block matches trial division")
	return nil
}

// setupSignalHandling exits promptly on SIGINT/SIGTERM.
func setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		debug.DropMessage("SIGNAL", "received "+sig.String())
		os.Exit(130)
	}()
}
