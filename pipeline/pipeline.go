// ════════════════════════════════════════════════════════════════════════════════════════════════
// ⚡ CORE-PINNED BLOCK PIPELINE
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Parallel Block Computation With Ordered Consumption
//
// Description:
//   N workers, each locked to an OS thread and optionally pinned to one core, claim block
//   indices from a shared atomic counter and compute them into worker-private state. A single
//   consumer retrieves finished blocks strictly in ascending index order.
//
// Ordering Gate:
//   - Every worker publishes the index it is working on in `holding`.
//   - After computing it signals `ready` and parks on `release`.
//   - The consumer polls for the worker holding the expected index, waits on its `ready`,
//     and only releases it when asking for the following block.
//
// Unordered Mode:
//   Run hands each computed block to a callback on the worker itself; no gate is involved.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package pipeline

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"wheelsieve/debug"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONFIGURATION CONSTANTS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

const (
	// spinBudget sets the number of failed polls before yielding the consumer's thread.
	spinBudget = 224

	// idle marks a worker that holds no block.
	idle = math.MaxUint64
)

// Computer fills worker-private state for one block index.
type Computer interface {
	Compute(index uint64)
}

// Config describes one pipeline run over block indices [First, End).
type Config struct {
	First, End   uint64
	BlocksPerRun uint64 // indices claimed per counter fetch; 0 means 1
	Pin          bool   // bind worker i to core i
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CORE DATA STRUCTURES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// worker is one compute slot. Hot fields sit on their own cache line.
type worker struct {
	_       [64]byte
	holding atomic.Uint64 // block index in progress, idle when none
	_       [56]byte

	ready   chan struct{} // block computed
	release chan struct{} // consumer finished reading
	compute Computer
}

// Pipeline owns the workers of one run.
type Pipeline struct {
	cfg     Config
	workers []*worker

	next atomic.Uint64 // next unclaimed index
	stop atomic.Bool

	group     errgroup.Group
	started   bool
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}

	expected uint64 // consumer: next index to hand out
	current  int    // consumer: worker holding the last handed-out block, -1 if none
}

// New prepares one worker per computer. Workers start with Start or Run.
// Panics on an empty worker set or an inverted index range.
func New(cfg Config, computers []Computer) *Pipeline {
	if len(computers) == 0 {
		panic("pipeline: at least one worker required")
	}
	if cfg.End < cfg.First {
		panic("pipeline: end before first")
	}
	if cfg.BlocksPerRun == 0 {
		cfg.BlocksPerRun = 1
	}
	p := &Pipeline{
		cfg:      cfg,
		workers:  make([]*worker, len(computers)),
		done:     make(chan struct{}),
		expected: cfg.First,
		current:  -1,
	}
	p.next.Store(cfg.First)
	for i, c := range computers {
		w := &worker{
			ready:   make(chan struct{}, 1),
			release: make(chan struct{}, 1),
			compute: c,
		}
		w.holding.Store(idle)
		p.workers[i] = w
	}
	return p
}

// Workers reports the worker count.
func (p *Pipeline) Workers() int { return len(p.workers) }

// Done is closed once every worker has exited.
func (p *Pipeline) Done() <-chan struct{} { return p.done }

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// ORDERED MODE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Start launches the workers in ordered mode.
func (p *Pipeline) Start() {
	if p.started {
		panic("pipeline: started twice")
	}
	p.started = true
	debug.Logger().Debug().
		Int("workers", len(p.workers)).
		Uint64("first", p.cfg.First).
		Uint64("end", p.cfg.End).
		Uint64("blocks_per_run", p.cfg.BlocksPerRun).
		Msg("pipeline start")
	for i, w := range p.workers {
		p.group.Go(func() error {
			p.work(i, w, nil)
			return nil
		})
	}
	go p.join()
}

// Next releases the previously returned block and waits for the next one in
// index order. It returns the worker slot now holding that block, its index,
// and false once the range is exhausted.
func (p *Pipeline) Next() (slot int, index uint64, ok bool) {
	if p.current >= 0 {
		p.workers[p.current].release <- struct{}{}
		p.current = -1
	}
	if p.expected >= p.cfg.End || p.stop.Load() {
		return -1, 0, false
	}

	want := p.expected
	for miss := 0; ; miss++ {
		for i, w := range p.workers {
			if w.holding.Load() == want {
				<-w.ready
				p.current = i
				p.expected++
				return i, want, true
			}
		}
		if miss < spinBudget {
			cpuRelax()
		} else {
			runtime.Gosched()
		}
	}
}

// Close stops the workers, wakes any parked on their gate and waits for all
// of them to exit. Safe to call more than once and before exhaustion.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.stop.Store(true)
		for _, w := range p.workers {
			select {
			case w.release <- struct{}{}:
			default:
			}
		}
		if p.started {
			<-p.done
		}
		p.current = -1
	})
	return p.closeErr
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// UNORDERED MODE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Run computes every index and calls handler(slot, index) on the computing
// worker right after each block. Blocks are handled in no particular order;
// handler calls for one slot never overlap. Run returns when all workers exit.
func (p *Pipeline) Run(handler func(slot int, index uint64)) error {
	if p.started {
		panic("pipeline: started twice")
	}
	p.started = true
	for i, w := range p.workers {
		p.group.Go(func() error {
			p.work(i, w, handler)
			return nil
		})
	}
	p.join()
	return p.closeErr
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// WORKER LOOP
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// work claims BlocksPerRun indices at a time until the range is exhausted.
// With a nil handler every block passes through the ordering gate.
func (p *Pipeline) work(core int, w *worker, handler func(int, uint64)) {
	runtime.LockOSThread()
	if p.cfg.Pin {
		setAffinity(core)
	}
	defer func() {
		w.holding.Store(idle)
		runtime.UnlockOSThread()
	}()

	k := p.cfg.BlocksPerRun
	for {
		if p.stop.Load() {
			return
		}
		base := p.next.Add(k) - k
		if base >= p.cfg.End {
			return
		}
		last := min(base+k, p.cfg.End)
		for i := base; i < last; i++ {
			w.holding.Store(i)
			w.compute.Compute(i)

			if handler != nil {
				handler(core, i)
				continue
			}

			w.ready <- struct{}{}
			<-w.release
			if p.stop.Load() {
				return
			}
		}
	}
}

// join waits for every worker and closes done.
func (p *Pipeline) join() {
	p.closeErr = p.group.Wait()
	debug.Logger().Debug().Int("workers", len(p.workers)).Msg("pipeline stop")
	close(p.done)
}
