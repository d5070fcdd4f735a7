// Package batch runs many independent simulations in fixed-size concurrent
// batches.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"totalistic-ca/internal/core"
	pcore "totalistic-ca/pkg/core"
	"totalistic-ca/pkg/sims/totalistic"
)

// Mode selects what each run produces.
type Mode int

const (
	// ModeTrajectory records the full trajectory of every run.
	ModeTrajectory Mode = iota
	// ModeTransient only keeps the detected transient.
	ModeTransient
)

func (m Mode) String() string {
	switch m {
	case ModeTrajectory:
		return "trajectory"
	case ModeTransient:
		return "transient"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	ErrNoRuns      = errors.New("run count must be positive")
	ErrNoWorkers   = errors.New("worker count must be positive")
	ErrNoEngine    = errors.New("job has no engine")
	ErrRunPanicked = errors.New("run panicked")
	ErrUnknownMode = errors.New("unknown run mode")
)

// RunError reports the failure of a single run.
type RunError struct {
	Index int
	Err   error
}

func (e *RunError) Error() string { return fmt.Sprintf("run %d: %v", e.Index, e.Err) }

func (e *RunError) Unwrap() error { return e.Err }

// Job is the configuration shared by every run of a batch. Engine is shared
// read-only between goroutines.
type Job struct {
	Rows, Cols int
	Steps      int
	Engine     *totalistic.Engine
	Mode       Mode
	// Seed is the base seed; run i draws its initial grid from stream i+1.
	Seed int64
}

func (j Job) validate() error {
	if j.Engine == nil {
		return ErrNoEngine
	}
	if j.Mode != ModeTrajectory && j.Mode != ModeTransient {
		return fmt.Errorf("%w: %v", ErrUnknownMode, j.Mode)
	}
	if j.Rows <= 0 || j.Cols <= 0 {
		return fmt.Errorf("%w: %dx%d", core.ErrEmptyGrid, j.Rows, j.Cols)
	}
	if j.Steps < 1 {
		return fmt.Errorf("%w: got %d", totalistic.ErrNoSteps, j.Steps)
	}
	return nil
}

// Result is the outcome of one run, tagged with its index. Transient is set
// in both modes; in trajectory mode it is scanned from Trajectory and its
// States share grids with it.
type Result struct {
	Index      int
	Initial    *core.Grid
	Trajectory totalistic.Trajectory
	Transient  totalistic.Transient
}

// Summary describes a completed scheduling pass.
type Summary struct {
	Runs    int
	Batches int
	Found   int
	Elapsed time.Duration
}

// Scheduler splits N runs into batches of Workers concurrent runs. A batch
// is fully joined before the next one starts.
type Scheduler struct {
	Workers int
	Logger  *log.Logger
	// Sink receives each result in run-index order once its batch has
	// finished. A Sink error stops the scheduler.
	Sink func(Result) error

	throttle *core.Throttle
}

// Plan returns the batch sizes used for n runs on w workers: floor(n/w) full
// batches followed by one batch of n mod w, when non-zero.
func Plan(n, w int) []int {
	if n <= 0 || w <= 0 {
		return nil
	}
	sizes := make([]int, 0, n/w+1)
	for i := 0; i < n/w; i++ {
		sizes = append(sizes, w)
	}
	if rem := n % w; rem > 0 {
		sizes = append(sizes, rem)
	}
	return sizes
}

// Run executes n runs of job. Context cancellation is honoured between
// batches; a failing run fails its batch and ends the pass.
func (s *Scheduler) Run(ctx context.Context, n int, job Job) (Summary, error) {
	if n <= 0 {
		return Summary{}, fmt.Errorf("%w: got %d", ErrNoRuns, n)
	}
	if s.Workers <= 0 {
		return Summary{}, fmt.Errorf("%w: got %d", ErrNoWorkers, s.Workers)
	}
	if err := job.validate(); err != nil {
		return Summary{}, err
	}
	if s.throttle == nil {
		s.throttle = core.NewThrottle(1)
	}

	start := time.Now()
	sum := Summary{}
	next := 0
	plan := Plan(n, s.Workers)
	for b, size := range plan {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		results, err := s.runBatch(ctx, next, size, job)
		if err != nil {
			return sum, fmt.Errorf("batch %d: %w", b, err)
		}
		for _, res := range results {
			if res.Transient.Found {
				sum.Found++
			}
			if s.Sink != nil {
				if err := s.Sink(res); err != nil {
					return sum, fmt.Errorf("sink run %d: %w", res.Index, err)
				}
			}
		}
		next += size
		sum.Runs = next
		sum.Batches = b + 1
		if s.Logger != nil && (s.throttle.Ready() || b == len(plan)-1) {
			s.Logger.Printf("batch %d/%d done: %d/%d runs, %s elapsed", b+1, len(plan), next, n, time.Since(start).Round(time.Millisecond))
		}
	}
	sum.Elapsed = time.Since(start)
	return sum, nil
}

func (s *Scheduler) runBatch(ctx context.Context, first, size int, job Job) ([]Result, error) {
	results := make([]Result, size)
	g, _ := errgroup.WithContext(ctx)
	for i := 0; i < size; i++ {
		g.Go(func() (err error) {
			idx := first + i
			defer func() {
				if r := recover(); r != nil {
					err = &RunError{Index: idx, Err: fmt.Errorf("%w: %v\n%s", ErrRunPanicked, r, debug.Stack())}
				}
			}()
			res, err := execute(idx, job)
			if err != nil {
				return &RunError{Index: idx, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// InitialGrid draws the initial condition of run idx: every cell uniform in
// [0, S) from PCG stream idx+1 of the job seed.
func InitialGrid(job Job, idx int) (*core.Grid, error) {
	g, err := core.NewGrid(job.Rows, job.Cols)
	if err != nil {
		return nil, err
	}
	rng := pcore.NewStream(job.Seed, uint64(idx)+1)
	pcore.FillUniform(rng.Source(), g.Cells(), job.Engine.Table().States())
	return g, nil
}

// execute performs a single run; replaced in tests.
var execute = runOne

func runOne(idx int, job Job) (Result, error) {
	initial, err := InitialGrid(job, idx)
	if err != nil {
		return Result{}, err
	}
	res := Result{Index: idx, Initial: initial}
	switch job.Mode {
	case ModeTransient:
		res.Transient, err = job.Engine.DetectTransient(initial, job.Steps)
	case ModeTrajectory:
		if res.Trajectory, err = job.Engine.Simulate(initial, job.Steps); err == nil {
			res.Transient = totalistic.FindRepeat(res.Trajectory)
		}
	default:
		err = fmt.Errorf("%w: %v", ErrUnknownMode, job.Mode)
	}
	return res, err
}

// Collect runs the scheduler and gathers every result indexed by run.
func Collect(ctx context.Context, s *Scheduler, n int, job Job) ([]Result, Summary, error) {
	out := make([]Result, 0, max(n, 0))
	inner := *s
	inner.Sink = func(r Result) error {
		out = append(out, r)
		if s.Sink != nil {
			return s.Sink(r)
		}
		return nil
	}
	sum, err := inner.Run(ctx, n, job)
	return out, sum, err
}
