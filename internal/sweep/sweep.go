// Package sweep scores many random rule tables by the transients they
// produce, reusing the batch scheduler for the runs of each table.
package sweep

import (
	"context"
	"fmt"
	"log"
	"sort"

	"totalistic-ca/internal/batch"
	"totalistic-ca/internal/rules"
	pcore "totalistic-ca/pkg/core"
	"totalistic-ca/pkg/sims/totalistic"
)

// Config controls a sweep. Table k with S states is drawn from the rule
// stream of seed Seed+k, so any candidate can be regenerated with
// `ca -r S -seed <seed>`.
type Config struct {
	States  []int
	Tables  int
	Grid    int
	Steps   int
	Runs    int
	Workers int
	Seed    int64
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{States: []int{2, 3, 4}, Tables: 8, Grid: 32, Steps: 256, Runs: 16, Workers: 4, Seed: 1}
}

// Result scores one candidate table.
type Result struct {
	States     int
	Seed       int64
	Found      int
	Runs       int
	MeanLength float64
	MaxLength  int
}

func (r Result) String() string {
	return fmt.Sprintf("states=%d seed=%d found=%d/%d mean=%.2f max=%d",
		r.States, r.Seed, r.Found, r.Runs, r.MeanLength, r.MaxLength)
}

// Run evaluates every candidate and returns them ordered by mean transient
// length, longest first. Runs without a repeat are excluded from the mean.
func Run(ctx context.Context, cfg Config, logger *log.Logger) ([]Result, error) {
	var out []Result
	for _, states := range cfg.States {
		for k := 0; k < cfg.Tables; k++ {
			seed := cfg.Seed + int64(k)
			table, err := rules.Random(states, pcore.NewStream(seed, rules.RuleStream))
			if err != nil {
				return nil, err
			}
			res := Result{States: states, Seed: seed}
			var total int
			sched := &batch.Scheduler{Workers: cfg.Workers, Sink: func(r batch.Result) error {
				res.Runs++
				if !r.Transient.Found {
					return nil
				}
				res.Found++
				total += r.Transient.Length
				res.MaxLength = max(res.MaxLength, r.Transient.Length)
				return nil
			}}
			job := batch.Job{
				Rows: cfg.Grid, Cols: cfg.Grid, Steps: cfg.Steps,
				Engine: totalistic.New(table), Mode: batch.ModeTransient, Seed: seed,
			}
			if _, err := sched.Run(ctx, cfg.Runs, job); err != nil {
				return nil, fmt.Errorf("states %d seed %d: %w", states, seed, err)
			}
			if res.Found > 0 {
				res.MeanLength = float64(total) / float64(res.Found)
			}
			if logger != nil {
				logger.Printf("scored %s", res)
			}
			out = append(out, res)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].MeanLength > out[j].MeanLength })
	return out, nil
}
