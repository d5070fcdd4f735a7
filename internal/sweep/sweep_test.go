package sweep

import (
	"context"
	"testing"

	"totalistic-ca/internal/batch"
	"totalistic-ca/internal/rules"
	pcore "totalistic-ca/pkg/core"
	"totalistic-ca/pkg/sims/totalistic"
)

func TestSweepScoresEveryCandidate(t *testing.T) {
	cfg := Config{States: []int{2, 3}, Tables: 3, Grid: 6, Steps: 40, Runs: 5, Workers: 2, Seed: 10}
	results, err := Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 6 {
		t.Fatalf("got %d results, want 6", len(results))
	}
	for i, r := range results {
		if r.Runs != cfg.Runs {
			t.Fatalf("%s: %d runs scored, want %d", r, r.Runs, cfg.Runs)
		}
		if r.Found > r.Runs || float64(r.MaxLength) < r.MeanLength {
			t.Fatalf("inconsistent score %s", r)
		}
		if i > 0 && results[i-1].MeanLength < r.MeanLength {
			t.Fatalf("results not sorted at %d", i)
		}
	}
}

func TestSweepCandidateIsReproducible(t *testing.T) {
	cfg := Config{States: []int{3}, Tables: 1, Grid: 5, Steps: 30, Runs: 4, Workers: 4, Seed: 77}
	results, err := Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := results[0]

	table, err := rules.Random(3, pcore.NewStream(77, rules.RuleStream))
	if err != nil {
		t.Fatal(err)
	}
	job := batch.Job{Rows: 5, Cols: 5, Steps: 30, Engine: totalistic.New(table), Mode: batch.ModeTransient, Seed: 77}
	found := 0
	for i := 0; i < cfg.Runs; i++ {
		initial, err := batch.InitialGrid(job, i)
		if err != nil {
			t.Fatal(err)
		}
		tr, err := job.Engine.DetectTransient(initial, job.Steps)
		if err != nil {
			t.Fatal(err)
		}
		if tr.Found {
			found++
		}
	}
	if found != got.Found {
		t.Fatalf("re-running candidate found %d repeats, sweep reported %d", found, got.Found)
	}
}
