package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"totalistic-ca/internal/artifact"
	"totalistic-ca/internal/batch"
	"totalistic-ca/internal/core"
	"totalistic-ca/internal/ledger"
	_ "totalistic-ca/internal/rules"
	_ "totalistic-ca/internal/sims/briansbrain"
	_ "totalistic-ca/pkg/sims/life"
	"totalistic-ca/pkg/sims/totalistic"
)

// Report summarises a completed invocation. Transients holds the Found and
// Length of each run in index order, without grids.
type Report struct {
	BatchID    string
	RuleName   string
	States     int
	Mode       batch.Mode
	Summary    batch.Summary
	Transients []totalistic.Transient
	Files      []string
}

// Execute builds the rule table, runs every simulation and persists the
// requested artifacts. cfg must already be validated.
func Execute(ctx context.Context, cfg *Config, logger *log.Logger) (*Report, error) {
	name, params, err := cfg.RuleSource()
	if err != nil {
		return nil, err
	}
	table, err := core.Rules()[name](params)
	if err != nil {
		return nil, fmt.Errorf("rule table: %w", err)
	}
	engine := totalistic.New(table)

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	mode := batch.ModeTrajectory
	if cfg.Transient {
		mode = batch.ModeTransient
	}
	report := &Report{RuleName: name, States: table.States(), Mode: mode}

	if cfg.SaveRules {
		path := filepath.Join(cfg.OutDir, artifact.RuleTableFile)
		logger.Printf("saving rules to %s", path)
		if err := artifact.WriteRuleTable(path, table); err != nil {
			return nil, err
		}
		report.Files = append(report.Files, path)
	}

	var archive *artifact.Archive
	if mode == batch.ModeTrajectory && cfg.SaveAll {
		path := filepath.Join(cfg.OutDir, artifact.TimeSeriesFile)
		if archive, err = artifact.CreateArchive(path); err != nil {
			return nil, err
		}
		defer func() {
			if archive != nil {
				archive.Close()
			}
		}()
		report.Files = append(report.Files, path)
	}

	var db *ledger.DB
	var record *ledger.Batch
	if cfg.Ledger != "" {
		if db, err = ledger.Open(cfg.Ledger); err != nil {
			return nil, err
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return nil, err
		}
		record = &ledger.Batch{
			Mode: mode.String(), RuleName: name, States: table.States(),
			Rows: cfg.Grid, Cols: cfg.Grid, Steps: cfg.Steps, Runs: cfg.Runs,
			Workers: cfg.Threads, Seed: cfg.Seed,
		}
		if err := db.SaveBatch(record); err != nil {
			return nil, err
		}
		report.BatchID = record.ID
	}

	transients := make([]totalistic.Transient, 0, cfg.Runs)
	runs := make([]ledger.Run, 0, cfg.Runs)
	sink := func(res batch.Result) error {
		if archive != nil {
			if err := archive.Add(strconv.Itoa(res.Index), res.Trajectory); err != nil {
				return err
			}
		}
		// Report transients carry no States.
		tr := totalistic.Transient{Found: res.Transient.Found, Length: res.Transient.Length}
		transients = append(transients, tr)
		if record != nil {
			runs = append(runs, ledger.Run{
				BatchID:  record.ID,
				Index:    res.Index,
				Found:    tr.Found,
				Length:   tr.Length,
				Archived: archive != nil,
			})
		}
		return nil
	}

	start := time.Now()
	fail := func(err error) (*Report, error) {
		if db != nil {
			if ferr := db.FailBatch(record.ID, err, time.Since(start)); ferr != nil {
				logger.Printf("failed to mark batch %s failed: %v", record.ID, ferr)
			}
		}
		return report, err
	}

	sched := &batch.Scheduler{Workers: cfg.Threads, Logger: logger, Sink: sink}
	job := batch.Job{Rows: cfg.Grid, Cols: cfg.Grid, Steps: cfg.Steps, Engine: engine, Mode: mode, Seed: cfg.Seed}
	logger.Printf("running %d %s simulations of %dx%d for %d steps on %d workers (rule %s, %d states)",
		cfg.Runs, mode, cfg.Grid, cfg.Grid, cfg.Steps, cfg.Threads, name, table.States())
	sum, err := sched.Run(ctx, cfg.Runs, job)
	report.Summary = sum
	report.Transients = transients
	if err != nil {
		return fail(err)
	}

	if archive != nil {
		err := archive.Close()
		archive = nil
		if err != nil {
			return fail(err)
		}
	}
	if mode == batch.ModeTransient {
		path := filepath.Join(cfg.OutDir, artifact.TransientsFile)
		if err := artifact.WriteTransients(path, transients); err != nil {
			return fail(err)
		}
		report.Files = append(report.Files, path)
	}
	if db != nil {
		if err := db.SaveRuns(runs); err != nil {
			return fail(err)
		}
		if err := db.FinishBatch(record.ID, sum.Found, sum.Elapsed); err != nil {
			return report, err
		}
	}
	logger.Printf("done in %s: %d/%d runs repeated within %d steps", sum.Elapsed.Round(time.Millisecond), sum.Found, sum.Runs, cfg.Steps)
	return report, nil
}
