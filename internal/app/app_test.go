package app

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"testing"

	"totalistic-ca/internal/artifact"
	"totalistic-ca/internal/batch"
	"totalistic-ca/internal/ledger"
	"totalistic-ca/pkg/sims/totalistic"
)

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	cfg := NewConfig()
	fs := flag.NewFlagSet("ca", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg.Bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.ParseArgs(fs.Args()); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func TestConfigParsesOriginalCommandLine(t *testing.T) {
	cfg, err := parse(t, "-r", "3", "-t", "4", "--transient", "--save-rules", "64", "200", "10")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RandomStates != 3 || cfg.Threads != 4 || !cfg.Transient || !cfg.SaveRules {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Grid != 64 || cfg.Steps != 200 || cfg.Runs != 10 {
		t.Fatalf("positional args parsed as %d %d %d", cfg.Grid, cfg.Steps, cfg.Runs)
	}
	name, params, err := cfg.RuleSource()
	if err != nil || name != "random" || params["states"] != "3" || params["seed"] != "42" {
		t.Fatalf("rule source %q %v %v", name, params, err)
	}
}

func TestConfigLongFlags(t *testing.T) {
	cfg, err := parse(t, "-file", "rules.csv", "-threads", "2", "-save-all", "8", "5", "1")
	if err != nil {
		t.Fatal(err)
	}
	name, params, _ := cfg.RuleSource()
	if name != "file" || params["path"] != "rules.csv" || cfg.Threads != 2 || !cfg.SaveAll {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want error
	}{
		{"no rule source", []string{"8", "5", "1"}, ErrRuleSource},
		{"two rule sources", []string{"-r", "2", "-rule", "life", "8", "5", "1"}, ErrRuleSource},
		{"missing positional", []string{"-rule", "life", "8", "5"}, ErrArgs},
		{"non-integer grid", []string{"-rule", "life", "eight", "5", "1"}, strconv.ErrSyntax},
	}
	for _, tc := range cases {
		if _, err := parse(t, tc.args...); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
	for _, args := range [][]string{
		{"-rule", "life", "0", "5", "1"},
		{"-rule", "life", "8", "0", "1"},
		{"-rule", "life", "8", "5", "0"},
		{"-rule", "life", "-t", "0", "8", "5", "1"},
		{"-rule", "nosuch", "8", "5", "1"},
		{"-r", "300", "8", "5", "1"},
	} {
		if _, err := parse(t, args...); err == nil {
			t.Fatalf("args %v: expected a validation error", args)
		}
	}
}

func TestExecuteTransientMode(t *testing.T) {
	dir := t.TempDir()
	cfg, err := parse(t, "-r", "3", "-t", "3", "-transient", "-save-rules",
		"-out", dir, "-ledger", filepath.Join(dir, "ledger.db"), "8", "50", "7")
	if err != nil {
		t.Fatal(err)
	}
	report, err := Execute(context.Background(), cfg, quiet())
	if err != nil {
		t.Fatal(err)
	}
	if report.Mode != batch.ModeTransient || report.Summary.Runs != 7 || len(report.Transients) != 7 {
		t.Fatalf("unexpected report %+v", report.Summary)
	}

	f, err := os.Open(filepath.Join(dir, artifact.TransientsFile))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	shape, values, err := artifact.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(shape, []int{7}) {
		t.Fatalf("transients shape %v", shape)
	}
	for i, tr := range report.Transients {
		if tr.States != nil {
			t.Fatalf("run %d report kept %d grids", i, len(tr.States))
		}
		if values[i] != int(tr.PersistedLength()) {
			t.Fatalf("run %d persisted %d, report %d", i, values[i], tr.PersistedLength())
		}
	}

	rf, err := os.Open(filepath.Join(dir, artifact.RuleTableFile))
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	table, err := artifact.ReadRuleTable(rf)
	if err != nil || table.States() != 3 {
		t.Fatalf("saved rule table: %v, %v", table, err)
	}

	db, err := ledger.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	b, err := db.GetBatch(report.BatchID)
	if err != nil {
		t.Fatal(err)
	}
	if b.Runs != 7 || b.Mode != "transient" || b.Found != report.Summary.Found || b.Status != ledger.StatusComplete {
		t.Fatalf("ledger batch %+v", b)
	}
	runs, err := db.ListRuns(report.BatchID)
	if err != nil || len(runs) != 7 {
		t.Fatalf("ledger runs %d, %v", len(runs), err)
	}
}

func TestExecuteTrajectoryMode(t *testing.T) {
	dir := t.TempDir()
	cfg, err := parse(t, "-rule", "life", "-t", "2", "-save-all", "-seed", "9", "-out", dir, "6", "4", "3")
	if err != nil {
		t.Fatal(err)
	}
	report, err := Execute(context.Background(), cfg, quiet())
	if err != nil {
		t.Fatal(err)
	}
	if report.BatchID != "" {
		t.Fatal("no ledger was requested")
	}

	members, err := artifact.ReadArchive(filepath.Join(dir, artifact.TimeSeriesFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 3 {
		t.Fatalf("archive holds %d runs, want 3", len(members))
	}
	job := batch.Job{Rows: 6, Cols: 6, Steps: 4, Seed: 9}
	for i := 0; i < 3; i++ {
		traj := members[strconv.Itoa(i)]
		if len(traj) != 4 {
			t.Fatalf("run %d stored %d states, want 4", i, len(traj))
		}
		job.Engine = totalistic.New(lifeTable(t))
		initial, err := batch.InitialGrid(job, i)
		if err != nil {
			t.Fatal(err)
		}
		want, err := job.Engine.Simulate(initial, 4)
		if err != nil {
			t.Fatal(err)
		}
		for s := range want {
			if !traj[s].Equal(want[s]) {
				t.Fatalf("run %d state %d differs from a fresh simulation", i, s)
			}
		}
	}
	if _, err := os.Stat(filepath.Join(dir, artifact.TransientsFile)); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("trajectory mode must not write transients")
	}
}

func TestExecuteTrajectoryModeLedger(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	cfg, err := parse(t, "-rule", "life", "-t", "3", "-out", dir, "-ledger", dbPath, "3", "30", "8")
	if err != nil {
		t.Fatal(err)
	}
	report, err := Execute(context.Background(), cfg, quiet())
	if err != nil {
		t.Fatal(err)
	}
	found := 0
	for i, tr := range report.Transients {
		if tr.States != nil {
			t.Fatalf("run %d report kept %d grids", i, len(tr.States))
		}
		if tr.Found {
			found++
		}
	}
	if found == 0 || report.Summary.Found != found {
		t.Fatalf("summary found %d, transients found %d", report.Summary.Found, found)
	}

	db, err := ledger.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	b, err := db.GetBatch(report.BatchID)
	if err != nil {
		t.Fatal(err)
	}
	runs, err := db.ListRuns(report.BatchID)
	if err != nil {
		t.Fatal(err)
	}
	rowsFound := 0
	for _, r := range runs {
		if r.Found {
			rowsFound++
		}
	}
	if b.Mode != "trajectory" || b.Found != rowsFound || b.Found != found || b.Status != ledger.StatusComplete {
		t.Fatalf("ledger batch found %d status %q, run rows found %d, report %d", b.Found, b.Status, rowsFound, found)
	}
}

func TestExecuteMarksFailedBatch(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	cfg, err := parse(t, "-rule", "life", "-t", "2", "-out", dir, "-ledger", dbPath, "4", "5", "4")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := Execute(ctx, cfg, quiet())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}

	db, err := ledger.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	b, err := db.GetBatch(report.BatchID)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != ledger.StatusFailed || b.Error == "" {
		t.Fatalf("batch status %q error %q", b.Status, b.Error)
	}
	if runs, err := db.ListRuns(report.BatchID); err != nil || len(runs) != 0 {
		t.Fatalf("failed batch has %d runs, %v", len(runs), err)
	}
}
