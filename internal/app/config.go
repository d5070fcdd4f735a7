package app

import (
	"errors"
	"flag"
	"fmt"
	"runtime"
	"strconv"

	"totalistic-ca/internal/core"
)

var (
	ErrRuleSource = errors.New("exactly one of -f, -r or -rule is required")
	ErrArgs       = errors.New("expected positional arguments: <grid> <steps> <runs>")
)

// Usage is printed above the flag defaults.
const Usage = `usage: ca {-r num_states | -f rule_file | -rule preset} [flags] <grid> <steps> <runs>

Simulates <runs> outer-totalistic automata on <grid>x<grid> toroidal grids for
<steps> states each, starting from uniformly random initial conditions.
`

// Config represents the command-line parameters for the application.
type Config struct {
	RuleFile     string
	RandomStates int
	Rule         string
	Threads      int
	Seed         int64
	Transient    bool
	SaveRules    bool
	SaveAll      bool
	OutDir       string
	Ledger       string

	Grid  int
	Steps int
	Runs  int
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{Threads: runtime.NumCPU(), Seed: 42, OutDir: "data"}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	for _, name := range []string{"f", "file"} {
		fs.StringVar(&c.RuleFile, name, c.RuleFile, "path to a rule table (comma-separated text or .npy)")
	}
	for _, name := range []string{"r", "random"} {
		fs.IntVar(&c.RandomStates, name, c.RandomStates, "generate a random rule table with this many states")
	}
	for _, name := range []string{"t", "threads"} {
		fs.IntVar(&c.Threads, name, c.Threads, "number of concurrent runs per batch")
	}
	fs.StringVar(&c.Rule, "rule", c.Rule, "built-in rule preset (life, briansbrain)")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "base seed for random rule tables and initial conditions")
	fs.BoolVar(&c.Transient, "transient", c.Transient, "simulate for <steps> and only record the transient length")
	fs.BoolVar(&c.SaveRules, "save-rules", c.SaveRules, "write the rule table to <out>/rule_table.npy")
	fs.BoolVar(&c.SaveAll, "save-all", c.SaveAll, "write every state of every run to <out>/time_series.npz")
	fs.StringVar(&c.OutDir, "out", c.OutDir, "output directory")
	fs.StringVar(&c.Ledger, "ledger", c.Ledger, "optional SQLite ledger recording batches and runs")
}

// ParseArgs reads the positional <grid> <steps> <runs> arguments.
func (c *Config) ParseArgs(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w, got %d", ErrArgs, len(args))
	}
	dst := []*int{&c.Grid, &c.Steps, &c.Runs}
	for i, name := range []string{"grid", "steps", "runs"} {
		v, err := strconv.Atoi(args[i])
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", name, err)
		}
		*dst[i] = v
	}
	return nil
}

// Validate checks ranges and that a single rule source was chosen.
func (c *Config) Validate() error {
	if _, _, err := c.RuleSource(); err != nil {
		return err
	}
	if c.Grid <= 0 {
		return fmt.Errorf("grid must be positive, got %d", c.Grid)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", c.Steps)
	}
	if c.Runs <= 0 {
		return fmt.Errorf("runs must be positive, got %d", c.Runs)
	}
	if c.Threads <= 0 {
		return fmt.Errorf("threads must be positive, got %d", c.Threads)
	}
	if c.OutDir == "" {
		return errors.New("output directory must not be empty")
	}
	return nil
}

// RuleSource names the registered rule factory and its configuration map.
func (c *Config) RuleSource() (string, map[string]string, error) {
	chosen := 0
	if c.RuleFile != "" {
		chosen++
	}
	if c.RandomStates != 0 {
		chosen++
	}
	if c.Rule != "" {
		chosen++
	}
	if chosen != 1 {
		return "", nil, ErrRuleSource
	}
	switch {
	case c.RuleFile != "":
		return "file", map[string]string{"path": c.RuleFile}, nil
	case c.RandomStates != 0:
		if c.RandomStates < 0 || c.RandomStates > core.MaxStates {
			return "", nil, fmt.Errorf("random states must be in [1,%d], got %d", core.MaxStates, c.RandomStates)
		}
		return "random", map[string]string{
			"states": strconv.Itoa(c.RandomStates),
			"seed":   strconv.FormatInt(c.Seed, 10),
		}, nil
	default:
		if _, ok := core.Rules()[c.Rule]; !ok {
			return "", nil, fmt.Errorf("unknown rule preset %q", c.Rule)
		}
		return c.Rule, nil, nil
	}
}
