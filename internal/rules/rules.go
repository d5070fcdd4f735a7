// Package rules loads or generates rule tables and registers the "file" and
// "random" sources with the core registry.
package rules

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"totalistic-ca/internal/artifact"
	"totalistic-ca/internal/core"
	pcore "totalistic-ca/pkg/core"
)

// RuleStream is the RNG stream reserved for random rule tables so they never
// share draws with per-run initial conditions.
const RuleStream = 1 << 63

// Delimiter separates the nine entries of a rule-table line.
const Delimiter = ","

var (
	ErrNoPath   = errors.New("rule file path is required")
	ErrNoStates = errors.New("number of states must be positive")
)

// ParseError locates a malformed rule-table line.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads one rule-table row per line, each line holding exactly nine
// non-negative integers separated by Delimiter. Blank lines are skipped. name
// is only used in error messages.
func Parse(r io.Reader, name string) (*core.Table, error) {
	var rows [][]int
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, Delimiter)
		if len(fields) != core.TableColumns {
			return nil, &ParseError{Path: name, Line: line, Err: fmt.Errorf("%w, got %d", core.ErrColumnCount, len(fields))}
		}
		row := make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 16)
			if err != nil {
				return nil, &ParseError{Path: name, Line: line, Column: i + 1, Err: err}
			}
			row[i] = int(v)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	table, err := core.NewTable(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return table, nil
}

// LoadFile reads a rule table from path. Files ending in .npy are decoded as
// an integer array of shape (S, 9); anything else is parsed as delimited text.
func LoadFile(path string) (*core.Table, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rule file: %w", err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".npy") {
		return artifact.ReadRuleTable(f)
	}
	return Parse(f, path)
}

// Random draws an S x 9 table with entries uniform in [0, S).
func Random(states int, rng *pcore.RNG) (*core.Table, error) {
	if states <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNoStates, states)
	}
	if states > core.MaxStates {
		return nil, fmt.Errorf("%w: %d > %d", core.ErrTooManyStates, states, core.MaxStates)
	}
	rows := make([][]int, states)
	for s := range rows {
		rows[s] = make([]int, core.TableColumns)
		for n := range rows[s] {
			rows[s][n] = int(rng.Uint8n(states))
		}
	}
	return core.NewTable(rows)
}

func init() {
	core.Register("file", func(cfg map[string]string) (*core.Table, error) {
		return LoadFile(cfg["path"])
	})
	core.Register("random", func(cfg map[string]string) (*core.Table, error) {
		states, err := strconv.Atoi(cfg["states"])
		if err != nil {
			return nil, fmt.Errorf("random rule states %q: %w", cfg["states"], err)
		}
		var seed int64
		if v, ok := cfg["seed"]; ok {
			if seed, err = strconv.ParseInt(v, 10, 64); err != nil {
				return nil, fmt.Errorf("random rule seed %q: %w", v, err)
			}
		}
		return Random(states, pcore.NewStream(seed, RuleStream))
	})
}
