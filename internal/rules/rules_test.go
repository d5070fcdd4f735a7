package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"totalistic-ca/internal/artifact"
	"totalistic-ca/internal/core"
	pcore "totalistic-ca/pkg/core"
)

const sample = `2,0,1,1,1,1,2,2,2
0,0,0,0,0,0,0,0,1
0,0,0,0,0,2,2,2,2
`

func TestParse(t *testing.T) {
	table, err := Parse(strings.NewReader(sample), "sample")
	if err != nil {
		t.Fatal(err)
	}
	if table.States() != 3 || table.OnState() != 2 {
		t.Fatalf("states=%d on=%d", table.States(), table.OnState())
	}
	if table.Next(2, 5) != 2 || table.Next(0, 0) != 2 || table.Next(1, 8) != 1 {
		t.Fatalf("unexpected table %v", table.Rows())
	}
}

func TestParseErrorsCarryLocation(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		line   int
		column int
		want   error
	}{
		{"short line", "0,0,0,0,0,0,0,0,0\n0,0,0\n", 2, 0, core.ErrColumnCount},
		{"bad token", "0,0,0,0,x,0,0,0,0\n", 1, 5, strconv.ErrSyntax},
		{"negative", "0,0,0,0,0,0,0,0,-1\n", 1, 9, strconv.ErrSyntax},
	}
	for _, tc := range cases {
		_, err := Parse(strings.NewReader(tc.input), "rules.csv")
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: err = %v, want *ParseError", tc.name, err)
		}
		if pe.Line != tc.line || pe.Column != tc.column {
			t.Fatalf("%s: located at %d:%d, want %d:%d", tc.name, pe.Line, pe.Column, tc.line, tc.column)
		}
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestParseRejectsOutOfRangeEntries(t *testing.T) {
	_, err := Parse(strings.NewReader("0,0,0,0,0,0,0,0,1\n"), "one-state")
	if !errors.Is(err, core.ErrStateOutOfRange) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "rules.csv")
	if err := os.WriteFile(text, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	fromText, err := LoadFile(text)
	if err != nil {
		t.Fatal(err)
	}

	npy := filepath.Join(dir, artifact.RuleTableFile)
	if err := artifact.WriteRuleTable(npy, fromText); err != nil {
		t.Fatal(err)
	}
	fromNpy, err := LoadFile(npy)
	if err != nil {
		t.Fatal(err)
	}
	if fromNpy.States() != fromText.States() {
		t.Fatalf("npy table has %d states, want %d", fromNpy.States(), fromText.States())
	}
	for s := 0; s < fromText.States(); s++ {
		for n := 0; n < core.TableColumns; n++ {
			if fromNpy.Next(core.StateID(s), core.NeighborCount(n)) != fromText.Next(core.StateID(s), core.NeighborCount(n)) {
				t.Fatalf("entry (%d,%d) differs after npy round trip", s, n)
			}
		}
	}

	if _, err := LoadFile(""); !errors.Is(err, ErrNoPath) {
		t.Fatalf("empty path err = %v", err)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file err = %v", err)
	}
}

func TestRandom(t *testing.T) {
	a, err := Random(5, pcore.NewRNG(11))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Random(5, pcore.NewRNG(11))
	if a.States() != 5 {
		t.Fatalf("states = %d", a.States())
	}
	ra, rb := a.Rows(), b.Rows()
	for s := range ra {
		for n := range ra[s] {
			if ra[s][n] != rb[s][n] {
				t.Fatal("same seed produced different tables")
			}
			if ra[s][n] < 0 || ra[s][n] >= 5 {
				t.Fatalf("entry %d out of range", ra[s][n])
			}
		}
	}
	if _, err := Random(0, pcore.NewRNG(1)); !errors.Is(err, ErrNoStates) {
		t.Fatalf("Random(0) err = %v", err)
	}
	if _, err := Random(core.MaxStates+1, pcore.NewRNG(1)); !errors.Is(err, core.ErrTooManyStates) {
		t.Fatalf("Random(257) err = %v", err)
	}
}

func TestRegisteredSources(t *testing.T) {
	random, ok := core.Rules()["random"]
	if !ok {
		t.Fatal("random source not registered")
	}
	table, err := random(map[string]string{"states": "4", "seed": "9"})
	if err != nil || table.States() != 4 {
		t.Fatalf("random source: %v, %v", table, err)
	}
	if _, err := random(map[string]string{"states": "four"}); err == nil {
		t.Fatal("non-numeric states must fail")
	}

	file, ok := core.Rules()["file"]
	if !ok {
		t.Fatal("file source not registered")
	}
	if _, err := file(map[string]string{}); !errors.Is(err, ErrNoPath) {
		t.Fatalf("file source without path err = %v", err)
	}
}
