package core

import "fmt"

// Table is an immutable outer-totalistic rule table: row = current state,
// column = on-state neighbour count, value = next state. A *Table is safe to
// share between goroutines.
type Table struct {
	states int
	next   []StateID
}

// NewTable validates rows and builds a Table. Every row must have exactly
// TableColumns entries and every entry must be a valid state (< len(rows)).
func NewTable(rows [][]int) (*Table, error) {
	s := len(rows)
	if s == 0 {
		return nil, ErrNoStates
	}
	if s > MaxStates {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyStates, s, MaxStates)
	}
	t := &Table{states: s, next: make([]StateID, s*TableColumns)}
	for r, row := range rows {
		if len(row) != TableColumns {
			return nil, fmt.Errorf("%w: row %d has %d", ErrColumnCount, r, len(row))
		}
		for c, v := range row {
			if v < 0 || v >= s {
				return nil, fmt.Errorf("%w: entry (%d,%d) = %d, states = %d", ErrStateOutOfRange, r, c, v, s)
			}
			t.next[r*TableColumns+c] = StateID(v)
		}
	}
	return t, nil
}

// MustTable is NewTable for static tables; it panics on invalid input.
func MustTable(rows [][]int) *Table {
	t, err := NewTable(rows)
	if err != nil {
		panic(err)
	}
	return t
}

// States returns S, the number of rows.
func (t *Table) States() int { return t.states }

// OnState returns the conventional counted state, S-1.
func (t *Table) OnState() StateID { return StateID(t.states - 1) }

// State converts a raw value into a StateID valid for this table.
func (t *Table) State(v int) (StateID, error) {
	if v < 0 || v >= t.states {
		return 0, fmt.Errorf("%w: %d not in [0,%d)", ErrStateOutOfRange, v, t.states)
	}
	return StateID(v), nil
}

// Next looks up the successor of state s with n on-state neighbours. Both
// arguments must already be in range.
func (t *Table) Next(s StateID, n NeighborCount) StateID {
	return t.next[int(s)*TableColumns+int(n)]
}

// Validate reports whether g is well formed and every cell is a state of
// this table.
func (t *Table) Validate(g *Grid) error {
	if err := g.CheckShape(); err != nil {
		return err
	}
	for i, v := range g.Cells() {
		if int(v) >= t.states {
			return fmt.Errorf("%w: cell (%d,%d) = %d, states = %d", ErrStateOutOfRange, i/g.Cols, i%g.Cols, v, t.states)
		}
	}
	return nil
}

// Rows returns a copy of the table as nested ints.
func (t *Table) Rows() [][]int {
	out := make([][]int, t.states)
	for r := range out {
		row := make([]int, TableColumns)
		for c := range row {
			row[c] = int(t.next[r*TableColumns+c])
		}
		out[r] = row
	}
	return out
}

// Uint32 returns the table flattened row-major for array persistence.
func (t *Table) Uint32() []uint32 {
	out := make([]uint32, len(t.next))
	for i, v := range t.next {
		out[i] = uint32(v)
	}
	return out
}
