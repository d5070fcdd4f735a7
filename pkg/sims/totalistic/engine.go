package totalistic

import (
	"fmt"

	"totalistic-ca/internal/core"
)

// Engine applies a rule table to grids. It holds no mutable state and can be
// shared by concurrent runs.
type Engine struct {
	table *core.Table
	on    core.StateID
}

// New returns an Engine counting the conventional on-state, S-1.
func New(table *core.Table) *Engine {
	return &Engine{table: table, on: table.OnState()}
}

// NewWithOnState returns an Engine counting an explicit on-state.
func NewWithOnState(table *core.Table, on core.StateID) (*Engine, error) {
	if int(on) >= table.States() {
		return nil, fmt.Errorf("%w: on-state %d, states = %d", core.ErrStateOutOfRange, on, table.States())
	}
	return &Engine{table: table, on: on}, nil
}

// Table returns the rule table.
func (e *Engine) Table() *core.Table { return e.table }

// OnState returns the state counted as an active neighbour.
func (e *Engine) OnState() core.StateID { return e.on }

// Step returns the successor of g. g is not modified. Cells must already be
// valid states of the table; Simulate checks this once per trajectory.
func (e *Engine) Step(g *core.Grid) *core.Grid {
	return Step(g, e.table, e.on)
}

// Step computes next[r,c] = table[g[r,c], neighbours[r,c]] into a new grid.
func Step(g *core.Grid, table *core.Table, on core.StateID) *core.Grid {
	counts := CountNeighbors(g, on)
	next := g.Blank()
	src, dst, n := g.Cells(), next.Cells(), counts.Cells()
	for i, s := range src {
		dst[i] = table.Next(s, n[i])
	}
	return next
}
