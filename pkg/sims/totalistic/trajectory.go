package totalistic

import (
	"errors"
	"fmt"

	"totalistic-ca/internal/core"
)

// ErrNoSteps is returned when a trajectory of zero states is requested.
var ErrNoSteps = errors.New("step count must be at least 1")

// Trajectory is an ordered sequence of grids: index 0 is the initial
// condition, index i the state after i steps.
type Trajectory []*core.Grid

// Uint32 flattens the trajectory into a (len, rows, cols) array.
func (t Trajectory) Uint32() []uint32 {
	if len(t) == 0 {
		return nil
	}
	per := t[0].Rows * t[0].Cols
	out := make([]uint32, 0, len(t)*per)
	for _, g := range t {
		out = append(out, g.Uint32()...)
	}
	return out
}

// Simulate returns a trajectory of exactly steps grids. Element 0 is initial
// itself; steps == 1 therefore performs no update.
func (e *Engine) Simulate(initial *core.Grid, steps int) (Trajectory, error) {
	if steps < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoSteps, steps)
	}
	if err := e.table.Validate(initial); err != nil {
		return nil, err
	}
	out := make(Trajectory, steps)
	out[0] = initial
	for i := 1; i < steps; i++ {
		out[i] = e.Step(out[i-1])
	}
	return out, nil
}
