package totalistic

import (
	"fmt"

	"totalistic-ca/internal/core"
)

// Transient describes the non-periodic prefix of a trajectory.
//
// When Found is true, Length is the index of the first occurrence of the
// earliest repeated grid and States holds trajectory[0:Length]. When Found is
// false no grid repeated within the horizon; Length is 0 and States is empty.
type Transient struct {
	Found  bool
	Length int
	States Trajectory
}

// PersistedLength is the value written to transient arrays: Length when a
// repeat was found, 0 otherwise.
func (t Transient) PersistedLength() uint32 {
	if !t.Found {
		return 0
	}
	return uint32(t.Length)
}

// seen indexes grids by content hash; colliding hashes fall back to Equal.
type seen map[uint64][]int

func (s seen) match(traj Trajectory, g *core.Grid, h uint64) (int, bool) {
	for _, idx := range s[h] {
		if traj[idx].Equal(g) {
			return idx, true
		}
	}
	return 0, false
}

// FindRepeat scans traj for the first index whose grid equals an earlier one
// and reports the earlier index as the transient length. traj is not
// modified; the returned States share grids with it.
func FindRepeat(traj Trajectory) Transient {
	index := make(seen, len(traj))
	for active, g := range traj {
		h := g.Hash()
		if check, ok := index.match(traj, g, h); ok {
			return Transient{Found: true, Length: check, States: traj[:check:check]}
		}
		index[h] = append(index[h], active)
	}
	return Transient{}
}

// DetectTransient simulates up to maxSteps grids from initial and returns the
// transient of that horizon. Simulation stops at the first repeat, which
// gives the same answer as scanning the full horizon.
func (e *Engine) DetectTransient(initial *core.Grid, maxSteps int) (Transient, error) {
	if maxSteps < 1 {
		return Transient{}, fmt.Errorf("%w: got %d", ErrNoSteps, maxSteps)
	}
	if err := e.table.Validate(initial); err != nil {
		return Transient{}, err
	}
	traj := make(Trajectory, 0, maxSteps)
	index := make(seen)
	g := initial
	for active := 0; active < maxSteps; active++ {
		if active > 0 {
			g = e.Step(g)
		}
		h := g.Hash()
		if check, ok := index.match(traj, g, h); ok {
			return Transient{Found: true, Length: check, States: traj[:check:check]}, nil
		}
		index[h] = append(index[h], active)
		traj = append(traj, g)
	}
	return Transient{}, nil
}
