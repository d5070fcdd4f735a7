package briansbrain

import "totalistic-ca/internal/core"

// States are ordered so the firing state is the highest index and therefore
// the conventional on-state.
const (
	stateDead   = 0
	stateDying  = 1
	stateFiring = 2
)

// Table returns Brian's Brain as a three-state outer-totalistic table: a
// dead cell fires with exactly two firing neighbours, firing cells start
// dying, dying cells die.
func Table() *core.Table {
	rows := make([][]int, 3)
	for s := range rows {
		rows[s] = make([]int, core.TableColumns)
	}
	for n := 0; n < core.TableColumns; n++ {
		rows[stateDead][n] = stateDead
		rows[stateDying][n] = stateDead
		rows[stateFiring][n] = stateDying
	}
	rows[stateDead][2] = stateFiring
	return core.MustTable(rows)
}

func init() {
	core.Register("briansbrain", func(map[string]string) (*core.Table, error) {
		return Table(), nil
	})
}
