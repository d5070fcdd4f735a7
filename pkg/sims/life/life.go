package life

import (
	"totalistic-ca/internal/core"
)

const (
	dead  = 0
	alive = 1
)

// Table returns Conway's Game of Life (B3/S23) as a two-state
// outer-totalistic table whose on-state is alive.
func Table() *core.Table {
	rows := make([][]int, 2)
	for s := range rows {
		rows[s] = make([]int, core.TableColumns)
		for n := range rows[s] {
			if (s == alive && (n == 2 || n == 3)) || (s == dead && n == 3) {
				rows[s][n] = alive
			}
		}
	}
	return core.MustTable(rows)
}

func init() {
	core.Register("life", func(map[string]string) (*core.Table, error) {
		return Table(), nil
	})
}
