package totalistic

import "totalistic-ca/internal/core"

// kernel is the Moore neighbourhood: every cell of the 3x3 window except the
// centre.
var kernel = [3][3]uint8{
	{1, 1, 1},
	{1, 0, 1},
	{1, 1, 1},
}

// Counts holds one NeighborCount per grid cell, row-major.
type Counts struct {
	Rows, Cols int
	data       []core.NeighborCount
}

// At returns the count for (r, c).
func (n *Counts) At(r, c int) core.NeighborCount { return n.data[r*n.Cols+c] }

// Cells exposes the backing slice.
func (n *Counts) Cells() []core.NeighborCount { return n.data }

// CountNeighbors returns, for every cell of g, how many of its eight toroidal
// neighbours are in state on. Degenerate shapes (1xN, Nx1, 1x1) wrap onto
// themselves, so a cell may count itself through the wrap.
func CountNeighbors(g *core.Grid, on core.StateID) *Counts {
	rows, cols := g.Rows, g.Cols
	padded := wrapMask(g, on)
	pc := cols + 2

	out := &Counts{Rows: rows, Cols: cols, data: make([]core.NeighborCount, rows*cols)}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var sum uint8
			for kr := 0; kr < 3; kr++ {
				base := (r+kr)*pc + c
				for kc := 0; kc < 3; kc++ {
					sum += kernel[kr][kc] * padded[base+kc]
				}
			}
			out.data[r*cols+c] = core.NeighborCount(sum)
		}
	}
	return out
}

// wrapMask builds the binary on-state mask of g padded by one cell on every
// side with copies of the opposite edge, so that a valid-mode 3x3 convolution
// over it yields toroidal neighbourhoods of the original shape.
func wrapMask(g *core.Grid, on core.StateID) []uint8 {
	rows, cols := g.Rows, g.Cols
	pc := cols + 2
	padded := make([]uint8, (rows+2)*pc)
	cells := g.Cells()
	for pr := 0; pr < rows+2; pr++ {
		sr := (pr - 1 + rows) % rows
		for pcol := 0; pcol < pc; pcol++ {
			sc := (pcol - 1 + cols) % cols
			if cells[sr*cols+sc] == on {
				padded[pr*pc+pcol] = 1
			}
		}
	}
	return padded
}
