package core

import (
	"fmt"
	"slices"
)

const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

// Grid stores a 2D grid of cell states in row-major order. Grids produced by
// the engine are treated as immutable snapshots once returned.
type Grid struct {
	Rows, Cols int
	data       []StateID
}

// NewGrid allocates a zeroed grid with the given dimensions.
func NewGrid(rows, cols int) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyGrid, rows, cols)
	}
	return &Grid{Rows: rows, Cols: cols, data: make([]StateID, rows*cols)}, nil
}

// GridFromRows builds a grid from nested rows of raw state values. Every row
// must have the same length and every value must fit a StateID.
func GridFromRows(rows [][]int) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	g, err := NewGrid(len(rows), len(rows[0]))
	if err != nil {
		return nil, err
	}
	for r, row := range rows {
		if len(row) != g.Cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRaggedGrid, r, len(row), g.Cols)
		}
		for c, v := range row {
			if v < 0 || v >= MaxStates {
				return nil, fmt.Errorf("%w: cell (%d,%d) = %d", ErrStateOutOfRange, r, c, v)
			}
			g.data[r*g.Cols+c] = StateID(v)
		}
	}
	return g, nil
}

// CheckShape reports ErrEmptyGrid unless the grid has positive dimensions
// backed by exactly Rows*Cols cells. Hand-built grids can fail this.
func (g *Grid) CheckShape() error {
	if g == nil {
		return ErrEmptyGrid
	}
	if g.Rows <= 0 || g.Cols <= 0 || len(g.data) != g.Rows*g.Cols {
		return fmt.Errorf("%w: %dx%d with %d cells", ErrEmptyGrid, g.Rows, g.Cols, len(g.data))
	}
	return nil
}

// Blank returns a zeroed grid with the same shape.
func (g *Grid) Blank() *Grid {
	return &Grid{Rows: g.Rows, Cols: g.Cols, data: make([]StateID, len(g.data))}
}

// Cells exposes the backing slice so callers can read/write values directly.
func (g *Grid) Cells() []StateID { return g.data }

// Index returns the linear slice index for coordinates (r, c).
func (g *Grid) Index(r, c int) int { return r*g.Cols + c }

// At returns the state at (r, c).
func (g *Grid) At(r, c int) StateID { return g.data[r*g.Cols+c] }

// Set writes the state at (r, c).
func (g *Grid) Set(r, c int, s StateID) { g.data[r*g.Cols+c] = s }

// Wrap applies toroidal wrapping to the provided coordinates.
func (g *Grid) Wrap(r, c int) (int, int) {
	r = (r%g.Rows + g.Rows) % g.Rows
	c = (c%g.Cols + g.Cols) % g.Cols
	return r, c
}

// SameShape reports whether both grids have identical dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return g.Rows == o.Rows && g.Cols == o.Cols
}

// Equal reports element-wise equality.
func (g *Grid) Equal(o *Grid) bool {
	if g == o {
		return true
	}
	if g == nil || o == nil || !g.SameShape(o) {
		return false
	}
	return slices.Equal(g.data, o.data)
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	return &Grid{Rows: g.Rows, Cols: g.Cols, data: slices.Clone(g.data)}
}

// Shift returns a copy of the grid rotated toroidally by (dr, dc): the cell
// at (r, c) moves to (r+dr, c+dc).
func (g *Grid) Shift(dr, dc int) *Grid {
	out := &Grid{Rows: g.Rows, Cols: g.Cols, data: make([]StateID, len(g.data))}
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			nr, nc := g.Wrap(r+dr, c+dc)
			out.data[nr*g.Cols+nc] = g.data[r*g.Cols+c]
		}
	}
	return out
}

// Hash returns a 64-bit FNV-1a fingerprint of the grid contents and shape.
// Equal grids hash equally; the converse must be confirmed with Equal.
func (g *Grid) Hash() uint64 {
	h := uint64(fnvOffset)
	for _, v := range [2]int{g.Rows, g.Cols} {
		for shift := 0; shift < 32; shift += 8 {
			h ^= uint64(byte(v >> shift))
			h *= fnvPrime
		}
	}
	for _, v := range g.data {
		h ^= uint64(v)
		h *= fnvPrime
	}
	return h
}

// Uint32 returns the cells widened for array persistence.
func (g *Grid) Uint32() []uint32 {
	out := make([]uint32, len(g.data))
	for i, v := range g.data {
		out[i] = uint32(v)
	}
	return out
}

// String renders the grid one row per line, mainly for test failures.
func (g *Grid) String() string {
	buf := make([]byte, 0, g.Rows*(g.Cols*4+1))
	for r := 0; r < g.Rows; r++ {
		buf = append(buf, '[')
		for c := 0; c < g.Cols; c++ {
			if c > 0 {
				buf = append(buf, ' ')
			}
			buf = fmt.Appendf(buf, "%d", g.At(r, c))
		}
		buf = append(buf, ']', '\n')
	}
	return string(buf)
}
