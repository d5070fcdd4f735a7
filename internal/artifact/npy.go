// Package artifact persists rule tables, transient lengths and trajectories
// as NumPy .npy arrays and .npz archives.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gorgonia.org/tensor"

	"totalistic-ca/internal/core"
	"totalistic-ca/pkg/sims/totalistic"
)

var ErrBadArray = errors.New("unexpected array")

// File names used under the output directory.
const (
	RuleTableFile  = "rule_table.npy"
	TransientsFile = "transients.npy"
	TimeSeriesFile = "time_series.npz"
)

func encodeUint32(w io.Writer, data []uint32, shape ...int) error {
	t := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
	if err := t.WriteNpy(w); err != nil {
		return fmt.Errorf("encode npy %v: %w", shape, err)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

// EncodeRuleTable writes t as a uint32 array of shape (S, 9).
func EncodeRuleTable(w io.Writer, t *core.Table) error {
	return encodeUint32(w, t.Uint32(), t.States(), core.TableColumns)
}

// WriteRuleTable writes t to path as .npy.
func WriteRuleTable(path string, t *core.Table) error {
	return writeFile(path, func(w io.Writer) error { return EncodeRuleTable(w, t) })
}

// WriteTransients writes one uint32 per run: the transient length, or 0 when
// no repeat was found.
func WriteTransients(path string, transients []totalistic.Transient) error {
	lengths := make([]uint32, len(transients))
	for i, tr := range transients {
		lengths[i] = tr.PersistedLength()
	}
	return writeFile(path, func(w io.Writer) error {
		return encodeUint32(w, lengths, len(lengths))
	})
}

// EncodeTrajectory writes traj as a uint32 array of shape (steps, rows, cols).
func EncodeTrajectory(w io.Writer, traj totalistic.Trajectory) error {
	if len(traj) == 0 {
		return fmt.Errorf("%w: empty trajectory", ErrBadArray)
	}
	return encodeUint32(w, traj.Uint32(), len(traj), traj[0].Rows, traj[0].Cols)
}

// Decode reads an integer .npy array and returns its shape and values.
func Decode(r io.Reader) ([]int, []int, error) {
	t := new(tensor.Dense)
	if err := t.ReadNpy(r); err != nil {
		return nil, nil, fmt.Errorf("decode npy: %w", err)
	}
	values, err := toInts(t.Data())
	if err != nil {
		return nil, nil, err
	}
	return []int(t.Shape().Clone()), values, nil
}

// ReadRuleTable decodes an (S, 9) integer array into a validated table.
func ReadRuleTable(r io.Reader) (*core.Table, error) {
	shape, values, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if len(shape) != 2 || shape[1] != core.TableColumns {
		return nil, fmt.Errorf("%w: rule table shape %v", ErrBadArray, shape)
	}
	rows := make([][]int, shape[0])
	for i := range rows {
		rows[i] = values[i*core.TableColumns : (i+1)*core.TableColumns]
	}
	return core.NewTable(rows)
}

// ReadTrajectory decodes a (steps, rows, cols) array into grids.
func ReadTrajectory(r io.Reader) (totalistic.Trajectory, error) {
	shape, values, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if len(shape) != 3 {
		return nil, fmt.Errorf("%w: trajectory shape %v", ErrBadArray, shape)
	}
	steps, rows, cols := shape[0], shape[1], shape[2]
	out := make(totalistic.Trajectory, steps)
	per := rows * cols
	for i := range out {
		g, err := core.NewGrid(rows, cols)
		if err != nil {
			return nil, err
		}
		cells := g.Cells()
		for j, v := range values[i*per : (i+1)*per] {
			if v < 0 || v >= core.MaxStates {
				return nil, fmt.Errorf("%w: state %d", core.ErrStateOutOfRange, v)
			}
			cells[j] = core.StateID(v)
		}
		out[i] = g
	}
	return out, nil
}

func toInts(data interface{}) ([]int, error) {
	switch d := data.(type) {
	case []uint32:
		return widen(d), nil
	case []int64:
		return widen(d), nil
	case []int:
		return append([]int(nil), d...), nil
	case []int32:
		return widen(d), nil
	case []uint64:
		return widen(d), nil
	case []uint16:
		return widen(d), nil
	case []int16:
		return widen(d), nil
	case []uint8:
		return widen(d), nil
	case []int8:
		return widen(d), nil
	case []uint:
		return widen(d), nil
	// single-element arrays may come back as scalars
	case uint32:
		return []int{int(d)}, nil
	case int64:
		return []int{int(d)}, nil
	case int:
		return []int{d}, nil
	default:
		return nil, fmt.Errorf("%w: element type %T", ErrBadArray, data)
	}
}

func widen[T ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](in []T) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
