package artifact

import (
	"archive/zip"
	"fmt"
	"os"
	"strings"

	"totalistic-ca/pkg/sims/totalistic"
)

// Archive writes trajectories into a .npz file, one "<name>.npy" member per
// run, stored uncompressed as numpy.savez does.
type Archive struct {
	f *os.File
	w *zip.Writer
}

// CreateArchive creates or truncates the archive at path.
func CreateArchive(path string) (*Archive, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &Archive{f: f, w: zip.NewWriter(f)}, nil
}

// Add appends traj under name.
func (a *Archive) Add(name string, traj totalistic.Trajectory) error {
	member, err := a.w.CreateHeader(&zip.FileHeader{Name: name + ".npy", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("archive member %s: %w", name, err)
	}
	return EncodeTrajectory(member, traj)
}

// Close finalises the archive directory and closes the file.
func (a *Archive) Close() error {
	werr := a.w.Close()
	ferr := a.f.Close()
	if werr != nil {
		return fmt.Errorf("finish archive: %w", werr)
	}
	return ferr
}

// ReadArchive loads every member of a .npz file keyed by name without the
// .npy suffix.
func ReadArchive(path string) (map[string]totalistic.Trajectory, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer zr.Close()

	out := make(map[string]totalistic.Trajectory, len(zr.File))
	for _, member := range zr.File {
		rc, err := member.Open()
		if err != nil {
			return nil, fmt.Errorf("open member %s: %w", member.Name, err)
		}
		traj, err := ReadTrajectory(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", member.Name, err)
		}
		out[strings.TrimSuffix(member.Name, ".npy")] = traj
	}
	return out, nil
}
