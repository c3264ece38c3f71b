// Package store serializes simulation trajectories for later plotting.
package store

import (
	"encoding/json"
	"os"

	"github.com/san-kum/epifield/internal/solver"
)

// Trajectory is an archive of snapshots keyed by named fields. X and Y
// hold the grid coordinates (Y empty for 1D, both empty for lumped
// runs); 2D fields are flat row-major with y as the row index.
type Trajectory struct {
	Model string      `json:"model"`
	X     []float64   `json:"x,omitempty"`
	Y     []float64   `json:"y,omitempty"`
	Times []float64   `json:"time"`
	S     [][]float64 `json:"S"`
	I     [][]float64 `json:"I"`
	R     [][]float64 `json:"R"`
}

// NewTrajectory starts an archive for the given model and grid coordinates.
func NewTrajectory(model string, x, y []float64) *Trajectory {
	return &Trajectory{Model: model, X: x, Y: y}
}

// Append records one snapshot. Frames are already deep copies, so they
// are stored as-is.
func (tr *Trajectory) Append(f solver.Frame) {
	tr.Times = append(tr.Times, f.Time)
	tr.S = append(tr.S, f.S)
	tr.I = append(tr.I, f.I)
	tr.R = append(tr.R, f.R)
}

// ExportJSON writes the trajectory to path as indented JSON.
func ExportJSON(path string, tr *Trajectory) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(tr)
}
