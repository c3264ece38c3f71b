package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/epifield/internal/solver"
)

func TestExportJSONRoundtrip(t *testing.T) {
	tr := NewTrajectory("diffusion1d", []float64{0, 0.5, 1}, nil)
	tr.Append(solver.Frame{Time: 0, S: []float64{1, 1, 1}, I: []float64{0, 0.1, 0}, R: []float64{0, 0, 0}})
	tr.Append(solver.Frame{Time: 0.5, S: []float64{0.9, 0.8, 0.9}, I: []float64{0.1, 0.2, 0.1}, R: []float64{0, 0.1, 0}})

	path := filepath.Join(t.TempDir(), "traj.json")
	if err := ExportJSON(path, tr); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Trajectory
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.Model != "diffusion1d" {
		t.Errorf("model: got %q", got.Model)
	}
	if len(got.Times) != 2 || got.Times[1] != 0.5 {
		t.Errorf("times: got %v", got.Times)
	}
	if len(got.S) != 2 || got.S[1][1] != 0.8 {
		t.Errorf("S frames: got %v", got.S)
	}
	if got.I[0][1] != 0.1 {
		t.Errorf("I frame 0: got %v", got.I[0])
	}
	if len(got.Y) != 0 {
		t.Errorf("1D trajectory should have no y coordinates: %v", got.Y)
	}
}

func TestExportJSONBadPath(t *testing.T) {
	tr := NewTrajectory("lumped", nil, nil)
	if err := ExportJSON(filepath.Join(t.TempDir(), "missing", "traj.json"), tr); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
