package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-planner/internal/config"
	"car-planner/internal/lattice"
	"car-planner/internal/mapio"
	"car-planner/internal/planner"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// setup writes a 6 m map with an occupied block around (4.5, 4.5) and a
// config file with the given body lines.
func setup(t *testing.T, lines string) (dir, cfg, mapPath string) {
	t.Helper()
	dir = t.TempDir()
	m, err := lattice.NewMap[bool]([]float64{0, 0}, []float64{6, 6}, []float64{0.1, 0.1})
	require.NoError(t, err)
	for id := range m.Cells() {
		c := m.Center(id)
		m.SetAt(id, c[0] > 4 && c[0] < 5 && c[1] > 4 && c[1] < 5)
	}
	mapPath = filepath.Join(dir, "map.png")
	require.NoError(t, mapio.SaveOccupancy(mapPath, m))
	cfg = filepath.Join(dir, "planner.cfg")
	body := fmt.Sprintf(lines, mapPath)
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))
	return dir, cfg, mapPath
}

func TestPlanDefaultCommand(t *testing.T) {
	dir, cfg, mapPath := setup(t, "map %s\nstart 0 1 1\ngoal 0 5 2\n")
	out := filepath.Join(dir, "out")
	stdout, err := execute(t, cfg, "--out-dir", out, "--log-level", "warn")
	require.NoError(t, err)
	assert.Contains(t, stdout, "path:")
	assert.FileExists(t, filepath.Join(out, planner.PathImage))
	assert.FileExists(t, filepath.Join(out, planner.PrimImage))
	assert.FileExists(t, planner.CMapPath(mapPath))
}

func TestPlanReportsInvalidGoal(t *testing.T) {
	dir, cfg, _ := setup(t, "map %s\nstart 0 1 1\ngoal 0 4.5 4.5\n")
	out := filepath.Join(dir, "out")
	stdout, err := execute(t, "plan", cfg, "--out-dir", out, "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "no path:")
	assert.FileExists(t, filepath.Join(out, planner.PathImage))
}

func TestMissingMap(t *testing.T) {
	_, cfg, mapPath := setup(t, "# no map %s\nstart 0 1 1\n")
	_, err := execute(t, "plan", cfg)
	assert.ErrorIs(t, err, config.ErrMissingParameter)

	dir := filepath.Dir(cfg)
	stdout, err := execute(t, "plan", cfg, "--map", mapPath, "--out-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote")
}

func TestCMapCommand(t *testing.T) {
	dir, cfg, mapPath := setup(t, "map %s\ngeom 0.6 0.3 0.1 0\n")
	slices := filepath.Join(dir, "slices")
	stdout, err := execute(t, "cmap", cfg, "--slices", "--out-dir", slices)
	require.NoError(t, err)
	assert.Contains(t, stdout, planner.CMapPath(mapPath))

	cmap, err := lattice.LoadFile(planner.CMapPath(mapPath), 3, lattice.WithWrap(0))
	require.NoError(t, err)
	assert.Equal(t, []int{16, 60, 60}, cmap.Dims())
	entries, err := os.ReadDir(slices)
	require.NoError(t, err)
	assert.Len(t, entries, 16)
}

func TestBadFlags(t *testing.T) {
	_, cfg, _ := setup(t, "map %s\n")
	_, err := execute(t, "plan", cfg, "--log-level", "loud")
	assert.Error(t, err)
	_, err = execute(t, "plan", cfg, "--log-format", "xml")
	assert.Error(t, err)
	_, err = execute(t, "plan")
	assert.Error(t, err)
}
