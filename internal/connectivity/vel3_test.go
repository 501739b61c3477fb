package connectivity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-planner/internal/cost"
	"car-planner/internal/grid"
	"car-planner/internal/search"
	"car-planner/internal/vel3"
)

func newVel3Grid(t *testing.T) *grid.Vel3Grid {
	t.Helper()
	g, err := grid.NewVel3Grid([3]float64{0, 0, 0}, [3]float64{5, 5, 3}, [3]float64{1, 1, 1}, 8, 5)
	require.NoError(t, err)
	return g
}

func TestVel3Successors(t *testing.T) {
	g := newVel3Grid(t)
	conn, err := NewVel3(g, DefaultMaxYawStep, DefaultMaxPitchStep)
	require.NoError(t, err)

	from, err := g.Index(vel3.State{X: 2.5, Y: 2.5, Z: 1.5})
	require.NoError(t, err)
	out, swept := conn.Successors(from)

	// forward, 45 degrees left or right, each level, climbing or descending
	assert.Len(t, out, 9)
	assert.Equal(t, 9, conn.Cached())
	origin := g.Center(from)
	for _, tr := range out {
		to := g.Center(tr.To)
		assert.Greater(t, to.X, origin.X)
		assert.LessOrEqual(t, math.Abs(to.Yaw), math.Pi/4+1e-9)
		assert.GreaterOrEqual(t, tr.Cost, origin.Distance(to)-1e-9)
		assert.Equal(t, origin, tr.Poses[0])
		assert.Contains(t, swept, tr.To)
	}

	// the same motions from another cell reuse the cached curves
	other, err := g.Index(vel3.State{X: 1.5, Y: 2.5, Z: 1.5})
	require.NoError(t, err)
	again, _ := conn.Successors(other)
	assert.Len(t, again, 9)
	assert.Equal(t, 9, conn.Cached())
}

func TestVel3TurnLimit(t *testing.T) {
	g := newVel3Grid(t)
	conn, err := NewVel3(g, 2, 2)
	require.NoError(t, err)
	from, err := g.Index(vel3.State{X: 2.5, Y: 2.5, Z: 1.5})
	require.NoError(t, err)
	out, _ := conn.Successors(from)
	// everything but the nine backward moves; vertical moves keep the yaw
	assert.Len(t, out, 26-9)

	_, err = NewVel3(g, -1, 0)
	assert.ErrorIs(t, err, ErrInvalidPrimitiveConfig)
}

func TestVel3BlockedPosition(t *testing.T) {
	g := newVel3Grid(t)
	conn, err := NewVel3(g, DefaultMaxYawStep, DefaultMaxPitchStep)
	require.NoError(t, err)
	from, err := g.Index(vel3.State{X: 2.5, Y: 2.5, Z: 1.5})
	require.NoError(t, err)
	ahead, err := g.Index(vel3.State{X: 3.5, Y: 2.5, Z: 1.5})
	require.NoError(t, err)

	ids, err := g.SetPositionCost(3, 2, 1, grid.Blocked)
	require.NoError(t, err)
	assert.Len(t, ids, 8*5)
	tc, err := g.PositionCost(3, 2, 1)
	require.NoError(t, err)
	assert.True(t, tc.IsBlocked())

	out, swept := conn.Successors(from)
	assert.Contains(t, swept, ahead)
	for _, tr := range out {
		assert.NotEqual(t, ahead, tr.To)
	}
}

func TestVel3Search(t *testing.T) {
	g := newVel3Grid(t)
	conn, err := NewVel3(g, DefaultMaxYawStep, DefaultMaxPitchStep)
	require.NoError(t, err)
	s := search.New[vel3.State](g, conn, cost.NewVel3())
	require.NoError(t, s.SetStart(vel3.State{X: 0.5, Y: 2.5, Z: 1.5}))
	require.NoError(t, s.SetGoal(vel3.State{X: 4.5, Y: 2.5, Z: 1.5}))

	path, err := s.Plan()
	require.NoError(t, err)
	assert.InDelta(t, 4, path.Cost, 1e-9)
	assert.Len(t, path.Cells, 5)

	ids, err := g.SetPositionCost(2, 2, 1, grid.Blocked)
	require.NoError(t, err)
	s.Notify(ids...)
	detour, err := s.Plan()
	require.NoError(t, err)
	assert.Greater(t, detour.Cost, 4.0)
	for _, c := range detour.Cells {
		blocked := int(c.X) == 2 && int(c.Y) == 2 && int(c.Z) == 1
		assert.False(t, blocked, "path enters the blocked position at %v", c)
	}
	last := detour.Cells[len(detour.Cells)-1]
	assert.InDelta(t, 0, last.Yaw, 1e-9)
	assert.InDelta(t, 0, last.Pitch, 1e-9)
}
