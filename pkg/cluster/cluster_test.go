package cluster_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edalab/phasornet/pkg/cluster"
	"github.com/edalab/phasornet/pkg/schematic"
)

func pt(x, y float64) schematic.Point { return schematic.Point{X: x, Y: y} }

func TestTolerance(t *testing.T) {
	assert.Equal(t, 6.0, cluster.Tolerance(10))  // floor(3.5) < 6
	assert.Equal(t, 7.0, cluster.Tolerance(20))  // floor(7)
	assert.Equal(t, 6.0, cluster.Tolerance(0.5)) // fine grids keep the floor
	assert.Equal(t, 35.0, cluster.Tolerance(100))
}

func TestBuild_MergesCoincidentTerminals(t *testing.T) {
	points := []cluster.TaggedPoint{
		{P: pt(100, 100), Role: cluster.RoleTerminalA, Owner: "R1"},
		{P: pt(102, 101), Role: cluster.RoleTerminalB, Owner: "V1"},
		{P: pt(500, 500), Role: cluster.RoleTerminalA, Owner: "R2"},
	}
	classes, classOf := cluster.Build(points, 20)

	require.Len(t, classes, 2)
	assert.Equal(t, classOf[0], classOf[1])
	assert.NotEqual(t, classOf[0], classOf[2])
}

func TestBuild_CentroidPosition(t *testing.T) {
	points := []cluster.TaggedPoint{
		{P: pt(100, 100), Role: cluster.RoleTerminalA, Owner: "R1"},
		{P: pt(104, 102), Role: cluster.RoleTerminalB, Owner: "V1"},
	}
	classes, _ := cluster.Build(points, 20)

	require.Len(t, classes, 1)
	assert.InDelta(t, 102, classes[0].Position.X, 1e-12)
	assert.InDelta(t, 101, classes[0].Position.Y, 1e-12)
}

func TestBuild_GroundFlag(t *testing.T) {
	points := []cluster.TaggedPoint{
		{P: pt(0, 0), Role: cluster.RoleTerminalB, Owner: "V1"},
		{P: pt(1, 1), Role: cluster.RoleGround, Owner: "G1"},
		{P: pt(300, 300), Role: cluster.RoleTerminalA, Owner: "R1"},
	}
	classes, classOf := cluster.Build(points, 20)

	require.Len(t, classes, 2)
	assert.True(t, classes[classOf[1]].Ground)
	assert.False(t, classes[classOf[2]].Ground)
}

// Tolerance monotonicity: two points at distance d merge for every tolerance
// >= d and never merge for tolerance < d.
func TestBuildWithTolerance_Monotonic(t *testing.T) {
	const d = 25.0
	points := []cluster.TaggedPoint{
		{P: pt(0, 0), Role: cluster.RoleTerminalA, Owner: "a"},
		{P: pt(d, 0), Role: cluster.RoleTerminalA, Owner: "b"},
	}

	for _, tol := range []float64{d, d + 1, d * 2, d * 10} {
		classes, _ := cluster.BuildWithTolerance(points, tol)
		assert.Len(t, classes, 1, "tolerance %v >= %v must merge", tol, d)
	}
	for _, tol := range []float64{0, 1, d - 1, math.Nextafter(d, 0)} {
		classes, _ := cluster.BuildWithTolerance(points, tol)
		assert.Len(t, classes, 2, "tolerance %v < %v must not merge", tol, d)
	}
}

// Points of one polyline bond to its first point even when they are far
// outside the geometric tolerance.
func TestBuild_WireContinuity(t *testing.T) {
	points := []cluster.TaggedPoint{
		{P: pt(0, 0), Role: cluster.RoleWirePoint, Owner: "w1"},
		{P: pt(1000, 0), Role: cluster.RoleWirePoint, Owner: "w1"},
		{P: pt(2000, 0), Role: cluster.RoleWirePoint, Owner: "w1"},
		{P: pt(0, 1000), Role: cluster.RoleWirePoint, Owner: "w2"},
	}
	classes, classOf := cluster.Build(points, 20)

	require.Len(t, classes, 2)
	assert.Equal(t, classOf[0], classOf[1])
	assert.Equal(t, classOf[0], classOf[2])
	assert.NotEqual(t, classOf[0], classOf[3])
}

func TestBuild_JunctionBondsCrossingWires(t *testing.T) {
	points := []cluster.TaggedPoint{
		{P: pt(0, 100), Role: cluster.RoleWirePoint, Owner: "w1"},
		{P: pt(100, 100), Role: cluster.RoleWirePoint, Owner: "w1"},
		{P: pt(100, 0), Role: cluster.RoleWirePoint, Owner: "w2"},
		{P: pt(100, 100), Role: cluster.RoleWirePoint, Owner: "w2"},
		{P: pt(100, 200), Role: cluster.RoleWirePoint, Owner: "w2"},
		{P: pt(100, 100), Role: cluster.RoleJunction, Owner: "j1"},
	}
	classes, _ := cluster.Build(points, 20)

	// w1 ends at (100,100); w2 carries the crossing point; the junction
	// marker bonds into the same class.
	require.Len(t, classes, 1)
}

func TestBuild_Deterministic(t *testing.T) {
	points := []cluster.TaggedPoint{
		{P: pt(0, 0), Role: cluster.RoleTerminalA, Owner: "R1"},
		{P: pt(200, 0), Role: cluster.RoleTerminalB, Owner: "R1"},
		{P: pt(200, 2), Role: cluster.RoleTerminalA, Owner: "R2"},
		{P: pt(400, 0), Role: cluster.RoleTerminalB, Owner: "R2"},
	}
	first, firstOf := cluster.Build(points, 20)
	for range 10 {
		classes, classOf := cluster.Build(points, 20)
		assert.Equal(t, first, classes)
		assert.Equal(t, firstOf, classOf)
	}
}
