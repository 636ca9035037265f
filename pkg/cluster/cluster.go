// Package cluster decides which drawn points are electrically the same node.
// It merges geometrically coincident element terminals, wire points and
// junction markers into equivalence classes with a union-find structure,
// using a uniform grid-cell hash to keep the merge step near-linear.
package cluster

import (
	"math"

	"github.com/edalab/phasornet/pkg/schematic"
)

// Role tags what a point is within its owning entity.
type Role int

const (
	RoleTerminalA Role = iota
	RoleTerminalB
	RoleGround
	RoleJunction
	RoleWirePoint
)

// TaggedPoint is one input point with its owning entity and role.
type TaggedPoint struct {
	P     schematic.Point
	Role  Role
	Owner string
}

// Class is one equivalence class of points: an electrical node candidate.
// Position is the centroid of the members (display-only). Ground is set when
// any member carries the ground-terminal role.
type Class struct {
	Members  []int
	Position schematic.Point
	Ground   bool
}

// Tolerance is the merge distance for a given grid spacing: a fixed absolute
// floor plus a grid-relative value, so very fine grids do not force a
// near-zero tolerance.
func Tolerance(grid float64) float64 {
	return math.Max(6, math.Floor(grid*0.35))
}

func cellSize(grid float64) float64 {
	return math.Max(10, grid)
}

// unionFind is an index arena: plain parent/rank slices with path compression
// and union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		uf.parent[ra] = rb
	} else {
		uf.parent[rb] = ra
		if uf.rank[ra] == uf.rank[rb] {
			uf.rank[ra]++
		}
	}
}

type cellKey struct{ cx, cy int }

// Build clusters points for a document drawn at the given grid spacing.
// It returns the classes in first-member discovery order and, for each input
// point, the index of the class it belongs to.
func Build(points []TaggedPoint, grid float64) ([]Class, []int) {
	return build(points, Tolerance(grid), cellSize(grid))
}

// BuildWithTolerance clusters with an explicit merge distance. Used by tests
// and callers that need a tolerance decoupled from the grid.
func BuildWithTolerance(points []TaggedPoint, tol float64) ([]Class, []int) {
	return build(points, tol, math.Max(10, tol))
}

func build(points []TaggedPoint, tol, cell float64) ([]Class, []int) {
	uf := newUnionFind(len(points))
	tolSq := tol * tol

	// Uniform grid hash; a 3x3 neighbor scan covers every pair within the
	// tolerance because cell >= tol.
	cells := make(map[cellKey][]int, len(points))
	for i, tp := range points {
		key := cellKey{int(math.Floor(tp.P.X / cell)), int(math.Floor(tp.P.Y / cell))}
		cells[key] = append(cells[key], i)
	}

	for i, tp := range points {
		cx := int(math.Floor(tp.P.X / cell))
		cy := int(math.Floor(tp.P.Y / cell))
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for _, j := range cells[cellKey{cx + dx, cy + dy}] {
					if j <= i {
						continue
					}
					ddx := tp.P.X - points[j].P.X
					ddy := tp.P.Y - points[j].P.Y
					if ddx*ddx+ddy*ddy <= tolSq {
						uf.union(i, j)
					}
				}
			}
		}
	}

	// Wire continuity: every point of a polyline bonds to its first point
	// regardless of geometric distance.
	wireHead := make(map[string]int)
	for i, tp := range points {
		if tp.Role != RoleWirePoint {
			continue
		}
		if head, ok := wireHead[tp.Owner]; ok {
			uf.union(head, i)
		} else {
			wireHead[tp.Owner] = i
		}
	}

	// Collect classes in first-member order for deterministic node naming.
	classIdx := make(map[int]int)
	var classes []Class
	classOf := make([]int, len(points))
	for i := range points {
		root := uf.find(i)
		ci, ok := classIdx[root]
		if !ok {
			ci = len(classes)
			classIdx[root] = ci
			classes = append(classes, Class{})
		}
		c := &classes[ci]
		c.Members = append(c.Members, i)
		if points[i].Role == RoleGround {
			c.Ground = true
		}
		classOf[i] = ci
	}

	for ci := range classes {
		c := &classes[ci]
		var sx, sy float64
		for _, m := range c.Members {
			sx += points[m].P.X
			sy += points[m].P.Y
		}
		n := float64(len(c.Members))
		c.Position = schematic.Point{X: sx / n, Y: sy / n}
	}

	return classes, classOf
}
