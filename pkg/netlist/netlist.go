// Package netlist turns a drawn schematic document into a canonical
// electrical graph: named nodes (one distinguished ground) and elements
// referencing node identifiers instead of coordinates.
package netlist

import (
	"errors"
	"fmt"

	"github.com/edalab/phasornet/pkg/cluster"
	"github.com/edalab/phasornet/pkg/schematic"
)

// GroundID is the identifier of the single ground reference node.
const GroundID = "gnd"

// Structural failure modes. These are normal input states of new or
// incomplete drawings, reported as values the caller renders inline.
var (
	ErrNoElements     = errors.New("circuit has no elements")
	ErrNoGround       = errors.New("circuit has no ground (GND) reference")
	ErrNoNodes        = errors.New("circuit has no nodes besides ground")
	ErrDuplicateLabel = errors.New("circuit has two elements with the same name")
)

// Node is one electrical potential. Position is the centroid of the merged
// points, kept for display only.
type Node struct {
	ID       string
	Position schematic.Point
}

// Element references nodes by identifier. Two-terminal kinds use A and B;
// ground markers use A alone. Value stays in its raw string form and is
// parsed by the solver.
type Element struct {
	ID    string
	Type  schematic.ElementType
	Name  string
	A     string
	B     string
	Value string
}

// Label returns the element's display name, falling back to its ID.
func (e Element) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// Net is the canonical solvable graph. Nodes excludes ground, which is
// implicit; every element terminal resolves to a node ID or GroundID.
type Net struct {
	Nodes    []Node
	Elements []Element
}

// Clone returns a deep copy, so callers can transform a net (remove a load,
// zero sources) without touching the original.
func (n *Net) Clone() *Net {
	c := &Net{
		Nodes:    make([]Node, len(n.Nodes)),
		Elements: make([]Element, len(n.Elements)),
	}
	copy(c.Nodes, n.Nodes)
	copy(c.Elements, n.Elements)
	return c
}

// Build derives the electrical net from a document. It also returns the
// display position of every node identifier, ground included.
func Build(doc *schematic.Document) (*Net, map[string]schematic.Point, error) {
	if len(doc.Elements) == 0 {
		return nil, nil, ErrNoElements
	}

	hasGround := false
	for _, el := range doc.Elements {
		if el.IsGround() {
			hasGround = true
			break
		}
	}
	if !hasGround {
		return nil, nil, ErrNoGround
	}

	// Solver result maps are keyed by element label, so two elements sharing
	// a display name would shadow each other downstream.
	seen := make(map[string]bool, len(doc.Elements))
	for _, el := range doc.Elements {
		label := el.Label()
		if seen[label] {
			return nil, nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
		}
		seen[label] = true
	}

	// Tag every terminal, junction and wire point for clustering, keeping
	// the point index of each element terminal.
	var points []cluster.TaggedPoint
	type terminals struct{ a, b int }
	elemPts := make([]terminals, len(doc.Elements))

	add := func(p schematic.Point, role cluster.Role, owner string) int {
		points = append(points, cluster.TaggedPoint{P: p, Role: role, Owner: owner})
		return len(points) - 1
	}

	for i, el := range doc.Elements {
		if el.IsGround() {
			elemPts[i] = terminals{a: add(el.P, cluster.RoleGround, el.ID), b: -1}
			continue
		}
		elemPts[i] = terminals{
			a: add(el.A, cluster.RoleTerminalA, el.ID),
			b: add(el.B, cluster.RoleTerminalB, el.ID),
		}
	}
	for _, j := range doc.Junctions {
		add(j.P, cluster.RoleJunction, j.ID)
	}
	for _, w := range doc.Wires {
		for _, p := range w.Points {
			add(p, cluster.RoleWirePoint, w.ID)
		}
	}

	classes, classOf := cluster.Build(points, doc.Grid)

	// Name the classes: every ground-flagged class unifies into GroundID,
	// the rest get sequential identifiers in discovery order.
	ids := make([]string, len(classes))
	positions := make(map[string]schematic.Point, len(classes)+1)
	var nodes []Node
	seq := 0
	for ci, c := range classes {
		if c.Ground {
			ids[ci] = GroundID
			if _, ok := positions[GroundID]; !ok {
				positions[GroundID] = c.Position
			}
			continue
		}
		seq++
		id := fmt.Sprintf("n%d", seq)
		ids[ci] = id
		positions[id] = c.Position
		nodes = append(nodes, Node{ID: id, Position: c.Position})
	}
	if len(nodes) == 0 {
		return nil, nil, ErrNoNodes
	}

	// Rewrite element terminals from points to node identifiers. A terminal
	// whose point could not be classified falls back to ground.
	nodeOf := func(ptIdx int) string {
		if ptIdx < 0 || ptIdx >= len(classOf) {
			return GroundID
		}
		return ids[classOf[ptIdx]]
	}

	net := &Net{Nodes: nodes, Elements: make([]Element, 0, len(doc.Elements))}
	for i, el := range doc.Elements {
		ne := Element{ID: el.ID, Type: el.Type, Name: el.Name, Value: el.Value}
		ne.A = nodeOf(elemPts[i].a)
		if !el.IsGround() {
			ne.B = nodeOf(elemPts[i].b)
		}
		net.Elements = append(net.Elements, ne)
	}

	return net, positions, nil
}
