// Package solver assembles a Modified Nodal Analysis system from an
// electrical net and solves it at a single frequency. Unknowns are the
// non-ground node voltages plus one branch current per voltage source; all
// arithmetic is complex so DC (f = 0) and AC phasor analysis share one path.
package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/edalab/phasornet/pkg/netlist"
	"github.com/edalab/phasornet/pkg/schematic"
	"github.com/edalab/phasornet/pkg/value"
)

var (
	// ErrSingular is reported when pivot selection finds no usable pivot.
	ErrSingular = errors.New("singular matrix: check for a floating node, a missing ground connection, conflicting voltage sources, or a zero-valued reactive element at this frequency")
	// ErrNonFinite is reported when elimination succeeds but an unknown is
	// not finite, typically a frequency/impedance degeneracy.
	ErrNonFinite = errors.New("solution is not finite: check element values against the analysis frequency")
)

// Backend selects the linear-system solver implementation.
type Backend int

const (
	// BackendDense is the default: dense complex Gaussian elimination with
	// partial pivoting by magnitude.
	BackendDense Backend = iota
	// BackendSparse solves through the sparse LU package instead.
	BackendSparse
)

type options struct {
	backend Backend
}

// Option configures a solve call.
type Option func(*options)

// WithBackend selects the linear-system backend.
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// Debug is an opaque dump of the assembled system for diagnostic consumption.
type Debug struct {
	Dimension   int
	Matrix      [][]complex128
	RHS         []complex128
	Solution    []complex128
	NodeIndex   map[string]int
	BranchIndex map[string]int // keyed by voltage-source element ID
}

// Result holds the solved quantities. Node voltages include the ground node
// at exactly 0. Element maps are keyed by element label and cover every
// non-ground element. A Result is freshly allocated per call and never
// mutated afterwards.
type Result struct {
	NodeVoltages   map[string]complex128
	ElementVoltage map[string]complex128
	ElementCurrent map[string]complex128
	ElementPower   map[string]complex128
	Trace          []string
	Debug          *Debug
}

// system is the assembled MNA matrix and right-hand side.
type system struct {
	n      int // non-ground node count
	dim    int // n + voltage source count
	matrix [][]complex128
	rhs    []complex128
	node   map[string]int // node ID -> row (0-based)
	branch map[string]int // V-source element ID -> row; IDs stay unique
	// even when display names collide
	branchLabel map[int]string // row -> display label, for traces
}

func newSystem(net *netlist.Net) *system {
	s := &system{
		n:           len(net.Nodes),
		node:        make(map[string]int, len(net.Nodes)),
		branch:      make(map[string]int),
		branchLabel: make(map[int]string),
	}
	for i, nd := range net.Nodes {
		s.node[nd.ID] = i
	}
	for _, el := range net.Elements {
		if el.Type == schematic.TypeVoltageSource {
			row := s.n + len(s.branch)
			s.branch[el.ID] = row
			s.branchLabel[row] = el.Label()
		}
	}
	s.dim = s.n + len(s.branch)
	s.matrix = make([][]complex128, s.dim)
	for i := range s.matrix {
		s.matrix[i] = make([]complex128, s.dim)
	}
	s.rhs = make([]complex128, s.dim)
	return s
}

// index resolves a node ID to its row, with -1 for the implicit ground.
func (s *system) index(nodeID string) int {
	if nodeID == netlist.GroundID || nodeID == "" {
		return -1
	}
	if i, ok := s.node[nodeID]; ok {
		return i
	}
	return -1
}

func (s *system) add(i, j int, y complex128) {
	s.matrix[i][j] += y
}

// unknownName labels column j for the derivation trace.
func (s *system) unknownName(j int) string {
	for id, i := range s.node {
		if i == j {
			return "V(" + id + ")"
		}
	}
	if name, ok := s.branchLabel[j]; ok {
		return "I(" + name + ")"
	}
	return fmt.Sprintf("x%d", j)
}

// Solve assembles and solves the net at the given frequency (Hz). On failure
// the returned Result still carries the trace steps and debug dump produced
// before the failure, so the caller can render a diagnosis.
func Solve(net *netlist.Net, freqHz float64, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(net.Nodes) == 0 {
		return nil, netlist.ErrNoNodes
	}

	omega := 2 * math.Pi * math.Max(0, freqHz)
	s := newSystem(net)

	trace := []string{
		fmt.Sprintf("reference: node %s held at 0 V", netlist.GroundID),
		fmt.Sprintf("angular frequency: omega = %s rad/s (f = %s Hz)",
			value.Format(complex(omega, 0)), value.Format(complex(math.Max(0, freqHz), 0))),
	}

	if err := s.stampAll(net, omega, &trace); err != nil {
		return &Result{Trace: trace}, err
	}

	trace = append(trace, s.equationTrace()...)
	trace = append(trace, fmt.Sprintf("assembled MNA system: %d x %d (%d node + %d source unknowns)",
		s.dim, s.dim, s.n, s.dim-s.n))

	debug := &Debug{
		Dimension:   s.dim,
		Matrix:      copyMatrix(s.matrix),
		RHS:         append([]complex128(nil), s.rhs...),
		NodeIndex:   s.node,
		BranchIndex: s.branch,
	}

	var x []complex128
	var err error
	switch o.backend {
	case BackendSparse:
		x, err = solveSparse(s.matrix, s.rhs)
	default:
		x, err = solveDense(s.matrix, s.rhs)
	}
	if err != nil {
		return &Result{Trace: trace, Debug: debug}, err
	}
	debug.Solution = x

	res := s.derive(net, omega, x)
	for j, xj := range x {
		trace = append(trace, fmt.Sprintf("%s = %s", s.unknownName(j), value.Format(xj)))
	}
	res.Trace = trace
	res.Debug = debug
	return res, nil
}

func copyMatrix(m [][]complex128) [][]complex128 {
	c := make([][]complex128, len(m))
	for i := range m {
		c[i] = append([]complex128(nil), m[i]...)
	}
	return c
}

// equationTrace renders one KCL equation per non-ground node and one KVL
// equation per voltage source from the assembled rows.
func (s *system) equationTrace() []string {
	lines := make([]string, 0, s.dim)
	for i := 0; i < s.dim; i++ {
		eq := ""
		for j := 0; j < s.dim; j++ {
			if s.matrix[i][j] == 0 {
				continue
			}
			if eq != "" {
				eq += " + "
			}
			eq += fmt.Sprintf("(%s)*%s", value.Format(s.matrix[i][j]), s.unknownName(j))
		}
		if eq == "" {
			eq = "0"
		}
		kind := "KCL " + s.unknownName(i)
		if i >= s.n {
			kind = "KVL " + s.unknownName(i)
		}
		lines = append(lines, fmt.Sprintf("%s: %s = %s", kind, eq, value.Format(s.rhs[i])))
	}
	return lines
}

// derive computes per-element voltage, current and power from the unknowns.
func (s *system) derive(net *netlist.Net, omega float64, x []complex128) *Result {
	res := &Result{
		NodeVoltages:   make(map[string]complex128, s.n+1),
		ElementVoltage: make(map[string]complex128),
		ElementCurrent: make(map[string]complex128),
		ElementPower:   make(map[string]complex128),
	}

	res.NodeVoltages[netlist.GroundID] = 0
	for id, i := range s.node {
		res.NodeVoltages[id] = x[i]
	}

	voltageAt := func(nodeID string) complex128 {
		if i := s.index(nodeID); i >= 0 {
			return x[i]
		}
		return 0
	}

	for _, el := range net.Elements {
		if el.Type == schematic.TypeGround {
			continue
		}
		label := el.Label()
		vab := voltageAt(el.A) - voltageAt(el.B)

		var current complex128
		switch el.Type {
		case schematic.TypeVoltageSource:
			current = x[s.branch[el.ID]]
		case schematic.TypeCurrentSource:
			current = value.ParseOrNaN(el.Value).Value
		default: // R, C, L
			current = value.Div(vab, impedance(el, omega))
		}

		res.ElementVoltage[label] = vab
		res.ElementCurrent[label] = current
		res.ElementPower[label] = vab * value.Conj(current)
	}

	return res
}
