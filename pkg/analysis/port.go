// Package analysis derives two-terminal Thevenin/Norton equivalents from a
// built net. It performs no matrix algebra of its own: it transforms the net
// and runs the solver twice, once open-circuit and once with sources killed
// and a unit test current injected at the port.
package analysis

import (
	"errors"
	"fmt"

	"github.com/edalab/phasornet/pkg/netlist"
	"github.com/edalab/phasornet/pkg/schematic"
	"github.com/edalab/phasornet/pkg/solver"
	"github.com/edalab/phasornet/pkg/value"
)

// ErrUnknownNode is reported when a requested port terminal does not name a
// node of the net.
var ErrUnknownNode = errors.New("port node not in circuit")

// testSourceID names the synthetic injection source; the prefix keeps it from
// colliding with drawn element IDs.
const testSourceID = "__port_test_source"

// Port designates the two terminals of interest and, optionally, one element
// to exclude as the load under study.
type Port struct {
	NodeA string
	NodeB string
	// LoadLabel is the name (or ID) of the element treated as the external
	// load; empty means the whole net is the source network.
	LoadLabel string
}

// Report is the computed port equivalent. PowerMax is only meaningful when
// PowerApplicable is true, which requires Re(Zth) > 0.
type Report struct {
	Port            Port
	FreqHz          float64
	Vth             complex128 // open-circuit voltage V(A) - V(B)
	Zth             complex128 // equivalent impedance seen at the port
	In              complex128 // Norton current Vth / Zth
	LoadOptimal     complex128 // conjugate-matched load conj(Zth)
	PowerMax        float64    // |Vth|^2 / (4*Re(Zth))
	PowerApplicable bool
}

// Analyze computes the Thevenin/Norton equivalent between port.NodeA and
// port.NodeB at the given frequency. A failure of either internal solve is
// propagated wrapped with the stage it occurred in.
func Analyze(net *netlist.Net, freqHz float64, port Port, opts ...solver.Option) (*Report, error) {
	if err := checkPortNodes(net, port); err != nil {
		return nil, err
	}

	base := net.Clone()
	if port.LoadLabel != "" {
		base = removeElement(base, port.LoadLabel)
	}

	// Open-circuit solve: the port voltage is the Thevenin voltage.
	open, err := solver.Solve(base, freqHz, opts...)
	if err != nil {
		return nil, fmt.Errorf("open-circuit solve (Vth stage): %w", err)
	}
	vth := portVoltage(open, port)

	// Kill every independent source, then drive 1 A from B into A; with the
	// solver's a->b source convention the port voltage then reads +Zth.
	killed := killSources(base.Clone())
	killed.Elements = append(killed.Elements, netlist.Element{
		ID:    testSourceID,
		Type:  schematic.TypeCurrentSource,
		Name:  testSourceID,
		A:     port.NodeB,
		B:     port.NodeA,
		Value: "1",
	})
	probe, err := solver.Solve(killed, freqHz, opts...)
	if err != nil {
		return nil, fmt.Errorf("test-injection solve (Zth stage): %w", err)
	}
	zth := portVoltage(probe, port)

	rep := &Report{
		Port:        port,
		FreqHz:      freqHz,
		Vth:         vth,
		Zth:         zth,
		In:          value.Div(vth, zth),
		LoadOptimal: value.Conj(zth),
	}
	if re := real(zth); re > 0 {
		mag := value.Magnitude(vth)
		rep.PowerMax = mag * mag / (4 * re)
		rep.PowerApplicable = true
	}
	return rep, nil
}

// checkPortNodes rejects terminals that resolve to neither a net node nor
// ground, so a typo surfaces as an error instead of a silent 0 V port.
func checkPortNodes(net *netlist.Net, port Port) error {
	valid := map[string]bool{netlist.GroundID: true}
	for _, nd := range net.Nodes {
		valid[nd.ID] = true
	}
	for _, id := range []string{port.NodeA, port.NodeB} {
		if !valid[id] {
			return fmt.Errorf("%w: %q", ErrUnknownNode, id)
		}
	}
	return nil
}

func portVoltage(res *solver.Result, port Port) complex128 {
	return res.NodeVoltages[port.NodeA] - res.NodeVoltages[port.NodeB]
}

func removeElement(net *netlist.Net, label string) *netlist.Net {
	kept := net.Elements[:0]
	for _, el := range net.Elements {
		if el.Label() != label {
			kept = append(kept, el)
		}
	}
	net.Elements = kept
	return net
}

// killSources deactivates every independent source in place: voltage sources
// become 0 V (shorts through their branch equation), current sources 0 A
// (opens).
func killSources(net *netlist.Net) *netlist.Net {
	for i := range net.Elements {
		switch net.Elements[i].Type {
		case schematic.TypeVoltageSource, schematic.TypeCurrentSource:
			net.Elements[i].Value = "0"
		}
	}
	return net
}

// Render lays the report out as display lines, one quantity per line.
func (r *Report) Render() []string {
	lines := []string{
		fmt.Sprintf("port %s / %s at f = %s Hz", r.Port.NodeA, r.Port.NodeB,
			value.Format(complex(r.FreqHz, 0))),
		fmt.Sprintf("Vth = %s V", value.Format(r.Vth)),
		fmt.Sprintf("Zth = %s ohm (Re = %s)", value.Format(r.Zth),
			value.Format(complex(real(r.Zth), 0))),
		fmt.Sprintf("In  = %s A", value.Format(r.In)),
		fmt.Sprintf("ZL optimal = %s ohm", value.Format(r.LoadOptimal)),
	}
	if r.PowerApplicable {
		lines = append(lines, fmt.Sprintf("P max = %s W",
			value.Format(complex(r.PowerMax, 0))))
	} else {
		lines = append(lines, "P max = not applicable (Re(Zth) <= 0)")
	}
	return lines
}
