package solver

import (
	"fmt"

	"github.com/edalab/phasornet/internal/consts"
	"github.com/edalab/phasornet/pkg/netlist"
	"github.com/edalab/phasornet/pkg/schematic"
	"github.com/edalab/phasornet/pkg/value"
)

// impedance interprets an element value at the given angular frequency.
// R takes the parsed value directly, so a complex literal acts as a
// generalized impedance. C and L do the same when the literal is explicitly
// complex; otherwise the value is a capacitance/inductance, with finite
// open/short approximations at omega = 0 to keep the matrix regular.
func impedance(el netlist.Element, omega float64) complex128 {
	lit := value.ParseOrNaN(el.Value)
	switch el.Type {
	case schematic.TypeResistor:
		return lit.Value
	case schematic.TypeCapacitor:
		if lit.Imaginary {
			return lit.Value
		}
		if omega > 0 {
			return complex(0, -1/(omega*real(lit.Value)))
		}
		return complex(consts.DCOpenImpedance, 0)
	case schematic.TypeInductor:
		if lit.Imaginary {
			return lit.Value
		}
		if omega > 0 {
			return complex(0, omega*real(lit.Value))
		}
		return complex(consts.DCShortImpedance, 0)
	}
	return 0
}

// stampPassive adds admittance y between rows ia and ib, omitting ground
// terms: the ground row/column does not exist in the unknown vector.
func (s *system) stampPassive(ia, ib int, y complex128) {
	if ia >= 0 {
		s.add(ia, ia, y)
		if ib >= 0 {
			s.add(ia, ib, -y)
		}
	}
	if ib >= 0 {
		s.add(ib, ib, y)
		if ia >= 0 {
			s.add(ib, ia, -y)
		}
	}
}

// stampAll stamps every element into the system, appending the per-element
// impedance/source listing to the trace. Dispatch over the element kind is
// exhaustive; an unknown kind is a programming error, not an input state.
func (s *system) stampAll(net *netlist.Net, omega float64, trace *[]string) error {
	for _, el := range net.Elements {
		label := el.Label()
		ia, ib := s.index(el.A), s.index(el.B)

		switch el.Type {
		case schematic.TypeResistor, schematic.TypeCapacitor, schematic.TypeInductor:
			z := impedance(el, omega)
			y := value.Div(1, z)
			s.stampPassive(ia, ib, y)
			*trace = append(*trace, fmt.Sprintf("%s [%s=%s]: Z = %s ohm, Y = %s S (%s - %s)",
				label, el.Type, el.Value, value.Format(z), value.Format(y), el.A, el.B))

		case schematic.TypeCurrentSource:
			i := value.ParseOrNaN(el.Value).Value
			if ia >= 0 {
				s.rhs[ia] -= i
			}
			if ib >= 0 {
				s.rhs[ib] += i
			}
			*trace = append(*trace, fmt.Sprintf("%s [I=%s]: injects %s A from %s to %s",
				label, el.Value, value.Format(i), el.A, el.B))

		case schematic.TypeVoltageSource:
			bi := s.branch[el.ID]
			v := value.ParseOrNaN(el.Value).Value
			if ia >= 0 {
				s.add(bi, ia, 1)
				s.add(ia, bi, 1)
			}
			if ib >= 0 {
				s.add(bi, ib, -1)
				s.add(ib, bi, -1)
			}
			s.rhs[bi] += v
			*trace = append(*trace, fmt.Sprintf("%s [V=%s]: constraint V(%s) - V(%s) = %s",
				label, el.Value, el.A, el.B, value.Format(v)))

		case schematic.TypeGround:
			// The reference marker itself contributes nothing.

		default:
			return fmt.Errorf("element %s: unknown type %q", label, el.Type)
		}
	}
	return nil
}
