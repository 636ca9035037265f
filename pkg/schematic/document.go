// Package schematic defines the drawn-circuit document exchanged with the
// editor: elements placed at grid coordinates, wire polylines and junction
// markers, plus the excitation frequency. The document carries no electrical
// structure of its own; pkg/netlist derives that.
package schematic

import (
	"fmt"

	"github.com/google/uuid"
)

// DocumentVersion is the schema version written by this package.
const DocumentVersion = 1

// Point is a 2-D coordinate in document length units. Value type, no identity.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// ElementType enumerates the supported element kinds. The set is closed:
// every algorithm downstream dispatches over it exhaustively.
type ElementType string

const (
	TypeResistor      ElementType = "R"
	TypeCapacitor     ElementType = "C"
	TypeInductor      ElementType = "L"
	TypeVoltageSource ElementType = "V"
	TypeCurrentSource ElementType = "I"
	TypeGround        ElementType = "GND"
)

// Types lists every element type, in stamp order.
var Types = []ElementType{
	TypeResistor, TypeCapacitor, TypeInductor,
	TypeVoltageSource, TypeCurrentSource, TypeGround,
}

// Element is one placed part. Two-terminal kinds use A/B and carry a raw
// value string (parsed lazily by pkg/value); GND uses the single terminal P
// and has no value. Rotation is display-only.
type Element struct {
	ID       string      `json:"id" yaml:"id" validate:"required"`
	Type     ElementType `json:"type" yaml:"type" validate:"required,oneof=R C L V I GND"`
	Name     string      `json:"name" yaml:"name"`
	A        Point       `json:"a,omitempty" yaml:"a,omitempty"`
	B        Point       `json:"b,omitempty" yaml:"b,omitempty"`
	P        Point       `json:"p,omitempty" yaml:"p,omitempty"`
	Value    string      `json:"value,omitempty" yaml:"value,omitempty"`
	Rotation int         `json:"rotation" yaml:"rotation" validate:"oneof=0 90 180 270"`
}

// Wire is an ordered polyline; all of its points are one conductor.
type Wire struct {
	ID     string  `json:"id" yaml:"id" validate:"required"`
	Points []Point `json:"points" yaml:"points" validate:"min=2"`
}

// Junction marks an explicit bond where crossing wires must connect.
type Junction struct {
	ID string `json:"id" yaml:"id" validate:"required"`
	P  Point  `json:"p" yaml:"p"`
}

// Document is the persisted/exchanged circuit drawing. Grid is both the snap
// unit and the basis of the clustering tolerance.
type Document struct {
	Version   int        `json:"version" yaml:"version" validate:"required,eq=1"`
	Grid      float64    `json:"grid" yaml:"grid" validate:"gt=0"`
	FreqHz    float64    `json:"freqHz" yaml:"freqHz" validate:"gte=0"`
	Elements  []Element  `json:"elements" yaml:"elements" validate:"dive"`
	Wires     []Wire     `json:"wires,omitempty" yaml:"wires,omitempty" validate:"dive"`
	Junctions []Junction `json:"junctions,omitempty" yaml:"junctions,omitempty" validate:"dive"`
}

// New returns an empty document at the given grid spacing.
func New(grid float64) *Document {
	return &Document{Version: DocumentVersion, Grid: grid}
}

// IsGround reports whether the element is a ground reference marker.
func (e Element) IsGround() bool { return e.Type == TypeGround }

// Label returns the element's display name, falling back to its ID.
func (e Element) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

func newElement(t ElementType, name string, a, b Point, value string) Element {
	return Element{
		ID:    uuid.NewString(),
		Type:  t,
		Name:  name,
		A:     a,
		B:     b,
		Value: value,
	}
}

// NewResistor places a resistor between a and b. The value string may be a
// plain resistance ("4.7k") or a direct complex impedance ("3+4i").
func NewResistor(name string, a, b Point, value string) Element {
	return newElement(TypeResistor, name, a, b, value)
}

// NewCapacitor places a capacitor between a and b.
func NewCapacitor(name string, a, b Point, value string) Element {
	return newElement(TypeCapacitor, name, a, b, value)
}

// NewInductor places an inductor between a and b.
func NewInductor(name string, a, b Point, value string) Element {
	return newElement(TypeInductor, name, a, b, value)
}

// NewVoltageSource places an independent voltage source with Va-Vb = value.
func NewVoltageSource(name string, a, b Point, value string) Element {
	return newElement(TypeVoltageSource, name, a, b, value)
}

// NewCurrentSource places an independent current source driving a -> b.
func NewCurrentSource(name string, a, b Point, value string) Element {
	return newElement(TypeCurrentSource, name, a, b, value)
}

// NewGround places a ground reference marker at p.
func NewGround(name string, p Point) Element {
	return Element{ID: uuid.NewString(), Type: TypeGround, Name: name, P: p}
}

// NewWire creates a wire along the given polyline.
func NewWire(points ...Point) (Wire, error) {
	if len(points) < 2 {
		return Wire{}, fmt.Errorf("wire needs at least 2 points, got %d", len(points))
	}
	return Wire{ID: uuid.NewString(), Points: points}, nil
}

// NewJunction creates a junction marker at p.
func NewJunction(p Point) Junction {
	return Junction{ID: uuid.NewString(), P: p}
}
