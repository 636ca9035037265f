package schematic_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edalab/phasornet/pkg/netlist"
	"github.com/edalab/phasornet/pkg/schematic"
)

func dividerDocument(t *testing.T) *schematic.Document {
	t.Helper()

	doc := schematic.New(20)
	doc.FreqHz = 0
	doc.Elements = []schematic.Element{
		schematic.NewVoltageSource("V1", schematic.Point{X: 100, Y: 100}, schematic.Point{X: 100, Y: 200}, "5"),
		schematic.NewResistor("R1", schematic.Point{X: 100, Y: 100}, schematic.Point{X: 200, Y: 100}, "1k"),
		schematic.NewResistor("R2", schematic.Point{X: 200, Y: 100}, schematic.Point{X: 200, Y: 200}, "1k"),
		schematic.NewGround("", schematic.Point{X: 100, Y: 200}),
	}
	w, err := schematic.NewWire(schematic.Point{X: 200, Y: 200}, schematic.Point{X: 100, Y: 200})
	require.NoError(t, err)
	doc.Wires = []schematic.Wire{w}
	return doc
}

func TestRoundTripJSON(t *testing.T) {
	doc := dividerDocument(t)

	var buf bytes.Buffer
	require.NoError(t, schematic.EncodeJSON(&buf, doc))

	got, err := schematic.DecodeJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestRoundTripYAML(t *testing.T) {
	doc := dividerDocument(t)

	var buf bytes.Buffer
	require.NoError(t, schematic.EncodeYAML(&buf, doc))

	got, err := schematic.DecodeYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

// A round-tripped document must derive the identical electrical net:
// same node names, same element-to-node assignments.
func TestRoundTripElectricalIdentity(t *testing.T) {
	doc := dividerDocument(t)
	before, _, err := netlist.Build(doc)
	require.NoError(t, err)

	for _, codec := range []struct {
		name   string
		encode func(*bytes.Buffer, *schematic.Document) error
		decode func(*bytes.Buffer) (*schematic.Document, error)
	}{
		{"json", func(b *bytes.Buffer, d *schematic.Document) error { return schematic.EncodeJSON(b, d) },
			func(b *bytes.Buffer) (*schematic.Document, error) { return schematic.DecodeJSON(b) }},
		{"yaml", func(b *bytes.Buffer, d *schematic.Document) error { return schematic.EncodeYAML(b, d) },
			func(b *bytes.Buffer) (*schematic.Document, error) { return schematic.DecodeYAML(b) }},
	} {
		t.Run(codec.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, codec.encode(&buf, doc))
			got, err := codec.decode(&buf)
			require.NoError(t, err)

			after, _, err := netlist.Build(got)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestReadWriteFile(t *testing.T) {
	doc := dividerDocument(t)
	dir := t.TempDir()

	for _, name := range []string{"circuit.json", "circuit.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, schematic.WriteFile(path, doc))
		got, err := schematic.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, doc, got, name)
	}
}

func TestValidateRejects(t *testing.T) {
	base := func() *schematic.Document { return dividerDocument(t) }

	tests := []struct {
		name   string
		mutate func(*schematic.Document)
	}{
		{"wrong version", func(d *schematic.Document) { d.Version = 2 }},
		{"zero grid", func(d *schematic.Document) { d.Grid = 0 }},
		{"negative frequency", func(d *schematic.Document) { d.FreqHz = -60 }},
		{"unknown element type", func(d *schematic.Document) { d.Elements[0].Type = "Q" }},
		{"bad rotation", func(d *schematic.Document) { d.Elements[1].Rotation = 45 }},
		{"missing element id", func(d *schematic.Document) { d.Elements[0].ID = "" }},
		{"degenerate wire", func(d *schematic.Document) { d.Wires[0].Points = d.Wires[0].Points[:1] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := base()
			tt.mutate(doc)
			assert.Error(t, doc.Validate())
		})
	}
}
