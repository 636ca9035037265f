// Package util holds display helpers for solver output tables.
package util

import (
	"fmt"
	"math"
	"math/cmplx"
)

var siPrefixes = []struct {
	scale  float64
	prefix string
}{
	{1, ""},
	{1e-3, "m"},
	{1e-6, "u"},
	{1e-9, "n"},
	{1e-12, "p"},
}

// FormatValueFactor renders a quantity with an SI magnitude prefix. Values
// below the smallest prefix fall back to scientific notation.
func FormatValueFactor(value float64, unit string) string {
	abs := math.Abs(value)
	if abs == 0 {
		return fmt.Sprintf("%.3f %s", value, unit)
	}
	for _, p := range siPrefixes {
		if abs >= p.scale {
			return fmt.Sprintf("%.3f %s%s", value/p.scale, p.prefix, unit)
		}
	}
	return fmt.Sprintf("%.3e %s", value, unit)
}

var freqUnits = []struct {
	scale float64
	unit  string
}{
	{1e6, "MHz"},
	{1e3, "kHz"},
}

// FormatFrequency renders a frequency with a Hz/kHz/MHz unit.
func FormatFrequency(freq float64) string {
	for _, u := range freqUnits {
		if freq >= u.scale {
			return fmt.Sprintf("%7.3f %s", freq/u.scale, u.unit)
		}
	}
	return fmt.Sprintf("%7.3f Hz ", freq)
}

// FormatMagnitude renders a magnitude, switching to scientific notation
// outside a comfortable fixed-point range.
func FormatMagnitude(value float64) string {
	inRange := value == 0 || (value >= 0.001 && value < 1000)
	if !inRange {
		return fmt.Sprintf("%8.2e", value)
	}
	return fmt.Sprintf("%8.3g", value)
}

// FormatPhasor renders a complex quantity as magnitude<phase in degrees,
// e.g. "V(n1)=     159< -90.0deg".
func FormatPhasor(name string, z complex128) string {
	mag := cmplx.Abs(z)
	phase := cmplx.Phase(z) * 180 / math.Pi
	return fmt.Sprintf("%s=%s<%6.1fdeg", name, FormatMagnitude(mag), phase)
}
