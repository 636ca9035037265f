// Package value parses the string-typed numeric values carried by schematic
// elements ("4.7k", "100n", "3+4i", "-2.5ji") into complex numbers, and
// formats complex results for display.
package value

import (
	"fmt"
	"math"
	"math/cmplx"
	"regexp"
	"strconv"
	"strings"

	"github.com/edalab/phasornet/internal/consts"
)

// Literal is a parsed element value. Imaginary records that the source text
// carried an explicit i/j term, which changes how capacitor and inductor
// values are interpreted (direct impedance instead of capacitance/inductance).
type Literal struct {
	Value     complex128
	Imaginary bool
}

const (
	numPat    = `(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`
	suffixPat = `(?:(?i:meg)|[pPnNuUmMkKgG])`
)

var (
	reReal = regexp.MustCompile(`^([-+]?` + numPat + `)(` + suffixPat + `)?$`)
	reImag = regexp.MustCompile(`^([-+]?` + numPat + `)(` + suffixPat + `)?[ij]$`)
	reBoth = regexp.MustCompile(`^([-+]?` + numPat + `)(` + suffixPat + `)?` +
		`([-+]` + numPat + `)(` + suffixPat + `)?[ij]$`)
	reSpace = regexp.MustCompile(`\s+`)
)

// unitFactor resolves an SI magnitude suffix. Bare "m" is always milli; only
// the literal "meg" (any case) or uppercase "M"/"G" scale upward.
func unitFactor(suffix string) (float64, bool) {
	if suffix == "" {
		return 1, true
	}
	if strings.EqualFold(suffix, "meg") {
		return 1e6, true
	}
	switch suffix {
	case "m":
		return 1e-3, true
	case "M":
		return 1e6, true
	}
	switch strings.ToLower(suffix) {
	case "p":
		return 1e-12, true
	case "n":
		return 1e-9, true
	case "u":
		return 1e-6, true
	case "k":
		return 1e3, true
	case "g":
		return 1e9, true
	}
	return 0, false
}

func parseTerm(digits, suffix string) (float64, error) {
	num, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, err
	}
	factor, ok := unitFactor(suffix)
	if !ok {
		return 0, fmt.Errorf("unknown magnitude suffix %q", suffix)
	}
	return num * factor, nil
}

// Parse converts a raw value string into a Literal. Supported forms are a
// real SI-suffixed number, a pure imaginary term ending in i or j, or a real
// term followed by a signed imaginary term ("3k-4ki"). Whitespace is stripped
// before matching.
func Parse(raw string) (Literal, error) {
	s := reSpace.ReplaceAllString(raw, "")
	if s == "" {
		return Literal{}, fmt.Errorf("empty value")
	}

	if m := reBoth.FindStringSubmatch(s); m != nil {
		re, err := parseTerm(m[1], m[2])
		if err != nil {
			return Literal{}, fmt.Errorf("invalid value %q: %v", raw, err)
		}
		im, err := parseTerm(m[3], m[4])
		if err != nil {
			return Literal{}, fmt.Errorf("invalid value %q: %v", raw, err)
		}
		return Literal{Value: complex(re, im), Imaginary: true}, nil
	}

	if m := reImag.FindStringSubmatch(s); m != nil {
		im, err := parseTerm(m[1], m[2])
		if err != nil {
			return Literal{}, fmt.Errorf("invalid value %q: %v", raw, err)
		}
		return Literal{Value: complex(0, im), Imaginary: true}, nil
	}

	if m := reReal.FindStringSubmatch(s); m != nil {
		re, err := parseTerm(m[1], m[2])
		if err != nil {
			return Literal{}, fmt.Errorf("invalid value %q: %v", raw, err)
		}
		return Literal{Value: complex(re, 0)}, nil
	}

	return Literal{}, fmt.Errorf("invalid value format: %q", raw)
}

// ParseOrNaN folds a parse failure into a NaN literal so the failing element
// surfaces later through the solver's non-finite detection instead of
// aborting the whole solve up front.
func ParseOrNaN(raw string) Literal {
	lit, err := Parse(raw)
	if err != nil {
		return Literal{Value: complex(math.NaN(), math.NaN())}
	}
	return lit
}

// Div divides two complex numbers. Division by the zero complex value yields
// NaN rather than an error so that singularity reporting stays with the
// solver.
func Div(a, b complex128) complex128 {
	if b == 0 {
		return complex(math.NaN(), math.NaN())
	}
	return a / b
}

// Magnitude returns |z|.
func Magnitude(z complex128) float64 { return cmplx.Abs(z) }

// Conj returns the complex conjugate of z.
func Conj(z complex128) complex128 { return cmplx.Conj(z) }

// IsFinite reports whether both components of z are finite numbers.
func IsFinite(z complex128) bool {
	return !cmplx.IsNaN(z) && !cmplx.IsInf(z)
}

func roundDisplay(v float64) float64 {
	shift := math.Pow(10, consts.DisplayPrec)
	return math.Round(v*shift) / shift
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Format renders z for display: components are rounded to a fixed precision,
// near-zero components are suppressed to yield a clean real or pure-imaginary
// string, and non-finite values render as "n/a".
func Format(z complex128) string {
	if !IsFinite(z) {
		return "n/a"
	}

	re := roundDisplay(real(z))
	im := roundDisplay(imag(z))
	if math.Abs(re) < consts.DisplayEps {
		re = 0
	}
	if math.Abs(im) < consts.DisplayEps {
		im = 0
	}

	switch {
	case re == 0 && im == 0:
		return "0"
	case im == 0:
		return formatFloat(re)
	case re == 0:
		return formatFloat(im) + "i"
	case im < 0:
		return formatFloat(re) + formatFloat(im) + "i"
	default:
		return formatFloat(re) + "+" + formatFloat(im) + "i"
	}
}
