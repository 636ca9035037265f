package consts

// Numerical limits used across the solver. The DC open/short values stand in
// for the true infinite/zero reactive impedances at omega = 0; the pivot and
// display thresholds are tuned against these magnitudes.
const (
	DCOpenImpedance  = 1e18  // capacitor at omega = 0 (ohm)
	DCShortImpedance = 1e-12 // inductor at omega = 0 (ohm)

	PivotEpsilon = 1e-14 // smallest acceptable pivot magnitude
	DisplayEps   = 1e-12 // component suppression threshold when formatting
	DisplayPrec  = 6     // decimal digits for display rounding
)
