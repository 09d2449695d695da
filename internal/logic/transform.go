package logic

import "math"

// LinearTransform maps an ADC voltage reading to an engineering unit using the
// board's fixed two-point calibration.
type LinearTransform struct {
	gain   float64
	offset float64
}

// VoltageTransform converts a reading to millivolts at the input terminal.
func VoltageTransform() LinearTransform {
	return LinearTransform{gain: 13.46240, offset: -2081.81}
}

// CurrentTransform converts a reading to microamps through the input terminal.
func CurrentTransform() LinearTransform {
	return LinearTransform{gain: 10.31915, offset: -1595.74}
}

// Apply returns round(raw*gain + offset), floored at zero and capped at
// MaxInt32. NaN readings map to zero.
func (t LinearTransform) Apply(raw float64) int {
	// The explicit conversion keeps the product rounded to float64, so no
	// platform fuses it into the add.
	v := math.Round(float64(raw*t.gain) + t.offset)
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(v)
}
