package morpho

import "math"

// Interval describes the legal range and step granularity of one tunable
// input parameter. Intervals are per-call configuration supplied fresh on
// every generation request; they are never persisted.
type Interval struct {
	Name       string  `json:"name"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Step       float64 `json:"step"` // 0 means continuous
	IsConstant bool    `json:"is_constant"`
}

// NewInterval builds a sanitized interval. A reversed range collapses to a
// constant at Start rather than failing, matching how misconfigured slider
// ranges are quietly corrected by the host.
func NewInterval(name string, start, end, step float64) Interval {
	iv := Interval{Name: name, Start: start, End: end, Step: step}
	iv.sanitize()
	return iv
}

func (iv *Interval) sanitize() {
	if iv.Start > iv.End {
		iv.End = iv.Start
		iv.Step = 0
	}
	if iv.Step < 0 {
		iv.Step = 0
	}
	// A step never needs to exceed the interval's width.
	iv.Step = math.Min(iv.Step, math.Abs(iv.End-iv.Start))
	iv.IsConstant = iv.Start == iv.End
}

// Sanitize re-applies the construction rules. Safe to call on an already
// sanitized interval; the result is identical.
func (iv *Interval) Sanitize() {
	iv.sanitize()
}

// Width returns the size of the interval.
func (iv Interval) Width() float64 {
	return iv.End - iv.Start
}

// Clamp bounds v to [Start, End].
func (iv Interval) Clamp(v float64) float64 {
	if v < iv.Start {
		return iv.Start
	}
	if v > iv.End {
		return iv.End
	}
	return v
}

// Quantize snaps v to the nearest multiple of Step measured from Start.
// Continuous intervals (Step == 0) return v unchanged.
func (iv Interval) Quantize(v float64) float64 {
	if iv.Step == 0 {
		return v
	}
	steps := math.Round((v - iv.Start) / iv.Step)
	return iv.Start + steps*iv.Step
}

// IntervalMap keys a slice of intervals by parameter name. Later duplicates
// win, mirroring how the host rebuilds the mapping on every solve.
func IntervalMap(intervals []Interval) map[string]Interval {
	m := make(map[string]Interval, len(intervals))
	for _, iv := range intervals {
		m[iv.Name] = iv
	}
	return m
}
