// Package crossover detects strong moving-average crossovers and tracks
// which symbols already have an active alert.
package crossover

import (
	"errors"
	"fmt"
	"math"

	"futureswatch/internal/indicator"
)

// Direction of a crossover.
type Direction string

const (
	None    Direction = ""
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
)

// Emoji returns the marker used in alerts.
func (d Direction) Emoji() string {
	switch d {
	case Bullish:
		return "🟢"
	case Bearish:
		return "🔴"
	default:
		return "⚪"
	}
}

// Label returns the direction name, or NONE.
func (d Direction) Label() string {
	if d == None {
		return "NONE"
	}
	return string(d)
}

// Action returns the suggested position side.
func (d Direction) Action() string {
	switch d {
	case Bullish:
		return "LONG"
	case Bearish:
		return "SHORT"
	default:
		return "WAIT"
	}
}

// ErrMissingMA means a row lacks a usable value for a strategy MA.
var ErrMissingMA = errors.New("moving average missing or NaN")

// Detector evaluates one primary MA against its references.
type Detector struct {
	Primary     string
	References  []string
	MinStrength float64 // fraction, 0.02 = 2%
}

func (d Detector) values(row indicator.Row) (float64, []float64, error) {
	p, ok := row.MAs[d.Primary]
	if !ok || math.IsNaN(p) {
		return 0, nil, fmt.Errorf("%w: %s", ErrMissingMA, d.Primary)
	}
	refs := make([]float64, len(d.References))
	for i, name := range d.References {
		v, ok := row.MAs[name]
		if !ok || math.IsNaN(v) {
			return 0, nil, fmt.Errorf("%w: %s", ErrMissingMA, name)
		}
		refs[i] = v
	}
	return p, refs, nil
}

// Detect reports whether the move from prev to curr is a strong crossover.
// The primary must clear every reference by MinStrength now, and must not
// have been clear of at least one reference on the previous candle.
func (d Detector) Detect(prev, curr indicator.Row) (bullish, bearish bool, err error) {
	if len(d.References) == 0 {
		return false, false, fmt.Errorf("%w: no references", ErrMissingMA)
	}
	pp, prevRefs, err := d.values(prev)
	if err != nil {
		return false, false, err
	}
	cp, currRefs, err := d.values(curr)
	if err != nil {
		return false, false, err
	}

	above, below := true, true
	for _, r := range currRefs {
		if !(cp > r*(1+d.MinStrength)) {
			above = false
		}
		if !(cp < r*(1-d.MinStrength)) {
			below = false
		}
	}

	wasBelow, wasAbove := false, false
	for _, r := range prevRefs {
		if pp <= r {
			wasBelow = true
		}
		if pp >= r {
			wasAbove = true
		}
	}

	return above && wasBelow, below && wasAbove, nil
}

// HasStrength reports whether the primary sits strictly outside the
// MinStrength band of at least one reference.
func (d Detector) HasStrength(curr indicator.Row) bool {
	p, refs, err := d.values(curr)
	if err != nil {
		return false
	}
	for _, r := range refs {
		if p > r*(1+d.MinStrength) || p < r*(1-d.MinStrength) {
			return true
		}
	}
	return false
}

// Strength is the smallest percentage distance between the primary and any
// reference. It is 0 when a reference is 0 or a value is missing.
func (d Detector) Strength(curr indicator.Row) float64 {
	p, refs, err := d.values(curr)
	if err != nil || len(refs) == 0 {
		return 0
	}
	min := math.Inf(1)
	for _, r := range refs {
		if r == 0 {
			return 0
		}
		if s := math.Abs(p-r) / r * 100; s < min {
			min = s
		}
	}
	return min
}

// Classify grades a strength percentage against the configured minimum percentage.
func Classify(strength, minPercent float64) string {
	switch {
	case strength >= 2*minPercent:
		return "VERY STRONG"
	case strength >= 1.5*minPercent:
		return "STRONG"
	default:
		return "VALID"
	}
}
