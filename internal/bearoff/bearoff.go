// Package bearoff provides the race table used for endgame evaluation.
//
// Once contact is broken a backgammon game is a pure race and the pip
// differential is a good predictor of the outcome. The table maps a pip
// differential, quantized to multiples of Step, to an equity in [-1, 1]
// from the perspective of the side whose lead the differential measures.
package bearoff

import (
	"math"
	"sync"
)

const (
	// Step is the quantization step of the pip differential
	Step = 5
	// MinDiff and MaxDiff bound the tabulated differentials
	MinDiff = -50
	MaxDiff = 50
	// Scale is the pip scale of the tanh curve used between anchors
	Scale = 100.0
)

// anchors are the hand-tuned race equities at multiples of ten pips.
// They are stored as probabilities of winning and converted with 2p-1.
var anchors = map[int]float64{
	0:  0.50,
	10: 0.60,
	20: 0.75,
	30: 0.85,
	40: 0.92,
	50: 0.96,
}

// Table maps quantized pip differentials to equities.
// A Table is immutable after construction and safe for concurrent use.
type Table struct {
	entries map[int]float64
}

var (
	defaultTable *Table
	defaultOnce  sync.Once
)

// Default returns the shared table, building it on first use
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = NewTable()
	})
	return defaultTable
}

// NewTable builds the race table.
// Anchor differentials take their tuned equity; the odd multiples of Step in
// between take the midpoint of their neighbours so the table is monotonic.
// Negative differentials mirror positive ones.
func NewTable() *Table {
	t := &Table{entries: make(map[int]float64, (MaxDiff-MinDiff)/Step+1)}

	for d := 0; d <= MaxDiff; d += 2 * Step {
		t.entries[d] = 2*anchors[d] - 1
	}
	for d := Step; d < MaxDiff; d += 2 * Step {
		t.entries[d] = (t.entries[d-Step] + t.entries[d+Step]) / 2
	}
	for d := Step; d <= MaxDiff; d += Step {
		t.entries[-d] = -t.entries[d]
	}
	return t
}

// Quantize rounds a pip differential to the nearest multiple of Step.
// Halves round away from zero so that Quantize(-d) == -Quantize(d).
func Quantize(diff int) int {
	return int(math.Round(float64(diff)/Step)) * Step
}

// Lookup returns the tabulated equity for a differential, if present
func (t *Table) Lookup(diff int) (float64, bool) {
	eq, ok := t.entries[Quantize(diff)]
	return eq, ok
}

// Equity returns the race equity for a pip differential.
// Differentials outside the table continue from the table's edge along a
// tanh curve that approaches 1 without reaching it.
func (t *Table) Equity(diff int) float64 {
	if eq, ok := t.Lookup(diff); ok {
		return eq
	}

	q := Quantize(diff)
	sign := 1.0
	if q < 0 {
		sign = -1
		q = -q
	}
	edge := t.entries[MaxDiff]
	return sign * (edge + (1-edge)*math.Tanh(float64(q-MaxDiff)/Scale))
}

// Len returns the number of tabulated differentials
func (t *Table) Len() int {
	return len(t.entries)
}
