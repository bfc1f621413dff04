// core/scan/table.go
package scan

import (
	"math"
	"sort"

	"phemas-core/dataset"
	"phemas-core/fitter"
)

// Adjustment names an optional multiple-testing correction. The core never
// applies one unless asked, and never reorders rows to do so.
type Adjustment string

const (
	AdjustNone       Adjustment = "none"
	AdjustBonferroni Adjustment = "bonferroni"
	AdjustBH         Adjustment = "bh"
)

// ParseAdjustment validates an adjustment name.
func ParseAdjustment(s string) (Adjustment, error) {
	switch Adjustment(s) {
	case AdjustNone, AdjustBonferroni, AdjustBH:
		return Adjustment(s), nil
	}
	return AdjustNone, &dataset.DataError{Reason: "unknown adjustment " + s}
}

// Table is the ordered result of one scan: exactly one row per catalog entry,
// in catalog order regardless of scheduling, plus run metadata.
type Table struct {
	Results []fitter.Result
	Summary Summary
}

// NewTable assembles the filled slot array into a Table. Slots arrive already
// in catalog order; assembly is the identity transform on rows and only adds
// the summary tallies.
func NewTable(slots []fitter.Result, sum Summary) *Table {
	for _, r := range slots {
		switch r.Status {
		case fitter.StatusSuccess:
			sum.Success++
		case fitter.StatusSkipped:
			sum.Skipped++
		case fitter.StatusUnconverged:
			sum.Unconverged++
		case fitter.StatusFailed:
			sum.Failed++
		case fitter.StatusAborted:
			sum.Aborted++
		}
	}
	return &Table{Results: slots, Summary: sum}
}

// Adjust fills the AdjP field in place according to the chosen correction.
// Only rows with a defined p-value participate; row order is untouched.
func (t *Table) Adjust(a Adjustment) {
	if a == AdjustNone {
		return
	}
	idx := make([]int, 0, len(t.Results))
	for i := range t.Results {
		if !math.IsNaN(t.Results[i].P) {
			idx = append(idx, i)
		}
	}
	m := float64(len(idx))
	if m == 0 {
		return
	}
	switch a {
	case AdjustBonferroni:
		for _, i := range idx {
			t.Results[i].AdjP = math.Min(1, t.Results[i].P*m)
		}
	case AdjustBH:
		// Rank by p ascending over a copy of the indices; the step-up
		// cumulative minimum runs from the largest p down.
		sort.Slice(idx, func(a, b int) bool { return t.Results[idx[a]].P < t.Results[idx[b]].P })
		running := 1.0
		for k := len(idx) - 1; k >= 0; k-- {
			i := idx[k]
			v := t.Results[i].P * m / float64(k+1)
			if v < running {
				running = v
			}
			t.Results[i].AdjP = math.Min(1, running)
		}
	}
}
