// core/dataset/table.go
package dataset

import (
	"fmt"
	"math"
	"sort"
)

// DataError reports malformed or missing input data. It is fatal: the caller
// must surface it before any fitting starts.
type DataError struct {
	Column string
	Reason string
}

func (e *DataError) Error() string {
	if e.Column == "" {
		return "data error: " + e.Reason
	}
	return fmt.Sprintf("data error in column %q: %s", e.Column, e.Reason)
}

// Table is a columnar, subject-major view of the input: one row per subject,
// named float64 columns with NaN marking missing values. Columns are shared,
// not copied; callers must treat them as read-only.
type Table struct {
	ids   []string
	names []string
	cols  map[string][]float64
}

// New builds a Table from subject IDs and named columns. Every column must
// match len(ids).
func New(ids []string, names []string, cols map[string][]float64) (*Table, error) {
	for _, name := range names {
		c, ok := cols[name]
		if !ok {
			return nil, &DataError{Column: name, Reason: "declared but not provided"}
		}
		if len(c) != len(ids) {
			return nil, &DataError{Column: name, Reason: fmt.Sprintf("has %d rows, want %d", len(c), len(ids))}
		}
	}
	return &Table{ids: ids, names: names, cols: cols}, nil
}

// Rows returns the number of subjects.
func (t *Table) Rows() int { return len(t.ids) }

// ID returns the opaque subject identifier for row i.
func (t *Table) ID(i int) string { return t.ids[i] }

// Names returns the column names in input order.
func (t *Table) Names() []string { return t.names }

// Column returns the named column, or a DataError if it does not exist.
func (t *Table) Column(name string) ([]float64, error) {
	c, ok := t.cols[name]
	if !ok {
		return nil, &DataError{Column: name, Reason: "not present in input"}
	}
	return c, nil
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// DropMissing returns a new Table keeping only rows with no NaN in any of the
// given columns, plus the number of rows dropped. All columns (not just the
// listed ones) are filtered so row alignment is preserved table-wide.
func (t *Table) DropMissing(names []string) (*Table, int, error) {
	checked := make([][]float64, 0, len(names))
	for _, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, 0, err
		}
		checked = append(checked, c)
	}
	keep := make([]int, 0, t.Rows())
row:
	for i := 0; i < t.Rows(); i++ {
		for _, c := range checked {
			if math.IsNaN(c[i]) {
				continue row
			}
		}
		keep = append(keep, i)
	}
	if len(keep) == t.Rows() {
		return t, 0, nil
	}
	ids := make([]string, len(keep))
	for j, i := range keep {
		ids[j] = t.ids[i]
	}
	cols := make(map[string][]float64, len(t.cols))
	for name, c := range t.cols {
		nc := make([]float64, len(keep))
		for j, i := range keep {
			nc[j] = c[i]
		}
		cols[name] = nc
	}
	return &Table{ids: ids, names: t.names, cols: cols}, t.Rows() - len(keep), nil
}

// ImputeMean returns a new Table with NaNs in the given columns replaced by
// the column mean over observed values. A column with no observed values at
// all is a DataError.
func (t *Table) ImputeMean(names []string) (*Table, error) {
	return t.impute(names, func(obs []float64) float64 {
		sum := 0.0
		for _, v := range obs {
			sum += v
		}
		return sum / float64(len(obs))
	})
}

// ImputeMedian is ImputeMean with the median as the fill value.
func (t *Table) ImputeMedian(names []string) (*Table, error) {
	return t.impute(names, median)
}

func (t *Table) impute(names []string, fill func([]float64) float64) (*Table, error) {
	cols := make(map[string][]float64, len(t.cols))
	for name, c := range t.cols {
		cols[name] = c
	}
	for _, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		obs := make([]float64, 0, len(c))
		missing := 0
		for _, v := range c {
			if math.IsNaN(v) {
				missing++
			} else {
				obs = append(obs, v)
			}
		}
		if missing == 0 {
			continue
		}
		if len(obs) == 0 {
			return nil, &DataError{Column: name, Reason: "all values missing"}
		}
		v := fill(obs)
		nc := make([]float64, len(c))
		for i := range c {
			if math.IsNaN(c[i]) {
				nc[i] = v
			} else {
				nc[i] = c[i]
			}
		}
		cols[name] = nc
	}
	return &Table{ids: t.ids, names: t.names, cols: cols}, nil
}

func median(obs []float64) float64 {
	s := make([]float64, len(obs))
	copy(s, obs)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
