// core/design/design.go
package design

import (
	"math"

	"phemas-core/dataset"
)

// Matrix is the shared design matrix: one row per subject, columns
// [predictor, covariates..., intercept]. It is built once per run and passed
// by reference to every fit; nothing may mutate or copy it. The tested
// coefficient is always at index 0, with the constant appended last.
type Matrix struct {
	data  []float64 // row-major, n*p
	n, p  int
	names []string
}

// Rows returns the number of subjects.
func (m *Matrix) Rows() int { return m.n }

// Cols returns the number of coefficients (predictor + covariates + 1).
func (m *Matrix) Cols() int { return m.p }

// Row returns a read-only view of subject i's covariate row.
func (m *Matrix) Row(i int) []float64 { return m.data[i*m.p : (i+1)*m.p] }

// ColNames returns the coefficient names in matrix order.
func (m *Matrix) ColNames() []string { return m.names }

// Assemble builds the design matrix for one predictor and a shared covariate
// list. It fails with *dataset.DataError if a column is absent, still carries
// missing values (missing-data handling happens on the Table first), or if a
// covariate is constant, which would make the matrix rank-deficient once the
// intercept is added.
func Assemble(t *dataset.Table, predictor string, covariates []string) (*Matrix, error) {
	names := make([]string, 0, len(covariates)+2)
	names = append(names, predictor)
	names = append(names, covariates...)

	src := make([][]float64, len(names))
	for k, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		src[k] = c
	}

	for k, name := range names {
		if err := checkColumn(name, src[k]); err != nil {
			return nil, err
		}
	}

	n := t.Rows()
	p := len(names) + 1 // intercept
	data := make([]float64, n*p)
	for i := 0; i < n; i++ {
		row := data[i*p : (i+1)*p]
		for k := range src {
			row[k] = src[k][i]
		}
		row[p-1] = 1
	}
	return &Matrix{data: data, n: n, p: p, names: append(names, "const")}, nil
}

// checkColumn rejects NaN/Inf values and, for covariates, constant columns.
// A constant predictor is also rejected: its coefficient would be confounded
// with the intercept for every phenotype.
func checkColumn(name string, c []float64) error {
	if len(c) == 0 {
		return &dataset.DataError{Column: name, Reason: "no rows"}
	}
	first := c[0]
	constant := true
	for _, v := range c {
		if math.IsNaN(v) {
			return &dataset.DataError{Column: name, Reason: "contains missing values; apply a missing-value policy first"}
		}
		if math.IsInf(v, 0) {
			return &dataset.DataError{Column: name, Reason: "contains non-finite values"}
		}
		if v != first {
			constant = false
		}
	}
	if constant {
		return &dataset.DataError{Column: name, Reason: "constant column (rank-deficient with intercept)"}
	}
	return nil
}
