// core/fitter/fitter.go
package fitter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"phemas-core/catalog"
	"phemas-core/design"
	"phemas-core/glm"
)

// Method selects the regression flavor for the whole run (never per
// phenotype). Firth is the default: phenome scans are dominated by rare
// outcomes where plain maximum likelihood is biased and separation-prone.
type Method int

const (
	MethodFirth Method = iota
	MethodLogistic
)

func (m Method) String() string {
	if m == MethodLogistic {
		return "logistic"
	}
	return "firth"
}

// Config is the per-run fitting policy, shared by every phenotype.
type Config struct {
	Method      Method
	MinCases    int
	MinControls int
	MaxIter     int
	Tol         float64
}

// Status classifies one phenotype's outcome. Only Success rows carry a
// trustworthy estimate; Unconverged rows keep the best-effort numbers as a
// diagnostic.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusUnconverged
	StatusFailed
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusUnconverged:
		return "unconverged"
	case StatusFailed:
		return "failed"
	case StatusAborted:
		return "aborted"
	}
	return "unknown"
}

// Result is one phenotype's row of the output table. Numeric fields are NaN
// when the status carries no estimate.
type Result struct {
	Phenotype string
	Status    Status
	Detail    string

	Coef      float64
	SE        float64
	P         float64
	AdjP      float64 // NaN unless an adjustment was requested
	OddsRatio float64
	CILow     float64
	CIHigh    float64

	NCases    int
	NControls int
	NTotal    int
	Iters     int
}

// Fitter runs one regression per phenotype against a shared design matrix.
// It is stateless across calls and safe for concurrent use: the matrix is
// read-only and everything else is per-call.
type Fitter struct {
	X   *design.Matrix
	Cfg Config
}

// waldZ is the 97.5% normal quantile used for confidence bounds.
var waldZ = distuv.UnitNormal.Quantile(0.975)

// Fit produces exactly one Result for the given phenotype. It never panics
// and never returns an error: every failure mode is encoded in the status.
func (f *Fitter) Fit(spec *catalog.Spec) Result {
	res := blank(spec.ID)

	n := f.X.Rows()
	rows := make([]int, 0, n)
	y := make([]float64, 0, n)
	cases := 0
	for i := 0; i < n; i++ {
		if !spec.Eligible(i) {
			continue
		}
		rows = append(rows, i)
		if spec.Case(i) {
			y = append(y, 1)
			cases++
		} else {
			y = append(y, 0)
		}
	}
	controls := len(rows) - cases
	res.NCases, res.NControls, res.NTotal = cases, controls, len(rows)

	// Expected outcome for rare phenotypes, not an error.
	switch {
	case cases < spec.MinCases:
		res.Status = StatusSkipped
		res.Detail = fmt.Sprintf("insufficient cases (%d < %d)", cases, spec.MinCases)
		return res
	case controls < spec.MinControls:
		res.Status = StatusSkipped
		res.Detail = fmt.Sprintf("insufficient controls (%d < %d)", controls, spec.MinControls)
		return res
	case controls == 0:
		res.Status = StatusSkipped
		res.Detail = "all eligible subjects are cases"
		return res
	case cases == 0:
		res.Status = StatusSkipped
		res.Detail = "no cases"
		return res
	}

	cfg := glm.Config{
		Firth:   f.Cfg.Method == MethodFirth,
		MaxIter: f.Cfg.MaxIter,
		Tol:     f.Cfg.Tol,
	}

	fit, err := glm.Logistic(f.X, rows, y, cfg)
	if err != nil {
		res.Status = StatusFailed
		res.Detail = err.Error()
		return res
	}

	res.Coef = fit.Coef[0]
	res.SE = fit.SE[0]
	res.OddsRatio = math.Exp(fit.Coef[0])
	res.CILow = math.Exp(fit.Coef[0] - waldZ*fit.SE[0])
	res.CIHigh = math.Exp(fit.Coef[0] + waldZ*fit.SE[0])
	res.Iters = fit.Iters

	if !fit.Converged {
		res.Status = StatusUnconverged
		res.Detail = fmt.Sprintf("iteration cap reached (%d)", fit.Iters)
		return res
	}

	p, err := f.pvalue(fit, rows, y, cfg)
	if err != nil {
		res.Status = StatusFailed
		res.Detail = err.Error()
		return res
	}
	res.P = p
	res.Status = StatusSuccess
	return res
}

// pvalue derives the predictor p-value. Standard mode uses the Wald statistic
// against N(0,1); Firth mode uses the penalized likelihood-ratio test against
// chi-squared(1), matching the reference tool's reporting.
func (f *Fitter) pvalue(fit *glm.Fit, rows []int, y []float64, cfg glm.Config) (float64, error) {
	if !cfg.Firth {
		z := math.Abs(fit.Coef[0] / fit.SE[0])
		return 2 * distuv.UnitNormal.Survival(z), nil
	}
	null, err := glm.LogisticConstrained(f.X, rows, y, cfg, 0)
	if err != nil {
		return 0, err
	}
	stat := 2 * (fit.LogLik - null.LogLik)
	if stat < 0 {
		stat = 0
	}
	chi2 := distuv.ChiSquared{K: 1}
	return chi2.Survival(stat), nil
}

func blank(id string) Result {
	nan := math.NaN()
	return Result{
		Phenotype: id,
		Coef:      nan, SE: nan, P: nan, AdjP: nan,
		OddsRatio: nan, CILow: nan, CIHigh: nan,
	}
}

// Aborted builds the terminal Result for a phenotype whose fit never ran
// because the run was cancelled.
func Aborted(id string) Result {
	r := blank(id)
	r.Status = StatusAborted
	r.Detail = "run aborted before fit"
	return r
}

// Failure builds a Failed Result carrying a diagnostic, used by the scheduler
// when a fit panics.
func Failure(id, detail string) Result {
	r := blank(id)
	r.Status = StatusFailed
	r.Detail = detail
	return r
}
