// core/glm/glm.go
package glm

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"phemas-core/design"
)

// ErrSingular is returned when the information matrix cannot be factorized
// at some iteration. The affected fit is abandoned; siblings are untouched.
var ErrSingular = errors.New("glm: singular information matrix")

// Config controls one maximum-likelihood (or penalized) logistic fit.
// Standard and Firth mode share the same IRLS machinery; Firth only changes
// the score equations and the objective (Jeffreys-prior penalization).
type Config struct {
	Firth   bool
	MaxIter int     // iteration cap; 0 means DefaultMaxIter
	Tol     float64 // max |Δβ| convergence threshold; 0 means DefaultTol
}

const (
	DefaultMaxIter = 25
	DefaultTol     = 1e-6

	// minWeight keeps the working weights strictly positive so a fitted
	// probability saturating at 0/1 degrades to ErrSingular instead of NaN.
	minWeight = 1e-10

	// maxHalvings bounds the step-halving search in Firth mode.
	maxHalvings = 8

	// maxCond is the condition-number ceiling on the information matrix.
	// Rank deficiency can survive Cholesky with a denormal pivot instead of
	// failing outright; beyond this the solve is numerically meaningless.
	maxCond = 1e14
)

// Fit is the outcome of one regression.
type Fit struct {
	Coef      []float64
	SE        []float64
	LogLik    float64 // penalized log-likelihood in Firth mode
	Iters     int
	Converged bool
}

func (c Config) maxIter() int {
	if c.MaxIter > 0 {
		return c.MaxIter
	}
	return DefaultMaxIter
}

func (c Config) tol() float64 {
	if c.Tol > 0 {
		return c.Tol
	}
	return DefaultTol
}

// Logistic fits y ~ X over the given row subset. rows indexes into X; y is
// parallel to rows. X is shared and read-only: the subset is expressed purely
// through the index list, never by copying the matrix.
func Logistic(X *design.Matrix, rows []int, y []float64, cfg Config) (*Fit, error) {
	return irls(X, rows, y, cfg, -1)
}

// LogisticConstrained fits the same model with coefficient `locked` pinned at
// zero, maximizing over the remaining coefficients. Its LogLik against the
// unconstrained fit forms the (penalized) likelihood-ratio statistic.
func LogisticConstrained(X *design.Matrix, rows []int, y []float64, cfg Config, locked int) (*Fit, error) {
	return irls(X, rows, y, cfg, locked)
}

// state holds the per-iteration working quantities so they can be reused
// between the scoring step and the objective evaluation.
type state struct {
	X    *design.Matrix
	rows []int
	y    []float64
	p    int

	eta []float64
	mu  []float64
	w   []float64

	info *mat.SymDense
	inv  mat.SymDense
	chol mat.Cholesky
}

func irls(X *design.Matrix, rows []int, y []float64, cfg Config, locked int) (*Fit, error) {
	p := X.Cols()
	st := &state{
		X: X, rows: rows, y: y, p: p,
		eta:  make([]float64, len(rows)),
		mu:   make([]float64, len(rows)),
		w:    make([]float64, len(rows)),
		info: mat.NewSymDense(p, nil),
	}

	beta := make([]float64, p)
	delta := make([]float64, p)
	score := make([]float64, p)

	converged := false
	iters := 0

	for iter := 1; iter <= cfg.maxIter(); iter++ {
		iters = iter
		if err := st.refresh(beta); err != nil {
			return nil, err
		}

		st.scoreVector(score, cfg.Firth)
		if locked >= 0 {
			score[locked] = 0
		}
		if err := st.solve(score, delta, locked); err != nil {
			return nil, err
		}

		step := 1.0
		if cfg.Firth {
			// Penalized Newton steps can overshoot; halve until the
			// penalized log-likelihood stops decreasing.
			cur, err := st.objective(beta, cfg.Firth)
			if err != nil {
				return nil, err
			}
			for h := 0; h < maxHalvings; h++ {
				cand, err := st.objective(applyStep(beta, delta, step, locked), cfg.Firth)
				if err == nil && cand >= cur-1e-12 {
					break
				}
				step /= 2
			}
		}

		maxDelta := 0.0
		for k := 0; k < p; k++ {
			if k == locked {
				continue
			}
			d := step * delta[k]
			beta[k] += d
			if a := math.Abs(d); a > maxDelta {
				maxDelta = a
			}
		}
		if maxDelta < cfg.tol() {
			converged = true
			break
		}
	}

	// Final information matrix at the converged estimate for SEs and, in
	// Firth mode, the penalty term of the reported log-likelihood.
	if err := st.refresh(beta); err != nil {
		return nil, err
	}
	if err := st.chol.InverseTo(&st.inv); err != nil {
		return nil, ErrSingular
	}
	se := make([]float64, p)
	for k := 0; k < p; k++ {
		se[k] = math.Sqrt(st.inv.At(k, k))
	}
	ll, err := st.objective(beta, cfg.Firth)
	if err != nil {
		return nil, err
	}

	return &Fit{Coef: beta, SE: se, LogLik: ll, Iters: iters, Converged: converged}, nil
}

// refresh recomputes eta/mu/w and refactorizes the information matrix at beta.
func (s *state) refresh(beta []float64) error {
	buf := make([]float64, s.p*s.p)
	for j, r := range s.rows {
		x := s.X.Row(r)
		eta := dot(x, beta)
		mu := sigmoid(eta)
		w := mu * (1 - mu)
		if w < minWeight {
			w = minWeight
		}
		s.eta[j], s.mu[j], s.w[j] = eta, mu, w
		for a := 0; a < s.p; a++ {
			wxa := w * x[a]
			row := buf[a*s.p:]
			for b := a; b < s.p; b++ {
				row[b] += wxa * x[b]
			}
		}
	}
	for a := 0; a < s.p; a++ {
		for b := a; b < s.p; b++ {
			s.info.SetSym(a, b, buf[a*s.p+b])
		}
	}
	if !s.chol.Factorize(s.info) {
		return ErrSingular
	}
	if s.chol.Cond() > maxCond {
		return ErrSingular
	}
	return nil
}

// scoreVector fills u with the (optionally Firth-modified) score at the
// current working state. Firth mode needs the hat diagonal, hence the
// information inverse.
func (s *state) scoreVector(u []float64, firth bool) {
	for k := range u {
		u[k] = 0
	}
	if firth {
		// refresh already factorized; reuse for the hat diagonal.
		if err := s.chol.InverseTo(&s.inv); err != nil {
			// Factorization succeeded, so the inverse exists; a failure here
			// leaves the plain score, and the next factorize will catch it.
			firth = false
		}
	}
	for j, r := range s.rows {
		x := s.X.Row(r)
		resid := s.y[j] - s.mu[j]
		if firth {
			h := s.w[j] * quadForm(&s.inv, x)
			resid += h * (0.5 - s.mu[j])
		}
		for k, xv := range x {
			u[k] += resid * xv
		}
	}
}

// solve computes the Newton step delta from the factorized information
// matrix, optionally over the subsystem excluding the locked coefficient.
func (s *state) solve(score, delta []float64, locked int) error {
	if locked < 0 {
		var d mat.VecDense
		if err := s.chol.SolveVecTo(&d, mat.NewVecDense(s.p, score)); err != nil {
			return ErrSingular
		}
		for k := 0; k < s.p; k++ {
			delta[k] = d.AtVec(k)
		}
		return nil
	}

	q := s.p - 1
	free := make([]int, 0, q)
	for k := 0; k < s.p; k++ {
		if k != locked {
			free = append(free, k)
		}
	}
	sub := mat.NewSymDense(q, nil)
	for a := 0; a < q; a++ {
		for b := a; b < q; b++ {
			sub.SetSym(a, b, s.info.At(free[a], free[b]))
		}
	}
	rhs := make([]float64, q)
	for a := 0; a < q; a++ {
		rhs[a] = score[free[a]]
	}
	var chol mat.Cholesky
	if !chol.Factorize(sub) {
		return ErrSingular
	}
	var d mat.VecDense
	if err := chol.SolveVecTo(&d, mat.NewVecDense(q, rhs)); err != nil {
		return ErrSingular
	}
	for k := range delta {
		delta[k] = 0
	}
	for a := 0; a < q; a++ {
		delta[free[a]] = d.AtVec(a)
	}
	return nil
}

// objective is the log-likelihood at beta, plus half the log-determinant of
// the information matrix in Firth mode.
func (s *state) objective(beta []float64, firth bool) (float64, error) {
	ll := 0.0
	for j, r := range s.rows {
		eta := dot(s.X.Row(r), beta)
		ll += s.y[j]*eta - softplus(eta)
	}
	if !firth {
		return ll, nil
	}
	// Information matrix at this beta, which may be a trial point off the
	// current working state.
	buf := mat.NewSymDense(s.p, nil)
	for _, r := range s.rows {
		x := s.X.Row(r)
		mu := sigmoid(dot(x, beta))
		w := mu * (1 - mu)
		if w < minWeight {
			w = minWeight
		}
		for a := 0; a < s.p; a++ {
			for b := a; b < s.p; b++ {
				buf.SetSym(a, b, buf.At(a, b)+w*x[a]*x[b])
			}
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(buf) {
		return 0, ErrSingular
	}
	return ll + 0.5*chol.LogDet(), nil
}

func applyStep(beta, delta []float64, step float64, locked int) []float64 {
	out := make([]float64, len(beta))
	for k := range beta {
		if k == locked {
			out[k] = beta[k]
			continue
		}
		out[k] = beta[k] + step*delta[k]
	}
	return out
}

func dot(x, b []float64) float64 {
	s := 0.0
	for k, v := range x {
		s += v * b[k]
	}
	return s
}

// sigmoid is the logistic function with saturation guards.
func sigmoid(eta float64) float64 {
	if eta > 35 {
		return 1 - 1e-15
	}
	if eta < -35 {
		return 1e-15
	}
	return 1 / (1 + math.Exp(-eta))
}

// softplus computes log(1+exp(eta)) without overflow.
func softplus(eta float64) float64 {
	if eta > 35 {
		return eta
	}
	return math.Log1p(math.Exp(eta))
}

// quadForm computes x' A x for a symmetric A.
func quadForm(a *mat.SymDense, x []float64) float64 {
	n := len(x)
	s := 0.0
	for i := 0; i < n; i++ {
		s += a.At(i, i) * x[i] * x[i]
		for j := i + 1; j < n; j++ {
			s += 2 * a.At(i, j) * x[i] * x[j]
		}
	}
	return s
}
