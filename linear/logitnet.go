// Package linear fits L1-regularized binary logistic regression over a
// decreasing sequence of penalty strengths and selects penalties by k-fold
// cross-validation. The solver is coordinate descent on an iteratively
// reweighted least-squares approximation of the log loss, warm-started along
// the path.
package linear

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/blakeapm/textlearn/core/model"
	"github.com/blakeapm/textlearn/core/parallel"
	"github.com/blakeapm/textlearn/pkg/errors"
)

const (
	// minWorkingWeight floors the IRLS weights p(1-p) so the working
	// response stays finite near saturated probabilities.
	minWorkingWeight = 1e-5

	// parallelPredictThreshold is the row count below which prediction
	// runs sequentially.
	parallelPredictThreshold = 256
)

// LogitNet is a path of L1-penalized logistic-regression models, one
// coefficient vector per λ in a monotonically decreasing sequence. With warm
// starts the nonzero-coefficient count is non-decreasing as λ decreases.
type LogitNet struct {
	state *model.StateManager

	// hyperparameters
	userLambdas    []float64
	nLambda        int
	lambdaMinRatio float64 // 0 means choose by n vs p
	maxIter        int
	tol            float64
	fold           int // fold index for warnings; -1 outside CV

	// fitted state
	lambdas      []float64
	coefs        [][]float64
	intercepts   []float64
	nonConverged []bool
	nFeatures    int
}

// Option configures a LogitNet.
type Option func(*LogitNet)

// WithLambdas supplies an explicit penalty sequence. Values must be positive
// and strictly decreasing.
func WithLambdas(lambdas []float64) Option {
	return func(m *LogitNet) {
		m.userLambdas = lambdas
	}
}

// WithNLambda sets the length of the derived penalty sequence (default 100).
// Ignored when WithLambdas is used.
func WithNLambda(n int) Option {
	return func(m *LogitNet) {
		m.nLambda = n
	}
}

// WithLambdaMinRatio sets the ratio of the smallest to the largest derived
// penalty. The default is 1e-2 when there are fewer samples than features
// and 1e-4 otherwise.
func WithLambdaMinRatio(ratio float64) Option {
	return func(m *LogitNet) {
		m.lambdaMinRatio = ratio
	}
}

// WithMaxIter sets the iteration budget per penalty value (default 200).
func WithMaxIter(n int) Option {
	return func(m *LogitNet) {
		m.maxIter = n
	}
}

// WithTol sets the convergence tolerance on the maximum coefficient change
// per sweep (default 1e-5).
func WithTol(tol float64) Option {
	return func(m *LogitNet) {
		m.tol = tol
	}
}

// withFoldIndex tags warnings emitted by a per-fold model during
// cross-validation.
func withFoldIndex(fold int) Option {
	return func(m *LogitNet) {
		m.fold = fold
	}
}

// NewLogitNet creates an unfitted path model.
func NewLogitNet(opts ...Option) *LogitNet {
	m := &LogitNet{
		state:   model.NewStateManager(),
		nLambda: 100,
		maxIter: 200,
		tol:     1e-5,
		fold:    -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fit is FitContext with a background context.
func (m *LogitNet) Fit(X, y mat.Matrix) error {
	return m.FitContext(context.Background(), X, y)
}

// FitContext fits the full penalty path. The context is checked between λ
// steps; on cancellation the partially fitted path is discarded and the
// context error returned. A λ whose solve exhausts the iteration budget is
// flagged non-converged and reported through a ConvergenceWarning while the
// rest of the path continues.
func (m *LogitNet) FitContext(ctx context.Context, X, y mat.Matrix) error {
	yVec, err := validateBinaryTarget("LogitNet.Fit", X, y)
	if err != nil {
		return err
	}

	lambdas, err := m.lambdaSequence(X, yVec)
	if err != nil {
		return err
	}

	n, p := X.Dims()
	ys := make([]float64, n)
	var ybar float64
	for i := 0; i < n; i++ {
		ys[i] = yVec.AtVec(i)
		ybar += ys[i]
	}
	ybar /= float64(n)

	// Warm start at the null model: zero weights, intercept at the log
	// odds of the base rate.
	w := make([]float64, p)
	b0 := math.Log(ybar / (1 - ybar))

	coefs := make([][]float64, len(lambdas))
	intercepts := make([]float64, len(lambdas))
	nonConverged := make([]bool, len(lambdas))

	for li, lambda := range lambdas {
		select {
		case <-ctx.Done():
			m.state.Reset()
			return errors.Wrap(ctx.Err(), "textlearn: LogitNet.FitContext: canceled between lambda steps")
		default:
		}

		converged, err := m.fitOne(X, ys, lambda, w, &b0)
		if err != nil {
			return err
		}
		if !converged {
			nonConverged[li] = true
			errors.Warn(errors.NewConvergenceWarning("LogitNet", lambda, m.fold, m.maxIter))
		}

		coefs[li] = make([]float64, p)
		copy(coefs[li], w)
		intercepts[li] = b0
	}

	m.lambdas = lambdas
	m.coefs = coefs
	m.intercepts = intercepts
	m.nonConverged = nonConverged
	m.nFeatures = p
	m.state.SetDimensions(p, n)
	m.state.SetFitted()
	return nil
}

// fitOne solves a single λ by repeating: re-approximate the log loss by
// weighted least squares at the current estimate, then run one coordinate
// sweep with soft thresholding. The intercept is never penalized. Returns
// whether the sweep changes dropped below tol within the iteration budget.
func (m *LogitNet) fitOne(X mat.Matrix, y []float64, lambda float64, w []float64, b0 *float64) (bool, error) {
	n, p := X.Dims()
	nf := float64(n)

	eta := make([]float64, n)
	wt := make([]float64, n) // working weights p(1-p)
	r := make([]float64, n)  // working residuals z - eta

	for iter := 0; iter < m.maxIter; iter++ {
		// Quadratic approximation at the current coefficients.
		for i := 0; i < n; i++ {
			z := *b0
			for j := 0; j < p; j++ {
				z += X.At(i, j) * w[j]
			}
			eta[i] = z
			pi := sigmoid(z)
			v := pi * (1 - pi)
			if v < minWorkingWeight {
				v = minWorkingWeight
			}
			wt[i] = v
			r[i] = (y[i] - pi) / v
		}

		maxDelta := 0.0

		// Unpenalized intercept step.
		var sumW, sumWR float64
		for i := 0; i < n; i++ {
			sumW += wt[i]
			sumWR += wt[i] * r[i]
		}
		d0 := sumWR / sumW
		*b0 += d0
		for i := 0; i < n; i++ {
			r[i] -= d0
		}
		maxDelta = math.Abs(d0)

		// One coordinate sweep with soft thresholding.
		for j := 0; j < p; j++ {
			var num, denom float64
			for i := 0; i < n; i++ {
				xij := X.At(i, j)
				if xij == 0 {
					continue
				}
				num += wt[i] * xij * r[i]
				denom += wt[i] * xij * xij
			}
			num = num/nf + (denom/nf)*w[j]
			denom /= nf
			if denom == 0 {
				// Constant zero column; its coefficient stays zero.
				w[j] = 0
				continue
			}

			wj := softThreshold(num, lambda) / denom
			if wj != w[j] {
				d := wj - w[j]
				for i := 0; i < n; i++ {
					r[i] -= d * X.At(i, j)
				}
				w[j] = wj
				if math.Abs(d) > maxDelta {
					maxDelta = math.Abs(d)
				}
			}
		}

		if err := errors.CheckNumericalStability("coordinate_descent", w, iter); err != nil {
			return false, err
		}
		if err := errors.CheckScalar("intercept_update", *b0, iter); err != nil {
			return false, err
		}

		if maxDelta < m.tol {
			return true, nil
		}
	}
	return false, nil
}

// lambdaSequence returns the user-supplied sequence after validation, or
// derives a log-spaced sequence from λ_max (the smallest penalty at which
// every coefficient is zero) down to λ_max times the min ratio.
func (m *LogitNet) lambdaSequence(X mat.Matrix, y *mat.VecDense) ([]float64, error) {
	if m.userLambdas != nil {
		if len(m.userLambdas) == 0 {
			return nil, errors.NewValidationError("lambdas", "must be non-empty", m.userLambdas)
		}
		for i, l := range m.userLambdas {
			if l <= 0 {
				return nil, errors.NewValidationError("lambdas", "must be positive", l)
			}
			if i > 0 && l >= m.userLambdas[i-1] {
				return nil, errors.NewValidationError("lambdas", "must be strictly decreasing", m.userLambdas)
			}
		}
		out := make([]float64, len(m.userLambdas))
		copy(out, m.userLambdas)
		return out, nil
	}

	if m.nLambda < 2 {
		return nil, errors.NewValidationError("n_lambda", "must be >= 2", m.nLambda)
	}

	n, p := X.Dims()
	var ybar float64
	for i := 0; i < n; i++ {
		ybar += y.AtVec(i)
	}
	ybar /= float64(n)

	// λ_max = max_j |<x_j, y - ybar>| / n: the score of the null model.
	var lambdaMax float64
	for j := 0; j < p; j++ {
		var dot float64
		for i := 0; i < n; i++ {
			dot += X.At(i, j) * (y.AtVec(i) - ybar)
		}
		if abs := math.Abs(dot) / float64(n); abs > lambdaMax {
			lambdaMax = abs
		}
	}
	if lambdaMax == 0 {
		return nil, errors.NewValueError("LogitNet.Fit", "all features are uncorrelated with the labels; cannot derive a penalty sequence")
	}

	ratio := m.lambdaMinRatio
	if ratio == 0 {
		if n < p {
			ratio = 1e-2
		} else {
			ratio = 1e-4
		}
	}
	if ratio <= 0 || ratio >= 1 {
		return nil, errors.NewValidationError("lambda_min_ratio", "must be in (0, 1)", ratio)
	}

	lambdas := make([]float64, m.nLambda)
	logStep := math.Log(ratio) / float64(m.nLambda-1)
	for i := range lambdas {
		lambdas[i] = lambdaMax * math.Exp(float64(i)*logStep)
	}
	return lambdas, nil
}

// Lambdas returns the fitted penalty sequence.
func (m *LogitNet) Lambdas() []float64 {
	out := make([]float64, len(m.lambdas))
	copy(out, m.lambdas)
	return out
}

// LambdaIndex returns the path index of lambda, which must be a member of
// the fitted sequence.
func (m *LogitNet) LambdaIndex(lambda float64) (int, error) {
	if err := m.state.RequireFitted("LogitNet", "LambdaIndex"); err != nil {
		return 0, err
	}
	for i, l := range m.lambdas {
		if l == lambda || math.Abs(l-lambda) <= 1e-12*math.Max(l, lambda) {
			return i, nil
		}
	}
	return 0, errors.NewValidationError("lambda", "not a member of the fitted path", lambda)
}

// CoefAt returns a copy of the coefficient vector at path index li.
func (m *LogitNet) CoefAt(li int) ([]float64, error) {
	if err := m.checkIndex("CoefAt", li); err != nil {
		return nil, err
	}
	out := make([]float64, len(m.coefs[li]))
	copy(out, m.coefs[li])
	return out, nil
}

// InterceptAt returns the intercept at path index li.
func (m *LogitNet) InterceptAt(li int) (float64, error) {
	if err := m.checkIndex("InterceptAt", li); err != nil {
		return 0, err
	}
	return m.intercepts[li], nil
}

// NumNonzero returns the number of nonzero coefficients at path index li.
func (m *LogitNet) NumNonzero(li int) (int, error) {
	if err := m.checkIndex("NumNonzero", li); err != nil {
		return 0, err
	}
	count := 0
	for _, c := range m.coefs[li] {
		if c != 0 {
			count++
		}
	}
	return count, nil
}

// NonConvergedLambdas returns the penalty values whose solve exhausted the
// iteration budget.
func (m *LogitNet) NonConvergedLambdas() []float64 {
	var out []float64
	for li, bad := range m.nonConverged {
		if bad {
			out = append(out, m.lambdas[li])
		}
	}
	return out
}

// PredictProba returns P(y=1) for every row of X under the model at path
// index li.
func (m *LogitNet) PredictProba(X mat.Matrix, li int) (*mat.VecDense, error) {
	if err := m.checkIndex("PredictProba", li); err != nil {
		return nil, err
	}
	n, p := X.Dims()
	if p != m.nFeatures {
		return nil, errors.NewDimensionError("LogitNet.PredictProba", m.nFeatures, p, 1)
	}

	coef := m.coefs[li]
	b0 := m.intercepts[li]
	proba := mat.NewVecDense(n, nil)
	parallel.ParallelizeWithThreshold(n, parallelPredictThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			z := b0
			for j := 0; j < p; j++ {
				z += X.At(i, j) * coef[j]
			}
			proba.SetVec(i, sigmoid(z))
		}
	})
	return proba, nil
}

// Predict returns 0/1 class predictions at path index li, thresholding the
// probability at 0.5.
func (m *LogitNet) Predict(X mat.Matrix, li int) (*mat.VecDense, error) {
	proba, err := m.PredictProba(X, li)
	if err != nil {
		return nil, err
	}
	pred := mat.NewVecDense(proba.Len(), nil)
	for i := 0; i < proba.Len(); i++ {
		if proba.AtVec(i) >= 0.5 {
			pred.SetVec(i, 1)
		}
	}
	return pred, nil
}

func (m *LogitNet) checkIndex(method string, li int) error {
	if err := m.state.RequireFitted("LogitNet", method); err != nil {
		return err
	}
	if li < 0 || li >= len(m.lambdas) {
		return errors.NewValidationError("lambda_index", "out of range of the fitted path", li)
	}
	return nil
}

// validateBinaryTarget checks that X and y have matching row counts, that y
// is a column vector and that both classes 0 and 1 are present. Returns y as
// a vector.
func validateBinaryTarget(op string, X, y mat.Matrix) (*mat.VecDense, error) {
	n, _ := X.Dims()
	yRows, yCols := y.Dims()
	if n == 0 {
		return nil, errors.NewModelError(op, "empty feature matrix", errors.ErrEmptyData)
	}
	if yCols != 1 {
		return nil, errors.NewValueError(op, "y must be a column vector")
	}
	if yRows != n {
		return nil, errors.NewDimensionError(op, n, yRows, 0)
	}

	yVec := mat.NewVecDense(n, nil)
	var havePos, haveNeg bool
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return nil, errors.NewValueError(op, "labels must be 0 or 1")
		}
		if v == 1 {
			havePos = true
		} else {
			haveNeg = true
		}
		yVec.SetVec(i, v)
	}
	if !havePos || !haveNeg {
		return nil, errors.NewValueError(op, "y must contain both classes")
	}
	return yVec, nil
}

// sigmoid is the logistic link, with the exponent clipped for stability.
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + errors.StabilizeExp(-z))
}

// softThreshold is the L1 proximal operator: sign(z) * max(|z| - g, 0).
func softThreshold(z, g float64) float64 {
	switch {
	case z > g:
		return z - g
	case z < -g:
		return z + g
	default:
		return 0
	}
}
