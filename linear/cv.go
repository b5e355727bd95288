package linear

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/blakeapm/textlearn/core/model"
	"github.com/blakeapm/textlearn/metrics"
	"github.com/blakeapm/textlearn/pkg/errors"
)

// CVCurve is the cross-validation curve over the penalty path: per-λ mean
// held-out binomial deviance with its spread across folds, and the two
// distinguished penalties λ_min and λ_1se.
type CVCurve struct {
	Lambdas []float64

	// Mean, Std and StdErr are computed over the folds that converged at
	// each λ. FoldsUsed records how many that was.
	Mean      []float64
	Std       []float64
	StdErr    []float64
	FoldsUsed []int

	// Excluded marks λ values where at least one fold failed to converge;
	// these never participate in λ_min / λ_1se selection.
	Excluded []bool

	NFolds int

	// LambdaMin minimizes the mean curve. Lambda1SE is the largest λ whose
	// mean is within one standard error of the minimum, i.e. the sparsest
	// model statistically indistinguishable from the best.
	LambdaMinIndex int
	Lambda1SEIndex int
	LambdaMin      float64
	Lambda1SE      float64
}

// ExcludedLambdas returns the penalty values excluded from selection.
func (c *CVCurve) ExcludedLambdas() []float64 {
	var out []float64
	for i, ex := range c.Excluded {
		if ex {
			out = append(out, c.Lambdas[i])
		}
	}
	return out
}

// LogitNetCV selects penalties for LogitNet by stratified k-fold
// cross-validation. Fold jobs run concurrently over the shared read-only
// data, each writing its per-λ deviances to a private slot; after the folds
// are reduced the full path is refitted on all data.
type LogitNetCV struct {
	state    *model.StateManager
	folds    int
	seed     int64
	pathOpts []Option

	// Model is the full-data path fit; Curve the cross-validation result.
	Model *LogitNet
	Curve *CVCurve
}

// CVOption configures a LogitNetCV.
type CVOption func(*LogitNetCV)

// WithFolds sets the number of cross-validation folds (default 5).
func WithFolds(k int) CVOption {
	return func(cv *LogitNetCV) {
		cv.folds = k
	}
}

// WithSeed sets the fold-assignment seed. Identical seed and input produce
// identical folds and an identical curve.
func WithSeed(seed int64) CVOption {
	return func(cv *LogitNetCV) {
		cv.seed = seed
	}
}

// WithPathOptions passes options through to every underlying LogitNet.
func WithPathOptions(opts ...Option) CVOption {
	return func(cv *LogitNetCV) {
		cv.pathOpts = append(cv.pathOpts, opts...)
	}
}

// NewLogitNetCV creates an unfitted cross-validated path model.
func NewLogitNetCV(opts ...CVOption) *LogitNetCV {
	cv := &LogitNetCV{
		state: model.NewStateManager(),
		folds: 5,
		seed:  1,
	}
	for _, opt := range opts {
		opt(cv)
	}
	return cv
}

// Fit cross-validates the penalty path on (X, y) and refits the selected
// path on the full data. Fails with a SingleClassFoldError if any fold ends
// up with one label class. Cancellation via ctx discards partial results.
func (cv *LogitNetCV) Fit(ctx context.Context, X, y mat.Matrix) error {
	yVec, err := validateBinaryTarget("LogitNetCV.Fit", X, y)
	if err != nil {
		return err
	}
	if cv.folds < 2 {
		return errors.NewValidationError("folds", "must be >= 2", cv.folds)
	}
	n, _ := X.Dims()
	if cv.folds > n {
		return errors.NewValidationError("folds", "cannot exceed the number of samples", cv.folds)
	}

	// One λ sequence, derived on the full data and shared by every fold so
	// the per-fold curves are comparable.
	lambdas, err := NewLogitNet(cv.pathOpts...).lambdaSequence(X, yVec)
	if err != nil {
		return err
	}

	folds := NewStratifiedKFold(cv.folds, cv.seed).Split(yVec)
	for fi, fold := range folds {
		if err := requireBothClasses(yVec, fold.TrainIndices, fi, "train"); err != nil {
			return err
		}
		if err := requireBothClasses(yVec, fold.TestIndices, fi, "test"); err != nil {
			return err
		}
	}

	k := len(folds)
	nl := len(lambdas)
	foldDev := make([][]float64, k)
	foldConv := make([][]bool, k)

	g, gctx := errgroup.WithContext(ctx)
	for fi := range folds {
		g.Go(func() error {
			trainX, trainY := subsetRows(X, yVec, folds[fi].TrainIndices)
			testX, testY := subsetRows(X, yVec, folds[fi].TestIndices)

			opts := append(append([]Option{}, cv.pathOpts...),
				WithLambdas(lambdas), withFoldIndex(fi))
			net := NewLogitNet(opts...)
			if err := net.FitContext(gctx, trainX, trainY); err != nil {
				return errors.Wrapf(err, "fold %d", fi)
			}

			devs := make([]float64, nl)
			conv := make([]bool, nl)
			for li := range lambdas {
				proba, err := net.PredictProba(testX, li)
				if err != nil {
					return errors.Wrapf(err, "fold %d lambda %g", fi, lambdas[li])
				}
				dev, err := metrics.BinomialDeviance(testY, proba)
				if err != nil {
					return errors.Wrapf(err, "fold %d lambda %g", fi, lambdas[li])
				}
				devs[li] = dev
				conv[li] = !net.nonConverged[li]
			}
			foldDev[fi] = devs
			foldConv[fi] = conv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	curve, err := reduceFolds(lambdas, foldDev, foldConv)
	if err != nil {
		return err
	}

	full := NewLogitNet(append(append([]Option{}, cv.pathOpts...), WithLambdas(lambdas))...)
	if err := full.FitContext(ctx, X, y); err != nil {
		return err
	}

	cv.Model = full
	cv.Curve = curve
	_, p := X.Dims()
	cv.state.SetDimensions(p, n)
	cv.state.SetFitted()
	return nil
}

// reduceFolds averages per-fold deviances into the curve and applies the
// λ_min / λ_1se selection rule.
func reduceFolds(lambdas []float64, foldDev [][]float64, foldConv [][]bool) (*CVCurve, error) {
	k := len(foldDev)
	nl := len(lambdas)

	curve := &CVCurve{
		Lambdas:   lambdas,
		Mean:      make([]float64, nl),
		Std:       make([]float64, nl),
		StdErr:    make([]float64, nl),
		FoldsUsed: make([]int, nl),
		Excluded:  make([]bool, nl),
		NFolds:    k,
	}

	for li := 0; li < nl; li++ {
		var sum float64
		used := 0
		for fi := 0; fi < k; fi++ {
			if foldConv[fi][li] {
				sum += foldDev[fi][li]
				used++
			}
		}
		curve.FoldsUsed[li] = used
		curve.Excluded[li] = used < k
		if used == 0 {
			curve.Mean[li] = math.NaN()
			curve.Std[li] = math.NaN()
			curve.StdErr[li] = math.NaN()
			continue
		}

		mean := sum / float64(used)
		curve.Mean[li] = mean
		if used > 1 {
			var sq float64
			for fi := 0; fi < k; fi++ {
				if foldConv[fi][li] {
					d := foldDev[fi][li] - mean
					sq += d * d
				}
			}
			curve.Std[li] = math.Sqrt(sq / float64(used-1))
			curve.StdErr[li] = curve.Std[li] / math.Sqrt(float64(used))
		}
	}

	// λ_min: smallest mean among usable λ. Ties go to the larger λ, which
	// comes first in the decreasing sequence.
	minIdx := -1
	for li := 0; li < nl; li++ {
		if curve.Excluded[li] {
			continue
		}
		if minIdx < 0 || curve.Mean[li] < curve.Mean[minIdx] {
			minIdx = li
		}
	}
	if minIdx < 0 {
		return nil, errors.NewModelError("LogitNetCV.Fit", "no lambda converged in every fold; the entire path is unusable", nil)
	}

	// λ_1se: the largest usable λ with mean within one standard error of
	// the minimum. Scanning from the top of the (decreasing) sequence down
	// to λ_min finds it first; λ_1se >= λ_min always holds.
	threshold := curve.Mean[minIdx] + curve.StdErr[minIdx]
	oneSEIdx := minIdx
	for li := 0; li <= minIdx; li++ {
		if !curve.Excluded[li] && curve.Mean[li] <= threshold {
			oneSEIdx = li
			break
		}
	}

	curve.LambdaMinIndex = minIdx
	curve.Lambda1SEIndex = oneSEIdx
	curve.LambdaMin = lambdas[minIdx]
	curve.Lambda1SE = lambdas[oneSEIdx]
	return curve, nil
}

// requireBothClasses fails when the indexed subset of y is single-class.
func requireBothClasses(y *mat.VecDense, indices []int, fold int, split string) error {
	var havePos, haveNeg bool
	for _, i := range indices {
		if y.AtVec(i) == 1 {
			havePos = true
		} else {
			haveNeg = true
		}
	}
	if !havePos {
		return errors.NewSingleClassFoldError(fold, split, 0)
	}
	if !haveNeg {
		return errors.NewSingleClassFoldError(fold, split, 1)
	}
	return nil
}
