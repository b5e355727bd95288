package linear

import (
	"context"
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/blakeapm/textlearn/pkg/errors"
)

// overlappingData builds 100 samples where the classes overlap: positives
// have x0 in {2, 3, 4}, negatives in {0, 1, 2}, and x1 carries noise.
func overlappingData() (*mat.Dense, *mat.VecDense) {
	n := 100
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if i < n/2 {
			X.Set(i, 0, float64(2+i%3))
			y.SetVec(i, 1)
		} else {
			X.Set(i, 0, float64(i%3))
		}
		X.Set(i, 1, float64(i%4))
	}
	return X, y
}

func cvLambdas() []float64 {
	lambdas := make([]float64, 10)
	for i := range lambdas {
		lambdas[i] = math.Pow(10, -float64(i)/3)
	}
	return lambdas
}

func TestLogitNetCVFit(t *testing.T) {
	X, y := overlappingData()
	lambdas := cvLambdas()

	cv := NewLogitNetCV(WithFolds(5), WithSeed(7),
		WithPathOptions(WithLambdas(lambdas), WithMaxIter(1000)))
	if err := cv.Fit(context.Background(), X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	curve := cv.Curve
	if curve.NFolds != 5 {
		t.Errorf("NFolds = %d, want 5", curve.NFolds)
	}
	nl := len(lambdas)
	if len(curve.Lambdas) != nl || len(curve.Mean) != nl || len(curve.Std) != nl ||
		len(curve.StdErr) != nl || len(curve.FoldsUsed) != nl || len(curve.Excluded) != nl {
		t.Fatalf("curve slice lengths inconsistent with %d lambdas", nl)
	}

	for li := 0; li < nl; li++ {
		if curve.Excluded[li] {
			t.Errorf("lambda %v unexpectedly excluded", curve.Lambdas[li])
		}
		if curve.FoldsUsed[li] != 5 {
			t.Errorf("FoldsUsed[%d] = %d, want 5", li, curve.FoldsUsed[li])
		}
		if curve.Mean[li] <= 0 || math.IsNaN(curve.Mean[li]) {
			t.Errorf("Mean[%d] = %v, want positive deviance", li, curve.Mean[li])
		}
		if curve.Std[li] < 0 || curve.StdErr[li] < 0 {
			t.Errorf("spread at %d is negative: std %v, stderr %v", li, curve.Std[li], curve.StdErr[li])
		}
	}

	// The one-standard-error penalty is always at least as strong as the
	// minimizing one.
	if curve.Lambda1SEIndex > curve.LambdaMinIndex {
		t.Errorf("Lambda1SEIndex = %d > LambdaMinIndex = %d", curve.Lambda1SEIndex, curve.LambdaMinIndex)
	}
	if curve.Lambda1SE < curve.LambdaMin {
		t.Errorf("Lambda1SE = %v < LambdaMin = %v", curve.Lambda1SE, curve.LambdaMin)
	}
	if curve.LambdaMin != curve.Lambdas[curve.LambdaMinIndex] {
		t.Errorf("LambdaMin = %v does not match index %d", curve.LambdaMin, curve.LambdaMinIndex)
	}

	// The full-data refit carries the same path.
	if cv.Model == nil {
		t.Fatal("Model is nil after Fit()")
	}
	if got := cv.Model.Lambdas(); !reflect.DeepEqual(got, lambdas) {
		t.Errorf("Model.Lambdas() = %v, want %v", got, lambdas)
	}
	if _, err := cv.Model.PredictProba(X, curve.LambdaMinIndex); err != nil {
		t.Errorf("Model.PredictProba() error = %v", err)
	}
}

func TestLogitNetCVDeterminism(t *testing.T) {
	X, y := overlappingData()
	lambdas := cvLambdas()

	errors.SetWarningHandler(func(error) {})
	defer errors.SetWarningHandler(nil)

	run := func() *CVCurve {
		cv := NewLogitNetCV(WithFolds(5), WithSeed(3),
			WithPathOptions(WithLambdas(lambdas), WithMaxIter(1000)))
		if err := cv.Fit(context.Background(), X, y); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		return cv.Curve
	}

	a, b := run(), run()

	if !reflect.DeepEqual(a.Lambdas, b.Lambdas) {
		t.Errorf("lambda sequences differ: %v vs %v", a.Lambdas, b.Lambdas)
	}
	if !reflect.DeepEqual(a.FoldsUsed, b.FoldsUsed) {
		t.Errorf("FoldsUsed differ: %v vs %v", a.FoldsUsed, b.FoldsUsed)
	}
	if !reflect.DeepEqual(a.Excluded, b.Excluded) {
		t.Errorf("Excluded differ: %v vs %v", a.Excluded, b.Excluded)
	}
	if a.LambdaMinIndex != b.LambdaMinIndex || a.Lambda1SEIndex != b.Lambda1SEIndex {
		t.Errorf("selection differs: min %d/%d, 1se %d/%d",
			a.LambdaMinIndex, b.LambdaMinIndex, a.Lambda1SEIndex, b.Lambda1SEIndex)
	}
	// Mean is NaN where no fold converged, so compare element-wise with NaN
	// at matching positions counting as equal.
	sameFloats(t, "Mean", a.Mean, b.Mean)
	sameFloats(t, "Std", a.Std, b.Std)
	sameFloats(t, "StdErr", a.StdErr, b.StdErr)

	// A λ with no usable folds reproduces as the same NaN entry, never as a
	// zero-filled or fresh value.
	for li, used := range a.FoldsUsed {
		if used == 0 {
			if !a.Excluded[li] {
				t.Errorf("lambda %v has no usable folds but is not excluded", a.Lambdas[li])
			}
			if !math.IsNaN(a.Mean[li]) {
				t.Errorf("Mean[%d] = %v with no usable folds, want NaN", li, a.Mean[li])
			}
		}
	}
}

// sameFloats compares slices element-wise; NaN at the same index on both
// sides counts as equal.
func sameFloats(t *testing.T, name string, a, b []float64) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("%s lengths differ: %d vs %d", name, len(a), len(b))
	}
	for i := range a {
		if math.IsNaN(a[i]) && math.IsNaN(b[i]) {
			continue
		}
		if a[i] != b[i] {
			t.Errorf("%s[%d] = %v vs %v", name, i, a[i], b[i])
		}
	}
}

func TestLogitNetCVSingleClassFold(t *testing.T) {
	// One positive among six samples cannot stratify across three folds.
	X := mat.NewDense(6, 1, []float64{5, 0, 1, 0, 1, 0})
	y := mat.NewVecDense(6, []float64{1, 0, 0, 0, 0, 0})

	cv := NewLogitNetCV(WithFolds(3), WithPathOptions(WithLambdas(cvLambdas())))
	err := cv.Fit(context.Background(), X, y)
	var scfe *errors.SingleClassFoldError
	if !errors.As(err, &scfe) {
		t.Fatalf("Fit() error = %v, want SingleClassFoldError", err)
	}
}

func TestLogitNetCVFoldValidation(t *testing.T) {
	X, y := overlappingData()

	if err := NewLogitNetCV(WithFolds(1)).Fit(context.Background(), X, y); err == nil {
		t.Error("Fit() with 1 fold expected error")
	}
	if err := NewLogitNetCV(WithFolds(101)).Fit(context.Background(), X, y); err == nil {
		t.Error("Fit() with more folds than samples expected error")
	}
}

func TestLogitNetCVCanceledContext(t *testing.T) {
	X, y := overlappingData()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cv := NewLogitNetCV(WithFolds(5), WithPathOptions(WithLambdas(cvLambdas())))
	err := cv.Fit(ctx, X, y)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fit() with canceled context error = %v, want context.Canceled", err)
	}
}

func TestReduceFoldsExclusion(t *testing.T) {
	lambdas := []float64{1.0, 0.1, 0.01}
	foldDev := [][]float64{
		{1.4, 1.0, 1.2},
		{1.2, 0.9, 1.1},
	}
	// One fold fails to converge at the smallest lambda.
	foldConv := [][]bool{
		{true, true, false},
		{true, true, true},
	}

	curve, err := reduceFolds(lambdas, foldDev, foldConv)
	if err != nil {
		t.Fatalf("reduceFolds() error = %v", err)
	}

	if !curve.Excluded[2] || curve.Excluded[0] || curve.Excluded[1] {
		t.Errorf("Excluded = %v, want [false false true]", curve.Excluded)
	}
	if curve.FoldsUsed[2] != 1 {
		t.Errorf("FoldsUsed[2] = %d, want 1", curve.FoldsUsed[2])
	}
	if got := curve.ExcludedLambdas(); !reflect.DeepEqual(got, []float64{0.01}) {
		t.Errorf("ExcludedLambdas() = %v, want [0.01]", got)
	}

	// Selection ignores the excluded lambda even though one fold scored it.
	if curve.LambdaMinIndex != 1 {
		t.Errorf("LambdaMinIndex = %d, want 1", curve.LambdaMinIndex)
	}
}

func TestReduceFoldsAllExcluded(t *testing.T) {
	lambdas := []float64{1.0, 0.1}
	foldDev := [][]float64{{1, 1}, {1, 1}}
	foldConv := [][]bool{{false, false}, {false, true}}

	// Every lambda has at least one failed fold.
	if _, err := reduceFolds(lambdas, foldDev, foldConv); err == nil {
		t.Error("reduceFolds() expected error when no lambda is usable")
	}
}
