package linear

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/blakeapm/textlearn/pkg/errors"
)

// separableData builds a 40x3 matrix where column 0 indicates the positive
// class, column 1 indicates the negative class and column 2 is all zeros.
func separableData() (*mat.Dense, *mat.VecDense) {
	n := 40
	X := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if i < n/2 {
			X.Set(i, 0, 2)
			y.SetVec(i, 1)
		} else {
			X.Set(i, 1, 1)
		}
	}
	return X, y
}

func TestLogitNetFitPath(t *testing.T) {
	X, y := separableData()

	m := NewLogitNet(WithNLambda(15), WithLambdaMinRatio(0.05), WithMaxIter(1000))
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	lambdas := m.Lambdas()
	if len(lambdas) != 15 {
		t.Fatalf("len(Lambdas()) = %d, want 15", len(lambdas))
	}
	for i := 1; i < len(lambdas); i++ {
		if lambdas[i] >= lambdas[i-1] {
			t.Fatalf("penalty sequence not strictly decreasing at %d: %v >= %v", i, lambdas[i], lambdas[i-1])
		}
	}

	// lambda_max for this data is max_j |<x_j, y - ybar>| / n = 0.5, reached
	// by the positive-class indicator column.
	if math.Abs(lambdas[0]-0.5) > 1e-12 {
		t.Errorf("lambdas[0] = %v, want 0.5", lambdas[0])
	}
	if math.Abs(lambdas[14]-0.5*0.05) > 1e-12 {
		t.Errorf("lambdas[14] = %v, want %v", lambdas[14], 0.5*0.05)
	}

	// At lambda_max the fit is the null model: zero coefficients and, with
	// balanced classes, a zero intercept.
	nz0, err := m.NumNonzero(0)
	if err != nil {
		t.Fatalf("NumNonzero(0) error = %v", err)
	}
	if nz0 != 0 {
		t.Errorf("NumNonzero(0) = %d, want 0", nz0)
	}
	b0, err := m.InterceptAt(0)
	if err != nil {
		t.Fatalf("InterceptAt(0) error = %v", err)
	}
	if math.Abs(b0) > 1e-9 {
		t.Errorf("InterceptAt(0) = %v, want ~0", b0)
	}

	// The all-zero column never receives a coefficient anywhere on the path.
	for li := range lambdas {
		coef, err := m.CoefAt(li)
		if err != nil {
			t.Fatalf("CoefAt(%d) error = %v", li, err)
		}
		if coef[2] != 0 {
			t.Errorf("CoefAt(%d)[2] = %v, want 0", li, coef[2])
		}
	}

	// Warm starts grow the active set as the penalty relaxes.
	last := len(lambdas) - 1
	nzLast, err := m.NumNonzero(last)
	if err != nil {
		t.Fatalf("NumNonzero(%d) error = %v", last, err)
	}
	if nzLast < 1 || nzLast > 2 {
		t.Errorf("NumNonzero(%d) = %d, want 1 or 2", last, nzLast)
	}
	if nzLast < nz0 {
		t.Errorf("nonzero count shrank along the path: %d at start, %d at end", nz0, nzLast)
	}

	// At the loosest penalty the separable classes predict on the right side.
	pred, err := m.Predict(X, last)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i := 0; i < y.Len(); i++ {
		if pred.AtVec(i) != y.AtVec(i) {
			t.Errorf("Predict()[%d] = %v, want %v", i, pred.AtVec(i), y.AtVec(i))
		}
	}

	if bad := m.NonConvergedLambdas(); len(bad) != 0 {
		t.Errorf("NonConvergedLambdas() = %v, want none", bad)
	}
}

func TestLogitNetSuppliedLambdas(t *testing.T) {
	X, y := separableData()
	supplied := []float64{0.5, 0.1, 0.02}

	m := NewLogitNet(WithLambdas(supplied), WithMaxIter(1000))
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if got := m.Lambdas(); !reflect.DeepEqual(got, supplied) {
		t.Errorf("Lambdas() = %v, want %v", got, supplied)
	}

	li, err := m.LambdaIndex(0.1)
	if err != nil {
		t.Fatalf("LambdaIndex(0.1) error = %v", err)
	}
	if li != 1 {
		t.Errorf("LambdaIndex(0.1) = %d, want 1", li)
	}
	if _, err := m.LambdaIndex(0.3); err == nil {
		t.Error("LambdaIndex() for a non-member expected error")
	}
}

func TestLogitNetLambdaValidation(t *testing.T) {
	X, y := separableData()
	tests := []struct {
		name    string
		lambdas []float64
	}{
		{"empty", []float64{}},
		{"non-positive", []float64{0.5, 0}},
		{"increasing", []float64{0.1, 0.5}},
		{"repeated", []float64{0.5, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewLogitNet(WithLambdas(tt.lambdas))
			err := m.Fit(X, y)
			var ve *errors.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("Fit() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestLogitNetTargetValidation(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 0, 0, 1, 1, 1, 0, 0})

	tests := []struct {
		name string
		y    *mat.VecDense
	}{
		{"row mismatch", mat.NewVecDense(3, []float64{1, 0, 1})},
		{"non-binary", mat.NewVecDense(4, []float64{1, 0, 2, 0})},
		{"single class", mat.NewVecDense(4, []float64{1, 1, 1, 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewLogitNet().Fit(X, tt.y); err == nil {
				t.Error("Fit() expected error")
			}
		})
	}
}

func TestLogitNetNotFitted(t *testing.T) {
	m := NewLogitNet()
	_, err := m.CoefAt(0)
	var nfe *errors.NotFittedError
	if !errors.As(err, &nfe) {
		t.Errorf("CoefAt() before Fit() error = %v, want NotFittedError", err)
	}
}

func TestLogitNetDeterminism(t *testing.T) {
	X, y := separableData()

	a := NewLogitNet(WithNLambda(10), WithLambdaMinRatio(0.05), WithMaxIter(1000))
	b := NewLogitNet(WithNLambda(10), WithLambdaMinRatio(0.05), WithMaxIter(1000))
	if err := a.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	for li := 0; li < 10; li++ {
		ca, _ := a.CoefAt(li)
		cb, _ := b.CoefAt(li)
		if !reflect.DeepEqual(ca, cb) {
			t.Fatalf("coefficients differ at path index %d", li)
		}
	}
}

func TestSoftThreshold(t *testing.T) {
	tests := []struct {
		z, g, want float64
	}{
		{1.0, 0.3, 0.7},
		{-1.0, 0.3, -0.7},
		{0.2, 0.3, 0},
		{-0.2, 0.3, 0},
		{0.3, 0.3, 0},
	}
	for _, tt := range tests {
		if got := softThreshold(tt.z, tt.g); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("softThreshold(%v, %v) = %v, want %v", tt.z, tt.g, got, tt.want)
		}
	}
}
