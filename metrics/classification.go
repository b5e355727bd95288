// Package metrics computes evaluation metrics for binary classifiers:
// confusion matrix, accuracy, precision, recall, log loss and binomial
// deviance. Labels are 0/1; the positive class is 1.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/blakeapm/textlearn/pkg/errors"
)

// ConfusionMatrix holds the four cells of a binary confusion matrix.
type ConfusionMatrix struct {
	TP int // true label 1, predicted 1
	FP int // true label 0, predicted 1
	TN int // true label 0, predicted 0
	FN int // true label 1, predicted 0
}

// NewConfusionMatrix tabulates predicted against true labels. Both vectors
// must be the same length with entries in {0, 1}.
func NewConfusionMatrix(yTrue, yPred *mat.VecDense) (*ConfusionMatrix, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError("NewConfusionMatrix", "empty vector")
	}
	if yPred.Len() != n {
		return nil, errors.NewDimensionError("NewConfusionMatrix", n, yPred.Len(), 0)
	}

	cm := &ConfusionMatrix{}
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		if (t != 0 && t != 1) || (p != 0 && p != 1) {
			return nil, errors.NewValueError("NewConfusionMatrix", "labels must be 0 or 1")
		}
		switch {
		case t == 1 && p == 1:
			cm.TP++
		case t == 0 && p == 1:
			cm.FP++
		case t == 0 && p == 0:
			cm.TN++
		default:
			cm.FN++
		}
	}
	return cm, nil
}

// Total returns the number of tabulated documents. It always equals the sum
// of the four cells.
func (cm *ConfusionMatrix) Total() int {
	return cm.TP + cm.FP + cm.TN + cm.FN
}

// Accuracy returns the fraction of correct predictions.
func (cm *ConfusionMatrix) Accuracy() float64 {
	return float64(cm.TP+cm.TN) / float64(cm.Total())
}

// Precision returns TP / (TP + FP). When the model predicts no positives the
// result is NaN and an UndefinedMetricWarning is reported; callers see the
// degenerate denominator instead of a silent default.
func (cm *ConfusionMatrix) Precision() float64 {
	denom := cm.TP + cm.FP
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted positives", math.NaN()))
		return math.NaN()
	}
	return float64(cm.TP) / float64(denom)
}

// Recall returns TP / (TP + FN). When no true positives exist in the data
// the result is NaN with an UndefinedMetricWarning.
func (cm *ConfusionMatrix) Recall() float64 {
	denom := cm.TP + cm.FN
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no positive labels", math.NaN()))
		return math.NaN()
	}
	return float64(cm.TP) / float64(denom)
}

// Accuracy returns the fraction of positions where yTrue and yPred agree.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// LogLoss returns the mean negative log likelihood of the true labels under
// the predicted probabilities. Probabilities are clipped away from 0 and 1.
func LogLoss(yTrue, proba *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("LogLoss", "empty vector")
	}
	if proba.Len() != n {
		return 0, errors.NewDimensionError("LogLoss", n, proba.Len(), 0)
	}

	const eps = 1e-15
	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(proba.AtVec(i), eps, 1-eps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// BinomialDeviance returns twice the mean negative log likelihood, the
// held-out error used on the cross-validation curve.
func BinomialDeviance(yTrue, proba *mat.VecDense) (float64, error) {
	ll, err := LogLoss(yTrue, proba)
	if err != nil {
		return 0, err
	}
	return 2 * ll, nil
}
