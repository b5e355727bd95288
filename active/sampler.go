// Package active ranks unlabeled documents by classifier uncertainty so the
// most ambiguous ones can be routed to a human annotator first.
package active

import (
	"math"
	"sort"

	"github.com/blakeapm/textlearn/pkg/errors"
)

// Candidate is one unlabeled document with its predicted probability and its
// distance from the decision boundary, kept for auditability of the batch.
type Candidate struct {
	ID          int
	Probability float64
	Uncertainty float64
}

// SelectForLabeling ranks the documents identified by ids, with predicted
// positive-class probabilities probs, by ascending |p - 0.5| and returns the
// first batchSize candidates. Ties keep original document order (stable
// sort), so repeated calls on unchanged inputs return the same batch. The
// inputs are never mutated; removing labeled documents from the pool is the
// caller's job.
func SelectForLabeling(ids []int, probs []float64, batchSize int) ([]Candidate, error) {
	if len(ids) != len(probs) {
		return nil, errors.NewDimensionError("SelectForLabeling", len(ids), len(probs), 0)
	}
	if len(ids) == 0 {
		return nil, errors.NewModelError("SelectForLabeling", "empty unlabeled pool", errors.ErrEmptyData)
	}
	if batchSize <= 0 {
		return nil, errors.NewValidationError("batch_size", "must be > 0", batchSize)
	}

	candidates := make([]Candidate, len(ids))
	for i, id := range ids {
		p := probs[i]
		if p < 0 || p > 1 || math.IsNaN(p) {
			return nil, errors.NewValidationError("probabilities", "must be in [0, 1]", p)
		}
		candidates[i] = Candidate{
			ID:          id,
			Probability: p,
			Uncertainty: math.Abs(p - 0.5),
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Uncertainty < candidates[b].Uncertainty
	})

	if batchSize > len(candidates) {
		batchSize = len(candidates)
	}
	return candidates[:batchSize], nil
}
