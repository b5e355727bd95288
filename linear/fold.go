package linear

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Fold holds the train/test index partition for one cross-validation fold.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// StratifiedKFold assigns samples to k folds while preserving the class
// balance of y in every fold. Assignment is a pure function of (y, NSplits,
// Seed); the same inputs always produce the same folds.
type StratifiedKFold struct {
	NSplits int
	Seed    int64
}

// NewStratifiedKFold creates a stratified splitter. Fewer than 2 splits
// falls back to the default of 5.
func NewStratifiedKFold(nSplits int, seed int64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Seed: seed}
}

// Split generates the fold partition for label vector y.
func (skf *StratifiedKFold) Split(y *mat.VecDense) []Fold {
	nSamples := y.Len()

	// Group sample indices by class, iterating classes in sorted order so
	// the map never influences fold assignment.
	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.AtVec(i)
		classIndices[label] = append(classIndices[label], i)
	}
	classes := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		classes = append(classes, label)
	}
	sort.Float64s(classes)

	r := rand.New(rand.NewPCG(uint64(skf.Seed), uint64(skf.Seed)))
	for _, label := range classes {
		indices := classIndices[label]
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, skf.NSplits)

	// Deal each class across the folds, front-loading the remainder.
	for _, label := range classes {
		indices := classIndices[label]
		nClass := len(indices)
		foldSize := nClass / skf.NSplits
		remainder := nClass % skf.NSplits

		cur := 0
		for f := 0; f < skf.NSplits; f++ {
			take := foldSize
			if f < remainder {
				take++
			}
			for j := 0; j < take && cur < nClass; j++ {
				folds[f].TestIndices = append(folds[f].TestIndices, indices[cur])
				cur++
			}
		}
	}

	// Train sets are the complement of each test set.
	for f := 0; f < skf.NSplits; f++ {
		sort.Ints(folds[f].TestIndices)
		testSet := make(map[int]struct{}, len(folds[f].TestIndices))
		for _, idx := range folds[f].TestIndices {
			testSet[idx] = struct{}{}
		}
		for j := 0; j < nSamples; j++ {
			if _, ok := testSet[j]; !ok {
				folds[f].TrainIndices = append(folds[f].TrainIndices, j)
			}
		}
	}

	return folds
}

// subsetRows copies the given rows of X and y into fresh dense structures.
func subsetRows(X mat.Matrix, y *mat.VecDense, indices []int) (*mat.Dense, *mat.VecDense) {
	_, cols := X.Dims()
	sub := mat.NewDense(len(indices), cols, nil)
	ySub := mat.NewVecDense(len(indices), nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			sub.Set(i, j, X.At(idx, j))
		}
		ySub.SetVec(i, y.AtVec(idx))
	}
	return sub, ySub
}
