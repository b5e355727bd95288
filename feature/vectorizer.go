package feature

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/blakeapm/textlearn/core/model"
	"github.com/blakeapm/textlearn/core/parallel"
	"github.com/blakeapm/textlearn/pkg/errors"
)

// parallelRowThreshold is the document count below which Transform runs
// sequentially.
const parallelRowThreshold = 64

// Vocabulary is an ordered set of terms defining the column space of the
// feature matrix. Terms are in lexicographic order so matrices are
// reproducible across runs with identical input. Immutable after Fit.
type Vocabulary struct {
	Terms []string
	index map[string]int
}

// newVocabulary builds a Vocabulary from an already-sorted term list.
func newVocabulary(terms []string) *Vocabulary {
	idx := make(map[string]int, len(terms))
	for i, t := range terms {
		idx[t] = i
	}
	return &Vocabulary{Terms: terms, index: idx}
}

// Len returns the number of terms.
func (v *Vocabulary) Len() int {
	return len(v.Terms)
}

// IndexOf returns the column index of term and whether it is present.
func (v *Vocabulary) IndexOf(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// CountVectorizer builds a vocabulary from a corpus and converts documents
// into term-count rows. Fit and Transform are pure functions of their inputs
// and the configured tokenizer.
type CountVectorizer struct {
	state     *model.StateManager
	tokenizer Tokenizer
	minDF     int

	vocab *Vocabulary
}

// VectorizerOption configures a CountVectorizer.
type VectorizerOption func(*CountVectorizer)

// WithMinDF sets the minimum number of distinct documents a term must appear
// in to be kept. The default of 1 keeps the full vocabulary.
func WithMinDF(n int) VectorizerOption {
	return func(v *CountVectorizer) {
		v.minDF = n
	}
}

// WithTokenizer replaces the default RegexpTokenizer.
func WithTokenizer(t Tokenizer) VectorizerOption {
	return func(v *CountVectorizer) {
		v.tokenizer = t
	}
}

// NewCountVectorizer creates a CountVectorizer.
func NewCountVectorizer(opts ...VectorizerOption) *CountVectorizer {
	v := &CountVectorizer{
		state:     model.NewStateManager(),
		tokenizer: NewRegexpTokenizer(),
		minDF:     1,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Fit builds the vocabulary: tokenize every document, count per-term
// document frequency, drop terms below minDF, and order the survivors
// lexicographically.
func (v *CountVectorizer) Fit(docs []string) error {
	if len(docs) == 0 {
		return errors.NewModelError("CountVectorizer.Fit", "empty document collection", errors.ErrEmptyData)
	}
	if v.minDF < 1 {
		return errors.NewValidationError("min_df", "must be >= 1", v.minDF)
	}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range v.tokenizer.Tokenize(doc) {
			seen[tok] = struct{}{}
		}
		for tok := range seen {
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term, count := range df {
		if count >= v.minDF {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return errors.NewEmptyVocabularyError(v.minDF, len(df), len(docs))
	}
	sort.Strings(terms)

	v.vocab = newVocabulary(terms)
	v.state.SetDimensions(len(terms), len(docs))
	v.state.SetFitted()
	return nil
}

// Transform converts documents into a count matrix with one row per input
// document, in input order. Documents with no surviving terms produce
// all-zero rows; they are never dropped, so row i always corresponds to
// docs[i] and to whatever label accompanies it.
func (v *CountVectorizer) Transform(docs []string) (*mat.Dense, error) {
	if err := v.state.RequireFitted("CountVectorizer", "Transform"); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.NewModelError("CountVectorizer.Transform", "empty document collection", errors.ErrEmptyData)
	}

	X := mat.NewDense(len(docs), v.vocab.Len(), nil)
	// Workers write disjoint row ranges, so no locking is needed.
	parallel.ParallelizeWithThreshold(len(docs), parallelRowThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for _, tok := range v.tokenizer.Tokenize(docs[i]) {
				if j, ok := v.vocab.IndexOf(tok); ok {
					X.Set(i, j, X.At(i, j)+1)
				}
			}
		}
	})
	return X, nil
}

// FitTransform fits the vocabulary on docs and transforms the same docs.
func (v *CountVectorizer) FitTransform(docs []string) (*mat.Dense, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs)
}

// Vocabulary returns the fitted vocabulary, or nil before Fit. Callers must
// not mutate it.
func (v *CountVectorizer) Vocabulary() *Vocabulary {
	return v.vocab
}
