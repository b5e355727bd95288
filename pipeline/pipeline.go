package pipeline

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/blakeapm/textlearn/active"
	"github.com/blakeapm/textlearn/feature"
	"github.com/blakeapm/textlearn/linear"
	"github.com/blakeapm/textlearn/metrics"
	"github.com/blakeapm/textlearn/pkg/errors"
	"github.com/blakeapm/textlearn/pkg/log"
)

// Pipeline runs active-learning rounds: vocabulary build, cross-validated
// path training on the labeled split, held-out evaluation, and uncertainty
// ranking of the unlabeled pool.
type Pipeline struct {
	cfg       Config
	tokenizer feature.Tokenizer
	logger    *slog.Logger

	rounds atomic.Int64
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithTokenizer replaces the default RegexpTokenizer. Stemming and stopword
// dictionaries plug in here.
func WithTokenizer(t feature.Tokenizer) PipelineOption {
	return func(p *Pipeline) {
		p.tokenizer = t
	}
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// New creates a Pipeline after validating the config.
func New(cfg Config, opts ...PipelineOption) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:       cfg,
		tokenizer: feature.NewRegexpTokenizer(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Evaluation is the held-out report at the selected penalty.
type Evaluation struct {
	Lambda    float64
	Confusion *metrics.ConfusionMatrix
	Accuracy  float64
	Precision float64
	Recall    float64
}

// RoundResult bundles everything one round produces.
type RoundResult struct {
	Vocabulary *feature.Vocabulary
	Model      *linear.LogitNet
	Curve      *linear.CVCurve

	// Lambda and LambdaIndex identify the penalty chosen by the config's
	// selection rule; Evaluation and Batch are computed at that penalty.
	Lambda      float64
	LambdaIndex int

	Evaluation   *Evaluation
	Coefficients []linear.TermWeight
	Batch        []active.Candidate
}

// Round executes one active-learning round over the pool. The vocabulary is
// rebuilt from the full corpus (labeled and unlabeled), so successive rounds
// pick up terms introduced by newly labeled documents.
func (p *Pipeline) Round(ctx context.Context, pool Pool) (*RoundResult, error) {
	start := time.Now()
	logger := p.logger.With(
		log.ComponentKey, "pipeline",
		log.RoundKey, p.rounds.Add(1),
	)

	if len(pool.Labeled) == 0 {
		return nil, errors.NewModelError("Pipeline.Round", "no labeled documents", errors.ErrEmptyData)
	}

	vec := feature.NewCountVectorizer(
		feature.WithMinDF(p.cfg.MinDF),
		feature.WithTokenizer(p.tokenizer),
	)
	if err := vec.Fit(pool.Corpus()); err != nil {
		return nil, err
	}
	vocab := vec.Vocabulary()
	logger.Info("vocabulary built",
		log.OperationKey, "fit",
		log.LabeledKey, len(pool.Labeled),
		log.UnlabeledKey, len(pool.Unlabeled),
		log.FeaturesKey, vocab.Len(),
	)

	labeledTexts := make([]string, len(pool.Labeled))
	y := mat.NewVecDense(len(pool.Labeled), nil)
	for i, d := range pool.Labeled {
		labeledTexts[i] = d.Text
		y.SetVec(i, float64(d.Label))
	}
	Xl, err := vec.Transform(labeledTexts)
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := stratifiedSplit(y, p.cfg.TestFraction, p.cfg.Seed)
	if err != nil {
		return nil, err
	}
	trainX, trainY := sliceRows(Xl, y, trainIdx)
	testX, testY := sliceRows(Xl, y, testIdx)

	cv := linear.NewLogitNetCV(
		linear.WithFolds(p.cfg.Folds),
		linear.WithSeed(p.cfg.Seed),
		linear.WithPathOptions(
			linear.WithNLambda(p.cfg.NLambda),
			linear.WithMaxIter(p.cfg.MaxIter),
			linear.WithTol(p.cfg.Tol),
		),
	)
	if err := cv.Fit(ctx, trainX, trainY); err != nil {
		return nil, err
	}

	li := cv.Curve.Lambda1SEIndex
	if p.cfg.LambdaSelection == SelectLambdaMin {
		li = cv.Curve.LambdaMinIndex
	}
	lambda := cv.Curve.Lambdas[li]
	logger.Info("path trained",
		log.OperationKey, "cross_validate",
		log.FoldsKey, p.cfg.Folds,
		log.LambdaMinKey, cv.Curve.LambdaMin,
		log.Lambda1SEKey, cv.Curve.Lambda1SE,
		log.LambdaKey, lambda,
		"excluded_lambdas", len(cv.Curve.ExcludedLambdas()),
	)

	eval, err := p.evaluate(cv.Model, li, lambda, testX, testY)
	if err != nil {
		return nil, err
	}
	logger.Info("held-out evaluation",
		log.OperationKey, "evaluate",
		log.SamplesKey, testY.Len(),
		log.AccuracyKey, eval.Accuracy,
		log.PrecisionKey, eval.Precision,
		log.RecallKey, eval.Recall,
	)

	coefs, err := linear.CoefTable(cv.Model, li, vocab.Terms)
	if err != nil {
		return nil, err
	}

	var batch []active.Candidate
	if len(pool.Unlabeled) > 0 {
		batch, err = p.rankUnlabeled(vec, cv.Model, li, pool.Unlabeled)
		if err != nil {
			return nil, err
		}
		logger.Info("labeling batch selected",
			log.OperationKey, "select_for_labeling",
			log.UnlabeledKey, len(pool.Unlabeled),
			"batch_size", len(batch),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}

	return &RoundResult{
		Vocabulary:   vocab,
		Model:        cv.Model,
		Curve:        cv.Curve,
		Lambda:       lambda,
		LambdaIndex:  li,
		Evaluation:   eval,
		Coefficients: coefs,
		Batch:        batch,
	}, nil
}

func (p *Pipeline) evaluate(model *linear.LogitNet, li int, lambda float64, testX *mat.Dense, testY *mat.VecDense) (*Evaluation, error) {
	pred, err := model.Predict(testX, li)
	if err != nil {
		return nil, err
	}
	cm, err := metrics.NewConfusionMatrix(testY, pred)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Lambda:    lambda,
		Confusion: cm,
		Accuracy:  cm.Accuracy(),
		Precision: cm.Precision(),
		Recall:    cm.Recall(),
	}, nil
}

func (p *Pipeline) rankUnlabeled(vec *feature.CountVectorizer, model *linear.LogitNet, li int, unlabeled []Document) ([]active.Candidate, error) {
	texts := make([]string, len(unlabeled))
	ids := make([]int, len(unlabeled))
	for i, d := range unlabeled {
		texts[i] = d.Text
		ids[i] = d.ID
	}
	Xu, err := vec.Transform(texts)
	if err != nil {
		return nil, err
	}
	proba, err := model.PredictProba(Xu, li)
	if err != nil {
		return nil, err
	}
	probs := make([]float64, proba.Len())
	for i := range probs {
		probs[i] = proba.AtVec(i)
	}
	return active.SelectForLabeling(ids, probs, p.cfg.BatchSize)
}

// stratifiedSplit holds out testFraction of each class for evaluation,
// keeping at least one document of each class on both sides. Deterministic
// in (y, fraction, seed).
func stratifiedSplit(y *mat.VecDense, testFraction float64, seed int64) (train, test []int, err error) {
	byClass := [2][]int{}
	for i := 0; i < y.Len(); i++ {
		c := int(y.AtVec(i))
		byClass[c] = append(byClass[c], i)
	}
	if len(byClass[0]) < 2 || len(byClass[1]) < 2 {
		return nil, nil, errors.NewValueError("Pipeline.Round", "need at least two labeled documents of each class to split train and test")
	}

	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	for c := 0; c < 2; c++ {
		indices := byClass[c]
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		nTest := int(float64(len(indices))*testFraction + 0.5)
		if nTest < 1 {
			nTest = 1
		}
		if nTest > len(indices)-1 {
			nTest = len(indices) - 1
		}
		test = append(test, indices[:nTest]...)
		train = append(train, indices[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// sliceRows copies the selected rows of X and y.
func sliceRows(X *mat.Dense, y *mat.VecDense, indices []int) (*mat.Dense, *mat.VecDense) {
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
