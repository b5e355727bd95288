package log

// Standard attribute keys for pipeline and training logs. Using fixed keys
// keeps rounds comparable across runs when logs are aggregated.
const (
	// ComponentKey identifies the package emitting the record, e.g.
	// "feature", "linear", "pipeline".
	ComponentKey = "ml.component"

	// OperationKey names the operation, e.g. "fit", "transform",
	// "cross_validate", "select_for_labeling".
	OperationKey = "ml.operation"

	// RoundKey is the active-learning round counter.
	RoundKey = "al.round"

	// SamplesKey is the number of documents (rows) being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of vocabulary terms (columns).
	FeaturesKey = "data.features"

	// LabeledKey and UnlabeledKey track pool sizes between rounds.
	LabeledKey   = "pool.labeled"
	UnlabeledKey = "pool.unlabeled"

	// FoldsKey is the number of cross-validation folds.
	FoldsKey = "cv.folds"

	// LambdaKey is the penalty strength in use; LambdaMinKey and
	// Lambda1SEKey are the two distinguished path values.
	LambdaKey    = "cv.lambda"
	LambdaMinKey = "cv.lambda_min"
	Lambda1SEKey = "cv.lambda_1se"

	// AccuracyKey, PrecisionKey and RecallKey report held-out evaluation.
	AccuracyKey  = "eval.accuracy"
	PrecisionKey = "eval.precision"
	RecallKey    = "eval.recall"

	// DurationMsKey is elapsed wall time in milliseconds.
	DurationMsKey = "duration_ms"
)
