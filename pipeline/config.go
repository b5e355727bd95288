package pipeline

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/blakeapm/textlearn/pkg/errors"
)

// Lambda selection rules for evaluation and sampling.
const (
	SelectLambdaMin = "min"
	SelectLambda1SE = "1se"
)

// Config holds the knobs for one pipeline run.
type Config struct {
	// MinDF is the minimum document frequency for vocabulary terms.
	MinDF int `yaml:"min_df"`

	// Folds is the number of cross-validation folds.
	Folds int `yaml:"folds"`

	// Seed drives fold assignment and the train/test split.
	Seed int64 `yaml:"seed"`

	// BatchSize is the number of documents selected for labeling per round.
	BatchSize int `yaml:"batch_size"`

	// TestFraction is the share of labeled documents held out per class
	// for evaluation.
	TestFraction float64 `yaml:"test_fraction"`

	// MaxIter and Tol configure the coordinate-descent solver.
	MaxIter int     `yaml:"max_iter"`
	Tol     float64 `yaml:"tol"`

	// NLambda is the length of the derived penalty sequence.
	NLambda int `yaml:"n_lambda"`

	// LambdaSelection picks the penalty used for evaluation and sampling:
	// "min" or "1se".
	LambdaSelection string `yaml:"lambda_selection"`
}

// DefaultConfig returns the defaults used when a field is absent from the
// YAML file.
func DefaultConfig() Config {
	return Config{
		MinDF:           1,
		Folds:           5,
		Seed:            1,
		BatchSize:       10,
		TestFraction:    0.2,
		MaxIter:         200,
		Tol:             1e-5,
		NLambda:         100,
		LambdaSelection: SelectLambda1SE,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.MinDF < 1 {
		return errors.NewValidationError("min_df", "must be >= 1", c.MinDF)
	}
	if c.Folds < 2 {
		return errors.NewValidationError("folds", "must be >= 2", c.Folds)
	}
	if c.BatchSize < 1 {
		return errors.NewValidationError("batch_size", "must be >= 1", c.BatchSize)
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return errors.NewValidationError("test_fraction", "must be in (0, 1)", c.TestFraction)
	}
	if c.MaxIter < 1 {
		return errors.NewValidationError("max_iter", "must be >= 1", c.MaxIter)
	}
	if c.Tol <= 0 {
		return errors.NewValidationError("tol", "must be > 0", c.Tol)
	}
	if c.NLambda < 2 {
		return errors.NewValidationError("n_lambda", "must be >= 2", c.NLambda)
	}
	if c.LambdaSelection != SelectLambdaMin && c.LambdaSelection != SelectLambda1SE {
		return errors.NewValidationError("lambda_selection", `must be "min" or "1se"`, c.LambdaSelection)
	}
	return nil
}
