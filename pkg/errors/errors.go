// Package errors provides the error and warning taxonomy for textlearn.
// Fatal input problems (shape mismatches, degenerate folds, empty
// vocabularies) surface as structured errors with stack traces; recoverable
// conditions (a non-converged λ, an undefined metric) surface as warnings
// routed through a global handler.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("textlearn-warning: %v\n", w)
	}
	// zerolog sink, injected lazily to avoid an import cycle with pkg/log.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the library-wide warning handler. Use it to
// silence or redirect warnings such as ConvergenceWarning:
//
//	errors.SetWarningHandler(func(w error) {})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a zerolog-backed warning sink. When set it
// takes precedence over the plain handler.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning through the configured sink. Safe for concurrent use;
// cross-validation fold workers call this from separate goroutines.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types (recoverable)
//
// ===========================================================================

// ConvergenceWarning is emitted when the coordinate-descent solver exhausts
// its iteration budget at a given penalty value. Fold is -1 outside
// cross-validation.
type ConvergenceWarning struct {
	Algorithm  string
	Lambda     float64
	Fold       int
	Iterations int
}

func (w *ConvergenceWarning) Error() string {
	if w.Fold >= 0 {
		return fmt.Sprintf("%s did not converge at lambda=%.6g in fold %d after %d iterations; this lambda is excluded from selection",
			w.Algorithm, w.Lambda, w.Fold, w.Iterations)
	}
	return fmt.Sprintf("%s did not converge at lambda=%.6g after %d iterations. Consider increasing max_iter or loosening tol",
		w.Algorithm, w.Lambda, w.Iterations)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Float64("lambda", w.Lambda).
		Int("fold", w.Fold).
		Int("iterations", w.Iterations).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning creates a ConvergenceWarning.
func NewConvergenceWarning(algorithm string, lambda float64, fold, iterations int) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Lambda: lambda, Fold: fold, Iterations: iterations}
}

// UndefinedMetricWarning is emitted when an evaluation metric has a zero
// denominator, e.g. precision when the model predicts no positives. The
// metric reports Result (NaN) instead of failing.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and reported as %v due to %s", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates an UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	Structured error types (fatal to the current call)
//
// ===========================================================================

// NotFittedError is returned when Predict or Transform is called on a model
// that has not been fitted.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("textlearn: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError reports a shape mismatch between related inputs, such as a
// feature matrix whose row count differs from its label vector.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("textlearn: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError reports an invalid parameter value.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("textlearn: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError reports an argument whose value is unusable for the operation.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("textlearn: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// SingleClassFoldError is returned when a cross-validation fold contains only
// one label class, which makes held-out deviance undefined. Fatal to the
// training call.
type SingleClassFoldError struct {
	Fold  int
	Split string // "train" or "test"
	Class int    // the only class present
}

func (e *SingleClassFoldError) Error() string {
	return fmt.Sprintf("textlearn: cross-validation fold %d has a single class (%d) in its %s split; use fewer folds or more labeled data", e.Fold, e.Class, e.Split)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *SingleClassFoldError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("fold", e.Fold).
		Str("split", e.Split).
		Int("class", e.Class).
		Str("type", "SingleClassFoldError")
}

// NewSingleClassFoldError creates a SingleClassFoldError with a stack trace.
func NewSingleClassFoldError(fold int, split string, class int) error {
	err := &SingleClassFoldError{Fold: fold, Split: split, Class: class}
	return errors.WithStack(err)
}

// EmptyVocabularyError is returned when document-frequency trimming removes
// every term, which would yield a zero-column feature matrix.
type EmptyVocabularyError struct {
	MinDF      int
	TotalTerms int
	NumDocs    int
}

func (e *EmptyVocabularyError) Error() string {
	return fmt.Sprintf("textlearn: no terms survive min_df=%d (%d distinct terms over %d documents); lower min_df or supply more documents", e.MinDF, e.TotalTerms, e.NumDocs)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *EmptyVocabularyError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("min_df", e.MinDF).
		Int("total_terms", e.TotalTerms).
		Int("num_docs", e.NumDocs).
		Str("type", "EmptyVocabularyError")
}

// NewEmptyVocabularyError creates an EmptyVocabularyError with a stack trace.
func NewEmptyVocabularyError(minDF, totalTerms, numDocs int) error {
	err := &EmptyVocabularyError{MinDF: minDF, TotalTerms: totalTerms, NumDocs: numDocs}
	return errors.WithStack(err)
}

// ModelError is a general model-level error with an operation and kind.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("textlearn: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("textlearn: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace.
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// NumericalInstabilityError reports NaN or Inf values produced during
// optimization.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("textlearn: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a
// stack trace.
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target's type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common error values
//
// ===========================================================================

var (
	// ErrEmptyData is returned when an empty dataset is supplied.
	ErrEmptyData = New("empty data")
)
