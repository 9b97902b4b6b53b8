package errors

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFitted indicates a transform or model was used before fitting
	ErrNotFitted = errors.New("not fitted")

	// ErrAlreadyFitted indicates a second fit on a pipeline that must be fit once
	ErrAlreadyFitted = errors.New("already fitted")

	// ErrModelNotLoaded indicates the serving model is not available
	ErrModelNotLoaded = errors.New("model not loaded")

	// ErrUnavailable indicates a collaborator service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// ValidationError is a malformed or missing input field.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// MissingField reports an absent required parameter.
func MissingField(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "Missing required parameter: " + field,
	}
}

// InvalidField reports a present parameter with an unusable value.
func InvalidField(field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("Invalid parameter %s: %s", field, reason),
		Value:   value,
	}
}

// SchemaError is a mismatch between the columns a fitted artifact expects
// and the columns it was given.
type SchemaError struct {
	Expected []string
	Got      []string
	Missing  []string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("schema mismatch: missing columns [%s]", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("schema mismatch: expected [%s], got [%s]",
		strings.Join(e.Expected, ", "), strings.Join(e.Got, ", "))
}

// ArtifactMissingError means no model file exists at the configured path.
type ArtifactMissingError struct {
	Path string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("model artifact not found at %s", e.Path)
}

// UpstreamError is a failure of the device-control API. StatusCode is zero
// when the API could not be reached.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("device API unreachable: %v", e.Err)
	}
	return fmt.Sprintf("device API returned status %d: %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	if e.Err == nil {
		return ErrUnavailable
	}
	return e.Err
}

// UnsupportedActionError is a control action the relay does not know.
type UnsupportedActionError struct {
	Action string
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("Unsupported action: %s", e.Action)
}

// StageError halts a training run at the named stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Wrap wraps an error with a message and stack trace
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message and stack trace
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error with the supplied message
func New(message string) error {
	return errors.New(message)
}
