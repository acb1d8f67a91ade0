// Package faults defines the error taxonomy shared across the pipeline.
// ConfigError and LayoutError abort an operation before any artifact is
// written; ConvergenceError is per-unit inside the resonance batch and
// terminal for an oscillator run; SerializationError wraps the I/O cause.
package faults

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid or out-of-range input, detected before any
// generation or simulation work begins.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Reason)
	}
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

// Configf builds a ConfigError for a named field.
func Configf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// LayoutError reports a design-rule violation found while generating a
// layout. Primitive names the offending primitive (or pair).
type LayoutError struct {
	Primitive string
	Detail    string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout error: %s: %s", e.Primitive, e.Detail)
}

// Layoutf builds a LayoutError naming the offending primitive.
func Layoutf(primitive, format string, args ...any) *LayoutError {
	return &LayoutError{Primitive: primitive, Detail: fmt.Sprintf(format, args...)}
}

// ConvergenceError reports a solve that did not reach a usable answer: a
// singular per-ring resonance denominator, or an oscillator run that ended
// without locking. Unit identifies the ring or run.
type ConvergenceError struct {
	Unit   string
	Reason string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("convergence error: %s: %s", e.Unit, e.Reason)
}

// Convergencef builds a ConvergenceError for a named unit.
func Convergencef(unit, format string, args ...any) *ConvergenceError {
	return &ConvergenceError{Unit: unit, Reason: fmt.Sprintf(format, args...)}
}

// SerializationError reports a mask or report read/write failure and carries
// the underlying I/O cause.
type SerializationError struct {
	Op   string
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("serialization error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("serialization error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// Serialization wraps err with the failing operation and path.
func Serialization(op, path string, err error) *SerializationError {
	return &SerializationError{Op: op, Path: path, Err: err}
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsLayout reports whether err is (or wraps) a LayoutError.
func IsLayout(err error) bool {
	var le *LayoutError
	return errors.As(err, &le)
}

// IsConvergence reports whether err is (or wraps) a ConvergenceError.
func IsConvergence(err error) bool {
	var ce *ConvergenceError
	return errors.As(err, &ce)
}

// IsSerialization reports whether err is (or wraps) a SerializationError.
func IsSerialization(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}

// AsConfig extracts the ConfigError wrapped in err, if any.
func AsConfig(err error) (*ConfigError, bool) {
	var ce *ConfigError
	ok := errors.As(err, &ce)
	return ce, ok
}

// AsLayout extracts the LayoutError wrapped in err, if any.
func AsLayout(err error) (*LayoutError, bool) {
	var le *LayoutError
	ok := errors.As(err, &le)
	return le, ok
}

// AsConvergence extracts the ConvergenceError wrapped in err, if any.
func AsConvergence(err error) (*ConvergenceError, bool) {
	var ce *ConvergenceError
	ok := errors.As(err, &ce)
	return ce, ok
}

// AsSerialization extracts the SerializationError wrapped in err, if any.
func AsSerialization(err error) (*SerializationError, bool) {
	var se *SerializationError
	ok := errors.As(err, &se)
	return se, ok
}
