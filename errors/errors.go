/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when no document matches a filter
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned when inserting a document whose key is taken
	ErrAlreadyExists = errors.New("document already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional update fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrNoIndex is returned when a persisted type declares no index field
	ErrNoIndex = errors.New("no index field defined for type")

	// ErrNoIndexValue is returned when every index field of an instance is unset
	ErrNoIndexValue = errors.New("no index value set on instance")

	// ErrMultipleIndexes is returned when a type declares more than one index field
	ErrMultipleIndexes = errors.New("type declares more than one index field")

	// ErrUnsupportedType is returned when a value cannot be described as a persisted type
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrDecode is matched by every DecodeError
	ErrDecode = errors.New("document decode failed")

	// ErrSchedulerClosed is returned when work is submitted after the scheduler was closed
	ErrSchedulerClosed = errors.New("scheduler closed")
)

// NotFoundError represents an error when no document matched.
// Key holds a rendering of the filter that was used.
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Type)
	}
	return fmt.Sprintf("%s matching %s not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when a document key is already taken
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// IndexError reports a usage error around the index field of a persisted type.
// It matches ErrInvalidInput and unwraps to ErrNoIndex, ErrNoIndexValue or ErrMultipleIndexes.
type IndexError struct {
	Type string
	Err  error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// FieldError records why a single field could not be decoded
type FieldError struct {
	Path  string
	Cause error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Path, e.Cause)
}

func (e *FieldError) Unwrap() error {
	return e.Cause
}

// DecodeError aggregates the field errors of one decode call. The target is
// still populated with every field that decoded cleanly.
type DecodeError struct {
	Type   string
	Fields []*FieldError
}

func (e *DecodeError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("decode %s: %v", e.Type, e.Fields[0])
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("decode %s: %d field errors: %s", e.Type, len(e.Fields), strings.Join(parts, "; "))
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func (e *DecodeError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		errs[i] = f
	}
	return errs
}

// Add appends a field error.
func (e *DecodeError) Add(path string, cause error) {
	e.Fields = append(e.Fields, &FieldError{Path: path, Cause: cause})
}

// Merge appends the field errors of a nested decode, prefixing their paths.
func (e *DecodeError) Merge(prefix string, nested *DecodeError) {
	if nested == nil {
		return
	}
	for _, f := range nested.Fields {
		e.Fields = append(e.Fields, &FieldError{Path: prefix + "." + f.Path, Cause: f.Cause})
	}
}

// OrNil returns nil when no field failed, so callers can return it directly.
func (e *DecodeError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(typeName, key string) error {
	return &NotFoundError{Type: typeName, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(typeName, key string) error {
	return &AlreadyExistsError{Type: typeName, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// NewIndexError creates a new IndexError
func NewIndexError(typeName string, err error) error {
	return &IndexError{Type: typeName, Err: err}
}

// NewFieldError creates a new FieldError
func NewFieldError(path string, cause error) error {
	return &FieldError{Path: path, Cause: cause}
}

// IsDecodeError checks if an error is a decode error
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode)
}

// IsNoIndex checks if an error reports a missing index field or index value
func IsNoIndex(err error) bool {
	return errors.Is(err, ErrNoIndex) || errors.Is(err, ErrNoIndexValue)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}