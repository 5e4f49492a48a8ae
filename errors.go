// Package quarry is the query-compilation core of an object-relational
// mapper: it turns declarative query descriptions into parameterized
// SQL for PostgreSQL, MySQL and SQLite.
//
// The root package holds the error taxonomy shared by all sub-packages
// and the caching contract for compiled statements. The compilation
// pipeline itself lives in the compiler package; SQL rendering in
// dialect/sql.
package quarry

import (
	"errors"
	"fmt"
)

// Standard sentinel errors. The typed errors below match them through
// errors.Is, so callers can branch without keeping the concrete types.
var (
	// ErrNotFound is returned when a required entity does not exist.
	ErrNotFound = errors.New("quarry: entity not found")

	// ErrUnknownField is returned when a filter or projection references
	// a field absent from the model metadata.
	ErrUnknownField = errors.New("quarry: unknown field")

	// ErrUnknownRelation is returned when an include or relation filter
	// references a relation absent from the model metadata.
	ErrUnknownRelation = errors.New("quarry: unknown relation")

	// ErrUnsupportedOperator is returned when a filter operator is not
	// valid for the field's scalar kind.
	ErrUnsupportedOperator = errors.New("quarry: unsupported operator")

	// ErrInvalidGroupBy is returned when a groupBy request is malformed.
	ErrInvalidGroupBy = errors.New("quarry: invalid groupBy")

	// ErrUnsupportedOperation is returned when the target dialect lacks
	// a capability the operation requires.
	ErrUnsupportedOperation = errors.New("quarry: unsupported operation")
)

// NotFoundError is raised by the dispatcher after execution, when an
// OrThrow operation matched zero rows. It is never produced at compile
// time; the compiler cannot know row existence.
type NotFoundError struct {
	Model string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("quarry: %s not found", e.Model)
}

// Is reports whether the target error matches ErrNotFound.
func (e *NotFoundError) Is(err error) bool { return err == ErrNotFound }

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// UnknownFieldError names a field that is absent from a model.
type UnknownFieldError struct {
	Model string
	Field string
}

// Error returns the error string.
func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("quarry: unknown field %q on model %q", e.Field, e.Model)
}

// Is reports whether the target error matches ErrUnknownField.
func (e *UnknownFieldError) Is(err error) bool { return err == ErrUnknownField }

// IsUnknownField returns true if the error is an UnknownFieldError.
func IsUnknownField(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownFieldError
	return errors.As(err, &e) || errors.Is(err, ErrUnknownField)
}

// UnknownRelationError names a relation that is absent from a model.
type UnknownRelationError struct {
	Model    string
	Relation string
}

// Error returns the error string.
func (e *UnknownRelationError) Error() string {
	return fmt.Sprintf("quarry: unknown relation %q on model %q", e.Relation, e.Model)
}

// Is reports whether the target error matches ErrUnknownRelation.
func (e *UnknownRelationError) Is(err error) bool { return err == ErrUnknownRelation }

// IsUnknownRelation returns true if the error is an UnknownRelationError.
func IsUnknownRelation(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownRelationError
	return errors.As(err, &e) || errors.Is(err, ErrUnknownRelation)
}

// UnsupportedOperatorError describes a filter operator applied to a
// field whose scalar kind does not support it, including the shape of
// the offending value.
type UnsupportedOperatorError struct {
	Model    string
	Field    string
	Operator string
	Value    any
}

// Error returns the error string.
func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("quarry: operator %q is not supported for field %q on model %q (value %T)",
		e.Operator, e.Field, e.Model, e.Value)
}

// Is reports whether the target error matches ErrUnsupportedOperator.
func (e *UnsupportedOperatorError) Is(err error) bool { return err == ErrUnsupportedOperator }

// IsUnsupportedOperator returns true if the error is an UnsupportedOperatorError.
func IsUnsupportedOperator(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedOperatorError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedOperator)
}

// InvalidGroupByError describes a groupBy request whose having clause
// references a field that is neither grouped nor aggregated, or whose
// by list is empty.
type InvalidGroupByError struct {
	Model  string
	Field  string
	Reason string
}

// Error returns the error string.
func (e *InvalidGroupByError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("quarry: invalid groupBy on model %q: field %q %s", e.Model, e.Field, e.Reason)
	}
	return fmt.Sprintf("quarry: invalid groupBy on model %q: %s", e.Model, e.Reason)
}

// Is reports whether the target error matches ErrInvalidGroupBy.
func (e *InvalidGroupByError) Is(err error) bool { return err == ErrInvalidGroupBy }

// IsInvalidGroupBy returns true if the error is an InvalidGroupByError.
func IsInvalidGroupBy(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidGroupByError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidGroupBy)
}

// UnsupportedOperationError describes an operation that cannot be
// compiled for the target dialect because a capability is missing.
type UnsupportedOperationError struct {
	Dialect   string
	Operation string
	Reason    string
}

// Error returns the error string.
func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("quarry: %s is not supported on dialect %q: %s", e.Operation, e.Dialect, e.Reason)
}

// Is reports whether the target error matches ErrUnsupportedOperation.
func (e *UnsupportedOperationError) Is(err error) bool { return err == ErrUnsupportedOperation }

// IsUnsupportedOperation returns true if the error is an UnsupportedOperationError.
func IsUnsupportedOperation(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedOperationError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedOperation)
}

// InvalidArgumentError describes malformed operation arguments, e.g. a
// findUnique filter that does not target a unique field.
type InvalidArgumentError struct {
	Model     string
	Operation string
	Reason    string
}

// Error returns the error string.
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("quarry: %s on model %q: %s", e.Operation, e.Model, e.Reason)
}

// IsInvalidArgument returns true if the error is an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidArgumentError
	return errors.As(err, &e)
}
