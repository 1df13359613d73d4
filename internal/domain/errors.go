// Package domain defines core types and errors shared by the grouping planner,
// the engine adapter, and the outer surfaces.
package domain

import "fmt"

// NotFoundError indicates a resource (table, file) was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input outside the grouping specification
// itself, such as an empty request or a malformed filter.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// InvalidGroupModeError indicates an unrecognized grouping mode.
type InvalidGroupModeError struct {
	Message string
}

func (e *InvalidGroupModeError) Error() string { return e.Message }

// BadGroupFormatError indicates a structurally invalid grouping specification:
// wrong column count for the mode, missing num_groups, or a non-name column.
type BadGroupFormatError struct {
	Message string
}

func (e *BadGroupFormatError) Error() string { return e.Message }

// GroupFieldNotFoundError indicates a grouping column absent from the table.
type GroupFieldNotFoundError struct {
	Message string
}

func (e *GroupFieldNotFoundError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidGroupMode creates an InvalidGroupModeError with a formatted message.
func ErrInvalidGroupMode(format string, args ...interface{}) *InvalidGroupModeError {
	return &InvalidGroupModeError{Message: fmt.Sprintf(format, args...)}
}

// ErrBadGroupFormat creates a BadGroupFormatError with a formatted message.
func ErrBadGroupFormat(format string, args ...interface{}) *BadGroupFormatError {
	return &BadGroupFormatError{Message: fmt.Sprintf(format, args...)}
}

// ErrGroupFieldNotFound creates a GroupFieldNotFoundError with a formatted message.
func ErrGroupFieldNotFound(format string, args ...interface{}) *GroupFieldNotFoundError {
	return &GroupFieldNotFoundError{Message: fmt.Sprintf(format, args...)}
}
