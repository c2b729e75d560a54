package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

// NotFoundError is returned when an id does not resolve, or resolves to an
// archived entity in a view that excludes archived rows.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError is returned for malformed input and rejected hierarchy changes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConflictError is returned when a batch operation references rows that are
// missing or no longer live.
type ConflictError struct {
	Reason string
	IDs    []int64
}

func (e *ConflictError) Error() string {
	if len(e.IDs) == 0 {
		return "conflict: " + e.Reason
	}
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("conflict: %s: %s", e.Reason, strings.Join(ids, ", "))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// IsNotFound reports whether err is (or wraps) a NotFoundError
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict reports whether err is (or wraps) a ConflictError
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
