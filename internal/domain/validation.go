package domain

import (
	"strings"
	"time"
)

// ValidateTaskStatus validates a task status
func ValidateTaskStatus(status string) error {
	switch TaskStatus(status) {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone, TaskStatusArchived:
		return nil
	default:
		return &ValidationError{Field: "status", Reason: "must be one of: todo, in-progress, done, archived"}
	}
}

// ValidateOwnerKind validates a polymorphic owner kind
func ValidateOwnerKind(kind string) error {
	switch OwnerKind(kind) {
	case OwnerWorkspace, OwnerProject, OwnerTask:
		return nil
	default:
		return &ValidationError{Field: "owner_type", Reason: "must be one of: workspace, project, task"}
	}
}

// ValidateTitle rejects empty or whitespace-only titles
func ValidateTitle(field, title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

// ValidateTimeRange rejects an end before its start
func ValidateTimeRange(start, end time.Time) error {
	if end.Before(start) {
		return &ValidationError{Field: "end_time", Reason: "must not be before start_time"}
	}
	return nil
}

// ValidateTimestamp validates and parses an ISO8601 timestamp
func ValidateTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "timestamp", Reason: "expected ISO8601/RFC3339"}
	}
	return t, nil
}
