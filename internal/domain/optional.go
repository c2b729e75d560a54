package domain

import "time"

// Optional carries a value together with a presence flag. Patch structs use it
// so that "field not supplied" and "field set to null" stay distinguishable.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns a present Optional holding v
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a present Optional holding the nil pointer, clearing a nullable field
func Null[T any]() Optional[*T] {
	return Optional[*T]{Set: true}
}

// WorkspacePatch lists the mutable workspace fields
type WorkspacePatch struct {
	Title       Optional[string]
	Description Optional[*string]
}

// IsEmpty reports whether no field is present
func (p WorkspacePatch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set
}

// ProjectPatch lists the mutable project fields. WorkspaceID is immutable.
type ProjectPatch struct {
	Title       Optional[string]
	Description Optional[*string]
}

// IsEmpty reports whether no field is present
func (p ProjectPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set
}

// TaskPatch lists the mutable task fields
type TaskPatch struct {
	Title        Optional[string]
	Status       Optional[TaskStatus]
	ProjectID    Optional[*int64]
	ParentTaskID Optional[*int64]
	DueDate      Optional[*time.Time]
}

// IsEmpty reports whether no field is present
func (p TaskPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Status.Set && !p.ProjectID.Set && !p.ParentTaskID.Set && !p.DueDate.Set
}

// NotePatch lists the mutable note fields
type NotePatch struct {
	Content Optional[string]
}

// CalendarEventPatch lists the mutable calendar event fields
type CalendarEventPatch struct {
	Title     Optional[string]
	StartTime Optional[time.Time]
	EndTime   Optional[time.Time]
}

// ReminderPatch lists the mutable reminder fields
type ReminderPatch struct {
	TriggerTime Optional[time.Time]
	Message     Optional[*string]
}

// TagPatch lists the mutable tag fields
type TagPatch struct {
	Label Optional[string]
	Color Optional[*string]
}
