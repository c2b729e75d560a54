package domain

import (
	"time"
)

// TaskStatus represents the workflow status of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusArchived   TaskStatus = "archived"
)

// Workspace is the top-level container of projects and root tasks
type Workspace struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

// Project is owned by exactly one workspace
type Project struct {
	ID          int64      `json:"id" db:"id"`
	WorkspaceID int64      `json:"workspace_id" db:"workspace_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

// Task is a unit of work. ProjectID nil means a workspace-root task,
// ParentTaskID nil means a tree-root task.
type Task struct {
	ID           int64      `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Status       TaskStatus `json:"status" db:"status"`
	WorkspaceID  int64      `json:"workspace_id" db:"workspace_id"`
	ProjectID    *int64     `json:"project_id,omitempty" db:"project_id"`
	ParentTaskID *int64     `json:"parent_task_id,omitempty" db:"parent_task_id"`
	OrderIndex   int        `json:"order_index" db:"order_index"`
	DueDate      *time.Time `json:"due_date,omitempty" db:"due_date"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

// IsArchived reports whether the task has been soft-deleted
func (t *Task) IsArchived() bool {
	return t.ArchivedAt != nil
}

// Note is free text attached to a workspace, project or task
type Note struct {
	ID             int64      `json:"id" db:"id"`
	Content        string     `json:"content" db:"content"`
	AttachedToType OwnerKind  `json:"attached_to_type" db:"attached_to_type"`
	AttachedToID   int64      `json:"attached_to_id" db:"attached_to_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

// Owner returns the polymorphic owner of the note
func (n *Note) Owner() OwnerRef {
	return OwnerRef{Kind: n.AttachedToType, ID: n.AttachedToID}
}

// CalendarEvent is a time range linked to a workspace, project or task
type CalendarEvent struct {
	ID           int64      `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	StartTime    time.Time  `json:"start_time" db:"start_time"`
	EndTime      time.Time  `json:"end_time" db:"end_time"`
	LinkedToType OwnerKind  `json:"linked_to_type" db:"linked_to_type"`
	LinkedToID   int64      `json:"linked_to_id" db:"linked_to_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

// Owner returns the polymorphic owner of the event
func (e *CalendarEvent) Owner() OwnerRef {
	return OwnerRef{Kind: e.LinkedToType, ID: e.LinkedToID}
}

// Reminder fires at TriggerTime for a workspace, project or task
type Reminder struct {
	ID           int64      `json:"id" db:"id"`
	TriggerTime  time.Time  `json:"trigger_time" db:"trigger_time"`
	Message      *string    `json:"message,omitempty" db:"message"`
	LinkedToType OwnerKind  `json:"linked_to_type" db:"linked_to_type"`
	LinkedToID   int64      `json:"linked_to_id" db:"linked_to_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

// Owner returns the polymorphic owner of the reminder
func (r *Reminder) Owner() OwnerRef {
	return OwnerRef{Kind: r.LinkedToType, ID: r.LinkedToID}
}

// Tag is a colored label
type Tag struct {
	ID        int64     `json:"id" db:"id"`
	Label     string    `json:"label" db:"label"`
	Color     *string   `json:"color,omitempty" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TaggedItem links a tag to a polymorphic target
type TaggedItem struct {
	ID         int64     `json:"id" db:"id"`
	TagID      int64     `json:"tag_id" db:"tag_id"`
	TargetType OwnerKind `json:"target_type" db:"target_type"`
	TargetID   int64     `json:"target_id" db:"target_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Activity is one append-only audit entry
type Activity struct {
	ID         int64     `json:"id" db:"id"`
	OpID       string    `json:"op_id" db:"op_id"`
	ActionType string    `json:"action_type" db:"action_type"` // create, update, complete, archive, reorder, ...
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   int64     `json:"entity_id" db:"entity_id"`
	Data       string    `json:"data" db:"data"` // JSON
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
