// Package snapshot assembles the nested, derived view of workspaces: each
// workspace with its projects, task trees and attachments at every level.
// Snapshots are never persisted; they are rebuilt from the store on demand
// and can be rendered canonically for hashing and diffing.
package snapshot

import (
	"strings"
	"time"

	"github.com/lherron/clara/internal/attach"
	"github.com/lherron/clara/internal/domain"
)

// CircularSuffix is appended to the title of a task reached twice on one
// branch of a build.
const CircularSuffix = " [CIRCULAR DEPENDENCY DETECTED]"

// WorkspaceSnapshot is a live workspace with its live projects, its
// workspace-root task trees and its attachments.
type WorkspaceSnapshot struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Description *string           `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Projects    []ProjectSnapshot `json:"projects"`
	Tasks       []TaskSnapshot    `json:"tasks"`
	attach.Attachments
}

// ProjectSnapshot is a live project with its root task trees
type ProjectSnapshot struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Tasks       []TaskSnapshot `json:"tasks"`
	attach.Attachments
}

// TaskSnapshot is a live task with its live subtasks, depth first
type TaskSnapshot struct {
	ID        int64             `json:"id"`
	Title     string            `json:"title"`
	Status    domain.TaskStatus `json:"status"`
	DueDate   *time.Time        `json:"due_date,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Subtasks  []TaskSnapshot    `json:"subtasks"`
	attach.Attachments
}

// Circular reports whether the node stands in for a revisited task
func (t TaskSnapshot) Circular() bool {
	return strings.HasSuffix(t.Title, CircularSuffix)
}

// Count returns the number of task nodes in the tree rooted at t
func (t TaskSnapshot) Count() int {
	n := 1
	for _, sub := range t.Subtasks {
		n += sub.Count()
	}
	return n
}

func workspaceNode(w *domain.Workspace) WorkspaceSnapshot {
	return WorkspaceSnapshot{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
		Projects:    []ProjectSnapshot{},
		Tasks:       []TaskSnapshot{},
		Attachments: attach.Empty(),
	}
}

func projectNode(p *domain.Project) ProjectSnapshot {
	return ProjectSnapshot{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Tasks:       []TaskSnapshot{},
		Attachments: attach.Empty(),
	}
}

func taskNode(t *domain.Task) TaskSnapshot {
	return TaskSnapshot{
		ID:          t.ID,
		Title:       t.Title,
		Status:      t.Status,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Subtasks:    []TaskSnapshot{},
		Attachments: attach.Empty(),
	}
}
