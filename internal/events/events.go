// Package events writes and reads the append-only activity log.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/domain"
)

// Action types recorded in the activity log
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionComplete = "complete"
	ActionArchive  = "archive"
	ActionReorder  = "reorder"
	ActionDelete   = "delete"
	ActionTag      = "tag"
	ActionUntag    = "untag"
)

// Entry is one activity to record. Data is marshaled to JSON; nil becomes {}.
// WorkspaceID names the workspace the change belongs to; it is not persisted
// and 0 means the change is not visible in any workspace.
type Entry struct {
	Action      string
	EntityType  string
	EntityID    int64
	Data        any
	WorkspaceID int64
}

// Writer appends activity entries inside the caller's transaction. All
// entries written through one Writer share an op id.
type Writer struct {
	opID       string
	now        func() time.Time
	written    []domain.Activity
	workspaces []int64
}

// NewWriter creates a writer for one unit of work
func NewWriter(opID string, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{opID: opID, now: now}
}

// OpID returns the unit-of-work id shared by every entry of this writer
func (w *Writer) OpID() string {
	return w.opID
}

// Log writes an entry. A failure here must abort the surrounding transaction.
func (w *Writer) Log(ctx context.Context, tx *sql.Tx, entry Entry) error {
	data := "{}"
	if entry.Data != nil {
		payload, err := json.Marshal(entry.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal activity data: %w", err)
		}
		data = string(payload)
	}

	createdAt := w.now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO activity_log (op_id, action_type, entity_type, entity_id, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, w.opID, entry.Action, entry.EntityType, entry.EntityID, data, db.FormatTime(createdAt))
	if err != nil {
		return fmt.Errorf("failed to write activity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get activity id: %w", err)
	}

	w.written = append(w.written, domain.Activity{
		ID:         id,
		OpID:       w.opID,
		ActionType: entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Data:       data,
		CreatedAt:  createdAt.UTC(),
	})
	w.Touch(entry.WorkspaceID)
	return nil
}

// Touch marks a workspace as affected by this unit of work
func (w *Writer) Touch(wsID int64) {
	if wsID != 0 && !slices.Contains(w.workspaces, wsID) {
		w.workspaces = append(w.workspaces, wsID)
	}
}

// Written returns the entries logged so far, in write order
func (w *Writer) Written() []domain.Activity {
	return w.written
}

// Workspaces returns the distinct workspace ids touched by logged entries
func (w *Writer) Workspaces() []int64 {
	return w.workspaces
}

// Filter narrows an activity listing. Zero values match everything.
type Filter struct {
	EntityType string
	EntityID   int64
	OpID       string
	Since      *time.Time
	// BeforeID resumes a listing after the entry with this id.
	BeforeID int64
	Limit    int
}

// List returns activity entries newest first
func List(ctx context.Context, q db.Querier, filter Filter) ([]domain.Activity, error) {
	var where []string
	var args []any

	if filter.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != 0 {
		where = append(where, "entity_id = ?")
		args = append(args, filter.EntityID)
	}
	if filter.OpID != "" {
		where = append(where, "op_id = ?")
		args = append(args, filter.OpID)
	}
	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, db.FormatTime(*filter.Since))
	}

	if filter.BeforeID > 0 {
		where = append(where, "id < ?")
		args = append(args, filter.BeforeID)
	}

	query := "SELECT id, op_id, action_type, entity_type, entity_id, data, created_at FROM activity_log"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		var a domain.Activity
		var createdAt string
		if err := rows.Scan(&a.ID, &a.OpID, &a.ActionType, &a.EntityType, &a.EntityID, &a.Data, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if a.CreatedAt, err = db.ParseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}
	return out, nil
}
