package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/events"
)

// Scope identifies a sibling group for ordering: either the children of a
// parent task, or the parentless tasks of a workspace.
type Scope struct {
	ParentTaskID *int64
	WorkspaceID  *int64
}

// ParentScope is the sibling group of the children of taskID
func ParentScope(taskID int64) Scope {
	return Scope{ParentTaskID: &taskID}
}

// WorkspaceRootScope is the sibling group of parentless tasks in wsID,
// project roots included.
func WorkspaceRootScope(wsID int64) Scope {
	return Scope{WorkspaceID: &wsID}
}

func (s Scope) where() (string, []any) {
	if s.ParentTaskID != nil {
		return "parent_task_id = ?", []any{*s.ParentTaskID}
	}
	var wsID int64
	if s.WorkspaceID != nil {
		wsID = *s.WorkspaceID
	}
	return "workspace_id = ? AND parent_task_id IS NULL", []any{wsID}
}

func (s Scope) String() string {
	if s.ParentTaskID != nil {
		return fmt.Sprintf("parent:%d", *s.ParentTaskID)
	}
	if s.WorkspaceID != nil {
		return fmt.Sprintf("workspace:%d", *s.WorkspaceID)
	}
	return "none"
}

// NextOrderIndex returns max(order_index)+1 over live siblings in scope, or 1
// when the scope has none.
func NextOrderIndex(ctx context.Context, q db.Querier, scope Scope) (int, error) {
	cond, args := scope.where()
	var maxIndex sql.NullInt64
	err := q.QueryRowContext(ctx,
		"SELECT MAX(order_index) FROM tasks WHERE archived_at IS NULL AND "+cond, args...,
	).Scan(&maxIndex)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next order index for %s: %w", scope, err)
	}
	if !maxIndex.Valid {
		return 1, nil
	}
	return int(maxIndex.Int64) + 1, nil
}

// ReorderParams lists task ids in their desired order. When Scope is set,
// every id must belong to it.
type ReorderParams struct {
	TaskIDs []int64
	Scope   *Scope
}

// Reorder rewrites order_index of exactly the listed tasks to 0, 1, 2, ... in
// list order. Either every row is rewritten or none is.
func (ts *TaskStore) Reorder(ctx context.Context, params ReorderParams) error {
	if len(params.TaskIDs) == 0 {
		return &domain.ValidationError{Field: "task_ids", Reason: "must not be empty"}
	}
	seen := make(map[int64]bool, len(params.TaskIDs))
	for _, id := range params.TaskIDs {
		if seen[id] {
			return &domain.ValidationError{Field: "task_ids", Reason: fmt.Sprintf("duplicate task id %d", id)}
		}
		seen[id] = true
	}

	return ts.store.withTx(ctx, "task.reorder", func(tx *sql.Tx, ew *events.Writer) error {
		var missing, foreign []int64
		for _, id := range params.TaskIDs {
			task, err := ScanTask(tx.QueryRowContext(ctx, "SELECT "+TaskColumns+" FROM tasks WHERE id = ?", id))
			if errors.Is(err, sql.ErrNoRows) || (err == nil && task.IsArchived()) {
				missing = append(missing, id)
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to load task %d: %w", id, err)
			}
			if params.Scope != nil && !inScope(task, *params.Scope) {
				foreign = append(foreign, id)
			}
			if err := touchPlacement(ctx, tx, ew, id); err != nil {
				return err
			}
		}
		if len(missing) > 0 {
			return &domain.ConflictError{Reason: "tasks missing or archived", IDs: missing}
		}
		if len(foreign) > 0 {
			return &domain.ValidationError{
				Field:  "task_ids",
				Reason: fmt.Sprintf("tasks %v are not in scope %s", foreign, params.Scope),
			}
		}

		now := db.FormatTime(ts.store.timestamp())
		for i, id := range params.TaskIDs {
			if _, err := tx.ExecContext(ctx,
				"UPDATE tasks SET order_index = ?, updated_at = ? WHERE id = ?", i, now, id,
			); err != nil {
				return fmt.Errorf("failed to reorder task %d: %w", id, err)
			}
		}

		data := map[string]any{
			"task_ids":       params.TaskIDs,
			"parent_task_id": nil,
			"workspace_id":   nil,
		}
		if params.Scope != nil {
			data["parent_task_id"] = params.Scope.ParentTaskID
			data["workspace_id"] = params.Scope.WorkspaceID
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:     events.ActionReorder,
			EntityType: "task",
			EntityID:   0,
			Data:       data,
		})
	})
}

func inScope(task *domain.Task, scope Scope) bool {
	if scope.ParentTaskID != nil {
		return task.ParentTaskID != nil && *task.ParentTaskID == *scope.ParentTaskID
	}
	if scope.WorkspaceID != nil {
		return task.ParentTaskID == nil && task.WorkspaceID == *scope.WorkspaceID
	}
	return true
}
