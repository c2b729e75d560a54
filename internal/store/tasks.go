package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/events"
)

// TaskStore handles task persistence operations.
type TaskStore struct {
	store *Store
}

// TaskColumns is the column list ScanTask expects
const TaskColumns = `id, title, status, workspace_id, project_id, parent_task_id,
	order_index, due_date, created_at, updated_at, archived_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// ScanTask reads one row selected with TaskColumns. Scan errors, including
// sql.ErrNoRows, are returned unwrapped.
func ScanTask(r rowScanner) (*domain.Task, error) {
	var t domain.Task
	var status, createdAt, updatedAt string
	var projectID, parentID sql.NullInt64
	var dueDate, archivedAt sql.NullString

	if err := r.Scan(&t.ID, &t.Title, &status, &t.WorkspaceID, &projectID, &parentID,
		&t.OrderIndex, &dueDate, &createdAt, &updatedAt, &archivedAt); err != nil {
		return nil, err
	}

	t.Status = domain.TaskStatus(status)
	t.ProjectID = int64Ptr(projectID)
	t.ParentTaskID = int64Ptr(parentID)

	var err error
	if t.DueDate, err = db.ParseNullTime(dueDate); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	if t.ArchivedAt, err = db.ParseNullTime(archivedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTaskParams contains parameters for creating a new task.
type CreateTaskParams struct {
	Title        string
	WorkspaceID  int64
	ProjectID    *int64
	ParentTaskID *int64
	Status       domain.TaskStatus // defaults to todo
	DueDate      *time.Time
}

// Create creates a new task appended after its live siblings and logs a
// create activity.
func (ts *TaskStore) Create(ctx context.Context, params CreateTaskParams) (*domain.Task, error) {
	if err := domain.ValidateTitle("title", params.Title); err != nil {
		return nil, err
	}
	if params.WorkspaceID <= 0 {
		return nil, &domain.ValidationError{Field: "workspace_id", Reason: "is required"}
	}
	status := params.Status
	if status == "" {
		status = domain.TaskStatusTodo
	}
	if err := domain.ValidateTaskStatus(string(status)); err != nil {
		return nil, err
	}

	var task *domain.Task
	err := ts.store.withTx(ctx, "task.create", func(tx *sql.Tx, ew *events.Writer) error {
		if err := requireExists(ctx, tx, "workspaces", "workspace_id", params.WorkspaceID); err != nil {
			return err
		}
		if params.ProjectID != nil {
			if err := requireExists(ctx, tx, "projects", "project_id", *params.ProjectID); err != nil {
				return err
			}
		}

		scope := WorkspaceRootScope(params.WorkspaceID)
		if params.ParentTaskID != nil {
			if err := requireExists(ctx, tx, "tasks", "parent_task_id", *params.ParentTaskID); err != nil {
				return err
			}
			scope = ParentScope(*params.ParentTaskID)
		}

		orderIndex, err := NextOrderIndex(ctx, tx, scope)
		if err != nil {
			return err
		}

		now := ts.store.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (title, status, workspace_id, project_id, parent_task_id,
				order_index, due_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, params.Title, string(status), params.WorkspaceID, nullInt64(params.ProjectID),
			nullInt64(params.ParentTaskID), orderIndex, db.FormatNullTime(params.DueDate),
			db.FormatTime(now), db.FormatTime(now))
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}

		task, err = getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := touchPlacement(ctx, tx, ew, id); err != nil {
			return err
		}

		payload := map[string]any{
			"title":        params.Title,
			"status":       status,
			"workspace_id": params.WorkspaceID,
			"order_index":  orderIndex,
		}
		if params.ProjectID != nil {
			payload["project_id"] = *params.ProjectID
		}
		if params.ParentTaskID != nil {
			payload["parent_task_id"] = *params.ParentTaskID
		}
		if params.DueDate != nil {
			payload["due_date"] = db.FormatTime(*params.DueDate)
		}

		return ew.Log(ctx, tx, events.Entry{
			Action:      events.ActionCreate,
			EntityType:  "task",
			EntityID:    id,
			Data:        payload,
			WorkspaceID: params.WorkspaceID,
		})
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Get retrieves a task by id, archived or not.
func (ts *TaskStore) Get(ctx context.Context, id int64) (*domain.Task, error) {
	return getTask(ctx, ts.store.db, id)
}

func getTask(ctx context.Context, q db.Querier, id int64) (*domain.Task, error) {
	task, err := ScanTask(q.QueryRowContext(ctx, "SELECT "+TaskColumns+" FROM tasks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "task", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListByWorkspace returns the live tasks of a workspace at every depth,
// ordered by order_index.
func (ts *TaskStore) ListByWorkspace(ctx context.Context, wsID int64) ([]*domain.Task, error) {
	return listTasks(ctx, ts.store.db, "workspace_id = ?", wsID)
}

// ListByProject returns the live tasks of a project at every depth.
func (ts *TaskStore) ListByProject(ctx context.Context, projectID int64) ([]*domain.Task, error) {
	return listTasks(ctx, ts.store.db, "project_id = ?", projectID)
}

// Subtasks returns the live direct children of a task.
func (ts *TaskStore) Subtasks(ctx context.Context, parentID int64) ([]*domain.Task, error) {
	return listTasks(ctx, ts.store.db, "parent_task_id = ?", parentID)
}

func listTasks(ctx context.Context, q db.Querier, cond string, args ...any) ([]*domain.Task, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+TaskColumns+" FROM tasks WHERE archived_at IS NULL AND "+cond+" ORDER BY order_index, id",
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := ScanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// Update applies the present fields of patch. A non-null parent_task_id is
// checked for self-parenting and cycles before anything is written.
func (ts *TaskStore) Update(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	if patch.Title.Set {
		if err := domain.ValidateTitle("title", patch.Title.Value); err != nil {
			return nil, err
		}
	}
	if patch.Status.Set {
		if err := domain.ValidateTaskStatus(string(patch.Status.Value)); err != nil {
			return nil, err
		}
	}

	var task *domain.Task
	err := ts.store.withTx(ctx, "task.update", func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}

		var sets []string
		var args []any
		changes := map[string]any{}

		if patch.Title.Set {
			sets = append(sets, "title = ?")
			args = append(args, patch.Title.Value)
			changes["title"] = patch.Title.Value
		}
		if patch.Status.Set {
			sets = append(sets, "status = ?")
			args = append(args, string(patch.Status.Value))
			changes["status"] = patch.Status.Value
		}
		if patch.ProjectID.Set {
			if p := patch.ProjectID.Value; p != nil {
				if err := requireExists(ctx, tx, "projects", "project_id", *p); err != nil {
					return err
				}
			}
			sets = append(sets, "project_id = ?")
			args = append(args, nullInt64(patch.ProjectID.Value))
			changes["project_id"] = patch.ProjectID.Value
		}
		if patch.ParentTaskID.Set {
			if p := patch.ParentTaskID.Value; p != nil {
				if err := checkParent(ctx, tx, id, *p); err != nil {
					return err
				}
			}
			sets = append(sets, "parent_task_id = ?")
			args = append(args, nullInt64(patch.ParentTaskID.Value))
			changes["parent_task_id"] = patch.ParentTaskID.Value
		}
		if patch.DueDate.Set {
			sets = append(sets, "due_date = ?")
			args = append(args, db.FormatNullTime(patch.DueDate.Value))
			changes["due_date"] = db.FormatNullTime(patch.DueDate.Value)
		}

		sets = append(sets, "updated_at = ?")
		args = append(args, db.FormatTime(ts.store.timestamp()), id)

		// placement before and after the write, so a move reaches both sides
		if err := touchPlacement(ctx, tx, ew, id); err != nil {
			return err
		}
		query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = ?", strings.Join(sets, ", "))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		if task, err = getTask(ctx, tx, id); err != nil {
			return err
		}

		if err := touchPlacement(ctx, tx, ew, id); err != nil {
			return err
		}

		return ew.Log(ctx, tx, events.Entry{
			Action:      events.ActionUpdate,
			EntityType:  "task",
			EntityID:    id,
			Data:        changes,
			WorkspaceID: current.WorkspaceID,
		})
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// checkParent validates a new parent for taskID: not itself, existing, and
// not one of its live descendants.
func checkParent(ctx context.Context, tx *sql.Tx, taskID, parentID int64) error {
	if parentID == taskID {
		return &domain.ValidationError{
			Field:  "parent_task_id",
			Reason: fmt.Sprintf("task %d cannot be its own parent", taskID),
		}
	}
	if err := requireExists(ctx, tx, "tasks", "parent_task_id", parentID); err != nil {
		return err
	}
	cycle, err := WouldCreateCycle(ctx, tx, taskID, parentID)
	if err != nil {
		return err
	}
	if cycle {
		return &domain.ValidationError{
			Field:  "parent_task_id",
			Reason: fmt.Sprintf("setting parent_task_id to %d would create a circular dependency", parentID),
		}
	}
	return nil
}

// Complete sets a task's status to done.
func (ts *TaskStore) Complete(ctx context.Context, id int64) (*domain.Task, error) {
	var task *domain.Task
	err := ts.store.withTx(ctx, "task.complete", func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := touchPlacement(ctx, tx, ew, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?",
			string(domain.TaskStatusDone), db.FormatTime(ts.store.timestamp()), id); err != nil {
			return fmt.Errorf("failed to complete task: %w", err)
		}
		if task, err = getTask(ctx, tx, id); err != nil {
			return err
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:      events.ActionComplete,
			EntityType:  "task",
			EntityID:    id,
			WorkspaceID: current.WorkspaceID,
		})
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Archive soft-deletes a task. Subtasks are not archived with it; archiving
// an already archived task changes nothing.
func (ts *TaskStore) Archive(ctx context.Context, id int64) (*domain.Task, error) {
	var task *domain.Task
	err := ts.store.withTx(ctx, "task.archive", func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.IsArchived() {
			task = current
			return nil
		}
		if err := touchPlacement(ctx, tx, ew, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE tasks SET archived_at = ? WHERE id = ?",
			db.FormatTime(ts.store.timestamp()), id); err != nil {
			return fmt.Errorf("failed to archive task: %w", err)
		}
		if task, err = getTask(ctx, tx, id); err != nil {
			return err
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:      events.ActionArchive,
			EntityType:  "task",
			EntityID:    id,
			WorkspaceID: current.WorkspaceID,
		})
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// requireExists returns a ValidationError naming field when table has no row
// with id. Archived rows count as existing.
func requireExists(ctx context.Context, q db.Querier, table, field string, id int64) error {
	ok, err := exists(ctx, q, table, id)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ValidationError{Field: field, Reason: fmt.Sprintf("%d does not exist", id)}
	}
	return nil
}

// touchPlacement marks every workspace whose snapshot can contain taskID: its
// own, those of its ancestors, and those of the projects along that chain.
// Parents and projects may live in other workspaces.
func touchPlacement(ctx context.Context, q db.Querier, ew *events.Writer, taskID int64) error {
	rows, err := q.QueryContext(ctx, `
		WITH RECURSIVE chain(id, parent_task_id, workspace_id, project_id) AS (
			SELECT id, parent_task_id, workspace_id, project_id FROM tasks WHERE id = ?
			UNION
			SELECT t.id, t.parent_task_id, t.workspace_id, t.project_id
			FROM tasks t JOIN chain c ON t.id = c.parent_task_id
		)
		SELECT workspace_id FROM chain
		UNION
		SELECT p.workspace_id FROM chain c JOIN projects p ON p.id = c.project_id`, taskID)
	if err != nil {
		return fmt.Errorf("failed to resolve placement of task %d: %w", taskID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var wsID int64
		if err := rows.Scan(&wsID); err != nil {
			return fmt.Errorf("failed to scan workspace id: %w", err)
		}
		ew.Touch(wsID)
	}
	return rows.Err()
}
