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

// ProjectStore handles project persistence operations.
type ProjectStore struct {
	store *Store
}

const projectColumns = "id, workspace_id, title, description, created_at, updated_at, archived_at"

func scanProject(r rowScanner) (*domain.Project, error) {
	var p domain.Project
	var description, archivedAt sql.NullString
	var createdAt, updatedAt string
	if err := r.Scan(&p.ID, &p.WorkspaceID, &p.Title, &description, &createdAt, &updatedAt, &archivedAt); err != nil {
		return nil, err
	}
	p.Description = stringPtr(description)

	var err error
	if p.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	if p.ArchivedAt, err = db.ParseNullTime(archivedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProjectParams contains parameters for creating a project.
type CreateProjectParams struct {
	WorkspaceID int64
	Title       string
	Description *string
}

// Create creates a project in an existing workspace.
func (ps *ProjectStore) Create(ctx context.Context, params CreateProjectParams) (*domain.Project, error) {
	if err := domain.ValidateTitle("title", params.Title); err != nil {
		return nil, err
	}
	if params.WorkspaceID <= 0 {
		return nil, &domain.ValidationError{Field: "workspace_id", Reason: "is required"}
	}

	var project *domain.Project
	err := ps.store.withTx(ctx, "project.create", func(tx *sql.Tx, ew *events.Writer) error {
		if err := requireExists(ctx, tx, "workspaces", "workspace_id", params.WorkspaceID); err != nil {
			return err
		}

		now := db.FormatTime(ps.store.timestamp())
		res, err := tx.ExecContext(ctx, `
			INSERT INTO projects (workspace_id, title, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, params.WorkspaceID, params.Title, nullString(params.Description), now, now)
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		if project, err = getProject(ctx, tx, id); err != nil {
			return err
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:     events.ActionCreate,
			EntityType: "project",
			EntityID:   id,
			Data: map[string]any{
				"workspace_id": params.WorkspaceID,
				"title":        params.Title,
				"description":  params.Description,
			},
			WorkspaceID: params.WorkspaceID,
		})
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Get retrieves a project by id, archived or not.
func (ps *ProjectStore) Get(ctx context.Context, id int64) (*domain.Project, error) {
	return getProject(ctx, ps.store.db, id)
}

func getProject(ctx context.Context, q db.Querier, id int64) (*domain.Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "project", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListByWorkspace returns the live projects of a workspace in id order.
func (ps *ProjectStore) ListByWorkspace(ctx context.Context, wsID int64) ([]*domain.Project, error) {
	return LiveProjects(ctx, ps.store.db, wsID)
}

// LiveProjects lists the live projects of a workspace in id order through q.
func LiveProjects(ctx context.Context, q db.Querier, wsID int64) ([]*domain.Project, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE workspace_id = ? AND archived_at IS NULL ORDER BY id", wsID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	out := []*domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return out, nil
}

// Update applies the present fields of patch. The owning workspace never changes.
func (ps *ProjectStore) Update(ctx context.Context, id int64, patch domain.ProjectPatch) (*domain.Project, error) {
	if patch.Title.Set {
		if err := domain.ValidateTitle("title", patch.Title.Value); err != nil {
			return nil, err
		}
	}

	var project *domain.Project
	err := ps.store.withTx(ctx, "project.update", func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getProject(ctx, tx, id)
		if err != nil {
			return err
		}

		sets, args, changes := describedPatch(patch.Title, patch.Description)
		if err := applyUpdate(ctx, tx, "projects", id, sets, args, ps.store.timestamp()); err != nil {
			return err
		}

		if project, err = getProject(ctx, tx, id); err != nil {
			return err
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:      events.ActionUpdate,
			EntityType:  "project",
			EntityID:    id,
			Data:        changes,
			WorkspaceID: current.WorkspaceID,
		})
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Archive soft-deletes a project. Its tasks are left as they are.
func (ps *ProjectStore) Archive(ctx context.Context, id int64) (*domain.Project, error) {
	var project *domain.Project
	err := ps.store.withTx(ctx, "project.archive", func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getProject(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.ArchivedAt != nil {
			project = current
			return nil
		}
		if _, err := tx.ExecContext(ctx, "UPDATE projects SET archived_at = ? WHERE id = ?",
			db.FormatTime(ps.store.timestamp()), id); err != nil {
			return fmt.Errorf("failed to archive project: %w", err)
		}
		if project, err = getProject(ctx, tx, id); err != nil {
			return err
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:      events.ActionArchive,
			EntityType:  "project",
			EntityID:    id,
			WorkspaceID: current.WorkspaceID,
		})
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}
