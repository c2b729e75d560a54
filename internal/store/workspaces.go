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

// WorkspaceStore handles workspace persistence operations.
type WorkspaceStore struct {
	store *Store
}

const workspaceColumns = "id, title, description, created_at, updated_at, archived_at"

func scanWorkspace(r rowScanner) (*domain.Workspace, error) {
	var w domain.Workspace
	var description, archivedAt sql.NullString
	var createdAt, updatedAt string
	if err := r.Scan(&w.ID, &w.Title, &description, &createdAt, &updatedAt, &archivedAt); err != nil {
		return nil, err
	}
	w.Description = stringPtr(description)

	var err error
	if w.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if w.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	if w.ArchivedAt, err = db.ParseNullTime(archivedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateWorkspaceParams contains parameters for creating a workspace.
type CreateWorkspaceParams struct {
	Title       string
	Description *string
}

// Create creates a workspace.
func (ws *WorkspaceStore) Create(ctx context.Context, params CreateWorkspaceParams) (*domain.Workspace, error) {
	if err := domain.ValidateTitle("title", params.Title); err != nil {
		return nil, err
	}

	var workspace *domain.Workspace
	err := ws.store.withTx(ctx, "workspace.create", func(tx *sql.Tx, ew *events.Writer) error {
		now := db.FormatTime(ws.store.timestamp())
		res, err := tx.ExecContext(ctx, `
			INSERT INTO workspaces (title, description, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, params.Title, nullString(params.Description), now, now)
		if err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		if workspace, err = LoadWorkspace(ctx, tx, id); err != nil {
			return err
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:      events.ActionCreate,
			EntityType:  "workspace",
			EntityID:    id,
			Data:        map[string]any{"title": params.Title, "description": params.Description},
			WorkspaceID: id,
		})
	})
	if err != nil {
		return nil, err
	}
	return workspace, nil
}

// Get retrieves a workspace by id, archived or not.
func (ws *WorkspaceStore) Get(ctx context.Context, id int64) (*domain.Workspace, error) {
	return LoadWorkspace(ctx, ws.store.db, id)
}

// LoadWorkspace reads a workspace through q, archived or not.
func LoadWorkspace(ctx context.Context, q db.Querier, id int64) (*domain.Workspace, error) {
	w, err := scanWorkspace(q.QueryRowContext(ctx, "SELECT "+workspaceColumns+" FROM workspaces WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "workspace", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return w, nil
}

// List returns live workspaces in id order.
func (ws *WorkspaceStore) List(ctx context.Context) ([]*domain.Workspace, error) {
	return LiveWorkspaces(ctx, ws.store.db)
}

// LiveWorkspaces lists live workspaces in id order through q.
func LiveWorkspaces(ctx context.Context, q db.Querier) ([]*domain.Workspace, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+workspaceColumns+" FROM workspaces WHERE archived_at IS NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	out := []*domain.Workspace{}
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workspaces: %w", err)
	}
	return out, nil
}

// Update applies the present fields of patch.
func (ws *WorkspaceStore) Update(ctx context.Context, id int64, patch domain.WorkspacePatch) (*domain.Workspace, error) {
	if patch.Title.Set {
		if err := domain.ValidateTitle("title", patch.Title.Value); err != nil {
			return nil, err
		}
	}

	var workspace *domain.Workspace
	err := ws.store.withTx(ctx, "workspace.update", func(tx *sql.Tx, ew *events.Writer) error {
		if _, err := LoadWorkspace(ctx, tx, id); err != nil {
			return err
		}

		sets, args, changes := describedPatch(patch.Title, patch.Description)
		if err := applyUpdate(ctx, tx, "workspaces", id, sets, args, ws.store.timestamp()); err != nil {
			return err
		}

		var err error
		if workspace, err = LoadWorkspace(ctx, tx, id); err != nil {
			return err
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:      events.ActionUpdate,
			EntityType:  "workspace",
			EntityID:    id,
			Data:        changes,
			WorkspaceID: id,
		})
	})
	if err != nil {
		return nil, err
	}
	return workspace, nil
}

// Archive soft-deletes a workspace. Its projects and tasks are left as they are.
func (ws *WorkspaceStore) Archive(ctx context.Context, id int64) (*domain.Workspace, error) {
	var workspace *domain.Workspace
	err := ws.store.withTx(ctx, "workspace.archive", func(tx *sql.Tx, ew *events.Writer) error {
		current, err := LoadWorkspace(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.ArchivedAt != nil {
			workspace = current
			return nil
		}
		if _, err := tx.ExecContext(ctx, "UPDATE workspaces SET archived_at = ? WHERE id = ?",
			db.FormatTime(ws.store.timestamp()), id); err != nil {
			return fmt.Errorf("failed to archive workspace: %w", err)
		}
		if workspace, err = LoadWorkspace(ctx, tx, id); err != nil {
			return err
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:      events.ActionArchive,
			EntityType:  "workspace",
			EntityID:    id,
			WorkspaceID: id,
		})
	})
	if err != nil {
		return nil, err
	}
	return workspace, nil
}

// describedPatch builds SET clauses for the title/description pair shared by
// workspaces and projects.
func describedPatch(title domain.Optional[string], description domain.Optional[*string]) ([]string, []any, map[string]any) {
	var sets []string
	var args []any
	changes := map[string]any{}
	if title.Set {
		sets = append(sets, "title = ?")
		args = append(args, title.Value)
		changes["title"] = title.Value
	}
	if description.Set {
		sets = append(sets, "description = ?")
		args = append(args, nullString(description.Value))
		changes["description"] = description.Value
	}
	return sets, args, changes
}
