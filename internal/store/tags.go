package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/events"
)

// TagStore handles tags and their links to workspaces, projects and tasks.
type TagStore struct {
	store *Store
}

const tagColumns = "id, label, color, created_at"

func scanTag(r rowScanner) (*domain.Tag, error) {
	var t domain.Tag
	var color sql.NullString
	var createdAt string
	if err := r.Scan(&t.ID, &t.Label, &color, &createdAt); err != nil {
		return nil, err
	}
	t.Color = stringPtr(color)
	var err error
	if t.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTagParams contains parameters for creating a tag.
type CreateTagParams struct {
	Label string
	Color *string
}

// Create creates a tag. Labels are unique.
func (ts *TagStore) Create(ctx context.Context, params CreateTagParams) (*domain.Tag, error) {
	if err := domain.ValidateTitle("label", params.Label); err != nil {
		return nil, err
	}

	var tag *domain.Tag
	err := ts.store.withTx(ctx, "tag.create", func(tx *sql.Tx, ew *events.Writer) error {
		res, err := tx.ExecContext(ctx, "INSERT INTO tags (label, color, created_at) VALUES (?, ?, ?)",
			params.Label, nullString(params.Color), db.FormatTime(ts.store.timestamp()))
		if err != nil {
			if isUniqueViolation(err) {
				return &domain.ConflictError{Reason: fmt.Sprintf("tag label %q already exists", params.Label)}
			}
			return fmt.Errorf("failed to create tag: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		if tag, err = getTag(ctx, tx, id); err != nil {
			return err
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:     events.ActionCreate,
			EntityType: "tag",
			EntityID:   id,
			Data:       map[string]any{"label": params.Label, "color": params.Color},
		})
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// Get retrieves a tag by id.
func (ts *TagStore) Get(ctx context.Context, id int64) (*domain.Tag, error) {
	return getTag(ctx, ts.store.db, id)
}

func getTag(ctx context.Context, q db.Querier, id int64) (*domain.Tag, error) {
	t, err := scanTag(q.QueryRowContext(ctx, "SELECT "+tagColumns+" FROM tags WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "tag", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return t, nil
}

// List returns every tag ordered by label.
func (ts *TagStore) List(ctx context.Context) ([]*domain.Tag, error) {
	return queryTags(ctx, ts.store.db, "SELECT "+tagColumns+" FROM tags ORDER BY label")
}

// ForOwner returns the tags linked to owner ordered by label.
func (ts *TagStore) ForOwner(ctx context.Context, owner domain.OwnerRef) ([]*domain.Tag, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return queryTags(ctx, ts.store.db, `
		SELECT t.id, t.label, t.color, t.created_at
		FROM tags t JOIN tagged_items ti ON ti.tag_id = t.id
		WHERE ti.target_type = ? AND ti.target_id = ?
		ORDER BY t.label
	`, string(owner.Kind), owner.ID)
}

func queryTags(ctx context.Context, q db.Querier, query string, args ...any) ([]*domain.Tag, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	out := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return out, nil
}

// Update applies the present fields of patch.
func (ts *TagStore) Update(ctx context.Context, id int64, patch domain.TagPatch) (*domain.Tag, error) {
	if patch.Label.Set {
		if err := domain.ValidateTitle("label", patch.Label.Value); err != nil {
			return nil, err
		}
	}

	var tag *domain.Tag
	err := ts.store.withTx(ctx, "tag.update", func(tx *sql.Tx, ew *events.Writer) error {
		if _, err := getTag(ctx, tx, id); err != nil {
			return err
		}

		changes := map[string]any{}
		if patch.Label.Set {
			if _, err := tx.ExecContext(ctx, "UPDATE tags SET label = ? WHERE id = ?", patch.Label.Value, id); err != nil {
				if isUniqueViolation(err) {
					return &domain.ConflictError{Reason: fmt.Sprintf("tag label %q already exists", patch.Label.Value)}
				}
				return fmt.Errorf("failed to update tag: %w", err)
			}
			changes["label"] = patch.Label.Value
		}
		if patch.Color.Set {
			if _, err := tx.ExecContext(ctx, "UPDATE tags SET color = ? WHERE id = ?", nullString(patch.Color.Value), id); err != nil {
				return fmt.Errorf("failed to update tag: %w", err)
			}
			changes["color"] = patch.Color.Value
		}

		var err error
		if tag, err = getTag(ctx, tx, id); err != nil {
			return err
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:     events.ActionUpdate,
			EntityType: "tag",
			EntityID:   id,
			Data:       changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// Delete removes a tag and every link to it.
func (ts *TagStore) Delete(ctx context.Context, id int64) error {
	return ts.store.withTx(ctx, "tag.delete", func(tx *sql.Tx, ew *events.Writer) error {
		tag, err := getTag(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:     events.ActionDelete,
			EntityType: "tag",
			EntityID:   id,
			Data:       map[string]any{"label": tag.Label},
		})
	})
}

// Tag links a tag to owner. Linking twice returns the existing link.
func (ts *TagStore) Tag(ctx context.Context, tagID int64, owner domain.OwnerRef) (*domain.TaggedItem, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	var item *domain.TaggedItem
	err := ts.store.withTx(ctx, "tag.link", func(tx *sql.Tx, ew *events.Writer) error {
		if _, err := getTag(ctx, tx, tagID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO tagged_items (tag_id, target_type, target_id, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (tag_id, target_type, target_id) DO NOTHING
		`, tagID, string(owner.Kind), owner.ID, db.FormatTime(ts.store.timestamp()))
		if err != nil {
			return fmt.Errorf("failed to tag %s: %w", owner, err)
		}
		if item, err = getTaggedItem(ctx, tx, tagID, owner); err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:     events.ActionTag,
			EntityType: "tag",
			EntityID:   tagID,
			Data:       map[string]any{"target_type": owner.Kind, "target_id": owner.ID},
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Untag removes the link between a tag and owner. A missing link is not an error.
func (ts *TagStore) Untag(ctx context.Context, tagID int64, owner domain.OwnerRef) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	return ts.store.withTx(ctx, "tag.unlink", func(tx *sql.Tx, ew *events.Writer) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM tagged_items WHERE tag_id = ? AND target_type = ? AND target_id = ?",
			tagID, string(owner.Kind), owner.ID)
		if err != nil {
			return fmt.Errorf("failed to untag %s: %w", owner, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return ew.Log(ctx, tx, events.Entry{
			Action:     events.ActionUntag,
			EntityType: "tag",
			EntityID:   tagID,
			Data:       map[string]any{"target_type": owner.Kind, "target_id": owner.ID},
		})
	})
}

func getTaggedItem(ctx context.Context, q db.Querier, tagID int64, owner domain.OwnerRef) (*domain.TaggedItem, error) {
	var item domain.TaggedItem
	var kind, createdAt string
	err := q.QueryRowContext(ctx, `
		SELECT id, tag_id, target_type, target_id, created_at FROM tagged_items
		WHERE tag_id = ? AND target_type = ? AND target_id = ?
	`, tagID, string(owner.Kind), owner.ID).Scan(&item.ID, &item.TagID, &kind, &item.TargetID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get tagged item: %w", err)
	}
	item.TargetType = domain.OwnerKind(kind)
	if item.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
