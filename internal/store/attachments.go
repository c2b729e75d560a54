package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lherron/clara/internal/attach"
	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/events"
)

// Owners of attachments are not checked for existence; an attachment to a
// missing owner is stored and simply never shows up in a snapshot.

// NoteStore handles note persistence operations.
type NoteStore struct {
	store *Store
}

// CreateNoteParams contains parameters for creating a note.
type CreateNoteParams struct {
	Content string
	Owner   domain.OwnerRef
}

// Create attaches a note to an owner.
func (ns *NoteStore) Create(ctx context.Context, params CreateNoteParams) (*domain.Note, error) {
	if err := domain.ValidateTitle("content", params.Content); err != nil {
		return nil, err
	}
	if err := params.Owner.Validate(); err != nil {
		return nil, err
	}

	var note *domain.Note
	err := ns.store.withTx(ctx, "note.create", func(tx *sql.Tx, ew *events.Writer) error {
		now := db.FormatTime(ns.store.timestamp())
		res, err := tx.ExecContext(ctx, `
			INSERT INTO notes (content, attached_to_type, attached_to_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, params.Content, string(params.Owner.Kind), params.Owner.ID, now, now)
		if err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		if note, err = getNote(ctx, tx, id); err != nil {
			return err
		}
		return logAttachment(ctx, tx, ew, events.ActionCreate, "note", id, params.Owner, map[string]any{
			"content":          params.Content,
			"attached_to_type": params.Owner.Kind,
			"attached_to_id":   params.Owner.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Get retrieves a note by id, archived or not.
func (ns *NoteStore) Get(ctx context.Context, id int64) (*domain.Note, error) {
	return getNote(ctx, ns.store.db, id)
}

func getNote(ctx context.Context, q db.Querier, id int64) (*domain.Note, error) {
	n, err := attach.ScanNote(q.QueryRowContext(ctx, "SELECT "+attach.NoteColumns+" FROM notes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "note", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

// ListForOwner returns the live notes of owner in insertion order.
func (ns *NoteStore) ListForOwner(ctx context.Context, owner domain.OwnerRef) ([]domain.Note, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return attach.Notes(ctx, ns.store.db, owner)
}

// Update applies the present fields of patch.
func (ns *NoteStore) Update(ctx context.Context, id int64, patch domain.NotePatch) (*domain.Note, error) {
	if patch.Content.Set {
		if err := domain.ValidateTitle("content", patch.Content.Value); err != nil {
			return nil, err
		}
	}

	var note *domain.Note
	err := ns.store.withTx(ctx, "note.update", func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getNote(ctx, tx, id)
		if err != nil {
			return err
		}
		changes := map[string]any{}
		var sets []string
		var args []any
		if patch.Content.Set {
			sets = append(sets, "content = ?")
			args = append(args, patch.Content.Value)
			changes["content"] = patch.Content.Value
		}
		if err := applyUpdate(ctx, tx, "notes", id, sets, args, ns.store.timestamp()); err != nil {
			return err
		}
		if note, err = getNote(ctx, tx, id); err != nil {
			return err
		}
		return logAttachment(ctx, tx, ew, events.ActionUpdate, "note", id, current.Owner(), changes)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Archive soft-deletes a note.
func (ns *NoteStore) Archive(ctx context.Context, id int64) (*domain.Note, error) {
	var note *domain.Note
	err := ns.store.withTx(ctx, "note.archive", func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getNote(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.ArchivedAt != nil {
			note = current
			return nil
		}
		if err := archiveRow(ctx, tx, "notes", id, ns.store.timestamp()); err != nil {
			return err
		}
		if note, err = getNote(ctx, tx, id); err != nil {
			return err
		}
		return logAttachment(ctx, tx, ew, events.ActionArchive, "note", id, current.Owner(), nil)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// CalendarEventStore handles calendar event persistence operations.
type CalendarEventStore struct {
	store *Store
}

// CreateCalendarEventParams contains parameters for creating a calendar event.
type CreateCalendarEventParams struct {
	Title     string
	StartTime time.Time
	EndTime   time.Time
	Owner     domain.OwnerRef
}

// Create links a calendar event to an owner. The end may not precede the start.
func (cs *CalendarEventStore) Create(ctx context.Context, params CreateCalendarEventParams) (*domain.CalendarEvent, error) {
	if err := domain.ValidateTitle("title", params.Title); err != nil {
		return nil, err
	}
	if err := domain.ValidateTimeRange(params.StartTime, params.EndTime); err != nil {
		return nil, err
	}
	if err := params.Owner.Validate(); err != nil {
		return nil, err
	}

	var event *domain.CalendarEvent
	err := cs.store.withTx(ctx, "calendar_event.create", func(tx *sql.Tx, ew *events.Writer) error {
		now := db.FormatTime(cs.store.timestamp())
		res, err := tx.ExecContext(ctx, `
			INSERT INTO calendar_events (title, start_time, end_time, linked_to_type, linked_to_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, params.Title, db.FormatTime(params.StartTime), db.FormatTime(params.EndTime),
			string(params.Owner.Kind), params.Owner.ID, now, now)
		if err != nil {
			return fmt.Errorf("failed to create calendar event: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		if event, err = getCalendarEvent(ctx, tx, id); err != nil {
			return err
		}
		return logAttachment(ctx, tx, ew, events.ActionCreate, "calendar_event", id, params.Owner, map[string]any{
			"title":          params.Title,
			"start_time":     db.FormatTime(params.StartTime),
			"end_time":       db.FormatTime(params.EndTime),
			"linked_to_type": params.Owner.Kind,
			"linked_to_id":   params.Owner.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Get retrieves a calendar event by id, archived or not.
func (cs *CalendarEventStore) Get(ctx context.Context, id int64) (*domain.CalendarEvent, error) {
	return getCalendarEvent(ctx, cs.store.db, id)
}

func getCalendarEvent(ctx context.Context, q db.Querier, id int64) (*domain.CalendarEvent, error) {
	e, err := attach.ScanCalendarEvent(q.QueryRowContext(ctx,
		"SELECT "+attach.CalendarEventColumns+" FROM calendar_events WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "calendar_event", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar event: %w", err)
	}
	return e, nil
}

// ListForOwner returns the live calendar events of owner in insertion order.
func (cs *CalendarEventStore) ListForOwner(ctx context.Context, owner domain.OwnerRef) ([]domain.CalendarEvent, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return attach.CalendarEvents(ctx, cs.store.db, owner)
}

// Update applies the present fields of patch. The resulting range is validated.
func (cs *CalendarEventStore) Update(ctx context.Context, id int64, patch domain.CalendarEventPatch) (*domain.CalendarEvent, error) {
	if patch.Title.Set {
		if err := domain.ValidateTitle("title", patch.Title.Value); err != nil {
			return nil, err
		}
	}

	var event *domain.CalendarEvent
	err := cs.store.withTx(ctx, "calendar_event.update", func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getCalendarEvent(ctx, tx, id)
		if err != nil {
			return err
		}

		start, end := current.StartTime, current.EndTime
		if patch.StartTime.Set {
			start = patch.StartTime.Value
		}
		if patch.EndTime.Set {
			end = patch.EndTime.Value
		}
		if err := domain.ValidateTimeRange(start, end); err != nil {
			return err
		}

		changes := map[string]any{}
		var sets []string
		var args []any
		if patch.Title.Set {
			sets = append(sets, "title = ?")
			args = append(args, patch.Title.Value)
			changes["title"] = patch.Title.Value
		}
		if patch.StartTime.Set {
			sets = append(sets, "start_time = ?")
			args = append(args, db.FormatTime(start))
			changes["start_time"] = db.FormatTime(start)
		}
		if patch.EndTime.Set {
			sets = append(sets, "end_time = ?")
			args = append(args, db.FormatTime(end))
			changes["end_time"] = db.FormatTime(end)
		}
		if err := applyUpdate(ctx, tx, "calendar_events", id, sets, args, cs.store.timestamp()); err != nil {
			return err
		}
		if event, err = getCalendarEvent(ctx, tx, id); err != nil {
			return err
		}
		return logAttachment(ctx, tx, ew, events.ActionUpdate, "calendar_event", id, current.Owner(), changes)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Archive soft-deletes a calendar event.
func (cs *CalendarEventStore) Archive(ctx context.Context, id int64) (*domain.CalendarEvent, error) {
	var event *domain.CalendarEvent
	err := cs.store.withTx(ctx, "calendar_event.archive", func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getCalendarEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.ArchivedAt != nil {
			event = current
			return nil
		}
		if err := archiveRow(ctx, tx, "calendar_events", id, cs.store.timestamp()); err != nil {
			return err
		}
		if event, err = getCalendarEvent(ctx, tx, id); err != nil {
			return err
		}
		return logAttachment(ctx, tx, ew, events.ActionArchive, "calendar_event", id, current.Owner(), nil)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ReminderStore handles reminder persistence operations.
type ReminderStore struct {
	store *Store
}

// CreateReminderParams contains parameters for creating a reminder.
type CreateReminderParams struct {
	TriggerTime time.Time
	Message     *string
	Owner       domain.OwnerRef
}

// Create links a reminder to an owner.
func (rs *ReminderStore) Create(ctx context.Context, params CreateReminderParams) (*domain.Reminder, error) {
	if params.TriggerTime.IsZero() {
		return nil, &domain.ValidationError{Field: "trigger_time", Reason: "is required"}
	}
	if err := params.Owner.Validate(); err != nil {
		return nil, err
	}

	var reminder *domain.Reminder
	err := rs.store.withTx(ctx, "reminder.create", func(tx *sql.Tx, ew *events.Writer) error {
		now := db.FormatTime(rs.store.timestamp())
		res, err := tx.ExecContext(ctx, `
			INSERT INTO reminders (trigger_time, message, linked_to_type, linked_to_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, db.FormatTime(params.TriggerTime), nullString(params.Message),
			string(params.Owner.Kind), params.Owner.ID, now, now)
		if err != nil {
			return fmt.Errorf("failed to create reminder: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		if reminder, err = getReminder(ctx, tx, id); err != nil {
			return err
		}
		return logAttachment(ctx, tx, ew, events.ActionCreate, "reminder", id, params.Owner, map[string]any{
			"trigger_time":   db.FormatTime(params.TriggerTime),
			"message":        params.Message,
			"linked_to_type": params.Owner.Kind,
			"linked_to_id":   params.Owner.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

// Get retrieves a reminder by id, archived or not.
func (rs *ReminderStore) Get(ctx context.Context, id int64) (*domain.Reminder, error) {
	return getReminder(ctx, rs.store.db, id)
}

func getReminder(ctx context.Context, q db.Querier, id int64) (*domain.Reminder, error) {
	r, err := attach.ScanReminder(q.QueryRowContext(ctx,
		"SELECT "+attach.ReminderColumns+" FROM reminders WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "reminder", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return r, nil
}

// ListForOwner returns the live reminders of owner in insertion order.
func (rs *ReminderStore) ListForOwner(ctx context.Context, owner domain.OwnerRef) ([]domain.Reminder, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return attach.Reminders(ctx, rs.store.db, owner)
}

// Update applies the present fields of patch.
func (rs *ReminderStore) Update(ctx context.Context, id int64, patch domain.ReminderPatch) (*domain.Reminder, error) {
	if patch.TriggerTime.Set && patch.TriggerTime.Value.IsZero() {
		return nil, &domain.ValidationError{Field: "trigger_time", Reason: "is required"}
	}

	var reminder *domain.Reminder
	err := rs.store.withTx(ctx, "reminder.update", func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getReminder(ctx, tx, id)
		if err != nil {
			return err
		}
		changes := map[string]any{}
		var sets []string
		var args []any
		if patch.TriggerTime.Set {
			sets = append(sets, "trigger_time = ?")
			args = append(args, db.FormatTime(patch.TriggerTime.Value))
			changes["trigger_time"] = db.FormatTime(patch.TriggerTime.Value)
		}
		if patch.Message.Set {
			sets = append(sets, "message = ?")
			args = append(args, nullString(patch.Message.Value))
			changes["message"] = patch.Message.Value
		}
		if err := applyUpdate(ctx, tx, "reminders", id, sets, args, rs.store.timestamp()); err != nil {
			return err
		}
		if reminder, err = getReminder(ctx, tx, id); err != nil {
			return err
		}
		return logAttachment(ctx, tx, ew, events.ActionUpdate, "reminder", id, current.Owner(), changes)
	})
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

// Archive soft-deletes a reminder.
func (rs *ReminderStore) Archive(ctx context.Context, id int64) (*domain.Reminder, error) {
	var reminder *domain.Reminder
	err := rs.store.withTx(ctx, "reminder.archive", func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getReminder(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.ArchivedAt != nil {
			reminder = current
			return nil
		}
		if err := archiveRow(ctx, tx, "reminders", id, rs.store.timestamp()); err != nil {
			return err
		}
		if reminder, err = getReminder(ctx, tx, id); err != nil {
			return err
		}
		return logAttachment(ctx, tx, ew, events.ActionArchive, "reminder", id, current.Owner(), nil)
	})
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

func applyUpdate(ctx context.Context, tx *sql.Tx, table string, id int64, sets []string, args []any, now time.Time) error {
	sets = append(sets, "updated_at = ?")
	args = append(args, db.FormatTime(now), id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s %d: %w", table, id, err)
	}
	return nil
}

func archiveRow(ctx context.Context, tx *sql.Tx, table string, id int64, now time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET archived_at = ? WHERE id = ?", table)
	if _, err := tx.ExecContext(ctx, query, db.FormatTime(now), id); err != nil {
		return fmt.Errorf("failed to archive %s %d: %w", table, id, err)
	}
	return nil
}

func logAttachment(ctx context.Context, tx *sql.Tx, ew *events.Writer, action, entity string, id int64, owner domain.OwnerRef, data any) error {
	wsID, err := workspaceOf(ctx, tx, owner)
	if err != nil {
		return err
	}
	if owner.Kind == domain.OwnerTask {
		if err := touchPlacement(ctx, tx, ew, owner.ID); err != nil {
			return err
		}
	}
	return ew.Log(ctx, tx, events.Entry{
		Action:      action,
		EntityType:  entity,
		EntityID:    id,
		Data:        data,
		WorkspaceID: wsID,
	})
}
