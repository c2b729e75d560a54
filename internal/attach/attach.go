// Package attach resolves the notes, calendar events and reminders attached
// to a workspace, project or task.
package attach

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/domain"
)

// Attachments groups the live attachments of one owner. Lists are never nil.
type Attachments struct {
	Notes          []domain.Note          `json:"notes"`
	CalendarEvents []domain.CalendarEvent `json:"calendar_events"`
	Reminders      []domain.Reminder      `json:"reminders"`
}

// Empty returns an Attachments value with empty, non-nil lists
func Empty() Attachments {
	return Attachments{
		Notes:          []domain.Note{},
		CalendarEvents: []domain.CalendarEvent{},
		Reminders:      []domain.Reminder{},
	}
}

// Resolver looks attachments up by owner. It keeps no cache: every call
// reads the current rows.
type Resolver struct {
	q db.Querier
}

// NewResolver creates a resolver reading through q, typically the read
// transaction of a snapshot build.
func NewResolver(q db.Querier) *Resolver {
	return &Resolver{q: q}
}

// For returns the live notes, calendar events and reminders of owner, each
// list in insertion order. An owner that does not exist has no attachments.
func (r *Resolver) For(ctx context.Context, owner domain.OwnerRef) (Attachments, error) {
	if err := owner.Validate(); err != nil {
		return Attachments{}, err
	}

	notes, err := Notes(ctx, r.q, owner)
	if err != nil {
		return Attachments{}, err
	}
	calendarEvents, err := CalendarEvents(ctx, r.q, owner)
	if err != nil {
		return Attachments{}, err
	}
	reminders, err := Reminders(ctx, r.q, owner)
	if err != nil {
		return Attachments{}, err
	}
	return Attachments{Notes: notes, CalendarEvents: calendarEvents, Reminders: reminders}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// NoteColumns is the column list ScanNote expects
const NoteColumns = "id, content, attached_to_type, attached_to_id, created_at, updated_at, archived_at"

// ScanNote reads one note row. sql.ErrNoRows is returned unwrapped.
func ScanNote(r rowScanner) (*domain.Note, error) {
	var n domain.Note
	var kind, createdAt, updatedAt string
	var archivedAt sql.NullString
	if err := r.Scan(&n.ID, &n.Content, &kind, &n.AttachedToID, &createdAt, &updatedAt, &archivedAt); err != nil {
		return nil, err
	}
	n.AttachedToType = domain.OwnerKind(kind)
	var err error
	if n.CreatedAt, n.UpdatedAt, n.ArchivedAt, err = parseStamps(createdAt, updatedAt, archivedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// Notes returns the live notes of owner in id order
func Notes(ctx context.Context, q db.Querier, owner domain.OwnerRef) ([]domain.Note, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+NoteColumns+` FROM notes
		WHERE attached_to_type = ? AND attached_to_id = ? AND archived_at IS NULL ORDER BY id`,
		string(owner.Kind), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes of %s: %w", owner, err)
	}
	defer rows.Close()

	out := []domain.Note{}
	for rows.Next() {
		n, err := ScanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// CalendarEventColumns is the column list ScanCalendarEvent expects
const CalendarEventColumns = "id, title, start_time, end_time, linked_to_type, linked_to_id, created_at, updated_at, archived_at"

// ScanCalendarEvent reads one calendar event row. sql.ErrNoRows is returned unwrapped.
func ScanCalendarEvent(r rowScanner) (*domain.CalendarEvent, error) {
	var e domain.CalendarEvent
	var start, end, kind, createdAt, updatedAt string
	var archivedAt sql.NullString
	if err := r.Scan(&e.ID, &e.Title, &start, &end, &kind, &e.LinkedToID, &createdAt, &updatedAt, &archivedAt); err != nil {
		return nil, err
	}
	e.LinkedToType = domain.OwnerKind(kind)
	var err error
	if e.StartTime, err = db.ParseTime(start); err != nil {
		return nil, err
	}
	if e.EndTime, err = db.ParseTime(end); err != nil {
		return nil, err
	}
	if e.CreatedAt, e.UpdatedAt, e.ArchivedAt, err = parseStamps(createdAt, updatedAt, archivedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// CalendarEvents returns the live calendar events of owner in id order
func CalendarEvents(ctx context.Context, q db.Querier, owner domain.OwnerRef) ([]domain.CalendarEvent, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+CalendarEventColumns+` FROM calendar_events
		WHERE linked_to_type = ? AND linked_to_id = ? AND archived_at IS NULL ORDER BY id`,
		string(owner.Kind), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar events of %s: %w", owner, err)
	}
	defer rows.Close()

	out := []domain.CalendarEvent{}
	for rows.Next() {
		e, err := ScanCalendarEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calendar event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// ReminderColumns is the column list ScanReminder expects
const ReminderColumns = "id, trigger_time, message, linked_to_type, linked_to_id, created_at, updated_at, archived_at"

// ScanReminder reads one reminder row. sql.ErrNoRows is returned unwrapped.
func ScanReminder(r rowScanner) (*domain.Reminder, error) {
	var rem domain.Reminder
	var trigger, kind, createdAt, updatedAt string
	var message, archivedAt sql.NullString
	if err := r.Scan(&rem.ID, &trigger, &message, &kind, &rem.LinkedToID, &createdAt, &updatedAt, &archivedAt); err != nil {
		return nil, err
	}
	rem.LinkedToType = domain.OwnerKind(kind)
	if message.Valid {
		m := message.String
		rem.Message = &m
	}
	var err error
	if rem.TriggerTime, err = db.ParseTime(trigger); err != nil {
		return nil, err
	}
	if rem.CreatedAt, rem.UpdatedAt, rem.ArchivedAt, err = parseStamps(createdAt, updatedAt, archivedAt); err != nil {
		return nil, err
	}
	return &rem, nil
}

// Reminders returns the live reminders of owner in id order
func Reminders(ctx context.Context, q db.Querier, owner domain.OwnerRef) ([]domain.Reminder, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+ReminderColumns+` FROM reminders
		WHERE linked_to_type = ? AND linked_to_id = ? AND archived_at IS NULL ORDER BY id`,
		string(owner.Kind), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders of %s: %w", owner, err)
	}
	defer rows.Close()

	out := []domain.Reminder{}
	for rows.Next() {
		rem, err := ScanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		out = append(out, *rem)
	}
	return out, rows.Err()
}

func parseStamps(createdAt, updatedAt string, archivedAt sql.NullString) (created, updated time.Time, archived *time.Time, err error) {
	if created, err = db.ParseTime(createdAt); err != nil {
		return
	}
	if updated, err = db.ParseTime(updatedAt); err != nil {
		return
	}
	archived, err = db.ParseNullTime(archivedAt)
	return
}
