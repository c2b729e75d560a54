// Package store provides the persistence layer for workspaces, projects,
// tasks, attachments and tags. Every mutation runs in one transaction that
// also writes its activity entries, and writers are serialized so that
// read-check-write sequences (order computation, cycle checks) never
// interleave.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/events"
)

const tracerName = "github.com/lherron/clara/internal/store"

// Change describes one committed unit of work
type Change struct {
	OpID       string
	Activities []domain.Activity
	// Workspaces lists the workspaces whose snapshot may have changed
	Workspaces []int64
}

// CommitHook is called after a mutation commits. It runs synchronously on
// the caller's goroutine, outside the write lock.
type CommitHook func(ctx context.Context, change Change)

// Store is the root store that provides access to domain-specific stores.
type Store struct {
	db     *db.DB
	now    func() time.Time
	logger log.FieldLogger

	writeMu sync.Mutex

	hooksMu sync.RWMutex
	hooks   []CommitHook

	Workspaces     *WorkspaceStore
	Projects       *ProjectStore
	Tasks          *TaskStore
	Notes          *NoteStore
	CalendarEvents *CalendarEventStore
	Reminders      *ReminderStore
	Tags           *TagStore
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger overrides the logger (defaults to the logrus standard logger)
func WithLogger(logger log.FieldLogger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a new Store wrapping the given database connection.
func New(database *db.DB, opts ...Option) *Store {
	s := &Store{
		db:     database,
		now:    time.Now,
		logger: log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Workspaces = &WorkspaceStore{store: s}
	s.Projects = &ProjectStore{store: s}
	s.Tasks = &TaskStore{store: s}
	s.Notes = &NoteStore{store: s}
	s.CalendarEvents = &CalendarEventStore{store: s}
	s.Reminders = &ReminderStore{store: s}
	s.Tags = &TagStore{store: s}
	return s
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// OnCommit registers a hook that runs after every successful mutation
func (s *Store) OnCommit(hook CommitHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, hook)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// withTx executes fn within a write transaction. If fn returns nil, the
// transaction is committed and commit hooks run; otherwise it is rolled back.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx, ew *events.Writer) error) error {
	opID := uuid.NewString()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "store."+op,
		trace.WithAttributes(attribute.String("clara.op_id", opID)),
	)
	defer span.End()

	ew := events.NewWriter(opID, s.timestamp)

	err := s.commit(ctx, ew, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return err
	}

	written := ew.Written()
	span.SetAttributes(attribute.Int("clara.activities", len(written)))
	for _, a := range written {
		s.logger.WithFields(log.Fields{
			"op_id":  opID,
			"action": a.ActionType,
			"entity": a.EntityType,
			"id":     a.EntityID,
		}).Debug("mutation committed")
	}

	s.notify(ctx, Change{OpID: opID, Activities: written, Workspaces: ew.Workspaces()})
	return nil
}

func (s *Store) commit(ctx context.Context, ew *events.Writer, fn func(tx *sql.Tx, ew *events.Writer) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// BEGIN IMMEDIATE (see db.Open) so other processes wait here rather
	// than failing on a lock upgrade mid-transaction
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx, ew); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) notify(ctx context.Context, change Change) {
	s.hooksMu.RLock()
	hooks := make([]CommitHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.hooksMu.RUnlock()

	for _, hook := range hooks {
		hook(ctx, change)
	}
}

// ReadTx runs fn inside a query-only transaction without taking the write
// lock. Readers see a consistent view of committed data.
func (s *Store) ReadTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginRead(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// exists reports whether a row with id exists in table, archived or not
func exists(ctx context.Context, q db.Querier, table string, id int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", table), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check %s %d: %w", table, id, err)
	}
	return n > 0, nil
}

// workspaceOf resolves the workspace an owner belongs to. It returns 0 when
// the owner does not exist.
func workspaceOf(ctx context.Context, q db.Querier, owner domain.OwnerRef) (int64, error) {
	var query string
	switch owner.Kind {
	case domain.OwnerWorkspace:
		query = "SELECT id FROM workspaces WHERE id = ?"
	case domain.OwnerProject:
		query = "SELECT workspace_id FROM projects WHERE id = ?"
	case domain.OwnerTask:
		query = "SELECT workspace_id FROM tasks WHERE id = ?"
	default:
		return 0, owner.Validate()
	}

	var wsID int64
	err := q.QueryRowContext(ctx, query, owner.ID).Scan(&wsID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve workspace of %s: %w", owner, err)
	}
	return wsID, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
