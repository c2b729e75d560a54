package snapshot

import (
	"context"
	"database/sql"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lherron/clara/internal/attach"
	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/hierarchy"
	"github.com/lherron/clara/internal/store"
)

const tracerName = "github.com/lherron/clara/internal/snapshot"

// Builder assembles snapshots from the store. Every build reads inside one
// read transaction and takes no write lock, so builds run concurrently with
// each other and see a consistent view.
type Builder struct {
	store  *store.Store
	logger log.FieldLogger
}

// Option configures a Builder
type Option func(*Builder)

// WithLogger sets the logger used for cycle warnings
func WithLogger(logger log.FieldLogger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a snapshot builder over s
func NewBuilder(s *store.Store, opts ...Option) *Builder {
	b := &Builder{store: s, logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Workspace builds the snapshot of one live workspace. A missing or archived
// workspace is a NotFoundError.
func (b *Builder) Workspace(ctx context.Context, id int64) (*WorkspaceSnapshot, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "snapshot.workspace",
		trace.WithAttributes(attribute.Int64("clara.workspace_id", id)))
	defer span.End()

	var snap WorkspaceSnapshot
	err := b.store.ReadTx(ctx, func(tx *sql.Tx) error {
		w, err := store.LoadWorkspace(ctx, tx, id)
		if err != nil {
			return err
		}
		if w.ArchivedAt != nil {
			return &domain.NotFoundError{Entity: "workspace", ID: id}
		}
		snap, err = b.workspace(ctx, tx, w)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &snap, nil
}

// AllWorkspaces builds the snapshot of every live workspace in id order. The
// result is empty, not nil, when there are none.
func (b *Builder) AllWorkspaces(ctx context.Context) ([]WorkspaceSnapshot, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "snapshot.all")
	defer span.End()

	out := []WorkspaceSnapshot{}
	err := b.store.ReadTx(ctx, func(tx *sql.Tx) error {
		workspaces, err := store.LiveWorkspaces(ctx, tx)
		if err != nil {
			return err
		}
		for _, w := range workspaces {
			snap, err := b.workspace(ctx, tx, w)
			if err != nil {
				return err
			}
			out = append(out, snap)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("clara.workspaces", len(out)))
	return out, nil
}

func (b *Builder) workspace(ctx context.Context, q db.Querier, w *domain.Workspace) (WorkspaceSnapshot, error) {
	index, err := hierarchy.Load(ctx, q, w.ID)
	if err != nil {
		return WorkspaceSnapshot{}, err
	}
	projects, err := store.LiveProjects(ctx, q, w.ID)
	if err != nil {
		return WorkspaceSnapshot{}, err
	}
	return b.assemble(ctx, attach.NewResolver(q), w, projects, index)
}

// assemble builds the nested document from loaded rows. Project trees start
// at the parentless tasks of each project; the workspace's own tree list
// starts at its parentless tasks without a project.
func (b *Builder) assemble(ctx context.Context, r *attach.Resolver, w *domain.Workspace, projects []*domain.Project, index *hierarchy.Index) (WorkspaceSnapshot, error) {
	tb := &treeBuilder{
		ctx:      ctx,
		resolver: r,
		index:    index,
		logger:   b.logger.WithField("workspace_id", w.ID),
	}

	snap := workspaceNode(w)
	var err error
	if snap.Attachments, err = r.For(ctx, domain.WorkspaceOwner(w.ID)); err != nil {
		return WorkspaceSnapshot{}, err
	}

	for _, p := range projects {
		ps := projectNode(p)
		if ps.Attachments, err = r.For(ctx, domain.ProjectOwner(p.ID)); err != nil {
			return WorkspaceSnapshot{}, err
		}
		for _, id := range index.Roots() {
			t, _ := index.Task(id)
			if t.ProjectID == nil || *t.ProjectID != p.ID {
				continue
			}
			node, err := tb.task(id, nil)
			if err != nil {
				return WorkspaceSnapshot{}, err
			}
			ps.Tasks = append(ps.Tasks, node)
		}
		snap.Projects = append(snap.Projects, ps)
	}

	for _, id := range index.Roots() {
		t, _ := index.Task(id)
		if t.ProjectID != nil || t.WorkspaceID != w.ID {
			continue
		}
		node, err := tb.task(id, nil)
		if err != nil {
			return WorkspaceSnapshot{}, err
		}
		snap.Tasks = append(snap.Tasks, node)
	}

	return snap, nil
}

type treeBuilder struct {
	ctx      context.Context
	resolver *attach.Resolver
	index    *hierarchy.Index
	logger   log.FieldLogger
}

// task expands id depth first. visited holds the ids on the path from the
// root; each child gets its own copy, so a task may legitimately appear on
// two branches but never twice on one.
func (tb *treeBuilder) task(id int64, visited map[int64]bool) (TaskSnapshot, error) {
	t, _ := tb.index.Task(id)

	if visited[id] {
		tb.logger.WithField("task_id", id).Warn("Circular dependency detected in task hierarchy")
		trace.SpanFromContext(tb.ctx).AddEvent("circular dependency",
			trace.WithAttributes(attribute.Int64("clara.task_id", id)))
		node := taskNode(t)
		node.Title += CircularSuffix
		return node, nil
	}

	branch := make(map[int64]bool, len(visited)+1)
	for k := range visited {
		branch[k] = true
	}
	branch[id] = true

	node := taskNode(t)
	var err error
	if node.Attachments, err = tb.resolver.For(tb.ctx, domain.TaskOwner(id)); err != nil {
		return TaskSnapshot{}, err
	}
	for _, child := range tb.index.Children(id) {
		sub, err := tb.task(child, branch)
		if err != nil {
			return TaskSnapshot{}, err
		}
		node.Subtasks = append(node.Subtasks, sub)
	}
	return node, nil
}
