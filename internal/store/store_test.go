package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/logging"
	"github.com/lherron/clara/internal/testutil"
)

var testEpoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// setupTestStore creates a store over a migrated temp database with a
// deterministic clock.
func setupTestStore(t *testing.T) (*Store, *db.DB) {
	t.Helper()
	database, _ := testutil.TempDB(t)
	s := New(database, WithClock(testutil.Clock(testEpoch)), WithLogger(logging.Discard()))
	return s, database
}

func mustWorkspace(t *testing.T, s *Store, title string) *domain.Workspace {
	t.Helper()
	w, err := s.Workspaces.Create(context.Background(), CreateWorkspaceParams{Title: title})
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	return w
}

func mustProject(t *testing.T, s *Store, wsID int64, title string) *domain.Project {
	t.Helper()
	p, err := s.Projects.Create(context.Background(), CreateProjectParams{WorkspaceID: wsID, Title: title})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return p
}

func mustTask(t *testing.T, s *Store, params CreateTaskParams) *domain.Task {
	t.Helper()
	task, err := s.Tasks.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("failed to create task %q: %v", params.Title, err)
	}
	return task
}

func countActivity(t *testing.T, database *db.DB, entityType string, entityID int64, action string) int {
	t.Helper()
	var n int
	err := database.QueryRow(
		"SELECT COUNT(*) FROM activity_log WHERE entity_type = ? AND entity_id = ? AND action_type = ?",
		entityType, entityID, action,
	).Scan(&n)
	if err != nil {
		t.Fatalf("failed to count activity: %v", err)
	}
	return n
}

func totalActivity(t *testing.T, database *db.DB) int {
	t.Helper()
	var n int
	if err := database.QueryRow("SELECT COUNT(*) FROM activity_log").Scan(&n); err != nil {
		t.Fatalf("failed to count activity: %v", err)
	}
	return n
}

func ptr[T any](v T) *T {
	return &v
}

func TestWorkspaceStore_CRUD(t *testing.T) {
	s, database := setupTestStore(t)
	ctx := context.Background()

	w, err := s.Workspaces.Create(ctx, CreateWorkspaceParams{Title: "Home", Description: ptr("chores")})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "Home", w.Title)
	if w.Description == nil || *w.Description != "chores" {
		t.Errorf("expected description, got %v", w.Description)
	}
	testutil.AssertEqual(t, 1, countActivity(t, database, "workspace", w.ID, "create"))

	updated, err := s.Workspaces.Update(ctx, w.ID, domain.WorkspacePatch{Description: domain.Null[string]()})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "Home", updated.Title)
	if updated.Description != nil {
		t.Errorf("expected description cleared, got %v", *updated.Description)
	}
	if !updated.UpdatedAt.After(w.UpdatedAt) {
		t.Errorf("expected updated_at to advance: %v -> %v", w.UpdatedAt, updated.UpdatedAt)
	}

	archived, err := s.Workspaces.Archive(ctx, w.ID)
	testutil.AssertNoError(t, err)
	if archived.ArchivedAt == nil {
		t.Fatal("expected archived_at to be set")
	}

	list, err := s.Workspaces.List(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 0, len(list))

	// archived rows stay readable by id
	got, err := s.Workspaces.Get(ctx, w.ID)
	testutil.AssertNoError(t, err)
	if got.ArchivedAt == nil {
		t.Error("expected Get to return the archived workspace")
	}

	_, err = s.Workspaces.Get(ctx, 999)
	if !domain.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestWorkspaceStore_CreateRequiresTitle(t *testing.T) {
	s, database := setupTestStore(t)

	_, err := s.Workspaces.Create(context.Background(), CreateWorkspaceParams{Title: "  "})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	testutil.AssertEqual(t, 0, totalActivity(t, database))
}

func TestProjectStore_CRUD(t *testing.T) {
	s, database := setupTestStore(t)
	ctx := context.Background()
	w := mustWorkspace(t, s, "Work")
	other := mustWorkspace(t, s, "Other")

	alpha := mustProject(t, s, w.ID, "Alpha")
	beta := mustProject(t, s, w.ID, "Beta")
	mustProject(t, s, other.ID, "Elsewhere")

	list, err := s.Projects.ListByWorkspace(ctx, w.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 2, len(list))
	testutil.AssertEqual(t, alpha.ID, list[0].ID)
	testutil.AssertEqual(t, beta.ID, list[1].ID)

	renamed, err := s.Projects.Update(ctx, alpha.ID, domain.ProjectPatch{Title: domain.Some("Alpha 2")})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "Alpha 2", renamed.Title)
	testutil.AssertEqual(t, w.ID, renamed.WorkspaceID)

	_, err = s.Projects.Archive(ctx, beta.ID)
	testutil.AssertNoError(t, err)
	list, err = s.Projects.ListByWorkspace(ctx, w.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(list))

	testutil.AssertEqual(t, 1, countActivity(t, database, "project", alpha.ID, "update"))
	testutil.AssertEqual(t, 1, countActivity(t, database, "project", beta.ID, "archive"))
}

func TestProjectStore_CreateInMissingWorkspace(t *testing.T) {
	s, _ := setupTestStore(t)

	_, err := s.Projects.Create(context.Background(), CreateProjectParams{WorkspaceID: 42, Title: "Ghost"})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "workspace_id" {
		t.Fatalf("expected workspace_id ValidationError, got %v", err)
	}
}

func TestArchiveTwiceIsNoop(t *testing.T) {
	s, database := setupTestStore(t)
	ctx := context.Background()
	w := mustWorkspace(t, s, "Home")
	p := mustProject(t, s, w.ID, "Garden")

	first, err := s.Projects.Archive(ctx, p.ID)
	testutil.AssertNoError(t, err)
	second, err := s.Projects.Archive(ctx, p.ID)
	testutil.AssertNoError(t, err)

	if !first.ArchivedAt.Equal(*second.ArchivedAt) {
		t.Errorf("archived_at changed on second archive: %v -> %v", first.ArchivedAt, second.ArchivedAt)
	}
	testutil.AssertEqual(t, 1, countActivity(t, database, "project", p.ID, "archive"))
}

func TestCommitHookReceivesChange(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	var changes []Change
	s.OnCommit(func(_ context.Context, c Change) {
		changes = append(changes, c)
	})

	w := mustWorkspace(t, s, "Home")
	mustTask(t, s, CreateTaskParams{Title: "Dishes", WorkspaceID: w.ID})

	// failed mutations do not notify
	_, err := s.Tasks.Create(ctx, CreateTaskParams{Title: "Broken", WorkspaceID: w.ID, ParentTaskID: ptr(int64(999))})
	testutil.AssertError(t, err)

	testutil.AssertEqual(t, 2, len(changes))
	for _, c := range changes {
		if c.OpID == "" {
			t.Error("expected op id on change")
		}
		testutil.AssertIDs(t, []int64{w.ID}, c.Workspaces)
		testutil.AssertEqual(t, 1, len(c.Activities))
		testutil.AssertEqual(t, c.OpID, c.Activities[0].OpID)
	}
	if changes[0].OpID == changes[1].OpID {
		t.Error("expected a fresh op id per mutation")
	}
}

func TestMutationSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	s, _ := setupTestStore(t)
	ctx := context.Background()
	w := mustWorkspace(t, s, "Home")
	task := mustTask(t, s, CreateTaskParams{Title: "Root", WorkspaceID: w.ID})

	_, err := s.Tasks.Update(ctx, task.ID, domain.TaskPatch{ParentTaskID: domain.Some(&task.ID)})
	testutil.AssertError(t, err)

	spans := exporter.GetSpans()
	testutil.AssertEqual(t, 3, len(spans))
	testutil.AssertEqual(t, "store.workspace.create", spans[0].Name)
	testutil.AssertEqual(t, "store.task.create", spans[1].Name)
	testutil.AssertEqual(t, "store.task.update", spans[2].Name)
	testutil.AssertEqual(t, codes.Error, spans[2].Status.Code)
	testutil.AssertEqual(t, codes.Unset, spans[1].Status.Code)
}

func TestConcurrentCreatesGetDistinctOrderIndexes(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	w := mustWorkspace(t, s, "Busy")
	parent := mustTask(t, s, CreateTaskParams{Title: "Parent", WorkspaceID: w.ID})

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Tasks.Create(ctx, CreateTaskParams{Title: "child", WorkspaceID: w.ID, ParentTaskID: &parent.ID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		testutil.AssertNoError(t, err)
	}

	children, err := s.Tasks.Subtasks(ctx, parent.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, n, len(children))
	seen := map[int]bool{}
	for _, c := range children {
		if seen[c.OrderIndex] {
			t.Fatalf("duplicate order index %d", c.OrderIndex)
		}
		seen[c.OrderIndex] = true
	}
	for i := 1; i <= n; i++ {
		if !seen[i] {
			t.Errorf("missing order index %d", i)
		}
	}
}

// Two stores over separate handles stand in for two clara processes: the
// in-process write lock does not cover them, the database lock must.
func TestConcurrentCreatesAcrossStores(t *testing.T) {
	database, path := testutil.TempDB(t)
	second, err := db.Open(path)
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { second.Close() })

	a := New(database, WithLogger(logging.Discard()))
	b := New(second, WithLogger(logging.Discard()))
	ctx := context.Background()
	w := mustWorkspace(t, a, "Shared")

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		for _, s := range []*Store{a, b} {
			wg.Add(1)
			go func(s *Store) {
				defer wg.Done()
				_, err := s.Tasks.Create(ctx, CreateTaskParams{Title: "root", WorkspaceID: w.ID})
				errs <- err
			}(s)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		testutil.AssertNoError(t, err)
	}

	roots, err := a.Tasks.ListByWorkspace(ctx, w.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 2*n, len(roots))
	seen := map[int]bool{}
	for _, r := range roots {
		if seen[r.OrderIndex] {
			t.Fatalf("duplicate order index %d", r.OrderIndex)
		}
		seen[r.OrderIndex] = true
	}
}
