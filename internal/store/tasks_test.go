package store

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/events"
	"github.com/lherron/clara/internal/testutil"
)

func TestTaskStore_CreateAppendsInScope(t *testing.T) {
	s, database := setupTestStore(t)
	w := mustWorkspace(t, s, "Home")
	p := mustProject(t, s, w.ID, "Garden")

	first := mustTask(t, s, CreateTaskParams{Title: "First", WorkspaceID: w.ID})
	second := mustTask(t, s, CreateTaskParams{Title: "Second", WorkspaceID: w.ID, ProjectID: &p.ID})
	child := mustTask(t, s, CreateTaskParams{Title: "Child", WorkspaceID: w.ID, ParentTaskID: &first.ID})
	sibling := mustTask(t, s, CreateTaskParams{Title: "Sibling", WorkspaceID: w.ID, ParentTaskID: &first.ID})

	// project roots share the workspace-root sequence
	testutil.AssertEqual(t, 1, first.OrderIndex)
	testutil.AssertEqual(t, 2, second.OrderIndex)
	testutil.AssertEqual(t, 1, child.OrderIndex)
	testutil.AssertEqual(t, 2, sibling.OrderIndex)

	testutil.AssertEqual(t, domain.TaskStatusTodo, first.Status)
	if first.ProjectID != nil || first.ParentTaskID != nil {
		t.Errorf("expected a workspace-root task, got %+v", first)
	}
	if second.ProjectID == nil || *second.ProjectID != p.ID {
		t.Errorf("expected project %d, got %v", p.ID, second.ProjectID)
	}

	for _, task := range []*domain.Task{first, second, child, sibling} {
		testutil.AssertEqual(t, 1, countActivity(t, database, "task", task.ID, "create"))
	}
}

func TestTaskStore_CreateIgnoresArchivedSiblings(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	w := mustWorkspace(t, s, "Home")

	a := mustTask(t, s, CreateTaskParams{Title: "A", WorkspaceID: w.ID})
	b := mustTask(t, s, CreateTaskParams{Title: "B", WorkspaceID: w.ID})
	_, err := s.Tasks.Archive(ctx, b.ID)
	testutil.AssertNoError(t, err)

	c := mustTask(t, s, CreateTaskParams{Title: "C", WorkspaceID: w.ID})
	testutil.AssertEqual(t, a.OrderIndex+1, c.OrderIndex)
}

func TestTaskStore_CreateValidation(t *testing.T) {
	s, database := setupTestStore(t)
	ctx := context.Background()
	w := mustWorkspace(t, s, "Home")

	tests := []struct {
		name      string
		params    CreateTaskParams
		wantField string
	}{
		{name: "missing title", params: CreateTaskParams{WorkspaceID: w.ID}, wantField: "title"},
		{name: "missing workspace", params: CreateTaskParams{Title: "x"}, wantField: "workspace_id"},
		{name: "unknown workspace", params: CreateTaskParams{Title: "x", WorkspaceID: 99}, wantField: "workspace_id"},
		{name: "unknown parent", params: CreateTaskParams{Title: "x", WorkspaceID: w.ID, ParentTaskID: ptr(int64(99))}, wantField: "parent_task_id"},
		{name: "unknown project", params: CreateTaskParams{Title: "x", WorkspaceID: w.ID, ProjectID: ptr(int64(99))}, wantField: "project_id"},
		{name: "bad status", params: CreateTaskParams{Title: "x", WorkspaceID: w.ID, Status: "blocked"}, wantField: "status"},
	}

	before := totalActivity(t, database)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Tasks.Create(ctx, tt.params)
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			testutil.AssertEqual(t, tt.wantField, vErr.Field)
		})
	}
	testutil.AssertEqual(t, before, totalActivity(t, database))
}

func TestTaskStore_CreateUnderArchivedParent(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	w := mustWorkspace(t, s, "Home")
	parent := mustTask(t, s, CreateTaskParams{Title: "Parent", WorkspaceID: w.ID})
	_, err := s.Tasks.Archive(ctx, parent.ID)
	testutil.AssertNoError(t, err)

	// parent existence is the only check
	child, err := s.Tasks.Create(ctx, CreateTaskParams{Title: "Child", WorkspaceID: w.ID, ParentTaskID: &parent.ID})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, child.OrderIndex)
}

func TestTaskStore_GetAndLists(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	w := mustWorkspace(t, s, "Home")
	p := mustProject(t, s, w.ID, "Garden")

	root := mustTask(t, s, CreateTaskParams{Title: "Root", WorkspaceID: w.ID, ProjectID: &p.ID})
	sub := mustTask(t, s, CreateTaskParams{Title: "Sub", WorkspaceID: w.ID, ProjectID: &p.ID, ParentTaskID: &root.ID})
	loose := mustTask(t, s, CreateTaskParams{Title: "Loose", WorkspaceID: w.ID})
	gone := mustTask(t, s, CreateTaskParams{Title: "Gone", WorkspaceID: w.ID})
	_, err := s.Tasks.Archive(ctx, gone.ID)
	testutil.AssertNoError(t, err)

	got, err := s.Tasks.Get(ctx, sub.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "Sub", got.Title)
	if got.ParentTaskID == nil || *got.ParentTaskID != root.ID {
		t.Errorf("expected parent %d, got %v", root.ID, got.ParentTaskID)
	}

	_, err = s.Tasks.Get(ctx, 12345)
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "task" {
		t.Errorf("expected task NotFoundError, got %v", err)
	}

	byWorkspace, err := s.Tasks.ListByWorkspace(ctx, w.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 3, len(byWorkspace))

	byProject, err := s.Tasks.ListByProject(ctx, p.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 2, len(byProject))

	subtasks, err := s.Tasks.Subtasks(ctx, root.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(subtasks))
	testutil.AssertEqual(t, sub.ID, subtasks[0].ID)

	none, err := s.Tasks.Subtasks(ctx, loose.ID)
	testutil.AssertNoError(t, err)
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil list, got %v", none)
	}
}

func TestTaskStore_UpdatePatchSemantics(t *testing.T) {
	s, database := setupTestStore(t)
	ctx := context.Background()
	w := mustWorkspace(t, s, "Home")
	p := mustProject(t, s, w.ID, "Garden")
	due := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	task := mustTask(t, s, CreateTaskParams{Title: "Plant", WorkspaceID: w.ID, ProjectID: &p.ID, DueDate: &due})

	updated, err := s.Tasks.Update(ctx, task.ID, domain.TaskPatch{
		Status:    domain.Some(domain.TaskStatusInProgress),
		ProjectID: domain.Null[int64](),
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, domain.TaskStatusInProgress, updated.Status)
	testutil.AssertEqual(t, "Plant", updated.Title)
	if updated.ProjectID != nil {
		t.Errorf("expected project cleared, got %v", *updated.ProjectID)
	}
	if updated.DueDate == nil || !updated.DueDate.Equal(due) {
		t.Errorf("expected due date untouched, got %v", updated.DueDate)
	}
	if !updated.UpdatedAt.After(task.UpdatedAt) {
		t.Errorf("expected updated_at to advance")
	}

	activity, err := events.List(ctx, database, events.Filter{EntityType: "task", EntityID: task.ID})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 2, len(activity))
	testutil.AssertEqual(t, "update", activity[0].ActionType)
	var data map[string]any
	testutil.AssertNoError(t, json.Unmarshal([]byte(activity[0].Data), &data))
	testutil.AssertEqual(t, "in-progress", data["status"])
	if v, ok := data["project_id"]; !ok || v != nil {
		t.Errorf("expected project_id null in activity data, got %v", data)
	}
	if _, ok := data["title"]; ok {
		t.Errorf("absent fields must not be recorded, got %v", data)
	}
}

func TestTaskStore_UpdateRejectsBadStatus(t *testing.T) {
	s, _ := setupTestStore(t)
	w := mustWorkspace(t, s, "Home")
	task := mustTask(t, s, CreateTaskParams{Title: "Plant", WorkspaceID: w.ID})

	_, err := s.Tasks.Update(context.Background(), task.ID, domain.TaskPatch{Status: domain.Some(domain.TaskStatus("later"))})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestTaskStore_UpdateMissingTask(t *testing.T) {
	s, _ := setupTestStore(t)

	_, err := s.Tasks.Update(context.Background(), 7, domain.TaskPatch{Title: domain.Some("x")})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestTaskStore_UpdateSelfParent(t *testing.T) {
	s, database := setupTestStore(t)
	w := mustWorkspace(t, s, "Home")
	task := mustTask(t, s, CreateTaskParams{Title: "Loop", WorkspaceID: w.ID})

	_, err := s.Tasks.Update(context.Background(), task.ID, domain.TaskPatch{
		Title:        domain.Some("renamed"),
		ParentTaskID: domain.Some(&task.ID),
	})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	testutil.AssertStringContains(t, vErr.Reason, "cannot be its own parent")

	got, err := s.Tasks.Get(context.Background(), task.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "Loop", got.Title)
	testutil.AssertEqual(t, 0, countActivity(t, database, "task", task.ID, "update"))
}

func TestTaskStore_UpdateRejectsCycle(t *testing.T) {
	s, database := setupTestStore(t)
	ctx := context.Background()
	w := mustWorkspace(t, s, "Home")

	// A -> B -> C
	a := mustTask(t, s, CreateTaskParams{Title: "A", WorkspaceID: w.ID})
	b := mustTask(t, s, CreateTaskParams{Title: "B", WorkspaceID: w.ID, ParentTaskID: &a.ID})
	c := mustTask(t, s, CreateTaskParams{Title: "C", WorkspaceID: w.ID, ParentTaskID: &b.ID})

	_, err := s.Tasks.Update(ctx, a.ID, domain.TaskPatch{ParentTaskID: domain.Some(&c.ID)})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(vErr.Error(), "would create a circular dependency") {
		t.Errorf("unexpected reason: %v", vErr)
	}

	got, err := s.Tasks.Get(ctx, a.ID)
	testutil.AssertNoError(t, err)
	if got.ParentTaskID != nil {
		t.Errorf("expected A to stay a root, got parent %d", *got.ParentTaskID)
	}
	testutil.AssertEqual(t, 0, countActivity(t, database, "task", a.ID, "update"))

	// moving C under A is fine, and so is detaching B
	moved, err := s.Tasks.Update(ctx, c.ID, domain.TaskPatch{ParentTaskID: domain.Some(&a.ID)})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, a.ID, *moved.ParentTaskID)

	detached, err := s.Tasks.Update(ctx, b.ID, domain.TaskPatch{ParentTaskID: domain.Null[int64]()})
	testutil.AssertNoError(t, err)
	if detached.ParentTaskID != nil {
		t.Errorf("expected B detached, got parent %v", *detached.ParentTaskID)
	}
}

func TestTaskStore_UpdateToMissingParent(t *testing.T) {
	s, _ := setupTestStore(t)
	w := mustWorkspace(t, s, "Home")
	task := mustTask(t, s, CreateTaskParams{Title: "Orphan", WorkspaceID: w.ID})

	_, err := s.Tasks.Update(context.Background(), task.ID, domain.TaskPatch{ParentTaskID: domain.Some(ptr(int64(500)))})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "parent_task_id" {
		t.Fatalf("expected parent_task_id ValidationError, got %v", err)
	}
}

func TestTaskStore_Complete(t *testing.T) {
	s, database := setupTestStore(t)
	w := mustWorkspace(t, s, "Home")
	task := mustTask(t, s, CreateTaskParams{Title: "Laundry", WorkspaceID: w.ID})

	done, err := s.Tasks.Complete(context.Background(), task.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, domain.TaskStatusDone, done.Status)
	if !done.UpdatedAt.After(task.UpdatedAt) {
		t.Error("expected updated_at to advance")
	}
	testutil.AssertEqual(t, 1, countActivity(t, database, "task", task.ID, "complete"))

	_, err = s.Tasks.Complete(context.Background(), 404)
	if !domain.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestTaskStore_ArchiveDoesNotCascade(t *testing.T) {
	s, database := setupTestStore(t)
	ctx := context.Background()
	w := mustWorkspace(t, s, "Home")
	parent := mustTask(t, s, CreateTaskParams{Title: "Parent", WorkspaceID: w.ID})
	child := mustTask(t, s, CreateTaskParams{Title: "Child", WorkspaceID: w.ID, ParentTaskID: &parent.ID})

	archived, err := s.Tasks.Archive(ctx, parent.ID)
	testutil.AssertNoError(t, err)
	if !archived.IsArchived() {
		t.Fatal("expected parent archived")
	}
	testutil.AssertEqual(t, 1, countActivity(t, database, "task", parent.ID, "archive"))

	got, err := s.Tasks.Get(ctx, child.ID)
	testutil.AssertNoError(t, err)
	if got.IsArchived() {
		t.Error("child must not be archived with its parent")
	}

	subtasks, err := s.Tasks.Subtasks(ctx, parent.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(subtasks))
}

// A task whose ancestors or project sit in other workspaces shows up in
// those workspaces' snapshots, so every mutation of it must report them.
func TestTaskMutationsReportEveryPlacement(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	a := mustWorkspace(t, s, "A")
	b := mustWorkspace(t, s, "B")
	c := mustWorkspace(t, s, "C")
	d := mustWorkspace(t, s, "D")
	grandparent := mustTask(t, s, CreateTaskParams{Title: "GP", WorkspaceID: c.ID})
	parent := mustTask(t, s, CreateTaskParams{Title: "P", WorkspaceID: b.ID, ParentTaskID: &grandparent.ID})
	project := mustProject(t, s, d.ID, "Elsewhere")

	var got [][]int64
	s.OnCommit(func(_ context.Context, change Change) {
		ws := slices.Clone(change.Workspaces)
		slices.Sort(ws)
		got = append(got, ws)
	})

	task := mustTask(t, s, CreateTaskParams{Title: "T", WorkspaceID: a.ID, ParentTaskID: &parent.ID, ProjectID: &project.ID})
	_, err := s.Tasks.Update(ctx, task.ID, domain.TaskPatch{Title: domain.Some("Renamed")})
	testutil.AssertNoError(t, err)
	_, err = s.Tasks.Complete(ctx, task.ID)
	testutil.AssertNoError(t, err)
	_, err = s.Notes.Create(ctx, CreateNoteParams{Content: "n", Owner: domain.TaskOwner(task.ID)})
	testutil.AssertNoError(t, err)
	_, err = s.Tasks.Archive(ctx, task.ID)
	testutil.AssertNoError(t, err)

	want := []int64{a.ID, b.ID, c.ID, d.ID}
	testutil.AssertEqual(t, 5, len(got))
	for i, ws := range got {
		if !slices.Equal(want, ws) {
			t.Errorf("mutation %d touched %v, want %v", i, ws, want)
		}
	}

	// moving out of the chain still reports the old placement
	other := mustTask(t, s, CreateTaskParams{Title: "O", WorkspaceID: a.ID, ParentTaskID: &parent.ID})
	got = nil
	_, err = s.Tasks.Update(ctx, other.ID, domain.TaskPatch{ParentTaskID: domain.Some[*int64](nil)})
	testutil.AssertNoError(t, err)
	testutil.AssertIDs(t, []int64{a.ID, b.ID, c.ID}, got[0])
}
