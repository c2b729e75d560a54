package hierarchy_test

import (
	"context"
	"testing"
	"time"

	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/hierarchy"
	"github.com/lherron/clara/internal/logging"
	"github.com/lherron/clara/internal/store"
	"github.com/lherron/clara/internal/testutil"
)

func task(id int64, parent *int64, order int) *domain.Task {
	return &domain.Task{ID: id, ParentTaskID: parent, OrderIndex: order, Title: "t"}
}

func TestIndex_AddKeepsSiblingOrder(t *testing.T) {
	root := int64(1)
	ix := hierarchy.NewIndex()
	ix.Add(task(1, nil, 1))
	ix.Add(task(5, &root, 2))
	ix.Add(task(3, &root, 2))
	ix.Add(task(4, &root, 0))
	ix.Add(task(2, nil, 0))

	testutil.AssertIDs(t, []int64{2, 1}, ix.Roots())
	// ties on order_index fall back to id
	testutil.AssertIDs(t, []int64{4, 3, 5}, ix.Children(1))
	testutil.AssertEqual(t, 0, len(ix.Children(4)))
	testutil.AssertEqual(t, 5, ix.Len())

	got, ok := ix.Task(3)
	if !ok || got.ID != 3 {
		t.Fatalf("Task(3) = %v, %v", got, ok)
	}
	if _, ok := ix.Task(99); ok {
		t.Error("expected unknown id to be absent")
	}
}

func TestLoad(t *testing.T) {
	database, _ := testutil.TempDB(t)
	s := store.New(database, store.WithClock(testutil.Clock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))),
		store.WithLogger(logging.Discard()))
	ctx := context.Background()

	w, err := s.Workspaces.Create(ctx, store.CreateWorkspaceParams{Title: "Home"})
	testutil.AssertNoError(t, err)
	other, err := s.Workspaces.Create(ctx, store.CreateWorkspaceParams{Title: "Other"})
	testutil.AssertNoError(t, err)
	live, err := s.Projects.Create(ctx, store.CreateProjectParams{WorkspaceID: w.ID, Title: "Live"})
	testutil.AssertNoError(t, err)
	shelved, err := s.Projects.Create(ctx, store.CreateProjectParams{WorkspaceID: w.ID, Title: "Shelved"})
	testutil.AssertNoError(t, err)

	create := func(p store.CreateTaskParams) *domain.Task {
		t.Helper()
		task, err := s.Tasks.Create(ctx, p)
		testutil.AssertNoError(t, err)
		return task
	}

	loose := create(store.CreateTaskParams{Title: "loose", WorkspaceID: w.ID})
	planned := create(store.CreateTaskParams{Title: "planned", WorkspaceID: w.ID, ProjectID: &live.ID})
	deep := create(store.CreateTaskParams{Title: "deep", WorkspaceID: w.ID, ParentTaskID: &planned.ID})
	deeper := create(store.CreateTaskParams{Title: "deeper", WorkspaceID: w.ID, ParentTaskID: &deep.ID})
	archived := create(store.CreateTaskParams{Title: "archived", WorkspaceID: w.ID, ParentTaskID: &loose.ID})
	create(store.CreateTaskParams{Title: "elsewhere", WorkspaceID: other.ID})

	_, err = s.Tasks.Archive(ctx, archived.ID)
	testutil.AssertNoError(t, err)
	_, err = s.Projects.Archive(ctx, shelved.ID)
	testutil.AssertNoError(t, err)

	ix, err := hierarchy.Load(ctx, database, w.ID)
	testutil.AssertNoError(t, err)

	testutil.AssertIDs(t, []int64{loose.ID, planned.ID}, ix.Roots())
	testutil.AssertIDs(t, []int64{deep.ID}, ix.Children(planned.ID))
	testutil.AssertIDs(t, []int64{deeper.ID}, ix.Children(deep.ID))
	testutil.AssertEqual(t, 0, len(ix.Children(loose.ID)))
	testutil.AssertEqual(t, 4, ix.Len())
}

func TestLoadEmptyWorkspace(t *testing.T) {
	database, _ := testutil.TempDB(t)

	ix, err := hierarchy.Load(context.Background(), database, 1)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 0, ix.Len())
	testutil.AssertEqual(t, 0, len(ix.Roots()))
}
