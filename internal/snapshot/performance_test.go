package snapshot

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/logging"
	"github.com/lherron/clara/internal/store"
	"github.com/lherron/clara/internal/testutil"
)

// TestPerformance_Snapshot5kTasks checks that a 5000 task workspace is
// rendered well under a second at p95
func TestPerformance_Snapshot5kTasks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	database, _ := testutil.TempDB(t)
	seedTaskTree(t, database, 5000)
	b := NewBuilder(store.New(database, store.WithLogger(logging.Discard())), WithLogger(logging.Discard()))
	ctx := context.Background()

	iterations := 10
	timings := make([]time.Duration, iterations)
	for i := 0; i < iterations; i++ {
		start := time.Now()
		snap, err := b.Workspace(ctx, 1)
		if err != nil {
			t.Fatalf("Workspace failed: %v", err)
		}
		timings[i] = time.Since(start)

		count := 0
		for _, task := range snap.Tasks {
			count += task.Count()
		}
		if count != 5000 {
			t.Fatalf("Expected 5000 tasks, got %d", count)
		}
	}

	p50, p95 := percentile(timings, 50), percentile(timings, 95)
	t.Logf("Snapshot of 5k tasks: p50 %v, p95 %v", p50, p95)
	if p95 > time.Second {
		t.Errorf("p95 (%v) exceeds 1s threshold", p95)
	}
}

// seedTaskTree inserts n tasks into workspace 1 with a fan-out of five:
// task i is a subtask of task i/5
func seedTaskTree(t *testing.T, database *db.DB, n int) {
	t.Helper()
	now := db.FormatTime(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))

	tx, err := database.Begin()
	if err != nil {
		t.Fatalf("Failed to begin: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT INTO workspaces (title, created_at, updated_at) VALUES ('Perf', ?, ?)", now, now); err != nil {
		t.Fatalf("Failed to create workspace: %v", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO tasks (id, title, workspace_id, parent_task_id, order_index, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?, ?)`)
	if err != nil {
		t.Fatalf("Failed to prepare insert: %v", err)
	}
	defer stmt.Close()

	for i := 1; i <= n; i++ {
		var parent any
		if i >= 5 {
			parent = i / 5
		}
		if _, err := stmt.Exec(i, "Task", parent, i%5, now, now); err != nil {
			t.Fatalf("Failed to insert task %d: %v", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
}

func percentile(timings []time.Duration, p int) time.Duration {
	sorted := append([]time.Duration(nil), timings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
