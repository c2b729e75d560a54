// Package hierarchy holds the task arena a snapshot is assembled from: tasks
// keyed by id, and for every parent the ordered ids of its live children.
// Traversal is by id lookup, so a corrupt parent chain can be detected with a
// visited set instead of following object references forever.
package hierarchy

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/store"
)

// Index maps task ids to tasks and parents to their ordered children.
type Index struct {
	tasks    map[int64]*domain.Task
	children map[int64][]int64
	roots    []int64
}

// NewIndex returns an empty index
func NewIndex() *Index {
	return &Index{
		tasks:    make(map[int64]*domain.Task),
		children: make(map[int64][]int64),
	}
}

// Add stores t and files it under its parent, or among the roots when it has
// none. Sibling lists stay ordered by order_index, then id.
func (ix *Index) Add(t *domain.Task) {
	ix.tasks[t.ID] = t
	if t.ParentTaskID == nil {
		ix.roots = ix.insert(ix.roots, t)
		return
	}
	parent := *t.ParentTaskID
	ix.children[parent] = ix.insert(ix.children[parent], t)
}

func (ix *Index) insert(siblings []int64, t *domain.Task) []int64 {
	i, _ := slices.BinarySearchFunc(siblings, t, func(id int64, target *domain.Task) int {
		return compare(ix.tasks[id], target)
	})
	return slices.Insert(siblings, i, t.ID)
}

func compare(a, b *domain.Task) int {
	if c := cmp.Compare(a.OrderIndex, b.OrderIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Task returns the task stored under id
func (ix *Index) Task(id int64) (*domain.Task, bool) {
	t, ok := ix.tasks[id]
	return t, ok
}

// Children returns the ordered child ids of a task. The slice must not be modified.
func (ix *Index) Children(id int64) []int64 {
	return ix.children[id]
}

// Roots returns the ordered ids of parentless tasks
func (ix *Index) Roots() []int64 {
	return ix.roots
}

// Len returns the number of tasks in the index
func (ix *Index) Len() int {
	return len(ix.tasks)
}

// batchSize caps the number of ids bound in one IN (...) query
const batchSize = 500

// Load reads the live task forest shown in a workspace snapshot, one tree
// level per query. The roots are the parentless tasks of the workspace plus
// the parentless tasks of its live projects; below them every live child is
// loaded regardless of its own workspace_id.
func Load(ctx context.Context, q db.Querier, wsID int64) (*Index, error) {
	ix := NewIndex()

	level, err := queryTasks(ctx, q, `parent_task_id IS NULL AND (workspace_id = ? OR project_id IN (
		SELECT id FROM projects WHERE workspace_id = ? AND archived_at IS NULL))`, wsID, wsID)
	if err != nil {
		return nil, err
	}

	for len(level) > 0 {
		var parents []int64
		for _, t := range level {
			if _, seen := ix.tasks[t.ID]; seen {
				continue
			}
			ix.Add(t)
			parents = append(parents, t.ID)
		}

		level = nil
		for chunk := range slices.Chunk(parents, batchSize) {
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
			args := make([]any, len(chunk))
			for i, id := range chunk {
				args[i] = id
			}
			children, err := queryTasks(ctx, q, "parent_task_id IN ("+placeholders+")", args...)
			if err != nil {
				return nil, err
			}
			level = append(level, children...)
		}
	}

	return ix, nil
}

func queryTasks(ctx context.Context, q db.Querier, cond string, args ...any) ([]*domain.Task, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+store.TaskColumns+" FROM tasks WHERE archived_at IS NULL AND "+cond+" ORDER BY order_index, id",
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := store.ScanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}
