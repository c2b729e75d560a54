package store

import (
	"context"
	"fmt"

	"github.com/lherron/clara/internal/db"
)

// WouldCreateCycle reports whether making candidateParentID the parent of
// taskID would break the forest shape of live tasks: true when the candidate
// is the task itself or one of its live descendants.
//
// The walk is breadth-first over live children with a visited set, so it
// terminates even if the stored data already contains a cycle. Call it inside
// the mutation's transaction.
func WouldCreateCycle(ctx context.Context, q db.Querier, taskID, candidateParentID int64) (bool, error) {
	if taskID == candidateParentID {
		return true, nil
	}

	visited := map[int64]bool{taskID: true}
	frontier := []int64{taskID}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		children, err := liveChildIDs(ctx, q, current)
		if err != nil {
			return false, err
		}
		for _, child := range children {
			if child == candidateParentID {
				return true, nil
			}
			if visited[child] {
				continue
			}
			visited[child] = true
			frontier = append(frontier, child)
		}
	}

	return false, nil
}

func liveChildIDs(ctx context.Context, q db.Querier, parentID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id FROM tasks WHERE parent_task_id = ? AND archived_at IS NULL", parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subtasks of %d: %w", parentID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan subtask: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
