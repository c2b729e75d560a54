// Package bulk runs one mutation over many entity references, either in
// order or with a bounded worker pool.
package bulk

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Operation configures a bulk run
type Operation struct {
	// Jobs is the number of workers; 0 uses one per CPU.
	Jobs            int
	ContinueOnError bool
	// Ordered forces sequential execution in input order.
	Ordered bool
	// Progress receives one status line per item when non-nil.
	Progress io.Writer
}

// Result summarizes a bulk run. Items never started because an earlier
// item failed count as Skipped.
type Result struct {
	TotalItems int
	Succeeded  int
	Failed     int
	Skipped    int
	Errors     []ItemError
}

// ItemError is the failure of one item
type ItemError struct {
	Index int
	Item  string
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Item, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// ItemFunc handles one item. i is the item's position in the input, so
// callers can collect per-item output without locking on order.
type ItemFunc func(ctx context.Context, i int, item string) error

// Execute runs fn over items. Without ContinueOnError the first failure
// cancels the context passed to the remaining calls and no new item starts.
func (op *Operation) Execute(ctx context.Context, items []string, fn ItemFunc) *Result {
	if len(items) == 0 {
		return &Result{}
	}

	jobs := op.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(items) {
		jobs = len(items)
	}
	if op.Ordered {
		jobs = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu     sync.Mutex
		result = &Result{TotalItems: len(items)}
		wg     sync.WaitGroup
		queue  = make(chan int)
	)

	record := func(i int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			result.Succeeded++
			op.progress("%s: ok\n", items[i])
			return
		}
		result.Failed++
		result.Errors = append(result.Errors, ItemError{Index: i, Item: items[i], Err: err})
		op.progress("%s: error: %v\n", items[i], err)
		log.WithFields(log.Fields{"item": items[i], "error": err}).Debug("Bulk item failed")
		if !op.ContinueOnError {
			cancel()
		}
	}

	for w := 0; w < jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				if ctx.Err() != nil {
					continue
				}
				record(i, fn(ctx, i, items[i]))
			}
		}()
	}

feed:
	for i := range items {
		select {
		case queue <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	result.Skipped = result.TotalItems - result.Succeeded - result.Failed
	sort.Slice(result.Errors, func(a, b int) bool { return result.Errors[a].Index < result.Errors[b].Index })
	log.WithFields(log.Fields{
		"total":     result.TotalItems,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"jobs":      jobs,
	}).Debug("Bulk operation finished")
	return result
}

func (op *Operation) progress(format string, args ...any) {
	if op.Progress != nil {
		fmt.Fprintf(op.Progress, format, args...)
	}
}

// Err returns nil when every item succeeded. Otherwise it wraps the first
// failure in input order, so errors.Is and errors.As see its type.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	first := r.Errors[0]
	if r.TotalItems == 1 {
		return first.Err
	}
	return fmt.Errorf("%d of %d item(s) failed, first %w", r.Failed, r.TotalItems, first)
}

// PrintSummary prints a human-readable summary of the result
func (r *Result) PrintSummary(w io.Writer) {
	switch {
	case r.Failed == 0 && r.Skipped == 0:
		fmt.Fprintf(w, "✓ All %d operations succeeded\n", r.TotalItems)
	case r.Succeeded == 0:
		fmt.Fprintf(w, "✗ No operation succeeded (%d failed, %d skipped)\n", r.Failed, r.Skipped)
	default:
		fmt.Fprintf(w, "⚠ Partial success: %d succeeded, %d failed, %d skipped (out of %d)\n",
			r.Succeeded, r.Failed, r.Skipped, r.TotalItems)
	}

	shown := r.Errors
	if len(shown) > 10 {
		fmt.Fprintf(w, "Showing first 10 errors (of %d):\n", len(shown))
		shown = shown[:10]
	}
	for _, e := range shown {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
