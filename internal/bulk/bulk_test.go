package bulk

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lherron/clara/internal/domain"
)

func TestSequentialExecution(t *testing.T) {
	items := []string{"T-00001", "T-00002", "T-00003", "T-00004"}
	var executed []string

	op := &Operation{Ordered: true, Jobs: 8}
	result := op.Execute(context.Background(), items, func(_ context.Context, i int, item string) error {
		if items[i] != item {
			t.Errorf("index %d carries %s", i, item)
		}
		executed = append(executed, item)
		return nil
	})

	if result.TotalItems != 4 || result.Succeeded != 4 || result.Failed != 0 || result.Skipped != 0 {
		t.Errorf("result = %+v", result)
	}
	if strings.Join(executed, ",") != strings.Join(items, ",") {
		t.Errorf("order not preserved: %v", executed)
	}
	if err := result.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
}

func TestParallelExecution(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	out := make([]string, len(items))
	var mu sync.Mutex
	seen := map[string]bool{}

	op := &Operation{Jobs: 4}
	result := op.Execute(context.Background(), items, func(_ context.Context, i int, item string) error {
		out[i] = strings.ToUpper(item)
		mu.Lock()
		seen[item] = true
		mu.Unlock()
		return nil
	})

	if result.Succeeded != len(items) {
		t.Errorf("succeeded = %d, want %d", result.Succeeded, len(items))
	}
	if len(seen) != len(items) {
		t.Errorf("executed %d distinct items, want %d", len(seen), len(items))
	}
	if strings.Join(out, "") != "ABCDEFGH" {
		t.Errorf("indexed output = %v", out)
	}
}

func TestContinueOnError(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	var progress bytes.Buffer

	op := &Operation{Jobs: 2, ContinueOnError: true, Progress: &progress}
	result := op.Execute(context.Background(), items, func(_ context.Context, _ int, item string) error {
		if item == "b" || item == "d" {
			return &domain.ValidationError{Field: "task", Reason: "bad " + item}
		}
		return nil
	})

	if result.Succeeded != 3 || result.Failed != 2 || result.Skipped != 0 {
		t.Fatalf("result = %+v", result)
	}
	if result.Errors[0].Item != "b" || result.Errors[1].Item != "d" {
		t.Errorf("errors not in input order: %v", result.Errors)
	}
	if n := strings.Count(progress.String(), "\n"); n != 5 {
		t.Errorf("progress lines = %d, want 5", n)
	}

	err := result.Err()
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Err() = %v, want a validation error", err)
	}
	if !strings.Contains(err.Error(), "2 of 5") || !strings.Contains(err.Error(), "bad b") {
		t.Errorf("Err() = %q", err)
	}
}

func TestStopOnError(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	var calls int32

	op := &Operation{Ordered: true}
	result := op.Execute(context.Background(), items, func(_ context.Context, _ int, item string) error {
		atomic.AddInt32(&calls, 1)
		if item == "c" {
			return errors.New("boom")
		}
		return nil
	})

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if result.Succeeded != 2 || result.Failed != 1 || result.Skipped != 2 {
		t.Errorf("result = %+v", result)
	}
}

func TestSingleItemErrIsUnwrapped(t *testing.T) {
	want := &domain.NotFoundError{Entity: "task", ID: 9}
	op := &Operation{}
	result := op.Execute(context.Background(), []string{"T-00009"}, func(context.Context, int, string) error {
		return want
	})

	var nf *domain.NotFoundError
	if err := result.Err(); !errors.As(err, &nf) || err.Error() != want.Error() {
		t.Errorf("Err() = %v, want %v", err, want)
	}
}

func TestCancelledContextSkipsEverything(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op := &Operation{Jobs: 3, ContinueOnError: true}
	result := op.Execute(ctx, []string{"a", "b", "c"}, func(context.Context, int, string) error {
		t.Error("item function called with a cancelled context")
		return nil
	})
	if result.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", result.Skipped)
	}
}

func TestEmptyItems(t *testing.T) {
	op := &Operation{}
	result := op.Execute(context.Background(), nil, func(context.Context, int, string) error {
		t.Error("function should not be called")
		return nil
	})
	if result.TotalItems != 0 || result.Err() != nil {
		t.Errorf("result = %+v", result)
	}
}

func TestPrintSummary(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{"all ok", Result{TotalItems: 3, Succeeded: 3}, "✓ All 3 operations succeeded\n"},
		{"none ok", Result{TotalItems: 2, Failed: 1, Skipped: 1, Errors: []ItemError{{Item: "T-00001", Err: errors.New("gone")}}},
			"✗ No operation succeeded (1 failed, 1 skipped)\n  T-00001: gone\n"},
		{"partial", Result{TotalItems: 3, Succeeded: 2, Failed: 1, Errors: []ItemError{{Item: "T-00002", Err: errors.New("gone")}}},
			"⚠ Partial success: 2 succeeded, 1 failed, 0 skipped (out of 3)\n  T-00002: gone\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.result.PrintSummary(&buf)
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
