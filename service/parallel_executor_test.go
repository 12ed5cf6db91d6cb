package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ludo-technologies/tcagate/domain"
)

func TestNewParallelExecutor(t *testing.T) {
	executor := NewParallelExecutor()

	if executor.maxConcurrency != DefaultMaxConcurrency {
		t.Errorf("maxConcurrency should be %d, got %d", DefaultMaxConcurrency, executor.maxConcurrency)
	}
	if executor.timeout != DefaultStageTimeout {
		t.Errorf("timeout should be %v, got %v", DefaultStageTimeout, executor.timeout)
	}
	if executor.progress != nil {
		t.Error("progress manager should not be set")
	}

	var _ domain.ParallelExecutor = executor
}

func TestNewParallelExecutorWithProgress(t *testing.T) {
	pm := &NoOpProgressManager{}
	executor := NewParallelExecutorWithProgress(pm)

	if executor.progress != pm {
		t.Error("progress manager should be set")
	}
}

func TestParallelExecutor_EmptyTaskList(t *testing.T) {
	executor := NewParallelExecutor()

	if err := executor.Execute(context.Background(), nil); err != nil {
		t.Errorf("empty task list should return nil, got %v", err)
	}
}

func TestParallelExecutor_CollectsResults(t *testing.T) {
	executor := NewParallelExecutor()

	tasks := []domain.ExecutableTask{
		domain.NewFuncTask("client", func(ctx context.Context) (interface{}, error) {
			return "/tca_action/tca-client", nil
		}),
		domain.NewFuncTask("input", func(ctx context.Context) (interface{}, error) {
			return 3, nil
		}),
	}

	if err := executor.Execute(context.Background(), tasks); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if v, ok := executor.Result("client"); !ok || v != "/tca_action/tca-client" {
		t.Errorf("unexpected client result: %v (%v)", v, ok)
	}
	if v, ok := executor.Result("input"); !ok || v != 3 {
		t.Errorf("unexpected input result: %v (%v)", v, ok)
	}
	if _, ok := executor.Result("missing"); ok {
		t.Error("unknown task should have no result")
	}
}

func TestParallelExecutor_PartialFailures(t *testing.T) {
	executor := NewParallelExecutor()

	errDownload := errors.New("download failed")
	errInput := errors.New("no files")

	tasks := []domain.ExecutableTask{
		domain.NewFuncTask("client", func(ctx context.Context) (interface{}, error) { return nil, errDownload }),
		domain.NewFuncTask("labels", func(ctx context.Context) (interface{}, error) { return "ok", nil }),
		domain.NewFuncTask("input", func(ctx context.Context) (interface{}, error) { return nil, errInput }),
	}

	err := executor.Execute(context.Background(), tasks)
	if err == nil {
		t.Fatal("expected error for partial failures")
	}

	var aggErr *AggregatedError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected AggregatedError, got %T", err)
	}
	if len(aggErr.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(aggErr.Errors))
	}

	names := map[string]bool{}
	for _, te := range aggErr.Errors {
		names[te.TaskName] = true
	}
	if !names["client"] || !names["input"] {
		t.Errorf("expected client and input failures, got %v", names)
	}
	if _, ok := executor.Result("labels"); !ok {
		t.Error("successful task result should still be recorded")
	}
	if _, ok := executor.Result("client"); ok {
		t.Error("failed task should have no result")
	}
}

func TestParallelExecutor_Timeout(t *testing.T) {
	executor := NewParallelExecutor()
	executor.SetTimeout(100 * time.Millisecond)

	tasks := []domain.ExecutableTask{
		domain.NewFuncTask("slow", func(ctx context.Context) (interface{}, error) {
			select {
			case <-time.After(2 * time.Second):
				return "done", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}),
	}

	err := executor.Execute(context.Background(), tasks)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestParallelExecutor_ContextCancellation(t *testing.T) {
	executor := NewParallelExecutor()
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	tasks := []domain.ExecutableTask{
		domain.NewFuncTask("cancellable", func(ctx context.Context) (interface{}, error) {
			close(started)
			select {
			case <-time.After(10 * time.Second):
				return "done", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}),
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- executor.Execute(ctx, tasks)
	}()

	<-started
	cancel()

	if err := <-errChan; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
}

func TestParallelExecutor_DisabledTasksSkipped(t *testing.T) {
	executor := NewParallelExecutor()

	var executed atomic.Int32
	run := func(ctx context.Context) (interface{}, error) {
		executed.Add(1)
		return nil, nil
	}
	disabled := domain.NewFuncTask("disabled", run)
	disabled.Enabled = false

	err := executor.Execute(context.Background(), []domain.ExecutableTask{domain.NewFuncTask("enabled", run), disabled})
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if executed.Load() != 1 {
		t.Errorf("only the enabled task should execute, got %d executions", executed.Load())
	}
}

func TestParallelExecutor_ConcurrencyLimit(t *testing.T) {
	executor := NewParallelExecutor()
	executor.SetMaxConcurrency(2)

	var current, peak atomic.Int32
	var tasks []domain.ExecutableTask
	for i := 0; i < 5; i++ {
		tasks = append(tasks, domain.NewFuncTask("task"+string(rune('0'+i)), func(ctx context.Context) (interface{}, error) {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			current.Add(-1)
			return nil, nil
		}))
	}

	if err := executor.Execute(context.Background(), tasks); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("max concurrency should not exceed 2, got %d", peak.Load())
	}
}

func TestParallelExecutor_Setters(t *testing.T) {
	executor := NewParallelExecutor()

	executor.SetMaxConcurrency(16)
	executor.SetTimeout(10 * time.Minute)
	executor.SetMaxConcurrency(0)
	executor.SetMaxConcurrency(-1)
	executor.SetTimeout(0)
	executor.SetTimeout(-time.Second)

	executor.mu.RLock()
	defer executor.mu.RUnlock()
	if executor.maxConcurrency != 16 {
		t.Errorf("maxConcurrency should be 16, got %d", executor.maxConcurrency)
	}
	if executor.timeout != 10*time.Minute {
		t.Errorf("timeout should be 10 minutes, got %v", executor.timeout)
	}
}

func TestParallelExecutor_ProgressIntegration(t *testing.T) {
	pm := &mockProgressManager{}
	executor := NewParallelExecutorWithProgress(pm)

	noop := func(ctx context.Context) (interface{}, error) { return nil, nil }
	tasks := []domain.ExecutableTask{
		domain.NewFuncTask("task1", noop),
		domain.NewFuncTask("task2", noop),
		domain.NewFuncTask("task3", noop),
	}

	if err := executor.Execute(context.Background(), tasks); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if len(pm.tasks) != 1 {
		t.Fatalf("expected one progress task, got %d", len(pm.tasks))
	}
	task := pm.tasks[0]
	if task.total != 3 || task.incremented != 3 {
		t.Errorf("expected 3/3 progress, got %d/%d", task.incremented, task.total)
	}
	if !task.completed {
		t.Error("expected Complete() to be called")
	}
}

func TestAggregatedError_Error(t *testing.T) {
	tests := []struct {
		name     string
		errors   []TaskError
		contains string
	}{
		{
			name:     "no errors",
			errors:   []TaskError{},
			contains: "no errors",
		},
		{
			name:     "single error",
			errors:   []TaskError{{TaskName: "client", Err: errors.New("failed")}},
			contains: "[client] failed",
		},
		{
			name: "multiple errors",
			errors: []TaskError{
				{TaskName: "client", Err: errors.New("failed1")},
				{TaskName: "input", Err: errors.New("failed2")},
			},
			contains: "2 tasks failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := (&AggregatedError{Errors: tt.errors}).Error()
			if !strings.Contains(errStr, tt.contains) {
				t.Errorf("error string should contain %q, got %q", tt.contains, errStr)
			}
		})
	}
}

func TestAggregatedError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	aggErr := &AggregatedError{Errors: []TaskError{{TaskName: "client", Err: originalErr}}}

	if !errors.Is(aggErr, originalErr) {
		t.Error("Unwrap should return the first error's underlying error")
	}
	if (&AggregatedError{}).Unwrap() != nil {
		t.Error("Unwrap on empty errors should return nil")
	}
}

func TestTaskError(t *testing.T) {
	originalErr := errors.New("something went wrong")
	te := TaskError{TaskName: "my-task", Err: originalErr}

	if te.Error() != "[my-task] something went wrong" {
		t.Errorf("unexpected error string: %s", te.Error())
	}
	if !errors.Is(te, originalErr) {
		t.Error("TaskError should unwrap to original error")
	}
}
