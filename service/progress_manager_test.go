package service

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/ludo-technologies/tcagate/domain"
)

func TestNewProgressManager_NonInteractive(t *testing.T) {
	// When disabled, should return NoOpProgressManager
	pm := NewProgressManager(false)
	if pm.IsInteractive() {
		t.Error("expected non-interactive progress manager when disabled")
	}

	var _ domain.ProgressManager = pm
}

func TestIsInteractiveEnvironment_CI(t *testing.T) {
	t.Setenv("CI", "true")
	if IsInteractiveEnvironment() {
		t.Error("expected CI environment to be non-interactive")
	}
	if NewProgressManager(true).IsInteractive() {
		t.Error("expected no-op progress manager in CI")
	}
}

func TestNoOpProgressManager(t *testing.T) {
	pm := &NoOpProgressManager{}

	if pm.IsInteractive() {
		t.Error("expected NoOpProgressManager.IsInteractive() to return false")
	}

	for _, task := range []domain.TaskProgress{pm.StartTask("test", 100), pm.StartTransfer("download", -1)} {
		if task == nil {
			t.Fatal("expected non-nil task")
		}
		task.Increment(10)
		task.Describe("testing")
		task.Complete()
	}

	pm.Close()
}

func TestProgressManagerImpl_WritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	pm := newProgressManager(&buf)

	task := pm.StartTask("Preparing", 2)
	task.Increment(1)
	task.Increment(1)
	task.Complete()
	pm.Close()

	if !strings.Contains(buf.String(), "Preparing") {
		t.Errorf("expected progress output to contain the description, got %q", buf.String())
	}
}

func TestProgressWriter_CountsBytes(t *testing.T) {
	task := &mockTaskProgress{}
	n, err := io.Copy(progressWriter{task: task}, strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if n != 11 || task.incremented != 11 {
		t.Errorf("expected 11 bytes counted, got copied=%d counted=%d", n, task.incremented)
	}
}

func TestProgressManagerImpl_Interface(t *testing.T) {
	var _ domain.ProgressManager = &ProgressManagerImpl{}
	var _ domain.TaskProgress = &TaskProgressImpl{}
}

// mockProgressManager records the tasks it starts
type mockProgressManager struct {
	tasks []*mockTaskProgress
}

func (m *mockProgressManager) StartTask(description string, total int) domain.TaskProgress {
	task := &mockTaskProgress{description: description, total: int64(total)}
	m.tasks = append(m.tasks, task)
	return task
}

func (m *mockProgressManager) StartTransfer(description string, size int64) domain.TaskProgress {
	task := &mockTaskProgress{description: description, total: size}
	m.tasks = append(m.tasks, task)
	return task
}

func (m *mockProgressManager) IsInteractive() bool {
	return true
}

func (m *mockProgressManager) Close() {}

type mockTaskProgress struct {
	mu          sync.Mutex
	description string
	total       int64
	incremented int
	completed   bool
}

func (m *mockTaskProgress) Increment(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incremented += n
}

func (m *mockTaskProgress) Describe(description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.description = description
}

func (m *mockTaskProgress) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = true
}
