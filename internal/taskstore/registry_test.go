package taskstore

import (
	"errors"
	"sync"
	"testing"

	"github.com/vidbrief/vidbrief/internal/models"
	"github.com/vidbrief/vidbrief/internal/utils"
)

func pending(id string) models.Task {
	return models.Task{TaskID: id, Status: models.TaskPending}
}

func TestLifecycle_SuccessPath(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Put(pending("t1"))

	if err := m.MarkProcessing("t1"); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := m.MarkDone("t1", "s1"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	got, ok := m.Get("t1")
	if !ok {
		t.Fatal("task missing")
	}
	if got.Status != models.TaskDone || got.SummaryID != "s1" {
		t.Fatalf("task = %+v", got)
	}
	if got.Error != "" {
		t.Fatalf("done task has error %q", got.Error)
	}
}

func TestLifecycle_FailurePath(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Put(pending("t1"))
	_ = m.MarkProcessing("t1")

	if err := m.MarkFailed("t1", "transcription failed"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, _ := m.Get("t1")
	if got.Status != models.TaskFailed || got.Error != "transcription failed" {
		t.Fatalf("task = %+v", got)
	}
	if got.SummaryID != "" {
		t.Fatalf("failed task has summary id %q", got.SummaryID)
	}
}

func TestLifecycle_NoSecondTerminalState(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Put(pending("t1"))
	_ = m.MarkProcessing("t1")
	_ = m.MarkDone("t1", "s1")

	if err := m.MarkFailed("t1", "late failure"); err == nil {
		t.Fatal("done task accepted a second terminal state")
	}
	if err := m.MarkDone("t1", "s2"); err == nil {
		t.Fatal("done task accepted a repeat terminal transition")
	}

	got, _ := m.Get("t1")
	if got.SummaryID != "s1" || got.Error != "" {
		t.Fatalf("terminal state mutated: %+v", got)
	}
}

func TestLifecycle_ForwardOnly(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Put(pending("t1"))

	if err := m.MarkDone("t1", "s1"); err == nil {
		t.Fatal("pending task skipped processing")
	}
	if err := m.MarkFailed("t1", "x"); err == nil {
		t.Fatal("pending task failed without processing")
	}
}

func TestUnknownTask(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	if _, ok := m.Get("ghost"); ok {
		t.Fatal("unknown id returned a task")
	}
	if err := m.MarkProcessing("ghost"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Put(pending("t1"))
	m.Remove("t1")
	if _, ok := m.Get("t1"); ok {
		t.Fatal("removed task still present")
	}
}

func TestConcurrentAccessPerKey(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		id := string(rune('a' + i%26))
		m.Put(pending(id))
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			_ = m.MarkProcessing(id)
		}(id)
		go func(id string) {
			defer wg.Done()
			m.Get(id)
		}(id)
	}
	wg.Wait()
}
