package taskstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/vidbrief/vidbrief/internal/models"
	"github.com/vidbrief/vidbrief/internal/utils"
)

// Registry owns task lifecycle records. It is injected into the
// orchestrator and the worker pool rather than living in a package global,
// so tests can substitute their own and the backing store can move out of
// process without touching call sites.
//
// Transitions are forward-only:
//
//	pending -> processing -> done | failed
//
// A terminal task never changes again; MarkDone sets SummaryID, MarkFailed
// sets Error, and the two are mutually exclusive.
type Registry interface {
	Put(t models.Task)
	Get(id string) (models.Task, bool)
	Remove(id string)

	MarkProcessing(id string) error
	MarkDone(id, summaryID string) error
	MarkFailed(id, message string) error
}

// Memory is the process-local implementation. Records do not survive a
// restart; the summary artifact, once persisted, does.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
}

func NewMemory() *Memory {
	return &Memory{tasks: make(map[string]models.Task)}
}

func (m *Memory) Put(t models.Task) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	m.tasks[t.TaskID] = t
	m.mu.Unlock()
}

func (m *Memory) Get(id string) (models.Task, bool) {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	return t, ok
}

func (m *Memory) Remove(id string) {
	m.mu.Lock()
	delete(m.tasks, id)
	m.mu.Unlock()
}

func (m *Memory) MarkProcessing(id string) error {
	return m.transition(id, models.TaskPending, func(t *models.Task) {
		t.Status = models.TaskProcessing
	})
}

func (m *Memory) MarkDone(id, summaryID string) error {
	return m.transition(id, models.TaskProcessing, func(t *models.Task) {
		t.Status = models.TaskDone
		t.SummaryID = summaryID
	})
}

func (m *Memory) MarkFailed(id, message string) error {
	return m.transition(id, models.TaskProcessing, func(t *models.Task) {
		t.Status = models.TaskFailed
		t.Error = message
	})
}

func (m *Memory) transition(id string, from models.TaskStatus, apply func(*models.Task)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return utils.ErrNotFound
	}
	if t.Status != from {
		return fmt.Errorf("taskstore: task %s is %s, cannot transition from %s", id, t.Status, from)
	}
	apply(&t)
	m.tasks[id] = t
	return nil
}
