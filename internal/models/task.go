package models

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskDone       TaskStatus = "done"
	TaskFailed     TaskStatus = "failed"
)

// Task tracks one in-flight or completed pipeline run. Process-lifetime
// only: a restart loses task records, the artifact survives independently.
// SummaryID and Error are mutually exclusive and both empty until a
// terminal state.
type Task struct {
	TaskID    string     `json:"task_id"`
	UserID    string     `json:"-"`
	Status    TaskStatus `json:"status"`
	SummaryID string     `json:"summary_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
