package notification

import (
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/google/uuid"
)

type TaskType string

const (
	TaskJobCreated       TaskType = "job_created"
	TaskCandidateCreated TaskType = "candidate_created"
	TaskDigest           TaskType = "digest"
)

const DefaultMaxAttempts = 3

// Task is a detached dispatch request carried by the task queue
type Task struct {
	ID          kernel.TaskID      `json:"id"`
	Type        TaskType           `json:"type"`
	JobID       kernel.JobID       `json:"job_id,omitempty"`
	CandidateID kernel.CandidateID `json:"candidate_id,omitempty"`
	Frequency   Frequency          `json:"frequency,omitempty"`

	AttemptCount int    `json:"attempt_count"`
	MaxAttempts  int    `json:"max_attempts"`
	LastError    string `json:"last_error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
}

func newTask(typ TaskType) *Task {
	return &Task{
		ID:          kernel.NewTaskID(uuid.NewString()),
		Type:        typ,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   time.Now(),
	}
}

func NewJobCreatedTask(jobID kernel.JobID) *Task {
	t := newTask(TaskJobCreated)
	t.JobID = jobID
	return t
}

func NewCandidateCreatedTask(candidateID kernel.CandidateID) *Task {
	t := newTask(TaskCandidateCreated)
	t.CandidateID = candidateID
	return t
}

func NewDigestTask(f Frequency) *Task {
	t := newTask(TaskDigest)
	t.Frequency = f
	return t
}

// Validate checks that the task carries the identifier its type needs
func (t *Task) Validate() error {
	switch t.Type {
	case TaskJobCreated:
		if t.JobID.IsEmpty() {
			return ErrInvalidTask().WithDetail("field", "job_id")
		}
	case TaskCandidateCreated:
		if t.CandidateID.IsEmpty() {
			return ErrInvalidTask().WithDetail("field", "candidate_id")
		}
	case TaskDigest:
		if !t.Frequency.IsValid() {
			return ErrInvalidFrequency().WithDetail("frequency", t.Frequency)
		}
	default:
		return ErrInvalidTask().WithDetail("type", t.Type)
	}
	return nil
}

// CanRetry reports whether another attempt is allowed
func (t *Task) CanRetry() bool {
	return t.AttemptCount < t.MaxAttempts
}

// RetryDelay is the exponential backoff before the next attempt
func (t *Task) RetryDelay() time.Duration {
	return time.Duration(1<<t.AttemptCount) * time.Minute
}
