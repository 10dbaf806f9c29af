package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeRefreshSource TaskType = "refresh_source"
)

// DefaultMaxRetries bounds how often a failed refresh is re-queued before the
// source waits for the next tick.
const DefaultMaxRetries = 3

type TaskInterface interface {
	slog.LogValuer
	Execute(ctx context.Context) error
	GetSourceName() string
	GetRetryCount() int
	Retry() bool
	Start()
	GetDuration() time.Duration
}

// Task carries the bookkeeping shared by every queued task. It is owned by
// one worker at a time.
type Task struct {
	ID         string
	Type       TaskType
	SourceName string
	RetryCount int
	MaxRetries int
	QueuedAt   time.Time
	StartedAt  *time.Time
}

func NewTask(taskType TaskType, sourceName string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		SourceName: sourceName,
		MaxRetries: DefaultMaxRetries,
		QueuedAt:   time.Now(),
	}
}

func (t *Task) GetSourceName() string {
	return t.SourceName
}

func (t *Task) GetRetryCount() int {
	return t.RetryCount
}

// Retry counts another attempt. It reports false once MaxRetries is used up.
func (t *Task) Retry() bool {
	if t.RetryCount >= t.MaxRetries {
		return false
	}
	t.RetryCount++
	t.StartedAt = nil
	return true
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func (t *Task) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", t.ID),
		slog.String("type", string(t.Type)),
		slog.String("source", t.SourceName),
		slog.Int("retry", t.RetryCount),
	)
}
