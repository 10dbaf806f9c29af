package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type RefreshSourceTask struct {
	Task
	runner Runner
	force  bool
}

func NewRefreshSourceTask(sourceName string, runner Runner, force bool) *RefreshSourceTask {
	return &RefreshSourceTask{
		Task:   NewTask(TaskTypeRefreshSource, sourceName),
		runner: runner,
		force:  force,
	}
}

func (t *RefreshSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	stats, err := t.runner.Run(ctx, []string{t.SourceName}, t.force)
	if err != nil {
		return fmt.Errorf("failed to refresh source: %w", err)
	}

	s := stats[t.SourceName]
	if s.Skipped {
		slog.Debug("Scheduled refresh skipped", "source", t.SourceName, "total", s.Total)
		return nil
	}

	slog.Info("Scheduled refresh completed",
		"source", t.SourceName,
		"total", s.Total,
		"added", s.Added,
		"removed", s.Removed,
		"duration", t.GetDuration())

	return nil
}
