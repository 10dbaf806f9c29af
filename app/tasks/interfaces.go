package tasks

import (
	"context"

	"github.com/lysyi3m/news-digest/app/feed"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background refreshes.
// Example usage:
//
//	scheduler := NewScheduler(orchestrator, names, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Runner performs an unauthenticated refresh of the named sources.
type Runner interface {
	Run(ctx context.Context, names []string, force bool) (map[string]feed.Stats, error)
}
