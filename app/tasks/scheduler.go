package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	runner      Runner
	sources     []string
	interval    time.Duration
	workerCount int
	taskTimeout time.Duration
	baseDelay   time.Duration
	maxDelay    time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
	pendingMu   sync.Mutex
	pending     map[string]bool
}

func NewScheduler(runner Runner, sources []string, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:      runner,
		sources:     sources,
		interval:    interval,
		workerCount: workerCount,
		taskTimeout: 5 * time.Minute,
		baseDelay:   1 * time.Second,
		maxDelay:    30 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
		pending:     make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// enqueueTasks queues one refresh per source. Sources with a refresh still
// queued or running are left alone. Throttling happens in the source itself.
func (s *Scheduler) enqueueTasks() {
	for _, name := range s.sources {
		if !s.markPending(name) {
			slog.Debug("Refresh already pending, skipping", "source", name)
			continue
		}

		task := NewRefreshSourceTask(name, s.runner, false)
		if err := s.EnqueueTask(task); err != nil {
			s.clearPending(name)
			slog.Warn("Failed to enqueue RefreshSourceTask", "source", name, "error", err)
		}
	}
}

func (s *Scheduler) markPending(name string) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if s.pending[name] {
		return false
	}
	s.pending[name] = true
	return true
}

func (s *Scheduler) clearPending(name string) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	delete(s.pending, name)
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		s.clearPending(task.GetSourceName())
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "task", task, "error", err)

	if !task.Retry() {
		s.clearPending(task.GetSourceName())
		slog.Error("Task failed after maximum retries", "task", task, "last_error", err)
		return
	}

	retryDelay := s.retryDelay(task.GetRetryCount())
	slog.Warn("Task retry scheduled", "task", task, "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "task", task)
			return
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				s.clearPending(task.GetSourceName())
				slog.Error("Failed to re-enqueue task for retry", "task", task, "error", retryErr)
			}
		}
	}()
}

func (s *Scheduler) retryDelay(retryCount int) time.Duration {
	delay := s.baseDelay << uint(retryCount-1)
	if delay > s.maxDelay {
		delay = s.maxDelay
	}
	return delay
}
