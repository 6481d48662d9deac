package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/SeyyedYousef/Firewall-sub001/internal/metrics"
)

// Task is one unit of update processing. The context passed in is the
// queue's run context; tasks must return promptly once it is cancelled.
type Task func(ctx context.Context)

// Queue serializes admission of processing tasks. Two independent caps
// apply: a semaphore bounds how many tasks run at once, and a token
// bucket bounds how many are admitted per interval. Submit never drops
// work; when the buffer is full it blocks the producer instead.
type Queue struct {
	logger   *slog.Logger
	tasks    chan Task
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	warnSize int

	wg sync.WaitGroup
}

type QueueConfig struct {
	BufferSize  int
	Concurrency int
	IntervalCap int
	Interval    rate.Limit // admissions per second
	WarnSize    int
}

func NewQueue(logger *slog.Logger, cfg QueueConfig) *Queue {
	return &Queue{
		logger:   logger,
		tasks:    make(chan Task, cfg.BufferSize),
		sem:      semaphore.NewWeighted(int64(cfg.Concurrency)),
		limiter:  rate.NewLimiter(cfg.Interval, cfg.IntervalCap),
		warnSize: cfg.WarnSize,
	}
}

// Submit enqueues a task, blocking when the buffer is full. It returns
// false only when ctx is done before the task could be accepted.
func (q *Queue) Submit(ctx context.Context, t Task) bool {
	if depth := len(q.tasks); depth >= q.warnSize {
		q.logger.Warn("dispatch queue backlog", "depth", depth, "warn_size", q.warnSize)
	}
	select {
	case q.tasks <- t:
		metrics.QueueDepth.Set(float64(len(q.tasks)))
		return true
	case <-ctx.Done():
		return false
	}
}

// Start consumes tasks until ctx is cancelled. Each task waits for a
// rate token and a concurrency slot before its goroutine runs.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-q.tasks:
				metrics.QueueDepth.Set(float64(len(q.tasks)))
				if err := q.limiter.Wait(ctx); err != nil {
					return
				}
				if err := q.sem.Acquire(ctx, 1); err != nil {
					return
				}
				q.wg.Add(1)
				go func() {
					defer q.wg.Done()
					defer q.sem.Release(1)
					t(ctx)
				}()
			}
		}
	}()
}

// Wait blocks until the consumer loop and all in-flight tasks return.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) Len() int {
	return len(q.tasks)
}
