package scheduler

import (
	"context"
	"sync"
	"time"

	"jobportal/internal/logger"
)

type Task func(ctx context.Context) error

// Every runs task on each tick until ctx is done. Failures are logged and
// the loop keeps going. Ticks that land while task is still running are
// skipped by the ticker.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	if interval <= 0 {
		return
	}
	log := logger.Component("scheduler")

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := task(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Str("task", name).Msg("scheduled task failed")
			}
		}
	}
}

// Loop runs Every in the background and can be restarted with a new interval.
type Loop struct {
	parent context.Context
	name   string
	task   Task

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewLoop(ctx context.Context, name string, task Task) *Loop {
	return &Loop{parent: ctx, name: name, task: task}
}

// Reset stops the running loop and starts a new one at interval. A zero
// interval leaves the loop stopped. Resetting to the current interval is a no-op.
func (l *Loop) Reset(interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if interval == l.interval && (l.cancel != nil || interval <= 0) {
		return
	}
	l.stopLocked()
	l.interval = interval
	if interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(l.parent)
	done := make(chan struct{})
	l.cancel, l.done = cancel, done
	go func() {
		defer close(done)
		Every(ctx, interval, l.name, l.task)
	}()
}

func (l *Loop) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interval
}

// Stop ends the loop and waits for a running task to return.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
	l.interval = 0
}

func (l *Loop) stopLocked() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
	l.cancel, l.done = nil, nil
}
