package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestEveryRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int32
	done := make(chan struct{})

	go func() {
		defer close(done)
		Every(ctx, 5*time.Millisecond, "count", func(context.Context) error {
			if n.Add(1) >= 3 {
				cancel()
			}
			return errors.New("keep going")
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Every did not stop after cancel")
	}
	if n.Load() < 3 {
		t.Fatalf("ran %d times", n.Load())
	}
}

func TestEveryDisabled(t *testing.T) {
	ran := false
	Every(context.Background(), 0, "off", func(context.Context) error {
		ran = true
		return nil
	})
	if ran {
		t.Fatal("zero interval should not run the task")
	}
}

func TestLoopReset(t *testing.T) {
	var n atomic.Int32
	l := NewLoop(context.Background(), "count", func(context.Context) error {
		n.Add(1)
		return nil
	})
	defer l.Stop()

	l.Reset(0)
	time.Sleep(20 * time.Millisecond)
	if n.Load() != 0 {
		t.Fatal("stopped loop ran the task")
	}

	l.Reset(2 * time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("ran %d times", n.Load())
		}
		time.Sleep(time.Millisecond)
	}
	if l.Interval() != 2*time.Millisecond {
		t.Fatalf("interval = %v", l.Interval())
	}

	l.Reset(0)
	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	if n.Load() != after {
		t.Fatal("task kept running after Reset(0)")
	}
}
