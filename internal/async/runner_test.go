package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGoroutineRunner_WaitsForTasks(t *testing.T) {
	r := NewGoroutineRunner(nil)
	var done atomic.Int32

	for i := 0; i < 5; i++ {
		r.Go("task", func(context.Context) error {
			time.Sleep(10 * time.Millisecond)
			done.Add(1)
			return nil
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if done.Load() != 5 {
		t.Errorf("completed = %d, want 5", done.Load())
	}
}

func TestGoroutineRunner_WaitTimeout(t *testing.T) {
	r := NewGoroutineRunner(nil)
	release := make(chan struct{})
	defer close(release)

	r.Go("blocked", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestSyncRunner_LogsFailuresAndPanics(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := NewSyncRunner(zap.New(core))

	r.Go("fails", func(context.Context) error { return errors.New("smtp down") })
	r.Go("panics", func(context.Context) error { panic("boom") })

	if logs.FilterMessage("async task failed").Len() != 1 {
		t.Errorf("expected failure to be logged")
	}
	if logs.FilterMessage("async task panicked").Len() != 1 {
		t.Errorf("expected panic to be logged")
	}
}
