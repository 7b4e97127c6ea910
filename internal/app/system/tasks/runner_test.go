package tasks_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vitalmetrics/fitreport/internal/app/system/tasks"
	"go.uber.org/zap"
)

func TestRunner_RunsJobOnStart(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	var runs atomic.Int32
	runner.Register(tasks.Job{
		Name:     "cleanup",
		Interval: 100 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	runner.Start()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Stop(ctx); err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}

	// The first run happens immediately, before the first tick.
	if runs.Load() < 1 {
		t.Errorf("expected at least one run, got %d", runs.Load())
	}
}

func TestRunner_StopTimesOutOnStuckJob(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	started := make(chan struct{})
	runner.Register(tasks.Job{
		Name:     "stuck",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			close(started)
			// Ignores ctx on purpose so Stop has to give up.
			time.Sleep(5 * time.Second)
			return nil
		},
	})

	runner.Start()
	<-started
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := runner.Stop(ctx); err != context.DeadlineExceeded {
		t.Errorf("Stop() error = %v, want DeadlineExceeded", err)
	}
}

func TestRunner_MultipleJobs(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	var sessions, states atomic.Int32
	runner.Register(tasks.Job{
		Name:     "session-cleanup",
		Interval: 50 * time.Millisecond,
		Run: func(ctx context.Context) error {
			sessions.Add(1)
			return nil
		},
	})
	runner.Register(tasks.Job{
		Name:     "oauth-state-cleanup",
		Interval: 50 * time.Millisecond,
		Run: func(ctx context.Context) error {
			states.Add(1)
			return nil
		},
	})

	runner.Start()
	time.Sleep(150 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Stop(ctx); err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}

	if sessions.Load() < 1 {
		t.Errorf("session-cleanup ran %d times, want at least 1", sessions.Load())
	}
	if states.Load() < 1 {
		t.Errorf("oauth-state-cleanup ran %d times, want at least 1", states.Load())
	}
}

func TestRunner_RunOnce(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	var runs atomic.Int32
	runner.Register(tasks.Job{
		Name:     "manual",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	// The runner is never started; RunOnce works on its own.
	if err := runner.RunOnce(context.Background(), "manual"); err != nil {
		t.Errorf("RunOnce() returned error: %v", err)
	}
	if runs.Load() != 1 {
		t.Errorf("expected one run, got %d", runs.Load())
	}

	if err := runner.RunOnce(context.Background(), "missing"); err != nil {
		t.Errorf("RunOnce() for an unknown job should be a no-op, got: %v", err)
	}
}

func TestRunner_CancelsJobContextOnStop(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	cancelled := make(chan struct{})
	runner.Register(tasks.Job{
		Name:     "waiter",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			close(cancelled)
			return ctx.Err()
		},
	})

	runner.Start()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Stop(ctx); err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Error("job context was not cancelled")
	}
}
