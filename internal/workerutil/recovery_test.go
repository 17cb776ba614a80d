package workerutil

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func fastOptions() RecoveryOptions {
	return RecoveryOptions{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		MaxRetries:     3,
	}
}

func TestRunWithPanicRecovery(t *testing.T) {
	t.Run("normal exit on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		var panics, fatals atomic.Int32
		opts := fastOptions()
		opts.OnPanic = func(string, int) { panics.Add(1) }
		opts.OnFatal = func(string, int) { fatals.Add(1) }

		started := make(chan struct{})
		RunWithPanicRecovery(ctx, "normal", &wg, func(ctx context.Context) {
			close(started)
			<-ctx.Done()
		}, opts)
		<-started
		cancel()
		wg.Wait()

		if panics.Load() != 0 || fatals.Load() != 0 {
			t.Fatalf("callbacks = panic:%d fatal:%d, want 0/0", panics.Load(), fatals.Load())
		}
	})

	t.Run("restarts after a single panic", func(t *testing.T) {
		var wg sync.WaitGroup
		var runs atomic.Int32
		var lastAttempt atomic.Int32
		opts := fastOptions()
		opts.OnPanic = func(_ string, attempt int) { lastAttempt.Store(int32(attempt)) }

		RunWithPanicRecovery(context.Background(), "single", &wg, func(context.Context) {
			if runs.Add(1) == 1 {
				panic("boom")
			}
		}, opts)
		wg.Wait()

		if runs.Load() != 2 {
			t.Fatalf("runs = %d, want 2", runs.Load())
		}
		if lastAttempt.Load() != 1 {
			t.Fatalf("OnPanic attempt = %d, want 1", lastAttempt.Load())
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var wg sync.WaitGroup
		var runs, panics atomic.Int32
		var fatalRetries atomic.Int32
		opts := fastOptions()
		opts.OnPanic = func(string, int) { panics.Add(1) }
		opts.OnFatal = func(_ string, maxRetries int) { fatalRetries.Store(int32(maxRetries)) }

		RunWithPanicRecovery(context.Background(), "fatal", &wg, func(context.Context) {
			runs.Add(1)
			panic(42)
		}, opts)
		wg.Wait()

		if runs.Load() != 3 || panics.Load() != 3 {
			t.Fatalf("runs=%d panics=%d, want 3/3", runs.Load(), panics.Load())
		}
		if fatalRetries.Load() != 3 {
			t.Fatalf("OnFatal maxRetries = %d, want 3", fatalRetries.Load())
		}
	})

	t.Run("shutdown stops restarts", func(t *testing.T) {
		var wg sync.WaitGroup
		var runs, panics, fatals atomic.Int32
		opts := fastOptions()
		opts.IsShutdown = func() bool { return true }
		opts.OnPanic = func(string, int) { panics.Add(1) }
		opts.OnFatal = func(string, int) { fatals.Add(1) }

		RunWithPanicRecovery(context.Background(), "shutdown", &wg, func(context.Context) {
			runs.Add(1)
			panic("teardown")
		}, opts)
		wg.Wait()

		if runs.Load() != 1 || panics.Load() != 0 || fatals.Load() != 0 {
			t.Fatalf("runs=%d panics=%d fatals=%d, want 1/0/0", runs.Load(), panics.Load(), fatals.Load())
		}
	})

	t.Run("cancel during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		var runs atomic.Int32
		opts := RecoveryOptions{InitialBackoff: time.Hour, MaxBackoff: time.Hour, MaxRetries: 5}
		panicked := make(chan struct{})
		opts.OnPanic = func(string, int) { close(panicked) }

		RunWithPanicRecovery(ctx, "backoff", &wg, func(context.Context) {
			runs.Add(1)
			panic("once")
		}, opts)
		<-panicked
		cancel()

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not exit after cancel during backoff")
		}
		if runs.Load() != 1 {
			t.Fatalf("runs = %d, want 1", runs.Load())
		}
	})
}

func TestRecoveryOptionsWithDefaults(t *testing.T) {
	got := RecoveryOptions{}.withDefaults()
	if got.InitialBackoff != defaultInitialBackoff || got.MaxBackoff != defaultMaxBackoff || got.MaxRetries != defaultMaxRetries {
		t.Fatalf("withDefaults() = %+v", got)
	}

	swapped := RecoveryOptions{InitialBackoff: time.Second, MaxBackoff: time.Millisecond}.withDefaults()
	if swapped.MaxBackoff != time.Second {
		t.Fatalf("MaxBackoff = %v, want promoted to %v", swapped.MaxBackoff, time.Second)
	}
}

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		name    string
		current time.Duration
		max     time.Duration
		want    time.Duration
	}{
		{"doubles", 100 * time.Millisecond, time.Second, 200 * time.Millisecond},
		{"caps", 800 * time.Millisecond, time.Second, time.Second},
		{"at cap", time.Second, time.Second, time.Second},
		{"non-positive resets", 0, time.Second, defaultInitialBackoff},
		{"overflow", time.Duration(1 << 62), time.Duration(1<<63 - 1), time.Duration(1<<63 - 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextBackoff(tt.current, tt.max); got != tt.want {
				t.Fatalf("nextBackoff(%v, %v) = %v, want %v", tt.current, tt.max, got, tt.want)
			}
		})
	}
}
