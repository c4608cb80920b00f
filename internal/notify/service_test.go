package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kit "castfeed/internal/transport"
	"castfeed/pkg/logx"
)

type stubAdapter struct {
	mu       sync.Mutex
	sends    []string
	failures int // fail this many calls before succeeding
}

func (a *stubAdapter) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failures > 0 {
		a.failures--
		return kit.MessageRef{}, errors.New("send failed")
	}
	a.sends = append(a.sends, text)
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func (a *stubAdapter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sends)
}

type countObserver struct {
	mu     sync.Mutex
	sent   int
	failed int
}

func (o *countObserver) Sent(string) {
	o.mu.Lock()
	o.sent++
	o.mu.Unlock()
}

func (o *countObserver) SendFailed(string) {
	o.mu.Lock()
	o.failed++
	o.mu.Unlock()
}

func note(text string) kit.Notification {
	return kit.Notification{Category: "follow", Target: kit.ChatTarget{ChatID: -1}, Text: text}
}

func stopWithin(t *testing.T, s *Service, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	s.Stop(ctx)
}

func TestServiceDeliversQueued(t *testing.T) {
	ad := &stubAdapter{}
	obs := &countObserver{}
	s := New(Config{Workers: 2, QueueSize: 8, RatePerSec: 1000}, ad, obs, logx.Nop())
	s.Start(context.Background())

	for i := 0; i < 5; i++ {
		if err := s.Enqueue(context.Background(), note("msg")); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	stopWithin(t, s, 2*time.Second)

	if ad.count() != 5 {
		t.Fatalf("delivered = %d, want 5", ad.count())
	}
	if obs.sent != 5 || obs.failed != 0 {
		t.Fatalf("observer = (%d,%d), want (5,0)", obs.sent, obs.failed)
	}
}

func TestServiceRetriesThenSucceeds(t *testing.T) {
	ad := &stubAdapter{failures: 2}
	obs := &countObserver{}
	s := New(Config{
		Workers: 1, QueueSize: 4, RatePerSec: 1000,
		RetryMax: 3, RetryBase: time.Millisecond, RetryMaxDelay: 5 * time.Millisecond,
	}, ad, obs, logx.Nop())
	s.Start(context.Background())

	if err := s.Enqueue(context.Background(), note("msg")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	stopWithin(t, s, 2*time.Second)

	if ad.count() != 1 {
		t.Fatalf("delivered = %d, want 1 after retries", ad.count())
	}
	if obs.sent != 1 || obs.failed != 0 {
		t.Fatalf("observer = (%d,%d), want (1,0)", obs.sent, obs.failed)
	}
}

func TestServiceDropsAfterRetryBudget(t *testing.T) {
	ad := &stubAdapter{failures: 100}
	obs := &countObserver{}
	s := New(Config{
		Workers: 1, QueueSize: 4, RatePerSec: 1000,
		RetryMax: 2, RetryBase: time.Millisecond, RetryMaxDelay: 5 * time.Millisecond,
	}, ad, obs, logx.Nop())
	s.Start(context.Background())

	if err := s.Enqueue(context.Background(), note("msg")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	stopWithin(t, s, 2*time.Second)

	if ad.count() != 0 {
		t.Fatalf("delivered = %d, want 0", ad.count())
	}
	if obs.failed != 1 {
		t.Fatalf("failed = %d, want 1", obs.failed)
	}
}

func TestServiceQueueFull(t *testing.T) {
	// Adapter blocked behind a tiny rate limit so the queue fills up.
	ad := &stubAdapter{}
	s := New(Config{Workers: 1, QueueSize: 1, RatePerSec: 1}, ad, nil, logx.Nop())
	s.Start(context.Background())
	defer stopWithin(t, s, 2*time.Second)

	var sawFull bool
	for i := 0; i < 50; i++ {
		if err := s.Enqueue(context.Background(), note("msg")); errors.Is(err, ErrQueueFull) {
			sawFull = true
			break
		}
	}
	if !sawFull {
		t.Fatal("expected ErrQueueFull under backpressure")
	}
}

func TestServiceEnqueueAfterStop(t *testing.T) {
	s := New(Config{}, &stubAdapter{}, nil, logx.Nop())
	s.Start(context.Background())
	stopWithin(t, s, time.Second)

	if err := s.Enqueue(context.Background(), note("msg")); !errors.Is(err, ErrStopped) {
		t.Fatalf("Enqueue = %v, want ErrStopped", err)
	}
}

func TestServiceEnqueueBeforeStart(t *testing.T) {
	s := New(Config{}, &stubAdapter{}, nil, logx.Nop())
	if err := s.Enqueue(context.Background(), note("msg")); !errors.Is(err, ErrStopped) {
		t.Fatalf("Enqueue = %v, want ErrStopped", err)
	}
}

func TestServiceStartIdempotent(t *testing.T) {
	ad := &stubAdapter{}
	s := New(Config{Workers: 1, QueueSize: 4, RatePerSec: 1000}, ad, nil, logx.Nop())
	s.Start(context.Background())
	s.Start(context.Background())

	if err := s.Enqueue(context.Background(), note("msg")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	stopWithin(t, s, 2*time.Second)
	if ad.count() != 1 {
		t.Fatalf("delivered = %d, want 1", ad.count())
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: 500 * time.Millisecond}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 500 * time.Millisecond},
		{10, 500 * time.Millisecond},
	}
	for _, tc := range tests {
		if got := retryDelay(cfg, tc.attempt); got != tc.want {
			t.Fatalf("retryDelay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
