package usecases_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/footpath/internal/core/usecases"
)

func TestSlidingWindow_RejectsOverLimit(t *testing.T) {
	clock := newFakeClock()
	w := usecases.NewSlidingWindow("distance", 20, time.Minute, usecases.WithClock(clock.Now))

	for i := 1; i <= 25; i++ {
		d := w.Admit("1.2.3.4")
		if i <= 20 && !d.Allowed {
			t.Fatalf("request %d: expected admitted", i)
		}
		if i > 20 {
			if d.Allowed {
				t.Fatalf("request %d: expected rejected", i)
			}
			if d.RetryAfter != time.Minute {
				t.Errorf("request %d: expected retry after 60s, got %s", i, d.RetryAfter)
			}
			if d.Count != 20 {
				t.Errorf("request %d: rejected requests must not be recorded, count=%d", i, d.Count)
			}
		}
	}
}

func TestSlidingWindow_ReadmitsAfterOldestAgesOut(t *testing.T) {
	clock := newFakeClock()
	w := usecases.NewSlidingWindow("distance", 2, time.Minute, usecases.WithClock(clock.Now))

	w.Admit("c")
	clock.Advance(30 * time.Second)
	w.Admit("c")

	if w.Admit("c").Allowed {
		t.Fatal("expected third request to be rejected")
	}

	// Exactly one window after the first request it still counts.
	clock.Advance(30 * time.Second)
	if w.Admit("c").Allowed {
		t.Fatal("expected rejection at the window boundary")
	}

	clock.Advance(time.Millisecond)
	d := w.Admit("c")
	if !d.Allowed {
		t.Fatal("expected admission once the oldest request aged out")
	}
	if d.Count != 2 {
		t.Errorf("expected count 2, got %d", d.Count)
	}
}

func TestSlidingWindow_ClientsAreIndependent(t *testing.T) {
	w := usecases.NewSlidingWindow("batch", 1, time.Minute)

	if !w.Admit("a").Allowed {
		t.Fatal("a: expected admitted")
	}
	if !w.Admit("b").Allowed {
		t.Fatal("b: expected admitted")
	}
	if w.Admit("a").Allowed {
		t.Fatal("a: expected rejected")
	}
}

func TestSlidingWindow_Stats(t *testing.T) {
	clock := newFakeClock()
	w := usecases.NewSlidingWindow("admin", 2, time.Minute, usecases.WithClock(clock.Now))

	w.Admit("b")
	w.Admit("a")
	w.Admit("a")

	st := w.Stats()
	if st.Class != "admin" || st.WindowSeconds != 60 || st.MaxRequests != 2 {
		t.Errorf("unexpected settings: %+v", st)
	}
	if st.ActiveClients != 2 {
		t.Fatalf("expected 2 active clients, got %d", st.ActiveClients)
	}
	if st.Clients[0].Client != "a" || !st.Clients[0].IsRateLimited {
		t.Errorf("expected a to be limited first, got %+v", st.Clients[0])
	}
	if st.Clients[1].Client != "b" || st.Clients[1].IsRateLimited {
		t.Errorf("expected b not limited, got %+v", st.Clients[1])
	}

	clock.Advance(2 * time.Minute)
	if n := w.Stats().ActiveClients; n != 0 {
		t.Errorf("expected no active clients after the window, got %d", n)
	}
}

func TestSlidingWindow_Cleanup(t *testing.T) {
	clock := newFakeClock()
	w := usecases.NewSlidingWindow("distance", 5, time.Minute, usecases.WithClock(clock.Now))

	w.Admit("old")
	clock.Advance(90 * time.Second)
	w.Admit("new")
	w.Cleanup()

	st := w.Stats()
	if st.ActiveClients != 1 || st.Clients[0].Client != "new" {
		t.Errorf("expected only new to remain, got %+v", st.Clients)
	}
	if st.Clients[0].TotalRequests != 1 {
		t.Errorf("expected total 1, got %d", st.Clients[0].TotalRequests)
	}
}

func TestSlidingWindow_Concurrent(t *testing.T) {
	w := usecases.NewSlidingWindow("distance", 50, time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.Admit("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("expected exactly 50 admitted, got %d", allowed)
	}
}

func TestSlidingWindow_PublishesRejection(t *testing.T) {
	pub := &mockPublisher{}
	w := usecases.NewSlidingWindow("distance", 1, time.Minute, usecases.WithRejectionEvents(pub))

	w.Admit("9.9.9.9")
	w.Admit("9.9.9.9")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pub.mu.Lock()
		n := len(pub.limited)
		pub.mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected one rate limit event")
}

func TestRateLimits_ClassesAreIndependent(t *testing.T) {
	limits := usecases.RateLimits{
		Distance: usecases.NewSlidingWindow("distance", 1, time.Minute),
		Batch:    usecases.NewSlidingWindow("batch", 1, time.Minute),
		Admin:    usecases.NewSlidingWindow("admin", 1, time.Minute),
		Refresh:  usecases.NewSlidingWindow("refresh", 1, time.Minute),
	}

	for _, w := range limits.All() {
		if !w.Admit("same-client").Allowed {
			t.Errorf("%s: first request must be admitted", w.Class())
		}
	}
	if got := len(limits.All()); got != 4 {
		t.Errorf("expected 4 windows, got %d", got)
	}
}

func TestSlidingWindow_StartJanitorStopsWithContext(t *testing.T) {
	w := usecases.NewSlidingWindow("distance", 1, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	w.StartJanitor(ctx, time.Millisecond)

	for i := 0; i < 5; i++ {
		w.Admit(fmt.Sprintf("c%d", i))
	}
	time.Sleep(20 * time.Millisecond)
	cancel()

	if n := w.Stats().ActiveClients; n != 0 {
		t.Errorf("expected janitor to drop expired clients, got %d", n)
	}
}
