package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/usecases"
)

var (
	bourse = domain.Coordinate{Lat: 44.838, Lon: -0.5792}
	nearby = domain.Coordinate{Lat: 44.8376, Lon: -0.5798}
)

func TestProviderChain_FirstSuccessWins(t *testing.T) {
	first := &mockProvider{name: "google", resolveFn: func(ctx context.Context, o, d domain.Coordinate) (domain.DistanceEntry, error) {
		return domain.DistanceEntry{DistanceMeters: 60, DurationSeconds: 43}, nil
	}}
	second := &mockProvider{name: "openroute"}

	chain := usecases.NewProviderChain(time.Second, first, second)
	e, err := chain.Resolve(context.Background(), nearby, bourse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.DistanceMeters != 60 {
		t.Errorf("expected 60, got %d", e.DistanceMeters)
	}
	if second.Calls() != 0 {
		t.Error("second provider must not be called")
	}
}

func TestProviderChain_FallsThrough(t *testing.T) {
	first := &mockProvider{name: "google", resolveFn: func(ctx context.Context, o, d domain.Coordinate) (domain.DistanceEntry, error) {
		return domain.DistanceEntry{}, errors.New("ZERO_RESULTS")
	}}
	second := &mockProvider{name: "openroute", resolveFn: func(ctx context.Context, o, d domain.Coordinate) (domain.DistanceEntry, error) {
		return domain.DistanceEntry{DistanceMeters: 75, DurationSeconds: 54}, nil
	}}

	chain := usecases.NewProviderChain(time.Second, first, second)
	e, err := chain.Resolve(context.Background(), nearby, bourse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.DistanceMeters != 75 {
		t.Errorf("expected 75, got %d", e.DistanceMeters)
	}
	if first.Calls() != 1 {
		t.Errorf("expected exactly one attempt on the first provider, got %d", first.Calls())
	}
}

func TestProviderChain_AllFail(t *testing.T) {
	errGoogle := errors.New("quota exceeded")
	errORS := errors.New("status 503")
	chain := usecases.NewProviderChain(time.Second,
		&mockProvider{name: "google", resolveFn: func(ctx context.Context, o, d domain.Coordinate) (domain.DistanceEntry, error) {
			return domain.DistanceEntry{}, errGoogle
		}},
		&mockProvider{name: "openroute", resolveFn: func(ctx context.Context, o, d domain.Coordinate) (domain.DistanceEntry, error) {
			return domain.DistanceEntry{}, errORS
		}},
	)

	_, err := chain.Resolve(context.Background(), nearby, bourse)
	if !errors.Is(err, domain.ErrAllProvidersUnavailable) {
		t.Fatalf("expected ErrAllProvidersUnavailable, got %v", err)
	}
	if !errors.Is(err, errGoogle) || !errors.Is(err, errORS) {
		t.Errorf("expected both provider errors joined, got %v", err)
	}
}

func TestProviderChain_Empty(t *testing.T) {
	chain := usecases.NewProviderChain(0)
	if _, err := chain.Resolve(context.Background(), nearby, bourse); !errors.Is(err, domain.ErrAllProvidersUnavailable) {
		t.Fatalf("expected ErrAllProvidersUnavailable, got %v", err)
	}
}

func TestProviderChain_TimeoutAppliesPerAttempt(t *testing.T) {
	slow := &mockProvider{name: "google", resolveFn: func(ctx context.Context, o, d domain.Coordinate) (domain.DistanceEntry, error) {
		<-ctx.Done()
		return domain.DistanceEntry{}, ctx.Err()
	}}
	fast := &mockProvider{name: "openroute", resolveFn: func(ctx context.Context, o, d domain.Coordinate) (domain.DistanceEntry, error) {
		return domain.DistanceEntry{DistanceMeters: 10}, nil
	}}

	chain := usecases.NewProviderChain(20*time.Millisecond, slow, fast)
	e, err := chain.Resolve(context.Background(), nearby, bourse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.DistanceMeters != 10 {
		t.Errorf("expected fallback answer, got %+v", e)
	}
}

func TestProviderChain_CancelledCallerStops(t *testing.T) {
	p := &mockProvider{name: "google"}
	chain := usecases.NewProviderChain(time.Second, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.Resolve(ctx, nearby, bourse)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p.Calls() != 0 {
		t.Error("provider must not be called after cancellation")
	}
}

func TestProviderChain_Names(t *testing.T) {
	chain := usecases.NewProviderChain(time.Second, &mockProvider{name: "google"}, nil, &mockProvider{name: "openroute"})
	names := chain.Names()
	if len(names) != 2 || names[0] != "google" || names[1] != "openroute" {
		t.Errorf("unexpected names %v", names)
	}
}
