package scraper

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJitterPacerRange(t *testing.T) {
	p := NewJitterPacer(time.Second, 3*time.Second)
	for i := 0; i < 1000; i++ {
		d := p.next()
		if d < time.Second || d > 3*time.Second {
			t.Fatalf("delay %v outside [1s, 3s]", d)
		}
	}
}

func TestJitterPacerInvertedRange(t *testing.T) {
	p := NewJitterPacer(2*time.Second, time.Second)
	if d := p.next(); d != 2*time.Second {
		t.Fatalf("delay %v, want fixed 2s", d)
	}
}

func TestJitterPacerWaits(t *testing.T) {
	p := NewJitterPacer(15*time.Millisecond, 15*time.Millisecond)
	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("waited %v, want at least 15ms", elapsed)
	}
}

func TestPacersHonourCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pacers := map[string]Pacer{
		"jitter":       NewJitterPacer(time.Hour, time.Hour),
		"token_bucket": NewTokenBucketPacer(0.001),
		"none":         NoDelay{},
	}
	for name, p := range pacers {
		t.Run(name, func(t *testing.T) {
			if err := p.Wait(ctx); err == nil {
				t.Fatalf("expected error from cancelled context")
			}
		})
	}
}

func TestTokenBucketPacerSpacing(t *testing.T) {
	p := NewTokenBucketPacer(50)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	// The first token is free, the next two take 20ms each.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Fatalf("three waits took %v, want about 40ms", elapsed)
	}
}

func TestNoDelay(t *testing.T) {
	if err := (NoDelay{}).Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (NoDelay{}).Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
