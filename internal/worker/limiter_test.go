package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5, 0)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1, 0)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1, 0)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://lis.example.com/Vote/api"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different host should also work
	if err := limiter.Wait(ctx, "http://other.example.com"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitAppliesDelay(t *testing.T) {
	limiter := NewLimiter(100, 1, 50*time.Millisecond)

	start := time.Now()
	if err := limiter.Wait(context.Background(), "http://lis.example.com"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if d := time.Since(start); d < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", d)
	}
}

func TestLimiter_WaitCancelledDuringDelay(t *testing.T) {
	limiter := NewLimiter(0, 1, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "http://lis.example.com"); err == nil {
		t.Error("expected context error while waiting out the delay")
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1, 0)
	url := "http://lis.example.com"

	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst of 1 is consumed
	if limiter.getLimiter("lis.example.com").Allow() {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.getLimiter("other.example.com").Allow() {
		t.Errorf("expected allow for other host")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1, 0)
	for i := 0; i < 10; i++ {
		if !limiter.getLimiter("lis.example.com").Allow() {
			t.Fatalf("expected unlimited limiter to allow call %d", i)
		}
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10, 0)
	host := "slow.example.com"

	limiter.SetHostRate(host, 0.1, 1)

	if !limiter.getLimiter(host).Allow() {
		t.Errorf("first request should pass")
	}
	if limiter.getLimiter(host).Allow() {
		t.Errorf("second request should fail")
	}
	if !limiter.getLimiter("fast.example.com").Allow() {
		t.Errorf("other host should pass")
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("http://lis.example.com/foo")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "lis.example.com" {
		t.Errorf("expected lis.example.com, got %s", host)
	}

	if _, err := extractHost("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
