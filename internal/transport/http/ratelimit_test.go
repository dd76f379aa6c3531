package http

import (
	"testing"
	"time"
)

func TestRateLimiterWindows(t *testing.T) {
	now := time.Unix(1700000000, 0)
	limiter := newRateLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }

	if !limiter.allow("a") || !limiter.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if limiter.allow("a") {
		t.Fatal("third request in the window should be rejected")
	}
	if !limiter.allow("b") {
		t.Fatal("other clients have their own budget")
	}

	now = now.Add(time.Minute)
	if !limiter.allow("a") {
		t.Fatal("budget should reset in a new window")
	}
}

func TestNilRateLimiterAllows(t *testing.T) {
	limiter := newRateLimiter(0, time.Minute)
	if limiter != nil {
		t.Fatal("zero limit should disable limiting")
	}
	for i := 0; i < 100; i++ {
		if !limiter.allow("a") {
			t.Fatal("disabled limiter rejected a request")
		}
	}
}
