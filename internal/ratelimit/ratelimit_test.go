package ratelimit

import (
	"fmt"
	"testing"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial submissions",
			rps:      1,
			burst:    3,
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      1,
			burst:    2,
			calls:    5,
			wantPass: 2,
		},
		{
			name:     "zero rate disables limiting",
			rps:      0,
			burst:    1,
			calls:    50,
			wantPass: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst, 0)

			passed := 0
			for range tt.calls {
				if rl.Allow("player-1") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := New(1, 1, 0)

	rl.Allow("player-1")
	if rl.Allow("player-1") {
		t.Error("player-1 should be exhausted")
	}

	if !rl.Allow("player-2") {
		t.Error("player-2 should be independent and allowed")
	}
}

func TestKeyedRateLimiter_EvictsLeastRecentlyUsed(t *testing.T) {
	rl := New(1, 1, 2)

	for i := range 5 {
		rl.Allow(fmt.Sprintf("player-%d", i))
	}
	if got := rl.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}

	// player-0 was evicted, so its bucket starts full again
	if !rl.Allow("player-0") {
		t.Error("evicted key should get a fresh bucket")
	}
}

func TestKeyedRateLimiter_NilIsDisabled(t *testing.T) {
	var rl *KeyedRateLimiter
	if rl.Enabled() {
		t.Error("nil limiter should be disabled")
	}
	if !rl.Allow("player-1") {
		t.Error("nil limiter should allow")
	}
}
