package throttle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestController(head HeadSource, cfg Config) (*Controller, *[]time.Duration) {
	c := NewController(head, cfg)
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return c, &slept
}

func TestController_Wait(t *testing.T) {
	cfg := Config{Window: 3, Interval: 3 * time.Second}

	tests := []struct {
		name      string
		block     uint64
		head      uint64
		throttled bool
	}{
		{"far behind", 100, 1000, false},
		{"just outside window", 996, 1000, false},
		{"edge of window", 997, 1000, true},
		{"at head", 1000, 1000, true},
		{"ahead of cached head", 1001, 1000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, slept := newTestController(&mockHead{latestBlock: tt.head}, cfg)

			throttled, err := c.Wait(context.Background(), tt.block)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if throttled != tt.throttled {
				t.Errorf("expected throttled=%v, got %v", tt.throttled, throttled)
			}
			if tt.throttled && (len(*slept) != 1 || (*slept)[0] != cfg.Interval) {
				t.Errorf("expected one sleep of %v, got %v", cfg.Interval, *slept)
			}
			if !tt.throttled && len(*slept) != 0 {
				t.Errorf("expected no sleep, got %v", *slept)
			}
		})
	}
}

func TestController_HeadErrorSkipsDelay(t *testing.T) {
	c, slept := newTestController(&mockHead{err: errors.New("timeout")}, DefaultConfig())

	throttled, err := c.Wait(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if throttled || len(*slept) != 0 {
		t.Error("should not throttle without a head")
	}
}

func TestController_Disabled(t *testing.T) {
	head := &mockHead{latestBlock: 10}
	c, _ := newTestController(head, Config{Window: 3})

	throttled, _ := c.Wait(context.Background(), 10)
	if throttled {
		t.Error("zero interval should disable throttling")
	}
	if head.calls() != 0 {
		t.Error("disabled controller should not query the head")
	}
}

func TestController_CancelledSleep(t *testing.T) {
	c := NewController(&mockHead{latestBlock: 10}, Config{Window: 3, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	throttled, err := c.Wait(ctx, 10)
	if !throttled {
		t.Error("expected block to be throttled")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
