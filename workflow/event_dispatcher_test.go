package workflow

import (
	"testing"
	"time"
)

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{4, 240 * time.Second},
		{10, time.Hour},
		{30, time.Hour},
	}
	for _, tc := range cases {
		if got := backoffDelay(tc.attempts); got != tc.want {
			t.Errorf("backoffDelay(%d) = %s, want %s", tc.attempts, got, tc.want)
		}
	}
}

func TestLoadDispatcherConfigDefaults(t *testing.T) {
	t.Setenv("ORDER_EVENTS_POLL_SECONDS", "")
	t.Setenv("ORDER_EVENTS_BATCH_SIZE", "")
	t.Setenv("ORDER_EVENTS_MAX_ATTEMPTS", "")

	cfg := loadDispatcherConfig()
	if cfg.interval != defaultDispatchInterval {
		t.Errorf("interval = %s, want %s", cfg.interval, defaultDispatchInterval)
	}
	if cfg.batchSize != defaultDispatchBatch {
		t.Errorf("batchSize = %d, want %d", cfg.batchSize, defaultDispatchBatch)
	}
	if cfg.maxAttempts != defaultMaxAttempts {
		t.Errorf("maxAttempts = %d, want %d", cfg.maxAttempts, defaultMaxAttempts)
	}
	if cfg.workerId == "" {
		t.Error("workerId must not be empty")
	}
}

func TestLoadDispatcherConfigFromEnv(t *testing.T) {
	t.Setenv("ORDER_EVENTS_POLL_SECONDS", "2")
	t.Setenv("ORDER_EVENTS_BATCH_SIZE", "50")
	t.Setenv("ORDER_EVENTS_MAX_ATTEMPTS", "3")

	cfg := loadDispatcherConfig()
	if cfg.interval != 2*time.Second {
		t.Errorf("interval = %s, want 2s", cfg.interval)
	}
	if cfg.batchSize != 50 {
		t.Errorf("batchSize = %d, want 50", cfg.batchSize)
	}
	if cfg.maxAttempts != 3 {
		t.Errorf("maxAttempts = %d, want 3", cfg.maxAttempts)
	}
}
