package jobs

import (
	"log/slog"
	"testing"
	"time"
)

func TestConsumer_ClaimDue(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		idle    time.Duration
		elapsed time.Duration
		want    bool
	}{
		{"disabled", 0, time.Hour, false},
		{"not yet", time.Minute, 30 * time.Second, false},
		{"exactly idle", time.Minute, time.Minute, true},
		{"overdue", time.Minute, 3 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConsumer(nil, "worker-a", tt.idle, slog.Default())
			if got := c.claimDue(base, base.Add(tt.elapsed)); got != tt.want {
				t.Errorf("claimDue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConsumer_MinIdleArg(t *testing.T) {
	tests := []struct {
		idle time.Duration
		want string
	}{
		{5 * time.Minute, "300000"},
		{1500 * time.Millisecond, "1500"},
		{time.Microsecond, "1"},
	}
	for _, tt := range tests {
		c := NewConsumer(nil, "worker-a", tt.idle, slog.Default())
		if got := c.minIdleArg(); got != tt.want {
			t.Errorf("minIdleArg(%s) = %s, want %s", tt.idle, got, tt.want)
		}
	}
}
