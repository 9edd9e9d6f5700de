package domain

import (
	"testing"
	"time"
)

func TestEndpoint_LatencyAverage(t *testing.T) {
	e := NewEndpoint("http://a")
	now := time.Now()

	e.RecordSuccess(100*time.Millisecond, 1, now)
	if e.AvgLatency != 100*time.Millisecond {
		t.Fatalf("first probe should seed the average, got %v", e.AvgLatency)
	}

	e.RecordSuccess(200*time.Millisecond, 2, now)
	// 0.3*200 + 0.7*100 = 130ms
	if e.AvgLatency != 130*time.Millisecond {
		t.Errorf("AvgLatency = %v, want 130ms", e.AvgLatency)
	}
	if e.LastLatency != 200*time.Millisecond {
		t.Errorf("LastLatency = %v, want 200ms", e.LastLatency)
	}
}

func TestEndpoint_StagnationIgnoresLaggingBlocks(t *testing.T) {
	e := NewEndpoint("http://a")
	start := time.Now()

	e.RecordSuccess(time.Millisecond, 100, start)
	later := start.Add(time.Minute)
	// A lagging probe reports an older block; the stagnation clock must
	// not advance.
	e.RecordSuccess(time.Millisecond, 99, later)

	if !e.Stagnant(30*time.Second, later) {
		t.Error("endpoint should be stagnant after a minute without head advance")
	}

	e.RecordSuccess(time.Millisecond, 101, later)
	if e.Stagnant(30*time.Second, later) {
		t.Error("advancing head should clear stagnation")
	}
}

func TestEndpoint_Eligibility(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		prepare func(e *Endpoint)
		want    bool
	}{
		{
			name:    "never_probed",
			prepare: func(e *Endpoint) {},
			want:    false,
		},
		{
			name: "one_success_never_failed",
			prepare: func(e *Endpoint) {
				e.RecordSuccess(time.Millisecond, 1, now)
			},
			want: true,
		},
		{
			name: "failed_once_needs_streak",
			prepare: func(e *Endpoint) {
				e.RecordFailure(now)
				e.RecordSuccess(time.Millisecond, 1, now)
				e.RecordSuccess(time.Millisecond, 2, now)
			},
			want: false,
		},
		{
			name: "failed_then_recovered",
			prepare: func(e *Endpoint) {
				e.RecordFailure(now)
				e.RecordSuccess(time.Millisecond, 1, now)
				e.RecordSuccess(time.Millisecond, 2, now)
				e.RecordSuccess(time.Millisecond, 3, now)
			},
			want: true,
		},
		{
			// Demoted for a stagnant head: probes all succeeded, so
			// only the demotion marks it suspect. One success is not
			// enough to come back.
			name: "demoted_without_failures_needs_streak",
			prepare: func(e *Endpoint) {
				e.RecordSuccess(time.Millisecond, 1, now)
				e.Demote(0, now)
				e.RecordSuccess(time.Millisecond, 2, now)
			},
			want: false,
		},
		{
			name: "demoted_then_rebuilt_streak",
			prepare: func(e *Endpoint) {
				e.RecordSuccess(time.Millisecond, 1, now)
				e.Demote(0, now)
				e.RecordSuccess(time.Millisecond, 2, now)
				e.RecordSuccess(time.Millisecond, 3, now)
				e.RecordSuccess(time.Millisecond, 4, now)
			},
			want: true,
		},
		{
			name: "in_cooldown",
			prepare: func(e *Endpoint) {
				e.RecordSuccess(time.Millisecond, 1, now)
				e.Demote(time.Minute, now)
				e.RecordSuccess(time.Millisecond, 2, now)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEndpoint("http://a")
			tt.prepare(e)
			if got := e.Eligible(3, 3, now); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}
