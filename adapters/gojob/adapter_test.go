package gojob

import (
	"testing"
	"time"

	"github.com/xdose/go-ingest/core"
)

func TestRetryPolicy_NormalizeAttempt(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        time.Minute,
		DeadLetterOnMax: true,
	}

	cases := []struct {
		name    string
		opts    core.JobNackOptions
		attempt int
		want    core.JobNackOptions
	}{
		{
			name:    "requeue within bounds",
			opts:    core.JobNackOptions{Delay: 10 * time.Second, Requeue: true, Reason: " transient "},
			attempt: 1,
			want:    core.JobNackOptions{Delay: 10 * time.Second, Requeue: true, Reason: "transient"},
		},
		{
			name:    "delay capped at max",
			opts:    core.JobNackOptions{Delay: 5 * time.Minute, Requeue: true},
			attempt: 1,
			want:    core.JobNackOptions{Delay: time.Minute, Requeue: true},
		},
		{
			name:    "negative delay reset",
			opts:    core.JobNackOptions{Delay: -time.Second, Requeue: true},
			attempt: 1,
			want:    core.JobNackOptions{Requeue: true},
		},
		{
			name:    "max attempts dead letters",
			opts:    core.JobNackOptions{Requeue: true},
			attempt: 3,
			want:    core.JobNackOptions{Requeue: false, DeadLetter: true},
		},
		{
			name:    "dead letter wins over requeue",
			opts:    core.JobNackOptions{Requeue: true, DeadLetter: true},
			attempt: 1,
			want:    core.JobNackOptions{Requeue: false, DeadLetter: true},
		},
		{
			name:    "neither flag falls back to requeue",
			opts:    core.JobNackOptions{},
			attempt: 1,
			want:    core.JobNackOptions{Requeue: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := policy.NormalizeAttempt(tc.opts, tc.attempt)
			if got != tc.want {
				t.Fatalf("normalize mismatch: got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestExecutionMessageRoundTrip(t *testing.T) {
	in := &core.JobExecutionMessage{
		JobID:          "  " + JobIDPaymentSweep + "  ",
		Parameters:     map[string]any{"batch": 25},
		IdempotencyKey: "ingest.payment.sweep:1234",
		DedupPolicy:    "drop",
	}

	mapped := ToExecutionMessage(in)
	if mapped.JobID != JobIDPaymentSweep {
		t.Fatalf("expected trimmed job id, got %q", mapped.JobID)
	}

	back := FromExecutionMessage(mapped)
	if back.JobID != JobIDPaymentSweep {
		t.Fatalf("expected job id preserved, got %q", back.JobID)
	}
	if back.IdempotencyKey != in.IdempotencyKey {
		t.Fatalf("expected idempotency key preserved, got %q", back.IdempotencyKey)
	}
	if back.DedupPolicy != "drop" {
		t.Fatalf("expected dedup policy preserved, got %q", back.DedupPolicy)
	}
	if back.Parameters["batch"] != 25 {
		t.Fatalf("expected parameters copied, got %v", back.Parameters)
	}

	mapped.Parameters["batch"] = 99
	if in.Parameters["batch"] != 25 {
		t.Fatalf("expected parameter copy, source was mutated")
	}

	if ToExecutionMessage(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
	if FromExecutionMessage(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
}
