package jobs

import (
	"context"
	"testing"
	"time"

	job "github.com/goliatone/go-job"

	"github.com/xdose/go-ingest/adapters/gojob"
	"github.com/xdose/go-ingest/core"
)

func TestMemoryQueue_RoundTripThroughAdapters(t *testing.T) {
	queue := NewMemoryQueue(4, gojob.RetryPolicy{})
	defer queue.Close()

	enqueuer := gojob.NewEnqueuerAdapter(queue)
	dequeuer := gojob.NewDequeuerAdapter(queue, gojob.RetryPolicy{})

	if err := enqueuer.Enqueue(context.Background(), &core.JobExecutionMessage{
		JobID: gojob.JobIDPaymentSweep,
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	delivery, err := dequeuer.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if delivery.Message().JobID != gojob.JobIDPaymentSweep {
		t.Fatalf("expected sweep job id, got %q", delivery.Message().JobID)
	}
	if err := delivery.Ack(context.Background()); err != nil {
		t.Fatalf("ack: %v", err)
	}
}

func TestMemoryQueue_DropsDuplicatePendingKeys(t *testing.T) {
	queue := NewMemoryQueue(4, gojob.RetryPolicy{})
	defer queue.Close()

	enqueuer := gojob.NewEnqueuerAdapter(queue)
	now := time.Date(2026, 3, 1, 12, 0, 10, 0, time.UTC)
	if err := EnqueueSweep(context.Background(), enqueuer, now); err != nil {
		t.Fatalf("enqueue sweep: %v", err)
	}
	if err := EnqueueSweep(context.Background(), enqueuer, now.Add(20*time.Second)); err != nil {
		t.Fatalf("enqueue duplicate sweep: %v", err)
	}

	if _, err := queue.Dequeue(context.Background()); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := queue.Dequeue(ctx); err == nil {
		t.Fatalf("expected duplicate within the same minute to be dropped")
	}
}

func TestMemoryQueue_AckReleasesDedupKey(t *testing.T) {
	queue := NewMemoryQueue(4, gojob.RetryPolicy{})
	defer queue.Close()

	msg := &job.ExecutionMessage{
		JobID:          gojob.JobIDPaymentSweep,
		IdempotencyKey: "sweep:1",
		DedupPolicy:    dropPolicy,
	}
	if err := queue.Enqueue(context.Background(), msg); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	delivery, err := queue.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := delivery.Ack(context.Background()); err != nil {
		t.Fatalf("ack: %v", err)
	}

	// The key is free again once the first delivery completed.
	if err := queue.Enqueue(context.Background(), msg); err != nil {
		t.Fatalf("re-enqueue after ack: %v", err)
	}
	if _, err := queue.Dequeue(context.Background()); err != nil {
		t.Fatalf("dequeue after ack: %v", err)
	}
}

func TestMemoryQueue_NackRequeuesWithBumpedAttempt(t *testing.T) {
	policy := gojob.RetryPolicy{MaxAttempts: 2}
	queue := NewMemoryQueue(4, policy)
	defer queue.Close()

	dequeuer := gojob.NewDequeuerAdapter(queue, policy)
	if err := queue.Enqueue(context.Background(), &job.ExecutionMessage{
		JobID: gojob.JobIDPaymentSweep,
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	delivery, err := dequeuer.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := delivery.Nack(context.Background(), core.JobNackOptions{Requeue: true}); err != nil {
		t.Fatalf("nack: %v", err)
	}

	redelivered, err := dequeuer.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue redelivery: %v", err)
	}

	// Second attempt hits MaxAttempts, so this nack must not requeue.
	if err := redelivered.Nack(context.Background(), core.JobNackOptions{Requeue: true}); err != nil {
		t.Fatalf("final nack: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := dequeuer.Dequeue(ctx); err == nil {
		t.Fatalf("expected no further redelivery after max attempts")
	}
}

func TestMemoryQueue_DequeueHonorsContext(t *testing.T) {
	queue := NewMemoryQueue(1, gojob.RetryPolicy{})
	defer queue.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := queue.Dequeue(ctx); err == nil {
		t.Fatalf("expected context deadline error on empty queue")
	}
}

func TestMemoryQueue_RejectsWhenFull(t *testing.T) {
	queue := NewMemoryQueue(1, gojob.RetryPolicy{})
	defer queue.Close()

	if err := queue.Enqueue(context.Background(), &job.ExecutionMessage{JobID: "a"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := queue.Enqueue(context.Background(), &job.ExecutionMessage{JobID: "b"}); err == nil {
		t.Fatalf("expected full queue to reject")
	}
}
