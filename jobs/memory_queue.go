package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"

	"github.com/xdose/go-ingest/adapters/gojob"
)

const dropPolicy = job.DeduplicationPolicy("drop")

// MemoryQueue is a channel-backed go-job queue for single-process
// deployments, consumed through the gojob adapters. Messages carrying the
// drop dedup policy collapse on their idempotency key while the first copy
// is still pending. Requeued deliveries come back after their nack delay
// with the attempt counter bumped, bounded by the retry policy.
type MemoryQueue struct {
	ch     chan queuedMessage
	policy gojob.RetryPolicy

	mu      sync.Mutex
	closed  bool
	pending map[string]struct{}
}

type queuedMessage struct {
	msg     *job.ExecutionMessage
	attempt int
}

func NewMemoryQueue(capacity int, policy gojob.RetryPolicy) *MemoryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemoryQueue{
		ch:      make(chan queuedMessage, capacity),
		policy:  policy,
		pending: map[string]struct{}{},
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	if q == nil {
		return fmt.Errorf("jobs: memory queue is not configured")
	}
	if msg == nil {
		return fmt.Errorf("jobs: execution message is required")
	}
	return q.push(queuedMessage{msg: msg, attempt: 1}, true)
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (queue.Delivery, error) {
	if q == nil {
		return nil, fmt.Errorf("jobs: memory queue is not configured")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case entry, ok := <-q.ch:
		if !ok {
			return nil, fmt.Errorf("jobs: memory queue is closed")
		}
		return &memoryDelivery{queue: q, entry: entry}, nil
	}
}

// Close stops accepting new messages. In-flight deliveries may still ack.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// push drops duplicates for fresh enqueues only; a requeue of an in-flight
// message keeps its claim on the dedup key.
func (q *MemoryQueue) push(entry queuedMessage, fresh bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("jobs: memory queue is closed")
	}
	key := dedupKey(entry.msg)
	if fresh && key != "" {
		if _, exists := q.pending[key]; exists {
			return nil
		}
	}
	select {
	case q.ch <- entry:
		if key != "" {
			q.pending[key] = struct{}{}
		}
		return nil
	default:
		return fmt.Errorf("jobs: memory queue is full")
	}
}

func (q *MemoryQueue) release(msg *job.ExecutionMessage) {
	key := dedupKey(msg)
	if key == "" {
		return
	}
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}

func dedupKey(msg *job.ExecutionMessage) string {
	if msg == nil || msg.DedupPolicy != dropPolicy {
		return ""
	}
	return msg.IdempotencyKey
}

type memoryDelivery struct {
	queue *MemoryQueue
	entry queuedMessage
}

func (d *memoryDelivery) Message() *job.ExecutionMessage {
	if d == nil {
		return nil
	}
	return d.entry.msg
}

func (d *memoryDelivery) Ack(_ context.Context) error {
	if d == nil || d.queue == nil {
		return fmt.Errorf("jobs: delivery is not configured")
	}
	d.queue.release(d.entry.msg)
	return nil
}

func (d *memoryDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	if d == nil || d.queue == nil {
		return fmt.Errorf("jobs: delivery is not configured")
	}
	normalized := d.queue.policy.NormalizeAttempt(gojob.FromNackOptions(opts), d.entry.attempt)
	if !normalized.Requeue {
		d.queue.release(d.entry.msg)
		return nil
	}
	next := queuedMessage{msg: d.entry.msg, attempt: d.entry.attempt + 1}
	if normalized.Delay <= 0 {
		return d.queue.push(next, false)
	}
	time.AfterFunc(normalized.Delay, func() {
		_ = d.queue.push(next, false)
	})
	return nil
}

var (
	_ queue.Enqueuer = (*MemoryQueue)(nil)
	_ queue.Dequeuer = (*MemoryQueue)(nil)
	_ queue.Delivery = (*memoryDelivery)(nil)
)
