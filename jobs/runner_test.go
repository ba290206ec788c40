package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/xdose/go-ingest/adapters/gojob"
	"github.com/xdose/go-ingest/core"
)

type fakeDelivery struct {
	msg      *core.JobExecutionMessage
	acked    bool
	nacked   bool
	nackOpts core.JobNackOptions
}

func (d *fakeDelivery) Message() *core.JobExecutionMessage { return d.msg }

func (d *fakeDelivery) Ack(_ context.Context) error {
	d.acked = true
	return nil
}

func (d *fakeDelivery) Nack(_ context.Context, opts core.JobNackOptions) error {
	d.nacked = true
	d.nackOpts = opts
	return nil
}

type fakeDequeuer struct {
	deliveries []core.JobDelivery
	err        error
}

func (q *fakeDequeuer) Dequeue(_ context.Context) (core.JobDelivery, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(q.deliveries) == 0 {
		return nil, context.Canceled
	}
	next := q.deliveries[0]
	q.deliveries = q.deliveries[1:]
	return next, nil
}

func newTestRunner(t *testing.T, dequeuer core.JobDequeuer, payments *fakeSweepPaymentStore, gateway *fakeGateway) *Runner {
	t.Helper()
	sweeper, err := NewPaymentSweeper(payments, gateway, &fakeSweepDispatcher{}, nil)
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	runner, err := NewRunner(dequeuer, sweeper, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return runner
}

func TestRunner_RunOnce_AcksSuccessfulSweep(t *testing.T) {
	delivery := &fakeDelivery{msg: &core.JobExecutionMessage{JobID: gojob.JobIDPaymentSweep}}
	payments := &fakeSweepPaymentStore{stale: []core.Payment{
		stalePayment("pay_1", core.PaymentStatusWaiting),
	}}
	gateway := &fakeGateway{statuses: map[string]string{"pay_1": "finished"}}

	runner := newTestRunner(t, &fakeDequeuer{deliveries: []core.JobDelivery{delivery}}, payments, gateway)
	if err := runner.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if !delivery.acked {
		t.Fatalf("expected delivery to be acked")
	}
	if delivery.nacked {
		t.Fatalf("did not expect a nack")
	}
	if payments.updatedStatus["pay_1"] != core.PaymentStatusFinished {
		t.Fatalf("expected sweep to run, got %v", payments.updatedStatus)
	}
}

func TestRunner_RunOnce_NacksFailedSweepWithRequeue(t *testing.T) {
	delivery := &fakeDelivery{msg: &core.JobExecutionMessage{JobID: gojob.JobIDPaymentSweep}}
	payments := &fakeSweepPaymentStore{listErr: errors.New("db down")}

	runner := newTestRunner(t, &fakeDequeuer{deliveries: []core.JobDelivery{delivery}}, payments, &fakeGateway{})
	if err := runner.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if delivery.acked {
		t.Fatalf("did not expect an ack")
	}
	if !delivery.nacked {
		t.Fatalf("expected delivery to be nacked")
	}
	if !delivery.nackOpts.Requeue {
		t.Fatalf("expected failed sweep to requeue")
	}
	if delivery.nackOpts.Delay != runner.NackDelay {
		t.Fatalf("expected nack delay %s, got %s", runner.NackDelay, delivery.nackOpts.Delay)
	}
}

func TestRunner_RunOnce_DropsUnknownJob(t *testing.T) {
	delivery := &fakeDelivery{msg: &core.JobExecutionMessage{JobID: "ingest.unknown"}}
	runner := newTestRunner(t, &fakeDequeuer{deliveries: []core.JobDelivery{delivery}}, &fakeSweepPaymentStore{}, &fakeGateway{})

	if err := runner.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if !delivery.nacked {
		t.Fatalf("expected unknown job to be nacked")
	}
	if delivery.nackOpts.Requeue {
		t.Fatalf("unknown jobs must not requeue")
	}
}

func TestRunner_Run_StopsOnCancellation(t *testing.T) {
	runner := newTestRunner(t, &fakeDequeuer{}, &fakeSweepPaymentStore{}, &fakeGateway{})

	err := runner.Run(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRunner_RequiresDependencies(t *testing.T) {
	sweeper, err := NewPaymentSweeper(&fakeSweepPaymentStore{}, &fakeGateway{}, nil, nil)
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	if _, err := NewRunner(nil, sweeper, nil); err == nil {
		t.Fatalf("expected error for missing dequeuer")
	}
	if _, err := NewRunner(&fakeDequeuer{}, nil, nil); err == nil {
		t.Fatalf("expected error for missing sweeper")
	}
}
