package command

import (
	"context"
	"errors"
	"testing"

	"github.com/xdose/go-ingest/core"
)

type fakeLifecycle struct {
	grantCalls    int
	finalizeCalls int
	closeCalls    int

	lastPaymentID string
	lastStatus    core.PaymentStatus
	err           error
}

func (s *fakeLifecycle) GrantAccess(_ context.Context, paymentID string) (core.AccessGrant, error) {
	s.grantCalls++
	s.lastPaymentID = paymentID
	return core.AccessGrant{PaymentID: paymentID}, s.err
}

func (s *fakeLifecycle) FinalizePayment(_ context.Context, paymentID string) error {
	s.finalizeCalls++
	s.lastPaymentID = paymentID
	return s.err
}

func (s *fakeLifecycle) ClosePayment(_ context.Context, paymentID string, status core.PaymentStatus) error {
	s.closeCalls++
	s.lastPaymentID = paymentID
	s.lastStatus = status
	return s.err
}

func TestFinalizePaymentCommand(t *testing.T) {
	service := &fakeLifecycle{}
	cmd := NewFinalizePaymentCommand(service)

	if err := cmd.Execute(context.Background(), FinalizePaymentMessage{PaymentID: "pay_abc"}); err != nil {
		t.Fatalf("execute finalize: %v", err)
	}
	if service.finalizeCalls != 1 || service.lastPaymentID != "pay_abc" {
		t.Fatalf("expected finalize call for pay_abc, got %+v", service)
	}
}

func TestFinalizePaymentCommand_RejectsEmptyID(t *testing.T) {
	service := &fakeLifecycle{}
	cmd := NewFinalizePaymentCommand(service)

	if err := cmd.Execute(context.Background(), FinalizePaymentMessage{}); err == nil {
		t.Fatalf("expected validation error")
	}
	if service.finalizeCalls != 0 {
		t.Fatalf("service must not run on invalid message")
	}
}

func TestClosePaymentCommand(t *testing.T) {
	service := &fakeLifecycle{}
	cmd := NewClosePaymentCommand(service)

	msg := ClosePaymentMessage{PaymentID: "pay_abc", Status: core.PaymentStatusFailed}
	if err := cmd.Execute(context.Background(), msg); err != nil {
		t.Fatalf("execute close: %v", err)
	}
	if service.closeCalls != 1 || service.lastStatus != core.PaymentStatusFailed {
		t.Fatalf("expected close with failed status, got %+v", service)
	}
}

func TestClosePaymentMessage_ValidateRejectsNonClosingStatus(t *testing.T) {
	cases := []core.PaymentStatus{
		core.PaymentStatusWaiting,
		core.PaymentStatusSending,
		core.PaymentStatusFinished,
		"",
	}
	for _, status := range cases {
		msg := ClosePaymentMessage{PaymentID: "pay_abc", Status: status}
		if err := msg.Validate(); err == nil {
			t.Fatalf("%q: expected validation failure", status)
		}
	}
}

func TestGrantAccessCommand(t *testing.T) {
	service := &fakeLifecycle{}
	cmd := NewGrantAccessCommand(service)

	if err := cmd.Execute(context.Background(), GrantAccessMessage{PaymentID: "pay_abc"}); err != nil {
		t.Fatalf("execute grant: %v", err)
	}
	if service.grantCalls != 1 {
		t.Fatalf("expected one grant call, got %d", service.grantCalls)
	}
}

func TestCommands_RequireService(t *testing.T) {
	var finalize *FinalizePaymentCommand
	if err := finalize.Execute(context.Background(), FinalizePaymentMessage{PaymentID: "pay_abc"}); err == nil {
		t.Fatalf("expected dependency error from nil command")
	}
	grant := NewGrantAccessCommand(nil)
	if err := grant.Execute(context.Background(), GrantAccessMessage{PaymentID: "pay_abc"}); err == nil {
		t.Fatalf("expected dependency error from nil service")
	}
}

func TestCommands_PropagateServiceFailure(t *testing.T) {
	service := &fakeLifecycle{err: errors.New("store unavailable")}
	cmd := NewFinalizePaymentCommand(service)
	if err := cmd.Execute(context.Background(), FinalizePaymentMessage{PaymentID: "pay_abc"}); err == nil {
		t.Fatalf("expected service failure to propagate")
	}
}
