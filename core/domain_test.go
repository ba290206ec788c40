package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseVideoStatus(t *testing.T) {
	cases := []struct {
		input   string
		want    VideoStatus
		wantErr bool
	}{
		{input: "pending", want: VideoStatusPending},
		{input: "READY", want: VideoStatusReady},
		{input: " errored ", want: VideoStatusErrored},
		{input: "preparing", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseVideoStatus(tc.input)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidVideoStatus) {
				t.Fatalf("expected invalid video status error for %q, got %v", tc.input, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parse %q: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("expected %q for %q, got %q", tc.want, tc.input, got)
		}
	}
}

func TestParsePaymentStatus_RejectsUnknownStates(t *testing.T) {
	known := []PaymentStatus{
		PaymentStatusWaiting,
		PaymentStatusConfirming,
		PaymentStatusConfirmed,
		PaymentStatusSending,
		PaymentStatusPartiallyPaid,
		PaymentStatusFinished,
		PaymentStatusFailed,
		PaymentStatusExpired,
	}
	for _, status := range known {
		got, err := ParsePaymentStatus(string(status))
		if err != nil {
			t.Fatalf("parse %q: %v", status, err)
		}
		if got != status {
			t.Fatalf("expected %q, got %q", status, got)
		}
	}

	if _, err := ParsePaymentStatus("some_new_status_v2"); !errors.Is(err, ErrInvalidPaymentStatus) {
		t.Fatalf("expected invalid payment status error, got %v", err)
	}
}

func TestPaymentStatusTerminal(t *testing.T) {
	if PaymentStatusConfirming.Terminal() {
		t.Fatalf("confirming must not be terminal")
	}
	for _, status := range []PaymentStatus{PaymentStatusFinished, PaymentStatusFailed, PaymentStatusExpired} {
		if !status.Terminal() {
			t.Fatalf("expected %q to be terminal", status)
		}
	}
}

func TestOrderRefRoundTrip(t *testing.T) {
	issued := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	ref := OrderRef{IssuedAt: issued, CreatorID: "c42", Kind: "tip"}

	parsed, err := ParseOrderID(ref.OrderID())
	if err != nil {
		t.Fatalf("parse order id: %v", err)
	}
	if parsed.CreatorID != "c42" {
		t.Fatalf("expected creator c42, got %q", parsed.CreatorID)
	}
	if parsed.Kind != "tip" {
		t.Fatalf("expected kind tip, got %q", parsed.Kind)
	}
	if !parsed.IssuedAt.Equal(issued) {
		t.Fatalf("expected issued %v, got %v", issued, parsed.IssuedAt)
	}
}

func TestParseOrderID_DefaultsKind(t *testing.T) {
	parsed, err := ParseOrderID("xdose_1700000000000_usr_7")
	if err != nil {
		t.Fatalf("parse order id: %v", err)
	}
	if parsed.CreatorID != "usr" {
		t.Fatalf("expected creator segment usr, got %q", parsed.CreatorID)
	}
	if parsed.Kind != "7" {
		t.Fatalf("expected kind segment 7, got %q", parsed.Kind)
	}
}

func TestParseOrderID_Invalid(t *testing.T) {
	for _, orderID := range []string{"", "other_123_usr", "xdose_notatime_usr", "xdose_123_"} {
		if _, err := ParseOrderID(orderID); !errors.Is(err, ErrInvalidOrderID) {
			t.Fatalf("expected invalid order id error for %q, got %v", orderID, err)
		}
	}
}
