package nowpayments

import (
	"testing"

	"github.com/xdose/go-ingest/core"
)

func TestParseNotification(t *testing.T) {
	body := []byte(`{
		"payment_id": 4945313421,
		"payment_status": "FINISHED",
		"order_id": "xdose_1700000000000_c42_tip",
		"pay_amount": 0.0021,
		"pay_currency": "BTC",
		"price_amount": 50,
		"price_currency": "USD",
		"purchase_id": "prc_9"
	}`)

	notification, err := ParseNotification(body)
	if err != nil {
		t.Fatalf("parse notification: %v", err)
	}
	if notification.PaymentID != "4945313421" {
		t.Fatalf("expected numeric payment id preserved as string, got %q", notification.PaymentID)
	}
	if notification.RawStatus != "finished" {
		t.Fatalf("expected lowercased status, got %q", notification.RawStatus)
	}
	if notification.PayCurrency != "btc" || notification.PriceCurrency != "usd" {
		t.Fatalf("expected lowercased currencies, got %q / %q", notification.PayCurrency, notification.PriceCurrency)
	}
	status, known := notification.Status()
	if !known || status != core.PaymentStatusFinished {
		t.Fatalf("expected finished status, got %q known=%v", status, known)
	}
}

func TestParseNotification_StringPaymentID(t *testing.T) {
	body := []byte(`{
		"payment_id": "pay_abc",
		"invoice_id": 5058293184,
		"payment_status": "waiting",
		"order_id": "xdose_1700000000000_c42_tip"
	}`)

	notification, err := ParseNotification(body)
	if err != nil {
		t.Fatalf("parse notification: %v", err)
	}
	if notification.PaymentID != "pay_abc" {
		t.Fatalf("expected string payment id, got %q", notification.PaymentID)
	}
	if notification.RawStatus != "waiting" {
		t.Fatalf("expected waiting status, got %q", notification.RawStatus)
	}
}

func TestParseNotification_StructuredPaymentIDRejected(t *testing.T) {
	_, err := ParseNotification([]byte(`{"payment_id":{"nested":1},"payment_status":"waiting"}`))
	if err == nil {
		t.Fatalf("expected structured payment id to fail decoding")
	}
}

func TestParseNotification_MalformedJSON(t *testing.T) {
	_, err := ParseNotification([]byte(`{"payment_id":`))
	if err == nil {
		t.Fatalf("expected parse failure")
	}
	if core.HTTPStatus(err) != 500 {
		t.Fatalf("expected malformed payload to map to 500, got %d", core.HTTPStatus(err))
	}
}

func TestParseNotification_MissingPaymentID(t *testing.T) {
	if _, err := ParseNotification([]byte(`{"payment_status":"waiting"}`)); err == nil {
		t.Fatalf("expected missing payment id error")
	}
}

func TestNotification_StatusUnknown(t *testing.T) {
	notification := Notification{PaymentID: "pay_abc", RawStatus: "refunding"}
	if _, known := notification.Status(); known {
		t.Fatalf("expected unknown status to be flagged")
	}
}
