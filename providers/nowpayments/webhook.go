package nowpayments

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/xdose/go-ingest/core"
)

// externalID tolerates the gateway sending ids as either a JSON number or a
// JSON string. Numbers keep their exact digits.
type externalID string

func (id *externalID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*id = externalID(value)
		return nil
	}
	var value json.Number
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return err
	}
	*id = externalID(value.String())
	return nil
}

// ipnEnvelope is the gateway's notification shape. Ids arrive as numbers on
// crypto payments and as opaque strings elsewhere, so both decode.
type ipnEnvelope struct {
	PaymentID     externalID `json:"payment_id"`
	InvoiceID     externalID `json:"invoice_id"`
	PaymentStatus string     `json:"payment_status"`
	OrderID       string     `json:"order_id"`
	PayAmount     float64    `json:"pay_amount"`
	PayCurrency   string     `json:"pay_currency"`
	PriceAmount   float64    `json:"price_amount"`
	PriceCurrency string     `json:"price_currency"`
	PurchaseID    string     `json:"purchase_id"`
	OutcomeAmount float64    `json:"outcome_amount"`
	OutcomeCCY    string     `json:"outcome_currency"`
}

// Notification is the normalized IPN the handler consumes. RawStatus keeps
// the gateway's wording for statuses outside the known vocabulary.
type Notification struct {
	PaymentID     string
	OrderID       string
	RawStatus     string
	PayAmount     float64
	PayCurrency   string
	PriceAmount   float64
	PriceCurrency string
	PurchaseID    string
}

func ParseNotification(body []byte) (Notification, error) {
	var envelope ipnEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Notification{}, core.WrapInternalError(err, "nowpayments: parse ipn payload")
	}

	notification := Notification{
		PaymentID:     strings.TrimSpace(string(envelope.PaymentID)),
		OrderID:       strings.TrimSpace(envelope.OrderID),
		RawStatus:     strings.TrimSpace(strings.ToLower(envelope.PaymentStatus)),
		PayAmount:     envelope.PayAmount,
		PayCurrency:   strings.TrimSpace(strings.ToLower(envelope.PayCurrency)),
		PriceAmount:   envelope.PriceAmount,
		PriceCurrency: strings.TrimSpace(strings.ToLower(envelope.PriceCurrency)),
		PurchaseID:    strings.TrimSpace(envelope.PurchaseID),
	}
	if notification.PaymentID == "" {
		return Notification{}, core.NewInternalError("nowpayments: ipn payload is missing a payment id")
	}
	return notification, nil
}

// Status maps the raw gateway status onto the closed enum. The second return
// is false for unrecognized statuses; the caller acknowledges those without
// writing, so a new gateway state never corrupts the status column.
func (n Notification) Status() (core.PaymentStatus, bool) {
	status, err := core.ParsePaymentStatus(n.RawStatus)
	if err != nil {
		return "", false
	}
	return status, true
}
