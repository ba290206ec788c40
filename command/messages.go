package command

import (
	"fmt"
	"strings"

	"github.com/xdose/go-ingest/core"
)

const (
	TypeGrantAccess     = "ingest.command.payment.grant_access"
	TypeFinalizePayment = "ingest.command.payment.finalize"
	TypeClosePayment    = "ingest.command.payment.close"
)

type GrantAccessMessage struct {
	PaymentID string
}

func (GrantAccessMessage) Type() string { return TypeGrantAccess }

func (m GrantAccessMessage) Validate() error {
	if strings.TrimSpace(m.PaymentID) == "" {
		return fmt.Errorf("command: payment id is required")
	}
	return nil
}

type FinalizePaymentMessage struct {
	PaymentID string
}

func (FinalizePaymentMessage) Type() string { return TypeFinalizePayment }

func (m FinalizePaymentMessage) Validate() error {
	if strings.TrimSpace(m.PaymentID) == "" {
		return fmt.Errorf("command: payment id is required")
	}
	return nil
}

type ClosePaymentMessage struct {
	PaymentID string
	Status    core.PaymentStatus
}

func (ClosePaymentMessage) Type() string { return TypeClosePayment }

func (m ClosePaymentMessage) Validate() error {
	if strings.TrimSpace(m.PaymentID) == "" {
		return fmt.Errorf("command: payment id is required")
	}
	if !m.Status.Terminal() || m.Status == core.PaymentStatusFinished {
		return fmt.Errorf("command: %q is not a closing status", m.Status)
	}
	return nil
}
