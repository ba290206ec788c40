package command

import (
	"context"

	"github.com/xdose/go-ingest/core"
)

// LifecycleService is implemented by payments.Lifecycle.
type LifecycleService interface {
	GrantAccess(ctx context.Context, paymentID string) (core.AccessGrant, error)
	FinalizePayment(ctx context.Context, paymentID string) error
	ClosePayment(ctx context.Context, paymentID string, status core.PaymentStatus) error
}

type GrantAccessCommand struct {
	service LifecycleService
}

func NewGrantAccessCommand(service LifecycleService) *GrantAccessCommand {
	return &GrantAccessCommand{service: service}
}

func (c *GrantAccessCommand) Execute(ctx context.Context, msg GrantAccessMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: lifecycle service is required")
	}
	if err := msg.Validate(); err != nil {
		return commandInvalidInputError(err.Error())
	}
	_, err := c.service.GrantAccess(ctx, msg.PaymentID)
	return err
}

type FinalizePaymentCommand struct {
	service LifecycleService
}

func NewFinalizePaymentCommand(service LifecycleService) *FinalizePaymentCommand {
	return &FinalizePaymentCommand{service: service}
}

func (c *FinalizePaymentCommand) Execute(ctx context.Context, msg FinalizePaymentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: lifecycle service is required")
	}
	if err := msg.Validate(); err != nil {
		return commandInvalidInputError(err.Error())
	}
	return c.service.FinalizePayment(ctx, msg.PaymentID)
}

type ClosePaymentCommand struct {
	service LifecycleService
}

func NewClosePaymentCommand(service LifecycleService) *ClosePaymentCommand {
	return &ClosePaymentCommand{service: service}
}

func (c *ClosePaymentCommand) Execute(ctx context.Context, msg ClosePaymentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: lifecycle service is required")
	}
	if err := msg.Validate(); err != nil {
		return commandInvalidInputError(err.Error())
	}
	return c.service.ClosePayment(ctx, msg.PaymentID, msg.Status)
}
