package command

import (
	"context"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
)

// Dispatcher decouples webhook handlers and jobs from the message bus so
// tests can capture dispatched lifecycle transitions.
type Dispatcher interface {
	GrantAccess(ctx context.Context, msg GrantAccessMessage) error
	FinalizePayment(ctx context.Context, msg FinalizePaymentMessage) error
	ClosePayment(ctx context.Context, msg ClosePaymentMessage) error
}

// BusDispatcher routes messages through the process-wide command dispatcher.
// Subscribe must have run before the first dispatch.
type BusDispatcher struct{}

func (BusDispatcher) GrantAccess(ctx context.Context, msg GrantAccessMessage) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func (BusDispatcher) FinalizePayment(ctx context.Context, msg FinalizePaymentMessage) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func (BusDispatcher) ClosePayment(ctx context.Context, msg ClosePaymentMessage) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

// Subscribe registers every payment lifecycle command against the dispatcher
// and returns the subscriptions so callers can unsubscribe on shutdown.
func Subscribe(service LifecycleService) []commanddispatcher.Subscription {
	return []commanddispatcher.Subscription{
		commanddispatcher.SubscribeCommand[GrantAccessMessage](NewGrantAccessCommand(service)),
		commanddispatcher.SubscribeCommand[FinalizePaymentMessage](NewFinalizePaymentCommand(service)),
		commanddispatcher.SubscribeCommand[ClosePaymentMessage](NewClosePaymentCommand(service)),
	}
}
