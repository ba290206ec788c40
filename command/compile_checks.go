package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[GrantAccessMessage]     = (*GrantAccessCommand)(nil)
	_ gocmd.Commander[FinalizePaymentMessage] = (*FinalizePaymentCommand)(nil)
	_ gocmd.Commander[ClosePaymentMessage]    = (*ClosePaymentCommand)(nil)
)
