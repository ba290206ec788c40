package webhooks

import (
	"strings"
)

// ProviderWebhookTemplate pairs a provider id with its verification strategy.
// Each integration picks its named strategy explicitly; there is no shared
// verifier with a mode flag to misconfigure.
type ProviderWebhookTemplate struct {
	ProviderID string
	Verifier   Verifier
}

// NewMuxWebhookTemplate verifies the video host's "t=...,v1=..." scheme:
// HMAC-SHA256 over "<timestamp>.<raw body>", hex encoded.
func NewMuxWebhookTemplate(secret string) ProviderWebhookTemplate {
	return ProviderWebhookTemplate{
		ProviderID: "mux",
		Verifier: TimestampHMACVerifier{
			Header: "Mux-Signature",
			Secret: strings.TrimSpace(secret),
		},
	}
}

// NewNowPaymentsWebhookTemplate verifies the payment gateway's IPN scheme:
// HMAC-SHA512 over the raw body alone, hex encoded. The header is mandatory;
// an unsigned IPN is rejected rather than processed unauthenticated.
func NewNowPaymentsWebhookTemplate(secret string) ProviderWebhookTemplate {
	return ProviderWebhookTemplate{
		ProviderID: "nowpayments",
		Verifier: BodyHMACVerifier{
			Header:    "X-Nowpayments-Sig",
			Secret:    strings.TrimSpace(secret),
			Algorithm: AlgorithmSHA512,
		},
	}
}
