package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/xdose/go-ingest/core"
)

// Verifier proves an inbound delivery originated from the declared sender
// before any body bytes are trusted. Implementations must be fail-closed:
// a missing header verifies exactly like a forged one.
type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

const (
	AlgorithmSHA256 = "sha256"
	AlgorithmSHA512 = "sha512"
)

// SignatureHeader is the parsed form of a comma-separated signature header
// such as "t=1712000000,v1=abcdef". Unknown fields are ignored.
type SignatureHeader struct {
	Timestamp string
	V1        string
}

func ParseSignatureHeader(header string) (SignatureHeader, error) {
	parsed := SignatureHeader{}
	for _, field := range strings.Split(header, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(field), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(name) {
		case "t":
			parsed.Timestamp = strings.TrimSpace(value)
		case "v1":
			parsed.V1 = strings.TrimSpace(value)
		}
	}
	if parsed.Timestamp == "" {
		return SignatureHeader{}, fmt.Errorf("webhooks: signature header timestamp field is required")
	}
	if parsed.V1 == "" {
		return SignatureHeader{}, fmt.Errorf("webhooks: signature header v1 field is required")
	}
	return parsed, nil
}

// TimestampHMACVerifier implements the "t=<unix>,v1=<hex>" convention where
// the provider signs "<timestamp>.<raw body>" with HMAC-SHA256. Do not use it
// for providers that sign the body alone; the schemes are not interchangeable
// and mixing them fails every signature silently.
type TimestampHMACVerifier struct {
	Header string
	Secret string
}

func (v TimestampHMACVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	header := strings.TrimSpace(headerValue(req.Headers, v.Header))
	if header == "" {
		return fmt.Errorf("webhooks: %s signature header is required", strings.TrimSpace(v.Header))
	}
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("webhooks: signature secret is required")
	}
	parsed, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(parsed.Timestamp))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(req.Body)
	expected := mac.Sum(nil)

	return compareHexSignature(parsed.V1, expected)
}

// BodyHMACVerifier implements the raw-body convention: a single hex digest
// header computed over the body alone, with no timestamp component.
type BodyHMACVerifier struct {
	Header    string
	Secret    string
	Algorithm string // sha256 | sha512
}

func (v BodyHMACVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	signature := strings.TrimSpace(headerValue(req.Headers, v.Header))
	if signature == "" {
		return fmt.Errorf("webhooks: %s signature header is required", strings.TrimSpace(v.Header))
	}
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("webhooks: signature secret is required")
	}

	var constructor func() hash.Hash
	switch strings.ToLower(strings.TrimSpace(v.Algorithm)) {
	case AlgorithmSHA512:
		constructor = sha512.New
	case AlgorithmSHA256, "":
		constructor = sha256.New
	default:
		return fmt.Errorf("webhooks: unsupported signature algorithm %q", v.Algorithm)
	}

	mac := hmac.New(constructor, []byte(secret))
	_, _ = mac.Write(req.Body)
	expected := mac.Sum(nil)

	return compareHexSignature(signature, expected)
}

// compareHexSignature decodes the presented digest and compares it with
// subtle.ConstantTimeCompare, which checks length first and never
// short-circuits on the first differing byte.
func compareHexSignature(presented string, expected []byte) error {
	decoded, err := hex.DecodeString(strings.TrimSpace(presented))
	if err != nil {
		return fmt.Errorf("webhooks: decode hex signature: %w", err)
	}
	if subtle.ConstantTimeCompare(decoded, expected) != 1 {
		return fmt.Errorf("webhooks: signature verification failed")
	}
	return nil
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
