package nowpayments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xdose/go-ingest/core"
)

const maxAPIResponseBytes = 1 << 20

// fallbackPayCurrency absorbs coins the gateway cannot quote; TRC-20 USDT is
// the one ticker the gateway always supports.
const fallbackPayCurrency = "usdttrc20"

// payCurrencyAliases maps user-facing tickers onto the gateway's network
// specific codes.
var payCurrencyAliases = map[string]string{
	"usdt": "usdttrc20",
	"usdc": "usdcmatic",
	"bnb":  "bnbbsc",
}

// Client calls the payment gateway's REST API with api-key auth.
type Client struct {
	cfg            Config
	httpClient     *http.Client
	requestTimeout time.Duration
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.requestTimeout = timeout
		}
	}
}

func NewClient(cfg Config, options ...ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("nowpayments: api key is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("nowpayments: base url is required")
	}
	client := &Client{
		cfg:            cfg,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		requestTimeout: 15 * time.Second,
	}
	for _, option := range options {
		if option != nil {
			option(client)
		}
	}
	return client, nil
}

type CreatePaymentInput struct {
	PriceAmount   float64
	PriceCurrency string
	PayCurrency   string
	OrderID       string
	Description   string
}

type createPaymentRequest struct {
	PriceAmount      float64 `json:"price_amount"`
	PriceCurrency    string  `json:"price_currency"`
	PayCurrency      string  `json:"pay_currency"`
	OrderID          string  `json:"order_id"`
	OrderDescription string  `json:"order_description,omitempty"`
	IPNCallbackURL   string  `json:"ipn_callback_url,omitempty"`
}

// PaymentDetails is the gateway's view of a payment, shared by the create
// and status endpoints.
type PaymentDetails struct {
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
	PayAddress    string      `json:"pay_address"`
	PayAmount     float64     `json:"pay_amount"`
	PayCurrency   string      `json:"pay_currency"`
	PriceAmount   float64     `json:"price_amount"`
	PriceCurrency string      `json:"price_currency"`
	OrderID       string      `json:"order_id"`
	PurchaseID    string      `json:"purchase_id"`
	CreatedAt     string      `json:"created_at"`
	UpdatedAt     string      `json:"updated_at"`
}

type apiError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("nowpayments: api error %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("nowpayments: api returned status %d", e.StatusCode)
}

func (e *apiError) currencyUnavailable() bool {
	if strings.EqualFold(e.Code, "CURRENCY_UNAVAILABLE") {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "currency") &&
		strings.Contains(strings.ToLower(e.Message), "unavailable")
}

// CreatePayment opens a payment on the gateway. When the requested pay
// currency cannot be quoted the call retries once with the fallback ticker
// so the supporter can still check out.
func (c *Client) CreatePayment(ctx context.Context, in CreatePaymentInput) (PaymentDetails, error) {
	if c == nil {
		return PaymentDetails{}, fmt.Errorf("nowpayments: client is not configured")
	}
	if in.PriceAmount <= 0 {
		return PaymentDetails{}, core.NewBadInputError("nowpayments: price amount must be positive")
	}
	if strings.TrimSpace(in.OrderID) == "" {
		return PaymentDetails{}, core.NewBadInputError("nowpayments: order id is required")
	}

	payload := createPaymentRequest{
		PriceAmount:      in.PriceAmount,
		PriceCurrency:    normalizeCurrency(in.PriceCurrency, "usd"),
		PayCurrency:      resolvePayCurrency(in.PayCurrency),
		OrderID:          strings.TrimSpace(in.OrderID),
		OrderDescription: strings.TrimSpace(in.Description),
		IPNCallbackURL:   c.cfg.CallbackURL,
	}

	var details PaymentDetails
	err := c.do(ctx, http.MethodPost, "/payment", payload, &details)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.currencyUnavailable() && payload.PayCurrency != fallbackPayCurrency {
			payload.PayCurrency = fallbackPayCurrency
			err = c.do(ctx, http.MethodPost, "/payment", payload, &details)
		}
	}
	if err != nil {
		return PaymentDetails{}, core.WrapInternalError(err, "nowpayments: create payment")
	}
	if strings.TrimSpace(details.PaymentID.String()) == "" {
		return PaymentDetails{}, core.NewInternalError("nowpayments: payment response is missing a payment id")
	}
	return details, nil
}

// GetPayment polls the gateway for the current payment state.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (PaymentDetails, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return PaymentDetails{}, core.NewBadInputError("nowpayments: payment id is required")
	}
	var details PaymentDetails
	if err := c.do(ctx, http.MethodGet, "/payment/"+paymentID, nil, &details); err != nil {
		return PaymentDetails{}, core.WrapInternalError(err, "nowpayments: get payment")
	}
	return details, nil
}

func (c *Client) do(ctx context.Context, method string, path string, payload any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx := ctx
	cancel := func() {}
	if c.requestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.requestTimeout)
	}
	defer cancel()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("nowpayments: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(requestCtx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("nowpayments: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nowpayments: call api: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxAPIResponseBytes+1))
	if err != nil {
		return fmt.Errorf("nowpayments: read api response: %w", err)
	}
	if len(raw) > maxAPIResponseBytes {
		return fmt.Errorf("nowpayments: api response exceeds size limit")
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return decodeAPIError(res.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("nowpayments: decode api response: %w", err)
	}
	return nil
}

func decodeAPIError(statusCode int, raw []byte) error {
	parsed := struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{}
	_ = json.Unmarshal(raw, &parsed)
	return &apiError{
		StatusCode: statusCode,
		Code:       strings.TrimSpace(parsed.Code),
		Message:    strings.TrimSpace(parsed.Message),
	}
}

func resolvePayCurrency(requested string) string {
	currency := normalizeCurrency(requested, fallbackPayCurrency)
	if alias, ok := payCurrencyAliases[currency]; ok {
		return alias
	}
	return currency
}

func normalizeCurrency(value string, fallback string) string {
	currency := strings.TrimSpace(strings.ToLower(value))
	if currency == "" {
		return fallback
	}
	return currency
}
