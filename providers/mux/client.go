package mux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xdose/go-ingest/core"
)

const maxAPIResponseBytes = 1 << 20

// Client calls the video provider's REST API with basic auth.
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
	if strings.TrimSpace(cfg.TokenID) == "" || strings.TrimSpace(cfg.TokenSecret) == "" {
		return nil, fmt.Errorf("mux: api credentials are required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("mux: base url is required")
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

// DirectUpload is an authenticated upload slot. Its ID is the upload id the
// asset callbacks later correlate on; URL is handed to the browser for the
// actual bytes.
type DirectUpload struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	AssetID   string `json:"asset_id"`
	Status    string `json:"status"`
	Timeout   int64  `json:"timeout"`
	CORSValue string `json:"cors_origin"`
}

type createUploadRequest struct {
	CORSOrigin string           `json:"cors_origin"`
	NewAsset   newAssetSettings `json:"new_asset_settings"`
	Timeout    int64            `json:"timeout,omitempty"`
}

type newAssetSettings struct {
	PlaybackPolicy []string `json:"playback_policy"`
	Passthrough    string   `json:"passthrough,omitempty"`
}

type uploadEnvelope struct {
	Data DirectUpload `json:"data"`
}

type CreateUploadInput struct {
	CORSOrigin  string
	Passthrough string
	Timeout     time.Duration
}

func (c *Client) CreateDirectUpload(ctx context.Context, in CreateUploadInput) (DirectUpload, error) {
	if c == nil {
		return DirectUpload{}, fmt.Errorf("mux: client is not configured")
	}

	payload := createUploadRequest{
		CORSOrigin: strings.TrimSpace(in.CORSOrigin),
		NewAsset: newAssetSettings{
			PlaybackPolicy: []string{"public"},
			Passthrough:    strings.TrimSpace(in.Passthrough),
		},
	}
	if payload.CORSOrigin == "" {
		payload.CORSOrigin = "*"
	}
	if in.Timeout > 0 {
		payload.Timeout = int64(in.Timeout / time.Second)
	}

	var envelope uploadEnvelope
	if err := c.do(ctx, http.MethodPost, "/video/v1/uploads", payload, &envelope); err != nil {
		return DirectUpload{}, err
	}
	if strings.TrimSpace(envelope.Data.ID) == "" {
		return DirectUpload{}, core.NewInternalError("mux: upload response is missing an id")
	}
	return envelope.Data, nil
}

// Asset is the provider's view of a processed video.
type Asset struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	UploadID    string       `json:"upload_id"`
	PlaybackIDs []playbackID `json:"playback_ids"`
}

// PlaybackID returns the first playback id, empty when none exist yet.
func (a Asset) PlaybackID() string {
	if len(a.PlaybackIDs) == 0 {
		return ""
	}
	return strings.TrimSpace(a.PlaybackIDs[0].ID)
}

func (c *Client) GetAsset(ctx context.Context, assetID string) (Asset, error) {
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return Asset{}, core.NewBadInputError("mux: asset id is required")
	}
	var envelope struct {
		Data Asset `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/video/v1/assets/"+assetID, nil, &envelope); err != nil {
		return Asset{}, err
	}
	return envelope.Data, nil
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
			return fmt.Errorf("mux: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(requestCtx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("mux: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.cfg.TokenID, c.cfg.TokenSecret)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return core.WrapInternalError(err, "mux: call api")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxAPIResponseBytes+1))
	if err != nil {
		return core.WrapInternalError(err, "mux: read api response")
	}
	if len(raw) > maxAPIResponseBytes {
		return core.NewInternalError("mux: api response exceeds size limit")
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return core.NewInternalError(fmt.Sprintf("mux: api returned status %d", res.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return core.WrapInternalError(err, "mux: decode api response")
	}
	return nil
}
