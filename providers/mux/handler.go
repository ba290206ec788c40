package mux

import (
	"context"
	"errors"
	"net/http"

	"github.com/xdose/go-ingest/core"
)

// WebhookHandler reconciles verified asset callbacks onto video rows.
//
// Two-phase correlation: the upload.asset_created callback is the only one
// carrying the upload id, so it both back-fills the permanent asset id and
// applies the status in a single update keyed by upload id. Every later
// callback is keyed by asset id alone.
type WebhookHandler struct {
	Videos core.VideoStore
	Logger core.Logger
}

func NewWebhookHandler(videos core.VideoStore, logger core.Logger) *WebhookHandler {
	return &WebhookHandler{Videos: videos, Logger: logger}
}

func (h *WebhookHandler) Handle(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if h == nil || h.Videos == nil {
		return core.InboundResult{
			Accepted:   false,
			StatusCode: http.StatusInternalServerError,
			Response:   map[string]any{"error": "Internal server error"},
		}, core.NewInternalError("mux: video store is required")
	}

	event, err := ParseEvent(req.Body)
	if err != nil {
		message := "Missing asset id"
		if errors.Is(err, ErrInvalidPayload) {
			message = "Invalid JSON"
		}
		return core.InboundResult{
			Accepted:   false,
			StatusCode: http.StatusBadRequest,
			Response:   map[string]any{"error": message},
		}, err
	}

	metadata := map[string]any{
		"event_type":  event.Type,
		"external_id": event.AssetID,
	}

	status, handled := ClassifyEvent(event.Type)
	if !handled {
		core.LogInfo(ctx, h.Logger, "unhandled asset event acknowledged", map[string]any{
			"provider_id": req.ProviderID,
			"event_type":  event.Type,
			"asset_id":    event.AssetID,
		})
		return core.InboundResult{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Response:   map[string]any{"received": true},
			Metadata:   metadata,
		}, nil
	}

	var affected int64
	if event.UploadID != "" {
		affected, err = h.Videos.AttachAssetByUploadID(ctx, event.UploadID, event.AssetID, status, event.PlaybackID)
	} else {
		affected, err = h.Videos.UpdateStatusByAssetID(ctx, event.AssetID, status, event.PlaybackID)
	}
	if err != nil {
		return core.InboundResult{
			Accepted:   false,
			StatusCode: http.StatusInternalServerError,
			Response:   map[string]any{"error": "Internal server error"},
			Metadata:   metadata,
		}, core.WrapInternalError(err, "mux: reconcile asset status")
	}

	// Zero matches is acknowledged anyway: the row may not be committed yet
	// and the provider must not retry forever over it.
	if affected == 0 {
		core.LogWarn(ctx, h.Logger, "asset event matched no tracked video", map[string]any{
			"provider_id": req.ProviderID,
			"event_type":  event.Type,
			"asset_id":    event.AssetID,
			"upload_id":   event.UploadID,
		})
	} else {
		core.LogInfo(ctx, h.Logger, "asset status reconciled", map[string]any{
			"provider_id": req.ProviderID,
			"event_type":  event.Type,
			"asset_id":    event.AssetID,
			"status":      string(status),
		})
	}

	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Response:   map[string]any{"received": true},
		Metadata:   metadata,
	}, nil
}
