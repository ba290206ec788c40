package mux

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xdose/go-ingest/core"
)

// ErrInvalidPayload marks bodies that do not decode as a webhook envelope,
// as opposed to well-formed events missing an asset id.
var ErrInvalidPayload = errors.New("mux: invalid webhook payload")

const (
	EventVideoAssetCreated       = "video.asset.created"
	EventVideoAssetReady         = "video.asset.ready"
	EventVideoAssetErrored       = "video.asset.errored"
	EventVideoUploadAssetCreated = "video.upload.asset_created"
)

// webhookEnvelope is the provider's event shape. data.id is the asset id on
// asset-scoped events and the upload id on upload-scoped ones; the
// upload.asset_created event is the only one carrying both, and is where the
// permanent asset id is first learned.
type webhookEnvelope struct {
	Type string       `json:"type"`
	Data envelopeData `json:"data"`
}

type envelopeData struct {
	ID          string       `json:"id"`
	AssetID     string       `json:"asset_id"`
	UploadID    string       `json:"upload_id"`
	Status      string       `json:"status"`
	PlaybackIDs []playbackID `json:"playback_ids"`
}

type playbackID struct {
	ID string `json:"id"`
}

// Event is the normalized form the reconciler consumes.
type Event struct {
	Type       string
	AssetID    string
	UploadID   string
	PlaybackID string
}

// ClassifyEvent maps a provider event type onto a video status. The second
// return is false for event types the system does not act on; those are
// acknowledged without any store mutation so the provider stops retrying.
func ClassifyEvent(eventType string) (core.VideoStatus, bool) {
	switch strings.TrimSpace(eventType) {
	case EventVideoAssetCreated, EventVideoUploadAssetCreated:
		return core.VideoStatusPending, true
	case EventVideoAssetReady:
		return core.VideoStatusReady, true
	case EventVideoAssetErrored:
		return core.VideoStatusErrored, true
	}
	return "", false
}

func ParseEvent(body []byte) (Event, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Event{}, core.WrapBadInputError(
			fmt.Errorf("%w: %v", ErrInvalidPayload, err),
			"mux: parse webhook payload",
		)
	}

	event := Event{
		Type:     strings.TrimSpace(envelope.Type),
		UploadID: strings.TrimSpace(envelope.Data.UploadID),
	}

	// data.id doubles as the asset id except on upload-scoped events, where
	// the asset id rides in data.asset_id and data.id is the upload slot.
	assetID := strings.TrimSpace(envelope.Data.AssetID)
	if assetID == "" && !strings.HasPrefix(event.Type, "video.upload.") {
		assetID = strings.TrimSpace(envelope.Data.ID)
	}
	event.AssetID = assetID
	if strings.HasPrefix(event.Type, "video.upload.") && event.UploadID == "" {
		event.UploadID = strings.TrimSpace(envelope.Data.ID)
	}

	if len(envelope.Data.PlaybackIDs) > 0 {
		event.PlaybackID = strings.TrimSpace(envelope.Data.PlaybackIDs[0].ID)
	}

	if event.AssetID == "" {
		return Event{}, core.NewBadInputError(fmt.Sprintf("mux: event %q is missing an asset id", event.Type))
	}
	return event, nil
}
