package mux

import (
	"errors"
	"testing"

	"github.com/xdose/go-ingest/core"
)

func TestClassifyEvent(t *testing.T) {
	cases := []struct {
		eventType string
		status    core.VideoStatus
		handled   bool
	}{
		{eventType: "video.asset.created", status: core.VideoStatusPending, handled: true},
		{eventType: "video.upload.asset_created", status: core.VideoStatusPending, handled: true},
		{eventType: "video.asset.ready", status: core.VideoStatusReady, handled: true},
		{eventType: "video.asset.errored", status: core.VideoStatusErrored, handled: true},
		{eventType: "video.asset.deleted", handled: false},
		{eventType: "video.live_stream.active", handled: false},
		{eventType: "", handled: false},
	}
	for _, tc := range cases {
		status, handled := ClassifyEvent(tc.eventType)
		if handled != tc.handled {
			t.Fatalf("%s: expected handled=%v, got %v", tc.eventType, tc.handled, handled)
		}
		if handled && status != tc.status {
			t.Fatalf("%s: expected status %q, got %q", tc.eventType, tc.status, status)
		}
	}
}

func TestParseEvent_AssetScoped(t *testing.T) {
	body := []byte(`{
		"type": "video.asset.ready",
		"data": {
			"id": "ast_123",
			"status": "ready",
			"playback_ids": [{"id": "plb_1"}, {"id": "plb_2"}]
		}
	}`)

	event, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if event.AssetID != "ast_123" {
		t.Fatalf("expected data.id used as asset id, got %q", event.AssetID)
	}
	if event.UploadID != "" {
		t.Fatalf("expected no upload id on asset-scoped event, got %q", event.UploadID)
	}
	if event.PlaybackID != "plb_1" {
		t.Fatalf("expected first playback id, got %q", event.PlaybackID)
	}
}

func TestParseEvent_UploadScopedCarriesBothIDs(t *testing.T) {
	body := []byte(`{
		"type": "video.upload.asset_created",
		"data": {
			"id": "upl_456",
			"asset_id": "ast_123"
		}
	}`)

	event, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if event.AssetID != "ast_123" {
		t.Fatalf("expected asset id from data.asset_id, got %q", event.AssetID)
	}
	if event.UploadID != "upl_456" {
		t.Fatalf("expected upload id from data.id, got %q", event.UploadID)
	}
}

func TestParseEvent_UploadScopedWithoutAssetID(t *testing.T) {
	// On upload-scoped events data.id is the upload slot, never the asset.
	body := []byte(`{"type":"video.upload.created","data":{"id":"upl_456"}}`)
	if _, err := ParseEvent(body); err == nil {
		t.Fatalf("expected missing asset id error")
	}
}

func TestParseEvent_MissingAssetID(t *testing.T) {
	body := []byte(`{"type":"video.asset.ready","data":{}}`)
	_, err := ParseEvent(body)
	if err == nil {
		t.Fatalf("expected missing asset id error")
	}
	if core.HTTPStatus(err) != 400 {
		t.Fatalf("expected bad input mapping, got %d", core.HTTPStatus(err))
	}
}

func TestParseEvent_MalformedJSON(t *testing.T) {
	_, err := ParseEvent([]byte(`{"type": "video.asset.ready"`))
	if err == nil {
		t.Fatalf("expected parse failure on truncated payload")
	}
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected invalid payload sentinel, got %v", err)
	}
	if core.HTTPStatus(err) != 400 {
		t.Fatalf("expected bad input mapping, got %d", core.HTTPStatus(err))
	}
}
