package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/xdose/go-ingest/core"
)

type VideoStore struct {
	db   *bun.DB
	repo repository.Repository[*videoRecord]
}

func (s *VideoStore) Create(ctx context.Context, in core.CreateVideoInput) (core.Video, error) {
	if s == nil || s.repo == nil {
		return core.Video{}, fmt.Errorf("sqlstore: video store is not configured")
	}
	if strings.TrimSpace(in.UserID) == "" {
		return core.Video{}, fmt.Errorf("sqlstore: user id is required")
	}
	if strings.TrimSpace(in.UploadID) == "" {
		return core.Video{}, fmt.Errorf("sqlstore: upload id is required")
	}

	now := time.Now().UTC()
	record := &videoRecord{
		ID:        uuid.NewString(),
		UserID:    strings.TrimSpace(in.UserID),
		Title:     strings.TrimSpace(in.Title),
		UploadID:  strings.TrimSpace(in.UploadID),
		Status:    string(core.VideoStatusPending),
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Video{}, err
	}
	return created.toDomain(), nil
}

func (s *VideoStore) Get(ctx context.Context, id string) (core.Video, error) {
	if s == nil || s.repo == nil {
		return core.Video{}, fmt.Errorf("sqlstore: video store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return core.Video{}, err
	}
	return record.toDomain(), nil
}

func (s *VideoStore) GetByAssetID(ctx context.Context, assetID string) (core.Video, error) {
	if s == nil || s.repo == nil {
		return core.Video{}, fmt.Errorf("sqlstore: video store is not configured")
	}
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return core.Video{}, fmt.Errorf("sqlstore: asset id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("asset_id", "=", assetID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Video{}, err
	}
	if len(records) == 0 {
		return core.Video{}, fmt.Errorf("sqlstore: video not found for asset %q", assetID)
	}
	return records[0].toDomain(), nil
}

// AttachAssetByUploadID back-fills the permanent asset id onto the row seeded
// at upload time and applies the status in the same statement. Zero matched
// rows is reported, not an error.
func (s *VideoStore) AttachAssetByUploadID(
	ctx context.Context,
	uploadID string,
	assetID string,
	status core.VideoStatus,
	playbackID string,
) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: video store is not configured")
	}
	uploadID = strings.TrimSpace(uploadID)
	assetID = strings.TrimSpace(assetID)
	if uploadID == "" || assetID == "" {
		return 0, fmt.Errorf("sqlstore: upload id and asset id are required")
	}

	query := s.db.NewUpdate().
		Model((*videoRecord)(nil)).
		Set("asset_id = ?", assetID).
		Set("status = ?", string(status)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("upload_id = ?", uploadID)
	if strings.TrimSpace(playbackID) != "" {
		query = query.Set("playback_id = ?", strings.TrimSpace(playbackID))
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (s *VideoStore) UpdateStatusByAssetID(
	ctx context.Context,
	assetID string,
	status core.VideoStatus,
	playbackID string,
) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: video store is not configured")
	}
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return 0, fmt.Errorf("sqlstore: asset id is required")
	}

	query := s.db.NewUpdate().
		Model((*videoRecord)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("asset_id = ?", assetID)
	if strings.TrimSpace(playbackID) != "" {
		query = query.Set("playback_id = ?", strings.TrimSpace(playbackID))
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
