package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/xdose/go-ingest/core"
)

const videoCacheKeyPrefix = "go-ingest::video::v1"

// CachedVideoStore wraps a VideoStore with read-through caching on asset id
// lookups. Writes invalidate so a webhook update is visible on the next read.
type CachedVideoStore struct {
	base  core.VideoStore
	cache repositorycache.CacheService
}

func NewCachedVideoStore(base core.VideoStore, cacheService repositorycache.CacheService) (*CachedVideoStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base video store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: video cache service is required")
	}
	return &CachedVideoStore{base: base, cache: cacheService}, nil
}

// VideoCacheKey is the deterministic cache key for asset id lookups:
// go-ingest::video::v1::asset::<asset_id> with the id URL-path escaped.
func VideoCacheKey(assetID string) (string, error) {
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return "", fmt.Errorf("sqlstore: asset id is required")
	}
	return strings.Join([]string{videoCacheKeyPrefix, "asset", url.PathEscape(assetID)}, "::"), nil
}

func (s *CachedVideoStore) Create(ctx context.Context, in core.CreateVideoInput) (core.Video, error) {
	if s == nil || s.base == nil {
		return core.Video{}, fmt.Errorf("sqlstore: cached video store is not configured")
	}
	return s.base.Create(ctx, in)
}

func (s *CachedVideoStore) Get(ctx context.Context, id string) (core.Video, error) {
	if s == nil || s.base == nil {
		return core.Video{}, fmt.Errorf("sqlstore: cached video store is not configured")
	}
	return s.base.Get(ctx, id)
}

func (s *CachedVideoStore) GetByAssetID(ctx context.Context, assetID string) (core.Video, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Video{}, fmt.Errorf("sqlstore: cached video store is not configured")
	}
	cacheKey, err := VideoCacheKey(assetID)
	if err != nil {
		return core.Video{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Video, error) {
		return s.base.GetByAssetID(ctx, assetID)
	})
}

func (s *CachedVideoStore) AttachAssetByUploadID(
	ctx context.Context,
	uploadID string,
	assetID string,
	status core.VideoStatus,
	playbackID string,
) (int64, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return 0, fmt.Errorf("sqlstore: cached video store is not configured")
	}
	affected, err := s.base.AttachAssetByUploadID(ctx, uploadID, assetID, status, playbackID)
	if err != nil {
		return affected, err
	}
	if err := s.invalidate(ctx, assetID); err != nil {
		return affected, err
	}
	return affected, nil
}

func (s *CachedVideoStore) UpdateStatusByAssetID(
	ctx context.Context,
	assetID string,
	status core.VideoStatus,
	playbackID string,
) (int64, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return 0, fmt.Errorf("sqlstore: cached video store is not configured")
	}
	affected, err := s.base.UpdateStatusByAssetID(ctx, assetID, status, playbackID)
	if err != nil {
		return affected, err
	}
	if err := s.invalidate(ctx, assetID); err != nil {
		return affected, err
	}
	return affected, nil
}

func (s *CachedVideoStore) invalidate(ctx context.Context, assetID string) error {
	cacheKey, err := VideoCacheKey(assetID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.VideoStore = (*CachedVideoStore)(nil)
