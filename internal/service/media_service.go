package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const MaxUploadSize = 50 << 20

var allowedTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpg": {}, "png": {}, "webp": {}, "gif": {},
}

type MediaService interface {
	Upload(ctx context.Context, userID int64, data []byte) (*models.MediaAsset, error)
	Owned(ctx context.Context, userID int64, assetIDs []int64) error
	URLs(ctx context.Context, postID int64) ([]string, error)
}

type mediaService struct {
	store     ObjectStore
	ma        repository.MediaAssetRepository
	pm        repository.PostMediaRepository
	publicURL string
}

func NewMediaService(store ObjectStore, ma repository.MediaAssetRepository, pm repository.PostMediaRepository, publicURL string) MediaService {
	return &mediaService{
		store:     store,
		ma:        ma,
		pm:        pm,
		publicURL: publicURL,
	}
}

func (s *mediaService) Upload(ctx context.Context, userID int64, data []byte) (*models.MediaAsset, error) {
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}
	if len(data) == 0 {
		return nil, validationError("file is empty")
	}
	if len(data) > MaxUploadSize {
		return nil, validationError("file is larger than %d MB", MaxUploadSize>>20)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, validationError("unsupported file type")
	}
	if _, ok := allowedTypes[kind.Extension]; !ok {
		return nil, validationError("file type %s is not allowed", kind.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key := fmt.Sprintf("%d/%s.%s", userID, id, kind.Extension)

	if err := s.store.Put(ctx, key, data, kind.MIME.Value); err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}

	asset := &models.MediaAsset{
		UserID:   userID,
		FileName: key,
		FileType: kind.MIME.Value,
		FileSize: int64(len(data)),
		FileURL:  fmt.Sprintf("%s/%s", s.publicURL, key),
	}

	asset.ID, err = s.ma.Create(ctx, nil, asset)
	if err != nil {
		if err := s.store.Delete(ctx, key); err != nil {
			slog.Info(err.Error())
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	return asset, nil
}

// Owned checks that every asset exists and belongs to the user.
func (s *mediaService) Owned(ctx context.Context, userID int64, assetIDs []int64) error {
	if len(assetIDs) == 0 {
		return nil
	}

	assets, err := s.ma.ListOwned(ctx, userID, assetIDs)
	if err != nil {
		return fmt.Errorf("list media assets: %w", err)
	}

	owned := make(map[int64]struct{}, len(assets))
	for _, a := range assets {
		owned[a.ID] = struct{}{}
	}
	for _, id := range assetIDs {
		if _, ok := owned[id]; !ok {
			return validationError("media %d not found", id)
		}
	}
	return nil
}

// URLs returns the public URLs of a post's media in display order.
func (s *mediaService) URLs(ctx context.Context, postID int64) ([]string, error) {
	urls, err := s.pm.URLs(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list post media: %w", err)
	}
	return urls, nil
}
