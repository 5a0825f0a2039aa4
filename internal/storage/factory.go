package storage

import (
	"context"
	"fmt"

	"github.com/timmy/surrogates/internal/config"
)

// NewStorage creates the ObjectStorage selected by cfg.Type.
// Parameters:
//   - ctx: context used while loading cloud credentials.
//   - cfg: storage configuration.
//
// Returns:
//   - ObjectStorage: local filesystem or S3-compatible backend.
//   - error: non-nil if the backend cannot be created.
func NewStorage(ctx context.Context, cfg *config.StorageConfig) (ObjectStorage, error) {
	storeType := StorageType(cfg.Type)
	switch storeType {
	case "", StorageTypeLocal:
		return NewLocalStorage(cfg.ImagesRoot)
	case StorageTypeS3, StorageTypeR2, StorageTypeS3Compatible, "auto":
		if storeType == "auto" {
			storeType = detectStorageType(cfg.S3.Endpoint)
		}
		return NewS3Storage(ctx, S3Options{
			Type:      storeType,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			PublicURL: cfg.S3.PublicURL,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}
