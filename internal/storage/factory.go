package storage

import (
	"fmt"

	"blog-backend/internal/config"
)

func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Type {
	case "local":
		return NewLocalBackend(cfg.Upload.Dir)
	case "s3":
		return NewS3Backend(&cfg.S3), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
