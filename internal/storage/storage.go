package storage

import (
	"context"
	"time"
)

// FileStorage хранит документы врачей (дипломы, лицензии) для проверки
// администратором.
type FileStorage interface {
	UploadFile(ctx context.Context, data []byte, filename string) (string, error)

	DeleteFile(ctx context.Context, fileURL string) error

	GetFile(ctx context.Context, fileURL string) ([]byte, error)

	GetPresignedURL(ctx context.Context, fileURL string, expiry time.Duration) (string, error)
}
