package storage

import (
	"context"
	"io"
)

// StoredPoster описывает загруженную в хранилище афишу.
type StoredPoster struct {
	Key      string
	Location string
	ETag     string
}

// PosterStorage хранит афиши турниров. Upload перезаписывает объект по
// ключу, GetPublicURL строит публичную ссылку без похода в хранилище.
type PosterStorage interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*StoredPoster, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
