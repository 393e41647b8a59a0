// Package storage uploads media to an object store and deletes it by public id.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/clipcast/backend/internal/config"
	"github.com/clipcast/backend/internal/models"
)

// Kind groups uploaded objects under a key prefix.
type Kind string

const (
	KindAvatar    Kind = "avatars"
	KindCover     Kind = "covers"
	KindVideo     Kind = "videos"
	KindThumbnail Kind = "thumbnails"
)

// ErrEmptyObject is returned for uploads without a body.
var ErrEmptyObject = errors.New("storage: empty object")

// Object is one upload. Name only contributes its extension to the stored key.
type Object struct {
	Kind        Kind
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Storage is implemented by every media backend.
type Storage interface {
	Upload(ctx context.Context, obj Object) (models.MediaObject, error)
	Delete(ctx context.Context, publicID string) error
}

// New selects the backend named by cfg.Driver.
func New(ctx context.Context, cfg config.MediaConfig) (Storage, error) {
	switch cfg.Driver {
	case config.MediaDriverS3, "":
		return NewS3Storage(ctx, cfg)
	case config.MediaDriverMinIO:
		return NewMinIOStorage(cfg)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// objectKey builds <kind>/<uuid><ext>. Client file names never reach the key.
func objectKey(kind Kind, name string) string {
	prefix := strings.Trim(string(kind), "/")
	if prefix == "" {
		prefix = "misc"
	}
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(name, "\\", "/"))))
	if len(ext) > 10 {
		ext = ""
	}
	return prefix + "/" + uuid.NewString() + ext
}

func publicURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}

func validate(obj Object) error {
	if obj.Body == nil {
		return ErrEmptyObject
	}
	return nil
}
