package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/clipcast/backend/internal/logging"
	"github.com/clipcast/backend/internal/models"
	"github.com/clipcast/backend/internal/storage"
)

// multipartMemory is how much of a multipart body is held in memory before parts
// spill to temporary files.
const multipartMemory = 8 << 20

// releaseTimeout bounds the wait for room in the cleanup queue.
const releaseTimeout = 5 * time.Second

// Media bundles the collaborators that move uploaded files in and out of the
// media store.
type Media struct {
	Uploader MediaUploader
	Janitor  MediaJanitor
	Prober   DurationProber
	// MaxUploadBytes caps multipart request bodies. Zero disables the cap.
	MaxUploadBytes int64
}

// parseMultipart limits and parses a multipart body. The returned func removes any
// spilled parts.
func (m Media) parseMultipart(w http.ResponseWriter, r *http.Request) (func(), error) {
	if m.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, m.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return func() {}, err
		}
		return func() {}, badRequest("invalid multipart body")
	}
	return func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}, nil
}

// upload stores the file in field under kind. A missing optional file yields a zero
// MediaObject.
func (m Media) upload(ctx context.Context, r *http.Request, field string, kind storage.Kind, required bool) (models.MediaObject, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if required {
			return models.MediaObject{}, badRequest(field + " file is required")
		}
		return models.MediaObject{}, nil
	}
	if err != nil {
		return models.MediaObject{}, badRequest("invalid " + field + " file")
	}
	defer file.Close()

	return m.store(ctx, field, kind, header, file)
}

// uploadVideo spools the video part to disk so its duration can be probed before
// it is uploaded. A failed probe is logged and leaves the duration at zero.
func (m Media) uploadVideo(ctx context.Context, r *http.Request, field string) (models.MediaObject, float64, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return models.MediaObject{}, 0, badRequest(field + " file is required")
	}
	if err != nil {
		return models.MediaObject{}, 0, badRequest("invalid " + field + " file")
	}
	defer file.Close()

	spool, err := os.CreateTemp("", "clipcast-upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return models.MediaObject{}, 0, fmt.Errorf("spool %s: %w", field, err)
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()
	if _, err := io.Copy(spool, file); err != nil {
		return models.MediaObject{}, 0, fmt.Errorf("spool %s: %w", field, err)
	}

	var duration float64
	if m.Prober != nil {
		d, err := m.Prober.Duration(ctx, spool.Name())
		if err != nil {
			logging.FromContext(ctx).Warn("probe video duration", "error", err)
		} else {
			duration = d
		}
	}

	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return models.MediaObject{}, 0, fmt.Errorf("rewind %s: %w", field, err)
	}
	media, err := m.store(ctx, field, storage.KindVideo, header, spool)
	if err != nil {
		return models.MediaObject{}, 0, err
	}
	return media, duration, nil
}

func (m Media) store(ctx context.Context, field string, kind storage.Kind, header *multipart.FileHeader, body io.Reader) (models.MediaObject, error) {
	if m.Uploader == nil {
		return models.MediaObject{}, errors.New("media uploader unavailable")
	}
	media, err := m.Uploader.Upload(ctx, storage.Object{
		Kind:        kind,
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        body,
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmptyObject) {
			return models.MediaObject{}, badRequest(field + " file is empty")
		}
		return models.MediaObject{}, fmt.Errorf("upload %s: %w", field, err)
	}
	return media, nil
}

// release hands media that is no longer referenced to the janitor.
func (m Media) release(ctx context.Context, objects ...models.MediaObject) {
	ids := make([]string, 0, len(objects))
	for _, obj := range objects {
		if obj.PublicID != "" {
			ids = append(ids, obj.PublicID)
		}
	}
	if len(ids) == 0 || m.Janitor == nil {
		return
	}
	// The response may already be on its way; the queue wait must not depend on it.
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := m.Janitor.Enqueue(enqueueCtx, ids...); err != nil {
		logging.FromContext(ctx).Warn("schedule media cleanup", "publicIds", ids, "error", err)
	}
}
