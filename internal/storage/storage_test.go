package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/clipcast/backend/internal/config"
)

func TestObjectKey(t *testing.T) {
	key := objectKey(KindAvatar, `C:\Users\bob\Me.PNG`)
	if !strings.HasPrefix(key, "avatars/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q", key)
	}
	if strings.Contains(key, "Me") {
		t.Fatalf("client file name leaked into key %q", key)
	}
	if other := objectKey(KindAvatar, "me.png"); other == key {
		t.Fatal("keys must be unique per upload")
	}
	if key := objectKey("", "noext"); !strings.HasPrefix(key, "misc/") || strings.Contains(key, ".") {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestNewSelectsDriver(t *testing.T) {
	if _, err := New(context.Background(), config.MediaConfig{Driver: "gcs", Bucket: "b"}); err == nil {
		t.Fatal("expected unknown driver error")
	}

	s, err := New(context.Background(), config.MediaConfig{Driver: config.MediaDriverMinIO, Bucket: "b", Endpoint: "http://localhost:9000"})
	if err != nil {
		t.Fatalf("minio: %v", err)
	}
	m, ok := s.(*MinIOStorage)
	if !ok {
		t.Fatalf("expected *MinIOStorage, got %T", s)
	}
	if m.baseURL != "http://localhost:9000/b" {
		t.Fatalf("unexpected base url %q", m.baseURL)
	}

	if _, err := NewMinIOStorage(config.MediaConfig{Bucket: "b"}); err == nil {
		t.Fatal("expected error without endpoint")
	}
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = string(body)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		f.deleted = append(f.deleted, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3StorageUploadAndDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewS3Storage(context.Background(), config.MediaConfig{
		Bucket:        "media",
		Region:        "us-east-1",
		Endpoint:      srv.URL,
		AccessKey:     "key",
		SecretKey:     "secret",
		PublicBaseURL: "https://cdn.example/",
	})
	if err != nil {
		t.Fatalf("NewS3Storage: %v", err)
	}

	obj, err := store.Upload(context.Background(), Object{
		Kind:        KindThumbnail,
		Name:        "thumb.jpg",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("jpeg-bytes"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(obj.PublicID, "thumbnails/") {
		t.Fatalf("unexpected public id %q", obj.PublicID)
	}
	if obj.URL != "https://cdn.example/"+obj.PublicID {
		t.Fatalf("unexpected url %q", obj.URL)
	}

	fake.mu.Lock()
	stored := fake.objects["/media/"+obj.PublicID]
	fake.mu.Unlock()
	if !strings.Contains(stored, "jpeg-bytes") {
		t.Fatalf("object body not stored, got %q", stored)
	}

	if err := store.Delete(context.Background(), obj.PublicID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.deleted) != 1 || fake.deleted[0] != "/media/"+obj.PublicID {
		t.Fatalf("unexpected deletes %v", fake.deleted)
	}
}

func TestUploadRejectsEmptyBody(t *testing.T) {
	store, err := NewMinIOStorage(config.MediaConfig{Bucket: "b", Endpoint: "localhost:9000"})
	if err != nil {
		t.Fatalf("NewMinIOStorage: %v", err)
	}
	if _, err := store.Upload(context.Background(), Object{Kind: KindVideo}); !errors.Is(err, ErrEmptyObject) {
		t.Fatalf("expected ErrEmptyObject, got %v", err)
	}
	if err := store.Delete(context.Background(), ""); err != nil {
		t.Fatalf("deleting an empty id should be a no-op, got %v", err)
	}
}
