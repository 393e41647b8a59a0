package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clipcast/backend/internal/models"
	"github.com/clipcast/backend/internal/query"
	"github.com/clipcast/backend/internal/repositories"
	"github.com/clipcast/backend/internal/storage"
)

type inMemoryAccounts struct {
	mu       sync.Mutex
	accounts map[primitive.ObjectID]models.Account
	history  map[primitive.ObjectID][]primitive.ObjectID
}

func newInMemoryAccounts() *inMemoryAccounts {
	return &inMemoryAccounts{
		accounts: make(map[primitive.ObjectID]models.Account),
		history:  make(map[primitive.ObjectID][]primitive.ObjectID),
	}
}

func (s *inMemoryAccounts) add(account models.Account) models.Account {
	if account.ID.IsZero() {
		account.ID = primitive.NewObjectID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
	return account
}

func (s *inMemoryAccounts) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Username == account.Username || existing.Email == account.Email {
			return repositories.ErrConflict
		}
	}
	account.ID = primitive.NewObjectID()
	account.CreatedAt = time.Now().UTC()
	s.accounts[account.ID] = *account
	return nil
}

func (s *inMemoryAccounts) FindByID(_ context.Context, id primitive.ObjectID) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, repositories.ErrNotFound
	}
	return account, nil
}

func (s *inMemoryAccounts) FindByLogin(_ context.Context, username, email string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	username = strings.ToLower(username)
	email = strings.ToLower(email)
	for _, account := range s.accounts {
		if (username != "" && account.Username == username) || (email != "" && account.Email == email) {
			return account, nil
		}
	}
	return models.Account{}, repositories.ErrNotFound
}

func (s *inMemoryAccounts) UpdateDetails(_ context.Context, id primitive.ObjectID, fullName, email string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, repositories.ErrNotFound
	}
	account.FullName = fullName
	account.Email = email
	s.accounts[id] = account
	return account, nil
}

func (s *inMemoryAccounts) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return repositories.ErrNotFound
	}
	account.Password = hash
	s.accounts[id] = account
	return nil
}

func (s *inMemoryAccounts) ReplaceAvatar(_ context.Context, id primitive.ObjectID, avatar models.MediaObject) (models.MediaObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return models.MediaObject{}, repositories.ErrNotFound
	}
	previous := account.Avatar
	account.Avatar = avatar
	s.accounts[id] = account
	return previous, nil
}

func (s *inMemoryAccounts) ReplaceCoverImage(_ context.Context, id primitive.ObjectID, cover models.MediaObject) (models.MediaObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return models.MediaObject{}, repositories.ErrNotFound
	}
	var previous models.MediaObject
	if account.CoverImage != nil {
		previous = *account.CoverImage
	}
	account.CoverImage = &cover
	s.accounts[id] = account
	return previous, nil
}

func (s *inMemoryAccounts) AppendWatchHistory(_ context.Context, id, videoID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return repositories.ErrNotFound
	}
	s.history[id] = append(s.history[id], videoID)
	return nil
}

func (s *inMemoryAccounts) ChannelProfile(_ context.Context, username string, viewer query.Viewer) (models.ChannelProfile, error) {
	account, err := s.FindByLogin(context.Background(), username, "")
	if err != nil {
		return models.ChannelProfile{}, err
	}
	return models.ChannelProfile{ID: account.ID, Username: account.Username, IsSubscribed: !viewer.Anonymous()}, nil
}

func (s *inMemoryAccounts) WatchHistory(_ context.Context, id primitive.ObjectID) ([]models.VideoCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards := []models.VideoCard{}
	for _, videoID := range s.history[id] {
		cards = append(cards, models.VideoCard{Video: models.Video{ID: videoID}})
	}
	return cards, nil
}

func (s *inMemoryAccounts) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[id]
	return ok, nil
}

type inMemoryVideos struct {
	mu      sync.Mutex
	videos  map[primitive.ObjectID]models.Video
	views   map[primitive.ObjectID]int
	filters []query.VideoFilter
}

func newInMemoryVideos() *inMemoryVideos {
	return &inMemoryVideos{
		videos: make(map[primitive.ObjectID]models.Video),
		views:  make(map[primitive.ObjectID]int),
	}
}

func (s *inMemoryVideos) add(video models.Video) models.Video {
	if video.ID.IsZero() {
		video.ID = primitive.NewObjectID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
	return video
}

func (s *inMemoryVideos) Create(_ context.Context, video *models.Video) error {
	video.ID = primitive.NewObjectID()
	video.IsPublished = false
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = *video
	return nil
}

func (s *inMemoryVideos) FindByID(_ context.Context, id primitive.ObjectID) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *inMemoryVideos) UpdateDetails(_ context.Context, id primitive.ObjectID, patch repositories.VideoPatch) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.Title = patch.Title
	video.Description = patch.Description
	if patch.Thumbnail != nil {
		video.Thumbnail = *patch.Thumbnail
	}
	s.videos[id] = video
	return video, nil
}

func (s *inMemoryVideos) TogglePublished(_ context.Context, id primitive.ObjectID) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.IsPublished = !video.IsPublished
	s.videos[id] = video
	return video, nil
}

func (s *inMemoryVideos) IncrementViews(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[id]++
	return nil
}

func (s *inMemoryVideos) List(_ context.Context, filter query.VideoFilter) (models.Page[models.VideoCard], error) {
	if _, err := query.VideoFeed(filter); err != nil {
		return models.Page[models.VideoCard]{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, filter)
	var docs []models.VideoCard
	for _, video := range s.videos {
		if !filter.Owner.IsZero() && video.Owner != filter.Owner {
			continue
		}
		if !video.IsPublished && !(filter.OwnerScope && filter.Viewer.ID == video.Owner) {
			continue
		}
		docs = append(docs, models.VideoCard{Video: video})
	}
	return models.NewPage(docs, int64(len(docs)), filter.Page), nil
}

func (s *inMemoryVideos) ListOwned(ctx context.Context, owner primitive.ObjectID, filter query.VideoFilter) (models.Page[models.VideoCard], error) {
	filter.Owner = owner
	filter.Viewer = query.ViewerOf(owner)
	filter.OwnerScope = true
	return s.List(ctx, filter)
}

func (s *inMemoryVideos) Detail(ctx context.Context, id primitive.ObjectID, viewer query.Viewer) (models.VideoDetail, error) {
	video, err := s.FindByID(ctx, id)
	if err != nil {
		return models.VideoDetail{}, err
	}
	if !video.IsPublished && video.Owner != viewer.ID {
		return models.VideoDetail{}, repositories.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.VideoDetail{ID: video.ID, Title: video.Title, Views: int64(s.views[id]), IsPublished: video.IsPublished}, nil
}

func (s *inMemoryVideos) Delete(_ context.Context, id primitive.ObjectID) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	delete(s.videos, id)
	return video, nil
}

type inMemoryComments struct {
	mu       sync.Mutex
	comments map[primitive.ObjectID]models.Comment
}

func newInMemoryComments() *inMemoryComments {
	return &inMemoryComments{comments: make(map[primitive.ObjectID]models.Comment)}
}

func (s *inMemoryComments) Create(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment.ID = primitive.NewObjectID()
	s.comments[comment.ID] = *comment
	return nil
}

func (s *inMemoryComments) FindByID(_ context.Context, id primitive.ObjectID) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *inMemoryComments) UpdateContent(_ context.Context, id primitive.ObjectID, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	comment.Content = content
	s.comments[id] = comment
	return comment, nil
}

func (s *inMemoryComments) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *inMemoryComments) ListForVideo(_ context.Context, videoID primitive.ObjectID, _ query.Viewer, page models.PageRequest) (models.Page[models.CommentView], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var docs []models.CommentView
	for _, comment := range s.comments {
		if comment.Video == videoID {
			docs = append(docs, models.CommentView{ID: comment.ID, Content: comment.Content})
		}
	}
	return models.NewPage(docs, int64(len(docs)), page), nil
}

type edgeKey struct{ from, to primitive.ObjectID }

type inMemoryEdges struct {
	mu    sync.Mutex
	edges map[edgeKey]bool
}

func newInMemoryEdges() *inMemoryEdges {
	return &inMemoryEdges{edges: make(map[edgeKey]bool)}
}

func (s *inMemoryEdges) toggle(from, to primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey{from, to}
	if s.edges[key] {
		delete(s.edges, key)
		return false
	}
	s.edges[key] = true
	return true
}

func (s *inMemoryEdges) ToggleVideo(_ context.Context, accountID, videoID primitive.ObjectID) (bool, error) {
	return s.toggle(accountID, videoID), nil
}

func (s *inMemoryEdges) ToggleComment(_ context.Context, accountID, commentID primitive.ObjectID) (bool, error) {
	return s.toggle(accountID, commentID), nil
}

func (s *inMemoryEdges) LikedVideos(_ context.Context, _ primitive.ObjectID, page models.PageRequest) (models.Page[models.VideoCard], error) {
	return models.NewPage[models.VideoCard](nil, 0, page), nil
}

func (s *inMemoryEdges) Toggle(_ context.Context, subscriber, channel primitive.ObjectID) (bool, error) {
	return s.toggle(subscriber, channel), nil
}

func (s *inMemoryEdges) Subscribers(_ context.Context, _ primitive.ObjectID, page models.PageRequest) (models.Page[models.SubscriberView], error) {
	return models.NewPage[models.SubscriberView](nil, 0, page), nil
}

func (s *inMemoryEdges) SubscribedChannels(_ context.Context, _ primitive.ObjectID, page models.PageRequest) (models.Page[models.SubscribedChannel], error) {
	return models.NewPage[models.SubscribedChannel](nil, 0, page), nil
}

type recordingUploader struct {
	mu      sync.Mutex
	objects []storage.Object
	bodies  []string
	err     error
}

func (u *recordingUploader) Upload(_ context.Context, obj storage.Object) (models.MediaObject, error) {
	if u.err != nil {
		return models.MediaObject{}, u.err
	}
	body, err := io.ReadAll(obj.Body)
	if err != nil {
		return models.MediaObject{}, err
	}
	if len(body) == 0 {
		return models.MediaObject{}, storage.ErrEmptyObject
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects = append(u.objects, obj)
	u.bodies = append(u.bodies, string(body))
	id := string(obj.Kind) + "/" + primitive.NewObjectID().Hex()
	return models.MediaObject{URL: "https://cdn.test/" + id, PublicID: id}, nil
}

type recordingJanitor struct {
	mu  sync.Mutex
	ids []string
}

func (j *recordingJanitor) Enqueue(_ context.Context, ids ...string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ids = append(j.ids, ids...)
	return nil
}

func (j *recordingJanitor) released() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.ids...)
}

type fixedProber struct {
	seconds float64
	err     error
	paths   []string
}

func (p *fixedProber) Duration(_ context.Context, path string) (float64, error) {
	p.paths = append(p.paths, path)
	return p.seconds, p.err
}

type filePart struct {
	field, name, contentType, body string
}

// multipartBody builds a multipart/form-data body from plain fields and file parts.
func multipartBody(t *testing.T, fields map[string]string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write([]byte(f.body)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
