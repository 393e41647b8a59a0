package handlers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clipcast/backend/internal/models"
	"github.com/clipcast/backend/internal/query"
	"github.com/clipcast/backend/internal/repositories"
	"github.com/clipcast/backend/internal/storage"
)

// AccountStore captures the persistence operations required by the user handlers.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Account, error)
	FindByLogin(ctx context.Context, username, email string) (models.Account, error)
	UpdateDetails(ctx context.Context, id primitive.ObjectID, fullName, email string) (models.Account, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	ReplaceAvatar(ctx context.Context, id primitive.ObjectID, avatar models.MediaObject) (models.MediaObject, error)
	ReplaceCoverImage(ctx context.Context, id primitive.ObjectID, cover models.MediaObject) (models.MediaObject, error)
	AppendWatchHistory(ctx context.Context, id, videoID primitive.ObjectID) error
	ChannelProfile(ctx context.Context, username string, viewer query.Viewer) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, id primitive.ObjectID) ([]models.VideoCard, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// SessionManager issues, rotates, revokes and verifies session tokens.
type SessionManager interface {
	Issue(ctx context.Context, accountID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, accountID string) error
	Authenticate(accessToken string) (string, error)
}

// VideoStore captures persistence for the video handlers.
type VideoStore interface {
	Create(ctx context.Context, video *models.Video) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Video, error)
	UpdateDetails(ctx context.Context, id primitive.ObjectID, patch repositories.VideoPatch) (models.Video, error)
	TogglePublished(ctx context.Context, id primitive.ObjectID) (models.Video, error)
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter query.VideoFilter) (models.Page[models.VideoCard], error)
	ListOwned(ctx context.Context, owner primitive.ObjectID, filter query.VideoFilter) (models.Page[models.VideoCard], error)
	Detail(ctx context.Context, id primitive.ObjectID, viewer query.Viewer) (models.VideoDetail, error)
	Delete(ctx context.Context, id primitive.ObjectID) (models.Video, error)
}

// CommentStore captures persistence for the comment handlers.
type CommentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Comment, error)
	UpdateContent(ctx context.Context, id primitive.ObjectID, content string) (models.Comment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	ListForVideo(ctx context.Context, videoID primitive.ObjectID, viewer query.Viewer, page models.PageRequest) (models.Page[models.CommentView], error)
}

// LikeStore toggles likes and lists liked videos.
type LikeStore interface {
	ToggleVideo(ctx context.Context, accountID, videoID primitive.ObjectID) (bool, error)
	ToggleComment(ctx context.Context, accountID, commentID primitive.ObjectID) (bool, error)
	LikedVideos(ctx context.Context, accountID primitive.ObjectID, page models.PageRequest) (models.Page[models.VideoCard], error)
}

// SubscriptionStore toggles and lists subscriptions.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error)
	Subscribers(ctx context.Context, channel primitive.ObjectID, page models.PageRequest) (models.Page[models.SubscriberView], error)
	SubscribedChannels(ctx context.Context, subscriber primitive.ObjectID, page models.PageRequest) (models.Page[models.SubscribedChannel], error)
}

// MediaUploader stores uploaded files in the media backend.
type MediaUploader interface {
	Upload(ctx context.Context, obj storage.Object) (models.MediaObject, error)
}

// MediaJanitor schedules removal of media the database no longer references.
type MediaJanitor interface {
	Enqueue(ctx context.Context, publicIDs ...string) error
}

// DurationProber reads the playback length of a local video file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
