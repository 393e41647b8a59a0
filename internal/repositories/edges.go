package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clipcast/backend/internal/db"
	"github.com/clipcast/backend/internal/models"
	"github.com/clipcast/backend/internal/query"
)

// toggleEdge removes the edge matching filter if present, otherwise inserts doc. It
// reports whether the edge exists afterwards. A concurrent toggle inserting the same
// edge trips the unique index; that caller still sees the edge as on.
func toggleEdge(ctx context.Context, coll *mongo.Collection, filter bson.D, doc any) (bool, error) {
	err := coll.FindOneAndDelete(ctx, filter).Err()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, fmt.Errorf("remove edge: %w", err)
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return true, nil
		}
		return false, fmt.Errorf("insert edge: %w", err)
	}
	return true, nil
}

// MongoLikeRepository persists likes on videos and comments.
type MongoLikeRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoLikeRepository constructs a like repository backed by MongoDB.
func NewMongoLikeRepository(store *db.Store) *MongoLikeRepository {
	return &MongoLikeRepository{coll: store.Collection(db.Likes), now: time.Now}
}

// ToggleVideo likes or unlikes a video and reports whether it is liked afterwards.
func (r *MongoLikeRepository) ToggleVideo(ctx context.Context, accountID, videoID primitive.ObjectID) (bool, error) {
	return toggleEdge(ctx, r.coll,
		bson.D{{Key: "likedBy", Value: accountID}, {Key: "video", Value: videoID}},
		models.Like{ID: primitive.NewObjectID(), LikedBy: accountID, Video: &videoID, CreatedAt: r.now().UTC()},
	)
}

// ToggleComment likes or unlikes a comment and reports whether it is liked afterwards.
func (r *MongoLikeRepository) ToggleComment(ctx context.Context, accountID, commentID primitive.ObjectID) (bool, error) {
	return toggleEdge(ctx, r.coll,
		bson.D{{Key: "likedBy", Value: accountID}, {Key: "comment", Value: commentID}},
		models.Like{ID: primitive.NewObjectID(), LikedBy: accountID, Comment: &commentID, CreatedAt: r.now().UTC()},
	)
}

// LikedVideos lists the published videos accountID liked, most recent first.
func (r *MongoLikeRepository) LikedVideos(ctx context.Context, accountID primitive.ObjectID, page models.PageRequest) (models.Page[models.VideoCard], error) {
	page = pageOf(page)
	return aggregatePage[models.VideoCard](ctx, r.coll, "liked_videos", query.LikedVideos(accountID, page), page)
}

// MongoSubscriptionRepository persists subscriber -> channel edges.
type MongoSubscriptionRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoSubscriptionRepository constructs a subscription repository backed by MongoDB.
func NewMongoSubscriptionRepository(store *db.Store) *MongoSubscriptionRepository {
	return &MongoSubscriptionRepository{coll: store.Collection(db.Subscriptions), now: time.Now}
}

// Toggle subscribes or unsubscribes and reports whether the subscription exists afterwards.
func (r *MongoSubscriptionRepository) Toggle(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error) {
	return toggleEdge(ctx, r.coll,
		bson.D{{Key: "subscriber", Value: subscriber}, {Key: "channel", Value: channel}},
		models.Subscription{ID: primitive.NewObjectID(), Subscriber: subscriber, Channel: channel, CreatedAt: r.now().UTC()},
	)
}

// Subscribers lists the accounts subscribed to channel.
func (r *MongoSubscriptionRepository) Subscribers(ctx context.Context, channel primitive.ObjectID, page models.PageRequest) (models.Page[models.SubscriberView], error) {
	page = pageOf(page)
	return aggregatePage[models.SubscriberView](ctx, r.coll, "channel_subscribers", query.ChannelSubscribers(channel, page), page)
}

// SubscribedChannels lists the channels subscriber follows.
func (r *MongoSubscriptionRepository) SubscribedChannels(ctx context.Context, subscriber primitive.ObjectID, page models.PageRequest) (models.Page[models.SubscribedChannel], error) {
	page = pageOf(page)
	return aggregatePage[models.SubscribedChannel](ctx, r.coll, "subscribed_channels", query.SubscribedChannels(subscriber, page), page)
}
