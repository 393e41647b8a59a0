package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clipcast/backend/internal/db"
	"github.com/clipcast/backend/internal/models"
	"github.com/clipcast/backend/internal/query"
)

// MongoCommentRepository persists comments.
type MongoCommentRepository struct {
	store *db.Store
	coll  *mongo.Collection
	now   func() time.Time
}

// NewMongoCommentRepository constructs a comment repository backed by MongoDB.
func NewMongoCommentRepository(store *db.Store) *MongoCommentRepository {
	return &MongoCommentRepository{store: store, coll: store.Collection(db.Comments), now: time.Now}
}

// Create inserts a comment.
func (r *MongoCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	now := r.now().UTC()
	comment.ID = primitive.NewObjectID()
	comment.Content = strings.TrimSpace(comment.Content)
	comment.CreatedAt = now
	comment.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, comment); err != nil {
		return translate("insert comment", err)
	}
	return nil
}

// FindByID fetches a comment.
func (r *MongoCommentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Comment, error) {
	var comment models.Comment
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&comment); err != nil {
		return models.Comment{}, translate("find comment", err)
	}
	return comment, nil
}

// UpdateContent replaces the comment text and returns the updated comment.
func (r *MongoCommentRepository) UpdateContent(ctx context.Context, id primitive.ObjectID, content string) (models.Comment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "content", Value: strings.TrimSpace(content)},
		{Key: "updatedAt", Value: r.now().UTC()},
	}}}

	var comment models.Comment
	if err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, opts).Decode(&comment); err != nil {
		return models.Comment{}, translate("update comment", err)
	}
	return comment, nil
}

// Delete removes a comment and the likes on it.
func (r *MongoCommentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	run := func(ctx context.Context) error {
		res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
		if err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		if _, err := r.store.Collection(db.Likes).DeleteMany(ctx, bson.D{{Key: "comment", Value: id}}); err != nil {
			return fmt.Errorf("delete comment likes: %w", err)
		}
		return nil
	}

	if r.store.Transactions {
		return r.store.WithTransaction(ctx, func(sc mongo.SessionContext) error { return run(sc) })
	}
	return run(ctx)
}

// ListForVideo returns one page of a video's comments, newest first.
func (r *MongoCommentRepository) ListForVideo(ctx context.Context, videoID primitive.ObjectID, viewer query.Viewer, page models.PageRequest) (models.Page[models.CommentView], error) {
	page = pageOf(page)
	return aggregatePage[models.CommentView](ctx, r.coll, "video_comments", query.VideoComments(videoID, viewer, page), page)
}
