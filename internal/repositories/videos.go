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

// VideoPatch lists the editable fields of a video. A nil Thumbnail keeps the current one.
type VideoPatch struct {
	Title       string
	Description string
	Thumbnail   *models.MediaObject
}

// MongoVideoRepository persists videos and cascades their deletion to comments and likes.
type MongoVideoRepository struct {
	store  *db.Store
	coll   *mongo.Collection
	search query.SearchOptions
	now    func() time.Time
}

// NewMongoVideoRepository constructs a video repository. search selects the engine
// used for free-text listing queries.
func NewMongoVideoRepository(store *db.Store, search query.SearchOptions) *MongoVideoRepository {
	return &MongoVideoRepository{
		store:  store,
		coll:   store.Collection(db.Videos),
		search: search,
		now:    time.Now,
	}
}

// Create inserts a new, unpublished video.
func (r *MongoVideoRepository) Create(ctx context.Context, video *models.Video) error {
	now := r.now().UTC()
	video.ID = primitive.NewObjectID()
	video.IsPublished = false
	video.Views = 0
	video.CreatedAt = now
	video.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, video); err != nil {
		return translate("insert video", err)
	}
	return nil
}

// FindByID fetches a video regardless of its publication state.
func (r *MongoVideoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Video, error) {
	var video models.Video
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&video); err != nil {
		return models.Video{}, translate("find video", err)
	}
	return video, nil
}

// UpdateDetails applies patch and returns the updated video.
func (r *MongoVideoRepository) UpdateDetails(ctx context.Context, id primitive.ObjectID, patch VideoPatch) (models.Video, error) {
	set := bson.D{
		{Key: "title", Value: strings.TrimSpace(patch.Title)},
		{Key: "description", Value: strings.TrimSpace(patch.Description)},
		{Key: "updatedAt", Value: r.now().UTC()},
	}
	if patch.Thumbnail != nil {
		set = append(set, bson.E{Key: "thumbnail", Value: *patch.Thumbnail})
	}
	return r.findAndUpdate(ctx, id, bson.D{{Key: "$set", Value: set}})
}

// TogglePublished flips the publication flag atomically and returns the result.
func (r *MongoVideoRepository) TogglePublished(ctx context.Context, id primitive.ObjectID) (models.Video, error) {
	flip := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "isPublished", Value: bson.D{{Key: "$not", Value: bson.A{"$isPublished"}}}},
			{Key: "updatedAt", Value: r.now().UTC()},
		}}},
	}
	return r.findAndUpdate(ctx, id, flip)
}

func (r *MongoVideoRepository) findAndUpdate(ctx context.Context, id primitive.ObjectID, update any) (models.Video, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var video models.Video
	if err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, opts).Decode(&video); err != nil {
		return models.Video{}, translate("update video", err)
	}
	return video, nil
}

// IncrementViews counts one view.
func (r *MongoVideoRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "views", Value: 1}}}},
	)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of the video feed described by filter.
func (r *MongoVideoRepository) List(ctx context.Context, filter query.VideoFilter) (models.Page[models.VideoCard], error) {
	filter.Page = pageOf(filter.Page)
	if filter.Search.Mode == "" {
		filter.Search = r.search
	}
	p, err := query.VideoFeed(filter)
	if err != nil {
		return models.Page[models.VideoCard]{}, err
	}
	return aggregatePage[models.VideoCard](ctx, r.coll, "video_feed", p, filter.Page)
}

// ListOwned lists every video owned by the viewer, drafts included.
func (r *MongoVideoRepository) ListOwned(ctx context.Context, owner primitive.ObjectID, filter query.VideoFilter) (models.Page[models.VideoCard], error) {
	filter.Owner = owner
	filter.Viewer = query.ViewerOf(owner)
	filter.OwnerScope = true
	return r.List(ctx, filter)
}

// Detail resolves the detail view of a video for viewer.
func (r *MongoVideoRepository) Detail(ctx context.Context, id primitive.ObjectID, viewer query.Viewer) (models.VideoDetail, error) {
	return aggregateOne[models.VideoDetail](ctx, r.coll, "video_detail", query.VideoDetail(id, viewer))
}

// Delete removes a video together with its comments and every like on the video or
// on those comments, returning the deleted video so its media can be released.
func (r *MongoVideoRepository) Delete(ctx context.Context, id primitive.ObjectID) (models.Video, error) {
	if r.store.Transactions {
		var deleted models.Video
		err := r.store.WithTransaction(ctx, func(sc mongo.SessionContext) error {
			video, err := r.FindByID(sc, id)
			if err != nil {
				return err
			}
			if err := cascadeVideo(sc, r.store, id); err != nil {
				return err
			}
			deleted = video
			return nil
		})
		if err != nil {
			return models.Video{}, err
		}
		return deleted, nil
	}
	return newCascadeJournal(r.store, r.now).deleteVideo(ctx, id)
}

// ResumeCascades finishes deletions interrupted before their journal entry was
// cleared. It returns the deleted videos so their media can be released; entries
// that failed again stay journaled.
func (r *MongoVideoRepository) ResumeCascades(ctx context.Context) ([]models.Video, error) {
	return newCascadeJournal(r.store, r.now).resume(ctx)
}
