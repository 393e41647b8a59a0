package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clipcast/backend/internal/db"
	"github.com/clipcast/backend/internal/logging"
	"github.com/clipcast/backend/internal/models"
)

// cascadeVideo deletes a video and everything hanging off it. Each step is idempotent
// so the whole sequence can be replayed after a crash.
func cascadeVideo(ctx context.Context, store *db.Store, videoID primitive.ObjectID) error {
	if _, err := store.Collection(db.Videos).DeleteOne(ctx, bson.D{{Key: "_id", Value: videoID}}); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	commentIDs, err := store.Collection(db.Comments).Distinct(ctx, "_id", bson.D{{Key: "video", Value: videoID}})
	if err != nil {
		return fmt.Errorf("list video comments: %w", err)
	}

	likeFilter := bson.D{{Key: "video", Value: videoID}}
	if len(commentIDs) > 0 {
		likeFilter = bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "video", Value: videoID}},
			bson.D{{Key: "comment", Value: bson.D{{Key: "$in", Value: commentIDs}}}},
		}}}
	}
	if _, err := store.Collection(db.Likes).DeleteMany(ctx, likeFilter); err != nil {
		return fmt.Errorf("delete video likes: %w", err)
	}
	if _, err := store.Collection(db.Comments).DeleteMany(ctx, bson.D{{Key: "video", Value: videoID}}); err != nil {
		return fmt.Errorf("delete video comments: %w", err)
	}
	return nil
}

// pendingCascade is a journal entry written before a non-transactional cascade starts
// and removed once it completes.
type pendingCascade struct {
	ID        primitive.ObjectID `bson:"_id"`
	Video     models.Video       `bson:"video"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// cascadeJournal runs deletions on deployments without multi-document transactions.
type cascadeJournal struct {
	store *db.Store
	coll  *mongo.Collection
	now   func() time.Time
}

func newCascadeJournal(store *db.Store, now func() time.Time) *cascadeJournal {
	return &cascadeJournal{store: store, coll: store.Collection(db.PendingCascades), now: now}
}

func (j *cascadeJournal) deleteVideo(ctx context.Context, id primitive.ObjectID) (models.Video, error) {
	var video models.Video
	if err := j.store.Collection(db.Videos).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&video); err != nil {
		return models.Video{}, translate("find video", err)
	}

	entry := pendingCascade{ID: id, Video: video, CreatedAt: j.now().UTC()}
	_, err := j.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return models.Video{}, fmt.Errorf("journal cascade: %w", err)
	}

	if err := cascadeVideo(ctx, j.store, id); err != nil {
		return models.Video{}, err
	}
	if _, err := j.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		// The cascade itself finished; a leftover entry is replayed harmlessly.
		logging.FromContext(ctx).Warn("clear cascade journal", "videoId", id.Hex(), "error", err)
	}
	return video, nil
}

// resume replays every journaled cascade and returns the videos it finished. The
// journal holds the only remaining reference to their media, so callers must
// release it.
func (j *cascadeJournal) resume(ctx context.Context) ([]models.Video, error) {
	cursor, err := j.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list pending cascades: %w", err)
	}
	defer cursor.Close(ctx)

	var done []models.Video
	var errs []error
	for cursor.Next(ctx) {
		var entry pendingCascade
		if err := cursor.Decode(&entry); err != nil {
			errs = append(errs, fmt.Errorf("decode pending cascade: %w", err))
			continue
		}
		if err := cascadeVideo(ctx, j.store, entry.ID); err != nil {
			errs = append(errs, fmt.Errorf("resume cascade %s: %w", entry.ID.Hex(), err))
			continue
		}
		if _, err := j.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: entry.ID}}); err != nil {
			errs = append(errs, fmt.Errorf("clear cascade %s: %w", entry.ID.Hex(), err))
			continue
		}
		logging.FromContext(ctx).Info("resumed video cascade", "videoId", entry.ID.Hex())
		done = append(done, entry.Video)
	}
	if err := cursor.Err(); err != nil {
		errs = append(errs, fmt.Errorf("iterate pending cascades: %w", err))
	}
	return done, errors.Join(errs...)
}
