package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clipcast/backend/internal/auth"
	"github.com/clipcast/backend/internal/db"
	"github.com/clipcast/backend/internal/models"
	"github.com/clipcast/backend/internal/query"
)

// MongoAccountRepository persists accounts in the users collection. It also serves
// as the refresh-token store of auth.Manager.
type MongoAccountRepository struct {
	coll         *mongo.Collection
	now          func() time.Time
	historyLimit int
}

// WatchHistoryLimit is how many of the most recent views an account keeps.
const WatchHistoryLimit = 1000

// NewMongoAccountRepository constructs an account repository backed by MongoDB.
func NewMongoAccountRepository(store *db.Store) *MongoAccountRepository {
	return &MongoAccountRepository{coll: store.Collection(db.Users), now: time.Now, historyLimit: WatchHistoryLimit}
}

var _ auth.TokenStore = (*MongoAccountRepository)(nil)

// Create inserts a new account. Username and email are stored lowercased and must be
// unique.
func (r *MongoAccountRepository) Create(ctx context.Context, account *models.Account) error {
	now := r.now().UTC()
	account.ID = primitive.NewObjectID()
	account.Username = strings.ToLower(strings.TrimSpace(account.Username))
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	account.CreatedAt = now
	account.UpdatedAt = now
	if account.WatchHistory == nil {
		account.WatchHistory = []primitive.ObjectID{}
	}

	if _, err := r.coll.InsertOne(ctx, account); err != nil {
		return translate("insert account", err)
	}
	return nil
}

// FindByID fetches an account by id.
func (r *MongoAccountRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Account, error) {
	var account models.Account
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&account)
	if err != nil {
		return models.Account{}, translate("find account", err)
	}
	return account, nil
}

// FindByLogin fetches the account matching username or email, whichever is given.
func (r *MongoAccountRepository) FindByLogin(ctx context.Context, username, email string) (models.Account, error) {
	var or bson.A
	if u := strings.ToLower(strings.TrimSpace(username)); u != "" {
		or = append(or, bson.D{{Key: "username", Value: u}})
	}
	if e := strings.ToLower(strings.TrimSpace(email)); e != "" {
		or = append(or, bson.D{{Key: "email", Value: e}})
	}
	if len(or) == 0 {
		return models.Account{}, ErrNotFound
	}

	var account models.Account
	if err := r.coll.FindOne(ctx, bson.D{{Key: "$or", Value: or}}).Decode(&account); err != nil {
		return models.Account{}, translate("find account by login", err)
	}
	return account, nil
}

// UpdateDetails changes the display name and email and returns the updated account.
func (r *MongoAccountRepository) UpdateDetails(ctx context.Context, id primitive.ObjectID, fullName, email string) (models.Account, error) {
	return r.update(ctx, id, bson.D{
		{Key: "fullName", Value: strings.TrimSpace(fullName)},
		{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))},
	}, options.After)
}

// UpdatePassword stores a new credential hash.
func (r *MongoAccountRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := r.update(ctx, id, bson.D{{Key: "password", Value: hash}}, options.After)
	return err
}

// ReplaceAvatar points the account at a new avatar and returns the one it replaced.
func (r *MongoAccountRepository) ReplaceAvatar(ctx context.Context, id primitive.ObjectID, avatar models.MediaObject) (models.MediaObject, error) {
	before, err := r.update(ctx, id, bson.D{{Key: "avatar", Value: avatar}}, options.Before)
	if err != nil {
		return models.MediaObject{}, err
	}
	return before.Avatar, nil
}

// ReplaceCoverImage points the account at a new cover image and returns the previous
// one, or a zero MediaObject when there was none.
func (r *MongoAccountRepository) ReplaceCoverImage(ctx context.Context, id primitive.ObjectID, cover models.MediaObject) (models.MediaObject, error) {
	before, err := r.update(ctx, id, bson.D{{Key: "coverImage", Value: cover}}, options.Before)
	if err != nil {
		return models.MediaObject{}, err
	}
	if before.CoverImage == nil {
		return models.MediaObject{}, nil
	}
	return *before.CoverImage, nil
}

func (r *MongoAccountRepository) update(ctx context.Context, id primitive.ObjectID, set bson.D, doc options.ReturnDocument) (models.Account, error) {
	set = append(set, bson.E{Key: "updatedAt", Value: r.now().UTC()})
	opts := options.FindOneAndUpdate().SetReturnDocument(doc)

	var account models.Account
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: set}}, opts).Decode(&account)
	if err != nil {
		return models.Account{}, translate("update account", err)
	}
	return account, nil
}

// AppendWatchHistory records that the account viewed videoID. Repeat views are kept,
// but only the latest historyLimit entries survive.
func (r *MongoAccountRepository) AppendWatchHistory(ctx context.Context, id, videoID primitive.ObjectID) error {
	push := bson.D{{Key: "watchHistory", Value: bson.D{
		{Key: "$each", Value: bson.A{videoID}},
		{Key: "$slice", Value: -r.historyLimit},
	}}}
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$push", Value: push}})
	if err != nil {
		return fmt.Errorf("append watch history: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRefreshToken stores token as the account's only valid refresh token.
func (r *MongoAccountRepository) SetRefreshToken(ctx context.Context, accountID, token string) error {
	id, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "refreshToken", Value: token}}}},
	)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SwapRefreshToken replaces current with next in a single conditional update. A
// token that is no longer the stored one matches nothing and yields
// auth.ErrSessionNotFound.
func (r *MongoAccountRepository) SwapRefreshToken(ctx context.Context, accountID, current, next string) error {
	id, err := primitive.ObjectIDFromHex(accountID)
	if err != nil || current == "" {
		return auth.ErrSessionNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "refreshToken", Value: current}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "refreshToken", Value: next}}}},
	)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

// ClearRefreshToken removes the stored refresh token, ending the session.
func (r *MongoAccountRepository) ClearRefreshToken(ctx context.Context, accountID string) error {
	id, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil
	}
	_, err = r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$unset", Value: bson.D{{Key: "refreshToken", Value: ""}}}},
	)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// ChannelProfile builds the public profile for username as seen by viewer.
func (r *MongoAccountRepository) ChannelProfile(ctx context.Context, username string, viewer query.Viewer) (models.ChannelProfile, error) {
	return aggregateOne[models.ChannelProfile](ctx, r.coll, "channel_profile", query.ChannelProfile(username, viewer))
}

// WatchHistory resolves the account's history into video cards in stored order.
func (r *MongoAccountRepository) WatchHistory(ctx context.Context, id primitive.ObjectID) ([]models.VideoCard, error) {
	res, err := aggregateOne[query.HistoryResult](ctx, r.coll, "watch_history", query.WatchHistory(id))
	if err != nil {
		return nil, err
	}
	if res.History == nil {
		return []models.VideoCard{}, nil
	}
	return res.History, nil
}

// Exists reports whether an account with id exists.
func (r *MongoAccountRepository) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}},
		options.FindOne().SetProjection(bson.D{{Key: "_id", Value: 1}})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("account exists: %w", err)
	}
	return true, nil
}
