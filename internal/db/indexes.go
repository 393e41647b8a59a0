package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexSpec names an index and the collection it belongs to.
type IndexSpec struct {
	Collection string
	Model      mongo.IndexModel
}

// Name returns the explicit index name.
func (s IndexSpec) Name() string {
	if s.Model.Options == nil || s.Model.Options.Name == nil {
		return ""
	}
	return *s.Model.Options.Name
}

// Indexes lists every index the repositories rely on. Uniqueness of usernames,
// emails, subscription edges and like edges is enforced here.
func Indexes() []IndexSpec {
	return []IndexSpec{
		{Users, mongo.IndexModel{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("users_username_unique").SetUnique(true),
		}},
		{Users, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("users_email_unique").SetUnique(true),
		}},
		{Videos, mongo.IndexModel{
			Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}},
			Options: options.Index().SetName("videos_text"),
		}},
		{Videos, mongo.IndexModel{
			Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("videos_owner_created"),
		}},
		{Comments, mongo.IndexModel{
			Keys:    bson.D{{Key: "video", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("comments_video_created"),
		}},
		{Likes, mongo.IndexModel{
			Keys: bson.D{{Key: "likedBy", Value: 1}, {Key: "video", Value: 1}},
			Options: options.Index().SetName("likes_video_unique").SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "video", Value: bson.D{{Key: "$exists", Value: true}}}}),
		}},
		{Likes, mongo.IndexModel{
			Keys: bson.D{{Key: "likedBy", Value: 1}, {Key: "comment", Value: 1}},
			Options: options.Index().SetName("likes_comment_unique").SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "comment", Value: bson.D{{Key: "$exists", Value: true}}}}),
		}},
		{Subscriptions, mongo.IndexModel{
			Keys:    bson.D{{Key: "subscriber", Value: 1}, {Key: "channel", Value: 1}},
			Options: options.Index().SetName("subscriptions_edge_unique").SetUnique(true),
		}},
		{Subscriptions, mongo.IndexModel{
			Keys:    bson.D{{Key: "channel", Value: 1}},
			Options: options.Index().SetName("subscriptions_channel"),
		}},
	}
}

// EnsureIndexes creates any missing index. Existing indexes with the same
// definition are left untouched.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, spec := range Indexes() {
		if _, err := s.Collection(spec.Collection).Indexes().CreateOne(ctx, spec.Model); err != nil {
			return fmt.Errorf("create index %s on %s: %w", spec.Name(), spec.Collection, err)
		}
	}
	return nil
}

// IndexStatus reports whether an expected index is present.
type IndexStatus struct {
	Collection string
	Name       string
	Present    bool
}

// IndexReport compares the expected indexes against those the server holds.
func (s *Store) IndexReport(ctx context.Context) ([]IndexStatus, error) {
	existing := make(map[string]map[string]struct{})
	var report []IndexStatus
	for _, spec := range Indexes() {
		names, ok := existing[spec.Collection]
		if !ok {
			var err error
			names, err = s.indexNames(ctx, spec.Collection)
			if err != nil {
				return nil, err
			}
			existing[spec.Collection] = names
		}
		_, present := names[spec.Name()]
		report = append(report, IndexStatus{Collection: spec.Collection, Name: spec.Name(), Present: present})
	}
	return report, nil
}

func (s *Store) indexNames(ctx context.Context, collection string) (map[string]struct{}, error) {
	cursor, err := s.Collection(collection).Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes on %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	names := make(map[string]struct{})
	for cursor.Next(ctx) {
		var idx struct {
			Name string `bson:"name"`
		}
		if err := cursor.Decode(&idx); err != nil {
			return nil, fmt.Errorf("decode index on %s: %w", collection, err)
		}
		names[idx.Name] = struct{}{}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate indexes on %s: %w", collection, err)
	}
	return names, nil
}
