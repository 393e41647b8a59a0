package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clipcast/backend/internal/config"
)

// Collection names.
const (
	Users           = "users"
	Videos          = "videos"
	Comments        = "comments"
	Likes           = "likes"
	Subscriptions   = "subscriptions"
	PendingCascades = "pending_cascades"
)

// Store bundles the Mongo client with the application database.
type Store struct {
	Client *mongo.Client
	DB     *mongo.Database
	// Transactions reports whether multi-document transactions may be used.
	Transactions bool
}

// Connect opens a pooled client for the configured deployment and verifies it with a ping.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	store := &Store{Client: client, DB: client.Database(cfg.Database)}
	switch cfg.Transactions {
	case config.TransactionsOn:
		store.Transactions = true
	case config.TransactionsOff:
		store.Transactions = false
	default:
		store.Transactions = supportsTransactions(ctx, client)
	}
	return store, nil
}

// supportsTransactions asks the server whether it is part of a replica set or a
// sharded cluster; standalone servers reject multi-document transactions.
func supportsTransactions(ctx context.Context, client *mongo.Client) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

// Collection returns a handle on the named collection.
func (s *Store) Collection(name string) *mongo.Collection {
	return s.DB.Collection(name)
}

// WithTransaction runs fn inside a multi-document transaction. fn may be invoked more
// than once on transient errors and must only use the session context it receives.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx mongo.SessionContext) error) error {
	session, err := s.Client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

// Ping checks that the deployment is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}
