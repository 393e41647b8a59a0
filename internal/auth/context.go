package auth

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type accountKey struct{}

// WithAccountID marks the request as made by accountID.
func WithAccountID(ctx context.Context, accountID primitive.ObjectID) context.Context {
	if accountID.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, accountKey{}, accountID)
}

// AccountIDFromContext returns the authenticated account, if any.
func AccountIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(accountKey{}).(primitive.ObjectID)
	return id, ok && !id.IsZero()
}
