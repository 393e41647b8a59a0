package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clipcast/backend/internal/logging"
	"github.com/clipcast/backend/internal/models"
	"github.com/clipcast/backend/internal/query"
)

// aggregateOne runs p and decodes its first result. An empty result is ErrNotFound.
func aggregateOne[T any](ctx context.Context, coll *mongo.Collection, view string, p query.Pipeline) (out T, err error) {
	ctx, span := logging.StartSpan(ctx, "mongo.aggregate", "collection", coll.Name(), "view", view)
	defer func() { span.EndErr(err) }()

	cursor, err := coll.Aggregate(ctx, p.BSON())
	if err != nil {
		return out, fmt.Errorf("aggregate %s: %w", view, err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return out, fmt.Errorf("aggregate %s: %w", view, err)
		}
		return out, ErrNotFound
	}
	if err := cursor.Decode(&out); err != nil {
		return out, fmt.Errorf("decode %s: %w", view, err)
	}
	return out, nil
}

// aggregatePage runs a pipeline ending in query.Paginate and assembles the page.
func aggregatePage[T any](ctx context.Context, coll *mongo.Collection, view string, p query.Pipeline, page models.PageRequest) (models.Page[T], error) {
	res, err := aggregateOne[query.FacetResult[T]](ctx, coll, view, p)
	if err != nil {
		return models.Page[T]{}, err
	}
	return models.NewPage(res.Docs, res.Total(), page), nil
}

// pageOf fills page defaults without lowering a limit the caller already allowed.
func pageOf(p models.PageRequest) models.PageRequest {
	if p.Limit > models.MaxPageLimit {
		return p.Normalize(p.Limit, p.Limit)
	}
	return p.Normalize(models.DefaultPageLimit, models.MaxPageLimit)
}
