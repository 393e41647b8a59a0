package query

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/clipcast/backend/internal/models"
)

const (
	// FacetMetadata holds the {total} document produced by Paginate.
	FacetMetadata = "metadata"
	// FacetDocs holds the page of documents produced by Paginate.
	FacetDocs = "docs"
)

// Paginate counts the input and slices out one page in a single round trip.
func Paginate(page models.PageRequest) Facet {
	return Facet{Branches: []FacetBranch{
		{Name: FacetMetadata, Pipeline: Pipeline{Count{Field: "total"}}},
		{Name: FacetDocs, Pipeline: Pipeline{
			Skip{N: page.Skip()},
			Limit{N: int64(page.Limit)},
		}},
	}}
}

// FacetResult is the decoded output of a pipeline ending in Paginate.
type FacetResult[T any] struct {
	Metadata []struct {
		Total int64 `bson:"total"`
	} `bson:"metadata"`
	Docs []T `bson:"docs"`
}

// Total returns the counted number of matching documents.
func (r FacetResult[T]) Total() int64 {
	if len(r.Metadata) == 0 {
		return 0
	}
	return r.Metadata[0].Total
}

// viewerIn evaluates to true when viewer appears in the array at path. Anonymous
// viewers get the literal false so no lookup result can flip it.
func viewerIn(viewer Viewer, path string) any {
	if viewer.Anonymous() {
		return false
	}
	return bson.D{{Key: "$in", Value: bson.A{viewer.ID, path}}}
}

func sizeOf(path string) bson.D {
	return bson.D{{Key: "$size", Value: path}}
}

func firstOf(path string) bson.D {
	return bson.D{{Key: "$first", Value: path}}
}

func include(fields ...string) bson.D {
	out := make(bson.D, 0, len(fields))
	for _, f := range fields {
		out = append(out, bson.E{Key: f, Value: 1})
	}
	return out
}
