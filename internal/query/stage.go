// Package query builds typed aggregation pipelines for the view-model layer.
//
// Builders are pure functions of their inputs: they never touch the database, so the
// shape of every pipeline can be asserted in tests before it is executed by a repository.
package query

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// StageKind tags each stage of a Pipeline.
type StageKind int

const (
	KindSearch StageKind = iota + 1
	KindMatch
	KindSort
	KindLookup
	KindUnwind
	KindAddFields
	KindProject
	KindReplaceRoot
	KindSkip
	KindLimit
	KindCount
	KindFacet
)

var kindNames = map[StageKind]string{
	KindSearch:      "search",
	KindMatch:       "match",
	KindSort:        "sort",
	KindLookup:      "lookup",
	KindUnwind:      "unwind",
	KindAddFields:   "addFields",
	KindProject:     "project",
	KindReplaceRoot: "replaceRoot",
	KindSkip:        "skip",
	KindLimit:       "limit",
	KindCount:       "count",
	KindFacet:       "facet",
}

func (k StageKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Stage is one step of an aggregation pipeline.
type Stage interface {
	Kind() StageKind
	Document() bson.D
}

// Pipeline is an ordered sequence of stages.
type Pipeline []Stage

// Kinds lists the stage tags in order.
func (p Pipeline) Kinds() []StageKind {
	kinds := make([]StageKind, 0, len(p))
	for _, stage := range p {
		kinds = append(kinds, stage.Kind())
	}
	return kinds
}

// BSON renders the pipeline in the form accepted by Collection.Aggregate.
func (p Pipeline) BSON() mongo.Pipeline {
	out := make(mongo.Pipeline, 0, len(p))
	for _, stage := range p {
		out = append(out, stage.Document())
	}
	return out
}

// SearchMode selects how free-text queries are executed.
type SearchMode string

const (
	// SearchText uses a $text match against the collection's text index.
	SearchText SearchMode = "text"
	// SearchAtlas uses an Atlas Search index through $search.
	SearchAtlas SearchMode = "atlas"
)

// TextSearch matches documents whose Paths contain Query. It must be the first stage.
type TextSearch struct {
	Mode  SearchMode
	Index string
	Query string
	Paths []string
}

func (TextSearch) Kind() StageKind { return KindSearch }

func (s TextSearch) Document() bson.D {
	if s.Mode == SearchAtlas {
		paths := bson.A{}
		for _, p := range s.Paths {
			paths = append(paths, p)
		}
		return bson.D{{Key: "$search", Value: bson.D{
			{Key: "index", Value: s.Index},
			{Key: "text", Value: bson.D{
				{Key: "query", Value: s.Query},
				{Key: "path", Value: paths},
			}},
		}}}
	}
	return bson.D{{Key: "$match", Value: bson.D{
		{Key: "$text", Value: bson.D{{Key: "$search", Value: s.Query}}},
	}}}
}

// Match filters documents.
type Match struct {
	Filter bson.D
}

func (Match) Kind() StageKind { return KindMatch }

func (m Match) Document() bson.D {
	return bson.D{{Key: "$match", Value: m.Filter}}
}

// SortKey is one field of a Sort stage.
type SortKey struct {
	Field string
	Desc  bool
}

// Sort orders documents by the keys in sequence.
type Sort struct {
	Keys []SortKey
}

func (Sort) Kind() StageKind { return KindSort }

func (s Sort) Document() bson.D {
	spec := bson.D{}
	for _, key := range s.Keys {
		dir := 1
		if key.Desc {
			dir = -1
		}
		spec = append(spec, bson.E{Key: key.Field, Value: dir})
	}
	return bson.D{{Key: "$sort", Value: spec}}
}

// Lookup joins documents from another collection by equality on LocalField/ForeignField,
// optionally refining the joined set with a sub-pipeline.
type Lookup struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
	Pipeline     Pipeline
}

func (Lookup) Kind() StageKind { return KindLookup }

func (l Lookup) Document() bson.D {
	spec := bson.D{
		{Key: "from", Value: l.From},
		{Key: "localField", Value: l.LocalField},
		{Key: "foreignField", Value: l.ForeignField},
		{Key: "as", Value: l.As},
	}
	if len(l.Pipeline) > 0 {
		spec = append(spec, bson.E{Key: "pipeline", Value: l.Pipeline.BSON()})
	}
	return bson.D{{Key: "$lookup", Value: spec}}
}

// Unwind flattens an array field, dropping documents where it is empty.
type Unwind struct {
	Path string
}

func (Unwind) Kind() StageKind { return KindUnwind }

func (u Unwind) Document() bson.D {
	return bson.D{{Key: "$unwind", Value: u.Path}}
}

// AddFields computes new fields from the input document.
type AddFields struct {
	Fields bson.D
}

func (AddFields) Kind() StageKind { return KindAddFields }

func (a AddFields) Document() bson.D {
	return bson.D{{Key: "$addFields", Value: a.Fields}}
}

// Project keeps or computes the listed fields.
type Project struct {
	Fields bson.D
}

func (Project) Kind() StageKind { return KindProject }

func (p Project) Document() bson.D {
	return bson.D{{Key: "$project", Value: p.Fields}}
}

// ReplaceRoot promotes an embedded document to the top level.
type ReplaceRoot struct {
	NewRoot string
}

func (ReplaceRoot) Kind() StageKind { return KindReplaceRoot }

func (r ReplaceRoot) Document() bson.D {
	return bson.D{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: r.NewRoot}}}}
}

// Skip discards the first N documents.
type Skip struct {
	N int64
}

func (Skip) Kind() StageKind { return KindSkip }

func (s Skip) Document() bson.D {
	return bson.D{{Key: "$skip", Value: s.N}}
}

// Limit keeps at most N documents.
type Limit struct {
	N int64
}

func (Limit) Kind() StageKind { return KindLimit }

func (l Limit) Document() bson.D {
	return bson.D{{Key: "$limit", Value: l.N}}
}

// Count replaces the stream with a single document holding the number of inputs.
type Count struct {
	Field string
}

func (Count) Kind() StageKind { return KindCount }

func (c Count) Document() bson.D {
	return bson.D{{Key: "$count", Value: c.Field}}
}

// FacetBranch is one named sub-pipeline of a Facet stage.
type FacetBranch struct {
	Name     string
	Pipeline Pipeline
}

// Facet runs several sub-pipelines over the same input.
type Facet struct {
	Branches []FacetBranch
}

func (Facet) Kind() StageKind { return KindFacet }

func (f Facet) Document() bson.D {
	spec := bson.D{}
	for _, branch := range f.Branches {
		spec = append(spec, bson.E{Key: branch.Name, Value: branch.Pipeline.BSON()})
	}
	return bson.D{{Key: "$facet", Value: spec}}
}
