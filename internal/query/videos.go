package query

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clipcast/backend/internal/db"
	"github.com/clipcast/backend/internal/models"
)

// ErrInvalidSort indicates a sort field or direction outside the allowed set.
var ErrInvalidSort = errors.New("invalid sort")

// Viewer identifies who is looking at a view model. The zero value is anonymous.
type Viewer struct {
	ID primitive.ObjectID
}

// NoViewer is the anonymous viewer.
var NoViewer = Viewer{}

// ViewerOf wraps an account id.
func ViewerOf(id primitive.ObjectID) Viewer {
	return Viewer{ID: id}
}

// Anonymous reports whether no account is attached.
func (v Viewer) Anonymous() bool {
	return v.ID.IsZero()
}

var sortableVideoFields = map[string]struct{}{
	"createdAt": {},
	"views":     {},
	"duration":  {},
	"title":     {},
}

// SearchOptions selects the free-text engine for VideoFeed.
type SearchOptions struct {
	Mode  SearchMode
	Index string
}

// VideoFilter holds the listing parameters accepted by VideoFeed.
type VideoFilter struct {
	Query    string
	Owner    primitive.ObjectID
	SortBy   string
	SortType string
	Page     models.PageRequest
	Viewer   Viewer
	// OwnerScope lists the viewer's own uploads, drafts included. It only takes
	// effect when Owner equals the viewer.
	OwnerScope bool
	Search     SearchOptions
}

func (f VideoFilter) includesUnpublished() bool {
	return f.OwnerScope && !f.Viewer.Anonymous() && f.Viewer.ID == f.Owner
}

// VideoFeed lists videos: search, owner filter, publication filter, sort, owner join, page.
func VideoFeed(f VideoFilter) (Pipeline, error) {
	sort, err := feedSort(f.SortBy, f.SortType)
	if err != nil {
		return nil, err
	}

	var p Pipeline
	if q := strings.TrimSpace(f.Query); q != "" {
		mode := f.Search.Mode
		if mode == "" {
			mode = SearchText
		}
		p = append(p, TextSearch{
			Mode:  mode,
			Index: f.Search.Index,
			Query: q,
			Paths: []string{"title", "description"},
		})
	}
	if !f.Owner.IsZero() {
		p = append(p, Match{Filter: bson.D{{Key: "owner", Value: f.Owner}}})
	}
	if !f.includesUnpublished() {
		p = append(p, Match{Filter: bson.D{{Key: "isPublished", Value: true}}})
	}
	p = append(p, sort)
	p = append(p, ownerDetails()...)
	p = append(p, Paginate(f.Page))
	return p, nil
}

func feedSort(field, direction string) (Sort, error) {
	field = strings.TrimSpace(field)
	direction = strings.ToLower(strings.TrimSpace(direction))
	if field == "" {
		return Sort{Keys: []SortKey{{Field: "createdAt", Desc: true}, {Field: "_id", Desc: true}}}, nil
	}
	if _, ok := sortableVideoFields[field]; !ok {
		return Sort{}, ErrInvalidSort
	}
	var desc bool
	switch direction {
	case "", "desc":
		desc = true
	case "asc":
		desc = false
	default:
		return Sort{}, ErrInvalidSort
	}
	return Sort{Keys: []SortKey{{Field: field, Desc: desc}, {Field: "_id", Desc: desc}}}, nil
}

// ownerDetails joins the owning account as ownerDetails{username, avatar}.
func ownerDetails() Pipeline {
	return Pipeline{
		Lookup{
			From:         db.Users,
			LocalField:   "owner",
			ForeignField: "_id",
			As:           "ownerDetails",
			Pipeline:     Pipeline{Project{Fields: include("username", "avatar")}},
		},
		Unwind{Path: "$ownerDetails"},
	}
}

// VideoDetail resolves one video with like count, the owner's subscriber count and
// the viewer's like/subscribe state. Drafts resolve only for their owner.
func VideoDetail(videoID primitive.ObjectID, viewer Viewer) Pipeline {
	visible := bson.D{{Key: "isPublished", Value: true}}
	if !viewer.Anonymous() {
		visible = bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "isPublished", Value: true}},
			bson.D{{Key: "owner", Value: viewer.ID}},
		}}}
	}
	filter := append(bson.D{{Key: "_id", Value: videoID}}, visible...)

	return Pipeline{
		Match{Filter: filter},
		Lookup{From: db.Likes, LocalField: "_id", ForeignField: "video", As: "likes"},
		Lookup{
			From:         db.Users,
			LocalField:   "owner",
			ForeignField: "_id",
			As:           "owner",
			Pipeline: Pipeline{
				Lookup{From: db.Subscriptions, LocalField: "_id", ForeignField: "channel", As: "subscribers"},
				AddFields{Fields: bson.D{
					{Key: "subscribersCount", Value: sizeOf("$subscribers")},
					{Key: "isSubscribed", Value: viewerIn(viewer, "$subscribers.subscriber")},
				}},
				Project{Fields: include("username", "fullName", "avatar", "subscribersCount", "isSubscribed")},
			},
		},
		AddFields{Fields: bson.D{
			{Key: "likesCount", Value: sizeOf("$likes")},
			{Key: "owner", Value: firstOf("$owner")},
			{Key: "isLiked", Value: viewerIn(viewer, "$likes.likedBy")},
		}},
		Project{Fields: include(
			"videoFile", "thumbnail", "title", "description", "views", "createdAt",
			"duration", "isPublished", "owner", "likesCount", "isLiked",
		)},
	}
}

// LikedVideos lists published videos the account liked, most recent like first.
func LikedVideos(accountID primitive.ObjectID, page models.PageRequest) Pipeline {
	videoPipeline := Pipeline{Match{Filter: bson.D{{Key: "isPublished", Value: true}}}}
	videoPipeline = append(videoPipeline, ownerDetails()...)

	return Pipeline{
		Match{Filter: bson.D{
			{Key: "likedBy", Value: accountID},
			{Key: "video", Value: bson.D{{Key: "$exists", Value: true}}},
		}},
		Sort{Keys: []SortKey{{Field: "createdAt", Desc: true}, {Field: "_id", Desc: true}}},
		Lookup{
			From:         db.Videos,
			LocalField:   "video",
			ForeignField: "_id",
			As:           "likedVideo",
			Pipeline:     videoPipeline,
		},
		Unwind{Path: "$likedVideo"},
		ReplaceRoot{NewRoot: "$likedVideo"},
		Paginate(page),
	}
}
