package query

import (
	"errors"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clipcast/backend/internal/models"
)

func kinds(ks ...StageKind) []StageKind { return ks }

func lookupValue(t *testing.T, d bson.D, key string) any {
	t.Helper()
	for _, e := range d {
		if e.Key == key {
			return e.Value
		}
	}
	t.Fatalf("key %q not found in %v", key, d)
	return nil
}

func TestVideoFeedStageOrder(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	page := models.PageRequest{Page: 2, Limit: 5}

	tests := []struct {
		name   string
		filter VideoFilter
		want   []StageKind
	}{
		{
			name:   "plain listing",
			filter: VideoFilter{Page: page},
			want:   kinds(KindMatch, KindSort, KindLookup, KindUnwind, KindFacet),
		},
		{
			name:   "search and owner",
			filter: VideoFilter{Query: "cats", Owner: owner, Page: page},
			want:   kinds(KindSearch, KindMatch, KindMatch, KindSort, KindLookup, KindUnwind, KindFacet),
		},
		{
			name:   "owner scope drops the publication filter",
			filter: VideoFilter{Owner: owner, Viewer: ViewerOf(owner), OwnerScope: true, Page: page},
			want:   kinds(KindMatch, KindSort, KindLookup, KindUnwind, KindFacet),
		},
		{
			name:   "owner scope for someone else keeps it",
			filter: VideoFilter{Owner: owner, Viewer: ViewerOf(primitive.NewObjectID()), OwnerScope: true, Page: page},
			want:   kinds(KindMatch, KindMatch, KindSort, KindLookup, KindUnwind, KindFacet),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := VideoFeed(tc.filter)
			if err != nil {
				t.Fatalf("VideoFeed returned error: %v", err)
			}
			if got := p.Kinds(); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("unexpected stages: got %v want %v", got, tc.want)
			}
		})
	}
}

func TestVideoFeedSort(t *testing.T) {
	t.Parallel()

	p, err := VideoFeed(VideoFilter{SortBy: "views", SortType: "asc"})
	if err != nil {
		t.Fatalf("VideoFeed returned error: %v", err)
	}
	var sort Sort
	for _, stage := range p {
		if s, ok := stage.(Sort); ok {
			sort = s
		}
	}
	want := []SortKey{{Field: "views"}, {Field: "_id"}}
	if !reflect.DeepEqual(sort.Keys, want) {
		t.Fatalf("unexpected sort keys: %+v", sort.Keys)
	}

	p, err = VideoFeed(VideoFilter{})
	if err != nil {
		t.Fatalf("VideoFeed returned error: %v", err)
	}
	for _, stage := range p {
		if s, ok := stage.(Sort); ok && (s.Keys[0].Field != "createdAt" || !s.Keys[0].Desc) {
			t.Fatalf("expected createdAt desc default, got %+v", s.Keys)
		}
	}
}

func TestVideoFeedRejectsUnknownSort(t *testing.T) {
	t.Parallel()

	for _, f := range []VideoFilter{
		{SortBy: "password"},
		{SortBy: "views", SortType: "sideways"},
	} {
		if _, err := VideoFeed(f); !errors.Is(err, ErrInvalidSort) {
			t.Fatalf("expected ErrInvalidSort for %+v, got %v", f, err)
		}
	}
}

func TestTextSearchModes(t *testing.T) {
	t.Parallel()

	text := TextSearch{Query: "go"}.Document()
	if text[0].Key != "$match" {
		t.Fatalf("expected $match for text mode, got %s", text[0].Key)
	}

	atlas := TextSearch{Mode: SearchAtlas, Index: "videos", Query: "go", Paths: []string{"title"}}.Document()
	if atlas[0].Key != "$search" {
		t.Fatalf("expected $search for atlas mode, got %s", atlas[0].Key)
	}
	spec := atlas[0].Value.(bson.D)
	if idx := lookupValue(t, spec, "index"); idx != "videos" {
		t.Fatalf("unexpected index %v", idx)
	}
}

func TestViewerInAnonymousIsLiteralFalse(t *testing.T) {
	t.Parallel()

	if got := viewerIn(NoViewer, "$likes.likedBy"); got != false {
		t.Fatalf("expected literal false, got %v", got)
	}
	id := primitive.NewObjectID()
	got, ok := viewerIn(ViewerOf(id), "$likes.likedBy").(bson.D)
	if !ok || got[0].Key != "$in" {
		t.Fatalf("expected $in expression, got %v", got)
	}
}

func TestVideoDetailVisibility(t *testing.T) {
	t.Parallel()

	id := primitive.NewObjectID()

	anon := VideoDetail(id, NoViewer)[0].(Match)
	if v := lookupValue(t, anon.Filter, "isPublished"); v != true {
		t.Fatalf("anonymous detail must require publication, got %v", v)
	}

	viewer := ViewerOf(primitive.NewObjectID())
	owned := VideoDetail(id, viewer)[0].(Match)
	or, ok := lookupValue(t, owned.Filter, "$or").(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected published-or-owner clause, got %v", owned.Filter)
	}
}

func TestPaginateBranches(t *testing.T) {
	t.Parallel()

	f := Paginate(models.PageRequest{Page: 3, Limit: 20})
	if len(f.Branches) != 2 {
		t.Fatalf("expected two branches, got %d", len(f.Branches))
	}
	docs := f.Branches[1]
	if docs.Name != FacetDocs {
		t.Fatalf("unexpected branch %s", docs.Name)
	}
	if skip := docs.Pipeline[0].(Skip); skip.N != 40 {
		t.Fatalf("expected skip 40, got %d", skip.N)
	}
	if limit := docs.Pipeline[1].(Limit); limit.N != 20 {
		t.Fatalf("expected limit 20, got %d", limit.N)
	}
}

func TestFacetResultTotal(t *testing.T) {
	t.Parallel()

	var empty FacetResult[models.VideoCard]
	if empty.Total() != 0 {
		t.Fatalf("expected zero total for empty metadata")
	}

	raw, err := bson.Marshal(bson.D{
		{Key: FacetMetadata, Value: bson.A{bson.D{{Key: "total", Value: int64(7)}}}},
		{Key: FacetDocs, Value: bson.A{}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var res FacetResult[models.VideoCard]
	if err := bson.Unmarshal(raw, &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Total() != 7 {
		t.Fatalf("expected total 7, got %d", res.Total())
	}
}

func TestListingPipelinesEndWithFacet(t *testing.T) {
	t.Parallel()

	id := primitive.NewObjectID()
	page := models.PageRequest{Page: 1, Limit: 10}
	pipelines := map[string]Pipeline{
		"comments":    VideoComments(id, NoViewer, page),
		"subscribers": ChannelSubscribers(id, page),
		"subscribed":  SubscribedChannels(id, page),
		"liked":       LikedVideos(id, page),
	}
	for name, p := range pipelines {
		if last := p[len(p)-1].Kind(); last != KindFacet {
			t.Errorf("%s: expected trailing facet, got %s", name, last)
		}
		if got := len(p.BSON()); got != len(p) {
			t.Errorf("%s: rendered %d stages, want %d", name, got, len(p))
		}
	}
}

func TestChannelProfileNormalizesUsername(t *testing.T) {
	t.Parallel()

	p := ChannelProfile("  Alice ", NoViewer)
	m := p[0].(Match)
	if got := lookupValue(t, m.Filter, "username"); got != "alice" {
		t.Fatalf("expected lowercased username, got %v", got)
	}
	add := p[3].(AddFields)
	if got := lookupValue(t, add.Fields, "isSubscribed"); got != false {
		t.Fatalf("anonymous isSubscribed should be false, got %v", got)
	}
}

func TestOwnerDetailsProjectsUsernameAndAvatar(t *testing.T) {
	t.Parallel()

	p, err := VideoFeed(VideoFilter{Page: models.PageRequest{Page: 1, Limit: 10}})
	if err != nil {
		t.Fatalf("VideoFeed returned error: %v", err)
	}
	var join Lookup
	for _, s := range p {
		if l, ok := s.(Lookup); ok && l.As == "ownerDetails" {
			join = l
		}
	}
	if len(join.Pipeline) != 1 {
		t.Fatalf("expected a single projection in the owner join, got %v", join.Pipeline.Kinds())
	}
	want := bson.D{{Key: "username", Value: 1}, {Key: "avatar", Value: 1}}
	if got := join.Pipeline[0].(Project).Fields; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected owner projection: got %v want %v", got, want)
	}
}
