package db

import "testing"

func TestIndexesAreNamedAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, spec := range Indexes() {
		name := spec.Name()
		if name == "" {
			t.Fatalf("index on %s has no name", spec.Collection)
		}
		if seen[name] {
			t.Fatalf("duplicate index name %s", name)
		}
		seen[name] = true
	}

	for _, want := range []string{
		"users_username_unique",
		"users_email_unique",
		"subscriptions_edge_unique",
		"likes_video_unique",
		"likes_comment_unique",
		"videos_text",
	} {
		if !seen[want] {
			t.Errorf("expected index %s", want)
		}
	}
}

func TestLikeIndexesArePartial(t *testing.T) {
	for _, spec := range Indexes() {
		if spec.Collection != Likes {
			continue
		}
		opts := spec.Model.Options
		if opts.Unique == nil || !*opts.Unique {
			t.Errorf("%s should be unique", spec.Name())
		}
		if opts.PartialFilterExpression == nil {
			t.Errorf("%s should be partial so a like targets one kind", spec.Name())
		}
	}
}
