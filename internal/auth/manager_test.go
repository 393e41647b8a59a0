package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(store TokenStore) (*Manager, *clock) {
	c := &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewManager("access-secret", "refresh-secret", time.Minute, time.Hour, store, WithClock(c.Now)), c
}

func TestManagerIssueAndRefresh(t *testing.T) {
	store := NewInMemoryTokenStore()
	manager, _ := newTestManager(store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}
	if store.Current("user-1") != tokens.RefreshToken {
		t.Fatal("refresh token should be stored on issue")
	}

	refreshed, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected new refresh token")
	}
	if store.Current("user-1") != refreshed.RefreshToken {
		t.Fatal("stored token should be the rotated one")
	}

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("replaying a superseded token should fail, got %v", err)
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager, _ := newTestManager(NewInMemoryTokenStore())
	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty account id")
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	manager, c := newTestManager(NewInMemoryTokenStore())

	if _, err := manager.Refresh(context.Background(), ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found got %v", err)
	}
	if _, err := manager.Refresh(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := manager.Refresh(context.Background(), tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("an access token must not be accepted as a refresh token, got %v", err)
	}

	c.Advance(2 * time.Hour)
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected refresh expired got %v", err)
	}

	tokens, err = manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := manager.Revoke(context.Background(), "user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found after revoke got %v", err)
	}
}

func TestManagerConcurrentRefreshHasOneWinner(t *testing.T) {
	manager, _ := newTestManager(NewInMemoryTokenStore())
	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const attempts = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful refresh, got %d", wins)
	}
}

func TestManagerAuthenticate(t *testing.T) {
	manager, c := newTestManager(NewInMemoryTokenStore())
	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := manager.Authenticate(tokens.AccessToken)
	if err != nil || id != "user-1" {
		t.Fatalf("authenticate: id=%q err=%v", id, err)
	}
	if _, err := manager.Authenticate(tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token must not authenticate requests, got %v", err)
	}

	c.Advance(2 * time.Minute)
	if _, err := manager.Authenticate(tokens.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired access token, got %v", err)
	}
}

func TestAccountContext(t *testing.T) {
	if _, ok := AccountIDFromContext(context.Background()); ok {
		t.Fatal("empty context should be anonymous")
	}
	id := primitive.NewObjectID()
	got, ok := AccountIDFromContext(WithAccountID(context.Background(), id))
	if !ok || got != id {
		t.Fatalf("expected %s, got %s (ok=%v)", id, got, ok)
	}
}
