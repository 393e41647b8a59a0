package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clipcast/backend/internal/models"
)

const issuer = "clipcast"

var (
	// ErrSessionNotFound indicates the refresh token is not the one currently stored
	// for its account: it was rotated away, revoked, or never issued.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrTokenExpired indicates an access token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidToken indicates a malformed token or a bad signature.
	ErrInvalidToken = errors.New("invalid token")
)

// TokenStore persists the single outstanding refresh token of each account.
type TokenStore interface {
	SetRefreshToken(ctx context.Context, accountID, token string) error
	// SwapRefreshToken replaces current with next only if current is still the stored
	// value, returning ErrSessionNotFound otherwise.
	SwapRefreshToken(ctx context.Context, accountID, current, next string) error
	ClearRefreshToken(ctx context.Context, accountID string) error
}

// Manager issues signed access/refresh token pairs and rotates refresh tokens with
// compare-and-swap so a superseded refresh token cannot be replayed.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	store TokenStore
	now   func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager constructs a Manager that signs tokens with HS256.
func NewManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, store TokenStore, opts ...Option) *Manager {
	if store == nil {
		panic("auth: token store must not be nil")
	}
	m := &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		store:         store,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue creates a new token pair for the account and stores the refresh token,
// replacing any previous session.
func (m *Manager) Issue(ctx context.Context, accountID string) (models.SessionTokens, error) {
	tokens, err := m.sign(accountID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := m.store.SetRefreshToken(ctx, accountID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("store refresh token: %w", err)
	}
	return tokens, nil
}

// Refresh exchanges a refresh token for a new pair. Only the currently stored token
// is accepted; the swap makes concurrent refreshes with the same token race to a
// single winner.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}
	accountID, err := m.parse(refreshToken, m.refreshSecret)
	if errors.Is(err, ErrTokenExpired) {
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}
	if err != nil {
		return models.SessionTokens{}, err
	}

	tokens, err := m.sign(accountID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := m.store.SwapRefreshToken(ctx, accountID, refreshToken, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, err
	}
	return tokens, nil
}

// Revoke clears the account's stored refresh token.
func (m *Manager) Revoke(ctx context.Context, accountID string) error {
	if accountID == "" {
		return nil
	}
	return m.store.ClearRefreshToken(ctx, accountID)
}

// Authenticate verifies an access token and returns the account id it was issued to.
func (m *Manager) Authenticate(accessToken string) (string, error) {
	if accessToken == "" {
		return "", ErrInvalidToken
	}
	return m.parse(accessToken, m.accessSecret)
}

func (m *Manager) sign(accountID string) (models.SessionTokens, error) {
	if accountID == "" {
		return models.SessionTokens{}, errors.New("account id must be provided")
	}
	now := m.now().UTC()

	access, err := m.signOne(accountID, m.accessSecret, now, now.Add(m.accessTTL))
	if err != nil {
		return models.SessionTokens{}, err
	}
	refresh, err := m.signOne(accountID, m.refreshSecret, now, now.Add(m.refreshTTL))
	if err != nil {
		return models.SessionTokens{}, err
	}
	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}, nil
}

func (m *Manager) signOne(accountID string, secret []byte, now, expires time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   accountID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(token string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
