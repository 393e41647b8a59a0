package middleware

import (
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clipcast/backend/internal/auth"
	"github.com/clipcast/backend/internal/logging"
)

// AccessTokenCookie names the cookie carrying the access token.
const AccessTokenCookie = "accessToken"

// TokenVerifier resolves an access token to the account id it was issued for.
type TokenVerifier interface {
	Authenticate(accessToken string) (string, error)
}

// Authenticate attaches the caller's account id to the request context when a valid
// access token is presented. Requests without one, or with a stale one, continue
// anonymously; RequireAccount turns those away on protected routes.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := AccessToken(r)
			if token == "" || verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			subject, err := verifier.Authenticate(token)
			if err != nil {
				logging.FromContext(r.Context()).Debug("access token rejected", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			accountID, err := primitive.ObjectIDFromHex(subject)
			if err != nil {
				logging.FromContext(r.Context()).Warn("access token subject is not an account id", "subject", subject)
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithAccountID(r.Context(), accountID)
			ctx = logging.With(ctx, "account_id", subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAccount answers 401 unless Authenticate resolved an account.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.AccountIDFromContext(r.Context()); !ok {
			writeError(r.Context(), w, http.StatusUnauthorized, "unauthorized request")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AccessToken reads the access token from its cookie or a bearer Authorization header.
func AccessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
