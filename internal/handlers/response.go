package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clipcast/backend/internal/auth"
	"github.com/clipcast/backend/internal/config"
	"github.com/clipcast/backend/internal/logging"
	"github.com/clipcast/backend/internal/models"
	"github.com/clipcast/backend/internal/query"
	"github.com/clipcast/backend/internal/repositories"
	"github.com/clipcast/backend/internal/storage"
	"github.com/clipcast/backend/internal/validation"
)

// envelope is the body of every API response. Failures carry no data.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// apiError pins the status and client-facing message of a failure.
type apiError struct {
	status  int
	message string
	err     error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *apiError) Unwrap() error { return e.err }

func badRequest(message string) error   { return &apiError{status: http.StatusBadRequest, message: message} }
func forbidden(message string) error    { return &apiError{status: http.StatusForbidden, message: message} }
func unauthorized(message string) error { return &apiError{status: http.StatusUnauthorized, message: message} }

// notFoundAs gives a repository not-found error a resource specific message.
func notFoundAs(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return &apiError{status: http.StatusNotFound, message: message, err: err}
	}
	return err
}

// conflictAs gives a uniqueness violation a resource specific message.
func conflictAs(err error, message string) error {
	if errors.Is(err, repositories.ErrConflict) {
		return &apiError{status: http.StatusConflict, message: message, err: err}
	}
	return err
}

// statusFor maps an error onto the response status and message.
func statusFor(err error) (int, string) {
	var apiErr *apiError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.status, apiErr.message
	case errors.Is(err, &validation.Error{}):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, query.ErrInvalidSort):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrEmptyObject):
		return http.StatusBadRequest, "uploaded file is empty"
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, repositories.ErrConflict):
		return http.StatusConflict, "resource already exists"
	case errors.Is(err, auth.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, "refresh token is expired"
	case errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "invalid refresh token"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func respond(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	writeEnvelope(ctx, w, envelope{StatusCode: status, Data: data, Message: message, Success: status < http.StatusBadRequest})
}

func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "error", err)
	default:
		logger.Warn("request returned client error", "status", status, "error", err)
	}
	writeEnvelope(ctx, w, envelope{StatusCode: status, Message: message})
}

func writeEnvelope(ctx context.Context, w http.ResponseWriter, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.StatusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", body.StatusCode, "error", err)
	}
}

// decodeJSON reads a JSON body into dst and validates it.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return badRequest("invalid request body")
	}
	return validation.Struct(dst)
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

func objectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, badRequest("invalid " + name)
	}
	return id, nil
}

// viewerFrom returns the authenticated caller, or the anonymous viewer.
func viewerFrom(ctx context.Context) query.Viewer {
	if id, ok := auth.AccountIDFromContext(ctx); ok {
		return query.ViewerOf(id)
	}
	return query.NoViewer
}

func accountFrom(ctx context.Context) (primitive.ObjectID, error) {
	id, ok := auth.AccountIDFromContext(ctx)
	if !ok {
		return primitive.NilObjectID, unauthorized("unauthorized request")
	}
	return id, nil
}

// parsePage reads page and limit. Absent values take the defaults; malformed or
// non-positive values are rejected; the limit is clamped to the configured maximum.
func parsePage(r *http.Request, cfg config.PaginationConfig) (models.PageRequest, error) {
	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = models.DefaultPageLimit
	}
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = models.MaxPageLimit
	}

	page, err := positiveParam(r, "page", 1)
	if err != nil {
		return models.PageRequest{}, err
	}
	limit, err := positiveParam(r, "limit", defaultLimit)
	if err != nil {
		return models.PageRequest{}, err
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page > models.MaxPage(maxLimit) {
		return models.PageRequest{}, validation.New("page", "page is out of range")
	}
	return models.PageRequest{Page: page, Limit: limit}, nil
}

func positiveParam(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, validation.New(name, name+" must be a positive integer")
	}
	return n, nil
}
