package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/clipcast/backend/internal/config"
	"github.com/clipcast/backend/internal/logging"
	"github.com/clipcast/backend/internal/middleware"
	"github.com/clipcast/backend/internal/models"
	"github.com/clipcast/backend/internal/repositories"
	"github.com/clipcast/backend/internal/storage"
	"github.com/clipcast/backend/internal/validation"
)

// RefreshTokenCookie names the cookie carrying the refresh token.
const RefreshTokenCookie = "refreshToken"

// UserHandler implements account, session and channel endpoints.
type UserHandler struct {
	Accounts AccountStore
	Sessions SessionManager
	Media    Media
	Cookies  config.AuthConfig
	// PasswordCost overrides bcrypt.DefaultCost; tests lower it.
	PasswordCost int
}

type registerForm struct {
	FullName string `form:"fullName" validate:"notblank"`
	Email    string `form:"email" validate:"notblank,email"`
	Username string `form:"username" validate:"notblank,username"`
	Password string `form:"password" validate:"notblank,min=8,max=72"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"notblank"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"notblank"`
	NewPassword string `json:"newPassword" validate:"notblank,min=8,max=72,nefield=OldPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"notblank"`
	Email    string `json:"email" validate:"notblank,email"`
}

type sessionResponse struct {
	User         models.Account `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register (multipart: fullName, email,
// username, password, avatar, optional coverImage).
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cleanup, err := h.Media.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	form := registerForm{
		FullName: r.FormValue("fullName"),
		Email:    strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Username: strings.ToLower(strings.TrimSpace(r.FormValue("username"))),
		Password: r.FormValue("password"),
	}
	if err := validation.Struct(form); err != nil {
		respondError(ctx, w, err)
		return
	}

	if _, err := h.Accounts.FindByLogin(ctx, form.Username, form.Email); err == nil {
		respondError(ctx, w, conflictAs(repositories.ErrConflict, "user with email or username already exists"))
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		respondError(ctx, w, err)
		return
	}

	if len(r.MultipartForm.File["avatar"]) == 0 {
		respondError(ctx, w, badRequest("avatar file is required"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), h.passwordCost())
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	avatar, err := h.Media.upload(ctx, r, "avatar", storage.KindAvatar, true)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	cover, err := h.Media.upload(ctx, r, "coverImage", storage.KindCover, false)
	if err != nil {
		h.Media.release(ctx, avatar)
		respondError(ctx, w, err)
		return
	}

	account := models.Account{
		Username: form.Username,
		Email:    form.Email,
		FullName: strings.TrimSpace(form.FullName),
		Avatar:   avatar,
		Password: string(hashed),
	}
	if !cover.IsZero() {
		account.CoverImage = &cover
	}
	if err := h.Accounts.Create(ctx, &account); err != nil {
		h.Media.release(ctx, avatar, cover)
		respondError(ctx, w, conflictAs(err, "user with email or username already exists"))
		return
	}

	logging.FromContext(ctx).Info("account registered", "accountId", account.ID.Hex())
	respond(ctx, w, http.StatusCreated, account, "user registered successfully")
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	account, err := h.Accounts.FindByLogin(ctx, req.Username, req.Email)
	if err != nil {
		respondError(ctx, w, notFoundAs(err, "user does not exist"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		logging.FromContext(ctx).Warn("login password mismatch", "accountId", account.ID.Hex())
		respondError(ctx, w, unauthorized("invalid user credentials"))
		return
	}

	tokens, err := h.Sessions.Issue(ctx, account.ID.Hex())
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	respond(ctx, w, http.StatusOK, sessionResponse{
		User:         account,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := accountFrom(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if err := h.Sessions.Revoke(ctx, accountID.Hex()); err != nil {
		respondError(ctx, w, err)
		return
	}
	h.clearSessionCookies(w)
	respond(ctx, w, http.StatusOK, struct{}{}, "user logged out")
}

// RefreshToken handles POST /api/v1/users/refresh-token. The token is read from its
// cookie or the JSON body.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := ""
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" && isJSON(r) {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		respondError(ctx, w, unauthorized("unauthorized request"))
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	respond(ctx, w, http.StatusOK, tokens, "access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := accountFrom(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	account, err := h.Accounts.FindByID(ctx, accountID)
	if err != nil {
		respondError(ctx, w, notFoundAs(err, "user not found"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.OldPassword)); err != nil {
		respondError(ctx, w, badRequest("invalid old password"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), h.passwordCost())
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if err := h.Accounts.UpdatePassword(ctx, accountID, string(hashed)); err != nil {
		respondError(ctx, w, notFoundAs(err, "user not found"))
		return
	}
	respond(ctx, w, http.StatusOK, struct{}{}, "password changed successfully")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := accountFrom(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	account, err := h.Accounts.FindByID(ctx, accountID)
	if err != nil {
		respondError(ctx, w, notFoundAs(err, "user not found"))
		return
	}
	respond(ctx, w, http.StatusOK, account, "current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := accountFrom(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	account, err := h.Accounts.UpdateDetails(ctx, accountID, req.FullName, req.Email)
	if err != nil {
		respondError(ctx, w, conflictAs(notFoundAs(err, "user not found"), "email is already in use"))
		return
	}
	respond(ctx, w, http.StatusOK, account, "account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", storage.KindAvatar, h.Accounts.ReplaceAvatar, "avatar image updated successfully")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", storage.KindCover, h.Accounts.ReplaceCoverImage, "cover image updated successfully")
}

type replaceFunc func(ctx context.Context, id primitive.ObjectID, media models.MediaObject) (models.MediaObject, error)

func (h UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, kind storage.Kind, replace replaceFunc, message string) {
	ctx := r.Context()
	accountID, err := accountFrom(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	cleanup, err := h.Media.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	media, err := h.Media.upload(ctx, r, field, kind, true)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	previous, err := replace(ctx, accountID, media)
	if err != nil {
		h.Media.release(ctx, media)
		respondError(ctx, w, notFoundAs(err, "user not found"))
		return
	}
	h.Media.release(ctx, previous)

	account, err := h.Accounts.FindByID(ctx, accountID)
	if err != nil {
		respondError(ctx, w, notFoundAs(err, "user not found"))
		return
	}
	respond(ctx, w, http.StatusOK, account, message)
}

// ChannelProfile handles GET /api/v1/users/c/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		respondError(ctx, w, validation.New("username", "username is required"))
		return
	}

	profile, err := h.Accounts.ChannelProfile(ctx, username, viewerFrom(ctx))
	if err != nil {
		respondError(ctx, w, notFoundAs(err, "channel does not exist"))
		return
	}
	respond(ctx, w, http.StatusOK, profile, "user channel fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := accountFrom(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	history, err := h.Accounts.WatchHistory(ctx, accountID)
	if err != nil {
		respondError(ctx, w, notFoundAs(err, "user not found"))
		return
	}
	respond(ctx, w, http.StatusOK, history, "watch history fetched successfully")
}

func (h UserHandler) passwordCost() int {
	if h.PasswordCost > 0 {
		return h.PasswordCost
	}
	return bcrypt.DefaultCost
}

func (h UserHandler) setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, h.cookie(RefreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (h UserHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		c := h.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h UserHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.Cookies.CookieDomain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.Cookies.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
