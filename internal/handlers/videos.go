package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clipcast/backend/internal/config"
	"github.com/clipcast/backend/internal/logging"
	"github.com/clipcast/backend/internal/models"
	"github.com/clipcast/backend/internal/query"
	"github.com/clipcast/backend/internal/repositories"
	"github.com/clipcast/backend/internal/storage"
	"github.com/clipcast/backend/internal/validation"
)

// VideoHandler provides endpoints for publishing, browsing and managing videos.
type VideoHandler struct {
	Videos     VideoStore
	Accounts   AccountStore
	Media      Media
	Pagination config.PaginationConfig
}

type videoForm struct {
	Title       string `json:"title" form:"title" validate:"notblank,max=200"`
	Description string `json:"description" form:"description" validate:"notblank,max=5000"`
}

type publishState struct {
	IsPublished bool `json:"isPublished"`
}

// List handles GET /api/v1/videos?query=&sortBy=&sortType=&userId=&page=&limit=.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := h.filter(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("userId")); raw != "" {
		owner, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respondError(ctx, w, validation.New("userId", "userId must be a valid id"))
			return
		}
		filter.Owner = owner
	}

	page, err := h.Videos.List(ctx, filter)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respond(ctx, w, http.StatusOK, page, "videos fetched successfully")
}

// Dashboard handles GET /api/v1/dashboard/videos: the caller's own videos, drafts
// included.
func (h VideoHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := accountFrom(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	filter, err := h.filter(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	page, err := h.Videos.ListOwned(ctx, accountID, filter)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respond(ctx, w, http.StatusOK, page, "channel videos fetched successfully")
}

func (h VideoHandler) filter(r *http.Request) (query.VideoFilter, error) {
	page, err := parsePage(r, h.Pagination)
	if err != nil {
		return query.VideoFilter{}, err
	}
	q := r.URL.Query()
	return query.VideoFilter{
		Query:    strings.TrimSpace(q.Get("query")),
		SortBy:   strings.TrimSpace(q.Get("sortBy")),
		SortType: strings.ToLower(strings.TrimSpace(q.Get("sortType"))),
		Page:     page,
		Viewer:   viewerFrom(r.Context()),
	}, nil
}

// Publish handles POST /api/v1/videos (multipart: title, description, videoFile,
// thumbnail). New videos start unpublished.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
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

	form := videoForm{Title: r.FormValue("title"), Description: r.FormValue("description")}
	if err := validation.Struct(form); err != nil {
		respondError(ctx, w, err)
		return
	}
	if len(r.MultipartForm.File["thumbnail"]) == 0 {
		respondError(ctx, w, badRequest("thumbnail file is required"))
		return
	}

	videoFile, duration, err := h.Media.uploadVideo(ctx, r, "videoFile")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	thumbnail, err := h.Media.upload(ctx, r, "thumbnail", storage.KindThumbnail, true)
	if err != nil {
		h.Media.release(ctx, videoFile)
		respondError(ctx, w, err)
		return
	}

	video := models.Video{
		Owner:       accountID,
		Title:       strings.TrimSpace(form.Title),
		Description: strings.TrimSpace(form.Description),
		Duration:    duration,
		VideoFile:   videoFile,
		Thumbnail:   thumbnail,
	}
	if err := h.Videos.Create(ctx, &video); err != nil {
		h.Media.release(ctx, videoFile, thumbnail)
		respondError(ctx, w, err)
		return
	}

	logging.FromContext(ctx).Info("video uploaded", "videoId", video.ID.Hex(), "duration", duration)
	respond(ctx, w, http.StatusCreated, video, "video uploaded successfully")
}

// Get handles GET /api/v1/videos/{videoId}. A successful read counts one view and,
// for a signed-in viewer, appends the video to their watch history.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID, err := objectIDParam(r, "videoId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	viewer := viewerFrom(ctx)
	detail, err := h.Videos.Detail(ctx, videoID, viewer)
	if err != nil {
		respondError(ctx, w, notFoundAs(err, "video not found"))
		return
	}

	if err := h.Videos.IncrementViews(ctx, videoID); err != nil {
		logging.FromContext(ctx).Warn("count video view", "videoId", videoID.Hex(), "error", err)
	} else {
		detail.Views++
	}
	if !viewer.Anonymous() && h.Accounts != nil {
		if err := h.Accounts.AppendWatchHistory(ctx, viewer.ID, videoID); err != nil {
			logging.FromContext(ctx).Warn("append watch history", "videoId", videoID.Hex(), "error", err)
		}
	}

	respond(ctx, w, http.StatusOK, detail, "video fetched successfully")
}

// Update handles PATCH /api/v1/videos/{videoId}. Title and description are required;
// a thumbnail part, when present, replaces the current one.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	video, err := h.ownedVideo(ctx, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var form videoForm
	var thumbnail *models.MediaObject
	if isJSON(r) {
		if err := decodeJSON(r, &form); err != nil {
			respondError(ctx, w, err)
			return
		}
	} else {
		cleanup, err := h.Media.parseMultipart(w, r)
		defer cleanup()
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		form = videoForm{Title: r.FormValue("title"), Description: r.FormValue("description")}
		if err := validation.Struct(form); err != nil {
			respondError(ctx, w, err)
			return
		}
		uploaded, err := h.Media.upload(ctx, r, "thumbnail", storage.KindThumbnail, false)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		if !uploaded.IsZero() {
			thumbnail = &uploaded
		}
	}

	updated, err := h.Videos.UpdateDetails(ctx, video.ID, repositories.VideoPatch{
		Title:       form.Title,
		Description: form.Description,
		Thumbnail:   thumbnail,
	})
	if err != nil {
		if thumbnail != nil {
			h.Media.release(ctx, *thumbnail)
		}
		respondError(ctx, w, notFoundAs(err, "video not found"))
		return
	}
	if thumbnail != nil {
		h.Media.release(ctx, video.Thumbnail)
	}
	respond(ctx, w, http.StatusOK, updated, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}. Comments and likes go with the
// video; its files are released once the records are gone.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	video, err := h.ownedVideo(ctx, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	deleted, err := h.Videos.Delete(ctx, video.ID)
	if err != nil {
		respondError(ctx, w, notFoundAs(err, "video not found"))
		return
	}
	h.Media.release(ctx, deleted.VideoFile, deleted.Thumbnail)

	logging.FromContext(ctx).Info("video deleted", "videoId", video.ID.Hex())
	respond(ctx, w, http.StatusOK, struct{}{}, "video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	video, err := h.ownedVideo(ctx, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	updated, err := h.Videos.TogglePublished(ctx, video.ID)
	if err != nil {
		respondError(ctx, w, notFoundAs(err, "video not found"))
		return
	}
	respond(ctx, w, http.StatusOK, publishState{IsPublished: updated.IsPublished}, "video publish status toggled successfully")
}

// ownedVideo loads the video named in the path and checks the caller owns it.
func (h VideoHandler) ownedVideo(ctx context.Context, r *http.Request) (models.Video, error) {
	accountID, err := accountFrom(ctx)
	if err != nil {
		return models.Video{}, err
	}
	videoID, err := objectIDParam(r, "videoId")
	if err != nil {
		return models.Video{}, err
	}
	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		return models.Video{}, notFoundAs(err, "video not found")
	}
	if video.Owner != accountID {
		return models.Video{}, forbidden("only the owner can modify this video")
	}
	return video, nil
}
