package handlers

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clipcast/backend/internal/config"
	"github.com/clipcast/backend/internal/models"
	"github.com/clipcast/backend/internal/query"
	"github.com/clipcast/backend/internal/repositories"
)

// CommentHandler implements the comment feed and comment mutations.
type CommentHandler struct {
	Comments   CommentStore
	Videos     VideoStore
	Pagination config.PaginationConfig
}

type commentRequest struct {
	Content string `json:"content" validate:"notblank,max=2000"`
}

// List handles GET /api/v1/comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID, err := objectIDParam(r, "videoId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	page, err := parsePage(r, h.Pagination)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	viewer := viewerFrom(ctx)
	if _, err := visibleVideo(ctx, h.Videos, videoID, viewer); err != nil {
		respondError(ctx, w, err)
		return
	}

	comments, err := h.Comments.ListForVideo(ctx, videoID, viewer, page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respond(ctx, w, http.StatusOK, comments, "comments fetched successfully")
}

// Add handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := accountFrom(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	videoID, err := objectIDParam(r, "videoId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	if _, err := visibleVideo(ctx, h.Videos, videoID, query.ViewerOf(accountID)); err != nil {
		respondError(ctx, w, err)
		return
	}

	comment := models.Comment{Video: videoID, Owner: accountID, Content: req.Content}
	if err := h.Comments.Create(ctx, &comment); err != nil {
		respondError(ctx, w, err)
		return
	}
	respond(ctx, w, http.StatusCreated, comment, "comment added successfully")
}

// Update handles PATCH /api/v1/comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	comment, err := h.ownedComment(ctx, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	updated, err := h.Comments.UpdateContent(ctx, comment.ID, req.Content)
	if err != nil {
		respondError(ctx, w, notFoundAs(err, "comment not found"))
		return
	}
	respond(ctx, w, http.StatusOK, updated, "comment updated successfully")
}

// Delete handles DELETE /api/v1/comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	comment, err := h.ownedComment(ctx, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		respondError(ctx, w, notFoundAs(err, "comment not found"))
		return
	}
	respond(ctx, w, http.StatusOK, struct{}{}, "comment deleted successfully")
}

func (h CommentHandler) ownedComment(ctx context.Context, r *http.Request) (models.Comment, error) {
	accountID, err := accountFrom(ctx)
	if err != nil {
		return models.Comment{}, err
	}
	commentID, err := objectIDParam(r, "commentId")
	if err != nil {
		return models.Comment{}, err
	}
	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		return models.Comment{}, notFoundAs(err, "comment not found")
	}
	if comment.Owner != accountID {
		return models.Comment{}, forbidden("only the author can modify this comment")
	}
	return comment, nil
}

// visibleVideo loads a video the viewer may see: published, or their own draft.
func visibleVideo(ctx context.Context, videos VideoStore, id primitive.ObjectID, viewer query.Viewer) (models.Video, error) {
	video, err := videos.FindByID(ctx, id)
	if err != nil {
		return models.Video{}, notFoundAs(err, "video not found")
	}
	if !video.IsPublished && (viewer.Anonymous() || video.Owner != viewer.ID) {
		return models.Video{}, notFoundAs(repositories.ErrNotFound, "video not found")
	}
	return video, nil
}
