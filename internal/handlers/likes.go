package handlers

import (
	"net/http"

	"github.com/clipcast/backend/internal/config"
	"github.com/clipcast/backend/internal/query"
)

// LikeHandler toggles likes on videos and comments.
type LikeHandler struct {
	Likes      LikeStore
	Videos     VideoStore
	Comments   CommentStore
	Pagination config.PaginationConfig
}

type likeState struct {
	IsLiked bool `json:"isLiked"`
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
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
	if _, err := visibleVideo(ctx, h.Videos, videoID, query.ViewerOf(accountID)); err != nil {
		respondError(ctx, w, err)
		return
	}

	liked, err := h.Likes.ToggleVideo(ctx, accountID, videoID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respond(ctx, w, http.StatusOK, likeState{IsLiked: liked}, likeMessage(liked, "video"))
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := accountFrom(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	commentID, err := objectIDParam(r, "commentId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		respondError(ctx, w, notFoundAs(err, "comment not found"))
		return
	}
	if _, err := visibleVideo(ctx, h.Videos, comment.Video, query.ViewerOf(accountID)); err != nil {
		respondError(ctx, w, err)
		return
	}

	liked, err := h.Likes.ToggleComment(ctx, accountID, commentID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respond(ctx, w, http.StatusOK, likeState{IsLiked: liked}, likeMessage(liked, "comment"))
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := accountFrom(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	page, err := parsePage(r, h.Pagination)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	videos, err := h.Likes.LikedVideos(ctx, accountID, page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respond(ctx, w, http.StatusOK, videos, "liked videos fetched successfully")
}

func likeMessage(liked bool, target string) string {
	if liked {
		return target + " liked"
	}
	return target + " unliked"
}
