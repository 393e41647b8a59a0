package handlers

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clipcast/backend/internal/config"
	"github.com/clipcast/backend/internal/repositories"
)

// SubscriptionHandler implements channel subscriptions.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Accounts      AccountStore
	Pagination    config.PaginationConfig
}

type subscriptionState struct {
	Subscribed bool `json:"subscribed"`
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := accountFrom(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	channelID, err := objectIDParam(r, "channelId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if channelID == accountID {
		respondError(ctx, w, badRequest("cannot subscribe to your own channel"))
		return
	}
	if err := h.requireAccount(ctx, channelID, "channel not found"); err != nil {
		respondError(ctx, w, err)
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, accountID, channelID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	respond(ctx, w, http.StatusOK, subscriptionState{Subscribed: subscribed}, message)
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channelID, err := objectIDParam(r, "channelId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	page, err := parsePage(r, h.Pagination)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if err := h.requireAccount(ctx, channelID, "channel not found"); err != nil {
		respondError(ctx, w, err)
		return
	}

	subscribers, err := h.Subscriptions.Subscribers(ctx, channelID, page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respond(ctx, w, http.StatusOK, subscribers, "subscribers fetched successfully")
}

// SubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriberID, err := objectIDParam(r, "subscriberId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	page, err := parsePage(r, h.Pagination)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if err := h.requireAccount(ctx, subscriberID, "subscriber not found"); err != nil {
		respondError(ctx, w, err)
		return
	}

	channels, err := h.Subscriptions.SubscribedChannels(ctx, subscriberID, page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respond(ctx, w, http.StatusOK, channels, "subscribed channels fetched successfully")
}

func (h SubscriptionHandler) requireAccount(ctx context.Context, id primitive.ObjectID, message string) error {
	ok, err := h.Accounts.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFoundAs(repositories.ErrNotFound, message)
	}
	return nil
}
