package handlers

import (
	"errors"
	"net/http"

	"github.com/streamhive/backend/internal/repositories"
)

// SubscriptionHandler toggles channel subscriptions and lists them.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Users         UserStore
}

// Toggle flips the caller's subscription to the channel in the path.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) error {
	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	channelID, err := pathObjectID(r, "channelId")
	if err != nil {
		return err
	}
	if channelID == principal.UserID {
		return badRequest("cannot subscribe to your own channel")
	}

	if _, err := h.Users.FindByID(r.Context(), channelID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFound("channel not found")
		}
		return internalError("look up channel", err)
	}

	subscribed, err := h.Subscriptions.Toggle(r.Context(), principal.UserID, channelID)
	if err != nil {
		return internalError("toggle subscription", err)
	}

	message := "unsubscribed"
	if subscribed {
		message = "subscribed"
	}
	return respond(r.Context(), w, http.StatusOK, map[string]bool{"subscribed": subscribed}, message)
}

// Subscribed lists the channels the caller is subscribed to.
func (h SubscriptionHandler) Subscribed(w http.ResponseWriter, r *http.Request) error {
	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	channels, err := h.Subscriptions.SubscribedChannels(r.Context(), principal.UserID)
	if err != nil {
		return internalError("list subscribed channels", err)
	}
	return respond(r.Context(), w, http.StatusOK, channels, "subscribed channels fetched")
}
