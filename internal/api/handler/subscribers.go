package handler

import (
	"net/http"

	"github.com/svitlo/svitlo-bot/internal/api/respond"
)

// SubscriberStatsResponse reports subscription counts without user ids.
type SubscriberStatsResponse struct {
	Users    int            `json:"users"`
	PerGroup map[string]int `json:"per_group"`
}

// SubscriberStats returns aggregate subscription counts.
// @Summary Subscriber statistics
// @Description Returns the number of distinct subscribed users and subscriptions per group.
// @Tags subscribers
// @Produce json
// @Success 200 {object} SubscriberStatsResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /subscribers/stats [get]
func (h *Handler) SubscriberStats(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.CountSubscribers(r.Context())
	if err != nil {
		h.logger.Error("Count subscribers failed", "error", err)
		respond.WriteError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Subscriber statistics are temporarily unavailable")
		return
	}
	perGroup, err := h.store.SubscriberStats(r.Context())
	if err != nil {
		h.logger.Error("Subscriber stats failed", "error", err)
		respond.WriteError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Subscriber statistics are temporarily unavailable")
		return
	}

	resp := SubscriberStatsResponse{Users: users, PerGroup: make(map[string]int, len(perGroup))}
	for g, n := range perGroup {
		resp.PerGroup[g.String()] = n
	}
	respond.WriteObject(w, http.StatusOK, resp)
}
