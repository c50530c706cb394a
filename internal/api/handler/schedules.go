package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/svitlo/svitlo-bot/internal/api/respond"
	"github.com/svitlo/svitlo-bot/internal/cache"
	"github.com/svitlo/svitlo-bot/internal/schedule"
)

// WindowView is one interval with its length in hours.
type WindowView struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Hours float64 `json:"hours"`
}

// DayView lists both power-available windows and their outage complement.
type DayView struct {
	Available      []WindowView `json:"available"`
	Outages        []WindowView `json:"outages"`
	AvailableHours float64      `json:"available_hours"`
	OutageHours    float64      `json:"outage_hours"`
}

// ScheduleView is the stored schedule of one group.
type ScheduleView struct {
	Group       string    `json:"group"`
	Fingerprint string    `json:"fingerprint"`
	UpdatedAt   time.Time `json:"updated_at"`
	Today       DayView   `json:"today"`
	Tomorrow    *DayView  `json:"tomorrow"`
}

func hours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

func windows(ivs []schedule.Interval) []WindowView {
	out := make([]WindowView, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, WindowView{Start: iv.Start.String(), End: iv.End.String(), Hours: hours(iv.Duration())})
	}
	return out
}

func dayView(d schedule.DaySchedule) DayView {
	return DayView{
		Available:      windows(d.Windows),
		Outages:        windows(d.Outages()),
		AvailableHours: hours(d.Available()),
		OutageHours:    hours(d.Unavailable()),
	}
}

func scheduleView(rec schedule.Record) ScheduleView {
	v := ScheduleView{
		Group:       rec.Group.String(),
		Fingerprint: rec.Fingerprint.String(),
		UpdatedAt:   rec.UpdatedAt.UTC(),
		Today:       dayView(rec.Schedule.Today),
	}
	if rec.Schedule.Tomorrow != nil {
		t := dayView(*rec.Schedule.Tomorrow)
		v.Tomorrow = &t
	}
	return v
}

// ListGroups returns every known group label.
// @Summary List groups
// @Description Returns the enumerated outage groups in canonical order.
// @Tags schedules
// @Produce json
// @Success 200 {array} string
// @Router /groups [get]
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	all := schedule.AllGroups()
	labels := make([]string, 0, len(all))
	for _, g := range all {
		labels = append(labels, g.String())
	}
	respond.WriteObject(w, http.StatusOK, labels)
}

// ListSchedules returns the last stored schedule of every observed group.
// @Summary List stored schedules
// @Description Returns the last committed schedule per group. Groups never observed are absent.
// @Tags schedules
// @Produce json
// @Success 200 {array} ScheduleView
// @Failure 503 {object} respond.ErrorResponse
// @Router /schedules [get]
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListRecords(r.Context())
	if err != nil {
		h.logger.Error("List schedules failed", "error", err)
		respond.WriteError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Schedules are temporarily unavailable")
		return
	}
	views := make([]ScheduleView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, scheduleView(rec))
	}
	respond.WriteObject(w, http.StatusOK, views)
}

// GetSchedule returns the stored schedule of one group.
// @Summary Get group schedule
// @Description Returns the last committed schedule of a group. The ETag is derived from the schedule fingerprint.
// @Tags schedules
// @Produce json
// @Param group path string true "Group label" example(1.1)
// @Success 200 {object} ScheduleView
// @Success 304 "Not modified"
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /schedules/{group} [get]
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	group, err := schedule.ParseGroup(chi.URLParam(r, "group"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_GROUP", err.Error())
		return
	}

	cacheKey := "schedule:" + group.String()
	ttl := h.cache.TTL()
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.MatchETag(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	rec, err := h.store.GetRecord(r.Context(), group)
	switch {
	case errors.Is(err, schedule.ErrRecordNotFound):
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "No schedule observed yet for group "+group.String())
		return
	case err != nil:
		h.logger.Error("Get schedule failed", "group", group, "error", err)
		respond.WriteError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Schedule is temporarily unavailable")
		return
	}

	data, err := json.Marshal(scheduleView(rec))
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Could not encode schedule")
		return
	}
	etag := `"` + rec.Fingerprint.String()[:32] + `"`
	h.cache.Set(cacheKey, data, etag)

	if cache.MatchETag(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}
