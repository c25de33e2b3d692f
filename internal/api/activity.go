package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/nepremicnine/internal/model"
	"github.com/erazemk/nepremicnine/internal/store"
)

// activityFeed reads the activity log.
type activityFeed interface {
	List(ctx context.Context, filter model.ActivityFilter) ([]model.ActivityEvent, error)
}

// ActivityHandler serves the admin activity feed.
type ActivityHandler struct {
	Feed activityFeed
}

// List handles GET /api/activity (?entity_type=&q=&limit=).
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.ActivityFilter{
		EntityType: query.Get("entity_type"),
		Search:     query.Get("q"),
	}

	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > store.MaxActivityLimit {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	switch filter.EntityType {
	case "", model.EntityListing, model.EntityOffer, model.EntityVerification, model.EntityUser:
	default:
		jsonError(w, http.StatusBadRequest, "invalid entity_type")
		return
	}

	events, err := h.Feed.List(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list activity", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(events))
}
