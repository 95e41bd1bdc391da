package handler

import (
	"net/http"
	"strconv"

	"engage/internal/domain"
	"engage/internal/service"
	"engage/pkg/errors"
	"engage/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// ActivityHandler serves the activity feed, moderation and point awards
type ActivityHandler struct {
	activities service.ActivityService
	awards     service.AwardService
	logger     *logger.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activities service.ActivityService, awards service.AwardService, logger *logger.Logger) *ActivityHandler {
	return &ActivityHandler{
		activities: activities,
		awards:     awards,
		logger:     logger,
	}
}

// AwardRequest is the body of POST /activities/{id}/award. UserID defaults to the caller.
type AwardRequest struct {
	UserID int64 `json:"user_id" validate:"omitempty,gt=0"`
}

// ActivityDetail is an activity with the caller's bookmark state
type ActivityDetail struct {
	domain.Activity
	Interested bool `json:"interested"`
}

// RegisterRoutes registers activity routes with the router
func (h *ActivityHandler) RegisterRoutes(r chi.Router, mw Middlewares) {
	r.Route("/activities", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(mw.OptionalAuth).Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(mw.Auth)
			r.Post("/", h.Create)
			r.Post("/{id}/interest", h.ToggleInterest)
			r.Post("/{id}/award", h.Award)

			r.Group(func(r chi.Router) {
				r.Use(mw.Staff)
				r.Get("/pending", h.ListPending)
				r.Post("/{id}/approve", h.Approve)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
		})
	})
}

// List handles GET /api/activities?offset=N
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, r, h.logger, errors.NewValidationError("Invalid offset", map[string]interface{}{"offset": raw}))
			return
		}
		offset = n
	}

	page, err := h.activities.List(r.Context(), offset)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, page)
}

// Get handles GET /api/activities/{id}
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	activity, err := h.activities.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	detail := ActivityDetail{Activity: *activity}
	if user := userOrNil(r); user != nil {
		if detail.Interested, err = h.activities.IsInterested(r.Context(), user, id); err != nil {
			respondError(w, r, h.logger, err)
			return
		}
	}
	respondJSON(w, h.logger, http.StatusOK, detail)
}

// Create handles POST /api/activities
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}

	var input domain.ActivityInput
	if appErr := decodeJSON(w, r, &input); appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	activity, err := h.activities.Create(r.Context(), user, input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, activity)
}

// ListPending handles GET /api/activities/pending
func (h *ActivityHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	activities, err := h.activities.ListPending(r.Context(), userOrNil(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if activities == nil {
		activities = []domain.Activity{}
	}
	respondJSON(w, h.logger, http.StatusOK, activities)
}

// Approve handles POST /api/activities/{id}/approve
func (h *ActivityHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	activity, err := h.activities.Approve(r.Context(), userOrNil(r), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, activity)
}

// Update handles PUT /api/activities/{id}
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	var input domain.ActivityInput
	if appErr := decodeJSON(w, r, &input); appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	activity, err := h.activities.Update(r.Context(), userOrNil(r), id, input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, activity)
}

// Delete handles DELETE /api/activities/{id}
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	if err := h.activities.Delete(r.Context(), userOrNil(r), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondNoContent(w)
}

// ToggleInterest handles POST /api/activities/{id}/interest
func (h *ActivityHandler) ToggleInterest(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	interested, err := h.activities.ToggleInterest(r.Context(), user, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]bool{"interested": interested})
}

// Award handles POST /api/activities/{id}/award
func (h *ActivityHandler) Award(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	var req AwardRequest
	if appErr := decodeOptionalJSON(w, r, &req); appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}
	if req.UserID == 0 {
		req.UserID = user.ID
	}

	result, err := h.awards.Award(r.Context(), user, req.UserID, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, result)
}
