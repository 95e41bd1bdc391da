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

// LeaderboardHandler serves standings and leaderboard categories
type LeaderboardHandler struct {
	leaderboards service.LeaderboardService
	logger       *logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(leaderboards service.LeaderboardService, logger *logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboards: leaderboards, logger: logger}
}

// RegisterRoutes registers leaderboard routes with the router
func (h *LeaderboardHandler) RegisterRoutes(r chi.Router, mw Middlewares) {
	r.Get("/leaderboard", h.Standings)

	r.Route("/leaderboards", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/{id}", h.GetCategory)
		r.With(mw.Auth, mw.Staff).Put("/{id}", h.UpdateCategory)
	})
}

// Standings handles GET /api/leaderboard?mode=individual|team&leaderboard=ID&date=this_month|this_year|all_time
func (h *LeaderboardHandler) Standings(w http.ResponseWriter, r *http.Request) {
	query, appErr := parseLeaderboardQuery(r)
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	standings, err := h.leaderboards.Query(r.Context(), query)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=10")
	respondJSON(w, h.logger, http.StatusOK, standings)
}

func parseLeaderboardQuery(r *http.Request) (domain.LeaderboardQuery, *errors.AppError) {
	values := r.URL.Query()

	mode, err := domain.ParseLeaderboardMode(values.Get("mode"))
	if err != nil {
		return domain.LeaderboardQuery{}, mapError(err)
	}
	filter, err := domain.ParseDateFilter(values.Get("date"))
	if err != nil {
		return domain.LeaderboardQuery{}, mapError(err)
	}

	query := domain.LeaderboardQuery{Mode: mode, DateFilter: filter}
	if raw := values.Get("leaderboard"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return domain.LeaderboardQuery{}, errors.NewValidationError("Invalid leaderboard", map[string]interface{}{"leaderboard": raw})
		}
		query.LeaderboardID = &id
	}
	return query, nil
}

// ListCategories handles GET /api/leaderboards
func (h *LeaderboardHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.leaderboards.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if categories == nil {
		categories = []domain.Leaderboard{}
	}
	respondJSON(w, h.logger, http.StatusOK, categories)
}

// GetCategory handles GET /api/leaderboards/{id}
func (h *LeaderboardHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	category, err := h.leaderboards.GetCategory(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, category)
}

// UpdateCategory handles PUT /api/leaderboards/{id}
func (h *LeaderboardHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	var input domain.LeaderboardInput
	if appErr := decodeJSON(w, r, &input); appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	category, err := h.leaderboards.UpdateCategory(r.Context(), userOrNil(r), id, input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, category)
}
