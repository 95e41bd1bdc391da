package handler

import (
	"net/http"

	"engage/internal/domain"
	"engage/internal/service"
	"engage/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// TeamHandler handles team membership requests
type TeamHandler struct {
	teams  service.TeamService
	logger *logger.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(teams service.TeamService, logger *logger.Logger) *TeamHandler {
	return &TeamHandler{teams: teams, logger: logger}
}

// RegisterRoutes registers team routes with the router
func (h *TeamHandler) RegisterRoutes(r chi.Router, mw Middlewares) {
	r.Route("/teams", func(r chi.Router) {
		r.Get("/", h.List)

		r.Group(func(r chi.Router) {
			r.Use(mw.Auth)
			r.Get("/mine", h.Mine)
			r.Post("/", h.Create)
			r.Post("/{id}/join", h.Join)
			r.Post("/{id}/leave", h.Leave)
			r.Delete("/{id}", h.Delete)
		})

		r.Get("/{id}", h.Get)
	})
}

// List handles GET /api/teams
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.List(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if teams == nil {
		teams = []domain.Team{}
	}
	respondJSON(w, h.logger, http.StatusOK, teams)
}

// Get handles GET /api/teams/{id}
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	team, err := h.teams.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, team)
}

// Mine handles GET /api/teams/mine. Data is null when the caller has no team.
func (h *TeamHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}

	team, err := h.teams.MyTeam(r.Context(), user)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, team)
}

// Create handles POST /api/teams
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}

	var req domain.CreateTeamRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	team, err := h.teams.Create(r.Context(), user, req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, team)
}

// Join handles POST /api/teams/{id}/join
func (h *TeamHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	team, err := h.teams.Join(r.Context(), user, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, team)
}

// Leave handles POST /api/teams/{id}/leave
func (h *TeamHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	if err := h.teams.Leave(r.Context(), user, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondNoContent(w)
}

// Delete handles DELETE /api/teams/{id}
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	if err := h.teams.Delete(r.Context(), user, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondNoContent(w)
}
