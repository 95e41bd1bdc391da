package handler

import (
	"net/http"

	"engage/internal/domain"
	"engage/internal/service"
	"engage/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// UserHandler serves profiles and participation history
type UserHandler struct {
	users  service.UserService
	logger *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users service.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// PublicUser is the profile shown to other members
type PublicUser struct {
	ID             int64        `json:"id"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	ProfilePicture string       `json:"profile_picture"`
	Description    string       `json:"description"`
	Position       string       `json:"position"`
	LifetimePoints int          `json:"lifetime_points"`
	Team           *domain.Team `json:"team,omitempty"`
}

// RegisterRoutes registers user routes with the router
func (h *UserHandler) RegisterRoutes(r chi.Router, mw Middlewares) {
	r.Group(func(r chi.Router) {
		r.Use(mw.Auth)
		r.Get("/me", h.Me)
		r.Put("/me", h.UpdateMe)
	})

	r.Route("/users/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/history", h.History)
	})
}

// Me handles GET /api/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}

	profile, err := h.users.Profile(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, profile)
}

// UpdateMe handles PUT /api/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}

	var req domain.UpdateProfileRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user, req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, updated)
}

// Get handles GET /api/users/{id}. Email and balance are not exposed.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	profile, err := h.users.Profile(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, PublicUser{
		ID:             profile.ID,
		FirstName:      profile.FirstName,
		LastName:       profile.LastName,
		ProfilePicture: profile.ProfilePicture,
		Description:    profile.Description,
		Position:       profile.Position,
		LifetimePoints: profile.LifetimePoints,
		Team:           profile.Team,
	})
}

// History handles GET /api/users/{id}/history
func (h *UserHandler) History(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	history, err := h.users.History(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if history == nil {
		history = []domain.ParticipationHistoryEntry{}
	}
	respondJSON(w, h.logger, http.StatusOK, history)
}
