package handler

import (
	"net/http"

	"engage/internal/domain"
	"engage/internal/service"
	"engage/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// NotificationHandler serves the caller's notifications
type NotificationHandler struct {
	notifications service.NotificationService
	logger        *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications service.NotificationService, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// RegisterRoutes registers notification routes with the router. All of them require auth.
func (h *NotificationHandler) RegisterRoutes(r chi.Router, mw Middlewares) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(mw.Auth)
		r.Get("/", h.List)
		r.Get("/unread-count", h.UnreadCount)
		r.Post("/{id}/read", h.MarkRead)
		r.Delete("/{id}", h.Dismiss)
	})
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}

	notifications, err := h.notifications.List(r.Context(), user)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	respondJSON(w, h.logger, http.StatusOK, notifications)
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}

	count, err := h.notifications.UnreadCount(r.Context(), user)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]int{"unread": count})
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	if err := h.notifications.MarkRead(r.Context(), user, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondNoContent(w)
}

// Dismiss handles DELETE /api/notifications/{id}
func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	if err := h.notifications.Dismiss(r.Context(), user, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondNoContent(w)
}
