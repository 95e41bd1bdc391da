package handler

import (
	"net/http"

	"engage/internal/domain"
	"engage/internal/service"
	"engage/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// StoreHandler handles the points store catalog and checkout
type StoreHandler struct {
	store  service.StoreService
	logger *logger.Logger
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(store service.StoreService, logger *logger.Logger) *StoreHandler {
	return &StoreHandler{store: store, logger: logger}
}

// RegisterRoutes registers store routes with the router
func (h *StoreHandler) RegisterRoutes(r chi.Router, mw Middlewares) {
	r.Route("/store", func(r chi.Router) {
		r.Get("/items", h.ListItems)
		r.Get("/items/{id}", h.GetItem)

		r.Group(func(r chi.Router) {
			r.Use(mw.Auth)
			r.Post("/checkout", h.Checkout)
			r.With(mw.Staff).Post("/items", h.CreateItem)
		})
	})
}

// ListItems handles GET /api/store/items
func (h *StoreHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListItems(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	respondJSON(w, h.logger, http.StatusOK, items)
}

// GetItem handles GET /api/store/items/{id}
func (h *StoreHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	item, err := h.store.GetItem(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, item)
}

// CreateItem handles POST /api/store/items
func (h *StoreHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var input domain.ItemInput
	if appErr := decodeJSON(w, r, &input); appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	item, err := h.store.CreateItem(r.Context(), userOrNil(r), input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, item)
}

// Checkout handles POST /api/store/checkout
func (h *StoreHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r, h.logger)
	if user == nil {
		return
	}

	var req domain.CheckoutRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		respondError(w, r, h.logger, appErr)
		return
	}

	result, err := h.store.Checkout(r.Context(), user, req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}
