package http

import (
	"log/slog"
	"net/http"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/service"
	"github.com/uaidecants/storefront/pkg/httputil"
	"github.com/uaidecants/storefront/pkg/validator"
)

// CartHandler handles the customer's saved cart.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: logger}
}

// ReplaceCartRequest is the JSON request body for saving a cart.
type ReplaceCartRequest struct {
	Items []domain.CartItem `json:"items" validate:"required"`
}

// Get handles GET /api/v1/me/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerID(w, r)
	if !ok {
		return
	}

	cart, err := h.service.Get(r.Context(), customer)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, cart)
}

// Replace handles PUT /api/v1/me/cart
func (h *CartHandler) Replace(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerID(w, r)
	if !ok {
		return
	}

	var req ReplaceCartRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	cart, err := h.service.Replace(r.Context(), customer, req.Items)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, cart)
}
