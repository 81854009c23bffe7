package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/service"
	"github.com/uaidecants/storefront/pkg/httputil"
	"github.com/uaidecants/storefront/pkg/validator"
)

// AddressHandler handles HTTP requests for the customer's address book.
type AddressHandler struct {
	service *service.AddressService
	logger  *slog.Logger
}

// NewAddressHandler creates a new address HTTP handler.
func NewAddressHandler(svc *service.AddressService, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{service: svc, logger: logger}
}

// List handles GET /api/v1/me/addresses
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerID(w, r)
	if !ok {
		return
	}

	book, err := h.service.List(r.Context(), customer)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, book)
}

// Create handles POST /api/v1/me/addresses
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerID(w, r)
	if !ok {
		return
	}

	var req domain.AddressPatch
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	address, err := h.service.Add(r.Context(), customer, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, address)
}

// Update handles PUT /api/v1/me/addresses/{id}
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerID(w, r)
	if !ok {
		return
	}

	var req domain.AddressPatch
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	address, err := h.service.Update(r.Context(), customer, chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, address)
}

// Delete handles DELETE /api/v1/me/addresses/{id}
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), customer, chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
