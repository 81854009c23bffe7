package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uaidecants/storefront/internal/service"
	"github.com/uaidecants/storefront/pkg/httputil"
	"github.com/uaidecants/storefront/pkg/middleware"
	"github.com/uaidecants/storefront/pkg/validator"
)

// CouponHandler handles coupon validation and coupon administration.
type CouponHandler struct {
	service *service.CouponService
	logger  *slog.Logger
}

// NewCouponHandler creates a new coupon HTTP handler.
func NewCouponHandler(svc *service.CouponService, logger *slog.Logger) *CouponHandler {
	return &CouponHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// ValidateCouponRequest is the JSON request body for checking a coupon.
type ValidateCouponRequest struct {
	Code     string  `json:"code" validate:"required,max=64"`
	Subtotal float64 `json:"subtotal" validate:"gte=0"`
}

// --- Handlers ---

// Validate handles POST /api/v1/coupons/validate. A bearer token is
// optional; the service decides whether it matters.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateCouponRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	outcome, err := h.service.Validate(r.Context(), service.ValidateCouponInput{
		Code:        req.Code,
		Subtotal:    req.Subtotal,
		BearerToken: middleware.BearerToken(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, outcome)
}

// List handles GET /api/v1/admin/coupons
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, coupons)
}

// Create handles POST /api/v1/admin/coupons
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCouponInput
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	coupon, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, coupon)
}

// Update handles PUT /api/v1/admin/coupons/{id}
func (h *CouponHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateCouponInput
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	coupon, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, coupon)
}

// Delete handles DELETE /api/v1/admin/coupons/{id}
func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
