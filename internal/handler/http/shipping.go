package http

import (
	"log/slog"
	"net/http"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/service"
	"github.com/uaidecants/storefront/pkg/httputil"
	"github.com/uaidecants/storefront/pkg/validator"
)

// ShippingHandler serves shipping quotes.
type ShippingHandler struct {
	service *service.ShippingService
	logger  *slog.Logger
}

// NewShippingHandler creates a new shipping HTTP handler.
func NewShippingHandler(svc *service.ShippingService, logger *slog.Logger) *ShippingHandler {
	return &ShippingHandler{service: svc, logger: logger}
}

// QuoteRequest is the JSON request body for a shipping quote. Items must be
// present, even if empty.
type QuoteRequest struct {
	DestinationPostalCode string            `json:"destination_postal_code"`
	Items                 []domain.CartItem `json:"items"`
}

// Quote handles POST /api/v1/shipping/quote
func (h *ShippingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	result, err := h.service.Quote(r.Context(), service.QuoteInput{
		DestinationPostalCode: req.DestinationPostalCode,
		Items:                 req.Items,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}
