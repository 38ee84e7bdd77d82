package payment

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/ran-loyalty/internal/transport"
)

type ServiceAPI interface {
	CreateIntent(ctx context.Context, voucherID, phone string) (*Purchase, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	Options() Options
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// PurchaseVoucher handles POST /api/v1/voucher-purchase
func (h *Handler) PurchaseVoucher(w http.ResponseWriter, r *http.Request) {
	var req VoucherPurchaseRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, r, err)
		return
	}

	purchase, err := h.Service.CreateIntent(r.Context(), req.VoucherID, req.UserPhone)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, purchase.ToResponse(h.Service.Options()))
}

// GetIntentStatus handles GET /api/v1/payment-intents/{id}
func (h *Handler) GetIntentStatus(w http.ResponseWriter, r *http.Request) {
	intent, err := h.Service.GetIntent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, IntentStatusResponse{
		ID:        intent.ID,
		Status:    intent.Status,
		Amount:    intent.ExpectedAmountVND,
		ExpiresAt: intent.ExpiresAt,
	})
}
