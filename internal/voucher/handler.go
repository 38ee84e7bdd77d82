package voucher

import (
	"context"
	"net/http"

	"github.com/frahmantamala/ran-loyalty/internal/transport"
)

type ServiceAPI interface {
	ListActive(ctx context.Context) ([]*Voucher, error)
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

func (h *Handler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := h.Service.ListActive(r.Context())
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	responses := make([]VoucherResponse, 0, len(vouchers))
	for _, v := range vouchers {
		responses = append(responses, v.ToResponse())
	}

	h.WriteJSON(w, http.StatusOK, VouchersResponse{
		Success:  true,
		Vouchers: responses,
	})
}
