package order

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
)

const maxBillPhotoBytes = 10 << 20

type ServiceAPI interface {
	RelayOrder(ctx context.Context, req OrderRequest) (string, error)
	RelayBill(ctx context.Context, upload BillUpload) error
	BillStatus(ctx context.Context, orderID string) (*Bill, error)
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

// RelayOrder handles POST /telegram-order
func (h *Handler) RelayOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, r, err)
		return
	}

	orderID, err := h.Service.RelayOrder(r.Context(), req)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, RelayResponse{
		Success: true,
		OrderID: orderID,
		Message: MessageOrderSent,
	})
}

// RelayBill handles the multipart POST /telegram-bill with a "photo" file.
func (h *Handler) RelayBill(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBillPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(maxBillPhotoBytes); err != nil {
		h.HandleError(w, r, errors.NewValidationError("Invalid multipart form", errors.ErrCodeValidationFailed).WithCause(err))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		h.HandleError(w, r, errors.NewValidationFieldError("photo", "photo is required", errors.ErrCodeMissingField))
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, maxBillPhotoBytes))
	if err != nil {
		h.HandleError(w, r, errors.NewValidationError("Failed to read photo", errors.ErrCodeValidationFailed).WithCause(err))
		return
	}

	var total int64
	if raw := strings.TrimSpace(r.FormValue("total")); raw != "" {
		total, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.HandleError(w, r, errors.NewValidationFieldError("total", "total must be a whole number", errors.ErrCodeInvalidAmount))
			return
		}
	}

	upload := BillUpload{
		OrderID:   r.FormValue("orderId"),
		UserName:  r.FormValue("userName"),
		UserPhone: r.FormValue("userPhone"),
		Total:     total,
		FileName:  header.Filename,
		Photo:     photo,
	}
	if err := h.Service.RelayBill(r.Context(), upload); err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, RelayResponse{
		Success: true,
		OrderID: upload.OrderID,
		Message: MessageBillSent,
	})
}

// GetBillStatus handles GET /bill-status/{orderId}
func (h *Handler) GetBillStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	b, err := h.Service.BillStatus(r.Context(), orderID)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewBillStatusResponse(orderID, b, time.Now().UTC()))
}
