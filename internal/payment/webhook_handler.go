package payment

import (
	"context"
	"fmt"
	"net/http"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/telegram"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
)

type ReconcilerAPI interface {
	ProcessBankTransaction(ctx context.Context, in BankTransaction) (*Reconciliation, error)
}

type WebhookHandler struct {
	*transport.BaseHandler
	reconciler ReconcilerAPI
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, reconciler ReconcilerAPI) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		reconciler:  reconciler,
	}
}

// HandleBankWebhook handles POST /api/v1/mb-webhook
func (h *WebhookHandler) HandleBankWebhook(w http.ResponseWriter, r *http.Request) {
	var req BankWebhookRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.Logger.Info("received bank webhook",
		"txn_id", req.TxnID,
		"credit_account", req.CreditAccount,
		"content", req.ContentRaw)

	if req.AmountVND == nil {
		h.HandleError(w, r, errors.NewValidationFieldError("amountVnd", "amountVnd is required", errors.ErrCodeMissingField))
		return
	}
	if req.PaidAt == nil {
		h.HandleError(w, r, errors.NewValidationFieldError("paidAt", "paidAt is required", errors.ErrCodeMissingField))
		return
	}

	res, err := h.reconciler.ProcessBankTransaction(r.Context(), BankTransaction{
		TxnID:         req.TxnID,
		CreditAccount: req.CreditAccount,
		AmountVND:     *req.AmountVND,
		ContentRaw:    req.ContentRaw,
		PaidAt:        *req.PaidAt,
	})
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	switch res.Outcome {
	case OutcomeDuplicate:
		h.WriteJSON(w, http.StatusOK, ReconcileResponse{Success: true, Message: MessageAlreadyProcessed})
	case OutcomeNoPhone:
		h.WriteJSON(w, http.StatusBadRequest, ReconcileResponse{Success: false, Message: MessagePhoneNotFound})
	case OutcomeNoIntent:
		h.WriteJSON(w, http.StatusBadRequest, ReconcileResponse{Success: false, Message: MessageNoMatchingIntent})
	default:
		h.WriteJSON(w, http.StatusOK, ReconcileResponse{
			Success: true,
			Message: fmt.Sprintf("Bạn đã đổi thành công và + %s RAN vào tài khoản.", telegram.FormatNumber(res.RewardRAN)),
			Data: &ReconcileData{
				UserPhone:   res.UserPhone,
				RewardRAN:   res.RewardRAN,
				NewBalance:  res.NewBalance,
				VoucherName: res.VoucherName,
			},
		})
	}
}
