package wallet

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/core/common/validation"
	walletDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
)

type ServiceAPI interface {
	Credit(ctx context.Context, req CreditRequest) (*Result, error)
	Debit(ctx context.Context, req CreditRequest) (*Result, error)
	Status(ctx context.Context, phone string) (*Status, error)
	Ledger(ctx context.Context, period LedgerPeriod) ([]*walletDatamodel.LedgerEntry, error)
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

// GetStatus serves GET /wallet-status. The phone comes from the query string
// or, when absent, from the session.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		phone = errors.PhoneFromContext(r.Context())
	}
	if phone == "" {
		h.HandleError(w, r, errors.NewValidationError("Phone parameter required", errors.ErrCodeMissingField))
		return
	}

	status, err := h.Service.Status(r.Context(), phone)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	transactions := make([]LedgerEntryResponse, 0, len(status.Transactions))
	for _, e := range status.Transactions {
		transactions = append(transactions, ToLedgerEntryResponse(e))
	}

	h.WriteJSON(w, http.StatusOK, StatusResponse{
		Success:        true,
		Wallet:         status.Balance.ToResponse(),
		Transactions:   transactions,
		PendingIntents: status.PendingIntents,
	})
}

func (h *Handler) Spend(w http.ResponseWriter, r *http.Request) {
	phone := errors.PhoneFromContext(r.Context())
	if phone == "" {
		h.HandleError(w, r, errors.ErrUnauthorizedAccess)
		return
	}

	var req SpendRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, r, err)
		return
	}

	v := validation.NewValidator()
	v.Field("amount", req.Amount).Required().MinInt(1, errors.ErrCodeInvalidAmount)
	v.Field("reference", req.Reference).Required().MaxLength(100)
	if appErr := v.Validate(); appErr != nil {
		h.HandleError(w, r, appErr)
		return
	}

	res, err := h.Service.Debit(r.Context(), CreditRequest{
		Phone:          phone,
		Amount:         req.Amount,
		IdempotencyKey: SpendKey(phone, req.Reference),
		Type:           walletDatamodel.TypeRedeemDebit,
		Description:    fmt.Sprintf("Đổi %d RAN - %s", req.Amount, req.Reference),
		ReferenceID:    req.Reference,
		ReferenceType:  walletDatamodel.ReferenceRedeem,
	})
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewMutationResponse(res))
}

func (h *Handler) AdminCredit(w http.ResponseWriter, r *http.Request) {
	var req AdminCreditRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, r, err)
		return
	}

	v := validation.NewValidator()
	v.Field("userPhone", req.UserPhone).Required().Phone()
	v.Field("amount", req.Amount).Required().MinInt(1, errors.ErrCodeInvalidAmount)
	v.Field("reference", req.Reference).Required().MaxLength(100)
	if appErr := v.Validate(); appErr != nil {
		h.HandleError(w, r, appErr)
		return
	}

	description := req.Description
	if description == "" {
		description = "Manual addition"
	}

	res, err := h.Service.Credit(r.Context(), CreditRequest{
		Phone:          req.UserPhone,
		Amount:         req.Amount,
		IdempotencyKey: ManualKey(req.Reference),
		Type:           walletDatamodel.TypeManualAdjust,
		Description:    description,
		ReferenceID:    req.Reference,
		ReferenceType:  walletDatamodel.ReferenceManual,
	})
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewMutationResponse(res))
}

// ExportLedger serves GET /admin/ledger/export?phone=&month=&year= as xlsx.
func (h *Handler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period := LedgerPeriod{Phone: q.Get("phone")}

	if monthStr, yearStr := q.Get("month"), q.Get("year"); monthStr != "" || yearStr != "" {
		month, errMonth := strconv.Atoi(monthStr)
		year, errYear := strconv.Atoi(yearStr)
		if errMonth != nil || errYear != nil {
			h.HandleError(w, r, errors.NewValidationError("month and year must be numbers", errors.ErrCodeValidationFailed))
			return
		}
		period.Month, period.Year = month, year
	}

	entries, err := h.Service.Ledger(r.Context(), period)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := ExportLedger(&buf, entries); err != nil {
		h.HandleError(w, r, errors.NewInternalError("Failed to generate ledger export", err))
		return
	}

	fileName := fmt.Sprintf("ran_ledger_%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.Logger.Error("failed to write ledger export", "error", err)
	}
}
