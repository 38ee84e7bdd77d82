package wallet

import (
	"time"

	walletDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
)

type BalanceResponse struct {
	BalanceRAN     int64 `json:"balance_ran"`
	TotalEarnedRAN int64 `json:"total_earned_ran"`
	TotalSpentRAN  int64 `json:"total_spent_ran"`
}

func (b Balance) ToResponse() BalanceResponse {
	return BalanceResponse{
		BalanceRAN:     b.BalanceRAN,
		TotalEarnedRAN: b.TotalEarnedRAN,
		TotalSpentRAN:  b.TotalSpentRAN,
	}
}

type LedgerEntryResponse struct {
	ID              string    `json:"id"`
	UserPhone       string    `json:"user_phone"`
	TransactionType string    `json:"transaction_type"`
	AmountRAN       int64     `json:"amount_ran"`
	Description     string    `json:"description"`
	ReferenceID     string    `json:"reference_id"`
	ReferenceType   string    `json:"reference_type"`
	BalanceAfter    int64     `json:"balance_after"`
	CreatedAt       time.Time `json:"created_at"`
}

func ToLedgerEntryResponse(e *walletDatamodel.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:              e.ID,
		UserPhone:       e.UserPhone,
		TransactionType: e.TransactionType,
		AmountRAN:       e.AmountRAN,
		Description:     e.Description,
		ReferenceID:     e.ReferenceID,
		ReferenceType:   e.ReferenceType,
		BalanceAfter:    e.BalanceAfter,
		CreatedAt:       e.CreatedAt,
	}
}

type StatusResponse struct {
	Success        bool                  `json:"success"`
	Wallet         BalanceResponse       `json:"wallet"`
	Transactions   []LedgerEntryResponse `json:"transactions"`
	PendingIntents []PendingIntent       `json:"pendingIntents"`
}

type SpendRequest struct {
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

type AdminCreditRequest struct {
	UserPhone   string `json:"userPhone"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
}

type MutationResponse struct {
	Success        bool                `json:"success"`
	AlreadyApplied bool                `json:"alreadyApplied"`
	Entry          LedgerEntryResponse `json:"entry"`
	Wallet         BalanceResponse     `json:"wallet"`
}

func NewMutationResponse(res *Result) MutationResponse {
	return MutationResponse{
		Success:        true,
		AlreadyApplied: res.AlreadyApplied,
		Entry:          ToLedgerEntryResponse(res.Entry),
		Wallet:         res.Balance.ToResponse(),
	}
}
