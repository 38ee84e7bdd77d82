package wallet

import (
	"fmt"
	"time"

	walletDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
)

// Idempotency keys. One key is one ledger row.
func BankTransactionKey(txnID string) string { return "bank_txn:" + txnID }

func IntentKey(intentID string) string { return "intent:" + intentID }

func BillKey(orderID, phone string) string { return fmt.Sprintf("bill:%s:%s", orderID, phone) }

func WelcomeKey(phone string) string { return "welcome:" + phone }

func ManualKey(reference string) string { return "manual:" + reference }

func SpendKey(phone, reference string) string { return fmt.Sprintf("spend:%s:%s", phone, reference) }

// CreditRequest describes one balance change. Amount is always positive,
// Debit stores it negated in the ledger.
type CreditRequest struct {
	Phone          string
	Amount         int64
	IdempotencyKey string
	Type           string
	Description    string
	ReferenceID    string
	ReferenceType  string
}

type Balance struct {
	Phone          string
	BalanceRAN     int64
	TotalEarnedRAN int64
	TotalSpentRAN  int64
}

func BalanceFromDataModel(w *walletDatamodel.Wallet) Balance {
	return Balance{
		Phone:          w.UserPhone,
		BalanceRAN:     w.BalanceRAN,
		TotalEarnedRAN: w.TotalEarnedRAN,
		TotalSpentRAN:  w.TotalSpentRAN,
	}
}

// Result reports the ledger row for a key. AlreadyApplied is set when the
// row existed before the call and nothing was changed.
type Result struct {
	Entry          *walletDatamodel.LedgerEntry
	Balance        Balance
	AlreadyApplied bool
}

// PendingIntent is an unpaid voucher purchase shown next to the wallet.
type PendingIntent struct {
	ID                string    `json:"id"`
	UserPhone         string    `json:"user_phone"`
	VoucherProductID  string    `json:"voucher_product_id"`
	ExpectedAmountVND int64     `json:"expected_amount_vnd"`
	PaymentContent    string    `json:"payment_content"`
	Status            string    `json:"status"`
	ExpiresAt         time.Time `json:"expires_at"`
	CreatedAt         time.Time `json:"created_at"`
	VoucherProducts   struct {
		Name      string `json:"name"`
		RewardRAN int64  `json:"reward_ran"`
	} `json:"voucher_products"`
}

type Status struct {
	Balance        Balance
	Transactions   []*walletDatamodel.LedgerEntry
	PendingIntents []PendingIntent
}
