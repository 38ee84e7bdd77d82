package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type VoucherPurchaseRequest struct {
	VoucherID string `json:"voucherId"`
	UserPhone string `json:"userPhone"`
}

type PaymentIntentResponse struct {
	ID             string    `json:"id"`
	Amount         int64     `json:"amount"`
	PaymentContent string    `json:"paymentContent"`
	ExpiresAt      time.Time `json:"expiresAt"`
	AccountNumber  string    `json:"accountNumber"`
	BankName       string    `json:"bankName"`
}

type PurchasedVoucherResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	RewardRAN   int64  `json:"rewardRan"`
}

type VoucherPurchaseResponse struct {
	Success       bool                     `json:"success"`
	PaymentIntent PaymentIntentResponse    `json:"paymentIntent"`
	Voucher       PurchasedVoucherResponse `json:"voucher"`
}

type IntentStatusResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Amount    int64     `json:"amount"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// BankWebhookRequest is the bank's credit notification. amountVnd may be a
// JSON number or a numeric string.
type BankWebhookRequest struct {
	TxnID         string           `json:"txnId"`
	CreditAccount string           `json:"creditAccount"`
	AmountVND     *decimal.Decimal `json:"amountVnd"`
	ContentRaw    string           `json:"contentRaw"`
	PaidAt        *time.Time       `json:"paidAt"`
}

type ReconcileData struct {
	UserPhone   string `json:"userPhone"`
	RewardRAN   int64  `json:"rewardRan"`
	NewBalance  int64  `json:"newBalance"`
	VoucherName string `json:"voucherName"`
}

type ReconcileResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    *ReconcileData `json:"data,omitempty"`
}

// Response texts of the bank webhook.
const (
	MessageAlreadyProcessed = "Transaction already processed"
	MessagePhoneNotFound    = "Phone number not found in content"
	MessageNoMatchingIntent = "No matching payment intent"
)
