package wallet

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TypePurchaseCredit = "PURCHASE_CREDIT"
	TypeBillReward     = "BILL_REWARD"
	TypeWelcomeBonus   = "WELCOME_BONUS"
	TypeManualAdjust   = "MANUAL_ADJUST"
	TypeRedeemDebit    = "REDEEM_DEBIT"

	ReferenceBankTransaction = "bank_transaction"
	ReferencePaymentIntent   = "payment_intent"
	ReferenceOrder           = "order"
	ReferenceMember          = "member"
	ReferenceManual          = "manual"
	ReferenceRedeem          = "redeem"
)

type Wallet struct {
	UserPhone      string    `gorm:"column:user_phone;primaryKey"`
	BalanceRAN     int64     `gorm:"column:balance_ran;not null;default:0"`
	TotalEarnedRAN int64     `gorm:"column:total_earned_ran;not null;default:0"`
	TotalSpentRAN  int64     `gorm:"column:total_spent_ran;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Wallet) TableName() string {
	return "ran_wallets"
}

// LedgerEntry is append-only. BalanceAfter is the wallet balance right after
// the entry was applied.
type LedgerEntry struct {
	ID              string    `gorm:"column:id;primaryKey;size:36"`
	UserPhone       string    `gorm:"column:user_phone;not null;index"`
	TransactionType string    `gorm:"column:transaction_type;not null"`
	AmountRAN       int64     `gorm:"column:amount_ran;not null"`
	Description     string    `gorm:"column:description"`
	ReferenceID     string    `gorm:"column:reference_id"`
	ReferenceType   string    `gorm:"column:reference_type"`
	BalanceAfter    int64     `gorm:"column:balance_after;not null"`
	IdempotencyKey  string    `gorm:"column:idempotency_key;not null;uniqueIndex"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (LedgerEntry) TableName() string {
	return "ran_ledger"
}

func (l *LedgerEntry) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
