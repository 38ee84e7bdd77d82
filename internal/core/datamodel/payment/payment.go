package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusExpired = "expired"
)

type PaymentIntent struct {
	ID                string    `gorm:"column:id;primaryKey;size:36"`
	UserPhone         string    `gorm:"column:user_phone;not null;index:idx_intent_match,priority:1"`
	VoucherProductID  string    `gorm:"column:voucher_product_id;size:36;not null"`
	ExpectedAmountVND int64     `gorm:"column:expected_amount_vnd;not null;index:idx_intent_match,priority:2"`
	PaymentContent    string    `gorm:"column:payment_content;not null"`
	Status            string    `gorm:"column:status;default:pending;index:idx_intent_match,priority:3"`
	ExpiresAt         time.Time `gorm:"column:expires_at;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}

func (p *PaymentIntent) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ShortID is the id prefix carried in chat callback payloads.
func (p *PaymentIntent) ShortID() string {
	if len(p.ID) < 8 {
		return p.ID
	}
	return p.ID[:8]
}

type BankTransaction struct {
	ID               string          `gorm:"column:id;primaryKey;size:36"`
	TxnID            string          `gorm:"column:txn_id;not null;uniqueIndex"`
	CreditAccount    string          `gorm:"column:credit_account;not null"`
	AmountVND        decimal.Decimal `gorm:"column:amount_vnd;type:numeric(20,2);not null"`
	ContentRaw       string          `gorm:"column:content_raw;not null"`
	PaidAt           time.Time       `gorm:"column:paid_at;not null"`
	MatchedUserPhone *string         `gorm:"column:matched_user_phone"`
	MatchedIntentID  *string         `gorm:"column:matched_intent_id;size:36"`
	ProcessedAt      *time.Time      `gorm:"column:processed_at"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (BankTransaction) TableName() string {
	return "bank_transactions"
}

func (b *BankTransaction) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
