package payment

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	paymentDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/payment"
	"github.com/frahmantamala/ran-loyalty/internal/wallet"
)

const DefaultContentPrefix = "RAN HV"

// Outcome of one bank transaction delivery.
type Outcome string

const (
	OutcomeCredited  Outcome = "credited"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNoPhone   Outcome = "no_phone"
	OutcomeNoIntent  Outcome = "no_intent"
)

// Reasons carried by bank_transaction.unmatched.
const (
	UnmatchedNoPhone  = "phone_not_found"
	UnmatchedNoIntent = "no_matching_intent"
)

type Intent struct {
	ID                string
	UserPhone         string
	VoucherProductID  string
	ExpectedAmountVND int64
	PaymentContent    string
	Status            string
	ExpiresAt         time.Time
	CreatedAt         time.Time
}

func (i *Intent) ShortID() string {
	if len(i.ID) < 8 {
		return i.ID
	}
	return i.ID[:8]
}

func (i *Intent) IsPending() bool {
	return i.Status == paymentDatamodel.StatusPending
}

func (i *Intent) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

func FromDataModel(p *paymentDatamodel.PaymentIntent) *Intent {
	return &Intent{
		ID:                p.ID,
		UserPhone:         p.UserPhone,
		VoucherProductID:  p.VoucherProductID,
		ExpectedAmountVND: p.ExpectedAmountVND,
		PaymentContent:    p.PaymentContent,
		Status:            p.Status,
		ExpiresAt:         p.ExpiresAt,
		CreatedAt:         p.CreatedAt,
	}
}

func (i *Intent) ToDataModel() *paymentDatamodel.PaymentIntent {
	return &paymentDatamodel.PaymentIntent{
		ID:                i.ID,
		UserPhone:         i.UserPhone,
		VoucherProductID:  i.VoucherProductID,
		ExpectedAmountVND: i.ExpectedAmountVND,
		PaymentContent:    i.PaymentContent,
		Status:            i.Status,
		ExpiresAt:         i.ExpiresAt,
	}
}

// PendingIntentRow is a pending intent joined with its voucher.
type PendingIntentRow struct {
	paymentDatamodel.PaymentIntent
	VoucherName string `gorm:"column:voucher_name"`
	RewardRAN   int64  `gorm:"column:reward_ran"`
}

func (r PendingIntentRow) ToWallet() wallet.PendingIntent {
	p := wallet.PendingIntent{
		ID:                r.ID,
		UserPhone:         r.UserPhone,
		VoucherProductID:  r.VoucherProductID,
		ExpectedAmountVND: r.ExpectedAmountVND,
		PaymentContent:    r.PaymentContent,
		Status:            r.Status,
		ExpiresAt:         r.ExpiresAt,
		CreatedAt:         r.CreatedAt,
	}
	p.VoucherProducts.Name = r.VoucherName
	p.VoucherProducts.RewardRAN = r.RewardRAN
	return p
}

// BankTransaction is one credit notification from the bank.
type BankTransaction struct {
	TxnID         string
	CreditAccount string
	AmountVND     decimal.Decimal
	ContentRaw    string
	PaidAt        time.Time
}

// PhoneExtractor finds the member phone in a transfer description.
type PhoneExtractor struct {
	re *regexp.Regexp
}

// NewPhoneExtractor accepts the configured content prefix and the legacy
// RANHN marker, case-insensitively, with optional whitespace before the
// 10 or 11 digit phone.
func NewPhoneExtractor(prefix string) *PhoneExtractor {
	if prefix == "" {
		prefix = DefaultContentPrefix
	}
	pattern := `(?i)(?:` + regexp.QuoteMeta(prefix) + `|RANHN)\s*(\d{10,11})`
	return &PhoneExtractor{re: regexp.MustCompile(pattern)}
}

func (e *PhoneExtractor) Extract(content string) (string, bool) {
	m := e.re.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// PaymentContent is the transfer reference a member types in the bank app.
func PaymentContent(prefix, phone string) string {
	if prefix == "" {
		prefix = DefaultContentPrefix
	}
	return prefix + " " + phone
}
