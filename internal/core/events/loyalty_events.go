package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentIntentCreated     = "payment_intent.created"
	EventTypePaymentIntentPaid        = "payment_intent.paid"
	EventTypeBankTransactionUnmatched = "bank_transaction.unmatched"
	EventTypeWalletCredited           = "wallet.credited"
	EventTypeMemberRegistered         = "member.registered"
	EventTypeMemberLoggedIn           = "member.logged_in"
)

func newBaseEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type PaymentIntentCreatedEvent struct {
	BaseEvent
	IntentID    string `json:"intent_id"`
	ShortID     string `json:"short_id"`
	UserPhone   string `json:"user_phone"`
	VoucherName string `json:"voucher_name"`
	AmountVND   int64  `json:"amount_vnd"`
	RewardRAN   int64  `json:"reward_ran"`
}

func NewPaymentIntentCreatedEvent(intentID, shortID, userPhone, voucherName string, amountVND, rewardRAN int64) *PaymentIntentCreatedEvent {
	return &PaymentIntentCreatedEvent{
		BaseEvent: newBaseEvent(EventTypePaymentIntentCreated, map[string]interface{}{
			"intent_id":    intentID,
			"user_phone":   userPhone,
			"voucher_name": voucherName,
			"amount_vnd":   amountVND,
			"reward_ran":   rewardRAN,
		}),
		IntentID:    intentID,
		ShortID:     shortID,
		UserPhone:   userPhone,
		VoucherName: voucherName,
		AmountVND:   amountVND,
		RewardRAN:   rewardRAN,
	}
}

// Source values for PaymentIntentPaidEvent.
const (
	PaidByBankWebhook = "bank_webhook"
	PaidByAdmin       = "admin"
)

type PaymentIntentPaidEvent struct {
	BaseEvent
	IntentID  string `json:"intent_id"`
	UserPhone string `json:"user_phone"`
	AmountVND int64  `json:"amount_vnd"`
	Source    string `json:"source"`
}

func NewPaymentIntentPaidEvent(intentID, userPhone string, amountVND int64, source string) *PaymentIntentPaidEvent {
	return &PaymentIntentPaidEvent{
		BaseEvent: newBaseEvent(EventTypePaymentIntentPaid, map[string]interface{}{
			"intent_id":  intentID,
			"user_phone": userPhone,
			"amount_vnd": amountVND,
			"source":     source,
		}),
		IntentID:  intentID,
		UserPhone: userPhone,
		AmountVND: amountVND,
		Source:    source,
	}
}

type BankTransactionUnmatchedEvent struct {
	BaseEvent
	BankTransactionID string `json:"bank_transaction_id"`
	TxnID             string `json:"txn_id"`
	AmountVND         string `json:"amount_vnd"`
	ContentRaw        string `json:"content_raw"`
	ExtractedPhone    string `json:"extracted_phone,omitempty"`
	Reason            string `json:"reason"`
}

func NewBankTransactionUnmatchedEvent(bankTxnID, txnID, amountVND, contentRaw, extractedPhone, reason string) *BankTransactionUnmatchedEvent {
	return &BankTransactionUnmatchedEvent{
		BaseEvent: newBaseEvent(EventTypeBankTransactionUnmatched, map[string]interface{}{
			"bank_transaction_id": bankTxnID,
			"txn_id":              txnID,
			"amount_vnd":          amountVND,
			"extracted_phone":     extractedPhone,
			"reason":              reason,
		}),
		BankTransactionID: bankTxnID,
		TxnID:             txnID,
		AmountVND:         amountVND,
		ContentRaw:        contentRaw,
		ExtractedPhone:    extractedPhone,
		Reason:            reason,
	}
}

type WalletCreditedEvent struct {
	BaseEvent
	UserPhone       string `json:"user_phone"`
	AmountRAN       int64  `json:"amount_ran"`
	BalanceAfter    int64  `json:"balance_after"`
	TransactionType string `json:"transaction_type"`
	IdempotencyKey  string `json:"idempotency_key"`
}

func NewWalletCreditedEvent(userPhone string, amountRAN, balanceAfter int64, transactionType, idempotencyKey string) *WalletCreditedEvent {
	return &WalletCreditedEvent{
		BaseEvent: newBaseEvent(EventTypeWalletCredited, map[string]interface{}{
			"user_phone":       userPhone,
			"amount_ran":       amountRAN,
			"balance_after":    balanceAfter,
			"transaction_type": transactionType,
			"idempotency_key":  idempotencyKey,
		}),
		UserPhone:       userPhone,
		AmountRAN:       amountRAN,
		BalanceAfter:    balanceAfter,
		TransactionType: transactionType,
		IdempotencyKey:  idempotencyKey,
	}
}

type MemberEvent struct {
	BaseEvent
	Phone        string    `json:"phone"`
	Name         string    `json:"name"`
	WelcomeBonus int64     `json:"welcome_bonus,omitempty"`
	At           time.Time `json:"at"`
}

func NewMemberRegisteredEvent(phone, name string, welcomeBonus int64) *MemberEvent {
	now := time.Now().UTC()
	return &MemberEvent{
		BaseEvent: newBaseEvent(EventTypeMemberRegistered, map[string]interface{}{
			"phone":         phone,
			"name":          name,
			"welcome_bonus": welcomeBonus,
		}),
		Phone:        phone,
		Name:         name,
		WelcomeBonus: welcomeBonus,
		At:           now,
	}
}

func NewMemberLoggedInEvent(phone, name string) *MemberEvent {
	return &MemberEvent{
		BaseEvent: newBaseEvent(EventTypeMemberLoggedIn, map[string]interface{}{
			"phone": phone,
			"name":  name,
		}),
		Phone: phone,
		Name:  name,
		At:    time.Now().UTC(),
	}
}
