// Package adminbot handles the Telegram updates sent by staff: inline button
// presses on purchase and bill notifications and the /addtoken command.
package adminbot

import (
	"context"
	"time"

	"github.com/frahmantamala/ran-loyalty/internal/payment"
	"github.com/frahmantamala/ran-loyalty/internal/wallet"
)

type PaymentConfirmer interface {
	ConfirmIntentByAdmin(ctx context.Context, shortID, phone string, amountVND int64) (*payment.AdminConfirmation, error)
}

type WalletCrediter interface {
	Credit(ctx context.Context, req wallet.CreditRequest) (*wallet.Result, error)
	PublishCredited(ctx context.Context, res *wallet.Result)
}

type BillRecorder interface {
	Confirm(ctx context.Context, orderID, phone, confirmedBy string, at time.Time) error
	RecordTokens(ctx context.Context, orderID, phone string, amount int64, at time.Time) error
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// WebhookResponse is the only body Telegram ever receives from the webhook.
type WebhookResponse struct {
	OK bool `json:"ok"`
}
