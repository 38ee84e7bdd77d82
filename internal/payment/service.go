package payment

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/core/common/validation"
	paymentDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/payment"
	"github.com/frahmantamala/ran-loyalty/internal/core/events"
	"github.com/frahmantamala/ran-loyalty/internal/voucher"
	"github.com/frahmantamala/ran-loyalty/internal/wallet"
)

const DefaultIntentTTL = 30 * time.Minute

type RepositoryAPI interface {
	CreateIntent(ctx context.Context, p *paymentDatamodel.PaymentIntent) error
	GetIntent(ctx context.Context, id string) (*paymentDatamodel.PaymentIntent, error)
	FindIntentsByShortID(ctx context.Context, shortID, phone string) ([]*paymentDatamodel.PaymentIntent, error)
	FindMatchingIntents(ctx context.Context, phone string, amountVND int64, now time.Time) ([]*paymentDatamodel.PaymentIntent, error)
	MarkIntentPaid(ctx context.Context, id string, from ...string) (bool, error)
	ListPendingWithVoucher(ctx context.Context, phone string, now time.Time) ([]PendingIntentRow, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)

	GetBankTransactionByTxnID(ctx context.Context, txnID string) (*paymentDatamodel.BankTransaction, error)
	CreateBankTransaction(ctx context.Context, t *paymentDatamodel.BankTransaction) error
	SetBankTransactionPhone(ctx context.Context, id, phone string) error
	MarkBankTransactionMatched(ctx context.Context, id, phone, intentID string, at time.Time) error
}

// VoucherLookup resolves catalog entries for purchases and credits.
type VoucherLookup interface {
	GetActive(ctx context.Context, id string) (*voucher.Voucher, error)
	Get(ctx context.Context, id string) (*voucher.Voucher, error)
}

// Options holds the payment settings shown to members.
type Options struct {
	ContentPrefix string
	IntentTTL     time.Duration
	AccountNumber string
	BankName      string
}

func (o Options) withDefaults() Options {
	if o.ContentPrefix == "" {
		o.ContentPrefix = DefaultContentPrefix
	}
	if o.IntentTTL <= 0 {
		o.IntentTTL = DefaultIntentTTL
	}
	return o
}

type Service struct {
	repo      RepositoryAPI
	vouchers  VoucherLookup
	publisher events.Publisher
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, vouchers VoucherLookup, publisher events.Publisher, opts Options, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		vouchers:  vouchers,
		publisher: publisher,
		opts:      opts.withDefaults(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Purchase is a freshly created intent with the voucher it pays for.
type Purchase struct {
	Intent  *Intent
	Voucher *voucher.Voucher
}

func (p *Purchase) ToResponse(opts Options) VoucherPurchaseResponse {
	return VoucherPurchaseResponse{
		Success: true,
		PaymentIntent: PaymentIntentResponse{
			ID:             p.Intent.ID,
			Amount:         p.Intent.ExpectedAmountVND,
			PaymentContent: p.Intent.PaymentContent,
			ExpiresAt:      p.Intent.ExpiresAt,
			AccountNumber:  opts.AccountNumber,
			BankName:       opts.BankName,
		},
		Voucher: PurchasedVoucherResponse{
			Name:        p.Voucher.Name,
			Description: p.Voucher.Description,
			RewardRAN:   p.Voucher.RewardRAN,
		},
	}
}

func (s *Service) Options() Options {
	return s.opts
}

// CreateIntent records the expectation of a transfer of the voucher's sell
// price from phone.
func (s *Service) CreateIntent(ctx context.Context, voucherID, phone string) (*Purchase, error) {
	v := validation.NewValidator()
	v.Field("voucherId", voucherID).Required()
	v.Field("userPhone", phone).Required().Phone()
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	vch, err := s.vouchers.GetActive(ctx, voucherID)
	if err != nil {
		return nil, err
	}

	intent := &Intent{
		UserPhone:         phone,
		VoucherProductID:  vch.ID,
		ExpectedAmountVND: vch.SellPriceVND,
		PaymentContent:    PaymentContent(s.opts.ContentPrefix, phone),
		Status:            paymentDatamodel.StatusPending,
		ExpiresAt:         s.now().Add(s.opts.IntentTTL),
	}

	row := intent.ToDataModel()
	if err := s.repo.CreateIntent(ctx, row); err != nil {
		s.logger.Error("failed to create payment intent",
			"phone", phone,
			"voucher_id", voucherID,
			"error", err)
		return nil, errors.NewInternalError("Failed to create payment intent", err)
	}
	intent = FromDataModel(row)

	s.logger.Info("payment intent created",
		"intent_id", intent.ID,
		"phone", phone,
		"voucher", vch.Name,
		"amount_vnd", intent.ExpectedAmountVND,
		"expires_at", intent.ExpiresAt)

	if s.publisher != nil {
		event := events.NewPaymentIntentCreatedEvent(intent.ID, intent.ShortID(), phone, vch.Name, intent.ExpectedAmountVND, vch.RewardRAN)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish payment intent event", "intent_id", intent.ID, "error", err)
		}
	}

	return &Purchase{Intent: intent, Voucher: vch}, nil
}

func (s *Service) GetIntent(ctx context.Context, id string) (*Intent, error) {
	if id == "" {
		return nil, errors.NewValidationError("Payment intent id is required", errors.ErrCodeMissingField)
	}
	row, err := s.repo.GetIntent(ctx, id)
	if err != nil {
		s.logger.Error("failed to load payment intent", "intent_id", id, "error", err)
		return nil, errors.NewInternalError("Failed to load payment intent", err)
	}
	if row == nil {
		return nil, errors.ErrIntentNotFound
	}
	return FromDataModel(row), nil
}

// PendingIntents lists the unpaid, unexpired purchases of phone.
func (s *Service) PendingIntents(ctx context.Context, phone string) ([]wallet.PendingIntent, error) {
	rows, err := s.repo.ListPendingWithVoucher(ctx, phone, s.now())
	if err != nil {
		return nil, err
	}
	intents := make([]wallet.PendingIntent, 0, len(rows))
	for _, r := range rows {
		intents = append(intents, r.ToWallet())
	}
	return intents, nil
}

// ExpireStale marks lapsed pending intents as expired.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireStale(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("payment intents expired", "count", n)
	}
	return n, nil
}
