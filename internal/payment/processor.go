package payment

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/core/common/validation"
	paymentDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/payment"
	walletDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
	"github.com/frahmantamala/ran-loyalty/internal/core/events"
	"github.com/frahmantamala/ran-loyalty/internal/voucher"
	"github.com/frahmantamala/ran-loyalty/internal/wallet"
	"github.com/frahmantamala/ran-loyalty/pkg/lock"
)

// WalletCrediter is the part of the wallet service used to pay out rewards.
type WalletCrediter interface {
	Credit(ctx context.Context, req wallet.CreditRequest) (*wallet.Result, error)
	PublishCredited(ctx context.Context, res *wallet.Result)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Reconciliation reports what happened to one bank transaction.
type Reconciliation struct {
	Outcome           Outcome
	BankTransactionID string
	UserPhone         string
	IntentID          string
	VoucherName       string
	RewardRAN         int64
	NewBalance        int64
}

// AdminConfirmation reports a purchase confirmed from the voucher chat.
type AdminConfirmation struct {
	IntentID         string
	ShortID          string
	UserPhone        string
	VoucherName      string
	RewardRAN        int64
	NewBalance       int64
	AlreadyProcessed bool
}

// Reconciler matches bank transfers to payment intents and pays out the
// voucher reward. Intents are settled under a per-phone lock and the
// pending to paid transition, the bank transaction update and the wallet
// credit commit together.
type Reconciler struct {
	repo      RepositoryAPI
	vouchers  VoucherLookup
	wallet    WalletCrediter
	tx        Transactor
	locker    lock.Locker
	publisher events.Publisher
	extractor *PhoneExtractor
	logger    *slog.Logger
	now       func() time.Time

	inflight singleflight.Group
}

func NewReconciler(
	repo RepositoryAPI,
	vouchers VoucherLookup,
	walletService WalletCrediter,
	tx Transactor,
	locker lock.Locker,
	publisher events.Publisher,
	contentPrefix string,
	logger *slog.Logger,
) *Reconciler {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &Reconciler{
		repo:      repo,
		vouchers:  vouchers,
		wallet:    walletService,
		tx:        tx,
		locker:    locker,
		publisher: publisher,
		extractor: NewPhoneExtractor(contentPrefix),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func phoneLockKey(phone string) string {
	return "payment:phone:" + phone
}

func validateBankTransaction(in BankTransaction) error {
	v := validation.NewValidator()
	v.Field("txnId", in.TxnID).Required().MaxLength(255)
	v.Field("creditAccount", in.CreditAccount).Required()
	v.Field("contentRaw", in.ContentRaw).Required()
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	if !in.AmountVND.IsPositive() || !in.AmountVND.IsInteger() {
		return errors.NewValidationFieldError("amountVnd", "amountVnd must be a positive whole number", errors.ErrCodeInvalidAmount)
	}
	if in.PaidAt.IsZero() {
		return errors.NewValidationFieldError("paidAt", "paidAt is required", errors.ErrCodeMissingField)
	}
	return nil
}

// ProcessBankTransaction stores the transfer once per txn id and, when its
// content names a phone with a pending intent for the exact amount, marks
// the intent paid and credits the voucher reward. Concurrent deliveries of
// the same txn id share one execution.
func (r *Reconciler) ProcessBankTransaction(ctx context.Context, in BankTransaction) (*Reconciliation, error) {
	if err := validateBankTransaction(in); err != nil {
		return nil, err
	}

	// Callers sharing a txn id wait on one execution, so it must outlive
	// whichever caller started it.
	detached := context.WithoutCancel(ctx)
	v, err, collapsed := r.inflight.Do(in.TxnID, func() (interface{}, error) {
		return r.process(detached, in)
	})
	if err != nil {
		return nil, err
	}
	if collapsed {
		r.logger.Info("bank transaction delivery collapsed", "txn_id", in.TxnID)
	}
	res := *v.(*Reconciliation)
	return &res, nil
}

func (r *Reconciler) process(ctx context.Context, in BankTransaction) (*Reconciliation, error) {
	r.logger.Info("processing bank transaction",
		"txn_id", in.TxnID,
		"credit_account", in.CreditAccount,
		"amount_vnd", in.AmountVND.String(),
		"content", in.ContentRaw)

	existing, err := r.repo.GetBankTransactionByTxnID(ctx, in.TxnID)
	if err != nil {
		r.logger.Error("failed to look up bank transaction", "txn_id", in.TxnID, "error", err)
		return nil, errors.NewInternalError("Failed to process bank transaction", err)
	}
	if existing != nil {
		r.logger.Info("bank transaction already processed", "txn_id", in.TxnID, "id", existing.ID)
		return &Reconciliation{Outcome: OutcomeDuplicate, BankTransactionID: existing.ID}, nil
	}

	row := &paymentDatamodel.BankTransaction{
		TxnID:         in.TxnID,
		CreditAccount: in.CreditAccount,
		AmountVND:     in.AmountVND,
		ContentRaw:    in.ContentRaw,
		PaidAt:        in.PaidAt.UTC(),
	}
	if err := r.repo.CreateBankTransaction(ctx, row); err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			r.logger.Info("bank transaction inserted concurrently", "txn_id", in.TxnID)
			return &Reconciliation{Outcome: OutcomeDuplicate}, nil
		}
		r.logger.Error("failed to store bank transaction", "txn_id", in.TxnID, "error", err)
		return nil, errors.NewInternalError("Failed to process bank transaction", err)
	}

	phone, ok := r.extractor.Extract(in.ContentRaw)
	if !ok {
		r.logger.Warn("no phone in bank transaction content", "txn_id", in.TxnID, "content", in.ContentRaw)
		r.publishUnmatched(ctx, row, "", UnmatchedNoPhone)
		return &Reconciliation{Outcome: OutcomeNoPhone, BankTransactionID: row.ID}, nil
	}

	return r.match(ctx, row, phone)
}

func (r *Reconciler) match(ctx context.Context, row *paymentDatamodel.BankTransaction, phone string) (*Reconciliation, error) {
	unlock, err := r.locker.Lock(ctx, phoneLockKey(phone))
	if err != nil {
		r.logger.Error("failed to acquire payment lock", "phone", phone, "error", err)
		return nil, errors.NewInternalError("Failed to process bank transaction", err)
	}
	defer unlock()

	amount := row.AmountVND.IntPart()
	unmatched := &Reconciliation{Outcome: OutcomeNoIntent, BankTransactionID: row.ID, UserPhone: phone}

	candidates, err := r.repo.FindMatchingIntents(ctx, phone, amount, r.now())
	if err != nil {
		r.logger.Error("failed to find payment intents", "phone", phone, "error", err)
		return nil, errors.NewInternalError("Failed to process bank transaction", err)
	}
	if len(candidates) == 0 {
		r.logger.Warn("no matching payment intent",
			"txn_id", row.TxnID,
			"phone", phone,
			"amount_vnd", amount)
		r.recordUnmatchedPhone(ctx, row, phone)
		return unmatched, nil
	}
	if len(candidates) > 1 {
		r.logger.Warn("multiple payment intents match, using the most recent",
			"txn_id", row.TxnID,
			"phone", phone,
			"amount_vnd", amount,
			"candidates", len(candidates))
	}

	intent := FromDataModel(candidates[0])
	vch, err := r.vouchers.Get(ctx, intent.VoucherProductID)
	if err != nil {
		r.logger.Error("voucher of payment intent unavailable",
			"intent_id", intent.ID,
			"voucher_id", intent.VoucherProductID,
			"error", err)
		return nil, errors.NewInternalError("Failed to process bank transaction", err)
	}

	var credit *wallet.Result
	err = r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		paid, err := r.repo.MarkIntentPaid(ctx, intent.ID, paymentDatamodel.StatusPending)
		if err != nil {
			return err
		}
		if !paid {
			return errors.ErrIntentNotPending
		}
		if err := r.repo.MarkBankTransactionMatched(ctx, row.ID, phone, intent.ID, r.now()); err != nil {
			return err
		}
		credit, err = r.wallet.Credit(ctx, wallet.CreditRequest{
			Phone:          phone,
			Amount:         vch.RewardRAN,
			IdempotencyKey: wallet.BankTransactionKey(row.TxnID),
			Type:           walletDatamodel.TypePurchaseCredit,
			Description:    fmt.Sprintf("Voucher %s – MB %s", vch.Name, row.CreditAccount),
			ReferenceID:    row.ID,
			ReferenceType:  walletDatamodel.ReferenceBankTransaction,
		})
		return err
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrIntentNotPending) {
			r.logger.Warn("payment intent settled concurrently", "intent_id", intent.ID, "txn_id", row.TxnID)
			r.recordUnmatchedPhone(ctx, row, phone)
			return unmatched, nil
		}
		r.logger.Error("failed to settle payment intent",
			"intent_id", intent.ID,
			"txn_id", row.TxnID,
			"error", err)
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		return nil, errors.NewInternalError("Failed to process bank transaction", err)
	}

	r.wallet.PublishCredited(ctx, credit)
	r.publishPaid(ctx, intent, events.PaidByBankWebhook)

	r.logger.Info("payment intent paid",
		"intent_id", intent.ID,
		"txn_id", row.TxnID,
		"phone", phone,
		"reward_ran", vch.RewardRAN,
		"balance_after", credit.Balance.BalanceRAN)

	return &Reconciliation{
		Outcome:           OutcomeCredited,
		BankTransactionID: row.ID,
		UserPhone:         phone,
		IntentID:          intent.ID,
		VoucherName:       vch.Name,
		RewardRAN:         vch.RewardRAN,
		NewBalance:        credit.Balance.BalanceRAN,
	}, nil
}

func (r *Reconciler) recordUnmatchedPhone(ctx context.Context, row *paymentDatamodel.BankTransaction, phone string) {
	if err := r.repo.SetBankTransactionPhone(ctx, row.ID, phone); err != nil {
		r.logger.Error("failed to record phone on bank transaction", "txn_id", row.TxnID, "error", err)
	}
	r.publishUnmatched(ctx, row, phone, UnmatchedNoIntent)
}

var shortIDPattern = regexp.MustCompile(`^[0-9a-f-]{1,36}$`)

// ConfirmIntentByAdmin settles the intent of phone whose id starts with
// shortID after a staff member checked the transfer by hand. It shares the
// settlement transaction of the bank path, keyed by the intent id, and
// reports AlreadyProcessed when the intent is paid already.
func (r *Reconciler) ConfirmIntentByAdmin(ctx context.Context, shortID, phone string, amountVND int64) (*AdminConfirmation, error) {
	v := validation.NewValidator()
	v.Field("shortId", shortID).Required().Matches(shortIDPattern, "must be up to 36 hex digits or dashes")
	v.Field("phone", phone).Required().Phone()
	v.Field("amount", amountVND).Required().MinInt(1, errors.ErrCodeInvalidAmount)
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	unlock, err := r.locker.Lock(ctx, phoneLockKey(phone))
	if err != nil {
		r.logger.Error("failed to acquire payment lock", "phone", phone, "error", err)
		return nil, errors.NewInternalError("Failed to confirm payment", err)
	}
	defer unlock()

	candidates, err := r.repo.FindIntentsByShortID(ctx, shortID, phone)
	if err != nil {
		r.logger.Error("failed to find payment intent", "short_id", shortID, "phone", phone, "error", err)
		return nil, errors.NewInternalError("Failed to confirm payment", err)
	}
	if len(candidates) == 0 {
		return nil, errors.ErrIntentNotFound
	}

	intent := FromDataModel(candidates[0])
	for _, c := range candidates {
		if candidate := FromDataModel(c); candidate.IsPending() {
			intent = candidate
			break
		}
	}

	confirmation := &AdminConfirmation{
		IntentID:  intent.ID,
		ShortID:   intent.ShortID(),
		UserPhone: phone,
	}
	if intent.Status == paymentDatamodel.StatusPaid {
		confirmation.AlreadyProcessed = true
		return confirmation, nil
	}
	if intent.ExpectedAmountVND != amountVND {
		return nil, errors.NewValidationError("Amount does not match payment intent", errors.ErrCodeInvalidAmount)
	}

	vch, err := r.vouchers.Get(ctx, intent.VoucherProductID)
	if err != nil {
		r.logger.Error("voucher of payment intent unavailable",
			"intent_id", intent.ID,
			"voucher_id", intent.VoucherProductID,
			"error", err)
		return nil, errors.NewInternalError("Failed to confirm payment", err)
	}
	confirmation.VoucherName = vch.Name
	confirmation.RewardRAN = vch.RewardRAN

	var credit *wallet.Result
	err = r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// staff may confirm a transfer that arrived after the sweeper ran
		paid, err := r.repo.MarkIntentPaid(ctx, intent.ID, paymentDatamodel.StatusPending, paymentDatamodel.StatusExpired)
		if err != nil {
			return err
		}
		if !paid {
			return errors.ErrIntentNotPending
		}
		credit, err = r.wallet.Credit(ctx, wallet.CreditRequest{
			Phone:          phone,
			Amount:         vch.RewardRAN,
			IdempotencyKey: wallet.IntentKey(intent.ID),
			Type:           walletDatamodel.TypePurchaseCredit,
			Description:    fmt.Sprintf("Voucher %s – xác nhận thủ công", vch.Name),
			ReferenceID:    intent.ID,
			ReferenceType:  walletDatamodel.ReferencePaymentIntent,
		})
		return err
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrIntentNotPending) {
			confirmation.AlreadyProcessed = true
			return confirmation, nil
		}
		r.logger.Error("failed to confirm payment intent", "intent_id", intent.ID, "error", err)
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		return nil, errors.NewInternalError("Failed to confirm payment", err)
	}

	r.wallet.PublishCredited(ctx, credit)
	r.publishPaid(ctx, intent, events.PaidByAdmin)

	confirmation.NewBalance = credit.Balance.BalanceRAN
	r.logger.Info("payment intent confirmed by admin",
		"intent_id", intent.ID,
		"phone", phone,
		"reward_ran", vch.RewardRAN,
		"balance_after", confirmation.NewBalance)
	return confirmation, nil
}

func (r *Reconciler) publishPaid(ctx context.Context, intent *Intent, source string) {
	if r.publisher == nil {
		return
	}
	event := events.NewPaymentIntentPaidEvent(intent.ID, intent.UserPhone, intent.ExpectedAmountVND, source)
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("failed to publish payment intent paid", "intent_id", intent.ID, "error", err)
	}
}

func (r *Reconciler) publishUnmatched(ctx context.Context, row *paymentDatamodel.BankTransaction, phone, reason string) {
	if r.publisher == nil {
		return
	}
	event := events.NewBankTransactionUnmatchedEvent(row.ID, row.TxnID, row.AmountVND.String(), row.ContentRaw, phone, reason)
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("failed to publish unmatched bank transaction", "txn_id", row.TxnID, "error", err)
	}
}

var _ VoucherLookup = (*voucher.Service)(nil)
