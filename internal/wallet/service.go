package wallet

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/core/common/validation"
	"github.com/frahmantamala/ran-loyalty/internal/core/database"
	walletDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
	"github.com/frahmantamala/ran-loyalty/internal/core/events"
)

const recentEntriesLimit = 10

type RepositoryAPI interface {
	GetWallet(ctx context.Context, phone string) (*walletDatamodel.Wallet, error)
	EnsureWallet(ctx context.Context, phone string) error
	LockWallet(ctx context.Context, phone string) (*walletDatamodel.Wallet, error)
	ApplyDelta(ctx context.Context, phone string, balanceDelta, earnedDelta, spentDelta int64) error
	GetEntryByKey(ctx context.Context, key string) (*walletDatamodel.LedgerEntry, error)
	InsertEntry(ctx context.Context, entry *walletDatamodel.LedgerEntry) error
	RecentEntries(ctx context.Context, phone string, limit int) ([]*walletDatamodel.LedgerEntry, error)
	EntriesBetween(ctx context.Context, phone string, from, to time.Time) ([]*walletDatamodel.LedgerEntry, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PendingIntentSource lists unpaid, unexpired purchases of a phone.
type PendingIntentSource interface {
	PendingIntents(ctx context.Context, phone string) ([]PendingIntent, error)
}

type Service struct {
	repo      RepositoryAPI
	tx        Transactor
	publisher events.Publisher
	intents   PendingIntentSource
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, tx Transactor, publisher events.Publisher, intents PendingIntentSource, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		intents:   intents,
		logger:    logger,
	}
}

func validateMutation(req CreditRequest) error {
	v := validation.NewValidator()
	v.Field("userPhone", req.Phone).Required().Phone()
	v.Field("amount", req.Amount).Required().MinInt(1, errors.ErrCodeInvalidAmount)
	v.Field("idempotencyKey", req.IdempotencyKey).Required().MaxLength(255)
	v.Field("type", req.Type).Required()
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Credit adds req.Amount to the wallet at most once per idempotency key.
// The wallet row, its totals and the ledger row change in one transaction.
// When ctx already carries a transaction Credit joins it and leaves the
// wallet.credited event to the caller, see PublishCredited.
func (s *Service) Credit(ctx context.Context, req CreditRequest) (*Result, error) {
	return s.apply(ctx, req, req.Amount, req.Amount, 0)
}

// Debit removes req.Amount from the wallet at most once per idempotency key.
// The ledger row carries the negated amount.
func (s *Service) Debit(ctx context.Context, req CreditRequest) (*Result, error) {
	return s.apply(ctx, req, -req.Amount, 0, req.Amount)
}

func (s *Service) apply(ctx context.Context, req CreditRequest, delta, earned, spent int64) (*Result, error) {
	if err := validateMutation(req); err != nil {
		return nil, err
	}

	nested := database.InTransaction(ctx)
	var res *Result

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetEntryByKey(ctx, req.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			res, err = s.replay(ctx, existing)
			return err
		}

		if err := s.repo.EnsureWallet(ctx, req.Phone); err != nil {
			return err
		}
		w, err := s.repo.LockWallet(ctx, req.Phone)
		if err != nil {
			return err
		}
		if w.BalanceRAN+delta < 0 {
			return errors.ErrInsufficientBalance
		}

		if err := s.repo.ApplyDelta(ctx, req.Phone, delta, earned, spent); err != nil {
			return err
		}

		entry := &walletDatamodel.LedgerEntry{
			UserPhone:       req.Phone,
			TransactionType: req.Type,
			AmountRAN:       delta,
			Description:     req.Description,
			ReferenceID:     req.ReferenceID,
			ReferenceType:   req.ReferenceType,
			BalanceAfter:    w.BalanceRAN + delta,
			IdempotencyKey:  req.IdempotencyKey,
		}
		if err := s.repo.InsertEntry(ctx, entry); err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.NewConflictError("Credit already applied", errors.ErrCodeDuplicateCredit).WithCause(err)
			}
			return err
		}

		res = &Result{
			Entry: entry,
			Balance: Balance{
				Phone:          req.Phone,
				BalanceRAN:     w.BalanceRAN + delta,
				TotalEarnedRAN: w.TotalEarnedRAN + earned,
				TotalSpentRAN:  w.TotalSpentRAN + spent,
			},
		}
		return nil
	})

	if err != nil {
		// A concurrent writer inserted the same key first. Outside a caller
		// transaction the committed row can be read back.
		if appErr, ok := errors.IsAppError(err); ok && appErr.Code == errors.ErrCodeDuplicateCredit && !nested {
			return s.replayByKey(ctx, req.IdempotencyKey)
		}
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("wallet mutation failed",
			"phone", req.Phone,
			"idempotency_key", req.IdempotencyKey,
			"error", err)
		return nil, errors.NewInternalError("Failed to update wallet", err)
	}

	if res.AlreadyApplied {
		s.logger.Info("wallet mutation already applied",
			"phone", req.Phone,
			"idempotency_key", req.IdempotencyKey)
		return res, nil
	}

	s.logger.Info("wallet updated",
		"phone", req.Phone,
		"type", req.Type,
		"amount", delta,
		"balance_after", res.Entry.BalanceAfter,
		"idempotency_key", req.IdempotencyKey)

	if !nested {
		s.PublishCredited(ctx, res)
	}
	return res, nil
}

func (s *Service) replay(ctx context.Context, entry *walletDatamodel.LedgerEntry) (*Result, error) {
	w, err := s.repo.GetWallet(ctx, entry.UserPhone)
	if err != nil {
		return nil, err
	}
	res := &Result{Entry: entry, AlreadyApplied: true}
	if w != nil {
		res.Balance = BalanceFromDataModel(w)
	}
	return res, nil
}

func (s *Service) replayByKey(ctx context.Context, key string) (*Result, error) {
	entry, err := s.repo.GetEntryByKey(ctx, key)
	if err != nil {
		return nil, errors.NewInternalError("Failed to read ledger", err)
	}
	if entry == nil {
		return nil, errors.NewConflictError("Credit already applied", errors.ErrCodeDuplicateCredit)
	}
	res, err := s.replay(ctx, entry)
	if err != nil {
		return nil, errors.NewInternalError("Failed to read wallet", err)
	}
	return res, nil
}

// PublishCredited emits wallet.credited for a fresh ledger row. Callers that
// wrap Credit in their own transaction call it after commit.
func (s *Service) PublishCredited(ctx context.Context, res *Result) {
	if s.publisher == nil || res == nil || res.AlreadyApplied {
		return
	}
	e := res.Entry
	if err := s.publisher.Publish(ctx, events.NewWalletCreditedEvent(e.UserPhone, e.AmountRAN, e.BalanceAfter, e.TransactionType, e.IdempotencyKey)); err != nil {
		s.logger.Warn("failed to publish wallet event", "phone", e.UserPhone, "error", err)
	}
}

// Status returns the wallet, creating an empty one for unknown phones, with
// the latest ledger rows and the pending purchases.
func (s *Service) Status(ctx context.Context, phone string) (*Status, error) {
	if appErr := validation.ValidatePhone("phone", phone); appErr != nil {
		return nil, appErr
	}

	if err := s.repo.EnsureWallet(ctx, phone); err != nil {
		s.logger.Error("failed to create wallet", "phone", phone, "error", err)
		return nil, errors.NewInternalError("Failed to create wallet", err)
	}
	w, err := s.repo.GetWallet(ctx, phone)
	if err != nil || w == nil {
		s.logger.Error("failed to load wallet", "phone", phone, "error", err)
		return nil, errors.NewInternalError("Failed to load wallet", err)
	}

	status := &Status{
		Balance:        BalanceFromDataModel(w),
		Transactions:   []*walletDatamodel.LedgerEntry{},
		PendingIntents: []PendingIntent{},
	}

	// ledger and intent lookups degrade to empty lists
	entries, err := s.repo.RecentEntries(ctx, phone, recentEntriesLimit)
	if err != nil {
		s.logger.Error("failed to load transactions", "phone", phone, "error", err)
	} else {
		status.Transactions = entries
	}

	if s.intents != nil {
		pending, err := s.intents.PendingIntents(ctx, phone)
		if err != nil {
			s.logger.Error("failed to load pending intents", "phone", phone, "error", err)
		} else if pending != nil {
			status.PendingIntents = pending
		}
	}

	return status, nil
}

func (s *Service) Balance(ctx context.Context, phone string) (Balance, error) {
	w, err := s.repo.GetWallet(ctx, phone)
	if err != nil {
		return Balance{}, errors.NewInternalError("Failed to load wallet", err)
	}
	if w == nil {
		return Balance{Phone: phone}, nil
	}
	return BalanceFromDataModel(w), nil
}

// LedgerPeriod selects ledger rows for export. Zero Month and Year select
// everything, an empty Phone selects every wallet.
type LedgerPeriod struct {
	Phone string
	Month int
	Year  int
}

func (p LedgerPeriod) bounds() (time.Time, time.Time, error) {
	if p.Month == 0 && p.Year == 0 {
		return time.Time{}, time.Time{}, nil
	}
	if p.Month < 1 || p.Month > 12 || p.Year < 2000 {
		return time.Time{}, time.Time{}, errors.NewValidationError(
			fmt.Sprintf("invalid period %d/%d", p.Month, p.Year), errors.ErrCodeValidationFailed)
	}
	from := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

func (s *Service) Ledger(ctx context.Context, period LedgerPeriod) ([]*walletDatamodel.LedgerEntry, error) {
	if period.Phone != "" {
		if appErr := validation.ValidatePhone("phone", period.Phone); appErr != nil {
			return nil, appErr
		}
	}
	from, to, err := period.bounds()
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.EntriesBetween(ctx, period.Phone, from, to)
	if err != nil {
		s.logger.Error("failed to load ledger", "phone", period.Phone, "error", err)
		return nil, errors.NewInternalError("Failed to load ledger", err)
	}
	return entries, nil
}
