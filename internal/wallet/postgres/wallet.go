package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/ran-loyalty/internal/core/database"
	walletDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
	"github.com/frahmantamala/ran-loyalty/internal/wallet"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) wallet.RepositoryAPI {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetWallet(ctx context.Context, phone string) (*walletDatamodel.Wallet, error) {
	var w walletDatamodel.Wallet
	err := database.Conn(ctx, r.db).Where("user_phone = ?", phone).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &w, nil
}

func (r *WalletRepository) EnsureWallet(ctx context.Context, phone string) error {
	err := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_phone"}}, DoNothing: true}).
		Create(&walletDatamodel.Wallet{UserPhone: phone}).Error
	if err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}
	return nil
}

// LockWallet reads the wallet row with FOR UPDATE. Without a surrounding
// transaction the lock is released immediately.
func (r *WalletRepository) LockWallet(ctx context.Context, phone string) (*walletDatamodel.Wallet, error) {
	var w walletDatamodel.Wallet
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_phone = ?", phone).
		First(&w).Error
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return &w, nil
}

func (r *WalletRepository) ApplyDelta(ctx context.Context, phone string, balanceDelta, earnedDelta, spentDelta int64) error {
	res := database.Conn(ctx, r.db).
		Model(&walletDatamodel.Wallet{}).
		Where("user_phone = ?", phone).
		Updates(map[string]interface{}{
			"balance_ran":      gorm.Expr("balance_ran + ?", balanceDelta),
			"total_earned_ran": gorm.Expr("total_earned_ran + ?", earnedDelta),
			"total_spent_ran":  gorm.Expr("total_spent_ran + ?", spentDelta),
		})
	if res.Error != nil {
		return fmt.Errorf("update wallet: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("update wallet %s: %d rows affected", phone, res.RowsAffected)
	}
	return nil
}

func (r *WalletRepository) GetEntryByKey(ctx context.Context, key string) (*walletDatamodel.LedgerEntry, error) {
	var e walletDatamodel.LedgerEntry
	err := database.Conn(ctx, r.db).Where("idempotency_key = ?", key).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return &e, nil
}

// InsertEntry returns gorm.ErrDuplicatedKey when the idempotency key is
// taken; the connection must be opened with TranslateError.
func (r *WalletRepository) InsertEntry(ctx context.Context, entry *walletDatamodel.LedgerEntry) error {
	err := database.Conn(ctx, r.db).Create(entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (r *WalletRepository) RecentEntries(ctx context.Context, phone string, limit int) ([]*walletDatamodel.LedgerEntry, error) {
	var entries []*walletDatamodel.LedgerEntry
	err := database.Conn(ctx, r.db).
		Where("user_phone = ?", phone).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("recent ledger entries: %w", err)
	}
	return entries, nil
}

func (r *WalletRepository) EntriesBetween(ctx context.Context, phone string, from, to time.Time) ([]*walletDatamodel.LedgerEntry, error) {
	query := database.Conn(ctx, r.db).Order("created_at ASC")
	if phone != "" {
		query = query.Where("user_phone = ?", phone)
	}
	if !from.IsZero() {
		query = query.Where("created_at >= ? AND created_at < ?", from, to)
	}

	var entries []*walletDatamodel.LedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("ledger entries: %w", err)
	}
	return entries, nil
}
