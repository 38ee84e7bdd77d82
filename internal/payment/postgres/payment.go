package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/ran-loyalty/internal/core/database"
	"github.com/frahmantamala/ran-loyalty/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/ran-loyalty/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) CreateIntent(ctx context.Context, p *payment.PaymentIntent) error {
	if err := database.Conn(ctx, r.db).Create(p).Error; err != nil {
		return fmt.Errorf("create payment intent: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetIntent(ctx context.Context, id string) (*payment.PaymentIntent, error) {
	var p payment.PaymentIntent
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment intent: %w", err)
	}
	return &p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *PaymentRepository) FindIntentsByShortID(ctx context.Context, shortID, phone string) ([]*payment.PaymentIntent, error) {
	var intents []*payment.PaymentIntent
	err := database.Conn(ctx, r.db).
		Where(`id LIKE ? ESCAPE '\' AND user_phone = ?`, likeEscaper.Replace(shortID)+"%", phone).
		Order("created_at DESC").
		Find(&intents).Error
	if err != nil {
		return nil, fmt.Errorf("find intents by short id: %w", err)
	}
	return intents, nil
}

// FindMatchingIntents returns pending, unexpired intents of phone for the
// exact amount, newest first.
func (r *PaymentRepository) FindMatchingIntents(ctx context.Context, phone string, amountVND int64, now time.Time) ([]*payment.PaymentIntent, error) {
	var intents []*payment.PaymentIntent
	err := database.Conn(ctx, r.db).
		Where("user_phone = ? AND expected_amount_vnd = ? AND status = ? AND expires_at >= ?",
			phone, amountVND, payment.StatusPending, now).
		Order("created_at DESC").
		Find(&intents).Error
	if err != nil {
		return nil, fmt.Errorf("find matching intents: %w", err)
	}
	return intents, nil
}

// MarkIntentPaid moves the intent to paid only from one of the given
// statuses and reports whether this call made the transition.
func (r *PaymentRepository) MarkIntentPaid(ctx context.Context, id string, from ...string) (bool, error) {
	res := database.Conn(ctx, r.db).
		Model(&payment.PaymentIntent{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", payment.StatusPaid)
	if res.Error != nil {
		return false, fmt.Errorf("mark intent paid: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *PaymentRepository) ListPendingWithVoucher(ctx context.Context, phone string, now time.Time) ([]paymentpkg.PendingIntentRow, error) {
	var rows []paymentpkg.PendingIntentRow
	err := database.Conn(ctx, r.db).
		Table("payment_intents AS pi").
		Select("pi.*, vp.name AS voucher_name, vp.reward_ran AS reward_ran").
		Joins("LEFT JOIN voucher_products vp ON vp.id = pi.voucher_product_id").
		Where("pi.user_phone = ? AND pi.status = ? AND pi.expires_at >= ?", phone, payment.StatusPending, now).
		Order("pi.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list pending intents: %w", err)
	}
	return rows, nil
}

func (r *PaymentRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res := database.Conn(ctx, r.db).
		Model(&payment.PaymentIntent{}).
		Where("status = ? AND expires_at < ?", payment.StatusPending, now).
		Update("status", payment.StatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("expire intents: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *PaymentRepository) GetBankTransactionByTxnID(ctx context.Context, txnID string) (*payment.BankTransaction, error) {
	var t payment.BankTransaction
	err := database.Conn(ctx, r.db).Where("txn_id = ?", txnID).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bank transaction: %w", err)
	}
	return &t, nil
}

// CreateBankTransaction returns gorm.ErrDuplicatedKey for a known txn_id.
func (r *PaymentRepository) CreateBankTransaction(ctx context.Context, t *payment.BankTransaction) error {
	err := database.Conn(ctx, r.db).Create(t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		return fmt.Errorf("create bank transaction: %w", err)
	}
	return nil
}

func (r *PaymentRepository) SetBankTransactionPhone(ctx context.Context, id, phone string) error {
	err := database.Conn(ctx, r.db).
		Model(&payment.BankTransaction{}).
		Where("id = ?", id).
		Update("matched_user_phone", phone).Error
	if err != nil {
		return fmt.Errorf("set bank transaction phone: %w", err)
	}
	return nil
}

func (r *PaymentRepository) MarkBankTransactionMatched(ctx context.Context, id, phone, intentID string, at time.Time) error {
	res := database.Conn(ctx, r.db).
		Model(&payment.BankTransaction{}).
		Where("id = ? AND matched_intent_id IS NULL", id).
		Updates(map[string]interface{}{
			"matched_user_phone": phone,
			"matched_intent_id":  intentID,
			"processed_at":       at,
		})
	if res.Error != nil {
		return fmt.Errorf("mark bank transaction matched: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("bank transaction %s already matched", id)
	}
	return nil
}
