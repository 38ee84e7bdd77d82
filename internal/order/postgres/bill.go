package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/ran-loyalty/internal/core/database"
	billDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/bill"
	"github.com/frahmantamala/ran-loyalty/internal/order"
)

type BillRepository struct {
	db *gorm.DB
}

func NewBillRepository(db *gorm.DB) order.BillRepositoryAPI {
	return &BillRepository{db: db}
}

func (r *BillRepository) Get(ctx context.Context, orderID, phone string) (*order.Bill, error) {
	var row billDatamodel.BillConfirmation
	err := database.Conn(ctx, r.db).
		Where("order_id = ? AND user_phone = ?", orderID, phone).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bill confirmation: %w", err)
	}
	return order.BillFromDataModel(&row), nil
}

func (r *BillRepository) LatestConfirmed(ctx context.Context, orderID string) (*order.Bill, error) {
	var row billDatamodel.BillConfirmation
	err := database.Conn(ctx, r.db).
		Where("order_id = ? AND confirmed = ?", orderID, true).
		Order("confirmed_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get confirmed bill: %w", err)
	}
	return order.BillFromDataModel(&row), nil
}

// Confirm upserts the confirmation; a repeated press refreshes who confirmed
// it and when.
func (r *BillRepository) Confirm(ctx context.Context, orderID, phone, confirmedBy string, at time.Time) error {
	row := &billDatamodel.BillConfirmation{
		OrderID:     orderID,
		UserPhone:   phone,
		Confirmed:   true,
		ConfirmedAt: &at,
		ConfirmedBy: confirmedBy,
	}
	err := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "user_phone"}},
			DoUpdates: clause.AssignmentColumns([]string{"confirmed", "confirmed_at", "confirmed_by", "updated_at"}),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("confirm bill: %w", err)
	}
	return nil
}

// RecordTokens stores the credited amount, creating the row when /addtoken
// arrives without a prior confirm_bill press.
func (r *BillRepository) RecordTokens(ctx context.Context, orderID, phone string, amount int64, at time.Time) error {
	row := &billDatamodel.BillConfirmation{
		OrderID:     orderID,
		UserPhone:   phone,
		Confirmed:   true,
		ConfirmedAt: &at,
		RANTokens:   &amount,
		ProcessedAt: &at,
	}
	err := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "user_phone"}},
			DoUpdates: clause.AssignmentColumns([]string{"confirmed", "ran_tokens", "processed_at", "updated_at"}),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("record bill tokens: %w", err)
	}
	return nil
}
