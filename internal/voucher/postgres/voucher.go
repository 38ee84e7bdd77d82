package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/ran-loyalty/internal/core/database"
	voucherDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/voucher"
	"github.com/frahmantamala/ran-loyalty/internal/voucher"
)

type VoucherRepository struct {
	db *gorm.DB
}

func NewVoucherRepository(db *gorm.DB) voucher.RepositoryAPI {
	return &VoucherRepository{db: db}
}

func (r *VoucherRepository) ListActive(ctx context.Context) ([]*voucherDatamodel.VoucherProduct, error) {
	var rows []*voucherDatamodel.VoucherProduct
	err := database.Conn(ctx, r.db).
		Where("status = ?", voucherDatamodel.StatusActive).
		Order("sell_price_vnd ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	return rows, nil
}

func (r *VoucherRepository) GetByID(ctx context.Context, id string) (*voucherDatamodel.VoucherProduct, error) {
	var row voucherDatamodel.VoucherProduct
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher %s: %w", id, err)
	}
	return &row, nil
}

func (r *VoucherRepository) GetByName(ctx context.Context, name string) (*voucherDatamodel.VoucherProduct, error) {
	var row voucherDatamodel.VoucherProduct
	err := database.Conn(ctx, r.db).Where("name = ?", name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher by name: %w", err)
	}
	return &row, nil
}

func (r *VoucherRepository) Create(ctx context.Context, v *voucherDatamodel.VoucherProduct) error {
	return database.Conn(ctx, r.db).Create(v).Error
}

func (r *VoucherRepository) Update(ctx context.Context, v *voucherDatamodel.VoucherProduct) error {
	return database.Conn(ctx, r.db).Save(v).Error
}

func (r *VoucherRepository) DeleteAll(ctx context.Context) error {
	return database.Conn(ctx, r.db).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&voucherDatamodel.VoucherProduct{}).Error
}
