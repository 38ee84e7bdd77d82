package voucher

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"

	ChannelBankTransfer = "bank_transfer"
)

type VoucherProduct struct {
	ID             string    `gorm:"column:id;primaryKey;size:36"`
	Name           string    `gorm:"column:name;not null"`
	Description    string    `gorm:"column:description"`
	ImageURL       string    `gorm:"column:image_url"`
	SellPriceVND   int64     `gorm:"column:sell_price_vnd;not null"`
	RewardRAN      int64     `gorm:"column:reward_ran;not null"`
	PaymentChannel string    `gorm:"column:payment_channel;default:bank_transfer"`
	Status         string    `gorm:"column:status;default:active;index"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (VoucherProduct) TableName() string {
	return "voucher_products"
}

func (v *VoucherProduct) BeforeCreate(_ *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
