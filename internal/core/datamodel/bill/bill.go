package bill

import "time"

type BillConfirmation struct {
	ID          int64      `gorm:"primaryKey"`
	OrderID     string     `gorm:"column:order_id;not null;uniqueIndex:idx_bill_order_phone"`
	UserPhone   string     `gorm:"column:user_phone;not null;uniqueIndex:idx_bill_order_phone"`
	Confirmed   bool       `gorm:"column:confirmed;default:false"`
	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	ConfirmedBy string     `gorm:"column:confirmed_by"`
	RANTokens   *int64     `gorm:"column:ran_tokens"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (BillConfirmation) TableName() string {
	return "bill_confirmations"
}
