package member

import "time"

type Member struct {
	Phone       string     `gorm:"column:phone;primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Member) TableName() string {
	return "members"
}
