package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/ran-loyalty/internal/core/database"
	memberDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/member"
	"github.com/frahmantamala/ran-loyalty/internal/member"
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) member.RepositoryAPI {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Get(ctx context.Context, phone string) (*member.Member, error) {
	var row memberDatamodel.Member
	err := database.Conn(ctx, r.db).Where("phone = ?", phone).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return member.FromDataModel(&row), nil
}

// Create passes gorm.ErrDuplicatedKey through unwrapped when the phone is
// already registered.
func (r *MemberRepository) Create(ctx context.Context, m *member.Member) error {
	row := member.ToDataModel(m)
	if err := database.Conn(ctx, r.db).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		return fmt.Errorf("create member: %w", err)
	}
	m.CreatedAt = row.CreatedAt
	return nil
}

func (r *MemberRepository) TouchLogin(ctx context.Context, phone string, at time.Time) error {
	err := database.Conn(ctx, r.db).
		Model(&memberDatamodel.Member{}).
		Where("phone = ?", phone).
		Update("last_login_at", at).Error
	if err != nil {
		return fmt.Errorf("touch member login: %w", err)
	}
	return nil
}
