package voucher

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	voucherDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/voucher"
)

type RepositoryAPI interface {
	ListActive(ctx context.Context) ([]*voucherDatamodel.VoucherProduct, error)
	GetByID(ctx context.Context, id string) (*voucherDatamodel.VoucherProduct, error)
	GetByName(ctx context.Context, name string) (*voucherDatamodel.VoucherProduct, error)
	Create(ctx context.Context, v *voucherDatamodel.VoucherProduct) error
	Update(ctx context.Context, v *voucherDatamodel.VoucherProduct) error
	DeleteAll(ctx context.Context) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) ListActive(ctx context.Context) ([]*Voucher, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list vouchers", "error", err)
		return nil, errors.NewInternalError("Failed to load vouchers", err)
	}

	vouchers := make([]*Voucher, 0, len(rows))
	for _, row := range rows {
		vouchers = append(vouchers, FromDataModel(row))
	}
	return vouchers, nil
}

// GetActive returns ErrVoucherNotFound for unknown and inactive vouchers
// alike.
func (s *Service) GetActive(ctx context.Context, id string) (*Voucher, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load voucher", "voucher_id", id, "error", err)
		return nil, errors.NewInternalError("Failed to load voucher", err)
	}
	if row == nil {
		return nil, errors.ErrVoucherNotFound
	}

	v := FromDataModel(row)
	if !v.IsActive() {
		return nil, errors.ErrVoucherNotFound
	}
	return v, nil
}

// Get loads a voucher regardless of status, for rendering existing intents.
func (s *Service) Get(ctx context.Context, id string) (*Voucher, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load voucher", err)
	}
	if row == nil {
		return nil, errors.ErrVoucherNotFound
	}
	return FromDataModel(row), nil
}

// Seed inserts catalog entries by name and refreshes price and reward of
// the ones that already exist.
func (s *Service) Seed(ctx context.Context, vouchers []*Voucher, clear bool) (created, updated int, err error) {
	if clear {
		if err := s.repo.DeleteAll(ctx); err != nil {
			return 0, 0, err
		}
		s.logger.Info("voucher catalog cleared")
	}

	for _, v := range vouchers {
		existing, err := s.repo.GetByName(ctx, v.Name)
		if err != nil {
			return created, updated, err
		}

		if existing == nil {
			row := ToDataModel(v)
			if err := s.repo.Create(ctx, row); err != nil {
				return created, updated, err
			}
			v.ID = row.ID
			created++
			continue
		}

		existing.Description = v.Description
		existing.SellPriceVND = v.SellPriceVND
		existing.RewardRAN = v.RewardRAN
		existing.Status = v.Status
		if err := s.repo.Update(ctx, existing); err != nil {
			return created, updated, err
		}
		v.ID = existing.ID
		updated++
	}

	s.logger.Info("voucher catalog seeded", "created", created, "updated", updated)
	return created, updated, nil
}

// DefaultCatalog is the catalog installed by the seed command.
func DefaultCatalog() []*Voucher {
	return []*Voucher{
		NewVoucher("VIP 799k", "Voucher VIP đặc biệt với nhiều ưu đãi hấp dẫn", 799000, 1000000),
		NewVoucher("Member 399k", "Gói thành viên nạp RAN Token", 399000, 450000),
		NewVoucher("Starter 199k", "Gói khởi đầu nạp RAN Token", 199000, 210000),
	}
}
