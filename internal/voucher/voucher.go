package voucher

import (
	"time"

	voucherDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/voucher"
)

type Voucher struct {
	ID             string
	Name           string
	Description    string
	ImageURL       string
	SellPriceVND   int64
	RewardRAN      int64
	PaymentChannel string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (v *Voucher) IsActive() bool {
	return v.Status == voucherDatamodel.StatusActive
}

func (v *Voucher) ToResponse() VoucherResponse {
	return VoucherResponse{
		ID:             v.ID,
		Name:           v.Name,
		Description:    v.Description,
		ImageURL:       v.ImageURL,
		SellPriceVND:   v.SellPriceVND,
		RewardRAN:      v.RewardRAN,
		PaymentChannel: v.PaymentChannel,
	}
}

func NewVoucher(name, description string, sellPriceVND, rewardRAN int64) *Voucher {
	return &Voucher{
		Name:           name,
		Description:    description,
		SellPriceVND:   sellPriceVND,
		RewardRAN:      rewardRAN,
		PaymentChannel: voucherDatamodel.ChannelBankTransfer,
		Status:         voucherDatamodel.StatusActive,
	}
}

func ToDataModel(v *Voucher) *voucherDatamodel.VoucherProduct {
	return &voucherDatamodel.VoucherProduct{
		ID:             v.ID,
		Name:           v.Name,
		Description:    v.Description,
		ImageURL:       v.ImageURL,
		SellPriceVND:   v.SellPriceVND,
		RewardRAN:      v.RewardRAN,
		PaymentChannel: v.PaymentChannel,
		Status:         v.Status,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
}

func FromDataModel(v *voucherDatamodel.VoucherProduct) *Voucher {
	return &Voucher{
		ID:             v.ID,
		Name:           v.Name,
		Description:    v.Description,
		ImageURL:       v.ImageURL,
		SellPriceVND:   v.SellPriceVND,
		RewardRAN:      v.RewardRAN,
		PaymentChannel: v.PaymentChannel,
		Status:         v.Status,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
}
