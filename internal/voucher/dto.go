package voucher

type VoucherResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ImageURL       string `json:"imageUrl,omitempty"`
	SellPriceVND   int64  `json:"sellPriceVnd"`
	RewardRAN      int64  `json:"rewardRan"`
	PaymentChannel string `json:"paymentChannel"`
}

type VouchersResponse struct {
	Success  bool              `json:"success"`
	Vouchers []VoucherResponse `json:"vouchers"`
}
