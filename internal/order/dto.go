package order

import "time"

type ItemRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
	Ice      string `json:"ice"`
	Sugar    string `json:"sugar"`
}

type OrderRequest struct {
	OrderID         string        `json:"orderId"`
	Type            string        `json:"type"`
	TableNumber     string        `json:"tableNumber"`
	UserName        string        `json:"userName"`
	UserPhone       string        `json:"userPhone"`
	Items           []ItemRequest `json:"items"`
	VoucherCode     string        `json:"voucherCode"`
	VoucherDiscount int64         `json:"voucherDiscount"`
	Total           int64         `json:"total"`
	PaymentMethod   string        `json:"paymentMethod"`
}

type RelayResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
	Message string `json:"message"`
}

type BillStatusResponse struct {
	OrderID     string     `json:"orderId"`
	Confirmed   bool       `json:"confirmed"`
	RANTokens   *int64     `json:"ranTokens,omitempty"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

func NewBillStatusResponse(orderID string, b *Bill, now time.Time) BillStatusResponse {
	resp := BillStatusResponse{OrderID: orderID, Timestamp: now}
	if b.Credited() {
		resp.Confirmed = true
		resp.RANTokens = b.RANTokens
		resp.ConfirmedAt = b.ConfirmedAt
		resp.ProcessedAt = b.ProcessedAt
	}
	return resp
}
