package order

import (
	"fmt"
	"time"

	billDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/bill"
	"github.com/frahmantamala/ran-loyalty/internal/telegram"
)

// TypeChangeOfMind marks an order relay as a cancellation.
const TypeChangeOfMind = "change_of_mind"

// NewOrderID is used when the client does not send an order id.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("ORD-%d", now.UnixMilli())
}

// BillUpload is a bill photo sent by a customer for staff confirmation.
type BillUpload struct {
	OrderID   string
	UserName  string
	UserPhone string
	Total     int64
	FileName  string
	Photo     []byte
}

// Bill is the staff confirmation of a bill photo and the RAN credited for it.
type Bill struct {
	OrderID     string
	UserPhone   string
	Confirmed   bool
	ConfirmedAt *time.Time
	ConfirmedBy string
	RANTokens   *int64
	ProcessedAt *time.Time
}

func BillFromDataModel(b *billDatamodel.BillConfirmation) *Bill {
	return &Bill{
		OrderID:     b.OrderID,
		UserPhone:   b.UserPhone,
		Confirmed:   b.Confirmed,
		ConfirmedAt: b.ConfirmedAt,
		ConfirmedBy: b.ConfirmedBy,
		RANTokens:   b.RANTokens,
		ProcessedAt: b.ProcessedAt,
	}
}

// Credited reports whether staff confirmed the bill and RAN was added.
func (b *Bill) Credited() bool {
	return b != nil && b.Confirmed && b.RANTokens != nil
}

func (r *OrderRequest) toMessage(at time.Time) telegram.Order {
	items := make([]telegram.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, telegram.OrderItem{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Ice:      it.Ice,
			Sugar:    it.Sugar,
		})
	}
	return telegram.Order{
		OrderID:         r.OrderID,
		TableNumber:     r.TableNumber,
		UserName:        r.UserName,
		UserPhone:       r.UserPhone,
		Items:           items,
		VoucherCode:     r.VoucherCode,
		VoucherDiscount: r.VoucherDiscount,
		Total:           r.Total,
		PaymentMethod:   r.PaymentMethod,
		At:              at,
	}
}
