package order_test

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/core/database/testdb"
	"github.com/frahmantamala/ran-loyalty/internal/order"
	orderPostgres "github.com/frahmantamala/ran-loyalty/internal/order/postgres"
	"github.com/frahmantamala/ran-loyalty/internal/telegram"
)

func sampleOrder() order.OrderRequest {
	return order.OrderRequest{
		TableNumber: "12",
		UserName:    "Minh <VIP>",
		UserPhone:   phone,
		Items: []order.ItemRequest{
			{Name: "Cà phê muối", Price: 45000, Quantity: 2, Ice: "Ít", Sugar: "Vừa"},
		},
		VoucherCode:     "RAN10",
		VoucherDiscount: 9000,
		Total:           81000,
		PaymentMethod:   "cash",
	}
}

var _ = Describe("Order Service", func() {
	var (
		ctx     context.Context
		sender  *capturingSender
		bills   order.BillRepositoryAPI
		service *order.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, err := testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		sender = &capturingSender{}
		bills = orderPostgres.NewBillRepository(db)
		service = order.NewService(sender, bills, orderChatID, "RAN 40 Ngô Quyền", quiet)
	})

	Describe("RelayOrder", func() {
		It("should send a new order as HTML with a generated id", func() {
			orderID, err := service.RelayOrder(ctx, sampleOrder())
			Expect(err).NotTo(HaveOccurred())
			Expect(orderID).To(MatchRegexp(`^ORD-\d{13}$`))

			Expect(sender.messages).To(HaveLen(1))
			msg := sender.messages[0]
			Expect(msg.ChatID).To(Equal(orderChatID))
			Expect(msg.ParseMode).To(Equal(telegram.ParseModeHTML))
			Expect(msg.Text).To(ContainSubstring("ĐƠN HÀNG MỚI"))
			Expect(msg.Text).To(ContainSubstring("Minh &lt;VIP&gt;"))
			Expect(msg.Text).To(ContainSubstring("SL: 2 x 45.000đ"))
			Expect(msg.Text).To(ContainSubstring("Thành tiền: 90.000đ"))
			Expect(msg.Text).To(ContainSubstring("RAN10 (-9.000đ)"))
			Expect(msg.Text).To(ContainSubstring("Tiền mặt"))
		})

		It("should send a cancellation for change_of_mind", func() {
			req := sampleOrder()
			req.OrderID = "ORD-1"
			req.Type = order.TypeChangeOfMind
			req.Items = nil

			orderID, err := service.RelayOrder(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(orderID).To(Equal("ORD-1"))
			Expect(sender.messages[0].Text).To(ContainSubstring("KHÁCH ĐỔI Ý"))
		})

		It("should reject orders without items", func() {
			req := sampleOrder()
			req.Items = nil
			_, err := service.RelayOrder(ctx, req)
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
			Expect(sender.messages).To(BeEmpty())
		})

		It("should reject order ids that do not fit a callback", func() {
			for _, id := range []string{strings.Repeat("A", 40), "ORD:1"} {
				req := sampleOrder()
				req.OrderID = id
				_, err := service.RelayOrder(ctx, req)
				appErr, ok := errors.IsAppError(err)
				Expect(ok).To(BeTrue(), id)
				Expect(appErr.StatusCode).To(Equal(400), id)
			}
			Expect(sender.messages).To(BeEmpty())
		})

		It("should surface send failures as 500", func() {
			sender.fail = true
			_, err := service.RelayOrder(ctx, sampleOrder())
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(500))
			Expect(appErr.Code).To(Equal(errors.ErrCodeNotificationFailed))
		})
	})

	Describe("RelayBill", func() {
		It("should send the photo with a confirm_bill button", func() {
			err := service.RelayBill(ctx, order.BillUpload{
				OrderID:   "ORD-7",
				UserName:  "Minh",
				UserPhone: phone,
				Total:     81000,
				FileName:  "bill.jpg",
				Photo:     []byte{0xff, 0xd8, 0xff},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(sender.photos).To(HaveLen(1))
			photo := sender.photos[0]
			Expect(photo.Caption).To(ContainSubstring("ORD-7"))
			Expect(photo.ReplyMarkup.InlineKeyboard[0][0].CallbackData).To(Equal("confirm_bill:ORD-7:" + phone))
		})

		It("should keep the confirm_bill callback within 64 bytes", func() {
			longest := strings.Repeat("A", 39)
			err := service.RelayBill(ctx, order.BillUpload{
				OrderID:   longest,
				UserName:  "Minh",
				UserPhone: "09000000001",
				Photo:     []byte{0xff, 0xd8, 0xff},
			})
			Expect(err).NotTo(HaveOccurred())
			data := sender.photos[0].ReplyMarkup.InlineKeyboard[0][0].CallbackData
			Expect(len(data)).To(BeNumerically("<=", 64))

			cb, err := telegram.ParseCallback(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(cb.Ref).To(Equal(longest))
		})

		It("should reject order ids that break the callback", func() {
			for _, id := range []string{strings.Repeat("A", 40), "ORD:7", "ORD 7"} {
				err := service.RelayBill(ctx, order.BillUpload{
					OrderID:   id,
					UserName:  "Minh",
					UserPhone: phone,
					Photo:     []byte{0xff, 0xd8, 0xff},
				})
				appErr, ok := errors.IsAppError(err)
				Expect(ok).To(BeTrue(), id)
				Expect(appErr.StatusCode).To(Equal(400), id)
			}
			Expect(sender.photos).To(BeEmpty())
		})

		It("should require a photo", func() {
			err := service.RelayBill(ctx, order.BillUpload{OrderID: "ORD-7", UserName: "Minh", UserPhone: phone})
			Expect(err).To(HaveOccurred())
			Expect(sender.photos).To(BeEmpty())
		})
	})

	Describe("BillStatus", func() {
		It("should report only credited bills", func() {
			b, err := service.BillStatus(ctx, "ORD-9")
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Credited()).To(BeFalse())

			at := time.Now().UTC()
			Expect(bills.Confirm(ctx, "ORD-9", phone, "staff", at)).To(Succeed())
			b, err = service.BillStatus(ctx, "ORD-9")
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Credited()).To(BeFalse())

			Expect(bills.RecordTokens(ctx, "ORD-9", phone, 50000, at)).To(Succeed())
			b, err = service.BillStatus(ctx, "ORD-9")
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Credited()).To(BeTrue())
			Expect(*b.RANTokens).To(Equal(int64(50000)))
			Expect(b.ConfirmedBy).To(Equal("staff"))
		})
	})
})

var _ = Describe("Bill Repository", func() {
	It("should keep one row per order and phone", func() {
		ctx := context.Background()
		db, err := testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		bills := orderPostgres.NewBillRepository(db)

		at := time.Now().UTC()
		Expect(bills.Confirm(ctx, "ORD-1", phone, "alice", at)).To(Succeed())
		Expect(bills.Confirm(ctx, "ORD-1", phone, "bob", at.Add(time.Minute))).To(Succeed())

		b, err := bills.Get(ctx, "ORD-1", phone)
		Expect(err).NotTo(HaveOccurred())
		Expect(b.ConfirmedBy).To(Equal("bob"))

		var count int64
		Expect(db.Table("bill_confirmations").Count(&count).Error).To(Succeed())
		Expect(count).To(Equal(int64(1)))

		missing, err := bills.Get(ctx, "ORD-2", phone)
		Expect(err).NotTo(HaveOccurred())
		Expect(missing).To(BeNil())
	})
})
