package payment_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	paymentDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/payment"
	"github.com/frahmantamala/ran-loyalty/internal/core/events"
	"github.com/frahmantamala/ran-loyalty/internal/payment"
)

var _ = Describe("Payment Service", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture()
	})

	Describe("CreateIntent", func() {
		It("should create a pending intent for the voucher price", func() {
			before := time.Now().UTC()
			purchase, err := f.service.CreateIntent(f.ctx, f.vip.ID, phone)
			Expect(err).NotTo(HaveOccurred())

			intent := purchase.Intent
			Expect(intent.ID).NotTo(BeEmpty())
			Expect(intent.Status).To(Equal(paymentDatamodel.StatusPending))
			Expect(intent.ExpectedAmountVND).To(Equal(int64(799000)))
			Expect(intent.PaymentContent).To(Equal("RAN HV " + phone))
			Expect(intent.ExpiresAt).To(BeTemporally("~", before.Add(payment.DefaultIntentTTL), 5*time.Second))

			created := f.publisher.Last(events.EventTypePaymentIntentCreated).(*events.PaymentIntentCreatedEvent)
			Expect(created.IntentID).To(Equal(intent.ID))
			Expect(created.ShortID).To(Equal(intent.ID[:8]))
			Expect(created.RewardRAN).To(Equal(int64(1000000)))
		})

		It("should describe the transfer in the response", func() {
			purchase, err := f.service.CreateIntent(f.ctx, f.vip.ID, phone)
			Expect(err).NotTo(HaveOccurred())

			resp := purchase.ToResponse(f.service.Options())
			Expect(resp.Success).To(BeTrue())
			Expect(resp.PaymentIntent.AccountNumber).To(Equal(creditAccount))
			Expect(resp.PaymentIntent.BankName).To(Equal("MB Bank"))
			Expect(resp.PaymentIntent.Amount).To(Equal(int64(799000)))
			Expect(resp.Voucher.Name).To(Equal("VIP 799k"))
			Expect(resp.Voucher.RewardRAN).To(Equal(int64(1000000)))
		})

		It("should require both fields", func() {
			_, err := f.service.CreateIntent(f.ctx, "", phone)
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))

			_, err = f.service.CreateIntent(f.ctx, f.vip.ID, "")
			Expect(err).To(HaveOccurred())

			_, err = f.service.CreateIntent(f.ctx, f.vip.ID, "12345")
			appErr, ok = errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
		})

		It("should refuse unknown vouchers", func() {
			_, err := f.service.CreateIntent(f.ctx, "no-such-voucher", phone)
			Expect(err).To(MatchError(errors.ErrVoucherNotFound))
		})
	})

	Describe("GetIntent", func() {
		It("should return 404 for unknown ids", func() {
			_, err := f.service.GetIntent(f.ctx, "missing")
			Expect(err).To(MatchError(errors.ErrIntentNotFound))
		})
	})

	Describe("PendingIntents", func() {
		It("should list unexpired pending intents with their voucher", func() {
			kept := f.purchaseVIP()
			lapsed := f.purchaseVIP()
			f.expire(lapsed.ID)

			pending, err := f.service.PendingIntents(f.ctx, phone)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].ID).To(Equal(kept.ID))
			Expect(pending[0].VoucherProducts.Name).To(Equal("VIP 799k"))
			Expect(pending[0].VoucherProducts.RewardRAN).To(Equal(int64(1000000)))
		})

		It("should feed the wallet status", func() {
			f.purchaseVIP()
			status, err := f.wallet.Status(f.ctx, phone)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.PendingIntents).To(HaveLen(1))
			Expect(status.Balance.BalanceRAN).To(BeZero())
		})
	})

	Describe("ExpireStale", func() {
		It("should expire only lapsed pending intents", func() {
			kept := f.purchaseVIP()
			lapsed := f.purchaseVIP()
			f.expire(lapsed.ID)

			n, err := f.service.ExpireStale(f.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
			Expect(f.intent(lapsed.ID).Status).To(Equal(paymentDatamodel.StatusExpired))
			Expect(f.intent(kept.ID).Status).To(Equal(paymentDatamodel.StatusPending))
		})
	})
})

var _ = Describe("PhoneExtractor", func() {
	extractor := payment.NewPhoneExtractor("")

	DescribeTable("Extract",
		func(content, want string, found bool) {
			got, ok := extractor.Extract(content)
			Expect(ok).To(Equal(found))
			Expect(got).To(Equal(want))
		},
		Entry("configured prefix", "RAN HV 0901234567", "0901234567", true),
		Entry("no space", "RAN HV0901234567", "0901234567", true),
		Entry("lower case", "ran hv 0901234567 chuyen khoan", "0901234567", true),
		Entry("legacy marker", "MBVCB.123.RANHN 09012345678.CT tu", "09012345678", true),
		Entry("too short", "RAN HV 090123", "", false),
		Entry("no marker", "0901234567", "", false),
		Entry("empty", "", "", false),
	)

	It("should honour a custom prefix", func() {
		custom := payment.NewPhoneExtractor("RAN.VIP")
		got, ok := custom.Extract("ran.vip 0901234567")
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal("0901234567"))

		_, ok = custom.Extract("ranXvip 0901234567")
		Expect(ok).To(BeFalse())
	})
})
