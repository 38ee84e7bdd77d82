package payment_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	paymentDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/payment"
	walletDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
	"github.com/frahmantamala/ran-loyalty/internal/core/events"
	"github.com/frahmantamala/ran-loyalty/internal/payment"
)

var _ = Describe("Reconciler", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture()
	})

	Describe("ProcessBankTransaction", func() {
		Context("when the transfer matches a pending intent", func() {
			It("should mark the intent paid and credit the reward once", func() {
				intent := f.purchaseVIP()

				res, err := f.reconciler.ProcessBankTransaction(f.ctx, f.transfer("FT001", 799000, "RAN HV "+phone))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Outcome).To(Equal(payment.OutcomeCredited))
				Expect(res.UserPhone).To(Equal(phone))
				Expect(res.IntentID).To(Equal(intent.ID))
				Expect(res.VoucherName).To(Equal("VIP 799k"))
				Expect(res.RewardRAN).To(Equal(int64(1000000)))
				Expect(res.NewBalance).To(Equal(int64(1000000)))

				Expect(f.intent(intent.ID).Status).To(Equal(paymentDatamodel.StatusPaid))

				txn := f.bankTransaction("FT001")
				Expect(*txn.MatchedUserPhone).To(Equal(phone))
				Expect(*txn.MatchedIntentID).To(Equal(intent.ID))
				Expect(txn.ProcessedAt).NotTo(BeNil())

				ledger := f.ledger()
				Expect(ledger).To(HaveLen(1))
				Expect(ledger[0].AmountRAN).To(Equal(int64(1000000)))
				Expect(ledger[0].BalanceAfter).To(Equal(f.balance()))
				Expect(ledger[0].TransactionType).To(Equal(walletDatamodel.TypePurchaseCredit))
				Expect(ledger[0].IdempotencyKey).To(Equal("bank_txn:FT001"))
				Expect(ledger[0].Description).To(Equal("Voucher VIP 799k – MB " + creditAccount))
				Expect(ledger[0].ReferenceID).To(Equal(txn.ID))
				Expect(ledger[0].ReferenceType).To(Equal(walletDatamodel.ReferenceBankTransaction))

				Expect(f.publisher.Count(events.EventTypeWalletCredited)).To(Equal(1))
				Expect(f.publisher.Count(events.EventTypePaymentIntentPaid)).To(Equal(1))
				paid := f.publisher.Last(events.EventTypePaymentIntentPaid).(*events.PaymentIntentPaidEvent)
				Expect(paid.Source).To(Equal(events.PaidByBankWebhook))
			})

			It("should accept the legacy marker and any letter case", func() {
				f.purchaseVIP()
				res, err := f.reconciler.ProcessBankTransaction(f.ctx, f.transfer("FT002", 799000, "ck ranhn"+phone+" cam on"))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Outcome).To(Equal(payment.OutcomeCredited))
			})

			It("should accept a whole amount written with decimals", func() {
				f.purchaseVIP()
				in := f.transfer("FT003", 0, "RAN HV "+phone)
				in.AmountVND = decimal.RequireFromString("799000.00")

				res, err := f.reconciler.ProcessBankTransaction(f.ctx, in)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Outcome).To(Equal(payment.OutcomeCredited))
			})

			It("should settle the most recent intent when several match", func() {
				older := f.purchaseVIP()
				Expect(f.db.Model(&paymentDatamodel.PaymentIntent{}).Where("id = ?", older.ID).
					Update("created_at", time.Now().UTC().Add(-10*time.Minute)).Error).To(Succeed())
				newer := f.purchaseVIP()

				res, err := f.reconciler.ProcessBankTransaction(f.ctx, f.transfer("FT004", 799000, "RAN HV "+phone))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.IntentID).To(Equal(newer.ID))
				Expect(f.intent(older.ID).Status).To(Equal(paymentDatamodel.StatusPending))
			})
		})

		Context("when the same txn id is delivered again", func() {
			It("should not credit twice", func() {
				f.purchaseVIP()
				f.purchaseVIP()

				_, err := f.reconciler.ProcessBankTransaction(f.ctx, f.transfer("FT010", 799000, "RAN HV "+phone))
				Expect(err).NotTo(HaveOccurred())

				res, err := f.reconciler.ProcessBankTransaction(f.ctx, f.transfer("FT010", 799000, "RAN HV "+phone))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Outcome).To(Equal(payment.OutcomeDuplicate))

				Expect(f.ledger()).To(HaveLen(1))
				Expect(f.balance()).To(Equal(int64(1000000)))

				var count int64
				Expect(f.db.Model(&paymentDatamodel.BankTransaction{}).Count(&count).Error).To(Succeed())
				Expect(count).To(Equal(int64(1)))
			})

			It("should not credit twice under concurrent deliveries", func() {
				f.purchaseVIP()
				f.purchaseVIP()

				var wg sync.WaitGroup
				for i := 0; i < 5; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						defer GinkgoRecover()
						res, err := f.reconciler.ProcessBankTransaction(f.ctx, f.transfer("FT011", 799000, "RAN HV "+phone))
						Expect(err).NotTo(HaveOccurred())
						Expect(res.Outcome).To(BeElementOf(payment.OutcomeCredited, payment.OutcomeDuplicate))
					}()
				}
				wg.Wait()

				Expect(f.ledger()).To(HaveLen(1))
				Expect(f.balance()).To(Equal(int64(1000000)))
			})
		})

		Context("when the caller goes away", func() {
			It("should still settle the delivery", func() {
				intent := f.purchaseVIP()

				gone, cancel := context.WithCancel(f.ctx)
				cancel()

				res, err := f.reconciler.ProcessBankTransaction(gone, f.transfer("FT012", 799000, "RAN HV "+phone))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Outcome).To(Equal(payment.OutcomeCredited))
				Expect(f.intent(intent.ID).Status).To(Equal(paymentDatamodel.StatusPaid))
				Expect(f.balance()).To(Equal(int64(1000000)))
			})
		})

		Context("when the content has no phone marker", func() {
			It("should store the transfer as unmatched", func() {
				f.purchaseVIP()

				res, err := f.reconciler.ProcessBankTransaction(f.ctx, f.transfer("FT020", 799000, "chuyen tien an trua"))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Outcome).To(Equal(payment.OutcomeNoPhone))

				txn := f.bankTransaction("FT020")
				Expect(txn.MatchedUserPhone).To(BeNil())
				Expect(txn.MatchedIntentID).To(BeNil())
				Expect(f.ledger()).To(BeEmpty())

				unmatched := f.publisher.Last(events.EventTypeBankTransactionUnmatched).(*events.BankTransactionUnmatchedEvent)
				Expect(unmatched.Reason).To(Equal(payment.UnmatchedNoPhone))
			})
		})

		Context("when no intent matches", func() {
			It("should not match an expired intent", func() {
				intent := f.purchaseVIP()
				f.expire(intent.ID)

				res, err := f.reconciler.ProcessBankTransaction(f.ctx, f.transfer("FT030", 799000, "RAN HV "+phone))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Outcome).To(Equal(payment.OutcomeNoIntent))

				Expect(f.intent(intent.ID).Status).To(Equal(paymentDatamodel.StatusPending))
				Expect(*f.bankTransaction("FT030").MatchedUserPhone).To(Equal(phone))
				Expect(f.ledger()).To(BeEmpty())
			})

			It("should not match a different amount", func() {
				intent := f.purchaseVIP()

				res, err := f.reconciler.ProcessBankTransaction(f.ctx, f.transfer("FT031", 798999, "RAN HV "+phone))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Outcome).To(Equal(payment.OutcomeNoIntent))

				txn := f.bankTransaction("FT031")
				Expect(txn.AmountVND.Equal(decimal.NewFromInt(798999))).To(BeTrue())
				Expect(txn.MatchedIntentID).To(BeNil())
				Expect(f.intent(intent.ID).Status).To(Equal(paymentDatamodel.StatusPending))

				unmatched := f.publisher.Last(events.EventTypeBankTransactionUnmatched).(*events.BankTransactionUnmatchedEvent)
				Expect(unmatched.Reason).To(Equal(payment.UnmatchedNoIntent))
				Expect(unmatched.ExtractedPhone).To(Equal(phone))
			})

			It("should not match an intent of another phone", func() {
				f.purchaseVIP()
				res, err := f.reconciler.ProcessBankTransaction(f.ctx, f.transfer("FT032", 799000, "RAN HV 0987654321"))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Outcome).To(Equal(payment.OutcomeNoIntent))
			})
		})

		Context("when the request is malformed", func() {
			It("should reject a fractional amount", func() {
				in := f.transfer("FT040", 0, "RAN HV "+phone)
				in.AmountVND = decimal.RequireFromString("799000.5")

				_, err := f.reconciler.ProcessBankTransaction(f.ctx, in)
				appErr, ok := errors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.StatusCode).To(Equal(400))
			})

			It("should reject missing fields", func() {
				in := f.transfer("", 799000, "RAN HV "+phone)
				_, err := f.reconciler.ProcessBankTransaction(f.ctx, in)
				Expect(err).To(HaveOccurred())

				in = f.transfer("FT041", 799000, "RAN HV "+phone)
				in.PaidAt = time.Time{}
				_, err = f.reconciler.ProcessBankTransaction(f.ctx, in)
				Expect(err).To(HaveOccurred())

				var count int64
				Expect(f.db.Model(&paymentDatamodel.BankTransaction{}).Count(&count).Error).To(Succeed())
				Expect(count).To(BeZero())
			})
		})
	})

	Describe("ConfirmIntentByAdmin", func() {
		It("should credit the reward once", func() {
			intent := f.purchaseVIP()

			res, err := f.reconciler.ConfirmIntentByAdmin(f.ctx, intent.ShortID(), phone, 799000)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.AlreadyProcessed).To(BeFalse())
			Expect(res.IntentID).To(Equal(intent.ID))
			Expect(res.RewardRAN).To(Equal(int64(1000000)))
			Expect(res.NewBalance).To(Equal(int64(1000000)))
			Expect(f.intent(intent.ID).Status).To(Equal(paymentDatamodel.StatusPaid))

			ledger := f.ledger()
			Expect(ledger).To(HaveLen(1))
			Expect(ledger[0].IdempotencyKey).To(Equal("intent:" + intent.ID))
			Expect(ledger[0].ReferenceType).To(Equal(walletDatamodel.ReferencePaymentIntent))

			res, err = f.reconciler.ConfirmIntentByAdmin(f.ctx, intent.ShortID(), phone, 799000)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.AlreadyProcessed).To(BeTrue())
			Expect(f.ledger()).To(HaveLen(1))

			paid := f.publisher.Last(events.EventTypePaymentIntentPaid).(*events.PaymentIntentPaidEvent)
			Expect(paid.Source).To(Equal(events.PaidByAdmin))
		})

		It("should not credit again after the bank webhook settled the intent", func() {
			intent := f.purchaseVIP()
			_, err := f.reconciler.ProcessBankTransaction(f.ctx, f.transfer("FT050", 799000, "RAN HV "+phone))
			Expect(err).NotTo(HaveOccurred())

			res, err := f.reconciler.ConfirmIntentByAdmin(f.ctx, intent.ShortID(), phone, 799000)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.AlreadyProcessed).To(BeTrue())
			Expect(f.ledger()).To(HaveLen(1))
			Expect(f.balance()).To(Equal(int64(1000000)))
		})

		It("should leave a later bank transfer unmatched", func() {
			intent := f.purchaseVIP()
			_, err := f.reconciler.ConfirmIntentByAdmin(f.ctx, intent.ShortID(), phone, 799000)
			Expect(err).NotTo(HaveOccurred())

			res, err := f.reconciler.ProcessBankTransaction(f.ctx, f.transfer("FT051", 799000, "RAN HV "+phone))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(payment.OutcomeNoIntent))
			Expect(f.balance()).To(Equal(int64(1000000)))
		})

		It("should confirm an intent the sweeper expired", func() {
			intent := f.purchaseVIP()
			f.expire(intent.ID)
			_, err := f.service.ExpireStale(f.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.intent(intent.ID).Status).To(Equal(paymentDatamodel.StatusExpired))

			res, err := f.reconciler.ConfirmIntentByAdmin(f.ctx, intent.ShortID(), phone, 799000)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.AlreadyProcessed).To(BeFalse())
			Expect(f.intent(intent.ID).Status).To(Equal(paymentDatamodel.StatusPaid))
		})

		It("should reject a tampered amount", func() {
			intent := f.purchaseVIP()
			_, err := f.reconciler.ConfirmIntentByAdmin(f.ctx, intent.ShortID(), phone, 1000)
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeInvalidAmount))
			Expect(f.ledger()).To(BeEmpty())
		})

		It("should report unknown intents", func() {
			_, err := f.reconciler.ConfirmIntentByAdmin(f.ctx, "deadbeef", phone, 799000)
			Expect(err).To(MatchError(errors.ErrIntentNotFound))
		})

		It("should not treat wildcards as a short id", func() {
			f.purchaseVIP()
			for _, ref := range []string{"%", "_", "%%%%"} {
				_, err := f.reconciler.ConfirmIntentByAdmin(f.ctx, ref, phone, 799000)
				appErr, ok := errors.IsAppError(err)
				Expect(ok).To(BeTrue(), ref)
				Expect(appErr.Code).To(Equal(errors.ErrCodeValidationFailed), ref)
			}
			Expect(f.ledger()).To(BeEmpty())
			Expect(f.balance()).To(BeZero())
		})
	})
})
