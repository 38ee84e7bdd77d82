package adminbot_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	paymentDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/payment"
	walletDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
	"github.com/frahmantamala/ran-loyalty/internal/payment"
	"github.com/frahmantamala/ran-loyalty/internal/telegram"
)

var _ = Describe("Bot", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture()
	})

	Describe("pay button", func() {
		It("should settle the intent through the shared credit", func() {
			intent := f.purchaseVIP()

			err := f.bot.HandleUpdate(f.ctx, callback(telegram.PayCallback(intent.ShortID(), phone, 799000)))
			Expect(err).NotTo(HaveOccurred())

			Expect(f.sender.lastAnswer()).To(Equal(telegram.AnswerPayConfirmed))
			msg := f.sender.lastMessage()
			Expect(msg.ChatID).To(Equal("-4882156924"))
			Expect(msg.ReplyToMessageID).To(Equal(int64(55)))
			Expect(msg.Text).To(ContainSubstring("1.000.000"))

			Expect(f.balance()).To(Equal(int64(1000000)))
			rows := f.ledger()
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].IdempotencyKey).To(Equal("intent:" + intent.ID))
		})

		It("should credit once when the bank webhook already paid", func() {
			intent := f.purchaseVIP()
			res, err := f.reconciler.ProcessBankTransaction(f.ctx, payment.BankTransaction{
				TxnID:         "FT-BOT-1",
				CreditAccount: "9090190899999",
				AmountVND:     decimal.NewFromInt(799000),
				ContentRaw:    "RAN HV " + phone,
				PaidAt:        time.Now().UTC(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(payment.OutcomeCredited))

			Expect(f.bot.HandleUpdate(f.ctx, callback(telegram.PayCallback(intent.ShortID(), phone, 799000)))).To(Succeed())
			Expect(f.sender.lastAnswer()).To(Equal(telegram.AnswerAlreadyProcessed))
			Expect(f.balance()).To(Equal(int64(1000000)))
			Expect(f.ledger()).To(HaveLen(1))
		})

		It("should answer already processed on a second press", func() {
			intent := f.purchaseVIP()
			update := callback(telegram.PayCallback(intent.ShortID(), phone, 799000))
			Expect(f.bot.HandleUpdate(f.ctx, update)).To(Succeed())
			Expect(f.bot.HandleUpdate(f.ctx, update)).To(Succeed())

			Expect(f.sender.lastAnswer()).To(Equal(telegram.AnswerAlreadyProcessed))
			Expect(f.ledger()).To(HaveLen(1))
		})

		It("should report a wrong amount into the chat", func() {
			intent := f.purchaseVIP()
			err := f.bot.HandleUpdate(f.ctx, callback(telegram.PayCallback(intent.ShortID(), phone, 1000)))
			Expect(err).To(HaveOccurred())

			Expect(f.sender.lastAnswer()).To(Equal(telegram.AnswerFailed))
			Expect(f.sender.lastMessage().Text).To(ContainSubstring("❌"))
			Expect(f.balance()).To(BeZero())

			var row paymentDatamodel.PaymentIntent
			Expect(f.db.First(&row, "id = ?", intent.ID).Error).To(Succeed())
			Expect(row.Status).To(Equal(paymentDatamodel.StatusPending))
		})
	})

	Describe("bill buttons", func() {
		It("should confirm the bill and offer the token input", func() {
			Expect(f.bot.HandleUpdate(f.ctx, callback(telegram.ConfirmBillCallback("ORD-1", phone)))).To(Succeed())

			Expect(f.sender.lastAnswer()).To(Equal(telegram.AnswerBillConfirmed))
			msg := f.sender.lastMessage()
			Expect(msg.ReplyMarkup.InlineKeyboard[0][0].CallbackData).To(Equal("input_token:ORD-1:" + phone))

			b, err := f.bills.Get(f.ctx, "ORD-1", phone)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Confirmed).To(BeTrue())
			Expect(b.ConfirmedBy).To(Equal("lan_staff"))
		})

		It("should explain the /addtoken command", func() {
			Expect(f.bot.HandleUpdate(f.ctx, callback(telegram.InputTokenCallback("ORD-1", phone)))).To(Succeed())
			Expect(f.sender.lastAnswer()).To(Equal(telegram.AnswerInputToken))
			Expect(f.sender.lastMessage().Text).To(ContainSubstring("/addtoken ORD-1 " + phone))
		})

		It("should answer unknown callbacks", func() {
			Expect(f.bot.HandleUpdate(f.ctx, callback("dance:1"))).NotTo(Succeed())
			Expect(f.sender.lastAnswer()).To(Equal(telegram.AnswerUnknownAction))
		})
	})

	Describe("/addtoken", func() {
		It("should credit the bill reward once per order", func() {
			Expect(f.bot.HandleUpdate(f.ctx, command("/addtoken ORD-2 "+phone+" 50000"))).To(Succeed())
			Expect(f.sender.lastMessage().Text).To(ContainSubstring("Đã cộng RAN Token thành công"))

			Expect(f.bot.HandleUpdate(f.ctx, command("/addtoken ORD-2 "+phone+" 50000"))).To(Succeed())
			Expect(f.sender.lastMessage().Text).To(Equal(telegram.TokenAlreadyAddedMessage("ORD-2", phone)))

			rows := f.ledger()
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].TransactionType).To(Equal(walletDatamodel.TypeBillReward))
			Expect(rows[0].IdempotencyKey).To(Equal("bill:ORD-2:" + phone))
			Expect(f.balance()).To(Equal(int64(50000)))

			b, err := f.bills.Get(f.ctx, "ORD-2", phone)
			Expect(err).NotTo(HaveOccurred())
			Expect(*b.RANTokens).To(Equal(int64(50000)))
			Expect(b.ProcessedAt).NotTo(BeNil())
		})

		It("should reply with usage help for malformed commands", func() {
			Expect(f.bot.HandleUpdate(f.ctx, command("/addtoken ORD-3"))).To(Succeed())
			Expect(f.sender.lastMessage().Text).To(Equal(telegram.ReplyAddTokenUsage))

			Expect(f.bot.HandleUpdate(f.ctx, command("/addtoken ORD-3 "+phone+" -5"))).To(Succeed())
			Expect(f.sender.lastMessage().Text).To(Equal(telegram.ReplyInvalidTokenAmount))
			Expect(f.ledger()).To(BeEmpty())
		})

		It("should ignore ordinary chat messages", func() {
			Expect(f.bot.HandleUpdate(f.ctx, command("hello"))).To(Succeed())
			Expect(f.sender.messages).To(BeEmpty())
		})
	})

	Describe("chat allowlist", func() {
		It("should ignore /addtoken from another chat", func() {
			update := command("/addtoken ORD-9 0900000000 1000000")
			update.Message.Chat.ID = 777
			Expect(f.bot.HandleUpdate(f.ctx, update)).To(Succeed())

			Expect(f.sender.messages).To(BeEmpty())
			Expect(f.ledger()).To(BeEmpty())
		})

		It("should ignore pay buttons pressed outside the admin chat", func() {
			intent := f.purchaseVIP()
			update := callback(telegram.PayCallback(intent.ShortID(), phone, 799000))
			update.CallbackQuery.Message.Chat.ID = 777
			Expect(f.bot.HandleUpdate(f.ctx, update)).To(Succeed())

			Expect(f.sender.answers).To(BeEmpty())
			Expect(f.balance()).To(BeZero())
		})

		It("should ignore callbacks without a message", func() {
			update := callback(telegram.ConfirmBillCallback("ORD-1", phone))
			update.CallbackQuery.Message = nil
			Expect(f.bot.HandleUpdate(f.ctx, update)).To(Succeed())
			Expect(f.sender.answers).To(BeEmpty())
		})
	})
})
