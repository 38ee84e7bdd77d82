package wallet_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/core/database"
	"github.com/frahmantamala/ran-loyalty/internal/core/database/testdb"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
	"github.com/frahmantamala/ran-loyalty/internal/wallet"
	walletPostgres "github.com/frahmantamala/ran-loyalty/internal/wallet/postgres"
)

var _ = Describe("Wallet Handler", func() {
	var (
		service *wallet.Service
		handler *wallet.Handler
	)

	BeforeEach(func() {
		db, err := testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		pending := wallet.PendingIntent{ID: "intent-1", UserPhone: phone, ExpectedAmountVND: 799000, Status: "pending"}
		pending.VoucherProducts.Name = "VIP 799k"
		pending.VoucherProducts.RewardRAN = 1000000

		service = wallet.NewService(
			walletPostgres.NewWalletRepository(db),
			database.NewTransactor(db),
			&recordingPublisher{},
			stubIntents{pending: []wallet.PendingIntent{pending}},
			slogger,
		)
		handler = wallet.NewHandler(transport.NewBaseHandler(slogger), service)
	})

	post := func(h http.HandlerFunc, body string, ctx context.Context) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)).WithContext(ctx)
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec
	}

	Describe("GetStatus", func() {
		It("should require a phone", func() {
			rec := httptest.NewRecorder()
			handler.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/wallet-status", nil))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should return balances, transactions and pending intents", func() {
			_, err := service.Credit(context.Background(), creditReq("welcome:"+phone, 500))
			Expect(err).NotTo(HaveOccurred())

			rec := httptest.NewRecorder()
			handler.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/wallet-status?phone="+phone, nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body map[string]interface{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body["success"]).To(BeTrue())
			Expect(body["wallet"]).To(HaveKeyWithValue("balance_ran", BeNumerically("==", 500)))
			Expect(body["transactions"]).To(HaveLen(1))

			pending := body["pendingIntents"].([]interface{})
			Expect(pending).To(HaveLen(1))
			Expect(pending[0]).To(HaveKeyWithValue("voucher_products", HaveKeyWithValue("name", "VIP 799k")))
		})

		It("should fall back to the session phone", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet-status", nil)
			req = req.WithContext(errors.ContextWithPhone(req.Context(), phone))
			rec := httptest.NewRecorder()
			handler.GetStatus(rec, req)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("Spend", func() {
		It("should require a session", func() {
			rec := post(handler.Spend, `{"amount":10,"reference":"R1"}`, context.Background())
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should answer 409 when the balance is short", func() {
			ctx := errors.ContextWithPhone(context.Background(), phone)
			rec := post(handler.Spend, `{"amount":10,"reference":"R1"}`, ctx)
			Expect(rec.Code).To(Equal(http.StatusConflict))

			var body map[string]map[string]interface{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body["error"]["code"]).To(Equal(string(errors.ErrCodeInsufficientBalance)))
		})

		It("should debit once per reference", func() {
			_, err := service.Credit(context.Background(), creditReq("welcome:"+phone, 500))
			Expect(err).NotTo(HaveOccurred())

			ctx := errors.ContextWithPhone(context.Background(), phone)
			for i := 0; i < 2; i++ {
				rec := post(handler.Spend, `{"amount":100,"reference":"R1"}`, ctx)
				Expect(rec.Code).To(Equal(http.StatusOK))
			}

			balance, err := service.Balance(context.Background(), phone)
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.BalanceRAN).To(Equal(int64(400)))
		})
	})

	Describe("AdminCredit", func() {
		It("should validate the body", func() {
			rec := post(handler.AdminCredit, `{"userPhone":"12","amount":0}`, context.Background())
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject malformed json", func() {
			rec := post(handler.AdminCredit, `{`, context.Background())
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should credit once per reference", func() {
			body := `{"userPhone":"` + phone + `","amount":250,"reference":"promo-1"}`
			rec := post(handler.AdminCredit, body, context.Background())
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = post(handler.AdminCredit, body, context.Background())
			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp wallet.MutationResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.AlreadyApplied).To(BeTrue())
			Expect(resp.Wallet.BalanceRAN).To(Equal(int64(250)))
			Expect(resp.Entry.TransactionType).To(Equal("MANUAL_ADJUST"))
		})
	})

	Describe("ExportLedger", func() {
		It("should stream an xlsx workbook with one row per entry", func() {
			_, err := service.Credit(context.Background(), creditReq("welcome:"+phone, 500))
			Expect(err).NotTo(HaveOccurred())

			rec := httptest.NewRecorder()
			handler.ExportLedger(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/ledger/export?phone="+phone, nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring(".xlsx"))

			f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			rows, err := f.GetRows("RAN Ledger")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[1][3]).To(Equal(phone))
			Expect(rows[1][7]).To(Equal("500"))
		})

		It("should reject a non numeric month", func() {
			rec := httptest.NewRecorder()
			handler.ExportLedger(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/ledger/export?month=x&year=2025", nil))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
