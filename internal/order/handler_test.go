package order_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/ran-loyalty/internal/core/database/testdb"
	"github.com/frahmantamala/ran-loyalty/internal/order"
	orderPostgres "github.com/frahmantamala/ran-loyalty/internal/order/postgres"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
)

var _ = Describe("Order Handler", func() {
	var (
		sender *capturingSender
		bills  order.BillRepositoryAPI
		router chi.Router
	)

	BeforeEach(func() {
		db, err := testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		sender = &capturingSender{}
		bills = orderPostgres.NewBillRepository(db)
		handler := order.NewHandler(transport.NewBaseHandler(quiet), order.NewService(sender, bills, orderChatID, "RAN", quiet))

		router = chi.NewRouter()
		router.Post("/telegram-order", handler.RelayOrder)
		router.Post("/telegram-bill", handler.RelayBill)
		router.Get("/bill-status/{orderId}", handler.GetBillStatus)
	})

	It("should relay an order", func() {
		body := `{"orderId":"ORD-42","tableNumber":"5","userName":"Minh","userPhone":"` + phone +
			`","items":[{"name":"Trà đào","price":35000,"quantity":1,"ice":"Nhiều","sugar":"Ít"}],"total":35000,"paymentMethod":"transfer"}`
		req := httptest.NewRequest(http.MethodPost, "/telegram-order", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp order.RelayResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Success).To(BeTrue())
		Expect(resp.OrderID).To(Equal("ORD-42"))
		Expect(resp.Message).To(Equal(order.MessageOrderSent))
	})

	It("should answer 500 when Telegram fails", func() {
		sender.fail = true
		body := `{"tableNumber":"5","userName":"Minh","userPhone":"` + phone + `","items":[{"name":"x","price":1,"quantity":1}],"total":1}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram-order", strings.NewReader(body)))
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).NotTo(ContainSubstring("chat not found"))
	})

	It("should relay a multipart bill photo", func() {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		Expect(mw.WriteField("orderId", "ORD-43")).To(Succeed())
		Expect(mw.WriteField("userName", "Minh")).To(Succeed())
		Expect(mw.WriteField("userPhone", phone)).To(Succeed())
		Expect(mw.WriteField("total", "120000")).To(Succeed())
		part, err := mw.CreateFormFile("photo", "bill.jpg")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("jpeg-bytes"))
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/telegram-bill", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sender.photos).To(HaveLen(1))
		Expect(sender.photos[0].FileName).To(Equal("bill.jpg"))
		Expect(string(sender.photos[0].Photo)).To(Equal("jpeg-bytes"))
	})

	It("should answer 400 for a bill without photo", func() {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		Expect(mw.WriteField("orderId", "ORD-44")).To(Succeed())
		Expect(mw.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/telegram-bill", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should report bill status", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bill-status/ORD-45", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp order.BillStatusResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Confirmed).To(BeFalse())

		Expect(bills.RecordTokens(context.Background(), "ORD-45", phone, 30000, time.Now().UTC())).To(Succeed())
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bill-status/ORD-45", nil))
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Confirmed).To(BeTrue())
		Expect(*resp.RANTokens).To(Equal(int64(30000)))
	})
})
