package member_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/ran-loyalty/internal/core/events"
	"github.com/frahmantamala/ran-loyalty/internal/member"
	"github.com/frahmantamala/ran-loyalty/internal/telegram"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
	"github.com/frahmantamala/ran-loyalty/internal/transport/middleware"
)

var _ = Describe("Member Handler", func() {
	var (
		f      *fixture
		router chi.Router
	)

	BeforeEach(func() {
		f = newFixture()
		base := transport.NewBaseHandler(quiet)
		handler := member.NewHandler(base, f.service)

		router = chi.NewRouter()
		router.Post("/members/register", handler.Register)
		router.With(middleware.RequireSession(base, f.sessions)).Get("/members/me", handler.GetCurrentMember)
	})

	register := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/members/register", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("should answer 201 then 200 for the same phone", func() {
		rec := register(`{"name":"An","phone":"` + phone + `"}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var resp member.SessionResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.IsNew).To(BeTrue())
		Expect(resp.SessionToken).NotTo(BeEmpty())
		Expect(resp.Member.Phone).To(Equal(phone))

		rec = register(`{"name":"An","phone":"` + phone + `"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should answer 400 for bad input", func() {
		Expect(register(`{"name":"An"}`).Code).To(Equal(http.StatusBadRequest))
		Expect(register(`{`).Code).To(Equal(http.StatusBadRequest))
	})

	It("should serve the current member with a session", func() {
		rec := register(`{"name":"An","phone":"` + phone + `"}`)
		var session member.SessionResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &session)).To(Succeed())

		req := httptest.NewRequest(http.MethodGet, "/members/me", nil)
		req.Header.Set("Authorization", "Bearer "+session.SessionToken)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp member.ProfileResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Member.Name).To(Equal("An"))
		Expect(resp.Wallet.BalanceRAN).To(Equal(welcomeBonus))

		req = httptest.NewRequest(http.MethodGet, "/members/me", nil)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})

type capturingSender struct {
	mu       sync.Mutex
	messages []telegram.OutgoingMessage
}

func (s *capturingSender) SendMessage(_ context.Context, msg telegram.OutgoingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *capturingSender) SendPhoto(context.Context, telegram.OutgoingPhoto) error { return nil }

func (s *capturingSender) AnswerCallbackQuery(context.Context, string, string) error { return nil }

var _ = Describe("Member EventHandler", func() {
	It("should post registrations and logins to the auth chat", func() {
		sender := &capturingSender{}
		handler := member.NewEventHandler(sender, "-100300", "RAN 40 Ngô Quyền", quiet)
		ctx := context.Background()

		Expect(handler.HandleMemberEvent(ctx, events.NewMemberRegisteredEvent(phone, "An", welcomeBonus))).To(Succeed())
		Expect(handler.HandleMemberEvent(ctx, events.NewMemberLoggedInEvent(phone, "An"))).To(Succeed())

		Expect(sender.messages).To(HaveLen(2))
		Expect(sender.messages[0].ChatID).To(Equal("-100300"))
		Expect(sender.messages[0].Text).To(ContainSubstring("Đăng ký thành viên mới"))
		Expect(sender.messages[0].Text).To(ContainSubstring("500 tokens"))
		Expect(sender.messages[1].Text).To(ContainSubstring("Đăng nhập thành viên"))
	})

	It("should reject foreign events", func() {
		handler := member.NewEventHandler(&capturingSender{}, "-1", "", quiet)
		err := handler.HandleMemberEvent(context.Background(), events.NewPaymentIntentPaidEvent("id", phone, 1, events.PaidByAdmin))
		Expect(err).To(HaveOccurred())
	})
})
