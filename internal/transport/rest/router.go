package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/ran-loyalty/internal/adminbot"
	"github.com/frahmantamala/ran-loyalty/internal/member"
	"github.com/frahmantamala/ran-loyalty/internal/order"
	"github.com/frahmantamala/ran-loyalty/internal/payment"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
	"github.com/frahmantamala/ran-loyalty/internal/transport/middleware"
	"github.com/frahmantamala/ran-loyalty/internal/transport/swagger"
	"github.com/frahmantamala/ran-loyalty/internal/voucher"
	"github.com/frahmantamala/ran-loyalty/internal/wallet"
)

// Routes collects the handlers and guards mounted by RegisterAllRoutes.
// Nil handlers leave their routes out.
type Routes struct {
	Base           *transport.BaseHandler
	Logger         *slog.Logger
	AllowedOrigins string
	OpenAPIPath    string

	Sessions    middleware.SessionValidator
	WebhookKey  middleware.KeyChecker
	TelegramKey middleware.KeyChecker
	AdminKey    middleware.KeyChecker

	Health   *HealthHandler
	Voucher  *voucher.Handler
	Payment  *payment.Handler
	Webhook  *payment.WebhookHandler
	Wallet   *wallet.Handler
	Member   *member.Handler
	Order    *order.Handler
	AdminBot *adminbot.Handler
}

func RegisterAllRoutes(router *chi.Mux, rt Routes) {
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.LoggingMiddleware(rt.Logger))
	router.Use(middleware.RecoveryMiddleware(rt.Base))
	router.Use(middleware.CORS(rt.AllowedOrigins))

	// Serve OpenAPI spec at root (outside API prefix)
	if rt.OpenAPIPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, rt.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if rt.Health != nil {
			r.Get("/health", rt.Health.healthCheckHandler)
			r.Get("/ping", rt.Health.pingHandler)
		}

		if rt.Voucher != nil {
			r.Get("/vouchers", rt.Voucher.ListVouchers)
		}

		if rt.Payment != nil {
			r.Post("/voucher-purchase", rt.Payment.PurchaseVoucher)
			r.Get("/payment-intents/{id}", rt.Payment.GetIntentStatus)
		}

		if rt.Webhook != nil {
			r.With(middleware.OptionalKey(rt.Base, middleware.HeaderWebhookKey, rt.WebhookKey)).
				Post("/mb-webhook", rt.Webhook.HandleBankWebhook)
		}

		if rt.Member != nil {
			r.Post("/members/register", rt.Member.Register)
			r.With(middleware.RequireSession(rt.Base, rt.Sessions)).
				Get("/members/me", rt.Member.GetCurrentMember)
		}

		if rt.Wallet != nil {
			r.With(middleware.OptionalSession(rt.Sessions)).
				Get("/wallet-status", rt.Wallet.GetStatus)
			r.With(middleware.RequireSession(rt.Base, rt.Sessions)).
				Post("/wallet/spend", rt.Wallet.Spend)
		}

		if rt.Order != nil {
			r.Post("/telegram-order", rt.Order.RelayOrder)
			r.Post("/telegram-bill", rt.Order.RelayBill)
			r.Get("/bill-status/{orderId}", rt.Order.GetBillStatus)
		}

		if rt.AdminBot != nil {
			r.With(middleware.RequireKey(rt.Base, middleware.HeaderTelegramSecret, rt.TelegramKey)).
				Post("/telegram-webhook", rt.AdminBot.HandleWebhook)
		}

		if rt.Wallet != nil {
			r.Route("/admin", func(ar chi.Router) {
				ar.Use(middleware.RequireKey(rt.Base, middleware.HeaderAdminKey, rt.AdminKey))
				ar.Post("/wallets/credit", rt.Wallet.AdminCredit)
				ar.Get("/ledger/export", rt.Wallet.ExportLedger)
			})
		}
	})
}
