package adminbot

import (
	"context"
	"net/http"

	"github.com/frahmantamala/ran-loyalty/internal/telegram"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
	"github.com/frahmantamala/ran-loyalty/pkg/logger"
)

type BotAPI interface {
	HandleUpdate(ctx context.Context, update telegram.Update) error
}

type Handler struct {
	*transport.BaseHandler
	Bot BotAPI
}

func NewHandler(baseHandler *transport.BaseHandler, bot BotAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Bot:         bot,
	}
}

// HandleWebhook handles POST /telegram-webhook. Telegram retries non-2xx
// answers, so every update is acknowledged with {"ok":true}.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	lg := logger.From(r.Context())

	var update telegram.Update
	if err := h.DecodeJSON(r, &update); err != nil {
		lg.Warn("ignoring malformed telegram update", "error", err)
		h.WriteJSON(w, http.StatusOK, WebhookResponse{OK: true})
		return
	}

	if err := h.Bot.HandleUpdate(r.Context(), update); err != nil {
		lg.Error("telegram update failed", "update_id", update.UpdateID, "error", err)
	}
	h.WriteJSON(w, http.StatusOK, WebhookResponse{OK: true})
}
