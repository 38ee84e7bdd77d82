package member

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/ran-loyalty/internal/core/events"
	"github.com/frahmantamala/ran-loyalty/internal/telegram"
)

// EventHandler reports registrations and logins to the auth chat.
type EventHandler struct {
	sender    telegram.Sender
	chatID    string
	storeName string
	logger    *slog.Logger
}

func NewEventHandler(sender telegram.Sender, authChatID, storeName string, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		sender:    sender,
		chatID:    authChatID,
		storeName: storeName,
		logger:    logger,
	}
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeMemberRegistered, h.HandleMemberEvent)
	eventBus.Subscribe(events.EventTypeMemberLoggedIn, h.HandleMemberEvent)
	h.logger.Info("member event handlers registered")
}

func (h *EventHandler) HandleMemberEvent(ctx context.Context, event events.Event) error {
	m, ok := event.(*events.MemberEvent)
	if !ok {
		h.logger.Error("invalid event type for member handler", "event_type", event.EventType())
		return fmt.Errorf("expected MemberEvent, got %T", event)
	}

	text := telegram.MemberLoginMessage(m.Name, m.Phone, h.storeName, m.At)
	if m.EventType() == events.EventTypeMemberRegistered {
		text = telegram.MemberRegisteredMessage(m.Name, m.Phone, h.storeName, m.WelcomeBonus, m.At)
	}

	err := h.sender.SendMessage(ctx, telegram.OutgoingMessage{
		ChatID:    h.chatID,
		Text:      text,
		ParseMode: telegram.ParseModeMarkdown,
	})
	if err != nil {
		h.logger.Error("failed to notify member activity",
			"phone", m.Phone,
			"event_type", m.EventType(),
			"event_id", m.EventID(),
			"error", err)
		return fmt.Errorf("notify %s for %s: %w", m.EventType(), m.Phone, err)
	}
	return nil
}
