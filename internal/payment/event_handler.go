package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/ran-loyalty/internal/core/events"
	"github.com/frahmantamala/ran-loyalty/internal/telegram"
)

// EventHandler posts payment activity to the voucher chat.
type EventHandler struct {
	sender    telegram.Sender
	chatID    string
	storeName string
	logger    *slog.Logger
}

func NewEventHandler(sender telegram.Sender, voucherChatID, storeName string, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		sender:    sender,
		chatID:    voucherChatID,
		storeName: storeName,
		logger:    logger,
	}
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentIntentCreated, h.HandleIntentCreated)
	eventBus.Subscribe(events.EventTypeBankTransactionUnmatched, h.HandleUnmatchedTransaction)
	h.logger.Info("payment event handlers registered")
}

// HandleIntentCreated announces a purchase with a button that lets staff
// confirm the transfer by hand.
func (h *EventHandler) HandleIntentCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(*events.PaymentIntentCreatedEvent)
	if !ok {
		h.logger.Error("invalid event type for intent created handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentIntentCreatedEvent, got %T", event)
	}

	err := h.sender.SendMessage(ctx, telegram.OutgoingMessage{
		ChatID:    h.chatID,
		Text:      telegram.VoucherPurchaseMessage(created.IntentID, created.UserPhone, created.VoucherName, created.AmountVND, h.storeName, created.Timestamp),
		ParseMode: telegram.ParseModeMarkdown,
		ReplyMarkup: telegram.SingleButton(
			telegram.ButtonConfirmPayment,
			telegram.PayCallback(created.ShortID, created.UserPhone, created.AmountVND),
		),
	})
	if err != nil {
		h.logger.Error("failed to notify voucher purchase",
			"intent_id", created.IntentID,
			"phone", created.UserPhone,
			"event_id", created.EventID(),
			"error", err)
		return fmt.Errorf("notify voucher purchase %s: %w", created.IntentID, err)
	}

	h.logger.Info("voucher purchase notified", "intent_id", created.IntentID, "event_id", created.EventID())
	return nil
}

func (h *EventHandler) HandleUnmatchedTransaction(ctx context.Context, event events.Event) error {
	unmatched, ok := event.(*events.BankTransactionUnmatchedEvent)
	if !ok {
		h.logger.Error("invalid event type for unmatched transaction handler", "event_type", event.EventType())
		return fmt.Errorf("expected BankTransactionUnmatchedEvent, got %T", event)
	}

	err := h.sender.SendMessage(ctx, telegram.OutgoingMessage{
		ChatID:    h.chatID,
		Text:      telegram.UnmatchedTransactionMessage(unmatched.TxnID, unmatched.AmountVND, unmatched.ContentRaw, unmatched.Reason),
		ParseMode: telegram.ParseModeMarkdown,
	})
	if err != nil {
		h.logger.Error("failed to notify unmatched transaction",
			"txn_id", unmatched.TxnID,
			"event_id", unmatched.EventID(),
			"error", err)
		return fmt.Errorf("notify unmatched transaction %s: %w", unmatched.TxnID, err)
	}
	return nil
}
