package adminbot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	walletDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
	"github.com/frahmantamala/ran-loyalty/internal/telegram"
	"github.com/frahmantamala/ran-loyalty/internal/wallet"
)

type Bot struct {
	sender     telegram.Sender
	payments   PaymentConfirmer
	wallet     WalletCrediter
	bills      BillRecorder
	tx         Transactor
	adminChats map[string]struct{}
	logger     *slog.Logger
	now        func() time.Time
}

// NewBot builds the admin bot. Updates from chats outside adminChatIDs are
// ignored; with no chats configured the bot ignores everything.
func NewBot(sender telegram.Sender, payments PaymentConfirmer, walletService WalletCrediter, bills BillRecorder, tx Transactor, adminChatIDs []string, logger *slog.Logger) *Bot {
	chats := make(map[string]struct{}, len(adminChatIDs))
	for _, id := range adminChatIDs {
		if id != "" {
			chats[id] = struct{}{}
		}
	}
	return &Bot{
		sender:     sender,
		payments:   payments,
		wallet:     walletService,
		bills:      bills,
		tx:         tx,
		adminChats: chats,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// HandleUpdate processes one update. Failures are reported into the chat;
// the returned error is for logging only.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) error {
	var m *telegram.Message
	switch {
	case update.CallbackQuery != nil:
		m = update.CallbackQuery.Message
	case update.Message != nil:
		m = update.Message
	default:
		return nil
	}
	if !b.fromAdminChat(m) {
		var chatID int64
		if m != nil {
			chatID = m.Chat.ID
		}
		b.logger.Warn("ignoring update from unknown chat", "update_id", update.UpdateID, "chat_id", chatID)
		return nil
	}

	switch {
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && telegram.IsAddTokenCommand(update.Message.Text):
		return b.handleAddToken(ctx, update.Message)
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, q *telegram.CallbackQuery) error {
	cb, err := telegram.ParseCallback(q.Data)
	if err != nil {
		b.answer(ctx, q.ID, telegram.AnswerUnknownAction)
		return err
	}

	chatID, replyTo := b.chatOf(q.Message)
	switch cb.Action {
	case telegram.ActionPay:
		return b.confirmPayment(ctx, q, cb, chatID, replyTo)
	case telegram.ActionConfirmBill:
		return b.confirmBill(ctx, q, cb, chatID, replyTo)
	case telegram.ActionInputToken:
		b.answer(ctx, q.ID, telegram.AnswerInputToken)
		return b.reply(ctx, telegram.OutgoingMessage{
			ChatID:           chatID,
			ReplyToMessageID: replyTo,
			Text:             telegram.TokenInputMessage(cb.Ref, cb.Phone),
			ParseMode:        telegram.ParseModeMarkdown,
		})
	}
	return nil
}

func (b *Bot) confirmPayment(ctx context.Context, q *telegram.CallbackQuery, cb *telegram.Callback, chatID string, replyTo int64) error {
	conf, err := b.payments.ConfirmIntentByAdmin(ctx, cb.Ref, cb.Phone, cb.AmountVND)
	if err != nil {
		b.answer(ctx, q.ID, telegram.AnswerFailed)
		_ = b.reply(ctx, telegram.OutgoingMessage{
			ChatID:           chatID,
			ReplyToMessageID: replyTo,
			Text:             fmt.Sprintf("❌ Không thể xác nhận thanh toán %s: %s", cb.Ref, failureText(err)),
		})
		return fmt.Errorf("confirm payment %s: %w", cb.Ref, err)
	}

	if conf.AlreadyProcessed {
		b.answer(ctx, q.ID, telegram.AnswerAlreadyProcessed)
		return nil
	}

	b.answer(ctx, q.ID, telegram.AnswerPayConfirmed)
	b.logger.Info("payment confirmed from telegram",
		"intent_id", conf.IntentID,
		"phone", conf.UserPhone,
		"by", q.From.DisplayName())
	return b.reply(ctx, telegram.OutgoingMessage{
		ChatID:           chatID,
		ReplyToMessageID: replyTo,
		Text:             telegram.PayConfirmedMessage(conf.UserPhone, conf.RewardRAN, conf.NewBalance, conf.ShortID),
		ParseMode:        telegram.ParseModeHTML,
	})
}

func (b *Bot) confirmBill(ctx context.Context, q *telegram.CallbackQuery, cb *telegram.Callback, chatID string, replyTo int64) error {
	now := b.now()
	by := q.From.DisplayName()

	if err := b.bills.Confirm(ctx, cb.Ref, cb.Phone, by, now); err != nil {
		b.answer(ctx, q.ID, telegram.AnswerFailed)
		_ = b.reply(ctx, telegram.OutgoingMessage{
			ChatID: chatID,
			Text:   fmt.Sprintf("❌ Không thể xác nhận bill %s. Vui lòng thử lại.", cb.Ref),
		})
		return fmt.Errorf("confirm bill %s: %w", cb.Ref, err)
	}

	b.answer(ctx, q.ID, telegram.AnswerBillConfirmed)
	return b.reply(ctx, telegram.OutgoingMessage{
		ChatID:           chatID,
		ReplyToMessageID: replyTo,
		Text:             telegram.BillConfirmedMessage(cb.Ref, cb.Phone, by, now),
		ParseMode:        telegram.ParseModeMarkdown,
		ReplyMarkup: telegram.SingleButton(
			telegram.ButtonInputToken,
			telegram.InputTokenCallback(cb.Ref, cb.Phone),
		),
	})
}

// handleAddToken credits BILL_REWARD once per order and phone and records
// the amount on the bill confirmation in the same transaction.
func (b *Bot) handleAddToken(ctx context.Context, m *telegram.Message) error {
	chatID, replyTo := b.chatOf(m)
	replyText := func(text string) error {
		return b.reply(ctx, telegram.OutgoingMessage{ChatID: chatID, ReplyToMessageID: replyTo, Text: text})
	}

	cmd, err := telegram.ParseAddToken(m.Text)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.Code == errors.ErrCodeInvalidAmount {
			return replyText(telegram.ReplyInvalidTokenAmount)
		}
		return replyText(telegram.ReplyAddTokenUsage)
	}

	now := b.now()
	var credit *wallet.Result
	err = b.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		res, err := b.wallet.Credit(ctx, wallet.CreditRequest{
			Phone:          cmd.Phone,
			Amount:         cmd.Amount,
			IdempotencyKey: wallet.BillKey(cmd.OrderID, cmd.Phone),
			Type:           walletDatamodel.TypeBillReward,
			Description:    "Bill " + cmd.OrderID,
			ReferenceID:    cmd.OrderID,
			ReferenceType:  walletDatamodel.ReferenceOrder,
		})
		if err != nil {
			return err
		}
		credit = res
		if res.AlreadyApplied {
			return nil
		}
		return b.bills.RecordTokens(ctx, cmd.OrderID, cmd.Phone, cmd.Amount, now)
	})
	if err != nil {
		b.logger.Error("failed to add bill tokens",
			"order_id", cmd.OrderID,
			"phone", cmd.Phone,
			"error", err)
		if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeValidation {
			_ = replyText("❌ " + appErr.GetDetailedMessage())
		} else {
			_ = replyText(telegram.ReplyAddTokenFailed)
		}
		return fmt.Errorf("add tokens for %s: %w", cmd.OrderID, err)
	}

	if credit.AlreadyApplied {
		return replyText(telegram.TokenAlreadyAddedMessage(cmd.OrderID, cmd.Phone))
	}

	b.wallet.PublishCredited(ctx, credit)
	b.logger.Info("bill tokens added",
		"order_id", cmd.OrderID,
		"phone", cmd.Phone,
		"amount", cmd.Amount,
		"by", m.From.DisplayName())
	return b.reply(ctx, telegram.OutgoingMessage{
		ChatID:           chatID,
		ReplyToMessageID: replyTo,
		Text:             telegram.TokenAddedMessage(cmd.OrderID, cmd.Phone, cmd.Amount, credit.Balance.BalanceRAN, now),
		ParseMode:        telegram.ParseModeMarkdown,
	})
}

func (b *Bot) fromAdminChat(m *telegram.Message) bool {
	if m == nil || m.Chat.ID == 0 {
		return false
	}
	_, ok := b.adminChats[strconv.FormatInt(m.Chat.ID, 10)]
	return ok
}

func (b *Bot) chatOf(m *telegram.Message) (string, int64) {
	return strconv.FormatInt(m.Chat.ID, 10), m.MessageID
}

func (b *Bot) answer(ctx context.Context, callbackQueryID, text string) {
	if err := b.sender.AnswerCallbackQuery(ctx, callbackQueryID, text); err != nil {
		b.logger.Warn("failed to answer callback query", "callback_query_id", callbackQueryID, "error", err)
	}
}

func (b *Bot) reply(ctx context.Context, msg telegram.OutgoingMessage) error {
	if err := b.sender.SendMessage(ctx, msg); err != nil {
		b.logger.Error("failed to reply in admin chat", "chat_id", msg.ChatID, "error", err)
		return err
	}
	return nil
}

// failureText is safe to show in the admin chat.
func failureText(err error) string {
	if appErr, ok := errors.IsAppError(err); ok && appErr.StatusCode < 500 {
		return appErr.GetDetailedMessage()
	}
	return "lỗi hệ thống"
}
