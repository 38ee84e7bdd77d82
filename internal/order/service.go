package order

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/core/common/validation"
	"github.com/frahmantamala/ran-loyalty/internal/telegram"
)

const (
	MessageOrderSent = "Order notification sent successfully"
	MessageBillSent  = "Bill photo sent successfully"
)

// Order ids ride in "confirm_bill:<orderId>:<phone>" callback data, which
// Telegram caps at 64 bytes.
var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,39}$`)

const orderIDRule = "must be 1 to 39 letters, digits, dots, dashes or underscores"

type BillRepositoryAPI interface {
	Get(ctx context.Context, orderID, phone string) (*Bill, error)
	LatestConfirmed(ctx context.Context, orderID string) (*Bill, error)
	Confirm(ctx context.Context, orderID, phone, confirmedBy string, at time.Time) error
	RecordTokens(ctx context.Context, orderID, phone string, amount int64, at time.Time) error
}

// Service relays orders and bill photos to the order chat.
type Service struct {
	sender    telegram.Sender
	bills     BillRepositoryAPI
	chatID    string
	storeName string
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(sender telegram.Sender, bills BillRepositoryAPI, orderChatID, storeName string, logger *slog.Logger) *Service {
	return &Service{
		sender:    sender,
		bills:     bills,
		chatID:    orderChatID,
		storeName: storeName,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func notificationFailed(err error) *errors.AppError {
	return errors.NewExternalError("Failed to send Telegram notification", errors.ErrCodeNotificationFailed, err)
}

// RelayOrder posts a new order, or a cancellation for TypeChangeOfMind, and
// returns the order id.
func (s *Service) RelayOrder(ctx context.Context, req OrderRequest) (string, error) {
	cancel := req.Type == TypeChangeOfMind

	v := validation.NewValidator()
	v.Field("orderId", req.OrderID).Matches(orderIDPattern, orderIDRule)
	v.Field("tableNumber", req.TableNumber).Required()
	v.Field("userName", req.UserName).Required().MaxLength(100)
	v.Field("userPhone", req.UserPhone).Required().Phone()
	if !cancel {
		v.Field("total", req.Total).MinInt(0, errors.ErrCodeInvalidAmount)
		v.Field("items", len(req.Items)).MinInt(1, errors.ErrCodeMissingField)
	}
	if appErr := v.Validate(); appErr != nil {
		return "", appErr
	}

	now := s.now()
	if strings.TrimSpace(req.OrderID) == "" {
		req.OrderID = NewOrderID(now)
	}

	text := telegram.NewOrderMessage(req.toMessage(now))
	if cancel {
		text = telegram.CancellationMessage(req.toMessage(now))
	}

	err := s.sender.SendMessage(ctx, telegram.OutgoingMessage{
		ChatID:    s.chatID,
		Text:      text,
		ParseMode: telegram.ParseModeHTML,
	})
	if err != nil {
		s.logger.Error("failed to relay order", "order_id", req.OrderID, "type", req.Type, "error", err)
		return "", notificationFailed(err)
	}

	s.logger.Info("order relayed", "order_id", req.OrderID, "type", req.Type, "items", len(req.Items))
	return req.OrderID, nil
}

// RelayBill posts the bill photo with a confirm_bill button.
func (s *Service) RelayBill(ctx context.Context, upload BillUpload) error {
	v := validation.NewValidator()
	v.Field("orderId", upload.OrderID).Required().Matches(orderIDPattern, orderIDRule)
	v.Field("userName", upload.UserName).Required().MaxLength(100)
	v.Field("userPhone", upload.UserPhone).Required().Phone()
	v.Field("total", upload.Total).MinInt(0, errors.ErrCodeInvalidAmount)
	v.Field("photo", len(upload.Photo)).MinInt(1, errors.ErrCodeMissingField)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}

	err := s.sender.SendPhoto(ctx, telegram.OutgoingPhoto{
		ChatID:    s.chatID,
		FileName:  upload.FileName,
		Photo:     upload.Photo,
		Caption:   telegram.BillCaption(upload.OrderID, upload.UserName, upload.UserPhone, upload.Total, s.storeName, s.now()),
		ParseMode: telegram.ParseModeMarkdown,
		ReplyMarkup: telegram.SingleButton(
			telegram.ButtonConfirmBill,
			telegram.ConfirmBillCallback(upload.OrderID, upload.UserPhone),
		),
	})
	if err != nil {
		s.logger.Error("failed to relay bill photo", "order_id", upload.OrderID, "error", err)
		return notificationFailed(err)
	}

	s.logger.Info("bill photo relayed", "order_id", upload.OrderID, "phone", upload.UserPhone, "size", len(upload.Photo))
	return nil
}

// BillStatus returns the credited confirmation of an order, or nil while
// staff have not added RAN for it.
func (s *Service) BillStatus(ctx context.Context, orderID string) (*Bill, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, errors.NewValidationError("orderId is required", errors.ErrCodeMissingField)
	}
	b, err := s.bills.LatestConfirmed(ctx, orderID)
	if err != nil {
		s.logger.Error("failed to load bill status", "order_id", orderID, "error", err)
		return nil, errors.NewInternalError("Failed to load bill status", err)
	}
	return b, nil
}
