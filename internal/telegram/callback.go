package telegram

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/ran-loyalty/internal"
)

const (
	ActionPay         = "pay"
	ActionConfirmBill = "confirm_bill"
	ActionInputToken  = "input_token"
)

// Callback is the decoded callback_data of an inline button. Ref is the
// order id for bill actions and the intent short id for pay.
type Callback struct {
	Action    string
	Ref       string
	Phone     string
	AmountVND int64
}

func PayCallback(shortID, phone string, amountVND int64) string {
	return fmt.Sprintf("%s:%s:%s:%d", ActionPay, shortID, phone, amountVND)
}

func ConfirmBillCallback(orderID, phone string) string {
	return fmt.Sprintf("%s:%s:%s", ActionConfirmBill, orderID, phone)
}

func InputTokenCallback(orderID, phone string) string {
	return fmt.Sprintf("%s:%s:%s", ActionInputToken, orderID, phone)
}

var payRefPattern = regexp.MustCompile(`^[0-9a-f-]{1,36}$`)

func invalidCallback(data string) *errors.AppError {
	return errors.NewValidationError(fmt.Sprintf("invalid callback data %q", data), errors.ErrCodeInvalidCallback)
}

func ParseCallback(data string) (*Callback, error) {
	parts := strings.Split(data, ":")
	switch parts[0] {
	case ActionPay:
		if len(parts) != 4 || !payRefPattern.MatchString(parts[1]) || parts[2] == "" {
			return nil, invalidCallback(data)
		}
		amount, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil || amount <= 0 {
			return nil, invalidCallback(data)
		}
		return &Callback{Action: ActionPay, Ref: parts[1], Phone: parts[2], AmountVND: amount}, nil
	case ActionConfirmBill, ActionInputToken:
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return nil, invalidCallback(data)
		}
		return &Callback{Action: parts[0], Ref: parts[1], Phone: parts[2]}, nil
	}
	return nil, invalidCallback(data)
}

// AddTokenCommand is a parsed "/addtoken ORDER PHONE AMOUNT" message.
type AddTokenCommand struct {
	OrderID string
	Phone   string
	Amount  int64
}

func IsAddTokenCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/addtoken")
}

// ParseAddToken expects text for which IsAddTokenCommand holds.
func ParseAddToken(text string) (*AddTokenCommand, error) {
	fields := strings.Fields(text)
	if len(fields) != 4 || fields[0] != "/addtoken" {
		return nil, errors.NewValidationError("usage: /addtoken ORDER PHONE AMOUNT", errors.ErrCodeValidationFailed)
	}
	amount, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil || amount <= 0 {
		return nil, errors.NewValidationError("amount must be a positive integer", errors.ErrCodeInvalidAmount)
	}
	return &AddTokenCommand{OrderID: fields[1], Phone: fields[2], Amount: amount}, nil
}
