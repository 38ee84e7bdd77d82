package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrDisabled = errors.New("telegram notifications are disabled")

// Sender is the part of the Bot API the rest of the service talks to.
type Sender interface {
	SendMessage(ctx context.Context, msg OutgoingMessage) error
	SendPhoto(ctx context.Context, photo OutgoingPhoto) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
}

type Config struct {
	BotToken string
	APIURL   string
	Timeout  time.Duration
}

type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(apiURL + "/bot" + cfg.BotToken).
		SetTimeout(timeout)

	return &Client{http: httpClient, logger: logger}
}

func (c *Client) SendMessage(ctx context.Context, msg OutgoingMessage) error {
	return c.call(c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(msg), "sendMessage", msg.ChatID)
}

func (c *Client) SendPhoto(ctx context.Context, photo OutgoingPhoto) error {
	fields := map[string]string{
		"chat_id": photo.ChatID,
		"caption": photo.Caption,
	}
	if photo.ParseMode != "" {
		fields["parse_mode"] = photo.ParseMode
	}
	if photo.ReplyMarkup != nil {
		markup, err := json.Marshal(photo.ReplyMarkup)
		if err != nil {
			return fmt.Errorf("failed to encode reply markup: %w", err)
		}
		fields["reply_markup"] = string(markup)
	}

	fileName := photo.FileName
	if fileName == "" {
		fileName = "bill.jpg"
	}

	return c.call(c.http.R().
		SetContext(ctx).
		SetMultipartFormData(fields).
		SetFileReader("photo", fileName, bytes.NewReader(photo.Photo)), "sendPhoto", photo.ChatID)
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	return c.call(c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"callback_query_id": callbackQueryID,
			"text":              text,
			"show_alert":        false,
		}), "answerCallbackQuery", "")
}

func (c *Client) call(req *resty.Request, method, chatID string) error {
	var result, apiErr apiResponse

	resp, err := req.SetResult(&result).SetError(&apiErr).Post("/" + method)
	if err != nil {
		c.logger.Error("telegram request failed", "method", method, "chat_id", chatID, "error", err)
		return fmt.Errorf("telegram %s: %w", method, err)
	}

	if resp.IsError() || !result.OK {
		description := apiErr.Description
		if description == "" {
			description = result.Description
		}
		c.logger.Error("telegram api error",
			"method", method,
			"chat_id", chatID,
			"status", resp.StatusCode(),
			"description", description)
		return fmt.Errorf("telegram %s: status %d: %s", method, resp.StatusCode(), description)
	}

	c.logger.Debug("telegram request sent", "method", method, "chat_id", chatID)
	return nil
}

// NopSender drops every message. It is wired when telegram is disabled.
type NopSender struct{}

func (NopSender) SendMessage(context.Context, OutgoingMessage) error { return ErrDisabled }

func (NopSender) SendPhoto(context.Context, OutgoingPhoto) error { return ErrDisabled }

func (NopSender) AnswerCallbackQuery(context.Context, string, string) error { return ErrDisabled }
