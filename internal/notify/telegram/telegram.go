package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/songzhibin97/memeflux/internal/utils/request"
)

const DefaultBaseURL = "https://api.telegram.org"

// Notifier implements notify.Notifier via the Bot API sendMessage method
type Notifier struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *resty.Client
}

func New(token, chatID string) *Notifier {
	return &Notifier{
		baseURL:    DefaultBaseURL,
		token:      token,
		chatID:     chatID,
		httpClient: request.New(10*time.Second, 0),
	}
}

func (n *Notifier) WithBaseURL(u string) *Notifier {
	n.baseURL = u
	return n
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts an HTML message to the configured chat.
func (n *Notifier) Send(ctx context.Context, text string) error {
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(sendMessageRequest{
			ChatID:                n.chatID,
			Text:                  text,
			ParseMode:             "HTML",
			DisableWebPagePreview: true,
		}).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token))
	if err != nil {
		// 错误信息里可能带着 token，不透传 URL
		return fmt.Errorf("telegram send failed: %w", redact(err, n.token))
	}

	var result apiResponse
	_ = json.Unmarshal(resp.Body(), &result)
	if resp.StatusCode() != http.StatusOK || !result.OK {
		if result.Description != "" {
			return fmt.Errorf("telegram send failed: %s (status %d)", result.Description, resp.StatusCode())
		}
		return fmt.Errorf("telegram send failed: unexpected status code: %d", resp.StatusCode())
	}
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), err: err}
}
