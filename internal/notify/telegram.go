// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

// Package notify delivers messages to a Telegram chat via the Bot API.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/yasalmasri/ms-info/internal/config"
	"github.com/yasalmasri/ms-info/internal/metrics"
)

const defaultBaseURL = "https://api.telegram.org"

// TelegramNotifier sends messages to a fixed chat through a bot.
type TelegramNotifier struct {
	client   *http.Client
	baseURL  string
	botToken string
	chatID   string
}

// Option configures a TelegramNotifier.
type Option func(*TelegramNotifier)

// WithBaseURL overrides the Telegram API base URL, for tests.
func WithBaseURL(baseURL string) Option {
	return func(n *TelegramNotifier) { n.baseURL = strings.TrimRight(baseURL, "/") }
}

// NewTelegramNotifier creates a notifier for the configured bot and chat.
func NewTelegramNotifier(cfg *config.TelegramConfig, opts ...Option) *TelegramNotifier {
	n := &TelegramNotifier{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:  defaultBaseURL,
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// sendMessageRequest is the Telegram sendMessage API request body.
type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// apiResponse is the Telegram Bot API response envelope.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// SendMarkdownV2 delivers a MarkdownV2-formatted message to the chat.
// The caller is responsible for escaping user-supplied fragments with
// EscapeMarkdownV2 before embedding them in the message.
func (n *TelegramNotifier) SendMarkdownV2(ctx context.Context, text string) error {
	err := n.send(ctx, text)
	metrics.RecordSourceRequest("telegram", err)
	return err
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("failed to parse telegram response (status %d): %w", resp.StatusCode, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram rejected message (code %d): %s", apiResp.ErrorCode, apiResp.Description)
	}
	return nil
}

// EscapeMarkdownV2 escapes MarkdownV2 special characters for Telegram.
func EscapeMarkdownV2(s string) string {
	special := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	for _, char := range special {
		s = strings.ReplaceAll(s, char, "\\"+char)
	}
	return s
}
