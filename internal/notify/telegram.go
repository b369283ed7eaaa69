package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"futureswatch/internal/logging"
)

// ErrNotConfigured is returned when the bot token or chat id is missing.
var ErrNotConfigured = errors.New("telegram bot token or chat id not configured")

// Telegram sends alerts through the Telegram Bot API.
type Telegram struct {
	token       string
	chatID      string
	baseURL     string
	minStrength float64
	timeframe   string
	httpClient  *http.Client
	pingTimeout time.Duration
	sendTimeout time.Duration
}

// TelegramOption customizes a Telegram notifier.
type TelegramOption func(*Telegram)

// WithBaseURL overrides https://api.telegram.org.
func WithBaseURL(u string) TelegramOption {
	return func(t *Telegram) { t.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) TelegramOption {
	return func(t *Telegram) { t.httpClient = hc }
}

// WithMessageContext sets the values FormatAlert needs.
func WithMessageContext(minStrength float64, timeframe string) TelegramOption {
	return func(t *Telegram) {
		t.minStrength = minStrength
		t.timeframe = timeframe
	}
}

// NewTelegram creates a notifier for chatID.
func NewTelegram(token, chatID string, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		token:       token,
		chatID:      chatID,
		baseURL:     "https://api.telegram.org",
		minStrength: 0.02,
		httpClient:  &http.Client{},
		pingTimeout: 5 * time.Second,
		sendTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Telegram) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
}

// Ping checks the bot token with getMe.
func (t *Telegram) Ping(ctx context.Context) error {
	if t.token == "" {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, t.pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint("getMe"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram getMe failed: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		OK     bool `json:"ok"`
		Result struct {
			Username string `json:"username"`
		} `json:"result"`
		Description string `json:"description"`
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram getMe returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("failed to parse getMe response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("telegram getMe not ok: %s", out.Description)
	}
	logging.Notify("telegram connected as @%s", out.Result.Username)
	return nil
}

// SendMessage posts plain text to the configured chat.
func (t *Telegram) SendMessage(ctx context.Context, text string) error {
	if t.token == "" || t.chatID == "" {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, t.sendTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram sendMessage returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// SendAlert formats and sends an alert.
func (t *Telegram) SendAlert(ctx context.Context, alert Alert) error {
	timeframe := t.timeframe
	if timeframe == "" {
		timeframe = alert.Timeframe
	}
	if err := t.SendMessage(ctx, FormatAlert(alert, t.minStrength, timeframe)); err != nil {
		logging.NotifyError("%s alert not delivered: %v", alert.Symbol, err)
		return err
	}
	logging.Notify("%s %s alert sent", alert.Symbol, alert.Direction.Label())
	return nil
}
