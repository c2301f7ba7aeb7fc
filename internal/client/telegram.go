package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"content-paywall/internal/config"
	"content-paywall/internal/model"
)

// Deliverer sends a purchased item to the account's channel. Invoked once
// per fulfillment; the entitlement is already durable so a failure here is
// logged, not retried.
type Deliverer interface {
	Deliver(ctx context.Context, account *model.Account, item *model.ContentItem) error
}

// Notifier is a fire-and-forget message send to an account's channel.
type Notifier interface {
	Notify(ctx context.Context, account *model.Account, text string) error
}

// TelegramClient satisfies both Deliverer and Notifier over the Telegram
// bot API.
type TelegramClient struct {
	httpClient *http.Client
	baseApiURL string
	botToken   string
}

func NewTelegramClient(cfg *config.Telegram) *TelegramClient {
	return &TelegramClient{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseApiURL: cfg.BaseApiURL,
		botToken:   cfg.BotToken,
	}
}

func (c *TelegramClient) Deliver(ctx context.Context, account *model.Account, item *model.ContentItem) error {
	text := item.Title
	if item.Description != "" {
		text = fmt.Sprintf("%s\n\n%s", item.Title, item.Description)
	}
	return c.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id": account.ExternalID,
		"text":    text,
	})
}

func (c *TelegramClient) Notify(ctx context.Context, account *model.Account, text string) error {
	return c.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id": account.ExternalID,
		"text":    text,
	})
}

func (c *TelegramClient) call(ctx context.Context, method string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseApiURL, c.botToken, method)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram error %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
