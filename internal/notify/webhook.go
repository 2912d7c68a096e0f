package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"buyScope/internal/model"
)

// Webhook posts each batch as {"alerts": [...]} to a URL.
type Webhook struct {
	url     string
	client  *http.Client
	headers map[string]string
}

// NewWebhook builds a webhook notifier.
func NewWebhook(url string, headers map[string]string) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url required")
	}
	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: 8 * time.Second},
		headers: headers,
	}, nil
}

type webhookBody struct {
	Alerts []model.BuyAlert `json:"alerts"`
}

func (w *Webhook) Notify(ctx context.Context, alerts []model.BuyAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	reqBody, err := json.Marshal(webhookBody{Alerts: alerts})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook http status %d", resp.StatusCode)
	}
	return nil
}
