package notification

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/business/selection"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/logger"

	"github.com/pobyzaarif/goshortcute"
)

type WebhookConfig struct {
	WebhookURL        string
	BasicAuthUsername string
	BasicAuthPassword string
}

// WebhookRepository posts selection alerts (pool exhaustion, lock
// rollbacks) to the ops webhook endpoint.
type WebhookRepository struct {
	webhookConfig WebhookConfig
}

var _ selection.Notifier = (*WebhookRepository)(nil)

func NewWebhookRepository(cfg WebhookConfig) *WebhookRepository {
	return &WebhookRepository{
		cfg,
	}
}

type alertPayload struct {
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details"`
}

func (r WebhookRepository) SendAlert(event string, payload map[string]any) (err error) {
	if r.webhookConfig.WebhookURL == "" {
		return nil
	}

	body := alertPayload{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Details:   payload,
	}

	payloadByte, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal json payload: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(http.MethodPost, r.webhookConfig.WebhookURL, strings.NewReader(string(payloadByte)))
	if err != nil {
		return err
	}

	buildBasicAuth := goshortcute.StringtoBase64Encode(r.webhookConfig.BasicAuthUsername + ":" + r.webhookConfig.BasicAuthPassword)
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", "Basic "+buildBasicAuth)

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return nil
	}
	bodyBytes, _ := io.ReadAll(res.Body)
	logger.Warn("alert webhook response", "status", res.StatusCode, "body", string(bodyBytes))

	return fmt.Errorf("alert webhook return negative response %v", res.StatusCode)
}
