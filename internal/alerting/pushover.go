package alerting

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PushoverNotifier 通过 Pushover API 推送消息。
type PushoverNotifier struct {
	token   string
	userKey string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewPushoverNotifier 构造 Pushover 告警器。
func NewPushoverNotifier(token, userKey, baseURL string, timeout time.Duration, logger zerolog.Logger) *PushoverNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.pushover.net"
	}

	return &PushoverNotifier{
		token:   token,
		userKey: userKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "alert_pushover").Logger(),
	}
}

// Notify posts the alert to the Pushover messages endpoint.
func (n *PushoverNotifier) Notify(ctx context.Context, alert Alert) error {
	form := url.Values{}
	form.Set("token", n.token)
	form.Set("user", n.userKey)
	form.Set("message", renderMessage(alert))
	if alert.SourceURL != "" {
		form.Set("url", alert.SourceURL)
	}

	endpoint := n.baseURL + "/1/messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send pushover request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pushover 响应码异常: %d", resp.StatusCode)
	}

	n.logger.Info().
		Str("weapon", alert.Weapon).
		Str("marketplace", string(alert.Marketplace)).
		Msg("告警已发送 (Pushover)")
	return nil
}

var _ Notifier = (*PushoverNotifier)(nil)
