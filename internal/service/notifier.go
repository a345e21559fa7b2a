package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bnpl-credit-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// notifyRetryIntervals spaces the redelivery attempts after a failed push.
var notifyRetryIntervals = []time.Duration{
	5 * time.Second,
	30 * time.Second,
}

// HTTPNotifier pushes wallet events to the notification subsystem as JSON
// POSTs. Delivery is fire-and-forget: it runs off the request path and a
// failure never touches the ledger transaction that produced the event.
type HTTPNotifier struct {
	url        string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPNotifier creates a notifier pointed at the given endpoint. An empty
// URL disables delivery entirely.
func NewHTTPNotifier(url string, timeout time.Duration, log zerolog.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Notify sends the event asynchronously with retries.
func (n *HTTPNotifier) Notify(_ context.Context, event ports.NotificationEvent) {
	if n.url == "" {
		n.log.Debug().Str("kind", event.Kind).Msg("notify: no endpoint configured, skipping")
		return
	}
	go n.deliverWithRetries(event)
}

func (n *HTTPNotifier) deliverWithRetries(event ports.NotificationEvent) {
	payloadBytes, err := json.Marshal(event)
	if err != nil {
		n.log.Error().Err(err).Str("kind", event.Kind).Msg("notify: failed to marshal event")
		return
	}

	userID := event.UserID.String()
	for attempt := 0; attempt <= len(notifyRetryIntervals); attempt++ {
		if attempt > 0 {
			time.Sleep(notifyRetryIntervals[attempt-1])
		}

		req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(payloadBytes))
		if err != nil {
			n.log.Error().Err(err).Str("user_id", userID).Int("attempt", attempt+1).Msg("notify: failed to create request")
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			n.log.Warn().Err(err).Str("user_id", userID).Int("attempt", attempt+1).Msg("notify: delivery failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			n.log.Info().Str("user_id", userID).Str("kind", event.Kind).Int("attempt", attempt+1).Msg("notify: delivered")
			return
		}

		n.log.Warn().Str("user_id", userID).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("notify: non-2xx response, retrying")
	}

	n.log.Error().Str("user_id", userID).Str("kind", event.Kind).Msg("notify: all retry attempts exhausted")
}

// NopNotifier discards every event. Used when notifications are disabled and
// in tests.
type NopNotifier struct{}

// Notify implements ports.Notifier.
func (NopNotifier) Notify(context.Context, ports.NotificationEvent) {}
