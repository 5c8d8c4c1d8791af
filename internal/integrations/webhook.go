package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

var ErrWebhookStatus = errors.New("webhook returned non-2xx status")

// WebhookNotifier posts notification batches as JSON to the notification service.
// Calls go through a circuit breaker so a dead endpoint is not hammered after every
// financial mutation.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     logrus.FieldLogger
}

func NewWebhookNotifier(url string, timeout time.Duration, log logrus.FieldLogger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	log = log.WithField("component", "notifier")
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notifications-cb",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
	return &WebhookNotifier{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		log:     log,
	}
}

type webhookPayload struct {
	Notifications []Notification `json:"notifications"`
}

func (n *WebhookNotifier) CreateNotifications(ctx context.Context, batch []Notification) error {
	if len(batch) == 0 {
		return nil
	}
	body, err := json.Marshal(webhookPayload{Notifications: batch})
	if err != nil {
		return fmt.Errorf("encoding notifications: %w", err)
	}

	_, err = n.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %d", ErrWebhookStatus, resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("posting notifications: %w", err)
	}
	n.log.WithField("count", len(batch)).Debug("notifications delivered")
	return nil
}

// LogNotifier only logs notifications. It stands in when no webhook is configured.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log.WithField("component", "notifier")}
}

func (n *LogNotifier) CreateNotifications(_ context.Context, batch []Notification) error {
	for _, item := range batch {
		n.log.WithFields(logrus.Fields{
			"user_id": item.UserID,
			"type":    item.Type,
			"data":    item.Data.Encode(),
		}).Info(item.Title)
	}
	return nil
}
