// Package notification delivers guest fulfillment signals to the delivery
// collaborator service.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Ashtonex/maasim/internal/application/checkout"
	"github.com/Ashtonex/maasim/internal/infrastructure/config"
)

// ErrNotifierUnavailable marks transport failures reaching the collaborator
var ErrNotifierUnavailable = errors.New("notification: delivery collaborator unavailable")

// HTTPGuestNotifier posts guest deliveries to the collaborator endpoint.
// The collaborator owns retries and the actual email; a non-2xx answer here
// is surfaced as an error and logged by the caller, never retried inline.
type HTTPGuestNotifier struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPGuestNotifier creates a notifier from configuration
func NewHTTPGuestNotifier(cfg *config.NotificationConfig, logger *zap.Logger) (*HTTPGuestNotifier, error) {
	if cfg == nil {
		return nil, errors.New("notification configuration is required")
	}
	if cfg.GuestDeliveryURL == "" {
		return nil, errors.New("guest delivery URL is required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPGuestNotifier{
		endpoint:   cfg.GuestDeliveryURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// NotifyGuestFulfillment posts the delivery as JSON
func (n *HTTPGuestNotifier) NotifyGuestFulfillment(ctx context.Context, delivery checkout.GuestDelivery) error {
	payload, err := json.Marshal(delivery)
	if err != nil {
		return fmt.Errorf("encoding guest delivery: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotifierUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotifierUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: http status %d", ErrNotifierUnavailable, resp.StatusCode)
	}

	n.logger.Debug("Guest delivery signaled",
		zap.String("order_id", delivery.OrderID.String()),
		zap.String("email", delivery.Email))
	return nil
}

var _ checkout.GuestFulfillmentNotifier = (*HTTPGuestNotifier)(nil)
