package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/restokit/restaurant-billing/internal/config"
	"github.com/restokit/restaurant-billing/internal/events"
)

const defaultWebhookTimeout = 5 * time.Second

// NotificationService logs billing events and forwards them to the configured
// webhook as JSON.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	webhookURL string
	timeout    time.Duration
}

// NewNotificationService creates the service. An empty webhook URL keeps
// notifications log-only.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.WebhookTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		webhookURL: strings.TrimSpace(cfg.WebhookURL),
		timeout:    timeout,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventClientCreated, n.handleClientCreated)
	n.dispatcher.Subscribe(events.EventClientDeactivated, n.handleClientLifecycle)
	n.dispatcher.Subscribe(events.EventClientReactivated, n.handleClientLifecycle)
	n.dispatcher.Subscribe(events.EventClientDeleted, n.handleClientLifecycle)
	n.dispatcher.Subscribe(events.EventPaymentCreated, n.handlePaymentCreated)
	n.dispatcher.Subscribe(events.EventPaymentPaid, n.handlePaymentPaid)
	n.dispatcher.Subscribe(events.EventPaymentsOverdue, n.handleBatch)
	n.dispatcher.Subscribe(events.EventMonthlyPaymentsGenerated, n.handleBatch)
}

func (n *NotificationService) handleClientCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ClientCreated", zap.String("client_id", event.ClientID), zap.Any("payload", event.Payload))
	return n.deliverWebhook(ctx, event)
}

func (n *NotificationService) handleClientLifecycle(ctx context.Context, event events.Event) error {
	n.logger.Info("ClientLifecycle", zap.String("event_type", string(event.Type)), zap.String("client_id", event.ClientID))
	return n.deliverWebhook(ctx, event)
}

// Payment creation is frequent and already visible through the API, so it
// only reaches the log.
func (n *NotificationService) handlePaymentCreated(_ context.Context, event events.Event) error {
	n.logger.Info("PaymentCreated", zap.String("client_id", event.ClientID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handlePaymentPaid(ctx context.Context, event events.Event) error {
	n.logger.Info("PaymentPaid", zap.String("client_id", event.ClientID), zap.Any("payload", event.Payload))
	return n.deliverWebhook(ctx, event)
}

func (n *NotificationService) handleBatch(ctx context.Context, event events.Event) error {
	n.logger.Info("BillingBatch", zap.String("event_type", string(event.Type)), zap.Any("payload", event.Payload))
	return n.deliverWebhook(ctx, event)
}

// deliverWebhook POSTs the event as JSON. Any non-2xx answer is a failed
// delivery.
func (n *NotificationService) deliverWebhook(ctx context.Context, event events.Event) error {
	if n.webhookURL == "" {
		return nil
	}
	timeout := n.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("webhook %s: %w", event.Type, context.DeadlineExceeded)
		}
		if remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(n.webhookURL).
		Timeout(timeout).
		Set("X-Billing-Event", string(event.Type)).
		Set("X-Billing-Event-Id", event.ID).
		JSON(event)
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook %s: %w", event.Type, errors.Join(errs...))
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return fmt.Errorf("webhook %s: unexpected status %d: %s", event.Type, status, truncate(body, 256))
	}

	n.logger.Debug("webhook delivered",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int("status", status))
	return nil
}

func truncate(body []byte, limit int) string {
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
