package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"remindbot/internal/models"
	"remindbot/internal/tracing"
	"remindbot/pkg/telegram"
	"remindbot/pkg/telegram/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// TelegramNotifier delivers reminders over the Bot API and classifies every
// result into the closed outcome set the scheduler switches over, instead of
// leaking an open-ended error hierarchy.
type TelegramNotifier struct {
	tg     telegram.Client
	logger *logrus.Logger
}

// NewTelegramNotifier creates the delivery-side notifier.
func NewTelegramNotifier(tg telegram.Client, logger *logrus.Logger) *TelegramNotifier {
	return &TelegramNotifier{tg: tg, logger: logger}
}

// Deliver renders and sends one reminder.
func (n *TelegramNotifier) Deliver(ctx context.Context, r models.Reminder) models.DeliveryResult {
	ctx, span := tracing.StartSpan(ctx, "notifier.deliver",
		attribute.Int64("reminder.id", r.ID),
	)
	defer span.End()

	text := deliveryText(r)
	opts := telegram.SendOptions{ParseMode: "Markdown", ReplyTo: r.ReplyTo}

	var err error
	if r.AttachmentPath != "" {
		_, err = n.tg.SendDocument(ctx, r.ChatID, r.AttachmentPath, text, opts)
		if err != nil && errors.Is(err, os.ErrNotExist) {
			// The staged file vanished; the reminder itself is still
			// deliverable as text.
			n.logger.WithField("id", r.ID).Warn("Staged attachment missing, delivering text only")
			_, err = n.tg.SendMessage(ctx, r.ChatID, text, opts)
		}
	} else {
		_, err = n.tg.SendMessage(ctx, r.ChatID, text, opts)
	}

	result := classifySendError(err)
	if err != nil {
		tracing.RecordError(ctx, err)
	}
	return result
}

// classifySendError maps a send error onto the delivery outcome set. Rate
// limits and server or network trouble are transient; any other Bot API
// rejection (chat gone, bot blocked, malformed payload) is permanent.
func classifySendError(err error) models.DeliveryResult {
	if err == nil {
		return models.Delivered()
	}

	var apiErr *types.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return models.TransientFailure(apiErr.Description, apiErr.RetryAfter)
		case apiErr.Code >= 500:
			return models.TransientFailure(apiErr.Description, 0)
		default:
			return models.PermanentFailure(apiErr.Description)
		}
	}

	// Network errors, timeouts, and cancelled sends resolve on retry.
	return models.TransientFailure(err.Error(), 0)
}

// deliveryText renders the notification: a mention of the requester plus the
// caption.
func deliveryText(r models.Reminder) string {
	name := r.RequestedName
	if name == "" {
		name = "User"
	}
	mention := fmt.Sprintf("[%s](tg://user?id=%d)", name, r.RequestedBy)
	if r.Caption != "" {
		return fmt.Sprintf("⏰ %s: %s", mention, r.Caption)
	}
	return fmt.Sprintf("⏰ Reminder for %s", mention)
}
