package service

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"remindbot/internal/models"
	"remindbot/pkg/telegram/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySendError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus models.DeliveryStatus
		wantRetry  time.Duration
	}{
		{
			name:       "success",
			err:        nil,
			wantStatus: models.DeliveryOK,
		},
		{
			name:       "rate limited carries retry after",
			err:        &types.APIError{Code: http.StatusTooManyRequests, Description: "Too Many Requests", RetryAfter: 17 * time.Second},
			wantStatus: models.DeliveryTransientFailure,
			wantRetry:  17 * time.Second,
		},
		{
			name:       "server error is transient",
			err:        &types.APIError{Code: http.StatusBadGateway, Description: "Bad Gateway"},
			wantStatus: models.DeliveryTransientFailure,
		},
		{
			name:       "chat not found is permanent",
			err:        &types.APIError{Code: http.StatusBadRequest, Description: "Bad Request: chat not found"},
			wantStatus: models.DeliveryPermanentFailure,
		},
		{
			name:       "bot blocked is permanent",
			err:        &types.APIError{Code: http.StatusForbidden, Description: "Forbidden: bot was blocked by the user"},
			wantStatus: models.DeliveryPermanentFailure,
		},
		{
			name:       "network error is transient",
			err:        errors.New("dial tcp: connection refused"),
			wantStatus: models.DeliveryTransientFailure,
		},
		{
			name:       "wrapped api error is unwrapped",
			err:        errors.Join(errors.New("send failed"), &types.APIError{Code: http.StatusNotFound, Description: "Not Found"}),
			wantStatus: models.DeliveryPermanentFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifySendError(tt.err)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantRetry, result.RetryAfter)
		})
	}
}

func TestDeliver_TextReminder(t *testing.T) {
	tg := &fakeTelegram{}
	n := NewTelegramNotifier(tg, quietLogger())

	r := models.Reminder{
		ID:            1,
		ChatID:        100,
		Caption:       "buy milk",
		RequestedBy:   42,
		RequestedName: "Alice",
		ReplyTo:       7,
	}
	result := n.Deliver(context.Background(), r)

	assert.Equal(t, models.DeliveryOK, result.Status)
	sent := tg.lastMessage(t)
	assert.Equal(t, "⏰ [Alice](tg://user?id=42): buy milk", sent.text)
	assert.Equal(t, int64(7), sent.opts.ReplyTo)
	assert.Equal(t, "Markdown", sent.opts.ParseMode)
}

func TestDeliver_EmptyCaptionAndAnonymousRequester(t *testing.T) {
	tg := &fakeTelegram{}
	n := NewTelegramNotifier(tg, quietLogger())

	result := n.Deliver(context.Background(), models.Reminder{ID: 1, ChatID: 100, RequestedBy: 42})

	assert.Equal(t, models.DeliveryOK, result.Status)
	assert.Equal(t, "⏰ Reminder for [User](tg://user?id=42)", tg.lastMessage(t).text)
}

func TestDeliver_AttachmentGoesAsDocument(t *testing.T) {
	tg := &fakeTelegram{}
	n := NewTelegramNotifier(tg, quietLogger())

	r := models.Reminder{
		ID:             1,
		ChatID:         100,
		Caption:        "the contract",
		RequestedBy:    42,
		RequestedName:  "Alice",
		AttachmentPath: "/tmp/staging/contract.pdf",
	}
	result := n.Deliver(context.Background(), r)

	assert.Equal(t, models.DeliveryOK, result.Status)
	require.Len(t, tg.docSent, 1)
	assert.Equal(t, "/tmp/staging/contract.pdf", tg.docSent[0].path)
	assert.Contains(t, tg.docSent[0].caption, "the contract")
	assert.Empty(t, tg.sent)
}

func TestDeliver_MissingAttachmentFallsBackToText(t *testing.T) {
	tg := &fakeTelegram{docErr: os.ErrNotExist}
	n := NewTelegramNotifier(tg, quietLogger())

	r := models.Reminder{
		ID:             1,
		ChatID:         100,
		Caption:        "the contract",
		RequestedBy:    42,
		AttachmentPath: "/tmp/staging/gone.pdf",
	}
	result := n.Deliver(context.Background(), r)

	assert.Equal(t, models.DeliveryOK, result.Status)
	assert.Empty(t, tg.docSent)
	assert.Len(t, tg.sent, 1)
}

func TestDeliver_RateLimitSurfacesRetryAfter(t *testing.T) {
	tg := &fakeTelegram{sendErr: &types.APIError{
		Code:        http.StatusTooManyRequests,
		Description: "Too Many Requests",
		RetryAfter:  30 * time.Second,
	}}
	n := NewTelegramNotifier(tg, quietLogger())

	result := n.Deliver(context.Background(), models.Reminder{ID: 1, ChatID: 100, RequestedBy: 42})

	assert.Equal(t, models.DeliveryTransientFailure, result.Status)
	assert.Equal(t, 30*time.Second, result.RetryAfter)
}
