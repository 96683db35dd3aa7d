package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReminderDue(t *testing.T) {
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

	assert.True(t, Reminder{DueAt: now.Add(-time.Minute)}.Due(now))
	assert.True(t, Reminder{DueAt: now}.Due(now), "exactly due counts as due")
	assert.False(t, Reminder{DueAt: now.Add(time.Minute)}.Due(now))
}

func TestReminderValidate(t *testing.T) {
	valid := Reminder{
		ID:     1,
		ChatID: 100,
		DueAt:  time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, valid.Validate())

	noID := valid
	noID.ID = 0
	assert.Error(t, noID.Validate())

	noChat := valid
	noChat.ChatID = 0
	assert.Error(t, noChat.Validate())

	noDue := valid
	noDue.DueAt = time.Time{}
	assert.Error(t, noDue.Validate())
}

func TestDeliveryStatusString(t *testing.T) {
	assert.Equal(t, "ok", DeliveryOK.String())
	assert.Equal(t, "permanent_failure", DeliveryPermanentFailure.String())
	assert.Equal(t, "transient_failure", DeliveryTransientFailure.String())
	assert.Equal(t, "unknown", DeliveryStatus(42).String())
}

func TestDeliveryResultConstructors(t *testing.T) {
	ok := Delivered()
	assert.Equal(t, DeliveryOK, ok.Status)
	assert.Zero(t, ok.RetryAfter)

	perm := PermanentFailure("chat not found")
	assert.Equal(t, DeliveryPermanentFailure, perm.Status)
	assert.Equal(t, "chat not found", perm.Reason)

	trans := TransientFailure("rate limited", 30*time.Second)
	assert.Equal(t, DeliveryTransientFailure, trans.Status)
	assert.Equal(t, 30*time.Second, trans.RetryAfter)
}
