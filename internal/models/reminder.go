package models

import (
	"fmt"
	"time"
)

// Reminder is the sole persistent entity. DueAt is always an absolute UTC
// instant; display conversions happen at the rendering edge only.
type Reminder struct {
	ID             int64     `json:"id"`
	ChatID         int64     `json:"chat_id"`
	DueAt          time.Time `json:"due_at"`
	Caption        string    `json:"caption"`
	RequestedBy    int64     `json:"requested_by"`
	RequestedName  string    `json:"requested_name,omitempty"`
	AttachmentPath string    `json:"attachment_path,omitempty"`
	ReplyTo        int64     `json:"reply_to,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Due reports whether the reminder should be delivered as of the given time.
func (r Reminder) Due(asOf time.Time) bool {
	return !r.DueAt.After(asOf)
}

// Validate checks the fields required for delivery.
func (r Reminder) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("reminder id must be positive, got %d", r.ID)
	}
	if r.ChatID == 0 {
		return fmt.Errorf("reminder %d has no destination chat", r.ID)
	}
	if r.DueAt.IsZero() {
		return fmt.Errorf("reminder %d has no due time", r.ID)
	}
	return nil
}
