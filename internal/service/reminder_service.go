// Package service glues the chat command layer to the reminder core: it
// parses commands, enforces creation policy, stages attachments, and renders
// replies.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"remindbot/internal/metrics"
	"remindbot/internal/models"
	"remindbot/internal/store"
	"remindbot/internal/timeparse"
	"remindbot/pkg/media"
	"remindbot/pkg/telegram"

	"github.com/sirupsen/logrus"
)

// AddRequest carries everything the command layer extracted from an "add"
// message.
type AddRequest struct {
	Tail             string
	ChatID           int64
	RequestedBy      int64
	RequestedName    string
	ReplyTo          int64
	AttachmentFileID string
	AttachmentName   string
}

// ReminderService implements the create/list/delete operations on top of the
// store. Creation persists synchronously before the caller confirms to the
// user.
type ReminderService struct {
	store   *store.Store
	parser  *timeparse.Parser
	stager  media.Stager
	tg      telegram.Client
	minLead time.Duration
	logger  *logrus.Logger

	// now is stubbed in tests.
	now func() time.Time
}

// NewReminderService wires the reminder operations.
func NewReminderService(st *store.Store, parser *timeparse.Parser, stager media.Stager, tg telegram.Client, minLead time.Duration, logger *logrus.Logger) *ReminderService {
	return &ReminderService{
		store:   st,
		parser:  parser,
		stager:  stager,
		tg:      tg,
		minLead: minLead,
		logger:  logger,
		now:     time.Now,
	}
}

// Add splits the command tail into due time and caption, applies the
// minimum-lead-time policy, stages any attachment, and appends the record.
// Parse and validation failures are sentinel errors for the command layer to
// translate; a staging failure degrades to a text-only reminder.
func (s *ReminderService) Add(ctx context.Context, req AddRequest) (models.Reminder, error) {
	now := s.now()

	due, caption, ok := s.parser.Split(req.Tail, now)
	if !ok {
		return models.Reminder{}, models.ErrUnparsable
	}

	// The parser does not reject past instants; whether a time is "too
	// soon" depends on when we check, so the guard lives here.
	if due.Before(now.Add(s.minLead)) {
		return models.Reminder{}, models.ErrTooSoon
	}

	attachmentPath := ""
	if req.AttachmentFileID != "" {
		path, err := s.stageAttachment(ctx, req.AttachmentFileID, req.AttachmentName)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to stage attachment, creating text-only reminder")
		} else {
			attachmentPath = path
		}
	}

	r := models.Reminder{
		ChatID:         req.ChatID,
		DueAt:          due,
		Caption:        caption,
		RequestedBy:    req.RequestedBy,
		RequestedName:  req.RequestedName,
		AttachmentPath: attachmentPath,
		ReplyTo:        req.ReplyTo,
	}

	id, err := s.store.Append(r)
	if err != nil {
		// The record never made it to disk, so nothing owns the staged
		// file anymore.
		if attachmentPath != "" {
			s.stager.Discard(attachmentPath)
		}
		return models.Reminder{}, fmt.Errorf("failed to store reminder: %w", err)
	}
	r.ID = id

	metrics.IncrementCounter("reminders_created_total", nil, "Reminders created")
	metrics.SetGauge("reminders_stored", float64(s.store.Len()), nil, "Reminders currently stored")

	s.logger.WithFields(logrus.Fields{
		"id":    id,
		"dueAt": due,
	}).Info("Reminder created")
	return r, nil
}

func (s *ReminderService) stageAttachment(ctx context.Context, fileID, name string) (string, error) {
	file, err := s.tg.GetFile(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve attachment file: %w", err)
	}
	if name == "" {
		name = filepath.Base(file.FilePath)
	}
	return s.stager.Stage(ctx, s.tg.FileURL(file.FilePath), name)
}

// ListUpcoming returns the strictly future reminders for a chat, soonest
// first.
func (s *ReminderService) ListUpcoming(chatID int64) []models.Reminder {
	return s.store.Upcoming(chatID, s.now())
}

// Delete removes a reminder by ID, restricted to the chat it was created in,
// and discards its staged attachment.
func (s *ReminderService) Delete(id, chatID int64) error {
	r, ok := s.store.Get(id)
	if !ok || r.ChatID != chatID {
		return models.ErrNotFound
	}

	removed, err := s.store.Remove(id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder %d: %w", id, err)
	}
	if !removed {
		return models.ErrNotFound
	}
	if r.AttachmentPath != "" {
		s.stager.Discard(r.AttachmentPath)
	}

	metrics.SetGauge("reminders_stored", float64(s.store.Len()), nil, "Reminders currently stored")
	s.logger.WithField("id", id).Info("Reminder deleted")
	return nil
}
