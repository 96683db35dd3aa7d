package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"remindbot/internal/constants"
	"remindbot/internal/metrics"
	"remindbot/internal/models"
	"remindbot/internal/privacy"
	"remindbot/pkg/telegram"
	"remindbot/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

// Command patterns tolerate the historical spellings: space or underscore,
// short and long forms.
var (
	cmdAdd  = regexp.MustCompile(`(?is)^/add[_ ]?reminder\s+(.+)$`)
	cmdList = regexp.MustCompile(`(?i)^/list(?:[_ ]?reminders)?$`)
	cmdDel  = regexp.MustCompile(`(?i)^/(?:delete|del)[_ ]?reminder\s+(\d+)$`)
	cmdHelp = regexp.MustCompile(`(?i)^/help(?:[_ ]?reminder)?$`)
)

const helpText = `Available commands:

🗓 /add_reminder <date/time> <message> – create a new reminder
📋 /list_reminders – list upcoming reminders
🗑 /delete_reminder <ID> – remove a reminder by its ID`

const usageText = "⚠️ Usage: `/add_reminder <date/time> <message>`\nExample: `/add_reminder tomorrow 9am Check backup`"

// allowlist restricts commands to configured chats. Empty means all chats.
type allowlist struct {
	ids       map[int64]struct{}
	usernames map[string]struct{}
}

func newAllowlist(entries []string) allowlist {
	al := allowlist{
		ids:       make(map[int64]struct{}),
		usernames: make(map[string]struct{}),
	}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if id, err := strconv.ParseInt(entry, 10, 64); err == nil {
			al.ids[id] = struct{}{}
			continue
		}
		al.usernames[strings.ToLower(strings.TrimPrefix(entry, "@"))] = struct{}{}
	}
	return al
}

func (al allowlist) allows(chat types.Chat) bool {
	if len(al.ids) == 0 && len(al.usernames) == 0 {
		return true
	}
	if _, ok := al.ids[chat.ID]; ok {
		return true
	}
	if chat.Username != "" {
		if _, ok := al.usernames[strings.ToLower(chat.Username)]; ok {
			return true
		}
	}
	return false
}

// CommandHandler matches incoming messages against the command patterns and
// executes them. Everything that is not a recognized command in an allowed
// chat is ignored.
type CommandHandler struct {
	svc     *ReminderService
	tg      telegram.Client
	loc     *time.Location
	allowed allowlist
	logger  *logrus.Logger
}

// NewCommandHandler creates the chat command layer. loc is the display
// timezone used to render confirmations and listings.
func NewCommandHandler(svc *ReminderService, tg telegram.Client, loc *time.Location, allowedChats []string, logger *logrus.Logger) *CommandHandler {
	return &CommandHandler{
		svc:     svc,
		tg:      tg,
		loc:     loc,
		allowed: newAllowlist(allowedChats),
		logger:  logger,
	}
}

// HandleUpdate dispatches one update to its command handler.
func (h *CommandHandler) HandleUpdate(ctx context.Context, update types.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" && msg.Caption == "" {
		return
	}

	text := msg.Text
	if text == "" {
		// Media messages carry the command in the caption.
		text = msg.Caption
	}
	if !strings.HasPrefix(text, "/") {
		return
	}

	if !h.allowed.allows(msg.Chat) {
		log := h.logger.WithField("chat", privacy.MaskChatID(msg.Chat.ID))
		if msg.Chat.Username != "" {
			log = log.WithField("username", privacy.MaskUsername(msg.Chat.Username))
		}
		log.Debug("Ignoring command from disallowed chat")
		return
	}

	switch {
	case cmdAdd.MatchString(text):
		h.handleAdd(ctx, msg, cmdAdd.FindStringSubmatch(text)[1])
	case cmdList.MatchString(text):
		h.handleList(ctx, msg)
	case cmdDel.MatchString(text):
		h.handleDelete(ctx, msg, cmdDel.FindStringSubmatch(text)[1])
	case cmdHelp.MatchString(text):
		h.reply(ctx, msg, helpText)
	case strings.HasPrefix(strings.ToLower(text), "/add"):
		h.reply(ctx, msg, usageText)
	}
}

func (h *CommandHandler) handleAdd(ctx context.Context, msg *types.Message, tail string) {
	metrics.IncrementCounter("commands_total", map[string]string{"command": "add"}, "Commands processed")

	req := AddRequest{
		Tail:   strings.TrimSpace(tail),
		ChatID: msg.Chat.ID,
	}
	if msg.From != nil {
		req.RequestedBy = msg.From.ID
		req.RequestedName = msg.From.FirstName
	}

	// An attachment can ride on the command message itself or on the
	// message it replies to; the reply also becomes the backlink.
	if fileID, name, ok := msg.Attachment(); ok {
		req.AttachmentFileID = fileID
		req.AttachmentName = name
	} else if msg.ReplyTo != nil {
		req.ReplyTo = msg.ReplyTo.MessageID
		if fileID, name, ok := msg.ReplyTo.Attachment(); ok {
			req.AttachmentFileID = fileID
			req.AttachmentName = name
		}
	}

	r, err := h.svc.Add(ctx, req)
	switch {
	case errors.Is(err, models.ErrUnparsable):
		h.reply(ctx, msg, "❌ Couldn't understand the date/time. Try formats like `dd-mm-yyyy hh:mm`, `tomorrow 9am`, `next friday 17:00`.")
		return
	case errors.Is(err, models.ErrTooSoon):
		h.reply(ctx, msg, "⏳ The specified date/time is in the past or too soon!")
		return
	case err != nil:
		h.logger.WithError(err).Error("Failed to create reminder")
		h.reply(ctx, msg, "❌ Failed to save the reminder, please try again.")
		return
	}

	when := r.DueAt.In(h.loc).Format("02-01-2006 15:04 MST")
	h.reply(ctx, msg, fmt.Sprintf("✅ Reminder scheduled! (ID: %d)\nTime: *%s*", r.ID, when))
}

func (h *CommandHandler) handleList(ctx context.Context, msg *types.Message) {
	metrics.IncrementCounter("commands_total", map[string]string{"command": "list"}, "Commands processed")

	upcoming := h.svc.ListUpcoming(msg.Chat.ID)
	if len(upcoming) == 0 {
		h.reply(ctx, msg, "ℹ️ You have no upcoming reminders scheduled.")
		return
	}

	lines := []string{"*🗓 Upcoming Reminders:*"}
	for i, r := range upcoming {
		if i == constants.ListMaxEntries {
			lines = append(lines, fmt.Sprintf("… and %d more", len(upcoming)-constants.ListMaxEntries))
			break
		}
		caption := r.Caption
		if caption == "" {
			caption = "No text"
		}
		if runes := []rune(caption); len(runes) > constants.ListCaptionPreviewRunes {
			caption = string(runes[:constants.ListCaptionPreviewRunes-3]) + "..."
		}
		when := r.DueAt.In(h.loc).Format("02-01-06 15:04 MST")
		lines = append(lines, fmt.Sprintf(" • ID *%d*: `%s` - _%s_", r.ID, when, caption))
	}
	h.reply(ctx, msg, strings.Join(lines, "\n"))
}

func (h *CommandHandler) handleDelete(ctx context.Context, msg *types.Message, rawID string) {
	metrics.IncrementCounter("commands_total", map[string]string{"command": "delete"}, "Commands processed")

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		h.reply(ctx, msg, "❌ Invalid reminder ID. It must be a number.")
		return
	}

	switch err := h.svc.Delete(id, msg.Chat.ID); {
	case errors.Is(err, models.ErrNotFound):
		h.reply(ctx, msg, fmt.Sprintf("❌ No active reminder found with ID *%d*.", id))
	case err != nil:
		h.logger.WithError(err).Error("Failed to delete reminder")
		h.reply(ctx, msg, "❌ Failed to delete the reminder, please try again.")
	default:
		h.reply(ctx, msg, fmt.Sprintf("✅ Reminder ID *%d* deleted.", id))
	}
}

func (h *CommandHandler) reply(ctx context.Context, msg *types.Message, text string) {
	opts := telegram.SendOptions{ParseMode: "Markdown", ReplyTo: msg.MessageID}
	if _, err := h.tg.SendMessage(ctx, msg.Chat.ID, text, opts); err != nil {
		h.logger.WithError(err).WithField("chat", privacy.MaskChatID(msg.Chat.ID)).Warn("Failed to send reply")
	}
}
