// Package store is the durable home of reminder records. The whole
// collection lives in memory behind one lock and is written to disk as a
// single JSON snapshot, replaced atomically on every mutation.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"remindbot/internal/models"

	"github.com/sirupsen/logrus"
)

// layoutNaive matches timestamps persisted by older revisions without zone
// information. They were always UTC; loading repairs them once.
const layoutNaive = "2006-01-02T15:04:05"

// Store owns the reminder collection and the ID counter. All reads and
// writes of the collection go through its methods; disk writes happen on a
// copied snapshot so foreground calls are never blocked on I/O.
type Store struct {
	path   string
	logger *logrus.Logger

	// fileMu serializes snapshot writes and orders them with the
	// mutations that produced them. Acquired before mu, never by readers.
	fileMu sync.Mutex

	mu        sync.RWMutex
	reminders []models.Reminder
	nextID    int64
}

// New creates a store backed by the JSON snapshot at path. Call Load before
// using it.
func New(path string, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		path:   path,
		logger: logger,
		nextID: 1,
	}
}

// storedReminder is the on-disk shape. DueAt is a string so that malformed
// or legacy timestamps can be handled per record instead of failing the
// whole file.
type storedReminder struct {
	ID             int64  `json:"id"`
	ChatID         int64  `json:"chat_id"`
	DueAt          string `json:"due_at"`
	Caption        string `json:"caption"`
	RequestedBy    int64  `json:"requested_by"`
	RequestedName  string `json:"requested_name,omitempty"`
	AttachmentPath string `json:"attachment_path,omitempty"`
	ReplyTo        int64  `json:"reply_to,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// Load reads the snapshot, dropping records that cannot be salvaged and
// repairing zone-naive timestamps. A missing file is an empty store. The
// ID counter is seeded to one past the highest ID seen.
func (s *Store) Load() error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.WithField("path", s.path).Info("No reminder snapshot found, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read reminder snapshot: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("reminder snapshot is not a JSON array: %w", err)
	}

	var (
		loaded   []models.Reminder
		maxID    int64
		dropped  int
		repaired int
	)
	for i, item := range raw {
		r, wasNaive, err := decodeStored(item)
		if err != nil {
			dropped++
			s.logger.WithError(err).WithField("index", i).Warn("Dropping unreadable reminder record")
			continue
		}
		if wasNaive {
			repaired++
			s.logger.WithField("id", r.ID).Warn("Repaired zone-naive due time, assuming UTC")
		}
		loaded = append(loaded, r)
		if r.ID > maxID {
			maxID = r.ID
		}
	}

	s.mu.Lock()
	s.reminders = loaded
	s.nextID = maxID + 1
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"loaded":  len(loaded),
		"dropped": dropped,
		"nextID":  s.nextID,
	}).Info("Reminder snapshot loaded")

	if repaired > 0 {
		if err := s.writeSnapshot(snapshot); err != nil {
			return fmt.Errorf("failed to re-persist repaired snapshot: %w", err)
		}
	}
	return nil
}

func decodeStored(item json.RawMessage) (models.Reminder, bool, error) {
	var sr storedReminder
	if err := json.Unmarshal(item, &sr); err != nil {
		return models.Reminder{}, false, fmt.Errorf("not a reminder object: %w", err)
	}
	if sr.ID <= 0 {
		return models.Reminder{}, false, fmt.Errorf("missing or invalid id")
	}
	if sr.ChatID == 0 {
		return models.Reminder{}, false, fmt.Errorf("reminder %d has no chat", sr.ID)
	}

	wasNaive := false
	due, err := time.Parse(time.RFC3339, sr.DueAt)
	if err != nil {
		due, err = time.ParseInLocation(layoutNaive, sr.DueAt, time.UTC)
		if err != nil {
			return models.Reminder{}, false, fmt.Errorf("reminder %d has malformed due time %q", sr.ID, sr.DueAt)
		}
		wasNaive = true
	}

	var created time.Time
	if sr.CreatedAt != "" {
		created, _ = time.Parse(time.RFC3339, sr.CreatedAt)
	}

	return models.Reminder{
		ID:             sr.ID,
		ChatID:         sr.ChatID,
		DueAt:          due.UTC(),
		Caption:        sr.Caption,
		RequestedBy:    sr.RequestedBy,
		RequestedName:  sr.RequestedName,
		AttachmentPath: sr.AttachmentPath,
		ReplyTo:        sr.ReplyTo,
		CreatedAt:      created.UTC(),
	}, wasNaive, nil
}

// Append assigns the next ID, stores the record, and persists the snapshot
// synchronously. On a persist error the record stays in memory (the previous
// on-disk snapshot is still valid) and the error is reported to the caller.
func (s *Store) Append(r models.Reminder) (int64, error) {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	s.mu.Lock()
	r.ID = s.nextID
	s.nextID++
	r.DueAt = r.DueAt.UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.reminders = append(s.reminders, r)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.writeSnapshot(snapshot); err != nil {
		return r.ID, fmt.Errorf("failed to persist reminder %d: %w", r.ID, err)
	}
	return r.ID, nil
}

// Remove deletes the record with the given ID and persists the snapshot.
// It reports whether the ID existed. IDs are never reused.
func (s *Store) Remove(id int64) (bool, error) {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	s.mu.Lock()
	found := false
	for i, r := range s.reminders {
		if r.ID == id {
			s.reminders = append(s.reminders[:i], s.reminders[i+1:]...)
			found = true
			break
		}
	}
	var snapshot []models.Reminder
	if found {
		snapshot = s.snapshotLocked()
	}
	s.mu.Unlock()

	if !found {
		return false, nil
	}
	if err := s.writeSnapshot(snapshot); err != nil {
		return true, fmt.Errorf("failed to persist removal of reminder %d: %w", id, err)
	}
	return true, nil
}

// Get returns the record with the given ID.
func (s *Store) Get(id int64) (models.Reminder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reminders {
		if r.ID == id {
			return r, true
		}
	}
	return models.Reminder{}, false
}

// Due returns a copy of every record whose due time is at or before asOf.
func (s *Store) Due(asOf time.Time) []models.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []models.Reminder
	for _, r := range s.reminders {
		if r.Due(asOf) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].DueAt.Before(due[j].DueAt) })
	return due
}

// Upcoming returns the strictly future records for one chat, soonest first.
// chatID zero means all chats. Past records never appear here, even before
// the scheduler has processed them.
func (s *Store) Upcoming(chatID int64, asOf time.Time) []models.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var upcoming []models.Reminder
	for _, r := range s.reminders {
		if chatID != 0 && r.ChatID != chatID {
			continue
		}
		if r.DueAt.After(asOf) {
			upcoming = append(upcoming, r)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].DueAt.Before(upcoming[j].DueAt) })
	return upcoming
}

// AttachmentPaths returns the staged attachment paths referenced by live
// records. The media sweep must not touch these.
func (s *Store) AttachmentPaths() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make(map[string]struct{})
	for _, r := range s.reminders {
		if r.AttachmentPath != "" {
			paths[r.AttachmentPath] = struct{}{}
		}
	}
	return paths
}

// Len returns the number of records currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reminders)
}

func (s *Store) snapshotLocked() []models.Reminder {
	snapshot := make([]models.Reminder, len(s.reminders))
	copy(snapshot, s.reminders)
	return snapshot
}

// writeSnapshot writes the whole collection to a fresh temp file and renames
// it over the canonical path, so a crash mid-write leaves the previous
// complete snapshot intact. Callers hold fileMu.
func (s *Store) writeSnapshot(reminders []models.Reminder) error {
	stored := make([]storedReminder, 0, len(reminders))
	for _, r := range reminders {
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.UTC().Format(time.RFC3339)
		}
		stored = append(stored, storedReminder{
			ID:             r.ID,
			ChatID:         r.ChatID,
			DueAt:          r.DueAt.UTC().Format(time.RFC3339),
			Caption:        r.Caption,
			RequestedBy:    r.RequestedBy,
			RequestedName:  r.RequestedName,
			AttachmentPath: r.AttachmentPath,
			ReplyTo:        r.ReplyTo,
			CreatedAt:      created,
		})
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal reminders: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
