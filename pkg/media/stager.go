// Package media stages reminder attachments on local disk between the "add"
// command and delivery. Once a reminder is created the staged file belongs
// to the delivery path: it is kept across transient retries and discarded
// only after a terminal outcome or an explicit delete.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"remindbot/internal/security"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Stager downloads and retires staged attachment files.
type Stager interface {
	Stage(ctx context.Context, url, suggestedName string) (string, error)
	Discard(path string)
	CleanupOldFiles(maxAge time.Duration, inUse map[string]struct{}) error
}

// allowedExtensions are the attachment types the bot stages, checked
// case-insensitively against the suggested file name. A name without an
// extension is staged without one.
var allowedExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
	".mp4": {}, ".mov": {}, ".avi": {}, ".webm": {},
	".mp3": {}, ".ogg": {}, ".m4a": {}, ".wav": {},
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {},
	".ppt": {}, ".pptx": {}, ".odt": {}, ".txt": {}, ".csv": {},
	".zip": {}, ".7z": {}, ".tar": {}, ".gz": {},
}

type stager struct {
	dir        string
	maxSize    int64
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewStager creates a stager rooted at dir, creating it if needed. maxSizeMB
// bounds a single staged file.
func NewStager(dir string, maxSizeMB int, logger *logrus.Logger) (Stager, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &stager{
		dir:        dir,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}, nil
}

// Stage downloads url into the staging dir under a random name, keeping the
// original extension so the destination can infer the content type.
func (s *stager) Stage(ctx context.Context, url, suggestedName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(suggestedName))
	if ext != "" {
		if _, ok := allowedExtensions[ext]; !ok {
			return "", fmt.Errorf("attachment type %s is not allowed", ext)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("attachment download failed with status %d", resp.StatusCode)
	}

	name := uuid.New().String() + ext
	path := filepath.Join(s.dir, name)

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create staged file: %w", err)
	}

	written, err := io.Copy(out, io.LimitReader(resp.Body, s.maxSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write staged file: %w", err)
	}
	if written > s.maxSize {
		os.Remove(path)
		return "", fmt.Errorf("attachment exceeds %d byte limit", s.maxSize)
	}

	s.logger.WithFields(logrus.Fields{
		"path": path,
		"size": written,
	}).Debug("Staged attachment")
	return path, nil
}

// Discard deletes a staged file. A missing file is not an error: delivery
// and explicit deletion may race benignly.
func (s *stager) Discard(path string) {
	if path == "" {
		return
	}
	if err := security.ValidateWithinBase(path, s.dir); err != nil {
		s.logger.WithError(err).WithField("path", path).Warn("Refusing to discard file outside staging dir")
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.WithError(err).WithField("path", path).Warn("Failed to remove staged file")
	}
}

// CleanupOldFiles removes staged files older than maxAge. Run at startup to
// sweep orphans left by reminders that no longer exist. Files in the inUse
// set belong to live reminders and are kept regardless of age: a reminder
// scheduled far in the future still owns its attachment until delivery.
func (s *stager) CleanupOldFiles(maxAge time.Duration, inUse map[string]struct{}) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read staging directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if _, referenced := inUse[path]; referenced {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("Cleaned up old staged attachments")
	}
	return nil
}
