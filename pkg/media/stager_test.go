package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStager(t *testing.T) (Stager, string) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	dir := filepath.Join(t.TempDir(), "staging")
	s, err := NewStager(dir, 1, logger)
	require.NoError(t, err)
	return s, dir
}

func serveContent(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestStage_DownloadsUnderRandomName(t *testing.T) {
	s, dir := newTestStager(t)
	server := serveContent(t, "file body")

	path, err := s.Stage(context.Background(), server.URL, "report.PDF")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".pdf"), "extension must be kept, lowercased: %s", path)
	assert.NotContains(t, filepath.Base(path), "report")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file body", string(data))
}

func TestStage_DistinctNamesForSameSource(t *testing.T) {
	s, _ := newTestStager(t)
	server := serveContent(t, "same body")

	first, err := s.Stage(context.Background(), server.URL, "a.jpg")
	require.NoError(t, err)
	second, err := s.Stage(context.Background(), server.URL, "a.jpg")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestStage_RejectsOversizedFile(t *testing.T) {
	s, dir := newTestStager(t)
	server := serveContent(t, strings.Repeat("x", 1024*1024+1))

	_, err := s.Stage(context.Background(), server.URL, "big.bin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "byte limit")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "oversized download must not leave a partial file")
}

func TestStage_RejectsDisallowedExtension(t *testing.T) {
	s, dir := newTestStager(t)
	server := serveContent(t, "#!/bin/sh")

	_, err := s.Stage(context.Background(), server.URL, "payload.exe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStage_NameWithoutExtension(t *testing.T) {
	s, _ := newTestStager(t)
	server := serveContent(t, "raw bytes")

	path, err := s.Stage(context.Background(), server.URL, "README")
	require.NoError(t, err)
	assert.Empty(t, filepath.Ext(path))
}

func TestStage_RejectsNonOKStatus(t *testing.T) {
	s, _ := newTestStager(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	_, err := s.Stage(context.Background(), server.URL, "gone.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestDiscard_RemovesStagedFile(t *testing.T) {
	s, _ := newTestStager(t)
	server := serveContent(t, "short lived")

	path, err := s.Stage(context.Background(), server.URL, "note.txt")
	require.NoError(t, err)

	s.Discard(path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Discarding again, or discarding nothing, is harmless.
	s.Discard(path)
	s.Discard("")
}

func TestDiscard_RefusesPathsOutsideStagingDir(t *testing.T) {
	s, _ := newTestStager(t)

	victim := filepath.Join(t.TempDir(), "precious.txt")
	require.NoError(t, os.WriteFile(victim, []byte("keep me"), 0600))

	s.Discard(victim)

	_, err := os.Stat(victim)
	assert.NoError(t, err, "files outside the staging dir must never be removed")
}

func TestCleanupOldFiles(t *testing.T) {
	s, dir := newTestStager(t)

	oldPath := filepath.Join(dir, "old.bin")
	require.NoError(t, os.WriteFile(oldPath, []byte("stale"), 0600))
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))

	freshPath := filepath.Join(dir, "fresh.bin")
	require.NoError(t, os.WriteFile(freshPath, []byte("new"), 0600))

	require.NoError(t, s.CleanupOldFiles(24*time.Hour, nil))

	_, err := os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshPath)
	assert.NoError(t, err)
}

func TestCleanupOldFiles_KeepsReferencedAttachments(t *testing.T) {
	s, dir := newTestStager(t)

	// Both files are past the cutoff; only the unreferenced one may go.
	// A reminder scheduled weeks ahead keeps its attachment across
	// restarts no matter how old the file gets.
	keptPath := filepath.Join(dir, "kept.pdf")
	orphanPath := filepath.Join(dir, "orphan.pdf")
	stale := time.Now().Add(-200 * time.Hour)
	for _, path := range []string{keptPath, orphanPath} {
		require.NoError(t, os.WriteFile(path, []byte("aged"), 0600))
		require.NoError(t, os.Chtimes(path, stale, stale))
	}

	inUse := map[string]struct{}{keptPath: {}}
	require.NoError(t, s.CleanupOldFiles(72*time.Hour, inUse))

	_, err := os.Stat(keptPath)
	assert.NoError(t, err, "referenced attachment must survive the sweep")
	_, err = os.Stat(orphanPath)
	assert.True(t, os.IsNotExist(err))
}
