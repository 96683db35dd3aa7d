package config

import (
	"os"
	"path/filepath"
	"testing"

	"remindbot/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const minimalConfig = `{
	"store": {"path": "/var/lib/remindbot/reminders.json"},
	"media": {"stagingDir": "/var/lib/remindbot/media"}
}`

func TestLoadConfig_MinimalGetsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultTelegramAPIBaseURL, cfg.Telegram.APIBaseURL)
	assert.Equal(t, constants.DefaultUpdatePollTimeoutSec, cfg.Telegram.PollTimeoutSec)
	assert.Equal(t, constants.DefaultTickIntervalSec, cfg.Scheduler.TickIntervalSec)
	assert.Equal(t, constants.DefaultMinLeadTimeSec, cfg.Scheduler.MinLeadTimeSec)
	assert.Equal(t, constants.DefaultTimezone, cfg.Timezone)
	assert.Equal(t, constants.DefaultHour, cfg.DefaultHour)
	assert.Equal(t, constants.DefaultMaxMediaSizeMB, cfg.Media.MaxSizeMB)
	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultMaxAttempts, cfg.Retry.MaxAttempts)
}

func TestLoadConfig_ExplicitValuesKept(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{
		"telegram": {"pollTimeoutSec": 10, "allowedChats": ["-1001234", "@ops"]},
		"store": {"path": "/data/reminders.json"},
		"media": {"stagingDir": "/data/media", "maxSizeMB": 5},
		"scheduler": {"tickIntervalSec": 15, "minLeadTimeSec": 60},
		"timezone": "UTC",
		"defaultHour": 8
	}`))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Telegram.PollTimeoutSec)
	assert.Equal(t, []string{"-1001234", "@ops"}, cfg.Telegram.AllowedChats)
	assert.Equal(t, 15, cfg.Scheduler.TickIntervalSec)
	assert.Equal(t, 60, cfg.Scheduler.MinLeadTimeSec)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 8, cfg.DefaultHour)
	assert.Equal(t, 5, cfg.Media.MaxSizeMB)
}

func TestLoadConfig_MissingRequiredFields(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{"media": {"stagingDir": "/data/media"}}`))
	assert.ErrorIs(t, err, ErrMissingStorePath)

	_, err = LoadConfig(writeConfig(t, `{"store": {"path": "/data/reminders.json"}}`))
	assert.ErrorIs(t, err, ErrMissingMediaDir)
}

func TestLoadConfig_UnknownTimezoneRejected(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{
		"store": {"path": "/data/reminders.json"},
		"media": {"stagingDir": "/data/media"},
		"timezone": "Mars/Olympus_Mons"
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown timezone")
}

func TestLoadConfig_OutOfRangeDefaultHourFallsBack(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{
		"store": {"path": "/data/reminders.json"},
		"media": {"stagingDir": "/data/media"},
		"defaultHour": 27
	}`))
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultHour, cfg.DefaultHour)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_API_URL", "http://localhost:8081")
	t.Setenv("REMINDBOT_STORE_PATH", "/override/reminders.json")
	t.Setenv("REMINDBOT_MEDIA_DIR", "/override/media")
	t.Setenv("REMINDBOT_TIMEZONE", "America/New_York")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8081", cfg.Telegram.APIBaseURL)
	assert.Equal(t, "/override/reminders.json", cfg.Store.Path)
	assert.Equal(t, "/override/media", cfg.Media.StagingDir)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfig_BadInput(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `not json`))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig("../../../etc/passwd")
	assert.Error(t, err)
}
