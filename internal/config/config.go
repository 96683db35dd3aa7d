package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"remindbot/internal/constants"
	"remindbot/internal/models"
	"remindbot/internal/security"
)

var (
	ErrMissingStorePath = models.ConfigError{Message: "missing reminder store path"}
	ErrMissingMediaDir  = models.ConfigError{Message: "missing media staging directory"}
)

// LoadConfig reads and validates the JSON configuration file, fills in
// defaults, and applies environment overrides. The bot token is environment
// only and never part of the file.
func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func validate(c *models.Config) error {
	if c.Store.Path == "" {
		return ErrMissingStorePath
	}
	if c.Media.StagingDir == "" {
		return ErrMissingMediaDir
	}

	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = constants.DefaultTelegramAPIBaseURL
	}
	if c.Telegram.PollIntervalSec <= 0 {
		c.Telegram.PollIntervalSec = constants.DefaultUpdatePollIntervalSec
	}
	if c.Telegram.PollTimeoutSec <= 0 {
		c.Telegram.PollTimeoutSec = constants.DefaultUpdatePollTimeoutSec
	}
	if c.Telegram.TimeoutMs <= 0 {
		c.Telegram.TimeoutMs = constants.DefaultHTTPTimeoutSec * 1000
	}

	if c.Scheduler.TickIntervalSec <= 0 {
		c.Scheduler.TickIntervalSec = constants.DefaultTickIntervalSec
	}
	if c.Scheduler.MinLeadTimeSec <= 0 {
		c.Scheduler.MinLeadTimeSec = constants.DefaultMinLeadTimeSec
	}
	if c.Scheduler.SendTimeoutSec <= 0 {
		c.Scheduler.SendTimeoutSec = constants.DefaultSendTimeoutSec
	}

	if c.Timezone == "" {
		c.Timezone = constants.DefaultTimezone
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("unknown timezone %q", c.Timezone)}
	}
	if c.DefaultHour <= 0 || c.DefaultHour > 23 {
		c.DefaultHour = constants.DefaultHour
	}

	if c.Media.MaxSizeMB <= 0 {
		c.Media.MaxSizeMB = constants.DefaultMaxMediaSizeMB
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("TELEGRAM_API_URL"); url != "" {
		c.Telegram.APIBaseURL = url
	}
	if path := os.Getenv("REMINDBOT_STORE_PATH"); path != "" {
		c.Store.Path = path
	}
	if dir := os.Getenv("REMINDBOT_MEDIA_DIR"); dir != "" {
		c.Media.StagingDir = dir
	}
	if tz := os.Getenv("REMINDBOT_TIMEZONE"); tz != "" {
		c.Timezone = tz
	}
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			c.Server.Port = n
		}
	}
}
