package constants

// Default scheduler configuration values
const (
	DefaultTickIntervalSec = 30
	DefaultMinLeadTimeSec  = 10
	DefaultSendTimeoutSec  = 30
	DefaultHour            = 9
	DefaultTimezone        = "Europe/Amsterdam"
)

// Default Telegram polling configuration values
const (
	DefaultUpdatePollIntervalSec = 2
	DefaultUpdatePollTimeoutSec  = 30
	DefaultTelegramAPIBaseURL    = "https://api.telegram.org"
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
)

// Default timeout values
const (
	DefaultHTTPTimeoutSec        = 30
	DefaultGracefulShutdownSec   = 30
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultServerPort            = 8082
	ServerErrorChannelSize       = 1
)

// Default media staging values
const (
	DefaultMaxMediaSizeMB      = 50
	DefaultStagedFileMaxAgeHrs = 72
)

// Display rendering limits
const (
	ListCaptionPreviewRunes = 60
	ListMaxEntries          = 50
)
