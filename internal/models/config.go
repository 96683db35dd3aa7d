package models

// Config holds the application configuration
type Config struct {
	Telegram    TelegramConfig  `json:"telegram"`
	Store       StoreConfig     `json:"store"`
	Media       MediaConfig     `json:"media"`
	Scheduler   SchedulerConfig `json:"scheduler"`
	Retry       RetryConfig     `json:"retry"`
	Tracing     TracingConfig   `json:"tracing"`
	Server      ServerConfig    `json:"server"`
	Timezone    string          `json:"timezone"`
	DefaultHour int             `json:"defaultHour"`
	LogLevel    string          `json:"log_level"`
}

// TelegramConfig holds Bot API related configuration. The bot token is
// deliberately absent: it is read from the environment only.
type TelegramConfig struct {
	APIBaseURL      string   `json:"api_base_url"`
	TimeoutMs       int      `json:"timeout_ms"`
	PollIntervalSec int      `json:"pollIntervalSec"`
	PollTimeoutSec  int      `json:"pollTimeoutSec"`
	AllowedChats    []string `json:"allowedChats"`
}

// StoreConfig holds reminder store configuration
type StoreConfig struct {
	Path string `json:"path"`
}

// MediaConfig holds attachment staging configuration
type MediaConfig struct {
	StagingDir string `json:"stagingDir"`
	MaxSizeMB  int    `json:"maxSizeMB"`
}

// SchedulerConfig holds delivery loop configuration
type SchedulerConfig struct {
	TickIntervalSec int `json:"tickIntervalSec"`
	MinLeadTimeSec  int `json:"minLeadTimeSec"`
	SendTimeoutSec  int `json:"sendTimeoutSec"`
}

// RetryConfig holds retry related configuration for the update poller and
// the startup probe.
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	Enabled        bool    `json:"enabled"`
	UseStdout      bool    `json:"use_stdout"`
}

// ServerConfig holds the operational HTTP server configuration
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}
