package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. ALLOCDASH_SERVER_PORT
const EnvPrefix = "ALLOCDASH"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"ENABLED"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string `yaml:"environment" envconfig:"ENVIRONMENT"`
}

// DataConfig locates the source workbooks. Locations are paths relative
// to Dir, absolute paths, or s3://bucket/key URLs.
type DataConfig struct {
	Dir                 string `yaml:"dir" envconfig:"DIR"`
	CorrelationWorkbook string `yaml:"correlation_workbook" envconfig:"CORRELATION_WORKBOOK"`
	StressWorkbook      string `yaml:"stress_workbook" envconfig:"STRESS_WORKBOOK"`
	ExposureWorkbook    string `yaml:"exposure_workbook" envconfig:"EXPOSURE_WORKBOOK"`
	LegendWorkbook      string `yaml:"legend_workbook" envconfig:"LEGEND_WORKBOOK"`

	CorrelationSheet    string `yaml:"correlation_sheet" envconfig:"CORRELATION_SHEET"`
	ExposureSheet       string `yaml:"exposure_sheet" envconfig:"EXPOSURE_SHEET"`
	LegendNamesSheet    string `yaml:"legend_names_sheet" envconfig:"LEGEND_NAMES_SHEET"`
	LegendScenarioSheet string `yaml:"legend_scenario_sheet" envconfig:"LEGEND_SCENARIO_SHEET"`

	// DefaultSubject is the analysis portfolio when a request names none
	DefaultSubject string `yaml:"default_subject" envconfig:"DEFAULT_SUBJECT"`
	// ReloadSchedule is a cron expression with seconds; empty disables it
	ReloadSchedule string `yaml:"reload_schedule" envconfig:"RELOAD_SCHEDULE"`
	S3Region       string `yaml:"s3_region" envconfig:"S3_REGION"`
	ExportDir      string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
}

// UsesS3 reports whether any workbook location is remote
func (d DataConfig) UsesS3() bool {
	for _, loc := range []string{d.CorrelationWorkbook, d.StressWorkbook, d.ExposureWorkbook, d.LegendWorkbook} {
		if strings.HasPrefix(loc, "s3://") {
			return true
		}
	}
	return false
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in increasing order of precedence. A .env file in the
// working directory is loaded into the environment first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configFile, err)
		}
	}

	// Fields carry no default tags, so only variables that are set
	// override what the defaults and the file provided.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q", c.Logging.Output)
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging file path required for output %q", c.Logging.Output)
	}

	if c.Data.CorrelationSheet == "" || c.Data.ExposureSheet == "" {
		return fmt.Errorf("correlation and exposure sheet names must be set")
	}

	return nil
}

// getConfigFilePath returns the path to the config file, or "" when none
// exists
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/allocdash.log",
		},
		Telemetry: TelemetryConfig{
			Enabled:        true,
			TracingEnabled: false,
			MetricsEnabled: true,
			ServiceName:    AppName,
			Environment:    "development",
		},
		Data: DataConfig{
			Dir:                 DefaultDataDir,
			CorrelationWorkbook: DefaultCorrelationWorkbook,
			StressWorkbook:      DefaultStressWorkbook,
			ExposureWorkbook:    DefaultExposureWorkbook,
			LegendWorkbook:      DefaultLegendWorkbook,
			CorrelationSheet:    DefaultCorrelationSheet,
			ExposureSheet:       DefaultExposureSheet,
			LegendNamesSheet:    DefaultLegendNamesSheet,
			LegendScenarioSheet: DefaultLegendScenarioSheet,
			DefaultSubject:      DefaultSubject,
			ExportDir:           DefaultExportDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
	}
}
