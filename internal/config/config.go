package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix for every environment variable read by Load.
const EnvPrefix = "UNIDASH"

// Config represents the complete application configuration.
// Leaf fields use split_words instead of explicit envconfig keys: envconfig
// also looks an explicit key up without the prefix, so "PATH" would read the
// shell's $PATH.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Dataset   DatasetConfig   `yaml:"dataset" envconfig:"DATASET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" split_words:"true" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" split_words:"true" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" split_words:"true" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" split_words:"true" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" split_words:"true" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true" default:"true"`
	RPS     float64 `yaml:"rps" split_words:"true" default:"100"`
	Burst   int     `yaml:"burst" split_words:"true" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" default:"info"`
	Format   string `yaml:"format" split_words:"true" default:"json"`
	Output   string `yaml:"output" split_words:"true" default:"console"`
	FilePath string `yaml:"file_path" split_words:"true" default:"logs/unidash.log"`
}

// DatasetConfig locates the admissions dataset loaded at startup.
type DatasetConfig struct {
	Path      string `yaml:"path" split_words:"true" default:"university_student_dashboard_data.csv"`
	Delimiter string `yaml:"delimiter" split_words:"true" default:","`
	Sheet     string `yaml:"sheet" split_words:"true"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" split_words:"true" default:"development"`
	EnableTracing  bool    `yaml:"enable_tracing" split_words:"true" default:"true"`
	EnableMetrics  bool    `yaml:"enable_metrics" split_words:"true" default:"true"`
	TraceExporter  string  `yaml:"trace_exporter" split_words:"true" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" split_words:"true" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" split_words:"true" default:"1.0"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" split_words:"true" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" split_words:"true" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" split_words:"true" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" split_words:"true" default:"60s"`
	MaxMessageSize  int64         `yaml:"max_message_size" split_words:"true" default:"4096"`
}

// Load loads configuration from a .env file, environment variables and an
// optional YAML config file. Environment values take precedence over the file.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFile loads configuration from a specific YAML file on top of defaults.
func LoadFile(path string) (*Config, error) {
	fileConfig, err := loadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}
	cfg := mergeConfigs(*fileConfig, *Default())
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs overlays file values onto base wherever an environment
// variable did not explicitly set the field.
func mergeConfigs(fileConfig, base Config) Config {
	set := func(key string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + key)
		return ok
	}

	if fileConfig.Server.Port != 0 && !set("SERVER_PORT") {
		base.Server.Port = fileConfig.Server.Port
	}
	if fileConfig.Server.ReadTimeout != 0 && !set("SERVER_READ_TIMEOUT") {
		base.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if fileConfig.Server.WriteTimeout != 0 && !set("SERVER_WRITE_TIMEOUT") {
		base.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if fileConfig.Server.RequestTimeout != 0 && !set("SERVER_REQUEST_TIMEOUT") {
		base.Server.RequestTimeout = fileConfig.Server.RequestTimeout
	}
	if len(fileConfig.Security.AllowedOrigins) > 0 && !set("SECURITY_ALLOWED_ORIGINS") {
		base.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	if fileConfig.Logging.Level != "" && !set("LOGGING_LEVEL") {
		base.Logging.Level = fileConfig.Logging.Level
	}
	if fileConfig.Logging.Output != "" && !set("LOGGING_OUTPUT") {
		base.Logging.Output = fileConfig.Logging.Output
	}
	if fileConfig.Logging.FilePath != "" && !set("LOGGING_FILE_PATH") {
		base.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if fileConfig.Dataset.Path != "" && !set("DATASET_PATH") {
		base.Dataset.Path = fileConfig.Dataset.Path
	}
	if fileConfig.Dataset.Delimiter != "" && !set("DATASET_DELIMITER") {
		base.Dataset.Delimiter = fileConfig.Dataset.Delimiter
	}
	if fileConfig.Dataset.Sheet != "" && !set("DATASET_SHEET") {
		base.Dataset.Sheet = fileConfig.Dataset.Sheet
	}
	if fileConfig.Telemetry.TraceExporter != "" && !set("TELEMETRY_TRACE_EXPORTER") {
		base.Telemetry.TraceExporter = fileConfig.Telemetry.TraceExporter
	}
	if fileConfig.Telemetry.MetricExporter != "" && !set("TELEMETRY_METRIC_EXPORTER") {
		base.Telemetry.MetricExporter = fileConfig.Telemetry.MetricExporter
	}
	if fileConfig.Telemetry.Environment != "" && !set("TELEMETRY_ENVIRONMENT") {
		base.Telemetry.Environment = fileConfig.Telemetry.Environment
	}

	return base
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

	if strings.TrimSpace(c.Dataset.Path) == "" {
		return fmt.Errorf("dataset path must not be empty")
	}

	if len([]rune(c.Dataset.Delimiter)) != 1 {
		return fmt.Errorf("dataset delimiter must be a single character, got %q", c.Dataset.Delimiter)
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}

	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", c.Telemetry.MetricExporter)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0,1], got %v", c.Telemetry.SampleRatio)
	}

	// JSON is the only supported log format
	c.Logging.Format = "json"

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/unidash.log"
	}

	return nil
}

// DelimiterRune returns the dataset delimiter as a rune.
func (c DatasetConfig) DelimiterRune() rune {
	r := []rune(c.Delimiter)
	if len(r) == 0 {
		return ','
	}
	return r[0]
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	if paths, err := GetPaths(); err == nil {
		locations = append(locations, filepath.Join(paths.ExecutableDir, "config.yaml"))
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
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
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
			Format:   "json",
			Output:   "console",
			FilePath: "logs/unidash.log",
		},
		Dataset: DatasetConfig{
			Path:      DefaultDatasetFile,
			Delimiter: ",",
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			EnableTracing:  true,
			EnableMetrics:  true,
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
			MaxMessageSize:  4096,
		},
	}
}
