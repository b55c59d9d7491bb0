package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "maestro.yaml"

// CLIFlags holds command-line overrides. Nil pointers mean "not set".
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	LogLevel   *string
	NatsURL    *string
	PolicyFile *string
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// LoadWithCLI returns a Config using the full hierarchy
// defaults < YAML < ENV < CLI, plus the YAML path that was consulted.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if flags.ConfigPath != nil {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, "", fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, "", fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}

// ParseFlags parses command-line arguments into CLIFlags.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("maestro", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(configPath, "c", "", "path to YAML config file (shorthand)")
	port := fs.String("port", "", "HTTP listen port")
	fs.StringVar(port, "p", "", "HTTP listen port (shorthand)")
	logLevel := fs.String("log-level", "", "log level (debug|info|warn|error)")
	natsURL := fs.String("nats-url", "", "NATS server URL")
	policyFile := fs.String("policy-file", "", "intent policy YAML path")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, fmt.Errorf("parse flags: %w", err)
	}

	var flags CLIFlags
	if *configPath != "" {
		flags.ConfigPath = configPath
	}
	if *port != "" {
		flags.Port = port
	}
	if *logLevel != "" {
		flags.LogLevel = logLevel
	}
	if *natsURL != "" {
		flags.NatsURL = natsURL
	}
	if *policyFile != "" {
		flags.PolicyFile = policyFile
	}
	return flags, nil
}

// applyCLI overlays set CLI flags onto cfg. CLI wins over ENV and YAML.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.NatsURL != nil {
		cfg.NATS.URL = *flags.NatsURL
	}
	if flags.PolicyFile != nil {
		cfg.Routing.PolicyFile = *flags.PolicyFile
	}
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "MAESTRO_PORT")
	setString(&cfg.Server.BaseURL, "MAESTRO_BASE_URL")
	setString(&cfg.Server.CORSOrigin, "MAESTRO_CORS_ORIGIN")
	setString(&cfg.Logging.Level, "MAESTRO_LOG_LEVEL")
	setString(&cfg.Logging.Format, "MAESTRO_LOG_FORMAT")
	setString(&cfg.Logging.Service, "MAESTRO_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "MAESTRO_LOG_ASYNC")
	setBool(&cfg.NATS.Enabled, "MAESTRO_NATS_ENABLED")
	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.Cache.Enabled, "MAESTRO_CACHE_ENABLED")
	setInt64(&cfg.Cache.MaxSizeMB, "MAESTRO_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.ResearchTTL, "MAESTRO_CACHE_RESEARCH_TTL")
	setString(&cfg.Research.SearchURL, "MAESTRO_SEARCH_URL")
	setDuration(&cfg.Research.Timeout, "MAESTRO_SEARCH_TIMEOUT")
	setString(&cfg.Routing.PolicyFile, "MAESTRO_ROUTING_POLICY")
	setBool(&cfg.Telemetry.Enabled, "MAESTRO_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setFloat64(&cfg.Telemetry.SampleRatio, "MAESTRO_OTEL_SAMPLE_RATIO")
	setBool(&cfg.MCP.Enabled, "MAESTRO_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "MAESTRO_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "MAESTRO_MCP_API_KEY")
	setInt64(&cfg.Uploads.MaxFileMB, "MAESTRO_UPLOAD_MAX_FILE_MB")
	setInt(&cfg.Uploads.MaxFiles, "MAESTRO_UPLOAD_MAX_FILES")
	setBool(&cfg.RateLimit.Enabled, "MAESTRO_RATELIMIT_ENABLED")
	setFloat64(&cfg.RateLimit.RPS, "MAESTRO_RATELIMIT_RPS")
	setInt(&cfg.RateLimit.Burst, "MAESTRO_RATELIMIT_BURST")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	if cfg.Cache.Enabled && cfg.Cache.MaxSizeMB < 1 {
		return errors.New("cache.max_size_mb must be >= 1")
	}
	if cfg.Research.Timeout < 0 {
		return errors.New("research.timeout must be >= 0")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return errors.New("telemetry.sample_ratio must be between 0 and 1")
	}
	if cfg.MCP.Enabled && cfg.MCP.Addr == "" {
		return errors.New("mcp.addr is required when mcp is enabled")
	}
	if cfg.Uploads.MaxFiles < 1 {
		return errors.New("uploads.max_files must be >= 1")
	}
	if cfg.Uploads.MaxFileMB < 1 {
		return errors.New("uploads.max_file_mb must be >= 1")
	}
	if cfg.RateLimit.Enabled && (cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst < 1) {
		return errors.New("rate_limit.rps and rate_limit.burst must be positive when rate limiting is enabled")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
