// Package config provides hierarchical configuration loading for Maestro.
// Precedence: defaults < YAML file < environment variables < CLI flags.
package config

import "time"

// Config holds all runtime configuration for the orchestration service.
type Config struct {
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
	NATS      NATS      `yaml:"nats"`
	Cache     Cache     `yaml:"cache"`
	Research  Research  `yaml:"research"`
	Routing   Routing   `yaml:"routing"`
	Telemetry Telemetry `yaml:"telemetry"`
	MCP       MCP       `yaml:"mcp"`
	Uploads   Uploads   `yaml:"uploads"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	BaseURL    string `yaml:"base_url"` // advertised in the agent card
	CORSOrigin string `yaml:"cors_origin"`
}

// Logging holds structured logging configuration. Async buffers log
// records through a background writer; records are dropped rather than
// blocking request paths when the buffer fills.
type Logging struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // "json" | "text"
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// NATS holds NATS JetStream configuration. The queue is optional: when
// disabled, lifecycle events are simply not published.
type NATS struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// Cache holds research result cache configuration.
type Cache struct {
	Enabled     bool          `yaml:"enabled"`
	MaxSizeMB   int64         `yaml:"max_size_mb"`
	ResearchTTL time.Duration `yaml:"research_ttl"`
}

// Research holds the research handler's external search configuration.
// An empty SearchURL keeps the handler on canned findings.
type Research struct {
	SearchURL string        `yaml:"search_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Routing holds intent classification configuration.
type Routing struct {
	PolicyFile string `yaml:"policy_file"` // optional vocabulary override, YAML
}

// Telemetry holds OpenTelemetry export configuration.
type Telemetry struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"` // OTLP gRPC endpoint (host:port)
	SampleRatio float64 `yaml:"sample_ratio"`
}

// MCP holds Model Context Protocol server configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	APIKey  string `yaml:"api_key"` // empty disables auth
}

// Uploads holds multipart upload limits for the execute endpoint.
type Uploads struct {
	MaxFileMB int64 `yaml:"max_file_mb"`
	MaxFiles  int   `yaml:"max_files"`
}

// RateLimit holds per-client request limits for the execute endpoint.
type RateLimit struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			BaseURL:    "http://localhost:8080",
			CORSOrigin: "http://localhost:3000",
		},
		Logging: Logging{
			Level:   "info",
			Format:  "json",
			Service: "maestro-core",
		},
		NATS: NATS{
			Enabled: false,
			URL:     "nats://localhost:4222",
		},
		Cache: Cache{
			Enabled:     true,
			MaxSizeMB:   64,
			ResearchTTL: 15 * time.Minute,
		},
		Research: Research{
			SearchURL: "",
			Timeout:   10 * time.Second,
		},
		Telemetry: Telemetry{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			SampleRatio: 1.0,
		},
		MCP: MCP{
			Enabled: false,
			Addr:    ":3001",
		},
		Uploads: Uploads{
			MaxFileMB: 16,
			MaxFiles:  10,
		},
		RateLimit: RateLimit{
			Enabled: true,
			RPS:     5,
			Burst:   10,
		},
	}
}
