package configs

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every environment variable name, e.g. POSTCRAWL_API_URL.
const envPrefix = "postcrawl"

// FileConfig defines the structure loaded from the YAML configuration file.
// Durations are Go duration strings ("30s", "5m").
type FileConfig struct {
	APIURL            string `yaml:"api_url"`
	APIKey            string `yaml:"api_key"`
	HTTPClientTimeout string `yaml:"http_client_timeout"`
	ListenAddr        string `yaml:"listen_addr"`
	BaseURL           string `yaml:"base_url"`
	DocsURL           string `yaml:"docs_url"`
	LogLevel          string `yaml:"log_level"`
}

// Config holds the final application configuration, merged from file and environment variables.
// Fields are loaded from environment variables with the prefix "POSTCRAWL_"; a variable that is
// set always wins over the file.
type Config struct {
	// Config File Path (Loaded first from env). Empty means environment only.
	ConfigFilePath string `envconfig:"CONFIG_FILE"`

	// Remote API
	APIURL            string        `envconfig:"API_URL" default:"https://edge.postcrawl.com"`
	APIKey            string        `envconfig:"API_KEY"`
	HTTPClientTimeout time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"5m"`

	// Inbound server
	ListenAddr         string        `envconfig:"LISTEN_ADDR" default:":8080"`
	BaseURL            string        `envconfig:"BASE_URL"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	ServerReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"5s"`
	ServerWriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"0s"`
	ServerIdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`

	DocsURL                  string `envconfig:"DOCS_URL" default:"https://docs.postcrawl.com/errors"`
	OtelExporterOtlpEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string `envconfig:"LOG_LEVEL" default:"info"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// PublicBaseURL is the externally reachable base URL used by the SSE transport.
func (c *Config) PublicBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	addr := c.ListenAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

// Validate checks values that would otherwise only fail on first use.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_URL %q: must be an absolute URL", c.APIURL)
	}
	if c.HTTPClientTimeout <= 0 {
		return fmt.Errorf("invalid HTTP_CLIENT_TIMEOUT %s: must be positive", c.HTTPClientTimeout)
	}
	return nil
}

// Load loads configuration first from environment variables (to get the file path
// and defaults), then from the YAML file if one is named, and finally lets every
// environment variable that is actually set override the file.
func Load() (*Config, error) {
	// 1. Load initial config from Env (defaults plus ConfigFilePath)
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	// 2. Load config from YAML file if path is specified
	if cfg.ConfigFilePath != "" {
		yamlFile, err := os.ReadFile(cfg.ConfigFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", cfg.ConfigFilePath, err)
		}
		var fileCfg FileConfig
		if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", cfg.ConfigFilePath, err)
		}
		// 3. Merge: file values apply only where the environment is silent.
		if err := mergeFile(&cfg, fileCfg); err != nil {
			return nil, fmt.Errorf("invalid config file '%s': %w", cfg.ConfigFilePath, err)
		}
		slog.Info("Loaded configuration from file.", "path", cfg.ConfigFilePath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeFile(cfg *Config, file FileConfig) error {
	setString(&cfg.APIURL, "API_URL", file.APIURL)
	setString(&cfg.APIKey, "API_KEY", file.APIKey)
	setString(&cfg.ListenAddr, "LISTEN_ADDR", file.ListenAddr)
	setString(&cfg.BaseURL, "BASE_URL", file.BaseURL)
	setString(&cfg.DocsURL, "DOCS_URL", file.DocsURL)
	setString(&cfg.LogLevel, "LOG_LEVEL", file.LogLevel)

	if file.HTTPClientTimeout != "" && !envSet("HTTP_CLIENT_TIMEOUT") {
		d, err := time.ParseDuration(file.HTTPClientTimeout)
		if err != nil {
			return fmt.Errorf("http_client_timeout: %w", err)
		}
		cfg.HTTPClientTimeout = d
	}
	return nil
}

func setString(dst *string, key, fileValue string) {
	if fileValue != "" && !envSet(key) {
		*dst = fileValue
	}
}

func envSet(key string) bool {
	_, ok := os.LookupEnv(strings.ToUpper(envPrefix) + "_" + key)
	return ok
}
