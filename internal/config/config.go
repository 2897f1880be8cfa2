// Package config resolves versionstamp settings. Everything comes from the
// environment; there is no config file and no stamping flag.
package config

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/terrpan/versionstamp/internal/otel"
)

// Environment variables read by FromEnv.
const (
	EnvCommitSHA       = "GITHUB_SHA"
	EnvLogLevel        = "VERSIONSTAMP_LOG_LEVEL"
	EnvLogFormat       = "VERSIONSTAMP_LOG_FORMAT"
	EnvOTLPEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure    = "OTEL_EXPORTER_OTLP_INSECURE"
	EnvOTelStdOut      = "VERSIONSTAMP_OTEL_STDOUT"
	EnvMetricsTextfile = "VERSIONSTAMP_METRICS_TEXTFILE"
)

// ---------------------------------------------------------------------------
// Top-level config
// ---------------------------------------------------------------------------

// Config is the root configuration structure.
type Config struct {
	// WorkDir is the project directory holding package.json.
	WorkDir string

	// CommitSHA is the full commit hash from $GITHUB_SHA, possibly empty.
	CommitSHA string

	Logging LoggingConfig
	OTel    OTelConfig
	Metrics MetricsConfig

	// Raw boolean values kept until Validate so a typo is reported instead
	// of silently read as false.
	rawInsecure string
	rawStdOut   string
}

// LoggingConfig controls structured logging output.
type LoggingConfig struct {
	// Level: debug, info, warn, error.  Default: info.
	Level string
	// Format: text, json.  Default: text.
	Format string
}

// OTelConfig controls OpenTelemetry tracing and metrics export.
type OTelConfig struct {
	// Endpoint mirrors OTEL_EXPORTER_OTLP_ENDPOINT.  A non-empty value enables
	// OTLP push; the exporters read the endpoint and headers themselves.
	Endpoint string

	// Insecure enables plain HTTP (no TLS) for OTLP export.  Default: true.
	Insecure bool

	// StdOut also prints spans and metrics to stdout.  Default: false.
	StdOut bool
}

// MetricsConfig controls the Prometheus textfile written after a run.
type MetricsConfig struct {
	// Textfile is the path handed to the node_exporter textfile collector.
	// Empty disables it.
	Textfile string
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FromEnv builds a Config from getenv (os.Getenv in production) rooted at
// workDir.  Call Validate before use.
func FromEnv(getenv func(string) string, workDir string) *Config {
	return &Config{
		WorkDir:   workDir,
		CommitSHA: getenv(EnvCommitSHA),
		Logging: LoggingConfig{
			Level:  strings.TrimSpace(getenv(EnvLogLevel)),
			Format: strings.TrimSpace(getenv(EnvLogFormat)),
		},
		OTel: OTelConfig{
			Endpoint: strings.TrimSpace(getenv(EnvOTLPEndpoint)),
		},
		Metrics: MetricsConfig{
			Textfile: strings.TrimSpace(getenv(EnvMetricsTextfile)),
		},
		rawInsecure: strings.TrimSpace(getenv(EnvOTLPInsecure)),
		rawStdOut:   strings.TrimSpace(getenv(EnvOTelStdOut)),
	}
}

// ---------------------------------------------------------------------------
// Defaults & validation
// ---------------------------------------------------------------------------

// ApplyDefaults fills in defaults for any unset fields.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	// Insecure defaults to true for local collectors.
	if c.rawInsecure == "" {
		c.rawInsecure = "true"
	}
	if c.rawStdOut == "" {
		c.rawStdOut = "false"
	}
}

// Validate applies defaults and checks every field.
func (c *Config) Validate() error {
	c.ApplyDefaults()

	if c.WorkDir == "" {
		return errors.New("working directory is required")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("%s: unsupported level %q (supported: debug, info, warn, error)", EnvLogLevel, c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return errors.Errorf("%s: unsupported format %q (supported: text, json)", EnvLogFormat, c.Logging.Format)
	}

	var err error
	if c.OTel.Insecure, err = strconv.ParseBool(c.rawInsecure); err != nil {
		return errors.Errorf("%s: invalid boolean %q", EnvOTLPInsecure, c.rawInsecure)
	}
	if c.OTel.StdOut, err = strconv.ParseBool(c.rawStdOut); err != nil {
		return errors.Errorf("%s: invalid boolean %q", EnvOTelStdOut, c.rawStdOut)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Factories
// ---------------------------------------------------------------------------

// NewLogger creates a *slog.Logger writing to w from the Logging configuration.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: c.slogLevel(),
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts))
	default:
		return slog.New(slog.NewTextHandler(w, opts))
	}
}

func (c *Config) slogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TelemetryConfig maps the settings onto the otel package.
func (c *Config) TelemetryConfig() otel.Config {
	return otel.Config{
		Enabled:  c.OTel.Endpoint != "",
		Insecure: c.OTel.Insecure,
		StdOut:   c.OTel.StdOut,
		Textfile: c.Metrics.Textfile,
	}
}
