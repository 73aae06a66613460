// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tombee/keystash/pkg/coder"
	kserrors "github.com/tombee/keystash/pkg/errors"
)

// Backend names, in default priority order.
const (
	BackendKeychain = "keychain"
	BackendKeyring  = "keyring"
	BackendFile     = "file"
)

// Fallback storage drivers.
const (
	DriverDir    = "dir"
	DriverSQLite = "sqlite"
)

// DefaultPassphraseEnv is the variable holding the fallback store passphrase.
const DefaultPassphraseEnv = "KEYSTASH_MASTER_KEY"

// Config represents the complete keystash configuration.
type Config struct {
	// Account is the owner context every secret is scoped to.
	// Environment: KEYSTASH_ACCOUNT
	// Default: the current OS user name, or "anonymous"
	Account string `yaml:"account"`

	// Backends lists candidate backends in priority order. The first
	// available one is used for the whole process. Leaving a backend out
	// disables it.
	// Environment: KEYSTASH_BACKENDS (comma separated)
	// Default: keychain, keyring, file
	Backends []string `yaml:"backends"`

	// Fallback configures the encrypted local store.
	Fallback FallbackConfig `yaml:"fallback"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`

	// Tracing configures span export for store operations.
	Tracing TracingConfig `yaml:"tracing"`

	// Metrics configures operation counter output.
	Metrics MetricsConfig `yaml:"metrics"`
}

// FallbackConfig configures the encrypted local store.
type FallbackConfig struct {
	// Dir holds blobs and the key file.
	// Environment: KEYSTASH_STORE_DIR
	// Default: ~/.config/keystash/store
	Dir string `yaml:"dir"`

	// Driver selects blob persistence: "dir" (one file per secret) or "sqlite".
	// Environment: KEYSTASH_STORE_DRIVER
	// Default: dir
	Driver string `yaml:"driver"`

	// Coder is the variant used for new writes (aes-128, aes-256,
	// chacha20-poly1305). Blobs written with other variants stay readable.
	// Environment: KEYSTASH_CODER
	// Default: aes-256
	Coder string `yaml:"coder"`

	// PassphraseEnv names the environment variable that holds the
	// passphrase sealing the key file. The passphrase itself is never
	// read from the config file.
	// Default: KEYSTASH_MASTER_KEY
	PassphraseEnv string `yaml:"passphrase_env"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the minimum log level (debug, info, warn, error).
	// Environment: LOG_LEVEL
	// Default: warn
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Environment: LOG_FORMAT
	// Default: text
	Format string `yaml:"format"`
}

// Trace exporters.
const (
	ExporterNone     = "none"
	ExporterConsole  = "console"
	ExporterOTLP     = "otlp"
	ExporterOTLPHTTP = "otlp-http"
)

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	// Exporter selects where spans go: none, console (stderr), otlp (gRPC)
	// or otlp-http.
	// Environment: KEYSTASH_TRACE_EXPORTER
	// Default: none
	Exporter string `yaml:"exporter"`

	// Endpoint is the collector address for the otlp exporters.
	// Environment: OTEL_EXPORTER_OTLP_ENDPOINT
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	// Environment: KEYSTASH_TRACE_INSECURE
	Insecure bool `yaml:"insecure"`

	// CACert is a PEM bundle used to verify the collector.
	CACert string `yaml:"ca_cert"`

	// Headers are sent with every export request.
	Headers map[string]string `yaml:"headers"`

	// SampleRate is the fraction of root spans kept, between 0 and 1.
	// Environment: KEYSTASH_TRACE_SAMPLE_RATE
	// Default: 1
	SampleRate float64 `yaml:"sample_rate"`
}

// Enabled reports whether any exporter is configured.
func (t TracingConfig) Enabled() bool {
	return t.Exporter != "" && t.Exporter != ExporterNone
}

// MetricsConfig configures metrics output.
type MetricsConfig struct {
	// Textfile, when set, receives the operation counters in Prometheus
	// text format after each command, for node_exporter's textfile collector.
	// Environment: KEYSTASH_METRICS_TEXTFILE
	Textfile string `yaml:"textfile"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Account:  defaultAccount(),
		Backends: []string{BackendKeychain, BackendKeyring, BackendFile},
		Fallback: FallbackConfig{
			Dir:           DefaultStoreDir(),
			Driver:        DriverDir,
			Coder:         coder.Default.String(),
			PassphraseEnv: DefaultPassphraseEnv,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Tracing: TracingConfig{
			Exporter:   ExporterNone,
			SampleRate: 1,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file, then
// environment overrides, then validation.
//
// An empty configPath loads ~/.config/keystash/config.yaml when it exists.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	explicit := configPath != ""
	if !explicit {
		if p, err := ConfigPath(); err == nil {
			configPath = p
		}
	}

	if configPath != "" {
		err := cfg.loadFromFile(configPath)
		if err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
			return nil, &kserrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Account == "" {
		c.Account = defaults.Account
	}
	if len(c.Backends) == 0 {
		c.Backends = defaults.Backends
	}
	if c.Fallback.Dir == "" {
		c.Fallback.Dir = defaults.Fallback.Dir
	}
	if c.Fallback.Driver == "" {
		c.Fallback.Driver = defaults.Fallback.Driver
	}
	if c.Fallback.Coder == "" {
		c.Fallback.Coder = defaults.Fallback.Coder
	}
	if c.Fallback.PassphraseEnv == "" {
		c.Fallback.PassphraseEnv = defaults.Fallback.PassphraseEnv
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = defaults.Tracing.Exporter
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv overrides configuration from environment variables.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("KEYSTASH_ACCOUNT"); val != "" {
		c.Account = val
	}

	if val := os.Getenv("KEYSTASH_BACKENDS"); val != "" {
		var backends []string
		for _, name := range strings.Split(val, ",") {
			if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
				backends = append(backends, name)
			}
		}
		c.Backends = backends
	}

	if val := os.Getenv("KEYSTASH_STORE_DIR"); val != "" {
		c.Fallback.Dir = val
	}
	if val := os.Getenv("KEYSTASH_STORE_DRIVER"); val != "" {
		c.Fallback.Driver = strings.ToLower(val)
	}
	if val := os.Getenv("KEYSTASH_CODER"); val != "" {
		c.Fallback.Coder = val
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}

	if val := os.Getenv("KEYSTASH_TRACE_EXPORTER"); val != "" {
		c.Tracing.Exporter = strings.ToLower(val)
	}
	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" {
		c.Tracing.Endpoint = val
	}
	if val := os.Getenv("KEYSTASH_TRACE_INSECURE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Tracing.Insecure = b
		}
	}
	if val := os.Getenv("KEYSTASH_TRACE_SAMPLE_RATE"); val != "" {
		if rate, err := strconv.ParseFloat(val, 64); err == nil {
			c.Tracing.SampleRate = rate
		}
	}

	if val := os.Getenv("KEYSTASH_METRICS_TEXTFILE"); val != "" {
		c.Metrics.Textfile = val
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Account) == "" {
		return &kserrors.ConfigError{Key: "account", Reason: "must not be empty"}
	}

	if len(c.Backends) == 0 {
		return &kserrors.ConfigError{Key: "backends", Reason: "at least one backend is required"}
	}
	seen := make(map[string]bool, len(c.Backends))
	for _, name := range c.Backends {
		switch name {
		case BackendKeychain, BackendKeyring, BackendFile:
		default:
			return &kserrors.ConfigError{
				Key:    "backends",
				Reason: fmt.Sprintf("unknown backend %q (valid: keychain, keyring, file)", name),
			}
		}
		if seen[name] {
			return &kserrors.ConfigError{Key: "backends", Reason: fmt.Sprintf("backend %q listed twice", name)}
		}
		seen[name] = true
	}

	switch c.Fallback.Driver {
	case DriverDir, DriverSQLite:
	default:
		return &kserrors.ConfigError{
			Key:    "fallback.driver",
			Reason: fmt.Sprintf("unknown driver %q (valid: dir, sqlite)", c.Fallback.Driver),
		}
	}

	if _, err := coder.ParseID(c.Fallback.Coder); err != nil {
		return &kserrors.ConfigError{Key: "fallback.coder", Reason: err.Error(), Cause: err}
	}

	if c.Fallback.Dir == "" {
		return &kserrors.ConfigError{Key: "fallback.dir", Reason: "must not be empty"}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &kserrors.ConfigError{Key: "log.level", Reason: fmt.Sprintf("invalid level %q", c.Log.Level)}
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return &kserrors.ConfigError{Key: "log.format", Reason: fmt.Sprintf("invalid format %q", c.Log.Format)}
	}

	switch c.Tracing.Exporter {
	case ExporterNone, ExporterConsole:
	case ExporterOTLP, ExporterOTLPHTTP:
		if c.Tracing.Endpoint == "" {
			return &kserrors.ConfigError{
				Key:    "tracing.endpoint",
				Reason: fmt.Sprintf("required for the %s exporter", c.Tracing.Exporter),
			}
		}
	default:
		return &kserrors.ConfigError{
			Key:    "tracing.exporter",
			Reason: fmt.Sprintf("unknown exporter %q (valid: none, console, otlp, otlp-http)", c.Tracing.Exporter),
		}
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return &kserrors.ConfigError{Key: "tracing.sample_rate", Reason: "must be between 0 and 1"}
	}

	return nil
}

// CoderID returns the configured coder for new writes. Call after Validate.
func (c *Config) CoderID() coder.ID {
	id, err := coder.ParseID(c.Fallback.Coder)
	if err != nil {
		return coder.Default
	}
	return id
}

// StoreDir returns the fallback directory with ~ expanded.
func (c *Config) StoreDir() (string, error) {
	return expandHome(c.Fallback.Dir)
}

// Passphrase returns the fallback passphrase from the environment, if set.
func (c *Config) Passphrase() string {
	return os.Getenv(c.Fallback.PassphraseEnv)
}

// defaultAccount mirrors the OS login name, falling back to "anonymous".
func defaultAccount() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "anonymous"
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
