package mediakit

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config holds every tunable of the engine and the surrounding service.
// Values come from the environment with sane defaults; an optional TOML
// file can overlay them. Invalid environment values fall back to the
// default with a logged warning rather than failing startup.
type Config struct {
	// Host and Port bind the HTTP listener.
	Host string `validate:"required"`
	Port int    `validate:"gte=1,lte=65535"`

	// APIKey protects the /v1 routes. Mandatory for the service binary.
	APIKey string

	// MaxQueueLength is the queue capacity. 0 disables the overflow check.
	MaxQueueLength int `validate:"gte=0"`
	// MaxWorkers sizes the notification dispatcher pool.
	MaxWorkers int `validate:"gte=1"`
	// WebhookMaxRetries is the per-notification delivery attempt budget.
	WebhookMaxRetries int `validate:"gte=1"`
	// WebhookTimeout bounds each individual delivery attempt.
	WebhookTimeout time.Duration `validate:"gt=0"`
	// RequestTimeout is the advisory pre-admission wall-clock window;
	// requests older than this are rejected with 408. 0 disables it.
	RequestTimeout time.Duration `validate:"gte=0"`

	// RedisAddr selects the Redis queue backend when non-empty; otherwise
	// the in-memory queue is used.
	RedisAddr string
	// QueueName namespaces the Redis queue keys.
	QueueName string `validate:"required"`

	// PublicURL is the externally reachable base URL used when building
	// links to stored artifacts. Empty means http://<host>:<port>.
	PublicURL string
	// StoragePath is where the local storage provider keeps uploaded files.
	StoragePath string
	// JobStorePath is the job record database directory.
	JobStorePath string
	// JobRetention is how long completed job records are kept.
	JobRetention time.Duration `validate:"gte=0"`
}

// DefaultConfig returns the built-in defaults, matching the documented
// environment defaults.
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8080,
		MaxQueueLength:    50,
		MaxWorkers:        10,
		WebhookMaxRetries: 3,
		WebhookTimeout:    10 * time.Second,
		RequestTimeout:    30 * time.Second,
		QueueName:         "default",
		StoragePath:       "./data/files",
		JobStorePath:      "./data/jobs",
		JobRetention:      24 * time.Hour,
	}
}

// ConfigFromEnv builds a Config from the process environment. Unset
// variables keep their defaults; unparsable values keep the default and
// log a warning.
func ConfigFromEnv(log Logger) Config {
	if log == nil {
		log = noopLogger{}
	}
	cfg := DefaultConfig()

	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	cfg.Port = intEnv(log, "PORT", cfg.Port, 1)
	cfg.APIKey = os.Getenv("API_KEY")

	cfg.MaxQueueLength = intEnv(log, "MAX_QUEUE_LENGTH", cfg.MaxQueueLength, 0)
	cfg.MaxWorkers = intEnv(log, "MAX_WORKERS", cfg.MaxWorkers, 1)
	cfg.WebhookMaxRetries = intEnv(log, "WEBHOOK_MAX_RETRIES", cfg.WebhookMaxRetries, 1)
	cfg.WebhookTimeout = durationEnv(log, "WEBHOOK_TIMEOUT", cfg.WebhookTimeout)
	cfg.RequestTimeout = durationEnv(log, "REQUEST_TIMEOUT", cfg.RequestTimeout)

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("QUEUE_NAME"); v != "" {
		cfg.QueueName = v
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		cfg.PublicURL = v
	}
	if v := os.Getenv("STORAGE_PATH"); v != "" {
		cfg.StoragePath = v
	}
	if v := os.Getenv("JOB_STORE_PATH"); v != "" {
		cfg.JobStorePath = v
	}
	cfg.JobRetention = durationEnv(log, "JOB_RETENTION", cfg.JobRetention)

	return cfg
}

// fileConfig mirrors Config for TOML overlay. Pointer fields distinguish
// "absent" from zero values; durations are strings like "10s".
type fileConfig struct {
	Host              *string `toml:"host"`
	Port              *int    `toml:"port"`
	APIKey            *string `toml:"api_key"`
	MaxQueueLength    *int    `toml:"max_queue_length"`
	MaxWorkers        *int    `toml:"max_workers"`
	WebhookMaxRetries *int    `toml:"webhook_max_retries"`
	WebhookTimeout    *string `toml:"webhook_timeout"`
	RequestTimeout    *string `toml:"request_timeout"`
	RedisAddr         *string `toml:"redis_addr"`
	PublicURL         *string `toml:"public_url"`
	QueueName         *string `toml:"queue_name"`
	StoragePath       *string `toml:"storage_path"`
	JobStorePath      *string `toml:"job_store_path"`
	JobRetention      *string `toml:"job_retention"`
}

// ApplyFile overlays values from a TOML file onto the config. Keys absent
// from the file are left untouched.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.Host != nil {
		c.Host = *fc.Host
	}
	if fc.Port != nil {
		c.Port = *fc.Port
	}
	if fc.APIKey != nil {
		c.APIKey = *fc.APIKey
	}
	if fc.MaxQueueLength != nil {
		c.MaxQueueLength = *fc.MaxQueueLength
	}
	if fc.MaxWorkers != nil {
		c.MaxWorkers = *fc.MaxWorkers
	}
	if fc.WebhookMaxRetries != nil {
		c.WebhookMaxRetries = *fc.WebhookMaxRetries
	}
	if err := applyDuration(&c.WebhookTimeout, fc.WebhookTimeout); err != nil {
		return fmt.Errorf("webhook_timeout: %w", err)
	}
	if err := applyDuration(&c.RequestTimeout, fc.RequestTimeout); err != nil {
		return fmt.Errorf("request_timeout: %w", err)
	}
	if fc.RedisAddr != nil {
		c.RedisAddr = *fc.RedisAddr
	}
	if fc.PublicURL != nil {
		c.PublicURL = *fc.PublicURL
	}
	if fc.QueueName != nil {
		c.QueueName = *fc.QueueName
	}
	if fc.StoragePath != nil {
		c.StoragePath = *fc.StoragePath
	}
	if fc.JobStorePath != nil {
		c.JobStorePath = *fc.JobStorePath
	}
	if err := applyDuration(&c.JobRetention, fc.JobRetention); err != nil {
		return fmt.Errorf("job_retention: %w", err)
	}
	return nil
}

// Validate checks structural constraints on the config.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}

func applyDuration(dst *time.Duration, raw *string) error {
	if raw == nil {
		return nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// intEnv parses an integer environment variable, clamping to min and
// falling back to def (with a warning) on unparsable input.
func intEnv(log Logger, name string, def, min int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Warnf("invalid %s=%q; defaulting to %d", name, raw, def)
		return def
	}
	if n < min {
		return min
	}
	return n
}

// durationEnv parses a duration environment variable ("10s", "2m"). Bare
// integers are read as seconds for compatibility with older deployments.
func durationEnv(log Logger, name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			n = 0
		}
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		log.Warnf("invalid %s=%q; defaulting to %s", name, raw, def)
		return def
	}
	return d
}
