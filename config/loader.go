package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// LoadConfig reads the YAML file at path, overlays environment variables
// (NOTIFY_SLACK_WEBHOOK_URL overrides notify.slack.webhook_url) and validates
// the result. A missing file is not an error: defaults plus env are used.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// default first
	setDefaults(v)

	// File Config
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Env Config
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read File
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	setIntervalDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Validate
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("service_name", "pulse-monitor")
	v.SetDefault("port", 8090)
	v.SetDefault("base_url", "http://localhost:3000")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.expiry_min", 30)

	v.SetDefault("db.url", "")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.min_idle_conns", 1)
	v.SetDefault("db.conn_max_lifetime", "1h")
	v.SetDefault("db.conn_max_idle_time", "30m")
	v.SetDefault("db.health_timeout", "5s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "monitor:alert_history")
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 5)

	v.SetDefault("rabbitmq.broker_link", "")
	v.SetDefault("rabbitmq.exchange_name", "monitoring")
	v.SetDefault("rabbitmq.exchange_type", "topic")
	v.SetDefault("rabbitmq.routing_key", "alerts")

	v.SetDefault("targets.rollback.enabled", false)
	v.SetDefault("targets.rollback.statement", "")

	v.SetDefault("thresholds.api_ms", 3000)
	v.SetDefault("thresholds.page_ms", 5000)
	v.SetDefault("thresholds.db_health_ms", 3000)
	v.SetDefault("thresholds.db_perf_ms", 2000)
	v.SetDefault("thresholds.heap_ratio", 0.9)

	v.SetDefault("timeouts.api", "10s")
	v.SetDefault("timeouts.page", "15s")
	v.SetDefault("timeouts.db", "10s")

	v.SetDefault("sampler.samples", 3)
	v.SetDefault("sampler.delay", "100ms")

	v.SetDefault("alerts.dedup_window", "15m")
	v.SetDefault("alerts.rate_window", "60m")
	v.SetDefault("alerts.rate_limit", 3)
	v.SetDefault("alerts.history_backend", "file")
	v.SetDefault("alerts.history_path", "monitoring/alert-history.json")
	v.SetDefault("alerts.history_max_entries", 1000)

	v.SetDefault("notify.email.enabled", false)
	v.SetDefault("notify.email.host", "")
	v.SetDefault("notify.email.port", 587)
	v.SetDefault("notify.email.from", "")
	v.SetDefault("notify.email.username", "")
	v.SetDefault("notify.email.password", "")
	v.SetDefault("notify.slack.enabled", false)
	v.SetDefault("notify.slack.webhook_url", "")
	v.SetDefault("notify.discord.enabled", false)
	v.SetDefault("notify.discord.webhook_url", "")
	v.SetDefault("notify.broker.enabled", false)

	v.SetDefault("reports.dir", "monitoring/reports")
	v.SetDefault("reports.retention", "720h")
	v.SetDefault("reports.archive.enabled", false)
	v.SetDefault("reports.archive.endpoint", "")
	v.SetDefault("reports.archive.bucket", "")
	v.SetDefault("reports.archive.access_key", "")
	v.SetDefault("reports.archive.secret_key", "")
	v.SetDefault("reports.archive.region", "")
	v.SetDefault("reports.archive.use_ssl", true)

	v.SetDefault("dashboard.dir", "monitoring/dashboard")

	v.SetDefault("schedules.dashboard", "@every 30m")
	v.SetDefault("schedules.resilience", "@every 24h")
	v.SetDefault("schedules.load", "@every 12h")
	v.SetDefault("schedules.digest", "0 9 * * *")
	v.SetDefault("schedules.prune", "0 3 * * *")

	v.SetDefault("load.requests", 50)
	v.SetDefault("load.concurrency", 10)
	v.SetDefault("load.error_rate_limit", 0.1)
}

// setIntervalDefaults picks health/performance cadence from env once the
// file and environment have been read.
func setIntervalDefaults(v *viper.Viper) {
	health, perf := "@every 2m", "@every 5m"
	if v.GetString("env") == "production" {
		health, perf = "@every 5m", "@every 10m"
	}
	if v.GetString("schedules.health") == "" {
		v.Set("schedules.health", health)
	}
	if v.GetString("schedules.performance") == "" {
		v.Set("schedules.performance", perf)
	}
}

func validateConfig(cfg *Config) error {

	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return formatValidationErrors(ve)
		}
		return err
	}
	return nil
}

func formatValidationErrors(ve validator.ValidationErrors) error {
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")

	for _, fe := range ve {
		fmt.Fprintf(&sb, "- field '%s' failed on '%s'\n", fe.Namespace(), fe.Tag())
	}
	return errors.New(sb.String())
}
