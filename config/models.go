package config

import "time"

type AuthConfig struct {
	Secret    string `mapstructure:"secret"`
	ExpiryMin int    `mapstructure:"expiry_min" validate:"gte=1"`
}

type DBConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int32         `mapstructure:"max_open_conns" validate:"gte=1"`
	MinIdleConns    int32         `mapstructure:"min_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	HealthTimeout   time.Duration `mapstructure:"health_timeout" validate:"gt=0"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Key          string        `mapstructure:"key"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

type RabbitMQConfig struct {
	BrokerLink   string `mapstructure:"broker_link"`
	ExchangeName string `mapstructure:"exchange_name"`
	ExchangeType string `mapstructure:"exchange_type"`
	RoutingKey   string `mapstructure:"routing_key"`
}

// Target is one probe entry. API and page targets use URL, DB targets use Query.
type Target struct {
	Name     string `mapstructure:"name" validate:"required"`
	URL      string `mapstructure:"url"`
	Query    string `mapstructure:"query"`
	Critical bool   `mapstructure:"critical"`
	MinRows  int    `mapstructure:"min_rows" validate:"gte=0"`
}

type RollbackConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Statement string `mapstructure:"statement" validate:"required_if=Enabled true"`
}

type TargetsConfig struct {
	API      []Target       `mapstructure:"api" validate:"dive"`
	Pages    []Target       `mapstructure:"pages" validate:"dive"`
	DB       []Target       `mapstructure:"db" validate:"dive"`
	Rollback RollbackConfig `mapstructure:"rollback"`
}

type ThresholdsConfig struct {
	APIMs      int64   `mapstructure:"api_ms" validate:"gt=0"`
	PageMs     int64   `mapstructure:"page_ms" validate:"gt=0"`
	DBHealthMs int64   `mapstructure:"db_health_ms" validate:"gt=0"`
	DBPerfMs   int64   `mapstructure:"db_perf_ms" validate:"gt=0"`
	HeapRatio  float64 `mapstructure:"heap_ratio" validate:"gt=0,lte=1"`
}

type TimeoutsConfig struct {
	API  time.Duration `mapstructure:"api" validate:"gt=0"`
	Page time.Duration `mapstructure:"page" validate:"gt=0"`
	DB   time.Duration `mapstructure:"db" validate:"gt=0"`
}

type SamplerConfig struct {
	Samples int           `mapstructure:"samples" validate:"gte=1"`
	Delay   time.Duration `mapstructure:"delay" validate:"gte=0"`
}

type AlertsConfig struct {
	DedupWindow       time.Duration `mapstructure:"dedup_window" validate:"gt=0"`
	RateWindow        time.Duration `mapstructure:"rate_window" validate:"gt=0"`
	RateLimit         int           `mapstructure:"rate_limit" validate:"gte=1"`
	HistoryBackend    string        `mapstructure:"history_backend" validate:"oneof=file redis"`
	HistoryPath       string        `mapstructure:"history_path" validate:"required"`
	HistoryMaxEntries int           `mapstructure:"history_max_entries" validate:"gte=1"`
}

type EmailConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Host     string   `mapstructure:"host" validate:"required_if=Enabled true"`
	Port     int      `mapstructure:"port"`
	From     string   `mapstructure:"from" validate:"required_if=Enabled true"`
	To       []string `mapstructure:"to" validate:"required_if=Enabled true"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
}

type WebhookConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url" validate:"required_if=Enabled true"`
}

type BrokerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type NotifyConfig struct {
	Email   EmailConfig   `mapstructure:"email"`
	Slack   WebhookConfig `mapstructure:"slack"`
	Discord WebhookConfig `mapstructure:"discord"`
	Broker  BrokerConfig  `mapstructure:"broker"`
}

type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Bucket    string `mapstructure:"bucket" validate:"required_if=Enabled true"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type ReportsConfig struct {
	Dir       string        `mapstructure:"dir" validate:"required"`
	Retention time.Duration `mapstructure:"retention" validate:"gt=0"`
	Archive   ArchiveConfig `mapstructure:"archive"`
}

type DashboardConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// SchedulesConfig holds cron specs; "@every 5m" style specs are accepted.
type SchedulesConfig struct {
	Health      string `mapstructure:"health" validate:"required"`
	Performance string `mapstructure:"performance" validate:"required"`
	Dashboard   string `mapstructure:"dashboard" validate:"required"`
	Resilience  string `mapstructure:"resilience" validate:"required"`
	Load        string `mapstructure:"load" validate:"required"`
	Digest      string `mapstructure:"digest" validate:"required"`
	Prune       string `mapstructure:"prune" validate:"required"`
}

type LoadTestConfig struct {
	Requests       int     `mapstructure:"requests" validate:"gte=1"`
	Concurrency    int     `mapstructure:"concurrency" validate:"gte=1"`
	ErrorRateLimit float64 `mapstructure:"error_rate_limit" validate:"gte=0,lte=1"`
}

type Config struct {
	Env         string           `mapstructure:"env" validate:"oneof=development production test"`
	ServiceName string           `mapstructure:"service_name" validate:"required"`
	Port        int              `mapstructure:"port" validate:"gte=1,lte=65535"`
	BaseURL     string           `mapstructure:"base_url" validate:"required,url"`
	DB          DBConfig         `mapstructure:"db"`
	Redis       RedisConfig      `mapstructure:"redis"`
	RabbitMQ    RabbitMQConfig   `mapstructure:"rabbitmq"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Targets     TargetsConfig    `mapstructure:"targets"`
	Thresholds  ThresholdsConfig `mapstructure:"thresholds"`
	Timeouts    TimeoutsConfig   `mapstructure:"timeouts"`
	Sampler     SamplerConfig    `mapstructure:"sampler"`
	Alerts      AlertsConfig     `mapstructure:"alerts"`
	Notify      NotifyConfig     `mapstructure:"notify"`
	Reports     ReportsConfig    `mapstructure:"reports"`
	Dashboard   DashboardConfig  `mapstructure:"dashboard"`
	Schedules   SchedulesConfig  `mapstructure:"schedules"`
	Load        LoadTestConfig   `mapstructure:"load"`
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
