// internal/common/config/config.go
package config

import (
	"fmt"
	"net/url"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Chatbot       ChatbotConfig           `mapstructure:"chatbot"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	MQTT          MQTTConfig              `mapstructure:"mqtt"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	RegistryPath  string                  `mapstructure:"registry_path"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // milliseconds
	RateLimit      float64  `mapstructure:"rate_limit"`    // requests per second per client
	RateBurst      int      `mapstructure:"rate_burst"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// TrustedProxies lists the peers (IPs or CIDRs) whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty means no forwarding header is used.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
	// LimiterIdleTTL evicts per-client rate buckets unused for this long.
	LimiterIdleTTL int `mapstructure:"limiter_idle_ttl"` // milliseconds
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	// Driver selects the readings store: postgres, sqlite or clickhouse.
	Driver     string           `mapstructure:"driver"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Schema     SchemaConfig     `mapstructure:"schema"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
	// ReadOnly opens the file with mode=ro.
	ReadOnly bool `mapstructure:"read_only"`
}

// GetDSN returns a go-sqlite3 file URI.
func (s SQLiteConfig) GetDSN() string {
	if s.Path == ":memory:" {
		return "file::memory:?cache=shared"
	}
	q := url.Values{}
	if s.ReadOnly {
		q.Set("mode", "ro")
	}
	if len(q) == 0 {
		return "file:" + s.Path
	}
	return "file:" + s.Path + "?" + q.Encode()
}

type ClickHouseConfig struct {
	Addresses      []string `mapstructure:"addresses"`
	Database       string   `mapstructure:"database"`
	Username       string   `mapstructure:"username"`
	Password       string   `mapstructure:"password"`
	DialTimeout    int      `mapstructure:"dial_timeout"` // milliseconds
	MaxExecutionS  int      `mapstructure:"max_execution_time"`
	MaxConnections int      `mapstructure:"max_connections"`
	MaxIdle        int      `mapstructure:"max_idle"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SchemaConfig names the relations holding readings and cows.
type SchemaConfig struct {
	ReadingsTable string `mapstructure:"readings_table"`
	EntitiesTable string `mapstructure:"entities_table"`
}

type ChatbotConfig struct {
	QueryTimeout    int  `mapstructure:"query_timeout"`     // milliseconds
	CatalogCacheTTL int  `mapstructure:"catalog_cache_ttl"` // milliseconds
	Markdown        bool `mapstructure:"markdown"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// MQTTConfig configures the ask/reply responder.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	AskTopic    string `mapstructure:"ask_topic"`
	ReplyPrefix string `mapstructure:"reply_prefix"`
	QoS         byte   `mapstructure:"qos"`
}

type ObservabilityConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
