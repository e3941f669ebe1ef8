// Package config loads configuration for both OrchexPay services from file
// and environment. One file configures the whole deployment; each binary reads
// its own section plus the shared ones.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Ledger Ledger      `mapstructure:"ledger"`
	Payout Payout      `mapstructure:"payout"`
	Redis  RedisConfig `mapstructure:"redis"`
	NATS   NATSConfig  `mapstructure:"nats"`
	JWT    JWTConfig   `mapstructure:"jwt"`
	Log    LogConfig   `mapstructure:"log"`
}

// Ledger configures the wallet-ledger service.
type Ledger struct {
	Host      string          `mapstructure:"host"`
	Port      int             `mapstructure:"port"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
}

// Payout configures the payout-orchestrator service.
type Payout struct {
	Host     string         `mapstructure:"host"`
	Port     int            `mapstructure:"port"`
	Database DatabaseConfig `mapstructure:"database"`
	// LedgerURL is the base URL of the wallet-ledger service.
	LedgerURL string `mapstructure:"ledger_url"`
	// ServiceToken authenticates orchestrator-initiated ledger calls when no
	// caller bearer credential is forwarded.
	ServiceToken string `mapstructure:"service_token"`
	// CommissionPercent is the default platform share applied by the order
	// split webhook, e.g. "10" for 10%.
	CommissionPercent string `mapstructure:"commission_percent"`
}

// BootstrapConfig seeds the initial admin account at ledger startup.
type BootstrapConfig struct {
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
}

// OutboxConfig tunes the outbox relay sweep.
type OutboxConfig struct {
	RelayInterval time.Duration `mapstructure:"relay_interval"`
	BatchSize     int           `mapstructure:"batch_size"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: ORX.
// Nested keys use underscore: ORX_LEDGER_DATABASE_HOST, ORX_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("ledger.host", "0.0.0.0")
	v.SetDefault("ledger.port", 8080)
	v.SetDefault("ledger.database.host", "localhost")
	v.SetDefault("ledger.database.port", 5432)
	v.SetDefault("ledger.database.user", "postgres")
	v.SetDefault("ledger.database.password", "postgres")
	v.SetDefault("ledger.database.dbname", "wallet_ledger")
	v.SetDefault("ledger.database.sslmode", "disable")
	v.SetDefault("ledger.database.max_conns", 20)
	v.SetDefault("ledger.database.min_conns", 5)
	v.SetDefault("ledger.database.conn_max_lifetime", "30m")
	v.SetDefault("ledger.bootstrap.admin_username", "admin")
	v.SetDefault("ledger.bootstrap.admin_password", "")
	v.SetDefault("ledger.outbox.relay_interval", "5s")
	v.SetDefault("ledger.outbox.batch_size", 100)
	v.SetDefault("payout.host", "0.0.0.0")
	v.SetDefault("payout.port", 8081)
	v.SetDefault("payout.database.host", "localhost")
	v.SetDefault("payout.database.port", 5432)
	v.SetDefault("payout.database.user", "postgres")
	v.SetDefault("payout.database.password", "postgres")
	v.SetDefault("payout.database.dbname", "payout_orchestrator")
	v.SetDefault("payout.database.sslmode", "disable")
	v.SetDefault("payout.database.max_conns", 10)
	v.SetDefault("payout.database.min_conns", 2)
	v.SetDefault("payout.database.conn_max_lifetime", "30m")
	v.SetDefault("payout.ledger_url", "http://localhost:8080")
	v.SetDefault("payout.service_token", "")
	v.SetDefault("payout.commission_percent", "0")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "orchexpay.wallet.events")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "orchexpay")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: ORX_LEDGER_DATABASE_HOST -> ledger.database.host
	v.SetEnvPrefix("ORX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
