package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config конфигурация сервиса, загружается из config.toml
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Logs        LogsConfig        `toml:"logs"`
	Metrics     MetricsConfig     `toml:"metrics"`
	Booking     BookingConfig     `toml:"booking"`
	Idempotency IdempotencyConfig `toml:"idempotency"`
	Providers   ProvidersConfig   `toml:"providers"`
}

// ServerConfig настройки HTTP сервера
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`
}

// DSN возвращает строку подключения к PostgreSQL
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// LogsConfig настройки логирования
type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// MetricsConfig настройки метрик Prometheus
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// BookingConfig настройки жизненного цикла бронирований
type BookingConfig struct {
	// DefaultHoldMinutes время жизни холда, если клиент не передал своё
	DefaultHoldMinutes int `toml:"default_hold_minutes"`
	// SweepIntervalSeconds период запуска sweeper'а просроченных холдов
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
}

// IdempotencyConfig настройки идемпотентности вебхуков
type IdempotencyConfig struct {
	// LockTTLSeconds TTL короткого лока (повторные доставки в пределах секунд-минут)
	LockTTLSeconds int `toml:"lock_ttl_seconds"`
	// ReplayTTLDays TTL долгого replay-стора (поздние повторные доставки)
	ReplayTTLDays int `toml:"replay_ttl_days"`
}

// ProvidersConfig настройки платежных провайдеров
type ProvidersConfig struct {
	Cardpay   CardpayConfig   `toml:"cardpay"`
	Cryptopay CryptopayConfig `toml:"cryptopay"`
}

// CardpayConfig настройки карточного провайдера
type CardpayConfig struct {
	SecretKey       string `toml:"secret_key"`
	CheckoutBaseURL string `toml:"checkout_base_url"`
}

// CryptopayConfig настройки крипто/банковского провайдера
type CryptopayConfig struct {
	APIToken        string `toml:"api_token"`
	CheckoutBaseURL string `toml:"checkout_base_url"`
}

// Load загружает конфигурацию из TOML файла
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Booking.DefaultHoldMinutes == 0 {
		cfg.Booking.DefaultHoldMinutes = 15
	}
	if cfg.Booking.SweepIntervalSeconds == 0 {
		cfg.Booking.SweepIntervalSeconds = 60
	}
	if cfg.Idempotency.LockTTLSeconds == 0 {
		cfg.Idempotency.LockTTLSeconds = 60
	}
	if cfg.Idempotency.ReplayTTLDays == 0 {
		cfg.Idempotency.ReplayTTLDays = 30
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
