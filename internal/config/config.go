package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration, loaded from YAML with
// environment-variable overrides (BIBLIOTECA_SERVER_PORT and so on).
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
}

type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type JobsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// ExpirationInterval is how often the reservation expiration sweep runs.
	ExpirationInterval time.Duration `mapstructure:"expiration_interval"`
	// ReservationMaxAgeDays is the sweep cutoff: ACTIVE reservations older
	// than this are expired.
	ReservationMaxAgeDays int `mapstructure:"reservation_max_age_days"`
	// ReminderHour is the local hour (0-23) at which due-loan reminders run.
	ReminderHour int `mapstructure:"reminder_hour"`
	// ReminderDaysAhead selects loans due this many days from today.
	ReminderDaysAhead int `mapstructure:"reminder_days_ahead"`
}

// Load reads config/config.yaml (or ./config.yaml) and applies BIBLIOTECA_*
// environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("jwt.expiry", "12h")
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.expiration_interval", "10m")
	v.SetDefault("jobs.reservation_max_age_days", 1)
	v.SetDefault("jobs.reminder_hour", 8)
	v.SetDefault("jobs.reminder_days_ahead", 1)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v.SetEnvPrefix("BIBLIOTECA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret must be set")
	}
	if cfg.Server.Mode == "release" && cfg.JWT.Secret == "change-me" {
		return fmt.Errorf("jwt.secret must be changed for release mode")
	}
	if cfg.Jobs.ReminderHour < 0 || cfg.Jobs.ReminderHour > 23 {
		return fmt.Errorf("invalid jobs.reminder_hour: %d", cfg.Jobs.ReminderHour)
	}
	return nil
}
