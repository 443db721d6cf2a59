package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Path     string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Queue    string `mapstructure:"queue"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

type SchedulerConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	RescanInterval       time.Duration `mapstructure:"rescan_interval"`
	NotificationInterval time.Duration `mapstructure:"notification_interval"`
	SnapshotInterval     time.Duration `mapstructure:"snapshot_interval"`
	ClaimTimeout         time.Duration `mapstructure:"claim_timeout"`
	RunOnStart           bool          `mapstructure:"run_on_start"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Enabled reports whether outbound email is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type Config struct {
	LogLevel         string          `mapstructure:"log_level"`
	DashboardURL     string          `mapstructure:"dashboard_url"`
	SpecFetchTimeout time.Duration   `mapstructure:"spec_fetch_timeout"`
	Database         DatabaseConfig  `mapstructure:"database"`
	Redis            RedisConfig     `mapstructure:"redis"`
	Server           ServerConfig    `mapstructure:"server"`
	Scheduler        SchedulerConfig `mapstructure:"scheduler"`
	SMTP             SMTPConfig      `mapstructure:"smtp"`
}

// Options controls where configuration is read from.
type Options struct {
	ConfigFile string
	ConfigName string
	EnvPrefix  string
	Paths      []string
}

func DefaultOptions() Options {
	return Options{
		ConfigName: "config",
		EnvPrefix:  "VULX",
		Paths:      []string{".", "/etc/vulx", "$HOME/.vulx"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("dashboard_url", "http://localhost:3000")
	v.SetDefault("spec_fetch_timeout", 15*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "vulx")
	v.SetDefault("database.password", "vulx")
	v.SetDefault("database.name", "vulx")
	v.SetDefault("database.path", "vulx.db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.queue", "scan_queue")

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.rescan_interval", time.Hour)
	v.SetDefault("scheduler.notification_interval", time.Minute)
	v.SetDefault("scheduler.snapshot_interval", 24*time.Hour)
	v.SetDefault("scheduler.claim_timeout", 10*time.Minute)
	v.SetDefault("scheduler.run_on_start", true)

	// keys without a default are invisible to Unmarshal when set only via env
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
}

// LoadConfig reads .env, an optional YAML file, and VULX_* environment
// variables, in increasing order of precedence.
func LoadConfig(opts Options) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName(opts.ConfigName)
		for _, p := range opts.Paths {
			v.AddConfigPath(p)
		}
	}

	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || opts.ConfigFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the server cannot start without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid database.driver %q, must be one of: postgres, sqlite", c.Database.Driver)
	}
	if c.Redis.Queue == "" {
		return fmt.Errorf("redis.queue must not be empty")
	}
	if c.Scheduler.RescanInterval <= 0 || c.Scheduler.NotificationInterval <= 0 || c.Scheduler.SnapshotInterval <= 0 {
		return fmt.Errorf("scheduler intervals must be positive")
	}
	return nil
}

// DSN builds the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}
