package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Загрузка конфигурации из config.yaml через cleanenv

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Sources    SourcesConfig    `yaml:"sources"`
	Settings   SettingsConfig   `yaml:"settings"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Logger     LoggerConfig     `yaml:"logger"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"35s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled" env:"SCHEDULER_ENABLED" env-default:"true"`
	Interval time.Duration `yaml:"interval" env:"SCHEDULER_INTERVAL" env-default:"60s"`
}

type AggregatorConfig struct {
	DefaultSource  string        `yaml:"default_source" env:"DEFAULT_SOURCE" env-default:"coinbase"`
	NoFallback     bool          `yaml:"no_fallback" env:"NO_FALLBACK" env-default:"false"`
	Ordering       string        `yaml:"ordering" env-default:"registry"` // registry|shuffled
	AttemptTimeout time.Duration `yaml:"attempt_timeout" env-default:"10s"`
	TotalTimeout   time.Duration `yaml:"total_timeout" env-default:"30s"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" env-default:"1048576"`
	MaxRedirects   int           `yaml:"max_redirects" env-default:"5"`
	RatePerSecond  float64       `yaml:"rate_per_second" env-default:"0"` // 0 - без ограничения
	RateBurst      int           `yaml:"rate_burst" env-default:"1"`
}

// SourcesConfig - подмена адресов источников по id (стенды, моки)
type SourcesConfig struct {
	Endpoints map[string]string `yaml:"endpoints"`
}

type SettingsConfig struct {
	Backend string `yaml:"backend" env:"SETTINGS_BACKEND" env-default:"memory"` // memory|postgres|redis
}

type LoggerConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`   // debug|info|warn|error
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"` // text|json
}

type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled" env:"POSTGRES_ENABLED" env-default:"false"`
	Host            string        `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"POSTGRES_USER" env-default:"postgres"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DBName          string        `yaml:"dbname" env:"POSTGRES_DB" env-default:"btc_ticker"`
	SSLMode         string        `yaml:"sslmode" env-default:"disable"`
	Timeout         time.Duration `yaml:"timeout" env-default:"5s"`
	MaxConns        int32         `yaml:"max_conns" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env-default:"30m"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env-default:"0"`
	Timeout  time.Duration `yaml:"timeout" env-default:"3s"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
	Token   string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
}

func LoadConfig() (*Config, error) {
	return Load(fetchConfigPath())
}

// Load - читает файл (если задан) и переменные окружения
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Try to read from config file if specified
	if configPath != "" {
		if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	// Read from environment variables
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fetchConfigPath() string {
	var res string
	flag.StringVar(&res, "c", "", "config file path")
	flag.Parse()
	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
