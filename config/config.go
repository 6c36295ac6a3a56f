package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger         `mapstructure:"logger"`
	DB        Database       `mapstructure:"database"`
	API       API            `mapstructure:"api"`
	Scheduler Scheduler      `mapstructure:"scheduler"`
	Agents    Agents         `mapstructure:"agents"`
	Ollama    Ollama         `mapstructure:"ollama"`
	Gemini    Gemini         `mapstructure:"gemini"`
	Cache     Cache          `mapstructure:"cache"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port int `mapstructure:"port"`
}

// Scheduler controls the task polling loop. PollInterval should stay coarser
// than one minute is fine-grained; no schedule resolves below minute
// granularity.
type Scheduler struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxConcurrency   int           `mapstructure:"max_concurrency"`
	ExecutionTimeout time.Duration `mapstructure:"execution_timeout"`
	HistorySize      int           `mapstructure:"history_size"`
	TimeZone         string        `mapstructure:"time_zone"`
}

type Agents struct {
	ConfigPath string `mapstructure:"config_path"`
}

type Ollama struct {
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRequestPerMin int           `mapstructure:"max_request_per_min"`
}

type Gemini struct {
	APIKey           string        `mapstructure:"api_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRequestPerMin int           `mapstructure:"max_request_per_min"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type TelegramConfig struct {
	BotToken              string        `mapstructure:"bot_token"`
	ChatID                int64         `mapstructure:"chat_id"`
	TimeoutDuration       time.Duration `mapstructure:"timeout_duration"`
	MaxAlertRequestPerMin int           `mapstructure:"max_alert_request_per_min"`
	DisableFailureAlerts  bool          `mapstructure:"disable_failure_alerts"`
}

func Load() (*Config, error) {
	// Optional .env preload so local runs can keep secrets out of config.yaml.
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")

	viper.SetDefault("api.port", 8080)

	viper.SetDefault("scheduler.poll_interval", 30*time.Second)
	viper.SetDefault("scheduler.max_concurrency", 4)
	viper.SetDefault("scheduler.execution_timeout", 2*time.Minute)
	viper.SetDefault("scheduler.history_size", 500)
	viper.SetDefault("scheduler.time_zone", "Local")

	viper.SetDefault("agents.config_path", "agents.json")

	viper.SetDefault("ollama.base_url", "http://localhost:11434")
	viper.SetDefault("ollama.timeout", 90*time.Second)
	viper.SetDefault("ollama.max_request_per_min", 30)

	viper.SetDefault("gemini.timeout", 90*time.Second)
	viper.SetDefault("gemini.max_request_per_min", 10)

	viper.SetDefault("cache.default_expiration", 5*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)

	viper.SetDefault("telegram.timeout_duration", 10*time.Second)
	viper.SetDefault("telegram.max_alert_request_per_min", 20)
}
