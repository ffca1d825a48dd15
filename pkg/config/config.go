package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"3000" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"90s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RefreshRate     float64       `yaml:"refresh_rate_per_min" default:"6"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Signals struct {
		Pairs          []string      `yaml:"pairs" validate:"min=1,dive,required"`
		Interval       time.Duration `yaml:"interval" default:"1m"`
		CandleInterval string        `yaml:"candle_interval" default:"1h"`
		OrderBookDepth int           `yaml:"order_book_depth" default:"10" validate:"gte=1,lte=500"`
		CycleTimeout   time.Duration `yaml:"cycle_timeout" default:"60s"`
	} `yaml:"signals"`
	Exchange struct {
		BaseURL  string        `yaml:"base_url" default:"https://api.kraken.com" validate:"url"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"10s"`
	} `yaml:"exchange"`
	Liquidity struct {
		URL      string        `yaml:"url" default:"https://api.coingecko.com/api/v3/global" validate:"url"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"5m"`
	} `yaml:"liquidity"`
	Reasoning struct {
		Disabled         bool          `yaml:"disabled"`
		APIURL           string        `yaml:"api_url" default:"https://api.moonshot.ai/v1/chat/completions" validate:"url"`
		APIKey           string        `yaml:"api_key"`
		Model            string        `yaml:"model" default:"kimi-k2.5-preview"`
		Timeout          time.Duration `yaml:"timeout" default:"15s"`
		Temperature      float64       `yaml:"temperature" default:"0.6"`
		MaxTokens        int           `yaml:"max_tokens" default:"800"`
		MaxLearningChars int           `yaml:"max_learning_chars" default:"4000"`
	} `yaml:"reasoning"`
	Learning struct {
		Path            string        `yaml:"path" default:"./data/agent-learning.md"`
		RebuildInterval time.Duration `yaml:"rebuild_interval" default:"10m"`
	} `yaml:"learning"`
	Storage struct {
		Driver string `yaml:"driver" default:"clickhouse" validate:"oneof=clickhouse postgres memory"`
	} `yaml:"storage"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"cryptoedge"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN             string        `yaml:"dsn"`
		MaxConns        int32         `yaml:"max_conns" default:"10"`
		MinConns        int32         `yaml:"min_conns" default:"2"`
		MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" default:"30m"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"cryptoedge"`
		Pool     struct {
			Size    int           `yaml:"size" default:"10" validate:"gte=1"`
			MinIdle int           `yaml:"min_idle" default:"2" validate:"gte=0"`
			Timeout time.Duration `yaml:"timeout" default:"4s"`
		} `yaml:"pool"`
		LocalSize int           `yaml:"local_size" default:"1000" validate:"gte=1"`
		LocalTTL  time.Duration `yaml:"local_ttl" default:"30s"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled     bool     `yaml:"enabled"`
		Brokers     []string `yaml:"brokers"`
		Compression string   `yaml:"compression" default:"snappy"`
		Topics      struct {
			Signals      string `yaml:"signals" default:"signals.generated"`
			ClosedTrades string `yaml:"closed_trades" default:"trades.closed"`
			Errors       string `yaml:"errors" default:"cryptoedge.errors"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"cryptoedge-learning"`
			Workers    int           `yaml:"workers" default:"1"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	applyEnv(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("REASONING_API_KEY"); v != "" {
		c.Reasoning.APIKey = v
	}
	if v := os.Getenv("REASONING_API_URL"); v != "" {
		c.Reasoning.APIURL = v
	}
	if v := os.Getenv("REASONING_MODEL"); v != "" {
		c.Reasoning.Model = v
	}
	if v := os.Getenv("REASONING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Reasoning.Disabled = !b
		}
	}
	if v := os.Getenv("SIGNAL_PAIRS"); v != "" {
		c.Signals.Pairs = splitList(v)
	}
	if v := os.Getenv("SIGNAL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Signals.Interval = d
		}
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if p, err := strconv.Atoi(port); ok && err == nil {
			c.Redis.Port = p
		}
		c.Redis.Enabled = true
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Signals.Interval < time.Second {
		return fmt.Errorf("signals.interval must be at least 1s, got %s", c.Signals.Interval)
	}
	// a manual refresh holds its response open for up to one cycle
	if c.Server.WriteTimeout <= c.Signals.CycleTimeout {
		return fmt.Errorf("server.write_timeout (%s) must exceed signals.cycle_timeout (%s)",
			c.Server.WriteTimeout, c.Signals.CycleTimeout)
	}
	if c.Storage.Driver == "postgres" && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required when storage.driver is 'postgres'")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
