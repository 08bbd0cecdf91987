package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Window struct {
		Capacity int `yaml:"capacity"`
	} `yaml:"window"`
	Binance struct {
		Symbol         string        `yaml:"symbol"`
		Timeframes     []string      `yaml:"timeframes"`
		RestURL        string        `yaml:"rest_url"`
		WebSocketURL   string        `yaml:"websocket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		Backfill       struct {
			Target    int `yaml:"target"`
			PageLimit int `yaml:"page_limit"`
		} `yaml:"backfill"`
	} `yaml:"binance"`
	Forecast struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Mode    string        `yaml:"mode"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"forecast"`
	Sink struct {
		Type string `yaml:"type"` // kafka, clickhouse, or none
	} `yaml:"sink"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Cache struct {
		TTL   time.Duration `yaml:"ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FORECAST_API_KEY"); v != "" {
		c.Forecast.APIKey = v
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		c.Binance.Symbol = v
	}
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		c.Binance.Timeframes = strings.Split(v, ",")
	}
	if v := os.Getenv("SINK"); v != "" {
		c.Sink.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Window.Capacity == 0 {
		c.Window.Capacity = 5000
	}
	if c.Binance.RestURL == "" {
		c.Binance.RestURL = "https://api.binance.us"
	}
	if c.Binance.WebSocketURL == "" {
		c.Binance.WebSocketURL = "wss://stream.binance.us:9443/ws"
	}
	if c.Binance.ReconnectDelay == 0 {
		c.Binance.ReconnectDelay = 5 * time.Second
	}
	if c.Binance.PingInterval == 0 {
		c.Binance.PingInterval = 30 * time.Second
	}
	if c.Binance.Backfill.Target == 0 {
		c.Binance.Backfill.Target = c.Window.Capacity
	}
	if c.Binance.Backfill.PageLimit == 0 {
		c.Binance.Backfill.PageLimit = 1000
	}
	if c.Forecast.Mode == "" {
		c.Forecast.Mode = "reactive"
	}
	if c.Forecast.Timeout == 0 {
		c.Forecast.Timeout = 30 * time.Second
	}
	if c.Sink.Type == "" {
		c.Sink.Type = "none"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Binance.Symbol == "" {
		return fmt.Errorf("binance.symbol is required")
	}
	if len(c.Binance.Timeframes) == 0 {
		return fmt.Errorf("binance.timeframes cannot be empty")
	}
	if c.Forecast.BaseURL == "" {
		return fmt.Errorf("forecast.base_url is required")
	}
	if c.Forecast.APIKey == "" {
		return fmt.Errorf("forecast.api_key is required")
	}
	switch c.Sink.Type {
	case "kafka", "clickhouse", "none":
	default:
		return fmt.Errorf("sink.type must be 'kafka', 'clickhouse' or 'none', got '%s'", c.Sink.Type)
	}
	if c.Sink.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required for kafka sink")
	}
	if c.Sink.Type == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host required for clickhouse sink")
	}
	return nil
}
