package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

type ServerConfig struct {
	Address       string `json:"address"`
	Restore       bool   `json:"restore"`
	StoreInterval int    `json:"store_interval"`
	StoreFile     string `json:"store_file"`
	DatabaseDSN   string `json:"database_dsn"`
	Key           string `json:"key"`
	TrustedSubnet string `json:"trusted_subnet"`
	GaugeTTL      int    `json:"gauge_ttl"`
	OTelInterval  int    `json:"otel_interval"`
	LogLevel      string `json:"log_level"`
}

func defaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:       "localhost:8080",
		Restore:       true,
		StoreInterval: 300,
		StoreFile:     "/tmp/metric-bridge.json",
		GaugeTTL:      900,
		OTelInterval:  60,
		LogLevel:      "info",
	}
}

// StoreDuration возвращает интервал сохранения снимка
func (c *ServerConfig) StoreDuration() time.Duration {
	return time.Duration(c.StoreInterval) * time.Second
}

// GaugeTTLDuration возвращает время жизни неперерегистрированных gauge
func (c *ServerConfig) GaugeTTLDuration() time.Duration {
	return time.Duration(c.GaugeTTL) * time.Second
}

// OTelDuration возвращает интервал выгрузки метрик OpenTelemetry
func (c *ServerConfig) OTelDuration() time.Duration {
	return time.Duration(c.OTelInterval) * time.Second
}

// LoadServerConfig собирает конфигурацию сервера.
// Приоритет: переменные окружения, флаги, JSON-файл, значения по умолчанию.
func LoadServerConfig(args []string) (*ServerConfig, error) {
	cfg := defaultServerConfig()
	flags := *cfg

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("c", "", "Path to JSON config file")
	fs.StringVar(&flags.Address, "a", cfg.Address, "HTTP server address")
	fs.IntVar(&flags.StoreInterval, "i", cfg.StoreInterval, "Snapshot store interval in seconds")
	fs.StringVar(&flags.StoreFile, "f", cfg.StoreFile, "Snapshot file path")
	fs.BoolVar(&flags.Restore, "r", cfg.Restore, "Restore gauges from the last snapshot at startup")
	fs.StringVar(&flags.DatabaseDSN, "d", cfg.DatabaseDSN, "Database connection string")
	fs.StringVar(&flags.Key, "k", cfg.Key, "Secret key for request hashing")
	fs.StringVar(&flags.TrustedSubnet, "t", cfg.TrustedSubnet, "Trusted subnet in CIDR notation")
	fs.IntVar(&flags.GaugeTTL, "g", cfg.GaugeTTL, "Seconds before a gauge that was not updated is dropped")
	fs.IntVar(&flags.OTelInterval, "o", cfg.OTelInterval, "OpenTelemetry export interval in seconds, 0 disables export")
	fs.StringVar(&flags.LogLevel, "l", cfg.LogLevel, "Log level")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	path := *configPath
	if envPath, ok := os.LookupEnv("CONFIG"); ok && envPath != "" {
		path = envPath
	}
	if err := loadJSON(path, cfg); err != nil {
		return nil, err
	}

	// Флаги, заданные явно, перекрывают файл
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			cfg.Address = flags.Address
		case "i":
			cfg.StoreInterval = flags.StoreInterval
		case "f":
			cfg.StoreFile = flags.StoreFile
		case "r":
			cfg.Restore = flags.Restore
		case "d":
			cfg.DatabaseDSN = flags.DatabaseDSN
		case "k":
			cfg.Key = flags.Key
		case "t":
			cfg.TrustedSubnet = flags.TrustedSubnet
		case "g":
			cfg.GaugeTTL = flags.GaugeTTL
		case "o":
			cfg.OTelInterval = flags.OTelInterval
		case "l":
			cfg.LogLevel = flags.LogLevel
		}
	})

	envString("ADDRESS", &cfg.Address)
	envString("FILE_STORAGE_PATH", &cfg.StoreFile)
	envString("DATABASE_DSN", &cfg.DatabaseDSN)
	envString("KEY", &cfg.Key)
	envString("TRUSTED_SUBNET", &cfg.TrustedSubnet)
	envString("LOG_LEVEL", &cfg.LogLevel)
	if err := envInt("STORE_INTERVAL", &cfg.StoreInterval); err != nil {
		return nil, err
	}
	if err := envInt("GAUGE_TTL", &cfg.GaugeTTL); err != nil {
		return nil, err
	}
	if err := envInt("OTEL_INTERVAL", &cfg.OTelInterval); err != nil {
		return nil, err
	}
	if err := envBool("RESTORE", &cfg.Restore); err != nil {
		return nil, err
	}

	if cfg.StoreInterval < 0 {
		return nil, fmt.Errorf("store interval must not be negative, got %d", cfg.StoreInterval)
	}
	if cfg.GaugeTTL < 0 {
		return nil, fmt.Errorf("gauge ttl must not be negative, got %d", cfg.GaugeTTL)
	}
	if cfg.OTelInterval < 0 {
		return nil, fmt.Errorf("otel interval must not be negative, got %d", cfg.OTelInterval)
	}

	return cfg, nil
}

func loadJSON(path string, dst any) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json.Unmarshal(file, dst); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func envString(key string, dst *string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*dst = value
	}
}

func envInt(key string, dst *int) error {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func envBool(key string, dst *bool) error {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = parsed
	return nil
}
