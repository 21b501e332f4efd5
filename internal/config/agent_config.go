package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

type AgentConfig struct {
	Address      string `json:"address"`
	PollInterval int    `json:"poll_interval"`
	Key          string `json:"key"`
	LogLevel     string `json:"log_level"`
}

func (c *AgentConfig) PollDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// LoadAgentConfig собирает конфигурацию агента с тем же приоритетом, что и у сервера
func LoadAgentConfig(args []string) (*AgentConfig, error) {
	cfg := &AgentConfig{
		Address:      "localhost:8080",
		PollInterval: 2,
		LogLevel:     "info",
	}
	flags := *cfg

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	configPath := fs.String("c", "", "Path to JSON config file")
	fs.StringVar(&flags.Address, "a", cfg.Address, "Server address")
	fs.IntVar(&flags.PollInterval, "p", cfg.PollInterval, "Poll interval in seconds")
	fs.StringVar(&flags.Key, "k", cfg.Key, "Secret key for request hashing")
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

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			cfg.Address = flags.Address
		case "p":
			cfg.PollInterval = flags.PollInterval
		case "k":
			cfg.Key = flags.Key
		case "l":
			cfg.LogLevel = flags.LogLevel
		}
	})

	envString("ADDRESS", &cfg.Address)
	envString("KEY", &cfg.Key)
	envString("LOG_LEVEL", &cfg.LogLevel)
	if err := envInt("POLL_INTERVAL", &cfg.PollInterval); err != nil {
		return nil, err
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %d", cfg.PollInterval)
	}

	return cfg, nil
}
