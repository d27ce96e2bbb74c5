package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"boardlink/models"
	"boardlink/service"
)

// Config is the process configuration. Values come from Default, then the
// YAML file, then environment variables.
type Config struct {
	Server struct {
		Addr string `yaml:"addr" env:"SERVER_ADDR"`
	} `yaml:"server"`

	Account struct {
		Username string `yaml:"username" env:"ACCOUNT_USERNAME"`
		Password string `yaml:"password" env:"ACCOUNT_PASSWORD"`
	} `yaml:"account"`

	Directory struct {
		TokenURL        string        `yaml:"token_url" env:"DIRECTORY_TOKEN_URL"`
		BoardsURL       string        `yaml:"boards_url" env:"DIRECTORY_BOARDS_URL"`
		ClientID        string        `yaml:"client_id" env:"DIRECTORY_CLIENT_ID"`
		Scope           string        `yaml:"scope" env:"DIRECTORY_SCOPE"`
		RefreshInterval time.Duration `yaml:"refresh_interval" env:"DIRECTORY_REFRESH_INTERVAL"`
		Timeout         time.Duration `yaml:"timeout" env:"DIRECTORY_TIMEOUT"`
	} `yaml:"directory"`

	Boards struct {
		EventsPath        string               `yaml:"events_path" env:"BOARDS_EVENTS_PATH"`
		DefaultPort       int                  `yaml:"default_port" env:"BOARDS_DEFAULT_PORT"`
		ReconnectInterval time.Duration        `yaml:"reconnect_interval" env:"BOARDS_RECONNECT_INTERVAL"`
		LivenessWindow    time.Duration        `yaml:"liveness_window" env:"BOARDS_LIVENESS_WINDOW"`
		TickInterval      time.Duration        `yaml:"tick_interval" env:"BOARDS_TICK_INTERVAL"`
		AutoOpen          bool                 `yaml:"auto_open" env:"BOARDS_AUTO_OPEN"`
		Static            []models.BoardRecord `yaml:"static"`
	} `yaml:"boards"`

	Database struct {
		DSN       string `yaml:"dsn" env:"DATABASE_DSN"`
		Retention int    `yaml:"retention" env:"DATABASE_RETENTION"`
	} `yaml:"database"`

	Kafka struct {
		Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
	} `yaml:"kafka"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"

	dir := service.DefaultDirectoryConfig()
	cfg.Directory.TokenURL = dir.TokenURL
	cfg.Directory.BoardsURL = dir.BoardsURL
	cfg.Directory.ClientID = dir.ClientID
	cfg.Directory.Scope = dir.Scope
	cfg.Directory.RefreshInterval = service.DefaultRefreshInterval
	cfg.Directory.Timeout = 30 * time.Second

	conn := service.DefaultConnectionOptions()
	cfg.Boards.EventsPath = conn.EventsPath
	cfg.Boards.DefaultPort = conn.DefaultPort
	cfg.Boards.ReconnectInterval = conn.ReconnectInterval
	cfg.Boards.LivenessWindow = conn.LivenessWindow
	cfg.Boards.TickInterval = service.DefaultTickInterval
	cfg.Boards.AutoOpen = true

	cfg.Database.DSN = DefaultDatabaseDSN
	cfg.Database.Retention = service.DefaultJournalRetention

	cfg.Kafka.Topic = "board-events"
	return cfg
}

// Load reads path (skipped when empty) and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Static boards come from the file only.
	static := cfg.Boards.Static
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Boards.Static = static
	return cfg, nil
}

func (c *Config) Credentials() models.Credentials {
	return models.Credentials{Username: c.Account.Username, Password: c.Account.Password}
}

func (c *Config) DirectoryConfig() service.DirectoryConfig {
	return service.DirectoryConfig{
		TokenURL:  c.Directory.TokenURL,
		BoardsURL: c.Directory.BoardsURL,
		ClientID:  c.Directory.ClientID,
		Scope:     c.Directory.Scope,
	}
}

func (c *Config) ConnectionOptions() service.ConnectionOptions {
	return service.ConnectionOptions{
		ReconnectInterval: c.Boards.ReconnectInterval,
		LivenessWindow:    c.Boards.LivenessWindow,
		EventsPath:        c.Boards.EventsPath,
		DefaultPort:       c.Boards.DefaultPort,
	}
}

func (c *Config) PollerOptions() service.PollerOptions {
	return service.PollerOptions{
		TickInterval:    c.Boards.TickInterval,
		RefreshInterval: c.Directory.RefreshInterval,
		Credentials:     c.Credentials(),
	}
}

// KafkaEnabled reports whether events should be forwarded to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
