package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Payment  PaymentConfig  `yaml:"payment"`
	Agent    AgentConfig    `yaml:"agent"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

type PaymentConfig struct {
	// Secret verifies provider payment signatures. Required for the
	// coordinator; a job can never become paid without it.
	Secret string `yaml:"secret"`

	// PerPageRate prices one page printed once, in minor currency units.
	PerPageRate int64  `yaml:"per_page_rate"`
	Currency    string `yaml:"currency"`

	// ProviderURL is the order-creation endpoint. Empty means orders are
	// minted locally (development).
	ProviderURL       string        `yaml:"provider_url"`
	ProviderKeyID     string        `yaml:"provider_key_id"`
	ProviderKeySecret string        `yaml:"provider_key_secret"`
	ProviderTimeout   time.Duration `yaml:"provider_timeout"`
}

type AgentConfig struct {
	// PrinterName is the agent's identity; jobs announce a target name
	// and the agent only acts when the two match exactly.
	PrinterName    string        `yaml:"printer_name"`
	CoordinatorURL string        `yaml:"coordinator_url"`
	SpoolDir       string        `yaml:"spool_dir"`
	LPDestination  string        `yaml:"lp_destination"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	PrintTimeout   time.Duration `yaml:"print_timeout"`
	ReconnectMin   time.Duration `yaml:"reconnect_min"`
	ReconnectMax   time.Duration `yaml:"reconnect_max"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/printbridge.db",
		},
		Storage: StorageConfig{
			Dir: "./data/artifacts",
		},
		Payment: PaymentConfig{
			PerPageRate:     200,
			Currency:        "INR",
			ProviderTimeout: 10 * time.Second,
		},
		Agent: AgentConfig{
			CoordinatorURL: "http://localhost:8080",
			SpoolDir:       "./data/spool",
			FetchTimeout:   60 * time.Second,
			PrintTimeout:   2 * time.Minute,
			ReconnectMin:   time.Second,
			ReconnectMax:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PRINTBRIDGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PRINTBRIDGE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PRINTBRIDGE_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("PRINTBRIDGE_PAYMENT_SECRET"); v != "" {
		cfg.Payment.Secret = v
	}
	if v := os.Getenv("PRINTBRIDGE_PER_PAGE_RATE"); v != "" {
		if rate, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Payment.PerPageRate = rate
		}
	}
	if v := os.Getenv("PRINTBRIDGE_PRINTER_NAME"); v != "" {
		cfg.Agent.PrinterName = v
	}
	if v := os.Getenv("PRINTBRIDGE_COORDINATOR_URL"); v != "" {
		cfg.Agent.CoordinatorURL = v
	}
	if v := os.Getenv("PRINTBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the fields the coordinator needs. Agent-only fields
// are checked by ValidateAgent so a coordinator config does not need a
// printer name.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Storage.Dir == "" {
		return fmt.Errorf("storage directory is required")
	}

	if c.Payment.Secret == "" {
		return fmt.Errorf("payment secret is required")
	}

	if c.Payment.PerPageRate < 0 {
		return fmt.Errorf("per page rate must be non-negative")
	}

	if c.Payment.ProviderURL != "" && c.Payment.ProviderKeyID == "" {
		return fmt.Errorf("provider key id is required when provider url is set")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

func (c *Config) ValidateAgent() error {
	if c.Agent.PrinterName == "" {
		return fmt.Errorf("printer name is required")
	}

	if c.Agent.CoordinatorURL == "" {
		return fmt.Errorf("coordinator url is required")
	}

	if c.Agent.SpoolDir == "" {
		return fmt.Errorf("spool directory is required")
	}

	if c.Agent.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}

	if c.Agent.PrintTimeout <= 0 {
		return fmt.Errorf("print timeout must be positive")
	}

	if c.Agent.ReconnectMin <= 0 || c.Agent.ReconnectMax < c.Agent.ReconnectMin {
		return fmt.Errorf("reconnect delays must be positive and min <= max")
	}

	return nil
}
