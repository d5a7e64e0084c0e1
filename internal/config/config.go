package config

import (
	"fmt"
	"os"
	"strings"

	"vescollector/internal/models"

	"gopkg.in/yaml.v3"
)

const (
	MinPort = 1024
	MaxPort = 65535

	defaultConfigFile = "./config/collector.yaml"
)

// Loaded wraps a parsed configuration together with the non-fatal problems
// found while normalising it, so the caller can log them once a logger exists.
type Loaded struct {
	*models.CollectorConfig
	Warnings []string
}

// LoadConfig loads the collector configuration from a YAML file
func LoadConfig(filePath string) (*Loaded, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses, defaults and validates a YAML configuration document
func ParseConfig(data []byte) (*Loaded, error) {
	var config models.CollectorConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	applyDefaults(&config)
	warnings := normalize(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Loaded{CollectorConfig: &config, Warnings: warnings}, nil
}

func applyDefaults(config *models.CollectorConfig) {
	c := &config.Collector
	if c.Name == "" {
		c.Name = "ves-collector"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogFile == "" {
		c.LogFile = "collector.log"
	}
	if c.Port == 0 {
		c.Port = 12233
	}
	if c.APIVersion == "" {
		c.APIVersion = "5"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	if c.ReadTimeoutMs <= 0 {
		c.ReadTimeoutMs = 30000
	}
	if c.WriteTimeoutMs <= 0 {
		c.WriteTimeoutMs = 30000
	}

	if config.Pending.Backend == "" {
		config.Pending.Backend = "memory"
	}
	if config.Pending.Redis.Key == "" {
		config.Pending.Redis.Key = "ves:pending"
	}

	j := &config.Journal
	if j.Driver == "" {
		j.Driver = "sqlite"
	}
	if j.DSN == "" && j.Driver == "sqlite" {
		j.DSN = "./collector.db"
	}

	if config.Admin.RateRPS <= 0 {
		config.Admin.RateRPS = 10
	}
	if config.Admin.RateBurst <= 0 {
		config.Admin.RateBurst = 20
	}
}

// normalize fixes up recoverable mistakes and reports them
func normalize(config *models.CollectorConfig) []string {
	var warnings []string
	c := &config.Collector

	if len(c.Path) > 0 && !strings.HasSuffix(c.Path, "/") {
		warnings = append(warnings, fmt.Sprintf(
			"event listener path (%s) should have terminating \"/\", adding one on to configured string", c.Path))
		c.Path += "/"
	}
	c.Path = strings.TrimPrefix(c.Path, "/")

	config.Pending.Backend = strings.ToLower(strings.TrimSpace(config.Pending.Backend))
	config.Journal.Driver = strings.ToLower(strings.TrimSpace(config.Journal.Driver))

	return warnings
}

// validateConfig validates a collector configuration
func validateConfig(config *models.CollectorConfig) error {
	c := config.Collector

	if c.Port < MinPort || c.Port > MaxPort {
		return fmt.Errorf("invalid vendor event listener port (%d) specified", c.Port)
	}

	if strings.TrimSpace(c.APIVersion) == "" {
		return fmt.Errorf("api version must not be empty")
	}

	switch config.Pending.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(config.Pending.Redis.Addr) == "" {
			return fmt.Errorf("pending.redis.addr is required when pending.backend is redis")
		}
	default:
		return fmt.Errorf("unknown pending backend: %s", config.Pending.Backend)
	}

	if config.Journal.Enabled {
		switch config.Journal.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("unknown journal driver: %s", config.Journal.Driver)
		}
		if config.Journal.DSN == "" {
			return fmt.Errorf("journal.dsn is required when the journal is enabled")
		}
	}

	if a := config.Admin; a.Port != 0 {
		if a.Port < MinPort || a.Port > MaxPort {
			return fmt.Errorf("invalid admin port (%d) specified", a.Port)
		}
		if a.Port == c.Port {
			return fmt.Errorf("admin port and event listener port cannot be the same")
		}
	}

	// A zero abort code disables aborts.
	if chaos := c.ChaosInjection; chaos != nil {
		if code := chaos.Abort.Code; code != 0 && (code < 100 || code > 599) {
			return fmt.Errorf("invalid chaos_injection abort code (%d) specified", code)
		}
	}

	return nil
}

// EventListenerURL returns the root event listener path, which is also the
// base URL echoed by the dispatcher's 404 diagnostics.
func EventListenerURL(c models.Collector) string {
	topic := ""
	if len(c.TopicName) > 0 {
		topic = "/" + c.TopicName
	}
	return fmt.Sprintf("/%seventListener/v%s%s", c.Path, c.APIVersion, topic)
}

func ThrottleURL(c models.Collector) string {
	return fmt.Sprintf("/%seventListener/v%s/clientThrottlingState", c.Path, c.APIVersion)
}

func TestControlURL(c models.Collector) string {
	return fmt.Sprintf("/testControl/v%s/commandList", c.APIVersion)
}

// GetConfigFile returns the configuration file path
func GetConfigFile() string {
	if configFile := os.Getenv("COLLECTOR_CONFIG"); configFile != "" {
		return configFile
	}

	return defaultConfigFile
}

// GetLogSettings returns the default logging configuration
func GetLogSettings() *models.LogSettings {
	return &models.LogSettings{
		Console:            true,
		BeautifyConsoleLog: true,
		File:               true,
		Path:               "./logs/collector.log",
		MinLevel:           "info",
		RotationMaxSizeMB:  1,
		MaxAgeDay:          30,
		MaxBackups:         10,
		Compress:           false,
	}
}
