package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	DefaultSchedule           = "FREQ=DAILY;BYHOUR=2;BYMINUTE=0;BYSECOND=0"
	DefaultLookaheadDays      = 5
	DefaultMaxConcurrentSlots = 3
	DefaultExchange           = "boat-hire.events"
)

// Environment variables that override values from the config file
const (
	EnvDatabaseURL   = "BOATHIRE_DATABASE_URL"
	EnvRedisAddr     = "BOATHIRE_REDIS_ADDR"
	EnvAMQPURL       = "BOATHIRE_AMQP_URL"
	EnvLookaheadDays = "BOATHIRE_LOOKAHEAD_DAYS"
)

// EmailConfig controls booking outcome emails sent through Gmail
type EmailConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Sender          string `yaml:"sender,omitempty" validate:"omitempty,email"`
	OAuthClientPath string `yaml:"oauthClientPath,omitempty" validate:"required_if=Enabled true"`
}

// BrokerConfig controls publishing allocation events to RabbitMQ
type BrokerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url,omitempty" validate:"required_if=Enabled true"`
	Exchange string `yaml:"exchange,omitempty" validate:"required_if=Enabled true"`
}

// NotificationsConfig groups the optional outbound channels
type NotificationsConfig struct {
	Email  EmailConfig  `yaml:"email"`
	Broker BrokerConfig `yaml:"broker"`
}

// RedisConfig enables the redis-backed run lock shared between instances
type RedisConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr,omitempty" validate:"required_if=Enabled true"`
	LockTTL time.Duration `yaml:"lockTTL,omitempty" validate:"omitempty,min=1s"`
}

// Config represents the application configuration
type Config struct {
	Store              string              `yaml:"store" validate:"required,oneof=postgres memory"`
	DatabaseURL        string              `yaml:"databaseURL,omitempty" validate:"required_if=Store postgres"`
	LookaheadDays      int                 `yaml:"lookaheadDays" validate:"min=0,max=60"`
	Schedule           string              `yaml:"schedule" validate:"required"`
	Interval           time.Duration       `yaml:"interval" validate:"min=1m"`
	CatchUpDelay       time.Duration       `yaml:"catchUpDelay" validate:"min=1s"`
	Timezone           string              `yaml:"timezone,omitempty" validate:"omitempty,timezone"`
	MaxConcurrentSlots int                 `yaml:"maxConcurrentSlots" validate:"min=1,max=16"`
	OpsAddr            string              `yaml:"opsAddr,omitempty"`
	LogDir             string              `yaml:"logDir,omitempty"`
	Notifications      NotificationsConfig `yaml:"notifications"`
	Redis              RedisConfig         `yaml:"redis"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns a Config holding every default value
func Default() Config {
	return Config{
		Store:              StorePostgres,
		LookaheadDays:      DefaultLookaheadDays,
		Schedule:           DefaultSchedule,
		Interval:           24 * time.Hour,
		CatchUpDelay:       30 * time.Second,
		MaxConcurrentSlots: DefaultMaxConcurrentSlots,
		OpsAddr:            ":9090",
		Notifications: NotificationsConfig{
			Broker: BrokerConfig{Exchange: DefaultExchange},
		},
		Redis: RedisConfig{LockTTL: 10 * time.Minute},
	}
}

// Load loads and validates the configuration from boat_hire_config.yaml
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for an environment.
// For example, env="test" looks for "boat_hire_config.test.yaml".
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads the configuration from a specific path, applies environment
// overrides and validates the result
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks the schedule rule
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := rrule.StrToRRule(cfg.Schedule); err != nil {
		return fmt.Errorf("invalid rrule in schedule: %w", err)
	}

	return nil
}

// ScheduleRule parses the schedule
func (c *Config) ScheduleRule() (*rrule.RRule, error) {
	rule, err := rrule.StrToRRule(c.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid rrule in schedule: %w", err)
	}
	return rule, nil
}

// Location returns the configured timezone, UTC if none is set
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// applyEnvOverrides replaces file values with any BOATHIRE_* variables that are set
func applyEnvOverrides(cfg *Config) error {
	v := viper.New()
	bindings := map[string]string{
		"databaseURL":   EnvDatabaseURL,
		"redisAddr":     EnvRedisAddr,
		"amqpURL":       EnvAMQPURL,
		"lookaheadDays": EnvLookaheadDays,
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if v.IsSet("databaseURL") {
		cfg.DatabaseURL = v.GetString("databaseURL")
	}
	if v.IsSet("redisAddr") {
		cfg.Redis.Addr = v.GetString("redisAddr")
	}
	if v.IsSet("amqpURL") {
		cfg.Notifications.Broker.URL = v.GetString("amqpURL")
	}
	if v.IsSet("lookaheadDays") {
		days, err := strconv.Atoi(v.GetString("lookaheadDays"))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLookaheadDays, err)
		}
		cfg.LookaheadDays = days
	}

	return nil
}

// findConfigFile searches for the config file in the current directory then the
// home directory. A non-empty env is added as an extension.
func findConfigFile(env string) (string, error) {
	configFileName := "boat_hire_config.yaml"
	if env != "" {
		configFileName = "boat_hire_config." + env + ".yaml"
	}

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", errors.New("config file not found in current directory or home directory")
}
