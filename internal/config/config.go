// Package config loads vaultpanel configuration from defaults, an optional
// YAML file, VAULTPANEL_* environment variables and command-line flags.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "VAULTPANEL"

// Generation length bounds, mirrored from the password generator.
const (
	minGeneratorLength = 8
	maxGeneratorLength = 64
)

// Config holds the effective application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	DB        DBConfig        `mapstructure:"db"`
	Session   SessionConfig   `mapstructure:"session"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Log       LogConfig       `mapstructure:"log"`

	// File is the config file that was read, or "" when none was found.
	File string `mapstructure:"-"`
}

// APIConfig locates the remote vault service.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DBConfig locates the local session database.
type DBConfig struct {
	Path string `mapstructure:"path"`

	// EncryptionKey is a base64-encoded 32-byte key for the stored session
	// token. Empty stores the token unencrypted.
	EncryptionKey string `mapstructure:"encryption_key"`
}

// SessionConfig holds the inactivity timing.
type SessionConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	WarningLead  time.Duration `mapstructure:"warning_lead"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// GeneratorConfig holds the default password generation settings.
type GeneratorConfig struct {
	Length    int  `mapstructure:"length"`
	Uppercase bool `mapstructure:"uppercase"`
	Lowercase bool `mapstructure:"lowercase"`
	Digits    bool `mapstructure:"digits"`
	Symbols   bool `mapstructure:"symbols"`
}

// LogConfig selects the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Defaults returns the built-in value of every key.
func Defaults() map[string]any {
	return map[string]any{
		"api.base_url":          "http://localhost:8000/api",
		"api.timeout":           "15s",
		"db.path":               DefaultDBPath(),
		"db.encryption_key":     "",
		"session.timeout":       "30m",
		"session.warning_lead":  "5m",
		"session.tick_interval": "1s",
		"generator.length":      16,
		"generator.uppercase":   true,
		"generator.lowercase":   true,
		"generator.digits":      true,
		"generator.symbols":     true,
		"log.level":             "warn",
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"api-url":   "api.base_url",
	"db":        "db.path",
	"log-level": "log.level",
}

// DefaultDBPath returns session.db inside the user config directory, or in
// the working directory when that cannot be determined.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "vaultpanel-session.db"
	}
	return filepath.Join(dir, "vaultpanel", "session.db")
}

// Load builds the effective Config. configFile, when non-empty, names the
// file to read; otherwise vaultpanel.yaml is looked up in the user config
// directory and the working directory, and its absence is not an error.
// flags may be nil.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("vaultpanel")
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "vaultpanel"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field constraints of the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url must not be empty"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path must not be empty"))
	}
	if _, err := c.EncryptionKey(); err != nil {
		errs = append(errs, err)
	}

	s := c.Session
	if s.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("session.timeout must be positive, got %s", s.Timeout))
	}
	if s.WarningLead <= 0 || s.WarningLead >= s.Timeout {
		errs = append(errs, fmt.Errorf("session.warning_lead must be between 0 and session.timeout, got %s", s.WarningLead))
	}
	if s.TickInterval <= 0 || s.TickInterval > s.WarningLead/2 {
		errs = append(errs, fmt.Errorf("session.tick_interval must be positive and at most half of session.warning_lead, got %s", s.TickInterval))
	}

	if c.Generator.Length < minGeneratorLength || c.Generator.Length > maxGeneratorLength {
		errs = append(errs, fmt.Errorf("generator.length must be between %d and %d, got %d", minGeneratorLength, maxGeneratorLength, c.Generator.Length))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// EncryptionKey decodes db.encryption_key. It returns nil when unset.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.DB.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.DB.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("db.encryption_key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("db.encryption_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// effective is the printable form of Config. Durations are rendered as
// strings and the encryption key is redacted.
type effective struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	DB struct {
		Path          string `yaml:"path"`
		EncryptionKey string `yaml:"encryption_key"`
	} `yaml:"db"`
	Session struct {
		Timeout      string `yaml:"timeout"`
		WarningLead  string `yaml:"warning_lead"`
		TickInterval string `yaml:"tick_interval"`
	} `yaml:"session"`
	Generator struct {
		Length    int  `yaml:"length"`
		Uppercase bool `yaml:"uppercase"`
		Lowercase bool `yaml:"lowercase"`
		Digits    bool `yaml:"digits"`
		Symbols   bool `yaml:"symbols"`
	} `yaml:"generator"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// YAML renders the effective configuration with secrets redacted.
func (c *Config) YAML() ([]byte, error) {
	var e effective
	e.API.BaseURL = c.API.BaseURL
	e.API.Timeout = c.API.Timeout.String()
	e.DB.Path = c.DB.Path
	if c.DB.EncryptionKey != "" {
		e.DB.EncryptionKey = "<redacted>"
	}
	e.Session.Timeout = c.Session.Timeout.String()
	e.Session.WarningLead = c.Session.WarningLead.String()
	e.Session.TickInterval = c.Session.TickInterval.String()
	e.Generator.Length = c.Generator.Length
	e.Generator.Uppercase = c.Generator.Uppercase
	e.Generator.Lowercase = c.Generator.Lowercase
	e.Generator.Digits = c.Generator.Digits
	e.Generator.Symbols = c.Generator.Symbols
	e.Log.Level = c.Log.Level

	out, err := yaml.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return out, nil
}
