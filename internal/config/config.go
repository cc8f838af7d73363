package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the CLI configuration file structure.
type Config struct {
	URL    string       `mapstructure:"url"`
	Serial SerialConfig `mapstructure:"serial"`
	Retry  RetryConfig  `mapstructure:"retry"`
	Log    LogConfig    `mapstructure:"log"`
}

// SerialConfig carries port settings for serial connections.
type SerialConfig struct {
	BaudRate   int     `mapstructure:"baud_rate"`
	Parity     string  `mapstructure:"parity"`
	Multiplier float64 `mapstructure:"multiplier"`
}

// RetryConfig carries the session retry policy.
type RetryConfig struct {
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	BaseTimeout time.Duration `mapstructure:"base_timeout"`
}

// LogConfig carries logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// Load reads the configuration file. With an empty path the usual locations
// are searched and, when none holds a file, the defaults are used; an
// explicit path that cannot be read is an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/gombus/")
		v.AddConfigPath("$HOME/.gombus")
		v.AddConfigPath(".")
	}

	v.SetDefault("serial.baud_rate", 2400)
	v.SetDefault("serial.parity", "E")
	v.SetDefault("serial.multiplier", 1.2)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.retry_delay", 100*time.Millisecond)
	v.SetDefault("retry.base_timeout", 500*time.Millisecond)
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Serial.Parity = strings.ToUpper(config.Serial.Parity)
	return &config, nil
}
