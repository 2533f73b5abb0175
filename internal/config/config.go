// Package config loads znptool settings from flags, ZNPTOOL_* environment
// variables and an optional YAML config file, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/moffa90/go-znp/protocol"
)

// EnvPrefix is the prefix of environment variables read by znptool.
const EnvPrefix = "ZNPTOOL"

// Keys. Environment variables use the upper-cased key with '-' and '.'
// replaced by '_', e.g. ZNPTOOL_HANDSHAKE_TIMEOUT or ZNPTOOL_OTEL_ENABLED.
const (
	KeyVerbose             = "verbose"
	KeyBaud                = "baud"
	KeyOpenTimeout         = "open-timeout"
	KeyHandshakeTimeout    = "handshake-timeout"
	KeyReadTimeout         = "read-timeout"
	KeyImageSize           = "image-size"
	KeySkipBootloaderDelay = "skip-bootloader-delay"
	KeyConnectTimeout      = "connect-timeout"
	KeyWriteTimeout        = "write-timeout"
	KeyResetTimeout        = "reset-timeout"
	KeyOtelEnabled         = "otel.enabled"
	KeyOtelEndpoint        = "otel.endpoint"
)

// Config is the resolved znptool configuration.
type Config struct {
	Verbose int
	Baud    int

	OpenTimeout time.Duration

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	ImageSize        int

	SkipBootloaderDelay time.Duration
	ConnectTimeout      time.Duration
	WriteTimeout        time.Duration
	ResetTimeout        time.Duration

	OtelEnabled  bool
	OtelEndpoint string
}

// New returns a viper instance with znptool defaults and environment
// binding in place.
func New() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyVerbose, 0)
	v.SetDefault(KeyBaud, 115200)
	v.SetDefault(KeyOpenTimeout, 10*time.Second)
	v.SetDefault(KeyHandshakeTimeout, 5*time.Second)
	v.SetDefault(KeyReadTimeout, time.Duration(0))
	v.SetDefault(KeyImageSize, protocol.ImageSize)
	v.SetDefault(KeySkipBootloaderDelay, time.Second)
	v.SetDefault(KeyConnectTimeout, 10*time.Second)
	v.SetDefault(KeyWriteTimeout, time.Duration(0))
	v.SetDefault(KeyResetTimeout, 10*time.Second)
	v.SetDefault(KeyOtelEnabled, false)
	v.SetDefault(KeyOtelEndpoint, "")

	return v
}

// Load reads the config file at path, if any, and resolves the settings.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Verbose:             v.GetInt(KeyVerbose),
		Baud:                v.GetInt(KeyBaud),
		OpenTimeout:         v.GetDuration(KeyOpenTimeout),
		HandshakeTimeout:    v.GetDuration(KeyHandshakeTimeout),
		ReadTimeout:         v.GetDuration(KeyReadTimeout),
		ImageSize:           v.GetInt(KeyImageSize),
		SkipBootloaderDelay: v.GetDuration(KeySkipBootloaderDelay),
		ConnectTimeout:      v.GetDuration(KeyConnectTimeout),
		WriteTimeout:        v.GetDuration(KeyWriteTimeout),
		ResetTimeout:        v.GetDuration(KeyResetTimeout),
		OtelEnabled:         v.GetBool(KeyOtelEnabled),
		OtelEndpoint:        v.GetString(KeyOtelEndpoint),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyBaud, c.Baud)
	}
	if c.ImageSize <= 0 || c.ImageSize%protocol.FlashWordSize != 0 {
		return fmt.Errorf("%s must be a positive multiple of %d, got %d", KeyImageSize, protocol.FlashWordSize, c.ImageSize)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyHandshakeTimeout)
	}
	if c.ResetTimeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyResetTimeout)
	}
	for key, d := range map[string]time.Duration{
		KeyOpenTimeout:         c.OpenTimeout,
		KeyReadTimeout:         c.ReadTimeout,
		KeySkipBootloaderDelay: c.SkipBootloaderDelay,
		KeyConnectTimeout:      c.ConnectTimeout,
		KeyWriteTimeout:        c.WriteTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}
