package nvram

import (
	"time"

	"github.com/moffa90/go-znp/nvids"
)

// Config holds the restorer configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger Logger

	// StateCallback is called on every state transition (optional)
	StateCallback StateCallback

	// WriteTimeout bounds all requests for a single item. Zero means the
	// caller's context is the only bound.
	WriteTimeout time.Duration

	// ResetTimeout bounds the final reset and the wait for the radio to
	// report it
	ResetTimeout time.Duration

	// NetworkCatalog resolves "nwk" item names
	NetworkCatalog *nvids.Catalog

	// OsalCatalog resolves "osal" item names
	OsalCatalog *nvids.Catalog
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ResetTimeout:   10 * time.Second,
		NetworkCatalog: nvids.Network,
		OsalCatalog:    nvids.OsalEx,
	}
}

// Option is a functional option for configuring the Restorer.
type Option func(*Config)

// WithLogger sets a logger for the restorer. Failed items are logged at
// warn level.
//
// Example:
//
//	r := nvram.New(l, nvram.WithLogger(slog.Default()))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithStateCallback sets a callback that observes the restore state machine.
//
// Example:
//
//	r := nvram.New(l, nvram.WithStateCallback(func(s nvram.State) {
//	    fmt.Println("state:", s)
//	}))
func WithStateCallback(callback StateCallback) Option {
	return func(c *Config) {
		c.StateCallback = callback
	}
}

// WithWriteTimeout sets a timeout for each item. A timed out item is
// recorded as failed and the restore continues.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.WriteTimeout = timeout
		}
	}
}

// WithResetTimeout sets how long to wait for the radio to confirm the final
// soft reset. Default is 10 seconds.
func WithResetTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ResetTimeout = timeout
		}
	}
}

// WithCatalogs replaces the item catalogs. A nil catalog keeps the default.
func WithCatalogs(network, osal *nvids.Catalog) Option {
	return func(c *Config) {
		if network != nil {
			c.NetworkCatalog = network
		}
		if osal != nil {
			c.OsalCatalog = osal
		}
	}
}

// Logger is an optional logging interface. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
