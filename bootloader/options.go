package bootloader

import "time"

// Config holds the reader configuration.
type Config struct {
	// ProgressCallback is called during reads to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// HandshakeTimeout bounds the wait for the handshake response
	HandshakeTimeout time.Duration

	// ReadTimeout bounds the wait for each read response. Zero means the
	// caller's context is the only bound.
	ReadTimeout time.Duration
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		HandshakeTimeout: 5 * time.Second,
	}
}

// Option is a functional option for configuring the Reader.
type Option func(*Config)

// WithProgressCallback sets a callback function to track read progress.
//
// Example:
//
//	r := bootloader.New(l,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the reader operations.
//
// Example:
//
//	r := bootloader.New(l, bootloader.WithLogger(slog.Default()))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithHandshakeTimeout sets how long to wait for the bootloader to answer
// the handshake. Default is 5 seconds.
//
// Example:
//
//	r := bootloader.New(l, bootloader.WithHandshakeTimeout(10*time.Second))
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.HandshakeTimeout = timeout
		}
	}
}

// WithReadTimeout sets a timeout for each chunk read. Default is no timeout.
//
// Example:
//
//	r := bootloader.New(l, bootloader.WithReadTimeout(time.Second))
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.ReadTimeout = timeout
		}
	}
}
