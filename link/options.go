package link

import "time"

// Config holds the link configuration.
type Config struct {
	// Logger is used for frame level logging (optional)
	Logger Logger

	// BaudRate is the serial speed used by Open
	BaudRate int

	// OpenTimeout bounds how long Open waits for the device node to appear
	OpenTimeout time.Duration

	// SkipBootloader sends the bootloader force-run byte after connecting so
	// the radio starts its application instead of waiting in the bootloader
	SkipBootloader bool

	// SkipBootloaderDelay is how long to wait for the application to start
	SkipBootloaderDelay time.Duration

	// TestPort pings the radio until it answers before Connect returns
	TestPort bool

	// PingTimeout bounds a single ping attempt
	PingTimeout time.Duration

	// ConnectTimeout bounds the total time spent pinging
	ConnectTimeout time.Duration
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		BaudRate:            115200,
		OpenTimeout:         10 * time.Second,
		SkipBootloaderDelay: 1 * time.Second,
		PingTimeout:         1 * time.Second,
		ConnectTimeout:      10 * time.Second,
	}
}

// Option is a functional option for configuring the Link.
type Option func(*Config)

// WithLogger sets a logger for the link.
//
// Example:
//
//	l, err := link.Open(ctx, "/dev/ttyUSB0", link.WithLogger(slog.Default()))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithBaudRate sets the serial speed used by Open.
func WithBaudRate(baud int) Option {
	return func(c *Config) {
		if baud > 0 {
			c.BaudRate = baud
		}
	}
}

// WithOpenTimeout sets how long Open retries while the device is missing or busy.
func WithOpenTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.OpenTimeout = timeout
	}
}

// WithSkipBootloader makes Connect send the bootloader force-run byte and
// wait for the given delay before any other traffic. Never use this for a
// flash read session: the handshake must be the first thing the radio sees.
//
// Example:
//
//	l, err := link.Connect(ctx, port, link.WithSkipBootloader(time.Second), link.WithTestPort())
func WithSkipBootloader(delay time.Duration) Option {
	return func(c *Config) {
		c.SkipBootloader = true
		if delay >= 0 {
			c.SkipBootloaderDelay = delay
		}
	}
}

// WithTestPort makes Connect ping the radio, retrying with exponential
// backoff, until it answers or ConnectTimeout elapses.
func WithTestPort() Option {
	return func(c *Config) {
		c.TestPort = true
	}
}

// WithPingTimeout sets the timeout of a single ping attempt.
func WithPingTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.PingTimeout = timeout
		}
	}
}

// WithConnectTimeout sets the total time Connect spends pinging.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ConnectTimeout = timeout
		}
	}
}

// Logger is an optional logging interface. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
