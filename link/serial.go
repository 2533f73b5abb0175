package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"go.bug.st/serial"
)

// Open opens the serial device at path and starts a session on it.
//
// A freshly plugged adapter can take a moment to enumerate, so a missing or
// busy device is retried with exponential backoff for up to OpenTimeout.
// Other open errors fail immediately.
//
// Example:
//
//	l, err := link.Open(ctx, "/dev/ttyUSB0", link.WithBaudRate(115200))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close()
func Open(ctx context.Context, path string, opts ...Option) (*Link, error) {
	if path == "" {
		return nil, fmt.Errorf("serial port path cannot be empty")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.OpenTimeout

	var port serial.Port
	op := func() error {
		p, err := serial.Open(path, mode)
		if err != nil {
			if isTransientOpenError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		port = p
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", path, err)
	}

	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("reset input buffer of %q: %w", path, err)
	}

	return Connect(ctx, port, opts...)
}

func isTransientOpenError(err error) bool {
	var pe *serial.PortError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Code() {
	case serial.PortNotFound, serial.PortBusy:
		return true
	default:
		return false
	}
}
