package bootloader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moffa90/go-znp/protocol"
)

// ErrAddressOverflow is returned when the next flash word address no longer
// fits the 16-bit address field of a read request.
var ErrAddressOverflow = errors.New("flash word address overflow")

// HandshakeTimeoutError indicates that the bootloader did not answer the
// handshake in time. The radio is most likely running its application.
type HandshakeTimeoutError struct {
	Timeout time.Duration
}

func (e *HandshakeTimeoutError) Error() string {
	return fmt.Sprintf("did not receive a bootloader handshake response within %s: "+
		"make sure the adapter has just been plugged in and nothing else has had a chance to communicate with it, "+
		"or press the button furthest from the USB port so the LED turns red", e.Timeout)
}

func (e *HandshakeTimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// HandshakeRejectedError indicates that the bootloader answered the handshake
// with a non-success status.
type HandshakeRejectedError struct {
	Status protocol.BootloaderStatus
}

func (e *HandshakeRejectedError) Error() string {
	return fmt.Sprintf("bad bootloader handshake response: status %s (0x%02X)", e.Status, byte(e.Status))
}

// ProtocolDesyncError indicates that the bootloader answered something that
// does not fit the read sequence: a wrong address echo, a short chunk, an
// unusable buffer size or an end of data before any data.
type ProtocolDesyncError struct {
	Address FlashWordAddress
	Reason  string
}

func (e *ProtocolDesyncError) Error() string {
	return fmt.Sprintf("bootloader out of sync at flash word 0x%04X: %s", uint32(e.Address), e.Reason)
}

// UnexpectedStatusError indicates that a read response carried a status the
// active read policy does not accept.
type UnexpectedStatusError struct {
	Address FlashWordAddress
	Status  protocol.BootloaderStatus
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected read status at flash word 0x%04X: %s (0x%02X)",
		uint32(e.Address), e.Status, byte(e.Status))
}

