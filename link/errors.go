package link

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-znp/protocol"
)

// ErrClosed is returned by requests on a link whose reader has stopped,
// either because Close was called or because the port failed.
var ErrClosed = errors.New("link closed")

// InvalidCommandResponseError indicates that a synchronous response carried a
// status other than the one the caller required.
type InvalidCommandResponseError struct {
	Request  protocol.Header
	Response *protocol.Frame
	Expected protocol.Status
	Actual   protocol.Status
}

func (e *InvalidCommandResponseError) Error() string {
	return fmt.Sprintf("invalid response to %s: expected status %s, got %s (0x%02X)",
		e.Request, e.Expected, e.Actual, byte(e.Actual))
}

// Unwrap exposes the status as a protocol.ProtocolError.
func (e *InvalidCommandResponseError) Unwrap() error {
	return &protocol.ProtocolError{Operation: e.Request.String(), Status: e.Actual}
}

// IsInvalidCommandResponse returns true if the error is an InvalidCommandResponseError.
func IsInvalidCommandResponse(err error) bool {
	var ie *InvalidCommandResponseError
	return errors.As(err, &ie)
}

// CommandNotRecognizedError indicates that the radio rejected the request as
// unknown, typically because the firmware build does not include it.
type CommandNotRecognizedError struct {
	Request   protocol.Header
	ErrorCode byte
}

func (e *CommandNotRecognizedError) Error() string {
	return fmt.Sprintf("command %s not recognized by radio (error code 0x%02X)", e.Request, e.ErrorCode)
}
