package protocol

import (
	"errors"
	"fmt"
)

// ProtocolError represents a non-success status returned by the radio.
type ProtocolError struct {
	// Operation is the command that failed
	Operation string

	// Status is the Z-Stack status from the response
	Status Status
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Operation, e.Status, byte(e.Status))
}

// IsProtocolError returns true if the error is a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
