package nvram

import (
	"errors"
	"fmt"
)

// ErrUnknownItem is returned for item names missing from the catalog.
var ErrUnknownItem = errors.New("unknown NV item")

// ItemWriteError records a single item that could not be restored. It does
// not stop the restore.
type ItemWriteError struct {
	Namespace Namespace
	Name      string

	// ID is the resolved item id, zero if the name is unknown
	ID uint16

	// Value is the hex value from the backup
	Value string

	Err error
}

func (e *ItemWriteError) Error() string {
	return fmt.Sprintf("write failed for %s item %s (0x%04X) = %s: %v",
		e.Namespace, e.Name, e.ID, e.Value, e.Err)
}

func (e *ItemWriteError) Unwrap() error {
	return e.Err
}

// ResetError indicates that the radio did not confirm the final soft reset,
// so it is unknown whether the restored values are in effect.
type ResetError struct {
	Err error
}

func (e *ResetError) Error() string {
	return fmt.Sprintf("soft reset after restore failed: %v", e.Err)
}

func (e *ResetError) Unwrap() error {
	return e.Err
}
