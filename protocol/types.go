package protocol

// HandshakeInfo describes the serial bootloader.
// Returned by the UBL Handshake callback.
type HandshakeInfo struct {
	// Status is the bootloader status of the handshake
	Status BootloaderStatus

	// BootloaderRevision is the bootloader protocol revision
	BootloaderRevision uint32

	// DeviceType identifies the chip family
	DeviceType byte

	// BufferSize is the size of every flash read and write in bytes
	BufferSize uint32

	// PageSize is the flash erase page size in bytes
	PageSize uint32

	// BootloaderCodeRevision is the revision of the bootloader build
	BootloaderCodeRevision uint32
}

// ReadResult is one buffer of flash returned by the UBL Read callback.
type ReadResult struct {
	// Status is SUCCESS for a valid buffer and FAILURE past the end of flash
	Status BootloaderStatus

	// FlashWordAddr echoes the requested word address
	FlashWordAddr uint16

	// Data is the flash contents
	Data []byte
}

// ResetInfo is reported by the radio after it has rebooted.
type ResetInfo struct {
	// Reason is the reset cause (power up, external, watchdog)
	Reason byte

	// TransportRev is the MT transport revision
	TransportRev byte

	// ProductID identifies the firmware product
	ProductID byte

	// MajorRel, MinorRel and MaintRel form the firmware release
	MajorRel byte
	MinorRel byte
	MaintRel byte
}

// CommandNotRecognized is sent when the radio rejects an unknown command.
type CommandNotRecognized struct {
	// ErrorCode is the RPC error code
	ErrorCode byte

	// RequestHeader is the header of the rejected request
	RequestHeader Header
}
