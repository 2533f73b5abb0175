package protocol

import (
	"encoding/binary"
	"fmt"
)

// NVItemInit is a decoded OSALNVItemInit request.
type NVItemInit struct {
	ID      uint16
	ItemLen uint16
	Value   []byte
}

// NVItemWrite is a decoded OSALNVWrite or OSALNVWriteExt request.
type NVItemWrite struct {
	ID     uint16
	Offset uint16
	Value  []byte
}

// ExNVItemWrite is a decoded NVWrite request for an extended item.
type ExNVItemWrite struct {
	SysID  uint8
	ItemID uint16
	SubID  uint16
	Offset uint16
	Value  []byte
}

// ParseReadReq returns the flash word address of a UBL Read request.
func ParseReadReq(data []byte) (uint16, error) {
	if len(data) != 2 {
		return 0, fmt.Errorf("invalid data length for Read request: got %d bytes, expected 2", len(data))
	}
	return binary.LittleEndian.Uint16(data), nil
}

// ParseResetReq returns the reset type of a SYS Reset request.
func ParseResetReq(data []byte) (ResetType, error) {
	if len(data) != 1 {
		return 0, fmt.Errorf("invalid data length for Reset request: got %d bytes, expected 1", len(data))
	}
	return ResetType(data[0]), nil
}

// ParseOSALNVItemInitReq decodes an OSALNVItemInit request.
func ParseOSALNVItemInitReq(data []byte) (*NVItemInit, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("invalid data length for OSALNVItemInit: got %d bytes, minimum is 5", len(data))
	}
	value, err := shortBytes(data[4:])
	if err != nil {
		return nil, fmt.Errorf("OSALNVItemInit value: %w", err)
	}
	return &NVItemInit{
		ID:      binary.LittleEndian.Uint16(data[0:2]),
		ItemLen: binary.LittleEndian.Uint16(data[2:4]),
		Value:   value,
	}, nil
}

// ParseOSALNVWriteReq decodes an OSALNVWrite request.
func ParseOSALNVWriteReq(data []byte) (*NVItemWrite, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("invalid data length for OSALNVWrite: got %d bytes, minimum is 4", len(data))
	}
	value, err := shortBytes(data[3:])
	if err != nil {
		return nil, fmt.Errorf("OSALNVWrite value: %w", err)
	}
	return &NVItemWrite{
		ID:     binary.LittleEndian.Uint16(data[0:2]),
		Offset: uint16(data[2]),
		Value:  value,
	}, nil
}

// ParseOSALNVWriteExtReq decodes an OSALNVWriteExt request.
func ParseOSALNVWriteExtReq(data []byte) (*NVItemWrite, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("invalid data length for OSALNVWriteExt: got %d bytes, minimum is 6", len(data))
	}
	n := int(binary.LittleEndian.Uint16(data[4:6]))
	if len(data[6:]) != n {
		return nil, fmt.Errorf("OSALNVWriteExt value: length prefix %d, got %d bytes", n, len(data[6:]))
	}
	return &NVItemWrite{
		ID:     binary.LittleEndian.Uint16(data[0:2]),
		Offset: binary.LittleEndian.Uint16(data[2:4]),
		Value:  data[6:],
	}, nil
}

// ParseNVWriteReq decodes an NVWrite request.
func ParseNVWriteReq(data []byte) (*ExNVItemWrite, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("invalid data length for NVWrite: got %d bytes, minimum is 8", len(data))
	}
	value, err := shortBytes(data[7:])
	if err != nil {
		return nil, fmt.Errorf("NVWrite value: %w", err)
	}
	return &ExNVItemWrite{
		SysID:  data[0],
		ItemID: binary.LittleEndian.Uint16(data[1:3]),
		SubID:  binary.LittleEndian.Uint16(data[3:5]),
		Offset: binary.LittleEndian.Uint16(data[5:7]),
		Value:  value,
	}, nil
}

// shortBytes decodes a one-byte length prefixed value that must fill the
// rest of the buffer.
func shortBytes(b []byte) ([]byte, error) {
	n := int(b[0])
	if len(b[1:]) != n {
		return nil, fmt.Errorf("length prefix %d, got %d bytes", n, len(b[1:]))
	}
	return b[1:], nil
}
