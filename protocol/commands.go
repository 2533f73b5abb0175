package protocol

import (
	"encoding/binary"
	"fmt"
)

// BuildHandshakeReq constructs a UBL Handshake request.
// It carries no data; the bootloader answers with a HandshakeRsp callback.
func BuildHandshakeReq() *Frame {
	return &Frame{Header: NewHeader(TypeAREQ, SubsystemUBL, CmdUBLHandshakeReq)}
}

// BuildReadReq constructs a UBL Read request for one buffer of flash.
//
// Data format:
//
//	[ADDR_L][ADDR_H]
//
// The address counts flash words (FlashWordSize bytes each).
func BuildReadReq(flashWordAddr uint32) (*Frame, error) {
	if flashWordAddr > MaxFlashWordAddr {
		return nil, fmt.Errorf("flash word address 0x%X exceeds maximum 0x%X", flashWordAddr, MaxFlashWordAddr)
	}

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, uint16(flashWordAddr))

	return &Frame{
		Header: NewHeader(TypeAREQ, SubsystemUBL, CmdUBLReadReq),
		Data:   data,
	}, nil
}

// BuildPingReq constructs a SYS Ping request.
func BuildPingReq() *Frame {
	return &Frame{Header: NewHeader(TypeSREQ, SubsystemSYS, CmdSysPing)}
}

// BuildResetReq constructs a SYS Reset request. The radio answers with a
// ResetInd callback once it has rebooted.
func BuildResetReq(typ ResetType) *Frame {
	return &Frame{
		Header: NewHeader(TypeAREQ, SubsystemSYS, CmdSysResetReq),
		Data:   []byte{byte(typ)},
	}
}

// BuildOSALNVItemInitReq constructs a SYS OSALNVItemInit request.
//
// Data format:
//
//	[ID_L][ID_H][ITEMLEN_L][ITEMLEN_H][LEN][VALUE...]
//
// itemLen is the full size of the item; value is its initial contents.
func BuildOSALNVItemInitReq(id uint16, itemLen uint16, value []byte) (*Frame, error) {
	if len(value) > MaxOSALNVItemInitValue {
		return nil, fmt.Errorf("initial value length %d exceeds maximum %d bytes", len(value), MaxOSALNVItemInitValue)
	}

	data := make([]byte, 0, 5+len(value))
	data = binary.LittleEndian.AppendUint16(data, id)
	data = binary.LittleEndian.AppendUint16(data, itemLen)
	data = append(data, byte(len(value)))
	data = append(data, value...)

	return &Frame{
		Header: NewHeader(TypeSREQ, SubsystemSYS, CmdSysOSALNVItemInit),
		Data:   data,
	}, nil
}

// BuildOSALNVWriteReq constructs a SYS OSALNVWrite request.
//
// Data format:
//
//	[ID_L][ID_H][OFFSET][LEN][VALUE...]
func BuildOSALNVWriteReq(id uint16, offset uint8, value []byte) (*Frame, error) {
	if len(value) > MaxOSALNVWriteValue {
		return nil, fmt.Errorf("value length %d exceeds maximum %d bytes", len(value), MaxOSALNVWriteValue)
	}

	data := make([]byte, 0, 4+len(value))
	data = binary.LittleEndian.AppendUint16(data, id)
	data = append(data, offset, byte(len(value)))
	data = append(data, value...)

	return &Frame{
		Header: NewHeader(TypeSREQ, SubsystemSYS, CmdSysOSALNVWrite),
		Data:   data,
	}, nil
}

// BuildOSALNVWriteExtReq constructs a SYS OSALNVWriteExt request, which
// takes a 16-bit offset and a 16-bit length so large items can be written
// in several chunks.
//
// Data format:
//
//	[ID_L][ID_H][OFFSET_L][OFFSET_H][LEN_L][LEN_H][VALUE...]
func BuildOSALNVWriteExtReq(id uint16, offset uint16, value []byte) (*Frame, error) {
	if len(value) > MaxOSALNVWriteExtValue {
		return nil, fmt.Errorf("value length %d exceeds maximum %d bytes", len(value), MaxOSALNVWriteExtValue)
	}

	data := make([]byte, 0, 6+len(value))
	data = binary.LittleEndian.AppendUint16(data, id)
	data = binary.LittleEndian.AppendUint16(data, offset)
	data = binary.LittleEndian.AppendUint16(data, uint16(len(value)))
	data = append(data, value...)

	return &Frame{
		Header: NewHeader(TypeSREQ, SubsystemSYS, CmdSysOSALNVWriteExt),
		Data:   data,
	}, nil
}

// BuildNVWriteReq constructs a SYS NVWrite request for an extended NV item.
//
// Data format:
//
//	[SYSID][ITEMID_L][ITEMID_H][SUBID_L][SUBID_H][OFFSET_L][OFFSET_H][LEN][VALUE...]
func BuildNVWriteReq(sysID uint8, itemID uint16, subID uint16, offset uint16, value []byte) (*Frame, error) {
	if len(value) > MaxNVWriteValue {
		return nil, fmt.Errorf("value length %d exceeds maximum %d bytes", len(value), MaxNVWriteValue)
	}

	data := make([]byte, 0, 8+len(value))
	data = append(data, sysID)
	data = binary.LittleEndian.AppendUint16(data, itemID)
	data = binary.LittleEndian.AppendUint16(data, subID)
	data = binary.LittleEndian.AppendUint16(data, offset)
	data = append(data, byte(len(value)))
	data = append(data, value...)

	return &Frame{
		Header: NewHeader(TypeSREQ, SubsystemSYS, CmdSysNVWrite),
		Data:   data,
	}, nil
}
