package protocol

import (
	"encoding/binary"
	"fmt"
)

// ParseHandshakeRsp parses the UBL Handshake callback.
//
// Data format (HandshakeRspSize bytes):
//
//	[STATUS][BL_REV(4)][DEVICE_TYPE][BUFFER_SIZE(4)][PAGE_SIZE(4)][BL_CODE_REV(4)]
func ParseHandshakeRsp(data []byte) (*HandshakeInfo, error) {
	if len(data) != HandshakeRspSize {
		return nil, fmt.Errorf("invalid data length for Handshake response: got %d bytes, expected %d", len(data), HandshakeRspSize)
	}

	info := &HandshakeInfo{
		Status:                 BootloaderStatus(data[0]),
		BootloaderRevision:     binary.LittleEndian.Uint32(data[1:5]),
		DeviceType:             data[5],
		BufferSize:             binary.LittleEndian.Uint32(data[6:10]),
		PageSize:               binary.LittleEndian.Uint32(data[10:14]),
		BootloaderCodeRevision: binary.LittleEndian.Uint32(data[14:18]),
	}

	return info, nil
}

// ParseReadRsp parses the UBL Read callback.
//
// Data format:
//
//	[STATUS][ADDR_L][ADDR_H][DATA...]
//
// A FAILURE response may carry no data at all.
func ParseReadRsp(data []byte) (*ReadResult, error) {
	if len(data) < ReadRspHeaderSize {
		return nil, fmt.Errorf("invalid data length for Read response: got %d bytes, minimum is %d", len(data), ReadRspHeaderSize)
	}

	result := &ReadResult{
		Status:        BootloaderStatus(data[0]),
		FlashWordAddr: binary.LittleEndian.Uint16(data[1:3]),
		Data:          data[ReadRspHeaderSize:],
	}

	return result, nil
}

// ParseResetInd parses the SYS ResetInd callback.
//
// Data format (ResetIndSize bytes):
//
//	[REASON][TRANSPORT_REV][PRODUCT_ID][MAJOR][MINOR][MAINT]
func ParseResetInd(data []byte) (*ResetInfo, error) {
	if len(data) != ResetIndSize {
		return nil, fmt.Errorf("invalid data length for ResetInd: got %d bytes, expected %d", len(data), ResetIndSize)
	}

	return &ResetInfo{
		Reason:       data[0],
		TransportRev: data[1],
		ProductID:    data[2],
		MajorRel:     data[3],
		MinorRel:     data[4],
		MaintRel:     data[5],
	}, nil
}

// ParsePingRsp parses the SYS Ping response and returns the capability bitmap.
func ParsePingRsp(data []byte) (uint16, error) {
	if len(data) != PingRspSize {
		return 0, fmt.Errorf("invalid data length for Ping response: got %d bytes, expected %d", len(data), PingRspSize)
	}

	return binary.LittleEndian.Uint16(data), nil
}

// ParseStatusRsp extracts the leading status byte of an SRSP.
func ParseStatusRsp(data []byte) (Status, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("invalid data length for status response: got 0 bytes, minimum is 1")
	}

	return Status(data[0]), nil
}

// ParseCommandNotRecognized parses the RPC error SRSP.
//
// Data format (CommandNotRecognizedSize bytes):
//
//	[ERROR_CODE][REQ_CMD0][REQ_CMD1]
func ParseCommandNotRecognized(data []byte) (*CommandNotRecognized, error) {
	if len(data) != CommandNotRecognizedSize {
		return nil, fmt.Errorf("invalid data length for CommandNotRecognized: got %d bytes, expected %d", len(data), CommandNotRecognizedSize)
	}

	return &CommandNotRecognized{
		ErrorCode:     data[0],
		RequestHeader: ParseHeader(data[1], data[2]),
	}, nil
}

// IsCommandNotRecognized reports whether f is an RPC error SRSP.
func IsCommandNotRecognized(f *Frame) bool {
	return f != nil && f.Header == NewHeader(TypeSRSP, SubsystemRPCError, CmdRPCCommandNotRecognized)
}

// BuildHandshakeRsp encodes a UBL Handshake callback. Used by simulators.
func BuildHandshakeRsp(info HandshakeInfo) *Frame {
	data := make([]byte, 0, HandshakeRspSize)
	data = append(data, byte(info.Status))
	data = binary.LittleEndian.AppendUint32(data, info.BootloaderRevision)
	data = append(data, info.DeviceType)
	data = binary.LittleEndian.AppendUint32(data, info.BufferSize)
	data = binary.LittleEndian.AppendUint32(data, info.PageSize)
	data = binary.LittleEndian.AppendUint32(data, info.BootloaderCodeRevision)

	return &Frame{Header: HandshakeRspCallback.Header, Data: data}
}

// BuildReadRsp encodes a UBL Read callback.
func BuildReadRsp(status BootloaderStatus, flashWordAddr uint16, payload []byte) *Frame {
	data := make([]byte, 0, ReadRspHeaderSize+len(payload))
	data = append(data, byte(status))
	data = binary.LittleEndian.AppendUint16(data, flashWordAddr)
	data = append(data, payload...)

	return &Frame{Header: ReadRspCallback.Header, Data: data}
}

// BuildResetInd encodes a SYS ResetInd callback.
func BuildResetInd(info ResetInfo) *Frame {
	return &Frame{
		Header: ResetIndCallback.Header,
		Data: []byte{
			info.Reason, info.TransportRev, info.ProductID,
			info.MajorRel, info.MinorRel, info.MaintRel,
		},
	}
}

// BuildStatusRsp encodes the SRSP answering req with a single status byte.
func BuildStatusRsp(req Header, status Status) *Frame {
	return &Frame{Header: req.WithType(TypeSRSP), Data: []byte{byte(status)}}
}

// BuildPingRsp encodes the SYS Ping SRSP.
func BuildPingRsp(capabilities uint16) *Frame {
	return &Frame{
		Header: NewHeader(TypeSRSP, SubsystemSYS, CmdSysPing),
		Data:   binary.LittleEndian.AppendUint16(nil, capabilities),
	}
}

// BuildCommandNotRecognized encodes the RPC error SRSP for a rejected request.
func BuildCommandNotRecognized(errorCode byte, req Header) *Frame {
	return &Frame{
		Header: NewHeader(TypeSRSP, SubsystemRPCError, CmdRPCCommandNotRecognized),
		Data:   []byte{errorCode, req.Cmd0(), req.ID},
	}
}
