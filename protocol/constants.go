package protocol

// Frame structure constants for the Z-Stack Monitor and Test (MT) serial protocol.
const (
	// StartOfFrame is the frame start marker (0xFE)
	StartOfFrame = 0xFE

	// HeaderSize is the number of bytes covered by the FCS before the data:
	// LEN(1) + CMD0(1) + CMD1(1)
	HeaderSize = 3

	// MinFrameSize is the minimum frame size in bytes:
	// SOF(1) + LEN(1) + CMD0(1) + CMD1(1) + FCS(1)
	MinFrameSize = 5

	// MaxDataSize is the largest payload a single frame can carry
	MaxDataSize = 250
)

// CommandType occupies the top three bits of CMD0.
type CommandType byte

const (
	TypePoll CommandType = 0x00
	TypeSREQ CommandType = 0x01
	TypeAREQ CommandType = 0x02
	TypeSRSP CommandType = 0x03
)

func (t CommandType) String() string {
	switch t {
	case TypePoll:
		return "POLL"
	case TypeSREQ:
		return "SREQ"
	case TypeAREQ:
		return "AREQ"
	case TypeSRSP:
		return "SRSP"
	default:
		return "UNKNOWN"
	}
}

// Subsystem occupies the low five bits of CMD0.
type Subsystem byte

const (
	SubsystemRPCError Subsystem = 0x00
	SubsystemSYS      Subsystem = 0x01
	SubsystemAF       Subsystem = 0x04
	SubsystemZDO      Subsystem = 0x05
	SubsystemUTIL     Subsystem = 0x07
	SubsystemAPP      Subsystem = 0x09
	SubsystemUBL      Subsystem = 0x0D
)

func (s Subsystem) String() string {
	switch s {
	case SubsystemRPCError:
		return "RPCError"
	case SubsystemSYS:
		return "SYS"
	case SubsystemAF:
		return "AF"
	case SubsystemZDO:
		return "ZDO"
	case SubsystemUTIL:
		return "UTIL"
	case SubsystemAPP:
		return "APP"
	case SubsystemUBL:
		return "UBL"
	default:
		return "UNKNOWN"
	}
}

// SYS command identifiers (CMD1).
const (
	// CmdSysResetReq requests a hard or soft reset (AREQ)
	CmdSysResetReq = 0x00

	// CmdSysPing checks that the radio is alive and reports capabilities (SREQ)
	CmdSysPing = 0x01

	// CmdSysOSALNVItemInit creates an NV item if it does not exist (SREQ)
	CmdSysOSALNVItemInit = 0x07

	// CmdSysOSALNVWrite writes an NV item with an 8-bit offset (SREQ)
	CmdSysOSALNVWrite = 0x09

	// CmdSysOSALNVWriteExt writes an NV item with a 16-bit offset (SREQ)
	CmdSysOSALNVWriteExt = 0x1D

	// CmdSysNVWrite writes an extended NV item addressed by system/item/sub id (SREQ)
	CmdSysNVWrite = 0x34

	// CmdSysResetInd is sent by the radio after every reset (AREQ)
	CmdSysResetInd = 0x80
)

// UBL (serial bootloader) command identifiers (CMD1). All are AREQ.
const (
	// CmdUBLHandshakeReq asks the bootloader to identify itself
	CmdUBLHandshakeReq = 0x04

	// CmdUBLReadReq reads one buffer of flash at a word address
	CmdUBLReadReq = 0x11

	// CmdUBLHandshakeRsp is the bootloader's answer to a handshake
	CmdUBLHandshakeRsp = 0x84

	// CmdUBLReadRsp carries one buffer of flash
	CmdUBLReadRsp = 0x91
)

// CmdRPCCommandNotRecognized is sent as an SRSP in the RPC error subsystem
// when the radio does not know the requested command.
const CmdRPCCommandNotRecognized = 0x00

// Flash layout constants for the serial bootloader.
const (
	// FlashWordSize is the size of one flash word. All bootloader addresses
	// count words, not bytes.
	FlashWordSize = 4

	// ImageSize is the readable firmware image: 256KiB of flash minus the
	// 8KiB occupied by the bootloader
	ImageSize = 0x40000 - 0x2000

	// MaxFlashWordAddr is the largest address the 16-bit wire field can carry
	MaxFlashWordAddr = 0xFFFF
)

// ForceRunByte makes the serial bootloader jump straight to the application
// instead of waiting for a handshake.
const ForceRunByte = 0x07

// NV item constants.
const (
	// SysIDZStack is the system id of Z-Stack owned extended NV items
	SysIDZStack = 0x01

	// MaxOSALNVWriteValue is the largest value OSALNVWrite fits in one frame:
	// MaxDataSize - Id(2) - Offset(1) - Len(1)
	MaxOSALNVWriteValue = MaxDataSize - 4

	// MaxOSALNVWriteExtValue is the largest chunk OSALNVWriteExt fits in one frame:
	// MaxDataSize - Id(2) - Offset(2) - Len(2)
	MaxOSALNVWriteExtValue = MaxDataSize - 6

	// MaxNVWriteValue is the largest value NVWrite fits in one frame:
	// MaxDataSize - SysId(1) - ItemId(2) - SubId(2) - Offset(2) - Len(1)
	MaxNVWriteValue = MaxDataSize - 8

	// MaxOSALNVItemInitValue is the largest initial value OSALNVItemInit fits:
	// MaxDataSize - Id(2) - ItemLen(2) - Len(1)
	MaxOSALNVItemInitValue = MaxDataSize - 5
)

// Status is the general Z-Stack status code returned in SRSP frames.
type Status byte

const (
	StatusSuccess          Status = 0x00
	StatusFailure          Status = 0x01
	StatusInvalidParameter Status = 0x02
	StatusNVItemUninit     Status = 0x09
	StatusNVOperFailed     Status = 0x0A
	StatusNVBadItemLen     Status = 0x0C
	StatusMemoryError      Status = 0x10
	StatusBufferFull       Status = 0x11
	StatusUnsupportedMode  Status = 0x12
	StatusMacMemError      Status = 0x13
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	case StatusInvalidParameter:
		return "INVALID_PARAMETER"
	case StatusNVItemUninit:
		return "NV_ITEM_UNINIT"
	case StatusNVOperFailed:
		return "NV_OPER_FAILED"
	case StatusNVBadItemLen:
		return "NV_BAD_ITEM_LEN"
	case StatusMemoryError:
		return "MEMORY_ERROR"
	case StatusBufferFull:
		return "BUFFER_FULL"
	case StatusUnsupportedMode:
		return "UNSUPPORTED_MODE"
	case StatusMacMemError:
		return "MAC_MEM_ERROR"
	default:
		return "UNKNOWN"
	}
}

// BootloaderStatus is the status code returned by UBL responses.
type BootloaderStatus byte

const (
	BootloaderSuccess         BootloaderStatus = 0x00
	BootloaderFailure         BootloaderStatus = 0x01
	BootloaderInvalidFCS      BootloaderStatus = 0x02
	BootloaderInvalidFile     BootloaderStatus = 0x03
	BootloaderFilesystemError BootloaderStatus = 0x04
	BootloaderAlreadyStarted  BootloaderStatus = 0x05
	BootloaderNoResponse      BootloaderStatus = 0x06
	BootloaderValidateFailed  BootloaderStatus = 0x07
	BootloaderCanceled        BootloaderStatus = 0x08
)

func (s BootloaderStatus) String() string {
	switch s {
	case BootloaderSuccess:
		return "SUCCESS"
	case BootloaderFailure:
		return "FAILURE"
	case BootloaderInvalidFCS:
		return "INVALID_FCS"
	case BootloaderInvalidFile:
		return "INVALID_FILE"
	case BootloaderFilesystemError:
		return "FILESYSTEM_ERROR"
	case BootloaderAlreadyStarted:
		return "ALREADY_STARTED"
	case BootloaderNoResponse:
		return "NO_RESPONSE"
	case BootloaderValidateFailed:
		return "VALIDATE_FAILED"
	case BootloaderCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// ResetType selects the kind of reset requested by SYS.ResetReq.
type ResetType byte

const (
	ResetHard ResetType = 0x00
	ResetSoft ResetType = 0x01
)

// Response data sizes.
const (
	// HandshakeRspSize is Status(1) + BootloaderRevision(4) + DeviceType(1) +
	// BufferSize(4) + PageSize(4) + BootloaderCodeRevision(4)
	HandshakeRspSize = 18

	// ReadRspHeaderSize is Status(1) + FlashWordAddr(2), followed by the data
	ReadRspHeaderSize = 3

	// ResetIndSize is Reason(1) + TransportRev(1) + ProductID(1) + Major(1) +
	// Minor(1) + Maint(1)
	ResetIndSize = 6

	// PingRspSize is Capabilities(2)
	PingRspSize = 2

	// CommandNotRecognizedSize is ErrorCode(1) + RequestHeader(2)
	CommandNotRecognizedSize = 3
)
