// Package protocol implements the Z-Stack Monitor and Test (MT) serial protocol
// spoken by ZNP radio coprocessors and their serial bootloader (UBL).
//
// # Frame Overview
//
// Every message, in either direction, uses the same frame:
//
//	[SOF][LEN][CMD0][CMD1][DATA...][FCS]
//
// Where:
//   - SOF = Start of Frame (0xFE)
//   - LEN = data length, at most MaxDataSize
//   - CMD0 = command type (bits 7-5) and subsystem (bits 4-0)
//   - CMD1 = command id within the subsystem
//   - FCS = XOR of LEN, CMD0, CMD1 and DATA
//
// Synchronous requests (SREQ) are answered by exactly one SRSP with the same
// subsystem and id. Asynchronous requests (AREQ) are answered, if at all, by a
// separate AREQ callback from the radio. All bootloader commands are AREQs.
//
// # Command Builders
//
// Use the Build* functions to create request frames:
//
//	req := protocol.BuildHandshakeReq()
//	req, err := protocol.BuildReadReq(addr)
//	req, err := protocol.BuildNVWriteReq(protocol.SysIDZStack, id, 0, 0, value)
//
// # Encoding and Decoding
//
//	raw, err := frame.Encode()
//
//	dec := protocol.NewDecoder(port)
//	frame, err := dec.Decode()
//	if protocol.IsRecoverable(err) {
//	    // corrupted frame, keep reading
//	}
//
// # Response Parsers
//
// Use the Parse* functions on a frame's Data:
//
//	info, err := protocol.ParseHandshakeRsp(frame.Data)
//	chunk, err := protocol.ParseReadRsp(frame.Data)
//
// # Matching Callbacks
//
// A Matcher selects incoming frames by header and optionally by payload:
//
//	m := protocol.ReadRspCallback
//	if m.Matches(frame) { ... }
package protocol
