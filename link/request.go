package link

import (
	"context"
	"fmt"

	"github.com/moffa90/go-znp/protocol"
)

// Request sends a synchronous request and waits for its SRSP, failing with
// an InvalidCommandResponseError if the response status is not expected.
//
// Example:
//
//	req, _ := protocol.BuildNVWriteReq(protocol.SysIDZStack, id, 0, 0, value)
//	_, err := l.Request(ctx, req, protocol.StatusSuccess)
func (l *Link) Request(ctx context.Context, req *protocol.Frame, expected protocol.Status) (*protocol.Frame, error) {
	rsp, err := l.exchange(ctx, req)
	if err != nil {
		return nil, err
	}

	status, err := protocol.ParseStatusRsp(rsp.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Header, err)
	}

	if status != expected {
		return nil, &InvalidCommandResponseError{
			Request:  req.Header,
			Response: rsp,
			Expected: expected,
			Actual:   status,
		}
	}

	return rsp, nil
}

// RequestCallback sends a request and returns the first frame that matches
// callback. The callback subscription is in place before the request is
// written. If req is synchronous its SRSP must report success as well.
//
// Example:
//
//	rsp, err := l.RequestCallback(ctx, protocol.BuildHandshakeReq(), protocol.HandshakeRspCallback)
func (l *Link) RequestCallback(ctx context.Context, req *protocol.Frame, callback protocol.Matcher) (*protocol.Frame, error) {
	lst := l.listen(callback)

	if req.Header.Type == protocol.TypeSREQ {
		if _, err := l.Request(ctx, req, protocol.StatusSuccess); err != nil {
			l.unlisten(lst)
			return nil, err
		}
	} else if err := l.send(req); err != nil {
		l.unlisten(lst)
		return nil, err
	}

	return l.wait(ctx, lst)
}

// WriteNvramItem writes the full value of an OSAL NV item. Values that fit a
// single frame use OSALNVWrite; larger ones are written in chunks with
// OSALNVWriteExt at increasing offsets. Every write must report success.
func (l *Link) WriteNvramItem(ctx context.Context, id uint16, value []byte) error {
	if len(value) <= protocol.MaxOSALNVWriteValue {
		req, err := protocol.BuildOSALNVWriteReq(id, 0, value)
		if err != nil {
			return err
		}
		_, err = l.Request(ctx, req, protocol.StatusSuccess)
		return err
	}

	if len(value) > 0xFFFF {
		return fmt.Errorf("NV item 0x%04X: value length %d exceeds maximum 65535 bytes", id, len(value))
	}

	for offset := 0; offset < len(value); offset += protocol.MaxOSALNVWriteExtValue {
		end := min(offset+protocol.MaxOSALNVWriteExtValue, len(value))

		req, err := protocol.BuildOSALNVWriteExtReq(id, uint16(offset), value[offset:end])
		if err != nil {
			return err
		}
		if _, err := l.Request(ctx, req, protocol.StatusSuccess); err != nil {
			return fmt.Errorf("NV item 0x%04X at offset %d: %w", id, offset, err)
		}
	}

	return nil
}

// Ping checks that the radio application is running and returns its
// capability bitmap.
func (l *Link) Ping(ctx context.Context) (uint16, error) {
	rsp, err := l.exchange(ctx, protocol.BuildPingReq())
	if err != nil {
		return 0, err
	}
	return protocol.ParsePingRsp(rsp.Data)
}

// exchange sends an SREQ and waits for the matching SRSP or an RPC error
// naming the request.
func (l *Link) exchange(ctx context.Context, req *protocol.Frame) (*protocol.Frame, error) {
	if req.Header.Type != protocol.TypeSREQ {
		return nil, fmt.Errorf("%s is not a synchronous request", req.Header)
	}

	lst := l.listen(
		protocol.Matcher{Header: req.Header.WithType(protocol.TypeSRSP)},
		notRecognized(req.Header),
	)

	if err := l.send(req); err != nil {
		l.unlisten(lst)
		return nil, err
	}

	rsp, err := l.wait(ctx, lst)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Header, err)
	}

	if protocol.IsCommandNotRecognized(rsp) {
		cnr, err := protocol.ParseCommandNotRecognized(rsp.Data)
		if err != nil {
			return nil, err
		}
		return nil, &CommandNotRecognizedError{Request: req.Header, ErrorCode: cnr.ErrorCode}
	}

	return rsp, nil
}

func notRecognized(req protocol.Header) protocol.Matcher {
	return protocol.Matcher{
		Header: protocol.NewHeader(protocol.TypeSRSP, protocol.SubsystemRPCError, protocol.CmdRPCCommandNotRecognized),
		Fields: func(f *protocol.Frame) bool {
			cnr, err := protocol.ParseCommandNotRecognized(f.Data)
			return err == nil && cnr.RequestHeader == req
		},
	}
}
