// Package znptest provides a simulated ZNP radio that speaks MT frames over a
// byte stream, for tests and examples.
package znptest

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/moffa90/go-znp/protocol"
)

// Radio simulates a radio with a serial bootloader and an NV store.
// Configure the exported fields before calling Serve.
type Radio struct {
	// Handshake is returned for every UBL handshake
	Handshake protocol.HandshakeInfo

	// HandshakeDelay delays the handshake response
	HandshakeDelay time.Duration

	// Silent makes the bootloader ignore handshakes, as a radio that is not
	// in bootloader mode would
	Silent bool

	// Flash is the readable image. Reads past its end return FAILURE.
	Flash []byte

	// ReadOverride, when set, replaces the response to a read request.
	// Returning nil falls back to the normal behavior.
	ReadOverride func(addr uint16) *protocol.Frame

	// Reject maps NV item ids to the status returned for any init or write
	Reject map[uint16]protocol.Status

	// RejectEx maps extended NV item ids to the status returned by NVWrite
	RejectEx map[uint16]protocol.Status

	// Reset is reported in the ResetInd after a reset request
	Reset protocol.ResetInfo

	// IgnoreReset suppresses the ResetInd
	IgnoreReset bool

	mu       sync.Mutex
	requests []*protocol.Frame
	nv       map[uint16][]byte
	exNV     map[uint16][]byte
	resets   int
}

// NewRadio returns a radio with a 64 byte read buffer and an empty NV store.
func NewRadio() *Radio {
	return &Radio{
		Handshake: protocol.HandshakeInfo{
			Status:                 protocol.BootloaderSuccess,
			BootloaderRevision:     3,
			DeviceType:             1,
			BufferSize:             64,
			PageSize:               2048,
			BootloaderCodeRevision: 0x00010203,
		},
		Reset:    protocol.ResetInfo{TransportRev: 2, ProductID: 1, MajorRel: 2, MinorRel: 7, MaintRel: 1},
		Reject:   make(map[uint16]protocol.Status),
		RejectEx: make(map[uint16]protocol.Status),
		nv:       make(map[uint16][]byte),
		exNV:     make(map[uint16][]byte),
	}
}

// Pipe starts serving on one end of an in-memory connection and returns the
// other end for the host.
func (r *Radio) Pipe() io.ReadWriteCloser {
	host, device := net.Pipe()
	go func() {
		_ = r.Serve(device)
		_ = device.Close()
	}()
	return host
}

// Serve answers frames read from conn until it fails.
func (r *Radio) Serve(conn io.ReadWriter) error {
	dec := protocol.NewDecoder(conn)
	for {
		req, err := dec.Decode()
		if err != nil {
			if protocol.IsRecoverable(err) {
				continue
			}
			return err
		}

		r.mu.Lock()
		r.requests = append(r.requests, req)
		r.mu.Unlock()

		for _, rsp := range r.handle(req) {
			raw, err := rsp.Encode()
			if err != nil {
				return err
			}
			if _, err := conn.Write(raw); err != nil {
				return err
			}
		}
	}
}

func (r *Radio) handle(req *protocol.Frame) []*protocol.Frame {
	h := req.Header
	switch {
	case h == protocol.BuildHandshakeReq().Header:
		return r.handleHandshake()
	case h == protocol.NewHeader(protocol.TypeAREQ, protocol.SubsystemUBL, protocol.CmdUBLReadReq):
		return r.handleRead(req)
	case h == protocol.BuildPingReq().Header:
		return []*protocol.Frame{protocol.BuildPingRsp(0x0179)}
	case h == protocol.NewHeader(protocol.TypeAREQ, protocol.SubsystemSYS, protocol.CmdSysResetReq):
		return r.handleReset()
	case h == protocol.NewHeader(protocol.TypeSREQ, protocol.SubsystemSYS, protocol.CmdSysOSALNVItemInit):
		return r.handleItemInit(req)
	case h == protocol.NewHeader(protocol.TypeSREQ, protocol.SubsystemSYS, protocol.CmdSysOSALNVWrite):
		w, err := protocol.ParseOSALNVWriteReq(req.Data)
		return r.handleItemWrite(req, w, err)
	case h == protocol.NewHeader(protocol.TypeSREQ, protocol.SubsystemSYS, protocol.CmdSysOSALNVWriteExt):
		w, err := protocol.ParseOSALNVWriteExtReq(req.Data)
		return r.handleItemWrite(req, w, err)
	case h == protocol.NewHeader(protocol.TypeSREQ, protocol.SubsystemSYS, protocol.CmdSysNVWrite):
		return r.handleNVWrite(req)
	case h.Type == protocol.TypeSREQ:
		return []*protocol.Frame{protocol.BuildCommandNotRecognized(0x02, h)}
	default:
		return nil
	}
}

func (r *Radio) handleHandshake() []*protocol.Frame {
	if r.Silent {
		return nil
	}
	if r.HandshakeDelay > 0 {
		time.Sleep(r.HandshakeDelay)
	}
	return []*protocol.Frame{protocol.BuildHandshakeRsp(r.Handshake)}
}

func (r *Radio) handleRead(req *protocol.Frame) []*protocol.Frame {
	addr, err := protocol.ParseReadReq(req.Data)
	if err != nil {
		return []*protocol.Frame{protocol.BuildReadRsp(protocol.BootloaderFailure, 0, nil)}
	}

	if r.ReadOverride != nil {
		if rsp := r.ReadOverride(addr); rsp != nil {
			return []*protocol.Frame{rsp}
		}
	}

	size := int(r.Handshake.BufferSize)
	offset := int(addr) * protocol.FlashWordSize
	if offset+size > len(r.Flash) {
		return []*protocol.Frame{protocol.BuildReadRsp(protocol.BootloaderFailure, addr, nil)}
	}

	return []*protocol.Frame{protocol.BuildReadRsp(protocol.BootloaderSuccess, addr, r.Flash[offset:offset+size])}
}

func (r *Radio) handleReset() []*protocol.Frame {
	r.mu.Lock()
	r.resets++
	r.mu.Unlock()

	if r.IgnoreReset {
		return nil
	}
	return []*protocol.Frame{protocol.BuildResetInd(r.Reset)}
}

func (r *Radio) handleItemInit(req *protocol.Frame) []*protocol.Frame {
	init, err := protocol.ParseOSALNVItemInitReq(req.Data)
	if err != nil {
		return []*protocol.Frame{protocol.BuildStatusRsp(req.Header, protocol.StatusInvalidParameter)}
	}
	if status, ok := r.Reject[init.ID]; ok {
		return []*protocol.Frame{protocol.BuildStatusRsp(req.Header, status)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nv[init.ID]; !ok {
		item := make([]byte, init.ItemLen)
		copy(item, init.Value)
		r.nv[init.ID] = item
	}
	return []*protocol.Frame{protocol.BuildStatusRsp(req.Header, protocol.StatusSuccess)}
}

func (r *Radio) handleItemWrite(req *protocol.Frame, w *protocol.NVItemWrite, err error) []*protocol.Frame {
	if err != nil {
		return []*protocol.Frame{protocol.BuildStatusRsp(req.Header, protocol.StatusInvalidParameter)}
	}
	if status, ok := r.Reject[w.ID]; ok {
		return []*protocol.Frame{protocol.BuildStatusRsp(req.Header, status)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.nv[w.ID]
	if !ok {
		return []*protocol.Frame{protocol.BuildStatusRsp(req.Header, protocol.StatusNVItemUninit)}
	}
	if end := int(w.Offset) + len(w.Value); end > len(item) {
		grown := make([]byte, end)
		copy(grown, item)
		item = grown
	}
	copy(item[w.Offset:], w.Value)
	r.nv[w.ID] = item

	return []*protocol.Frame{protocol.BuildStatusRsp(req.Header, protocol.StatusSuccess)}
}

func (r *Radio) handleNVWrite(req *protocol.Frame) []*protocol.Frame {
	w, err := protocol.ParseNVWriteReq(req.Data)
	if err != nil || w.SysID != protocol.SysIDZStack {
		return []*protocol.Frame{protocol.BuildStatusRsp(req.Header, protocol.StatusInvalidParameter)}
	}
	if status, ok := r.RejectEx[w.ItemID]; ok {
		return []*protocol.Frame{protocol.BuildStatusRsp(req.Header, status)}
	}

	r.mu.Lock()
	r.exNV[w.ItemID] = append([]byte(nil), w.Value...)
	r.mu.Unlock()

	return []*protocol.Frame{protocol.BuildStatusRsp(req.Header, protocol.StatusSuccess)}
}

// Requests returns every frame received so far.
func (r *Radio) Requests() []*protocol.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*protocol.Frame(nil), r.requests...)
}

// Count returns how many received frames had header h.
func (r *Radio) Count(h protocol.Header) int {
	n := 0
	for _, f := range r.Requests() {
		if f.Header == h {
			n++
		}
	}
	return n
}

// Resets returns the number of reset requests received.
func (r *Radio) Resets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

// Item returns the stored value of an NV item.
func (r *Radio) Item(id uint16) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.nv[id]
	return append([]byte(nil), v...), ok
}

// ExItem returns the stored value of an extended NV item.
func (r *Radio) ExItem(id uint16) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.exNV[id]
	return append([]byte(nil), v...), ok
}

// SetItem preloads an NV item.
func (r *Radio) SetItem(id uint16, value []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nv[id] = append([]byte(nil), value...)
}
