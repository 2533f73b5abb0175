package bootloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/moffa90/go-znp/internal/znptest"
	"github.com/moffa90/go-znp/link"
	"github.com/moffa90/go-znp/protocol"
)

// fakeLink answers bootloader requests from an in-memory flash image.
type fakeLink struct {
	handshake protocol.HandshakeInfo
	flash     []byte

	// silent drops handshake requests
	silent bool

	// read, when set, answers read requests; nil falls back to flash
	read func(addr uint16) *protocol.Frame

	requests []*protocol.Frame
}

func newFakeLink(bufferSize uint32, flash []byte) *fakeLink {
	return &fakeLink{
		handshake: protocol.HandshakeInfo{
			Status:     protocol.BootloaderSuccess,
			BufferSize: bufferSize,
			PageSize:   2048,
		},
		flash: flash,
	}
}

func (f *fakeLink) RequestCallback(ctx context.Context, req *protocol.Frame, callback protocol.Matcher) (*protocol.Frame, error) {
	f.requests = append(f.requests, req)

	var rsp *protocol.Frame
	switch req.Header.ID {
	case protocol.CmdUBLHandshakeReq:
		if !f.silent {
			rsp = protocol.BuildHandshakeRsp(f.handshake)
		}
	case protocol.CmdUBLReadReq:
		addr, err := protocol.ParseReadReq(req.Data)
		if err != nil {
			return nil, err
		}
		rsp = f.readRsp(addr)
	}

	if rsp == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if !callback.Matches(rsp) {
		return nil, fmt.Errorf("callback does not match %s", rsp.Header)
	}
	return rsp, nil
}

func (f *fakeLink) readRsp(addr uint16) *protocol.Frame {
	if f.read != nil {
		return f.read(addr)
	}
	size := int(f.handshake.BufferSize)
	offset := int(addr) * protocol.FlashWordSize
	if offset+size > len(f.flash) {
		return protocol.BuildReadRsp(protocol.BootloaderFailure, addr, nil)
	}
	return protocol.BuildReadRsp(protocol.BootloaderSuccess, addr, f.flash[offset:offset+size])
}

// readAddresses returns the addresses of all read requests in order.
func (f *fakeLink) readAddresses(t *testing.T) []uint16 {
	t.Helper()
	var addrs []uint16
	for _, req := range f.requests {
		if req.Header.ID != protocol.CmdUBLReadReq {
			continue
		}
		addr, err := protocol.ParseReadReq(req.Data)
		if err != nil {
			t.Fatalf("bad read request: %v", err)
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func TestNew_NilLink(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New(nil) should panic")
		}
	}()
	New(nil)
}

func TestPolicyString(t *testing.T) {
	if got := UntilEndOfData().String(); got != "until end of data" {
		t.Errorf("UntilEndOfData().String() = %q", got)
	}
	if got := FixedSize(100).String(); got != "fixed size (100 bytes)" {
		t.Errorf("FixedSize(100).String() = %q", got)
	}
}

func TestFlashWordAddress(t *testing.T) {
	tests := []struct {
		offset int
		want   FlashWordAddress
	}{
		{0, 0},
		{64, 16},
		{128, 32},
		{protocol.ImageSize - 64, 0xF7F0},
	}

	for _, tt := range tests {
		if got := AddressOf(tt.offset); got != tt.want {
			t.Errorf("AddressOf(%d) = 0x%04X, want 0x%04X", tt.offset, uint32(got), uint32(tt.want))
		}
		if got := tt.want.Offset(); got != tt.offset {
			t.Errorf("FlashWordAddress(0x%04X).Offset() = %d, want %d", uint32(tt.want), got, tt.offset)
		}
	}
}

func TestHandshake(t *testing.T) {
	fl := newFakeLink(64, nil)
	fl.handshake.BootloaderRevision = 3
	fl.handshake.DeviceType = 0x01

	info, err := New(fl).Handshake(context.Background())
	if err != nil {
		t.Fatalf("Handshake() error = %v", err)
	}

	if info.BufferSize != 64 {
		t.Errorf("BufferSize = %d, want 64", info.BufferSize)
	}
	if info.BootloaderRevision != 3 {
		t.Errorf("BootloaderRevision = %d, want 3", info.BootloaderRevision)
	}
	if len(fl.requests) != 1 || fl.requests[0].Header != protocol.BuildHandshakeReq().Header {
		t.Errorf("expected exactly one handshake request, got %v", fl.requests)
	}
}

func TestHandshake_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeLink)
		check func(*testing.T, error)
	}{
		{
			name:  "timeout",
			setup: func(f *fakeLink) { f.silent = true },
			check: func(t *testing.T, err error) {
				var te *HandshakeTimeoutError
				if !errors.As(err, &te) {
					t.Fatalf("expected HandshakeTimeoutError, got %v", err)
				}
				if te.Timeout != 20*time.Millisecond {
					t.Errorf("Timeout = %s, want 20ms", te.Timeout)
				}
				if !errors.Is(err, context.DeadlineExceeded) {
					t.Error("HandshakeTimeoutError should unwrap to context.DeadlineExceeded")
				}
			},
		},
		{
			name:  "rejected",
			setup: func(f *fakeLink) { f.handshake.Status = protocol.BootloaderFailure },
			check: func(t *testing.T, err error) {
				var re *HandshakeRejectedError
				if !errors.As(err, &re) {
					t.Fatalf("expected HandshakeRejectedError, got %v", err)
				}
				if re.Status != protocol.BootloaderFailure {
					t.Errorf("Status = %s, want FAILURE", re.Status)
				}
			},
		},
		{
			name:  "zero buffer size",
			setup: func(f *fakeLink) { f.handshake.BufferSize = 0 },
			check: expectDesync,
		},
		{
			name:  "buffer size not a whole number of words",
			setup: func(f *fakeLink) { f.handshake.BufferSize = 66 },
			check: expectDesync,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fl := newFakeLink(64, pattern(256))
			tt.setup(fl)

			_, err := New(fl, WithHandshakeTimeout(20*time.Millisecond)).Backup(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			tt.check(t, err)

			if addrs := fl.readAddresses(t); len(addrs) != 0 {
				t.Errorf("no reads should follow a failed handshake, got %v", addrs)
			}
		})
	}
}

func expectDesync(t *testing.T, err error) {
	t.Helper()
	var de *ProtocolDesyncError
	if !errors.As(err, &de) {
		t.Fatalf("expected ProtocolDesyncError, got %v", err)
	}
}

func TestHandshake_ParentCancelled(t *testing.T) {
	fl := newFakeLink(64, nil)
	fl.silent = true

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := New(fl, WithHandshakeTimeout(time.Minute)).Handshake(ctx)

	var te *HandshakeTimeoutError
	if errors.As(err, &te) {
		t.Fatal("parent cancellation should not be reported as a handshake timeout")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context error, got %v", err)
	}
}

func TestBackup(t *testing.T) {
	tests := []struct {
		name       string
		bufferSize uint32
		flashSize  int
		wantAddrs  []uint16
	}{
		{
			name:       "three chunks of 64",
			bufferSize: 64,
			flashSize:  192,
			wantAddrs:  []uint16{0, 16, 32, 48},
		},
		{
			name:       "single chunk",
			bufferSize: 64,
			flashSize:  64,
			wantAddrs:  []uint16{0, 16},
		},
		{
			name:       "stride follows buffer size",
			bufferSize: 128,
			flashSize:  300,
			wantAddrs:  []uint16{0, 32, 64},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flash := pattern(tt.flashSize)
			fl := newFakeLink(tt.bufferSize, flash)

			img, err := New(fl).Backup(context.Background())
			if err != nil {
				t.Fatalf("Backup() error = %v", err)
			}

			chunks := tt.flashSize / int(tt.bufferSize)
			if img.Chunks != chunks {
				t.Errorf("Chunks = %d, want %d", img.Chunks, chunks)
			}
			if len(img.Data) != chunks*int(tt.bufferSize) {
				t.Errorf("len(Data) = %d, want %d", len(img.Data), chunks*int(tt.bufferSize))
			}
			if !bytes.Equal(img.Data, flash[:len(img.Data)]) {
				t.Error("image does not match flash contents")
			}
			if img.BufferSize != int(tt.bufferSize) {
				t.Errorf("BufferSize = %d, want %d", img.BufferSize, tt.bufferSize)
			}

			addrs := fl.readAddresses(t)
			if fmt.Sprint(addrs) != fmt.Sprint(tt.wantAddrs) {
				t.Errorf("read addresses = %v, want %v", addrs, tt.wantAddrs)
			}
		})
	}
}

func TestBackup_IgnoresEndOfDataPayload(t *testing.T) {
	fl := newFakeLink(64, nil)
	fl.read = func(addr uint16) *protocol.Frame {
		if addr == 0 {
			return protocol.BuildReadRsp(protocol.BootloaderSuccess, 0, pattern(64))
		}
		return protocol.BuildReadRsp(protocol.BootloaderFailure, addr, bytes.Repeat([]byte{0xFF}, 64))
	}

	img, err := New(fl).Backup(context.Background())
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if !bytes.Equal(img.Data, pattern(64)) {
		t.Errorf("image should hold only the successful chunk, got %d bytes", len(img.Data))
	}
}

func TestBackup_Errors(t *testing.T) {
	tests := []struct {
		name  string
		read  func(addr uint16) *protocol.Frame
		check func(*testing.T, error)
	}{
		{
			name: "end of data on first chunk",
			read: func(addr uint16) *protocol.Frame {
				return protocol.BuildReadRsp(protocol.BootloaderFailure, addr, nil)
			},
			check: expectDesync,
		},
		{
			name: "address echo mismatch",
			read: func(addr uint16) *protocol.Frame {
				return protocol.BuildReadRsp(protocol.BootloaderSuccess, addr+1, pattern(64))
			},
			check: expectDesync,
		},
		{
			name: "short chunk",
			read: func(addr uint16) *protocol.Frame {
				return protocol.BuildReadRsp(protocol.BootloaderSuccess, addr, pattern(60))
			},
			check: expectDesync,
		},
		{
			name: "truncated response",
			read: func(addr uint16) *protocol.Frame {
				return &protocol.Frame{Header: protocol.ReadRspCallback.Header, Data: []byte{0x00}}
			},
			check: expectDesync,
		},
		{
			name: "unexpected status",
			read: func(addr uint16) *protocol.Frame {
				if addr == 0 {
					return protocol.BuildReadRsp(protocol.BootloaderSuccess, 0, pattern(64))
				}
				return protocol.BuildReadRsp(protocol.BootloaderInvalidFCS, addr, nil)
			},
			check: func(t *testing.T, err error) {
				var ue *UnexpectedStatusError
				if !errors.As(err, &ue) {
					t.Fatalf("expected UnexpectedStatusError, got %v", err)
				}
				if ue.Status != protocol.BootloaderInvalidFCS || ue.Address != 16 {
					t.Errorf("got status %s at 0x%04X, want INVALID_FCS at 0x0010", ue.Status, uint32(ue.Address))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fl := newFakeLink(64, nil)
			fl.read = tt.read

			img, err := New(fl).Backup(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if img != nil {
				t.Error("no image should be returned on error")
			}
			tt.check(t, err)
		})
	}
}

func TestBackup_AddressOverflow(t *testing.T) {
	const bufferSize = 0x20000

	fl := newFakeLink(bufferSize, nil)
	fl.read = func(addr uint16) *protocol.Frame {
		return protocol.BuildReadRsp(protocol.BootloaderSuccess, addr, make([]byte, bufferSize))
	}

	_, err := New(fl).Backup(context.Background())
	if !errors.Is(err, ErrAddressOverflow) {
		t.Fatalf("expected ErrAddressOverflow, got %v", err)
	}

	if addrs := fl.readAddresses(t); fmt.Sprint(addrs) != "[0 32768]" {
		t.Errorf("read addresses = %v, want [0 32768]", addrs)
	}
}

func TestReadAll(t *testing.T) {
	tests := []struct {
		name       string
		bufferSize uint32
		size       int
		wantChunks int
	}{
		{"exact multiple", 64, 256, 4},
		{"partial last chunk", 64, 200, 4},
		{"smaller than one chunk", 64, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flash := pattern(1024)
			fl := newFakeLink(tt.bufferSize, flash)

			img, err := New(fl).ReadAll(context.Background(), tt.size)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}

			if len(img.Data) != tt.size {
				t.Errorf("len(Data) = %d, want %d", len(img.Data), tt.size)
			}
			if img.Chunks != tt.wantChunks {
				t.Errorf("Chunks = %d, want %d", img.Chunks, tt.wantChunks)
			}
			if !bytes.Equal(img.Data, flash[:tt.size]) {
				t.Error("image does not match flash contents")
			}
			if n := len(fl.readAddresses(t)); n != tt.wantChunks {
				t.Errorf("issued %d reads, want %d", n, tt.wantChunks)
			}
		})
	}
}

func TestReadAll_Progress(t *testing.T) {
	fl := newFakeLink(64, pattern(256))

	var reading []float64
	var last Progress
	r := New(fl, WithProgressCallback(func(p Progress) {
		if p.Phase == PhaseReading {
			reading = append(reading, p.Percentage)
		}
		last = p
	}))

	if _, err := r.ReadAll(context.Background(), 200); err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	want := []float64{0, 32, 64, 96}
	if fmt.Sprint(reading) != fmt.Sprint(want) {
		t.Errorf("progress = %v, want %v", reading, want)
	}
	if last.Phase != PhaseComplete || last.Percentage != 100 || last.BytesRead != 200 {
		t.Errorf("final progress = %+v", last)
	}
}

func TestReadAll_Errors(t *testing.T) {
	t.Run("end of data is not accepted", func(t *testing.T) {
		fl := newFakeLink(64, pattern(128))

		_, err := New(fl).ReadAll(context.Background(), 256)

		var ue *UnexpectedStatusError
		if !errors.As(err, &ue) {
			t.Fatalf("expected UnexpectedStatusError, got %v", err)
		}
		if ue.Status != protocol.BootloaderFailure || ue.Address != 32 {
			t.Errorf("got status %s at 0x%04X, want FAILURE at 0x0020", ue.Status, uint32(ue.Address))
		}
	})

	t.Run("invalid size", func(t *testing.T) {
		fl := newFakeLink(64, pattern(128))
		if _, err := New(fl).ReadAll(context.Background(), 0); err == nil {
			t.Error("expected error for zero size")
		}
	})
}

func TestReadFirmware_ReadTimeout(t *testing.T) {
	fl := newFakeLink(64, nil)
	fl.read = func(addr uint16) *protocol.Frame { return nil }

	r := New(fl, WithReadTimeout(10*time.Millisecond))
	info, err := r.Handshake(context.Background())
	if err != nil {
		t.Fatalf("Handshake() error = %v", err)
	}

	_, err = r.ReadFirmware(context.Background(), info, UntilEndOfData())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestReadFirmware_Cancelled(t *testing.T) {
	fl := newFakeLink(64, pattern(1024))

	ctx, cancel := context.WithCancel(context.Background())
	r := New(fl, WithProgressCallback(func(p Progress) {
		if p.Chunks == 2 {
			cancel()
		}
	}))

	_, err := r.Backup(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReadFirmware_NilHandshake(t *testing.T) {
	if _, err := New(newFakeLink(64, nil)).ReadFirmware(context.Background(), nil, UntilEndOfData()); err == nil {
		t.Error("expected error for nil handshake info")
	}
}

func TestBackup_OverLink(t *testing.T) {
	radio := znptest.NewRadio()
	radio.Flash = pattern(64 * 5)

	l, err := link.Connect(context.Background(), radio.Pipe())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	img, err := New(l).Backup(ctx)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	if !bytes.Equal(img.Data, radio.Flash) {
		t.Errorf("image has %d bytes, want %d matching bytes", len(img.Data), len(radio.Flash))
	}

	if n := radio.Count(protocol.BuildHandshakeReq().Header); n != 1 {
		t.Errorf("handshakes = %d, want 1", n)
	}
	if first := radio.Requests()[0]; first.Header != protocol.BuildHandshakeReq().Header {
		t.Errorf("first request = %s, want the handshake", first.Header)
	}
}
