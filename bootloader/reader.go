package bootloader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moffa90/go-znp/protocol"
)

// Link is the request/response transport the reader drives.
// *link.Link satisfies it.
type Link interface {
	RequestCallback(ctx context.Context, req *protocol.Frame, callback protocol.Matcher) (*protocol.Frame, error)
}

// FlashWordAddress addresses flash in 4-byte words.
type FlashWordAddress uint32

// AddressOf returns the flash word address of a byte offset.
func AddressOf(offset int) FlashWordAddress {
	return FlashWordAddress(offset / protocol.FlashWordSize)
}

// Offset returns the byte offset of the address.
func (a FlashWordAddress) Offset() int {
	return int(a) * protocol.FlashWordSize
}

// Image is a firmware image read out of flash.
type Image struct {
	// Data is the raw image
	Data []byte

	// BufferSize is the chunk size reported by the handshake
	BufferSize int

	// Chunks is the number of successful reads that produced Data
	Chunks int

	// Handshake is the bootloader identification the read was based on
	Handshake protocol.HandshakeInfo
}

// Policy decides when a chunked read ends.
type Policy struct {
	fixed bool
	size  int
}

// UntilEndOfData reads chunks until the bootloader answers FAILURE, which
// marks the end of the image. The result is a whole number of chunks.
func UntilEndOfData() Policy {
	return Policy{}
}

// FixedSize reads exactly size bytes. Every read must succeed; the last
// chunk is truncated to fit.
func FixedSize(size int) Policy {
	return Policy{fixed: true, size: size}
}

func (p Policy) String() string {
	if p.fixed {
		return fmt.Sprintf("fixed size (%d bytes)", p.size)
	}
	return "until end of data"
}

// Reader reads firmware out of a radio through its serial bootloader.
//
// The handshake must be the first command the radio sees after power-up;
// the reader does not enforce this.
type Reader struct {
	link   Link
	config Config
}

// New creates a new Reader on the given link.
//
// Example:
//
//	l, _ := link.Open(ctx, "/dev/ttyUSB0")
//	r := bootloader.New(l,
//	    bootloader.WithProgressCallback(progressFunc),
//	    bootloader.WithHandshakeTimeout(5*time.Second),
//	)
func New(link Link, opts ...Option) *Reader {
	if link == nil {
		panic("link cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Reader{
		link:   link,
		config: cfg,
	}
}

// Backup performs a handshake and reads chunks until the bootloader reports
// the end of the image.
//
// Example:
//
//	img, err := r.Backup(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("backup.bin", img.Data, 0o644)
func (r *Reader) Backup(ctx context.Context) (*Image, error) {
	info, err := r.Handshake(ctx)
	if err != nil {
		return nil, err
	}
	return r.ReadFirmware(ctx, info, UntilEndOfData())
}

// ReadAll performs a handshake and reads exactly size bytes of flash.
// protocol.ImageSize is the readable image of a CC2530/CC2531.
func (r *Reader) ReadAll(ctx context.Context, size int) (*Image, error) {
	info, err := r.Handshake(ctx)
	if err != nil {
		return nil, err
	}
	return r.ReadFirmware(ctx, info, FixedSize(size))
}

// Handshake asks the bootloader to identify itself. It fails with a
// *HandshakeTimeoutError if no answer arrives within the handshake timeout
// and with a *HandshakeRejectedError if the answer is not a success.
func (r *Reader) Handshake(ctx context.Context) (*protocol.HandshakeInfo, error) {
	r.reportProgress(Progress{Phase: PhaseHandshake})

	hctx, cancel := context.WithTimeout(ctx, r.config.HandshakeTimeout)
	defer cancel()

	rsp, err := r.link.RequestCallback(hctx, protocol.BuildHandshakeReq(), protocol.HandshakeRspCallback)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("handshake: %w", ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			r.logError("no handshake response", "timeout", r.config.HandshakeTimeout.String())
			return nil, &HandshakeTimeoutError{Timeout: r.config.HandshakeTimeout}
		}
		return nil, fmt.Errorf("handshake: %w", err)
	}

	info, err := protocol.ParseHandshakeRsp(rsp.Data)
	if err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}

	if info.Status != protocol.BootloaderSuccess {
		return nil, &HandshakeRejectedError{Status: info.Status}
	}

	if info.BufferSize == 0 || info.BufferSize%protocol.FlashWordSize != 0 {
		return nil, &ProtocolDesyncError{
			Reason: fmt.Sprintf("unusable buffer size %d", info.BufferSize),
		}
	}

	r.logInfo("bootloader handshake",
		"bootloader_rev", info.BootloaderRevision,
		"device_type", fmt.Sprintf("0x%02X", info.DeviceType),
		"buffer_size", info.BufferSize,
		"page_size", info.PageSize,
		"code_rev", fmt.Sprintf("0x%08X", info.BootloaderCodeRevision),
	)

	return info, nil
}

// ReadFirmware reads flash in chunks of the handshake's buffer size, starting
// at address 0, until the policy ends the read.
//
// The address of every chunk is echoed back by the bootloader and every
// chunk must be exactly one buffer long; any mismatch is a
// *ProtocolDesyncError and ends the read.
func (r *Reader) ReadFirmware(ctx context.Context, info *protocol.HandshakeInfo, policy Policy) (*Image, error) {
	if info == nil {
		return nil, fmt.Errorf("handshake info cannot be nil")
	}
	if info.BufferSize == 0 || info.BufferSize%protocol.FlashWordSize != 0 {
		return nil, &ProtocolDesyncError{Reason: fmt.Sprintf("unusable buffer size %d", info.BufferSize)}
	}
	if policy.fixed && policy.size <= 0 {
		return nil, fmt.Errorf("image size must be positive, got %d", policy.size)
	}

	startTime := time.Now()
	bufferSize := int(info.BufferSize)

	totalChunks := 0
	if policy.fixed {
		totalChunks = (policy.size + bufferSize - 1) / bufferSize
	}

	img := &Image{BufferSize: bufferSize, Handshake: *info}

	r.logDebug("reading flash", "policy", policy.String(), "buffer_size", bufferSize)

	for offset := 0; !policy.fixed || offset < policy.size; offset += bufferSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cancelled: %w", err)
		}

		addr := AddressOf(offset)
		if addr > protocol.MaxFlashWordAddr {
			return nil, fmt.Errorf("read at byte offset %d: %w", offset, ErrAddressOverflow)
		}

		progress := Progress{
			Phase:       PhaseReading,
			Address:     addr,
			Chunks:      img.Chunks,
			TotalChunks: totalChunks,
			BytesRead:   len(img.Data),
			ElapsedTime: time.Since(startTime),
		}
		if policy.fixed {
			progress.Percentage = 100 * float64(offset) / float64(policy.size)
		}
		r.reportProgress(progress)

		outcome, err := r.readChunk(ctx, addr, bufferSize)
		if err != nil {
			return nil, err
		}

		switch o := outcome.(type) {
		case chunkData:
			img.Data = append(img.Data, o.data...)
			img.Chunks++

		case endOfData:
			if policy.fixed {
				return nil, &UnexpectedStatusError{Address: addr, Status: protocol.BootloaderFailure}
			}
			if addr == 0 {
				return nil, &ProtocolDesyncError{Address: addr, Reason: "end of data before the first chunk"}
			}
			r.logDebug("end of data", "address", fmt.Sprintf("0x%04X", uint32(addr)))
			return r.complete(img, startTime), nil

		case unexpectedStatus:
			return nil, &UnexpectedStatusError{Address: addr, Status: o.status}

		default:
			return nil, fmt.Errorf("unhandled chunk outcome %T", outcome)
		}
	}

	img.Data = img.Data[:policy.size]
	return r.complete(img, startTime), nil
}

func (r *Reader) complete(img *Image, startTime time.Time) *Image {
	r.reportProgress(Progress{
		Phase:       PhaseComplete,
		Address:     AddressOf(img.Chunks * img.BufferSize),
		Chunks:      img.Chunks,
		TotalChunks: img.Chunks,
		Percentage:  100,
		BytesRead:   len(img.Data),
		ElapsedTime: time.Since(startTime),
	})

	r.logInfo("flash read complete",
		"chunks", img.Chunks,
		"bytes", len(img.Data),
		"elapsed", time.Since(startTime).String(),
	)

	return img
}

// chunkOutcome is the classified result of one read request.
type chunkOutcome interface {
	chunkOutcome()
}

// chunkData is a successful read of one buffer.
type chunkData struct {
	data []byte
}

// endOfData is a FAILURE answer; the payload, if any, is not image data.
type endOfData struct{}

// unexpectedStatus is any other answer.
type unexpectedStatus struct {
	status protocol.BootloaderStatus
}

func (chunkData) chunkOutcome()        {}
func (endOfData) chunkOutcome()        {}
func (unexpectedStatus) chunkOutcome() {}

// readChunk reads one buffer at addr and classifies the answer.
func (r *Reader) readChunk(ctx context.Context, addr FlashWordAddress, bufferSize int) (chunkOutcome, error) {
	req, err := protocol.BuildReadReq(uint32(addr))
	if err != nil {
		return nil, err
	}

	if r.config.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ReadTimeout)
		defer cancel()
	}

	rsp, err := r.link.RequestCallback(ctx, req, protocol.ReadRspCallback)
	if err != nil {
		return nil, fmt.Errorf("read flash word 0x%04X: %w", uint32(addr), err)
	}

	result, err := protocol.ParseReadRsp(rsp.Data)
	if err != nil {
		return nil, &ProtocolDesyncError{Address: addr, Reason: err.Error()}
	}

	switch result.Status {
	case protocol.BootloaderSuccess:
		if FlashWordAddress(result.FlashWordAddr) != addr {
			return nil, &ProtocolDesyncError{
				Address: addr,
				Reason:  fmt.Sprintf("response echoes address 0x%04X", result.FlashWordAddr),
			}
		}
		if len(result.Data) != bufferSize {
			return nil, &ProtocolDesyncError{
				Address: addr,
				Reason:  fmt.Sprintf("got %d bytes, expected %d", len(result.Data), bufferSize),
			}
		}
		return chunkData{data: result.Data}, nil

	case protocol.BootloaderFailure:
		return endOfData{}, nil

	default:
		return unexpectedStatus{status: result.Status}, nil
	}
}

// reportProgress calls the progress callback if configured.
func (r *Reader) reportProgress(progress Progress) {
	if r.config.ProgressCallback != nil {
		r.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (r *Reader) logDebug(msg string, keysAndValues ...interface{}) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (r *Reader) logInfo(msg string, keysAndValues ...interface{}) {
	if r.config.Logger != nil {
		r.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (r *Reader) logError(msg string, keysAndValues ...interface{}) {
	if r.config.Logger != nil {
		r.config.Logger.Error(msg, keysAndValues...)
	}
}
