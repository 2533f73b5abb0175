package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Header identifies a command: its type, subsystem and command id.
type Header struct {
	Type      CommandType
	Subsystem Subsystem
	ID        byte
}

// NewHeader builds a header from its parts.
func NewHeader(typ CommandType, subsystem Subsystem, id byte) Header {
	return Header{Type: typ, Subsystem: subsystem, ID: id}
}

// Cmd0 returns the first command byte: type in bits 7-5, subsystem in bits 4-0.
func (h Header) Cmd0() byte {
	return byte(h.Type)<<5 | byte(h.Subsystem)&0x1F
}

// WithType returns a copy of the header with a different command type.
// Used to derive the SRSP header of an SREQ.
func (h Header) WithType(typ CommandType) Header {
	h.Type = typ
	return h
}

func (h Header) String() string {
	return fmt.Sprintf("%s.%s(0x%02X)", h.Type, h.Subsystem, h.ID)
}

// ParseHeader splits CMD0 and CMD1 into a Header.
func ParseHeader(cmd0, cmd1 byte) Header {
	return Header{
		Type:      CommandType(cmd0 >> 5),
		Subsystem: Subsystem(cmd0 & 0x1F),
		ID:        cmd1,
	}
}

// Frame is a single decoded MT frame.
type Frame struct {
	Header Header
	Data   []byte
}

// Encode serializes the frame:
//
//	[SOF][LEN][CMD0][CMD1][DATA...][FCS]
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Data) > MaxDataSize {
		return nil, fmt.Errorf("data length %d exceeds maximum %d bytes", len(f.Data), MaxDataSize)
	}

	buf := make([]byte, 0, MinFrameSize+len(f.Data))
	buf = append(buf, StartOfFrame)
	buf = append(buf, byte(len(f.Data)), f.Header.Cmd0(), f.Header.ID)
	buf = append(buf, f.Data...)
	buf = append(buf, CalculateFCS(buf[1:]))

	return buf, nil
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s[% X]", f.Header, f.Data)
}

// ChecksumError indicates a frame whose FCS did not match its contents.
// The frame was consumed from the stream; decoding can continue.
type ChecksumError struct {
	Header   Header
	Expected byte
	Actual   byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("frame checksum mismatch for %s: expected 0x%02X, got 0x%02X",
		e.Header, e.Expected, e.Actual)
}

// IsChecksumError returns true if the error is a ChecksumError.
func IsChecksumError(err error) bool {
	var ce *ChecksumError
	return errors.As(err, &ce)
}

// ErrFrameTooLong is returned when a length byte exceeds MaxDataSize.
var ErrFrameTooLong = errors.New("frame length exceeds maximum")

// IsRecoverable reports whether a Decode error only affected a single frame,
// so the stream can still be read.
func IsRecoverable(err error) bool {
	return IsChecksumError(err) || errors.Is(err, ErrFrameTooLong)
}

// Decoder reads MT frames from a byte stream. Bytes before a start of frame
// marker are skipped.
type Decoder struct {
	r       *bufio.Reader
	skipped int
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Skipped returns the number of garbage bytes discarded so far.
func (d *Decoder) Skipped() int {
	return d.skipped
}

// Decode reads the next frame. A *ChecksumError is returned for corrupted
// frames; any other error comes from the underlying reader.
func (d *Decoder) Decode() (*Frame, error) {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == StartOfFrame {
			break
		}
		d.skipped++
	}

	var head [HeaderSize]byte
	if _, err := io.ReadFull(d.r, head[:]); err != nil {
		return nil, unexpectedEOF(err)
	}

	length := int(head[0])
	if length > MaxDataSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, length)
	}

	rest := make([]byte, length+1)
	if _, err := io.ReadFull(d.r, rest); err != nil {
		return nil, unexpectedEOF(err)
	}

	frame := &Frame{
		Header: ParseHeader(head[1], head[2]),
		Data:   rest[:length],
	}

	expected := CalculateFCS(head[:]) ^ CalculateFCS(frame.Data)
	if actual := rest[length]; actual != expected {
		return nil, &ChecksumError{Header: frame.Header, Expected: expected, Actual: actual}
	}

	return frame, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
