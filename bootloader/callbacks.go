package bootloader

import "time"

// Progress phases.
const (
	PhaseHandshake = "handshake"
	PhaseReading   = "reading"
	PhaseComplete  = "complete"
)

// Progress contains information about a flash read.
// Passed to ProgressCallback during reader operations.
type Progress struct {
	// Phase describes the current operation phase:
	//   "handshake" - Waiting for the bootloader handshake
	//   "reading"   - Reading flash chunks
	//   "complete"  - Image read successfully
	Phase string

	// Address is the flash word address about to be read
	Address FlashWordAddress

	// Chunks is the number of chunks read so far
	Chunks int

	// TotalChunks is the number of chunks to read, or 0 when reading until
	// the end of data
	TotalChunks int

	// Percentage is the completion percentage (0.0 to 100.0). It stays at 0
	// while reading until the end of data, since the image size is unknown.
	Percentage float64

	// BytesRead is the number of image bytes read so far
	BytesRead int

	// ElapsedTime is the time elapsed since the read started
	ElapsedTime time.Duration
}

// ProgressCallback is called before every chunk and once when the read
// completes. Implementations should return quickly to avoid stalling the read.
//
// Example:
//
//	r := bootloader.New(l,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.2f%% - %d bytes\n", p.Phase, p.Percentage, p.BytesRead)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the reader.
// This allows integration with any logging framework; *slog.Logger satisfies it.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	r := bootloader.New(l, bootloader.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
