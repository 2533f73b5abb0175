// Package link provides the request/response session used to talk to a ZNP
// radio over a serial port.
//
// A Link owns the port for its whole lifetime. A background reader decodes
// MT frames and delivers each one to the request waiting for it; frames with
// a bad checksum are dropped and logged. Requests are strictly sequential:
// callers issue one, wait for its answer (or a context deadline), then issue
// the next.
//
// # Opening
//
//	// Bootloader session: nothing may be written before the handshake.
//	l, err := link.Open(ctx, "/dev/ttyUSB0")
//
//	// Application session: skip the bootloader and wait for the radio.
//	l, err := link.Open(ctx, "/dev/ttyUSB0",
//	    link.WithSkipBootloader(time.Second),
//	    link.WithTestPort(),
//	)
//
// # Requests
//
//	rsp, err := l.Request(ctx, req, protocol.StatusSuccess)
//	cb, err := l.RequestCallback(ctx, req, protocol.ResetIndCallback)
//	err := l.WriteNvramItem(ctx, id, value)
//
// Timeouts come from the context; the link never retries a request.
package link
