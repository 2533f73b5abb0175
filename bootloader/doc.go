// Package bootloader reads firmware out of a Z-Stack radio through its serial
// bootloader (UBL).
//
// # Overview
//
// A read happens in two steps:
//   - Handshake: the bootloader identifies itself and reports its buffer
//     size, which is the size of every read
//   - Chunked read: flash is read one buffer at a time at increasing flash
//     word addresses (one word is 4 bytes)
//
// The handshake must be the very first thing the radio sees after it has
// been plugged in. If anything talks to the radio first it starts its
// application and the handshake times out.
//
// # Basic Usage
//
//	// Open the port without skipping the bootloader
//	l, err := link.Open(ctx, "/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close()
//
//	r := bootloader.New(l)
//
//	// Read until the bootloader reports the end of the image
//	img, err := r.Backup(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Read Policies
//
// The same engine serves two termination policies:
//
//	// Read until a FAILURE status; the image is a whole number of chunks
//	img, err := r.ReadFirmware(ctx, info, bootloader.UntilEndOfData())
//
//	// Read exactly n bytes; every chunk must succeed
//	img, err := r.ReadFirmware(ctx, info, bootloader.FixedSize(protocol.ImageSize))
//
// # Progress Tracking
//
//	r := bootloader.New(l,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.2f%% - %d bytes\n", p.Phase, p.Percentage, p.BytesRead)
//	    }),
//	)
//
// # Error Handling
//
// All failures end the read; nothing is retried.
//
//	img, err := r.Backup(ctx)
//	var te *bootloader.HandshakeTimeoutError
//	if errors.As(err, &te) {
//	    // Re-plug the adapter or press the bootloader button
//	}
//
// A *ProtocolDesyncError means the bootloader answered with the wrong
// address, a chunk of the wrong size or an unusable buffer size. An
// *UnexpectedStatusError carries any status the read policy does not accept.
package bootloader
