// Package nvram restores an NVRAM backup into a running Z-Stack radio.
//
// Network ("nwk") items are created with SYS.OSALNVItemInit and written with
// SYS.OSALNVWrite; extended ("osal") items are written with SYS.NVWrite. A
// failing item is recorded and skipped. The radio is always soft reset at
// the end so the restored values take effect.
package nvram
