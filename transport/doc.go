// Package transport provides the byte-level links used to reach SCPI instruments.
//
// A Transport moves raw bytes and nothing else: it does not append terminators, does not
// assemble multi-chunk responses and does not understand block framing. Those concerns
// belong to the scpi package.
//
// # Variants
//
//   - TCP socket (KindTCP): a connected stream socket, typically port 5025. The instrument is
//     sent "*CLS" and "*RST" right after connecting, and every read carries a deadline
//     (DefaultReadTimeout) so that a silent instrument fails fast.
//   - Serial port (KindSerial): an RS-232 port opened with go.bug.st/serial.
//   - Bus device (KindBus): an addressed handle owned by a BusDriver passed with
//     WithBusDriver. Package transport/usbtmc provides one for USB Test & Measurement Class
//     instruments; it needs cgo and libusb, so it lives outside this package.
//   - WebSocket (KindWebSocket): a byte bridge through a network gateway.
//
// # Errors
//
// Every I/O failure is reported as *Error, which matches ErrTransport with errors.Is and
// reports timeouts through its Timeout method. A Transport is released exactly once by
// Close; any use after that fails with ErrClosed.
//
// A Transport is not safe for concurrent use. One instrument connection is driven by one
// caller at a time.
package transport
