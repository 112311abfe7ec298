// Package scpi implements the command/response engine used to talk to SCPI instruments.
//
// The package sits on top of any byte stream (normally a transport.Transport) and adds
// the pieces of IEEE 488.2 / SCPI that carry decision logic:
//
// # Line Protocol
//
// Conn appends the line terminator to outgoing commands, accumulates ASCII responses until a
// line-feed arrives, and offers the write-then-read Ask and the operation-complete
// synchronized AskSynchronized. Only query commands (program header ending in '?') are
// accepted by the Ask family; anything else fails with ErrProtocolUsage before a byte is sent.
//
// # Block Framer
//
// ReadExpectedSize and ReadBlock parse definite-length arbitrary blocks:
//
//	#<d><N digits><N payload bytes>\n
//
// The payload is read with remaining-length requests so the framer never consumes bytes that
// belong to the next response. A malformed header or a truncated block fails with ErrFraming;
// the stream is misaligned afterwards and must be reopened.
//
// # Numeric Decoder
//
// DecodeFloats converts a block payload into float32 values for half, single and double
// precision elements in either byte order. HalfToFloat32 widens IEEE 754 binary16 values
// exactly, including signed zeros, subnormals, infinities and NaN payloads.
//
// # Byte-Order Resolver
//
// ResolveByteOrder asks the instrument for its current byte order on every call, using a
// per-device query and little-endian token such as ":format:border?" / "NORM" or
// ":waveform:byteorder?" / "LSBF". ResolveWidth does the same for the data format query.
//
// Conn is not safe for concurrent use. The framer and decoder functions are stateless and may
// be called from multiple goroutines as long as each call owns its reader and payload.
package scpi
