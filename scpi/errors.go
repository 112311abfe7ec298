package scpi

import "errors"

var (
	// ErrProtocolUsage indicates caller misuse, e.g. a non-query command passed to Ask.
	// It is a programming error and is never worth retrying.
	ErrProtocolUsage = errors.New("scpi: protocol usage error")

	// ErrFraming indicates a malformed block header, a block that ended before its declared
	// size, or an odd-length half-precision payload.
	//
	// The byte stream is no longer aligned after a framing error; close and reopen the connection.
	ErrFraming = errors.New("scpi: framing error")

	// ErrIncomplete wraps a read failure, such as a timeout, that struck after part of a response
	// had been consumed. The rest may still arrive and would be taken as the next response, so
	// the stream is no longer aligned; close and reopen the connection.
	ErrIncomplete = errors.New("scpi: incomplete response")

	// ErrDecode indicates a payload that does not fit the requested element width or byte order.
	ErrDecode = errors.New("scpi: decode error")
)
