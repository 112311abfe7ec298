// Package instrument provides a generic SCPI instrument client.
//
// Every instrument is described by a Profile: how to reach it (a transport.Descriptor) and the
// few device-specific command strings the protocol engine needs, such as the byte-order query
// and its little-endian token. There is no per-model type; a Client is the same code for every
// instrument, parameterized by its Profile.
//
// # Lifecycle
//
// Open connects to the instrument and Close releases the transport exactly once. With wraps both
// so the connection is released on every exit path:
//
//	err := instrument.With(ctx, profile, func(c *instrument.Client) error {
//		samples, err := c.AskBinaryFloats(":trace:data? trace1")
//		...
//	})
//
// # Misalignment
//
// A framing error leaves the byte stream in an unknown position, and so does a timeout that
// strikes after part of a response was read (scpi.ErrIncomplete), since the rest may still
// arrive. After either, the Client refuses all further I/O with ErrMisaligned until it is
// closed and a new one is opened. A timeout before any response byte leaves it usable,
// unless the transport itself reports transport.ErrBroken.
//
// A Client is not safe for concurrent use; see package bench for driving many instruments at once.
package instrument
