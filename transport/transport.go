package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind identifies a transport variant.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindTCP
	KindSerial
	KindBus
	KindWebSocket
)

var kindNames = map[Kind]string{
	KindUnknown:   "unknown",
	KindTCP:       "tcp",
	KindSerial:    "serial",
	KindBus:       "bus",
	KindWebSocket: "websocket",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind converts a kind name such as "tcp" or "serial" into a Kind.
// "socket", "gpib", "usbtmc" and "ws" are accepted as aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tcp", "socket":
		return KindTCP, nil
	case "serial":
		return KindSerial, nil
	case "bus", "gpib", "usbtmc":
		return KindBus, nil
	case "websocket", "ws":
		return KindWebSocket, nil
	default:
		return KindUnknown, fmt.Errorf("%w: %q", ErrUnsupportedKind, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so kinds can be read from TOML tables.
func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = kind

	return nil
}

// Transport is a byte-level link to one instrument.
//
// Read blocks until at least one byte is available or the transport's read timeout elapses.
// Callers size p to the number of bytes they still need; a Transport never reads more than
// len(p) bytes from the underlying link.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer

	// Kind returns the transport variant.
	Kind() Kind
	// Addr returns the address the transport was opened with.
	Addr() string
}

// Descriptor selects a transport variant and carries its address.
//
// Address is interpreted per kind:
//   - KindTCP: "host:port" (port defaults to DefaultTCPPort)
//   - KindSerial: device path, e.g. "/dev/ttyUSB0" or "COM3"
//   - KindBus: driver specific, e.g. "0957:1796" for USBTMC
//   - KindWebSocket: "ws://" or "wss://" URL
type Descriptor struct {
	Kind    Kind   `toml:"kind"`
	Address string `toml:"address"`

	// BaudRate is used by KindSerial only; zero selects DefaultBaudRate.
	BaudRate int `toml:"baud_rate"`
}

// Validate checks that the descriptor names a known kind and a non-empty address.
func (d Descriptor) Validate() error {
	if _, ok := kindNames[d.Kind]; !ok || d.Kind == KindUnknown {
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, d.Kind)
	}
	if strings.TrimSpace(d.Address) == "" {
		return fmt.Errorf("transport: %s descriptor has empty address", d.Kind)
	}
	if d.BaudRate < 0 {
		return fmt.Errorf("transport: invalid baud rate %d", d.BaudRate)
	}

	return nil
}

func (d Descriptor) String() string {
	return d.Kind.String() + "://" + d.Address
}

// Open opens the transport described by d.
//
// The returned Transport exclusively owns its underlying handle; the caller must Close it.
func Open(ctx context.Context, d Descriptor, opts ...Option) (Transport, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	var (
		t    Transport
		oerr error
	)

	switch d.Kind {
	case KindTCP:
		t, oerr = asTransport(dialTCP(ctx, d.Address, cfg))
	case KindSerial:
		t, oerr = asTransport(openSerial(d.Address, d.BaudRate, cfg))
	case KindBus:
		t, oerr = asTransport(openBus(ctx, d.Address, cfg))
	case KindWebSocket:
		t, oerr = asTransport(dialWebSocket(ctx, d.Address, cfg))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, d.Kind)
	}

	return t, oerr
}

// asTransport keeps a failed open from returning a typed nil inside a non-nil interface.
func asTransport[T Transport](t T, err error) (Transport, error) {
	if err != nil {
		return nil, err
	}

	return t, nil
}

var (
	// ErrTransport is matched by every *Error.
	ErrTransport = errors.New("transport: I/O error")

	// ErrClosed indicates the transport has already been closed.
	ErrClosed = errors.New("transport: closed")

	// ErrTimeout indicates a read or write did not complete within the transport timeout.
	ErrTimeout = errors.New("transport: timeout")

	// ErrUnsupportedKind indicates a descriptor with an unknown transport kind.
	ErrUnsupportedKind = errors.New("transport: unsupported kind")

	// ErrBroken indicates a transport that cannot be used again after an earlier failure,
	// such as a WebSocket whose read deadline expired. Close it and open a new one.
	ErrBroken = errors.New("transport: connection broken, reopen required")

	// ErrNoBusDriver indicates a bus transport was requested without a driver.
	ErrNoBusDriver = errors.New("transport: no bus driver configured")
)

// Error records a failed transport operation.
type Error struct {
	Op   string // "open", "read", "write", "reset" or "close"
	Kind Kind
	Addr string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s %s: %v", e.Kind, e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransport, so that every transport failure can be
// recognized without knowing its cause.
func (e *Error) Is(target error) bool { return target == ErrTransport }

// Timeout reports whether the operation failed because a deadline elapsed.
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, ErrTimeout) {
		return true
	}

	var te interface{ Timeout() bool }
	if errors.As(e.Err, &te) {
		return te.Timeout()
	}

	return false
}

func newError(op string, kind Kind, addr string, err error) error {
	if err == nil {
		return nil
	}

	var te *Error
	if errors.As(err, &te) {
		return err
	}

	return &Error{Op: op, Kind: kind, Addr: addr, Err: err}
}
