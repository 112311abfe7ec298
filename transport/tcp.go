package transport

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-scpi/logger"
)

// resetCommands is written to socket instruments right after connecting.
const resetCommands = "*CLS\n*RST\n"

// TCPTransport is a connected stream socket to an instrument.
type TCPTransport struct {
	conn         net.Conn
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       logger.Logger
	closed       atomic.Bool
}

var _ Transport = (*TCPTransport)(nil)

func dialTCP(ctx context.Context, address string, cfg *config) (*TCPTransport, error) {
	addr := normalizeTCPAddr(address)

	dialer := net.Dialer{Timeout: cfg.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, newError("open", KindTCP, addr, err)
	}

	t := newTCPTransport(conn, addr, cfg)
	if cfg.reset {
		if err := t.reset(); err != nil {
			_ = t.Close()
			return nil, err
		}
	}

	t.logger.Debug("transport: tcp connected", "addr", addr, "readTimeout", cfg.readTimeout)

	return t, nil
}

func newTCPTransport(conn net.Conn, addr string, cfg *config) *TCPTransport {
	return &TCPTransport{
		conn:         conn,
		addr:         addr,
		readTimeout:  cfg.readTimeout,
		writeTimeout: cfg.writeTimeout,
		logger:       cfg.logger,
	}
}

// normalizeTCPAddr appends DefaultTCPPort when address carries no port.
func normalizeTCPAddr(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}

	return net.JoinHostPort(address, strconv.Itoa(DefaultTCPPort))
}

// reset sends the clear-status and reset command pair.
func (t *TCPTransport) reset() error {
	if _, err := t.Write([]byte(resetCommands)); err != nil {
		var te *Error
		if errors.As(err, &te) {
			te.Op = "reset"
		}

		return err
	}

	return nil
}

func (t *TCPTransport) Read(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, newError("read", KindTCP, t.addr, ErrClosed)
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return 0, newError("read", KindTCP, t.addr, err)
	}

	n, err := t.conn.Read(p)
	if err != nil {
		return n, newError("read", KindTCP, t.addr, err)
	}

	return n, nil
}

// Write writes all of p; a short write is reported together with its error.
func (t *TCPTransport) Write(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, newError("write", KindTCP, t.addr, ErrClosed)
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return 0, newError("write", KindTCP, t.addr, err)
	}

	n, err := t.conn.Write(p)
	if err != nil {
		return n, newError("write", KindTCP, t.addr, err)
	}

	return n, nil
}

// Close closes the socket. Only the first call releases it; later calls return nil.
func (t *TCPTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := t.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return newError("close", KindTCP, t.addr, err)
	}
	t.logger.Debug("transport: tcp closed", "addr", t.addr)

	return nil
}

func (t *TCPTransport) Kind() Kind { return KindTCP }

func (t *TCPTransport) Addr() string { return t.addr }
