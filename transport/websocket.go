package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-scpi/logger"
	"github.com/gorilla/websocket"
)

// WebSocketTransport is a byte bridge to an instrument behind a WebSocket gateway.
//
// Each received message is buffered and handed out across as many reads as needed.
//
// A failed read, a timeout included, leaves the underlying WebSocket unusable. The error
// then matches ErrBroken, and every later Read or Write fails with ErrBroken until Close.
type WebSocketTransport struct {
	conn         *websocket.Conn
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	msgType      int
	logger       logger.Logger

	buf    []byte
	offset int
	broken error
	closed atomic.Bool
}

var _ Transport = (*WebSocketTransport)(nil)

func dialWebSocket(ctx context.Context, rawURL string, cfg *config) (*WebSocketTransport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, newError("open", KindWebSocket, rawURL, fmt.Errorf("invalid URL: %w", err))
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, newError("open", KindWebSocket, rawURL,
			fmt.Errorf("unsupported URL scheme %q (use ws:// or wss://)", u.Scheme))
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.dialTimeout}
	if u.Scheme == "wss" && cfg.wsInsecure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.dialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(dialCtx, rawURL, cfg.wsHeader)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("handshake failed (HTTP %d): %w", resp.StatusCode, err)
		}

		return nil, newError("open", KindWebSocket, rawURL, err)
	}

	t := &WebSocketTransport{
		conn:         conn,
		addr:         rawURL,
		readTimeout:  cfg.readTimeout,
		writeTimeout: cfg.writeTimeout,
		msgType:      websocket.BinaryMessage,
		logger:       cfg.logger,
	}
	if cfg.wsText {
		t.msgType = websocket.TextMessage
	}

	t.logger.Debug("transport: websocket connected", "url", rawURL)

	return t, nil
}

func (t *WebSocketTransport) Read(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, newError("read", KindWebSocket, t.addr, ErrClosed)
	}

	if t.offset < len(t.buf) {
		n := copy(p, t.buf[t.offset:])
		t.offset += n

		return n, nil
	}
	if t.broken != nil {
		return 0, t.brokenError("read")
	}

	if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return 0, newError("read", KindWebSocket, t.addr, err)
	}

	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			t.broken = err
			t.logger.Debug("transport: websocket read failed, connection broken", "url", t.addr, "error", err)

			return 0, t.brokenError("read")
		}

		if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
			continue
		}
		if len(data) == 0 {
			continue
		}

		t.buf = data
		n := copy(p, t.buf)
		t.offset = n

		return n, nil
	}
}

func (t *WebSocketTransport) Write(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, newError("write", KindWebSocket, t.addr, ErrClosed)
	}
	if t.broken != nil {
		return 0, t.brokenError("write")
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return 0, newError("write", KindWebSocket, t.addr, err)
	}
	if err := t.conn.WriteMessage(t.msgType, p); err != nil {
		return 0, newError("write", KindWebSocket, t.addr, err)
	}

	return len(p), nil
}

// Close sends a close frame and closes the connection. Only the first call releases it.
func (t *WebSocketTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := t.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil &&
		!errors.Is(err, websocket.ErrCloseSent) {
		t.logger.Debug("transport: websocket close frame failed", "url", t.addr, "error", err)
	}

	if err := t.conn.Close(); err != nil {
		return newError("close", KindWebSocket, t.addr, err)
	}
	t.logger.Debug("transport: websocket closed", "url", t.addr)

	return nil
}

func (t *WebSocketTransport) brokenError(op string) error {
	return &Error{Op: op, Kind: KindWebSocket, Addr: t.addr, Err: fmt.Errorf("%w: %w", ErrBroken, t.broken)}
}

func (t *WebSocketTransport) Kind() Kind { return KindWebSocket }

func (t *WebSocketTransport) Addr() string { return t.addr }
