package transport

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-scpi/logger"
	"go.bug.st/serial"
)

// maxEmptyWrites bounds consecutive (0, nil) writes before giving up with io.ErrShortWrite.
const maxEmptyWrites = 100

// serialPort is the subset of serial.Port used by SerialTransport.
type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Close() error
}

// openSerialPort is replaced in tests.
var openSerialPort = func(path string, mode *serial.Mode) (serialPort, error) {
	return serial.Open(path, mode)
}

// SerialTransport is an RS-232 link to an instrument.
type SerialTransport struct {
	port   serialPort
	path   string
	logger logger.Logger
	closed atomic.Bool
}

var _ Transport = (*SerialTransport)(nil)

func openSerial(path string, baudRate int, cfg *config) (*SerialTransport, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: cfg.dataBits,
		Parity:   toSerialParity(cfg.parity),
		StopBits: toSerialStopBits(cfg.stopBits),
	}

	port, err := openSerialPort(path, mode)
	if err != nil {
		return nil, newError("open", KindSerial, path, err)
	}

	if err := port.SetReadTimeout(cfg.readTimeout); err != nil {
		_ = port.Close()
		return nil, newError("open", KindSerial, path, err)
	}

	t := &SerialTransport{port: port, path: path, logger: cfg.logger}

	// A serial instrument has no reset handshake; only stale input is dropped.
	if cfg.reset {
		if err := port.ResetInputBuffer(); err != nil {
			_ = t.Close()
			return nil, newError("reset", KindSerial, path, err)
		}
	}

	t.logger.Debug("transport: serial opened", "path", path, "baudRate", baudRate)

	return t, nil
}

// Read reads from the port. The serial driver reports an elapsed read timeout as a
// zero-byte read, which is surfaced here as ErrTimeout.
func (t *SerialTransport) Read(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, newError("read", KindSerial, t.path, ErrClosed)
	}
	if len(p) == 0 {
		return 0, nil
	}

	n, err := t.port.Read(p)
	if err != nil {
		return n, newError("read", KindSerial, t.path, err)
	}
	if n == 0 {
		return 0, newError("read", KindSerial, t.path, ErrTimeout)
	}

	return n, nil
}

func (t *SerialTransport) Write(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, newError("write", KindSerial, t.path, ErrClosed)
	}

	written := 0
	empty := 0
	for written < len(p) {
		n, err := t.port.Write(p[written:])
		written += n
		if err != nil {
			return written, newError("write", KindSerial, t.path, err)
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyWrites {
				return written, newError("write", KindSerial, t.path, io.ErrShortWrite)
			}
			continue
		}
		empty = 0
	}

	return written, nil
}

// Close closes the port. Only the first call releases it; later calls return nil.
func (t *SerialTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return newError("close", KindSerial, t.path, err)
	}
	t.logger.Debug("transport: serial closed", "path", t.path)

	return nil
}

func (t *SerialTransport) Kind() Kind { return KindSerial }

func (t *SerialTransport) Addr() string { return t.path }

func toSerialParity(p Parity) serial.Parity {
	switch p {
	case OddParity:
		return serial.OddParity
	case EvenParity:
		return serial.EvenParity
	default:
		return serial.NoParity
	}
}

func toSerialStopBits(s StopBits) serial.StopBits {
	if s == TwoStopBits {
		return serial.TwoStopBits
	}

	return serial.OneStopBit
}
