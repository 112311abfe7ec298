package instrument

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-scpi/scpi"
)

var (
	// ErrMisaligned is returned by every I/O call after a framing error, an interrupted
	// response or a broken transport, until the client is reopened.
	// It matches scpi.ErrFraming.
	ErrMisaligned = fmt.Errorf("%w: instrument: connection misaligned, reopen required", scpi.ErrFraming)

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("instrument: client closed")

	// ErrInvalidProfile indicates a profile that fails validation.
	ErrInvalidProfile = errors.New("instrument: invalid profile")
)
