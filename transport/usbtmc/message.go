package usbtmc

import (
	"encoding/binary"
	"fmt"
)

// Bulk message IDs and header layout (USBTMC 1.0, table 2).
const (
	msgDevDepOut     = 1
	msgRequestDevDep = 2
	msgDevDepIn      = 2
	headerSize       = 12
	attrEOM          = 0x01
)

// encodeMsgOut builds a DEV_DEP_MSG_OUT transfer carrying data as one complete
// message (EOM set), padded to a multiple of 4 bytes.
func encodeMsgOut(tag byte, data []byte) []byte {
	size := headerSize + len(data)
	padded := (size + 3) &^ 3

	msg := make([]byte, padded)
	msg[0] = msgDevDepOut
	msg[1] = tag
	msg[2] = ^tag
	binary.LittleEndian.PutUint32(msg[4:8], uint32(len(data)))
	msg[8] = attrEOM
	copy(msg[headerSize:], data)

	return msg
}

// encodeRequestMsgIn builds a REQUEST_DEV_DEP_MSG_IN transfer asking for at most
// maxSize bytes.
func encodeRequestMsgIn(tag byte, maxSize int) []byte {
	msg := make([]byte, headerSize)
	msg[0] = msgRequestDevDep
	msg[1] = tag
	msg[2] = ^tag
	binary.LittleEndian.PutUint32(msg[4:8], uint32(maxSize))

	return msg
}

// decodeMsgIn validates a DEV_DEP_MSG_IN header and returns its transfer size.
func decodeMsgIn(buf []byte, tag byte) (int, error) {
	if len(buf) < headerSize {
		return 0, fmt.Errorf("%w: short header (%d bytes)", ErrProtocol, len(buf))
	}
	if buf[0] != msgDevDepIn {
		return 0, fmt.Errorf("%w: unexpected MsgID %d", ErrProtocol, buf[0])
	}
	if buf[1] != tag || buf[2] != ^tag {
		return 0, fmt.Errorf("%w: bTag mismatch, got %d want %d", ErrProtocol, buf[1], tag)
	}

	return int(binary.LittleEndian.Uint32(buf[4:8])), nil
}
