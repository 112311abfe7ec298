package scpi

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/arloliu/go-scpi/transport"
	"github.com/stretchr/testify/require"
)

func TestReadExpectedSize(t *testing.T) {
	tests := []struct {
		header string
		want   int
	}{
		{"#10", 1},
		{"#15", 6},
		{"#3024", 25},
		{"#41097", 1098},
		{"#9000000001", 2},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			s := newScriptedStream(tt.header + "payload")
			n, err := ReadExpectedSize(s)
			require.NoError(t, err)
			require.Equal(t, tt.want, n)
			require.Equal(t, "payload", s.remaining())
		})
	}
}

func TestReadExpectedSize_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing hash", "X3024"},
		{"non-digit count", "#A024"},
		{"indefinite length", "#0abc\n"},
		{"non-decimal size", "#3a24"},
		{"signed size", "#3-24"},
		{"truncated count", "#"},
		{"truncated size", "#41"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadExpectedSize(newScriptedStream(tt.header))
			require.ErrorIs(t, err, ErrFraming)
		})
	}
}

func TestReadBlock(t *testing.T) {
	require := require.New(t)

	payload := bytes.Repeat([]byte{0xde, 0xad, '\n', 0x00}, 6)
	s := newScriptedStream(string(AppendBlock(nil, payload)) + ":next")

	got, err := ReadBlock(s)
	require.NoError(err)
	require.Equal(payload, got)
	require.Equal(":next", s.remaining())
}

func TestReadBlock_RemainingLengthReads(t *testing.T) {
	require := require.New(t)

	// 10 byte payload + LF delivered in pieces, followed by the next response
	s := newScriptedStream("#2", "10", "0123", "456", "789\n+1.0\n")

	got, err := ReadBlock(s)
	require.NoError(err)
	require.Equal("0123456789", string(got))
	require.Equal("+1.0\n", s.remaining())
	// header reads, then 11 bytes requested, then what was still missing
	require.Equal([]int{2, 2, 11, 7, 4}, s.reads)
}

func TestReadBlock_EmptyPayload(t *testing.T) {
	got, err := ReadBlock(newScriptedStream("#10\n"))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestReadBlock_BadTerminator(t *testing.T) {
	_, err := ReadBlock(newScriptedStream("#13abcd"))
	require.ErrorIs(t, err, ErrFraming)
}

func TestReadBlock_Truncated(t *testing.T) {
	_, err := ReadBlock(newScriptedStream("#3024", strings.Repeat("x", 10)))
	require.ErrorIs(t, err, ErrFraming)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadBlock_TransportTimeout(t *testing.T) {
	require := require.New(t)

	s := newScriptedStream("#3024", "abc")
	s.end = &transport.Error{Op: "read", Kind: transport.KindTCP, Err: transport.ErrTimeout}

	_, err := ReadBlock(s)
	require.ErrorIs(err, transport.ErrTransport)
	require.ErrorIs(err, transport.ErrTimeout)
	require.ErrorIs(err, ErrIncomplete)
	require.NotErrorIs(err, ErrFraming)
}

func TestReadBlock_TimeoutBeforeHeader(t *testing.T) {
	require := require.New(t)

	s := newScriptedStream()
	s.end = &transport.Error{Op: "read", Kind: transport.KindTCP, Err: transport.ErrTimeout}

	_, err := ReadBlock(s)
	require.ErrorIs(err, transport.ErrTimeout)
	require.NotErrorIs(err, ErrIncomplete)
	require.NotErrorIs(err, ErrFraming)
}

func TestReadBlock_TimeoutInsideHeader(t *testing.T) {
	s := newScriptedStream("#")
	s.end = &transport.Error{Op: "read", Kind: transport.KindTCP, Err: transport.ErrTimeout}

	_, err := ReadBlock(s)
	require.ErrorIs(t, err, transport.ErrTimeout)
	require.ErrorIs(t, err, ErrIncomplete)
}

func TestReadBlock_NoProgress(t *testing.T) {
	chunks := append([]string{"#11"}, make([]string, maxEmptyReads)...)

	_, err := ReadBlock(newScriptedStream(chunks...))
	require.ErrorIs(t, err, io.ErrNoProgress)
	require.ErrorIs(t, err, ErrIncomplete)
}

func TestReadBlock_Large(t *testing.T) {
	require := require.New(t)

	payload := bytes.Repeat([]byte("0123456789abcdef"), (blockPrealloc/16)*3+1)
	framed := AppendBlock(nil, payload)

	got, err := ReadBlock(bytes.NewReader(framed))
	require.NoError(err)
	require.Equal(payload, got)
}

func TestReadBlock_EveryDigitCount(t *testing.T) {
	for _, size := range []int{0, 1, 9, 10, 99, 100, 1097, 10000, 123456} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			payload := bytes.Repeat([]byte{0x5a}, size)
			framed := AppendBlock(nil, payload)
			require.Equal(t, fmt.Sprintf("#%d%d", len(fmt.Sprint(size)), size), string(framed[:2+len(fmt.Sprint(size))]))

			got, err := ReadBlock(bytes.NewReader(framed))
			require.NoError(t, err)
			require.Equal(t, size, len(got))
		})
	}
}

func TestAppendBlock(t *testing.T) {
	require.Equal(t, "#41097", string(AppendBlock(nil, make([]byte, 1097))[:6]))
	require.Equal(t, "CMD #15hello\n", string(AppendBlock([]byte("CMD "), []byte("hello"))))
	require.Equal(t, "#10\n", string(AppendBlock(nil, nil)))
}
