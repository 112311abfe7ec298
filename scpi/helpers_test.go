package scpi

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/arloliu/go-scpi/logger"
)

func TestMain(m *testing.M) {
	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logger.InfoLevel
	}
	logger.SetLevel(level)

	os.Exit(m.Run())
}

// scriptedStream replays one chunk per Read, splitting a chunk when p is shorter than it.
// An empty chunk produces a (0, nil) read. Once the chunks are used up Read returns end
// (io.EOF when nil).
type scriptedStream struct {
	chunks  [][]byte
	end     error
	reads   []int
	written bytes.Buffer
}

func newScriptedStream(chunks ...string) *scriptedStream {
	s := &scriptedStream{}
	for _, c := range chunks {
		s.chunks = append(s.chunks, []byte(c))
	}

	return s
}

func (s *scriptedStream) Read(p []byte) (int, error) {
	s.reads = append(s.reads, len(p))
	if len(s.chunks) == 0 {
		if s.end != nil {
			return 0, s.end
		}
		return 0, io.EOF
	}

	c := s.chunks[0]
	n := copy(p, c)
	if n < len(c) {
		s.chunks[0] = c[n:]
	} else {
		s.chunks = s.chunks[1:]
	}

	return n, nil
}

func (s *scriptedStream) Write(p []byte) (int, error) {
	return s.written.Write(p)
}

// remaining returns the bytes not yet read.
func (s *scriptedStream) remaining() string {
	return string(bytes.Join(s.chunks, nil))
}

func newTestConn(t *testing.T, s *scriptedStream, opts ...ConnOption) *Conn {
	t.Helper()

	c, err := NewConn(s, opts...)
	if err != nil {
		t.Fatalf("NewConn: %v", err)
	}

	return c
}
