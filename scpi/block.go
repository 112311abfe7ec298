package scpi

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
)

// blockPrealloc caps the up-front allocation of ReadBlock; larger blocks grow as bytes arrive,
// so a corrupted header cannot force a huge allocation.
const blockPrealloc = 1 << 20

// ReadExpectedSize reads a definite-length block header "#<d><N digits>" from r and returns
// N+1: the declared payload size plus the line-feed that terminates the block.
//
// It reads exactly 2+d bytes. A leader other than '#', a digit count outside 1..9 (including
// the indefinite-length form "#0") or non-decimal size digits fail with ErrFraming.
func ReadExpectedSize(r io.Reader) (int, error) {
	var hdr [2]byte
	if got, err := readFull(r, hdr[:]); err != nil {
		return 0, blockReadError("block header", got > 0, err)
	}

	if hdr[0] != '#' {
		return 0, fmt.Errorf("%w: block header starts with %q, want '#'", ErrFraming, hdr[0])
	}
	if hdr[1] < '1' || hdr[1] > '9' {
		return 0, fmt.Errorf("%w: invalid digit count %q", ErrFraming, hdr[1])
	}

	var digits [9]byte
	size := digits[:hdr[1]-'0']
	if _, err := readFull(r, size); err != nil {
		return 0, blockReadError("block size", true, err)
	}

	for _, b := range size {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("%w: invalid block size %q", ErrFraming, size)
		}
	}

	n, err := strconv.Atoi(string(size))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid block size %q: %w", ErrFraming, size, err)
	}

	return n + 1, nil
}

// ReadBlock reads one definite-length block from r and returns its payload without the
// trailing line-feed.
//
// Each read requests only the bytes still missing, so nothing past the block is consumed.
// A block that ends early or whose final byte is not a line-feed fails with ErrFraming.
// Other read errors, such as transport timeouts, keep their kind; once part of the block has
// been consumed they are also wrapped in ErrIncomplete.
func ReadBlock(r io.Reader) ([]byte, error) {
	expected, err := ReadExpectedSize(r)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, min(expected, blockPrealloc))
	empty := 0
	for len(buf) < expected {
		if len(buf) == cap(buf) {
			buf = slices.Grow(buf, min(expected-len(buf), cap(buf)))
		}

		n, err := r.Read(buf[len(buf):min(cap(buf), expected)])
		buf = buf[:len(buf)+n]
		if err != nil {
			if len(buf) == expected && errors.Is(err, io.EOF) {
				break
			}
			return nil, blockReadError(fmt.Sprintf("block payload (%d of %d bytes)", len(buf), expected), true, err)
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return nil, fmt.Errorf("%w: block payload (%d of %d bytes): %w", ErrIncomplete, len(buf), expected, io.ErrNoProgress)
			}
			continue
		}
		empty = 0
	}

	if buf[expected-1] != '\n' {
		return nil, fmt.Errorf("%w: block terminator is %q, want line-feed", ErrFraming, buf[expected-1])
	}

	return buf[:expected-1], nil
}

// AppendBlock appends payload framed as "#<d><N><payload>\n" to dst.
func AppendBlock(dst, payload []byte) []byte {
	dst = appendBlockHeader(dst, len(payload))
	dst = append(dst, payload...)

	return append(dst, '\n')
}

func appendBlockHeader(dst []byte, size int) []byte {
	n := strconv.Itoa(size)
	dst = append(dst, '#', byte('0'+len(n)))

	return append(dst, n...)
}

// readFull reads exactly len(buf) bytes, tolerating a bounded number of empty reads.
// It returns the number of bytes read even on failure.
func readFull(r io.Reader, buf []byte) (int, error) {
	got := 0
	empty := 0
	for got < len(buf) {
		n, err := r.Read(buf[got:])
		got += n
		if err != nil {
			if got == len(buf) && errors.Is(err, io.EOF) {
				return got, nil
			}
			if got > 0 && errors.Is(err, io.EOF) {
				return got, fmt.Errorf("%w after %d of %d bytes", io.ErrUnexpectedEOF, got, len(buf))
			}
			return got, err
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return got, io.ErrNoProgress
			}
			continue
		}
		empty = 0
	}

	return got, nil
}

// blockReadError classifies a read failure inside a block. An early end of stream means the
// declared size is unreachable and is a framing error. Any other failure after block bytes
// were consumed is wrapped in ErrIncomplete and keeps its own kind.
func blockReadError(what string, consumed bool, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: %w", ErrFraming, what, err)
	}
	if consumed {
		return fmt.Errorf("%w: %s: %w", ErrIncomplete, what, err)
	}

	return fmt.Errorf("scpi: %s: %w", what, err)
}
