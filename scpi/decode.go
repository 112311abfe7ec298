package scpi

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/x448/float16"
)

// Width is the size in bytes of one element of a binary block.
type Width int

const (
	WidthHalf   Width = 2
	WidthSingle Width = 4
	WidthDouble Width = 8
)

// Valid reports whether w is one of the supported element widths.
func (w Width) Valid() bool {
	return w == WidthHalf || w == WidthSingle || w == WidthDouble
}

func (w Width) String() string {
	switch w {
	case WidthHalf:
		return "half"
	case WidthSingle:
		return "single"
	case WidthDouble:
		return "double"
	default:
		return fmt.Sprintf("Width(%d)", int(w))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (w Width) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("%w: unsupported element width %d", ErrDecode, int(w))
	}

	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, accepting the forms of ParseWidth.
func (w *Width) UnmarshalText(text []byte) error {
	v, err := ParseWidth(string(text))
	if err != nil {
		return err
	}
	*w = v

	return nil
}

// ParseWidth parses "half", "single", "double" or a bit count ("16", "32", "64").
func ParseWidth(s string) (Width, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "half", "16", "float16":
		return WidthHalf, nil
	case "single", "32", "float32", "real,32":
		return WidthSingle, nil
	case "double", "64", "float64", "real,64":
		return WidthDouble, nil
	default:
		return 0, fmt.Errorf("%w: unknown element width %q", ErrDecode, s)
	}
}

// ByteOrder is the byte order of binary block elements.
type ByteOrder uint8

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

func (o ByteOrder) String() string {
	switch o {
	case BigEndian:
		return "big-endian"
	case LittleEndian:
		return "little-endian"
	default:
		return fmt.Sprintf("ByteOrder(%d)", uint8(o))
	}
}

func (o ByteOrder) binaryOrder() (binary.ByteOrder, error) {
	switch o {
	case BigEndian:
		return binary.BigEndian, nil
	case LittleEndian:
		return binary.LittleEndian, nil
	default:
		return nil, fmt.Errorf("%w: unknown byte order %d", ErrDecode, uint8(o))
	}
}

// DecodeFloats converts payload into float32 values of the given element width and byte order.
//
// Single and double payloads must be a whole number of elements, otherwise ErrDecode is
// returned; a trailing odd byte in a half payload is ErrFraming. Doubles are narrowed to
// float32, and a finite double outside the float32 range fails with ErrDecode rather than
// becoming an infinity.
func DecodeFloats(payload []byte, order ByteOrder, width Width) ([]float32, error) {
	bo, err := order.binaryOrder()
	if err != nil {
		return nil, err
	}

	switch width {
	case WidthHalf:
		if len(payload)%2 != 0 {
			return nil, fmt.Errorf("%w: half-precision payload has odd length %d", ErrFraming, len(payload))
		}

		out := make([]float32, len(payload)/2)
		for i := range out {
			out[i] = HalfToFloat32(bo.Uint16(payload[i*2:]))
		}

		return out, nil

	case WidthSingle:
		if len(payload)%4 != 0 {
			return nil, fmt.Errorf("%w: payload length %d is not a multiple of 4", ErrDecode, len(payload))
		}

		out := make([]float32, len(payload)/4)
		for i := range out {
			out[i] = math.Float32frombits(bo.Uint32(payload[i*4:]))
		}

		return out, nil

	case WidthDouble:
		if len(payload)%8 != 0 {
			return nil, fmt.Errorf("%w: payload length %d is not a multiple of 8", ErrDecode, len(payload))
		}

		out := make([]float32, len(payload)/8)
		for i := range out {
			d := math.Float64frombits(bo.Uint64(payload[i*8:]))
			f := float32(d)
			if math.IsInf(float64(f), 0) && !math.IsInf(d, 0) {
				return nil, fmt.Errorf("%w: element %d (%g) overflows float32", ErrDecode, i, d)
			}
			out[i] = f
		}

		return out, nil

	default:
		return nil, fmt.Errorf("%w: unsupported element width %d", ErrDecode, int(width))
	}
}

// EncodeFloats encodes values as block elements of the given width and byte order.
//
// Half-precision encoding rounds to nearest even; values outside the binary16 range become
// infinities.
func EncodeFloats(values []float32, order ByteOrder, width Width) ([]byte, error) {
	bo, err := order.binaryOrder()
	if err != nil {
		return nil, err
	}
	if !width.Valid() {
		return nil, fmt.Errorf("%w: unsupported element width %d", ErrDecode, int(width))
	}

	out := make([]byte, len(values)*int(width))
	for i, v := range values {
		b := out[i*int(width):]
		switch width {
		case WidthHalf:
			bo.PutUint16(b, float16.Fromfloat32(v).Bits())
		case WidthSingle:
			bo.PutUint32(b, math.Float32bits(v))
		case WidthDouble:
			bo.PutUint64(b, math.Float64bits(float64(v)))
		}
	}

	return out, nil
}
