package scpi

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestHalfBitsToSingleBits_AllPatterns(t *testing.T) {
	for i := 0; i <= math.MaxUint16; i++ {
		h := uint16(i)
		got := HalfBitsToSingleBits(h)

		exp := (h >> 10) & 0x1f
		frac := h & 0x3ff
		if exp == 0x1f && frac != 0 {
			// NaN: payload lands in the high mantissa bits unchanged, quiet bit included
			want := uint32(h>>15)<<31 | 0x7f800000 | uint32(frac)<<13
			if got != want {
				t.Fatalf("NaN 0x%04x: got 0x%08x, want 0x%08x", h, got, want)
			}
			if !math.IsNaN(float64(math.Float32frombits(got))) {
				t.Fatalf("NaN 0x%04x widened to non-NaN 0x%08x", h, got)
			}
			continue
		}

		want := math.Float32bits(float16.Frombits(h).Float32())
		if got != want {
			t.Fatalf("half 0x%04x: got 0x%08x, want 0x%08x", h, got, want)
		}
	}
}

func TestHalfToFloat32_MatchesArithmetic(t *testing.T) {
	for i := 0; i <= math.MaxUint16; i++ {
		h := uint16(i)
		exp := int((h >> 10) & 0x1f)
		if exp == 0x1f {
			continue
		}

		frac := float64(h & 0x3ff)
		var v float64
		if exp == 0 {
			v = math.Ldexp(frac, -24)
		} else {
			v = math.Ldexp(1+frac/1024, exp-15)
		}
		if h&0x8000 != 0 {
			v = -v
		}

		if got := HalfToFloat32(h); float64(got) != v {
			t.Fatalf("half 0x%04x: got %g, want %g", h, got, v)
		}
	}
}

func TestHalfToFloat32_SpecialValues(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint32(0x00000000), math.Float32bits(HalfToFloat32(0x0000)), "+0")
	assert.Equal(uint32(0x80000000), math.Float32bits(HalfToFloat32(0x8000)), "-0")
	assert.True(math.Signbit(float64(HalfToFloat32(0x8000))))
	assert.Equal(float32(1), HalfToFloat32(0x3c00))
	assert.Equal(float32(-2), HalfToFloat32(0xc000))
	assert.Equal(float32(65504), HalfToFloat32(0x7bff), "max half")
	assert.Equal(float32(math.Ldexp(1, -14)), HalfToFloat32(0x0400), "min normal")
	assert.Equal(float32(math.Ldexp(1, -24)), HalfToFloat32(0x0001), "min subnormal")
	assert.Equal(float32(math.Ldexp(1023, -24)), HalfToFloat32(0x03ff), "max subnormal")
	assert.True(math.IsInf(float64(HalfToFloat32(0x7c00)), 1))
	assert.True(math.IsInf(float64(HalfToFloat32(0xfc00)), -1))
	assert.Equal(uint32(0x7fc00000), HalfBitsToSingleBits(0x7e00), "quiet NaN")
	assert.Equal(uint32(0x7f802000), HalfBitsToSingleBits(0x7c01), "signaling NaN payload kept")
}

func TestDecodeFloats_Single(t *testing.T) {
	require := require.New(t)

	values := []float32{0, 1.5, -2.25, float32(math.Inf(1)), math.MaxFloat32, math.SmallestNonzeroFloat32}
	for _, order := range []ByteOrder{BigEndian, LittleEndian} {
		payload, err := EncodeFloats(values, order, WidthSingle)
		require.NoError(err)
		require.Len(payload, 24)

		got, err := DecodeFloats(payload, order, WidthSingle)
		require.NoError(err)
		require.Equal(values, got)
	}

	be := []byte{0x3f, 0xc0, 0x00, 0x00}
	got, err := DecodeFloats(be, BigEndian, WidthSingle)
	require.NoError(err)
	require.Equal([]float32{1.5}, got)

	got, err = DecodeFloats([]byte{0x00, 0x00, 0xc0, 0x3f}, LittleEndian, WidthSingle)
	require.NoError(err)
	require.Equal([]float32{1.5}, got)
}

func TestDecodeFloats_SingleBitExact(t *testing.T) {
	patterns := []uint32{
		0x00000000, 0x80000000, // signed zeros
		0x7f800000, 0xff800000, // infinities
		0x7fc00000, 0xffc00000, // NaN, zero payload
		0x00000001, 0x807fffff, // subnormals
		0x3f800000, 0x7f7fffff,
	}

	for _, order := range []ByteOrder{BigEndian, LittleEndian} {
		bo, err := order.binaryOrder()
		require.NoError(t, err)

		payload := make([]byte, 4*len(patterns))
		for i, p := range patterns {
			bo.PutUint32(payload[i*4:], p)
		}

		got, err := DecodeFloats(payload, order, WidthSingle)
		require.NoError(t, err)
		for i, p := range patterns {
			require.Equal(t, p, math.Float32bits(got[i]), "%s pattern 0x%08x", order, p)
		}
	}
}

func TestDecodeFloats_Double(t *testing.T) {
	require := require.New(t)

	doubles := []float64{0.1, -1e30, math.Inf(-1)}
	payload := make([]byte, 8*len(doubles))
	want := make([]float32, len(doubles))
	for i, d := range doubles {
		binary.BigEndian.PutUint64(payload[i*8:], math.Float64bits(d))
		want[i] = float32(d)
	}

	got, err := DecodeFloats(payload, BigEndian, WidthDouble)
	require.NoError(err)
	require.Equal(want, got)

	nan := make([]byte, 8)
	binary.LittleEndian.PutUint64(nan, math.Float64bits(math.NaN()))
	got, err = DecodeFloats(nan, LittleEndian, WidthDouble)
	require.NoError(err)
	require.True(math.IsNaN(float64(got[0])))
}

func TestDecodeFloats_DoubleOverflow(t *testing.T) {
	payload := make([]byte, 16)
	binary.LittleEndian.PutUint64(payload[0:], math.Float64bits(1))
	binary.LittleEndian.PutUint64(payload[8:], math.Float64bits(1e300))

	_, err := DecodeFloats(payload, LittleEndian, WidthDouble)
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecodeFloats_Half(t *testing.T) {
	require := require.New(t)

	got, err := DecodeFloats([]byte{0x3c, 0x00, 0x80, 0x00, 0x7c, 0x00}, BigEndian, WidthHalf)
	require.NoError(err)
	require.Len(got, 3)
	require.Equal(float32(1), got[0])
	require.Equal(uint32(0x80000000), math.Float32bits(got[1]))
	require.True(math.IsInf(float64(got[2]), 1))

	got, err = DecodeFloats([]byte{0x00, 0x3c, 0x00, 0xc0}, LittleEndian, WidthHalf)
	require.NoError(err)
	require.Equal([]float32{1, -2}, got)
}

func TestDecodeFloats_LengthErrors(t *testing.T) {
	_, err := DecodeFloats(make([]byte, 5), BigEndian, WidthHalf)
	require.ErrorIs(t, err, ErrFraming)

	_, err = DecodeFloats(make([]byte, 6), BigEndian, WidthSingle)
	require.ErrorIs(t, err, ErrDecode)

	_, err = DecodeFloats(make([]byte, 12), LittleEndian, WidthDouble)
	require.ErrorIs(t, err, ErrDecode)

	_, err = DecodeFloats(make([]byte, 12), BigEndian, Width(3))
	require.ErrorIs(t, err, ErrDecode)

	_, err = DecodeFloats(make([]byte, 4), ByteOrder(7), WidthSingle)
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecodeFloats_Empty(t *testing.T) {
	for _, w := range []Width{WidthHalf, WidthSingle, WidthDouble} {
		got, err := DecodeFloats(nil, BigEndian, w)
		require.NoError(t, err)
		require.Empty(t, got)
	}
}

func TestEncodeFloats(t *testing.T) {
	require := require.New(t)

	b, err := EncodeFloats([]float32{1, -2}, BigEndian, WidthHalf)
	require.NoError(err)
	require.Equal([]byte{0x3c, 0x00, 0xc0, 0x00}, b)

	b, err = EncodeFloats([]float32{1.5}, LittleEndian, WidthDouble)
	require.NoError(err)
	require.Equal(math.Float64bits(1.5), binary.LittleEndian.Uint64(b))

	_, err = EncodeFloats([]float32{1}, BigEndian, Width(16))
	require.ErrorIs(err, ErrDecode)
}

func TestWidth(t *testing.T) {
	require := require.New(t)

	require.True(WidthHalf.Valid())
	require.False(Width(0).Valid())
	require.Equal("single", WidthSingle.String())
	require.Equal("Width(3)", Width(3).String())

	for in, want := range map[string]Width{"half": WidthHalf, "32": WidthSingle, "REAL,64": WidthDouble, " Double ": WidthDouble} {
		w, err := ParseWidth(in)
		require.NoError(err)
		require.Equal(want, w)
	}
	_, err := ParseWidth("quad")
	require.ErrorIs(err, ErrDecode)

	text, err := WidthHalf.MarshalText()
	require.NoError(err)
	require.Equal("half", string(text))
	_, err = Width(3).MarshalText()
	require.ErrorIs(err, ErrDecode)

	var w Width
	require.NoError(w.UnmarshalText([]byte("float64")))
	require.Equal(WidthDouble, w)
	require.Error(w.UnmarshalText([]byte("8")))
}

func TestByteOrderString(t *testing.T) {
	require.Equal(t, "big-endian", BigEndian.String())
	require.Equal(t, "little-endian", LittleEndian.String())
	require.Equal(t, "ByteOrder(9)", ByteOrder(9).String())
}
