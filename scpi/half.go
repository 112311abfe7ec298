package scpi

import "math"

// HalfToFloat32 widens an IEEE 754 binary16 bit pattern to float32.
//
// The conversion is exact for every one of the 65536 patterns.
func HalfToFloat32(h uint16) float32 {
	return math.Float32frombits(HalfBitsToSingleBits(h))
}

// HalfBitsToSingleBits widens a binary16 bit pattern to the binary32 bit pattern of the same value.
//
//   - exponent 0, fraction 0: signed zero
//   - exponent 0, fraction != 0: subnormal, normalized into a binary32 normal number
//   - exponent 31: infinity or NaN, fraction payload kept in the high mantissa bits
//   - otherwise: exponent rebiased by 127-15, fraction shifted left by 13
func HalfBitsToSingleBits(h uint16) uint32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	switch {
	case exp == 0 && frac == 0:
		return sign

	case exp == 0:
		// value is frac * 2^-24; shift until the implicit bit (0x400) appears
		e := int32(1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff

		return sign | uint32(e+112)<<23 | frac<<13

	case exp == 0x1f:
		return sign | 0x7f800000 | frac<<13

	default:
		return sign | (exp+112)<<23 | frac<<13
	}
}
