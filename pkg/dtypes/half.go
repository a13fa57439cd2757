package dtypes

import (
	"math"

	"github.com/x448/float16"
)

// EncodeF16 converts a float32 to its IEEE 754 half-precision bit pattern.
func EncodeF16(f float32) uint16 {
	return float16.Fromfloat32(f).Bits()
}

// DecodeF16 converts an IEEE 754 half-precision bit pattern to float32.
func DecodeF16(bits uint16) float32 {
	return float16.Frombits(bits).Float32()
}

// EncodeBF16 converts a float32 to bfloat16, rounding to nearest even.
func EncodeBF16(f float32) uint16 {
	b := math.Float32bits(f)
	if b&0x7fffffff > 0x7f800000 {
		// NaN: keep the payload's top bits, force a quiet NaN
		return uint16(b>>16) | 0x0040
	}
	b += 0x7fff + ((b >> 16) & 1)
	return uint16(b >> 16)
}

// DecodeBF16 converts a bfloat16 bit pattern to float32.
func DecodeBF16(bits uint16) float32 {
	return math.Float32frombits(uint32(bits) << 16)
}
