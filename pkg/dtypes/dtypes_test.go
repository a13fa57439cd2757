package dtypes

import (
	"math"
	"testing"
)

func TestSize(t *testing.T) {
	grid := []struct {
		dtype DataType
		want  int64
	}{
		{dtype: Float32, want: 4},
		{dtype: Float64, want: 8},
		{dtype: Float16, want: 2},
		{dtype: BFloat16, want: 2},
		{dtype: Int8, want: 1},
		{dtype: Int64, want: 8},
		{dtype: UInt16, want: 2},
		{dtype: Bool, want: 1},
	}
	for _, g := range grid {
		if got := g.dtype.Size(); got != g.want {
			t.Errorf("Size(%s) = %d, want %d", g.dtype, got, g.want)
		}
	}
}

func TestSizeNeverExceedsMaxSize(t *testing.T) {
	for d := Float32; d <= Bool; d++ {
		if d.Size() > MaxSize {
			t.Errorf("Size(%s) = %d exceeds MaxSize %d", d, d.Size(), MaxSize)
		}
	}
}

func TestSizeOfInvalidPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Size of invalid data type did not panic")
		}
	}()
	Invalid.Size()
}

func TestParseRoundTrip(t *testing.T) {
	for d := Float32; d <= Bool; d++ {
		got, err := Parse(d.String())
		if err != nil {
			t.Errorf("Parse(%q): %v", d.String(), err)
			continue
		}
		if got != d {
			t.Errorf("Parse(%q) = %v, want %v", d.String(), got, d)
		}
	}
	if _, err := Parse("float128"); err == nil {
		t.Error("Parse of unknown name did not fail")
	}
}

func TestCastTargets(t *testing.T) {
	grid := []struct {
		kind CastKind
		want DataType
	}{
		{kind: CastFloatToFloat16, want: Float16},
		{kind: CastFloatToBFloat16, want: BFloat16},
		{kind: CastFloatToFloat, want: Float32},
		{kind: CastFloat16ToFloat, want: Float32},
		{kind: CastBFloat16ToFloat, want: Float32},
		{kind: CastInt32ToInt8, want: Int8},
		{kind: CastInt8ToInt16, want: Int16},
		{kind: CastInt64ToUInt32, want: UInt32},
		{kind: CastUInt32ToInt64, want: Int64},
	}
	for _, g := range grid {
		if got := g.kind.Target(); got != g.want {
			t.Errorf("Target(%d) = %s, want %s", int(g.kind), got, g.want)
		}
	}
}

func TestF16RoundTrip(t *testing.T) {
	values := []float32{0, 1, -1, 0.5, 2048, -0.25, 65504}
	for _, v := range values {
		if got := DecodeF16(EncodeF16(v)); got != v {
			t.Errorf("f16 round trip of %v = %v", v, got)
		}
	}
}

func TestF16EncodeKnownBits(t *testing.T) {
	grid := []struct {
		value float32
		want  uint16
	}{
		{value: 0, want: 0x0000},
		{value: 1, want: 0x3c00},
		{value: -2, want: 0xc000},
		{value: 65504, want: 0x7bff},
	}
	for _, g := range grid {
		if got := EncodeF16(g.value); got != g.want {
			t.Errorf("EncodeF16(%v) = %#04x, want %#04x", g.value, got, g.want)
		}
	}
}

func TestBF16RoundTrip(t *testing.T) {
	// bfloat16 keeps float32's exponent, so powers of two survive exactly
	values := []float32{0, 1, -1, 0.5, 1.5, 256, -1024}
	for _, v := range values {
		if got := DecodeBF16(EncodeBF16(v)); got != v {
			t.Errorf("bf16 round trip of %v = %v", v, got)
		}
	}
}

func TestBF16Rounding(t *testing.T) {
	// 1 + 2^-9 is halfway between two bfloat16 values; round to nearest even
	// lands back on 1.
	v := float32(1) + float32(math.Pow(2, -9))
	if got := DecodeBF16(EncodeBF16(v)); got != 1 {
		t.Errorf("EncodeBF16(%v) rounded to %v, want 1", v, got)
	}
}

func TestBF16NaN(t *testing.T) {
	bits := EncodeBF16(float32(math.NaN()))
	if got := DecodeBF16(bits); !math.IsNaN(float64(got)) {
		t.Errorf("bf16 NaN decoded to %v", got)
	}
}
