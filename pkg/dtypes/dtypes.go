// Package dtypes defines the element types a tensor may carry and their
// in-memory widths. The widest supported scalar is 8 bytes, which is also the
// arena alignment.
package dtypes

import "fmt"

type DataType int

const (
	Invalid DataType = iota
	Float32
	Float64
	Float16
	BFloat16
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Bool
)

// MaxSize is the widest scalar width in bytes.
const MaxSize = 8

// Size returns the width of one element in bytes.
func (d DataType) Size() int64 {
	switch d {
	case Float32, Int32, UInt32:
		return 4
	case Float64, Int64, UInt64:
		return 8
	case Float16, BFloat16, Int16, UInt16:
		return 2
	case Int8, UInt8, Bool:
		return 1
	default:
		panic(fmt.Sprintf("dtypes: Size of invalid data type %d", int(d)))
	}
}

func (d DataType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case UInt8:
		return "uint8"
	case UInt16:
		return "uint16"
	case UInt32:
		return "uint32"
	case UInt64:
		return "uint64"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("invalid(%d)", int(d))
	}
}

// Parse maps a canonical name back to its DataType.
func Parse(s string) (DataType, error) {
	for d := Float32; d <= Bool; d++ {
		if d.String() == s {
			return d, nil
		}
	}
	return Invalid, fmt.Errorf("unknown data type %q", s)
}
