package dtypes

import "fmt"

// CastKind identifies a source/target type pair for the Cast operator.
type CastKind int

const (
	CastFloatToFloat16 CastKind = iota
	CastFloatToBFloat16
	CastFloatToInt64
	CastFloatToInt32
	CastFloatToInt16
	CastFloatToInt8
	CastFloatToFloat
	CastFloat16ToFloat
	CastBFloat16ToFloat
	CastInt32ToFloat
	CastInt32ToInt8
	CastInt32ToInt16
	CastInt32ToInt64
	CastInt16ToFloat
	CastInt16ToInt32
	CastInt8ToFloat
	CastInt8ToInt16
	CastInt8ToInt32
	CastInt64ToInt32
	CastInt64ToUInt32
	CastInt64ToFloat
	CastUInt8ToFloat
	CastUInt8ToInt32
	CastUInt8ToInt64
	CastUInt32ToInt64
)

// Target returns the output data type produced by the cast.
func (c CastKind) Target() DataType {
	switch c {
	case CastFloatToFloat16:
		return Float16
	case CastFloatToBFloat16:
		return BFloat16
	case CastFloatToInt64:
		return Int64
	case CastFloatToInt32:
		return Int32
	case CastFloatToInt16:
		return Int16
	case CastFloatToInt8:
		return Int8
	case CastFloatToFloat, CastFloat16ToFloat, CastBFloat16ToFloat,
		CastInt32ToFloat, CastInt16ToFloat, CastInt8ToFloat,
		CastInt64ToFloat, CastUInt8ToFloat:
		return Float32
	case CastInt32ToInt8:
		return Int8
	case CastInt32ToInt16:
		return Int16
	case CastInt32ToInt64, CastUInt8ToInt64, CastUInt32ToInt64:
		return Int64
	case CastInt16ToInt32, CastInt8ToInt32, CastInt64ToInt32, CastUInt8ToInt32:
		return Int32
	case CastInt8ToInt16:
		return Int16
	case CastInt64ToUInt32:
		return UInt32
	default:
		panic(fmt.Sprintf("dtypes: unknown cast kind %d", int(c)))
	}
}
