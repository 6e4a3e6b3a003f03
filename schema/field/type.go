package field

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the logical type of a field, independent of any dialect.
type Type uint8

// Logical field types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeDecimal
	TypeFloat32
	TypeFloat64
	TypeDate
	TypeTime
	TypeTimeTZ
	TypeUUID
	TypeBytes
	TypeString
	TypeDuration
	TypeJSON
	endTypes
)

var typeNames = [...]string{
	TypeInvalid:  "invalid",
	TypeBool:     "bool",
	TypeInt8:     "int8",
	TypeInt16:    "int16",
	TypeInt32:    "int32",
	TypeInt:      "int",
	TypeInt64:    "int64",
	TypeUint8:    "uint8",
	TypeUint16:   "uint16",
	TypeUint32:   "uint32",
	TypeUint64:   "uint64",
	TypeDecimal:  "decimal",
	TypeFloat32:  "float32",
	TypeFloat64:  "float64",
	TypeDate:     "date",
	TypeTime:     "time",
	TypeTimeTZ:   "timetz",
	TypeUUID:     "uuid",
	TypeBytes:    "bytes",
	TypeString:   "string",
	TypeDuration: "duration",
	TypeJSON:     "json",
}

// String returns the string representation of a type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the given type is a known logical type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t >= TypeInt8 && t <= TypeFloat64
}

// ParseType returns the logical type for its string representation.
func ParseType(s string) (Type, bool) {
	for t, name := range typeNames {
		if name == s && Type(t) != TypeInvalid {
			return Type(t), true
		}
	}
	return TypeInvalid, false
}

var (
	uuidType     = reflect.TypeOf(uuid.UUID{})
	decimalType  = reflect.TypeOf(decimal.Decimal{})
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	rawJSONType  = reflect.TypeOf(json.RawMessage{})
)

// TypeOf infers the logical type of a Go value. Pointers are dereferenced
// and nil values report TypeInvalid.
func TypeOf(v any) Type {
	if v == nil {
		return TypeInvalid
	}
	rt := reflect.TypeOf(v)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	switch rt {
	case uuidType:
		return TypeUUID
	case decimalType:
		return TypeDecimal
	case timeType:
		return TypeTime
	case durationType:
		return TypeDuration
	case rawJSONType:
		return TypeJSON
	}
	switch rt.Kind() {
	case reflect.Bool:
		return TypeBool
	case reflect.Int8:
		return TypeInt8
	case reflect.Int16:
		return TypeInt16
	case reflect.Int32:
		return TypeInt32
	case reflect.Int:
		return TypeInt
	case reflect.Int64:
		return TypeInt64
	case reflect.Uint8:
		return TypeUint8
	case reflect.Uint16:
		return TypeUint16
	case reflect.Uint32:
		return TypeUint32
	case reflect.Uint, reflect.Uint64:
		return TypeUint64
	case reflect.Float32:
		return TypeFloat32
	case reflect.Float64:
		return TypeFloat64
	case reflect.String:
		return TypeString
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return TypeBytes
		}
		return TypeJSON
	case reflect.Map, reflect.Struct:
		return TypeJSON
	}
	return TypeInvalid
}
