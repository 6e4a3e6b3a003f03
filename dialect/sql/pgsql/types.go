package pgsql

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/schema/field"
)

// MaxVarcharSize is the largest length accepted by VARCHAR(n). Longer or
// unbounded strings are stored as TEXT.
const MaxVarcharSize = 10485760

// columnTypes maps logical types to column types. String types depend on
// the field size and are resolved by ColumnType.
var columnTypes = map[field.Type]string{
	field.TypeBool:     "BOOLEAN",
	field.TypeInt8:     "SMALLINT",
	field.TypeUint8:    "SMALLINT",
	field.TypeInt16:    "SMALLINT",
	field.TypeUint16:   "INTEGER",
	field.TypeInt32:    "INTEGER",
	field.TypeUint32:   "BIGINT",
	field.TypeInt:      "BIGINT",
	field.TypeInt64:    "BIGINT",
	field.TypeUint64:   "NUMERIC(20,0)",
	field.TypeDecimal:  "NUMERIC",
	field.TypeFloat32:  "REAL",
	field.TypeFloat64:  "DOUBLE PRECISION",
	field.TypeDate:     "DATE",
	field.TypeTime:     "TIMESTAMP WITHOUT TIME ZONE",
	field.TypeTimeTZ:   "TIMESTAMP WITH TIME ZONE",
	field.TypeUUID:     "UUID",
	field.TypeBytes:    "BYTEA",
	field.TypeDuration: "INTERVAL",
	field.TypeJSON:     "JSONB",
}

// ColumnType returns the column type of a field.
func ColumnType(f *field.Descriptor) (string, error) {
	if f.Type == field.TypeString {
		switch {
		case f.Fixed && f.Size > 0:
			return fmt.Sprintf("CHAR(%d)", f.Size), nil
		case f.Size <= 0 || f.Size > MaxVarcharSize:
			return "TEXT", nil
		default:
			return fmt.Sprintf("VARCHAR(%d)", f.Size), nil
		}
	}
	t, ok := columnTypes[f.Type]
	if !ok {
		return "", fmt.Errorf("%w: column type for %s (%s)", pgdal.ErrUnsupported, f.Name, f.Type)
	}
	return t, nil
}

// Value converts v into a value the driver can bind to a column of f.
func Value(f *field.Descriptor, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case field.TypeJSON:
		switch v := v.(type) {
		case []byte, string:
			return v, nil
		case json.RawMessage:
			return []byte(v), nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("pgsql: encode %s: %w", f.Name, err)
		}
		return b, nil
	case field.TypeUint64, field.TypeDecimal:
		switch v := v.(type) {
		case uint64:
			return strconv.FormatUint(v, 10), nil
		case uint:
			return strconv.FormatUint(uint64(v), 10), nil
		case decimal.Decimal:
			return v.String(), nil
		}
	case field.TypeDuration:
		if d, ok := v.(time.Duration); ok {
			return Interval(d), nil
		}
	}
	return v, nil
}

// Interval formats d as an interval literal.
func Interval(d time.Duration) string {
	return strconv.FormatInt(d.Microseconds(), 10) + " microseconds"
}

// literal renders a static column default.
func literal(v any) (string, error) {
	switch v := v.(type) {
	case field.Expr:
		return string(v), nil
	case string:
		return quoteString(v), nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), nil
	case decimal.Decimal:
		return v.String(), nil
	case time.Duration:
		return quoteString(Interval(v)), nil
	case time.Time:
		return quoteString(v.Format(time.RFC3339Nano)), nil
	case fmt.Stringer:
		return quoteString(v.String()), nil
	}
	return "", fmt.Errorf("%w: default value of type %T", pgdal.ErrUnsupported, v)
}
