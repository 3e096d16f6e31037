package schema

import "github.com/aqasim81/schema-migrator/internal/operation"

// Varchar is a variable-length string limited to n characters. n <= 0 means unbounded.
func Varchar(n int) operation.Type {
	return operation.Type{Name: operation.TypeVarchar, Length: n}
}

// Char is a fixed-length string of n characters.
func Char(n int) operation.Type { return operation.Type{Name: operation.TypeChar, Length: n} }

// Text is an unbounded string.
func Text() operation.Type { return operation.Type{Name: operation.TypeText} }

// SmallInt is a 16-bit integer.
func SmallInt() operation.Type { return operation.Type{Name: operation.TypeSmallInt} }

// Integer is a 32-bit integer.
func Integer() operation.Type { return operation.Type{Name: operation.TypeInteger} }

// BigInt is a 64-bit integer.
func BigInt() operation.Type { return operation.Type{Name: operation.TypeBigInt} }

// Decimal is an exact numeric with the given precision and scale.
func Decimal(precision, scale int) operation.Type {
	return operation.Type{Name: operation.TypeDecimal, Precision: precision, Scale: scale}
}

// Float is a single-precision floating point number.
func Float() operation.Type { return operation.Type{Name: operation.TypeFloat} }

// Double is a double-precision floating point number.
func Double() operation.Type { return operation.Type{Name: operation.TypeDouble} }

// Boolean is a true/false value.
func Boolean() operation.Type { return operation.Type{Name: operation.TypeBoolean} }

// Date is a calendar date without time of day.
func Date() operation.Type { return operation.Type{Name: operation.TypeDate} }

// Time is a time of day without a date.
func Time() operation.Type { return operation.Type{Name: operation.TypeTime} }

// Timestamp is a date and time without time zone.
func Timestamp() operation.Type { return operation.Type{Name: operation.TypeTimestamp} }

// TimestampTZ is a date and time with time zone.
func TimestampTZ() operation.Type { return operation.Type{Name: operation.TypeTimestampTZ} }

// Blob is a variable-length binary large object.
func Blob() operation.Type { return operation.Type{Name: operation.TypeBlob} }

// JSON is a JSON document.
func JSON() operation.Type { return operation.Type{Name: operation.TypeJSON} }

// JSONB is a binary JSON document. Dialects without one fall back to their JSON type.
func JSONB() operation.Type { return operation.Type{Name: operation.TypeJSONB} }

// UUID is a universally unique identifier.
func UUID() operation.Type { return operation.Type{Name: operation.TypeUUID} }

// Binary is a fixed-length byte string. n <= 0 means the dialect default.
func Binary(n int) operation.Type { return operation.Type{Name: operation.TypeBinary, Length: n} }

// Enum restricts values to the given set.
func Enum(values ...string) operation.Type {
	return operation.Type{Name: operation.TypeEnum, Values: append([]string(nil), values...)}
}

func validateType(t operation.Type) error {
	if !t.Name.Known() {
		return typeError("unknown type %q", t.Name)
	}

	switch t.Name { //nolint:exhaustive // only parameterised types need checks
	case operation.TypeEnum:
		if len(t.Values) == 0 {
			return typeError("enum requires at least one value")
		}
	case operation.TypeDecimal:
		if t.Scale < 0 || (t.Precision > 0 && t.Scale > t.Precision) {
			return typeError("decimal scale %d out of range for precision %d", t.Scale, t.Precision)
		}
	case operation.TypeChar:
		if t.Length <= 0 {
			return typeError("char requires a positive length")
		}
	}

	return nil
}
