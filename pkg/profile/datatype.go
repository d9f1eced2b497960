package profile

import (
	"fmt"
	"strings"
)

// DataType is the inferred type of a column.
//
// Types form a lattice ordered by generality:
//
//	Integer < Numeric < Mixed < String
//	Boolean < Mixed
//	Date    < Mixed
//
// A column's type is the join of the types of every non-missing value it
// has seen, so it only ever moves upward within a session.
type DataType uint8

const (
	// TypeNull marks a column without any non-missing value.
	TypeNull DataType = iota
	TypeInteger
	TypeNumeric
	TypeBoolean
	TypeDate
	TypeMixed
	TypeString
)

var dataTypeNames = [...]string{
	TypeNull:    "Null",
	TypeInteger: "Integer",
	TypeNumeric: "Numeric",
	TypeBoolean: "Boolean",
	TypeDate:    "Date",
	TypeMixed:   "Mixed",
	TypeString:  "String",
}

func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}

	return fmt.Sprintf("DataType(%d)", t)
}

// IsNumeric reports whether the type carries numeric statistics.
func (t DataType) IsNumeric() bool {
	return t == TypeInteger || t == TypeNumeric
}

// MarshalText implements encoding.TextMarshaler for JSON and YAML output.
func (t DataType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(b []byte) error {
	for i, name := range dataTypeNames {
		if strings.EqualFold(name, string(b)) {
			*t = DataType(i)

			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrUnknownDataType, b)
}

// Join returns the least general type that covers both a and b.
func Join(a, b DataType) DataType {
	switch {
	case a == b:
		return a
	case a == TypeNull:
		return b
	case b == TypeNull:
		return a
	case a.IsNumeric() && b.IsNumeric():
		return TypeNumeric
	case a == TypeString || b == TypeString:
		return TypeString
	default:
		return TypeMixed
	}
}
