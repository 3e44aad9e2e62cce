package schema

import (
	"fmt"
	"strings"
)

// A DataType is the type tag of a property.
type DataType uint8

// List of property types.
const (
	TypeInvalid DataType = iota
	TypeString
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeDecimal
	TypeBool
	TypeTime
	TypeDate
	TypeUUID
	TypeLink
	TypeMultilink
	TypeStruct
	TypeArray
	endTypes
)

var typeNames = [...]string{
	TypeInvalid:   "invalid",
	TypeString:    "string",
	TypeInt16:     "int16",
	TypeInt32:     "int",
	TypeInt64:     "bigint",
	TypeFloat32:   "float",
	TypeFloat64:   "real",
	TypeDecimal:   "decimal",
	TypeBool:      "bool",
	TypeTime:      "datetime",
	TypeDate:      "date",
	TypeUUID:      "uuid",
	TypeLink:      "link",
	TypeMultilink: "multilink",
	TypeStruct:    "struct",
	TypeArray:     "array",
}

// typeAliases are accepted by ParseDataType in addition to the tags.
var typeAliases = map[string]DataType{
	"integer":   TypeInt32,
	"int32":     TypeInt32,
	"int64":     TypeInt64,
	"double":    TypeFloat64,
	"float64":   TypeFloat64,
	"float32":   TypeFloat32,
	"boolean":   TypeBool,
	"timestamp": TypeTime,
	"time":      TypeTime,
	"text":      TypeString,
}

// String returns the type tag.
func (t DataType) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the given type is a known type.
func (t DataType) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// IsScalar reports if the type is stored as a single scalar field.
func (t DataType) IsScalar() bool {
	return t >= TypeString && t <= TypeUUID
}

// IsLink reports if the type is a single-valued link.
func (t DataType) IsLink() bool { return t == TypeLink }

// IsMultilink reports if the type is a multi-valued reverse link.
func (t DataType) IsMultilink() bool { return t == TypeMultilink }

// IsOpaque reports if the type is a structure or an array. Opaque values
// are stored in a single field and never traversed by key chains.
func (t DataType) IsOpaque() bool {
	return t == TypeStruct || t == TypeArray
}

// IsNumeric reports if the type holds numbers.
func (t DataType) IsNumeric() bool {
	return t >= TypeInt16 && t <= TypeDecimal
}

// IsTemporal reports if the type holds a point in time.
func (t DataType) IsTemporal() bool {
	return t == TypeTime || t == TypeDate
}

// MarshalText implements encoding.TextMarshaler.
func (t DataType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("schema: invalid data type %d", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(text []byte) error {
	v, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseDataType returns the type for the given tag or alias.
func ParseDataType(s string) (DataType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t := TypeString; t < endTypes; t++ {
		if typeNames[t] == s {
			return t, nil
		}
	}
	if t, ok := typeAliases[s]; ok {
		return t, nil
	}
	return TypeInvalid, fmt.Errorf("schema: unknown data type %q", s)
}
