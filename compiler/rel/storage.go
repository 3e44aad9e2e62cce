package rel

import (
	"fmt"

	"github.com/syssam/relmap/schema"
)

// MaxVarcharLen is the longest bounded string stored as varchar.
const MaxVarcharLen = 255

// DefaultStorageType returns the built-in storage type of a property.
// Links and multilinks have no storage type of their own.
func DefaultStorageType(p *schema.PropDef) string {
	switch p.Type {
	case schema.TypeString:
		switch {
		case p.MaxLen <= 0:
			return "varchar"
		case p.MaxLen <= MaxVarcharLen:
			return fmt.Sprintf("varchar(%d)", p.MaxLen)
		default:
			return fmt.Sprintf("text(%d)", p.MaxLen)
		}
	case schema.TypeInt16:
		return "smallint"
	case schema.TypeInt32:
		return "integer"
	case schema.TypeInt64:
		return "bigint"
	case schema.TypeFloat32:
		return "real"
	case schema.TypeFloat64:
		return "double precision"
	case schema.TypeDecimal:
		if p.Precision > 0 {
			return fmt.Sprintf("decimal(%d,%d)", p.Precision, p.Scale)
		}
		return "decimal"
	case schema.TypeBool:
		return "smallint"
	case schema.TypeTime:
		return "timestamp"
	case schema.TypeDate:
		return "date"
	case schema.TypeUUID:
		return "char(36)"
	case schema.TypeStruct, schema.TypeArray:
		return "text"
	default:
		return ""
	}
}

// storageType resolves the storage type of a stored property: explicit
// hint, then the hints hook, then the built-in default.
func storageType(h *Hints, ph *PropHints, p *schema.PropDef) string {
	if ph != nil && ph.Type != "" {
		return ph.Type
	}
	if h != nil && h.StorageType != nil {
		if t := h.StorageType(p.Type, p); t != "" {
			return t
		}
	}
	return DefaultStorageType(p)
}
