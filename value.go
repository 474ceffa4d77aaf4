package bson

import (
	"bytes"
	"math"
)

// typeName names a materialized value for error messages, using the same
// vocabulary as the wire type table.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case float64:
		return "double"
	case string:
		return "string"
	case *Document:
		return "document"
	case *Array:
		return "array"
	case Binary:
		return "binary"
	case ObjectID:
		return "objectId"
	case bool:
		return "boolean"
	case DateTime:
		return "dateTime"
	case Regex:
		return "regex"
	case DBPointer:
		return "dbPointer"
	case JavaScript:
		return "javascript"
	case Symbol:
		return "symbol"
	case CodeWithScope:
		return "javascriptWithScope"
	case int32:
		return "int32"
	case Timestamp:
		return "timestamp"
	case int64:
		return "int64"
	case Decimal128:
		return "decimal128"
	case MinKey:
		return "minKey"
	case MaxKey:
		return "maxKey"
	case Undefined:
		return "undefined"
	default:
		return "unsupported"
	}
}

// valueEqual reports deep structural equality between two materialized
// values. NaN doubles compare equal so round trips of every representable
// tree are reflexive.
func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case *Document:
		bv, ok := b.(*Document)
		return ok && av.Equal(bv)
	case *Array:
		bv, ok := b.(*Array)
		return ok && av.Equal(bv)
	case Binary:
		bv, ok := b.(Binary)
		return ok && av.Subtype == bv.Subtype && bytes.Equal(av.Data, bv.Data)
	case CodeWithScope:
		bv, ok := b.(CodeWithScope)
		return ok && av.Code == bv.Code && av.Scope.Equal(bv.Scope)
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		if math.IsNaN(av) && math.IsNaN(bv) {
			return true
		}
		return av == bv
	default:
		return a == b
	}
}
