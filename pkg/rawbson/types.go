package rawbson

// Type is the one-byte element type tag. The tag fixes the payload layout
// of the bytes that follow the element key.
type Type byte

const (
	TypeDouble          Type = 0x01
	TypeString          Type = 0x02
	TypeDocument        Type = 0x03
	TypeArray           Type = 0x04
	TypeBinary          Type = 0x05
	TypeUndefined       Type = 0x06
	TypeObjectID        Type = 0x07
	TypeBoolean         Type = 0x08
	TypeDateTime        Type = 0x09
	TypeNull            Type = 0x0A
	TypeRegex           Type = 0x0B
	TypeDBPointer       Type = 0x0C
	TypeJavaScript      Type = 0x0D
	TypeSymbol          Type = 0x0E
	TypeCodeWithScope   Type = 0x0F
	TypeInt32           Type = 0x10
	TypeTimestamp       Type = 0x11
	TypeInt64           Type = 0x12
	TypeDecimal128      Type = 0x13
	TypeMinKey          Type = 0xFF
	TypeMaxKey          Type = 0x7F
	typeEndOfDocument   Type = 0x00
)

// Binary subtypes. Subtype 0x02 carries a redundant inner length field and
// is treated specially by the iterator.
const (
	SubtypeGeneric     byte = 0x00
	SubtypeFunction    byte = 0x01
	SubtypeBinaryOld   byte = 0x02
	SubtypeUUIDOld     byte = 0x03
	SubtypeUUID        byte = 0x04
	SubtypeMD5         byte = 0x05
	SubtypeEncrypted   byte = 0x06
	SubtypeColumn      byte = 0x07
	SubtypeSensitive   byte = 0x08
	SubtypeUserDefined byte = 0x80
)

func (t Type) String() string {
	switch t {
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeDocument:
		return "document"
	case TypeArray:
		return "array"
	case TypeBinary:
		return "binary"
	case TypeUndefined:
		return "undefined"
	case TypeObjectID:
		return "objectId"
	case TypeBoolean:
		return "boolean"
	case TypeDateTime:
		return "dateTime"
	case TypeNull:
		return "null"
	case TypeRegex:
		return "regex"
	case TypeDBPointer:
		return "dbPointer"
	case TypeJavaScript:
		return "javascript"
	case TypeSymbol:
		return "symbol"
	case TypeCodeWithScope:
		return "javascriptWithScope"
	case TypeInt32:
		return "int32"
	case TypeTimestamp:
		return "timestamp"
	case TypeInt64:
		return "int64"
	case TypeDecimal128:
		return "decimal128"
	case TypeMinKey:
		return "minKey"
	case TypeMaxKey:
		return "maxKey"
	default:
		return "invalid"
	}
}

// valid reports whether t is a recognized element tag.
func (t Type) valid() bool {
	switch {
	case t >= TypeDouble && t <= TypeDecimal128:
		return true
	case t == TypeMinKey || t == TypeMaxKey:
		return true
	default:
		return false
	}
}
