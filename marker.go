package bson

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rawbytedev/bson/pkg/rawbson"
)

// Marker names recognized in document position. A document whose keys
// include one of these is an escape hatch for a non-document value; the
// registry below is the single source of truth for the names, their
// recognition order and their field shapes.
const (
	MarkerObjectID      = "$oid"
	MarkerSymbol        = "$symbol"
	MarkerRegex         = "$regularExpression"
	MarkerInt32         = "$numberInt"
	MarkerInt64         = "$numberLong"
	MarkerDouble        = "$numberDouble"
	MarkerBinary        = "$binary"
	MarkerUUID          = "$uuid"
	MarkerCode          = "$code"
	MarkerScope         = "$scope"
	MarkerTimestamp     = "$timestamp"
	MarkerDate          = "$date"
	MarkerMinKey        = "$minKey"
	MarkerMaxKey        = "$maxKey"
	MarkerDBPointer     = "$dbPointer"
	MarkerDecimal128    = "$numberDecimal"
	MarkerUndefined     = "$undefined"
	MarkerRef           = "$ref"
	MarkerID            = "$id"
)

type markerParser func(d *Document) (any, error)

// markerOrder fixes the recognition priority. The first name found among
// a document's keys selects the parser; any remaining keys must then be
// exactly the ones that marker's shape allows.
var markerOrder = []string{
	MarkerObjectID,
	MarkerSymbol,
	MarkerRegex,
	MarkerInt32,
	MarkerInt64,
	MarkerDouble,
	MarkerBinary,
	MarkerUUID,
	MarkerCode,
	MarkerTimestamp,
	MarkerDate,
	MarkerMinKey,
	MarkerMaxKey,
	MarkerDBPointer,
	MarkerDecimal128,
	MarkerUndefined,
}

var markerTable = map[string]markerParser{
	MarkerObjectID:   parseMarkerObjectID,
	MarkerSymbol:     parseMarkerSymbol,
	MarkerRegex:      parseMarkerRegex,
	MarkerInt32:      parseMarkerInt32,
	MarkerInt64:      parseMarkerInt64,
	MarkerDouble:     parseMarkerDouble,
	MarkerBinary:     parseMarkerBinary,
	MarkerUUID:       parseMarkerUUID,
	MarkerCode:       parseMarkerCode,
	MarkerTimestamp:  parseMarkerTimestamp,
	MarkerDate:       parseMarkerDate,
	MarkerMinKey:     parseMarkerMinKey,
	MarkerMaxKey:     parseMarkerMaxKey,
	MarkerDBPointer:  parseMarkerDBPointer,
	MarkerDecimal128: parseMarkerDecimal128,
	MarkerUndefined:  parseMarkerUndefined,
}

func hasMarkerKey(keys []string) bool {
	for _, k := range keys {
		if _, ok := markerTable[k]; ok {
			return true
		}
	}
	return false
}

// ParseMarkerDocument applies the marker registry to a document. It
// returns the lowered value and true on a match, (nil, false, nil) when
// the document is an ordinary one, and an error when a marker name is
// present but the surrounding shape is wrong.
func ParseMarkerDocument(d *Document) (any, bool, error) {
	return parseMarkerDoc(d)
}

// parseMarkerDoc inspects a document for a recognized marker name. It
// returns the lowered value and true on a match, (nil, false, nil) when
// the document is an ordinary one, and an error when a marker name is
// present but the surrounding shape is wrong.
func parseMarkerDoc(d *Document) (any, bool, error) {
	for _, name := range markerOrder {
		if !d.Has(name) {
			continue
		}
		v, err := markerTable[name](d)
		if err != nil {
			return nil, true, err
		}
		return v, true, nil
	}
	return nil, false, nil
}

func markerShapeErr(name, detail string) error {
	return fmt.Errorf("bson: malformed %s: %s", name, detail)
}

// onlyFields verifies the document's key set is exactly the given names.
func onlyFields(d *Document, name string, fields ...string) error {
	if d.Len() != len(fields) {
		return markerShapeErr(name, fmt.Sprintf("expected %d field(s), found %d", len(fields), d.Len()))
	}
	for _, f := range fields {
		if !d.Has(f) {
			return markerShapeErr(name, fmt.Sprintf("missing field %s", f))
		}
	}
	return nil
}

func markerString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case Symbol:
		return string(s), true
	case JavaScript:
		return string(s), true
	default:
		return "", false
	}
}

func markerDoc(v any) (*Document, bool) {
	switch dv := v.(type) {
	case *Document:
		return dv, true
	case map[string]any:
		d := NewDocument()
		for _, k := range sortedKeys(dv) {
			d.Set(k, dv[k])
		}
		return d, true
	default:
		return nil, false
	}
}

func markerInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case DateTime:
		return int64(n), true
	default:
		return 0, false
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func decodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func parseMarkerObjectID(d *Document) (any, error) {
	if err := onlyFields(d, MarkerObjectID, MarkerObjectID); err != nil {
		return nil, err
	}
	s, ok := markerString(mustGet(d, MarkerObjectID))
	if !ok {
		return nil, markerShapeErr(MarkerObjectID, "value is not a string")
	}
	oid, err := ObjectIDFromHex(s)
	if err != nil {
		return nil, markerShapeErr(MarkerObjectID, err.Error())
	}
	return oid, nil
}

func parseMarkerSymbol(d *Document) (any, error) {
	if err := onlyFields(d, MarkerSymbol, MarkerSymbol); err != nil {
		return nil, err
	}
	s, ok := markerString(mustGet(d, MarkerSymbol))
	if !ok {
		return nil, markerShapeErr(MarkerSymbol, "value is not a string")
	}
	return Symbol(s), nil
}

func parseMarkerRegex(d *Document) (any, error) {
	if err := onlyFields(d, MarkerRegex, MarkerRegex); err != nil {
		return nil, err
	}
	inner, ok := markerDoc(mustGet(d, MarkerRegex))
	if !ok {
		return nil, markerShapeErr(MarkerRegex, "value is not a document")
	}
	if err := onlyFields(inner, MarkerRegex, "pattern", "options"); err != nil {
		return nil, err
	}
	pattern, ok := markerString(mustGet(inner, "pattern"))
	if !ok {
		return nil, markerShapeErr(MarkerRegex, "pattern is not a string")
	}
	options, ok := markerString(mustGet(inner, "options"))
	if !ok {
		return nil, markerShapeErr(MarkerRegex, "options is not a string")
	}
	return Regex{Pattern: pattern, Options: options}, nil
}

func parseMarkerInt32(d *Document) (any, error) {
	if err := onlyFields(d, MarkerInt32, MarkerInt32); err != nil {
		return nil, err
	}
	s, ok := markerString(mustGet(d, MarkerInt32))
	if !ok {
		return nil, markerShapeErr(MarkerInt32, "value is not a string")
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, markerShapeErr(MarkerInt32, err.Error())
	}
	return int32(n), nil
}

func parseMarkerInt64(d *Document) (any, error) {
	if err := onlyFields(d, MarkerInt64, MarkerInt64); err != nil {
		return nil, err
	}
	s, ok := markerString(mustGet(d, MarkerInt64))
	if !ok {
		return nil, markerShapeErr(MarkerInt64, "value is not a string")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, markerShapeErr(MarkerInt64, err.Error())
	}
	return n, nil
}

func parseMarkerDouble(d *Document) (any, error) {
	if err := onlyFields(d, MarkerDouble, MarkerDouble); err != nil {
		return nil, err
	}
	s, ok := markerString(mustGet(d, MarkerDouble))
	if !ok {
		return nil, markerShapeErr(MarkerDouble, "value is not a string")
	}
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, markerShapeErr(MarkerDouble, err.Error())
	}
	return f, nil
}

func parseMarkerBinary(d *Document) (any, error) {
	if err := onlyFields(d, MarkerBinary, MarkerBinary); err != nil {
		return nil, err
	}
	inner, ok := markerDoc(mustGet(d, MarkerBinary))
	if !ok {
		return nil, markerShapeErr(MarkerBinary, "value is not a document")
	}
	if err := onlyFields(inner, MarkerBinary, "base64", "subType"); err != nil {
		return nil, err
	}
	b64, ok := markerString(mustGet(inner, "base64"))
	if !ok {
		return nil, markerShapeErr(MarkerBinary, "base64 is not a string")
	}
	data, err := decodeBase64(b64)
	if err != nil {
		return nil, markerShapeErr(MarkerBinary, err.Error())
	}
	sub, err := markerSubtype(mustGet(inner, "subType"))
	if err != nil {
		return nil, err
	}
	return Binary{Subtype: sub, Data: data}, nil
}

func markerSubtype(v any) (byte, error) {
	switch s := v.(type) {
	case string:
		n, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return 0, markerShapeErr(MarkerBinary, "subType is not a hex byte")
		}
		return byte(n), nil
	default:
		n, ok := markerInt(v)
		if !ok || n < 0 || n > 0xFF {
			return 0, markerShapeErr(MarkerBinary, "subType is not a byte")
		}
		return byte(n), nil
	}
}

func parseMarkerUUID(d *Document) (any, error) {
	if err := onlyFields(d, MarkerUUID, MarkerUUID); err != nil {
		return nil, err
	}
	s, ok := markerString(mustGet(d, MarkerUUID))
	if !ok {
		return nil, markerShapeErr(MarkerUUID, "value is not a string")
	}
	stripped := strings.ReplaceAll(s, "-", "")
	if len(s) != 36 || len(stripped) != 32 {
		return nil, markerShapeErr(MarkerUUID, "value is not a hyphenated uuid")
	}
	data, err := hex.DecodeString(stripped)
	if err != nil {
		return nil, markerShapeErr(MarkerUUID, err.Error())
	}
	return Binary{Subtype: rawbson.SubtypeUUID, Data: data}, nil
}

func parseMarkerCode(d *Document) (any, error) {
	code, ok := markerString(mustGet(d, MarkerCode))
	if !ok {
		return nil, markerShapeErr(MarkerCode, "value is not a string")
	}
	if d.Len() == 1 {
		return JavaScript(code), nil
	}
	if err := onlyFields(d, MarkerCode, MarkerCode, MarkerScope); err != nil {
		return nil, err
	}
	scope, ok := markerDoc(mustGet(d, MarkerScope))
	if !ok {
		return nil, markerShapeErr(MarkerCode, "$scope is not a document")
	}
	return CodeWithScope{Code: code, Scope: scope}, nil
}

func parseMarkerTimestamp(d *Document) (any, error) {
	if err := onlyFields(d, MarkerTimestamp, MarkerTimestamp); err != nil {
		return nil, err
	}
	inner, ok := markerDoc(mustGet(d, MarkerTimestamp))
	if !ok {
		return nil, markerShapeErr(MarkerTimestamp, "value is not a document")
	}
	if err := onlyFields(inner, MarkerTimestamp, "t", "i"); err != nil {
		return nil, err
	}
	t, ok := markerInt(mustGet(inner, "t"))
	if !ok || t < 0 || t > math.MaxUint32 {
		return nil, markerShapeErr(MarkerTimestamp, "t is not a uint32")
	}
	i, ok := markerInt(mustGet(inner, "i"))
	if !ok || i < 0 || i > math.MaxUint32 {
		return nil, markerShapeErr(MarkerTimestamp, "i is not a uint32")
	}
	return Timestamp{T: uint32(t), I: uint32(i)}, nil
}

func parseMarkerDate(d *Document) (any, error) {
	if err := onlyFields(d, MarkerDate, MarkerDate); err != nil {
		return nil, err
	}
	v := mustGet(d, MarkerDate)
	if s, ok := markerString(v); ok {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, markerShapeErr(MarkerDate, err.Error())
		}
		return NewDateTimeFromTime(t), nil
	}
	if inner, ok := markerDoc(v); ok {
		nested, err := parseMarkerInt64(inner)
		if err != nil {
			return nil, markerShapeErr(MarkerDate, "value is not a datetime")
		}
		return DateTime(nested.(int64)), nil
	}
	if t, ok := v.(time.Time); ok {
		return NewDateTimeFromTime(t), nil
	}
	n, ok := markerInt(v)
	if !ok {
		return nil, markerShapeErr(MarkerDate, "value is not a datetime")
	}
	return DateTime(n), nil
}

func parseMarkerMinKey(d *Document) (any, error) {
	if err := onlyFields(d, MarkerMinKey, MarkerMinKey); err != nil {
		return nil, err
	}
	if n, ok := markerInt(mustGet(d, MarkerMinKey)); !ok || n != 1 {
		return nil, markerShapeErr(MarkerMinKey, "value is not 1")
	}
	return MinKey{}, nil
}

func parseMarkerMaxKey(d *Document) (any, error) {
	if err := onlyFields(d, MarkerMaxKey, MarkerMaxKey); err != nil {
		return nil, err
	}
	if n, ok := markerInt(mustGet(d, MarkerMaxKey)); !ok || n != 1 {
		return nil, markerShapeErr(MarkerMaxKey, "value is not 1")
	}
	return MaxKey{}, nil
}

func parseMarkerDBPointer(d *Document) (any, error) {
	if err := onlyFields(d, MarkerDBPointer, MarkerDBPointer); err != nil {
		return nil, err
	}
	inner, ok := markerDoc(mustGet(d, MarkerDBPointer))
	if !ok {
		return nil, markerShapeErr(MarkerDBPointer, "value is not a document")
	}
	if err := onlyFields(inner, MarkerDBPointer, MarkerRef, MarkerID); err != nil {
		return nil, err
	}
	ns, ok := markerString(mustGet(inner, MarkerRef))
	if !ok {
		return nil, markerShapeErr(MarkerDBPointer, "$ref is not a string")
	}
	var oid ObjectID
	switch idv := mustGet(inner, MarkerID).(type) {
	case ObjectID:
		oid = idv
	default:
		idDoc, ok := markerDoc(idv)
		if !ok {
			return nil, markerShapeErr(MarkerDBPointer, "$id is not an object id")
		}
		parsed, err := parseMarkerObjectID(idDoc)
		if err != nil {
			return nil, err
		}
		oid = parsed.(ObjectID)
	}
	return DBPointer{Namespace: ns, ID: oid}, nil
}

func parseMarkerDecimal128(d *Document) (any, error) {
	if err := onlyFields(d, MarkerDecimal128, MarkerDecimal128); err != nil {
		return nil, err
	}
	s, ok := markerString(mustGet(d, MarkerDecimal128))
	if !ok {
		return nil, markerShapeErr(MarkerDecimal128, "value is not a string")
	}
	dec, err := ParseDecimal128(s)
	if err != nil {
		return nil, markerShapeErr(MarkerDecimal128, err.Error())
	}
	return dec, nil
}

func parseMarkerUndefined(d *Document) (any, error) {
	if err := onlyFields(d, MarkerUndefined, MarkerUndefined); err != nil {
		return nil, err
	}
	if b, ok := mustGet(d, MarkerUndefined).(bool); !ok || !b {
		return nil, markerShapeErr(MarkerUndefined, "value is not true")
	}
	return Undefined{}, nil
}

func mustGet(d *Document, key string) any {
	v, _ := d.Get(key)
	return v
}
