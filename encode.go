package bson

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rawbytedev/bson/internal/common"
	"github.com/rawbytedev/bson/pkg/rawbson"
)

// Options controls codec behaviour.
type Options struct {
	// UTF8Lossy replaces invalid UTF-8 sequences with U+FFFD during
	// materialization instead of rejecting the document.
	UTF8Lossy bool
}

// Codec is a reusable encode/decode engine. The zero value is ready to
// use; a single codec is safe for concurrent use since the only mutable
// state is the guarded struct-plan cache.
type Codec struct {
	Opts Options

	mu   sync.RWMutex
	plan map[reflect.Type][]structField
}

// NewCodec returns a codec with the given options.
func NewCodec(opts Options) *Codec {
	return &Codec{Opts: opts}
}

var defaultCodec = NewCodec(Options{})

type structField struct {
	idx       []int
	name      string
	omitEmpty bool
}

// getPlan resolves the encoded field list of a struct type once and caches
// it. Anonymous embedded structs are flattened, unexported and "-" fields
// are skipped.
func (c *Codec) getPlan(t reflect.Type) []structField {
	c.mu.RLock()
	if plan, ok := c.plan[t]; ok {
		c.mu.RUnlock()
		return plan
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if plan, ok := c.plan[t]; ok {
		return plan
	}
	if c.plan == nil {
		c.plan = make(map[reflect.Type][]structField)
	}
	plan := buildPlan(t, nil)
	c.plan[t] = plan
	return plan
}

func buildPlan(t reflect.Type, prefix []int) []structField {
	var plan []structField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" && !sf.Anonymous {
			continue
		}
		tag := sf.Tag.Get("bson")
		if tag == "-" {
			continue
		}
		name, opts, _ := cutTag(tag)
		if sf.Anonymous && name == "" && sf.Type.Kind() == reflect.Struct {
			plan = append(plan, buildPlan(sf.Type, append(append([]int{}, prefix...), i))...)
			continue
		}
		if name == "" {
			name = sf.Name
		}
		plan = append(plan, structField{
			idx:       append(append([]int{}, prefix...), i),
			name:      name,
			omitEmpty: opts == "omitempty",
		})
	}
	return plan
}

func cutTag(tag string) (name, opts string, found bool) {
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			return tag[:i], tag[i+1:], true
		}
	}
	return tag, "", false
}

// encodeDocument lowers any value that has a document shape. This is the
// generic seam: arbitrary host values arrive here without the codec
// knowing their types in advance.
func (c *Codec) encodeDocument(w docWriter, v any) error {
	switch dv := v.(type) {
	case *Document:
		if dv == nil {
			return fmt.Errorf("bson: cannot encode nil as a document")
		}
		if err := w.BeginDocument(); err != nil {
			return err
		}
		for _, k := range dv.keys {
			if err := c.encodeElement(w, k, dv.values[k]); err != nil {
				return err
			}
		}
		return w.EndDocument()
	case Document:
		return c.encodeDocument(w, &dv)
	case rawbson.RawDocument:
		if _, err := rawbson.NewDocument(dv.Bytes()); err != nil {
			return err
		}
		return w.WriteBytes(dv.Bytes())
	case *rawbson.DocumentBuf:
		return w.WriteBytes(dv.Bytes())
	case map[string]any:
		return c.encodeMap(w, reflect.ValueOf(dv))
	case *Array, Array, rawbson.RawArray, *rawbson.ArrayBuf, rawbson.RawValue:
		// Value shapes, not document shapes. The reflect fallback would
		// see only unexported fields and emit an empty document.
		return fmt.Errorf("bson: cannot encode %T as a document", v)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return fmt.Errorf("bson: cannot encode nil as a document")
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		return c.encodeMap(w, rv)
	case reflect.Struct:
		return c.encodeStruct(w, rv)
	default:
		return fmt.Errorf("bson: cannot encode %T as a document", v)
	}
}

// encodeMap lowers a string-keyed map in document position, with keys in
// sorted order so both encode strategies observe an identical walk. A map
// whose keys carry a registered marker name stands for a non-document
// value and cannot be a document itself.
func (c *Codec) encodeMap(w docWriter, rv reflect.Value) error {
	keys, err := mapKeys(rv)
	if err != nil {
		return err
	}
	if hasMarkerKey(keys) {
		v, ok, err := c.lowerMarkerMap(rv, keys)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("bson: marker %s cannot appear at document position", typeName(v))
		}
	}
	if err := w.BeginDocument(); err != nil {
		return err
	}
	for _, k := range keys {
		if err := c.encodeElement(w, k, rv.MapIndex(reflect.ValueOf(k)).Interface()); err != nil {
			return err
		}
	}
	return w.EndDocument()
}

// encodeMapElement lowers a map in element position. Marker-shaped maps
// are routed through the registry first, since they stand for values of a
// different wire type than document.
func (c *Codec) encodeMapElement(w docWriter, key string, rv reflect.Value) error {
	keys, err := mapKeys(rv)
	if err != nil {
		return err
	}
	if hasMarkerKey(keys) {
		v, ok, err := c.lowerMarkerMap(rv, keys)
		if err != nil {
			return err
		}
		if ok {
			return c.encodeElement(w, key, v)
		}
	}
	if err := writeHeader(w, rawbson.TypeDocument, key); err != nil {
		return err
	}
	if err := w.BeginDocument(); err != nil {
		return err
	}
	for _, k := range keys {
		if err := c.encodeElement(w, k, rv.MapIndex(reflect.ValueOf(k)).Interface()); err != nil {
			return err
		}
	}
	return w.EndDocument()
}

func mapKeys(rv reflect.Value) ([]string, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: map key type %s is not a string", ErrInvalidKey, rv.Type().Key())
	}
	keys := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		keys = append(keys, iter.Key().String())
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *Codec) lowerMarkerMap(rv reflect.Value, keys []string) (any, bool, error) {
	doc := NewDocument()
	for _, k := range keys {
		doc.Set(k, rv.MapIndex(reflect.ValueOf(k)).Interface())
	}
	return parseMarkerDoc(doc)
}

func (c *Codec) encodeStruct(w docWriter, rv reflect.Value) error {
	if rv.Type() == reflect.TypeOf(time.Time{}) {
		return fmt.Errorf("bson: time.Time cannot appear at document position")
	}
	if err := w.BeginDocument(); err != nil {
		return err
	}
	for _, f := range c.getPlan(rv.Type()) {
		fv := rv.FieldByIndex(f.idx)
		if f.omitEmpty && fv.IsZero() {
			continue
		}
		if err := c.encodeElement(w, f.name, fv.Interface()); err != nil {
			return err
		}
	}
	return w.EndDocument()
}

// encodeArray lowers a slice or array value as a document whose keys are
// the decimal indexes in ascending order.
func (c *Codec) encodeArray(w docWriter, rv reflect.Value) error {
	if err := w.BeginDocument(); err != nil {
		return err
	}
	for i := 0; i < rv.Len(); i++ {
		if err := c.encodeElement(w, strconv.Itoa(i), rv.Index(i).Interface()); err != nil {
			return err
		}
	}
	return w.EndDocument()
}

func writeHeader(w docWriter, tag rawbson.Type, key string) error {
	if common.HasNull(key) {
		return fmt.Errorf("%w: %q contains an embedded null byte", ErrInvalidKey, key)
	}
	if err := w.WriteByte(byte(tag)); err != nil {
		return err
	}
	return w.WriteCString(key)
}

// encodeElement writes one key/value pair. The concrete wire types are
// handled directly; everything else falls through to reflection, which is
// how arbitrary user-defined structures are lowered without the codec
// knowing about them.
func (c *Codec) encodeElement(w docWriter, key string, v any) error {
	switch val := v.(type) {
	case nil:
		return writeHeader(w, rawbson.TypeNull, key)
	case float64:
		if err := writeHeader(w, rawbson.TypeDouble, key); err != nil {
			return err
		}
		return w.WriteDouble(val)
	case float32:
		return c.encodeElement(w, key, float64(val))
	case string:
		if err := writeHeader(w, rawbson.TypeString, key); err != nil {
			return err
		}
		return w.WriteString(val)
	case CString:
		return c.encodeElement(w, key, string(val))
	case bool:
		if err := writeHeader(w, rawbson.TypeBoolean, key); err != nil {
			return err
		}
		if val {
			return w.WriteByte(1)
		}
		return w.WriteByte(0)
	case int32:
		if err := writeHeader(w, rawbson.TypeInt32, key); err != nil {
			return err
		}
		return w.WriteInt32(val)
	case int64:
		if err := writeHeader(w, rawbson.TypeInt64, key); err != nil {
			return err
		}
		return w.WriteInt64(val)
	case int:
		if val >= math.MinInt32 && val <= math.MaxInt32 {
			return c.encodeElement(w, key, int32(val))
		}
		return c.encodeElement(w, key, int64(val))
	case int8:
		return c.encodeElement(w, key, int32(val))
	case int16:
		return c.encodeElement(w, key, int32(val))
	case uint8:
		return c.encodeElement(w, key, int32(val))
	case uint16:
		return c.encodeElement(w, key, int32(val))
	case uint32:
		return c.encodeElement(w, key, int64(val))
	case uint64:
		if val > math.MaxInt64 {
			return fmt.Errorf("%w: %d does not fit in an int64", ErrIntRange, val)
		}
		return c.encodeElement(w, key, int64(val))
	case uint:
		return c.encodeElement(w, key, uint64(val))
	case DateTime:
		if err := writeHeader(w, rawbson.TypeDateTime, key); err != nil {
			return err
		}
		return w.WriteInt64(int64(val))
	case time.Time:
		return c.encodeElement(w, key, NewDateTimeFromTime(val))
	case ObjectID:
		if err := writeHeader(w, rawbson.TypeObjectID, key); err != nil {
			return err
		}
		return w.WriteBytes(val[:])
	case Binary:
		return c.encodeBinary(w, key, val)
	case []byte:
		return c.encodeBinary(w, key, Binary{Subtype: rawbson.SubtypeGeneric, Data: val})
	case Regex:
		if common.HasNull(val.Pattern) || common.HasNull(val.Options) {
			return fmt.Errorf("%w: regex under key %q contains an embedded null byte", ErrInvalidKey, key)
		}
		if err := writeHeader(w, rawbson.TypeRegex, key); err != nil {
			return err
		}
		if err := w.WriteCString(val.Pattern); err != nil {
			return err
		}
		return w.WriteCString(sortOptions(val.Options))
	case Timestamp:
		if err := writeHeader(w, rawbson.TypeTimestamp, key); err != nil {
			return err
		}
		if err := w.WriteInt32(int32(val.I)); err != nil {
			return err
		}
		return w.WriteInt32(int32(val.T))
	case Decimal128:
		if err := writeHeader(w, rawbson.TypeDecimal128, key); err != nil {
			return err
		}
		b := val.Bytes()
		return w.WriteBytes(b[:])
	case JavaScript:
		if err := writeHeader(w, rawbson.TypeJavaScript, key); err != nil {
			return err
		}
		return w.WriteString(string(val))
	case Symbol:
		if err := writeHeader(w, rawbson.TypeSymbol, key); err != nil {
			return err
		}
		return w.WriteString(string(val))
	case CodeWithScope:
		return c.encodeCodeWithScope(w, key, val)
	case DBPointer:
		if err := writeHeader(w, rawbson.TypeDBPointer, key); err != nil {
			return err
		}
		if err := w.WriteString(val.Namespace); err != nil {
			return err
		}
		return w.WriteBytes(val.ID[:])
	case MinKey:
		return writeHeader(w, rawbson.TypeMinKey, key)
	case MaxKey:
		return writeHeader(w, rawbson.TypeMaxKey, key)
	case Undefined:
		return writeHeader(w, rawbson.TypeUndefined, key)
	case *Document:
		if val == nil {
			return writeHeader(w, rawbson.TypeNull, key)
		}
		if err := writeHeader(w, rawbson.TypeDocument, key); err != nil {
			return err
		}
		return c.encodeDocument(w, val)
	case *Array:
		if val == nil {
			return writeHeader(w, rawbson.TypeNull, key)
		}
		if err := writeHeader(w, rawbson.TypeArray, key); err != nil {
			return err
		}
		return c.encodeArray(w, reflect.ValueOf(val.values))
	case rawbson.RawValue:
		if err := writeHeader(w, val.Type, key); err != nil {
			return err
		}
		return w.WriteBytes(val.Data)
	case rawbson.RawDocument:
		if err := writeHeader(w, rawbson.TypeDocument, key); err != nil {
			return err
		}
		return w.WriteBytes(val.Bytes())
	case rawbson.RawArray:
		if err := writeHeader(w, rawbson.TypeArray, key); err != nil {
			return err
		}
		return w.WriteBytes(val.Bytes())
	case *rawbson.DocumentBuf:
		if err := writeHeader(w, rawbson.TypeDocument, key); err != nil {
			return err
		}
		return w.WriteBytes(val.Bytes())
	case *rawbson.ArrayBuf:
		if err := writeHeader(w, rawbson.TypeArray, key); err != nil {
			return err
		}
		return w.WriteBytes(val.Bytes())
	}
	return c.encodeReflect(w, key, reflect.ValueOf(v))
}

// encodeReflect lowers values the type switch does not know: named scalar
// types, arbitrary maps, slices and structs.
func (c *Codec) encodeReflect(w docWriter, key string, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return writeHeader(w, rawbson.TypeNull, key)
		}
		return c.encodeElement(w, key, rv.Elem().Interface())
	case reflect.Map:
		return c.encodeMapElement(w, key, rv)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return c.encodeElement(w, key, rv.Bytes())
		}
		if err := writeHeader(w, rawbson.TypeArray, key); err != nil {
			return err
		}
		return c.encodeArray(w, rv)
	case reflect.Array:
		if err := writeHeader(w, rawbson.TypeArray, key); err != nil {
			return err
		}
		return c.encodeArray(w, rv)
	case reflect.Struct:
		if rv.Type() == reflect.TypeOf(time.Time{}) {
			return c.encodeElement(w, key, rv.Interface().(time.Time))
		}
		if err := writeHeader(w, rawbson.TypeDocument, key); err != nil {
			return err
		}
		return c.encodeStruct(w, rv)
	case reflect.String:
		return c.encodeElement(w, key, rv.String())
	case reflect.Bool:
		return c.encodeElement(w, key, rv.Bool())
	case reflect.Float32, reflect.Float64:
		return c.encodeElement(w, key, rv.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n >= math.MinInt32 && n <= math.MaxInt32 && rv.Kind() != reflect.Int64 {
			return c.encodeElement(w, key, int32(n))
		}
		return c.encodeElement(w, key, n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return c.encodeElement(w, key, rv.Uint())
	default:
		return fmt.Errorf("bson: cannot encode value of type %s under key %q", rv.Type(), key)
	}
}

func (c *Codec) encodeBinary(w docWriter, key string, b Binary) error {
	if err := writeHeader(w, rawbson.TypeBinary, key); err != nil {
		return err
	}
	length := int32(len(b.Data))
	if b.Subtype == rawbson.SubtypeBinaryOld {
		// Old binaries carry a redundant inner length equal to the
		// outer length minus 4.
		if err := w.WriteInt32(length + 4); err != nil {
			return err
		}
		if err := w.WriteByte(b.Subtype); err != nil {
			return err
		}
		if err := w.WriteInt32(length); err != nil {
			return err
		}
		return w.WriteBytes(b.Data)
	}
	if err := w.WriteInt32(length); err != nil {
		return err
	}
	if err := w.WriteByte(b.Subtype); err != nil {
		return err
	}
	return w.WriteBytes(b.Data)
}

func (c *Codec) encodeCodeWithScope(w docWriter, key string, cws CodeWithScope) error {
	if err := writeHeader(w, rawbson.TypeCodeWithScope, key); err != nil {
		return err
	}
	scopeDoc := cws.Scope
	if scopeDoc == nil {
		scopeDoc = NewDocument()
	}
	scope, err := c.Marshal(scopeDoc)
	if err != nil {
		return err
	}
	total := int32(4 + 4 + len(cws.Code) + 1 + len(scope))
	if err := w.WriteInt32(total); err != nil {
		return err
	}
	if err := w.WriteString(cws.Code); err != nil {
		return err
	}
	return w.WriteBytes(scope)
}

// sortOptions returns the regex options string with its characters in
// ascending order, the conventional wire normalization.
func sortOptions(opts string) string {
	b := []byte(opts)
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	return string(b)
}
