package bson

import (
	"fmt"
	"reflect"
	"time"
)

// unmarshalDocument raises a materialized tree into the destination the
// caller supplied: a *Document, a map, a struct or a plain any.
func (c *Codec) unmarshalDocument(doc *Document, v any) error {
	switch dst := v.(type) {
	case **Document:
		*dst = doc
		return nil
	case *Document:
		if dst == nil {
			return fmt.Errorf("bson: cannot unmarshal into a nil *Document")
		}
		*dst = *doc
		return nil
	case *map[string]any:
		*dst = documentToMap(doc)
		return nil
	case *any:
		*dst = doc
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("bson: unmarshal destination must be a non-nil pointer, got %T", v)
	}
	return c.raiseDocument(doc, rv.Elem())
}

// documentToMap converts a tree to plain maps and slices, losing key
// order. Nested documents convert recursively.
func documentToMap(doc *Document) map[string]any {
	m := make(map[string]any, doc.Len())
	doc.Range(func(key string, value any) bool {
		m[key] = lowerValue(value)
		return true
	})
	return m
}

func lowerValue(v any) any {
	switch val := v.(type) {
	case *Document:
		return documentToMap(val)
	case *Array:
		out := make([]any, val.Len())
		for i, e := range val.Values() {
			out[i] = lowerValue(e)
		}
		return out
	default:
		return v
	}
}

func (c *Codec) raiseDocument(doc *Document, rv reflect.Value) error {
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		if rv.Type() == reflect.TypeOf(Document{}) {
			rv.Set(reflect.ValueOf(*doc))
			return nil
		}
		return c.raiseStruct(doc, rv)
	case reflect.Map:
		return c.raiseMap(doc, rv)
	case reflect.Interface:
		if rv.NumMethod() != 0 {
			return fmt.Errorf("bson: cannot unmarshal a document into %s", rv.Type())
		}
		rv.Set(reflect.ValueOf(doc))
		return nil
	default:
		return fmt.Errorf("bson: cannot unmarshal a document into %s", rv.Type())
	}
}

func (c *Codec) raiseStruct(doc *Document, rv reflect.Value) error {
	for _, f := range c.getPlan(rv.Type()) {
		v, ok := doc.Get(f.name)
		if !ok {
			continue
		}
		if err := c.raiseValue(v, rv.FieldByIndex(f.idx)); err != nil {
			return fmt.Errorf("field %s: %w", f.name, err)
		}
	}
	return nil
}

func (c *Codec) raiseMap(doc *Document, rv reflect.Value) error {
	t := rv.Type()
	if t.Key().Kind() != reflect.String {
		return fmt.Errorf("%w: map key type %s is not a string", ErrInvalidKey, t.Key())
	}
	if rv.IsNil() {
		rv.Set(reflect.MakeMapWithSize(t, doc.Len()))
	}
	var outer error
	doc.Range(func(key string, value any) bool {
		ev := reflect.New(t.Elem()).Elem()
		if err := c.raiseValue(value, ev); err != nil {
			outer = fmt.Errorf("key %q: %w", key, err)
			return false
		}
		rv.SetMapIndex(reflect.ValueOf(key).Convert(t.Key()), ev)
		return true
	})
	return outer
}

// raiseValue assigns one materialized value into an arbitrary destination,
// widening integers and unwrapping the codec's own types where the
// destination asks for a plainer shape.
func (c *Codec) raiseValue(v any, rv reflect.Value) error {
	if v == nil {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Interface && rv.NumMethod() == 0 {
		rv.Set(reflect.ValueOf(v))
		return nil
	}

	vv := reflect.ValueOf(v)
	if vv.Type() == rv.Type() {
		rv.Set(vv)
		return nil
	}
	if vv.Type().AssignableTo(rv.Type()) {
		rv.Set(vv)
		return nil
	}

	switch val := v.(type) {
	case *Document:
		return c.raiseDocument(val, rv)
	case *Array:
		return c.raiseArray(val, rv)
	case int32:
		return raiseInt(int64(val), rv)
	case int64:
		return raiseInt(val, rv)
	case float64:
		if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
			rv.SetFloat(val)
			return nil
		}
	case string:
		if rv.Kind() == reflect.String {
			rv.SetString(val)
			return nil
		}
	case bool:
		if rv.Kind() == reflect.Bool {
			rv.SetBool(val)
			return nil
		}
	case Binary:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			rv.SetBytes(append([]byte(nil), val.Data...))
			return nil
		}
	case DateTime:
		if rv.Type() == reflect.TypeOf(time.Time{}) {
			rv.Set(reflect.ValueOf(val.Time()))
			return nil
		}
		return raiseInt(int64(val), rv)
	case JavaScript:
		if rv.Kind() == reflect.String {
			rv.SetString(string(val))
			return nil
		}
	case Symbol:
		if rv.Kind() == reflect.String {
			rv.SetString(string(val))
			return nil
		}
	}
	return fmt.Errorf("%w: cannot assign %s to %s", ErrWrongType, typeName(v), rv.Type())
}

func raiseInt(n int64, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.OverflowInt(n) {
			return fmt.Errorf("%w: %d overflows %s", ErrIntRange, n, rv.Type())
		}
		rv.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n < 0 || rv.OverflowUint(uint64(n)) {
			return fmt.Errorf("%w: %d overflows %s", ErrIntRange, n, rv.Type())
		}
		rv.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		rv.SetFloat(float64(n))
		return nil
	default:
		return fmt.Errorf("%w: cannot assign an integer to %s", ErrWrongType, rv.Type())
	}
}

func (c *Codec) raiseArray(arr *Array, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(rv.Type(), arr.Len(), arr.Len())
		for i, e := range arr.Values() {
			if err := c.raiseValue(e, out.Index(i)); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		rv.Set(out)
		return nil
	case reflect.Array:
		if rv.Len() < arr.Len() {
			return fmt.Errorf("%w: array of %d values does not fit in %s", ErrWrongType, arr.Len(), rv.Type())
		}
		for i, e := range arr.Values() {
			if err := c.raiseValue(e, rv.Index(i)); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	case reflect.Interface:
		if rv.NumMethod() == 0 {
			rv.Set(reflect.ValueOf(arr))
			return nil
		}
	}
	return fmt.Errorf("%w: cannot assign an array to %s", ErrWrongType, rv.Type())
}
