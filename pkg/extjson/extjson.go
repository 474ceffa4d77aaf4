// Package extjson converts between materialized document trees and the
// extended JSON text form. The canonical form is lossless: every wire
// type is wrapped in a marker object. The relaxed form trades that for
// readability, writing plain JSON numbers and RFC 3339 dates where it
// can. Parsing accepts both forms through the same marker registry the
// binary codec uses.
package extjson

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/rawbytedev/bson"
)

// Marshal renders doc in the canonical form.
func Marshal(doc *bson.Document) ([]byte, error) {
	return marshal(doc, false)
}

// MarshalRelaxed renders doc in the relaxed form.
func MarshalRelaxed(doc *bson.Document) ([]byte, error) {
	return marshal(doc, true)
}

func marshal(doc *bson.Document, relaxed bool) ([]byte, error) {
	w := &writer{relaxed: relaxed}
	if err := w.writeDocument(doc); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// Unmarshal parses extended JSON text into a document tree. Marker
// objects become their wire values; everything else stays a plain
// document. JSON objects do not preserve member order, so keys of plain
// documents come out sorted.
func Unmarshal(data []byte) (*bson.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var top any
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("extjson: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("extjson: trailing data after the document")
	}
	v, err := raise(top)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(*bson.Document)
	if !ok {
		return nil, fmt.Errorf("extjson: top-level value is not an object")
	}
	return doc, nil
}

// raise converts a decoded JSON value bottom-up. Objects are converted
// first, then checked against the marker registry so nested markers
// inside $scope or array elements lower correctly.
func raise(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		doc := bson.NewDocument()
		for _, k := range keys {
			rv, err := raise(val[k])
			if err != nil {
				return nil, err
			}
			doc.Set(k, rv)
		}
		lowered, ok, err := bson.ParseMarkerDocument(doc)
		if err != nil {
			return nil, err
		}
		if ok {
			return lowered, nil
		}
		return doc, nil
	case []any:
		arr := bson.NewArray()
		for _, e := range val {
			rv, err := raise(e)
			if err != nil {
				return nil, err
			}
			arr.Push(rv)
		}
		return arr, nil
	case json.Number:
		return raiseNumber(val)
	default:
		return v, nil
	}
}

// raiseNumber maps a bare JSON number the way the relaxed form writes
// them: integers take the narrowest of int32 and int64, everything else
// is a double.
func raiseNumber(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		if i >= math.MinInt32 && i <= math.MaxInt32 {
			return int32(i), nil
		}
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("extjson: bad number %q: %w", n.String(), err)
	}
	return f, nil
}

type writer struct {
	buf     bytes.Buffer
	relaxed bool
}

func (w *writer) writeDocument(doc *bson.Document) error {
	w.buf.WriteByte('{')
	first := true
	var outer error
	doc.Range(func(key string, value any) bool {
		if !first {
			w.buf.WriteByte(',')
		}
		first = false
		w.writeString(key)
		w.buf.WriteByte(':')
		outer = w.writeValue(value)
		return outer == nil
	})
	if outer != nil {
		return outer
	}
	w.buf.WriteByte('}')
	return nil
}

func (w *writer) writeArray(arr *bson.Array) error {
	w.buf.WriteByte('[')
	for i, e := range arr.Values() {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		if err := w.writeValue(e); err != nil {
			return err
		}
	}
	w.buf.WriteByte(']')
	return nil
}

func (w *writer) writeString(s string) {
	b, _ := json.Marshal(s)
	w.buf.Write(b)
}

func (w *writer) writeValue(v any) error {
	switch val := v.(type) {
	case nil:
		w.buf.WriteString("null")
	case bool:
		if val {
			w.buf.WriteString("true")
		} else {
			w.buf.WriteString("false")
		}
	case string:
		w.writeString(val)
	case float64:
		w.writeDouble(val)
	case int32:
		if w.relaxed {
			w.buf.WriteString(strconv.FormatInt(int64(val), 10))
		} else {
			w.writeMarkerString(bson.MarkerInt32, strconv.FormatInt(int64(val), 10))
		}
	case int64:
		if w.relaxed {
			w.buf.WriteString(strconv.FormatInt(val, 10))
		} else {
			w.writeMarkerString(bson.MarkerInt64, strconv.FormatInt(val, 10))
		}
	case *bson.Document:
		return w.writeDocument(val)
	case *bson.Array:
		return w.writeArray(val)
	case bson.ObjectID:
		w.writeMarkerString(bson.MarkerObjectID, val.Hex())
	case bson.Binary:
		fmt.Fprintf(&w.buf, `{%q:{"base64":`, bson.MarkerBinary)
		w.writeString(base64.StdEncoding.EncodeToString(val.Data))
		fmt.Fprintf(&w.buf, `,"subType":"%02x"}}`, val.Subtype)
	case bson.DateTime:
		w.writeDateTime(val)
	case bson.Regex:
		fmt.Fprintf(&w.buf, `{%q:{"pattern":`, bson.MarkerRegex)
		w.writeString(val.Pattern)
		w.buf.WriteString(`,"options":`)
		w.writeString(val.Options)
		w.buf.WriteString("}}")
	case bson.JavaScript:
		w.writeMarkerString(bson.MarkerCode, string(val))
	case bson.Symbol:
		w.writeMarkerString(bson.MarkerSymbol, string(val))
	case bson.CodeWithScope:
		fmt.Fprintf(&w.buf, `{%q:`, bson.MarkerCode)
		w.writeString(val.Code)
		fmt.Fprintf(&w.buf, `,%q:`, bson.MarkerScope)
		if err := w.writeDocument(val.Scope); err != nil {
			return err
		}
		w.buf.WriteByte('}')
	case bson.Timestamp:
		fmt.Fprintf(&w.buf, `{%q:{"t":%d,"i":%d}}`, bson.MarkerTimestamp, val.T, val.I)
	case bson.Decimal128:
		w.writeMarkerString(bson.MarkerDecimal128, val.String())
	case bson.DBPointer:
		fmt.Fprintf(&w.buf, `{%q:{%q:`, bson.MarkerDBPointer, bson.MarkerRef)
		w.writeString(val.Namespace)
		fmt.Fprintf(&w.buf, `,%q:`, bson.MarkerID)
		w.writeMarkerString(bson.MarkerObjectID, val.ID.Hex())
		w.buf.WriteString("}}")
	case bson.MinKey:
		fmt.Fprintf(&w.buf, `{%q:1}`, bson.MarkerMinKey)
	case bson.MaxKey:
		fmt.Fprintf(&w.buf, `{%q:1}`, bson.MarkerMaxKey)
	case bson.Undefined:
		fmt.Fprintf(&w.buf, `{%q:true}`, bson.MarkerUndefined)
	default:
		return fmt.Errorf("extjson: cannot render value of type %T", v)
	}
	return nil
}

func (w *writer) writeMarkerString(name, value string) {
	fmt.Fprintf(&w.buf, `{%q:`, name)
	w.writeString(value)
	w.buf.WriteByte('}')
}

// writeDouble writes a finite double as a bare number in relaxed mode.
// Non-finite doubles have no JSON number form, so both modes wrap them.
func (w *writer) writeDouble(f float64) {
	switch {
	case math.IsNaN(f):
		w.writeMarkerString(bson.MarkerDouble, "NaN")
	case math.IsInf(f, 1):
		w.writeMarkerString(bson.MarkerDouble, "Infinity")
	case math.IsInf(f, -1):
		w.writeMarkerString(bson.MarkerDouble, "-Infinity")
	case w.relaxed:
		w.buf.WriteString(formatDouble(f))
	default:
		w.writeMarkerString(bson.MarkerDouble, formatDouble(f))
	}
}

// formatDouble keeps integral doubles distinguishable from int32/int64
// values by forcing a ".0" suffix.
func formatDouble(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !bytes.ContainsAny([]byte(s), ".eE") {
		s += ".0"
	}
	return s
}

// writeDateTime uses the readable RFC 3339 form in relaxed mode for
// dates the format can express, which is years 1 through 9999.
func (w *writer) writeDateTime(dt bson.DateTime) {
	if w.relaxed {
		t := dt.Time().UTC()
		if t.Year() >= 1 && t.Year() <= 9999 {
			fmt.Fprintf(&w.buf, `{%q:`, bson.MarkerDate)
			w.writeString(t.Format("2006-01-02T15:04:05.999Z07:00"))
			w.buf.WriteByte('}')
			return
		}
	}
	fmt.Fprintf(&w.buf, `{%q:{%q:"%d"}}`, bson.MarkerDate, bson.MarkerInt64, int64(dt))
}
