package bson

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rawbytedev/bson/pkg/rawbson"
)

// decodeDocument materializes a validated raw document into an owned tree.
// Materialization is all or nothing: any malformed element fails the whole
// decode and no partial tree escapes.
func (c *Codec) decodeDocument(raw rawbson.RawDocument) (*Document, error) {
	doc := NewDocument()
	it := raw.Iter()
	for it.Next() {
		key, err := c.checkUTF8(it.Key())
		if err != nil {
			return nil, err
		}
		v, err := c.decodeValue(it.Value())
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		doc.Set(key, v)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Codec) decodeArray(raw rawbson.RawArray) (*Array, error) {
	arr := NewArray()
	it := raw.Iter()
	for it.Next() {
		v, err := c.decodeValue(it.Value())
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", it.Key(), err)
		}
		arr.Push(v)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return arr, nil
}

// decodeValue converts one raw element into its materialized form. The raw
// layer already bounds-checked the payload, so the typed accessors here
// cannot fail on well-formed input.
func (c *Codec) decodeValue(rv rawbson.RawValue) (any, error) {
	switch rv.Type {
	case rawbson.TypeDouble:
		return rv.Double()
	case rawbson.TypeString:
		s, err := rv.StringValue()
		if err != nil {
			return nil, err
		}
		return c.checkUTF8(s)
	case rawbson.TypeDocument:
		sub, err := rv.Document()
		if err != nil {
			return nil, err
		}
		return c.decodeDocument(sub)
	case rawbson.TypeArray:
		sub, err := rv.Array()
		if err != nil {
			return nil, err
		}
		return c.decodeArray(sub)
	case rawbson.TypeBinary:
		sub, data, err := rv.Binary()
		if err != nil {
			return nil, err
		}
		return Binary{Subtype: sub, Data: append([]byte(nil), data...)}, nil
	case rawbson.TypeUndefined:
		return Undefined{}, nil
	case rawbson.TypeObjectID:
		oid, err := rv.ObjectID()
		if err != nil {
			return nil, err
		}
		return ObjectID(oid), nil
	case rawbson.TypeBoolean:
		return rv.Boolean()
	case rawbson.TypeDateTime:
		n, err := rv.DateTime()
		if err != nil {
			return nil, err
		}
		return DateTime(n), nil
	case rawbson.TypeNull:
		return nil, nil
	case rawbson.TypeRegex:
		pattern, options, err := rv.Regex()
		if err != nil {
			return nil, err
		}
		return Regex{Pattern: pattern, Options: options}, nil
	case rawbson.TypeDBPointer:
		ns, id, err := rv.DBPointer()
		if err != nil {
			return nil, err
		}
		ns, err = c.checkUTF8(ns)
		if err != nil {
			return nil, err
		}
		return DBPointer{Namespace: ns, ID: ObjectID(id)}, nil
	case rawbson.TypeJavaScript:
		code, err := rv.JavaScript()
		if err != nil {
			return nil, err
		}
		s, err := c.checkUTF8(code)
		if err != nil {
			return nil, err
		}
		return JavaScript(s), nil
	case rawbson.TypeSymbol:
		sym, err := rv.Symbol()
		if err != nil {
			return nil, err
		}
		s, err := c.checkUTF8(sym)
		if err != nil {
			return nil, err
		}
		return Symbol(s), nil
	case rawbson.TypeCodeWithScope:
		code, scope, err := rv.CodeWithScope()
		if err != nil {
			return nil, err
		}
		s, err := c.checkUTF8(code)
		if err != nil {
			return nil, err
		}
		scopeDoc, err := c.decodeDocument(scope)
		if err != nil {
			return nil, err
		}
		return CodeWithScope{Code: s, Scope: scopeDoc}, nil
	case rawbson.TypeInt32:
		return rv.Int32()
	case rawbson.TypeTimestamp:
		t, i, err := rv.Timestamp()
		if err != nil {
			return nil, err
		}
		return Timestamp{T: t, I: i}, nil
	case rawbson.TypeInt64:
		return rv.Int64()
	case rawbson.TypeDecimal128:
		b, err := rv.Decimal128()
		if err != nil {
			return nil, err
		}
		return Decimal128FromBytes(b), nil
	case rawbson.TypeMinKey:
		return MinKey{}, nil
	case rawbson.TypeMaxKey:
		return MaxKey{}, nil
	default:
		return nil, fmt.Errorf("bson: unhandled element type %s", rv.Type)
	}
}

// checkUTF8 enforces the configured string policy: reject invalid UTF-8 by
// default, or substitute U+FFFD for every invalid sequence when lossy
// decoding is enabled.
func (c *Codec) checkUTF8(s string) (string, error) {
	if utf8.ValidString(s) {
		return s, nil
	}
	if c.Opts.UTF8Lossy {
		return strings.ToValidUTF8(s, "�"), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUTF8, s)
}
