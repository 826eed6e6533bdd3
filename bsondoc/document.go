// Package bsondoc provides an order-preserving document type for the
// filter, sort, projection, min, and max payloads a Parsed Query
// Bundle carries. The wire-level document format is declared out of
// scope for this module (the predicate-tree parser is an external
// collaborator), but the cache still needs an owned representation
// whose field order is stable and inspectable, because the cache key
// derivation walks sort and projection documents in declaration
// order. Decoding uses go_json's token-based decoder, so that object
// key order survives instead of being lost to a Go map.
package bsondoc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/couchbase/go_json"
)

// Element is one field of a Document, in declaration order.
type Element struct {
	Name  string
	Value interface{}
}

// Document is an ordered sequence of fields. A nil or zero-length
// Document is the empty document.
type Document []Element

// Empty reports whether the document has no fields.
func (d Document) Empty() bool { return len(d) == 0 }

// Get returns the value of the first field named name.
func (d Document) Get(name string) (interface{}, bool) {
	for _, e := range d {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}

// Copy returns a deep, independently-owned clone. Cache entries must
// never alias a caller's document (or a caller alias the cache's).
func (d Document) Copy() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for i, e := range d {
		out[i] = Element{Name: e.Name, Value: copyValue(e.Value)}
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Document:
		return t.Copy()
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether two documents have the same fields in the
// same order with equal values.
func Equal(a, b Document) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !valueEqual(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

func valueEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case Document:
		bv, ok := b.(Document)
		return ok && Equal(av, bv)
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Parse decodes a single JSON object, preserving field order.
func Parse(data []byte) (Document, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, fmt.Errorf("bsondoc: expected object, got %v", tok)
	}
	return decodeObject(dec)
}

func decodeObject(dec *json.Decoder) (Document, error) {
	var doc Document
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("bsondoc: expected field name, got %v", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		doc = append(doc, Element{Name: key, Value: val})
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			var arr []interface{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("bsondoc: unexpected delimiter %v", t)
		}
	default:
		return tok, nil
	}
}

// Encode writes the opaque value representation of v used by cache
// key derivation: a type-tagged, deterministic rendering so that
// equal values always produce equal text and values of different kinds
// (string, float, integer, bool, array, document) never collide on the
// same text. int and int64 are both integers and share one encoding.
func Encode(sb *strings.Builder, v interface{}) {
	switch t := v.(type) {
	case nil:
		sb.WriteString("n")
	case bool:
		if t {
			sb.WriteString("bT")
		} else {
			sb.WriteString("bF")
		}
	case string:
		sb.WriteString("s")
		sb.WriteString(strconv.Itoa(len(t)))
		sb.WriteByte(':')
		sb.WriteString(t)
	case float64:
		sb.WriteString("d")
		sb.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case int:
		sb.WriteString("i")
		sb.WriteString(strconv.Itoa(t))
	case int64:
		sb.WriteString("i")
		sb.WriteString(strconv.FormatInt(t, 10))
	case []interface{}:
		sb.WriteString("a[")
		for _, e := range t {
			Encode(sb, e)
			sb.WriteByte(',')
		}
		sb.WriteByte(']')
	case Document:
		sb.WriteString("o{")
		for _, e := range t {
			sb.WriteString(e.Name)
			sb.WriteByte(':')
			Encode(sb, e.Value)
			sb.WriteByte(',')
		}
		sb.WriteByte('}')
	default:
		sb.WriteString("x")
		sb.WriteString(fmt.Sprintf("%v", t))
	}
}

// SortedCopy returns a copy of the document with fields ordered
// lexicographically by name (fields with equal names keep their
// relative order). Cache keys never use this, since field declaration
// order is significant there.
func SortedCopy(d Document) Document {
	out := d.Copy()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
