package bsondoc

import (
	"strings"
	"testing"
)

func TestParsePreservesFieldOrder(t *testing.T) {
	doc, err := Parse([]byte(`{"b": 1, "a": 2, "c": {"y": 1, "x": 2}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc) != 3 || doc[0].Name != "b" || doc[1].Name != "a" || doc[2].Name != "c" {
		t.Fatalf("expected declaration order preserved, got %+v", doc)
	}
	nested, ok := doc[2].Value.(Document)
	if !ok || nested[0].Name != "y" {
		t.Fatalf("expected nested object order preserved, got %+v", doc[2].Value)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	doc := Document{{Name: "a", Value: []interface{}{1.0, 2.0}}}
	cp := doc.Copy()
	cp[0].Value.([]interface{})[0] = 99.0
	if doc[0].Value.([]interface{})[0] != 1.0 {
		t.Fatalf("Copy must not alias the original slice")
	}
}

func TestEqual(t *testing.T) {
	a := Document{{Name: "a", Value: 1.0}, {Name: "b", Value: 2.0}}
	b := Document{{Name: "a", Value: 1.0}, {Name: "b", Value: 2.0}}
	c := Document{{Name: "b", Value: 2.0}, {Name: "a", Value: 1.0}}
	if !Equal(a, b) {
		t.Fatalf("expected equal documents to compare equal")
	}
	if Equal(a, c) {
		t.Fatalf("field order must matter for Equal")
	}
}

func TestEncodeDistinguishesTypes(t *testing.T) {
	var sb strings.Builder
	Encode(&sb, "1")
	s := sb.String()

	var sb2 strings.Builder
	Encode(&sb2, 1.0)
	n := sb2.String()

	if s == n {
		t.Fatalf("string %q and number %q encodings must differ", s, n)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	doc := Document{{Name: "a", Value: 1.0}, {Name: "b", Value: "x"}}
	var sb1, sb2 strings.Builder
	Encode(&sb1, doc)
	Encode(&sb2, doc.Copy())
	if sb1.String() != sb2.String() {
		t.Fatalf("expected deterministic encoding, got %q vs %q", sb1.String(), sb2.String())
	}
}

func TestSortedCopyOrdersByName(t *testing.T) {
	doc := Document{{Name: "b", Value: 1.0}, {Name: "a", Value: 2.0}}
	sorted := SortedCopy(doc)
	if sorted[0].Name != "a" || sorted[1].Name != "b" {
		t.Fatalf("expected lexicographic order, got %+v", sorted)
	}
	// Original must be unmodified.
	if doc[0].Name != "b" {
		t.Fatalf("SortedCopy must not mutate its input")
	}
}

func TestEmpty(t *testing.T) {
	var d Document
	if !d.Empty() {
		t.Fatalf("nil document should be empty")
	}
	if (Document{{Name: "a", Value: 1.0}}).Empty() {
		t.Fatalf("non-empty document should not report empty")
	}
}
