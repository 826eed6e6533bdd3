package canonical

import (
	"testing"

	"github.com/couchbaselabs/planshape/bsondoc"
	"github.com/couchbaselabs/planshape/expression"
)

func eq(field string, v interface{}) *expression.Node {
	return expression.NewLeaf(expression.EQ, field, v)
}

func and(children ...*expression.Node) *expression.Node {
	return expression.NewLogical(expression.AND, children...)
}

func or(children ...*expression.Node) *expression.Node {
	return expression.NewLogical(expression.OR, children...)
}

func mustCanonicalize(t *testing.T, root *expression.Node, sort, proj bsondoc.Document) *CanonicalQuery {
	t.Helper()
	cq, err := Canonicalize(ParsedQueryBundle{Namespace: "db.coll", Filter: root, Sort: sort, Projection: proj})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	return cq
}

// Shape equivalence: argument reordering must not change the key.
func TestShapeEquivalenceUnderReordering(t *testing.T) {
	a := mustCanonicalize(t, and(eq("a", 1.0), eq("b", 1.0)), nil, nil)
	b := mustCanonicalize(t, and(eq("b", 1.0), eq("a", 1.0)), nil, nil)
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys, got %q vs %q", a.Key(), b.Key())
	}
}

// Flatten: AND(AND(a,b), c) == AND(a,b,c).
func TestFlatten(t *testing.T) {
	a := mustCanonicalize(t, and(and(eq("a", 1.0), eq("b", 1.0)), eq("c", 1.0)), nil, nil)
	b := mustCanonicalize(t, and(eq("a", 1.0), eq("b", 1.0), eq("c", 1.0)), nil, nil)
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys, got %q vs %q", a.Key(), b.Key())
	}
}

// Single-child collapse: AND(x) == x, OR(x) == x.
func TestSingleChildCollapse(t *testing.T) {
	x := eq("a", 1.0)
	a := mustCanonicalize(t, and(x.Clone()), nil, nil)
	b := mustCanonicalize(t, x.Clone(), nil, nil)
	if a.Key() != b.Key() {
		t.Fatalf("AND(x) should equal x: %q vs %q", a.Key(), b.Key())
	}

	c := mustCanonicalize(t, or(x.Clone()), nil, nil)
	if c.Key() != b.Key() {
		t.Fatalf("OR(x) should equal x: %q vs %q", c.Key(), b.Key())
	}
}

// Tie-break on recursive child key: AND{OR{a:1,a:2}, OR{b:1,b:2}}
// needs the third sort component since type+field path tie between
// the two ORs (both empty field paths).
func TestTieBreakOnChildKey(t *testing.T) {
	left := or(eq("a", 1.0), eq("a", 2.0))
	right := or(eq("b", 1.0), eq("b", 2.0))
	a := mustCanonicalize(t, and(left, right), nil, nil)

	left2 := or(eq("a", 1.0), eq("a", 2.0))
	right2 := or(eq("b", 1.0), eq("b", 2.0))
	b := mustCanonicalize(t, and(right2, left2), nil, nil)

	if a.Key() != b.Key() {
		t.Fatalf("expected order-independent tie-break, got %q vs %q", a.Key(), b.Key())
	}
}

// Determinism: canonicalizing byte-identical input twice yields equal keys.
func TestKeyDeterminism(t *testing.T) {
	mk := func() *expression.Node { return and(eq("a", 1.0), eq("b", 1.0)) }
	a := mustCanonicalize(t, mk(), nil, nil)
	b := mustCanonicalize(t, mk(), nil, nil)
	if a.Key() != b.Key() {
		t.Fatalf("expected deterministic keys, got %q vs %q", a.Key(), b.Key())
	}
}

func TestShouldCacheQuery(t *testing.T) {
	empty := mustCanonicalize(t, and(), nil, nil)
	if ShouldCacheQuery(empty) {
		t.Fatalf("empty predicate with no sort should not be cacheable")
	}

	hinted, err := Canonicalize(ParsedQueryBundle{
		Namespace: "db.coll",
		Filter:    eq("a", 1.0),
		Hint:      bsondoc.Document{{Name: "a", Value: 1.0}},
	})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if ShouldCacheQuery(hinted) {
		t.Fatalf("hinted query should not be cacheable")
	}
}

func TestValidateRejectsTextInsideNor(t *testing.T) {
	textNode := &expression.Node{Type: expression.TEXT, Payload: "foo"}
	nor := expression.NewLogical(expression.NOR, textNode)
	_, err := Canonicalize(ParsedQueryBundle{Namespace: "db.coll", Filter: nor})
	if err == nil {
		t.Fatalf("expected BadValue for TEXT inside NOR")
	}
}

func TestValidateRejectsTextAndGeoNearTogether(t *testing.T) {
	root := and(
		&expression.Node{Type: expression.TEXT, Payload: "foo"},
		&expression.Node{Type: expression.GEO_NEAR},
	)
	_, err := Canonicalize(ParsedQueryBundle{Namespace: "db.coll", Filter: root})
	if err == nil {
		t.Fatalf("expected BadValue for TEXT + GEO_NEAR")
	}
}

func TestValidateAllowsGeoNearAsDirectChildOfRootAnd(t *testing.T) {
	root := and(eq("a", 1.0), &expression.Node{Type: expression.GEO_NEAR})
	if _, err := Canonicalize(ParsedQueryBundle{Namespace: "db.coll", Filter: root}); err != nil {
		t.Fatalf("expected GEO_NEAR as direct AND child to be valid, got %v", err)
	}
}
