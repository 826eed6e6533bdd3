package expression

// Node is one predicate in the tree. Leaves (comparison, array,
// existence, regex, geo, text, where operators) carry a FieldPath and
// a Payload; logical combinators (AND/OR/NOR/NOT) carry Children and
// an empty FieldPath. A Node exclusively owns its Children: no two
// live trees may share a *Node, which is the property the plan cache
// relies on when it deep-copies on Add and deep-clones on Get.
type Node struct {
	Type      MatchType
	FieldPath string
	Children  []*Node
	// Payload is the opaque comparison value, regex source/flags,
	// {divisor, remainder} pair, value list, or geometry/search
	// payload a leaf carries. Its concrete shape is owned by the
	// expression parser (an external collaborator); this package
	// only needs to clone it and render it into the cache key.
	Payload interface{}
}

// NewLeaf builds a leaf node for a field-scoped operator.
func NewLeaf(t MatchType, fieldPath string, payload interface{}) *Node {
	return &Node{Type: t, FieldPath: fieldPath, Payload: payload}
}

// NewLogical builds a logical combinator over the given children. The
// slice is taken by reference; callers must not mutate it afterward.
func NewLogical(t MatchType, children ...*Node) *Node {
	return &Node{Type: t, Children: children}
}

// Clone performs an independent deep copy of the subtree rooted at n:
// no Node in the result is shared with n. A []interface{} payload is
// copied into a new slice (its elements are copied by assignment);
// any other payload value is copied by assignment.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Type:      n.Type,
		FieldPath: n.FieldPath,
		Payload:   clonePayload(n.Payload),
	}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

func clonePayload(p interface{}) interface{} {
	switch v := p.(type) {
	case []interface{}:
		out := make([]interface{}, len(v))
		copy(out, v)
		return out
	default:
		return v
	}
}

// NumChildren returns len(n.Children); provided for parity with the
// original tree walk's numChildren() accessor used throughout
// normalization.
func (n *Node) NumChildren() int { return len(n.Children) }

// EquivalentTo reports whether two subtrees are structurally
// identical: same type, field path, children (recursively), and
// payload. It does not attempt semantic equivalence beyond that.
func (n *Node) EquivalentTo(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Type != o.Type || n.FieldPath != o.FieldPath || len(n.Children) != len(o.Children) {
		return false
	}
	if !payloadEqual(n.Payload, o.Payload) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].EquivalentTo(o.Children[i]) {
			return false
		}
	}
	return true
}

func payloadEqual(a, b interface{}) bool {
	av, aok := a.([]interface{})
	bv, bok := b.([]interface{})
	if aok || bok {
		if !aok || !bok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !payloadEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}
