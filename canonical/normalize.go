package canonical

import (
	"sort"
	"strings"

	"github.com/couchbaselabs/planshape/expression"
)

// normalize applies, in order: bottom-up flatten of same-type
// AND/OR chains, single-child AND/OR collapse, and a recursive stable
// sort of every node's children by (type ordinal, field path,
// subtree cache key). Children are processed depth-first so that by
// the time a node sorts its own children, each child is already in
// its final normalized form and its subtree key is stable.
func normalize(n *expression.Node) *expression.Node {
	if n == nil {
		return nil
	}
	for i, c := range n.Children {
		n.Children[i] = normalize(c)
	}

	if n.Type == expression.AND || n.Type == expression.OR {
		flattenSameType(n)
		if len(n.Children) == 1 {
			// Collapse: ownership of the sole child transfers to
			// whoever holds n; n itself is discarded without
			// re-cloning the child.
			return n.Children[0]
		}
	}

	sortChildren(n)
	return n
}

// flattenSameType absorbs any child whose type matches n's own type,
// replacing it with its children. Applied after children have already
// been normalized, so chains of arbitrary depth collapse in one
// bottom-up pass (an AND-of-AND-of-AND seen at the leaf level has
// already been flattened one level by the time its parent runs this).
func flattenSameType(n *expression.Node) {
	var kept []*expression.Node
	var absorbed []*expression.Node
	for _, c := range n.Children {
		if c.Type == n.Type {
			absorbed = append(absorbed, c.Children...)
		} else {
			kept = append(kept, c)
		}
	}
	n.Children = append(kept, absorbed...)
}

// sortChildren orders n's children by the tuple (match type ordinal,
// field path, recursive cache key of the child). The third component
// only matters when the first two tie, e.g.
// AND{OR{a:1,a:2}, OR{b:1,b:2}}, where both ORs share type and an
// empty field path.
func sortChildren(n *expression.Node) {
	if len(n.Children) < 2 {
		return
	}
	keys := make([]string, len(n.Children))
	for i, c := range n.Children {
		var sb strings.Builder
		EncodeTree(&sb, c)
		keys[i] = sb.String()
	}
	idx := make([]int, len(n.Children))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ca, cb := n.Children[idx[a]], n.Children[idx[b]]
		if ca.Type != cb.Type {
			return ca.Type < cb.Type
		}
		if ca.FieldPath != cb.FieldPath {
			return ca.FieldPath < cb.FieldPath
		}
		return keys[idx[a]] < keys[idx[b]]
	})
	sorted := make([]*expression.Node, len(n.Children))
	for i, j := range idx {
		sorted[i] = n.Children[j]
	}
	n.Children = sorted
}
