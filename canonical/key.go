package canonical

import (
	"strings"

	"github.com/couchbaselabs/planshape/bsondoc"
	"github.com/couchbaselabs/planshape/expression"
)

// EncodeTree writes the preorder cache-key encoding of the (already
// normalized and sorted) subtree rooted at n: for each node, its
// two-character match-type tag followed by its field path, then its
// children in their already-sorted order.
func EncodeTree(sb *strings.Builder, n *expression.Node) {
	if n == nil {
		return
	}
	sb.WriteString(n.Type.Tag())
	sb.WriteString(n.FieldPath)
	for _, c := range n.Children {
		EncodeTree(sb, c)
	}
}

// encodeSort writes the sort encoding: one direction character
// (a/d/t) followed by the field name, per element, in document order.
func encodeSort(sb *strings.Builder, sortDoc Document) {
	for _, e := range sortDoc {
		sb.WriteByte(sortDirectionTag(e.Value))
		sb.WriteString(e.Name)
	}
}

func sortDirectionTag(v interface{}) byte {
	if doc, ok := v.(bsondoc.Document); ok {
		if meta, ok := doc.Get("$meta"); ok {
			if s, ok := meta.(string); ok && s == "textScore" {
				return 't'
			}
		}
	}
	if isNegative(v) {
		return 'd'
	}
	return 'a'
}

func isNegative(v interface{}) bool {
	switch n := v.(type) {
	case float64:
		return n < 0
	case int:
		return n < 0
	case int64:
		return n < 0
	default:
		return false
	}
}

// encodeProjection writes the projection encoding: nothing if empty,
// otherwise 'p' followed by, per element in document order, the
// element's opaque value representation then its field name.
func encodeProjection(sb *strings.Builder, proj Document) {
	if proj.Empty() {
		return
	}
	sb.WriteByte('p')
	for _, e := range proj {
		bsondoc.Encode(sb, e.Value)
		sb.WriteString(e.Name)
	}
}

// key derives the full plan cache key of a canonicalized
// (tree, sort, projection) triple.
func key(root *expression.Node, sortDoc, proj Document) string {
	var sb strings.Builder
	EncodeTree(&sb, root)
	encodeSort(&sb, sortDoc)
	encodeProjection(&sb, proj)
	return sb.String()
}
