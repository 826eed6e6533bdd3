// Package planner implements Planner Analysis: the post-planning pass
// that decides how a winning data-access tree must be shaped to
// satisfy the requested sort, shard filter, projection, skip, and
// limit, preferring to avoid a blocking in-memory sort wherever the
// underlying scan can be made to provide the order directly.
package planner

import (
	"github.com/couchbaselabs/planshape/bsondoc"
	"github.com/couchbaselabs/planshape/plan"
)

// hasNaturalSort reports whether sortDoc names the pseudo-field
// $natural, meaning "collection scan order" rather than a real sort
// key that a scan or blocking sort could satisfy.
func hasNaturalSort(sortDoc bsondoc.Document) bool {
	for _, e := range sortDoc {
		if e.Name == "$natural" {
			return true
		}
	}
	return false
}

func sortSign(v interface{}) int {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return -1
		}
	case int:
		if t < 0 {
			return -1
		}
	case int64:
		if t < 0 {
			return -1
		}
	}
	return 1
}

func negate(v interface{}) interface{} {
	switch t := v.(type) {
	case float64:
		return -t
	case int:
		return -t
	case int64:
		return -t
	default:
		return v
	}
}

func reverseSort(d bsondoc.Document) bsondoc.Document {
	out := make(bsondoc.Document, len(d))
	for i, e := range d {
		out[i] = bsondoc.Element{Name: e.Name, Value: negate(e.Value)}
	}
	return out
}

// sameSortOrder reports whether two sort specifications name the same
// fields, in the same order, with the same direction.
func sameSortOrder(a, b bsondoc.Document) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || sortSign(a[i].Value) != sortSign(b[i].Value) {
			return false
		}
	}
	return true
}

// fetched reports whether a subtree's output already carries the full
// document, so that a downstream stage needing the whole document
// does not need to add another Fetch.
func fetched(n plan.Node) bool {
	switch t := n.(type) {
	case *plan.CollectionScan:
		return true
	case *plan.Fetch:
		return true
	case *plan.IndexScan:
		return false
	case *plan.MergeSort:
		if len(t.Branches) == 0 {
			return false
		}
		for _, b := range t.Branches {
			if !fetched(b) {
				return false
			}
		}
		return true
	case *plan.ShardingFilter:
		return fetched(t.Child)
	case *plan.Project:
		return fetched(t.Child)
	case *plan.Sort:
		return fetched(t.Child)
	case *plan.Skip:
		return fetched(t.Child)
	case *plan.Limit:
		return fetched(t.Child)
	default:
		return false
	}
}

// providesSort reports whether root's natural output order already
// satisfies sortDoc, without adding a sort stage.
func providesSort(root plan.Node, sortDoc bsondoc.Document) bool {
	if sortDoc.Empty() {
		return true
	}
	switch t := root.(type) {
	case *plan.IndexScan:
		return indexScanProvidesSort(t, sortDoc)
	case *plan.MergeSort:
		return bsondoc.Equal(t.Sort, sortDoc)
	case *plan.Fetch:
		return providesSort(t.Child, sortDoc)
	case *plan.ShardingFilter:
		return providesSort(t.Child, sortDoc)
	default:
		return false
	}
}

func indexScanProvidesSort(scan *plan.IndexScan, sortDoc bsondoc.Document) bool {
	if len(sortDoc) > len(scan.KeyPattern) {
		return false
	}
	for i, e := range sortDoc {
		kp := scan.KeyPattern[i]
		if kp.Name != e.Name {
			return false
		}
		if sortSign(e.Value) != sortSign(kp.Value)*scan.Direction {
			return false
		}
	}
	return true
}

// reverseNode returns a clone of root traversed in the opposite
// direction, used when root naturally provides the exact reverse of
// the requested sort.
func reverseNode(root plan.Node) plan.Node {
	switch t := root.(type) {
	case *plan.IndexScan:
		return t.Reverse()
	case *plan.Fetch:
		return &plan.Fetch{Child: reverseNode(t.Child)}
	case *plan.ShardingFilter:
		return &plan.ShardingFilter{Child: reverseNode(t.Child)}
	case *plan.MergeSort:
		branches := make([]plan.Node, len(t.Branches))
		for i, b := range t.Branches {
			branches[i] = reverseNode(b)
		}
		return &plan.MergeSort{Sort: reverseSort(t.Sort), Branches: branches}
	default:
		return root
	}
}

// reverseScans reports whether root naturally provides the reverse of
// sortDoc and, if so, returns a reversed clone that provides sortDoc
// itself.
func reverseScans(root plan.Node, sortDoc bsondoc.Document) (plan.Node, bool) {
	rev := reverseSort(sortDoc)
	if !providesSort(root, rev) {
		return nil, false
	}
	return reverseNode(root), true
}
