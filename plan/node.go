// Package plan defines the query solution tree: the operator nodes a
// winning plan is built from, from a leaf data-access node up through
// sort, projection, skip, and limit. Each node type serializes to JSON
// tagged with an "#operator" discriminator.
package plan

import (
	"encoding/json"

	"github.com/couchbaselabs/planshape/bsondoc"
)

// Node is one operator in a query solution tree.
type Node interface {
	// Children returns this node's direct operator children, in
	// execution order (for a Fetch, its single source; for a
	// MergeSort, its branches).
	Children() []Node
	String() string
	json.Marshaler
}

// readonly is embedded by leaf-ish node types with no children.
type readonly struct{}

func (readonly) Children() []Node { return nil }

// CollectionScan is a full scan of every document in the collection,
// optionally in reverse insertion order.
type CollectionScan struct {
	readonly
	Reversed bool
}

func (n *CollectionScan) String() string { s, _ := n.MarshalJSON(); return string(s) }

func (n *CollectionScan) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"#operator": "CollectionScan",
		"reversed":  n.Reversed,
	})
}

// minKeyType and maxKeyType are distinct, otherwise-uninhabited types
// so that a MinKey/MaxKey bound never compares equal to anything else,
// including itself across the two sentinels: a full-range interval
// must never be mistaken for a point by IsPoint.
type minKeyType struct{}
type maxKeyType struct{}

// MinKey and MaxKey bound an unrestricted field: every value compares
// greater than MinKey and less than MaxKey.
var (
	MinKey = minKeyType{}
	MaxKey = maxKeyType{}
)

// Interval is one bound on an indexed field: [Low, High], each end
// independently inclusive or exclusive.
type Interval struct {
	Low           interface{}
	High          interface{}
	LowInclusive  bool
	HighInclusive bool
}

// IsPoint reports whether the interval denotes exactly one value:
// both bounds equal and both inclusive.
func (iv Interval) IsPoint() bool {
	return iv.LowInclusive && iv.HighInclusive && valueEqual(iv.Low, iv.High)
}

func valueEqual(a, b interface{}) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af == bf
	}
	return a == b
}

// OrderedIntervalList is the bounds for one indexed field: a union of
// (possibly overlapping) intervals, ordered to match the index's scan
// direction for that field.
type OrderedIntervalList struct {
	Name      string
	Intervals []Interval
}

// IsUnionOfPoints reports whether every interval in the list is a
// single point, the precondition for exploding that field.
func (oil OrderedIntervalList) IsUnionOfPoints() bool {
	if len(oil.Intervals) == 0 {
		return false
	}
	for _, iv := range oil.Intervals {
		if !iv.IsPoint() {
			return false
		}
	}
	return true
}

// Bounds is the full set of per-field interval lists for an index
// scan, one OrderedIntervalList per field of the index key pattern, in
// key-pattern order. SimpleRange marks bounds that were collapsed into
// a single [min, max] range across the whole key (as min()/max()-
// bounded queries produce) rather than kept as per-field interval
// lists — such bounds carry no per-field structure to explode.
type Bounds struct {
	Fields      []OrderedIntervalList
	SimpleRange bool
}

// Clone returns an independent deep copy.
func (b Bounds) Clone() Bounds {
	out := Bounds{Fields: make([]OrderedIntervalList, len(b.Fields)), SimpleRange: b.SimpleRange}
	for i, f := range b.Fields {
		out.Fields[i] = OrderedIntervalList{Name: f.Name, Intervals: append([]Interval(nil), f.Intervals...)}
	}
	return out
}

// IndexScan scans a single index within the given bounds, optionally
// in reverse. Direction follows the index's own declared direction
// for the leading field: +1 forward, -1 reverse.
type IndexScan struct {
	readonly
	KeyPattern bsondoc.Document
	Direction  int
	Bounds     Bounds
	Multikey   bool
	Name       string
}

// Reverse returns a clone of the scan with its direction flipped and
// its bounds traversed in the opposite order. A reversed scan can
// provide a sort order that is the exact inverse of the one it
// naturally produces, without adding a blocking sort stage.
func (n *IndexScan) Reverse() *IndexScan {
	out := *n
	out.Direction = -n.Direction
	out.Bounds = n.Bounds.Clone()
	for i, f := range out.Bounds.Fields {
		rev := make([]Interval, len(f.Intervals))
		for j, iv := range f.Intervals {
			rev[len(f.Intervals)-1-j] = iv
		}
		out.Bounds.Fields[i].Intervals = rev
	}
	return &out
}

func (n *IndexScan) String() string { s, _ := n.MarshalJSON(); return string(s) }

func (n *IndexScan) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"#operator":  "IndexScan",
		"keyPattern": n.KeyPattern,
		"direction":  n.Direction,
		"multikey":   n.Multikey,
		"name":       n.Name,
	})
}

// Fetch retrieves the full document for each index key produced by
// Child, used when Child's covered fields aren't enough to answer the
// query.
type Fetch struct {
	Child Node
}

func (n *Fetch) Children() []Node { return []Node{n.Child} }
func (n *Fetch) String() string   { s, _ := n.MarshalJSON(); return string(s) }

func (n *Fetch) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"#operator": "Fetch",
		"child":     n.Child,
	})
}

// MergeSort merges the already-sorted output of its branches into a
// single stream ordered by Sort, without a blocking in-memory sort.
type MergeSort struct {
	Sort     bsondoc.Document
	Branches []Node
}

func (n *MergeSort) Children() []Node { return n.Branches }
func (n *MergeSort) String() string   { s, _ := n.MarshalJSON(); return string(s) }

func (n *MergeSort) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"#operator": "MergeSort",
		"sort":      n.Sort,
		"branches":  n.Branches,
	})
}

// Sort is a blocking in-memory sort of Child's entire output. Limit,
// when nonzero, caps how many sorted results the stage produces: for
// a query with both a hard limit and a skip, callers should set this
// to limit+skip so a downstream Skip stage still has enough results
// to discard from.
type Sort struct {
	Pattern bsondoc.Document
	Limit   int64
	Child   Node
}

func (n *Sort) Children() []Node { return []Node{n.Child} }
func (n *Sort) String() string   { s, _ := n.MarshalJSON(); return string(s) }

func (n *Sort) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"#operator": "Sort",
		"pattern":   n.Pattern,
		"limit":     n.Limit,
		"child":     n.Child,
	})
}

// ShardingFilter discards documents that this shard does not own,
// inserted above a data-access node on a sharded collection.
type ShardingFilter struct {
	Child Node
}

func (n *ShardingFilter) Children() []Node { return []Node{n.Child} }
func (n *ShardingFilter) String() string   { s, _ := n.MarshalJSON(); return string(s) }

func (n *ShardingFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"#operator": "ShardingFilter",
		"child":     n.Child,
	})
}

// Project applies a projection document to Child's output.
type Project struct {
	Projection bsondoc.Document
	Child      Node
}

func (n *Project) Children() []Node { return []Node{n.Child} }
func (n *Project) String() string   { s, _ := n.MarshalJSON(); return string(s) }

func (n *Project) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"#operator":  "Project",
		"projection": n.Projection,
		"child":      n.Child,
	})
}

// Skip discards the first N results of Child's output.
type Skip struct {
	N     int64
	Child Node
}

func (n *Skip) Children() []Node { return []Node{n.Child} }
func (n *Skip) String() string   { s, _ := n.MarshalJSON(); return string(s) }

func (n *Skip) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"#operator": "Skip",
		"n":         n.N,
		"child":     n.Child,
	})
}

// Limit caps Child's output at N results.
type Limit struct {
	N     int64
	Child Node
}

func (n *Limit) Children() []Node { return []Node{n.Child} }
func (n *Limit) String() string   { s, _ := n.MarshalJSON(); return string(s) }

func (n *Limit) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"#operator": "Limit",
		"n":         n.N,
		"child":     n.Child,
	})
}
