package planner

import (
	"github.com/couchbaselabs/planshape/bsondoc"
	"github.com/couchbaselabs/planshape/plan"
)

// kMaxScansToExplode caps the total number of per-point scans a sort
// explosion may produce, summed across every exploded leaf. Beyond
// this, the extra scans cost more than the blocking sort they avoid.
const kMaxScansToExplode = 50

// ExplodeForSort attempts to rewrite root, a single index scan
// (optionally beneath a Fetch), into a merge-sorted union of per-point
// scans that together provide sortDoc without a blocking sort stage.
// It returns the rewritten tree and true on success, or root unchanged
// and false if root's structure is ineligible, its bounds don't expose
// a usable point prefix, the remaining key-pattern suffix doesn't
// match sortDoc, or the explosion would exceed kMaxScansToExplode.
func ExplodeForSort(root plan.Node, sortDoc bsondoc.Document) (plan.Node, bool) {
	scan, wrappedInFetch, ok := leafIndexScan(root)
	if !ok {
		return root, false
	}

	bounds := scan.Bounds
	if bounds.SimpleRange {
		return root, false
	}
	if len(bounds.Fields) != len(scan.KeyPattern) {
		return root, false
	}

	fieldsToExplode := 0
	numScans := 1
	for fieldsToExplode < len(bounds.Fields) && bounds.Fields[fieldsToExplode].IsUnionOfPoints() {
		numScans *= len(bounds.Fields[fieldsToExplode].Intervals)
		fieldsToExplode++
	}

	// p must be at least 1 (some prefix to explode), and there must be
	// at least one remaining field to gain a sort order from.
	if fieldsToExplode == 0 || fieldsToExplode == len(bounds.Fields) {
		return root, false
	}

	remaining := make(bsondoc.Document, 0, len(scan.KeyPattern)-fieldsToExplode)
	for i := fieldsToExplode; i < len(scan.KeyPattern); i++ {
		remaining = append(remaining, scan.KeyPattern[i])
	}
	if !sameSortOrder(remaining, sortDoc) {
		return root, false
	}

	if numScans > kMaxScansToExplode {
		return root, false
	}

	merged := explodeScan(scan, sortDoc, fieldsToExplode)
	if wrappedInFetch {
		return &plan.Fetch{Child: merged}, true
	}
	return merged, true
}

// leafIndexScan reports whether root is, or is a Fetch directly over,
// a single index scan — the only structures eligible for explosion.
func leafIndexScan(root plan.Node) (scan *plan.IndexScan, wrappedInFetch bool, ok bool) {
	switch t := root.(type) {
	case *plan.IndexScan:
		return t, false, true
	case *plan.Fetch:
		if s, ok := t.Child.(*plan.IndexScan); ok {
			return s, true, true
		}
	}
	return nil, false, false
}

// explodeScan turns the first fieldsToExplode fields of scan's bounds
// (each a union of points) into the Cartesian product of per-point
// prefixes, producing one child index scan per prefix, merge-sorted
// on sortDoc.
//
// Example: index (a,b), query a:{$in:[1,2]}, sort {b:1}: scan bounds
// are a:[[1,1],[2,2]], b:[MinKey,MaxKey]; fieldsToExplode is 1. The
// result is a merge-sort of two scans, one bounded to a:[[1,1]] and
// one to a:[[2,2]], both retaining b:[MinKey,MaxKey].
func explodeScan(scan *plan.IndexScan, sortDoc bsondoc.Document, fieldsToExplode int) *plan.MergeSort {
	prefixes := cartesianProduct(scan.Bounds, fieldsToExplode)

	branches := make([]plan.Node, len(prefixes))
	for i, prefix := range prefixes {
		child := &plan.IndexScan{
			KeyPattern: scan.KeyPattern.Copy(),
			Direction:  scan.Direction,
			Multikey:   scan.Multikey,
			Name:       scan.Name,
		}
		child.Bounds.Fields = make([]plan.OrderedIntervalList, len(scan.Bounds.Fields))
		for j := 0; j < fieldsToExplode; j++ {
			child.Bounds.Fields[j] = plan.OrderedIntervalList{
				Name:      scan.Bounds.Fields[j].Name,
				Intervals: []plan.Interval{prefix[j]},
			}
		}
		for j := fieldsToExplode; j < len(scan.Bounds.Fields); j++ {
			child.Bounds.Fields[j] = scan.Bounds.Fields[j]
		}
		branches[i] = child
	}

	return &plan.MergeSort{Sort: sortDoc, Branches: branches}
}

// cartesianProduct computes every combination of one point interval
// from each of the first fieldsToExplode fields of bounds, in
// field-major order.
func cartesianProduct(bounds plan.Bounds, fieldsToExplode int) [][]plan.Interval {
	first := bounds.Fields[0].Intervals
	prefixes := make([][]plan.Interval, len(first))
	for i, iv := range first {
		prefixes[i] = []plan.Interval{iv}
	}

	for i := 1; i < fieldsToExplode; i++ {
		var next [][]plan.Interval
		for _, iv := range bounds.Fields[i].Intervals {
			for _, p := range prefixes {
				np := make([]plan.Interval, len(p)+1)
				copy(np, p)
				np[len(p)] = iv
				next = append(next, np)
			}
		}
		prefixes = next
	}
	return prefixes
}
