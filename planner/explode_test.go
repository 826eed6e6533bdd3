package planner

import (
	"testing"

	"github.com/couchbaselabs/planshape/bsondoc"
	"github.com/couchbaselabs/planshape/plan"
)

func pointInterval(v float64) plan.Interval {
	return plan.Interval{Low: v, High: v, LowInclusive: true, HighInclusive: true}
}

func fullInterval() plan.Interval {
	return plan.Interval{Low: plan.MinKey, High: plan.MaxKey, LowInclusive: true, HighInclusive: true}
}

// Index key pattern (a,b), query a:{$in:[1,2]}, sort {b:1}: rewrite
// produces a merge-sort of two scans, each with a bound to one point
// and the original b bounds untouched.
func TestExplodeForSortLiteralScenario(t *testing.T) {
	scan := &plan.IndexScan{
		KeyPattern: bsondoc.Document{{Name: "a", Value: 1.0}, {Name: "b", Value: 1.0}},
		Direction:  1,
		Bounds: plan.Bounds{Fields: []plan.OrderedIntervalList{
			{Name: "a", Intervals: []plan.Interval{pointInterval(1), pointInterval(2)}},
			{Name: "b", Intervals: []plan.Interval{fullInterval()}},
		}},
	}

	sortDoc := bsondoc.Document{{Name: "b", Value: 1.0}}
	rewritten, ok := ExplodeForSort(scan, sortDoc)
	if !ok {
		t.Fatalf("expected explosion to succeed")
	}

	merge, ok := rewritten.(*plan.MergeSort)
	if !ok {
		t.Fatalf("expected *plan.MergeSort, got %T", rewritten)
	}
	if len(merge.Branches) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(merge.Branches))
	}
	if !bsondoc.Equal(merge.Sort, sortDoc) {
		t.Fatalf("merge sort order does not match requested sort")
	}

	for i, branch := range merge.Branches {
		child, ok := branch.(*plan.IndexScan)
		if !ok {
			t.Fatalf("branch %d: expected *plan.IndexScan, got %T", i, branch)
		}
		if len(child.Bounds.Fields[0].Intervals) != 1 {
			t.Fatalf("branch %d: expected a single point interval for field a", i)
		}
		if len(child.Bounds.Fields[1].Intervals) != 1 || child.Bounds.Fields[1].Intervals[0] != scan.Bounds.Fields[1].Intervals[0] {
			t.Fatalf("branch %d: expected b bounds copied unchanged", i)
		}
	}
}

// With 51 points in the exploding prefix, the rewrite is refused.
func TestExplodeForSortRefusedAboveScanCap(t *testing.T) {
	intervals := make([]plan.Interval, kMaxScansToExplode+1)
	for i := range intervals {
		intervals[i] = pointInterval(float64(i))
	}
	scan := &plan.IndexScan{
		KeyPattern: bsondoc.Document{{Name: "a", Value: 1.0}, {Name: "b", Value: 1.0}},
		Direction:  1,
		Bounds: plan.Bounds{Fields: []plan.OrderedIntervalList{
			{Name: "a", Intervals: intervals},
			{Name: "b", Intervals: []plan.Interval{fullInterval()}},
		}},
	}

	_, ok := ExplodeForSort(scan, bsondoc.Document{{Name: "b", Value: 1.0}})
	if ok {
		t.Fatalf("expected explosion to be refused above kMaxScansToExplode")
	}
}

func TestExplodeForSortIneligibleStructure(t *testing.T) {
	cs := &plan.CollectionScan{}
	if _, ok := ExplodeForSort(cs, bsondoc.Document{{Name: "a", Value: 1.0}}); ok {
		t.Fatalf("collection scan should never be eligible for explosion")
	}
}

func TestExplodeForSortSuffixMismatch(t *testing.T) {
	scan := &plan.IndexScan{
		KeyPattern: bsondoc.Document{{Name: "a", Value: 1.0}, {Name: "b", Value: 1.0}},
		Direction:  1,
		Bounds: plan.Bounds{Fields: []plan.OrderedIntervalList{
			{Name: "a", Intervals: []plan.Interval{pointInterval(1), pointInterval(2)}},
			{Name: "b", Intervals: []plan.Interval{fullInterval()}},
		}},
	}
	// Requested sort is on a field that isn't the remaining suffix.
	_, ok := ExplodeForSort(scan, bsondoc.Document{{Name: "c", Value: 1.0}})
	if ok {
		t.Fatalf("expected refusal when remaining suffix doesn't match requested sort")
	}
}

// A scan whose bounds were collapsed into a single simple range (as a
// min()/max()-bounded query produces) carries no per-field point
// structure, so it must never be exploded even if Fields happens to
// still be populated.
func TestExplodeForSortRefusedForSimpleRangeBounds(t *testing.T) {
	scan := &plan.IndexScan{
		KeyPattern: bsondoc.Document{{Name: "a", Value: 1.0}, {Name: "b", Value: 1.0}},
		Direction:  1,
		Bounds: plan.Bounds{
			SimpleRange: true,
			Fields: []plan.OrderedIntervalList{
				{Name: "a", Intervals: []plan.Interval{pointInterval(1), pointInterval(2)}},
				{Name: "b", Intervals: []plan.Interval{fullInterval()}},
			},
		},
	}

	_, ok := ExplodeForSort(scan, bsondoc.Document{{Name: "b", Value: 1.0}})
	if ok {
		t.Fatalf("expected explosion to be refused for simple-range bounds")
	}
}

func TestExplodeForSortUnderFetch(t *testing.T) {
	scan := &plan.IndexScan{
		KeyPattern: bsondoc.Document{{Name: "a", Value: 1.0}, {Name: "b", Value: 1.0}},
		Direction:  1,
		Bounds: plan.Bounds{Fields: []plan.OrderedIntervalList{
			{Name: "a", Intervals: []plan.Interval{pointInterval(1), pointInterval(2)}},
			{Name: "b", Intervals: []plan.Interval{fullInterval()}},
		}},
	}
	root := &plan.Fetch{Child: scan}
	rewritten, ok := ExplodeForSort(root, bsondoc.Document{{Name: "b", Value: 1.0}})
	if !ok {
		t.Fatalf("expected explosion to succeed under a fetch")
	}
	fetch, ok := rewritten.(*plan.Fetch)
	if !ok {
		t.Fatalf("expected the fetch wrapper to be preserved, got %T", rewritten)
	}
	if _, ok := fetch.Child.(*plan.MergeSort); !ok {
		t.Fatalf("expected fetch child to be a merge sort, got %T", fetch.Child)
	}
}
