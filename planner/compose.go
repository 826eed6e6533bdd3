package planner

import (
	"github.com/couchbaselabs/planshape/bsondoc"
	"github.com/couchbaselabs/planshape/plan"
)

// Params bundles the per-query inputs to AnalyzeDataAccess that are
// not themselves part of the data-access tree under construction.
type Params struct {
	Sort              bsondoc.Document
	Projection        bsondoc.Document
	Skip              int64
	Limit             int64
	NeedsShardFilter  bool
	AllowBlockingSort bool
}

// Solution is the fully-composed data-access tree plus whether a
// blocking sort stage had to be added.
type Solution struct {
	Root         plan.Node
	HasSortStage bool
}

// AnalyzeDataAccess composes the final solution tree around root: an
// optional shard filter, the requested sort (providing it directly,
// by scan reversal, by sort explosion, or finally by a blocking sort
// stage), the requested projection, skip, and limit — in that order,
// mirroring the composition order of a hand-built plan. It returns
// (nil, false) only when a blocking sort is required to satisfy Sort
// but Params.AllowBlockingSort is false.
func AnalyzeDataAccess(root plan.Node, params Params) (*Solution, bool) {
	if params.NeedsShardFilter {
		if !fetched(root) {
			root = &plan.Fetch{Child: root}
		}
		root = &plan.ShardingFilter{Child: root}
	}

	root, hasSortStage, ok := analyzeSort(root, params.Sort, params.Skip, params.Limit, params.AllowBlockingSort)
	if !ok {
		return nil, false
	}

	if !params.Projection.Empty() {
		if !fetched(root) {
			root = &plan.Fetch{Child: root}
		}
		root = &plan.Project{Projection: params.Projection, Child: root}
	} else if !fetched(root) {
		root = &plan.Fetch{Child: root}
	}

	if params.Skip != 0 {
		root = &plan.Skip{N: params.Skip, Child: root}
	}

	// When a blocking sort stage is already present, its own Limit
	// field enforces the cap; adding a second Limit stage here would
	// be redundant.
	if params.Limit != 0 && !hasSortStage {
		root = &plan.Limit{N: params.Limit, Child: root}
	}

	return &Solution{Root: root, HasSortStage: hasSortStage}, true
}

// analyzeSort makes root provide sortDoc, preferring (in order): no
// sort requested, root already provides it, root provides the exact
// reverse (so scan direction can simply flip), sort explosion, and
// finally a blocking Sort stage if allowed.
func analyzeSort(root plan.Node, sortDoc bsondoc.Document, skip, limit int64, allowBlockingSort bool) (plan.Node, bool, bool) {
	if sortDoc.Empty() {
		return root, false, true
	}

	// $natural means "whatever order the access path already produces";
	// the caller is expected to have chosen a CollectionScan already if
	// that order matters, so there is nothing further to enforce.
	if hasNaturalSort(sortDoc) {
		return root, false, true
	}

	if providesSort(root, sortDoc) {
		return root, false, true
	}

	if reversed, ok := reverseScans(root, sortDoc); ok {
		return reversed, false, true
	}

	if exploded, ok := ExplodeForSort(root, sortDoc); ok {
		return exploded, false, true
	}

	if !allowBlockingSort {
		return nil, false, false
	}

	if !fetched(root) {
		root = &plan.Fetch{Child: root}
	}

	sortLimit := int64(0)
	if limit != 0 {
		sortLimit = limit + skip
	}
	return &plan.Sort{Pattern: sortDoc, Limit: sortLimit, Child: root}, true, true
}
