package canonical

import "github.com/couchbaselabs/planshape/expression"

// ShouldCacheQuery reports whether cq is eligible for plan caching: a
// sort is requested or the root predicate is not an empty AND (a bare
// collection scan with no sort is never worth caching), and no hint,
// min, or max bound was supplied (those pin a specific plan already).
func ShouldCacheQuery(cq *CanonicalQuery) bool {
	root := cq.Root
	isEmptyCollscan := cq.Bundle.Sort.Empty() && root.Type == expression.AND && root.NumChildren() == 0
	if isEmptyCollscan {
		return false
	}
	if !cq.Bundle.Hint.Empty() {
		return false
	}
	if !cq.Bundle.Min.Empty() {
		return false
	}
	if !cq.Bundle.Max.Empty() {
		return false
	}
	return true
}
