package canonical

import (
	"github.com/couchbaselabs/planshape/errors"
	"github.com/couchbaselabs/planshape/expression"
)

// validate enforces the structural rules a normalized tree must
// satisfy before it can become a CanonicalQuery: at most one TEXT (and
// never inside a NOR subtree), at most one GEO_NEAR (and only at the
// root or as a direct child of a root AND), and TEXT/GEO_NEAR must not
// coexist.
func validate(root *expression.Node) errors.Error {
	numText := countNodes(root, expression.TEXT)
	if numText > 1 {
		return errors.NewBadValueError("too many TEXT expressions")
	}
	if numText == 1 && hasNodeInSubtree(root, expression.TEXT, expression.NOR) {
		return errors.NewBadValueError("TEXT expression not allowed inside NOR")
	}

	numGeoNear := countNodes(root, expression.GEO_NEAR)
	if numGeoNear > 1 {
		return errors.NewBadValueError("too many GEO_NEAR expressions")
	}
	if numGeoNear == 1 && !geoNearIsTopLevel(root) {
		return errors.NewBadValueError("GEO_NEAR must be a top-level expression")
	}

	if numText > 0 && numGeoNear > 0 {
		return errors.NewBadValueError("TEXT and GEO_NEAR not allowed in the same query")
	}

	return nil
}

func countNodes(root *expression.Node, t expression.MatchType) int {
	if root == nil {
		return 0
	}
	sum := 0
	if root.Type == t {
		sum = 1
	}
	for _, c := range root.Children {
		sum += countNodes(c, t)
	}
	return sum
}

// hasNodeInSubtree reports whether root has a subtree of type
// subtreeType that itself contains a node of type childType.
func hasNodeInSubtree(root *expression.Node, childType, subtreeType expression.MatchType) bool {
	if root == nil {
		return false
	}
	if root.Type == subtreeType {
		return hasNode(root, childType)
	}
	for _, c := range root.Children {
		if hasNodeInSubtree(c, childType, subtreeType) {
			return true
		}
	}
	return false
}

func hasNode(root *expression.Node, t expression.MatchType) bool {
	if root == nil {
		return false
	}
	if root.Type == t {
		return true
	}
	for _, c := range root.Children {
		if hasNode(c, t) {
			return true
		}
	}
	return false
}

func geoNearIsTopLevel(root *expression.Node) bool {
	if root.Type == expression.GEO_NEAR {
		return true
	}
	if root.Type == expression.AND {
		for _, c := range root.Children {
			if c.Type == expression.GEO_NEAR {
				return true
			}
		}
	}
	return false
}
