// Package plancache implements the Plan Cache: a concurrent, key-to-
// entry mapping from a query shape to a reusable description of its
// winning plan, plus feedback-driven eviction when observed execution
// cost drifts too far from the ranking estimate.
package plancache

import (
	"strconv"

	"github.com/couchbaselabs/planshape/bsondoc"
)

// SolutionKind distinguishes the three Solution Cache Data variants.
type SolutionKind int

const (
	// CollectionScanSolution needs no index tree.
	CollectionScanSolution SolutionKind = iota
	// WholeIndexScanSolution references a single index by key pattern
	// plus scan direction, with no tagged expression tree.
	WholeIndexScanSolution
	// TaggedExpressionSolution carries a full Plan Cache Index Tree
	// mirroring the predicate tree.
	TaggedExpressionSolution
)

// IndexEntry identifies one candidate index as the planner saw it at
// ranking time: enough to rebuild the scan without re-consulting the
// (external) index catalog.
type IndexEntry struct {
	KeyPattern bsondoc.Document
	Multikey   bool
	Name       string
}

func (e IndexEntry) copy() IndexEntry {
	e.KeyPattern = e.KeyPattern.Copy()
	return e
}

// IndexTree is a shadow of the predicate tree annotated with the
// index chosen, during ranking, for each leaf. An unassigned leaf
// (Assigned == false) means no index was chosen for that predicate.
type IndexTree struct {
	Assigned bool
	Entry    IndexEntry
	Position int
	Children []*IndexTree
}

// Clone returns a full, independent deep copy.
func (t *IndexTree) Clone() *IndexTree {
	if t == nil {
		return nil
	}
	out := &IndexTree{Assigned: t.Assigned, Position: t.Position}
	if t.Assigned {
		out.Entry = t.Entry.copy()
	}
	if len(t.Children) > 0 {
		out.Children = make([]*IndexTree, len(t.Children))
		for i, c := range t.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// SolutionCacheData is a serializable summary of one ranked plan,
// sufficient to rebuild its execution tree without re-planning.
type SolutionCacheData struct {
	Kind SolutionKind

	// WholeIndexScan fields.
	IndexKeyPattern bsondoc.Document
	Direction       int

	// TaggedExpression field.
	Tree *IndexTree

	// AdminHintApplied records whether an administrator-pinned hint
	// (an Allowed-Indexes Store entry) was in effect when this
	// solution was produced.
	AdminHintApplied bool

	// HasSortStage is true when this solution's plan ends in a
	// blocking in-memory sort. Add() uses it to find a backup
	// solution that avoids one.
	HasSortStage bool
}

// Clone returns a full, independent deep copy.
func (s *SolutionCacheData) Clone() *SolutionCacheData {
	if s == nil {
		return nil
	}
	out := *s
	out.IndexKeyPattern = s.IndexKeyPattern.Copy()
	out.Tree = s.Tree.Clone()
	return &out
}

func (s *SolutionCacheData) String() string {
	switch s.Kind {
	case CollectionScanSolution:
		return "(collection scan)"
	case WholeIndexScanSolution:
		return "(whole index scan: dir=" + strconv.Itoa(s.Direction) + ")"
	default:
		return "(tagged-expression solution)"
	}
}
