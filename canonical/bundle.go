// Package canonical implements the Canonicalizer: it normalizes a raw
// predicate tree into a stable shape, validates it, and derives the
// deterministic cache key the Plan Cache and Allowed-Indexes Store key
// off of. The predicate-tree parser itself (turning wire-level filter
// documents into expression.Node trees) is an external collaborator;
// this package receives an already-parsed tree and takes ownership of
// it from there.
package canonical

import (
	"github.com/couchbaselabs/planshape/bsondoc"
	"github.com/couchbaselabs/planshape/expression"
)

// Document is the ordered document type used for sort, projection,
// hint, and min/max payloads.
type Document = bsondoc.Document

// ParsedQueryBundle carries everything the wire form of a query
// conveys, built once and never mutated afterward.
type ParsedQueryBundle struct {
	Namespace  string
	Filter     *expression.Node
	Sort       Document
	Projection Document
	Skip       int64
	Limit      int64
	Hint       Document
	Min        Document
	Max        Document
	Snapshot   bool
	BatchSize  int64
}

// Copy returns an independent deep copy of the bundle, including its
// filter tree and all of its documents.
func (b ParsedQueryBundle) Copy() ParsedQueryBundle {
	out := b
	out.Filter = b.Filter.Clone()
	out.Sort = b.Sort.Copy()
	out.Projection = b.Projection.Copy()
	out.Hint = b.Hint.Copy()
	out.Min = b.Min.Copy()
	out.Max = b.Max.Copy()
	return out
}
