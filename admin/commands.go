// Package admin implements the external command surface: operator
// commands for inspecting and pinning plan cache and allowed-indexes
// state, each returning a uniform {ok, code, errmsg, ...} result
// envelope.
package admin

import (
	"github.com/couchbaselabs/planshape/bsondoc"
	"github.com/couchbaselabs/planshape/canonical"
	"github.com/couchbaselabs/planshape/errors"
	"github.com/couchbaselabs/planshape/expression"
	"github.com/couchbaselabs/planshape/hints"
	"github.com/couchbaselabs/planshape/plancache"
)

// Result is the uniform command response envelope. OK is true on
// success; on failure Code and ErrMsg describe the error. Payload
// carries the command's own data (a list of hints, of shapes, ...).
type Result struct {
	OK      bool
	Code    errors.Kind
	ErrMsg  string
	Payload interface{}
}

func fail(err errors.Error) Result {
	return Result{OK: false, Code: err.Kind(), ErrMsg: err.Message()}
}

func ok(payload interface{}) Result {
	return Result{OK: true, Payload: payload}
}

// Server bundles one collection's Plan Cache and Allowed-Indexes
// Store, since every command here acts on both together.
type Server struct {
	Namespace string
	Cache     *plancache.Cache
	Hints     *hints.Store
}

// New returns a Server for one collection.
func New(namespace string, cache *plancache.Cache, store *hints.Store) *Server {
	return &Server{Namespace: namespace, Cache: cache, Hints: store}
}

// canonicalizeArgs parses the {query, sort, projection} fields common
// to every command that must resolve a query shape, and canonicalizes
// them into a cache key. filter is supplied pre-parsed since the wire
// syntax for match expressions is out of scope here; commands accept
// a Node built by an external collaborator.
func canonicalizeArgs(ns string, filter *expression.Node, sortDoc, projection bsondoc.Document) (*canonical.CanonicalQuery, errors.Error) {
	if filter == nil {
		filter = expression.NewLogical(expression.AND)
	}
	return canonical.Canonicalize(canonical.ParsedQueryBundle{
		Namespace:  ns,
		Filter:     filter,
		Sort:       sortDoc,
		Projection: projection,
	})
}

// HintShape describes one Allowed-Indexes Store entry as ListHints
// reports it.
type HintShape struct {
	Query      bsondoc.Document
	Sort       bsondoc.Document
	Projection bsondoc.Document
	Indexes    []bsondoc.Document
}

// ListHints displays every admin-pinned index restriction for the
// collection.
func (s *Server) ListHints() Result {
	entries := s.Hints.GetAllAllowedIndices()
	shapes := make([]HintShape, 0, len(entries))
	for _, e := range entries {
		shapes = append(shapes, HintShape{Query: e.Query, Sort: e.Sort, Projection: e.Projection, Indexes: e.Indexes})
	}
	return ok(shapes)
}

// QueryShape describes one cached query's shape, without its
// solutions.
type QueryShape struct {
	Query      bsondoc.Document
	Sort       bsondoc.Document
	Projection bsondoc.Document
}

// ListQueryShapes displays every cached query shape's query, sort,
// and projection (without their solutions).
func (s *Server) ListQueryShapes() Result {
	shapes := s.Cache.ListShapes()
	out := make([]QueryShape, 0, len(shapes))
	for _, sh := range shapes {
		out = append(out, QueryShape{Query: sh.Query, Sort: sh.Sort, Projection: sh.Projection})
	}
	return ok(out)
}

// SetHint sets (or overrides) the admin-pinned index list for the
// shape (rawQuery, sortDoc, projection), then evicts any existing
// Plan Cache entry for that shape so the next planning round consults
// the new restriction. rawQuery is the wire-level query document,
// kept verbatim so the shape can be listed later; filter is that same
// query already parsed into a predicate tree, used to derive the
// shape's key.
// Conceptually this runs under a read lock on the collection while
// performing a write mutation of the Allowed-Indexes Store; that's
// safe only because Store carries its own mutex independent of
// whatever locks the collection itself.
func (s *Server) SetHint(rawQuery bsondoc.Document, filter *expression.Node, sortDoc, projection bsondoc.Document, indexes []bsondoc.Document) Result {
	cq, err := canonicalizeArgs(s.Namespace, filter, sortDoc, projection)
	if err != nil {
		return fail(err)
	}

	if err := s.Hints.SetAllowedIndices(cq.Key(), rawQuery, sortDoc, projection, indexes); err != nil {
		return fail(err)
	}
	// The only way Remove can fail here is that the shape was never
	// cached in the first place, which is exactly the outcome a fresh
	// hint wants — nothing further to evict.
	_ = s.Cache.Remove(cq.Key())
	return ok(nil)
}

// ClearHintsArgs distinguishes ClearHints' two modes: HasQuery false
// clears every hint for the collection; HasQuery true clears only the
// hint of the shape given by Filter, Sort and Projection (a nil Filter
// stands for the empty query).
type ClearHintsArgs struct {
	HasQuery   bool
	Filter     *expression.Node
	Sort       bsondoc.Document
	Projection bsondoc.Document
}

// ClearHints clears one shape's admin hint (HasQuery true) or every
// hint in the collection (HasQuery false), evicting the corresponding
// Plan Cache entries either way. Supplying Sort or Projection with
// HasQuery false is rejected: a caller who forgot the query should not
// silently clear the entire collection.
func (s *Server) ClearHints(args ClearHintsArgs) Result {
	if args.HasQuery {
		cq, err := canonicalizeArgs(s.Namespace, args.Filter, args.Sort, args.Projection)
		if err != nil {
			return fail(err)
		}
		s.Hints.RemoveAllowedIndices(cq.Key())
		_ = s.Cache.Remove(cq.Key())
		return ok(nil)
	}

	if !args.Sort.Empty() || !args.Projection.Empty() {
		return fail(errors.NewBadValueError("admin: sort or projection provided without query"))
	}

	// Snapshot before clearing: the store is the only record of which
	// shape keys carry a hint, and each of those keys names the Plan
	// Cache entry to evict.
	entries := s.Hints.GetAllAllowedIndices()
	s.Hints.ClearAllowedIndices()

	for key := range entries {
		_ = s.Cache.Remove(key)
	}
	return ok(nil)
}
