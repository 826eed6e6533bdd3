package canonical

import (
	"github.com/couchbaselabs/planshape/errors"
	"github.com/couchbaselabs/planshape/expression"
)

// CanonicalQuery is a Parsed Query Bundle plus its normalized,
// validated predicate tree and derived cache key. It exclusively owns
// its predicate tree: no other live object may hold a pointer into it.
type CanonicalQuery struct {
	Bundle ParsedQueryBundle
	Root   *expression.Node
	key    string
}

// Canonicalize normalizes bundle.Filter in place, validates the
// result, and derives the cache key. On failure no CanonicalQuery is
// produced and bundle is left untouched beyond whatever in-place
// normalization already happened to the tree it owns (the bundle is
// discarded by the caller on error, per the "no partial effect"
// policy).
func Canonicalize(bundle ParsedQueryBundle) (*CanonicalQuery, errors.Error) {
	root := normalize(bundle.Filter)
	if err := validate(root); err != nil {
		return nil, err
	}
	bundle.Filter = root

	cq := &CanonicalQuery{Bundle: bundle, Root: root}
	cq.key = key(root, bundle.Sort, bundle.Projection)
	return cq, nil
}

// Key returns the query's deterministic plan cache key: a pure
// function of (normalized tree, sort, projection). Two queries that
// canonicalize to structurally identical trees plus identical
// sort/projection always produce byte-identical keys.
func (cq *CanonicalQuery) Key() string { return cq.key }

// Namespace returns the collection identifier the query targets.
func (cq *CanonicalQuery) Namespace() string { return cq.Bundle.Namespace }
