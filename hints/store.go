// Package hints implements the Allowed-Indexes Store: a per-collection
// mapping from a query shape to an administrator-supplied list of
// index key patterns that planning must restrict itself to for that
// shape.
package hints

import (
	"sync"

	"github.com/couchbaselabs/planshape/bsondoc"
	"github.com/couchbaselabs/planshape/errors"
	"github.com/couchbaselabs/planshape/logging"
)

// Entry is one allowed-indexes record: the original query/sort/
// projection payloads (kept so the shape can be listed and
// re-canonicalized) plus the ordered list of permitted index key
// patterns.
type Entry struct {
	Query      bsondoc.Document
	Sort       bsondoc.Document
	Projection bsondoc.Document
	Indexes    []bsondoc.Document
}

func (e Entry) copy() Entry {
	out := Entry{
		Query:      e.Query.Copy(),
		Sort:       e.Sort.Copy(),
		Projection: e.Projection.Copy(),
	}
	if e.Indexes != nil {
		out.Indexes = make([]bsondoc.Document, len(e.Indexes))
		for i, idx := range e.Indexes {
			out.Indexes[i] = idx.Copy()
		}
	}
	return out
}

// Store is the Allowed-Indexes Store. One mutex guards the whole map,
// matching the Plan Cache's concurrency regime exactly.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]Entry)}
}

// SetAllowedIndices replaces (or inserts) the entry for key. indexes
// must be non-empty, and each index key pattern must itself be a
// non-empty document. The caller is responsible for then removing the
// corresponding Plan Cache entry, since the Store has no reference to
// a Plan Cache of its own.
func (s *Store) SetAllowedIndices(key string, query, sortDoc, projection bsondoc.Document, indexes []bsondoc.Document) errors.Error {
	if len(indexes) == 0 {
		return errors.NewBadValueError("hints: indexes must contain at least one index")
	}
	for _, idx := range indexes {
		if idx.Empty() {
			return errors.NewBadValueError("hints: index specification cannot be empty")
		}
	}

	entry := Entry{Query: query, Sort: sortDoc, Projection: projection, Indexes: indexes}.copy()

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	logging.Debugf("hints: set allowed indices key=%s count=%d", key, len(indexes))
	return nil
}

// RemoveAllowedIndices erases the entry for key, if present.
func (s *Store) RemoveAllowedIndices(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	logging.Debugf("hints: removed allowed indices key=%s", key)
}

// ClearAllowedIndices erases every entry.
func (s *Store) ClearAllowedIndices() {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = make(map[string]Entry)
	s.mu.Unlock()
	logging.Debugf("hints: cleared allowed indices count=%d", n)
}

// GetAllAllowedIndices returns a snapshot of every stored entry, keyed
// by shape key. Callers that need to evict a Plan Cache before
// clearing must take this snapshot first: the Store is the only
// record of which shape keys carry a hint.
func (s *Store) GetAllAllowedIndices() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Entry, len(s.entries))
	for k, e := range s.entries {
		out[k] = e.copy()
	}
	return out
}

// Get returns the entry for key, if present.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.copy(), true
}
