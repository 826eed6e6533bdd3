package plancache

import (
	"sync"
	"sync/atomic"

	"github.com/couchbaselabs/planshape/bsondoc"
	"github.com/couchbaselabs/planshape/errors"
	"github.com/couchbaselabs/planshape/logging"
)

// kPlanCacheMaxWriteOperations is the number of insert/update/delete
// operations against the collection that, once accumulated, triggers
// a full clear of the cache. There is no per-entry expiry: apart from
// explicit Remove and Clear calls, a plan is only ever evicted by the
// write-op threshold or by a degraded feedback score, never by age or
// by an LRU policy.
const kPlanCacheMaxWriteOperations = 1000

// CachedSolution is what Get hands back: an independent deep clone of
// a cache entry's solutions, safe for the caller to mutate freely.
type CachedSolution struct {
	Solutions           []*SolutionCacheData
	Decision            PlanRankingDecision
	BackupSolutionIndex int
}

// Cache is the Plan Cache: a concurrent, shape-keyed map from
// canonicalized queries to their winning (and, where applicable,
// backup) solutions. One mutex guards the whole map; there is no
// per-entry locking and no per-entry LRU bookkeeping.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*PlanCacheEntry

	writeOps uint64
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*PlanCacheEntry)}
}

// Add inserts (or replaces) the entry for key, deep-copying solutions
// and the supplied query/sort/projection documents so the cache never
// aliases caller-owned memory.
func (c *Cache) Add(key string, query, sortDoc, projection bsondoc.Document, solutions []*SolutionCacheData, decision PlanRankingDecision) errors.Error {
	if len(solutions) == 0 {
		return errors.NewBadValueError("plancache: Add requires at least one solution")
	}
	cloned := make([]*SolutionCacheData, len(solutions))
	for i, s := range solutions {
		cloned[i] = s.Clone()
	}

	entry := newEntry(cloned, decision)
	entry.Query = query.Copy()
	entry.Sort = sortDoc.Copy()
	entry.Projection = projection.Copy()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	logging.Debugf("plancache: add key=%s solutions=%d debugID=%s", key, len(cloned), entry.DebugID)
	return nil
}

// Get returns a deep clone of the cached solutions for key, or a
// BadValue error if absent. The clone means that neither the caller's
// subsequent mutation of the result, nor a concurrent Add/Remove
// racing against this call, can corrupt the other's view.
func (c *Cache) Get(key string) (*CachedSolution, errors.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, errors.NewBadValueError("plancache: no such key in cache")
	}

	out := &CachedSolution{
		Decision:            entry.Decision,
		BackupSolutionIndex: entry.BackupSolutionIndex,
		Solutions:           make([]*SolutionCacheData, len(entry.Solutions)),
	}
	for i, s := range entry.Solutions {
		out.Solutions[i] = s.Clone()
	}
	return out, nil
}

// Feedback records one post-execution score against the cached entry
// for key and evicts the entry if the frozen-baseline degradation
// test judges the plan to have degraded. A key with no cached entry
// returns a BadValue error: feedback can still race an eviction that
// already happened for an unrelated reason, but that race is the
// caller's to observe, not to have silently swallowed here.
func (c *Cache) Feedback(key string, record FeedbackRecord) errors.Error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return errors.NewBadValueError("plancache: no such key in cache")
	}

	if len(entry.Feedback) < kMaxFeedback {
		entry.Feedback = append(entry.Feedback, record)
		return nil
	}

	if entry.degraded(record) {
		logging.Debugf("plancache: evicting key=%s on degraded feedback debugID=%s", key, entry.DebugID)
		delete(c.entries, key)
	}
	return nil
}

// Remove evicts the entry for key, returning a BadValue error if no
// such entry exists. This is how a mutation of the Allowed-Indexes
// Store invalidates the corresponding plan.
func (c *Cache) Remove(key string) errors.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return errors.NewBadValueError("plancache: no such key in cache")
	}
	delete(c.entries, key)
	logging.Debugf("plancache: evicting key=%s", key)
	return nil
}

// Clear evicts every entry unconditionally.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*PlanCacheEntry)
	c.mu.Unlock()
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Shape is a listable summary of one cache entry, used by the
// external list-query-shapes interface.
type Shape struct {
	Key        string
	Query      bsondoc.Document
	Sort       bsondoc.Document
	Projection bsondoc.Document
}

// ListShapes returns a snapshot of every cached query shape. Each
// returned document is an independent copy.
func (c *Cache) ListShapes() []Shape {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Shape, 0, len(c.entries))
	for k, e := range c.entries {
		out = append(out, Shape{
			Key:        k,
			Query:      e.Query.Copy(),
			Sort:       e.Sort.Copy(),
			Projection: e.Projection.Copy(),
		})
	}
	return out
}

// StoredSolution is one snapshotted GetAllSolutions entry: an
// independent deep clone of everything a cache entry holds, keyed by
// its shape key.
type StoredSolution struct {
	Key                 string
	Query               bsondoc.Document
	Sort                bsondoc.Document
	Projection          bsondoc.Document
	Solutions           []*SolutionCacheData
	Decision            PlanRankingDecision
	BackupSolutionIndex int
}

// GetAllSolutions returns a deep-cloned snapshot of every entry
// currently in the cache, solutions included. Unlike ListShapes this
// carries the full solution set per entry, for callers that need to
// inspect (not just enumerate) what the cache is holding.
func (c *Cache) GetAllSolutions() []StoredSolution {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]StoredSolution, 0, len(c.entries))
	for k, e := range c.entries {
		solutions := make([]*SolutionCacheData, len(e.Solutions))
		for i, s := range e.Solutions {
			solutions[i] = s.Clone()
		}
		out = append(out, StoredSolution{
			Key:                 k,
			Query:               e.Query.Copy(),
			Sort:                e.Sort.Copy(),
			Projection:          e.Projection.Copy(),
			Solutions:           solutions,
			Decision:            e.Decision,
			BackupSolutionIndex: e.BackupSolutionIndex,
		})
	}
	return out
}

// NotifyOfWriteOp records that one insert/update/delete happened
// against the collection this cache belongs to. Every
// kPlanCacheMaxWriteOperations operations, the entire cache is
// cleared: a burst of writes can shift selectivity enough that every
// cached plan deserves re-ranking, and there is no cheaper way to
// know which entries are affected.
func (c *Cache) NotifyOfWriteOp() {
	n := atomic.AddUint64(&c.writeOps, 1)
	if n%kPlanCacheMaxWriteOperations == 0 {
		logging.Warnf("plancache: clearing cache after %d write operations", n)
		c.Clear()
	}
}
