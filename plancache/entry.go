package plancache

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/couchbaselabs/planshape/bsondoc"
)

// kMaxFeedback bounds the number of feedback records an entry
// retains; once full, each new record is run through the degradation
// test and then discarded.
const kMaxFeedback = 20

// kStdDevThreshold is how many standard deviations a score may drift
// from the frozen baseline before the entry is evicted.
const kStdDevThreshold = 2.0

// PlanRankingDecision records the outcome of ranking candidate
// solutions: the winner's score, and enough supporting detail for the
// degradation test and for explain-style introspection.
type PlanRankingDecision struct {
	Score    float64
	Cost     float64
	TieBreak string
}

// FeedbackRecord is one post-execution measurement fed back to the
// cache to decide whether the earlier ranking still applies.
type FeedbackRecord struct {
	Score float64
}

// PlanCacheEntry owns one or more ranked solutions, the original
// query/sort/projection payloads (so the entry can be listed and
// re-canonicalized later), the ranking decision, an optional backup
// solution index, and a bounded feedback history.
type PlanCacheEntry struct {
	DebugID string

	Solutions  []*SolutionCacheData
	Query      bsondoc.Document
	Sort       bsondoc.Document
	Projection bsondoc.Document
	Decision   PlanRankingDecision

	// BackupSolutionIndex is the index, within Solutions, of the
	// first alternative that avoids a blocking sort, used when the
	// winner (Solutions[0]) has one. -1 means no such alternative
	// exists.
	BackupSolutionIndex int

	Feedback []FeedbackRecord

	// meanScore and stddevScore are the frozen baseline computed
	// exactly once, on the first feedback call made after Feedback
	// already holds kMaxFeedback records. They are never updated afterward: a slowly
	// drifting plan should not retrain its own baseline away from
	// what the ranker originally expected.
	meanScore   *float64
	stddevScore *float64
}

func newEntry(solutions []*SolutionCacheData, decision PlanRankingDecision) *PlanCacheEntry {
	e := &PlanCacheEntry{
		DebugID:             uuid.NewString(),
		Solutions:           solutions,
		Decision:            decision,
		BackupSolutionIndex: -1,
	}
	if len(solutions) > 0 && solutions[0].HasSortStage {
		for i := 1; i < len(solutions); i++ {
			if !solutions[i].HasSortStage {
				e.BackupSolutionIndex = i
				break
			}
		}
	}
	return e
}

// degraded applies the frozen-baseline degradation test. On its first
// call, made once Feedback already holds kMaxFeedback records, it
// computes and freezes mean/stddev, then checks the ranking decision's
// own score against that baseline. On every later call, it checks the
// new score against the frozen baseline without recomputing it.
func (e *PlanCacheEntry) degraded(latest FeedbackRecord) bool {
	if e.meanScore == nil {
		mean, stddev := meanStdDev(e.Feedback)
		e.meanScore = &mean
		e.stddevScore = &stddev
		return (e.Decision.Score - mean) > kStdDevThreshold*stddev
	}
	return (*e.meanScore - latest.Score) > kStdDevThreshold*(*e.stddevScore)
}

// meanStdDev computes the arithmetic mean and sample standard
// deviation (dividing by N-1) of a set of feedback scores.
func meanStdDev(records []FeedbackRecord) (mean, stddev float64) {
	n := float64(len(records))
	var sum float64
	for _, r := range records {
		sum += r.Score
	}
	mean = sum / n

	var sumSquares float64
	for _, r := range records {
		d := r.Score - mean
		sumSquares += d * d
	}
	if n > 1 {
		stddev = math.Sqrt(sumSquares / (n - 1))
	}
	return mean, stddev
}

func (e *PlanCacheEntry) String() string {
	return "(query: " + docString(e.Query) +
		"; sort: " + docString(e.Sort) +
		"; projection: " + docString(e.Projection) +
		"; solutions: " + strconv.Itoa(len(e.Solutions)) + ")"
}

func docString(d bsondoc.Document) string {
	var sb strings.Builder
	bsondoc.Encode(&sb, asDocOrNil(d))
	return sb.String()
}

func asDocOrNil(d bsondoc.Document) interface{} {
	if d.Empty() {
		return nil
	}
	return d
}
