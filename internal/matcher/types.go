// Package matcher implements the streaming match-session engine of
// hash index lookup, session keying by reference+offset,
// opportunistic merging, score-based admission and eviction, and
// best-effort match emission.
package matcher

import "github.com/wavemark/fprint/internal/catalog"

// TargetRef is an arena-index reference into the catalog rather than
// a pointer, so it survives for the life of a matching run without
// risking invalidation.
type TargetRef struct {
	SignatureIndex uint32
	PointIndex     uint32
}

// SessionKey identifies a match session by catalog reference and the
// millisecond offset observed when the session was created. Offset
// never changes after creation, even as the session accumulates
// merges.
type SessionKey struct {
	OffsetMs     int32
	SignatureRef uint32
}

// matchRecord is one query/target pair folded into a session, kept
// for diagnostics, merge consistency scoring, and MatchResult output.
type matchRecord struct {
	offsetMs        int64
	queryTimestamp  float64
	targetTimestamp float64
}

// MatchingCandidate aggregates every match observed for one session
// key.
type MatchingCandidate struct {
	id  string
	key SessionKey

	matchCount       int
	uniqueTimestamps map[float64]struct{}
	actualOffsetSum  int64
	offsetCount      int64
	lastMatchTime    float64
	records          []matchRecord

	isNotified          bool
	isMatchCountChanged bool
}

func newCandidate(id string, key SessionKey, offsetMs int64, qts, tts float64) *MatchingCandidate {
	c := &MatchingCandidate{
		id:               id,
		key:              key,
		matchCount:       1,
		uniqueTimestamps: map[float64]struct{}{roundTo(qts, 0.01): {}},
		actualOffsetSum:  offsetMs,
		offsetCount:      1,
		lastMatchTime:    qts,
		records:          []matchRecord{{offsetMs: offsetMs, queryTimestamp: qts, targetTimestamp: tts}},
	}
	c.isMatchCountChanged = true
	return c
}

func (c *MatchingCandidate) meanOffsetMs() float64 {
	return float64(c.actualOffsetSum) / float64(c.offsetCount)
}

func (c *MatchingCandidate) uniqueTimestampCount() int {
	return len(c.uniqueTimestamps)
}

// absorb folds src into c following the merge rule: sum
// counts, union timestamps, sum offset accumulators, append records,
// take the max lastMatchTime. c's identity (key) never changes.
func (c *MatchingCandidate) absorb(src *MatchingCandidate) {
	c.matchCount += src.matchCount
	for ts := range src.uniqueTimestamps {
		c.uniqueTimestamps[ts] = struct{}{}
	}
	c.actualOffsetSum += src.actualOffsetSum
	c.offsetCount += src.offsetCount
	if src.lastMatchTime > c.lastMatchTime {
		c.lastMatchTime = src.lastMatchTime
	}
	c.records = append(c.records, src.records...)
	c.isMatchCountChanged = true
}

func roundTo(x, step float64) float64 {
	return roundHalfAwayFromZero(x/step) * step
}

// MatchedPoint is one query/target timestamp pair underlying a
// session, exposed on MatchResult for diagnostics.
type MatchedPoint struct {
	QueryTimestamp  float64
	TargetTimestamp float64
}

// MatchResult is the emitted outcome of a session crossing the
// acceptance threshold.
type MatchResult struct {
	ID                        string
	MediaItem                 catalog.MediaItem
	Offset                    float64
	Confidence                float64
	MatchedPoints             []MatchedPoint
	MatchCount                int
	UniqueTimestampMatchCount int
}
