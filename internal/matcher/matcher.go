package matcher

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wavemark/fprint/internal/catalog"
	"github.com/wavemark/fprint/internal/fpconfig"
	"github.com/wavemark/fprint/internal/metrics"
	"github.com/wavemark/fprint/internal/pipeline"
)

// Matcher indexes a catalog once at construction and accumulates
// match sessions as SignaturePoints arrive from the generation
// pipeline.
type Matcher struct {
	cat           *catalog.Catalog
	cfg           fpconfig.Matching
	queryChannels int

	hashIndex map[uint32][]TargetRef

	sessions             map[SessionKey]*MatchingCandidate
	sessionsPerSignature map[uint32]int
	sessionsBySignature  map[uint32]map[SessionKey]struct{}

	metrics *metrics.Manager
	onMatch func(MatchResult)
}

// New builds a Matcher over cat. queryChannels is the channel count
// of the query stream this matcher will process, used in the density
// score's channel ratio.
func New(cat *catalog.Catalog, cfg fpconfig.Matching, queryChannels int, m *metrics.Manager, onMatch func(MatchResult)) *Matcher {
	if m == nil {
		m = metrics.GetManager()
	}
	mt := &Matcher{
		cat:                  cat,
		cfg:                  cfg,
		queryChannels:        queryChannels,
		hashIndex:            make(map[uint32][]TargetRef),
		sessions:             make(map[SessionKey]*MatchingCandidate),
		sessionsPerSignature: make(map[uint32]int),
		sessionsBySignature:  make(map[uint32]map[SessionKey]struct{}),
		metrics:              m,
		onMatch:              onMatch,
	}
	mt.buildIndex()
	return mt
}

func (m *Matcher) buildIndex() {
	for sigIdx, points := range m.cat.Signatures() {
		for pointIdx, pt := range points {
			ref := TargetRef{SignatureIndex: uint32(sigIdx), PointIndex: uint32(pointIdx)}
			m.hashIndex[pt.Hash] = append(m.hashIndex[pt.Hash], ref)
		}
	}
}

// ProcessPoint handles one incoming query SignaturePoint: index
// lookup, merge-first-then-admission for every colliding target, then
// a global merge sweep over the signature groups this point touched,
// followed by an emission pass and an expiry pass over all sessions.
func (m *Matcher) ProcessPoint(q pipeline.SignaturePoint) {
	start := time.Now()
	defer func() {
		if m.metrics != nil {
			m.metrics.ObserveBatchDuration(time.Since(start).Seconds())
		}
	}()

	targets := m.hashIndex[q.Hash]
	if len(targets) == 0 {
		return
	}

	touched := make(map[uint32]struct{})
	for _, target := range targets {
		sigRef := target.SignatureIndex
		touched[sigRef] = struct{}{}
		m.processTarget(q, target)
	}

	for sigRef := range touched {
		m.mergeSweep(sigRef)
	}
	m.emit(q.Timestamp)
	m.expire(q.Timestamp)

	if m.metrics != nil {
		m.metrics.SetSessionsActive(len(m.sessions))
	}
}

func (m *Matcher) processTarget(q pipeline.SignaturePoint, target TargetRef) {
	points, _ := m.cat.Get(int(target.SignatureIndex))
	if int(target.PointIndex) >= len(points) {
		return
	}
	targetPoint := points[target.PointIndex]

	offsetMs := int64(math.Floor((q.Timestamp - targetPoint.Timestamp) * 1000))
	key := SessionKey{OffsetMs: int32(offsetMs), SignatureRef: target.SignatureIndex}

	if existing, ok := m.sessions[key]; ok {
		// A session emits at most once, so further hits at the same
		// offset/signature are dropped rather than spawning a shadow
		// candidate that would overwrite it in the map.
		if existing.isNotified {
			return
		}
		existing.matchCount++
		existing.uniqueTimestamps[roundTo(q.Timestamp, 0.01)] = struct{}{}
		existing.actualOffsetSum += offsetMs
		existing.offsetCount++
		existing.lastMatchTime = q.Timestamp
		existing.isMatchCountChanged = true
		existing.records = append(existing.records, matchRecord{
			offsetMs: offsetMs, queryTimestamp: q.Timestamp, targetTimestamp: targetPoint.Timestamp,
		})
		return
	}

	candidate := newCandidate(uuid.NewString(), key, offsetMs, q.Timestamp, targetPoint.Timestamp)

	if m.tryMerge(candidate) {
		return
	}
	m.tryAdmit(candidate, target)
}

// tryMerge looks for an existing session of the same signature whose
// mean offset is within offsetTolerance of candidate's, folding
// candidate into it on success (the merge-first rule).
func (m *Matcher) tryMerge(candidate *MatchingCandidate) bool {
	toleranceMs := m.cfg.OffsetTolerance * 1000
	for key := range m.sessionsBySignature[candidate.key.SignatureRef] {
		existing := m.sessions[key]
		if existing == nil || existing.isNotified {
			continue
		}
		if math.Abs(existing.meanOffsetMs()-candidate.meanOffsetMs()) <= toleranceMs {
			existing.absorb(candidate)
			return true
		}
	}
	return false
}

// tryAdmit applies the two ordered capacity checks (per-signature, then
// global), inserting candidate as a new session only if it clears them.
func (m *Matcher) tryAdmit(candidate *MatchingCandidate, target TargetRef) {
	sigRef := candidate.key.SignatureRef

	if m.sessionsPerSignature[sigRef] >= m.cfg.MaxCandidatesPerSignature {
		lowest := m.lowestScoring(m.sessionsBySignature[sigRef])
		if lowest == nil || m.scoreOf(candidate, target) <= m.scoreOf(lowest, target)+0.1 {
			return
		}
		m.remove(lowest.key)
		if m.metrics != nil {
			m.metrics.IncSessionsEvicted()
		}
	} else if len(m.sessions) >= m.cfg.MaxCandidates {
		lowest := m.lowestScoringAll()
		if lowest == nil || m.scoreOf(candidate, target) <= m.scoreOfSession(lowest)+0.1 {
			return
		}
		m.remove(lowest.key)
		if m.metrics != nil {
			m.metrics.IncSessionsEvicted()
		}
	}

	m.insert(candidate)
}

func (m *Matcher) insert(c *MatchingCandidate) {
	m.sessions[c.key] = c
	m.sessionsPerSignature[c.key.SignatureRef]++
	if m.sessionsBySignature[c.key.SignatureRef] == nil {
		m.sessionsBySignature[c.key.SignatureRef] = make(map[SessionKey]struct{})
	}
	m.sessionsBySignature[c.key.SignatureRef][c.key] = struct{}{}
	if m.metrics != nil {
		m.metrics.IncSessionsCreated()
	}
}

func (m *Matcher) remove(key SessionKey) {
	c, ok := m.sessions[key]
	if !ok {
		return
	}
	delete(m.sessions, key)
	m.sessionsPerSignature[key.SignatureRef]--
	delete(m.sessionsBySignature[key.SignatureRef], key)
	_ = c
}

func (m *Matcher) lowestScoring(keys map[SessionKey]struct{}) *MatchingCandidate {
	var lowest *MatchingCandidate
	var lowestScore float64
	for key := range keys {
		c := m.sessions[key]
		if c == nil {
			continue
		}
		s := m.scoreOfSession(c)
		if lowest == nil || s < lowestScore {
			lowest, lowestScore = c, s
		}
	}
	return lowest
}

func (m *Matcher) lowestScoringAll() *MatchingCandidate {
	var lowest *MatchingCandidate
	var lowestScore float64
	for _, c := range m.sessions {
		s := m.scoreOfSession(c)
		if lowest == nil || s < lowestScore {
			lowest, lowestScore = c, s
		}
	}
	return lowest
}

func (m *Matcher) scoreOf(c *MatchingCandidate, target TargetRef) float64 {
	points, _ := m.cat.Get(int(target.SignatureIndex))
	return m.scoreWithSignatureLen(c, len(points), int(target.SignatureIndex))
}

func (m *Matcher) scoreOfSession(c *MatchingCandidate) float64 {
	points, _ := m.cat.Get(int(c.key.SignatureRef))
	return m.scoreWithSignatureLen(c, len(points), int(c.key.SignatureRef))
}

func (m *Matcher) scoreWithSignatureLen(c *MatchingCandidate, sigLen, sigIdx int) float64 {
	_, item := m.cat.Get(sigIdx)
	targetChannels := item.Channels
	if targetChannels <= 0 {
		targetChannels = 1
	}
	maxPossible := maxPossibleMatches(sigLen, m.queryChannels, targetChannels)
	offsets := make([]int64, len(c.records))
	for i, r := range c.records {
		offsets[i] = r.offsetMs
	}
	return sessionScore(scoreParams{
		matchCount:         c.matchCount,
		maxPossibleMatches: maxPossible,
		lastMatchTime:      c.lastMatchTime,
		currentTime:        c.lastMatchTime,
		matchExpireTime:    m.cfg.MatchExpireTime,
		offsets:            offsets,
	})
}

// mergeSweep sorts sigRef's sessions by mean offset and merges
// adjacent pairs within tolerance, catching late-arriving mergeable
// sessions the per-point merge-first step missed (a global merge
// sweep). Only adjacent pairs are folded per pass; a chain of three
// mutually-close sessions converges over several batches rather than
// in one.
func (m *Matcher) mergeSweep(sigRef uint32) {
	keys := m.sessionsBySignature[sigRef]
	if len(keys) < 2 {
		return
	}
	ordered := make([]*MatchingCandidate, 0, len(keys))
	for key := range keys {
		ordered = append(ordered, m.sessions[key])
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].meanOffsetMs() < ordered[j].meanOffsetMs() })

	toleranceMs := m.cfg.OffsetTolerance * 1000
	for i := 0; i+1 < len(ordered); i++ {
		primary, secondary := ordered[i], ordered[i+1]
		if primary.isNotified || secondary.isNotified ||
			math.Abs(secondary.meanOffsetMs()-primary.meanOffsetMs()) > toleranceMs {
			continue
		}
		primary.absorb(secondary)
		m.removeFromSignatureSet(sigRef, secondary.key)
		delete(m.sessions, secondary.key)
		m.sessionsPerSignature[sigRef]--
		if m.metrics != nil {
			m.metrics.IncSessionsMerged()
		}
		i++ // secondary is gone; the next pair starts after it
	}
}

func (m *Matcher) removeFromSignatureSet(sigRef uint32, key SessionKey) {
	if set, ok := m.sessionsBySignature[sigRef]; ok {
		delete(set, key)
	}
}

// emit runs the emission pass over every session touched
// this batch.
func (m *Matcher) emit(currentTime float64) {
	for key, c := range m.sessions {
		if !c.isMatchCountChanged || c.isNotified {
			continue
		}
		c.isMatchCountChanged = false

		points, item := m.cat.Get(int(key.SignatureRef))
		targetChannels := item.Channels
		if targetChannels <= 0 {
			targetChannels = 1
		}
		maxPossible := maxPossibleMatches(len(points), m.queryChannels, targetChannels)

		if c.matchCount >= m.cfg.MinMatchesRequired && c.uniqueTimestampCount() >= m.cfg.MinMatchesUniqueTimestampRequired {
			result := MatchResult{
				ID:                        c.id,
				MediaItem:                 item,
				Offset:                    c.meanOffsetMs() / 1000,
				Confidence:                confidence(c.matchCount, maxPossible, m.cfg.MinMatchesRequired),
				MatchCount:                c.matchCount,
				UniqueTimestampMatchCount: c.uniqueTimestampCount(),
				MatchedPoints:             matchedPointsOf(c),
			}
			c.isNotified = true
			if m.metrics != nil {
				m.metrics.IncMatchesEmitted()
			}
			if m.onMatch != nil {
				m.onMatch(result)
			}
		}
	}
	_ = currentTime
}

func matchedPointsOf(c *MatchingCandidate) []MatchedPoint {
	out := make([]MatchedPoint, len(c.records))
	for i, r := range c.records {
		out[i] = MatchedPoint{QueryTimestamp: r.queryTimestamp, TargetTimestamp: r.targetTimestamp}
	}
	return out
}

// expire removes sessions whose last match is older than
// matchExpireTime relative to currentTime.
func (m *Matcher) expire(currentTime float64) {
	for key, c := range m.sessions {
		if c.lastMatchTime+m.cfg.MatchExpireTime < currentTime {
			delete(m.sessions, key)
			m.sessionsPerSignature[key.SignatureRef]--
			m.removeFromSignatureSet(key.SignatureRef, key)
			if m.metrics != nil {
				m.metrics.IncSessionsExpired()
			}
		}
	}
}

// SessionCount returns the number of live sessions, mainly for tests
// and diagnostics.
func (m *Matcher) SessionCount() int {
	return len(m.sessions)
}

// SessionSnapshot is a read-only view of one live match session,
// exposed for the CLI's `match --debug` flag and for tests asserting
// commutative merging without mutating matcher state.
type SessionSnapshot struct {
	ID               string
	SignatureRef     uint32
	OffsetMs         int32
	MatchCount       int
	UniqueTimestamps int
	MeanOffsetMs     float64
	LastMatchTime    float64
	IsNotified       bool
}

// DebugSessions returns a snapshot of every session currently held by
// the matcher, in no particular order.
func (m *Matcher) DebugSessions() []SessionSnapshot {
	out := make([]SessionSnapshot, 0, len(m.sessions))
	for _, c := range m.sessions {
		out = append(out, SessionSnapshot{
			ID:               c.id,
			SignatureRef:     c.key.SignatureRef,
			OffsetMs:         c.key.OffsetMs,
			MatchCount:       c.matchCount,
			UniqueTimestamps: c.uniqueTimestampCount(),
			MeanOffsetMs:     c.meanOffsetMs(),
			LastMatchTime:    c.lastMatchTime,
			IsNotified:       c.isNotified,
		})
	}
	return out
}
