package matcher

import "math"

func roundHalfAwayFromZero(x float64) float64 {
	if x < 0 {
		return math.Ceil(x - 0.5)
	}
	return math.Floor(x + 0.5)
}

// scoreParams carries the inputs to sessionScore.
type scoreParams struct {
	matchCount         int
	maxPossibleMatches int
	lastMatchTime      float64
	currentTime        float64
	matchExpireTime    float64
	offsets            []int64 // per-record offsets, milliseconds
}

func sessionScore(p scoreParams) float64 {
	density := densityScore(p.matchCount, p.maxPossibleMatches)
	count := countScore(p.matchCount)
	activity := activityScore(p.currentTime, p.lastMatchTime, p.matchExpireTime)
	consistency := consistencyScore(p.offsets)
	return 0.10*density + 0.50*count + 0.35*activity + 0.05*consistency
}

func densityScore(matchCount, maxPossibleMatches int) float64 {
	if maxPossibleMatches <= 0 {
		return 0
	}
	return math.Min(1, float64(matchCount)/float64(maxPossibleMatches))
}

func countScore(matchCount int) float64 {
	n := matchCount
	if n > 100 {
		n = 100
	}
	return math.Log(1+float64(n)) / math.Log(101)
}

func activityScore(currentTime, lastMatchTime, matchExpireTime float64) float64 {
	return math.Exp(-(currentTime - lastMatchTime) * math.Ln2 / (matchExpireTime / 3))
}

// consistencyScore rewards sessions whose offsets cluster tightly;
// single-record sessions have no variance to measure, so they default
// to the maximum score of 1.0.
func consistencyScore(offsets []int64) float64 {
	if len(offsets) <= 1 {
		return 1.0
	}
	var sum float64
	for _, o := range offsets {
		sum += float64(o)
	}
	mean := sum / float64(len(offsets))
	var variance float64
	for _, o := range offsets {
		d := float64(o) - mean
		variance += d * d
	}
	variance /= float64(len(offsets))
	stddev := math.Sqrt(variance)
	return math.Exp(-stddev / 1000)
}

func maxPossibleMatches(targetSignatureLen, queryChannels, targetChannels int) int {
	if targetChannels <= 0 {
		targetChannels = 1
	}
	channelRatio := math.Min(1, float64(queryChannels)/float64(targetChannels))
	return int(math.Floor(float64(targetSignatureLen) * channelRatio))
}

// confidence computes the emission confidence used to gate a match result.
func confidence(matchCount, maxPossibleMatches, minMatchesRequired int) float64 {
	switch {
	case matchCount >= maxPossibleMatches && maxPossibleMatches > 0:
		return 1.0
	case maxPossibleMatches > 0 && matchCount >= minMatchesRequired:
		return float64(matchCount) / float64(maxPossibleMatches)
	case matchCount >= minMatchesRequired && minMatchesRequired > 0:
		return float64(matchCount) / float64(minMatchesRequired)
	default:
		return 0
	}
}
