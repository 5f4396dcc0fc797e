package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavemark/fprint/internal/catalog"
	"github.com/wavemark/fprint/internal/fpconfig"
	"github.com/wavemark/fprint/internal/pipeline"
)

func testMatchingConfig() fpconfig.Matching {
	return fpconfig.Matching{
		MaxCandidates:                     10,
		MaxCandidatesPerSignature:         3,
		MatchExpireTime:                   3.0,
		MinConfidenceThreshold:            0.3,
		MinMatchesRequired:                3,
		MinMatchesUniqueTimestampRequired: 2,
		OffsetTolerance:                   0.05,
	}
}

func buildCatalogWithOneTrack(points int) *catalog.Catalog {
	c := catalog.New()
	sig := make([]pipeline.SignaturePoint, points)
	for i := range sig {
		sig[i] = pipeline.SignaturePoint{
			Hash:      uint32(100 + i),
			Timestamp: float64(i) * 0.2,
			Frequency: 440,
			Amplitude: 1000,
		}
	}
	c.Add(sig, catalog.MediaItem{Title: "Track", Channels: 1, CustomInfo: map[string]string{}})
	return c
}

func TestMatcherEmitsOnceAfterEnoughMatches(t *testing.T) {
	cat := buildCatalogWithOneTrack(5)
	var results []MatchResult
	m := New(cat, testMatchingConfig(), 1, nil, func(r MatchResult) {
		results = append(results, r)
	})

	// Query points replaying the same hashes at a constant +10s offset.
	for i := 0; i < 5; i++ {
		q := pipeline.SignaturePoint{
			Hash:      uint32(100 + i),
			Timestamp: float64(i)*0.2 + 10.0,
			Frequency: 440,
			Amplitude: 1000,
		}
		m.ProcessPoint(q)
	}

	require.Len(t, results, 1)
	assert.InDelta(t, 10.0, results[0].Offset, 0.01)
	assert.Equal(t, "Track", results[0].MediaItem.Title)

	// Replaying the exact same hashes at the exact same offset must hit
	// the already-notified session and must not re-emit.
	for i := 0; i < 5; i++ {
		q := pipeline.SignaturePoint{
			Hash:      uint32(100 + i),
			Timestamp: float64(i)*0.2 + 10.0,
			Frequency: 440,
			Amplitude: 1000,
		}
		m.ProcessPoint(q)
	}
	assert.Len(t, results, 1, "a session must emit at most once")
}

func TestMatcherSessionCapacityBounds(t *testing.T) {
	cat := catalog.New()
	for s := 0; s < 5; s++ {
		sig := []pipeline.SignaturePoint{
			{Hash: uint32(1000 + s), Timestamp: 0, Frequency: 440, Amplitude: 1},
		}
		cat.Add(sig, catalog.MediaItem{Title: "t", Channels: 1, CustomInfo: map[string]string{}})
	}

	cfg := testMatchingConfig()
	cfg.MaxCandidates = 3
	m := New(cat, cfg, 1, nil, func(r MatchResult) {})

	// Each distinct offset per signature creates a distinct session key.
	for s := 0; s < 5; s++ {
		for offset := 0; offset < 4; offset++ {
			q := pipeline.SignaturePoint{Hash: uint32(1000 + s), Timestamp: float64(offset) + 0.001*float64(s), Frequency: 440, Amplitude: 1}
			m.ProcessPoint(q)
			assert.LessOrEqual(t, m.SessionCount(), cfg.MaxCandidates)
		}
	}
}

func TestMatcherMergesCloseOffsetSessions(t *testing.T) {
	cat := catalog.New()
	sig := []pipeline.SignaturePoint{
		{Hash: 1, Timestamp: 0, Frequency: 440, Amplitude: 1},
		{Hash: 2, Timestamp: 0.1, Frequency: 440, Amplitude: 1},
		{Hash: 3, Timestamp: 0.2, Frequency: 440, Amplitude: 1},
	}
	cat.Add(sig, catalog.MediaItem{Title: "t", Channels: 1, CustomInfo: map[string]string{}})

	cfg := testMatchingConfig()
	m := New(cat, cfg, 1, nil, func(r MatchResult) {})

	// Offsets 10.000s and 10.010s are within the 0.05s tolerance and
	// should fold into a single session rather than two.
	m.ProcessPoint(pipeline.SignaturePoint{Hash: 1, Timestamp: 10.000, Frequency: 440, Amplitude: 1})
	m.ProcessPoint(pipeline.SignaturePoint{Hash: 2, Timestamp: 10.110, Frequency: 440, Amplitude: 1})
	m.ProcessPoint(pipeline.SignaturePoint{Hash: 3, Timestamp: 10.220, Frequency: 440, Amplitude: 1})

	assert.Equal(t, 1, m.SessionCount())

	snapshots := m.DebugSessions()
	require.Len(t, snapshots, 1)
	assert.Equal(t, 3, snapshots[0].MatchCount)
	assert.Equal(t, 3, snapshots[0].UniqueTimestamps)
}
