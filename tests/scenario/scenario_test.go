//go:build integration

// +build integration

// Package scenario drives the generation pipeline and the matcher
// together end to end, the way fpctl's generate/match commands do,
// against the literal expectations enumerated for the system.
package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavemark/fprint/internal/catalog"
	"github.com/wavemark/fprint/internal/fpconfig"
	"github.com/wavemark/fprint/internal/matcher"
	"github.com/wavemark/fprint/internal/pcmformat"
	"github.com/wavemark/fprint/internal/pipeline"
	"github.com/wavemark/fprint/internal/wavfixture"
)

const sampleRate = 44100

// permissiveConfig favors deterministic, threshold-free peak and hash
// acceptance over realistic tuning, so these scenarios exercise the
// full pipeline→catalog→matcher wiring without depending on exact
// spectral magnitudes of the synthetic test tones.
func permissiveConfig() fpconfig.Config {
	return fpconfig.Config{
		FFT: fpconfig.FFT{FFTSize: 1024, HopSize: 512},
		PeakDetection: fpconfig.PeakDetection{
			LocalMaxRange:         2,
			TimeMaxRange:          2,
			MinPeaksPerFrame:      2,
			MaxPeaksPerFrameLimit: 20,
			MinPeakMagnitude:      0,
			MinFreq:               0,
			MaxFreq:               20000,
			PeakTimeDuration:      0.1,
			QuantileThreshold:     0.3,
			NumFrequencyBands:     4,
			EnergyWeightFactor:    0.5,
			SNRWeightFactor:       0.5,
		},
		SignatureGeneration: fpconfig.SignatureGeneration{
			MinFreqDelta:               1,
			MaxFreqDelta:               20000,
			MaxTimeDelta:               5.0,
			FrameDuration:              0.2,
			SymmetricFrameRange:        1,
			MinTripleFrameScore:        -1000,
			MaxTripleFrameCombinations: 50,
		},
		Matching: fpconfig.Matching{
			MaxCandidates:                     100,
			MaxCandidatesPerSignature:         10,
			MatchExpireTime:                   30,
			MinConfidenceThreshold:            0,
			MinMatchesRequired:                1,
			MinMatchesUniqueTimestampRequired: 1,
			OffsetTolerance:                   0.5,
		},
	}
}

func monoFormat(t *testing.T) pcmformat.Format {
	format, err := pcmformat.New(sampleRate, pcmformat.SignedInt16, pcmformat.LittleEndian, 1, true)
	require.NoError(t, err)
	return format
}

func generateSignature(t *testing.T, cfg fpconfig.Config, data []byte) []pipeline.SignaturePoint {
	p, err := pipeline.New(monoFormat(t), cfg, nil, nil)
	require.NoError(t, err)
	require.NoError(t, p.AppendStreamBuffer(data, 0.0))
	p.Flush()
	return p.Signature()
}

func runQuery(t *testing.T, cfg fpconfig.Config, cat *catalog.Catalog, chunks []struct {
	data  []byte
	start float64
}) []matcher.MatchResult {
	var results []matcher.MatchResult
	m := matcher.New(cat, cfg.Matching, 1, nil, func(r matcher.MatchResult) {
		results = append(results, r)
	})
	p, err := pipeline.New(monoFormat(t), cfg, nil, nil)
	require.NoError(t, err)
	p.SetPointCallback(m.ProcessPoint)

	for _, c := range chunks {
		require.NoError(t, p.AppendStreamBuffer(c.data, c.start))
	}
	p.Flush()
	return results
}

// Scenario 1: an empty catalog matched against silence must emit
// nothing and must not error.
func TestScenarioEmptyCatalogSilenceQuery(t *testing.T) {
	cfg := permissiveConfig()
	cat := catalog.New()

	silence := make([]byte, 10*sampleRate*2)
	results := runQuery(t, cfg, cat, []struct {
		data  []byte
		start float64
	}{{data: silence, start: 0.0}})

	assert.Empty(t, results)
}

// Scenario 2: querying the exact clip used to build the catalog
// produces exactly one session at zero offset, backed by matches
// that are bit-identical to the catalog's own signature (same PCM,
// same deterministic pipeline).
func TestScenarioExactClipMatchesAtZeroOffset(t *testing.T) {
	cfg := permissiveConfig()
	clip := wavfixture.GenerateToneWithNoise(sampleRate, 3000, 440, 0.05, 1)

	sig := generateSignature(t, cfg, clip)
	require.NotEmpty(t, sig, "a 3s tone under permissive thresholds must yield signature points")

	cat := catalog.New()
	cat.Add(sig, catalog.MediaItem{Title: "Clip C", Channels: 1, CustomInfo: map[string]string{}})

	results := runQuery(t, cfg, cat, []struct {
		data  []byte
		start float64
	}{{data: clip, start: 0.0}})

	require.Len(t, results, 1)
	assert.Equal(t, "Clip C", results[0].MediaItem.Title)
	assert.InDelta(t, 0.0, results[0].Offset, 0.05)
	assert.GreaterOrEqual(t, results[0].MatchCount, cfg.Matching.MinMatchesRequired)
}

// Scenario 3: the first 5 seconds of the same clip still match,
// since every point they produce is a causal prefix of the full
// clip's own signature.
func TestScenarioPartialClipStillMatches(t *testing.T) {
	cfg := permissiveConfig()
	clip := wavfixture.GenerateToneWithNoise(sampleRate, 10000, 440, 0.05, 2)

	sig := generateSignature(t, cfg, clip)
	require.NotEmpty(t, sig)

	cat := catalog.New()
	cat.Add(sig, catalog.MediaItem{Title: "Clip C", Channels: 1, CustomInfo: map[string]string{}})

	prefix := clip[:5*sampleRate*2]
	results := runQuery(t, cfg, cat, []struct {
		data  []byte
		start float64
	}{{data: prefix, start: 0.0}})

	require.Len(t, results, 1)
	assert.Equal(t, "Clip C", results[0].MediaItem.Title)
	assert.InDelta(t, 0.0, results[0].Offset, 0.05)
}

// Scenario 4: the query track, shifted 7 seconds into silence, must
// identify the right catalog entry at the right offset among
// multiple distinct tracks.
func TestScenarioShiftedQueryIdentifiesCorrectTrack(t *testing.T) {
	cfg := permissiveConfig()
	clip1 := wavfixture.GenerateToneWithNoise(sampleRate, 3000, 300, 0.05, 10)
	clip2 := wavfixture.GenerateToneWithNoise(sampleRate, 3000, 900, 0.05, 20)

	sig1 := generateSignature(t, cfg, clip1)
	sig2 := generateSignature(t, cfg, clip2)
	require.NotEmpty(t, sig1)
	require.NotEmpty(t, sig2)

	cat := catalog.New()
	cat.Add(sig1, catalog.MediaItem{Title: "Track One", Channels: 1, CustomInfo: map[string]string{}})
	cat.Add(sig2, catalog.MediaItem{Title: "Track Two", Channels: 1, CustomInfo: map[string]string{}})

	leadSilence := make([]byte, 7*sampleRate*2)
	results := runQuery(t, cfg, cat, []struct {
		data  []byte
		start float64
	}{
		{data: leadSilence, start: 0.0},
		{data: clip2, start: 7.0},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "Track Two", results[0].MediaItem.Title)
	assert.InDelta(t, 7.0, results[0].Offset, cfg.Matching.OffsetTolerance)
}
