package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavemark/fprint/internal/fpconfig"
)

func frameAt(ts float64, half int, baseline, spikeMag float32, spikeBin int) ShortFrame {
	mags := make([]float32, half)
	freqs := make([]float32, half)
	for k := 0; k < half; k++ {
		mags[k] = baseline
		freqs[k] = float32(k * 100)
	}
	if spikeBin >= 0 {
		mags[spikeBin] = spikeMag
	}
	return ShortFrame{Magnitudes: mags, Frequencies: freqs, Timestamp: ts}
}

func testPeakConfig() fpconfig.PeakDetection {
	return fpconfig.PeakDetection{
		LocalMaxRange:         1,
		TimeMaxRange:          1,
		MinPeaksPerFrame:      1,
		MaxPeaksPerFrameLimit: 5,
		MinPeakMagnitude:      5,
		MinFreq:               0,
		MaxFreq:               10000,
		PeakTimeDuration:      0.03,
		QuantileThreshold:     0.5,
		NumFrequencyBands:     4,
		EnergyWeightFactor:    0.5,
		SNRWeightFactor:       0.5,
	}
}

func TestPeakDetectFindsIsolatedSpike(t *testing.T) {
	const half = 8
	var allPeaks []Peak
	pd := newPeakDetect(testPeakConfig(), 1600, half, nil, func(peaks []Peak) {
		allPeaks = append(allPeaks, peaks...)
	})

	// Window0 ([0,0.03)) is the stream's first window and is skipped
	// for lack of left boundary context; window1 ([0.03,0.06)) holds
	// the spike at ts=0.05, bin=3.
	pd.handle(frameAt(0.00, half, 10, 0, -1))
	pd.handle(frameAt(0.01, half, 10, 0, -1))
	pd.handle(frameAt(0.02, half, 10, 0, -1))
	pd.handle(frameAt(0.03, half, 10, 0, -1))
	pd.handle(frameAt(0.04, half, 10, 0, -1))
	pd.handle(frameAt(0.05, half, 10, 80, 3))
	pd.handle(frameAt(0.06, half, 10, 0, -1))
	pd.handle(frameAt(0.07, half, 10, 0, -1))

	require.NotEmpty(t, allPeaks)
	found := false
	for _, pk := range allPeaks {
		if pk.Timestamp == 0.05 && pk.Frequency == 300 {
			found = true
		}
		assert.GreaterOrEqual(t, float64(pk.Magnitude), testPeakConfig().MinPeakMagnitude)
		assert.GreaterOrEqual(t, float64(pk.Frequency), testPeakConfig().MinFreq)
		assert.LessOrEqual(t, float64(pk.Frequency), testPeakConfig().MaxFreq)
	}
	assert.True(t, found, "expected the spike peak at ts=0.05 freq=300 to be detected")
}

func TestPeakDetectWindowQuotaNeverExceedsLimit(t *testing.T) {
	const half = 16
	cfg := testPeakConfig()
	cfg.MinPeakMagnitude = 0
	cfg.QuantileThreshold = 0.01

	var maxLen int
	pd := newPeakDetect(cfg, 1600, half, nil, func(peaks []Peak) {
		if len(peaks) > maxLen {
			maxLen = len(peaks)
		}
	})

	for i := 0; i < 12; i++ {
		mags := make([]float32, half)
		freqs := make([]float32, half)
		for k := 0; k < half; k++ {
			// Alternate high/low so nearly every bin is a local max
			// candidate, stress-testing the quota cap.
			if k%2 == 0 {
				mags[k] = 100
			} else {
				mags[k] = 1
			}
			freqs[k] = float32(k * 100)
		}
		pd.handle(ShortFrame{Magnitudes: mags, Frequencies: freqs, Timestamp: float64(i) * 0.01})
	}

	assert.LessOrEqual(t, maxLen, cfg.MaxPeaksPerFrameLimit)
}
