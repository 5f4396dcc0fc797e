package wavfixture

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToneWithNoiseIsDeterministic(t *testing.T) {
	a := GenerateToneWithNoise(8000, 100, 440, 0.1, 42)
	b := GenerateToneWithNoise(8000, 100, 440, 0.1, 42)
	assert.Equal(t, a, b, "the same seed must reproduce the exact same samples")
}

func TestGenerateToneWithNoiseDiffersAcrossSeeds(t *testing.T) {
	a := GenerateToneWithNoise(8000, 100, 440, 0.1, 1)
	b := GenerateToneWithNoise(8000, 100, 440, 0.1, 2)
	assert.NotEqual(t, a, b)
}

func TestGenerateToneWithNoiseProducesExpectedByteLength(t *testing.T) {
	const sampleRate, durationMs = 16000, 250
	out := GenerateToneWithNoise(sampleRate, durationMs, 1000, 0.0, 7)
	wantSamples := sampleRate * durationMs / 1000
	require.Len(t, out, wantSamples*2, "16-bit samples are 2 bytes each")
}

func TestGenerateToneWithNoiseStaysWithinInt16Range(t *testing.T) {
	out := GenerateToneWithNoise(8000, 50, 2000, 5.0, 99)
	require.True(t, len(out)%2 == 0)
	for i := 0; i+1 < len(out); i += 2 {
		v := int16(binary.LittleEndian.Uint16(out[i:]))
		assert.GreaterOrEqual(t, v, int16(-32767))
		assert.LessOrEqual(t, v, int16(32767))
	}
}

func TestGenerateToneWithNoiseZeroNoiseMatchesPureTone(t *testing.T) {
	const sampleRate = 8000
	out := GenerateToneWithNoise(sampleRate, 10, sampleRate/4, 0.0, 1)
	// A quarter-cycle-per-sample tone with no noise starts at zero.
	first := int16(binary.LittleEndian.Uint16(out[:2]))
	assert.InDelta(t, 0, first, 2)
}
