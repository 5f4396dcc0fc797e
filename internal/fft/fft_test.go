package fft

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRadix2InitRejectsNonPowerOfTwo(t *testing.T) {
	r := NewRadix2()
	require.Error(t, r.Init(100))
	require.NoError(t, r.Init(128))
}

func TestRadix2TransformDCSignal(t *testing.T) {
	r := NewRadix2()
	require.NoError(t, r.Init(8))

	samples := make([]float64, 8)
	for i := range samples {
		samples[i] = 1.0
	}

	spectrum, err := r.Transform(samples)
	require.NoError(t, err)
	require.Len(t, spectrum, 8)

	assert.InDelta(t, 8.0, real(spectrum[0]), 1e-9)
	assert.InDelta(t, 0.0, imag(spectrum[0]), 1e-9)
	for k := 1; k < 8; k++ {
		assert.InDelta(t, 0.0, real(spectrum[k]), 1e-9)
		assert.InDelta(t, 0.0, imag(spectrum[k]), 1e-9)
	}
}

func TestRadix2TransformSingleTone(t *testing.T) {
	r := NewRadix2()
	const n = 64
	require.NoError(t, r.Init(n))

	const binIndex = 5
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * binIndex * float64(i) / n)
	}

	spectrum, err := r.Transform(samples)
	require.NoError(t, err)

	peakBin, peakMag := -1, 0.0
	for k := 0; k < n/2; k++ {
		mag := math.Hypot(real(spectrum[k]), imag(spectrum[k]))
		if mag > peakMag {
			peakMag, peakBin = mag, k
		}
	}
	assert.Equal(t, binIndex, peakBin)
}

func TestRadix2TransformRejectsWrongLength(t *testing.T) {
	r := NewRadix2()
	require.NoError(t, r.Init(8))
	_, err := r.Transform(make([]float64, 4))
	require.Error(t, err)
}

func TestRadix2TransformRejectsNonFinite(t *testing.T) {
	r := NewRadix2()
	require.NoError(t, r.Init(4))
	samples := []float64{0, math.NaN(), 0, 0}
	_, err := r.Transform(samples)
	require.Error(t, err)
}
