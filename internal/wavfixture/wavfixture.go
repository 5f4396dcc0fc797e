// Package wavfixture loads WAV files into the raw PCM byte buffers
// the pipeline consumes, for test fixtures and the CLI's `generate`
// and `match` commands. It is a thin adapter over go-audio/wav,
// following the same decode-then-flatten pattern as a typical WAV loader.
package wavfixture

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"

	"github.com/wavemark/fprint/internal/pcmformat"
)

// Load decodes a WAV stream into signed 16-bit little-endian PCM
// bytes (interleaved) and the corresponding pcmformat.Format. The
// pipeline only needs the byte buffer and format; any encoding
// go-audio/wav can decode is renormalized to int16 here so callers
// never need to special-case the WAV file's native bit depth.
func Load(r io.ReadSeeker) ([]byte, pcmformat.Format, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, pcmformat.Format{}, fmt.Errorf("wavfixture: invalid WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, pcmformat.Format{}, fmt.Errorf("wavfixture: read PCM buffer: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, pcmformat.Format{}, fmt.Errorf("wavfixture: empty PCM buffer")
	}

	channels := buf.Format.NumChannels
	sampleRate := buf.Format.SampleRate
	sourceBits := buf.SourceBitDepth
	if sourceBits == 0 {
		sourceBits = 16
	}

	maxVal := float64(int64(1) << (sourceBits - 1))

	out := make([]byte, len(buf.Data)*2)
	for i, sample := range buf.Data {
		normalized := float64(sample) / maxVal
		if normalized > 1 {
			normalized = 1
		}
		if normalized < -1 {
			normalized = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(normalized*32767)))
	}

	format, err := pcmformat.New(sampleRate, pcmformat.SignedInt16, pcmformat.LittleEndian, channels, true)
	if err != nil {
		return nil, pcmformat.Format{}, fmt.Errorf("wavfixture: build format: %w", err)
	}
	return out, format, nil
}

// GenerateToneWithNoise synthesizes a deterministic sine-plus-noise
// clip for property/scenario tests: no external fixture files needed,
// and the same seed always reproduces the same samples.
func GenerateToneWithNoise(sampleRate, durationMs int, freqHz, noiseAmplitude float64, seed uint64) []byte {
	numSamples := sampleRate * durationMs / 1000
	out := make([]byte, numSamples*2)
	rngState := seed
	for i := 0; i < numSamples; i++ {
		t := float64(i) / float64(sampleRate)
		tone := math.Sin(2 * math.Pi * freqHz * t)

		rngState = rngState*6364136223846793005 + 1442695040888963407
		noise := (float64(rngState>>33)/float64(1<<31) - 1) * noiseAmplitude

		sample := tone + noise
		if sample > 1 {
			sample = 1
		}
		if sample < -1 {
			sample = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(sample*32767)))
	}
	return out
}
