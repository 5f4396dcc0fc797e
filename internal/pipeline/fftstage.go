package pipeline

import (
	"math"

	"go.uber.org/zap"

	"github.com/wavemark/fprint/internal/fft"
	"github.com/wavemark/fprint/internal/ferrors"
	"github.com/wavemark/fprint/internal/logger"
	"github.com/wavemark/fprint/internal/metrics"
)

// fftStage runs the overlapped windowed STFT for one channel: a ring
// buffer of capacity fftSize absorbs incoming blocks, and every time
// the ring fills it transforms, emits a ShortFrame, then slides by
// hopSize.
type fftStage struct {
	fftSize int
	hopSize int
	sampleRate float64

	ring      []float64
	ringStart float64 // timestamp of ring[0]
	filled    int

	window []float64
	scratch []float64

	transformer fft.Transformer
	metrics     *metrics.Manager

	onShortFrame func(sf ShortFrame)
}

func newFFTStage(fftSize, hopSize int, sampleRate float64, transformer fft.Transformer, m *metrics.Manager, onShortFrame func(ShortFrame)) (*fftStage, error) {
	if err := transformer.Init(fftSize); err != nil {
		return nil, err
	}
	s := &fftStage{
		fftSize:      fftSize,
		hopSize:      hopSize,
		sampleRate:   sampleRate,
		ring:         make([]float64, fftSize),
		scratch:      make([]float64, fftSize),
		window:       hannWindow(fftSize),
		transformer:  transformer,
		metrics:      m,
		onShortFrame: onShortFrame,
	}
	return s, nil
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := 0; i < size; i++ {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}

// handle absorbs a fixed-size input block (the ChannelSplit stage's
// output) starting at blockTime, sliding the ring and emitting short
// frames as it fills.
func (s *fftStage) handle(block []float64, blockTime float64) {
	if s.filled == 0 {
		s.ringStart = blockTime
	}

	pos := 0
	for pos < len(block) {
		n := copy(s.ring[s.filled:], block[pos:])
		s.filled += n
		pos += n

		if s.filled < s.fftSize {
			continue
		}

		s.emit()

		copy(s.ring, s.ring[s.hopSize:s.fftSize])
		s.filled = s.fftSize - s.hopSize
		s.ringStart += float64(s.hopSize) / s.sampleRate
	}
}

func (s *fftStage) emit() {
	for i := 0; i < s.fftSize; i++ {
		s.scratch[i] = s.ring[i] * s.window[i]
	}

	spectrum, err := s.transformer.Transform(s.scratch)
	if err != nil {
		s.metrics.IncFFTFailure()
		logger.Log.Debug("dropping short frame after FFT failure",
			zap.Float64("window_start", s.ringStart), zap.Error(ferrors.FFTFailure("fft transform failed", err)))
		return
	}

	half := s.fftSize / 2
	magnitudes := make([]float32, half)
	frequencies := make([]float32, half)
	for k := 0; k < half; k++ {
		mag := 20*math.Log10(cmplxAbs(spectrum[k])) + 100
		if mag < 0 {
			mag = 0
		}
		magnitudes[k] = float32(mag)
		frequencies[k] = float32(float64(k) * s.sampleRate / float64(s.fftSize))
	}

	s.onShortFrame(ShortFrame{
		Magnitudes:  magnitudes,
		Frequencies: frequencies,
		Timestamp:   s.ringStart,
	})
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
