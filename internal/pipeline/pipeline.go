package pipeline

import (
	"github.com/wavemark/fprint/internal/fft"
	"github.com/wavemark/fprint/internal/ferrors"
	"github.com/wavemark/fprint/internal/fpconfig"
	"github.com/wavemark/fprint/internal/metrics"
	"github.com/wavemark/fprint/internal/pcmformat"
)

// channelPipeline is the six-stage chain for one channel: the
// callbacks wire each stage directly into its successor with no
// intervening queue.
type channelPipeline struct {
	fftStage *fftStage
	peaks    *peakDetect
	longFrm  *longFrameBuilder
	hashComp *hashComputation
}

// Pipeline is the fingerprint generation engine:
// construct once per stream, push PCM via AppendStreamBuffer, and
// drain SignaturePoints either by polling Signature() (generation
// mode) or registering a downstream sink via SetPointCallback (match
// mode feeds the matcher directly).
type Pipeline struct {
	cfg    fpconfig.Config
	format pcmformat.Format

	split              *channelSplit
	channels           []*channelPipeline
	metrics            *metrics.Manager
	transformerFactory func() fft.Transformer

	signature []SignaturePoint
	onPoint   func(SignaturePoint)
}

// New constructs a Pipeline for a fixed PCM format and configuration.
// transformerFactory lets callers swap the default Radix2 FFT for any
// implementation of fft.Transformer; pass nil to use Radix2.
func New(format pcmformat.Format, cfg fpconfig.Config, m *metrics.Manager, transformerFactory func() fft.Transformer) (*Pipeline, error) {
	if format.Channels <= 0 {
		return nil, ferrors.InvalidFormat("channel count must be positive")
	}
	if transformerFactory == nil {
		transformerFactory = func() fft.Transformer { return fft.NewRadix2() }
	}
	if m == nil {
		m = metrics.GetManager()
	}

	p := &Pipeline{
		cfg:                cfg,
		format:             format,
		metrics:            m,
		transformerFactory: transformerFactory,
		channels:           make([]*channelPipeline, format.Channels),
	}

	for ch := 0; ch < format.Channels; ch++ {
		channel := ch
		cp := &channelPipeline{}

		cp.hashComp = newHashComputation(cfg.SignatureGeneration, func(pt SignaturePoint) {
			p.emit(pt)
		})
		cp.longFrm = newLongFrameBuilder(cfg.SignatureGeneration.FrameDuration, m, func(lf LongFrame) {
			cp.hashComp.handle(lf)
		})
		cp.peaks = newPeakDetect(cfg.PeakDetection, float64(format.SampleRate), cfg.FFT.FFTSize/2, m, func(peaks []Peak) {
			cp.longFrm.handle(peaks)
		})

		stage, err := newFFTStage(cfg.FFT.FFTSize, cfg.FFT.HopSize, float64(format.SampleRate), transformerFactory(), m, func(sf ShortFrame) {
			cp.peaks.handle(sf)
		})
		if err != nil {
			return nil, ferrors.FFTFailure("failed to initialize FFT stage", err)
		}
		cp.fftStage = stage

		p.channels[channel] = cp
	}

	p.split = newChannelSplit(format, cfg.FFT.FFTSize, func(channel int, block []float64, timestamp float64) {
		applyPreEmphasis(block)
		p.channels[channel].fftStage.handle(block, timestamp)
	})

	return p, nil
}

func (p *Pipeline) emit(pt SignaturePoint) {
	p.signature = append(p.signature, pt)
	if p.metrics != nil {
		p.metrics.AddSignaturePoints(1)
	}
	if p.onPoint != nil {
		p.onPoint(pt)
	}
}

// SetPointCallback registers a sink invoked inline for every emitted
// SignaturePoint, for match mode where the matcher consumes points as
// they are produced rather than after the whole stream is buffered.
func (p *Pipeline) SetPointCallback(fn func(SignaturePoint)) {
	p.onPoint = fn
}

// AppendStreamBuffer pushes the next chunk of raw PCM bytes, beginning
// at startTimestamp seconds. Callbacks registered via
// SetPointCallback fire synchronously before this call returns (spec
// §5).
func (p *Pipeline) AppendStreamBuffer(data []byte, startTimestamp float64) error {
	if len(data) == 0 {
		return ferrors.EmptyInput("empty PCM buffer")
	}
	p.split.handle(data, startTimestamp)
	return nil
}

// Flush drains partial buffers at end-of-stream by zero-padding the
// final short block through the pipeline.
func (p *Pipeline) Flush() {
	p.split.flushPad()
}

// Signature returns every SignaturePoint emitted so far, in emission
// order (generation mode).
func (p *Pipeline) Signature() []SignaturePoint {
	return p.signature
}
