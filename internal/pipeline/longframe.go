package pipeline

import (
	"math"

	"github.com/wavemark/fprint/internal/metrics"
)

// longFrameBuilder buckets incoming peaks into fixed-duration windows
// per channel. A peak arriving past the current window's
// end flushes the buffer (if non-empty) and slides the window forward
// by frameDuration, repeating until the peak fits.
type longFrameBuilder struct {
	frameDuration float64

	start  float64
	opened bool
	buffer []Peak

	metrics     *metrics.Manager
	onLongFrame func(lf LongFrame)
}

func newLongFrameBuilder(frameDuration float64, m *metrics.Manager, onLongFrame func(LongFrame)) *longFrameBuilder {
	return &longFrameBuilder{
		frameDuration: frameDuration,
		metrics:       m,
		onLongFrame:   onLongFrame,
	}
}

func (b *longFrameBuilder) handle(peaks []Peak) {
	for _, pk := range peaks {
		b.accept(pk)
	}
}

func (b *longFrameBuilder) accept(pk Peak) {
	if !b.opened {
		b.start = math.Floor(pk.Timestamp/b.frameDuration) * b.frameDuration
		b.opened = true
	}

	for pk.Timestamp >= b.start+b.frameDuration {
		b.flush()
		b.start += b.frameDuration
	}
	b.buffer = append(b.buffer, pk)
}

func (b *longFrameBuilder) flush() {
	if len(b.buffer) == 0 {
		return
	}
	lf := LongFrame{
		Peaks: b.buffer,
		Start: b.start,
	}
	b.buffer = nil
	b.metrics.IncLongFrame()
	b.onLongFrame(lf)
}
