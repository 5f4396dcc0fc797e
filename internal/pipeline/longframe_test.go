package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLongFrameBuilderBucketsByWindow(t *testing.T) {
	var frames []LongFrame
	b := newLongFrameBuilder(0.25, nil, func(lf LongFrame) {
		frames = append(frames, lf)
	})

	b.handle([]Peak{
		{Frequency: 100, Timestamp: 0.01},
		{Frequency: 200, Timestamp: 0.2},
		{Frequency: 300, Timestamp: 0.26}, // flushes [0, 0.25)
		{Frequency: 400, Timestamp: 0.9},  // flushes [0.25, 0.5); skips empty [0.5,0.75) and [0.75,1.0)
	})

	require.Len(t, frames, 2)
	assert.Equal(t, 0.0, frames[0].Start)
	assert.Len(t, frames[0].Peaks, 2)

	assert.Equal(t, 0.25, frames[1].Start)
	assert.Len(t, frames[1].Peaks, 1)

	for _, lf := range frames {
		for _, pk := range lf.Peaks {
			assert.GreaterOrEqual(t, pk.Timestamp, lf.Start)
			assert.Less(t, pk.Timestamp, lf.Start+0.25)
		}
	}
}

func TestLongFrameBuilderSkipsEmptyWindows(t *testing.T) {
	var count int
	b := newLongFrameBuilder(0.1, nil, func(lf LongFrame) { count++ })

	b.handle([]Peak{{Frequency: 1, Timestamp: 0}})
	b.handle([]Peak{{Frequency: 1, Timestamp: 1.0}})

	assert.Equal(t, 1, count)
}
