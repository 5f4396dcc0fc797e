package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavemark/fprint/internal/pcmformat"
)

func TestChannelSplitEmitsFixedSizeBlocks(t *testing.T) {
	format, err := pcmformat.New(8000, pcmformat.SignedInt16, pcmformat.LittleEndian, 1, true)
	require.NoError(t, err)

	const blockSize = 4
	var blocks [][]float64
	cs := newChannelSplit(format, blockSize, func(ch int, block []float64, ts float64) {
		assert.Equal(t, 0, ch)
		cp := append([]float64(nil), block...)
		blocks = append(blocks, cp)
	})

	// 10 frames of mono 16-bit samples = 20 bytes; expect 2 full blocks
	// of 4 and a 2-sample tail retained across the call.
	data := make([]byte, 20)
	for i := 0; i < 10; i++ {
		data[i*2] = byte(i)
	}
	cs.handle(data, 0)

	require.Len(t, blocks, 2)
	assert.Len(t, blocks[0], blockSize)
	assert.Len(t, blocks[1], blockSize)
	assert.Equal(t, 2, cs.cursor[0])
}

func TestChannelSplitStereoDeinterleave(t *testing.T) {
	format, err := pcmformat.New(8000, pcmformat.SignedInt16, pcmformat.LittleEndian, 2, true)
	require.NoError(t, err)

	const blockSize = 2
	var leftBlocks, rightBlocks [][]float64
	cs := newChannelSplit(format, blockSize, func(ch int, block []float64, ts float64) {
		cp := append([]float64(nil), block...)
		if ch == 0 {
			leftBlocks = append(leftBlocks, cp)
		} else {
			rightBlocks = append(rightBlocks, cp)
		}
	})

	// 2 stereo frames = 8 bytes; left samples are 1,3; right are 2,4.
	data := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	cs.handle(data, 0)

	require.Len(t, leftBlocks, 1)
	require.Len(t, rightBlocks, 1)
	assert.InDelta(t, 1.0/32768.0, leftBlocks[0][0], 1e-9)
	assert.InDelta(t, 2.0/32768.0, rightBlocks[0][0], 1e-9)
}

func TestChannelSplitFlushPadZeroFills(t *testing.T) {
	format, err := pcmformat.New(8000, pcmformat.SignedInt16, pcmformat.LittleEndian, 1, true)
	require.NoError(t, err)

	const blockSize = 4
	var blocks [][]float64
	cs := newChannelSplit(format, blockSize, func(ch int, block []float64, ts float64) {
		blocks = append(blocks, append([]float64(nil), block...))
	})

	data := make([]byte, 4) // 2 samples, half a block
	data[0] = 5
	cs.handle(data, 0)
	require.Len(t, blocks, 0)

	cs.flushPad()
	require.Len(t, blocks, 1)
	assert.Len(t, blocks[0], blockSize)
	assert.NotEqual(t, 0.0, blocks[0][0])
	assert.Equal(t, 0.0, blocks[0][2])
	assert.Equal(t, 0.0, blocks[0][3])
}
