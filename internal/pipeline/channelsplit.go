package pipeline

import "github.com/wavemark/fprint/internal/pcmformat"

// channelSplit deinterleaves/deplanarizes raw PCM bytes into fixed-size
// float blocks, one per channel. It holds the sole
// per-channel write cursor into scratch buffers sized at construction.
type channelSplit struct {
	format    pcmformat.Format
	blockSize int

	cursor    []int
	blocks    [][]float64
	blockTime []float64

	onBlock func(channel int, block []float64, timestamp float64)
}

func newChannelSplit(format pcmformat.Format, blockSize int, onBlock func(int, []float64, float64)) *channelSplit {
	cs := &channelSplit{
		format:    format,
		blockSize: blockSize,
		cursor:    make([]int, format.Channels),
		blocks:    make([][]float64, format.Channels),
		blockTime: make([]float64, format.Channels),
		onBlock:   onBlock,
	}
	for ch := range cs.blocks {
		cs.blocks[ch] = make([]float64, blockSize)
	}
	return cs
}

// handle decodes data frame by frame, writing one sample per channel
// into that channel's scratch block. When every channel's cursor
// reaches blockSize it emits the block downstream and resets all
// cursors. Trailing bytes shorter than one frame are dropped; they
// never arrive from a conforming host.
func (cs *channelSplit) handle(data []byte, startTimestamp float64) {
	frameSize := cs.format.FrameSize()
	sampleBytes := cs.format.BytesPerSample()
	numFrames := len(data) / frameSize
	sampleRate := float64(cs.format.SampleRate)

	channelBlockLen := numFrames * sampleBytes

	for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
		frameOffset := frameIdx * frameSize
		frameTimestamp := startTimestamp + float64(frameIdx)/sampleRate

		for ch := 0; ch < cs.format.Channels; ch++ {
			var raw []byte
			if cs.format.Interleaved {
				off := frameOffset + ch*sampleBytes
				raw = data[off : off+sampleBytes]
			} else {
				off := ch*channelBlockLen + frameIdx*sampleBytes
				raw = data[off : off+sampleBytes]
			}

			if cs.cursor[ch] == 0 {
				cs.blockTime[ch] = frameTimestamp
			}
			cs.blocks[ch][cs.cursor[ch]] = cs.format.DecodeSample(raw)
			cs.cursor[ch]++
		}

		allFull := true
		for ch := 0; ch < cs.format.Channels; ch++ {
			if cs.cursor[ch] < cs.blockSize {
				allFull = false
				break
			}
		}
		if !allFull {
			continue
		}

		for ch := 0; ch < cs.format.Channels; ch++ {
			out := make([]float64, cs.blockSize)
			copy(out, cs.blocks[ch])
			cs.onBlock(ch, out, cs.blockTime[ch])
			cs.cursor[ch] = 0
		}
	}
}

// flushPad zero-pads every channel's partial block up to blockSize and
// emits it, for end-of-stream flush.
func (cs *channelSplit) flushPad() {
	any := false
	for ch := 0; ch < cs.format.Channels; ch++ {
		if cs.cursor[ch] > 0 {
			any = true
			break
		}
	}
	if !any {
		return
	}
	for ch := 0; ch < cs.format.Channels; ch++ {
		if cs.cursor[ch] == 0 {
			continue
		}
		for i := cs.cursor[ch]; i < cs.blockSize; i++ {
			cs.blocks[ch][i] = 0
		}
		out := make([]float64, cs.blockSize)
		copy(out, cs.blocks[ch])
		cs.onBlock(ch, out, cs.blockTime[ch])
		cs.cursor[ch] = 0
	}
}
