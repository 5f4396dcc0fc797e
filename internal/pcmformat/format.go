// Package pcmformat describes raw PCM layouts and decodes individual
// samples to float64 in [-1.0, 1.0). It implements the decoding
// contract the pipeline's ChannelSplit stage depends on: it is the only
// caller, but the format and the byte-exact conversion rules are
// specified independently of it so they can be tested in isolation.
package pcmformat

import (
	"encoding/binary"
	"math"

	"github.com/wavemark/fprint/internal/ferrors"
)

// Encoding identifies a PCM sample representation.
type Encoding int

const (
	SignedInt8 Encoding = iota
	UnsignedInt8
	SignedInt16
	UnsignedInt16
	SignedInt24
	UnsignedInt24
	SignedInt32
	UnsignedInt32
	Float32
	Float64
)

// ByteOrder identifies the endianness of multi-byte samples.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// Format describes one PCM stream: sample rate, encoding, byte order,
// channel count, and interleaving.
type Format struct {
	SampleRate  int
	Encoding    Encoding
	Order       ByteOrder
	Channels    int
	Interleaved bool
}

// New validates and constructs a Format. Sample rate must be at least
// 8000 Hz and channel count must be 1 or 2.
func New(sampleRate int, encoding Encoding, order ByteOrder, channels int, interleaved bool) (Format, error) {
	if sampleRate < 8000 {
		return Format{}, ferrors.InvalidFormat("sample rate must be >= 8000 Hz")
	}
	if channels != 1 && channels != 2 {
		return Format{}, ferrors.InvalidFormat("channel count must be 1 or 2")
	}
	if !encoding.valid() {
		return Format{}, ferrors.InvalidFormat("unknown sample encoding")
	}
	return Format{
		SampleRate:  sampleRate,
		Encoding:    encoding,
		Order:       order,
		Channels:    channels,
		Interleaved: interleaved,
	}, nil
}

func (e Encoding) valid() bool {
	switch e {
	case SignedInt8, UnsignedInt8, SignedInt16, UnsignedInt16,
		SignedInt24, UnsignedInt24, SignedInt32, UnsignedInt32,
		Float32, Float64:
		return true
	}
	return false
}

// BitsPerSample returns the bit depth of one sample.
func (e Encoding) BitsPerSample() int {
	switch e {
	case SignedInt8, UnsignedInt8:
		return 8
	case SignedInt16, UnsignedInt16:
		return 16
	case SignedInt24, UnsignedInt24:
		return 24
	case SignedInt32, UnsignedInt32, Float32:
		return 32
	case Float64:
		return 64
	}
	return 0
}

// BytesPerSample returns the byte width of one sample.
func (e Encoding) BytesPerSample() int {
	return e.BitsPerSample() / 8
}

// BytesPerSample returns the byte width of one sample in this format.
func (f Format) BytesPerSample() int {
	return f.Encoding.BytesPerSample()
}

// FrameSize returns the byte size of one multi-channel frame: one
// sample per channel.
func (f Format) FrameSize() int {
	return f.BytesPerSample() * f.Channels
}

func (f Format) isSigned() bool {
	switch f.Encoding {
	case SignedInt8, SignedInt16, SignedInt24, SignedInt32:
		return true
	}
	return false
}

func (f Format) isFloat() bool {
	return f.Encoding == Float32 || f.Encoding == Float64
}

// DecodeSample converts one sample's raw bytes (exactly
// BytesPerSample() long) to a float64. Integer formats map to
// [-1.0, 1.0); float formats are reinterpreted after endianness
// normalization.
func (f Format) DecodeSample(raw []byte) float64 {
	if f.isFloat() {
		return f.decodeFloat(raw)
	}
	return f.decodeInt(raw)
}

func (f Format) decodeInt(raw []byte) float64 {
	bits := f.Encoding.BitsPerSample()
	var u uint32

	switch bits {
	case 8:
		u = uint32(raw[0])
	case 16:
		if f.Order == LittleEndian {
			u = uint32(binary.LittleEndian.Uint16(raw))
		} else {
			u = uint32(binary.BigEndian.Uint16(raw))
		}
	case 24:
		var b0, b1, b2 byte
		if f.Order == LittleEndian {
			b0, b1, b2 = raw[0], raw[1], raw[2]
		} else {
			b0, b1, b2 = raw[2], raw[1], raw[0]
		}
		u = uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16
	case 32:
		if f.Order == LittleEndian {
			u = binary.LittleEndian.Uint32(raw)
		} else {
			u = binary.BigEndian.Uint32(raw)
		}
	}

	half := float64(int64(1) << (bits - 1))

	if f.isSigned() {
		signed := signExtend(u, bits)
		return float64(signed) / half
	}

	// Unsigned: subtract the midpoint to center around zero, then scale.
	centered := int64(u) - int64(1)<<(bits-1)
	return float64(centered) / half
}

func signExtend(u uint32, bits int) int32 {
	shift := uint(32 - bits)
	return int32(u<<shift) >> shift
}

func (f Format) decodeFloat(raw []byte) float64 {
	switch f.Encoding {
	case Float32:
		var bits uint32
		if f.Order == LittleEndian {
			bits = binary.LittleEndian.Uint32(raw)
		} else {
			bits = binary.BigEndian.Uint32(raw)
		}
		return float64(math.Float32frombits(bits))
	case Float64:
		var bits uint64
		if f.Order == LittleEndian {
			bits = binary.LittleEndian.Uint64(raw)
		} else {
			bits = binary.BigEndian.Uint64(raw)
		}
		return math.Float64frombits(bits)
	}
	return 0
}
