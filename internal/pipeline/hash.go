package pipeline

import (
	"math"
	"sort"

	"github.com/wavemark/fprint/internal/fpconfig"
)

const (
	hashFreqMask  = 0xFFF
	hashComboMask = 0x3FF
	hashLow4Mask  = 0xF
)

// hashComputation forms symmetric anchor-target triples from a ring
// of recent long frames and packs accepted combinations into 32-bit
// hashes.
type hashComputation struct {
	cfg fpconfig.SignatureGeneration

	ring []LongFrame // capacity 2*SymmetricFrameRange+1

	seen map[dedupKey]struct{}

	onPoint func(pt SignaturePoint)
}

type dedupKey struct {
	hash uint32
	ts   float64
}

func newHashComputation(cfg fpconfig.SignatureGeneration, onPoint func(SignaturePoint)) *hashComputation {
	return &hashComputation{
		cfg:     cfg,
		seen:    make(map[dedupKey]struct{}),
		onPoint: onPoint,
	}
}

func (h *hashComputation) handle(lf LongFrame) {
	capacity := 2*h.cfg.SymmetricFrameRange + 1
	h.ring = append(h.ring, lf)
	if len(h.ring) > capacity {
		h.ring = h.ring[len(h.ring)-capacity:]
	}
	if len(h.ring) < capacity {
		return
	}

	anchorIdx := h.cfg.SymmetricFrameRange
	anchorFrame := h.ring[anchorIdx]

	h.seen = make(map[dedupKey]struct{})

	var emitted []SignaturePoint
	for distance := 1; distance <= h.cfg.SymmetricFrameRange; distance++ {
		leftFrame := h.ring[anchorIdx-distance]
		rightFrame := h.ring[anchorIdx+distance]

		for _, a := range anchorFrame.Peaks {
			var combos []tripleCombo
			for _, t1 := range leftFrame.Peaks {
				for _, t2 := range rightFrame.Peaks {
					c, ok := h.evaluate(a, t1, t2)
					if !ok {
						continue
					}
					combos = append(combos, c)
				}
			}
			sort.Slice(combos, func(i, j int) bool { return combos[i].score > combos[j].score })
			if len(combos) > h.cfg.MaxTripleFrameCombinations {
				combos = combos[:h.cfg.MaxTripleFrameCombinations]
			}
			for _, c := range combos {
				key := dedupKey{hash: c.hash, ts: c.anchor.Timestamp}
				if _, dup := h.seen[key]; dup {
					continue
				}
				h.seen[key] = struct{}{}
				emitted = append(emitted, SignaturePoint{
					Hash:      c.hash,
					Timestamp: c.anchor.Timestamp,
					Frequency: c.anchor.Frequency,
					Amplitude: uint32(math.Floor(float64(c.anchor.Magnitude) * 1000)),
				})
			}
		}
	}

	sort.Slice(emitted, func(i, j int) bool { return emitted[i].Timestamp < emitted[j].Timestamp })
	for _, pt := range emitted {
		h.onPoint(pt)
	}
}

type tripleCombo struct {
	anchor Peak
	hash   uint32
	score  float64
}

// evaluate applies the combination filters and scoring formula of
// combination rule to one (anchor, t1, t2) triple.
func (h *hashComputation) evaluate(a, t1, t2 Peak) (tripleCombo, bool) {
	af, t1f, t2f := float64(a.Frequency), float64(t1.Frequency), float64(t2.Frequency)
	deltaF1 := af - t1f
	deltaF2 := af - t2f
	absF1, absF2 := math.Abs(deltaF1), math.Abs(deltaF2)

	if absF1 < h.cfg.MinFreqDelta || absF1 > h.cfg.MaxFreqDelta {
		return tripleCombo{}, false
	}
	if absF2 < h.cfg.MinFreqDelta || absF2 > h.cfg.MaxFreqDelta {
		return tripleCombo{}, false
	}

	deltaT1 := a.Timestamp - t1.Timestamp
	deltaT2 := t2.Timestamp - a.Timestamp
	if math.Abs(deltaT1) > h.cfg.MaxTimeDelta || math.Abs(deltaT2) > h.cfg.MaxTimeDelta {
		return tripleCombo{}, false
	}

	if math.Abs(absF1-absF2) < h.cfg.MinFreqDelta/2 {
		return tripleCombo{}, false
	}

	ma, mt1, mt2 := float64(a.Magnitude), float64(t1.Magnitude), float64(t2.Magnitude)

	magnitudeTerm := math.Cbrt(ma * mt1 * mt2)

	normF1 := (absF1 - h.cfg.MinFreqDelta) / (h.cfg.MaxFreqDelta - h.cfg.MinFreqDelta)
	normF2 := (absF2 - h.cfg.MinFreqDelta) / (h.cfg.MaxFreqDelta - h.cfg.MinFreqDelta)
	freqStab := 25 * ((stabilityCurve(normF1) + stabilityCurve(normF2)) / 2)
	if freqStab < 0 {
		freqStab = 0
	}

	timeStab := (((1 - math.Abs(deltaT1)/h.cfg.MaxTimeDelta) * 10) + ((1 - math.Abs(deltaT2)/h.cfg.MaxTimeDelta) * 10)) / 2

	avgFreq := (af + t1f + t2f) / 3
	var midBand float64
	switch {
	case avgFreq >= 1000 && avgFreq <= 3000:
		midBand = 10
	case avgFreq >= 500 && avgFreq <= 4000:
		midBand = 7
	default:
		midBand = 3
	}

	sharpness := (math.Log10(ma+1) + math.Log10(mt1+1) + math.Log10(mt2+1)) / 3

	score := 0.40*magnitudeTerm + 0.30*freqStab + 0.20*timeStab + 0.07*midBand + 0.03*sharpness
	if score < h.cfg.MinTripleFrameScore {
		return tripleCombo{}, false
	}

	hash := packHash(af, deltaF1, deltaF2, deltaT1, deltaT2)
	return tripleCombo{anchor: a, hash: hash, score: score}, true
}

func stabilityCurve(x float64) float64 {
	d := x - 0.5
	return 1 - 4*d*d
}

func quantizeStep(x, step float64) uint32 {
	return uint32(math.Floor(x / step))
}

// packHash packs the anchor frequency and the two frequency/time
// deltas into the 32-bit wire hash. Bit positions and
// quantization steps are part of the persisted catalog format and
// must not be "fixed" for asymmetry even though combo2's steps (47 Hz,
// 0.06 s) differ from combo1's (4 Hz, 0.09 s).
func packHash(anchorFreq, deltaF1, deltaF2, deltaT1, deltaT2 float64) uint32 {
	anchorQ := quantizeStep(anchorFreq, 4) & hashFreqMask

	var sign1, sign2 uint32
	if deltaF1 < 0 {
		sign1 = 1
	}
	if deltaF2 < 0 {
		sign2 = 1
	}

	qdf1 := quantizeStep(math.Abs(deltaF1), 4)
	qdt1Low4 := quantizeStep(math.Abs(deltaT1), 0.09) & hashLow4Mask
	combo1 := (qdf1 ^ (sign1 | (qdt1Low4 << 1))) & hashComboMask

	qdf2 := quantizeStep(math.Abs(deltaF2), 47)
	qdt2Low4 := quantizeStep(math.Abs(deltaT2), 0.06) & hashLow4Mask
	combo2 := ((qdf2 << 4) | (qdt2Low4 << 1) | sign2) & hashComboMask

	return (anchorQ << 20) | (combo1 << 10) | combo2
}
