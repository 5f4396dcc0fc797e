package pipeline

import (
	"math"
	"sort"

	"github.com/wavemark/fprint/internal/fpconfig"
	"github.com/wavemark/fprint/internal/metrics"
)

// referenceEnergy normalizes the window energy factor in the dynamic
// quota formula. This constant is left
// unspecified; it is an explicit, documented invention — see the
// internal/pipeline section of DESIGN.md — not a silent guess.
const referenceEnergy = 5000.0

// snrEpsilon guards the snrFactor ratio against a zero-mean window.
const snrEpsilon = 1e-6

// peakDetect implements the dual-quantile + local-maximum peak picker
// with dynamic per-band quotas, operating on a sliding,
// non-overlapping window of short frames.
type peakDetect struct {
	cfg        fpconfig.PeakDetection
	sampleRate float64
	half       int // FFT_SIZE/2, bins per short frame

	ring       []ShortFrame
	windowOpen bool
	t0         float64

	bands []band

	metrics *metrics.Manager
	onPeaks func(peaks []Peak)
}

type band struct {
	lo, hi float64
	weight float64
}

type peakCandidate struct {
	frameIdx int
	bin      int
	freq     float64
	mag      float64
	ts       float64
}

func newPeakDetect(cfg fpconfig.PeakDetection, sampleRate float64, half int, m *metrics.Manager, onPeaks func([]Peak)) *peakDetect {
	return &peakDetect{
		cfg:        cfg,
		sampleRate: sampleRate,
		half:       half,
		bands:      buildBands(cfg.MinFreq, cfg.MaxFreq, cfg.NumFrequencyBands),
		metrics:    m,
		onPeaks:    onPeaks,
	}
}

func buildBands(minFreq, maxFreq float64, numBands int) []band {
	bands := make([]band, numBands)
	logMin, logMax := math.Log(minFreq), math.Log(maxFreq)
	step := (logMax - logMin) / float64(numBands)
	for i := 0; i < numBands; i++ {
		lo := math.Exp(logMin + float64(i)*step)
		hi := math.Exp(logMin + float64(i+1)*step)
		bands[i] = band{lo: lo, hi: hi, weight: bandWeight(lo, hi)}
	}
	return bands
}

// bandWeight assigns the mid/high/low weighting by the
// band's center frequency: the [150, 2500] Hz band carries speech and
// melodic fundamentals and is weighted highest.
func bandWeight(lo, hi float64) float64 {
	center := (lo + hi) / 2
	switch {
	case center >= 150 && center <= 2500:
		return 3
	case center > 2500:
		return 2
	default:
		return 1
	}
}

func (p *peakDetect) bandIndex(freq float64) int {
	for i, b := range p.bands {
		if freq >= b.lo && freq < b.hi {
			return i
		}
	}
	if len(p.bands) > 0 {
		return len(p.bands) - 1
	}
	return 0
}

// handle absorbs one short frame and, whenever the ring holds a full
// processable window plus boundary context, detects that window's
// peaks and slides forward.
func (p *peakDetect) handle(sf ShortFrame) {
	if !p.windowOpen {
		p.t0 = sf.Timestamp
		p.windowOpen = true
	}
	p.ring = append(p.ring, sf)

	for {
		winStart, winEnd, ok := p.windowRange()
		if !ok {
			return
		}
		// Right boundary context hasn't arrived yet; wait for more frames.
		if winEnd+p.cfg.TimeMaxRange >= len(p.ring) {
			return
		}
		// Left boundary is only ever missing for the stream's very first
		// window, which has no preceding audio to form neighbors from.
		// Skip its peaks silently but still slide forward.
		if winStart-p.cfg.TimeMaxRange >= 0 {
			peaks := p.detectWindow(winStart, winEnd)
			if len(peaks) > 0 {
				p.metrics.AddPeaks(len(peaks))
				p.onPeaks(peaks)
			}
		}

		p.t0 += p.cfg.PeakTimeDuration
		keep := 2 * p.cfg.TimeMaxRange
		if len(p.ring) > keep {
			p.ring = append([]ShortFrame(nil), p.ring[len(p.ring)-keep:]...)
		}
	}
}

// windowRange finds the inclusive [winStart, winEnd] ring indices of
// frames whose timestamps fall in [t0, t0+peakTimeDuration). Returns
// ok=false when no frame has yet reached t0+duration.
func (p *peakDetect) windowRange() (int, int, bool) {
	start, end := -1, -1
	windowEnd := p.t0 + p.cfg.PeakTimeDuration
	for i, sf := range p.ring {
		if sf.Timestamp < p.t0 {
			continue
		}
		if sf.Timestamp >= windowEnd {
			break
		}
		if start == -1 {
			start = i
		}
		end = i
	}
	if start == -1 {
		return 0, 0, false
	}
	// A window is only complete once a frame past its end has arrived.
	if p.ring[len(p.ring)-1].Timestamp < windowEnd {
		return 0, 0, false
	}
	return start, end, true
}

func (p *peakDetect) detectWindow(winStart, winEnd int) []Peak {
	var inBandMags []float64
	for i := winStart; i <= winEnd; i++ {
		sf := p.ring[i]
		for bin := 0; bin < p.half; bin++ {
			freq := float64(sf.Frequencies[bin])
			if freq < p.cfg.MinFreq || freq > p.cfg.MaxFreq {
				continue
			}
			inBandMags = append(inBandMags, float64(sf.Magnitudes[bin]))
		}
	}
	if len(inBandMags) == 0 {
		return nil
	}

	quantile := quantileInterp(inBandMags, p.cfg.QuantileThreshold)
	totalEnergy, mean, stddev := energyStats(inBandMags)
	energyFactor := math.Min(1, totalEnergy/referenceEnergy)
	snrFactor := math.Min(1, stddev/(mean+snrEpsilon))
	combinedFactor := p.cfg.EnergyWeightFactor*energyFactor + p.cfg.SNRWeightFactor*snrFactor
	totalQuota := p.cfg.MinPeaksPerFrame + int(combinedFactor*float64(p.cfg.MaxPeaksPerFrameLimit-p.cfg.MinPeaksPerFrame))

	var candidates []peakCandidate
	for i := winStart; i <= winEnd; i++ {
		sf := p.ring[i]
		for bin := 0; bin < p.half; bin++ {
			freq := float64(sf.Frequencies[bin])
			if freq < p.cfg.MinFreq || freq > p.cfg.MaxFreq {
				continue
			}
			mag := float64(sf.Magnitudes[bin])
			if mag <= quantile || mag < p.cfg.MinPeakMagnitude {
				continue
			}
			if !p.isLocalMax(i, bin, mag) {
				continue
			}
			candidates = append(candidates, peakCandidate{
				frameIdx: i, bin: bin, freq: freq, mag: mag, ts: float64(sf.Timestamp),
			})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	kept := p.applyBandQuotas(candidates, totalQuota)

	sort.Slice(kept, func(i, j int) bool { return kept[i].ts < kept[j].ts })

	peaks := make([]Peak, len(kept))
	for i, c := range kept {
		peaks[i] = Peak{
			Frequency: uint32(math.Round(c.freq)),
			Magnitude: float32(c.mag),
			Timestamp: c.ts,
		}
	}
	return peaks
}

func (p *peakDetect) isLocalMax(frameIdx, bin int, mag float64) bool {
	sf := p.ring[frameIdx]
	for df := -p.cfg.LocalMaxRange; df <= p.cfg.LocalMaxRange; df++ {
		if df == 0 {
			continue
		}
		nb := bin + df
		if nb < 0 || nb >= p.half {
			continue
		}
		if float64(sf.Magnitudes[nb]) >= mag {
			return false
		}
	}
	for dt := -p.cfg.TimeMaxRange; dt <= p.cfg.TimeMaxRange; dt++ {
		if dt == 0 {
			continue
		}
		nf := frameIdx + dt
		if nf < 0 || nf >= len(p.ring) {
			continue
		}
		if float64(p.ring[nf].Magnitudes[bin]) >= mag {
			return false
		}
	}
	return true
}

// applyBandQuotas distributes totalQuota across bands by weight
// proportion, redistributes slack from under-filled bands to
// over-capacity bands (descending weight order), then keeps the
// top-quota candidates per band by magnitude.
func (p *peakDetect) applyBandQuotas(candidates []peakCandidate, totalQuota int) []peakCandidate {
	numBands := len(p.bands)
	byBand := make([][]peakCandidate, numBands)
	for _, c := range candidates {
		bi := p.bandIndex(c.freq)
		byBand[bi] = append(byBand[bi], c)
	}

	weightSum := 0.0
	for _, b := range p.bands {
		weightSum += b.weight
	}
	quota := make([]int, numBands)
	for i, b := range p.bands {
		if weightSum > 0 {
			quota[i] = int(math.Round(float64(totalQuota) * b.weight / weightSum))
		}
	}

	order := make([]int, numBands)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return p.bands[order[i]].weight > p.bands[order[j]].weight })

	slack := 0
	for i := range byBand {
		if len(byBand[i]) < quota[i] {
			slack += quota[i] - len(byBand[i])
			quota[i] = len(byBand[i])
		}
	}
	for _, bi := range order {
		if slack <= 0 {
			break
		}
		avail := len(byBand[bi]) - quota[bi]
		if avail <= 0 {
			continue
		}
		grant := avail
		if grant > slack {
			grant = slack
		}
		quota[bi] += grant
		slack -= grant
	}

	var kept []peakCandidate
	for i, cands := range byBand {
		sort.Slice(cands, func(a, b int) bool { return cands[a].mag > cands[b].mag })
		n := quota[i]
		if n > len(cands) {
			n = len(cands)
		}
		kept = append(kept, cands[:n]...)
	}
	return kept
}

func energyStats(mags []float64) (total, mean, stddev float64) {
	for _, m := range mags {
		total += m
	}
	mean = total / float64(len(mags))
	var variance float64
	for _, m := range mags {
		d := m - mean
		variance += d * d
	}
	variance /= float64(len(mags))
	stddev = math.Sqrt(variance)
	return total, mean, stddev
}

// quantileInterp computes the q-quantile via sort + linear
// interpolation between order statistics.
func quantileInterp(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
