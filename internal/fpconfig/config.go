// Package fpconfig holds the tunable configuration for the pipeline
// and matcher, and the three platform presets that populate
// it. Every preset is a Go literal, in the spirit of a compiled-in
// DefaultFingerprintConfig, but a Config can also be loaded
// from YAML so a deployment can override individual fields without a
// recompile.
package fpconfig

// FFT holds the windowing/overlap parameters for the STFT stage.
type FFT struct {
	FFTSize int `yaml:"fft_size"`
	HopSize int `yaml:"hop_size"`
}

// PeakDetection holds the dual-quantile peak-picking parameters.
type PeakDetection struct {
	LocalMaxRange         int     `yaml:"local_max_range"`
	TimeMaxRange          int     `yaml:"time_max_range"`
	MinPeaksPerFrame      int     `yaml:"min_peaks_per_frame"`
	MaxPeaksPerFrameLimit int     `yaml:"max_peaks_per_frame_limit"`
	MinPeakMagnitude      float64 `yaml:"min_peak_magnitude"`
	MinFreq               float64 `yaml:"min_freq"`
	MaxFreq               float64 `yaml:"max_freq"`
	PeakTimeDuration      float64 `yaml:"peak_time_duration"`
	QuantileThreshold     float64 `yaml:"quantile_threshold"`
	NumFrequencyBands     int     `yaml:"num_frequency_bands"`
	EnergyWeightFactor    float64 `yaml:"energy_weight_factor"`
	SNRWeightFactor       float64 `yaml:"snr_weight_factor"`
}

// SignatureGeneration holds the triple-frame hash composition parameters.
type SignatureGeneration struct {
	MinFreqDelta               float64 `yaml:"min_freq_delta"`
	MaxFreqDelta               float64 `yaml:"max_freq_delta"`
	MaxTimeDelta               float64 `yaml:"max_time_delta"`
	FrameDuration              float64 `yaml:"frame_duration"`
	SymmetricFrameRange        int     `yaml:"symmetric_frame_range"`
	MinTripleFrameScore        float64 `yaml:"min_triple_frame_score"`
	MaxTripleFrameCombinations int     `yaml:"max_triple_frame_combinations"`
}

// Matching holds the session engine's admission, merge, and scoring
// parameters.
type Matching struct {
	MaxCandidates                     int     `yaml:"max_candidates"`
	MaxCandidatesPerSignature         int     `yaml:"max_candidates_per_signature"`
	MatchExpireTime                   float64 `yaml:"match_expire_time"`
	MinConfidenceThreshold            float64 `yaml:"min_confidence_threshold"`
	MinMatchesRequired                int     `yaml:"min_matches_required"`
	MinMatchesUniqueTimestampRequired int     `yaml:"min_matches_unique_timestamp_required"`
	OffsetTolerance                   float64 `yaml:"offset_tolerance"`
}

// Config is the complete set of pipeline and matcher tunables.
type Config struct {
	FFT                 FFT                 `yaml:"fft"`
	PeakDetection       PeakDetection       `yaml:"peak_detection"`
	SignatureGeneration SignatureGeneration `yaml:"signature_generation"`
	Matching            Matching            `yaml:"matching"`
}

// Mobile is tuned for battery-constrained, single-core recognition:
// the smallest FFT, the fewest sessions held concurrently.
func Mobile() Config {
	return Config{
		FFT: FFT{FFTSize: 1024, HopSize: 512},
		PeakDetection: PeakDetection{
			LocalMaxRange:         2,
			TimeMaxRange:          2,
			MinPeaksPerFrame:      3,
			MaxPeaksPerFrameLimit: 18,
			MinPeakMagnitude:      40,
			MinFreq:               300,
			MaxFreq:               4000,
			PeakTimeDuration:      0.5,
			QuantileThreshold:     0.78,
			NumFrequencyBands:     4,
			EnergyWeightFactor:    0.6,
			SNRWeightFactor:       0.4,
		},
		SignatureGeneration: SignatureGeneration{
			MinFreqDelta:               20,
			MaxFreqDelta:               1500,
			MaxTimeDelta:               2.0,
			FrameDuration:              0.25,
			SymmetricFrameRange:        2,
			MinTripleFrameScore:        4.0,
			MaxTripleFrameCombinations: 4,
		},
		Matching: Matching{
			MaxCandidates:                      500,
			MaxCandidatesPerSignature:          4,
			MatchExpireTime:                    3.0,
			MinConfidenceThreshold:             0.5,
			MinMatchesRequired:                 5,
			MinMatchesUniqueTimestampRequired:  3,
			OffsetTolerance:                    0.5,
		},
	}
}

// Desktop trades more CPU for more resolution: a larger FFT, more
// sessions tracked in parallel.
func Desktop() Config {
	return Config{
		FFT: FFT{FFTSize: 2048, HopSize: 512},
		PeakDetection: PeakDetection{
			LocalMaxRange:         3,
			TimeMaxRange:          3,
			MinPeaksPerFrame:      5,
			MaxPeaksPerFrameLimit: 28,
			MinPeakMagnitude:      35,
			MinFreq:               200,
			MaxFreq:               5000,
			PeakTimeDuration:      0.5,
			QuantileThreshold:     0.75,
			NumFrequencyBands:     5,
			EnergyWeightFactor:    0.55,
			SNRWeightFactor:       0.45,
		},
		SignatureGeneration: SignatureGeneration{
			MinFreqDelta:               15,
			MaxFreqDelta:               2000,
			MaxTimeDelta:               2.5,
			FrameDuration:              0.2,
			SymmetricFrameRange:        3,
			MinTripleFrameScore:        3.5,
			MaxTripleFrameCombinations: 6,
		},
		Matching: Matching{
			MaxCandidates:                      2000,
			MaxCandidatesPerSignature:          6,
			MatchExpireTime:                    4.0,
			MinConfidenceThreshold:             0.45,
			MinMatchesRequired:                 8,
			MinMatchesUniqueTimestampRequired:  5,
			OffsetTolerance:                    0.5,
		},
	}
}

// Server is tuned for batch/offline catalog matching: the largest
// FFT, the deepest session capacity.
func Server() Config {
	return Config{
		FFT: FFT{FFTSize: 4096, HopSize: 1024},
		PeakDetection: PeakDetection{
			LocalMaxRange:         4,
			TimeMaxRange:          4,
			MinPeaksPerFrame:      8,
			MaxPeaksPerFrameLimit: 40,
			MinPeakMagnitude:      30,
			MinFreq:               150,
			MaxFreq:               6000,
			PeakTimeDuration:      0.5,
			QuantileThreshold:     0.72,
			NumFrequencyBands:     6,
			EnergyWeightFactor:    0.5,
			SNRWeightFactor:       0.5,
		},
		SignatureGeneration: SignatureGeneration{
			MinFreqDelta:               10,
			MaxFreqDelta:               3000,
			MaxTimeDelta:               3.0,
			FrameDuration:              0.2,
			SymmetricFrameRange:        3,
			MinTripleFrameScore:        3.0,
			MaxTripleFrameCombinations: 8,
		},
		Matching: Matching{
			MaxCandidates:                      10000,
			MaxCandidatesPerSignature:          10,
			MatchExpireTime:                    5.0,
			MinConfidenceThreshold:             0.4,
			MinMatchesRequired:                 10,
			MinMatchesUniqueTimestampRequired:  6,
			OffsetTolerance:                    0.5,
		},
	}
}
