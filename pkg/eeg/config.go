package eeg

import (
	"errors"
	"fmt"
	"math"
)

// Metric names reported by the workload estimator.
const (
	MetricFrontalTheta                   = "frontal_theta"
	MetricFrontalThetaBetaRatio          = "frontal_theta_beta_ratio"
	MetricParietalAlpha                  = "parietal_alpha"
	MetricFrontalThetaParietalAlphaRatio = "frontal_theta_parietal_alpha_ratio"
	MetricWorkloadIndex                  = "workload_index"
)

// Channel group names understood by the workload estimator.
const (
	GroupFrontal  = "frontal"
	GroupCentral  = "central"
	GroupParietal = "parietal"
)

var (
	ErrTooFewChannels = errors.New("eeg: too few channels")
	ErrTooFewSamples  = errors.New("eeg: too few samples for one window")
	ErrRaggedMatrix   = errors.New("eeg: channels have different sample counts")
	ErrNonFinite      = errors.New("eeg: sample is NaN or infinite")
	ErrInvalidConfig  = errors.New("eeg: invalid pipeline configuration")
)

// Band is a frequency range in Hz, inclusive on both ends.
type Band struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

type FilterConfig struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// WindowConfig holds the spectral window length and overlap in seconds.
type WindowConfig struct {
	Size    float64 `yaml:"size" json:"size"`
	Overlap float64 `yaml:"overlap" json:"overlap"`
}

type Config struct {
	SamplingRate  float64            `yaml:"sampling_rate" json:"sampling_rate"`
	MinChannels   int                `yaml:"min_channels" json:"min_channels"`
	ChannelGroups map[string][]int   `yaml:"channel_groups" json:"channel_groups"`
	Bands         map[string]Band    `yaml:"bands" json:"bands"`
	Filter        FilterConfig       `yaml:"filter" json:"filter"`
	Window        WindowConfig       `yaml:"window" json:"window"`
	Weights       map[string]float64 `yaml:"weights" json:"weights"`
}

// DefaultBands returns the standard EEG frequency bands.
func DefaultBands() map[string]Band {
	return map[string]Band{
		"delta": {Low: 1, High: 4},
		"theta": {Low: 4, High: 8},
		"alpha": {Low: 8, High: 13},
		"beta":  {Low: 13, High: 30},
		"gamma": {Low: 30, High: 40},
	}
}

// DefaultWeights returns the weights the workload index was tuned against.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		MetricFrontalTheta:                   0.10,
		MetricFrontalThetaBetaRatio:          0.45,
		MetricParietalAlpha:                  0.45,
		MetricFrontalThetaParietalAlphaRatio: 2.0,
	}
}

// DefaultConfig assumes the 7-channel 10-20 montage F3, F4, C3, Cz, C4, P3, P4.
func DefaultConfig(samplingRate float64) Config {
	return Config{
		SamplingRate: samplingRate,
		MinChannels:  7,
		ChannelGroups: map[string][]int{
			GroupFrontal:  {0, 1},
			GroupCentral:  {2, 3, 4},
			GroupParietal: {5, 6},
		},
		Bands:   DefaultBands(),
		Filter:  FilterConfig{Low: 1.0, High: 40.0},
		Window:  WindowConfig{Size: 4.0, Overlap: 2.0},
		Weights: DefaultWeights(),
	}
}

// WindowLength returns the window size in samples.
func (c Config) WindowLength() int {
	return int(c.Window.Size * c.SamplingRate)
}

func (c Config) overlapLength() int {
	return int(c.Window.Overlap * c.SamplingRate)
}

// Check reports whether the configuration can drive the pipeline at all.
func (c Config) Check() error {
	switch {
	case c.SamplingRate <= 0:
		return fmt.Errorf("%w: sampling rate must be positive", ErrInvalidConfig)
	case c.Filter.Low <= 0 || c.Filter.High <= c.Filter.Low:
		return fmt.Errorf("%w: filter cutoffs %.2f-%.2f Hz", ErrInvalidConfig, c.Filter.Low, c.Filter.High)
	case c.Filter.High >= c.SamplingRate/2:
		return fmt.Errorf("%w: high cutoff %.2f Hz at or above Nyquist", ErrInvalidConfig, c.Filter.High)
	case c.WindowLength() < 2:
		return fmt.Errorf("%w: window shorter than two samples", ErrInvalidConfig)
	case c.overlapLength() < 0 || c.overlapLength() >= c.WindowLength():
		return fmt.Errorf("%w: overlap must be smaller than the window", ErrInvalidConfig)
	}
	for name, b := range c.Bands {
		if b.High <= b.Low {
			return fmt.Errorf("%w: band %q has empty range", ErrInvalidConfig, name)
		}
	}
	return nil
}

// Validate checks the caller-side preconditions for one sample block:
// rectangular shape, enough channels for MinChannels and every configured
// group, at least one full window of samples and no NaN or Inf values.
func Validate(data [][]float64, cfg Config) error {
	if len(data) < cfg.MinChannels || len(data) == 0 {
		return fmt.Errorf("%w: got %d, need %d", ErrTooFewChannels, len(data), max(cfg.MinChannels, 1))
	}
	n := len(data[0])
	for i, ch := range data {
		if len(ch) != n {
			return fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d", ErrRaggedMatrix, i, len(ch), n)
		}
	}
	for group, idx := range cfg.ChannelGroups {
		for _, ch := range idx {
			if ch < 0 || ch >= len(data) {
				return fmt.Errorf("%w: group %q references channel %d of %d", ErrTooFewChannels, group, ch, len(data))
			}
		}
	}
	if n < cfg.WindowLength() {
		return fmt.Errorf("%w: got %d, need %d", ErrTooFewSamples, n, cfg.WindowLength())
	}
	for i, ch := range data {
		for j, v := range ch {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: channel %d sample %d", ErrNonFinite, i, j)
			}
		}
	}
	return nil
}
