package eeg

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 250.0

func sine(freq, amp float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return out
}

func noisyBlock(channels, n int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, n)
		for i := range data[ch] {
			data[ch][i] = rng.NormFloat64() * 10
		}
	}
	return data
}

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestConfigCheck(t *testing.T) {
	require.NoError(t, DefaultConfig(testRate).Check())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sampling rate", func(c *Config) { c.SamplingRate = 0 }},
		{"cutoff above nyquist", func(c *Config) { c.SamplingRate = 60 }},
		{"inverted filter", func(c *Config) { c.Filter = FilterConfig{Low: 30, High: 10} }},
		{"overlap equals window", func(c *Config) { c.Window.Overlap = c.Window.Size }},
		{"empty band", func(c *Config) { c.Bands["theta"] = Band{Low: 8, High: 4} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(testRate)
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Check(), ErrInvalidConfig)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig(testRate)

	assert.NoError(t, Validate(noisyBlock(7, 1000, 1), cfg))
	assert.ErrorIs(t, Validate(noisyBlock(6, 1000, 1), cfg), ErrTooFewChannels)
	assert.ErrorIs(t, Validate(nil, cfg), ErrTooFewChannels)
	assert.ErrorIs(t, Validate(noisyBlock(7, 999, 1), cfg), ErrTooFewSamples)

	ragged := noisyBlock(7, 1000, 1)
	ragged[3] = ragged[3][:900]
	assert.ErrorIs(t, Validate(ragged, cfg), ErrRaggedMatrix)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		block := noisyBlock(7, 1000, 1)
		block[5][640] = bad
		err := Validate(block, cfg)
		assert.ErrorIs(t, err, ErrNonFinite)
		assert.Contains(t, err.Error(), "channel 5 sample 640")
	}

	cfg.MinChannels = 2
	assert.ErrorIs(t, Validate(noisyBlock(4, 1000, 1), cfg), ErrTooFewChannels, "parietal group points past channel 3")
}

func TestButterBandpassDesign(t *testing.T) {
	sections, err := butterBandpass(filterOrder, 1, 40, testRate)
	require.NoError(t, err)
	assert.Len(t, sections, filterOrder)
	for _, s := range sections {
		// Poles inside the unit circle.
		assert.Less(t, s.a2, 1.0)
	}

	_, err = butterBandpass(filterOrder, 40, 1, testRate)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = butterBandpass(filterOrder, 1, 125, testRate)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBandpassKeepsPassbandAndRejectsStopband(t *testing.T) {
	n := int(8 * testRate)
	in := [][]float64{sine(10, 1, n), sine(90, 1, n), make([]float64, n)}
	for i := range in[2] {
		in[2][i] = 5
	}

	out, err := Bandpass(in, testRate, 1, 40)
	require.NoError(t, err)
	require.Len(t, out, 3)

	mid := func(x []float64) []float64 { return x[n/4 : 3*n/4] }
	assert.InDelta(t, rms(mid(in[0])), rms(mid(out[0])), 0.05)
	assert.Less(t, rms(mid(out[1])), 0.05*rms(mid(in[1])))
	assert.Less(t, rms(mid(out[2])), 0.1, "DC offset is removed")

	// Input untouched.
	assert.Equal(t, 5.0, in[2][0])
}

func TestWindowCount(t *testing.T) {
	assert.Equal(t, 3, windowCount(2000, 1000, 500))
	assert.Equal(t, 1, windowCount(1000, 1000, 500))
	assert.Equal(t, 0, windowCount(999, 1000, 500))
	assert.Equal(t, 0, windowCount(2000, 500, 500))
}

func TestPowerSpectrumShape(t *testing.T) {
	data := noisyBlock(2, 2000, 3)
	spec := PowerSpectrum(data, testRate, WindowConfig{Size: 4, Overlap: 2})

	require.Len(t, spec.Freqs, 501)
	assert.Equal(t, 0.0, spec.Freqs[0])
	assert.InDelta(t, 0.25, spec.Freqs[1], 1e-12)
	assert.InDelta(t, testRate/2, spec.Freqs[500], 1e-12)
	assert.Equal(t, 3, spec.Windows())
	for _, ch := range spec.Power {
		for _, row := range ch {
			assert.Len(t, row, 501)
		}
	}
}

func TestBandPowerFollowsTone(t *testing.T) {
	n := int(8 * testRate)
	rng := rand.New(rand.NewSource(7))
	withNoise := func(x []float64) []float64 {
		for i := range x {
			x[i] += rng.NormFloat64() * 0.1
		}
		return x
	}

	bands := DefaultBands()
	wc := WindowConfig{Size: 4, Overlap: 2}
	thetaTone := BandPower(PowerSpectrum([][]float64{withNoise(sine(6, 10, n))}, testRate, wc), bands)
	alphaTone := BandPower(PowerSpectrum([][]float64{withNoise(sine(10, 10, n))}, testRate, wc), bands)

	for w := range thetaTone["theta"][0] {
		assert.Greater(t, thetaTone["theta"][0][w], alphaTone["theta"][0][w])
		assert.Greater(t, alphaTone["alpha"][0][w], thetaTone["alpha"][0][w])
	}

	// 45 Hz sits above gamma. No band may read it like a tone of its own.
	outside := BandPower(PowerSpectrum([][]float64{withNoise(sine(45, 10, n))}, testRate, wc), bands)
	for name, band := range bands {
		t.Run(name, func(t *testing.T) {
			center := (band.Low + band.High) / 2
			inside := BandPower(PowerSpectrum([][]float64{withNoise(sine(center, 10, n))}, testRate, wc), bands)
			require.Len(t, outside[name][0], len(inside[name][0]))
			for w := range inside[name][0] {
				assert.Greater(t, inside[name][0][w], outside[name][0][w], "window %d", w)
			}
		})
	}
}

func TestBinRange(t *testing.T) {
	freqs := []float64{0, 1, 2, 3, 4, 5}

	lo, hi := binRange(freqs, Band{Low: 1, High: 3})
	assert.Equal(t, 1, lo)
	assert.Equal(t, 4, hi)

	lo, hi = binRange(freqs, Band{Low: 10, High: 20})
	assert.Equal(t, lo, hi)

	assert.Equal(t, 0.0, integrateBins([]float64{1}, []float64{5}))
	assert.InDelta(t, 5.0, integrateBins([]float64{1, 2}, []float64{5, 5}), 1e-12)
	assert.InDelta(t, 10.0, integrateBins([]float64{1, 2, 3}, []float64{5, 5, 5}), 1e-12)
}

func TestWorkloadFormula(t *testing.T) {
	bp := BandPowers{
		"theta": {{1, 3}, {0, 0}},
		"beta":  {{0, 1}, {0, 0}},
		"alpha": {{0, 0}, {2, 2}},
	}
	groups := map[string][]int{GroupFrontal: {0}, GroupParietal: {1}}

	res := Workload(bp, groups, DefaultWeights())
	require.Equal(t, 2, res.Windows)
	assert.InDelta(t, -1.125, res.WindowWorkload[0], 1e-9)
	assert.InDelta(t, 1.3, res.WindowWorkload[1], 1e-9)
	assert.InDelta(t, 0.0875, res.Workload, 1e-9)
	assert.InDelta(t, 2.0, res.Metrics[MetricFrontalTheta], 1e-9)
	assert.InDelta(t, 0.75, res.Metrics[MetricFrontalThetaBetaRatio], 1e-9)
	assert.InDelta(t, 2.0, res.Metrics[MetricParietalAlpha], 1e-9)
	assert.InDelta(t, 0.0, res.Metrics[MetricFrontalThetaParietalAlphaRatio], 1e-9)
	assert.InDelta(t, res.Workload, res.Metrics[MetricWorkloadIndex], 1e-12)
}

func TestWorkloadMissingGroup(t *testing.T) {
	bp := BandPowers{
		"theta": {{2}},
		"beta":  {{0}},
		"alpha": {{4}},
	}

	res := Workload(bp, map[string][]int{GroupFrontal: {0}}, DefaultWeights())
	assert.Equal(t, 0.0, res.Metrics[MetricParietalAlpha])
	assert.Equal(t, 0.0, res.Metrics[MetricFrontalThetaParietalAlphaRatio])
	// 0.10*2 + 0.45*1 + 0.45*(1-0)
	assert.InDelta(t, 1.1, res.Workload, 1e-9)
}

func TestEstimateSevenChannelBlock(t *testing.T) {
	cfg := DefaultConfig(testRate)
	res, err := Estimate(noisyBlock(7, int(8*testRate), 11), cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Windows)
	assert.Len(t, res.WindowWorkload, 3)
	assert.False(t, math.IsNaN(res.Workload))
	assert.False(t, math.IsInf(res.Workload, 0))
	for _, key := range []string{
		MetricFrontalTheta,
		MetricFrontalThetaBetaRatio,
		MetricParietalAlpha,
		MetricFrontalThetaParietalAlphaRatio,
		MetricWorkloadIndex,
	} {
		assert.Contains(t, res.Metrics, key)
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	cfg := DefaultConfig(testRate)
	data := noisyBlock(7, 1500, 5)

	a, err := Estimate(data, cfg)
	require.NoError(t, err)
	b, err := Estimate(data, cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Workload, b.Workload)
}

func TestEstimateSilentInputStaysFinite(t *testing.T) {
	cfg := DefaultConfig(testRate)
	data := make([][]float64, 7)
	for ch := range data {
		data[ch] = make([]float64, 1000)
	}

	res, err := Estimate(data, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Windows)
	assert.False(t, math.IsNaN(res.Workload))
	assert.False(t, math.IsInf(res.Workload, 0))
}

func TestEstimateRejectsShortBlock(t *testing.T) {
	_, err := Estimate(noisyBlock(7, 500, 1), DefaultConfig(testRate))
	assert.ErrorIs(t, err, ErrTooFewSamples)
}
