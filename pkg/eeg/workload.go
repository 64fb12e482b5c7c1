package eeg

// Result is the pipeline output for one sample block.
type Result struct {
	// Workload is the weighted index averaged across windows.
	Workload float64
	// WindowWorkload holds the index for every window.
	WindowWorkload []float64
	// Metrics holds every metric averaged across windows, including
	// MetricWorkloadIndex.
	Metrics map[string]float64
	Windows int
}

// groupMean averages band power across the channels of a group for window w.
func groupMean(powers [][]float64, channels []int, w int) float64 {
	if len(channels) == 0 {
		return 0
	}
	var sum float64
	for _, ch := range channels {
		sum += powers[ch][w]
	}
	return sum / float64(len(channels))
}

// Workload turns band powers into per-window metrics and the weighted index
//
//	w1*frontal_theta + w2*frontal_theta_beta + w3*(1-parietal_alpha) + w4*frontal_theta_parietal_alpha
//
// The two contrast metrics are half-differences of log band powers, kept
// under their historical "ratio" names because the weights were tuned
// against them. A metric whose channel group or band is not configured
// stays zero.
func Workload(bp BandPowers, groups map[string][]int, weights map[string]float64) *Result {
	windows := 0
	for _, arr := range bp {
		if len(arr) > 0 {
			windows = len(arr[0])
			break
		}
	}

	frontal, hasFrontal := groups[GroupFrontal]
	parietal, hasParietal := groups[GroupParietal]
	theta, hasTheta := bp["theta"]
	beta, hasBeta := bp["beta"]
	alpha, hasAlpha := bp["alpha"]

	est := &Result{
		WindowWorkload: make([]float64, windows),
		Metrics: map[string]float64{
			MetricFrontalTheta:                   0,
			MetricFrontalThetaBetaRatio:          0,
			MetricParietalAlpha:                  0,
			MetricFrontalThetaParietalAlphaRatio: 0,
			MetricWorkloadIndex:                  0,
		},
		Windows: windows,
	}
	if windows == 0 {
		return est
	}

	for w := 0; w < windows; w++ {
		var ft, ftb, pa, ftpa float64
		if hasFrontal && hasTheta {
			ft = groupMean(theta, frontal, w)
		}
		if hasFrontal && hasTheta && hasBeta {
			ftb = (groupMean(theta, frontal, w) - groupMean(beta, frontal, w)) / 2
		}
		if hasParietal && hasAlpha {
			pa = groupMean(alpha, parietal, w)
		}
		if hasFrontal && hasParietal && hasTheta && hasAlpha {
			ftpa = (groupMean(theta, frontal, w) - groupMean(alpha, parietal, w)) / 2
		}

		idx := weights[MetricFrontalTheta]*ft +
			weights[MetricFrontalThetaBetaRatio]*ftb +
			weights[MetricParietalAlpha]*(1-pa) +
			weights[MetricFrontalThetaParietalAlphaRatio]*ftpa

		est.WindowWorkload[w] = idx
		est.Metrics[MetricFrontalTheta] += ft
		est.Metrics[MetricFrontalThetaBetaRatio] += ftb
		est.Metrics[MetricParietalAlpha] += pa
		est.Metrics[MetricFrontalThetaParietalAlphaRatio] += ftpa
		est.Metrics[MetricWorkloadIndex] += idx
	}

	n := float64(windows)
	for k := range est.Metrics {
		est.Metrics[k] /= n
	}
	est.Workload = est.Metrics[MetricWorkloadIndex]
	return est
}

// Estimate executes the whole pipeline: bandpass, windowed log-power spectrum,
// band power integration and workload metrics. Callers are expected to have
// checked the block with Validate.
func Estimate(data [][]float64, cfg Config) (*Result, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	if err := Validate(data, cfg); err != nil {
		return nil, err
	}

	filtered, err := Bandpass(data, cfg.SamplingRate, cfg.Filter.Low, cfg.Filter.High)
	if err != nil {
		return nil, err
	}
	spec := PowerSpectrum(filtered, cfg.SamplingRate, cfg.Window)
	bp := BandPower(spec, cfg.Bands)
	return Workload(bp, cfg.ChannelGroups, cfg.Weights), nil
}
