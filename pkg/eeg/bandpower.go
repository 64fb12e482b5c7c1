package eeg

import (
	"gonum.org/v1/gonum/integrate"
)

// BandPowers maps band name to power indexed [channel][window].
type BandPowers map[string][][]float64

// BandPower integrates the log-power spectrum over every configured band.
// Simpson's rule is used over the bins with Low <= f <= High; a band that
// covers only two bins falls back to the trapezoid rule, and a band covering
// fewer than two bins integrates to zero.
func BandPower(spec *Spectrum, bands map[string]Band) BandPowers {
	out := make(BandPowers, len(bands))
	for name, band := range bands {
		lo, hi := binRange(spec.Freqs, band)
		arr := make([][]float64, len(spec.Power))
		for ch, windows := range spec.Power {
			arr[ch] = make([]float64, len(windows))
			for w, row := range windows {
				arr[ch][w] = integrateBins(spec.Freqs[lo:hi], row[lo:hi])
			}
		}
		out[name] = arr
	}
	return out
}

// binRange returns the half-open index range of bins inside band.
// Freqs are ascending, so the selected bins are contiguous.
func binRange(freqs []float64, band Band) (int, int) {
	lo := len(freqs)
	hi := 0
	for i, f := range freqs {
		if f >= band.Low && f <= band.High {
			if i < lo {
				lo = i
			}
			hi = i + 1
		}
	}
	if hi <= lo {
		return 0, 0
	}
	return lo, hi
}

func integrateBins(x, f []float64) float64 {
	switch {
	case len(x) >= 3:
		return integrate.Simpsons(x, f)
	case len(x) == 2:
		return integrate.Trapezoidal(x, f)
	default:
		return 0
	}
}
