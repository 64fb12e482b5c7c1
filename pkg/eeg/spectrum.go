package eeg

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// minPower keeps log10 finite for silent windows.
const minPower = math.SmallestNonzeroFloat64

// Spectrum is a windowed log-power estimate.
// Power is indexed [channel][window][frequency bin].
type Spectrum struct {
	Freqs []float64
	Power [][][]float64
}

// Windows returns the number of windows in the estimate.
func (s *Spectrum) Windows() int {
	if len(s.Power) == 0 {
		return 0
	}
	return len(s.Power[0])
}

// windowCount mirrors (n - overlap) / step with integer division.
func windowCount(n, length, overlap int) int {
	step := length - overlap
	if step <= 0 || n < length {
		return 0
	}
	return (n - overlap) / step
}

// PowerSpectrum splits each channel into overlapping Hann-tapered windows
// and returns log10(|FFT|^2 / window length) per bin.
func PowerSpectrum(data [][]float64, sfreq float64, cfg WindowConfig) *Spectrum {
	length := int(cfg.Size * sfreq)
	overlap := int(cfg.Overlap * sfreq)
	step := length - overlap

	spec := &Spectrum{}
	if length < 2 || len(data) == 0 {
		return spec
	}

	spec.Freqs = make([]float64, length/2+1)
	for k := range spec.Freqs {
		spec.Freqs[k] = float64(k) * sfreq / float64(length)
	}

	taper := make([]float64, length)
	for i := range taper {
		taper[i] = 1
	}
	window.Hann(taper)

	fft := fourier.NewFFT(length)
	seg := make([]float64, length)
	coeff := make([]complex128, length/2+1)

	spec.Power = make([][][]float64, len(data))
	for ch, samples := range data {
		nw := windowCount(len(samples), length, overlap)
		rows := make([][]float64, 0, nw)
		for w := 0; w < nw; w++ {
			start := w * step
			end := start + length
			if end > len(samples) {
				break
			}
			for i := range seg {
				seg[i] = samples[start+i] * taper[i]
			}
			fft.Coefficients(coeff, seg)

			row := make([]float64, len(coeff))
			for k, c := range coeff {
				mag := cmplx.Abs(c)
				p := mag * mag / float64(length)
				if p < minPower {
					p = minPower
				}
				row[k] = math.Log10(p)
			}
			rows = append(rows, row)
		}
		spec.Power[ch] = rows
	}
	return spec
}
