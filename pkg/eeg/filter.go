package eeg

import (
	"fmt"
	"math"
	"math/cmplx"
)

// filterOrder is the Butterworth prototype order. The bandpass transform
// doubles it, giving four second-order sections.
const filterOrder = 4

// biquad is one second-order section in transposed direct form II,
// normalised so that a0 == 1.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// butterBandpass designs a digital Butterworth bandpass of the given
// prototype order. Design follows the analog prototype -> lowpass-to-bandpass
// -> bilinear transform route with frequency prewarping, and returns the
// result as cascaded sections so the low cutoff stays numerically stable.
func butterBandpass(order int, low, high, sfreq float64) ([]biquad, error) {
	nyq := sfreq / 2
	if low <= 0 || high <= low || high >= nyq {
		return nil, fmt.Errorf("%w: bandpass %.2f-%.2f Hz at fs=%.2f", ErrInvalidConfig, low, high, sfreq)
	}

	// Digital design on a normalised sample rate of 2, as scipy does.
	const fs = 2.0
	wl := 2 * fs * math.Tan(math.Pi*(low/nyq)/fs)
	wh := 2 * fs * math.Tan(math.Pi*(high/nyq)/fs)
	bw := wh - wl
	wo2 := wl * wh

	// Analog lowpass prototype poles, unit gain.
	proto := make([]complex128, order)
	for k := 0; k < order; k++ {
		m := float64(-order + 1 + 2*k)
		proto[k] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*order)))
	}

	// Lowpass to bandpass: each prototype pole splits into two.
	analog := make([]complex128, 0, 2*order)
	for _, p := range proto {
		pl := p * complex(bw/2, 0)
		root := cmplx.Sqrt(pl*pl - complex(wo2, 0))
		analog = append(analog, pl+root, pl-root)
	}

	// Bilinear transform. The order zeros at the origin map to z=+1 and the
	// order zeros at infinity map to z=-1.
	const fs2 = 2 * fs
	gain := complex(math.Pow(bw, float64(order))*math.Pow(fs2, float64(order)), 0)
	digital := make([]complex128, len(analog))
	for i, p := range analog {
		digital[i] = (fs2 + p) / (fs2 - p)
		gain /= fs2 - p
	}

	sections := make([]biquad, 0, order)
	for _, p := range digital {
		if imag(p) <= 0 {
			continue
		}
		sections = append(sections, biquad{
			b0: 1, b1: 0, b2: -1,
			a1: -2 * real(p),
			a2: real(p)*real(p) + imag(p)*imag(p),
		})
	}
	if len(sections) != order {
		return nil, fmt.Errorf("%w: bandpass design produced %d sections", ErrInvalidConfig, len(sections))
	}

	k := real(gain)
	sections[0].b0 *= k
	sections[0].b1 *= k
	sections[0].b2 *= k
	return sections, nil
}

// steadyState returns the section's initial state for a unit step input and
// the section's DC gain.
func (s biquad) steadyState() (z1, z2, g float64) {
	den := 1 + s.a1 + s.a2
	if den != 0 {
		g = (s.b0 + s.b1 + s.b2) / den
	}
	z2 = s.b2 - s.a2*g
	z1 = s.b1 - s.a1*g + z2
	return z1, z2, g
}

// sosFilter runs the cascade over x in place, starting every section from
// its steady state scaled by x[0].
func sosFilter(sections []biquad, x []float64) {
	if len(x) == 0 {
		return
	}
	z1 := make([]float64, len(sections))
	z2 := make([]float64, len(sections))
	scale := x[0]
	for i, s := range sections {
		a, b, g := s.steadyState()
		z1[i], z2[i] = a*scale, b*scale
		scale *= g
	}

	for n, v := range x {
		for i, s := range sections {
			y := s.b0*v + z1[i]
			z1[i] = s.b1*v - s.a1*y + z2[i]
			z2[i] = s.b2*v - s.a2*y
			v = y
		}
		x[n] = v
	}
}

// filtfilt applies the cascade forward and backward for zero phase
// distortion, using odd reflection padding at both edges.
func filtfilt(sections []biquad, x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	padlen := 3 * (2*len(sections) + 1)
	if padlen > n-1 {
		padlen = n - 1
	}

	ext := make([]float64, n+2*padlen)
	for i := 0; i < padlen; i++ {
		ext[i] = 2*x[0] - x[padlen-i]
		ext[padlen+n+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[padlen:], x)

	sosFilter(sections, ext)
	reverse(ext)
	sosFilter(sections, ext)
	reverse(ext)

	out := make([]float64, n)
	copy(out, ext[padlen:padlen+n])
	return out
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

// Bandpass applies a 4th-order zero-phase Butterworth bandpass to every
// channel independently. The input is not modified.
func Bandpass(data [][]float64, sfreq, low, high float64) ([][]float64, error) {
	sections, err := butterBandpass(filterOrder, low, high, sfreq)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(data))
	for ch, samples := range data {
		out[ch] = filtfilt(sections, samples)
	}
	return out, nil
}
