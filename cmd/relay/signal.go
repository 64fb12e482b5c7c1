package main

import (
	"math"
	"math/rand"
)

// generator produces EEG-like blocks: a theta, alpha and beta rhythm per
// channel plus gaussian noise. Higher load raises frontal theta and lowers
// parietal alpha, which is what the workload index responds to.
type generator struct {
	rate     float64
	channels int
	rng      *rand.Rand
	t        int
}

func newGenerator(rate float64, channels int, seed int64) *generator {
	return &generator{rate: rate, channels: channels, rng: rand.New(rand.NewSource(seed))}
}

func (g *generator) block(n int, load float64) [][]float64 {
	load = math.Max(0, math.Min(1, load))
	out := make([][]float64, g.channels)
	for ch := range out {
		theta, alpha := 10.0, 10.0
		switch {
		case ch < 2:
			theta = 10 + 20*load
		case ch >= 5:
			alpha = 20 - 15*load
		}
		row := make([]float64, n)
		for i := range row {
			ts := float64(g.t+i) / g.rate
			row[i] = theta*math.Sin(2*math.Pi*6*ts) +
				alpha*math.Sin(2*math.Pi*10*ts+float64(ch)) +
				5*math.Sin(2*math.Pi*20*ts) +
				g.rng.NormFloat64()*3
		}
		out[ch] = row
	}
	g.t += n
	return out
}

type outbound struct {
	messageType int
	payload     []byte
}

// backlog holds frames not yet written, dropping the oldest when full.
type backlog struct {
	max   int
	items []outbound
}

func newBacklog(max int) *backlog {
	if max <= 0 {
		max = 1
	}
	return &backlog{max: max}
}

func (b *backlog) push(o outbound) {
	if len(b.items) == b.max {
		b.items = b.items[1:]
	}
	b.items = append(b.items, o)
}

func (b *backlog) peek() outbound { return b.items[0] }
func (b *backlog) pop()           { b.items = b.items[1:] }
func (b *backlog) len() int       { return len(b.items) }
