package classifier

import (
	"context"
	"fmt"
	"time"

	"eeg-workload-be/pkg/eeg"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var expectedChannels = []string{"F3", "F4", "C3", "Cz", "C4", "P3", "P4"}

// SignalProcessing is the deterministic band-power workload classifier.
// It has no trained state, so Confidence is always 1 and Attention is nil.
type SignalProcessing struct {
	name    string
	version string
	cfg     eeg.Config
}

func NewSignalProcessing(cfg eeg.Config) (*SignalProcessing, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &SignalProcessing{
		name:    DefaultName,
		version: "1.0",
		cfg:     cfg,
	}, nil
}

func (s *SignalProcessing) Name() string    { return s.name }
func (s *SignalProcessing) Version() string { return s.version }

// Config returns the pipeline configuration the classifier runs with.
func (s *SignalProcessing) Config() eeg.Config { return s.cfg }

func (s *SignalProcessing) Predict(ctx context.Context, data [][]float64) (*Result, error) {
	_, span := otel.Tracer("classifier").Start(ctx, "classifier.Predict")
	defer span.End()

	start := time.Now()
	samples := 0
	if len(data) > 0 {
		samples = len(data[0])
	}
	span.SetAttributes(
		attribute.String("classifier.name", s.name),
		attribute.Int("eeg.channels", len(data)),
		attribute.Int("eeg.samples", samples),
	)

	est, err := eeg.Estimate(data, s.cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s predict: %w", s.name, err)
	}

	features := make(map[string]float64, len(est.Metrics))
	for k, v := range est.Metrics {
		features[k] = v
	}
	span.SetAttributes(attribute.Float64("eeg.workload", est.Workload))

	return &Result{
		Workload:   est.Workload,
		Confidence: 1.0,
		Features:   features,
		Metadata: ResultMetadata{
			ClassifierType:   DefaultName,
			ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000,
			Channels:         len(data),
			Samples:          samples,
			DurationSec:      float64(samples) / s.cfg.SamplingRate,
		},
	}, nil
}

func (s *SignalProcessing) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"name":        s.name,
		"version":     s.version,
		"type":        DefaultName,
		"description": "Deterministic workload classifier based on EEG band power metrics",
		"config": map[string]interface{}{
			"sampling_frequency": s.cfg.SamplingRate,
			"channel_groups":     s.cfg.ChannelGroups,
			"frequency_bands":    s.cfg.Bands,
			"filter_cutoffs":     s.cfg.Filter,
			"psd_config":         s.cfg.Window,
			"metric_weights":     s.cfg.Weights,
		},
		"requirements": map[string]interface{}{
			"min_channels":      s.cfg.MinChannels,
			"expected_channels": expectedChannels,
			"sampling_rate":     fmt.Sprintf("%g Hz", s.cfg.SamplingRate),
			"min_duration":      fmt.Sprintf("%g seconds", s.cfg.Window.Size),
		},
	}
}
