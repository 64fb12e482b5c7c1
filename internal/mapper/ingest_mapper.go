package mapper

import (
	"time"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/pkg/classifier"
	"eeg-workload-be/pkg/eeg"

	"github.com/google/uuid"
)

// BandVectorKeys are the feature names packed, in order, into the
// similarity-search vector of a feature_vectors row.
var BandVectorKeys = []string{
	eeg.MetricFrontalTheta,
	eeg.MetricFrontalThetaBetaRatio,
	eeg.MetricParietalAlpha,
	eeg.MetricFrontalThetaParietalAlphaRatio,
	eeg.MetricWorkloadIndex,
}

// lookup returns the first finite value stored under keys.
func lookup(features map[string]float64, keys ...string) *float64 {
	for _, k := range keys {
		if v, ok := features[k]; ok && finite(v) {
			return &v
		}
	}
	return nil
}

// FeatureVectorFromFeatures builds a feature_vectors row from a flat feature
// map. Edge-computed features may use the short column names, classifier
// output uses the metric names. The band vector is left nil unless every
// component is present and finite as a float32.
func FeatureVectorFromFeatures(ts time.Time, sessionID uuid.UUID, features map[string]float64) *entity.FeatureVector {
	all := make(map[string]interface{}, len(features))
	for k, v := range features {
		all[k] = v
	}

	fv := &entity.FeatureVector{
		Timestamp:       ts,
		SessionId:       sessionID,
		FrontalTheta:    lookup(features, "frontal_theta"),
		FrontalBeta:     lookup(features, "frontal_beta"),
		ParietalAlpha:   lookup(features, "parietal_alpha"),
		ThetaBetaRatio:  lookup(features, "theta_beta_ratio", eeg.MetricFrontalThetaBetaRatio),
		ThetaAlphaRatio: lookup(features, "theta_alpha_ratio", eeg.MetricFrontalThetaParietalAlphaRatio),
		AllFeatures:     all,
	}

	band := make([]float32, 0, len(BandVectorKeys))
	for _, k := range BandVectorKeys {
		v, ok := features[k]
		if !ok || !finite(float64(float32(v))) {
			return fv
		}
		band = append(band, float32(v))
	}
	fv.BandVector = band
	return fv
}

// PredictionFromResult builds a predictions row for one classifier run.
func PredictionFromResult(ts time.Time, sessionID uuid.UUID, userID string, c classifier.Classifier, res *classifier.Result) *entity.Prediction {
	workload := res.Workload
	confidence := res.Confidence
	elapsed := res.Metadata.ProcessingTimeMs
	version := c.Version()

	features := make(map[string]float64, len(res.Features))
	for k, v := range res.Features {
		features[k] = v
	}
	return &entity.Prediction{
		Timestamp:         ts,
		SessionId:         sessionID,
		UserId:            userID,
		ClassifierName:    c.Name(),
		Workload:          &workload,
		Attention:         res.Attention,
		Confidence:        &confidence,
		Features:          features,
		ProcessingTimeMs:  &elapsed,
		ClassifierVersion: &version,
	}
}

// StreamSampleFromRaw builds a stream_samples row holding one raw block.
func StreamSampleFromRaw(ts time.Time, sessionID uuid.UUID, streamName string, raw [][]float64) *entity.StreamSample {
	kind := "EEG"
	sid := sessionID
	samples := 0
	if len(raw) > 0 {
		samples = len(raw[0])
	}
	return &entity.StreamSample{
		Timestamp:  ts,
		SessionId:  &sid,
		StreamName: streamName,
		StreamType: &kind,
		Data: map[string]interface{}{
			"channels":   raw,
			"n_channels": len(raw),
			"n_samples":  samples,
		},
	}
}
