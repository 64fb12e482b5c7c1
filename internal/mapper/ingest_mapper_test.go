package mapper

import (
	"math"
	"testing"
	"time"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/model"
	"eeg-workload-be/pkg/eeg"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureVectorFromClassifierFeatures(t *testing.T) {
	require.Len(t, BandVectorKeys, model.BandVectorDims)

	sid := uuid.New()
	fv := FeatureVectorFromFeatures(time.Unix(10, 0), sid, map[string]float64{
		eeg.MetricFrontalTheta:                   1,
		eeg.MetricFrontalThetaBetaRatio:          2,
		eeg.MetricParietalAlpha:                  3,
		eeg.MetricFrontalThetaParietalAlphaRatio: 4,
		eeg.MetricWorkloadIndex:                  5,
	})

	assert.Equal(t, sid, fv.SessionId)
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, fv.BandVector)
	require.NotNil(t, fv.ThetaBetaRatio)
	assert.Equal(t, 2.0, *fv.ThetaBetaRatio)
	require.NotNil(t, fv.ThetaAlphaRatio)
	assert.Equal(t, 4.0, *fv.ThetaAlphaRatio)
	assert.Nil(t, fv.FrontalBeta)
	assert.Equal(t, 5.0, fv.AllFeatures[eeg.MetricWorkloadIndex])
}

func TestFeatureVectorFromEdgeFeatures(t *testing.T) {
	fv := FeatureVectorFromFeatures(time.Now(), uuid.New(), map[string]float64{
		"frontal_theta":    1.5,
		"frontal_beta":     0.5,
		"theta_beta_ratio": 3,
	})

	assert.Nil(t, fv.BandVector, "partial features leave the vector empty")
	require.NotNil(t, fv.FrontalBeta)
	assert.Equal(t, 0.5, *fv.FrontalBeta)
	assert.Equal(t, 3.0, *fv.ThetaBetaRatio)
	assert.Nil(t, fv.ParietalAlpha)
}

func TestStreamSampleFromRaw(t *testing.T) {
	sid := uuid.New()
	s := StreamSampleFromRaw(time.Now(), sid, "edge_relay", [][]float64{{1, 2, 3}, {4, 5, 6}})

	require.NotNil(t, s.SessionId)
	assert.Equal(t, sid, *s.SessionId)
	assert.Equal(t, "edge_relay", s.StreamName)
	assert.Equal(t, 2, s.Data["n_channels"])
	assert.Equal(t, 3, s.Data["n_samples"])
}

func TestFeatureVectorSkipsNonFiniteBand(t *testing.T) {
	full := func(k string, v float64) map[string]float64 {
		m := map[string]float64{
			eeg.MetricFrontalTheta:                   1,
			eeg.MetricFrontalThetaBetaRatio:          2,
			eeg.MetricParietalAlpha:                  3,
			eeg.MetricFrontalThetaParietalAlphaRatio: 4,
			eeg.MetricWorkloadIndex:                  5,
		}
		m[k] = v
		return m
	}

	tests := []struct {
		name     string
		features map[string]float64
	}{
		{"nan", full(eeg.MetricFrontalThetaBetaRatio, math.NaN())},
		{"positive inf", full(eeg.MetricWorkloadIndex, math.Inf(1))},
		{"negative inf", full(eeg.MetricFrontalTheta, math.Inf(-1))},
		{"overflows float32", full(eeg.MetricParietalAlpha, 1e300)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv := FeatureVectorFromFeatures(time.Now(), uuid.New(), tt.features)
			assert.Nil(t, fv.BandVector)

			row := NewFeatureVectorMapper().ToModel(fv)
			assert.Nil(t, row.BandVector)
			assert.NotEmpty(t, row.AllFeatures, "other features are still stored")
		})
	}
}

func TestFeatureVectorDropsNonFiniteColumns(t *testing.T) {
	fv := FeatureVectorFromFeatures(time.Now(), uuid.New(), map[string]float64{
		"theta_beta_ratio":              math.NaN(),
		eeg.MetricFrontalThetaBetaRatio: 2,
		"frontal_theta":                 math.Inf(1),
	})

	require.NotNil(t, fv.ThetaBetaRatio)
	assert.Equal(t, 2.0, *fv.ThetaBetaRatio, "falls through to the finite alias")
	assert.Nil(t, fv.FrontalTheta)

	row := NewFeatureVectorMapper().ToModel(fv)
	assert.JSONEq(t, `{"theta_beta_ratio": null, "frontal_theta": null, "frontal_theta_beta_ratio": 2}`, string(row.AllFeatures))
}

func TestStreamSampleModelEncodesNonFiniteAsNull(t *testing.T) {
	s := StreamSampleFromRaw(time.Now(), uuid.New(), "edge_relay", [][]float64{{1, math.NaN()}, {math.Inf(1), 4}})

	row, err := NewStreamSampleMapper().ToModel(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"channels": [[1, null], [null, 4]], "n_channels": 2, "n_samples": 2}`, string(row.Data))
}

func TestStreamSampleModelRejectsUnencodableData(t *testing.T) {
	s := &entity.StreamSample{
		StreamName: "edge_relay",
		Data:       map[string]interface{}{"handle": make(chan int)},
	}

	_, err := NewStreamSampleMapper().ToModel(s)
	assert.ErrorIs(t, err, ErrUnencodable)

	_, err = NewStreamSampleMapper().ToModels([]*entity.StreamSample{s})
	assert.ErrorIs(t, err, ErrUnencodable)
}
