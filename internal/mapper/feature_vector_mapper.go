package mapper

import (
	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type FeatureVectorMapper struct{}

func NewFeatureVectorMapper() *FeatureVectorMapper {
	return &FeatureVectorMapper{}
}

func (m *FeatureVectorMapper) ToEntity(f *model.FeatureVector) *entity.FeatureVector {
	if f == nil {
		return nil
	}
	var band []float32
	if f.BandVector != nil {
		band = f.BandVector.Slice()
	}
	return &entity.FeatureVector{
		Id:              f.Id,
		Timestamp:       f.Timestamp,
		SessionId:       f.SessionId,
		FrontalTheta:    f.FrontalTheta,
		FrontalBeta:     f.FrontalBeta,
		ParietalAlpha:   f.ParietalAlpha,
		ThetaBetaRatio:  f.ThetaBetaRatio,
		ThetaAlphaRatio: f.ThetaAlphaRatio,
		AllFeatures:     objectFromJSON(f.AllFeatures),
		BandVector:      band,
	}
}

func (m *FeatureVectorMapper) ToModel(f *entity.FeatureVector) *model.FeatureVector {
	if f == nil {
		return nil
	}
	out := &model.FeatureVector{
		Id:              f.Id,
		Timestamp:       f.Timestamp,
		SessionId:       f.SessionId,
		FrontalTheta:    f.FrontalTheta,
		FrontalBeta:     f.FrontalBeta,
		ParietalAlpha:   f.ParietalAlpha,
		ThetaBetaRatio:  f.ThetaBetaRatio,
		ThetaAlphaRatio: f.ThetaAlphaRatio,
	}
	if f.AllFeatures != nil {
		out.AllFeatures = toJSON(f.AllFeatures)
	}
	if len(f.BandVector) == model.BandVectorDims {
		v := pgvector.NewVector(f.BandVector)
		out.BandVector = &v
	}
	return out
}

func (m *FeatureVectorMapper) ToEntities(rows []*model.FeatureVector) []*entity.FeatureVector {
	entities := make([]*entity.FeatureVector, len(rows))
	for i, f := range rows {
		entities[i] = m.ToEntity(f)
	}
	return entities
}

func (m *FeatureVectorMapper) ToModels(rows []*entity.FeatureVector) []*model.FeatureVector {
	models := make([]*model.FeatureVector, len(rows))
	for i, f := range rows {
		models[i] = m.ToModel(f)
	}
	return models
}
