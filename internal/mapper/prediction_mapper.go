package mapper

import (
	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/model"
)

type PredictionMapper struct{}

func NewPredictionMapper() *PredictionMapper {
	return &PredictionMapper{}
}

func (m *PredictionMapper) ToEntity(p *model.Prediction) *entity.Prediction {
	if p == nil {
		return nil
	}
	return &entity.Prediction{
		Id:                p.Id,
		Timestamp:         p.Timestamp,
		SessionId:         p.SessionId,
		UserId:            p.UserId,
		ClassifierName:    p.ClassifierName,
		Workload:          p.Workload,
		Attention:         p.Attention,
		Confidence:        p.Confidence,
		Features:          floatsFromJSON(p.Features),
		ProcessingTimeMs:  p.ProcessingTimeMs,
		ClassifierVersion: p.ClassifierVersion,
	}
}

func (m *PredictionMapper) ToModel(p *entity.Prediction) *model.Prediction {
	if p == nil {
		return nil
	}
	out := &model.Prediction{
		Id:                p.Id,
		Timestamp:         p.Timestamp,
		SessionId:         p.SessionId,
		UserId:            p.UserId,
		ClassifierName:    p.ClassifierName,
		Workload:          p.Workload,
		Attention:         p.Attention,
		Confidence:        p.Confidence,
		ProcessingTimeMs:  p.ProcessingTimeMs,
		ClassifierVersion: p.ClassifierVersion,
	}
	if p.Features != nil {
		out.Features = toJSON(p.Features)
	}
	return out
}

func (m *PredictionMapper) ToEntities(predictions []*model.Prediction) []*entity.Prediction {
	entities := make([]*entity.Prediction, len(predictions))
	for i, p := range predictions {
		entities[i] = m.ToEntity(p)
	}
	return entities
}

func (m *PredictionMapper) ToModels(predictions []*entity.Prediction) []*model.Prediction {
	models := make([]*model.Prediction, len(predictions))
	for i, p := range predictions {
		models[i] = m.ToModel(p)
	}
	return models
}
