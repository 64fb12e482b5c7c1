package mapper

import (
	"fmt"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/model"
)

type StreamSampleMapper struct{}

func NewStreamSampleMapper() *StreamSampleMapper {
	return &StreamSampleMapper{}
}

func (m *StreamSampleMapper) ToEntity(s *model.StreamSample) *entity.StreamSample {
	if s == nil {
		return nil
	}
	return &entity.StreamSample{
		Id:         s.Id,
		Timestamp:  s.Timestamp,
		SessionId:  s.SessionId,
		StreamName: s.StreamName,
		StreamType: s.StreamType,
		Data:       objectFromJSON(s.Data),
	}
}

// ToModel fails with ErrUnencodable when Data cannot be stored. The column is
// NOT NULL, so there is no empty fallback.
func (m *StreamSampleMapper) ToModel(s *entity.StreamSample) (*model.StreamSample, error) {
	if s == nil {
		return nil, nil
	}
	data, err := marshalJSON(s.Data)
	if err != nil {
		return nil, fmt.Errorf("stream sample %s: %w", s.StreamName, err)
	}
	return &model.StreamSample{
		Id:         s.Id,
		Timestamp:  s.Timestamp,
		SessionId:  s.SessionId,
		StreamName: s.StreamName,
		StreamType: s.StreamType,
		Data:       data,
	}, nil
}

func (m *StreamSampleMapper) ToModels(rows []*entity.StreamSample) ([]*model.StreamSample, error) {
	models := make([]*model.StreamSample, len(rows))
	for i, s := range rows {
		row, err := m.ToModel(s)
		if err != nil {
			return nil, err
		}
		models[i] = row
	}
	return models, nil
}
