package mapper

import (
	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/model"

	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToEntity(s *model.Session) *entity.Session {
	if s == nil {
		return nil
	}
	return &entity.Session{
		SessionId:         s.SessionId,
		UserId:            s.UserId,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		DeviceInfo:        objectFromJSON(s.DeviceInfo),
		TotalSamples:      s.TotalSamples,
		Notes:             s.Notes,
		ActiveClassifiers: []string(s.ActiveClassifiers),
	}
}

func (m *SessionMapper) ToModel(s *entity.Session) *model.Session {
	if s == nil {
		return nil
	}
	var device datatypes.JSON
	if s.DeviceInfo != nil {
		device = toJSON(s.DeviceInfo)
	}
	return &model.Session{
		SessionId:         s.SessionId,
		UserId:            s.UserId,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		DeviceInfo:        device,
		TotalSamples:      s.TotalSamples,
		Notes:             s.Notes,
		ActiveClassifiers: datatypes.NewJSONSlice(s.ActiveClassifiers),
	}
}

func (m *SessionMapper) ToEntities(sessions []*model.Session) []*entity.Session {
	entities := make([]*entity.Session, len(sessions))
	for i, s := range sessions {
		entities[i] = m.ToEntity(s)
	}
	return entities
}
