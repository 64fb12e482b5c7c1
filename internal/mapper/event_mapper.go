package mapper

import (
	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/model"
)

type EventMapper struct{}

func NewEventMapper() *EventMapper {
	return &EventMapper{}
}

func (m *EventMapper) ToEntity(e *model.Event) *entity.Event {
	if e == nil {
		return nil
	}
	return &entity.Event{
		EventId:       e.EventId,
		SessionId:     e.SessionId,
		Timestamp:     e.Timestamp,
		Label:         e.Label,
		Notes:         e.Notes,
		EventMetadata: objectFromJSON(e.EventMetadata),
	}
}

func (m *EventMapper) ToModel(e *entity.Event) *model.Event {
	if e == nil {
		return nil
	}
	out := &model.Event{
		EventId:   e.EventId,
		SessionId: e.SessionId,
		Timestamp: e.Timestamp,
		Label:     e.Label,
		Notes:     e.Notes,
	}
	if e.EventMetadata != nil {
		out.EventMetadata = toJSON(e.EventMetadata)
	}
	return out
}

func (m *EventMapper) ToEntities(events []*model.Event) []*entity.Event {
	entities := make([]*entity.Event, len(events))
	for i, e := range events {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
