package service

import (
	"sort"
	"time"

	"eeg-workload-be/internal/buffer"
	"eeg-workload-be/internal/dto"
	"eeg-workload-be/pkg/eeg"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendUnknown          = "unknown"
	TrendInsufficientData = "insufficient_data"

	trendSamples        = 5
	trendMinSamples     = 3
	trendThreshold      = 0.05
	windowTrendMinutes  = 5
	windowTrendDelta    = 0.1
	stateDurationWindow = 20
)

// cognitiveState is one workload band with its interpretation.
type cognitiveState struct {
	name            string
	intensity       string
	low, high       float64
	recommendations []string
}

var cognitiveStates = []cognitiveState{
	{
		name: "focused", intensity: "low", low: 0, high: 0.3,
		recommendations: []string{
			"Good time for complex or challenging tasks",
			"Cognitive capacity available for learning new concepts",
		},
	},
	{
		name: "moderate", intensity: "medium", low: 0.3, high: 0.5,
		recommendations: []string{
			"Maintain current pace",
			"Good balance of engagement and capacity",
		},
	},
	{
		name: "high_load", intensity: "high", low: 0.5, high: 0.7,
		recommendations: []string{
			"Consider taking a short break soon",
			"Switch to less demanding tasks if possible",
			"Stay hydrated",
		},
	},
	{
		name: "overloaded", intensity: "very_high", low: 0.7, high: 1.0,
		recommendations: []string{
			"Take a break as soon as possible",
			"Step away from screen for 5-10 minutes",
			"Practice deep breathing or stretching",
			"Avoid starting new complex tasks",
		},
	},
}

func classifyState(workload float64) cognitiveState {
	for _, st := range cognitiveStates[:len(cognitiveStates)-1] {
		if workload < st.high {
			return st
		}
	}
	return cognitiveStates[len(cognitiveStates)-1]
}

// inState mirrors the duration estimate: the last band is closed at 1.0,
// so a workload at or above 1.0 never counts as inside it.
func (c cognitiveState) inState(workload float64) bool {
	return workload >= c.low && workload < c.high
}

type IRealtimeService interface {
	CurrentLoad(userId string) (*dto.CurrentLoadResponse, error)
	CognitiveState(userId string) (*dto.CognitiveStateResponse, error)
	Trend(userId string, minutes int) (*dto.WorkloadTrendResponse, error)
	BufferStatus() *dto.BufferStatusResponse
}

type realtimeService struct {
	buffers *buffer.Manager
	now     func() time.Time
}

func NewRealtimeService(buffers *buffer.Manager) IRealtimeService {
	return &realtimeService{buffers: buffers, now: time.Now}
}

func workloadOf(r buffer.Record) float64 {
	if w, ok := r.Values["workload"]; ok {
		return w
	}
	return r.Values[eeg.MetricWorkloadIndex]
}

func confidenceOf(r buffer.Record) float64 {
	if c, ok := r.Values["confidence"]; ok {
		return c
	}
	return 1.0
}

func (s *realtimeService) CurrentLoad(userId string) (*dto.CurrentLoadResponse, error) {
	if len(s.buffers.ActiveSessions()) == 0 {
		return nil, ErrNoActiveSessions
	}
	latest, ok := s.buffers.Latest(userId, buffer.KindPrediction)
	if !ok {
		return nil, ErrNoPredictions
	}

	workload := workloadOf(latest)
	return &dto.CurrentLoadResponse{
		UserId:     latest.UserID,
		SessionId:  latest.SessionID,
		Timestamp:  latest.Timestamp,
		Workload:   workload,
		Confidence: confidenceOf(latest),
		Trend:      s.recentTrend(latest, workload),
		Features:   latest.Values,
	}, nil
}

// recentTrend compares the current workload with the mean of the previous
// predictions in the same session.
func (s *realtimeService) recentTrend(latest buffer.Record, current float64) string {
	b, ok := s.buffers.Get(latest.SessionID)
	if !ok {
		return TrendUnknown
	}
	recent := b.LastN(trendSamples, latest.UserID, buffer.KindPrediction)
	if len(recent) < trendMinSamples {
		return TrendUnknown
	}

	// recent is newest first; recent[0] is the current prediction.
	prev := make([]float64, 0, len(recent)-1)
	for _, r := range recent[1:] {
		prev = append(prev, workloadOf(r))
	}
	diff := current - stat.Mean(prev, nil)
	switch {
	case diff > trendThreshold:
		return TrendIncreasing
	case diff < -trendThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func (s *realtimeService) CognitiveState(userId string) (*dto.CognitiveStateResponse, error) {
	load, err := s.CurrentLoad(userId)
	if err != nil {
		return nil, err
	}

	st := classifyState(load.Workload)
	recs := append([]string(nil), st.recommendations...)
	switch {
	case load.Trend == TrendIncreasing && load.Workload > 0.5:
		recs = append([]string{"Cognitive load is increasing - monitor closely"}, recs...)
	case load.Trend == TrendDecreasing && load.Workload > 0.6:
		recs = append([]string{"Cognitive load decreasing - good progress"}, recs...)
	}

	return &dto.CognitiveStateResponse{
		State:           st.name,
		Intensity:       st.intensity,
		Workload:        load.Workload,
		Confidence:      load.Confidence,
		DurationSeconds: s.stateDuration(load, st),
		Trend:           load.Trend,
		Recommendations: recs,
		Timestamp:       load.Timestamp,
	}, nil
}

// stateDuration walks back from the newest prediction while the workload
// stays inside the current state's band.
func (s *realtimeService) stateDuration(load *dto.CurrentLoadResponse, st cognitiveState) float64 {
	b, ok := s.buffers.Get(load.SessionId)
	if !ok {
		return 0
	}
	recent := b.LastN(stateDurationWindow, load.UserId, buffer.KindPrediction)
	if len(recent) < 2 {
		return 0
	}

	entered := recent[0].Timestamp
	for _, r := range recent {
		if !st.inState(workloadOf(r)) {
			break
		}
		entered = r.Timestamp
	}
	return recent[0].Timestamp.Sub(entered).Seconds()
}

func (s *realtimeService) Trend(userId string, minutes int) (*dto.WorkloadTrendResponse, error) {
	if minutes <= 0 {
		minutes = windowTrendMinutes
	}
	if len(s.buffers.ActiveSessions()) == 0 {
		return nil, ErrNoActiveSessions
	}

	end := s.now().UTC()
	start := end.Add(-time.Duration(minutes) * time.Minute)

	var preds []buffer.Record
	for _, id := range s.buffers.ActiveSessions() {
		b, ok := s.buffers.Get(id)
		if !ok {
			continue
		}
		for _, r := range b.Range(start, end, userId) {
			if r.Kind == buffer.KindPrediction {
				preds = append(preds, r)
			}
		}
	}
	if len(preds) == 0 {
		return nil, ErrNoPredictionsRange
	}
	sort.SliceStable(preds, func(i, j int) bool { return preds[i].Timestamp.Before(preds[j].Timestamp) })

	values := make([]float64, len(preds))
	stamps := make([]time.Time, len(preds))
	for i, r := range preds {
		values[i] = workloadOf(r)
		stamps[i] = r.Timestamp
	}

	return &dto.WorkloadTrendResponse{
		SamplesCount:     len(preds),
		TimeRangeMinutes: minutes,
		StartTime:        start,
		EndTime:          end,
		AvgWorkload:      stat.Mean(values, nil),
		MinWorkload:      floats.Min(values),
		MaxWorkload:      floats.Max(values),
		Trend:            halvesTrend(values),
		WorkloadValues:   values,
		Timestamps:       stamps,
	}, nil
}

// halvesTrend compares the mean of the second half of values against the
// first half.
func halvesTrend(values []float64) string {
	mid := len(values) / 2
	if mid == 0 {
		return TrendInsufficientData
	}
	diff := stat.Mean(values[mid:], nil) - stat.Mean(values[:mid], nil)
	switch {
	case diff > windowTrendDelta:
		return TrendIncreasing
	case diff < -windowTrendDelta:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func (s *realtimeService) BufferStatus() *dto.BufferStatusResponse {
	all := s.buffers.AllStats()
	res := &dto.BufferStatusResponse{
		ActiveSessions: len(all),
		Sessions:       make([]dto.BufferStatsResponse, 0, len(all)),
	}
	for id, st := range all {
		res.Sessions = append(res.Sessions, dto.BufferStatsResponse{
			SessionId:      id,
			TotalSamples:   st.TotalSamples,
			UniqueUsers:    st.UniqueUsers,
			UniqueSessions: st.UniqueSessions,
			OldestSample:   st.Oldest,
			NewestSample:   st.Newest,
			Capacity:       st.Capacity,
			UsagePercent:   st.UsagePercent,
			Evicted:        st.Evicted,
		})
	}
	sort.Slice(res.Sessions, func(i, j int) bool {
		return res.Sessions[i].SessionId.String() < res.Sessions[j].SessionId.String()
	})
	return res
}
