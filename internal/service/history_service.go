package service

import (
	"context"
	"math"
	"sort"
	"time"

	"eeg-workload-be/internal/dto"
	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/model"
	"eeg-workload-be/internal/store"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultHistoryMinutes = 10
	highLoadThreshold     = 0.7
	lowLoadThreshold      = 0.3
	maxReportedPeriods    = 5
)

type IHistoryService interface {
	WorkloadHistory(ctx context.Context, req *dto.WorkloadHistoryRequest) (*dto.WorkloadHistoryResponse, error)
	AnalyzePatterns(ctx context.Context, req *dto.PatternAnalysisRequest) (*dto.PatternAnalysisResponse, error)
	SimilarFeatures(ctx context.Context, req *dto.SimilarFeaturesRequest) ([]*dto.FeatureVectorResponse, error)
}

type historyService struct {
	reader store.Reader
	now    func() time.Time
}

func NewHistoryService(reader store.Reader) IHistoryService {
	return &historyService{reader: reader, now: time.Now}
}

func (s *historyService) WorkloadHistory(ctx context.Context, req *dto.WorkloadHistoryRequest) (*dto.WorkloadHistoryResponse, error) {
	minutes := req.Minutes
	if minutes == 0 {
		minutes = defaultHistoryMinutes
	}
	end := s.now().UTC()
	start := end.Add(-time.Duration(minutes) * time.Minute)

	q := store.PredictionQuery{UserID: req.UserId, Start: start, End: end, Limit: req.Limit}
	if req.SessionId != nil {
		q.SessionID = *req.SessionId
	}
	rows, err := s.reader.Predictions(ctx, q)
	if err != nil {
		return nil, err
	}

	res := &dto.WorkloadHistoryResponse{
		TimeRangeMinutes: minutes,
		StartTime:        start,
		EndTime:          end,
		Samples:          make([]dto.PredictionResponse, 0, len(rows)),
	}
	for _, p := range toPredictionResponses(rows) {
		res.Samples = append(res.Samples, *p)
	}
	if ws := workloads(rows); len(ws) > 0 {
		st := summarize(ws)
		res.Statistics = &st
	}
	return res, nil
}

func (s *historyService) AnalyzePatterns(ctx context.Context, req *dto.PatternAnalysisRequest) (*dto.PatternAnalysisResponse, error) {
	rows, err := s.reader.Predictions(ctx, store.PredictionQuery{
		UserID: req.UserId,
		Start:  req.Start,
		End:    req.End,
	})
	if err != nil {
		return nil, err
	}

	var scored []*entity.Prediction
	for _, p := range rows {
		if p.Workload != nil {
			scored = append(scored, p)
		}
	}
	if len(scored) == 0 {
		return nil, ErrNoPredictionsRange
	}
	values := workloads(scored)

	res := &dto.PatternAnalysisResponse{
		Start:         req.Start,
		End:           req.End,
		DurationHours: req.End.Sub(req.Start).Hours(),
		SampleCount:   len(rows),
		Overall: dto.PatternOverall{
			MeanWorkload: stat.Mean(values, nil),
			MinWorkload:  floats.Min(values),
			MaxWorkload:  floats.Max(values),
		},
		Trend:           quarterTrend(values),
		HighLoadPeriods: loadPeriods(scored, func(w float64) bool { return w >= highLoadThreshold }),
		LowLoadPeriods:  loadPeriods(scored, func(w float64) bool { return w <= lowLoadThreshold }),
	}
	res.Overall.WorkloadRange = res.Overall.MaxWorkload - res.Overall.MinWorkload
	return res, nil
}

func (s *historyService) SimilarFeatures(ctx context.Context, req *dto.SimilarFeaturesRequest) ([]*dto.FeatureVectorResponse, error) {
	if len(req.Vector) != model.BandVectorDims {
		return nil, ErrInvalidVector
	}
	limit := req.Limit
	if limit == 0 {
		limit = 5
	}
	rows, err := s.reader.NearestFeatures(ctx, req.Vector, limit)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.FeatureVectorResponse, 0, len(rows))
	for _, fv := range rows {
		result = append(result, &dto.FeatureVectorResponse{
			Timestamp:       fv.Timestamp,
			SessionId:       fv.SessionId,
			FrontalTheta:    fv.FrontalTheta,
			FrontalBeta:     fv.FrontalBeta,
			ParietalAlpha:   fv.ParietalAlpha,
			ThetaBetaRatio:  fv.ThetaBetaRatio,
			ThetaAlphaRatio: fv.ThetaAlphaRatio,
			BandVector:      fv.BandVector,
			AllFeatures:     fv.AllFeatures,
		})
	}
	return result, nil
}

func workloads(rows []*entity.Prediction) []float64 {
	out := make([]float64, 0, len(rows))
	for _, p := range rows {
		if p.Workload != nil {
			out = append(out, *p.Workload)
		}
	}
	return out
}

// summarize expects a non-empty slice. The median is the upper middle
// element for even counts.
func summarize(values []float64) dto.WorkloadStatistics {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return dto.WorkloadStatistics{
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: sorted[len(sorted)/2],
	}
}

// quarterTrend compares the mean of the first and last quarter of values.
func quarterTrend(values []float64) dto.PatternTrend {
	if len(values) < 2 {
		return dto.PatternTrend{Direction: "insufficient_data"}
	}
	q := len(values) / 4
	if q == 0 {
		return dto.PatternTrend{Direction: "unknown"}
	}
	first := stat.Mean(values[:q], nil)
	last := stat.Mean(values[len(values)-q:], nil)
	dir := "decreasing"
	if last > first {
		dir = "increasing"
	}
	return dto.PatternTrend{Direction: dir, Magnitude: math.Abs(last - first)}
}

// loadPeriods collects closed runs of predictions matching in. A run still
// open at the last prediction is not reported.
func loadPeriods(rows []*entity.Prediction, in func(float64) bool) dto.LoadPeriods {
	var (
		periods []dto.LoadPeriod
		start   *time.Time
	)
	for _, p := range rows {
		ts := p.Timestamp
		if in(*p.Workload) {
			if start == nil {
				start = &ts
			}
			continue
		}
		if start != nil {
			periods = append(periods, dto.LoadPeriod{
				Start:           *start,
				End:             ts,
				DurationSeconds: ts.Sub(*start).Seconds(),
			})
			start = nil
		}
	}

	res := dto.LoadPeriods{Count: len(periods), Periods: periods}
	if len(res.Periods) > maxReportedPeriods {
		res.Periods = res.Periods[:maxReportedPeriods]
	}
	if res.Periods == nil {
		res.Periods = []dto.LoadPeriod{}
	}
	return res
}
