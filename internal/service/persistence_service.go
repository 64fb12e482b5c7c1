package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/metrics"
	"eeg-workload-be/internal/pkg/logger"
	"eeg-workload-be/internal/store"

	"github.com/google/uuid"
)

const (
	DefaultBatchSize     = 50
	DefaultFlushInterval = 5 * time.Second

	queuePredictions    = "predictions"
	queueFeatureVectors = "feature_vectors"
	queueStreamSamples  = "stream_samples"

	flushTimeout = 30 * time.Second
)

type PersistenceConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// pendingQueue is an ordered write queue. drain and requeue keep the
// original order of a batch that failed to write.
type pendingQueue[T any] struct {
	mu    sync.Mutex
	items []T
}

func (q *pendingQueue[T]) push(v T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, v)
	return len(q.items)
}

func (q *pendingQueue[T]) drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.items
	q.items = nil
	return batch
}

func (q *pendingQueue[T]) requeue(batch []T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(batch, q.items...)
	return len(q.items)
}

func (q *pendingQueue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// PersistenceService batches prediction, feature vector and stream sample
// rows and writes them on a timer or when a queue reaches the batch size.
// Failed batches go back to the front of their queue for the next cycle.
type PersistenceService struct {
	store   store.Writer
	logger  logger.ILogger
	metrics *metrics.Metrics

	batchSize int
	interval  time.Duration

	predictions pendingQueue[*entity.Prediction]
	features    pendingQueue[*entity.FeatureVector]
	samples     pendingQueue[*entity.StreamSample]

	// flushMu serialises flush cycles so a retry never overtakes the batch it
	// is retrying.
	flushMu sync.Mutex
	signal  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	stopErr   error
}

func NewPersistenceService(w store.Writer, log logger.ILogger, m *metrics.Metrics, cfg PersistenceConfig) *PersistenceService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	return &PersistenceService{
		store:     w,
		logger:    log,
		metrics:   m,
		batchSize: cfg.BatchSize,
		interval:  cfg.FlushInterval,
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start launches the flush worker. Calling it more than once has no effect.
func (s *PersistenceService) Start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.run(ctx)
		s.logger.Info("PERSISTENCE", "Batch writer started", map[string]interface{}{
			"batch_size":     s.batchSize,
			"flush_interval": s.interval.String(),
		})
	})
}

func (s *PersistenceService) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.signal:
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		_ = s.Flush(flushCtx)
		cancel()
	}
}

// Stop halts the worker, performs one final flush bounded by ctx and closes
// the store. Rows that still fail to write are lost.
func (s *PersistenceService) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
			select {
			case <-s.done:
			case <-ctx.Done():
			}
		}

		flushErr := s.Flush(ctx)
		if flushErr != nil {
			p, f, r := s.Pending()
			s.logger.Error("PERSISTENCE", "Final flush failed, dropping pending rows", map[string]interface{}{
				"error":           flushErr.Error(),
				"predictions":     p,
				"feature_vectors": f,
				"stream_samples":  r,
			})
		}
		s.stopErr = errors.Join(flushErr, s.store.Close())
		s.logger.Info("PERSISTENCE", "Batch writer stopped", nil)
	})
	return s.stopErr
}

func (s *PersistenceService) notify(n int) {
	if n < s.batchSize {
		return
	}
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *PersistenceService) EnqueuePrediction(p *entity.Prediction) {
	n := s.predictions.push(p)
	s.metrics.Pending(queuePredictions, n)
	s.notify(n)
}

func (s *PersistenceService) EnqueueFeatureVector(fv *entity.FeatureVector) {
	n := s.features.push(fv)
	s.metrics.Pending(queueFeatureVectors, n)
	s.notify(n)
}

func (s *PersistenceService) EnqueueStreamSample(rs *entity.StreamSample) {
	n := s.samples.push(rs)
	s.metrics.Pending(queueStreamSamples, n)
	s.notify(n)
}

// Pending returns the queue lengths for predictions, feature vectors and
// stream samples.
func (s *PersistenceService) Pending() (predictions, features, samples int) {
	return s.predictions.len(), s.features.len(), s.samples.len()
}

// Flush drains every queue once and writes one batch per queue.
func (s *PersistenceService) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	return errors.Join(
		flushQueue(ctx, s, queuePredictions, &s.predictions, s.store.WritePredictions),
		flushQueue(ctx, s, queueFeatureVectors, &s.features, s.store.WriteFeatureVectors),
		flushQueue(ctx, s, queueStreamSamples, &s.samples, s.store.WriteStreamSamples),
	)
}

func flushQueue[T any](ctx context.Context, s *PersistenceService, name string, q *pendingQueue[T], write func(context.Context, []T) error) error {
	batch := q.drain()
	if len(batch) == 0 {
		return nil
	}

	if err := write(ctx, batch); err != nil {
		n := q.requeue(batch)
		s.metrics.BatchFailed(name)
		s.metrics.Pending(name, n)
		s.logger.Error("PERSISTENCE", "Batch write failed, requeued", map[string]interface{}{
			"queue": name,
			"rows":  len(batch),
			"error": err.Error(),
		})
		return fmt.Errorf("flush %s: %w", name, err)
	}

	s.metrics.BatchFlushed(name, len(batch))
	s.metrics.Pending(name, q.len())
	s.logger.Debug("PERSISTENCE", "Batch written", map[string]interface{}{
		"queue": name,
		"rows":  len(batch),
	})
	return nil
}

// CreateSession writes the session row immediately.
func (s *PersistenceService) CreateSession(ctx context.Context, session *entity.Session) error {
	if err := s.store.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PersistenceService) EndSession(ctx context.Context, id uuid.UUID, endTime time.Time, totalSamples int64) (bool, error) {
	ok, err := s.store.EndSession(ctx, id, endTime, totalSamples)
	if err != nil {
		return false, fmt.Errorf("end session: %w", err)
	}
	return ok, nil
}

func (s *PersistenceService) AddEvent(ctx context.Context, event *entity.Event) error {
	if err := s.store.AddEvent(ctx, event); err != nil {
		return fmt.Errorf("add event: %w", err)
	}
	return nil
}
