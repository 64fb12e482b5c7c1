package classifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultName is the classifier the ingestion gateway runs on every raw block.
const DefaultName = "signal_processing"

var ErrNotFound = errors.New("classifier not found")

// Result is one workload prediction.
type Result struct {
	Workload   float64            `json:"workload"`
	Attention  *float64           `json:"attention"`
	Confidence float64            `json:"confidence"`
	Features   map[string]float64 `json:"features"`
	Metadata   ResultMetadata     `json:"metadata"`
}

type ResultMetadata struct {
	ClassifierType   string  `json:"classifier_type"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
	Channels         int     `json:"n_channels"`
	Samples          int     `json:"n_samples"`
	DurationSec      float64 `json:"duration_sec"`
}

// Classifier turns a channels x samples block into a workload prediction.
type Classifier interface {
	Name() string
	Version() string
	Predict(ctx context.Context, data [][]float64) (*Result, error)
	Metadata() map[string]interface{}
}

// Registry holds classifiers by name. Safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	classifiers map[string]Classifier
}

func NewRegistry(classifiers ...Classifier) *Registry {
	r := &Registry{classifiers: make(map[string]Classifier)}
	for _, c := range classifiers {
		r.Register(c)
	}
	return r
}

// Register adds c, replacing any classifier with the same name.
func (r *Registry) Register(c Classifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classifiers[c.Name()] = c
}

func (r *Registry) Get(name string) (Classifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classifiers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return c, nil
}

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classifiers))
	for name := range r.classifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
