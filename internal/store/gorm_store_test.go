package store

import (
	"context"
	"os"
	"testing"
	"time"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/model"
	"eeg-workload-be/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Postgres with the vector extension.
func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("DB_CONNECTION_STRING not set")
	}
	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error)
	require.NoError(t, db.AutoMigrate(
		&model.Session{}, &model.Prediction{}, &model.FeatureVector{}, &model.StreamSample{}, &model.Event{},
	))

	s := NewGormStore(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormStoreRoundTrip(t *testing.T) {
	s := newGormStore(t)
	ctx := context.Background()
	user := "it-" + uuid.NewString()[:8]

	session := &entity.Session{
		SessionId:  uuid.New(),
		UserId:     user,
		StartTime:  time.Now().UTC(),
		DeviceInfo: map[string]interface{}{"device": "synthetic"},
	}
	require.NoError(t, s.CreateSession(ctx, session))

	open, err := s.FindOpenSession(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, session.SessionId, open.SessionId)

	t0 := time.Now().UTC().Truncate(time.Millisecond)
	w := 0.4
	require.NoError(t, s.WritePredictions(ctx, []*entity.Prediction{{
		Timestamp:      t0,
		SessionId:      session.SessionId,
		UserId:         user,
		ClassifierName: "signal_processing",
		Workload:       &w,
		Features:       map[string]float64{"workload_index": w},
	}}))
	require.NoError(t, s.WriteFeatureVectors(ctx, []*entity.FeatureVector{{
		Timestamp:  t0,
		SessionId:  session.SessionId,
		BandVector: []float32{1, 2, 3, 4, 5},
	}}))

	preds, err := s.Predictions(ctx, PredictionQuery{SessionID: session.SessionId})
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.InDelta(t, w, *preds[0].Workload, 1e-12)
	assert.InDelta(t, w, preds[0].Features["workload_index"], 1e-12)

	near, err := s.NearestFeatures(ctx, []float32{1, 2, 3, 4, 5}, 1)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, near[0].BandVector)

	ok, err := s.EndSession(ctx, session.SessionId, time.Now().UTC(), 1000)
	require.NoError(t, err)
	assert.True(t, ok)

	ended, err := s.FindSession(ctx, session.SessionId)
	require.NoError(t, err)
	assert.False(t, ended.IsOpen())
	assert.Equal(t, int64(1000), ended.TotalSamples)
}
