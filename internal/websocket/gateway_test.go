package websocket

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"eeg-workload-be/internal/buffer"
	"eeg-workload-be/internal/dto"
	"eeg-workload-be/internal/pkg/logger"
	"eeg-workload-be/internal/repository/memory"
	"eeg-workload-be/internal/service"
	"eeg-workload-be/internal/store"
	"eeg-workload-be/pkg/classifier"
	"eeg-workload-be/pkg/eeg"
	"eeg-workload-be/pkg/events"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

const testSecret = "s3cret"

type capturePublisher struct {
	mu     sync.Mutex
	events []events.WorkloadPredicted
}

func (p *capturePublisher) PublishWorkload(_ context.Context, ev events.WorkloadPredicted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// gatedClassifier holds every prediction until release is closed.
type gatedClassifier struct {
	classifier.Classifier
	entered chan struct{}
	release chan struct{}
}

func newGatedClassifier(t *testing.T) *gatedClassifier {
	return &gatedClassifier{
		Classifier: signalProcessing(t),
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
}

func (c *gatedClassifier) Predict(ctx context.Context, data [][]float64) (*classifier.Result, error) {
	select {
	case c.entered <- struct{}{}:
	default:
	}
	<-c.release
	return c.Classifier.Predict(ctx, data)
}

func signalProcessing(t *testing.T) classifier.Classifier {
	t.Helper()
	sp, err := classifier.NewSignalProcessing(eeg.DefaultConfig(250))
	require.NoError(t, err)
	return sp
}

type gatewayFixture struct {
	url         string
	hub         *Hub
	gw          *Gateway
	buffers     *buffer.Manager
	store       *store.MemoryStore
	sessions    service.ISessionService
	persistence *service.PersistenceService
	publisher   *capturePublisher
}

func newGatewayFixture(t *testing.T, maxConnections int, authTimeout time.Duration) *gatewayFixture {
	return newGatewayFixtureWith(t, maxConnections, authTimeout, signalProcessing(t))
}

func newGatewayFixtureWith(t *testing.T, maxConnections int, authTimeout time.Duration, clf classifier.Classifier) *gatewayFixture {
	t.Helper()

	log := logger.NewNopLogger()
	ms := store.NewMemoryStore()
	buffers := buffer.NewManager(100, nil)
	persistence := service.NewPersistenceService(ms, log, nil, service.PersistenceConfig{})
	sessions := service.NewSessionService(persistence, ms, buffers, memory.NewActiveSessionRepository(), log)

	hub := NewHub(maxConnections, log)
	go hub.Run()

	publisher := &capturePublisher{}
	gw := NewGateway(hub, sessions, buffers, classifier.NewRegistry(clf), persistence, publisher, nil, log, GatewayConfig{
		Secret:          testSecret,
		AuthTimeout:     authTimeout,
		PersistRaw:      true,
		PersistFeatures: true,
	})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		gw.Serve(context.Background(), conn, r.RemoteAddr)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)

	return &gatewayFixture{
		url:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		hub:         hub,
		gw:          gw,
		buffers:     buffers,
		store:       ms,
		sessions:    sessions,
		persistence: persistence,
		publisher:   publisher,
	}
}

func (f *gatewayFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var out map[string]interface{}
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func readCloseCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	return ce.Code
}

func (f *gatewayFixture) authenticate(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	conn := f.dial(t)
	require.NoError(t, conn.WriteJSON(map[string]string{"secret": testSecret, "user_id": userID}))
	ack := readJSON(t, conn)
	require.Equal(t, "authenticated", ack["status"])
	require.Equal(t, userID, ack["user_id"])
	return conn
}

// boundSession returns the session of the first authenticated connection.
func (f *gatewayFixture) boundSession(t *testing.T) uuid.UUID {
	t.Helper()
	for _, cs := range f.hub.Stats(time.Now()).Connections {
		if cs.SessionID != nil {
			return *cs.SessionID
		}
	}
	t.Fatal("no authenticated connection")
	return uuid.Nil
}

func rawFrame(t *testing.T, channels [][]float64) []byte {
	t.Helper()
	payload, err := msgpack.Marshal(map[string]interface{}{
		"type":      "raw_sample",
		"timestamp": 1714557600.0,
		"data":      map[string]interface{}{"channels": channels},
	})
	require.NoError(t, err)
	return payload
}

func heartbeat(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "heartbeat"}))
	assert.Equal(t, map[string]interface{}{"type": "heartbeat_ack"}, readJSON(t, conn))
}

func noiseBlock(channels, samples int) [][]float64 {
	rng := rand.New(rand.NewSource(42))
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, samples)
		for i := range out[ch] {
			out[ch][i] = rng.NormFloat64() * 10
		}
	}
	return out
}

func TestGatewayAuthenticatesAndAcksHeartbeat(t *testing.T) {
	f := newGatewayFixture(t, 10, time.Second)
	conn := f.authenticate(t, "alice")
	heartbeat(t, conn)

	st := f.hub.Stats(time.Now())
	require.Equal(t, 1, st.ActiveConnections)
	assert.Equal(t, 1, st.ActiveSessions)
	assert.Equal(t, "active", st.Connections[0].State)
	assert.Equal(t, "alice", st.Connections[0].UserID)
	assert.Equal(t, int64(1), st.TotalMessagesReceived)
}

func TestGatewayAcceptsApiKeyAlias(t *testing.T) {
	f := newGatewayFixture(t, 10, time.Second)
	conn := f.dial(t)
	require.NoError(t, conn.WriteJSON(map[string]string{"api_key": testSecret, "user_id": "bob"}))
	assert.Equal(t, "authenticated", readJSON(t, conn)["status"])
}

func TestGatewayRejectsBadAuth(t *testing.T) {
	tests := []struct {
		name string
		auth map[string]string
	}{
		{"wrong secret", map[string]string{"secret": "nope", "user_id": "alice"}},
		{"missing user", map[string]string{"secret": testSecret}},
		{"missing secret", map[string]string{"user_id": "alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatewayFixture(t, 10, time.Second)
			conn := f.dial(t)
			require.NoError(t, conn.WriteJSON(tt.auth))
			assert.Equal(t, CloseAuthFailed, readCloseCode(t, conn))

			assert.Eventually(t, func() bool {
				return f.hub.Stats(time.Now()).ActiveConnections == 0
			}, 2*time.Second, 10*time.Millisecond)
			assert.Empty(t, f.buffers.ActiveSessions())
		})
	}
}

func TestGatewayAuthTimeout(t *testing.T) {
	f := newGatewayFixture(t, 10, 50*time.Millisecond)
	conn := f.dial(t)
	assert.Equal(t, CloseAuthTimeout, readCloseCode(t, conn))
}

func TestGatewayConnectionCeiling(t *testing.T) {
	f := newGatewayFixture(t, 1, time.Second)
	f.authenticate(t, "alice")

	second := f.dial(t)
	assert.Equal(t, CloseTryAgainLater, readCloseCode(t, second))
	assert.Equal(t, int64(1), f.hub.Stats(time.Now()).TotalRejected)
}

func TestGatewayReconnectReusesSession(t *testing.T) {
	f := newGatewayFixture(t, 10, time.Second)

	first := f.authenticate(t, "alice")
	sessionOf := func() string {
		for _, cs := range f.hub.Stats(time.Now()).Connections {
			if cs.SessionID != nil {
				return cs.SessionID.String()
			}
		}
		return ""
	}
	original := sessionOf()
	require.NotEmpty(t, original)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool {
		return f.hub.Stats(time.Now()).ActiveConnections == 0
	}, 2*time.Second, 10*time.Millisecond)

	f.authenticate(t, "alice")
	assert.Equal(t, original, sessionOf())
}

func TestGatewayClassifiesRawSamples(t *testing.T) {
	f := newGatewayFixture(t, 10, time.Second)
	conn := f.authenticate(t, "alice")

	payload, err := msgpack.Marshal(map[string]interface{}{
		"type":      "raw_sample",
		"timestamp": 1714557600.0,
		"data":      map[string]interface{}{"channels": noiseBlock(7, 1000)},
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, payload))
	// Frames are handled in order, so the ack means the block is done.
	heartbeat(t, conn)

	raw := f.buffers.LastN(10, "alice", buffer.KindRaw)
	require.Len(t, raw, 1)
	assert.Len(t, raw[0].Raw, 7)

	preds := f.buffers.LastN(10, "alice", buffer.KindPrediction)
	require.Len(t, preds, 1)
	assert.Equal(t, 1.0, preds[0].Values["confidence"])
	assert.Contains(t, preds[0].Values, "workload")
	assert.Contains(t, preds[0].Values, eeg.MetricFrontalTheta)
	assert.Equal(t, classifier.DefaultName, preds[0].Metadata["classifier"])

	p, fv, s := f.persistence.Pending()
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, fv)
	assert.Equal(t, 1, s)
	assert.Equal(t, 1, f.publisher.count())
}

func TestGatewayKeepsUnclassifiableBlocks(t *testing.T) {
	f := newGatewayFixture(t, 10, time.Second)
	conn := f.authenticate(t, "alice")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "raw_sample",
		"data": map[string]interface{}{"eeg": noiseBlock(3, 100)},
	}))
	heartbeat(t, conn)

	assert.Len(t, f.buffers.LastN(10, "alice", buffer.KindRaw), 1)
	assert.Empty(t, f.buffers.LastN(10, "alice", buffer.KindPrediction))
	assert.Zero(t, f.publisher.count())
}

func TestGatewayBuffersFeatures(t *testing.T) {
	f := newGatewayFixture(t, 10, time.Second)
	conn := f.authenticate(t, "alice")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":      "features",
		"timestamp": "2024-05-01T10:00:00",
		"data":      map[string]interface{}{"frontal_theta": 2.5, "device": "muse"},
	}))
	heartbeat(t, conn)

	feats := f.buffers.LastN(10, "alice", buffer.KindFeatures)
	require.Len(t, feats, 1)
	assert.Equal(t, 2.5, feats[0].Values["frontal_theta"])
	assert.Equal(t, "muse", feats[0].Metadata["device"])
	assert.Empty(t, f.buffers.LastN(10, "alice", buffer.KindPrediction))

	_, fv, _ := f.persistence.Pending()
	assert.Equal(t, 1, fv)
}

func TestGatewayAnswersProtocolErrorsInBand(t *testing.T) {
	f := newGatewayFixture(t, 10, time.Second)
	conn := f.authenticate(t, "alice")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "calibration"}))
	reply := readJSON(t, conn)
	assert.Contains(t, reply["error"], "unknown message type")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	reply = readJSON(t, conn)
	assert.Contains(t, reply["error"], "malformed frame")

	// Still open.
	heartbeat(t, conn)
	assert.Equal(t, int64(2), f.hub.Stats(time.Now()).Connections[0].Errors)
}

func TestGatewayRejectsNonFiniteSamplesInBand(t *testing.T) {
	f := newGatewayFixture(t, 10, time.Second)
	conn := f.authenticate(t, "alice")

	block := noiseBlock(7, 1000)
	block[2][500] = math.NaN()
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, rawFrame(t, block)))
	reply := readJSON(t, conn)
	assert.Contains(t, reply["error"], "malformed frame")
	assert.Contains(t, reply["error"], "channel 2 sample 500 is not finite")

	features, err := msgpack.Marshal(map[string]interface{}{
		"type": "features",
		"data": map[string]interface{}{"frontal_theta": math.Inf(1)},
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, features))
	reply = readJSON(t, conn)
	assert.Contains(t, reply["error"], "not finite")

	heartbeat(t, conn)
	assert.Empty(t, f.buffers.LastN(10, "alice", buffer.KindRaw))
	assert.Empty(t, f.buffers.LastN(10, "alice", buffer.KindFeatures))
	p, fv, s := f.persistence.Pending()
	assert.Zero(t, p)
	assert.Zero(t, fv)
	assert.Zero(t, s)
	assert.Zero(t, f.publisher.count())
	assert.Equal(t, int64(2), f.hub.Stats(time.Now()).Connections[0].Errors)
}

func TestHubCloseDisconnectsProducers(t *testing.T) {
	f := newGatewayFixture(t, 10, time.Second)
	conn := f.authenticate(t, "alice")

	f.hub.Close()
	assert.Equal(t, CloseGoingAway, readCloseCode(t, conn))

	late, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	defer late.Close()
	assert.Equal(t, CloseTryAgainLater, readCloseCode(t, late))
}

func TestGatewayShutdownWaitsForFrameInHand(t *testing.T) {
	gated := newGatedClassifier(t)
	f := newGatewayFixtureWith(t, 10, time.Second, gated)
	conn := f.authenticate(t, "alice")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, rawFrame(t, noiseBlock(7, 1000))))
	select {
	case <-gated.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("block never reached the classifier")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.gw.Shutdown(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("Shutdown returned while a frame was being handled: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(gated.release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not return")
	}

	p, fv, s := f.persistence.Pending()
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, fv)
	assert.Equal(t, 1, s)

	require.NoError(t, f.persistence.Stop(ctx))
	p, fv, s = f.store.Counts()
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, fv)
	assert.Equal(t, 1, s)

	late, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	defer late.Close()
	assert.Equal(t, CloseTryAgainLater, readCloseCode(t, late))
}

func TestGatewayShutdownHonoursDeadline(t *testing.T) {
	gated := newGatedClassifier(t)
	defer close(gated.release)
	f := newGatewayFixtureWith(t, 10, time.Second, gated)
	conn := f.authenticate(t, "alice")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, rawFrame(t, noiseBlock(7, 1000))))
	<-gated.entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := f.gw.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGatewayMovesProducerOffEndedSession(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t, 10, time.Second)
	conn := f.authenticate(t, "alice")
	original := f.boundSession(t)

	_, err := f.sessions.End(ctx, &dto.EndSessionRequest{SessionId: original})
	require.NoError(t, err)
	assert.False(t, f.sessions.IsCurrent("alice", original))

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, rawFrame(t, noiseBlock(7, 1000))))
	heartbeat(t, conn)

	moved := f.boundSession(t)
	assert.NotEqual(t, original, moved)
	assert.True(t, f.sessions.IsCurrent("alice", moved))

	_, ok := f.buffers.Get(original)
	assert.False(t, ok)
	raw := f.buffers.LastN(10, "alice", buffer.KindRaw)
	require.Len(t, raw, 1)
	assert.Equal(t, moved, raw[0].SessionID)

	require.NoError(t, f.persistence.Flush(ctx))
	stale, err := f.store.Predictions(ctx, store.PredictionQuery{SessionID: original})
	require.NoError(t, err)
	assert.Empty(t, stale)
	current, err := f.store.Predictions(ctx, store.PredictionQuery{SessionID: moved})
	require.NoError(t, err)
	assert.Len(t, current, 1)

	ended, err := f.store.FindSession(ctx, original)
	require.NoError(t, err)
	assert.Zero(t, ended.TotalSamples)
}
