package controller

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"eeg-workload-be/internal/buffer"
	"eeg-workload-be/internal/pkg/logger"
	"eeg-workload-be/internal/pkg/serverutils"
	"eeg-workload-be/internal/repository/memory"
	"eeg-workload-be/internal/service"
	"eeg-workload-be/internal/store"
	"eeg-workload-be/internal/websocket"
	"eeg-workload-be/pkg/classifier"
	"eeg-workload-be/pkg/eeg"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	app     *fiber.App
	buffers *buffer.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.NewNopLogger()
	ms := store.NewMemoryStore()
	buffers := buffer.NewManager(100, nil)
	persistence := service.NewPersistenceService(ms, log, nil, service.PersistenceConfig{})
	sessions := service.NewSessionService(persistence, ms, buffers, memory.NewActiveSessionRepository(), log)

	sp, err := classifier.NewSignalProcessing(eeg.DefaultConfig(250))
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandlerMiddleware()})
	NewHealthController("memory").RegisterRoutes(app)

	api := app.Group("/api")
	NewSessionController(sessions).RegisterRoutes(api)
	NewRealtimeController(service.NewRealtimeService(buffers), nil, log).RegisterRoutes(api)
	NewHistoryController(service.NewHistoryService(ms)).RegisterRoutes(api)
	NewIngestController(websocket.NewHub(10, log), persistence, classifier.NewRegistry(sp)).RegisterRoutes(api)

	return &fixture{app: app, buffers: buffers}
}

func (f *fixture) do(t *testing.T, method, target, body string) (int, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["storage"])
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/api/sessions", `{"user_id":"alice","notes":"reading task"}`)
	require.Equal(t, http.StatusCreated, code)
	data := body["data"].(map[string]interface{})
	id := data["session_id"].(string)
	assert.Equal(t, true, data["is_active"])

	code, _ = f.do(t, http.MethodPost, "/api/sessions", `{"user_id":"alice"}`)
	assert.Equal(t, http.StatusConflict, code, "alice already has an open session")

	code, body = f.do(t, http.MethodGet, "/api/sessions?user_id=alice&active_only=true", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 1)

	code, _ = f.do(t, http.MethodPatch, "/api/sessions/"+id+"/notes", `{"notes":"second block","append":true}`)
	assert.Equal(t, http.StatusOK, code)

	code, body = f.do(t, http.MethodPost, "/api/sessions/"+id+"/events", `{"label":"task_start"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "task_start", body["data"].(map[string]interface{})["label"])

	code, body = f.do(t, http.MethodPost, "/api/sessions/events", `{"user_id":"alice","label":"task_end"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, id, body["data"].(map[string]interface{})["session_id"])

	code, body = f.do(t, http.MethodGet, "/api/sessions/events?session_id="+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 2)

	code, body = f.do(t, http.MethodGet, "/api/sessions/"+id+"/summary", "")
	require.Equal(t, http.StatusOK, code)
	stats := body["data"].(map[string]interface{})["statistics"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["total_events"])

	code, body = f.do(t, http.MethodPost, "/api/sessions/"+id+"/end", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["data"].(map[string]interface{})["is_active"])

	code, _ = f.do(t, http.MethodPost, "/api/sessions/"+id+"/end", "")
	assert.Equal(t, http.StatusConflict, code)
}

func TestSessionErrors(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/api/sessions", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["errors"], "UserId")

	code, _ = f.do(t, http.MethodGet, "/api/sessions/not-a-uuid/summary", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodGet, "/api/sessions/"+uuid.NewString()+"/summary", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodGet, "/api/sessions/events?session_id=nope", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRealtimeLoad(t *testing.T) {
	f := newFixture(t)

	code, _ := f.do(t, http.MethodGet, "/api/realtime/load?user_id=bob", "")
	assert.Equal(t, http.StatusNotFound, code)

	sid := uuid.New()
	f.buffers.Append(buffer.NewPredictionRecord(time.Now(), sid, "bob", map[string]float64{
		"workload":   0.8,
		"confidence": 0.9,
	}, nil))

	code, body := f.do(t, http.MethodGet, "/api/realtime/load?user_id=bob", "")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, 0.8, data["workload"])
	assert.Equal(t, sid.String(), data["session_id"])

	code, body = f.do(t, http.MethodGet, "/api/realtime/state?user_id=bob", "")
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["data"].(map[string]interface{})["state"])

	code, body = f.do(t, http.MethodGet, "/api/realtime/buffers", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["data"].(map[string]interface{})["active_sessions"])

	code, _ = f.do(t, http.MethodGet, "/api/realtime/trend?minutes=0&user_id=bob", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = f.do(t, http.MethodGet, "/api/realtime/trend?minutes=5000", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHistoryValidation(t *testing.T) {
	f := newFixture(t)

	code, _ := f.do(t, http.MethodGet, "/api/history/patterns?start=yesterday&end=today", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodGet, "/api/history/patterns?start=2026-01-02T00:00:00Z&end=2026-01-01T00:00:00Z", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodGet, "/api/history/patterns?start=2026-01-01T00:00:00Z&end=2026-01-02T00:00:00Z", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodPost, "/api/history/features/similar", `{"vector":[1,2,3]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := f.do(t, http.MethodPost, "/api/history/features/similar", `{"vector":[1,2,3,4,5]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["data"])
}

func TestIngestEndpoints(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodGet, "/api/ingest/stats", "")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	gw := data["gateway"].(map[string]interface{})
	assert.Equal(t, float64(0), gw["active_connections"])
	assert.Equal(t, float64(10), gw["max_connections"])
	assert.Contains(t, data, "pending_writes")

	code, body = f.do(t, http.MethodGet, "/api/ingest/classifiers", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 1)
}

func TestLogEndpoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	appLog := logger.NewIsolatedLogger(path)
	appLog.Info("Test", "first", nil)
	appLog.Warn("Test", "second", nil)
	require.NoError(t, appLog.Sync())

	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandlerMiddleware()})
	NewLogController(appLog, logger.NewNopLogger()).RegisterRoutes(app)
	f := &fixture{app: app}

	code, body := f.do(t, http.MethodGet, "/logs?level=WARN", "")
	require.Equal(t, http.StatusOK, code)
	logs := body["data"].([]interface{})
	require.Len(t, logs, 1)
	entry := logs[0].(map[string]interface{})
	assert.Equal(t, "second", entry["message"])

	code, body = f.do(t, http.MethodGet, "/logs/"+entry["id"].(string), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Test", body["data"].(map[string]interface{})["module"])

	code, _ = f.do(t, http.MethodGet, "/logs/unknown", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = f.do(t, http.MethodGet, "/logs?source=gateway", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["data"])

	code, _ = f.do(t, http.MethodGet, "/logs?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
