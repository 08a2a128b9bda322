package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/maestro-run/maestro/internal/digest"
	"github.com/maestro-run/maestro/internal/eventbus"
	"github.com/maestro-run/maestro/internal/gateway/websocket"
	"github.com/maestro-run/maestro/internal/mail"
	"github.com/maestro-run/maestro/internal/ordering"
	"github.com/maestro-run/maestro/internal/platform/config"
	"github.com/maestro-run/maestro/internal/platform/logger"
	"github.com/maestro-run/maestro/internal/project"
	"github.com/maestro-run/maestro/internal/queue"
	"github.com/maestro-run/maestro/internal/session"
	"github.com/maestro-run/maestro/internal/spawn"
	"github.com/maestro-run/maestro/internal/storage"
	"github.com/maestro-run/maestro/internal/task"
	"github.com/maestro-run/maestro/internal/tasklist"
	"github.com/maestro-run/maestro/internal/team"
	"github.com/maestro-run/maestro/internal/template"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	bus := eventbus.NewMemoryBus(logger.Default())
	log := logger.Default()

	projectSvc := project.New(store, bus, log)
	taskSvc := task.New(store, bus, log)
	sessionSvc := session.New(store, bus, log)
	mailSvc := mail.New(store, bus, log)
	queueSvc := queue.New(store, taskSvc)
	digestSvc := digest.New(store)
	teamSvc := team.New(store)
	taskListSvc := tasklist.New(store)
	templateSvc := template.New(store)
	orderingSvc := ordering.New(store)
	spawnSvc := spawn.New(store, sessionSvc, templateSvc, bus, config.SpawnConfig{
		ManifestRoot: t.TempDir(),
		ServerURL:    "http://localhost:8080",
	}, log)

	hub := websocket.NewHub(log)
	wsHandler := websocket.NewHandler(hub, log)

	return NewRouter(Services{
		Project:  projectSvc,
		Task:     taskSvc,
		Session:  sessionSvc,
		Mail:     mailSvc,
		Queue:    queueSvc,
		Digest:   digestSvc,
		Spawn:    spawnSvc,
		Team:     teamSvc,
		TaskList: taskListSvc,
		Template: templateSvc,
		Ordering: orderingSvc,
		Store:    store,
		Bus:      bus,
	}, wsHandler, log)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateProjectThenGetViaREST(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/projects", map[string]interface{}{
		"name":       "demo",
		"workingDir": "/tmp/demo",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"].(string)
	require.NotEmpty(t, id)

	rec = doJSON(t, router, http.MethodGet, "/api/projects/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMissingProjectReturns404WithEnvelope(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/projects/proj_missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Error)
	require.NotEmpty(t, envelope.Code)
}

func TestSpawnSessionViaRESTReturnsSpawningSession(t *testing.T) {
	router := setupTestRouter(t)

	projRec := doJSON(t, router, http.MethodPost, "/api/projects", map[string]interface{}{
		"name":       "demo",
		"workingDir": "/tmp/demo",
	})
	require.Equal(t, http.StatusCreated, projRec.Code)
	var proj map[string]interface{}
	require.NoError(t, json.Unmarshal(projRec.Body.Bytes(), &proj))
	projectID := proj["id"].(string)

	taskRec := doJSON(t, router, http.MethodPost, "/api/tasks", map[string]interface{}{
		"projectId": projectID,
		"title":     "do the thing",
	})
	require.Equal(t, http.StatusCreated, taskRec.Code)
	var createdTask map[string]interface{}
	require.NoError(t, json.Unmarshal(taskRec.Body.Bytes(), &createdTask))
	taskID := createdTask["id"].(string)

	spawnRec := doJSON(t, router, http.MethodPost, "/api/sessions/spawn", map[string]interface{}{
		"projectId":   projectID,
		"taskIds":     []string{taskID},
		"spawnSource": "manual",
		"role":        "worker",
	})
	require.Equal(t, http.StatusCreated, spawnRec.Code)

	var sess map[string]interface{}
	require.NoError(t, json.Unmarshal(spawnRec.Body.Bytes(), &sess))
	require.Equal(t, "spawning", sess["status"])
}

func TestReadyzReportsStorageAndEventBusOK(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["ready"])
}

func TestGetSessionTimelineReturnsAppendedEvents(t *testing.T) {
	router := setupTestRouter(t)

	projRec := doJSON(t, router, http.MethodPost, "/api/projects", map[string]interface{}{
		"name":       "demo",
		"workingDir": "/tmp/demo",
	})
	require.Equal(t, http.StatusCreated, projRec.Code)
	var proj map[string]interface{}
	require.NoError(t, json.Unmarshal(projRec.Body.Bytes(), &proj))

	sessRec := doJSON(t, router, http.MethodPost, "/api/sessions", map[string]interface{}{
		"projectId": proj["id"],
		"role":      "worker",
	})
	require.Equal(t, http.StatusCreated, sessRec.Code)
	var sess map[string]interface{}
	require.NoError(t, json.Unmarshal(sessRec.Body.Bytes(), &sess))
	sessID := sess["id"].(string)

	addRec := doJSON(t, router, http.MethodPost, "/api/sessions/"+sessID+"/timeline", map[string]interface{}{
		"type":    "progress",
		"message": "halfway done",
	})
	require.Equal(t, http.StatusOK, addRec.Code)

	rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+sessID+"/timeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var events []interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
}

func TestMailWaitTimesOutWith200EmptyList(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/mail/wait?projectId=proj_x&sessionId=sess_x&timeout=50", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Empty(t, list)
}
