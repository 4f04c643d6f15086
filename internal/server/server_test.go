package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/yojana/internal/cache"
	"github.com/ppiankov/yojana/internal/flow"
	"github.com/ppiankov/yojana/internal/llm"
	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router http.Handler
	store  *cache.MemoryStore
}

func newTestAPI(t *testing.T, r flow.Resolver, floor time.Duration) *testAPI {
	t.Helper()
	log := zaptest.NewLogger(t)
	store := cache.NewMemoryStore(time.Minute, 0)
	t.Cleanup(store.Close)

	h := NewSessionHandler(store, func() *flow.Controller {
		return flow.New(r, flow.WithMinResolving(floor), flow.WithLogger(log))
	}, 2*time.Second, log)

	return &testAPI{
		router: NewRouter(RouterConfig{SessionHandler: h, Logger: log}),
		store:  store,
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) createSession(t *testing.T) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp createSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, flow.StateCollecting, resp.State)
	return resp.ID
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error
}

func ravi() map[string]any {
	return map[string]any{
		"name":         "Ravi",
		"age":          40,
		"state":        "Telangana",
		"district":     "Warangal",
		"category":     "Farmer",
		"parentIncome": 200000,
		"caste":        "OBC",
		"education":    "10th Pass",
	}
}

func fallbackResolver() flow.Resolver {
	return resolver.New(nil, llm.DefaultConfig(), nil)
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t, fallbackResolver(), 0)
	w := api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestSessionLifecycle(t *testing.T) {
	api := newTestAPI(t, fallbackResolver(), 100*time.Millisecond)
	id := api.createSession(t)

	// No result before a profile is submitted
	w := api.do(t, http.MethodGet, "/api/sessions/"+id+"/result", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPost, "/api/sessions/"+id+"/profile", ravi())
	require.Equal(t, http.StatusAccepted, w.Code)
	var snap flow.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, flow.StateResolving, snap.State)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, model.CategoryFarmer, snap.Profile.Category)

	// Still inside the floor
	w = api.do(t, http.MethodGet, "/api/sessions/"+id+"/result", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = api.do(t, http.MethodGet, "/api/sessions/"+id+"/result?wait=2s", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result resultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Result, 2)
	assert.Equal(t, "PM-KISAN", result.Result[0].Name)
	assert.Equal(t, "Ravi", result.Profile.Name)

	// A second submission needs a restart
	w = api.do(t, http.MethodPost, "/api/sessions/"+id+"/profile", ravi())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "not_collecting", decodeError(t, w).Code)

	w = api.do(t, http.MethodPost, "/api/sessions/"+id+"/restart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var restarted flow.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &restarted))
	assert.Equal(t, flow.StateCollecting, restarted.State)
	assert.Nil(t, restarted.Profile)
	assert.Nil(t, restarted.Result)

	w = api.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session_not_found", decodeError(t, w).Code)
}

func TestSubmitProfile_Incomplete(t *testing.T) {
	api := newTestAPI(t, fallbackResolver(), 0)
	id := api.createSession(t)

	p := ravi()
	delete(p, "caste")

	w := api.do(t, http.MethodPost, "/api/sessions/"+id+"/profile", p)
	require.Equal(t, http.StatusBadRequest, w.Code)

	apiErr := decodeError(t, w)
	assert.Equal(t, "incomplete_step", apiErr.Code)
	details, ok := apiErr.Details.(map[string]any)
	require.True(t, ok, "expected step details, got %#v", apiErr.Details)
	assert.Equal(t, "background", details["step"])
	assert.Equal(t, []any{"caste"}, details["missing"])
}

func TestSubmitProfile_InvalidJSON(t *testing.T) {
	api := newTestAPI(t, fallbackResolver(), 0)
	id := api.createSession(t)

	w := api.do(t, http.MethodPost, "/api/sessions/"+id+"/profile", `{"age": "forty"`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_json", decodeError(t, w).Code)
}

func TestSubmitProfile_InFlight(t *testing.T) {
	release := make(chan struct{})
	r := flow.ResolverFunc(func(ctx context.Context, p model.Profile) []model.SchemeRecord {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})
	api := newTestAPI(t, r, 0)
	id := api.createSession(t)

	require.Equal(t, http.StatusAccepted, api.do(t, http.MethodPost, "/api/sessions/"+id+"/profile", ravi()).Code)

	w := api.do(t, http.MethodPost, "/api/sessions/"+id+"/profile", ravi())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "resolution_in_flight", decodeError(t, w).Code)

	// Wait is capped and reports the resolving snapshot
	w = api.do(t, http.MethodGet, "/api/sessions/"+id+"/result?wait=50ms", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	close(release)
	w = api.do(t, http.MethodGet, "/api/sessions/"+id+"/result?wait=2s", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"result":[]`)
}

func TestResult_InvalidWait(t *testing.T) {
	api := newTestAPI(t, fallbackResolver(), 0)
	id := api.createSession(t)

	w := api.do(t, http.MethodGet, "/api/sessions/"+id+"/result?wait=soon", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_wait", decodeError(t, w).Code)
}

func TestDelete_Unknown(t *testing.T) {
	api := newTestAPI(t, fallbackResolver(), 0)
	w := api.do(t, http.MethodDelete, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateProfile(t *testing.T) {
	api := newTestAPI(t, fallbackResolver(), 0)

	p := ravi()
	p["parentIncome"] = 0
	w := api.do(t, http.MethodPost, "/api/profile/validate", p)
	require.Equal(t, http.StatusOK, w.Code)

	var resp validateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Complete)
	require.Len(t, resp.Steps, 4)
	assert.True(t, resp.Steps[2].Complete)
	assert.False(t, resp.Steps[3].Complete)
	assert.Equal(t, []string{"parentIncome"}, resp.Steps[3].Missing)
}

func TestOptions(t *testing.T) {
	api := newTestAPI(t, fallbackResolver(), 0)
	w := api.do(t, http.MethodGet, "/api/options", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp optionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Categories, 3)
	assert.Equal(t, model.States, resp.States)
	assert.Len(t, resp.IncomeBrackets, 6)
	assert.Len(t, resp.LoadingStages, 4)
	assert.Equal(t, "Personal Details", resp.Steps[0].Title)
}

func TestCatalog(t *testing.T) {
	api := newTestAPI(t, fallbackResolver(), 0)

	w := api.do(t, http.MethodGet, "/api/catalog/women", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var schemes []model.SchemeRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schemes))
	require.Len(t, schemes, 2)
	assert.Equal(t, "Mahila Udyam Nidhi", schemes[0].Name)

	w = api.do(t, http.MethodGet, "/api/catalog/artisan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	h := NewSessionHandler(cache.NewMemoryStore(time.Minute, 0), func() *flow.Controller {
		return flow.New(fallbackResolver())
	}, time.Second, nil)
	router := NewRouter(RouterConfig{SessionHandler: h, CORSOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RunShutdown(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.SessionTTL = time.Minute

	srv := New(cfg, fallbackResolver(), false, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
