package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allocdash/internal/config"
	"allocdash/internal/errors"
	"allocdash/internal/services"
	"allocdash/internal/shared/testutil"
	"allocdash/pkg/contracts/events"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	testutil.WriteWorkbook(t, dir, config.DefaultCorrelationWorkbook, testutil.SheetFixture{
		Name: config.DefaultCorrelationSheet,
		Rows: [][]interface{}{
			{"Date", "SPX", "BUND"},
			{"2024-01-31", 0.1, 0.3},
			{"2024-02-29", 0.5, -0.2},
		},
	})

	cfg := config.Default()
	cfg.Data.Dir = dir
	cfg.Data.ExportDir = t.TempDir()
	cfg.Telemetry.MetricsEnabled = false
	cfg.Security.RateLimit.Enabled = false
	return cfg
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	application, err := New(testConfig(t), logger)
	require.NoError(t, err)
	t.Cleanup(application.WebSocketHub.Stop)
	return application
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_WiresComponents(t *testing.T) {
	application := newTestApp(t)

	assert.NotNil(t, application.Router)
	assert.NotNil(t, application.Server)
	assert.NotNil(t, application.Cache)
	assert.NotNil(t, application.DashboardService)
	assert.NotNil(t, application.HealthService)
	assert.False(t, application.Scheduler.Enabled())
	assert.Equal(t, application.Config.Server.Addr(), application.Server.Addr)
}

func TestNew_InvalidReloadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.ReloadSchedule = "not a schedule"

	_, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestRouter_Health(t *testing.T) {
	application := newTestApp(t)

	rec := get(t, application.Router, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = get(t, application.Router, "/api/version")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), config.AppVersion)
}

func TestRouter_Correlation(t *testing.T) {
	application := newTestApp(t)

	rec := get(t, application.Router, "/api/v1/correlation?start=2024-02-01")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Series struct {
				Lines []struct {
					Ticker string `json:"ticker"`
				} `json:"series"`
			} `json:"series"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	require.Len(t, body.Data.Series.Lines, 2)
	assert.Equal(t, "SPX", body.Data.Series.Lines[0].Ticker)
	assert.Equal(t, "BUND", body.Data.Series.Lines[1].Ticker)
}

func TestRouter_MissingWorkbook(t *testing.T) {
	application := newTestApp(t)

	rec := get(t, application.Router, "/api/v1/stress")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}

func TestRouter_NotFound(t *testing.T) {
	application := newTestApp(t)

	rec := get(t, application.Router, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CacheMetrics(t *testing.T) {
	application := newTestApp(t)

	get(t, application.Router, "/api/v1/correlation")
	rec := get(t, application.Router, "/api/v1/metrics/cache")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entries"`)
}

func TestRouter_ReloadBroadcasts(t *testing.T) {
	application := newTestApp(t)
	server := httptest.NewServer(application.Router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readMessage := func() events.Message {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg events.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	assert.Equal(t, events.TypeConnection, readMessage().Type)

	resp, err := http.Post(server.URL+"/api/v1/reload", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, events.TypeWorkbooksReloaded, readMessage().Type)
}

func TestApplication_StartStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Data.ReloadSchedule = "@every 1h"

	application, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.True(t, application.Scheduler.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, application.Start(ctx, cancel))
	require.NoError(t, application.Stop(context.Background()))

	assert.Equal(t, 0, application.WebSocketHub.ClientCount())
}

type fakeReloader struct {
	mu       sync.Mutex
	triggers []string
	warmed   int
}

func (f *fakeReloader) Reload(_ context.Context, trigger string) services.ReloadResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	return services.ReloadResult{Trigger: trigger}
}

func (f *fakeReloader) Warm(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmed++
	return nil
}

func (f *fakeReloader) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.triggers), f.warmed
}

func TestReloadScheduler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("empty schedule is disabled", func(t *testing.T) {
		s, err := NewReloadScheduler("", &fakeReloader{}, logger)
		require.NoError(t, err)
		assert.False(t, s.Enabled())
		s.Start()
		s.Stop(context.Background())
	})

	t.Run("invalid schedule", func(t *testing.T) {
		_, err := NewReloadScheduler("* * *", &fakeReloader{}, logger)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
	})

	t.Run("reloads then warms on schedule", func(t *testing.T) {
		reloader := &fakeReloader{}
		s, err := NewReloadScheduler("* * * * * *", reloader, logger)
		require.NoError(t, err)

		s.Start()
		defer s.Stop(context.Background())

		assert.Eventually(t, func() bool {
			reloads, warms := reloader.calls()
			return reloads >= 1 && warms >= 1
		}, 3*time.Second, 50*time.Millisecond)

		reloader.mu.Lock()
		assert.Equal(t, ReloadTriggerSchedule, reloader.triggers[0])
		reloader.mu.Unlock()
	})
}
