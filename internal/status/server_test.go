package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/marketplace-watcher/internal/logger"
	"github.com/agrolink/marketplace-watcher/internal/reconciler"
	"github.com/agrolink/marketplace-watcher/internal/watcher"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fixedStats struct {
	stats watcher.Stats
}

func (f fixedStats) Stats() watcher.Stats {
	return f.stats
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		srv := New(Config{}, fixedStats{watcher.Stats{Mode: "pull", Running: true}})
		rec := get(t, srv.Handler(), "/healthz")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","mode":"pull"}`, rec.Body.String())
	})

	t.Run("stopped", func(t *testing.T) {
		srv := New(Config{}, fixedStats{watcher.Stats{Mode: "push"}})
		rec := get(t, srv.Handler(), "/healthz")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"stopped","mode":"push"}`, rec.Body.String())
	})
}

func TestStatus(t *testing.T) {
	last := uint64(120)
	stats := watcher.Stats{
		Mode:               "pull",
		Running:            true,
		LastProcessedBlock: &last,
		EventsReceived:     3,
		Outcomes: map[reconciler.Outcome]int64{
			reconciler.OutcomeCreated:  1,
			reconciler.OutcomeNotFound: 2,
		},
	}
	srv := New(Config{}, fixedStats{stats})

	rec := get(t, srv.Handler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var got watcher.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "pull", got.Mode)
	require.NotNil(t, got.LastProcessedBlock)
	assert.Equal(t, uint64(120), *got.LastProcessedBlock)
	assert.Equal(t, int64(2), got.Outcomes[reconciler.OutcomeNotFound])
	assert.Nil(t, got.Reconnects)
}

func TestStatus_PushReconnects(t *testing.T) {
	reconnects := int64(4)
	srv := New(Config{}, fixedStats{watcher.Stats{Mode: "push", Reconnects: &reconnects}})

	rec := get(t, srv.Handler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reconnects":4`)
}

func TestUnknownRoute(t *testing.T) {
	srv := New(Config{}, fixedStats{})
	rec := get(t, srv.Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := New(Config{}, fixedStats{})
	assert.NoError(t, srv.Shutdown(context.Background()))
}
