package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/econet-bridge/internal/bridges/econet"
	"github.com/nerrad567/econet-bridge/internal/entity"
	"github.com/nerrad567/econet-bridge/internal/infrastructure/config"
	"github.com/nerrad567/econet-bridge/internal/infrastructure/database"
	"github.com/nerrad567/econet-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/econet-bridge/migrations"
)

type fakeBridge struct {
	metrics econet.BridgeMetrics
	status  econet.HealthStatus
	reason  string
	coord   *econet.DataCoordinator
}

func (f *fakeBridge) GetMetrics() econet.BridgeMetrics      { return f.metrics }
func (f *fakeBridge) Health() (econet.HealthStatus, string) { return f.status, f.reason }
func (f *fakeBridge) Coordinator() *econet.DataCoordinator  { return f.coord }

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// newTestRegistry returns a registry backed by a migrated temp database
// holding one controller and one mixer sensor.
func newTestRegistry(t *testing.T) *entity.Registry {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "api.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	registry := entity.NewRegistry(entity.NewSQLiteRepository(db.DB))
	sensors := []entity.Sensor{
		{UniqueID: "entry-1-tempCO", EntryID: "entry-1", Key: "tempCO", TranslationKey: "temp_co", Kind: econet.KindController, Unit: "°C"},
		{UniqueID: "entry-1-mixerTemp1", EntryID: "entry-1", Key: "mixerTemp1", TranslationKey: "mixer_temp", Kind: econet.KindMixer, SubIndex: 1, Unit: "°C"},
	}
	for _, s := range sensors {
		if err := registry.Register(ctx, s); err != nil {
			t.Fatalf("Register(%s) error = %v", s.UniqueID, err)
		}
	}
	if err := registry.RecordValue(ctx, "entry-1-tempCO", 61.5, time.Now()); err != nil {
		t.Fatalf("RecordValue() error = %v", err)
	}
	return registry
}

func newTestServer(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Registry == nil {
		deps.Registry = newTestRegistry(t)
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.NewRegistry()
	}
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv.Handler()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Registry: &entity.Registry{}}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without registry should fail")
	}
}

func TestListSensors(t *testing.T) {
	h := newTestServer(t, Deps{})

	rec := get(t, h, "/api/v1/sensors")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decode[SensorListResponse](t, rec)
	if resp.Count != 2 || len(resp.Sensors) != 2 {
		t.Fatalf("count = %d, sensors = %d, want 2", resp.Count, len(resp.Sensors))
	}
	if resp.Sensors[0].Kind != econet.KindController {
		t.Errorf("first sensor kind = %q, want controller first", resp.Sensors[0].Kind)
	}
	if !resp.Sensors[0].LastValue.Valid || resp.Sensors[0].LastValue.Float64 != 61.5 {
		t.Errorf("last value = %v, want 61.5", resp.Sensors[0].LastValue)
	}
}

func TestListSensors_KindFilter(t *testing.T) {
	h := newTestServer(t, Deps{})

	rec := get(t, h, "/api/v1/sensors?kind=mixer")
	resp := decode[SensorListResponse](t, rec)
	if resp.Count != 1 || resp.Sensors[0].Key != "mixerTemp1" {
		t.Errorf("mixer filter returned %+v", resp.Sensors)
	}

	rec = get(t, h, "/api/v1/sensors?kind=lambda")
	resp = decode[SensorListResponse](t, rec)
	if resp.Count != 0 || resp.Sensors == nil {
		t.Errorf("lambda filter = %+v, want empty non-nil list", resp.Sensors)
	}

	rec = get(t, h, "/api/v1/sensors?kind=boiler")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", rec.Code)
	}
}

func TestGetSensor(t *testing.T) {
	h := newTestServer(t, Deps{})

	rec := get(t, h, "/api/v1/sensors/entry-1-mixerTemp1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	s := decode[entity.Sensor](t, rec)
	if s.SubIndex != 1 || s.Kind != econet.KindMixer {
		t.Errorf("sensor = %+v, want mixer 1", s)
	}

	rec = get(t, h, "/api/v1/sensors/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing sensor status = %d, want 404", rec.Code)
	}
	apiErr := decode[Error](t, rec)
	if apiErr.Code != ErrCodeNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, ErrCodeNotFound)
	}
}

func TestSensorStats(t *testing.T) {
	h := newTestServer(t, Deps{})

	stats := decode[entity.Stats](t, get(t, h, "/api/v1/sensors/stats"))
	if stats.Total != 2 || stats.WithValue != 1 {
		t.Errorf("stats = %+v, want total 2 with_value 1", stats)
	}
	if stats.ByKind[econet.KindMixer] != 1 {
		t.Errorf("by_kind[mixer] = %d, want 1", stats.ByKind[econet.KindMixer])
	}
}

func TestHealth(t *testing.T) {
	ok := checkFunc(func(context.Context) error { return nil })
	failing := checkFunc(func(context.Context) error { return errors.New("broker unreachable") })

	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		bridge     *fakeBridge
		wantCode   int
		wantStatus string
	}{
		{
			name:       "no checks",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "all healthy",
			checks:     map[string]HealthChecker{"database": ok, "mqtt": ok},
			bridge:     &fakeBridge{status: econet.HealthHealthy},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "bridge starting is not degraded",
			bridge:     &fakeBridge{status: econet.HealthStarting, reason: "waiting for first snapshot"},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "failing check",
			checks:     map[string]HealthChecker{"database": ok, "mqtt": failing},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
		{
			name:       "bridge degraded",
			bridge:     &fakeBridge{status: econet.HealthDegraded, reason: "no snapshot"},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := Deps{Checks: tt.checks, Version: "test"}
			if tt.bridge != nil {
				deps.Bridge = tt.bridge
			}
			rec := get(t, newTestServer(t, deps), "/api/v1/health")
			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantCode)
			}
			resp := decode[HealthResponse](t, rec)
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.Version != "test" {
				t.Errorf("version = %q, want test", resp.Version)
			}
			if tt.checks["mqtt"] != nil && resp.Checks["mqtt"] == "" {
				t.Error("mqtt check missing from response")
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	t.Run("without bridge", func(t *testing.T) {
		rec := get(t, newTestServer(t, Deps{}), "/api/v1/snapshot")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("returns coordinator data", func(t *testing.T) {
		coord := econet.NewDataCoordinator()
		coord.Update(&econet.Snapshot{
			RegParams:   econet.Params{"tempCO": 61.5},
			SysParams:   econet.Params{"softVer": "1.0"},
			ParamsEdits: econet.Params{},
		})
		h := newTestServer(t, Deps{Bridge: &fakeBridge{status: econet.HealthHealthy, coord: coord}})

		rec := get(t, h, "/api/v1/snapshot")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		resp := decode[SnapshotResponse](t, rec)
		if resp.UpdateCount != 1 || resp.LastUpdate == nil {
			t.Errorf("update_count = %d, last_update = %v", resp.UpdateCount, resp.LastUpdate)
		}
		if resp.Snapshot == nil || resp.Snapshot.RegParams["tempCO"] != 61.5 {
			t.Errorf("snapshot = %+v", resp.Snapshot)
		}
	})
}

func TestSystem(t *testing.T) {
	last := time.Now().Add(-time.Minute)
	bridge := &fakeBridge{
		status: econet.HealthHealthy,
		metrics: econet.BridgeMetrics{
			Connected:         true,
			Ready:             true,
			Status:            "healthy",
			Entities:          2,
			SnapshotsReceived: 7,
			LastSnapshot:      last,
		},
	}

	resp := decode[SystemMetrics](t, get(t, newTestServer(t, Deps{Bridge: bridge, Version: "1.2.3"}), "/api/v1/system"))
	if resp.Version != "1.2.3" {
		t.Errorf("version = %q", resp.Version)
	}
	if resp.Runtime.Goroutines == 0 {
		t.Error("runtime goroutines should be reported")
	}
	if resp.Bridge == nil {
		t.Fatal("bridge metrics missing")
	}
	if !resp.Bridge.MQTTConnected || resp.Bridge.SnapshotsReceived != 7 || resp.Bridge.LastSnapshot == nil {
		t.Errorf("bridge metrics = %+v", resp.Bridge)
	}
	if resp.Sensors.Total != 2 {
		t.Errorf("sensors total = %d, want 2", resp.Sensors.Total)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "econet_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Add(3)

	rec := get(t, newTestServer(t, Deps{Gatherer: reg}), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "econet_test_total 3") {
		t.Errorf("metrics body missing counter:\n%s", rec.Body.String())
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("request id is echoed", func(t *testing.T) {
		h := newTestServer(t, Deps{})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
			t.Errorf("X-Request-ID = %q, want abc-123", got)
		}
	})

	t.Run("request id is generated", func(t *testing.T) {
		rec := get(t, newTestServer(t, Deps{}), "/api/v1/health")
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID should be generated")
		}
	})

	t.Run("cors allowed origin", func(t *testing.T) {
		h := newTestServer(t, Deps{Config: config.APIConfig{CORS: config.APICORSConfig{AllowedOrigins: []string{"http://panel.local"}}}})

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/sensors", nil)
		req.Header.Set("Origin", "http://panel.local")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("preflight status = %d, want 204", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
			t.Errorf("Allow-Origin = %q", got)
		}

		req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("disallowed origin got Allow-Origin = %q", got)
		}
	})

	t.Run("panic is recovered", func(t *testing.T) {
		srv, err := New(Deps{Logger: logging.Discard(), Registry: newTestRegistry(t)})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}

func TestServerLifecycle(t *testing.T) {
	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:   logging.Discard(),
		Registry: newTestRegistry(t),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start error = %v", err)
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
