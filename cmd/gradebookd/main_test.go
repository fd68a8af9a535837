package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/campusops/gradebook/app"
	"github.com/campusops/gradebook/config"
	"github.com/campusops/gradebook/routes"
)

func TestMain(m *testing.M) {
	// Setup
	os.Setenv("ENVIRONMENT", "test")
	os.Setenv("LOG_LEVEL", "error")

	// Run tests
	code := m.Run()

	// Teardown
	os.Exit(code)
}

func TestInitLogger(t *testing.T) {
	t.Run("default json logger", func(t *testing.T) {
		os.Setenv("LOG_LEVEL", "info")
		os.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("development text logger", func(t *testing.T) {
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("LOG_FORMAT", "text")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("invalid log level", func(t *testing.T) {
		os.Setenv("LOG_LEVEL", "invalid")
		os.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("defaults when not set", func(t *testing.T) {
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("LOG_FORMAT")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("health check returns healthy", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		body := decodeBody(t, resp)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "healthy", data["status"])
	})

	t.Run("readiness check reports database healthy", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health/ready")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "healthy", data["status"])
		checks := data["checks"].(map[string]interface{})
		assert.Equal(t, "healthy", checks["database"])
	})
}

func TestAPIEndpoints(t *testing.T) {
	ts := newTestServer(t)

	testCases := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"list students", "GET", "/api/v1/students", http.StatusOK},
		{"get unknown student", "GET", "/api/v1/students/42", http.StatusNotFound},
		{"delete unknown student", "DELETE", "/api/v1/students/42", http.StatusNotFound},
		{"get student with bad id", "GET", "/api/v1/students/abc", http.StatusBadRequest},
		{"list log entries", "GET", "/api/v1/log", http.StatusOK},
		{"get log entry with bad id", "GET", "/api/v1/log/not-a-uuid", http.StatusBadRequest},
		{"unknown trail", "GET", "/api/v1/students/42/log", http.StatusOK},
		{"not found", "GET", "/api/v1/nonexistent", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, nil)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "endpoint: %s %s", tc.method, tc.path)
		})
	}
}

// TestChangeLogOverHTTP drives the roster through the public API and checks
// that the change log tracks every committed write, and only those.
func TestChangeLogOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	// Two creations
	alice := postJSON(t, ts.URL+"/api/v1/students", `{"name":"Alice","grade":90}`, http.StatusCreated)
	assert.Equal(t, float64(1), alice["id"])

	bob := postJSON(t, ts.URL+"/api/v1/students", `{"name":"Bob","grade":85}`, http.StatusCreated)
	assert.Equal(t, float64(2), bob["id"])

	// One grade change
	updated := patchJSON(t, ts.URL+"/api/v1/students/1", `{"grade":95}`, http.StatusOK)
	assert.Equal(t, float64(95), updated["grade"])

	// Three writes, three log entries
	entries := getLogEntries(t, ts.URL+"/api/v1/log")
	require.Len(t, entries, 3)

	// A failed update must leave the log untouched
	patchJSON(t, ts.URL+"/api/v1/students/999", `{"grade":1}`, http.StatusNotFound)
	entries = getLogEntries(t, ts.URL+"/api/v1/log")
	require.Len(t, entries, 3)

	// Per-student trail is oldest first: the insert, then the update
	trail := getLogEntries(t, ts.URL+"/api/v1/students/1/log")
	require.Len(t, trail, 2)
	assert.Equal(t, "INSERT", trail[0]["action"])
	assert.Equal(t, "UPDATE", trail[1]["action"])
	assert.Equal(t, float64(1), trail[0]["student_id"])

	newData := trail[1]["new_data"].(map[string]interface{})
	assert.Equal(t, float64(95), newData["grade"])
}

func TestCORSMiddleware(t *testing.T) {
	ts := newTestServer(t)

	t.Run("OPTIONS preflight request", func(t *testing.T) {
		req, err := http.NewRequest("OPTIONS", ts.URL+"/api/v1/students", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	ts := newTestServer(t)

	t.Run("response carries a generated request ID", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("caller-supplied request ID is echoed back", func(t *testing.T) {
		req, err := http.NewRequest("GET", ts.URL+"/health", nil)
		require.NoError(t, err)
		req.Header.Set("X-Request-ID", "trace-me-123")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, "trace-me-123", resp.Header.Get("X-Request-ID"))
	})
}

// Test helpers

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx := context.Background()
	cfg := testConfig(t)
	logger := zaptest.NewLogger(t)

	deps, err := app.NewDependencies(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(ctx) })

	ts := httptest.NewServer(routes.SetupRoutes(deps))
	t.Cleanup(ts.Close)

	return ts
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "gradebook.db"),
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "error",
			LogFormat: "json",
		},
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func doJSON(t *testing.T, method, url, payload string, wantStatus int) map[string]interface{} {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewBufferString(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, wantStatus, resp.StatusCode, "%s %s", method, url)

	body := decodeBody(t, resp)
	if data, ok := body["data"].(map[string]interface{}); ok {
		return data
	}
	return body
}

func postJSON(t *testing.T, url, payload string, wantStatus int) map[string]interface{} {
	return doJSON(t, http.MethodPost, url, payload, wantStatus)
}

func patchJSON(t *testing.T, url, payload string, wantStatus int) map[string]interface{} {
	return doJSON(t, http.MethodPatch, url, payload, wantStatus)
}

func getLogEntries(t *testing.T, url string) []map[string]interface{} {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Data
}
