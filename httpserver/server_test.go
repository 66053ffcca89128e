package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	handler, _ := newTestHandler(t)
	srv, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		MetricsAddr:              "127.0.0.1:0",
		Log:                      slog.New(slog.NewTextHandler(io.Discard, nil)),
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
		ReadTimeout:              time.Second,
		WriteTimeout:             time.Second,
	}, handler)
	require.NoError(t, err)
	return srv
}

func TestServer_HealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	router := srv.getRouter()

	get := func(path string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("/livez"))
	assert.Equal(t, http.StatusOK, get("/readyz"))

	assert.Equal(t, http.StatusOK, get("/drain"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))

	assert.Equal(t, http.StatusOK, get("/undrain"))
	assert.Equal(t, http.StatusOK, get("/readyz"))
}

func TestServer_SessionRequiresToken(t *testing.T) {
	srv := newTestServer(t)
	router := srv.getRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Keystore endpoints stay reachable while sealed.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/keystore/unseal", passphraseBody(t, "pass")))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
