package mwlogger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMWLogger_RequestID(t *testing.T) {
	var inner bool
	h := NewMWLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// логгер из контекста должен быть доступен сервисам
		l := LoggerFromContext(r.Context())
		l.Info().Msg("inside")
		inner = true
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "req-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.True(t, inner)
	require.Equal(t, http.StatusTeapot, w.Code)
	require.Equal(t, "req-1", w.Header().Get("X-Request-Id"))
}

func TestNewMWLogger_GeneratesRequestID(t *testing.T) {
	h := NewMWLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
}
