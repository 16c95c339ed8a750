package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"datagrid/internal/core/apperror"
	"datagrid/pkg/logger"
)

func newEngine(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(Recovery(), Trace(), Logger(logger.NewWithCore(core)), ErrorHandler())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/opaque", func(c *gin.Context) { _ = c.Error(errors.New("disk on fire")) })
	r.GET("/missing", func(c *gin.Context) { _ = c.Error(apperror.NewNotFound("table", "orders")) })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r, logs
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func TestErrorBodiesCarryRequestID(t *testing.T) {
	r, _ := newEngine(t)

	tests := []struct {
		name     string
		path     string
		status   int
		code     string
		internal bool
	}{
		{"panic", "/panic", http.StatusInternalServerError, apperror.CodeInternal, true},
		{"unknown error", "/opaque", http.StatusInternalServerError, apperror.CodeInternal, true},
		{"app error", "/missing", http.StatusNotFound, apperror.CodeNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set(HeaderRequestID, "req-123")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
			var body errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
			assert.Equal(t, tt.code, body.Code)
			if tt.internal {
				assert.Equal(t, "req-123", body.Details["request_id"])
				assert.NotContains(t, w.Body.String(), "disk on fire")
			}
		})
	}
}

func TestTraceGeneratesMissingIDs(t *testing.T) {
	r, logs := newEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	requestID := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, requestID)
	assert.NotEmpty(t, w.Header().Get(HeaderTraceID))

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, requestID, fields["request_id"])
	assert.Equal(t, "/ok", fields["route"])
}

func TestLoggerLevelFollowsStatus(t *testing.T) {
	r, logs := newEngine(t)

	for _, path := range []string{"/missing", "/opaque"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Contains(t, entries[1].ContextMap()["error"], "disk on fire")
}
