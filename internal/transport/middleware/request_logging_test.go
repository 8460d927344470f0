package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/trunov/mediashrink/internal/metrics"
)

func newRouter(reg *metrics.Registry, handler http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestLogger(reg))
	r.Post("/image/process", handler)
	r.Get("/status/*", handler)
	return r
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRequestLoggerAssignsRequestID(t *testing.T) {
	reg := metrics.NewRegistry()

	var ctxLogger *zerolog.Logger
	r := newRouter(reg, func(w http.ResponseWriter, r *http.Request) {
		ctxLogger = zerolog.Ctx(r.Context())
		w.WriteHeader(http.StatusInternalServerError)
	})

	rec := serve(r, http.MethodPost, "/image/process")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))
	require.NotNil(t, ctxLogger)

	snap := reg.Snapshot()
	require.EqualValues(t, 1, snap["http_requests_total{method=POST,route=/image/process,status=5xx}"])
	require.EqualValues(t, 1, snap["http_requests_errors_total{method=POST,route=/image/process,status=5xx}"])
}

func TestRequestLoggerKeepsIncomingRequestID(t *testing.T) {
	h := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLoggerLabelsByRoutePattern(t *testing.T) {
	reg := metrics.NewRegistry()
	r := newRouter(reg, func(w http.ResponseWriter, r *http.Request) {})

	for i := 0; i < 500; i++ {
		serve(r, http.MethodGet, fmt.Sprintf("/status/k%d.jpg", i))
		serve(r, http.MethodGet, fmt.Sprintf("/nowhere/%d", i))
	}

	snap := reg.Snapshot()
	require.Len(t, snap, 2)
	require.EqualValues(t, 500, snap["http_requests_total{method=GET,route=/status/*,status=2xx}"])
	require.EqualValues(t, 500, snap["http_requests_total{method=GET,route=unmatched,status=4xx}"])
}
