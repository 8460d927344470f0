package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/trunov/mediashrink/internal/config"
	"github.com/trunov/mediashrink/internal/entities"
	"github.com/trunov/mediashrink/internal/repository/status"
)

type stubUseCase struct {
	calls   []string
	err     error
	records map[string]entities.ProcessingRecord
}

func (s *stubUseCase) ProcessImage(_ context.Context, bucket, key string) error {
	s.calls = append(s.calls, "image:"+bucket+"/"+key)
	return s.err
}

func (s *stubUseCase) ProcessVideo(_ context.Context, bucket, key string) error {
	s.calls = append(s.calls, "video:"+bucket+"/"+key)
	return s.err
}

func (s *stubUseCase) Status(_ context.Context, key string) (entities.ProcessingRecord, error) {
	rec, ok := s.records[key]
	if !ok {
		return entities.ProcessingRecord{}, status.ErrNotFound
	}
	return rec, nil
}

func newTestRouter(uc UseCase) http.Handler {
	h := New(uc, config.NewConfig())
	r := chi.NewRouter()
	r.Post("/videos/process", h.ProcessVideo)
	r.Post("/image/process", h.ProcessImage)
	r.Get("/status/*", h.GetStatus)
	r.Get("/health", h.Health)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestProcessSuccess(t *testing.T) {
	uc := &stubUseCase{}
	r := newTestRouter(uc)

	rec := do(t, r, http.MethodPost, "/videos/process", `{"bucket":"media","key":"v/clip.mp4"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"statusCode":200,"body":{"message":"Video processed successfully"}}`, rec.Body.String())
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = do(t, r, http.MethodPost, "/image/process", `{"bucket":"media","key":"a/b.jpg"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"statusCode":200,"body":{"message":"Image processed successfully"}}`, rec.Body.String())

	require.Equal(t, []string{"video:media/v/clip.mp4", "image:media/a/b.jpg"}, uc.calls)
}

func TestProcessMissingFields(t *testing.T) {
	cases := map[string]string{
		"no key":       `{"bucket":"media"}`,
		"no bucket":    `{"key":"a.jpg"}`,
		"empty bucket": `{"bucket":"","key":"a.jpg"}`,
		"empty object": `{}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			uc := &stubUseCase{}
			rec := do(t, newTestRouter(uc), http.MethodPost, "/image/process", body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.JSONEq(t, `{"message":"Missing required fields in request body: bucket and key"}`, rec.Body.String())
			require.Empty(t, uc.calls)
		})
	}
}

func TestProcessMalformedBody(t *testing.T) {
	uc := &stubUseCase{}
	rec := do(t, newTestRouter(uc), http.MethodPost, "/videos/process", `{"bucket":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"message":"Invalid request body"}`, rec.Body.String())
	require.Empty(t, uc.calls)
}

func TestProcessBodyTooLarge(t *testing.T) {
	uc := &stubUseCase{}
	body := `{"bucket":"media","key":"` + strings.Repeat("k", 2<<20) + `"}`
	rec := do(t, newTestRouter(uc), http.MethodPost, "/image/process", body)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Empty(t, uc.calls)
}

func TestProcessFailureReturnsMessageVerbatim(t *testing.T) {
	uc := &stubUseCase{err: errors.New(`failed to stat "a.jpg": NotFound`)}

	rec := do(t, newTestRouter(uc), http.MethodPost, "/image/process", `{"bucket":"media","key":"a.jpg"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"message":"Failed to process image","error":"failed to stat \"a.jpg\": NotFound"}`, rec.Body.String())

	rec = do(t, newTestRouter(uc), http.MethodPost, "/videos/process", `{"bucket":"media","key":"a.jpg"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), `"message":"Failed to process video"`)
}

func TestGetStatus(t *testing.T) {
	uc := &stubUseCase{records: map[string]entities.ProcessingRecord{
		"a/b.jpg": entities.Failed("a/b.jpg", errors.New("boom")),
	}}
	r := newTestRouter(uc)

	rec := do(t, r, http.MethodGet, "/status/a/b.jpg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"object_key":"a/b.jpg","processed":0,"error":"boom"}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/status/missing.jpg", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"status record not found"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(&stubUseCase{}), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
