package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trunov/mediashrink/internal/config"
	"github.com/trunov/mediashrink/internal/entities"
	"github.com/trunov/mediashrink/internal/metrics"
	"github.com/trunov/mediashrink/internal/processor"
	"github.com/trunov/mediashrink/internal/repository/status"
	"github.com/trunov/mediashrink/internal/transport/handler"
	use_case "github.com/trunov/mediashrink/internal/use-case"
)

// memObjects is an in-memory object store. sizes overrides the reported
// size so budget behaviour can be driven with small fixtures.
type memObjects struct {
	mu      sync.Mutex
	data    map[string][]byte
	sizes   map[string]int64
	uploads int
}

func (m *memObjects) Size(_ context.Context, bucket, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[bucket+"/"+key]
	if !ok {
		return 0, fmt.Errorf("failed to stat %q: NotFound", key)
	}
	if s, ok := m.sizes[bucket+"/"+key]; ok {
		return s, nil
	}
	return int64(len(d)), nil
}

func (m *memObjects) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("failed to download %q: NotFound", key)
	}
	return d, nil
}

func (m *memObjects) Put(_ context.Context, bucket, key string, payload []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	m.data[bucket+"/"+key] = payload
	delete(m.sizes, bucket+"/"+key)
	return nil
}

func (m *memObjects) DownloadFile(ctx context.Context, bucket, key, path string) error {
	d, err := m.Get(ctx, bucket, key)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o600)
}

func (m *memObjects) UploadFile(ctx context.Context, path, bucket, key string) error {
	d, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.Put(ctx, bucket, key, d, "")
}

type stubScaler struct{}

func (stubScaler) Downscale(_ context.Context, path string) error {
	return os.WriteFile(path, []byte("downscaled"), 0o600)
}

type recorder struct {
	mu     sync.Mutex
	writes int
}

func (r *recorder) StatusWriteFailed(context.Context, entities.ProcessingRecord, error) {
	r.mu.Lock()
	r.writes++
	r.mu.Unlock()
}

func (r *recorder) TransformFailed(context.Context, string, string, error) {}

type failingStatuses struct{}

func (failingStatuses) Upsert(context.Context, entities.ProcessingRecord) error {
	return errors.New("status table unavailable")
}

func (failingStatuses) Get(context.Context, string) (entities.ProcessingRecord, error) {
	return entities.ProcessingRecord{}, status.ErrNotFound
}

type fixture struct {
	objects  *memObjects
	statuses *status.Memory
	recorder *recorder
	server   http.Handler
	metrics  *metrics.Registry
}

func newFixture(t *testing.T, statuses use_case.StatusStore) *fixture {
	t.Helper()
	f := &fixture{
		objects:  &memObjects{data: map[string][]byte{}, sizes: map[string]int64{}},
		recorder: &recorder{},
		metrics:  metrics.NewRegistry(),
	}
	if statuses == nil {
		f.statuses = status.NewMemory()
		statuses = f.statuses
	}

	cfg := config.NewConfig()
	uc := use_case.New(f.objects, statuses, stubScaler{}, f.recorder, f.metrics, processor.Limits{MaxBytes: cfg.Image.MaxBytes, MaxPixels: cfg.Image.MaxPixels}, t.TempDir())
	f.server = NewRouter(handler.New(uc, cfg), f.metrics)
	return f
}

func (f *fixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 3), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func TestOversizedJPEGIsShrunk(t *testing.T) {
	f := newFixture(t, nil)
	f.objects.data["media/photos/a.jpg"] = jpegBytes(t, 400, 300)
	f.objects.sizes["media/photos/a.jpg"] = 10 * 1024 * 1024

	rec := f.post(t, "/image/process", `{"bucket":"media","key":"photos/a.jpg"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"statusCode":200,"body":{"message":"Image processed successfully"}}`, rec.Body.String())

	out, err := processor.Decode(f.objects.data["media/photos/a.jpg"])
	require.NoError(t, err)
	w, h := out.GetBounds()
	require.Equal(t, 282, w)
	require.Equal(t, 212, h)
	require.Equal(t, processor.FormatOther, out.Format())

	got, err := f.statuses.Get(context.Background(), "photos/a.jpg")
	require.NoError(t, err)
	require.Equal(t, entities.Done("photos/a.jpg"), got)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSmallImageIsLeftAlone(t *testing.T) {
	f := newFixture(t, nil)
	original := jpegBytes(t, 20, 20)
	f.objects.data["media/thumb.jpg"] = original

	rec := f.post(t, "/image/process", `{"bucket":"media","key":"thumb.jpg"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, original, f.objects.data["media/thumb.jpg"])
	require.Zero(t, f.objects.uploads)
}

func TestMissingObjectFails(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.post(t, "/image/process", `{"bucket":"media","key":"nope.png"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"message":"Failed to process image","error":"failed to stat \"nope.png\": NotFound"}`, rec.Body.String())

	got, err := f.statuses.Get(context.Background(), "nope.png")
	require.NoError(t, err)
	require.Equal(t, 0, got.Processed)
	require.Equal(t, `failed to stat "nope.png": NotFound`, *got.Error)
	require.EqualValues(t, 1, f.metrics.Snapshot()["media_process_total{kind=image,outcome=failed}"])
}

func TestMissingFieldsWriteNoStatus(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.post(t, "/videos/process", `{"bucket":"media"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, f.statuses.Len())
}

func TestVideoRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	f.objects.data["media/v/clip.mp4"] = []byte("original")

	rec := f.post(t, "/videos/process", `{"bucket":"media","key":"v/clip.mp4"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "downscaled", string(f.objects.data["media/v/clip.mp4"]))

	statusRec := httptest.NewRecorder()
	f.server.ServeHTTP(statusRec, httptest.NewRequest(http.MethodGet, "/status/v/clip.mp4", nil))
	require.Equal(t, http.StatusOK, statusRec.Code)
	require.JSONEq(t, `{"object_key":"v/clip.mp4","processed":1}`, statusRec.Body.String())
}

func TestStatusStoreOutageDoesNotFailRequest(t *testing.T) {
	f := newFixture(t, failingStatuses{})
	f.objects.data["media/v/clip.mp4"] = []byte("original")

	rec := f.post(t, "/videos/process", `{"bucket":"media","key":"v/clip.mp4"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, f.recorder.writes)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.post(t, "/image/process", `{}`)

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `http_requests_total{method=POST,route=/image/process,status=4xx}`)
}
